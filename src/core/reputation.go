package main

import "math"

// Behavior is a reputation-relevant act with a fixed score
type Behavior string

const (
	BehaviorResolveSuccess Behavior = "RESOLVE_SUCCESS"
	BehaviorResolveFail    Behavior = "RESOLVE_FAIL"
	BehaviorRemarkBad      Behavior = "REMARK_BAD"
	BehaviorRemarkNotGood  Behavior = "REMARK_NOT_GOOD"
	BehaviorRemarkFine     Behavior = "REMARK_FINE"
	BehaviorRemarkGood     Behavior = "REMARK_GOOD"
	BehaviorRemarkPerfect  Behavior = "REMARK_PERFECT"
)

// behaviorScores is the fixed behavior -> score table
var behaviorScores = map[Behavior]int64{
	BehaviorResolveSuccess: 10,
	BehaviorResolveFail:    -2,
	BehaviorRemarkBad:      -2,
	BehaviorRemarkNotGood:  0,
	BehaviorRemarkFine:     1,
	BehaviorRemarkGood:     3,
	BehaviorRemarkPerfect:  5,
}

// remarkBehavior maps a resolution remark onto its reputation behavior
func remarkBehavior(remark BountyRemark) Behavior {
	switch remark {
	case RemarkBad:
		return BehaviorRemarkBad
	case RemarkNotGood:
		return BehaviorRemarkNotGood
	case RemarkFine:
		return BehaviorRemarkFine
	case RemarkGood:
		return BehaviorRemarkGood
	case RemarkPerfect:
		return BehaviorRemarkPerfect
	default:
		return BehaviorRemarkNotGood
	}
}

// saturatingAdd adds two scores, clamping at the int64 bounds instead of
// wrapping.
func saturatingAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64
	}
	return a + b
}

// addBehaviorScore applies the score table to an account's accumulator and
// records the new cumulative score. Caller must hold the state mutex.
func (node *OpensquareNode) addBehaviorScore(account string, behavior Behavior) {
	score := behaviorScores[behavior]
	total := saturatingAdd(node.BehaviorScores[account], score)
	node.BehaviorScores[account] = total

	node.recordEvent(DomainEvent{Type: EventReputationAdded, Account: account, Score: total})
	RecordReputationChange(behavior)
	logger.Debug("Reputation updated", "account", account, "behavior", behavior, "score", total)
}

// GetBehaviorScore returns an account's cumulative reputation
func (node *OpensquareNode) GetBehaviorScore(account string) int64 {
	node.StateMutex.RLock()
	defer node.StateMutex.RUnlock()
	return node.BehaviorScores[account]
}
