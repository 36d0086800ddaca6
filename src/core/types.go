package main

// BountyId is the primary key for every per-bounty map. It is the hex
// encoding of a sha256 digest derived from the funder account and the
// funder's nonce at creation time (see DeriveBountyID).
type BountyId string

// CurrencyId names one of the currencies the escrow ledger can hold
type CurrencyId string

const (
	CurrencyNative CurrencyId = "NATIVE"
	CurrencyUSDT   CurrencyId = "USDT"
	CurrencyAUSD   CurrencyId = "AUSD"
	CurrencyDOT    CurrencyId = "DOT"
)

// BountyState is the lifecycle state of a bounty
type BountyState string

const (
	BountyApplying  BountyState = "APPLYING"
	BountyAccepted  BountyState = "ACCEPTED"
	BountyRejected  BountyState = "REJECTED"
	BountyAssigned  BountyState = "ASSIGNED"
	BountySubmitted BountyState = "SUBMITTED"
	BountyResolved  BountyState = "RESOLVED"
	BountyClosed    BountyState = "CLOSED"
	BountyOutdated  BountyState = "OUTDATED"
)

// BountyCategory classifies the kind of work requested
type BountyCategory string

const (
	CategoryDevelopment BountyCategory = "DEVELOPMENT"
	CategoryDesign      BountyCategory = "DESIGN"
	CategoryDocument    BountyCategory = "DOCUMENT"
)

// Bounty is the immutable record of a bounty. Version is kept for forward
// compatibility of persisted snapshots; records are never edited in place.
type Bounty struct {
	Version  int            `json:"version"`
	Owner    string         `json:"owner"`
	Currency CurrencyId     `json:"currency"`
	Payment  uint64         `json:"payment"`
	Digest   string         `json:"digest"`
	Category BountyCategory `json:"category"`
}

const BountyRecordVersion = 1

// HunterBountyState tracks a hunter's relation to one bounty
type HunterBountyState string

const (
	HunterHunting    HunterBountyState = "HUNTING"
	HunterProcessing HunterBountyState = "PROCESSING"
)

// BountyRemark is the grade a counterparty gives on resolution
type BountyRemark string

const (
	RemarkBad     BountyRemark = "BAD"
	RemarkNotGood BountyRemark = "NOT_GOOD"
	RemarkFine    BountyRemark = "FINE"
	RemarkGood    BountyRemark = "GOOD"
	RemarkPerfect BountyRemark = "PERFECT"
)

// CloseReason explains a council force-close
type CloseReason string

const (
	ReasonOutdated CloseReason = "OUTDATED"
)

// EventType labels entries in the domain event log
type EventType string

const (
	EventApplyBounty      EventType = "APPLY_BOUNTY"
	EventAcceptBounty     EventType = "ACCEPT_BOUNTY"
	EventRejectBounty     EventType = "REJECT_BOUNTY"
	EventHuntBounty       EventType = "HUNT_BOUNTY"
	EventCancelHunt       EventType = "CANCEL_HUNT"
	EventAssignBounty     EventType = "ASSIGN_BOUNTY"
	EventSubmitBounty     EventType = "SUBMIT_BOUNTY"
	EventResignBounty     EventType = "RESIGN_BOUNTY"
	EventResolveBounty    EventType = "RESOLVE_BOUNTY"
	EventCloseBounty      EventType = "CLOSE_BOUNTY"
	EventForceCloseBounty EventType = "FORCE_CLOSE_BOUNTY"
	EventRemarkFunder     EventType = "REMARK_FUNDER"
	EventReputationAdded  EventType = "REPUTATION_ADDED"
	EventMiningPowerAdded EventType = "MINING_POWER_ADDED"
	EventSessionReward    EventType = "SESSION_REWARD_SET"
	EventRewardClaimed    EventType = "REWARD_CLAIMED"
	EventAccountBlocked   EventType = "ACCOUNT_BLOCKED"
	EventAccountUnblocked EventType = "ACCOUNT_UNBLOCKED"
)

// DomainEvent is one observable ledger event. Fields that don't apply to a
// given event type are left at their zero value and omitted from JSON.
type DomainEvent struct {
	Type      EventType   `json:"type"`
	BountyID  BountyId    `json:"bountyId,omitempty"`
	Account   string      `json:"account,omitempty"`
	Amount    uint64      `json:"amount,omitempty"`
	Score     int64       `json:"score,omitempty"`
	Session   uint64      `json:"session,omitempty"`
	Reason    CloseReason `json:"reason,omitempty"`
	Height    uint64      `json:"height"`
	Timestamp int64       `json:"timestamp"`
}

// Endowment is a genesis balance grant
type Endowment struct {
	Account  string     `json:"account" yaml:"account"`
	Currency CurrencyId `json:"currency" yaml:"currency"`
	Amount   uint64     `json:"amount" yaml:"amount"`
}
