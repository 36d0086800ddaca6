package main

// Mining-power ledger. Power accrues into the session bucket derived from
// the current block height; a session's reward pool is fixed exactly once,
// when the height clock crosses its end, and never changes afterwards.

// sessionIndex buckets a height into its session
func (node *OpensquareNode) sessionIndex(height uint64) uint64 {
	return height / node.cfg.Genesis.BlocksPerSession
}

// addMiningPower accrues power for an account in the current session.
// Caller must hold the state mutex.
func (node *OpensquareNode) addMiningPower(account string, power uint64) {
	session := node.sessionIndex(node.Height)
	bucket, exists := node.SessionPower[session]
	if !exists {
		bucket = make(map[string]uint64)
		node.SessionPower[session] = bucket
	}
	bucket[account] += power

	node.recordEvent(DomainEvent{Type: EventMiningPowerAdded, Account: account, Amount: power, Session: session})
	RecordMiningPower(power)
}

// addSessionTotalMiningPower accrues into the current session's total.
// Caller must hold the state mutex.
func (node *OpensquareNode) addSessionTotalMiningPower(power uint64) {
	session := node.sessionIndex(node.Height)
	node.SessionTotalPower[session] += power
}

// grantResolutionMiningPower is the resolution hook coupling bounty payouts
// to mining power. The power base is the council fee converted through the
// currency ratio, split 90% to the funder and 10% to the hunter.
func (node *OpensquareNode) grantResolutionMiningPower(bountyID BountyId, bounty Bounty, hunter string) {
	fee := percentOf(bounty.Payment, node.cfg.Genesis.CouncilFeePercent)
	total := fee * node.cfg.Genesis.CurrencyRatios[bounty.Currency]
	if total == 0 {
		return
	}
	funderPower := percentOf(total, 90)
	hunterPower := total / 10

	node.addMiningPower(bounty.Owner, funderPower)
	node.addMiningPower(hunter, hunterPower)
	node.addSessionTotalMiningPower(funderPower + hunterPower)
}

// closeSession fixes the reward pool of a session that just ended at 1% of
// the Native issuance at this instant. A session without any mining power
// gets an empty pool. Caller must hold the state mutex.
func (node *OpensquareNode) closeSession(session uint64) {
	if _, fixed := node.SessionReward[session]; fixed {
		return
	}

	var pool uint64
	if node.SessionTotalPower[session] > 0 {
		pool = node.Escrow.TotalIssuance(CurrencyNative) / 100
	}
	node.SessionReward[session] = pool

	node.recordEvent(DomainEvent{Type: EventSessionReward, Session: session, Amount: pool})
	RecordSessionClosed(pool)
	logger.Info("Session closed", "session", session, "rewardPool", pool,
		"totalPower", node.SessionTotalPower[session])
}

// ClaimReward pays out an account's proportional share of a past session's
// reward pool. The share computation truncates toward zero and the account's
// power entry is taken in the same step, so a second claim for the same
// session fails NoMiningPower.
func (node *OpensquareNode) ClaimReward(account string, session uint64) (uint64, error) {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(account); err != nil {
		return 0, err
	}
	if session >= node.sessionIndex(node.Height) {
		return 0, ErrInvalidSession
	}

	power := node.SessionPower[session][account]
	if power == 0 {
		return 0, ErrNoMiningPower
	}
	totalPower := node.SessionTotalPower[session]
	pool := node.SessionReward[session]

	reward := pool * power / totalPower

	// Take the power entry so the claim cannot repeat
	delete(node.SessionPower[session], account)
	node.Escrow.Deposit(CurrencyNative, account, reward)

	node.recordEvent(DomainEvent{Type: EventRewardClaimed, Account: account, Amount: reward, Session: session})
	logger.Info("Reward claimed", "account", account, "session", session, "reward", reward)
	return reward, nil
}

// SessionInfo is the query view of one session's mining accounting
type SessionInfo struct {
	Session    uint64            `json:"session"`
	TotalPower uint64            `json:"totalPower"`
	RewardPool uint64            `json:"rewardPool"`
	PoolFixed  bool              `json:"poolFixed"`
	Power      map[string]uint64 `json:"power"`
}

// GetSessionInfo returns a session's power and reward accounting
func (node *OpensquareNode) GetSessionInfo(session uint64) SessionInfo {
	node.StateMutex.RLock()
	defer node.StateMutex.RUnlock()

	info := SessionInfo{
		Session:    session,
		TotalPower: node.SessionTotalPower[session],
		Power:      make(map[string]uint64, len(node.SessionPower[session])),
	}
	info.RewardPool, info.PoolFixed = node.SessionReward[session]
	for account, power := range node.SessionPower[session] {
		info.Power[account] = power
	}
	return info
}
