package main

// Bounty registry and state machine. Applying is the sole initial state;
// Rejected, Closed, Outdated and Resolved are terminal. The only backward
// edge is Assigned -> Accepted via resignation.
//
// Every action here follows the same discipline: take the state mutex, run
// every guard, and only then mutate. A guard failure returns before the
// first write, so actions are all-or-nothing with respect to the registry,
// the hunter tracker, the escrow ledger and the auxiliary ledgers.

// terminalStates lists the states that end a bounty's lifecycle
var terminalStates = map[BountyState]bool{
	BountyRejected: true,
	BountyClosed:   true,
	BountyOutdated: true,
	BountyResolved: true,
}

// getBounty looks up a bounty record. Caller must hold the state mutex.
func (node *OpensquareNode) getBounty(bountyID BountyId) (Bounty, error) {
	bounty, exists := node.Bounties[bountyID]
	if !exists {
		return Bounty{}, ErrNotExisted
	}
	return bounty, nil
}

// checkFunder verifies the caller owns the bounty
func (node *OpensquareNode) checkFunder(caller string, bounty Bounty) error {
	if bounty.Owner != caller {
		return ErrNotFunder
	}
	return nil
}

// changeState transitions a bounty and records the per-state heights used by
// the outdated gate. Caller must hold the state mutex.
func (node *OpensquareNode) changeState(bountyID BountyId, state BountyState) {
	switch state {
	case BountyAccepted:
		node.ApprovedHeights[bountyID] = node.Height
	case BountyAssigned:
		node.AssignedHeights[bountyID] = node.Height
	}
	node.BountyStates[bountyID] = state
	RecordBountyState(state)
}

// CreateBounty escrows the payment and registers a new bounty in Applying.
// The bounty id derives from the creator account and its creation nonce; the
// nonce only advances when creation succeeds.
func (node *OpensquareNode) CreateBounty(creator string, currency CurrencyId, payment uint64, digest string, category BountyCategory) (BountyId, error) {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(creator); err != nil {
		return "", err
	}
	if _, known := node.cfg.Genesis.CurrencyRatios[currency]; !known {
		return "", ErrUnknownCurrency
	}

	bountyID := DeriveBountyID(creator, node.AccountNonces[creator])
	if _, exists := node.BountyStates[bountyID]; exists {
		return "", ErrExisted
	}
	if _, exists := node.Bounties[bountyID]; exists {
		return "", ErrExisted
	}

	if !node.Escrow.CanReserve(currency, creator, payment) {
		return "", ErrCantPay
	}
	if err := node.Escrow.Reserve(currency, creator, payment); err != nil {
		return "", err
	}

	node.nextNonce(creator)
	bounty := Bounty{
		Version:  BountyRecordVersion,
		Owner:    creator,
		Currency: currency,
		Payment:  payment,
		Digest:   digest,
		Category: category,
	}
	node.Bounties[bountyID] = bounty
	node.BountiesOf[creator] = append(node.BountiesOf[creator], bountyID)
	node.changeState(bountyID, BountyApplying)

	node.recordEvent(DomainEvent{Type: EventApplyBounty, BountyID: bountyID, Account: creator, Amount: payment})
	logger.Info("Created bounty", "bountyId", bountyID, "funder", creator, "payment", payment, "currency", currency)
	return bountyID, nil
}

// ExamineBounty is the council review of an Applying bounty: it moves to
// Accepted or Rejected. Rejection releases the escrow.
func (node *OpensquareNode) ExamineBounty(caller string, bountyID BountyId, accepted bool) error {
	if err := node.ensureCouncil(caller); err != nil {
		return err
	}

	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	bounty, err := node.getBounty(bountyID)
	if err != nil {
		return err
	}
	if node.BountyStates[bountyID] != BountyApplying {
		return ErrInvalidState
	}

	if accepted {
		node.changeState(bountyID, BountyAccepted)
		node.recordEvent(DomainEvent{Type: EventAcceptBounty, BountyID: bountyID})
		logger.Info("Accepted bounty", "bountyId", bountyID)
		return nil
	}

	node.Escrow.Unreserve(bounty.Currency, bounty.Owner, bounty.Payment)
	node.changeState(bountyID, BountyRejected)
	node.recordEvent(DomainEvent{Type: EventRejectBounty, BountyID: bountyID})
	logger.Info("Rejected bounty", "bountyId", bountyID)
	return nil
}

// AssignBounty picks a hunter out of the hunting set. Re-assignment demotes
// the previous assignee back to Hunting; assigning the current assignee again
// fails AlreadyAssigned.
func (node *OpensquareNode) AssignBounty(funder string, bountyID BountyId, hunter string) error {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(funder); err != nil {
		return err
	}
	bounty, err := node.getBounty(bountyID)
	if err != nil {
		return err
	}
	if err := node.checkFunder(funder, bounty); err != nil {
		return err
	}
	state := node.BountyStates[bountyID]
	if state != BountyAccepted && state != BountyAssigned {
		return ErrInvalidState
	}
	if _, hunting := node.HuntingForBounty[bountyID][hunter]; !hunting {
		return ErrNotHunter
	}
	previous, hadPrevious := node.HuntedForBounty[bountyID]
	if hadPrevious && previous == hunter {
		return ErrAlreadyAssigned
	}

	if hadPrevious {
		node.HunterBounties[previous][bountyID] = HunterHunting
	}
	node.hunterHoldings(hunter)[bountyID] = HunterProcessing
	node.HuntedForBounty[bountyID] = hunter
	node.changeState(bountyID, BountyAssigned)

	node.recordEvent(DomainEvent{Type: EventAssignBounty, BountyID: bountyID, Account: hunter})
	logger.Info("Assigned bounty", "bountyId", bountyID, "hunter", hunter)
	return nil
}

// percentOf returns amount*percent/100 exactly, without the intermediate
// product overflowing for large amounts. Requires percent <= 100.
func percentOf(amount, percent uint64) uint64 {
	return amount/100*percent + amount%100*percent/100
}

// ResolveBountyAndRemark pays out a Submitted bounty: the council fee is
// diverted to the council account, the remainder goes to the assigned hunter,
// both straight out of the funder's reservation. Reputation and mining power
// follow, then the registered resolution hooks fire.
func (node *OpensquareNode) ResolveBountyAndRemark(funder string, bountyID BountyId, remark BountyRemark) error {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(funder); err != nil {
		return err
	}
	bounty, err := node.getBounty(bountyID)
	if err != nil {
		return err
	}
	if err := node.checkFunder(funder, bounty); err != nil {
		return err
	}
	if node.BountyStates[bountyID] != BountySubmitted {
		return ErrInvalidState
	}
	hunter := node.HuntedForBounty[bountyID]

	fee := percentOf(bounty.Payment, node.cfg.Genesis.CouncilFeePercent)
	// Both repatriations must be covered before either runs; the payout is
	// all-or-nothing.
	if node.Escrow.ReservedBalance(bounty.Currency, funder) < bounty.Payment {
		return ErrCantPay
	}
	if err := node.Escrow.Repatriate(bounty.Currency, funder, hunter, bounty.Payment-fee); err != nil {
		return err
	}
	if err := node.Escrow.Repatriate(bounty.Currency, funder, node.cfg.Genesis.CouncilAccount, fee); err != nil {
		return err
	}

	node.addBehaviorScore(hunter, BehaviorResolveSuccess)
	node.addBehaviorScore(hunter, remarkBehavior(remark))

	node.removeHuntersForBounty(bountyID)
	node.ResolvedHunters[bountyID] = hunter
	node.changeState(bountyID, BountyResolved)

	for _, hook := range node.resolutionHooks {
		hook(bountyID, bounty, hunter)
	}

	node.recordEvent(DomainEvent{Type: EventResolveBounty, BountyID: bountyID, Account: hunter, Amount: bounty.Payment - fee})
	logger.Info("Resolved bounty", "bountyId", bountyID, "hunter", hunter, "fee", fee, "remark", remark)
	return nil
}

// CloseBounty lets the funder close a bounty that has not reached a terminal
// state, releasing the escrow and purging hunter associations.
func (node *OpensquareNode) CloseBounty(funder string, bountyID BountyId) error {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(funder); err != nil {
		return err
	}
	bounty, err := node.getBounty(bountyID)
	if err != nil {
		return err
	}
	if err := node.checkFunder(funder, bounty); err != nil {
		return err
	}
	if terminalStates[node.BountyStates[bountyID]] {
		return ErrInvalidState
	}

	remaining := node.Escrow.Unreserve(bounty.Currency, funder, bounty.Payment)
	node.removeHuntersForBounty(bountyID)
	node.changeState(bountyID, BountyClosed)

	node.recordEvent(DomainEvent{Type: EventCloseBounty, BountyID: bountyID, Amount: remaining})
	logger.Info("Closed bounty", "bountyId", bountyID, "funder", funder)
	return nil
}

// ForceCloseBounty is the council's stale-bounty eviction. It only applies to
// Accepted or Assigned bounties whose grace window has fully elapsed; before
// that the bounty is still considered valid and the call fails ValidBounty.
func (node *OpensquareNode) ForceCloseBounty(caller string, bountyID BountyId, reason CloseReason) error {
	if err := node.ensureCouncil(caller); err != nil {
		return err
	}

	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	bounty, err := node.getBounty(bountyID)
	if err != nil {
		return err
	}

	var base uint64
	switch node.BountyStates[bountyID] {
	case BountyAccepted:
		base = node.ApprovedHeights[bountyID]
	case BountyAssigned:
		base = node.AssignedHeights[bountyID]
	default:
		return ErrInvalidState
	}
	if node.Height <= base+node.cfg.Genesis.OutdatedHeight {
		return ErrValidBounty
	}

	remaining := node.Escrow.Unreserve(bounty.Currency, bounty.Owner, bounty.Payment)
	node.removeHuntersForBounty(bountyID)
	node.changeState(bountyID, BountyOutdated)

	node.recordEvent(DomainEvent{Type: EventForceCloseBounty, BountyID: bountyID, Amount: remaining, Reason: reason})
	logger.Info("Force-closed bounty", "bountyId", bountyID, "reason", reason)
	return nil
}

// GetBounty returns a bounty record with its current state
func (node *OpensquareNode) GetBounty(bountyID BountyId) (Bounty, BountyState, bool) {
	node.StateMutex.RLock()
	defer node.StateMutex.RUnlock()

	bounty, exists := node.Bounties[bountyID]
	if !exists {
		return Bounty{}, "", false
	}
	return bounty, node.BountyStates[bountyID], true
}

// GetBountiesOf returns the ids of every bounty an account has created
func (node *OpensquareNode) GetBountiesOf(funder string) []BountyId {
	node.StateMutex.RLock()
	defer node.StateMutex.RUnlock()

	ids := make([]BountyId, len(node.BountiesOf[funder]))
	copy(ids, node.BountiesOf[funder])
	return ids
}
