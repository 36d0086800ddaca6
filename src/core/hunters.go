package main

// Hunter assignment tracker. The hunter<->bounty relation is kept in three
// indices (bounty -> hunting set, bounty -> assigned hunter, hunter ->
// holdings) that are only ever written together, inside the state mutex, so
// no index can dangle.

// hunterHoldings returns the per-hunter holdings map, creating it on first
// use. Caller must hold the state mutex.
func (node *OpensquareNode) hunterHoldings(hunter string) map[BountyId]HunterBountyState {
	holdings, exists := node.HunterBounties[hunter]
	if !exists {
		holdings = make(map[BountyId]HunterBountyState)
		node.HunterBounties[hunter] = holdings
	}
	return holdings
}

// removeHuntersForBounty sweeps every hunter association of a bounty out of
// all three indices in one step. Caller must hold the state mutex.
func (node *OpensquareNode) removeHuntersForBounty(bountyID BountyId) {
	for hunter := range node.HuntingForBounty[bountyID] {
		delete(node.HunterBounties[hunter], bountyID)
	}
	delete(node.HuntingForBounty, bountyID)

	if assigned, exists := node.HuntedForBounty[bountyID]; exists {
		delete(node.HunterBounties[assigned], bountyID)
		delete(node.HuntedForBounty, bountyID)
	}
}

// removeAssignedHunter detaches only the currently assigned hunter, leaving
// the rest of the hunting set in place. Caller must hold the state mutex.
func (node *OpensquareNode) removeAssignedHunter(bountyID BountyId) string {
	hunter, exists := node.HuntedForBounty[bountyID]
	if !exists {
		return ""
	}
	delete(node.HuntedForBounty, bountyID)
	delete(node.HunterBounties[hunter], bountyID)
	delete(node.HuntingForBounty[bountyID], hunter)
	return hunter
}

// HuntBounty registers the caller's interest in a bounty. The holding cap
// counts both hunting and processing entries and is only checked here:
// assignment and resignation never add holdings beyond what hunting already
// counted.
func (node *OpensquareNode) HuntBounty(hunter string, bountyID BountyId) error {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(hunter); err != nil {
		return err
	}
	if _, err := node.getBounty(bountyID); err != nil {
		return err
	}
	state := node.BountyStates[bountyID]
	if state != BountyAccepted && state != BountyAssigned && state != BountySubmitted {
		return ErrInvalidState
	}
	if _, hunted := node.HunterBounties[hunter][bountyID]; hunted {
		return ErrAlreadyHunted
	}
	if len(node.HunterBounties[hunter]) >= node.cfg.Genesis.MaxHoldingBounties {
		return ErrTooManyHuntedBounties
	}

	node.hunterHoldings(hunter)[bountyID] = HunterHunting
	if node.HuntingForBounty[bountyID] == nil {
		node.HuntingForBounty[bountyID] = make(map[string]struct{})
	}
	node.HuntingForBounty[bountyID][hunter] = struct{}{}

	node.recordEvent(DomainEvent{Type: EventHuntBounty, BountyID: bountyID, Account: hunter})
	logger.Info("Hunter joined bounty", "bountyId", bountyID, "hunter", hunter)
	return nil
}

// CancelHuntBounty withdraws the caller from a bounty's hunting set. Allowed
// from any state, as long as the caller is actually hunting and is not the
// current assignee.
func (node *OpensquareNode) CancelHuntBounty(hunter string, bountyID BountyId) error {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(hunter); err != nil {
		return err
	}
	if _, err := node.getBounty(bountyID); err != nil {
		return err
	}
	if _, hunting := node.HuntingForBounty[bountyID][hunter]; !hunting {
		return ErrNotHunter
	}
	// The assignee leaves through ResignFromBounty, not cancellation.
	if node.HuntedForBounty[bountyID] == hunter {
		return ErrNotHunter
	}

	delete(node.HuntingForBounty[bountyID], hunter)
	delete(node.HunterBounties[hunter], bountyID)

	node.recordEvent(DomainEvent{Type: EventCancelHunt, BountyID: bountyID, Account: hunter})
	logger.Info("Hunter left bounty", "bountyId", bountyID, "hunter", hunter)
	return nil
}

// SubmitBounty marks an assigned bounty's work as delivered
func (node *OpensquareNode) SubmitBounty(hunter string, bountyID BountyId) error {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(hunter); err != nil {
		return err
	}
	if _, err := node.getBounty(bountyID); err != nil {
		return err
	}
	if node.BountyStates[bountyID] != BountyAssigned {
		return ErrInvalidState
	}
	if node.HuntedForBounty[bountyID] != hunter {
		return ErrNotAssignee
	}

	node.changeState(bountyID, BountySubmitted)

	node.recordEvent(DomainEvent{Type: EventSubmitBounty, BountyID: bountyID, Account: hunter})
	logger.Info("Bounty submitted", "bountyId", bountyID, "hunter", hunter)
	return nil
}

// ResignFromBounty lets the assigned hunter walk away. The bounty re-opens
// in Accepted and the resigning hunter takes a reputation hit.
func (node *OpensquareNode) ResignFromBounty(hunter string, bountyID BountyId) error {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(hunter); err != nil {
		return err
	}
	if _, err := node.getBounty(bountyID); err != nil {
		return err
	}
	if node.BountyStates[bountyID] != BountyAssigned {
		return ErrInvalidState
	}
	if node.HuntedForBounty[bountyID] != hunter {
		return ErrNotAssignee
	}

	node.removeAssignedHunter(bountyID)
	node.addBehaviorScore(hunter, BehaviorResolveFail)
	node.changeState(bountyID, BountyAccepted)

	node.recordEvent(DomainEvent{Type: EventResignBounty, BountyID: bountyID, Account: hunter})
	node.recordEvent(DomainEvent{Type: EventAcceptBounty, BountyID: bountyID})
	logger.Info("Hunter resigned from bounty", "bountyId", bountyID, "hunter", hunter)
	return nil
}

// RemarkBountyFunder lets the hunter who completed a Resolved bounty grade
// the funder once; the remark feeds the funder's reputation.
func (node *OpensquareNode) RemarkBountyFunder(hunter string, bountyID BountyId, remark BountyRemark) error {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if err := node.ensureActive(hunter); err != nil {
		return err
	}
	bounty, err := node.getBounty(bountyID)
	if err != nil {
		return err
	}
	if node.BountyStates[bountyID] != BountyResolved {
		return ErrInvalidState
	}
	if node.ResolvedHunters[bountyID] != hunter {
		return ErrNotAssignee
	}
	if node.FunderRemarked[bountyID] {
		return ErrAlreadyRemarked
	}

	node.FunderRemarked[bountyID] = true
	node.addBehaviorScore(bounty.Owner, remarkBehavior(remark))

	node.recordEvent(DomainEvent{Type: EventRemarkFunder, BountyID: bountyID, Account: hunter})
	logger.Info("Funder remarked", "bountyId", bountyID, "hunter", hunter, "remark", remark)
	return nil
}

// GetHunterBounties returns the caller's holdings with their per-bounty state
func (node *OpensquareNode) GetHunterBounties(hunter string) map[BountyId]HunterBountyState {
	node.StateMutex.RLock()
	defer node.StateMutex.RUnlock()

	out := make(map[BountyId]HunterBountyState, len(node.HunterBounties[hunter]))
	for bountyID, state := range node.HunterBounties[hunter] {
		out[bountyID] = state
	}
	return out
}

// GetHuntingSet returns the accounts currently hunting a bounty
func (node *OpensquareNode) GetHuntingSet(bountyID BountyId) []string {
	node.StateMutex.RLock()
	defer node.StateMutex.RUnlock()

	hunters := make([]string, 0, len(node.HuntingForBounty[bountyID]))
	for hunter := range node.HuntingForBounty[bountyID] {
		hunters = append(hunters, hunter)
	}
	return hunters
}

// GetAssignedHunter returns the bounty's current assignee, if any
func (node *OpensquareNode) GetAssignedHunter(bountyID BountyId) (string, bool) {
	node.StateMutex.RLock()
	defer node.StateMutex.RUnlock()

	hunter, exists := node.HuntedForBounty[bountyID]
	return hunter, exists
}
