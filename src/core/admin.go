package main

// Council administration outside the bounty lifecycle.

// SetAccountBlocked blocks or unblocks an account. Blocked accounts are
// rejected from every state-changing action; existing state is untouched.
func (node *OpensquareNode) SetAccountBlocked(caller, account string, blocked bool) error {
	if err := node.ensureCouncil(caller); err != nil {
		return err
	}

	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	if blocked {
		node.BlockedAccounts[account] = true
		node.recordEvent(DomainEvent{Type: EventAccountBlocked, Account: account})
		logger.Warn("Blocked account", "account", account, "by", caller)
		return nil
	}

	delete(node.BlockedAccounts, account)
	node.recordEvent(DomainEvent{Type: EventAccountUnblocked, Account: account})
	logger.Info("Unblocked account", "account", account, "by", caller)
	return nil
}

// BlockedList returns the currently blocked accounts
func (node *OpensquareNode) BlockedList() []string {
	node.StateMutex.RLock()
	defer node.StateMutex.RUnlock()

	accounts := make([]string, 0, len(node.BlockedAccounts))
	for account := range node.BlockedAccounts {
		accounts = append(accounts, account)
	}
	return accounts
}

// ForceAdvanceHeight advances the node clock by a number of blocks. Exposed
// for operational tooling; session boundaries crossed along the way are
// closed exactly as the ticker would close them.
func (node *OpensquareNode) ForceAdvanceHeight(caller string, blocks uint64) (uint64, error) {
	if err := node.ensureCouncil(caller); err != nil {
		return 0, err
	}

	var height uint64
	for i := uint64(0); i < blocks; i++ {
		height = node.AdvanceHeight()
	}
	return height, nil
}
