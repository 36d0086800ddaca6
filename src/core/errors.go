package main

import "errors"

// Guard failures. Every action either fully commits or fails with one of
// these before any ledger mutation happens.
var (
	ErrNotExisted            = errors.New("bounty does not exist")
	ErrExisted               = errors.New("bounty id already exists")
	ErrCantPay               = errors.New("insufficient reservable balance")
	ErrInvalidState          = errors.New("action not permitted in current bounty state")
	ErrNotFunder             = errors.New("caller is not the bounty funder")
	ErrNotHunter             = errors.New("caller is not hunting this bounty")
	ErrNotAssignee           = errors.New("caller is not the assigned hunter")
	ErrAlreadyHunted         = errors.New("already hunting this bounty")
	ErrAlreadyAssigned       = errors.New("hunter is already assigned to this bounty")
	ErrTooManyHuntedBounties = errors.New("hunter holds too many bounties")
	ErrValidBounty           = errors.New("bounty has not outdated yet")
	ErrAlreadyRemarked       = errors.New("funder already remarked for this bounty")
	ErrInvalidSession        = errors.New("session is not claimable yet")
	ErrNoMiningPower         = errors.New("no mining power for session")
	ErrNotCouncil            = errors.New("caller is not a council member")
	ErrAccountBlocked        = errors.New("account is blocked")
	ErrUnknownCurrency       = errors.New("unknown currency")
)
