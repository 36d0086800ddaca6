package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const ledgerSnapshotFilename = "ledger_state.json"

// ledgerSnapshot is the on-disk form of the whole ledger state
type ledgerSnapshot struct {
	Height uint64 `json:"height"`

	Bounties        map[BountyId]Bounty      `json:"bounties"`
	BountyStates    map[BountyId]BountyState `json:"bountyStates"`
	BountiesOf      map[string][]BountyId    `json:"bountiesOf"`
	ApprovedHeights map[BountyId]uint64      `json:"approvedHeights"`
	AssignedHeights map[BountyId]uint64      `json:"assignedHeights"`
	ResolvedHunters map[BountyId]string      `json:"resolvedHunters"`
	FunderRemarked  map[BountyId]bool        `json:"funderRemarked"`

	HuntingForBounty map[BountyId][]string                     `json:"huntingForBounty"`
	HuntedForBounty  map[BountyId]string                       `json:"huntedForBounty"`
	HunterBounties   map[string]map[BountyId]HunterBountyState `json:"hunterBounties"`

	AccountNonces  map[string]uint64 `json:"accountNonces"`
	BehaviorScores map[string]int64  `json:"behaviorScores"`

	SessionPower      map[uint64]map[string]uint64 `json:"sessionPower"`
	SessionTotalPower map[uint64]uint64            `json:"sessionTotalPower"`
	SessionReward     map[uint64]uint64            `json:"sessionReward"`

	BlockedAccounts map[string]bool `json:"blockedAccounts"`

	Escrow *EscrowLedger `json:"escrow"`

	Events []DomainEvent `json:"events"`
}

// SaveState writes a JSON snapshot of the whole ledger to the data directory.
// Both locks are held across marshalling: the snapshot references the live
// maps, so nothing may mutate them until the bytes are built.
func (node *OpensquareNode) SaveState(dataDir string) error {
	node.StateMutex.RLock()
	node.EventsMutex.RLock()
	snapshot := node.buildSnapshot()
	snapshot.Events = node.Events

	data, err := json.MarshalIndent(snapshot, "", "  ")
	node.EventsMutex.RUnlock()
	node.StateMutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal ledger snapshot: %w", err)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	filePath := filepath.Join(dataDir, ledgerSnapshotFilename)

	// Write to a temp file first so a crash mid-write can't corrupt the
	// last good snapshot
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to move ledger snapshot into place: %w", err)
	}

	logger.Debug("Saved ledger snapshot", "file", filePath, "bytes", len(data))
	return nil
}

// buildSnapshot captures the ledger under the state mutex
func (node *OpensquareNode) buildSnapshot() *ledgerSnapshot {
	snapshot := &ledgerSnapshot{
		Height:            node.Height,
		Bounties:          node.Bounties,
		BountyStates:      node.BountyStates,
		BountiesOf:        node.BountiesOf,
		ApprovedHeights:   node.ApprovedHeights,
		AssignedHeights:   node.AssignedHeights,
		ResolvedHunters:   node.ResolvedHunters,
		FunderRemarked:    node.FunderRemarked,
		HuntedForBounty:   node.HuntedForBounty,
		HunterBounties:    node.HunterBounties,
		AccountNonces:     node.AccountNonces,
		BehaviorScores:    node.BehaviorScores,
		SessionPower:      node.SessionPower,
		SessionTotalPower: node.SessionTotalPower,
		SessionReward:     node.SessionReward,
		BlockedAccounts:   node.BlockedAccounts,
		Escrow:            node.Escrow,
	}

	// The hunting sets serialize as plain slices
	snapshot.HuntingForBounty = make(map[BountyId][]string, len(node.HuntingForBounty))
	for bountyID, hunters := range node.HuntingForBounty {
		list := make([]string, 0, len(hunters))
		for hunter := range hunters {
			list = append(list, hunter)
		}
		snapshot.HuntingForBounty[bountyID] = list
	}
	return snapshot
}

// LoadState restores the ledger from the last snapshot, if one exists
func (node *OpensquareNode) LoadState(dataDir string) error {
	filePath := filepath.Join(dataDir, ledgerSnapshotFilename)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read ledger snapshot: %w", err)
	}

	var snapshot ledgerSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal ledger snapshot: %w", err)
	}

	node.StateMutex.Lock()
	node.Height = snapshot.Height
	if snapshot.Bounties != nil {
		node.Bounties = snapshot.Bounties
	}
	if snapshot.BountyStates != nil {
		node.BountyStates = snapshot.BountyStates
	}
	if snapshot.BountiesOf != nil {
		node.BountiesOf = snapshot.BountiesOf
	}
	if snapshot.ApprovedHeights != nil {
		node.ApprovedHeights = snapshot.ApprovedHeights
	}
	if snapshot.AssignedHeights != nil {
		node.AssignedHeights = snapshot.AssignedHeights
	}
	if snapshot.ResolvedHunters != nil {
		node.ResolvedHunters = snapshot.ResolvedHunters
	}
	if snapshot.FunderRemarked != nil {
		node.FunderRemarked = snapshot.FunderRemarked
	}
	node.HuntingForBounty = make(map[BountyId]map[string]struct{}, len(snapshot.HuntingForBounty))
	for bountyID, hunters := range snapshot.HuntingForBounty {
		set := make(map[string]struct{}, len(hunters))
		for _, hunter := range hunters {
			set[hunter] = struct{}{}
		}
		node.HuntingForBounty[bountyID] = set
	}
	if snapshot.HuntedForBounty != nil {
		node.HuntedForBounty = snapshot.HuntedForBounty
	}
	if snapshot.HunterBounties != nil {
		node.HunterBounties = snapshot.HunterBounties
	}
	if snapshot.AccountNonces != nil {
		node.AccountNonces = snapshot.AccountNonces
	}
	if snapshot.BehaviorScores != nil {
		node.BehaviorScores = snapshot.BehaviorScores
	}
	if snapshot.SessionPower != nil {
		node.SessionPower = snapshot.SessionPower
	}
	if snapshot.SessionTotalPower != nil {
		node.SessionTotalPower = snapshot.SessionTotalPower
	}
	if snapshot.SessionReward != nil {
		node.SessionReward = snapshot.SessionReward
	}
	if snapshot.BlockedAccounts != nil {
		node.BlockedAccounts = snapshot.BlockedAccounts
	}
	if snapshot.Escrow != nil {
		if snapshot.Escrow.Free == nil {
			snapshot.Escrow.Free = make(map[CurrencyId]map[string]uint64)
		}
		if snapshot.Escrow.Reserved == nil {
			snapshot.Escrow.Reserved = make(map[CurrencyId]map[string]uint64)
		}
		if snapshot.Escrow.Issuance == nil {
			snapshot.Escrow.Issuance = make(map[CurrencyId]uint64)
		}
		node.Escrow = snapshot.Escrow
	}
	node.StateMutex.Unlock()

	if snapshot.Events != nil {
		node.EventsMutex.Lock()
		node.Events = snapshot.Events
		node.EventsMutex.Unlock()
	}

	if logger != nil {
		logger.Info("Loaded ledger snapshot", "file", filePath,
			"height", snapshot.Height, "bounties", len(snapshot.Bounties))
	}
	return nil
}
