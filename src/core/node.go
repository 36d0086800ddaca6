package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Package-level logger
var logger *slog.Logger

// initLogger initializes the structured logger based on the log level
func initLogger(logLevel string) {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger = slog.New(handler)
}

// OpensquareNode is the main server structure. It owns every ledger of the
// bounty marketplace: the bounty registry and state machine, the hunter
// assignment tracker, the escrow balances, the reputation scores and the
// per-session mining power accounting.
//
// All of it is guarded by a single StateMutex. One action = one critical
// section: guards run first and mutations only start once every guard has
// passed, so a reader never observes a partially applied action and a failed
// action leaves no trace.
type OpensquareNode struct {
	cfg *Config

	// Block height, advanced only by the height ticker (and the council
	// admin endpoint). Guarded by StateMutex like everything else.
	Height uint64

	// Bounty registry. A bounty id has a state iff it has a record;
	// the two maps are always written together.
	Bounties        map[BountyId]Bounty
	BountyStates    map[BountyId]BountyState
	BountiesOf      map[string][]BountyId
	ApprovedHeights map[BountyId]uint64
	AssignedHeights map[BountyId]uint64

	// Who resolved a bounty and whether they have remarked the funder yet.
	// The hunter associations themselves are purged on resolution.
	ResolvedHunters map[BountyId]string
	FunderRemarked  map[BountyId]bool

	// Hunter assignment tracker: per-bounty hunting set, per-bounty
	// assigned hunter, per-hunter holdings. The three indices are only
	// ever updated together.
	HuntingForBounty map[BountyId]map[string]struct{}
	HuntedForBounty  map[BountyId]string
	HunterBounties   map[string]map[BountyId]HunterBountyState

	// Per-account creation nonces feeding bounty id derivation
	AccountNonces map[string]uint64

	// Reputation ledger
	BehaviorScores map[string]int64

	// Mining power ledger, bucketed by session index
	SessionPower      map[uint64]map[string]uint64
	SessionTotalPower map[uint64]uint64
	SessionReward     map[uint64]uint64

	// Accounts barred from all state-changing actions
	BlockedAccounts map[string]bool

	Escrow *EscrowLedger

	// Domain event log, append-only
	Events []DomainEvent

	// Resolution hooks, invoked in registration order after a bounty
	// resolves. Hooks run with StateMutex held and must not call back
	// into node actions.
	resolutionHooks []ResolutionHook

	content    ContentClient
	httpClient *http.Client

	StateMutex  sync.RWMutex
	EventsMutex sync.RWMutex
}

func main() {
	// Load configuration
	cfg := LoadConfig()

	// Initialize structured logger
	initLogger(cfg.LogLevel)

	node := NewOpensquareNode(cfg)

	// Restore ledger state from the last snapshot, if any
	if err := node.LoadState(cfg.DataDir); err != nil {
		logger.Error("Failed to load ledger snapshot", "error", err)
		os.Exit(1)
	}

	// Advance the block height on a fixed tick
	go node.runHeightClock()

	// Periodic ledger snapshots
	go node.runSnapshots()

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: node.Router(),
	}

	go func() {
		logger.Info("Starting opensquare node server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: stop serving, then snapshot the ledger
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown did not complete cleanly", "error", err)
	}
	if err := node.SaveState(cfg.DataDir); err != nil {
		logger.Error("Failed to save ledger snapshot", "error", err)
	}
}

// NewOpensquareNode initializes a node with empty ledgers and the genesis
// endowments applied.
func NewOpensquareNode(cfg *Config) *OpensquareNode {
	node := &OpensquareNode{
		cfg:               cfg,
		Bounties:          make(map[BountyId]Bounty),
		BountyStates:      make(map[BountyId]BountyState),
		BountiesOf:        make(map[string][]BountyId),
		ApprovedHeights:   make(map[BountyId]uint64),
		AssignedHeights:   make(map[BountyId]uint64),
		ResolvedHunters:   make(map[BountyId]string),
		FunderRemarked:    make(map[BountyId]bool),
		HuntingForBounty:  make(map[BountyId]map[string]struct{}),
		HuntedForBounty:   make(map[BountyId]string),
		HunterBounties:    make(map[string]map[BountyId]HunterBountyState),
		AccountNonces:     make(map[string]uint64),
		BehaviorScores:    make(map[string]int64),
		SessionPower:      make(map[uint64]map[string]uint64),
		SessionTotalPower: make(map[uint64]uint64),
		SessionReward:     make(map[uint64]uint64),
		BlockedAccounts:   make(map[string]bool),
		Escrow:            NewEscrowLedger(),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}

	for _, endowment := range cfg.Genesis.Endowments {
		node.Escrow.Deposit(endowment.Currency, endowment.Account, endowment.Amount)
	}

	if cfg.ContentGatewayURL != "" {
		node.content = NewHTTPContentClient(cfg.ContentGatewayURL, node.httpClient)
	}

	// The mining/reputation coupling reacts to resolutions like any other
	// observer; external webhooks follow it.
	node.RegisterResolutionHook(node.grantResolutionMiningPower)
	if len(cfg.ObserverURLs) > 0 {
		node.RegisterResolutionHook(node.notifyResolutionObservers)
	}

	if logger != nil {
		logger.Info("Initialized opensquare node",
			"councilMembers", len(cfg.Genesis.CouncilMembers),
			"endowments", len(cfg.Genesis.Endowments))
	}
	return node
}

// runHeightClock advances the block height once per configured interval
func (node *OpensquareNode) runHeightClock() {
	ticker := time.NewTicker(node.cfg.BlockInterval)
	defer ticker.Stop()
	for range ticker.C {
		node.AdvanceHeight()
	}
}

// runSnapshots persists the ledger on a fixed interval
func (node *OpensquareNode) runSnapshots() {
	ticker := time.NewTicker(node.cfg.SnapshotInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := node.SaveState(node.cfg.DataDir); err != nil {
			logger.Error("Failed to save ledger snapshot", "error", err)
		}
	}
}

// AdvanceHeight moves the clock forward one block. Crossing a session
// boundary fixes the reward pool of the session that just ended.
func (node *OpensquareNode) AdvanceHeight() uint64 {
	node.StateMutex.Lock()
	defer node.StateMutex.Unlock()

	node.Height++
	RecordBlockHeight(node.Height)
	if node.Height%node.cfg.Genesis.BlocksPerSession == 0 {
		node.closeSession(node.Height/node.cfg.Genesis.BlocksPerSession - 1)
	}
	return node.Height
}

// CurrentHeight returns the node's block height
func (node *OpensquareNode) CurrentHeight() uint64 {
	node.StateMutex.RLock()
	defer node.StateMutex.RUnlock()
	return node.Height
}

// isCouncilMember checks the configured council membership set
func (node *OpensquareNode) isCouncilMember(account string) bool {
	for _, member := range node.cfg.Genesis.CouncilMembers {
		if member == account {
			return true
		}
	}
	return false
}

// ensureCouncil rejects callers outside the council capability set
func (node *OpensquareNode) ensureCouncil(caller string) error {
	if !node.isCouncilMember(caller) {
		return ErrNotCouncil
	}
	return nil
}

// ensureActive rejects blocked accounts from state-changing actions.
// Caller must hold the state mutex.
func (node *OpensquareNode) ensureActive(account string) error {
	if node.BlockedAccounts[account] {
		return ErrAccountBlocked
	}
	return nil
}
