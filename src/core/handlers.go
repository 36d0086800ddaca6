package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Router builds the HTTP API with the full middleware chain
func (node *OpensquareNode) Router() http.Handler {
	router := mux.NewRouter()

	// Health and observability
	router.HandleFunc("/api/health", node.HealthCheckHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Bounty actions
	router.HandleFunc("/api/bounties", node.CreateBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/examine", node.ExamineBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/hunt", node.HuntBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/cancel-hunt", node.CancelHuntBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/assign", node.AssignBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/submit", node.SubmitBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/resign", node.ResignBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/resolve", node.ResolveBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/close", node.CloseBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/force-close", node.ForceCloseBountyHandler).Methods("POST")
	router.HandleFunc("/api/bounties/{id}/remark-funder", node.RemarkFunderHandler).Methods("POST")

	// Mining
	router.HandleFunc("/api/mining/claim", node.ClaimRewardHandler).Methods("POST")
	router.HandleFunc("/api/mining/sessions/{index}", node.GetSessionHandler).Methods("GET")

	// Council administration
	router.HandleFunc("/api/admin/blocked", node.SetBlockedHandler).Methods("POST")
	router.HandleFunc("/api/admin/blocked", node.GetBlockedHandler).Methods("GET")
	router.HandleFunc("/api/admin/height", node.AdvanceHeightHandler).Methods("POST")

	// Queries
	router.HandleFunc("/api/bounties", node.ListBountiesHandler).Methods("GET")
	router.HandleFunc("/api/bounties/{id}", node.GetBountyHandler).Methods("GET")
	router.HandleFunc("/api/bounties/{id}/content", node.GetBountyContentHandler).Methods("GET")
	router.HandleFunc("/api/hunters/{account}/bounties", node.GetHunterBountiesHandler).Methods("GET")
	router.HandleFunc("/api/reputation/{account}", node.GetReputationHandler).Methods("GET")
	router.HandleFunc("/api/escrow/{account}", node.GetEscrowHandler).Methods("GET")
	router.HandleFunc("/api/events", node.GetEventsHandler).Methods("GET")

	limiter := NewIPRateLimiter(node.cfg.RateLimitPerMinute)

	var handler http.Handler = router
	handler = CallerAuthMiddleware(handler)
	handler = MetricsMiddleware(handler)
	handler = BodySizeLimitMiddleware(node.cfg.MaxBodySizeBytes)(handler)
	handler = RateLimitMiddleware(limiter)(handler)
	handler = RequestIDMiddleware(handler)
	return otelhttp.NewHandler(handler, "opensquare")
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeActionError maps guard failures onto HTTP statuses
func writeActionError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, ErrNotExisted):
		status = http.StatusNotFound
	case errors.Is(err, ErrExisted),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrAlreadyHunted),
		errors.Is(err, ErrAlreadyAssigned),
		errors.Is(err, ErrAlreadyRemarked),
		errors.Is(err, ErrTooManyHuntedBounties),
		errors.Is(err, ErrNoMiningPower):
		status = http.StatusConflict
	case errors.Is(err, ErrCantPay):
		status = http.StatusPaymentRequired
	case errors.Is(err, ErrNotFunder),
		errors.Is(err, ErrNotHunter),
		errors.Is(err, ErrNotAssignee),
		errors.Is(err, ErrNotCouncil),
		errors.Is(err, ErrAccountBlocked):
		status = http.StatusForbidden
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// HealthCheckHandler handles health check requests
func (node *OpensquareNode) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"height":  node.CurrentHeight(),
		"uptime":  time.Now().Unix(),
		"version": "1.0.0",
	})
}

// createBountyRequest is the body of POST /api/bounties
type createBountyRequest struct {
	Creator  string         `json:"creator"`
	Currency CurrencyId     `json:"currency"`
	Payment  uint64         `json:"payment"`
	Digest   string         `json:"digest,omitempty"`
	Category BountyCategory `json:"category"`
	Content  string         `json:"content,omitempty"`
}

// CreateBountyHandler handles bounty creation. When inline content is
// supplied its digest is derived here (and the content pushed to the
// gateway when one is configured) so the ledger never stores free text.
func (node *OpensquareNode) CreateBountyHandler(w http.ResponseWriter, r *http.Request) {
	var req createBountyRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}

	if req.Content != "" {
		if !XSSCheck(req.Content) || !ValidateStringField(req.Content, MaxDescriptionLength) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid content"})
			return
		}
		if node.content != nil && node.content.IsAvailable() {
			digest, err := node.content.Put(r.Context(), []byte(req.Content))
			if err != nil {
				logger.Warn("Failed to store bounty content", "error", err)
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "content store unavailable"})
				return
			}
			req.Digest = digest
		} else {
			req.Digest = CalculateContentDigest([]byte(req.Content))
		}
	}

	if msg := ValidateCreateRequest(req.Creator, req.Currency, req.Payment, req.Digest, req.Category); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	annotateSpan(r.Context(), "create_bounty", "", req.Creator)
	bountyID, err := node.CreateBounty(req.Creator, req.Currency, req.Payment, req.Digest, req.Category)
	RecordBountyAction("create_bounty", err)
	if err != nil {
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status":   "success",
		"bountyId": bountyID,
	})
}

// callerRequest is the body shared by the simple caller-only actions
type callerRequest struct {
	Caller string `json:"caller"`
}

// decodeCaller decodes and validates a caller-only body
func decodeCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req callerRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return "", false
	}
	if !IsValidAccount(req.Caller) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid caller account"})
		return "", false
	}
	return req.Caller, true
}

func bountyIDFrom(r *http.Request) BountyId {
	return BountyId(mux.Vars(r)["id"])
}

// handleSimpleAction runs a caller+bounty action and writes the outcome
func (node *OpensquareNode) handleSimpleAction(w http.ResponseWriter, r *http.Request, action string, fn func(caller string, bountyID BountyId) error) {
	caller, ok := decodeCaller(w, r)
	if !ok {
		return
	}
	bountyID := bountyIDFrom(r)

	annotateSpan(r.Context(), action, bountyID, caller)
	err := fn(caller, bountyID)
	RecordBountyAction(action, err)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HuntBountyHandler registers interest in a bounty
func (node *OpensquareNode) HuntBountyHandler(w http.ResponseWriter, r *http.Request) {
	node.handleSimpleAction(w, r, "hunt_bounty", func(caller string, bountyID BountyId) error {
		return node.HuntBounty(caller, bountyID)
	})
}

// CancelHuntBountyHandler withdraws interest in a bounty
func (node *OpensquareNode) CancelHuntBountyHandler(w http.ResponseWriter, r *http.Request) {
	node.handleSimpleAction(w, r, "cancel_hunt_bounty", func(caller string, bountyID BountyId) error {
		return node.CancelHuntBounty(caller, bountyID)
	})
}

// SubmitBountyHandler marks assigned work as delivered
func (node *OpensquareNode) SubmitBountyHandler(w http.ResponseWriter, r *http.Request) {
	node.handleSimpleAction(w, r, "submit_bounty", func(caller string, bountyID BountyId) error {
		return node.SubmitBounty(caller, bountyID)
	})
}

// ResignBountyHandler resigns the assigned hunter
func (node *OpensquareNode) ResignBountyHandler(w http.ResponseWriter, r *http.Request) {
	node.handleSimpleAction(w, r, "resign_from_bounty", func(caller string, bountyID BountyId) error {
		return node.ResignFromBounty(caller, bountyID)
	})
}

// CloseBountyHandler closes a bounty and releases escrow
func (node *OpensquareNode) CloseBountyHandler(w http.ResponseWriter, r *http.Request) {
	node.handleSimpleAction(w, r, "close_bounty", func(caller string, bountyID BountyId) error {
		return node.CloseBounty(caller, bountyID)
	})
}

// examineRequest is the body of POST /api/bounties/{id}/examine
type examineRequest struct {
	Caller   string `json:"caller"`
	Accepted bool   `json:"accepted"`
}

// ExamineBountyHandler handles the council review decision
func (node *OpensquareNode) ExamineBountyHandler(w http.ResponseWriter, r *http.Request) {
	var req examineRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}
	bountyID := bountyIDFrom(r)

	annotateSpan(r.Context(), "examine_bounty", bountyID, req.Caller)
	err := node.ExamineBounty(req.Caller, bountyID, req.Accepted)
	RecordBountyAction("examine_bounty", err)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// assignRequest is the body of POST /api/bounties/{id}/assign
type assignRequest struct {
	Caller string `json:"caller"`
	Hunter string `json:"hunter"`
}

// AssignBountyHandler picks a hunter for a bounty
func (node *OpensquareNode) AssignBountyHandler(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}
	if !IsValidAccount(req.Hunter) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid hunter account"})
		return
	}
	bountyID := bountyIDFrom(r)

	annotateSpan(r.Context(), "assign_bounty", bountyID, req.Caller)
	err := node.AssignBounty(req.Caller, bountyID, req.Hunter)
	RecordBountyAction("assign_bounty", err)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// remarkRequest carries a caller plus a resolution remark
type remarkRequest struct {
	Caller string       `json:"caller"`
	Remark BountyRemark `json:"remark"`
}

// ResolveBountyHandler resolves a submitted bounty and pays out
func (node *OpensquareNode) ResolveBountyHandler(w http.ResponseWriter, r *http.Request) {
	var req remarkRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}
	if !IsValidRemark(req.Remark) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid remark"})
		return
	}
	bountyID := bountyIDFrom(r)

	annotateSpan(r.Context(), "resolve_bounty", bountyID, req.Caller)
	err := node.ResolveBountyAndRemark(req.Caller, bountyID, req.Remark)
	RecordBountyAction("resolve_bounty_and_remark", err)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// RemarkFunderHandler lets the resolving hunter grade the funder
func (node *OpensquareNode) RemarkFunderHandler(w http.ResponseWriter, r *http.Request) {
	var req remarkRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}
	if !IsValidRemark(req.Remark) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid remark"})
		return
	}
	bountyID := bountyIDFrom(r)

	annotateSpan(r.Context(), "remark_bounty_funder", bountyID, req.Caller)
	err := node.RemarkBountyFunder(req.Caller, bountyID, req.Remark)
	RecordBountyAction("remark_bounty_funder", err)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// forceCloseRequest is the body of POST /api/bounties/{id}/force-close
type forceCloseRequest struct {
	Caller string      `json:"caller"`
	Reason CloseReason `json:"reason"`
}

// ForceCloseBountyHandler handles the council's stale-bounty eviction
func (node *OpensquareNode) ForceCloseBountyHandler(w http.ResponseWriter, r *http.Request) {
	var req forceCloseRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}
	if req.Reason == "" {
		req.Reason = ReasonOutdated
	}
	bountyID := bountyIDFrom(r)

	annotateSpan(r.Context(), "force_close_bounty", bountyID, req.Caller)
	err := node.ForceCloseBounty(req.Caller, bountyID, req.Reason)
	RecordBountyAction("force_close_bounty", err)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// claimRequest is the body of POST /api/mining/claim
type claimRequest struct {
	Caller  string `json:"caller"`
	Session uint64 `json:"session"`
}

// ClaimRewardHandler pays out a past session's proportional reward
func (node *OpensquareNode) ClaimRewardHandler(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}
	if !IsValidAccount(req.Caller) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid caller account"})
		return
	}

	annotateSpan(r.Context(), "claim_reward", "", req.Caller)
	reward, err := node.ClaimReward(req.Caller, req.Session)
	RecordBountyAction("claim_reward", err)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"reward": reward,
	})
}

// blockedRequest is the body of POST /api/admin/blocked
type blockedRequest struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
	Blocked bool   `json:"blocked"`
}

// SetBlockedHandler blocks or unblocks an account
func (node *OpensquareNode) SetBlockedHandler(w http.ResponseWriter, r *http.Request) {
	var req blockedRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}
	if !IsValidAccount(req.Account) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account"})
		return
	}

	err := node.SetAccountBlocked(req.Caller, req.Account, req.Blocked)
	RecordBountyAction("set_account_blocked", err)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// GetBlockedHandler returns the blocked account list
func (node *OpensquareNode) GetBlockedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blocked": node.BlockedList(),
	})
}

// advanceHeightRequest is the body of POST /api/admin/height
type advanceHeightRequest struct {
	Caller string `json:"caller"`
	Blocks uint64 `json:"blocks"`
}

// AdvanceHeightHandler advances the node clock for operational tooling
func (node *OpensquareNode) AdvanceHeightHandler(w http.ResponseWriter, r *http.Request) {
	var req advanceHeightRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}
	if req.Blocks == 0 {
		req.Blocks = 1
	}

	height, err := node.ForceAdvanceHeight(req.Caller, req.Blocks)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"height": height,
	})
}

// GetBountyHandler returns a bounty record, its state and its hunter relations
func (node *OpensquareNode) GetBountyHandler(w http.ResponseWriter, r *http.Request) {
	bountyID := bountyIDFrom(r)

	bounty, state, exists := node.GetBounty(bountyID)
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrNotExisted.Error()})
		return
	}

	response := map[string]interface{}{
		"bountyId": bountyID,
		"bounty":   bounty,
		"state":    state,
		"hunters":  node.GetHuntingSet(bountyID),
	}
	if assigned, ok := node.GetAssignedHunter(bountyID); ok {
		response["assignedHunter"] = assigned
	}
	writeJSON(w, http.StatusOK, response)
}

// ListBountiesHandler lists bounty ids, optionally filtered by funder
func (node *OpensquareNode) ListBountiesHandler(w http.ResponseWriter, r *http.Request) {
	funder := r.URL.Query().Get("funder")
	if funder != "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"funder":   funder,
			"bounties": node.GetBountiesOf(funder),
		})
		return
	}

	node.StateMutex.RLock()
	ids := make([]BountyId, 0, len(node.Bounties))
	for bountyID := range node.Bounties {
		ids = append(ids, bountyID)
	}
	node.StateMutex.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"bounties": ids})
}

// GetBountyContentHandler serves a bounty's off-chain content via the gateway
func (node *OpensquareNode) GetBountyContentHandler(w http.ResponseWriter, r *http.Request) {
	bountyID := bountyIDFrom(r)

	bounty, _, exists := node.GetBounty(bountyID)
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrNotExisted.Error()})
		return
	}
	if bounty.Digest == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "bounty has no content"})
		return
	}
	if node.content == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": ErrContentNotConfigured.Error()})
		return
	}

	data, err := node.content.Get(r.Context(), bounty.Digest)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// GetHunterBountiesHandler returns a hunter's holdings
func (node *OpensquareNode) GetHunterBountiesHandler(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":  account,
		"bounties": node.GetHunterBounties(account),
	})
}

// GetReputationHandler returns an account's cumulative behavior score
func (node *OpensquareNode) GetReputationHandler(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": account,
		"score":   node.GetBehaviorScore(account),
	})
}

// GetSessionHandler returns a session's mining accounting
func (node *OpensquareNode) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session index"})
		return
	}
	writeJSON(w, http.StatusOK, node.GetSessionInfo(index))
}

// GetEscrowHandler returns an account's balances across currencies
func (node *OpensquareNode) GetEscrowHandler(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	node.StateMutex.RLock()
	balances := node.Escrow.BalancesOf(account)
	node.StateMutex.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":  account,
		"balances": balances,
	})
}

// GetEventsHandler pages through the domain event log
func (node *OpensquareNode) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 100
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	events, total := node.GetEvents(limit, offset)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
		"offset": offset,
	})
}
