package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bounty lifecycle metrics
	bountyActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opensquare_bounty_actions_total",
		Help: "Total number of bounty actions processed",
	}, []string{"action", "status"})

	bountyStatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opensquare_bounty_state_transitions_total",
		Help: "Total number of bounty state transitions",
	}, []string{"state"})

	// Domain event metrics
	domainEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opensquare_domain_events_total",
		Help: "Total number of domain events recorded",
	}, []string{"type"})

	// Reputation metrics
	reputationChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opensquare_reputation_changes_total",
		Help: "Total number of reputation score changes",
	}, []string{"behavior"})

	// Mining metrics
	miningPowerGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opensquare_mining_power_granted_total",
		Help: "Total mining power granted across all sessions",
	})

	sessionRewardPool = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opensquare_session_reward_pool",
		Help:    "Reward pool sizes fixed at session boundaries",
		Buckets: prometheus.ExponentialBuckets(1, 10, 10),
	})

	// Height gauge
	blockHeightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opensquare_block_height",
		Help: "Current block height of the node clock",
	})

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opensquare_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opensquare_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// RecordBountyAction records an action attempt and its outcome
func RecordBountyAction(action string, err error) {
	status := "accepted"
	if err != nil {
		status = "rejected"
	}
	bountyActionsTotal.WithLabelValues(action, status).Inc()
}

// RecordBountyState records a state transition
func RecordBountyState(state BountyState) {
	bountyStatesTotal.WithLabelValues(string(state)).Inc()
}

// RecordDomainEvent records an emitted domain event
func RecordDomainEvent(eventType EventType) {
	domainEventsTotal.WithLabelValues(string(eventType)).Inc()
}

// RecordReputationChange records a behavior score application
func RecordReputationChange(behavior Behavior) {
	reputationChangesTotal.WithLabelValues(string(behavior)).Inc()
}

// RecordMiningPower records granted mining power
func RecordMiningPower(power uint64) {
	miningPowerGranted.Add(float64(power))
}

// RecordSessionClosed records a fixed session reward pool
func RecordSessionClosed(pool uint64) {
	sessionRewardPool.Observe(float64(pool))
}

// RecordBlockHeight updates the height gauge
func RecordBlockHeight(height uint64) {
	blockHeightGauge.Set(float64(height))
}
