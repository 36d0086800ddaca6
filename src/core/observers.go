package main

import (
	"bytes"
	"encoding/json"
)

// External resolution observers: configured endpoints that get a POST for
// every resolved bounty. Delivery is fire-and-forget; the ledger never
// consumes a response.

// resolvedNotification is the webhook payload for a resolved bounty
type resolvedNotification struct {
	BountyID BountyId       `json:"bountyId"`
	Owner    string         `json:"owner"`
	Hunter   string         `json:"hunter"`
	Currency CurrencyId     `json:"currency"`
	Payment  uint64         `json:"payment"`
	Category BountyCategory `json:"category"`
	Digest   string         `json:"digest"`
}

// notifyResolutionObservers is registered as a resolution hook. It snapshots
// the payload synchronously and delivers it off the action's critical path,
// one observer at a time so each endpoint sees resolutions in order.
func (node *OpensquareNode) notifyResolutionObservers(bountyID BountyId, bounty Bounty, hunter string) {
	notification := resolvedNotification{
		BountyID: bountyID,
		Owner:    bounty.Owner,
		Hunter:   hunter,
		Currency: bounty.Currency,
		Payment:  bounty.Payment,
		Category: bounty.Category,
		Digest:   bounty.Digest,
	}
	go node.postToObservers(notification)
}

func (node *OpensquareNode) postToObservers(notification resolvedNotification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		logger.Error("Failed to marshal observer notification", "bountyId", notification.BountyID, "error", err)
		return
	}

	for _, observerURL := range node.cfg.ObserverURLs {
		resp, err := node.httpClient.Post(observerURL, "application/json", bytes.NewReader(payload))
		if err != nil {
			logger.Warn("Failed to notify observer", "url", observerURL, "bountyId", notification.BountyID, "error", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 300 {
			logger.Warn("Observer rejected notification", "url", observerURL, "status", resp.StatusCode)
		}
	}
}
