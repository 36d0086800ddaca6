package main

import "time"

// ResolutionHook reacts to a resolved bounty. Hooks are invoked in
// registration order, once per resolution, while the state mutex is held;
// they are side-effect only and nothing reads their outcome back.
type ResolutionHook func(bountyID BountyId, bounty Bounty, hunter string)

// RegisterResolutionHook appends an observer to the resolution fan-out
func (node *OpensquareNode) RegisterResolutionHook(hook ResolutionHook) {
	node.resolutionHooks = append(node.resolutionHooks, hook)
}

// recordEvent appends to the domain event log. The height is stamped from
// the node clock; callers hold the state mutex so the read is consistent
// with the mutation the event describes.
func (node *OpensquareNode) recordEvent(ev DomainEvent) {
	ev.Height = node.Height
	ev.Timestamp = time.Now().Unix()

	node.EventsMutex.Lock()
	node.Events = append(node.Events, ev)
	node.EventsMutex.Unlock()

	RecordDomainEvent(ev.Type)
}

// GetEvents returns a page of the event log, newest last
func (node *OpensquareNode) GetEvents(limit, offset int) ([]DomainEvent, int) {
	node.EventsMutex.RLock()
	defer node.EventsMutex.RUnlock()

	total := len(node.Events)
	if offset < 0 || offset >= total {
		return []DomainEvent{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	page := make([]DomainEvent, end-offset)
	copy(page, node.Events[offset:end])
	return page, total
}
