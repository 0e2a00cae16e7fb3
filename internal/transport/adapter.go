// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport adapts an external activity source to the dispatch queue.
package transport

import (
	"github.com/rs/zerolog"

	"github.com/jeranaias/relay-tui/internal/activity"
	"github.com/jeranaias/relay-tui/internal/dispatch"
)

// =============================================================================
// ADAPTER
// =============================================================================

// Adapter converts transport callbacks into prioritized queue messages.
// It owns no retry logic; reconnection is the transport's responsibility.
type Adapter struct {
	queue *dispatch.Queue
	log   zerolog.Logger
}

// NewAdapter creates an adapter feeding the given queue.
func NewAdapter(queue *dispatch.Queue, log zerolog.Logger) *Adapter {
	return &Adapter{queue: queue, log: log}
}

// Connect wires a transport's three callbacks into enqueue calls.
func (a *Adapter) Connect(t Transport) {
	t.OnActivity(a.enqueueActivity)
	t.OnStatus(a.enqueueStatus)
	t.OnError(a.enqueueError)
}

// enqueueActivity tags and prioritizes one inbound activity.
func (a *Adapter) enqueueActivity(act activity.Activity) {
	if act.ID == "" {
		act.ID = activity.GenerateID()
	}

	msgType, priority := classify(act)
	id := a.queue.Enqueue(&dispatch.QueuedMessage{
		Source:   "transport",
		Type:     msgType,
		Priority: priority,
		Data:     act,
	})

	// Instrumentation: announce the enqueue itself.
	a.queue.Enqueue(&dispatch.QueuedMessage{
		Source:   "transport",
		Type:     dispatch.TypeMessageQueued,
		Priority: dispatch.PriorityLifecycle,
		Data:     dispatch.LifecycleEvent{MessageID: id, MessageType: msgType},
	})
}

// classify maps an activity to its queue type and dispatch priority.
func classify(act activity.Activity) (dispatch.MessageType, int) {
	switch act.Type {
	case activity.TypeMessage:
		if act.IsFromUser() {
			return dispatch.TypeUserMessage, dispatch.PriorityUserMessage
		}
		return dispatch.TypeBotMessage, dispatch.PriorityBotMessage
	case activity.TypeTyping:
		return dispatch.TypeTyping, dispatch.PriorityTyping
	case activity.TypeConversationUpdate:
		return dispatch.TypeConversationUpdate, dispatch.PriorityConversationUpdate
	case activity.TypeEvent:
		return dispatch.TypeEvent, dispatch.PriorityEvent
	default:
		return dispatch.TypeUnknown, dispatch.PriorityUnknown
	}
}

// enqueueStatus forwards a connection-status change ahead of ordinary
// content so the UI reflects connectivity promptly.
func (a *Adapter) enqueueStatus(status Status) {
	a.log.Debug().Str("status", string(status)).Msg("connection status changed")
	a.queue.Enqueue(&dispatch.QueuedMessage{
		Source:   "transport",
		Type:     dispatch.TypeStatus,
		Priority: dispatch.PriorityStatus,
		Data:     status,
	})
}

// enqueueError forwards a transport error at the highest priority.
func (a *Adapter) enqueueError(err error) {
	a.log.Warn().Err(err).Msg("transport error")
	a.queue.Enqueue(&dispatch.QueuedMessage{
		Source:   "transport",
		Type:     dispatch.TypeError,
		Priority: dispatch.PriorityError,
		Data:     err,
	})
}
