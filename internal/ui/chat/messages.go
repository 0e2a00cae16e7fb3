// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/dispatch"
	"github.com/jeranaias/relay-tui/internal/pipeline"
	"github.com/jeranaias/relay-tui/internal/transport"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// RefreshMsg tells the view to re-read its render targets. Sent whenever the
// pipeline finishes rendering a node.
type RefreshMsg struct {
	MessageID string
}

// ConnectionMsg carries a connection-status change for the status bar.
type ConnectionMsg struct {
	Status transport.Status
}

// TransportErrorMsg carries a transport-level error for the status bar.
type TransportErrorMsg struct {
	Err error
}

// =============================================================================
// QUEUE BRIDGE
// =============================================================================

// Bridge forwards dispatch-queue notifications into a running Bubble Tea
// program. The queue drains on its own goroutine; tea.Program.Send is the
// one safe way across.
type Bridge struct {
	queue *dispatch.Queue
	send  func(tea.Msg)
	subs  map[dispatch.MessageType]dispatch.SubscriptionID
}

// NewBridge subscribes to rendered, status, and error notifications and
// forwards each as a tea.Msg via send.
func NewBridge(queue *dispatch.Queue, send func(tea.Msg)) *Bridge {
	b := &Bridge{
		queue: queue,
		send:  send,
		subs:  make(map[dispatch.MessageType]dispatch.SubscriptionID),
	}

	b.subs[dispatch.TypeMessageRendered] = queue.Subscribe(dispatch.TypeMessageRendered,
		func(msg *dispatch.QueuedMessage) error {
			id := ""
			if r, ok := msg.Data.(pipeline.Rendered); ok {
				id = r.Node.MessageID
			}
			b.send(RefreshMsg{MessageID: id})
			return nil
		})

	b.subs[dispatch.TypeStatus] = queue.Subscribe(dispatch.TypeStatus,
		func(msg *dispatch.QueuedMessage) error {
			if status, ok := msg.Data.(transport.Status); ok {
				b.send(ConnectionMsg{Status: status})
			}
			return nil
		})

	b.subs[dispatch.TypeError] = queue.Subscribe(dispatch.TypeError,
		func(msg *dispatch.QueuedMessage) error {
			if err, ok := msg.Data.(error); ok {
				b.send(TransportErrorMsg{Err: err})
			}
			return nil
		})

	return b
}

// Detach removes the bridge's queue subscriptions.
func (b *Bridge) Detach() {
	for t, id := range b.subs {
		b.queue.Unsubscribe(t, id)
	}
	b.subs = make(map[dispatch.MessageType]dispatch.SubscriptionID)
}
