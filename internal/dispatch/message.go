// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch provides the priority-ordered, single-consumer message
// queue decoupling transport ingestion from rendering.
package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// MessageType tags a queued message for subscriber routing.
type MessageType string

const (
	// Content types, produced by the transport adapter.
	TypeUserMessage        MessageType = "user-message"
	TypeBotMessage         MessageType = "bot-message"
	TypeTyping             MessageType = "typing"
	TypeConversationUpdate MessageType = "conversation-update"
	TypeEvent              MessageType = "bot-event"
	TypeUnknown            MessageType = "unknown"

	// Control types, always dispatched ahead of content.
	TypeStatus MessageType = "connection-status"
	TypeError  MessageType = "error"

	// Lifecycle events, emitted by the pipeline for instrumentation.
	TypeMessageQueued     MessageType = "message:queued"
	TypeMessageProcessing MessageType = "message:processing"
	TypeMessageDone       MessageType = "message:done"
	TypeMessageError      MessageType = "message:error"
	TypeMessageRendered   MessageType = "message:rendered"

	// TypeAny subscribes to every message regardless of type.
	TypeAny MessageType = "*"
)

// =============================================================================
// PRIORITIES
// =============================================================================

// Dispatch priorities; higher is dequeued first. Control signals outrank all
// content so connectivity and error state reach the UI promptly.
const (
	PriorityError              = 15
	PriorityStatus             = 10
	PriorityUserMessage        = 8
	PriorityBotMessage         = 5
	PriorityEvent              = 4
	PriorityTyping             = 3
	PriorityConversationUpdate = 2
	PriorityUnknown            = 1
	PriorityLifecycle          = 1
)

// =============================================================================
// QUEUED MESSAGE
// =============================================================================

// QueuedMessage wraps one unit of work flowing through the queue: an activity
// envelope, a control signal, or a lifecycle event.
//
// A message is created at the adapter boundary, consumed exactly once by the
// drain loop, and never mutated after enqueue.
type QueuedMessage struct {
	ID        string
	Timestamp time.Time // enqueue time
	Source    string
	Type      MessageType
	Priority  int
	Data      any
	Metadata  map[string]string
}

// LifecycleEvent is the payload of message:queued / message:processing /
// message:done / message:error instrumentation events.
type LifecycleEvent struct {
	MessageID   string
	MessageType MessageType
	Err         error // set on message:error only
}

// SubscriberError describes a handler failure, delivered as an error-typed
// side event so a misbehaving subscriber never aborts the drain loop.
type SubscriberError struct {
	SubscriptionID SubscriptionID
	MessageID      string
	MessageType    MessageType
	Err            error
}

func (e SubscriberError) Error() string {
	return "subscriber " + string(e.SubscriptionID) + " failed on " +
		string(e.MessageType) + " " + e.MessageID + ": " + e.Err.Error()
}

func (e SubscriberError) Unwrap() error {
	return e.Err
}

// generateMessageID creates a unique queued-message ID.
func generateMessageID() string {
	return "qmsg_" + uuid.NewString()
}
