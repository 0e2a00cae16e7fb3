// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package activity defines the normalized inbound conversation unit.
package activity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SENDER
// =============================================================================

// SenderUser is the sentinel `from` value identifying the local user.
// Any other value is treated as an agent/bot sender.
const SenderUser = "user"

// =============================================================================
// ACTIVITY TYPES
// =============================================================================

// Type discriminates the kind of inbound activity.
type Type string

const (
	TypeMessage            Type = "message"
	TypeTyping             Type = "typing"
	TypeConversationUpdate Type = "conversationUpdate"
	TypeEvent              Type = "event"
)

// =============================================================================
// ACTIVITY ENVELOPE
// =============================================================================

// Activity is one normalized unit of conversation handed over by a transport.
//
// The envelope is deliberately tolerant: Timestamp is kept as the raw wire
// string (it may be absent or garbage), and Entities/ChannelData stay as raw
// JSON because citation payloads arrive in several incompatible shapes.
type Activity struct {
	// Identity
	ID   string `json:"id"`
	From string `json:"from"`
	Type Type   `json:"type"`

	// Content
	Text             string            `json:"text,omitempty"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggestedActions,omitempty"`

	// Side-channel metadata (weakly typed, see the citation package)
	Entities    []json.RawMessage `json:"entities,omitempty"`
	ChannelData json.RawMessage   `json:"channelData,omitempty"`

	// Raw ISO-8601 timestamp as received; may be empty or malformed.
	Timestamp string `json:"timestamp,omitempty"`

	// Companion marks responses from the local analysis companion; they are
	// rendered on the companion surface with full-width presentation.
	Companion bool `json:"-"`

	// Streaming metadata. StreamID ties partial activities to one logical
	// message. RealtimeIncrement means partials carry deltas; unset means
	// the provider resends the whole accumulated string each time.
	// StreamFinal marks the terminal activity of a stream.
	StreamID          string `json:"streamId,omitempty"`
	RealtimeIncrement bool   `json:"realtimeIncrement,omitempty"`
	StreamFinal       bool   `json:"streamFinal,omitempty"`
}

// Attachment is one typed payload carried by an activity.
type Attachment struct {
	ContentType string          `json:"contentType"`
	Content     json.RawMessage `json:"content,omitempty"`
	ContentURL  string          `json:"contentUrl,omitempty"`
	Name        string          `json:"name,omitempty"`
}

// SuggestedAction is a (label, payload) pair offered to the user.
type SuggestedAction struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// New creates a message activity with a generated ID.
func New(from, text string) Activity {
	return Activity{
		ID:        GenerateID(),
		From:      from,
		Type:      TypeMessage,
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// IsFromUser reports whether the activity originates from the local user.
func (a Activity) IsFromUser() bool {
	return a.From == SenderUser
}

// IsStreaming reports whether the activity is part of a streamed message
// (either a partial or the terminal activity).
func (a Activity) IsStreaming() bool {
	return a.StreamID != ""
}

// GenerateID creates a unique activity ID for envelopes the transport did
// not assign one to.
func GenerateID() string {
	return "act_" + uuid.NewString()
}

// =============================================================================
// TIMESTAMP PARSING
// =============================================================================

// ParseTimestamp converts a raw wire timestamp into a time.Time.
//
// Missing or unparseable values fall back to now; ordering code downstream
// must never fail because a provider sent a garbage timestamp.
func ParseTimestamp(raw string, now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}
	if raw == "" {
		return now()
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return now()
}
