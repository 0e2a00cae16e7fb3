// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render owns the ordered list of rendered message nodes and the
// chronological insertion rules that keep it sorted.
package render

import (
	"time"

	"github.com/jeranaias/relay-tui/internal/activity"
	"github.com/jeranaias/relay-tui/internal/citation"
)

// =============================================================================
// RENDERED MESSAGE NODE
// =============================================================================

// Node is the on-screen artifact for one activity envelope. It is created
// once per envelope and destroyed only by Target.Clear. After insertion its
// fields are written only under the owning Target's lock (Target.Mutate), so
// Nodes snapshots stay coherent for concurrent readers.
type Node struct {
	// Identity
	MessageID string
	Timestamp time.Time // parsed, defaulted to now on parse failure

	// Presentation
	IsUser      bool
	IsCompanion bool // full-width companion surface presentation
	IsNotice    bool // connection-status / error notification

	// Content
	Raw      string // source text as received
	Rendered string // markdown-rendered (or plain fallback) text

	// Extracted metadata
	Citations   []citation.Group
	Actions     []activity.SuggestedAction
	Attachments []activity.Attachment

	// Response-time metadata for streamed messages
	Elapsed   time.Duration
	RuneCount int
}

// NewNode builds a node for an activity, parsing its timestamp tolerantly.
func NewNode(act activity.Activity, now func() time.Time) *Node {
	return &Node{
		MessageID:   act.ID,
		Timestamp:   activity.ParseTimestamp(act.Timestamp, now),
		IsUser:      act.IsFromUser(),
		IsCompanion: act.Companion,
		Raw:         act.Text,
	}
}
