// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render owns the ordered list of rendered message nodes.
package render

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// RENDER TARGET
// =============================================================================

// Target is one display surface: an ordered list of rendered nodes kept in
// chronological order by Insert. Writes come from the dispatch queue's drain
// goroutine; the UI reads concurrently from the Bubble Tea goroutine, so the
// node list is guarded by a read-write lock and Nodes hands out copies.
type Target struct {
	Name string

	mu        sync.RWMutex
	nodes     []*Node
	tieWindow time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewTarget creates a render target. tieWindow is the delta under which two
// timestamps count as simultaneous and arrival order wins.
func NewTarget(name string, tieWindow time.Duration, log zerolog.Logger) *Target {
	return &Target{
		Name:      name,
		tieWindow: tieWindow,
		now:       time.Now,
		log:       log,
	}
}

// SetClock replaces the wall clock, for tests.
func (t *Target) SetClock(now func() time.Time) {
	t.now = now
}

// Insert places node among the existing nodes by timestamp and returns its
// position.
//
// The scan runs oldest to newest and stops at the first existing node whose
// timestamp is strictly newer. If that node is within the tie window the new
// node goes immediately after it (arrival order beats timestamp precision
// for near-simultaneous messages); otherwise immediately before. With no
// newer node the new node is appended. O(n) per insertion; n is bounded by
// one conversation's visible history.
func (t *Target) Insert(node *Node) int {
	if node.Timestamp.IsZero() {
		node.Timestamp = t.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, existing := range t.nodes {
		if !existing.Timestamp.After(node.Timestamp) {
			continue
		}
		delta := existing.Timestamp.Sub(node.Timestamp)
		if delta < t.tieWindow {
			t.insertAt(i+1, node)
			return i + 1
		}
		t.insertAt(i, node)
		return i
	}

	t.nodes = append(t.nodes, node)
	return len(t.nodes) - 1
}

func (t *Target) insertAt(i int, node *Node) {
	t.nodes = append(t.nodes, nil)
	copy(t.nodes[i+1:], t.nodes[i:])
	t.nodes[i] = node
}

// Mutate runs fn under the target's write lock. Streaming updates message
// node fields in place after the node is already visible to readers;
// funneling those writes through the lock keeps Nodes snapshots coherent.
func (t *Target) Mutate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn()
}

// Nodes returns a snapshot of the rendered nodes in display order. Both the
// slice and the nodes are copies; later streaming updates do not show through.
func (t *Target) Nodes() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Node, len(t.nodes))
	for i, n := range t.nodes {
		c := *n
		out[i] = &c
	}
	return out
}

// Len returns the number of rendered nodes.
func (t *Target) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// NodeByID finds the live node by message ID, nil if absent. Callers outside
// the drain goroutine use Nodes instead.
func (t *Target) NodeByID(id string) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, n := range t.nodes {
		if n.MessageID == id {
			return n
		}
	}
	return nil
}

// Clear destroys all nodes. The only way nodes are ever removed.
func (t *Target) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes = nil
}
