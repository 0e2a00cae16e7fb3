// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/relay-tui/internal/activity"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestTarget() *Target {
	return NewTarget("primary", time.Second, zerolog.Nop())
}

func nodeAt(id string, ts time.Time) *Node {
	return &Node{MessageID: id, Timestamp: ts}
}

func order(t *Target) []string {
	nodes := t.Nodes()
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.MessageID
	}
	return out
}

func assertOrder(t *testing.T, tgt *Target, want ...string) {
	t.Helper()
	got := order(tgt)
	if len(got) != len(want) {
		t.Fatalf("rendered order %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rendered order %v, want %v", got, want)
		}
	}
}

// =============================================================================
// CHRONOLOGICAL INSERTION
// =============================================================================

func TestInsertAppendOnEmpty(t *testing.T) {
	tgt := newTestTarget()
	if pos := tgt.Insert(nodeAt("a", base)); pos != 0 {
		t.Errorf("insert into empty target at %d, want 0", pos)
	}
	assertOrder(t, tgt, "a")
}

func TestInsertOutOfOrderArrival(t *testing.T) {
	tgt := newTestTarget()
	tgt.Insert(nodeAt("third", base.Add(20*time.Second)))
	tgt.Insert(nodeAt("first", base))
	tgt.Insert(nodeAt("second", base.Add(10*time.Second)))

	assertOrder(t, tgt, "first", "second", "third")
}

func TestInsertStrictlyIncreasingTimestamps(t *testing.T) {
	// Arbitrary arrival order with well-separated timestamps must sort
	// exactly by timestamp.
	tgt := newTestTarget()
	arrival := []int{3, 0, 4, 1, 2}
	ids := []string{"t0", "t1", "t2", "t3", "t4"}
	for _, i := range arrival {
		tgt.Insert(nodeAt(ids[i], base.Add(time.Duration(i)*5*time.Second)))
	}
	assertOrder(t, tgt, "t0", "t1", "t2", "t3", "t4")
}

func TestInsertLateEarlierMessage(t *testing.T) {
	// Scenario: bot message at T dispatched first, user message at T-5s
	// arrives after. Rendered order is user, bot.
	tgt := newTestTarget()
	tgt.Insert(nodeAt("bot", base))
	tgt.Insert(nodeAt("user", base.Add(-5*time.Second)))

	assertOrder(t, tgt, "user", "bot")
}

// =============================================================================
// TIE-BREAKING
// =============================================================================

func TestInsertTieWindowKeepsArrivalOrder(t *testing.T) {
	// Second arrival is 500ms earlier: inside the window, so it stays after
	// the first instead of swapping.
	tgt := newTestTarget()
	tgt.Insert(nodeAt("arrived-first", base))
	tgt.Insert(nodeAt("arrived-second", base.Add(-500*time.Millisecond)))

	assertOrder(t, tgt, "arrived-first", "arrived-second")
}

func TestInsertJustOutsideTieWindowSorts(t *testing.T) {
	tgt := newTestTarget()
	tgt.Insert(nodeAt("later", base))
	tgt.Insert(nodeAt("earlier", base.Add(-1001*time.Millisecond)))

	assertOrder(t, tgt, "earlier", "later")
}

func TestInsertExactWindowBoundarySorts(t *testing.T) {
	// The window is exclusive: a delta of exactly the window is not a tie.
	tgt := newTestTarget()
	tgt.Insert(nodeAt("later", base))
	tgt.Insert(nodeAt("earlier", base.Add(-time.Second)))

	assertOrder(t, tgt, "earlier", "later")
}

// =============================================================================
// TIMESTAMP RESILIENCE
// =============================================================================

func TestInsertMalformedTimestampPlacedAsNow(t *testing.T) {
	tgt := newTestTarget()
	tgt.SetClock(func() time.Time { return base.Add(time.Hour) })

	tgt.Insert(nodeAt("old", base))

	// NewNode on a malformed timestamp defaults to the clock.
	act := activity.Activity{ID: "garbage-ts", Timestamp: "not-a-date"}
	n := NewNode(act, func() time.Time { return base.Add(time.Hour) })
	tgt.Insert(n)

	assertOrder(t, tgt, "old", "garbage-ts")
	if !n.Timestamp.Equal(base.Add(time.Hour)) {
		t.Errorf("malformed timestamp defaulted to %v, want clock time", n.Timestamp)
	}
}

// =============================================================================
// TARGET OWNERSHIP
// =============================================================================

func TestNodeByIDAndClear(t *testing.T) {
	tgt := newTestTarget()
	tgt.Insert(nodeAt("a", base))
	tgt.Insert(nodeAt("b", base.Add(5*time.Second)))

	if tgt.NodeByID("b") == nil {
		t.Error("NodeByID failed to find rendered node")
	}
	if tgt.NodeByID("missing") != nil {
		t.Error("NodeByID returned a node for an unknown ID")
	}

	tgt.Clear()
	if tgt.Len() != 0 {
		t.Errorf("Clear left %d nodes", tgt.Len())
	}
}

func TestNodesReturnsCopy(t *testing.T) {
	tgt := newTestTarget()
	tgt.Insert(nodeAt("a", base))

	nodes := tgt.Nodes()
	nodes[0] = nil
	if tgt.NodeByID("a") == nil {
		t.Error("mutating the Nodes() slice corrupted the target")
	}
}

// =============================================================================
// CONCURRENT READ SAFETY
// =============================================================================

func TestNodesSnapshotIsolatedFromStreamingWrites(t *testing.T) {
	tgt := newTestTarget()
	node := nodeAt("streaming", base)
	node.Raw = "partial"
	tgt.Insert(node)

	snap := tgt.Nodes()
	tgt.Mutate(func() {
		node.Raw = "partial plus the rest"
		node.Rendered = "rendered body"
	})

	if snap[0].Raw != "partial" {
		t.Errorf("snapshot changed under a later write: %q", snap[0].Raw)
	}
	if got := tgt.Nodes()[0].Raw; got != "partial plus the rest" {
		t.Errorf("fresh snapshot missed the write: %q", got)
	}
}

func TestNodesSafeWhileInserting(t *testing.T) {
	// Reader and writer run concurrently, as the UI goroutine does against
	// the drain goroutine. Fails under the race detector if Insert, Mutate,
	// and Nodes are not synchronized.
	tgt := newTestTarget()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			n := nodeAt(fmt.Sprintf("m%02d", i), base.Add(time.Duration(i)*2*time.Second))
			tgt.Insert(n)
			tgt.Mutate(func() { n.Rendered = n.MessageID })
		}
	}()

	for {
		select {
		case <-done:
			if tgt.Len() != 50 {
				t.Fatalf("target holds %d nodes, want 50", tgt.Len())
			}
			return
		default:
			for _, n := range tgt.Nodes() {
				_ = n.Rendered
			}
		}
	}
}
