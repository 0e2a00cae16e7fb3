// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream governs how a message body reaches its render target:
// atomically, by real incremental streaming, or by locally simulated
// character-by-character playback.
package stream

import (
	"context"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/jeranaias/relay-tui/internal/activity"
	"github.com/jeranaias/relay-tui/internal/citation"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/render"
)

// =============================================================================
// STATES
// =============================================================================

// State is the streaming lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the live state of one streamed message. At most one session is
// active per controller; the state machine enforces it.
type Session struct {
	node     *render.Node // container, inserted when the session begins
	buf      strings.Builder
	start    time.Time
	streamID string
}

// AccumulatedText returns the text streamed so far.
func (s *Session) AccumulatedText() string {
	return s.buf.String()
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives the streaming lifecycle for one render target.
//
// All methods run on the dispatch queue's drain goroutine. Session state has
// that single owner and needs no locks; writes to already-inserted nodes go
// through the target's lock because the UI reads concurrently.
type Controller struct {
	state   State
	session *Session

	target    *render.Target
	md        *render.Markdown
	extractor *citation.Extractor
	delays    config.StreamingConfig
	log       zerolog.Logger

	// progress fires on the drain goroutine each time a streaming message's
	// visible text advances, so the UI can repaint mid-stream.
	progress     func(*render.Node)
	lastProgress time.Time

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)
	rng   *rand.Rand
}

// NewController creates a controller bound to one render target.
func NewController(target *render.Target, md *render.Markdown, extractor *citation.Extractor,
	delays config.StreamingConfig, log zerolog.Logger) *Controller {
	return &Controller{
		target:    target,
		md:        md,
		extractor: extractor,
		delays:    delays,
		log:       log,
		now:       time.Now,
		sleep:     time.Sleep,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Target returns the render target this controller mutates.
func (c *Controller) Target() *render.Target {
	return c.target
}

// OnProgress registers the mid-stream repaint callback. fn runs on the drain
// goroutine and must not block.
func (c *Controller) OnProgress(fn func(*render.Node)) {
	c.progress = fn
}

func (c *Controller) notifyProgress(node *render.Node) {
	if c.progress != nil {
		c.progress(node)
	}
}

// notifyProgressThrottled rate-limits playback repaints: per-character delays
// run well under a frame, and repainting every rune floods the UI loop.
func (c *Controller) notifyProgressThrottled(node *render.Node) {
	if c.progress == nil {
		return
	}
	interval := time.Duration(c.delays.ProgressIntervalMs) * time.Millisecond
	if !c.lastProgress.IsZero() && c.now().Sub(c.lastProgress) < interval {
		return
	}
	c.lastProgress = c.now()
	c.progress(node)
}

// =============================================================================
// ATOMIC RENDER
// =============================================================================

// RenderAtomic renders a complete activity in one step: Idle -> Atomic-Render.
func (c *Controller) RenderAtomic(act activity.Activity) *render.Node {
	node := render.NewNode(act, c.now)
	c.decorate(node, act, act.Text)
	c.target.Insert(node)
	return node
}

// RenderNotice renders a status/error notification node. Notices carry no
// citations or actions and sort like any other message.
func (c *Controller) RenderNotice(text string) *render.Node {
	node := &render.Node{
		MessageID: activity.GenerateID(),
		Timestamp: c.now(),
		IsNotice:  true,
		Raw:       text,
		Rendered:  c.md.Render(text),
	}
	c.target.Insert(node)
	return node
}

// decorate fills a node's rendered body and extracted metadata from the
// authoritative activity. Shared by atomic render and finalization so the
// two paths produce identical output for identical text.
func (c *Controller) decorate(node *render.Node, act activity.Activity, text string) {
	groups := c.extractor.Extract(act)
	display := citation.StripInlinePayload(text)
	display = citation.Linkify(display, groups)

	node.Raw = text
	node.Rendered = c.md.Render(display)
	node.Citations = groups
	node.Actions = act.SuggestedActions
	node.Attachments = act.Attachments
	node.RuneCount = len([]rune(text))
}

// =============================================================================
// REAL STREAMING
// =============================================================================

// Append handles one partial activity of a real stream.
//
// The first partial for a not-yet-seen logical message opens a session and
// inserts its container. Later partials append their delta when the activity
// is flagged as a realtime increment, or replace the whole buffer when the
// provider resends the accumulated string.
func (c *Controller) Append(act activity.Activity) *render.Node {
	if c.state != StateStreaming || c.session == nil {
		c.begin(act)
	} else if c.session.streamID != act.StreamID {
		// A second logical message while a stream is active is a defect
		// upstream; the guard keeps the existing container rather than
		// interleaving a new one.
		c.log.Warn().
			Str("active", c.session.streamID).
			Str("incoming", act.StreamID).
			Msg("stream interleave blocked, reusing active session")
	}

	if act.RealtimeIncrement {
		c.session.buf.WriteString(act.Text)
	} else {
		c.session.buf.Reset()
		c.session.buf.WriteString(act.Text)
	}

	node := c.session.node
	text := c.session.buf.String()
	rendered := c.md.Render(text)
	c.target.Mutate(func() {
		node.Raw = text
		node.Rendered = rendered
	})
	// Partials arrive at network pace, so every one repaints.
	c.notifyProgress(node)
	return node
}

// begin opens a session. The container node is only created and inserted
// when none exists; an already-open session keeps its container.
func (c *Controller) begin(act activity.Activity) {
	if c.session != nil && c.session.node != nil {
		c.state = StateStreaming
		return
	}
	node := render.NewNode(act, c.now)
	c.target.Insert(node)
	c.session = &Session{
		node:     node,
		start:    c.now(),
		streamID: act.StreamID,
	}
	c.lastProgress = time.Time{}
	c.state = StateStreaming
}

// =============================================================================
// SIMULATED STREAMING
// =============================================================================

// Playback renders a complete activity with simulated streaming: the text is
// replayed one character at a time with a randomized delay (shorter after a
// space), re-rendering the accumulated prefix each step so the message
// appears to be generated live. Control yields to ctx between characters;
// cancellation falls back to an immediate final render.
func (c *Controller) Playback(ctx context.Context, act activity.Activity) *render.Node {
	c.begin(act)

	for _, r := range act.Text {
		select {
		case <-ctx.Done():
			c.log.Debug().Err(ctx.Err()).Msg("playback interrupted, finalizing")
			return c.Finalize(act)
		default:
		}

		c.session.buf.WriteRune(r)
		node := c.session.node
		text := c.session.buf.String()
		rendered := c.md.Render(text)
		c.target.Mutate(func() {
			node.Raw = text
			node.Rendered = rendered
		})
		c.notifyProgressThrottled(node)
		c.sleep(c.delayFor(r))
	}

	return c.Finalize(act)
}

// delayFor picks the randomized post-character delay. Spaces get the shorter
// range so word boundaries do not stutter.
func (c *Controller) delayFor(r rune) time.Duration {
	min, max := c.delays.CharDelayMinMs, c.delays.CharDelayMaxMs
	if unicode.IsSpace(r) {
		min, max = c.delays.SpaceDelayMinMs, c.delays.SpaceDelayMaxMs
	}
	if max <= min {
		return time.Duration(min) * time.Millisecond
	}
	return time.Duration(min+c.rng.Intn(max-min+1)) * time.Millisecond
}

// =============================================================================
// FINALIZATION
// =============================================================================

// Finalize completes the active stream with the terminal activity: the
// authoritative final text replaces the buffer if they differ, attachments,
// actions, and citations are attached, the session is cleared, and the
// elapsed wall-clock time is recorded on the node.
//
// Called with no active session (state was lost), it falls back to an atomic
// render of the final activity rather than failing silently.
func (c *Controller) Finalize(act activity.Activity) *render.Node {
	if c.state == StateIdle || c.session == nil {
		c.log.Warn().Str("activity", act.ID).Msg("finalize without active session, atomic fallback")
		return c.RenderAtomic(act)
	}

	c.state = StateFinalizing
	node := c.session.node

	final := act.Text
	if final == "" {
		final = c.session.buf.String()
	}
	// The container is already visible to readers; finalize under the lock.
	c.target.Mutate(func() {
		c.decorate(node, act, final)
		if node.MessageID == "" {
			node.MessageID = act.ID
		}
		node.Elapsed = c.now().Sub(c.session.start)
	})

	c.session = nil
	c.state = StateIdle
	return node
}

// Reset abandons any active session without rendering. The container node
// stays on the target; the next stream opens a fresh one.
func (c *Controller) Reset() {
	c.session = nil
	c.state = StateIdle
}
