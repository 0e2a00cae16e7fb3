// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline is the consumer side of the dispatch queue: it routes
// dequeued activities through the streaming lifecycle into their render
// target and broadcasts lifecycle events.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jeranaias/relay-tui/internal/activity"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/dispatch"
	"github.com/jeranaias/relay-tui/internal/render"
	"github.com/jeranaias/relay-tui/internal/stream"
	"github.com/jeranaias/relay-tui/internal/transport"
)

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Rendered is the payload of the message:rendered notification: the
// originating activity and the node it produced.
type Rendered struct {
	Activity activity.Activity
	Node     *render.Node
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline consumes the dispatch queue and mutates render targets. Each
// display surface gets its own streaming controller; the surface for an
// activity is chosen by its Companion flag, passed explicitly rather than
// held in switchable shared state, so independent pipelines can coexist.
type Pipeline struct {
	queue     *dispatch.Queue
	primary   *stream.Controller
	companion *stream.Controller
	cfg       *config.Config
	log       zerolog.Logger

	ctx  context.Context
	subs map[dispatch.MessageType]dispatch.SubscriptionID
}

// New creates a pipeline. companion may be nil; companion-tagged activities
// then render on the primary surface.
func New(queue *dispatch.Queue, primary, companion *stream.Controller,
	cfg *config.Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		queue:     queue,
		primary:   primary,
		companion: companion,
		cfg:       cfg,
		log:       log,
		ctx:       context.Background(),
		subs:      make(map[dispatch.MessageType]dispatch.SubscriptionID),
	}
}

// Start subscribes the pipeline to the queue. ctx bounds simulated playback;
// cancelling it degrades in-flight playback to an immediate final render.
func (p *Pipeline) Start(ctx context.Context) {
	if ctx != nil {
		p.ctx = ctx
	}
	p.subs[dispatch.TypeUserMessage] = p.queue.Subscribe(dispatch.TypeUserMessage, p.handleActivity)
	p.subs[dispatch.TypeBotMessage] = p.queue.Subscribe(dispatch.TypeBotMessage, p.handleActivity)
	p.subs[dispatch.TypeTyping] = p.queue.Subscribe(dispatch.TypeTyping, p.handleTyping)
	p.subs[dispatch.TypeStatus] = p.queue.Subscribe(dispatch.TypeStatus, p.handleStatus)
	p.subs[dispatch.TypeError] = p.queue.Subscribe(dispatch.TypeError, p.handleError)
}

// OnProgress registers a callback invoked on the drain goroutine each time a
// streaming message's visible text advances on either surface. It bypasses
// the queue on purpose: the drain goroutine is busy delivering the very
// message that is streaming, so a queued notification would only arrive once
// the stream already finished.
func (p *Pipeline) OnProgress(fn func(*render.Node)) {
	p.primary.OnProgress(fn)
	if p.companion != nil {
		p.companion.OnProgress(fn)
	}
}

// Stop unsubscribes the pipeline from the queue.
func (p *Pipeline) Stop() {
	for t, id := range p.subs {
		p.queue.Unsubscribe(t, id)
	}
	p.subs = make(map[dispatch.MessageType]dispatch.SubscriptionID)
}

// Primary returns the primary surface's render target.
func (p *Pipeline) Primary() *render.Target {
	return p.primary.Target()
}

// Companion returns the companion surface's render target, nil if absent.
func (p *Pipeline) Companion() *render.Target {
	if p.companion == nil {
		return nil
	}
	return p.companion.Target()
}

// controllerFor picks the display surface for an activity.
func (p *Pipeline) controllerFor(act activity.Activity) *stream.Controller {
	if act.Companion && p.companion != nil {
		return p.companion
	}
	return p.primary
}

// =============================================================================
// MESSAGE HANDLING
// =============================================================================

// handleActivity renders one user or bot message. Runs on the queue's drain
// goroutine; all render-state mutation happens here.
func (p *Pipeline) handleActivity(msg *dispatch.QueuedMessage) error {
	act, ok := msg.Data.(activity.Activity)
	if !ok {
		err := fmt.Errorf("message %s carries %T, want activity.Activity", msg.ID, msg.Data)
		p.emitEvent(dispatch.TypeMessageError, msg, err)
		return err
	}

	p.emitEvent(dispatch.TypeMessageProcessing, msg, nil)
	ctrl := p.controllerFor(act)

	var node *render.Node
	switch {
	case act.IsStreaming() && !act.StreamFinal:
		// Partial of a real stream; the rendered notification waits for the
		// terminal activity.
		ctrl.Append(act)
		p.emitEvent(dispatch.TypeMessageDone, msg, nil)
		return nil

	case act.IsStreaming() && act.StreamFinal:
		node = ctrl.Finalize(act)

	case p.cfg.Pipeline.SimulateStreaming && !act.IsFromUser() && act.Type == activity.TypeMessage:
		node = ctrl.Playback(p.ctx, act)

	default:
		node = ctrl.RenderAtomic(act)
	}

	p.notifyRendered(act, node)
	p.emitEvent(dispatch.TypeMessageDone, msg, nil)
	return nil
}

// handleTyping acknowledges typing indicators. The demo surface has no
// distinct typing affordance, so this only logs.
func (p *Pipeline) handleTyping(msg *dispatch.QueuedMessage) error {
	p.log.Debug().Str("message_id", msg.ID).Msg("typing indicator")
	return nil
}

// handleStatus surfaces a connection-status change as a notice node.
func (p *Pipeline) handleStatus(msg *dispatch.QueuedMessage) error {
	status, ok := msg.Data.(transport.Status)
	if !ok {
		return fmt.Errorf("status message %s carries %T", msg.ID, msg.Data)
	}
	p.primary.RenderNotice(fmt.Sprintf("*Connection %s*", status))
	return nil
}

// handleError surfaces transport and subscriber errors to the user. This is
// the only error class that reaches the conversation; everything recoverable
// was already absorbed upstream.
func (p *Pipeline) handleError(msg *dispatch.QueuedMessage) error {
	var text string
	switch data := msg.Data.(type) {
	case error:
		text = data.Error()
	case string:
		text = data
	default:
		text = fmt.Sprintf("%v", data)
	}
	p.primary.RenderNotice(fmt.Sprintf("**Error:** %s", text))
	return nil
}

// =============================================================================
// LIFECYCLE EVENTS
// =============================================================================

// emitEvent broadcasts one instrumentation event through the queue.
func (p *Pipeline) emitEvent(t dispatch.MessageType, msg *dispatch.QueuedMessage, err error) {
	p.queue.Enqueue(&dispatch.QueuedMessage{
		Source:   "pipeline",
		Type:     t,
		Priority: dispatch.PriorityLifecycle,
		Data:     dispatch.LifecycleEvent{MessageID: msg.ID, MessageType: msg.Type, Err: err},
	})
}

// notifyRendered broadcasts the rendered notification for a completed node.
func (p *Pipeline) notifyRendered(act activity.Activity, node *render.Node) {
	p.queue.Enqueue(&dispatch.QueuedMessage{
		Source:   "pipeline",
		Type:     dispatch.TypeMessageRendered,
		Priority: dispatch.PriorityLifecycle,
		Data:     Rendered{Activity: act, Node: node},
	})
}
