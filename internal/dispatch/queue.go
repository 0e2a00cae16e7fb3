// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch provides the priority-ordered, single-consumer message
// queue decoupling transport ingestion from rendering.
package dispatch

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// SubscriptionID identifies one registered handler.
type SubscriptionID string

// Handler processes one dequeued message. Returning an error (or panicking)
// is isolated to the subscriber and reported as an error-typed side event.
type Handler func(msg *QueuedMessage) error

// subscription is one registered handler with its dispatch options.
type subscription struct {
	id       SubscriptionID
	seq      int // registration order, for stable same-priority ordering
	priority int
	filter   func(*QueuedMessage) bool
	handler  Handler
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscription)

// WithPriority sets the subscriber priority; higher-priority subscribers of
// the same message type are invoked first.
func WithPriority(p int) SubscribeOption {
	return func(s *subscription) { s.priority = p }
}

// WithFilter restricts the subscription to messages the predicate accepts.
func WithFilter(f func(*QueuedMessage) bool) SubscribeOption {
	return func(s *subscription) { s.filter = f }
}

// =============================================================================
// QUEUE
// =============================================================================

// Queue is the asynchronous dispatch queue. Messages are drained by a single
// goroutine in descending priority, FIFO within a priority, one at a time,
// with a short pause between messages to yield back to the render surface.
//
// The single-drain design gives downstream render state exactly one writer:
// everything the consumer side mutates is touched from this goroutine.
type Queue struct {
	mu     sync.Mutex
	buffer []*QueuedMessage
	subs   map[MessageType][]*subscription
	subSeq int
	closed bool

	wake chan struct{}
	done chan struct{}
	idle sync.WaitGroup // tracks in-flight buffered messages

	drainDelay time.Duration
	sleep      func(time.Duration) // injectable for tests
	log        zerolog.Logger
}

// New creates a queue and starts its drain goroutine.
// drainDelay is the fixed pause between dequeued messages.
func New(drainDelay time.Duration, log zerolog.Logger) *Queue {
	q := &Queue{
		subs:       make(map[MessageType][]*subscription),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		drainDelay: drainDelay,
		sleep:      time.Sleep,
		log:        log,
	}
	go q.run()
	return q
}

// Subscribe registers a handler for a message type (TypeAny for all types)
// and returns its subscription ID.
func (q *Queue) Subscribe(t MessageType, h Handler, opts ...SubscribeOption) SubscriptionID {
	sub := &subscription{
		id:      SubscriptionID("sub_" + uuid.NewString()),
		handler: h,
	}
	for _, opt := range opts {
		opt(sub)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	sub.seq = q.subSeq
	q.subSeq++
	q.subs[t] = append(q.subs[t], sub)
	// Keep the list in invocation order: priority desc, registration order
	// within a priority.
	sort.SliceStable(q.subs[t], func(i, j int) bool {
		if q.subs[t][i].priority != q.subs[t][j].priority {
			return q.subs[t][i].priority > q.subs[t][j].priority
		}
		return q.subs[t][i].seq < q.subs[t][j].seq
	})
	return sub.id
}

// Unsubscribe removes a handler. Returns true if it was registered.
func (q *Queue) Unsubscribe(t MessageType, id SubscriptionID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.subs[t]
	for i, sub := range list {
		if sub.id == id {
			q.subs[t] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Enqueue adds a message to the queue and returns its ID.
// Messages enqueued after Close are dropped (logged, not an error).
func (q *Queue) Enqueue(msg *QueuedMessage) string {
	if msg.ID == "" {
		msg.ID = generateMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.Warn().Str("type", string(msg.Type)).Msg("enqueue on closed queue dropped")
		return msg.ID
	}
	q.insertLocked(msg)
	q.idle.Add(1)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return msg.ID
}

// insertLocked places msg before the first buffered message with strictly
// lower priority. Equal priorities keep enqueue order, so the buffer is a
// stable priority order. Caller holds q.mu.
func (q *Queue) insertLocked(msg *QueuedMessage) {
	at := len(q.buffer)
	for i, m := range q.buffer {
		if m.Priority < msg.Priority {
			at = i
			break
		}
	}
	q.buffer = append(q.buffer, nil)
	copy(q.buffer[at+1:], q.buffer[at:])
	q.buffer[at] = msg
}

// Pending returns the number of buffered, not-yet-dispatched messages.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}

// Wait blocks until every message enqueued so far has been dispatched.
// Intended for tests and shutdown paths.
func (q *Queue) Wait() {
	q.idle.Wait()
}

// Close stops the drain loop after the current backlog empties.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.done)
}

// =============================================================================
// DRAIN LOOP
// =============================================================================

// run is the single consumer. It pops the highest-priority message, delivers
// it to subscribers (awaiting each handler before advancing), pauses, and
// repeats. After Close it finishes the backlog and exits.
func (q *Queue) run() {
	for {
		if msg, ok := q.pop(); ok {
			q.deliver(msg)
			q.pause()
			continue
		}
		select {
		case <-q.wake:
		case <-q.done:
			for {
				msg, ok := q.pop()
				if !ok {
					return
				}
				q.deliver(msg)
			}
		}
	}
}

func (q *Queue) pop() (*QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buffer) == 0 {
		return nil, false
	}
	msg := q.buffer[0]
	q.buffer = q.buffer[1:]
	return msg, true
}

func (q *Queue) pause() {
	if q.drainDelay > 0 {
		q.sleep(q.drainDelay)
	}
}

// deliver emits msg to subscribers of its specific type, then to TypeAny
// subscribers. Each handler failure is isolated and reported as an
// error-typed side event; the drain loop always continues.
func (q *Queue) deliver(msg *QueuedMessage) {
	defer q.idle.Done()

	for _, sub := range q.snapshot(msg.Type) {
		q.dispatchTo(sub, msg)
	}
	if msg.Type != TypeAny {
		for _, sub := range q.snapshot(TypeAny) {
			q.dispatchTo(sub, msg)
		}
	}
}

// snapshot copies the subscriber list so handlers may subscribe/unsubscribe
// without invalidating the iteration.
func (q *Queue) snapshot(t MessageType) []*subscription {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*subscription, len(q.subs[t]))
	copy(out, q.subs[t])
	return out
}

func (q *Queue) dispatchTo(sub *subscription, msg *QueuedMessage) {
	if sub.filter != nil && !sub.filter(msg) {
		return
	}
	if err := q.invoke(sub, msg); err != nil {
		q.log.Warn().
			Err(err).
			Str("subscription", string(sub.id)).
			Str("message_id", msg.ID).
			Str("type", string(msg.Type)).
			Msg("subscriber failed")
		q.reportSubscriberError(sub, msg, err)
	}
}

// invoke runs one handler, converting a panic into an error so a broken
// subscriber cannot take down the drain loop.
func (q *Queue) invoke(sub *subscription, msg *QueuedMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(msg)
}

// reportSubscriberError enqueues an error-typed side event for a handler
// failure. Failures while handling error-typed messages are only logged,
// otherwise a failing error subscriber would feed itself forever.
func (q *Queue) reportSubscriberError(sub *subscription, msg *QueuedMessage, err error) {
	if msg.Type == TypeError {
		return
	}
	q.Enqueue(&QueuedMessage{
		Source:   "dispatch",
		Type:     TypeError,
		Priority: PriorityError,
		Data: SubscriberError{
			SubscriptionID: sub.id,
			MessageID:      msg.ID,
			MessageType:    msg.Type,
			Err:            err,
		},
	})
}
