// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport adapts an external activity source to the dispatch queue.
package transport

import (
	"time"

	"github.com/jeranaias/relay-tui/internal/activity"
)

// =============================================================================
// SCRIPTED TRANSPORT
// =============================================================================

// Step is one scripted transport emission.
type Step struct {
	// Delay before this step fires.
	Delay time.Duration

	// Exactly one of the following is emitted.
	Activity *activity.Activity
	Status   *Status
	Err      error
}

// Scripted replays a fixed sequence of activities and connection events.
// It backs the demo client and integration tests; it is also the reference
// for what a real transport implementation must provide.
type Scripted struct {
	steps []Step

	onActivity func(activity.Activity)
	onStatus   func(Status)
	onError    func(error)
}

// NewScripted creates a scripted transport from a step sequence.
func NewScripted(steps []Step) *Scripted {
	return &Scripted{steps: steps}
}

// OnActivity registers the activity callback.
func (s *Scripted) OnActivity(fn func(activity.Activity)) { s.onActivity = fn }

// OnStatus registers the status callback.
func (s *Scripted) OnStatus(fn func(Status)) { s.onStatus = fn }

// OnError registers the error callback.
func (s *Scripted) OnError(fn func(error)) { s.onError = fn }

// Run replays the script, honoring each step's delay. Blocking; callers run
// it on its own goroutine.
func (s *Scripted) Run() {
	for _, step := range s.steps {
		if step.Delay > 0 {
			time.Sleep(step.Delay)
		}
		switch {
		case step.Activity != nil && s.onActivity != nil:
			s.onActivity(*step.Activity)
		case step.Status != nil && s.onStatus != nil:
			s.onStatus(*step.Status)
		case step.Err != nil && s.onError != nil:
			s.onError(step.Err)
		}
	}
}
