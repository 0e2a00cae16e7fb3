// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport adapts an external activity source to the dispatch queue.
package transport

import "github.com/jeranaias/relay-tui/internal/activity"

// =============================================================================
// CONNECTION STATUS
// =============================================================================

// Status is the connection state reported by a transport.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusOnline       Status = "online"
	StatusReconnecting Status = "reconnecting"
	StatusOffline      Status = "offline"
	StatusFailed       Status = "failed"
)

// =============================================================================
// TRANSPORT CONTRACT
// =============================================================================

// Transport is the external collaborator that owns the connection. It hands
// the pipeline well-formed activity envelopes and connection events through
// three callbacks; establishing, authenticating, and retrying the connection
// are entirely its business.
type Transport interface {
	// OnActivity registers the callback for inbound activities.
	OnActivity(func(activity.Activity))

	// OnStatus registers the callback for connection-status changes.
	OnStatus(func(Status))

	// OnError registers the callback for transport errors.
	OnError(func(error))
}
