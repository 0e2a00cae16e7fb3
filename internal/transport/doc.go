// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package transport is the boundary between an external activity source and
the dispatch queue.

The Transport interface is the collaborator contract: anything that can hand
over activity envelopes, connection-status changes, and errors through three
callbacks. The Adapter wires those callbacks into prioritized enqueues
(user messages outrank bot messages, control signals outrank all content)
and nothing more; connection management and retry stay on the transport's
side of the boundary. Scripted is an in-repo transport replaying a fixed
sequence, used by the demo client and tests.
*/
package transport
