// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package pipeline wires the pieces together on the consumer side of the
dispatch queue.

For each dequeued activity the pipeline picks the display surface (primary
or companion, by the activity's Companion flag), drives the streaming
lifecycle (append, finalize, simulated playback, or atomic render), and lets
the controller insert the resulting node chronologically and attach
citations. Around that work it broadcasts message:processing, message:done,
and message:error lifecycle events plus a message:rendered notification
carrying the activity and its node. Connection-status changes and errors
render as notice nodes on the primary surface.

Everything here runs on the queue's single drain goroutine: streaming
sessions have exactly one writer and need no locks, and render targets see
writes from this goroutine only, guarded by the target's lock so the UI can
read snapshots concurrently.
*/
package pipeline
