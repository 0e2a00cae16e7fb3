// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package dispatch implements the asynchronous dispatch queue between the
transport adapter and the rendering pipeline.

The queue is priority-ordered and single-consumer: messages are buffered in
descending priority (FIFO within a priority), then drained one at a time by a
dedicated goroutine that awaits each subscriber before advancing and pauses
briefly between messages. Subscribers register per message type (or for all
types) with an optional priority and filter. A subscriber that returns an
error or panics is isolated: the failure is logged and reported as an
error-typed side event, and the drain loop continues.

Because there is exactly one drain goroutine, everything mutated from
subscriber handlers (the render target, the streaming session) is implicitly
serialized without further locking.
*/
package dispatch
