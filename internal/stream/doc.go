// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package stream implements the streaming lifecycle state machine.

A message body reaches its render target one of three ways:

  - Atomic render: Idle -> Atomic-Render, one complete activity.
  - Real streaming: Idle -> Streaming -> Finalizing -> Idle, driven by
    partial activities that either append deltas (realtime increments) or
    resend the whole accumulated string (cumulative providers).
  - Simulated streaming: the same lifecycle, but driven locally by replaying
    an already-complete string character by character with randomized delays.

At most one session is active per controller. Finalization re-renders with
the authoritative final text when it differs from the buffer, attaches
suggested actions, attachments, and citations, and records response time.
Finalize without an active session and any playback interruption both fall
back to an atomic render of the final activity; nothing in this package fails
a message outright.
*/
package stream
