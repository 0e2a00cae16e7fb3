// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package render owns the display surfaces of the pipeline.

A Target is one ordered list of rendered message nodes (the primary
conversation surface or the companion surface). Insert places each new node
in chronologically correct position even when delivery was jittered or out of
order: the scan finds the first strictly-newer node, and timestamps within
the configurable tie window defer to arrival order instead.

Markdown wraps glamour for rich-text bodies; any rendering failure degrades
to plain paragraph wrapping and never aborts a message.
*/
package render
