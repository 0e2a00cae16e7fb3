// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the terminal chat view. It is a thin display layer: message
// ingestion, ordering, streaming, and citation extraction all happen in the
// pipeline on the dispatch queue's drain goroutine, and the view only reads
// node snapshots when a RefreshMsg tells it something changed. Typed input
// goes back out through the same queue as a user message activity.
package chat
