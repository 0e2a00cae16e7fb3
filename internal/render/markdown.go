// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render owns the ordered list of rendered message nodes.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// Markdown renders message bodies as terminal markdown, degrading to plain
// paragraph wrapping when the renderer fails. Rendering never aborts a
// message.
type Markdown struct {
	tr  *glamour.TermRenderer
	log zerolog.Logger
}

// NewMarkdown creates a markdown renderer wrapping at the given width.
// A glamour initialization failure is not fatal: the renderer falls back to
// plain text for every message.
func NewMarkdown(wordWrap int, log zerolog.Logger) *Markdown {
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		log.Warn().Err(err).Msg("markdown renderer unavailable, using plain text")
		tr = nil
	}
	return &Markdown{tr: tr, log: log}
}

// Render converts markdown text for display. Any failure degrades to plain
// paragraph wrapping.
func (m *Markdown) Render(text string) string {
	if m.tr == nil {
		return plainParagraphs(text)
	}
	out, err := m.tr.Render(text)
	if err != nil {
		m.log.Debug().Err(err).Msg("markdown render failed, plain fallback")
		return plainParagraphs(text)
	}
	return out
}

// plainParagraphs is the degradation path: paragraphs separated by blank
// lines, all markup left as-is.
func plainParagraphs(text string) string {
	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")
	for i, p := range paragraphs {
		paragraphs[i] = strings.TrimSpace(p)
	}
	return strings.Join(paragraphs, "\n\n") + "\n"
}
