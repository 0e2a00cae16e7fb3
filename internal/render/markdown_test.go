// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMarkdownRenderBasic(t *testing.T) {
	m := NewMarkdown(80, zerolog.Nop())
	out := m.Render("# Title\n\nSome **bold** text.")
	if out == "" {
		t.Fatal("Render returned empty output")
	}
	if !strings.Contains(out, "Title") {
		t.Errorf("rendered output lost heading text: %q", out)
	}
}

func TestMarkdownRenderMalformedNeverEmpty(t *testing.T) {
	m := NewMarkdown(80, zerolog.Nop())
	// Unterminated constructs must still produce output, not an error.
	for _, text := range []string{
		"```go\nunにおわりfunc {",
		"[broken link](",
		"| half | a | table",
	} {
		if out := m.Render(text); out == "" {
			t.Errorf("Render(%q) produced empty output", text)
		}
	}
}

func TestPlainParagraphFallback(t *testing.T) {
	m := &Markdown{log: zerolog.Nop()} // nil glamour renderer forces fallback
	out := m.Render("first paragraph\n\nsecond paragraph")
	if !strings.Contains(out, "first paragraph") || !strings.Contains(out, "second paragraph") {
		t.Errorf("fallback lost content: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("fallback output missing trailing newline")
	}
}
