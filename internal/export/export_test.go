// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/relay-tui/internal/storage"
)

func sampleTranscript() *storage.Transcript {
	now := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	return &storage.Transcript{
		ID:        "tr_test",
		Title:     "benefits question",
		Surface:   "primary",
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []storage.TranscriptMessage{
			{ID: "m1", Role: "user", Text: "what does the handbook say?", Timestamp: now},
			{
				ID: "m2", Role: "assistant", Text: "Three remote days per week [1].",
				Timestamp: now.Add(2 * time.Second),
				Sources:   []string{"[1] handbook.pdf (page 12)"},
				ElapsedMs: 1850,
			},
		},
	}
}

func TestMarkdownExportContent(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"title: benefits question",
		"[User]",
		"[Assistant]",
		"what does the handbook say?",
		"[1] handbook.pdf (page 12)",
		"Response time: 1.85s",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	opts := &Options{IncludeMetadata: false, IncludeTimestamps: false}
	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(out)

	if strings.Contains(md, "---\ntitle:") {
		t.Error("frontmatter present despite IncludeMetadata=false")
	}
	if strings.Contains(md, "Session Information") {
		t.Error("metadata section present despite IncludeMetadata=false")
	}
}

func TestMarkdownExportRejectsEmpty(t *testing.T) {
	if _, err := NewMarkdownExporter(nil).Export(&storage.Transcript{}); err == nil {
		t.Error("expected error for empty transcript")
	}
	if _, err := NewMarkdownExporter(nil).Export(nil); err == nil {
		t.Error("expected error for nil transcript")
	}
}

func TestJSONExportRoundTrips(t *testing.T) {
	tr := sampleTranscript()
	out, err := NewJSONExporter().Export(tr)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded storage.Transcript
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.ID != tr.ID || len(decoded.Messages) != 2 {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestExportToFileWritesOutput(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportMarkdown(sampleTranscript(), opts)
	if err != nil {
		t.Fatalf("ExportMarkdown: %v", err)
	}
	if !strings.HasSuffix(path, ".md") {
		t.Errorf("unexpected extension: %s", path)
	}
	if !strings.Contains(path, "benefits_question") {
		t.Errorf("title not in filename: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if len(data) == 0 {
		t.Error("exported file is empty")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"simple":          "simple",
		"has space":       "has_space",
		"a/b\\c:d":        "a-b-c-d",
		"":                "transcript",
		"quo\"te<br>|end": "quo-te-br--end",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
