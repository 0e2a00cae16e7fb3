// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation normalizes document references from heterogeneous
// upstream encodings into one model, deduplicates them, and groups them by
// source document for display.
package citation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// CITATION MODEL
// =============================================================================

// Origin tags which upstream encoding a citation was decoded from.
type Origin string

const (
	OriginMessageEntity Origin = "message-entity"
	OriginClaimEntity   Origin = "claim-entity"
	OriginFeedback      Origin = "feedback-citation"
	OriginInlineJSON    Origin = "legacy-inline-json"
	OriginAttachment    Origin = "attachment-json"
)

// Citation is one normalized reference record.
type Citation struct {
	Content        string
	SourceDocument string
	PageNumber     int // 0 = no page
	ReferencePath  string
	Position       int
	Origin         Origin
}

// key is the identity used for deduplication: two citations are duplicates
// iff source document, page number, and content are all equal.
type key struct {
	doc     string
	page    int
	content string
}

// Dedup collapses duplicate citations, preserving first-seen order.
func Dedup(cites []Citation) []Citation {
	seen := make(map[key]bool, len(cites))
	out := make([]Citation, 0, len(cites))
	for _, c := range cites {
		k := key{doc: c.SourceDocument, page: c.PageNumber, content: c.Content}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

// =============================================================================
// GROUPS
// =============================================================================

// Group buckets the citations of one source document. Index is the 1-based
// marker number, assigned in first-seen document order.
type Group struct {
	SourceDocument string
	Citations      []Citation
	Pages          []int // sorted, unique, zero pages excluded
	Index          int
}

// GroupBySource buckets citations by source document, first-seen order.
// Input should already be deduplicated.
func GroupBySource(cites []Citation) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, c := range cites {
		i, ok := index[c.SourceDocument]
		if !ok {
			i = len(groups)
			index[c.SourceDocument] = i
			groups = append(groups, Group{
				SourceDocument: c.SourceDocument,
				Index:          i + 1,
			})
		}
		groups[i].Citations = append(groups[i].Citations, c)
		if c.PageNumber > 0 {
			groups[i].Pages = append(groups[i].Pages, c.PageNumber)
		}
	}

	for i := range groups {
		groups[i].Pages = sortedUnique(groups[i].Pages)
	}
	return groups
}

func sortedUnique(pages []int) []int {
	if len(pages) == 0 {
		return pages
	}
	sort.Ints(pages)
	out := pages[:1]
	for _, p := range pages[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// PageLabel renders the group's pages: "page 3" for one, "page 3, 7" for two,
// "pages 2, 5-6" (consecutive runs collapsed) for three or more.
func (g Group) PageLabel() string {
	switch len(g.Pages) {
	case 0:
		return ""
	case 1:
		return "page " + strconv.Itoa(g.Pages[0])
	case 2:
		return fmt.Sprintf("page %d, %d", g.Pages[0], g.Pages[1])
	default:
		return "pages " + formatRanges(g.Pages)
	}
}

// formatRanges collapses sorted unique pages into range descriptors,
// e.g. [2 5 6] -> "2, 5-6".
func formatRanges(pages []int) string {
	var parts []string
	start := pages[0]
	prev := pages[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, p := range pages[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()
	return strings.Join(parts, ", ")
}

// Marker renders the clickable inline marker, e.g. "[2] report.pdf (pages 2, 5-6)".
func (g Group) Marker() string {
	label := g.PageLabel()
	if label == "" {
		return fmt.Sprintf("[%d] %s", g.Index, g.SourceDocument)
	}
	return fmt.Sprintf("[%d] %s (%s)", g.Index, g.SourceDocument, label)
}

// Ref returns the first available reference path among the group's citations,
// empty if none carries one.
func (g Group) Ref() string {
	for _, c := range g.Citations {
		if c.ReferencePath != "" {
			return c.ReferencePath
		}
	}
	return ""
}

// Tooltip returns the underlying content snippets, one per line, each
// truncated to maxWidth display columns.
func (g Group) Tooltip(maxWidth int) string {
	var lines []string
	for _, c := range g.Citations {
		snippet := util.CollapseWhitespace(c.Content)
		if snippet == "" {
			continue
		}
		lines = append(lines, util.TruncateWidth(snippet, maxWidth))
	}
	return strings.Join(lines, "\n")
}
