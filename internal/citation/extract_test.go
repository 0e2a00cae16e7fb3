// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/relay-tui/internal/activity"
)

func newTestExtractor() *Extractor {
	return NewExtractor(zerolog.Nop())
}

func rawEntities(entities ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(entities))
	for i, e := range entities {
		out[i] = json.RawMessage(e)
	}
	return out
}

// =============================================================================
// ENCODING: MESSAGE ENTITIES
// =============================================================================

func TestExtractMessageEntity(t *testing.T) {
	act := activity.Activity{
		Entities: rawEntities(`{
			"@type": "Message",
			"type": "https://schema.org/Message",
			"citation": [
				{
					"position": 1,
					"appearance": {
						"@type": "DigitalDocument",
						"name": "benefits-guide.pdf",
						"abstract": "Employees accrue leave monthly. Source: benefits-guide.pdf, page 12",
						"url": "https://docs.example.com/benefits-guide.pdf"
					}
				}
			]
		}`),
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "benefits-guide.pdf", g.SourceDocument)
	assert.Equal(t, []int{12}, g.Pages)
	require.Len(t, g.Citations, 1)
	assert.Equal(t, OriginMessageEntity, g.Citations[0].Origin)
	assert.Equal(t, "https://docs.example.com/benefits-guide.pdf", g.Ref())
}

func TestExtractMessageEntityFilenameFallback(t *testing.T) {
	// No explicit "source:" token; the filename in the abstract is mined.
	act := activity.Activity{
		Entities: rawEntities(`{
			"@type": "Message",
			"citation": [
				{"appearance": {"abstract": "See handbook.docx page 3 for details"}}
			]
		}`),
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Equal(t, "handbook.docx", groups[0].SourceDocument)
	assert.Equal(t, []int{3}, groups[0].Pages)
}

// =============================================================================
// ENCODING: CLAIM ENTITIES
// =============================================================================

func TestExtractClaimEntity(t *testing.T) {
	act := activity.Activity{
		Entities: rawEntities(`{
			"@type": "Claim",
			"text": "Source: policy.pdf; pageNumber: 4. Remote work requires approval.",
			"url": "https://docs.example.com/policy.pdf"
		}`),
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Equal(t, "policy.pdf", groups[0].SourceDocument)
	assert.Equal(t, []int{4}, groups[0].Pages)
	assert.Equal(t, OriginClaimEntity, groups[0].Citations[0].Origin)
}

// =============================================================================
// ENCODING: FEEDBACK CITATIONS
// =============================================================================

func TestExtractFeedbackCitations(t *testing.T) {
	act := activity.Activity{
		ChannelData: json.RawMessage(`{
			"feedbackLoop": {
				"properties": {
					"textCitations": [
						{"id": "faq.md", "text": "Answers live in faq.md page 2", "url": "https://wiki.example.com/faq"},
						{"id": "faq.md", "text": "More answers, faq.md page 7", "url": ""}
					]
				}
			}
		}`),
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Equal(t, "faq.md", groups[0].SourceDocument)
	assert.Equal(t, []int{2, 7}, groups[0].Pages)
	assert.Equal(t, "https://wiki.example.com/faq", groups[0].Ref())
}

// =============================================================================
// ENCODING: LEGACY INLINE JSON
// =============================================================================

func TestExtractLegacyInlineJSON(t *testing.T) {
	act := activity.Activity{
		Text: `Here is the answer. [{"SourceDocument": "audit.pdf", "ReferencePath": "https://files.example.com/audit.pdf", "PageNum": 9, "Content": "The audit was completed in March."}]`,
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Equal(t, "audit.pdf", groups[0].SourceDocument)
	assert.Equal(t, []int{9}, groups[0].Pages)
	assert.Equal(t, OriginInlineJSON, groups[0].Citations[0].Origin)
}

func TestExtractLegacyInlineJSONQuotedPage(t *testing.T) {
	act := activity.Activity{
		Text: `[{"SourceDocument": "audit.pdf", "PageNum": "9"}]`,
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{9}, groups[0].Pages)
}

func TestExtractLegacyInlineJSONRepaired(t *testing.T) {
	// Trailing comma: invalid JSON that jsonrepair can fix.
	act := activity.Activity{
		Text: `[{"SourceDocument": "audit.pdf", "PageNum": 9,}]`,
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Equal(t, "audit.pdf", groups[0].SourceDocument)
}

func TestExtractInlineIgnoredWhenEntitiesPresent(t *testing.T) {
	// The inline path is a fallback: with a structured entity present, an
	// array in the body text must not contribute.
	act := activity.Activity{
		Text: `[{"SourceDocument": "stale.pdf", "PageNum": 1}]`,
		Entities: rawEntities(`{
			"@type": "Claim",
			"text": "Source: fresh.pdf, page 2"
		}`),
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Equal(t, "fresh.pdf", groups[0].SourceDocument)
}

// =============================================================================
// ENCODING: ATTACHMENT JSON
// =============================================================================

func TestExtractAttachmentCitations(t *testing.T) {
	act := activity.Activity{
		Attachments: []activity.Attachment{
			{
				ContentType: "application/json",
				Content:     json.RawMessage(`[{"SourceDocument": "spec.pdf", "PageNum": 1, "Content": "Attached evidence."}]`),
			},
			{ContentType: "image/png", ContentURL: "https://img.example.com/x.png"},
		},
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Equal(t, "spec.pdf", groups[0].SourceDocument)
	assert.Equal(t, OriginAttachment, groups[0].Citations[0].Origin)
}

// =============================================================================
// CROSS-ENCODING BEHAVIOR
// =============================================================================

func TestExtractDedupAcrossEncodings(t *testing.T) {
	// The same (doc, page, content) triple via a structured entity and an
	// attachment payload must collapse to one citation.
	act := activity.Activity{
		Entities: rawEntities(`{
			"@type": "Claim",
			"text": "Source: audit.pdf, page 9"
		}`),
		Attachments: []activity.Attachment{
			{
				ContentType: "application/json",
				Content:     json.RawMessage(`[{"SourceDocument": "audit.pdf", "PageNum": 9, "Content": "Source: audit.pdf, page 9"}]`),
			},
		},
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Citations, 1)
}

func TestExtractMalformedEncodingFallsThrough(t *testing.T) {
	// A broken entity must not block extraction from other carriers.
	act := activity.Activity{
		Entities:    rawEntities(`{not json at all`),
		ChannelData: json.RawMessage(`{"feedbackLoop": "also wrong shape"}`),
		Text:        `[{"SourceDocument": "survivor.pdf", "PageNum": 2}]`,
	}

	groups := newTestExtractor().Extract(act)
	require.Len(t, groups, 1)
	assert.Equal(t, "survivor.pdf", groups[0].SourceDocument)
}

func TestExtractNothing(t *testing.T) {
	act := activity.Activity{Text: "Just a plain answer with no references."}
	assert.Empty(t, newTestExtractor().Extract(act))
}

// =============================================================================
// LINKIFY AND STRIP
// =============================================================================

func TestLinkify(t *testing.T) {
	groups := []Group{
		{Index: 1, SourceDocument: "a.pdf", Citations: []Citation{{ReferencePath: "https://x/a.pdf"}}},
		{Index: 2, SourceDocument: "b.pdf"}, // no ref path
	}

	got := Linkify("See [1] and [2] and [9].", groups)
	assert.Equal(t, "See [1](https://x/a.pdf) and [2] and [9].", got)
}

func TestLinkifyNoGroups(t *testing.T) {
	assert.Equal(t, "Plain [1] text", Linkify("Plain [1] text", nil))
}

func TestStripInlinePayload(t *testing.T) {
	text := `The audit finished. [{"SourceDocument": "audit.pdf", "PageNum": 9}]`
	assert.Equal(t, "The audit finished.", StripInlinePayload(text))
}

func TestStripInlinePayloadLeavesOrdinaryArrays(t *testing.T) {
	text := `Example config: [{"name": "retries", "value": 3}]`
	assert.Equal(t, text, StripInlinePayload(text))
}
