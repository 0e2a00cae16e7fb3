// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation normalizes document references from heterogeneous
// upstream encodings into one model.
package citation

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog"

	"github.com/jeranaias/relay-tui/internal/activity"
)

// =============================================================================
// EXTRACTOR
// =============================================================================

// Extractor mines citations out of an activity's entities, channel data,
// body text, and attachments. Each encoding is attempted independently; a
// malformed payload in one encoding is logged and skipped, never fatal.
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor creates an extractor with the given diagnostic logger.
func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract returns the activity's citations, deduplicated and grouped by
// source document.
//
// Encodings contribute in priority order: schema "Message" entities, "Claim"
// entities, channel-data feedback citations, legacy inline JSON in the body
// (only when no structured encoding produced anything), and JSON attachments.
func (e *Extractor) Extract(act activity.Activity) []Group {
	var cites []Citation

	cites = append(cites, e.fromEntities(act.Entities)...)
	cites = append(cites, e.fromChannelData(act.ChannelData)...)

	// The inline-JSON path is a compatibility fallback: only engaged when the
	// body text is the sole carrier.
	if len(cites) == 0 {
		cites = append(cites, e.fromInlineJSON(act.Text)...)
	}
	cites = append(cites, e.fromAttachments(act.Attachments)...)

	return GroupBySource(Dedup(cites))
}

// =============================================================================
// TEXT MINING
// =============================================================================

var (
	// "source: quarterly-report.pdf" style token
	sourceTokenRe = regexp.MustCompile(`(?i)source\s*:\s*([^\n;,]+)`)
	// bare document filename, e.g. "handbook-v2.pdf"
	fileNameRe = regexp.MustCompile(`(?i)[\w()][\w\-.()]*\.(?:pdf|docx?|pptx?|xlsx?|txt|md)\b`)
	// "page 12", "page: 12", "pageNumber:12"
	pageRe = regexp.MustCompile(`(?i)\bpage(?:number)?\s*[:#]?\s*(\d+)`)
)

// mineSource pulls a source-document name out of free text: an explicit
// "source:" token wins, otherwise the first filename-looking token.
func mineSource(text string) string {
	if m := sourceTokenRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := fileNameRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	return ""
}

// minePage pulls a page number out of free text, 0 if absent.
func minePage(text string) int {
	m := pageRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// =============================================================================
// ENCODING 1+2: SCHEMA ENTITIES
// =============================================================================

// schemaEntity covers both "Message" entities (carrying a citation list) and
// standalone "Claim" entities. Unknown fields are ignored.
type schemaEntity struct {
	Type   string `json:"type"`
	AtType string `json:"@type"`

	// Message entity: list of claims with display appearance
	Citation []struct {
		Position   int `json:"position"`
		Appearance struct {
			Name     string `json:"name"`
			Abstract string `json:"abstract"`
			Text     string `json:"text"`
			URL      string `json:"url"`
		} `json:"appearance"`
	} `json:"citation"`

	// Claim entity: free text carrying source/page tokens
	Name string `json:"name"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

func (se schemaEntity) kind() string {
	for _, t := range []string{se.AtType, se.Type} {
		switch {
		case strings.Contains(t, "Message"):
			return "Message"
		case strings.Contains(t, "Claim"):
			return "Claim"
		}
	}
	return ""
}

// fromEntities decodes schema "Message" and "Claim" entities.
func (e *Extractor) fromEntities(entities []json.RawMessage) []Citation {
	var out []Citation
	for i, raw := range entities {
		var ent schemaEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			e.log.Debug().Err(err).Int("entity", i).Msg("unparseable entity skipped")
			continue
		}
		switch ent.kind() {
		case "Message":
			out = append(out, e.fromMessageEntity(ent)...)
		case "Claim":
			if c, ok := mineCitation(ent.Text, ent.Name, ent.URL, OriginClaimEntity); ok {
				c.Position = i + 1
				out = append(out, c)
			}
		}
	}
	return out
}

func (e *Extractor) fromMessageEntity(ent schemaEntity) []Citation {
	var out []Citation
	for _, claim := range ent.Citation {
		app := claim.Appearance
		body := app.Abstract
		if body == "" {
			body = app.Text
		}
		c, ok := mineCitation(body, app.Name, app.URL, OriginMessageEntity)
		if !ok {
			continue
		}
		c.Position = claim.Position
		out = append(out, c)
	}
	return out
}

// mineCitation builds a Citation from a free-text body plus optional display
// name and URL. Reports false when neither a source nor content is present.
func mineCitation(body, name, url string, origin Origin) (Citation, bool) {
	source := mineSource(body)
	if source == "" {
		source = mineSource(name)
	}
	if source == "" {
		source = strings.TrimSpace(name)
	}
	if source == "" && body == "" {
		return Citation{}, false
	}
	if source == "" {
		source = "unknown source"
	}
	page := minePage(body)
	if page == 0 {
		page = minePage(name)
	}
	return Citation{
		Content:        strings.TrimSpace(body),
		SourceDocument: source,
		PageNumber:     page,
		ReferencePath:  url,
		Origin:         origin,
	}, true
}

// =============================================================================
// ENCODING 3: CHANNEL-DATA FEEDBACK CITATIONS
// =============================================================================

// feedbackEnvelope is the nested channel-data shape carrying text citations:
// channelData.feedbackLoop.properties.textCitations[].
type feedbackEnvelope struct {
	FeedbackLoop struct {
		Properties struct {
			TextCitations []struct {
				ID   string `json:"id"`
				Text string `json:"text"`
				URL  string `json:"url"`
			} `json:"textCitations"`
		} `json:"properties"`
	} `json:"feedbackLoop"`
}

func (e *Extractor) fromChannelData(raw json.RawMessage) []Citation {
	if len(raw) == 0 {
		return nil
	}
	var env feedbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		e.log.Debug().Err(err).Msg("unparseable channel data skipped")
		return nil
	}

	var out []Citation
	for i, tc := range env.FeedbackLoop.Properties.TextCitations {
		source := mineSource(tc.Text)
		if source == "" {
			source = mineSource(tc.ID)
		}
		if source == "" {
			source = strings.TrimSpace(tc.ID)
		}
		if source == "" && tc.Text == "" {
			continue
		}
		if source == "" {
			source = "unknown source"
		}
		out = append(out, Citation{
			Content:        strings.TrimSpace(tc.Text),
			SourceDocument: source,
			PageNumber:     minePage(tc.Text),
			ReferencePath:  tc.URL,
			Position:       i + 1,
			Origin:         OriginFeedback,
		})
	}
	return out
}

// =============================================================================
// ENCODING 4: LEGACY INLINE JSON
// =============================================================================

// inlineArrayRe finds an embedded JSON array of objects in message text.
var inlineArrayRe = regexp.MustCompile(`(?s)\[\s*\{.*?\}\s*\]`)

// legacyCitation is the old inline payload shape. PageNum arrives as a
// number or a quoted string depending on the producer.
type legacyCitation struct {
	SourceDocument string          `json:"SourceDocument"`
	ReferencePath  string          `json:"ReferencePath"`
	PageNum        json.RawMessage `json:"PageNum"`
	Content        string          `json:"Content"`
	Text           string          `json:"Text"`
}

func (e *Extractor) fromInlineJSON(text string) []Citation {
	payload := inlineArrayRe.FindString(text)
	if payload == "" {
		return nil
	}
	return e.decodeLegacyArray(payload, OriginInlineJSON)
}

// decodeLegacyArray parses a legacy citation array. The payloads are
// LLM-emitted and frequently slightly malformed, so a failed parse gets one
// repair attempt before giving up.
func (e *Extractor) decodeLegacyArray(payload string, origin Origin) []Citation {
	var entries []legacyCitation
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			e.log.Debug().Err(err).Msg("legacy citation payload unparseable, skipped")
			return nil
		}
		if err := json.Unmarshal([]byte(repaired), &entries); err != nil {
			e.log.Debug().Err(err).Msg("legacy citation payload unparseable after repair, skipped")
			return nil
		}
	}

	var out []Citation
	for i, entry := range entries {
		if entry.SourceDocument == "" && entry.ReferencePath == "" {
			continue
		}
		content := entry.Content
		if content == "" {
			content = entry.Text
		}
		source := strings.TrimSpace(entry.SourceDocument)
		if source == "" {
			source = strings.TrimSpace(entry.ReferencePath)
		}
		out = append(out, Citation{
			Content:        strings.TrimSpace(content),
			SourceDocument: source,
			PageNumber:     decodePageNum(entry.PageNum),
			ReferencePath:  entry.ReferencePath,
			Position:       i + 1,
			Origin:         origin,
		})
	}
	return out
}

// decodePageNum accepts both numeric and quoted page numbers.
func decodePageNum(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// StripInlinePayload removes a legacy inline citation array from message
// text so the raw JSON never reaches the reader.
func StripInlinePayload(text string) string {
	payload := inlineArrayRe.FindString(text)
	if payload == "" {
		return text
	}
	// Only strip payloads that actually decode as legacy citations;
	// arbitrary JSON arrays in a code sample must survive.
	var entries []legacyCitation
	data := []byte(payload)
	if err := json.Unmarshal(data, &entries); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return text
		}
		if err := json.Unmarshal([]byte(repaired), &entries); err != nil {
			return text
		}
	}
	for _, entry := range entries {
		if entry.SourceDocument != "" || entry.ReferencePath != "" {
			return strings.TrimSpace(strings.Replace(text, payload, "", 1))
		}
	}
	return text
}

// =============================================================================
// ENCODING 5: ATTACHMENT-EMBEDDED JSON
// =============================================================================

func (e *Extractor) fromAttachments(attachments []activity.Attachment) []Citation {
	var out []Citation
	for _, att := range attachments {
		if !strings.Contains(strings.ToLower(att.ContentType), "json") {
			continue
		}
		if len(att.Content) == 0 {
			continue
		}
		out = append(out, e.decodeLegacyArray(string(att.Content), OriginAttachment)...)
	}
	return out
}

// =============================================================================
// INLINE REFERENCE LINKING
// =============================================================================

var inlineRefRe = regexp.MustCompile(`\[(\d+)\]`)

// Linkify cross-links inline numeric references ("[1]", "[2]", ...) in
// rendered text to their citation groups by rewriting them as markdown links
// to the group's reference path. References without a matching group or a
// reference path are left untouched.
func Linkify(text string, groups []Group) string {
	if len(groups) == 0 {
		return text
	}
	byIndex := make(map[int]Group, len(groups))
	for _, g := range groups {
		byIndex[g.Index] = g
	}
	return inlineRefRe.ReplaceAllStringFunc(text, func(match string) string {
		n, err := strconv.Atoi(inlineRefRe.FindStringSubmatch(match)[1])
		if err != nil {
			return match
		}
		g, ok := byIndex[n]
		if !ok || g.Ref() == "" {
			return match
		}
		return "[" + strconv.Itoa(n) + "](" + g.Ref() + ")"
	})
}
