// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists rendered conversations as transcript files.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/relay-tui/internal/render"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT TYPES
// =============================================================================

// Transcript is one persisted conversation surface.
type Transcript struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Surface   string    `json:"surface"` // render target name
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []TranscriptMessage `json:"messages"`
}

// TranscriptMessage is one persisted rendered node.
type TranscriptMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "notice"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Companion bool      `json:"companion,omitempty"`

	// Citation summary: one marker string per source group
	Sources []string `json:"sources,omitempty"`

	// Response-time metadata for streamed messages
	ElapsedMs int64 `json:"elapsed_ms,omitempty"`
}

// TranscriptMeta is the lightweight listing record.
type TranscriptMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Surface      string    `json:"surface"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ErrNotFound is returned when a transcript ID has no file.
var ErrNotFound = errors.New("transcript not found")

// =============================================================================
// STORE
// =============================================================================

// Store persists transcripts as JSON files, one per transcript.
type Store struct {
	// BaseDir is the transcript directory, default ~/.relay/transcripts/.
	BaseDir string

	// MaxTranscripts bounds stored transcripts (0 = unlimited); oldest are
	// deleted first.
	MaxTranscripts int
}

// NewStore creates a store under the user's home directory.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStoreWithDir(filepath.Join(home, ".relay", "transcripts"))
}

// NewStoreWithDir creates a store with an explicit directory.
func NewStoreWithDir(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{BaseDir: dir, MaxTranscripts: 100}, nil
}

// =============================================================================
// SAVE
// =============================================================================

// SaveTarget snapshots a render target into a transcript and persists it.
func (s *Store) SaveTarget(tgt *render.Target, title string) (string, error) {
	tr := &Transcript{
		Title:   title,
		Surface: tgt.Name,
	}
	for _, node := range tgt.Nodes() {
		tr.Messages = append(tr.Messages, fromNode(node))
	}
	return s.Save(tr)
}

// fromNode converts one rendered node into its persisted form. The raw text
// is stored, not the terminal-rendered body.
func fromNode(node *render.Node) TranscriptMessage {
	role := "assistant"
	switch {
	case node.IsUser:
		role = "user"
	case node.IsNotice:
		role = "notice"
	}

	msg := TranscriptMessage{
		ID:        node.MessageID,
		Role:      role,
		Text:      node.Raw,
		Timestamp: node.Timestamp,
		Companion: node.IsCompanion,
		ElapsedMs: node.Elapsed.Milliseconds(),
	}
	for _, g := range node.Citations {
		msg.Sources = append(msg.Sources, g.Marker())
	}
	return msg
}

// Save persists a transcript and returns its ID.
func (s *Store) Save(tr *Transcript) (string, error) {
	if tr.ID == "" {
		tr.ID = "tr_" + uuid.NewString()
	}
	if tr.Title == "" {
		tr.Title = defaultTitle(tr)
	}
	tr.UpdatedAt = time.Now()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = tr.UpdatedAt
	}

	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return "", err
	}
	if err := util.AtomicWriteFile(s.filePath(tr.ID), data, 0644); err != nil {
		return "", err
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}
	return tr.ID, nil
}

// defaultTitle derives a title from the first user message.
func defaultTitle(tr *Transcript) string {
	for _, msg := range tr.Messages {
		if msg.Role == "user" && msg.Text != "" {
			return util.TruncateRunes(util.CollapseWhitespace(msg.Text), 50)
		}
	}
	return "Conversation"
}

// enforceLimit deletes the oldest transcripts over the cap.
func (s *Store) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}
	// List is newest-first; everything past the cap goes.
	for _, meta := range metas[s.MaxTranscripts:] {
		_ = s.Delete(meta.ID)
	}
}

// =============================================================================
// LOAD / LIST / DELETE
// =============================================================================

// Load reads one transcript by ID.
func (s *Store) Load(id string) (*Transcript, error) {
	data, err := os.ReadFile(s.filePath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var tr Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("corrupt transcript %s: %w", id, err)
	}
	return &tr, nil
}

// List returns transcript metadata, newest first. Corrupt files are skipped,
// not fatal.
func (s *Store) List() ([]TranscriptMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return nil, err
	}

	var metas []TranscriptMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.BaseDir, entry.Name()))
		if err != nil {
			continue
		}
		var tr Transcript
		if err := json.Unmarshal(data, &tr); err != nil {
			continue
		}
		metas = append(metas, TranscriptMeta{
			ID:           tr.ID,
			Title:        tr.Title,
			Surface:      tr.Surface,
			MessageCount: len(tr.Messages),
			UpdatedAt:    tr.UpdatedAt,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes one transcript file.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.filePath(id))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

func (s *Store) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}
