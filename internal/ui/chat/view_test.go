// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/relay-tui/internal/activity"
	"github.com/jeranaias/relay-tui/internal/citation"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/dispatch"
	"github.com/jeranaias/relay-tui/internal/render"
	"github.com/jeranaias/relay-tui/internal/transport"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

func newTestModel(t *testing.T) (Model, *render.Target) {
	t.Helper()
	primary := render.NewTarget("primary", time.Second, zerolog.Nop())
	m := New(styles.NewTheme(), nil, primary, nil)
	m.width = 80
	m.height = 24
	return m, primary
}

func insertNode(tgt *render.Target, from, text string) *render.Node {
	act := activity.New(from, text)
	node := render.NewNode(act, time.Now)
	node.Rendered = text
	tgt.Insert(node)
	return node
}

func TestRenderMessagesShowsNodeText(t *testing.T) {
	m, primary := newTestModel(t)
	insertNode(primary, activity.SenderUser, "hello bot")
	insertNode(primary, "bot", "hello user")

	out := m.renderMessages()
	if !strings.Contains(out, "hello bot") {
		t.Error("user message text missing from view")
	}
	if !strings.Contains(out, "hello user") {
		t.Error("bot message text missing from view")
	}
}

func TestRenderNodeIncludesCitationMarkers(t *testing.T) {
	m, primary := newTestModel(t)
	node := insertNode(primary, "bot", "see the handbook")
	node.Citations = []citation.Group{
		{SourceDocument: "handbook.pdf", Index: 1, Pages: []int{3}},
	}

	out := m.renderNode(node)
	if !strings.Contains(out, "handbook.pdf") {
		t.Errorf("citation marker missing:\n%s", out)
	}
}

func TestRenderNodeShowsCitationSnippets(t *testing.T) {
	config.SetGlobal(config.DefaultConfig())
	t.Cleanup(config.ResetGlobalForTesting)

	m, primary := newTestModel(t)
	node := insertNode(primary, "bot", "see the handbook")
	node.Citations = []citation.Group{
		{
			SourceDocument: "handbook.pdf",
			Index:          1,
			Pages:          []int{3},
			Citations: []citation.Citation{
				{Content: "Remote work is permitted three days per week."},
			},
		},
	}

	out := m.renderNode(node)
	if !strings.Contains(out, "Remote work is permitted three days per week.") {
		t.Errorf("citation snippet missing:\n%s", out)
	}
}

func TestRenderNodeTruncatesLongSnippets(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Citations.SnippetMaxWidth = 20
	config.SetGlobal(cfg)
	t.Cleanup(config.ResetGlobalForTesting)

	m, primary := newTestModel(t)
	node := insertNode(primary, "bot", "see the handbook")
	node.Citations = []citation.Group{
		{
			SourceDocument: "handbook.pdf",
			Index:          1,
			Citations: []citation.Citation{
				{Content: strings.Repeat("policy ", 30)},
			},
		},
	}

	out := m.renderNode(node)
	if strings.Contains(out, strings.Repeat("policy ", 10)) {
		t.Errorf("snippet not truncated to the configured width:\n%s", out)
	}
}

func TestRenderNodeIncludesElapsed(t *testing.T) {
	m, primary := newTestModel(t)
	node := insertNode(primary, "bot", "streamed reply")
	node.Elapsed = 2500 * time.Millisecond

	out := m.renderNode(node)
	if !strings.Contains(out, "2.5s") {
		t.Errorf("elapsed label missing:\n%s", out)
	}
}

func TestCompanionNodesRenderAfterPrimary(t *testing.T) {
	primary := render.NewTarget("primary", time.Second, zerolog.Nop())
	companion := render.NewTarget("companion", time.Second, zerolog.Nop())
	m := New(styles.NewTheme(), nil, primary, companion)
	m.width = 80

	insertNode(primary, "bot", "primary text")
	insertNode(companion, "bot", "companion text")

	out := m.renderMessages()
	pi := strings.Index(out, "primary text")
	ci := strings.Index(out, "companion text")
	if pi < 0 || ci < 0 {
		t.Fatalf("missing surface content:\n%s", out)
	}
	if ci < pi {
		t.Error("companion content rendered before primary")
	}
}

func TestStatusBarReflectsConnection(t *testing.T) {
	m, _ := newTestModel(t)

	m.connection = transport.StatusOnline
	if !strings.Contains(m.renderStatusBar(), "online") {
		t.Error("status bar missing online state")
	}

	m.connection = transport.StatusReconnecting
	if !strings.Contains(m.renderStatusBar(), "reconnecting") {
		t.Error("status bar missing reconnecting state")
	}
}

func TestSubmitInputEnqueuesUserMessage(t *testing.T) {
	queue := dispatch.New(0, zerolog.Nop())
	defer queue.Close()

	got := make(chan activity.Activity, 1)
	queue.Subscribe(dispatch.TypeUserMessage, func(msg *dispatch.QueuedMessage) error {
		if act, ok := msg.Data.(activity.Activity); ok {
			got <- act
		}
		return nil
	})

	primary := render.NewTarget("primary", time.Second, zerolog.Nop())
	m := New(styles.NewTheme(), queue, primary, nil)
	m.input.SetValue("  hello there  ")

	updated, _ := m.submitInput()
	queue.Wait()

	select {
	case act := <-got:
		if act.Text != "hello there" {
			t.Errorf("text = %q, want trimmed input", act.Text)
		}
		if !act.IsFromUser() {
			t.Error("submitted activity not marked as user")
		}
	default:
		t.Fatal("no user message enqueued")
	}

	if cm, ok := updated.(Model); ok {
		if cm.input.Value() != "" {
			t.Error("input not cleared after submit")
		}
	}
}

func TestUpdateHandlesRefresh(t *testing.T) {
	m, primary := newTestModel(t)
	insertNode(primary, "bot", "fresh content")

	updated, _ := m.Update(RefreshMsg{MessageID: "m1"})
	cm := updated.(Model)
	if !strings.Contains(cm.viewport.View(), "fresh content") {
		t.Error("viewport not refreshed")
	}
}

func TestUpdateQuitKeys(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command for ctrl+c")
	}
}
