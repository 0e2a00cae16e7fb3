// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/render"
	"github.com/jeranaias/relay-tui/internal/transport"
)

// =============================================================================
// LAYOUT
// =============================================================================

// renderChat assembles the full view: header, message viewport, input area,
// status bar.
func (m Model) renderChat() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(m.width).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return b.String()
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("relay")
	return m.theme.Header.Width(m.width).Render(title + " chat")
}

func (m Model) renderStatusBar() string {
	var status string
	switch m.connection {
	case transport.StatusOnline:
		status = m.theme.StatusOK.Render("online")
	case transport.StatusConnecting, transport.StatusReconnecting:
		status = m.theme.StatusWarn.Render(string(m.connection))
	case transport.StatusOffline, transport.StatusFailed:
		status = m.theme.StatusErr.Render(string(m.connection))
	default:
		status = string(m.connection)
	}

	line := status
	if m.lastError != "" {
		line += "  " + m.theme.StatusErr.Render(m.lastError)
	}
	return m.theme.StatusBar.Width(m.width).Render(line)
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// renderMessages flattens both surfaces into viewport content. The primary
// surface comes first; companion nodes follow at full width.
func (m Model) renderMessages() string {
	var sections []string

	for _, node := range m.primary.Nodes() {
		sections = append(sections, m.renderNode(node))
	}

	if m.companion != nil && m.companion.Len() > 0 {
		for _, node := range m.companion.Nodes() {
			sections = append(sections, m.renderNode(node))
		}
	}

	return strings.Join(sections, "\n\n")
}

// renderNode renders one message node with its metadata lines.
func (m Model) renderNode(node *render.Node) string {
	body := node.Rendered
	if body == "" {
		body = node.Raw
	}
	body = strings.TrimRight(body, "\n")

	var style lipgloss.Style
	switch {
	case node.IsNotice:
		style = m.theme.NoticeBubble
	case node.IsCompanion:
		style = m.theme.CompanionPanel.Width(m.bubbleWidth(true))
	case node.IsUser:
		style = m.theme.UserBubble.MaxWidth(m.bubbleWidth(false))
	default:
		style = m.theme.BotBubble.MaxWidth(m.bubbleWidth(false))
	}

	bubble := style.Render(body)

	var extra []string
	snippetWidth := config.Global().Citations.SnippetMaxWidth
	for _, g := range node.Citations {
		extra = append(extra, m.theme.Citation.Render(g.Marker()))
		// A terminal has no hover, so the source snippets render inline
		// under their marker, truncated to the configured width.
		if tip := g.Tooltip(snippetWidth); tip != "" {
			for _, line := range strings.Split(tip, "\n") {
				extra = append(extra, m.theme.Citation.Render("  "+line))
			}
		}
	}
	if len(node.Actions) > 0 {
		var actions []string
		for _, a := range node.Actions {
			actions = append(actions, m.theme.Action.Render(a.Title))
		}
		extra = append(extra, lipgloss.JoinHorizontal(lipgloss.Top, actions...))
	}
	if node.Elapsed > 0 {
		extra = append(extra, m.theme.Elapsed.Render(
			fmt.Sprintf("%.1fs", node.Elapsed.Seconds())))
	}

	if len(extra) == 0 {
		return bubble
	}
	return bubble + "\n" + strings.Join(extra, "\n")
}

// bubbleWidth caps message width. Companion messages get the full terminal
// width; ordinary bubbles leave side margins.
func (m Model) bubbleWidth(companion bool) int {
	w := m.width
	if w <= 0 {
		w = 80
	}
	if companion {
		return w - 4
	}
	capped := w * 3 / 4
	if capped < 20 {
		capped = 20
	}
	return capped
}
