// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Transcript rendering for the chat view.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragbench-tui/internal/backend"
	"github.com/jeranaias/ragbench-tui/internal/model"
	"github.com/jeranaias/ragbench-tui/internal/refs"
	"github.com/jeranaias/ragbench-tui/internal/ui/styles"
)

// renderTranscript renders the whole conversation for the viewport.
// While a send is in flight the final message belongs to the streaming
// goroutine, so the latest snapshot is rendered in its place.
func (m *Model) renderTranscript() string {
	conv := m.controller.Conversation()
	if conv.MessageCount() == 0 {
		return m.renderWelcome()
	}

	var b strings.Builder
	last := len(conv.Messages) - 1
	for i, msg := range conv.Messages {
		if m.inFlight && i == last && msg.Role == model.RoleAssistant {
			msg = m.streamStandIn(msg)
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

// streamStandIn picks what to render for the in-flight assistant message:
// the latest snapshot when one has arrived, otherwise an empty streaming
// placeholder. Only the immutable identity fields of live are read.
func (m *Model) streamStandIn(live *model.Message) *model.Message {
	if m.stream != nil && m.stream.ID == live.ID {
		return m.stream
	}
	return &model.Message{
		ID:          live.ID,
		Role:        model.RoleAssistant,
		Timestamp:   live.Timestamp,
		IsStreaming: true,
	}
}

// renderMessage renders one message with its role label and body.
func (m *Model) renderMessage(msg *model.Message) string {
	bodyWidth := m.viewport.Width - 6
	if bodyWidth < 20 {
		bodyWidth = 20
	}

	switch msg.Role {
	case model.RoleUser:
		label := m.theme.HeaderTitle.Render(msg.Role.DisplayName())
		if n := msg.AttachmentCount(); n > 0 {
			label += m.theme.ShortcutDesc.Render(fmt.Sprintf("  (%d attachment(s))", n))
		}
		body := m.theme.UserBubble.Width(bodyWidth).Render(msg.TextContent())
		return label + "\n" + body

	case model.RoleAssistant:
		return m.renderAssistant(msg, bodyWidth)

	default:
		return m.theme.SystemBubble.Width(bodyWidth).Render(msg.TextContent())
	}
}

// renderAssistant renders an assistant message: citation-aware body, an
// interruption note, and optional reference and statistics footers.
func (m *Model) renderAssistant(msg *model.Message, bodyWidth int) string {
	label := m.theme.HeaderBrand.Render(msg.Role.DisplayName())

	text := msg.GetDisplayContent()
	if text == "" && msg.IsStreaming {
		text = m.spinner.View() + " " + m.theme.ThinkingText.Render("thinking...")
		return label + "\n" + m.theme.AssistantBubble.Width(bodyWidth).Render(text)
	}

	body := renderWithCitations(m.theme, text, msg.References)
	if msg.IsStreaming {
		body += m.theme.Spinner.Render(styles.TypingCursor)
	}
	if msg.Interrupted {
		body += "\n" + m.theme.StateFailed.Render("[interrupted]")
	}

	out := label + "\n" + m.theme.AssistantBubble.Width(bodyWidth).Render(body)

	if !msg.IsStreaming && m.cfg.UI.ShowReferences && len(msg.References) > 0 {
		out += "\n" + m.renderReferences(msg)
	}
	if !msg.IsStreaming && m.cfg.UI.ShowStats {
		if stats := msg.FormatStats(); stats != "" {
			out += "\n" + m.theme.StatsLabel.Render("  "+stats)
		}
	}
	return out
}

// renderWithCitations styles resolved [n] markers and dims unresolved ones.
// Text spans pass through untouched.
func renderWithCitations(theme *styles.Theme, text string, references []backend.Reference) string {
	if len(references) == 0 {
		return text
	}

	spans := refs.Resolve(text, references)
	var b strings.Builder
	for _, span := range spans {
		switch {
		case span.Kind == refs.SpanText:
			b.WriteString(span.Text)
		case span.Resolved:
			b.WriteString(theme.CitationMarker.Render(span.Text))
		default:
			b.WriteString(theme.CitationUnresolved.Render(span.Text))
		}
	}
	return b.String()
}

// renderReferences renders the citation list under a completed answer.
// Only references the text actually cites are listed; if none are cited
// the full set is shown.
func (m *Model) renderReferences(msg *model.Message) string {
	spans := refs.Resolve(msg.TextContent(), msg.References)
	citations := refs.Citations(spans)
	if len(citations) == 0 {
		citations = msg.References
	}

	var b strings.Builder
	b.WriteString("  " + m.theme.ReferenceHeader.Render("References"))
	for _, ref := range citations {
		marker := m.theme.CitationMarker.Render(fmt.Sprintf("[%d]", ref.ID))
		b.WriteString("\n  " + marker + " " + m.theme.ReferenceSource.Render(ref.SourceInfo))
	}
	return b.String()
}

// renderWelcome renders the empty-conversation splash.
func (m *Model) renderWelcome() string {
	conv := m.controller.Conversation()

	lines := []string{
		m.theme.WelcomeLogo.Render("ragbench"),
		m.theme.WelcomeVersion.Render("multimodal RAG workbench client"),
		"",
		m.theme.WelcomeInfo.Render("model: ") + m.theme.ModelBadge.Render(displayOr(conv.Model, "(backend default)")),
		m.theme.WelcomeInfo.Render("knowledge base: ") + m.theme.KBBadge.Render(displayOr(conv.KnowledgeBase, "(none)")),
		"",
		m.theme.WelcomeInfo.Render("type a question and press ") +
			m.theme.WelcomeKey.Render("enter") +
			m.theme.WelcomeInfo.Render(", or ") +
			m.theme.WelcomeKey.Render("ctrl+h") +
			m.theme.WelcomeInfo.Render(" for help"),
	}

	box := m.theme.WelcomeBox.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, box)
}

func displayOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
