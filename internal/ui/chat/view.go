// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - Frame composition for the chat view.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	ctrl "github.com/jeranaias/ragbench-tui/internal/chat"
	"github.com/jeranaias/ragbench-tui/internal/ui/styles"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "initializing..."
	}

	body := m.viewport.View()
	if m.showHelp {
		body = m.renderHelp()
	}

	sections := []string{
		m.renderHeader(),
		body,
		m.renderStagingBar(),
		m.input.View(),
		m.renderStatusBar(),
	}
	return strings.Join(sections, "\n")
}

// renderHeader renders the one-line header: brand, model, knowledge base,
// and backend URL, truncated to fit.
func (m *Model) renderHeader() string {
	conv := m.controller.Conversation()

	left := m.theme.HeaderBrand.Render("ragbench") +
		"  " + m.theme.ModelBadge.Render(displayOr(conv.Model, "(default)"))
	if conv.KnowledgeBase != "" {
		left += "  " + m.theme.KBBadge.Render("kb:"+conv.KnowledgeBase)
	}

	right := m.theme.HeaderSubtitle.Render(m.client.GetConfig().BaseURL)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return runewidth.Truncate(left, m.width, "...")
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderStagingBar renders staged attachment chips, or the document
// processing progress while one is being chunked.
func (m *Model) renderStagingBar() string {
	if m.proc.Active {
		bar := styles.RenderProgressBar(20, float64(m.proc.Percent))
		line := fmt.Sprintf("%s %s [%s] %d%% %s",
			m.spinner.View(),
			m.theme.ProgressLabel.Render("processing "+m.proc.Filename),
			bar,
			m.proc.Percent,
			m.theme.ProgressStep.Render(m.proc.Step),
		)
		return runewidth.Truncate(line, m.width, "...")
	}

	images, audios, documents := m.pipeline.Snapshot()
	total := len(images) + len(audios) + len(documents)
	if total == 0 && m.attaching == 0 {
		return ""
	}

	var chips []string
	for _, a := range images {
		chips = append(chips, m.theme.AttachmentChip.Render("img "+a.Filename))
	}
	for _, a := range audios {
		chips = append(chips, m.theme.AttachmentChip.Render("aud "+a.Filename))
	}
	for _, a := range documents {
		chip := "doc " + a.Filename
		if a.Processed {
			chips = append(chips, m.theme.AttachmentChip.Render(chip))
		} else {
			chips = append(chips, m.theme.AttachmentPending.Render(chip+" (pending)"))
		}
	}
	if m.attaching > 0 {
		chips = append(chips, m.theme.AttachmentPending.Render(m.spinner.View()+" staging..."))
	}

	line := m.theme.StagingBar.Render(strings.Join(chips, ""))
	return runewidth.Truncate(line, m.width, "...")
}

// renderStatusBar renders the bottom line: controller state, transient
// status message, and context usage.
func (m *Model) renderStatusBar() string {
	var state string
	switch {
	case m.state.Busy():
		elapsed := time.Since(m.sendStart).Round(time.Second)
		state = m.theme.StateBusy.Render(m.spinner.View()+" "+m.state.String()) +
			" " + m.theme.ThinkingTime.Render(elapsed.String())
	case m.state == ctrl.StateFailed:
		state = m.theme.StateFailed.Render(m.state.String())
	default:
		state = m.theme.StateIdle.Render(m.state.String())
	}

	middle := m.statusMsg
	if middle == "" {
		middle = m.theme.ShortcutDesc.Render("ctrl+h help")
	}

	conv := m.controller.Conversation()
	right := m.theme.ShortcutDesc.Render(
		fmt.Sprintf("%d msgs | ctx %.0f%%", conv.MessageCount(), conv.GetContextPercent()))

	gap := m.width - lipgloss.Width(state) - lipgloss.Width(middle) - lipgloss.Width(right) - 4
	if gap < 2 {
		return runewidth.Truncate(state+"  "+middle, m.width, "...")
	}
	pad := strings.Repeat(" ", gap/2)
	return state + "  " + pad + middle + pad + strings.Repeat(" ", gap%2) + "  " + right
}

// renderHelp renders the shortcut and slash command overlay in place of
// the transcript.
func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.ReferenceHeader.Render("Keyboard shortcuts and commands") + "\n\n")
	for _, e := range helpEntries() {
		if e.key == "" {
			b.WriteString("\n")
			continue
		}
		key := m.theme.ShortcutKey.Render(runewidth.FillRight(e.key, 18))
		b.WriteString("  " + key + m.theme.ShortcutDesc.Render(e.desc) + "\n")
	}
	b.WriteString("\n" + m.theme.ShortcutDesc.Render("  press any key to close"))

	content := b.String()
	if lines := strings.Count(content, "\n") + 1; lines < m.viewport.Height {
		content += strings.Repeat("\n", m.viewport.Height-lines)
	}
	return content
}
