// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Slash commands for the chat view.
package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragbench-tui/internal/refs"
)

// runSlashCommand executes a local "/command". Commands that touch the
// conversation or the model/knowledge base are refused while a stream is
// in flight.
func (m *Model) runSlashCommand(line string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/?":
		m.showHelp = true
		return m, nil

	case "/model":
		return m.cmdModel(args)

	case "/kb":
		return m.cmdKnowledgeBase(args)

	case "/attach":
		return m.cmdAttach(args)

	case "/detach":
		return m.cmdDetach(args)

	case "/attachments":
		return m, m.setStatus(m.describeStaging())

	case "/refs":
		return m.cmdRefs()

	case "/stats":
		return m.cmdStats()

	case "/clear":
		if m.state.Busy() {
			return m, m.setStatus("cannot clear while streaming")
		}
		m.controller.Conversation().ClearHistory()
		m.refreshTranscript(true)
		return m, m.setStatus("conversation cleared")

	case "/quit", "/exit":
		m.quitting = true
		return m, tea.Quit

	default:
		return m, m.setStatus(fmt.Sprintf("unknown command %s (try /help)", cmd))
	}
}

func (m *Model) cmdModel(args []string) (tea.Model, tea.Cmd) {
	conv := m.controller.Conversation()
	if len(args) == 0 {
		name := conv.Model
		if name == "" {
			name = m.client.DefaultModel()
		}
		return m, m.setStatus("model: " + name)
	}
	if m.state.Busy() {
		return m, m.setStatus("cannot switch model while streaming")
	}
	conv.Model = args[0]
	return m, m.setStatus("model set to " + args[0])
}

func (m *Model) cmdKnowledgeBase(args []string) (tea.Model, tea.Cmd) {
	conv := m.controller.Conversation()
	if len(args) == 0 {
		if conv.KnowledgeBase == "" {
			return m, m.setStatus("knowledge base: (none)")
		}
		return m, m.setStatus("knowledge base: " + conv.KnowledgeBase)
	}
	if m.state.Busy() {
		return m, m.setStatus("cannot switch knowledge base while streaming")
	}
	if args[0] == "none" || args[0] == "off" {
		conv.KnowledgeBase = ""
		return m, m.setStatus("knowledge base disabled")
	}
	conv.KnowledgeBase = args[0]
	return m, m.setStatus("knowledge base set to " + args[0])
}

// cmdAttach stages a file. Images resolve synchronously; audio and
// documents hit the backend, so they run as commands and report back with
// an AttachResultMsg.
func (m *Model) cmdAttach(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, m.setStatus("usage: /attach PATH")
	}
	path := strings.Join(args, " ")
	filename := filepath.Base(path)

	switch kind := attachmentKind(path); kind {
	case "image":
		if _, err := m.controller.AttachImage(path); err != nil {
			return m, m.setStatus(fmt.Sprintf("attach failed: %v", err))
		}
		return m, m.setStatus("staged image " + filename)

	case "audio":
		m.attaching++
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			_, err := m.controller.AttachAudio(context.Background(), path)
			return AttachResultMsg{Kind: kind, Filename: filename, Err: err}
		})

	case "document":
		m.attaching++
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			_, err := m.controller.AttachDocument(context.Background(), path)
			return AttachResultMsg{Kind: kind, Filename: filename, Err: err}
		})

	default:
		return m, m.setStatus("unsupported file type: " + filepath.Ext(path))
	}
}

// cmdDetach removes a staged attachment by its 1-based position in the
// /attachments listing.
func (m *Model) cmdDetach(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, m.setStatus("usage: /detach N")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return m, m.setStatus("detach needs a positive number")
	}

	id, label, ok := m.attachmentAt(n)
	if !ok {
		return m, m.setStatus(fmt.Sprintf("no attachment #%d", n))
	}
	if !m.controller.DetachAttachment(id) {
		return m, m.setStatus(fmt.Sprintf("no attachment #%d", n))
	}
	return m, m.setStatus("removed " + label)
}

// attachmentAt maps a 1-based listing index to an attachment ID. The
// listing order is images, then audio, then documents, matching Snapshot.
func (m *Model) attachmentAt(n int) (id, label string, ok bool) {
	images, audios, documents := m.pipeline.Snapshot()
	i := n - 1
	if i < len(images) {
		return images[i].ID, images[i].Filename, true
	}
	i -= len(images)
	if i < len(audios) {
		return audios[i].ID, audios[i].Filename, true
	}
	i -= len(audios)
	if i < len(documents) {
		return documents[i].ID, documents[i].Filename, true
	}
	return "", "", false
}

// describeStaging summarizes staged attachments for the status line.
func (m *Model) describeStaging() string {
	images, audios, documents := m.pipeline.Snapshot()
	total := len(images) + len(audios) + len(documents)
	if total == 0 {
		return "no attachments staged"
	}

	names := make([]string, 0, total)
	n := 1
	for _, a := range images {
		names = append(names, fmt.Sprintf("%d:%s", n, a.Filename))
		n++
	}
	for _, a := range audios {
		names = append(names, fmt.Sprintf("%d:%s", n, a.Filename))
		n++
	}
	for _, a := range documents {
		names = append(names, fmt.Sprintf("%d:%s", n, a.Filename))
		n++
	}
	return fmt.Sprintf("%d staged: %s", total, strings.Join(names, "  "))
}

// cmdRefs appends the last answer's citation list to the transcript.
// Refused mid-stream: the last assistant message still belongs to the
// streaming goroutine.
func (m *Model) cmdRefs() (tea.Model, tea.Cmd) {
	if m.state.Busy() {
		return m, m.setStatus("wait for the answer to finish")
	}
	conv := m.controller.Conversation()
	msg := conv.GetLastAssistantMessage()
	if msg == nil || len(msg.References) == 0 {
		return m, m.setStatus("no references in the last answer")
	}

	spans := refs.Resolve(msg.TextContent(), msg.References)
	citations := refs.Citations(spans)
	if len(citations) == 0 {
		citations = msg.References
	}

	var b strings.Builder
	b.WriteString("References:\n")
	for _, ref := range citations {
		fmt.Fprintf(&b, "  [%d] %s\n", ref.ID, ref.SourceInfo)
	}
	if unresolved := refs.Unresolved(spans); len(unresolved) > 0 {
		fmt.Fprintf(&b, "  unresolved markers: %v\n", unresolved)
	}

	conv.AddSystemMessage(strings.TrimRight(b.String(), "\n"))
	m.refreshTranscript(true)
	return m, nil
}

// cmdStats appends the session summary to the transcript. Refused
// mid-stream for the same reason as /refs: appending re-estimates the
// context window over every message, including the streaming one.
func (m *Model) cmdStats() (tea.Model, tea.Cmd) {
	if m.state.Busy() {
		return m, m.setStatus("wait for the answer to finish")
	}
	if m.tracker == nil {
		return m, m.setStatus("statistics are disabled")
	}
	s := m.tracker.Summary()
	if s.Streams == 0 {
		return m, m.setStatus("no streams recorded this session")
	}

	var b strings.Builder
	b.WriteString("Session statistics:\n")
	fmt.Fprintf(&b, "  streams:     %d (%d completed, %d failed, %d cancelled)\n",
		s.Streams, s.Completed, s.Failed, s.Cancelled)
	fmt.Fprintf(&b, "  tokens:      %d\n", s.Tokens)
	fmt.Fprintf(&b, "  references:  %d\n", s.References)
	if s.Completed > 0 {
		fmt.Fprintf(&b, "  avg ttft:    %dms\n", s.AvgTTFTMs)
		fmt.Fprintf(&b, "  avg speed:   %.1f tok/s\n", s.AvgTokensPS)
	}

	m.controller.Conversation().AddSystemMessage(strings.TrimRight(b.String(), "\n"))
	m.refreshTranscript(true)
	return m, nil
}

// attachmentKind classifies a path by extension.
func attachmentKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return "image"
	case ".wav", ".mp3", ".m4a", ".ogg", ".flac", ".aac",
		".mp4", ".avi", ".mov", ".mkv", ".webm":
		return "audio"
	case ".pdf", ".txt", ".md", ".doc", ".docx":
		return "document"
	default:
		return ""
	}
}
