// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// events.go - Bridge between controller/pipeline callbacks and Bubble Tea.
package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	ctrl "github.com/jeranaias/ragbench-tui/internal/chat"
	"github.com/jeranaias/ragbench-tui/internal/model"
	"github.com/jeranaias/ragbench-tui/internal/staging"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ControllerStateMsg reports a lifecycle transition of the send state machine.
type ControllerStateMsg struct {
	State ctrl.State
}

// ConversationUpdatedMsg signals that the streaming message changed and the
// transcript should re-render. Message is the controller's detached
// snapshot; the view renders it instead of the live message, which the
// streaming goroutine keeps mutating.
type ConversationUpdatedMsg struct {
	Message *model.Message
}

// NoticeMsg carries a non-fatal advisory from the controller, such as a
// document that had to be dropped at send time.
type NoticeMsg struct {
	Text string
}

// StagingChangedMsg signals that the set of staged attachments changed.
type StagingChangedMsg struct{}

// ProcessingProgressMsg carries a document processing progress snapshot.
type ProcessingProgressMsg struct {
	Progress staging.ProcessingProgress
}

// AttachResultMsg reports the outcome of an asynchronous /attach.
type AttachResultMsg struct {
	Kind     string // "image", "audio", "document"
	Filename string
	Err      error
}

// statusExpiredMsg clears a transient status line message.
type statusExpiredMsg struct {
	id int
}

// =============================================================================
// EVENT BRIDGE
// =============================================================================

// eventBridge adapts controller and pipeline callbacks into Bubble Tea
// messages. Callbacks arrive on streaming goroutines; the bridge never
// touches the model directly, it only sends on the channel.
//
// State changes and notices block until delivered because losing a
// terminal state would wedge the view. High-frequency delta updates are
// dropped when the channel is full; the next update repaints the same
// accumulated text, so a dropped frame is invisible.
type eventBridge struct {
	events chan tea.Msg
}

func newEventBridge() *eventBridge {
	return &eventBridge{events: make(chan tea.Msg, 128)}
}

// StateChanged implements chat.Listener.
func (b *eventBridge) StateChanged(s ctrl.State) {
	b.events <- ControllerStateMsg{State: s}
}

// MessageUpdated implements chat.Listener.
func (b *eventBridge) MessageUpdated(msg *model.Message) {
	select {
	case b.events <- ConversationUpdatedMsg{Message: msg}:
	default:
	}
}

// Notice implements chat.Listener.
func (b *eventBridge) Notice(text string) {
	b.events <- NoticeMsg{Text: text}
}

// StagingChanged implements staging.Notifier.
func (b *eventBridge) StagingChanged() {
	select {
	case b.events <- StagingChangedMsg{}:
	default:
	}
}

// ProgressChanged implements staging.Notifier.
func (b *eventBridge) ProgressChanged(p staging.ProcessingProgress) {
	select {
	case b.events <- ProcessingProgressMsg{Progress: p}:
	default:
	}
}

// awaitEvent returns a command that delivers the next bridged event.
// Every handler for a bridged message must re-arm it.
func (b *eventBridge) awaitEvent() tea.Cmd {
	return func() tea.Msg {
		return <-b.events
	}
}
