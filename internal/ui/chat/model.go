// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// model.go - Bubble Tea model for the chat view.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragbench-tui/internal/backend"
	ctrl "github.com/jeranaias/ragbench-tui/internal/chat"
	"github.com/jeranaias/ragbench-tui/internal/config"
	"github.com/jeranaias/ragbench-tui/internal/model"
	"github.com/jeranaias/ragbench-tui/internal/staging"
	"github.com/jeranaias/ragbench-tui/internal/telemetry"
	"github.com/jeranaias/ragbench-tui/internal/ui/styles"
)

// Layout constants: fixed rows around the transcript viewport.
const (
	headerHeight   = 1
	stagingHeight  = 1
	inputHeight    = 1
	statusHeight   = 1
	inputCharLimit = 8000
)

// statusTTL is how long a transient status message stays visible.
const statusTTL = 4 * time.Second

// Model is the Bubble Tea model for the interactive chat view. It owns the
// terminal widgets; conversation state lives in the controller and the
// staging pipeline.
type Model struct {
	theme *styles.Theme
	keys  KeyMap

	controller *ctrl.Controller
	pipeline   *staging.Pipeline
	client     *backend.Client
	cfg        *config.Config
	tracker    *telemetry.Tracker
	bridge     *eventBridge

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	state     ctrl.State
	sendStart time.Time
	proc      staging.ProcessingProgress
	attaching int // in-flight async /attach commands

	// stream is the latest snapshot of the in-flight assistant message.
	// While inFlight the transcript renders it in place of the live
	// message, which belongs to the streaming goroutine.
	stream   *model.Message
	inFlight bool

	statusMsg string
	statusSeq int
	showHelp  bool
	quitting  bool
}

// New creates the chat view wired to a backend client. Model and knowledge
// base come from the config defaults unless overridden by the caller via
// the returned model's conversation.
func New(client *backend.Client, cfg *config.Config, tracker *telemetry.Tracker) *Model {
	theme := styles.NewTheme()

	pipeline := staging.NewPipeline(client)
	controller := ctrl.NewController(client, pipeline, nil)

	conv := controller.Conversation()
	conv.Model = cfg.Backend.DefaultModel
	conv.KnowledgeBase = cfg.Backend.DefaultKnowledgeBase

	bridge := newEventBridge()
	controller.SetListener(bridge)
	pipeline.SetNotifier(bridge)

	input := textinput.New()
	input.Placeholder = "Ask a question, or /help"
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.TextStyle = theme.InputText
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = inputCharLimit
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}
	sp.Style = theme.Spinner

	vp := viewport.New(80, 20)

	return &Model{
		theme:      theme,
		keys:       DefaultKeyMap(),
		controller: controller,
		pipeline:   pipeline,
		client:     client,
		cfg:        cfg,
		tracker:    tracker,
		bridge:     bridge,
		viewport:   vp,
		input:      input,
		spinner:    sp,
		state:      ctrl.StateIdle,
	}
}

// Controller exposes the conversation controller, mainly for tests and for
// main to apply CLI overrides before the program starts.
func (m *Model) Controller() *ctrl.Controller { return m.controller }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bridge.awaitEvent())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ControllerStateMsg:
		return m.handleStateChange(msg.State)

	case ConversationUpdatedMsg:
		if msg.Message != nil {
			m.stream = msg.Message
		}
		m.refreshTranscript(true)
		return m, m.bridge.awaitEvent()

	case NoticeMsg:
		cmd := m.setStatus(msg.Text)
		return m, tea.Batch(m.bridge.awaitEvent(), cmd)

	case StagingChangedMsg:
		return m, m.bridge.awaitEvent()

	case ProcessingProgressMsg:
		var cmd tea.Cmd
		if msg.Progress.Active && !m.proc.Active {
			cmd = m.spinner.Tick
		}
		m.proc = msg.Progress
		return m, tea.Batch(m.bridge.awaitEvent(), cmd)

	case AttachResultMsg:
		m.attaching--
		if msg.Err != nil {
			return m, m.setStatus(fmt.Sprintf("attach failed: %v", msg.Err))
		}
		return m, m.setStatus(fmt.Sprintf("staged %s %s", msg.Kind, msg.Filename))

	case statusExpiredMsg:
		if msg.id == m.statusSeq {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		// Keep ticking only while something is animating.
		if !m.state.Busy() && !m.proc.Active && m.attaching == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Everything else goes to the widgets.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// resize recomputes the viewport geometry after a terminal size change.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	vpHeight := height - headerHeight - stagingHeight - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 4

	atBottom := m.viewport.AtBottom()
	m.ready = true
	m.refreshTranscript(atBottom)
}

// handleKey dispatches keyboard input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == m.keys.ForceQuit {
		m.quitting = true
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch key {
	case m.keys.Quit:
		if m.state.Busy() {
			m.controller.Cancel()
			return m, m.setStatus("cancelling...")
		}
		m.quitting = true
		return m, tea.Quit

	case m.keys.Cancel:
		if m.state.Busy() {
			m.controller.Cancel()
			return m, m.setStatus("cancelling...")
		}
		m.input.Reset()
		return m, nil

	case m.keys.Submit:
		return m.submit()

	case m.keys.Clear:
		if m.state.Busy() {
			return m, m.setStatus("cannot clear while streaming")
		}
		m.controller.Conversation().ClearHistory()
		m.refreshTranscript(true)
		return m, m.setStatus("conversation cleared")

	case m.keys.Help:
		m.showHelp = true
		return m, nil

	case m.keys.PageUp:
		m.viewport.ViewUp()
		return m, nil
	case m.keys.PageDown:
		m.viewport.ViewDown()
		return m, nil
	case m.keys.GotoTop:
		m.viewport.GotoTop()
		return m, nil
	case m.keys.GotoBottom:
		m.viewport.GotoBottom()
		return m, nil
	case m.keys.ScrollUp:
		m.viewport.LineUp(1)
		return m, nil
	case m.keys.ScrollDown:
		m.viewport.LineDown(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line: slash commands are handled locally, anything
// else goes to the controller.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runSlashCommand(text)
	}

	if err := m.controller.Send(context.Background(), text); err != nil {
		return m, m.setStatus(err.Error())
	}
	m.inFlight = true
	m.stream = nil
	m.input.Reset()
	m.sendStart = time.Now()
	m.refreshTranscript(true)
	return m, m.spinner.Tick
}

// handleStateChange reacts to controller lifecycle transitions.
func (m *Model) handleStateChange(s ctrl.State) (tea.Model, tea.Cmd) {
	prev := m.state
	m.state = s

	cmds := []tea.Cmd{m.bridge.awaitEvent()}

	switch s {
	case ctrl.StateSending:
		cmds = append(cmds, m.spinner.Tick)

	case ctrl.StateCompleted, ctrl.StateFailed, ctrl.StateCancelled:
		// The stream goroutine is done with the message; the blocking
		// state notification orders its writes before this render, so
		// the transcript can read the conversation again.
		m.inFlight = false
		m.stream = nil
		if prev.Busy() {
			m.recordStream(s)
		}
		m.refreshTranscript(true)
		switch s {
		case ctrl.StateFailed:
			cmds = append(cmds, m.setStatus("request failed; see transcript"))
		case ctrl.StateCancelled:
			cmds = append(cmds, m.setStatus("stream cancelled; partial answer kept"))
		}
	}

	return m, tea.Batch(cmds...)
}

// recordStream persists per-turn statistics for the stats command.
func (m *Model) recordStream(terminal ctrl.State) {
	if m.tracker == nil {
		return
	}
	conv := m.controller.Conversation()
	rec := telemetry.StreamRecord{
		Model:         conv.Model,
		KnowledgeBase: conv.KnowledgeBase,
		Outcome:       outcomeForState(terminal),
	}
	if user := conv.GetLastUserMessage(); user != nil {
		rec.Prompt = user.TextContent()
		rec.Attachments = user.AttachmentCount()
	}
	if msg := conv.GetLastAssistantMessage(); msg != nil {
		rec.TTFTMs = msg.TTFT.Milliseconds()
		rec.DurationMs = msg.TotalDuration.Milliseconds()
		rec.Tokens = msg.TokenCount
		rec.TokensPerS = msg.TokensPerSec
		rec.References = len(msg.References)
	}
	m.tracker.RecordStream(rec)
}

// outcomeForState maps a terminal controller state to a telemetry outcome.
func outcomeForState(s ctrl.State) string {
	switch s {
	case ctrl.StateCompleted:
		return telemetry.OutcomeCompleted
	case ctrl.StateCancelled:
		return telemetry.OutcomeCancelled
	default:
		return telemetry.OutcomeFailed
	}
}

// setStatus shows a transient message on the status line and schedules its
// expiry. Each call supersedes the previous message.
func (m *Model) setStatus(text string) tea.Cmd {
	m.statusMsg = text
	m.statusSeq++
	id := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusExpiredMsg{id: id}
	})
}

// refreshTranscript re-renders the conversation into the viewport.
// When follow is true the viewport sticks to the bottom, which is the
// behavior wanted while streaming.
func (m *Model) refreshTranscript(follow bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}
