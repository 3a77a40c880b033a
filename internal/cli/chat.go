// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for ragbench CLI.
//
// Handles the "ragbench chat" command which provides an interactive REPL
// for conversing with the workbench backend.
//
// Command: chat
// Short:   Start an interactive chat session
// Aliases: (none)
//
// Examples:
//   ragbench chat                       Start interactive chat
//   ragbench chat --model gpt-4o-mini   Use specific model
//   ragbench chat --kb research         Query a specific knowledge base
//
// Flags:
//   -m, --model NAME    Use specific model (overrides config)
//   -k, --kb NAME       Use specific knowledge base (overrides config)
//   -v, --verbose       Verbose output
//   -q, --quiet         Minimal output
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Clear conversation history
//   /model [name]       Show or switch model
//   /kb [name]          Show or switch knowledge base
//   /attach PATH        Stage a file for the next message
//   /detach N           Remove a staged attachment
//   /attachments        List staged attachments
//   /refs               Show citations from the last answer
//   /stats, /s          Show session statistics
//   /history            Show conversation history
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current stream
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/ragbench-tui/internal/backend"
	"github.com/jeranaias/ragbench-tui/internal/chat"
	"github.com/jeranaias/ragbench-tui/internal/config"
	"github.com/jeranaias/ragbench-tui/internal/model"
	"github.com/jeranaias/ragbench-tui/internal/refs"
	"github.com/jeranaias/ragbench-tui/internal/staging"
	"github.com/jeranaias/ragbench-tui/internal/telemetry"
	"github.com/jeranaias/ragbench-tui/internal/ui/styles"
	"github.com/jeranaias/ragbench-tui/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	// Prompt style
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	// Welcome banner style
	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	// Info style
	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	// Command style
	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	// Warning style
	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// Session summary header
	summaryHeaderStyle = lipgloss.NewStyle().
				Foreground(styles.Cyan).
				Bold(true)

	// Citation marker style
	citationStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	// Get history file path in config directory
	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}

	// Load existing history
	cli.LoadHistory()

	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	// Add non-empty input to history
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	// Ensure config directory exists
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	// Create file with secure permissions (0600 - owner read/write only)
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// STREAM LISTENER
// =============================================================================

// replListener bridges controller callbacks to the terminal. The terminal
// state is delivered over done so the REPL can block until the turn ends.
// The latest snapshot text is kept under a mutex for the delta echo loop;
// the live conversation is read only after the turn has ended.
type replListener struct {
	done chan chat.State

	mu   sync.Mutex
	text string
}

func newReplListener() *replListener {
	return &replListener{done: make(chan chat.State, 1)}
}

// reset drains a stale terminal state and clears the snapshot text
// before a new turn.
func (l *replListener) reset() {
	select {
	case <-l.done:
	default:
	}
	l.mu.Lock()
	l.text = ""
	l.mu.Unlock()
}

func (l *replListener) StateChanged(s chat.State) {
	switch s {
	case chat.StateCompleted, chat.StateFailed, chat.StateCancelled:
		select {
		case l.done <- s:
		default:
		}
	}
}

func (l *replListener) MessageUpdated(msg *model.Message) {
	if msg == nil || msg.Role != model.RoleAssistant {
		return
	}
	text := msg.TextContent()
	l.mu.Lock()
	l.text = text
	l.mu.Unlock()
}

// snapshotText returns the accumulated text of the latest snapshot.
func (l *replListener) snapshotText() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text
}

func (l *replListener) Notice(text string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("[Notice]"), text)
}

// stagingNotifier prints document processing progress inline.
type stagingNotifier struct {
	quiet bool
}

func (n *stagingNotifier) StagingChanged() {}

func (n *stagingNotifier) ProgressChanged(p staging.ProcessingProgress) {
	if n.quiet || !p.Active {
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s %s: %s (%d%%)   ",
		infoStyle.Render("[Processing]"), p.Filename, p.Message, p.Percent)
	if p.Percent >= 100 {
		fmt.Fprintln(os.Stderr)
	}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	// Controller drives send/stream/cancel; Pipeline stages attachments
	Controller *chat.Controller
	Pipeline   *staging.Pipeline
	Client     *backend.Client

	// Configuration
	Config *config.Config
	Quiet  bool

	// Local usage statistics
	Tracker *telemetry.Tracker
	Store   *telemetry.Store

	// Tracking
	StartTime time.Time

	// Stream listener shared across turns
	Listener *replListener

	// Input history handler
	// USABILITY: Provides readline-like input with history
	InputCLI *ChatCLI
}

// NewChatSession creates a new chat session.
func NewChatSession(args Args) *ChatSession {
	cfg := config.Global()
	client := newBackendClient(cfg, args)

	pipeline := staging.NewPipeline(client)
	quiet := args.Quiet
	pipeline.SetNotifier(&stagingNotifier{quiet: quiet})

	// Model/knowledge base precedence: CLI arg > config > client default
	model := args.Model
	if model == "" {
		model = cfg.Backend.DefaultModel
	}
	kb := args.KnowledgeBase
	if kb == "" {
		kb = cfg.Backend.DefaultKnowledgeBase
	}

	controller := chat.NewController(client, pipeline, nil)
	conv := controller.Conversation()
	conv.Model = model
	conv.KnowledgeBase = kb

	listener := newReplListener()
	controller.SetListener(listener)

	// Statistics are local-only; a missing store degrades to in-memory
	var store *telemetry.Store
	if cfg.Telemetry.Enabled {
		if path, err := cfg.StatsDBPath(); err == nil {
			store, _ = telemetry.OpenStore(path)
		}
	}

	return &ChatSession{
		Controller: controller,
		Pipeline:   pipeline,
		Client:     client,
		Config:     cfg,
		Quiet:      quiet,
		Tracker:    telemetry.NewTracker(store),
		Store:      store,
		StartTime:  time.Now(),
		Listener:   listener,
		InputCLI:   NewChatCLI(),
	}
}

// newBackendClient builds a workbench client from config plus CLI overrides.
func newBackendClient(cfg *config.Config, args Args) *backend.Client {
	clientCfg := &backend.ClientConfig{
		BaseURL:              cfg.Backend.BaseURL,
		Timeout:              time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		UploadTimeout:        time.Duration(cfg.Backend.UploadTimeoutSecs) * time.Second,
		DefaultModel:         cfg.Backend.DefaultModel,
		DefaultKnowledgeBase: cfg.Backend.DefaultKnowledgeBase,
		RequestsPerSecond:    cfg.Backend.RequestsPerSecond,
	}
	if args.BackendURL != "" {
		clientCfg.BaseURL = args.BackendURL
	}
	return backend.NewClientWithConfig(clientCfg)
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command with full interactive support.
func HandleChatCommand(args Args) error {
	session := NewChatSession(args)
	if session.Store != nil {
		defer session.Store.Close()
	}

	// Check backend connectivity before entering the REPL
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	health, err := session.Client.CheckHealth(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("workbench backend is not reachable at %s: %w",
			session.Client.GetConfig().BaseURL, err)
	}

	// Show welcome message
	if !session.Quiet {
		printWelcome(session, health)
	}

	// Ensure input history is saved on exit
	defer session.InputCLI.Close()

	// Set up signal handling for graceful Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// First Ctrl+C during a stream cancels it; the partial answer is kept
	go func() {
		for range sigChan {
			if session.Controller.State().Busy() {
				session.Controller.Cancel()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	// Main REPL loop using liner for input history
	for {
		input, err := session.InputCLI.ReadInput(promptStyle.Render("ragbench> "))
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C pressed - exit gracefully
				fmt.Println()
				printExitSummary(session)
				return nil
			}
			// EOF (Ctrl+D) or other error - exit gracefully
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)

		// Skip empty input
		if input == "" {
			continue
		}

		// Handle slash commands
		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n",
					ErrorStyle.Render("[Error]"),
					err)
			}
			if !shouldContinue {
				printExitSummary(session)
				return nil
			}
			continue
		}

		// Handle exit/quit without slash
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		// Process the message
		if err := processMessage(session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n",
				ErrorStyle.Render("[Error]"),
				err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage sends a message through the controller and waits for the
// stream to finish. Deltas are echoed live; on a markdown-capable terminal
// the final answer is re-rendered with formatting and citations.
func processMessage(session *ChatSession, input string) error {
	useMarkdown := IsStdoutTTY()
	attachments := session.Pipeline.Count()
	session.Listener.reset()

	fmt.Println() // Space before response

	startTime := time.Now()
	if err := session.Controller.Send(context.Background(), input); err != nil {
		if errors.Is(err, chat.ErrBusy) {
			return fmt.Errorf("a response is still streaming; press Ctrl+C to cancel it first")
		}
		return err
	}

	// Echo deltas as they arrive. The listener's snapshot text is the
	// only thing read mid-stream; the conversation itself is touched
	// only after the terminal state lands.
	var terminal chat.State
	if useMarkdown {
		terminal = <-session.Listener.done
	} else {
		terminal = echoDeltas(session)
	}

	conv := session.Controller.Conversation()
	msg := conv.GetLastAssistantMessage()
	if msg == nil {
		return fmt.Errorf("stream produced no message")
	}

	// Render the completed answer
	if useMarkdown {
		displayAnswer(msg)
	}
	fmt.Println()

	// Record the turn locally
	session.Tracker.RecordStream(telemetry.StreamRecord{
		Model:         conv.Model,
		KnowledgeBase: conv.KnowledgeBase,
		Prompt:        input,
		Outcome:       outcomeForState(terminal),
		TTFTMs:        msg.TTFT.Milliseconds(),
		DurationMs:    msg.TotalDuration.Milliseconds(),
		Tokens:        msg.TokenCount,
		TokensPerS:    msg.TokensPerSec,
		Attachments:   attachments,
		References:    len(msg.References),
	})

	// Show brief stats (unless quiet)
	if !session.Quiet && terminal == chat.StateCompleted {
		showBriefStats(msg, time.Since(startTime))
	}

	return nil
}

// echoDeltas streams accumulated text to stdout until the turn ends.
func echoDeltas(session *ChatSession) chat.State {
	printed := 0
	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()

	flush := func() {
		text := session.Listener.snapshotText()
		if len(text) > printed {
			fmt.Print(text[printed:])
			printed = len(text)
		}
	}

	for {
		select {
		case terminal := <-session.Listener.done:
			flush()
			fmt.Println()
			return terminal
		case <-ticker.C:
			flush()
		}
	}
}

// outcomeForState maps a terminal controller state to a telemetry outcome.
func outcomeForState(s chat.State) string {
	switch s {
	case chat.StateCompleted:
		return telemetry.OutcomeCompleted
	case chat.StateCancelled:
		return telemetry.OutcomeCancelled
	default:
		return telemetry.OutcomeFailed
	}
}

// displayAnswer renders a completed assistant message with markdown and a
// citation list. Unresolved [n] markers are left as literal text.
func displayAnswer(msg *model.Message) {
	text := msg.GetDisplayContent()
	displayResponse(text)
	fmt.Println()

	if len(msg.References) == 0 {
		return
	}

	spans := refs.Resolve(text, msg.References)
	citations := refs.Citations(spans)
	if len(citations) == 0 {
		// References arrived but nothing in the text cites them; list them anyway
		citations = msg.References
	}

	fmt.Println(summaryHeaderStyle.Render("References"))
	for _, ref := range citations {
		source := ref.Source
		if ref.Page > 0 {
			source = fmt.Sprintf("%s, p.%d", source, ref.Page)
		}
		fmt.Printf("  %s %s\n",
			citationStyle.Render(fmt.Sprintf("[%d]", ref.ID)),
			infoStyle.Render(source))
		if ref.Text != "" {
			fmt.Printf("      %s\n", util.TruncateRunes(strings.ReplaceAll(ref.Text, "\n", " "), 120))
		}
	}

	if missing := refs.Unresolved(spans); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "%s citation markers without a reference: %v\n",
			warningStyle.Render("[Warning]"), missing)
	}
}

// showBriefStats shows brief stats after a completed response.
func showBriefStats(msg *model.Message, elapsed time.Duration) {
	parts := []string{fmt.Sprintf("%d tokens", msg.TokenCount)}
	if msg.TTFT > 0 {
		parts = append(parts, fmt.Sprintf("ttft %s", msg.TTFT.Round(time.Millisecond)))
	}
	if msg.TokensPerSec > 0 {
		parts = append(parts, fmt.Sprintf("%.1f tok/s", msg.TokensPerSec))
	}
	parts = append(parts, elapsed.Round(time.Millisecond).String())
	if n := len(msg.References); n > 0 {
		parts = append(parts, fmt.Sprintf("%d refs", n))
	}

	fmt.Fprintf(os.Stderr, "%s %s\n",
		infoStyle.Render("[Stats]"),
		strings.Join(parts, " | "))
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func handleSlashCommand(cmd string, session *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		printHelp()
		return true, nil

	case "/clear", "/c":
		session.Controller.Conversation().ClearHistory()
		session.Pipeline.Clear()
		fmt.Println(commandStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/model", "/m":
		return handleModelCommand(session, args)

	case "/kb", "/k":
		return handleKBCommand(session, args)

	case "/attach", "/a":
		return handleAttachCommand(session, args)

	case "/detach", "/d":
		return handleDetachCommand(session, args)

	case "/attachments", "/ls":
		printAttachments(session)
		return true, nil

	case "/refs", "/r":
		printLastReferences(session)
		return true, nil

	case "/stats", "/s", "/status":
		printStats(session)
		return true, nil

	case "/history":
		printHistory(session)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	case "/":
		// Just "/" shows help
		printHelp()
		return true, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// handleModelCommand handles the /model command.
func handleModelCommand(session *ChatSession, args []string) (bool, error) {
	conv := session.Controller.Conversation()
	if len(args) == 0 {
		fmt.Printf("%s Current model: %s\n",
			infoStyle.Render("[Model]"),
			commandStyle.Render(conv.Model))
		return true, nil
	}

	newModel := args[0]

	// Verify against the backend listing; warn but allow unknown names
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if models, err := session.Client.ListModels(ctx); err == nil {
		known := false
		for _, m := range models {
			if m.ID == newModel {
				known = true
				break
			}
		}
		if !known {
			fmt.Fprintf(os.Stderr, "%s Model '%s' not in the backend listing, will attempt to use anyway\n",
				warningStyle.Render("[Warning]"),
				newModel)
		}
	}

	conv.Model = newModel
	fmt.Printf("%s Switched to model: %s\n",
		commandStyle.Render("[OK]"),
		newModel)

	return true, nil
}

// handleKBCommand handles the /kb command.
func handleKBCommand(session *ChatSession, args []string) (bool, error) {
	conv := session.Controller.Conversation()
	if len(args) == 0 {
		fmt.Printf("%s Current knowledge base: %s\n",
			infoStyle.Render("[KB]"),
			commandStyle.Render(conv.KnowledgeBase))
		return true, nil
	}

	conv.KnowledgeBase = args[0]
	fmt.Printf("%s Switched to knowledge base: %s\n",
		commandStyle.Render("[OK]"),
		args[0])

	return true, nil
}

// handleAttachCommand stages a file by extension: image, audio, or document.
func handleAttachCommand(session *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		return true, fmt.Errorf("usage: /attach PATH")
	}
	path := strings.Join(args, " ")

	kind, err := attachFile(context.Background(), session.Controller, path)
	if err != nil {
		return true, err
	}

	fmt.Printf("%s Staged %s: %s\n",
		commandStyle.Render("[OK]"),
		kind,
		filepath.Base(path))
	return true, nil
}

// attachFile routes a path to the right staging operation by extension.
func attachFile(ctx context.Context, controller *chat.Controller, path string) (string, error) {
	switch classifyAttachment(path) {
	case "image":
		_, err := controller.AttachImage(path)
		return "image", err
	case "audio":
		att, err := controller.AttachAudio(ctx, path)
		if err != nil {
			return "audio", err
		}
		fmt.Printf("%s %s\n",
			infoStyle.Render("[Transcript]"),
			util.TruncateRunes(att.Transcription, 160))
		return "audio", nil
	case "document":
		_, err := controller.AttachDocument(ctx, path)
		return "document", err
	default:
		return "", fmt.Errorf("unsupported attachment type: %s", filepath.Ext(path))
	}
}

// classifyAttachment maps a file extension to an attachment kind.
func classifyAttachment(path string) string {
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

// handleDetachCommand removes a staged attachment by its /attachments index.
func handleDetachCommand(session *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		return true, fmt.Errorf("usage: /detach N (see /attachments)")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return true, fmt.Errorf("invalid attachment number: %s", args[0])
	}

	ids, labels := attachmentIndex(session.Pipeline)
	if n > len(ids) {
		return true, fmt.Errorf("no attachment %d (have %d)", n, len(ids))
	}

	if session.Controller.DetachAttachment(ids[n-1]) {
		fmt.Printf("%s Removed: %s\n", commandStyle.Render("[OK]"), labels[n-1])
	}
	return true, nil
}

// attachmentIndex flattens staged attachments into a stable display order:
// images, then audio, then documents.
func attachmentIndex(pipeline *staging.Pipeline) (ids []string, labels []string) {
	images, audios, documents := pipeline.Snapshot()
	for _, a := range images {
		ids = append(ids, a.ID)
		labels = append(labels, fmt.Sprintf("%s (image, %s)", a.Filename, formatBytes(a.Size)))
	}
	for _, a := range audios {
		ids = append(ids, a.ID)
		labels = append(labels, fmt.Sprintf("%s (audio, %.1fs)", a.Filename, a.Duration))
	}
	for _, a := range documents {
		state := "pending"
		if a.Processed {
			state = fmt.Sprintf("%d chunks", len(a.Chunks))
		}
		ids = append(ids, a.ID)
		labels = append(labels, fmt.Sprintf("%s (document, %s)", a.Filename, state))
	}
	return ids, labels
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(session *ChatSession, health *backend.HealthResponse) {
	conv := session.Controller.Conversation()

	fmt.Println()
	fmt.Println(welcomeStyle.Render("ragbench interactive chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Backend:"),
		commandStyle.Render(session.Client.GetConfig().BaseURL))
	if health != nil && health.Version != "" {
		fmt.Printf("%s %s\n",
			infoStyle.Render("Version:"),
			commandStyle.Render(health.Version))
	}
	fmt.Printf("%s %s\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(conv.Model))
	fmt.Printf("%s %s\n",
		infoStyle.Render("KB:"),
		commandStyle.Render(conv.KnowledgeBase))

	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printHelp prints available commands.
func printHelp() {
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Clear conversation history"},
		{"/model [name]", "Show or switch model"},
		{"/kb [name]", "Show or switch knowledge base"},
		{"/attach PATH", "Stage a file for the next message"},
		{"/detach N", "Remove a staged attachment"},
		{"/attachments", "List staged attachments"},
		{"/refs", "Show citations from the last answer"},
		{"/stats, /s", "Show session statistics"},
		{"/history", "Show conversation history"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels the current stream, Ctrl+D exits"))
	fmt.Println()
}

// printAttachments lists everything currently staged.
func printAttachments(session *ChatSession) {
	_, labels := attachmentIndex(session.Pipeline)
	if len(labels) == 0 {
		fmt.Println(infoStyle.Render("[No attachments staged]"))
		return
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Staged Attachments"))
	for i, label := range labels {
		fmt.Printf("  %d. %s\n", i+1, label)
	}
	fmt.Println()
}

// printLastReferences shows the citation list from the last completed answer.
func printLastReferences(session *ChatSession) {
	msg := session.Controller.Conversation().GetLastAssistantMessage()
	if msg == nil || len(msg.References) == 0 {
		fmt.Println(infoStyle.Render("[No references in the last answer]"))
		return
	}
	fmt.Println()
	displayAnswerReferences(msg)
	fmt.Println()
}

// displayAnswerReferences prints just the reference list for a message.
func displayAnswerReferences(msg *model.Message) {
	fmt.Println(summaryHeaderStyle.Render("References"))
	for _, ref := range msg.References {
		source := ref.Source
		if ref.Page > 0 {
			source = fmt.Sprintf("%s, p.%d", source, ref.Page)
		}
		fmt.Printf("  %s %s\n",
			citationStyle.Render(fmt.Sprintf("[%d]", ref.ID)),
			infoStyle.Render(source))
		if ref.Text != "" {
			fmt.Printf("      %s\n", util.TruncateRunes(strings.ReplaceAll(ref.Text, "\n", " "), 120))
		}
	}
}

// printStats prints session statistics.
func printStats(session *ChatSession) {
	summary := session.Tracker.Summary()
	conv := session.Controller.Conversation()
	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session Status"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	fmt.Printf("  %s %s\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(conv.Model))
	fmt.Printf("  %s %s\n",
		infoStyle.Render("KB:"),
		commandStyle.Render(conv.KnowledgeBase))
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Duration:"),
		elapsed.String())
	fmt.Printf("  %s %d messages\n",
		infoStyle.Render("History:"),
		conv.MessageCount())

	fmt.Println()
	fmt.Println(infoStyle.Render("Statistics:"))
	fmt.Printf("  %s %d (%d completed, %d failed, %d cancelled)\n",
		infoStyle.Render("Streams:"),
		summary.Streams,
		summary.Completed,
		summary.Failed,
		summary.Cancelled)
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Tokens:"),
		formatNumber(summary.Tokens))
	if summary.Completed > 0 {
		fmt.Printf("  %s %dms\n",
			infoStyle.Render("Avg TTFT:"),
			summary.AvgTTFTMs)
		fmt.Printf("  %s %.1f tok/s\n",
			infoStyle.Render("Avg Speed:"),
			summary.AvgTokensPS)
	}
	fmt.Printf("  %s %d\n",
		infoStyle.Render("Citations:"),
		summary.References)

	fmt.Println()
}

// printHistory prints conversation history.
func printHistory(session *ChatSession) {
	messages := session.Controller.Conversation().GetHistory()
	if len(messages) == 0 {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Conversation History"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for i, msg := range messages {
		role := msg.Role.DisplayName()
		switch msg.Role {
		case model.RoleUser:
			role = lipgloss.NewStyle().Foreground(styles.Cyan).Render("You")
		case model.RoleAssistant:
			role = lipgloss.NewStyle().Foreground(styles.Purple).Render("AI")
		case model.RoleSystem:
			role = lipgloss.NewStyle().Foreground(styles.Amber).Render("System")
		}

		content := strings.ReplaceAll(msg.Preview(100), "\n", " ")
		line := fmt.Sprintf("  %d. %s: %s", i+1, role, content)
		if n := msg.AttachmentCount(); n > 0 {
			line += infoStyle.Render(fmt.Sprintf(" (+%d attachments)", n))
		}
		fmt.Println(line)
	}

	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(session *ChatSession) {
	summary := session.Tracker.Summary()

	// Skip if no streams
	if summary.Streams == 0 {
		fmt.Println(infoStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session Summary"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 15)))

	fmt.Printf("  %s %d (%d completed, %d failed, %d cancelled)\n",
		infoStyle.Render("Streams:"),
		summary.Streams,
		summary.Completed,
		summary.Failed,
		summary.Cancelled)
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Tokens:"),
		formatNumber(summary.Tokens))
	fmt.Printf("  %s %d\n",
		infoStyle.Render("Citations:"),
		summary.References)
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Duration:"),
		elapsed.String())

	fmt.Println()
	fmt.Println(infoStyle.Render("Goodbye!"))
}
