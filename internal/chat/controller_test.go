// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates the send/stream lifecycle of a conversation.
package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/ragbench-tui/internal/backend"
	"github.com/jeranaias/ragbench-tui/internal/model"
	"github.com/jeranaias/ragbench-tui/internal/staging"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// scriptedStreamer replays a fixed event sequence and records the request.
type scriptedStreamer struct {
	mu       sync.Mutex
	events   []backend.ChatEvent
	err      error
	requests []backend.ChatRequest

	// block, when set, makes the streamer wait for ctx cancellation after
	// replaying events, then return ctx.Err().
	block bool

	// resume, when set, is waited on after the first delta; remaining
	// events replay afterwards. Used to interleave a cancel mid-stream.
	resume chan struct{}
}

func (s *scriptedStreamer) ChatStream(ctx context.Context, request backend.ChatRequest, callback backend.ChatCallback) error {
	s.mu.Lock()
	s.requests = append(s.requests, request)
	events := append([]backend.ChatEvent(nil), s.events...)
	s.mu.Unlock()

	for i, ev := range events {
		callback(ev)
		if i == 0 && s.resume != nil {
			<-s.resume
		}
		if ev.Terminal() {
			return s.err
		}
	}

	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func (s *scriptedStreamer) lastRequest(t *testing.T) backend.ChatRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("no request was sent")
	}
	return s.requests[len(s.requests)-1]
}

// stateListener records transitions and signals when Idle is reached
// after a terminal state.
type stateListener struct {
	mu      sync.Mutex
	states  []State
	notices []string
	idle    chan struct{}
}

func newStateListener() *stateListener {
	return &stateListener{idle: make(chan struct{}, 4)}
}

func (l *stateListener) StateChanged(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
	if s == StateIdle {
		l.idle <- struct{}{}
	}
}

func (l *stateListener) MessageUpdated(*model.Message) {}

func (l *stateListener) Notice(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, text)
}

func (l *stateListener) waitIdle(t *testing.T) {
	t.Helper()
	select {
	case <-l.idle:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the send to finish")
	}
}

func (l *stateListener) sawState(s State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.states {
		if got == s {
			return true
		}
	}
	return false
}

func newTestController(s Streamer) (*Controller, *stateListener) {
	pipe := staging.NewPipeline(nil)
	ctrl := NewController(s, pipe, nil)
	listener := newStateListener()
	ctrl.SetListener(listener)
	return ctrl, listener
}

func completeEvents(full string, refs []backend.Reference) []backend.ChatEvent {
	return []backend.ChatEvent{
		{Type: backend.ChatEventDelta, Content: "Hello"},
		{Type: backend.ChatEventDelta, Content: ", world"},
		{Type: backend.ChatEventComplete, FullContent: full, References: refs},
	}
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSend_CompletesAndFinalizes(t *testing.T) {
	refs := []backend.Reference{{ID: 1, Source: "report.pdf"}}
	streamer := &scriptedStreamer{events: completeEvents("Hello, world [1]", refs)}
	ctrl, listener := newTestController(streamer)

	if err := ctrl.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	listener.waitIdle(t)

	if !listener.sawState(StateStreaming) || !listener.sawState(StateCompleted) {
		t.Errorf("states = %v, want Streaming then Completed", listener.states)
	}
	if got := ctrl.State(); got != StateIdle {
		t.Errorf("State() = %v, want Idle", got)
	}

	msg := ctrl.Conversation().GetLastAssistantMessage()
	if msg == nil {
		t.Fatal("no assistant message")
	}
	if msg.IsStreaming {
		t.Error("assistant message should be finalized")
	}
	if got := msg.TextContent(); got != "Hello, world [1]" {
		t.Errorf("TextContent() = %q", got)
	}
	if len(msg.References) != 1 || msg.References[0].Source != "report.pdf" {
		t.Errorf("References = %+v", msg.References)
	}
}

func TestSend_WhileBusyIsRejected(t *testing.T) {
	streamer := &scriptedStreamer{
		events: []backend.ChatEvent{{Type: backend.ChatEventDelta, Content: "x"}},
		block:  true,
	}
	ctrl, listener := newTestController(streamer)

	if err := ctrl.Send(context.Background(), "first"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Busy until cancelled
	if err := ctrl.Send(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("overlapping Send() error = %v, want ErrBusy", err)
	}

	ctrl.Cancel()
	listener.waitIdle(t)

	if got := ctrl.Conversation().MessageCount(); got != 2 {
		t.Errorf("MessageCount() = %d, want 2 (rejected send added nothing)", got)
	}
}

func TestSend_EmptyIsRejected(t *testing.T) {
	ctrl, _ := newTestController(&scriptedStreamer{})

	if err := ctrl.Send(context.Background(), "   "); !errors.Is(err, ErrEmptySend) {
		t.Errorf("Send() error = %v, want ErrEmptySend", err)
	}
	if got := ctrl.Conversation().MessageCount(); got != 0 {
		t.Errorf("MessageCount() = %d, want 0", got)
	}
}

func TestSend_NormalizesToNFC(t *testing.T) {
	streamer := &scriptedStreamer{events: completeEvents("ok", nil)}
	ctrl, listener := newTestController(streamer)

	// "e" followed by combining acute accent composes to a single rune
	if err := ctrl.Send(context.Background(), "café"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	listener.waitIdle(t)

	if got := streamer.lastRequest(t).Content; got != "café" {
		t.Errorf("request content = %q, want NFC-composed %q", got, "café")
	}
}

func TestSend_HistoryExcludesCurrentTurn(t *testing.T) {
	streamer := &scriptedStreamer{events: completeEvents("second answer", nil)}
	ctrl, listener := newTestController(streamer)

	conv := ctrl.Conversation()
	conv.AddUserMessage("first question", nil)
	first := conv.AddAssistantMessage()
	first.AppendDelta("first answer")
	first.FinalizeStream("", nil, nil)

	if err := ctrl.Send(context.Background(), "second question"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	listener.waitIdle(t)

	req := streamer.lastRequest(t)
	if len(req.History) != 2 {
		t.Fatalf("len(History) = %d, want 2 prior turns", len(req.History))
	}
	if req.History[0].Content != "first question" || req.History[1].Content != "first answer" {
		t.Errorf("History = %+v", req.History)
	}
	if req.Content != "second question" {
		t.Errorf("Content = %q", req.Content)
	}
}

// =============================================================================
// FAILURE TESTS
// =============================================================================

func TestSend_ErrorEventFails(t *testing.T) {
	streamer := &scriptedStreamer{events: []backend.ChatEvent{
		{Type: backend.ChatEventDelta, Content: "par"},
		{Type: backend.ChatEventError, ErrorText: "model overloaded"},
	}}
	ctrl, listener := newTestController(streamer)

	if err := ctrl.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	listener.waitIdle(t)

	if !listener.sawState(StateFailed) {
		t.Errorf("states = %v, want Failed", listener.states)
	}
	msg := ctrl.Conversation().GetLastAssistantMessage()
	if got := msg.TextContent(); got != "Error: model overloaded" {
		t.Errorf("TextContent() = %q, want error notice", got)
	}
}

func TestSend_TransportErrorFails(t *testing.T) {
	streamer := &scriptedStreamer{err: errors.New("connection refused")}
	ctrl, listener := newTestController(streamer)

	if err := ctrl.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	listener.waitIdle(t)

	if !listener.sawState(StateFailed) {
		t.Errorf("states = %v, want Failed", listener.states)
	}
	msg := ctrl.Conversation().GetLastAssistantMessage()
	if got := msg.TextContent(); got != "Error: connection refused" {
		t.Errorf("TextContent() = %q", got)
	}
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestCancel_PreservesPartialText(t *testing.T) {
	streamer := &scriptedStreamer{
		events: []backend.ChatEvent{
			{Type: backend.ChatEventDelta, Content: "partial ans"},
		},
		block: true,
	}
	ctrl, listener := newTestController(streamer)

	if err := ctrl.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Wait until the delta has been applied
	deadline := time.After(5 * time.Second)
	for ctrl.State() != StateStreaming {
		select {
		case <-deadline:
			t.Fatal("never reached streaming state")
		case <-time.After(time.Millisecond):
		}
	}

	ctrl.Cancel()
	listener.waitIdle(t)

	if !listener.sawState(StateCancelled) {
		t.Errorf("states = %v, want Cancelled", listener.states)
	}
	msg := ctrl.Conversation().GetLastAssistantMessage()
	if got := msg.TextContent(); got != "partial ans" {
		t.Errorf("TextContent() = %q, want partial text preserved", got)
	}
	if !msg.Interrupted {
		t.Error("message should be marked interrupted")
	}
}

func TestCancel_LateFramesDropped(t *testing.T) {
	resume := make(chan struct{})
	streamer := &scriptedStreamer{
		events: []backend.ChatEvent{
			{Type: backend.ChatEventDelta, Content: "kept"},
			{Type: backend.ChatEventDelta, Content: " dropped"},
			{Type: backend.ChatEventComplete, FullContent: "kept dropped overwritten"},
		},
		resume: resume,
	}
	ctrl, listener := newTestController(streamer)

	if err := ctrl.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for ctrl.State() != StateStreaming {
		select {
		case <-deadline:
			t.Fatal("never reached streaming state")
		case <-time.After(time.Millisecond):
		}
	}

	ctrl.Cancel()
	close(resume)
	listener.waitIdle(t)

	msg := ctrl.Conversation().GetLastAssistantMessage()
	if got := msg.TextContent(); got != "kept" {
		t.Errorf("TextContent() = %q, want only pre-cancel text", got)
	}
	if !listener.sawState(StateCancelled) {
		t.Errorf("states = %v, want Cancelled", listener.states)
	}
}

func TestCancel_WhenIdleIsNoOp(t *testing.T) {
	ctrl, _ := newTestController(&scriptedStreamer{})
	ctrl.Cancel()
	if got := ctrl.State(); got != StateIdle {
		t.Errorf("State() = %v, want Idle", got)
	}
}

// =============================================================================
// LISTENER SNAPSHOT TESTS
// =============================================================================

// snapshotListener records every MessageUpdated payload and exposes the
// latest one to a concurrent reader.
type snapshotListener struct {
	stateListener
	snapMu sync.Mutex
	snaps  []*model.Message
}

func (l *snapshotListener) MessageUpdated(msg *model.Message) {
	l.snapMu.Lock()
	l.snaps = append(l.snaps, msg)
	l.snapMu.Unlock()
}

func (l *snapshotListener) latest() *model.Message {
	l.snapMu.Lock()
	defer l.snapMu.Unlock()
	if len(l.snaps) == 0 {
		return nil
	}
	return l.snaps[len(l.snaps)-1]
}

func (l *snapshotListener) all() []*model.Message {
	l.snapMu.Lock()
	defer l.snapMu.Unlock()
	return append([]*model.Message(nil), l.snaps...)
}

func TestMessageUpdated_DeliversDetachedSnapshots(t *testing.T) {
	streamer := &scriptedStreamer{events: completeEvents("Hello, world", nil)}
	pipe := staging.NewPipeline(nil)
	ctrl := NewController(streamer, pipe, nil)
	listener := &snapshotListener{stateListener: *newStateListener()}
	ctrl.SetListener(listener)

	// A second goroutine reads the latest snapshot while the stream
	// goroutine keeps appending to the live message.
	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if msg := listener.latest(); msg != nil {
				_ = msg.TextContent()
				_ = msg.GetDisplayContent()
			}
		}
	}()

	if err := ctrl.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	listener.waitIdle(t)
	close(stop)
	readers.Wait()

	live := ctrl.Conversation().GetLastAssistantMessage()
	snaps := listener.all()
	if len(snaps) < 3 {
		t.Fatalf("got %d updates, want placeholder, deltas, and final", len(snaps))
	}
	for i, snap := range snaps {
		if snap == live {
			t.Fatalf("update %d delivered the live message, want a detached copy", i)
		}
		if snap.ID != live.ID {
			t.Errorf("update %d ID = %q, want %q", i, snap.ID, live.ID)
		}
	}

	final := snaps[len(snaps)-1]
	if final.IsStreaming {
		t.Error("final update should carry the finalized message")
	}
	if got := final.TextContent(); got != "Hello, world" {
		t.Errorf("final TextContent() = %q", got)
	}
}

// =============================================================================
// DROPPED DOCUMENT TESTS
// =============================================================================

// stallingDocBackend blocks ProcessDocument until released, so a document
// can be held in the staged-but-unprocessed state.
type stallingDocBackend struct {
	started chan struct{}
	release chan struct{}
}

func (b *stallingDocBackend) Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (*backend.TranscriptionResult, error) {
	return nil, errors.New("not implemented")
}

func (b *stallingDocBackend) ProcessDocument(ctx context.Context, request backend.DocProcessRequest, callback backend.DocCallback) error {
	close(b.started)
	<-b.release
	return errors.New("processing abandoned")
}

func TestSend_DroppedDocumentRecordedInConversation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}

	docBackend := &stallingDocBackend{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	defer close(docBackend.release)

	pipe := staging.NewPipeline(docBackend)
	streamer := &scriptedStreamer{events: completeEvents("answered without the doc", nil)}
	ctrl := NewController(streamer, pipe, nil)
	listener := newStateListener()
	ctrl.SetListener(listener)

	// Attach in the background; the backend stalls, leaving the document
	// staged but unprocessed, exactly the state a send can race into.
	go ctrl.AttachDocument(context.Background(), path)
	select {
	case <-docBackend.started:
	case <-time.After(5 * time.Second):
		t.Fatal("document processing never started")
	}

	if err := ctrl.Send(context.Background(), "summarize the report"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	listener.waitIdle(t)

	// The drop is advised transiently...
	listener.mu.Lock()
	notices := append([]string(nil), listener.notices...)
	listener.mu.Unlock()
	if len(notices) == 0 || !strings.Contains(notices[0], "report.pdf") {
		t.Errorf("notices = %v, want one naming the dropped file", notices)
	}

	// ...and recorded in the conversation, where it outlives the notice.
	var recorded bool
	for _, msg := range ctrl.Conversation().Messages {
		if msg.Role == model.RoleSystem && strings.Contains(msg.TextContent(), "report.pdf") {
			recorded = true
			break
		}
	}
	if !recorded {
		t.Error("conversation has no system message naming the dropped document")
	}
}

// =============================================================================
// STATE STRING TESTS
// =============================================================================

func TestState_String(t *testing.T) {
	pairs := map[State]string{
		StateIdle:      "idle",
		StateSending:   "sending",
		StateStreaming: "streaming",
		StateCompleted: "completed",
		StateFailed:    "failed",
		StateCancelled: "cancelled",
	}
	for s, want := range pairs {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}
