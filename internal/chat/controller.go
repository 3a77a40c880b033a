// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates the send/stream lifecycle of a conversation.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/ragbench-tui/internal/backend"
	"github.com/jeranaias/ragbench-tui/internal/model"
	"github.com/jeranaias/ragbench-tui/internal/staging"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the send lifecycle state. Exactly one send can be in flight;
// terminal states return to Idle before the next send is accepted.
type State int

const (
	// StateIdle means no send is in flight.
	StateIdle State = iota
	// StateSending means the request is being prepared or awaiting the
	// first stream event.
	StateSending
	// StateStreaming means deltas are arriving.
	StateStreaming
	// StateCompleted means the last send finished with a complete message.
	StateCompleted
	// StateFailed means the last send ended in an error.
	StateFailed
	// StateCancelled means the user cancelled the last send.
	StateCancelled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Busy reports whether a send is in flight.
func (s State) Busy() bool {
	return s == StateSending || s == StateStreaming
}

// ErrBusy is returned when Send is called while a send is in flight.
var ErrBusy = errors.New("a send is already in flight")

// ErrEmptySend is returned when there is nothing to send.
var ErrEmptySend = errors.New("nothing to send")

// =============================================================================
// LISTENER
// =============================================================================

// Listener receives controller events. Callbacks arrive from the streaming
// goroutine; implementations must be safe for that.
type Listener interface {
	// StateChanged is called on every lifecycle transition.
	StateChanged(s State)
	// MessageUpdated is called when the streaming message changes. The
	// message is a detached snapshot the listener may read freely; the
	// live conversation must not be read while a send is in flight.
	MessageUpdated(msg *model.Message)
	// Notice delivers a non-fatal advisory, such as a document that had to
	// be dropped at send time.
	Notice(text string)
}

type nopListener struct{}

func (nopListener) StateChanged(State)            {}
func (nopListener) MessageUpdated(*model.Message) {}
func (nopListener) Notice(string)                 {}

// =============================================================================
// BACKEND CONTRACT
// =============================================================================

// Streamer is the backend surface the controller depends on.
type Streamer interface {
	ChatStream(ctx context.Context, request backend.ChatRequest, callback backend.ChatCallback) error
}

// =============================================================================
// CANCEL MANAGEMENT
// =============================================================================

// cancelManager guards the in-flight cancel function. The streaming
// goroutine and the caller both touch it, so access is serialized.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancelFunc = fn
}

// cancel invokes and clears the stored cancel function. Safe to call
// repeatedly or with nothing stored.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives one conversation through the send/stream lifecycle.
// It owns the conversation, the staging pipeline, and the single in-flight
// stream. All exported methods are safe for concurrent use.
type Controller struct {
	mu        sync.Mutex
	state     State
	conv      *model.Conversation
	current   *model.Message
	cancelled bool

	streamer  Streamer
	pipeline  *staging.Pipeline
	cancelMgr *cancelManager
	listener  Listener

	// docPaths remembers where each staged document came from so an
	// unprocessed document can be retried at send time.
	docPaths map[string]string
}

// NewController creates a controller for a fresh conversation.
func NewController(streamer Streamer, pipeline *staging.Pipeline, conv *model.Conversation) *Controller {
	if conv == nil {
		conv = model.NewConversation()
	}
	return &Controller{
		state:     StateIdle,
		conv:      conv,
		streamer:  streamer,
		pipeline:  pipeline,
		cancelMgr: &cancelManager{},
		listener:  nopListener{},
		docPaths:  make(map[string]string),
	}
}

// SetListener registers the event listener. Pass nil to unregister.
func (c *Controller) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l == nil {
		c.listener = nopListener{}
		return
	}
	c.listener = l
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Conversation returns the conversation the controller drives.
func (c *Controller) Conversation() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv
}

// Pipeline returns the staging pipeline.
func (c *Controller) Pipeline() *staging.Pipeline {
	return c.pipeline
}

// =============================================================================
// ATTACHMENT MEDIATION
// =============================================================================

// AttachImage stages a local image file.
func (c *Controller) AttachImage(path string) (staging.ImageAttachment, error) {
	return c.pipeline.AddImage(path)
}

// AttachAudio uploads and stages an audio file.
func (c *Controller) AttachAudio(ctx context.Context, path string) (staging.AudioAttachment, error) {
	return c.pipeline.AddAudio(ctx, path)
}

// AttachDocument stages a document and starts its processing run. The
// source path is remembered so an unfinished run can be retried at send
// time.
func (c *Controller) AttachDocument(ctx context.Context, path string) (staging.DocumentAttachment, error) {
	att, err := c.pipeline.AddDocument(ctx, path)
	if err != nil {
		return att, err
	}
	c.mu.Lock()
	c.docPaths[att.ID] = path
	c.mu.Unlock()
	return att, nil
}

// DetachAttachment removes a staged attachment.
func (c *Controller) DetachAttachment(id string) bool {
	c.mu.Lock()
	delete(c.docPaths, id)
	c.mu.Unlock()
	return c.pipeline.Remove(id)
}

// =============================================================================
// SEND
// =============================================================================

// Send normalizes the input, builds the user message from the text and
// the staged attachments, and starts the streaming exchange. Returns
// ErrBusy while a send is in flight and ErrEmptySend when there is no
// text and nothing staged. The stream itself runs on a goroutine; progress
// arrives through the listener.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(norm.NFC.String(text))

	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if text == "" && c.pipeline.Count() == 0 {
		c.mu.Unlock()
		return ErrEmptySend
	}

	c.state = StateSending
	c.cancelled = false
	listener := c.listener
	paths := make(map[string]string, len(c.docPaths))
	for id, p := range c.docPaths {
		paths[id] = p
	}
	c.mu.Unlock()

	listener.StateChanged(StateSending)

	// Documents that never finished processing get one more chance now.
	// A document that still fails is dropped from the send, not fatal.
	// The drop is recorded in the conversation itself so it survives the
	// transient notice.
	if c.pipeline.HasPendingDocuments() {
		for _, procErr := range c.pipeline.ProcessPending(ctx, paths) {
			notice := "Attachment dropped: " + procErr.Error()
			c.mu.Lock()
			c.conv.AddSystemMessage(notice)
			c.mu.Unlock()
			listener.Notice(notice)
		}
	}

	// History covers prior turns only
	history := c.conv.ToHistory()
	blocks := c.pipeline.Blocks()
	chunks := c.pipeline.Chunks()

	var wireBlocks []backend.ContentBlockPayload
	for _, b := range blocks {
		if payload, ok := b.ToPayload(); ok {
			wireBlocks = append(wireBlocks, payload)
		}
	}

	request := backend.ChatRequest{
		Content:       text,
		ContentBlocks: wireBlocks,
		PDFChunks:     chunks,
		History:       history,
		Model:         c.conv.Model,
		KnowledgeBase: c.conv.KnowledgeBase,
	}

	c.mu.Lock()
	c.conv.AddUserMessage(text, blocks)
	c.current = c.conv.AddAssistantMessage()
	current := c.current
	c.mu.Unlock()

	listener.MessageUpdated(current.StreamSnapshot())

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancelMgr.set(cancel)

	go c.run(streamCtx, request)
	return nil
}

// run drives one streaming exchange to a terminal state.
func (c *Controller) run(ctx context.Context, request backend.ChatRequest) {
	defer c.cancelMgr.cancel()

	stats := model.NewStatistics()
	tokens := 0

	err := c.streamer.ChatStream(ctx, request, func(ev backend.ChatEvent) {
		c.mu.Lock()
		if c.cancelled {
			// Frames that raced the cancellation are dropped
			c.mu.Unlock()
			return
		}
		listener := c.listener
		current := c.current

		switch ev.Type {
		case backend.ChatEventDelta:
			stats.RecordFirstToken()
			tokens++
			first := c.state == StateSending
			if first {
				c.state = StateStreaming
			}
			current.AppendDelta(ev.Content)
			c.mu.Unlock()

			if first {
				listener.StateChanged(StateStreaming)
			}
			// Snapshot taken on this goroutine, the only writer of the
			// streaming message.
			listener.MessageUpdated(current.StreamSnapshot())

		case backend.ChatEventComplete:
			stats.Finalize(tokens)
			current.FinalizeStream(ev.FullContent, ev.References, stats)
			c.finishLocked(StateCompleted)

		case backend.ChatEventError:
			current.FailStream("Error: " + ev.ErrorText)
			c.finishLocked(StateFailed)

		default:
			c.mu.Unlock()
		}
	})

	c.mu.Lock()
	if c.state.Busy() {
		current := c.current
		switch {
		case c.cancelled || errors.Is(err, context.Canceled):
			current.CancelStream()
			c.finishLocked(StateCancelled)
		case err != nil:
			current.FailStream("Error: " + err.Error())
			c.finishLocked(StateFailed)
		default:
			// Stream ended without a terminal event
			current.FailStream("Error: stream ended unexpectedly")
			c.finishLocked(StateFailed)
		}
		return
	}
	c.mu.Unlock()
}

// finishLocked completes a send: staged attachments are cleared, the
// terminal state is announced, and the controller returns to Idle. The
// caller holds the mutex; finishLocked releases it.
func (c *Controller) finishLocked(terminal State) {
	c.state = terminal
	listener := c.listener
	current := c.current
	c.current = nil
	c.docPaths = make(map[string]string)
	c.mu.Unlock()

	c.pipeline.Clear()

	listener.MessageUpdated(current.StreamSnapshot())
	listener.StateChanged(terminal)

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	listener.StateChanged(StateIdle)
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel stops the in-flight send. The partial response text is kept on
// the assistant message. Calling Cancel with no send in flight is a no-op.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if !c.state.Busy() {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	c.mu.Unlock()

	c.cancelMgr.cancel()
}
