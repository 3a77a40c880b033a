// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jeranaias/ragbench-tui/internal/backend"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation. Content lives in
// an ordered list of content blocks; plain-text messages hold a single text
// block. A streaming assistant message accumulates deltas in a builder and
// replaces its text block wholesale on each update, so the block always
// shows the full text so far.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Blocks []ContentBlock `json:"blocks"`

	// Citations attached when the stream completes
	References []backend.Reference `json:"references,omitempty"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`

	// True when the stream was cancelled or failed before completing;
	// accumulated text (or the error notice) is preserved in Blocks.
	Interrupted bool `json:"interrupted,omitempty"`

	// Performance metrics (for assistant messages)
	TTFT          time.Duration `json:"ttft_ns,omitempty"`
	TotalDuration time.Duration `json:"total_duration_ns,omitempty"`
	TokenCount    int           `json:"token_count,omitempty"`
	TokensPerSec  float64       `json:"tokens_per_sec,omitempty"`
}

// NewMessage creates a new plain-text message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Blocks:    []ContentBlock{NewTextBlock(content)},
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message from text plus any staged
// attachment blocks. The text block comes first so previews read naturally.
func NewUserMessage(content string, attachments []ContentBlock) *Message {
	blocks := make([]ContentBlock, 0, len(attachments)+1)
	if content != "" {
		blocks = append(blocks, NewTextBlock(content))
	}
	blocks = append(blocks, attachments...)
	return &Message{
		ID:        generateID(),
		Role:      RoleUser,
		Blocks:    blocks,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an empty assistant message in streaming state.
func NewAssistantMessage() *Message {
	return &Message{
		ID:          generateID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// =============================================================================
// STREAMING METHODS
// =============================================================================

// AppendDelta appends a streamed token and refreshes the visible text
// block with the accumulated text. No-op once streaming has ended, so
// frames that race a cancellation are ignored.
func (m *Message) AppendDelta(token string) {
	if !m.IsStreaming {
		return
	}
	m.streamContent.WriteString(token)
	m.Blocks = []ContentBlock{NewTextBlock(m.streamContent.String())}
}

// FinalizeStream completes streaming with the server's authoritative full
// text and citation list. An empty fullContent falls back to the
// accumulated deltas. Safe to call at most once; later calls are no-ops.
func (m *Message) FinalizeStream(fullContent string, refs []backend.Reference, stats *Statistics) {
	if !m.IsStreaming {
		return
	}

	if fullContent == "" {
		fullContent = m.streamContent.String()
	}
	m.Blocks = []ContentBlock{NewTextBlock(fullContent)}
	m.References = refs
	m.streamContent.Reset()
	m.IsStreaming = false

	if stats != nil {
		m.TTFT = stats.TTFT
		m.TotalDuration = stats.TotalDuration
		m.TokenCount = stats.CompletionTokens
		m.TokensPerSec = stats.TokensPerSecond
	}
}

// CancelStream ends streaming in place, preserving whatever text has
// accumulated. Safe to call at most once; later calls are no-ops.
func (m *Message) CancelStream() {
	if !m.IsStreaming {
		return
	}
	m.Blocks = []ContentBlock{NewTextBlock(m.streamContent.String())}
	m.streamContent.Reset()
	m.IsStreaming = false
	m.Interrupted = true
}

// FailStream ends streaming and replaces the displayed content with an
// error notice. Safe to call at most once; later calls are no-ops.
func (m *Message) FailStream(notice string) {
	if !m.IsStreaming {
		return
	}
	m.Blocks = []ContentBlock{NewTextBlock(notice)}
	m.streamContent.Reset()
	m.IsStreaming = false
	m.Interrupted = true
}

// StreamSnapshot returns a detached copy of the message for delivery to
// listeners on other goroutines. The copy shares nothing mutable with the
// original: blocks and references are copied, and accumulated streaming
// text is carried over so TextContent works on the snapshot. Must be
// called by the goroutine that mutates the message.
func (m *Message) StreamSnapshot() *Message {
	snap := &Message{
		ID:            m.ID,
		Role:          m.Role,
		Timestamp:     m.Timestamp,
		Blocks:        append([]ContentBlock(nil), m.Blocks...),
		References:    append([]backend.Reference(nil), m.References...),
		IsStreaming:   m.IsStreaming,
		Interrupted:   m.Interrupted,
		TTFT:          m.TTFT,
		TotalDuration: m.TotalDuration,
		TokenCount:    m.TokenCount,
		TokensPerSec:  m.TokensPerSec,
	}
	if m.IsStreaming {
		snap.streamContent.WriteString(m.streamContent.String())
	}
	return snap
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// TextContent returns the concatenated text of the message's text blocks.
func (m *Message) TextContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	var sb strings.Builder
	for _, b := range m.Blocks {
		if b.Kind == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// GetDisplayContent returns the content to display (streaming or final).
// Non-text blocks contribute short labels.
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	parts := make([]string, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		parts = append(parts, b.Label())
	}
	return strings.Join(parts, "\n")
}

// AttachmentCount returns the number of non-text blocks.
func (m *Message) AttachmentCount() int {
	n := 0
	for _, b := range m.Blocks {
		if b.Kind != BlockText {
			n++
		}
	}
	return n
}

// DocumentChunks returns the chunk records of every document block.
func (m *Message) DocumentChunks() []backend.DocumentChunk {
	var chunks []backend.DocumentChunk
	for _, b := range m.Blocks {
		if b.Kind == BlockDocument {
			chunks = append(chunks, b.Chunks...)
		}
	}
	return chunks
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.GetDisplayContent()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Blocks) == 0 && m.streamContent.Len() == 0
}

// EstimateTokens gives a rough estimate of token count.
// Uses the approximation of ~4 characters per token.
func (m *Message) EstimateTokens() int {
	content := m.TextContent()
	return (len(content) + 3) / 4
}

// FormatStats returns a formatted string of message statistics.
func (m *Message) FormatStats() string {
	if m.Role != RoleAssistant || m.TotalDuration == 0 {
		return ""
	}

	// Format: "2.5s | 128 tokens | 51 tok/s | TTFT 234ms"
	totalSec := m.TotalDuration.Seconds()
	ttftMs := m.TTFT.Milliseconds()

	return formatDuration(totalSec) + " | " +
		formatInt(m.TokenCount) + " tokens | " +
		formatFloat64(m.TokensPerSec) + " tok/s | " +
		"TTFT " + formatInt(int(ttftMs)) + "ms"
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics holds timing and token count information for a generation.
type Statistics struct {
	// Timestamps
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Token counts
	PromptTokens     int
	CompletionTokens int

	// Derived metrics (computed on Finalize)
	TTFT            time.Duration
	TotalDuration   time.Duration
	TokensPerSecond float64
}

// NewStatistics creates a new Statistics with the start time set.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
	}
}

// RecordFirstToken records when the first token was received.
func (s *Statistics) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes the final statistics.
func (s *Statistics) Finalize(tokenCount int) {
	s.EndTime = time.Now()
	s.CompletionTokens = tokenCount
	s.TotalDuration = s.EndTime.Sub(s.StartTime)

	if s.TotalDuration > 0 {
		s.TokensPerSecond = float64(tokenCount) / s.TotalDuration.Seconds()
	}
}

// Format returns a formatted string of the statistics.
func (s *Statistics) Format() string {
	totalSec := s.TotalDuration.Seconds()
	ttftMs := s.TTFT.Milliseconds()

	return formatDuration(totalSec) + " | " +
		formatInt(s.CompletionTokens) + " tokens | " +
		formatFloat64(s.TokensPerSecond) + " tok/s | " +
		"TTFT " + formatInt(int(ttftMs)) + "ms"
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}

// formatInt formats an integer without using fmt.
// Handles negative numbers and zero correctly.
func formatInt(n int) string {
	if n == 0 {
		return "0"
	}

	// math.MinInt64 cannot be negated without overflow
	if n == -9223372036854775808 {
		return "-9223372036854775808"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	if negative {
		return "-" + string(digits)
	}
	return string(digits)
}

// formatFloat64 formats a float with one decimal place (truncating).
func formatFloat64(f float64) string {
	if f != f { // NaN check
		return "NaN"
	}
	if f > 9223372036854775807 {
		return "Inf"
	}
	if f < -9223372036854775808 {
		return "-Inf"
	}

	whole := int(f)

	absF := f
	if f < 0 {
		absF = -f
	}
	absWhole := whole
	if whole < 0 {
		absWhole = -whole
	}
	frac := int((absF - float64(absWhole)) * 10)

	return formatInt(whole) + "." + formatInt(frac)
}

// formatDuration formats seconds as a nice duration string.
func formatDuration(seconds float64) string {
	if seconds < 1 {
		ms := int(seconds * 1000)
		return formatInt(ms) + "ms"
	}
	return formatFloat64(seconds) + "s"
}
