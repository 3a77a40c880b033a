// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for communicating with the
// workbench API.
package backend

import "encoding/json"

// =============================================================================
// CONTENT BLOCK PAYLOAD
// =============================================================================

// ContentBlockPayload is the wire form of a multimodal content block.
// Image blocks carry a data URL in Content; audio blocks carry the
// transcription text produced at staging time, never raw bytes.
type ContentBlockPayload struct {
	Type          string `json:"type"`
	Content       string `json:"content"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Transcription string `json:"transcription,omitempty"`
}

// =============================================================================
// DOCUMENT CHUNKS
// =============================================================================

// ChunkMetadata describes the origin of one document chunk.
// Source is required so references can be attributed back to a filename.
type ChunkMetadata struct {
	Source      string `json:"source"`
	ChunkID     int    `json:"chunk_id"`
	ChunkSize   int    `json:"chunk_size,omitempty"`
	TotalChunks int    `json:"total_chunks,omitempty"`
	PageNumber  int    `json:"page_number,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	SourceInfo  string `json:"source_info,omitempty"`
}

// DocumentChunk is one retrievable slice of a processed document.
type DocumentChunk struct {
	ID       string        `json:"id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// =============================================================================
// REFERENCES
// =============================================================================

// Reference is a structured citation record attached to a completed
// assistant message. ID is 1-based and matches inline [k] markers.
type Reference struct {
	ID         int    `json:"id"`
	Text       string `json:"text"`
	Source     string `json:"source"`
	Page       int    `json:"page"`
	ChunkID    int    `json:"chunk_id"`
	SourceInfo string `json:"source_info"`
}

// =============================================================================
// CHAT REQUEST / RESPONSE
// =============================================================================

// HistoryMessage is one prior conversation turn sent with a chat request.
// Content blocks are carried verbatim so audio transcripts survive across
// turns.
type HistoryMessage struct {
	Role          string                `json:"role"`
	Content       string                `json:"content"`
	ContentBlocks []ContentBlockPayload `json:"content_blocks,omitempty"`
}

// ChatRequest is the body of both the streaming and synchronous chat
// endpoints. Document content travels in PDFChunks, not in ContentBlocks.
type ChatRequest struct {
	Content       string                `json:"content"`
	ContentBlocks []ContentBlockPayload `json:"content_blocks"`
	PDFChunks     []DocumentChunk       `json:"pdf_chunks"`
	History       []HistoryMessage      `json:"history"`
	Model         string                `json:"model"`
	KnowledgeBase string                `json:"knowledge_base"`
}

// ChatResponse is the synchronous (non-streaming) chat reply.
type ChatResponse struct {
	Content    string      `json:"content"`
	Role       string      `json:"role"`
	Timestamp  string      `json:"timestamp"`
	References []Reference `json:"references"`
}

// =============================================================================
// DOCUMENT PROCESSING
// =============================================================================

// DocProcessRequest asks the backend to OCR, split, and chunk one document.
// Content is base64, optionally with a data URL prefix.
type DocProcessRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

// =============================================================================
// AUDIO TRANSCRIPTION
// =============================================================================

// TranscriptionResult is the reply from the audio processing endpoint.
type TranscriptionResult struct {
	Success       bool    `json:"success"`
	Filename      string  `json:"filename"`
	Transcription string  `json:"transcription"`
	Duration      float64 `json:"duration"`
	Format        string  `json:"format"`
}

// =============================================================================
// LISTINGS
// =============================================================================

// ListingEntry is one selectable model or knowledge base.
type ListingEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListModelsResponse wraps the models listing endpoint reply.
type ListModelsResponse struct {
	Models []ListingEntry `json:"models"`
}

// ListKnowledgeBasesResponse wraps the knowledge bases listing reply.
type ListKnowledgeBasesResponse struct {
	KnowledgeBases []ListingEntry `json:"knowledge_bases"`
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthResponse is the root endpoint reply, used for connectivity
// diagnostics only.
type HealthResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// Chat stream event types.
const (
	ChatEventDelta    = "content_delta"
	ChatEventComplete = "message_complete"
	ChatEventError    = "error"
)

// Document processing stream event types.
const (
	DocEventProgress = "progress"
	DocEventResult   = "result"
	DocEventError    = "error"
)

// Document processing stages, in the order the backend reports them.
const (
	StageSaving    = "saving_file"
	StageLoading   = "loading_pdf"
	StageSplitting = "splitting_text"
	StageBuilding  = "building_chunks"
	StageCompleted = "completed"
)

// ChatEvent is one decoded event from the chat stream.
// Delta events carry Content; complete events carry FullContent and
// References; error events carry ErrorText.
type ChatEvent struct {
	Type        string      `json:"type"`
	Content     string      `json:"content,omitempty"`
	FullContent string      `json:"full_content,omitempty"`
	References  []Reference `json:"references,omitempty"`
	ErrorText   string      `json:"error,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"`
}

// Terminal reports whether no further events follow this one.
func (e ChatEvent) Terminal() bool {
	return e.Type == ChatEventComplete || e.Type == ChatEventError
}

// DocEvent is one decoded event from the document processing stream.
type DocEvent struct {
	Type      string          `json:"type"`
	Step      string          `json:"step,omitempty"`
	Message   string          `json:"message,omitempty"`
	Progress  int             `json:"progress,omitempty"`
	Chunks    []DocumentChunk `json:"chunks,omitempty"`
	Summary   json.RawMessage `json:"summary,omitempty"`
	ErrorText string          `json:"error,omitempty"`
}

// Terminal reports whether no further events follow this one.
func (e DocEvent) Terminal() bool {
	return e.Type == DocEventResult || e.Type == DocEventError
}
