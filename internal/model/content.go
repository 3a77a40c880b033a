// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"errors"

	"github.com/jeranaias/ragbench-tui/internal/backend"
)

// =============================================================================
// BLOCK KIND
// =============================================================================

// BlockKind discriminates the content block union. The set is closed:
// consumers dispatch on the tag, never on open-ended type inspection.
type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockImage    BlockKind = "image"
	BlockAudio    BlockKind = "audio"
	BlockDocument BlockKind = "document"
)

// String returns the string representation of the kind.
func (k BlockKind) String() string {
	return string(k)
}

// =============================================================================
// CONTENT BLOCK
// =============================================================================

// ContentBlock is a tagged union over text, image, audio, and document
// content. Exactly one payload shape is populated per kind:
//
//   - text: Text
//   - image: Data (displayable data URL) plus optional Thumbnail
//   - audio: Transcription and Filename; raw bytes never leave staging
//   - document: Filename, Filesize, and Chunks once processed
//
// Blocks are treated as immutable once attached to a sent message.
type ContentBlock struct {
	Kind BlockKind `json:"kind"`

	// Text payload
	Text string `json:"text,omitempty"`

	// Image payload
	Data      string `json:"data,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`

	// Audio payload
	Transcription string  `json:"transcription,omitempty"`
	Duration      float64 `json:"duration,omitempty"`

	// Shared by audio and document payloads
	Filename string `json:"filename,omitempty"`

	// Document payload
	Filesize int64                   `json:"filesize,omitempty"`
	Chunks   []backend.DocumentChunk `json:"chunks,omitempty"`
}

// NewTextBlock creates a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// NewImageBlock creates an image content block from a displayable data URL
// and an optional preview handle.
func NewImageBlock(data, thumbnail string) ContentBlock {
	return ContentBlock{Kind: BlockImage, Data: data, Thumbnail: thumbnail}
}

// NewAudioBlock creates an audio content block carrying a transcript.
func NewAudioBlock(filename, transcription string, duration float64) ContentBlock {
	return ContentBlock{
		Kind:          BlockAudio,
		Filename:      filename,
		Transcription: transcription,
		Duration:      duration,
	}
}

// NewDocumentBlock creates a document content block with its processed
// chunk records.
func NewDocumentBlock(filename string, filesize int64, chunks []backend.DocumentChunk) ContentBlock {
	return ContentBlock{
		Kind:     BlockDocument,
		Filename: filename,
		Filesize: filesize,
		Chunks:   chunks,
	}
}

// Validate checks the single-payload invariant for the block's kind.
func (b ContentBlock) Validate() error {
	switch b.Kind {
	case BlockText:
		if b.Data != "" || b.Transcription != "" || len(b.Chunks) > 0 {
			return errors.New("text block carries a non-text payload")
		}
	case BlockImage:
		if b.Data == "" {
			return errors.New("image block missing data handle")
		}
		if b.Text != "" || b.Transcription != "" || len(b.Chunks) > 0 {
			return errors.New("image block carries a non-image payload")
		}
	case BlockAudio:
		if b.Transcription == "" {
			return errors.New("audio block missing transcription")
		}
		if b.Text != "" || b.Data != "" || len(b.Chunks) > 0 {
			return errors.New("audio block carries a non-audio payload")
		}
	case BlockDocument:
		if b.Filename == "" {
			return errors.New("document block missing filename")
		}
		if b.Text != "" || b.Data != "" || b.Transcription != "" {
			return errors.New("document block carries a non-document payload")
		}
	default:
		return errors.New("unknown block kind: " + string(b.Kind))
	}
	return nil
}

// ToPayload converts the block to its wire form. Document blocks are not
// sent as content blocks (their chunk text travels separately), so the
// second return is false for them.
func (b ContentBlock) ToPayload() (backend.ContentBlockPayload, bool) {
	switch b.Kind {
	case BlockText:
		return backend.ContentBlockPayload{Type: "text", Content: b.Text}, true
	case BlockImage:
		return backend.ContentBlockPayload{Type: "image", Content: b.Data, Thumbnail: b.Thumbnail}, true
	case BlockAudio:
		return backend.ContentBlockPayload{Type: "audio", Transcription: b.Transcription}, true
	default:
		return backend.ContentBlockPayload{}, false
	}
}

// Label returns a short human-readable description of the block for
// previews and logs.
func (b ContentBlock) Label() string {
	switch b.Kind {
	case BlockText:
		return b.Text
	case BlockImage:
		return "[Image]"
	case BlockAudio:
		return "[Audio] " + b.Filename
	case BlockDocument:
		return "[Document] " + b.Filename
	default:
		return "[Unknown]"
	}
}
