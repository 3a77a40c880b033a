// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package staging manages attachments between selection and send.
package staging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/ragbench-tui/internal/backend"
	"github.com/jeranaias/ragbench-tui/internal/model"
)

// MaxDocumentSize is the largest document accepted for processing.
const MaxDocumentSize = 50 << 20 // 50 MB

// Sentinel errors for attachment validation.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds size limit")
)

// =============================================================================
// ATTACHMENT RECORDS
// =============================================================================

// ImageAttachment is a staged image, encoded for sending at staging time.
type ImageAttachment struct {
	ID       string
	Filename string
	DataURL  string
	Size     int64
}

// AudioAttachment is a staged audio recording. It exists only after a
// successful transcription; raw audio bytes are never staged.
type AudioAttachment struct {
	ID            string
	Filename      string
	Transcription string
	Duration      float64
	Format        string
}

// DocumentAttachment is a staged document. Processed is false until the
// backend has returned its chunk records.
type DocumentAttachment struct {
	ID        string
	Filename  string
	Size      int64
	Processed bool
	Chunks    []backend.DocumentChunk
}

// ProcessingProgress is the shared progress record for document
// processing. With several documents processing concurrently the last
// writer wins; the record describes "something is processing", not a
// per-document ledger.
type ProcessingProgress struct {
	Active   bool
	Filename string
	Step     string
	Message  string
	Percent  int
}

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier receives staging change callbacks. Implementations must be
// safe for calls from processing goroutines.
type Notifier interface {
	// StagingChanged signals that the set of staged attachments changed.
	StagingChanged()
	// ProgressChanged delivers a new shared progress snapshot.
	ProgressChanged(p ProcessingProgress)
}

// nopNotifier is used when no notifier is registered.
type nopNotifier struct{}

func (nopNotifier) StagingChanged()                    {}
func (nopNotifier) ProgressChanged(ProcessingProgress) {}

// =============================================================================
// BACKEND CONTRACTS
// =============================================================================

// Transcriber converts an audio upload to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, contentType string, audio io.Reader) (*backend.TranscriptionResult, error)
}

// DocumentProcessor runs the streaming chunking pipeline for one document.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, request backend.DocProcessRequest, callback backend.DocCallback) error
}

// Backend is the subset of the API client staging depends on.
type Backend interface {
	Transcriber
	DocumentProcessor
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline holds attachments staged for the next message. All methods are
// safe for concurrent use.
type Pipeline struct {
	mu        sync.Mutex
	images    []ImageAttachment
	audios    []AudioAttachment
	documents []DocumentAttachment
	progress  ProcessingProgress

	backend  Backend
	notifier Notifier
}

// NewPipeline creates an empty staging pipeline.
func NewPipeline(b Backend) *Pipeline {
	return &Pipeline{
		backend:  b,
		notifier: nopNotifier{},
	}
}

// SetNotifier registers the change notifier. Pass nil to unregister.
func (p *Pipeline) SetNotifier(n Notifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n == nil {
		p.notifier = nopNotifier{}
		return
	}
	p.notifier = n
}

// =============================================================================
// IMAGE STAGING
// =============================================================================

// AddImage validates, encodes, and stages a local image file. Images are
// fully processed at staging time; nothing touches the backend until send.
func (p *Pipeline) AddImage(path string) (ImageAttachment, error) {
	mimeType, ok := imageMIME(path)
	if !ok {
		return ImageAttachment{}, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ImageAttachment{}, fmt.Errorf("read image: %w", err)
	}

	att := ImageAttachment{
		ID:       uuid.NewString(),
		Filename: filepath.Base(path),
		DataURL:  "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		Size:     int64(len(data)),
	}

	p.mu.Lock()
	p.images = append(p.images, att)
	notifier := p.notifier
	p.mu.Unlock()

	notifier.StagingChanged()
	return att, nil
}

// =============================================================================
// AUDIO STAGING
// =============================================================================

// AddAudio validates and uploads an audio file for transcription. The
// attachment is staged only after the upload succeeds, so a staged audio
// record always carries its transcript.
func (p *Pipeline) AddAudio(ctx context.Context, path string) (AudioAttachment, error) {
	mimeType, ok := audioMIME(path)
	if !ok {
		return AudioAttachment{}, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return AudioAttachment{}, fmt.Errorf("read audio: %w", err)
	}

	result, err := p.backend.Transcribe(ctx, filepath.Base(path), mimeType, bytes.NewReader(data))
	if err != nil {
		return AudioAttachment{}, err
	}
	if !result.Success {
		return AudioAttachment{}, fmt.Errorf("transcription rejected for %s", filepath.Base(path))
	}

	att := AudioAttachment{
		ID:            uuid.NewString(),
		Filename:      filepath.Base(path),
		Transcription: result.Transcription,
		Duration:      result.Duration,
		Format:        result.Format,
	}

	p.mu.Lock()
	p.audios = append(p.audios, att)
	notifier := p.notifier
	p.mu.Unlock()

	notifier.StagingChanged()
	return att, nil
}

// =============================================================================
// DOCUMENT STAGING
// =============================================================================

// AddDocument stages a document and starts its streaming processing run.
// The document appears in the staged set immediately with Processed false;
// a successful run attaches its chunks, a failed run removes it again.
func (p *Pipeline) AddDocument(ctx context.Context, path string) (DocumentAttachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DocumentAttachment{}, fmt.Errorf("stat document: %w", err)
	}
	if info.Size() > MaxDocumentSize {
		return DocumentAttachment{}, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, filepath.Base(path), info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DocumentAttachment{}, fmt.Errorf("read document: %w", err)
	}

	att := DocumentAttachment{
		ID:       uuid.NewString(),
		Filename: filepath.Base(path),
		Size:     info.Size(),
	}

	p.mu.Lock()
	p.documents = append(p.documents, att)
	notifier := p.notifier
	p.mu.Unlock()
	notifier.StagingChanged()

	if err := p.process(ctx, att.ID, att.Filename, data); err != nil {
		return DocumentAttachment{}, err
	}

	p.mu.Lock()
	staged, _ := p.findDocument(att.ID)
	p.mu.Unlock()
	return staged, nil
}

// process runs one document through the backend chunking stream, updating
// the shared progress record as stage events arrive.
func (p *Pipeline) process(ctx context.Context, id, filename string, data []byte) error {
	request := backend.DocProcessRequest{
		Content:  base64.StdEncoding.EncodeToString(data),
		Filename: filename,
	}

	var resultChunks []backend.DocumentChunk
	var streamErr string

	err := p.backend.ProcessDocument(ctx, request, func(ev backend.DocEvent) {
		switch ev.Type {
		case backend.DocEventProgress:
			p.setProgress(ProcessingProgress{
				Active:   true,
				Filename: filename,
				Step:     ev.Step,
				Message:  ev.Message,
				Percent:  ev.Progress,
			})
		case backend.DocEventResult:
			resultChunks = ev.Chunks
		case backend.DocEventError:
			streamErr = ev.ErrorText
		}
	})

	p.setProgress(ProcessingProgress{})

	if err == nil && streamErr != "" {
		err = fmt.Errorf("processing %s: %s", filename, streamErr)
	}
	if err == nil && resultChunks == nil {
		err = fmt.Errorf("processing %s: stream ended without a result", filename)
	}
	if err != nil {
		// A document that failed to process never reaches a sent message
		p.Remove(id)
		return err
	}

	p.mu.Lock()
	for i := range p.documents {
		if p.documents[i].ID == id {
			p.documents[i].Processed = true
			p.documents[i].Chunks = resultChunks
			break
		}
	}
	notifier := p.notifier
	p.mu.Unlock()

	notifier.StagingChanged()
	return nil
}

// ProcessPending processes every staged document that has no chunks yet.
// Used at send time for documents whose original run never finished. Each
// failure removes its document and is reported; the others continue.
func (p *Pipeline) ProcessPending(ctx context.Context, paths map[string]string) []error {
	p.mu.Lock()
	var pending []DocumentAttachment
	for _, d := range p.documents {
		if !d.Processed {
			pending = append(pending, d)
		}
	}
	p.mu.Unlock()

	var errs []error
	for _, d := range pending {
		path, ok := paths[d.ID]
		if !ok {
			p.Remove(d.ID)
			errs = append(errs, fmt.Errorf("processing %s: original file no longer available", d.Filename))
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			p.Remove(d.ID)
			errs = append(errs, fmt.Errorf("processing %s: %w", d.Filename, err))
			continue
		}
		if err := p.process(ctx, d.ID, d.Filename, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// =============================================================================
// STAGED SET MANAGEMENT
// =============================================================================

// Remove deletes a staged attachment by ID. Removing an unknown ID is a
// no-op, so removal is idempotent.
func (p *Pipeline) Remove(id string) bool {
	p.mu.Lock()
	removed := false

	for i, a := range p.images {
		if a.ID == id {
			p.images = append(p.images[:i], p.images[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		for i, a := range p.audios {
			if a.ID == id {
				p.audios = append(p.audios[:i], p.audios[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		for i, a := range p.documents {
			if a.ID == id {
				p.documents = append(p.documents[:i], p.documents[i+1:]...)
				removed = true
				break
			}
		}
	}

	notifier := p.notifier
	p.mu.Unlock()

	if removed {
		notifier.StagingChanged()
	}
	return removed
}

// Clear removes all staged attachments. Called when a send reaches a
// terminal state.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	changed := len(p.images)+len(p.audios)+len(p.documents) > 0
	p.images = nil
	p.audios = nil
	p.documents = nil
	notifier := p.notifier
	p.mu.Unlock()

	if changed {
		notifier.StagingChanged()
	}
}

// Snapshot returns copies of the staged attachment sets.
func (p *Pipeline) Snapshot() (images []ImageAttachment, audios []AudioAttachment, documents []DocumentAttachment) {
	p.mu.Lock()
	defer p.mu.Unlock()

	images = append([]ImageAttachment(nil), p.images...)
	audios = append([]AudioAttachment(nil), p.audios...)
	documents = make([]DocumentAttachment, len(p.documents))
	for i, d := range p.documents {
		documents[i] = d
		documents[i].Chunks = append([]backend.DocumentChunk(nil), d.Chunks...)
	}
	return images, audios, documents
}

// Count returns the number of staged attachments.
func (p *Pipeline) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.images) + len(p.audios) + len(p.documents)
}

// HasPendingDocuments reports whether any staged document still lacks
// its chunk records.
func (p *Pipeline) HasPendingDocuments() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.documents {
		if !d.Processed {
			return true
		}
	}
	return false
}

// Progress returns the current shared processing progress.
func (p *Pipeline) Progress() ProcessingProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Blocks converts the staged set to message content blocks, preserving
// staging order within each modality: images, then audio, then documents.
// Unprocessed documents are skipped.
func (p *Pipeline) Blocks() []model.ContentBlock {
	images, audios, documents := p.Snapshot()

	blocks := make([]model.ContentBlock, 0, len(images)+len(audios)+len(documents))
	for _, a := range images {
		blocks = append(blocks, model.NewImageBlock(a.DataURL, ""))
	}
	for _, a := range audios {
		blocks = append(blocks, model.NewAudioBlock(a.Filename, a.Transcription, a.Duration))
	}
	for _, d := range documents {
		if !d.Processed {
			continue
		}
		blocks = append(blocks, model.NewDocumentBlock(d.Filename, d.Size, d.Chunks))
	}
	return blocks
}

// Chunks returns the chunk records of every processed staged document,
// in staging order.
func (p *Pipeline) Chunks() []backend.DocumentChunk {
	p.mu.Lock()
	defer p.mu.Unlock()

	var chunks []backend.DocumentChunk
	for _, d := range p.documents {
		if d.Processed {
			chunks = append(chunks, d.Chunks...)
		}
	}
	return chunks
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

// setProgress writes the shared progress record and notifies.
func (p *Pipeline) setProgress(progress ProcessingProgress) {
	p.mu.Lock()
	p.progress = progress
	notifier := p.notifier
	p.mu.Unlock()
	notifier.ProgressChanged(progress)
}

// findDocument looks up a document by ID. Caller holds the mutex.
func (p *Pipeline) findDocument(id string) (DocumentAttachment, bool) {
	for _, d := range p.documents {
		if d.ID == id {
			return d, true
		}
	}
	return DocumentAttachment{}, false
}

// imageMIME maps an image file extension to its MIME type.
func imageMIME(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png", true
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".gif":
		return "image/gif", true
	case ".webp":
		return "image/webp", true
	case ".bmp":
		return "image/bmp", true
	default:
		return "", false
	}
}

// audioMIME maps an audio (or audio-bearing video container) extension to
// its MIME type. Video containers are accepted because the backend
// extracts their audio track.
func audioMIME(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav", true
	case ".mp3":
		return "audio/mpeg", true
	case ".m4a":
		return "audio/mp4", true
	case ".ogg":
		return "audio/ogg", true
	case ".flac":
		return "audio/flac", true
	case ".aac":
		return "audio/aac", true
	case ".mp4":
		return "video/mp4", true
	case ".avi":
		return "video/x-msvideo", true
	case ".mov":
		return "video/quicktime", true
	case ".mkv":
		return "video/x-matroska", true
	case ".webm":
		return "video/webm", true
	default:
		return "", false
	}
}
