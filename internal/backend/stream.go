// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for communicating with the
// workbench API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
)

// dataPrefix marks a line carrying one event record payload.
const dataPrefix = "data:"

// doneSentinel is the control payload meaning "no further frames".
// It is consumed by the decoder and never yielded as a data frame.
const doneSentinel = "[DONE]"

// readChunkSize is the transport read size. Frames routinely straddle
// chunk boundaries, so the decoder never assumes alignment.
const readChunkSize = 4096

// =============================================================================
// FRAME DECODER
// =============================================================================

// Decoder reassembles event-stream frames from arbitrarily-chunked input.
//
// Feed appends a chunk to the residual buffer, splits on line boundaries,
// and returns the JSON payload of every complete "data:" line. The final
// (possibly incomplete) line is retained as the new residual. Blank lines
// separate records and are skipped. A malformed payload is dropped with a
// diagnostic and decoding continues; one corrupt frame never aborts the
// stream.
type Decoder struct {
	residual []byte
	done     bool
	dropped  int

	// OnDrop, if set, is called with each malformed line before it is
	// discarded. Used for diagnostics only.
	OnDrop func(line []byte)
}

// NewDecoder creates a decoder with an empty residual buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes one transport chunk and returns all complete frames it
// unlocked, in arrival order. After the terminator sentinel has been seen,
// Feed returns nil for all further input.
func (d *Decoder) Feed(chunk []byte) [][]byte {
	if d.done {
		return nil
	}

	d.residual = append(d.residual, chunk...)

	var frames [][]byte
	for {
		idx := bytes.IndexByte(d.residual, '\n')
		if idx < 0 {
			break
		}

		line := d.residual[:idx]
		d.residual = d.residual[idx+1:]

		frame, terminal := d.decodeLine(line)
		if terminal {
			d.done = true
			d.residual = nil
			return frames
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}

	return frames
}

// Flush parses a trailing non-empty residual as a final frame. This handles
// a transport that ends without a trailing line terminator. Returns nil if
// the residual is empty, terminal, or not a data line.
func (d *Decoder) Flush() []byte {
	if d.done || len(d.residual) == 0 {
		return nil
	}
	line := d.residual
	d.residual = nil

	frame, terminal := d.decodeLine(line)
	if terminal {
		d.done = true
		return nil
	}
	return frame
}

// Done reports whether the terminator sentinel has been observed.
func (d *Decoder) Done() bool {
	return d.done
}

// Dropped returns the number of malformed lines discarded so far.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// decodeLine extracts the payload from one complete line.
// Returns (frame, terminal): frame is nil for blank lines, non-data lines,
// and malformed payloads; terminal is true for the end sentinel.
func (d *Decoder) decodeLine(line []byte) ([]byte, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})

	// Blank lines separate records
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, false
	}

	// Ignore lines outside the prefix convention (comments, keep-alives)
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return nil, false
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if string(payload) == doneSentinel {
		return nil, true
	}

	if !json.Valid(payload) {
		d.dropped++
		if d.OnDrop != nil {
			d.OnDrop(line)
		}
		return nil, false
	}

	return payload, false
}

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader drives a Decoder from an io.Reader, yielding one frame at a
// time. Frames are returned strictly in arrival order.
type StreamReader struct {
	reader  io.Reader
	decoder *Decoder
	pending [][]byte
	eof     bool
	readErr error
}

// NewStreamReader creates a stream reader over the response body.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader:  r,
		decoder: NewDecoder(),
	}
}

// Decoder exposes the underlying decoder for diagnostics.
func (s *StreamReader) Decoder() *Decoder {
	return s.decoder
}

// Next returns the next complete frame, or io.EOF when the stream has ended
// or the terminator sentinel was observed. The context is consulted between
// transport reads; cancellation surfaces as ctx.Err().
func (s *StreamReader) Next(ctx context.Context) ([]byte, error) {
	for {
		if len(s.pending) > 0 {
			frame := s.pending[0]
			s.pending = s.pending[1:]
			return frame, nil
		}

		if s.decoder.Done() {
			return nil, io.EOF
		}
		if s.eof {
			// Frames decoded before a transport failure have all been
			// delivered; now surface the failure itself, once.
			if s.readErr != nil {
				err := s.readErr
				s.readErr = nil
				return nil, err
			}
			return nil, io.EOF
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		buf := make([]byte, readChunkSize)
		n, err := s.reader.Read(buf)
		if n > 0 {
			s.pending = s.decoder.Feed(buf[:n])
		}
		if err != nil {
			s.eof = true
			if err != io.EOF {
				s.readErr = err
				continue
			}
			if frame := s.decoder.Flush(); frame != nil {
				s.pending = append(s.pending, frame)
			}
		}
	}
}

// =============================================================================
// EVENT ROUTING
// =============================================================================

// ChatCallback is called for each chat stream event, in arrival order.
type ChatCallback func(event ChatEvent)

// DocCallback is called for each document processing event, in arrival order.
type DocCallback func(event DocEvent)

// ProcessChat reads the stream and routes each frame as a chat event.
// Frames with unknown or missing type discriminants are ignored so newer
// backends can add event kinds without breaking older clients. Returns as
// soon as a terminal event has been delivered; later frames are not read.
func (s *StreamReader) ProcessChat(ctx context.Context, callback ChatCallback) error {
	for {
		frame, err := s.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var event ChatEvent
		if err := json.Unmarshal(frame, &event); err != nil {
			s.decoder.dropped++
			continue
		}

		switch event.Type {
		case ChatEventDelta, ChatEventComplete, ChatEventError:
			callback(event)
			if event.Terminal() {
				return nil
			}
		default:
			// Unknown event kind, skip
		}
	}
}

// ProcessDocument reads the stream and routes each frame as a document
// processing event. Same forward-compatibility and termination rules as
// ProcessChat.
func (s *StreamReader) ProcessDocument(ctx context.Context, callback DocCallback) error {
	for {
		frame, err := s.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var event DocEvent
		if err := json.Unmarshal(frame, &event); err != nil {
			s.decoder.dropped++
			continue
		}

		switch event.Type {
		case DocEventProgress, DocEventResult, DocEventError:
			callback(event)
			if event.Terminal() {
				return nil
			}
		default:
			// Unknown event kind, skip
		}
	}
}
