// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// =============================================================================
// FRAME DECODER TESTS
// =============================================================================

func TestDecoder_SingleFrame(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("data: {\"type\":\"content_delta\",\"content\":\"hi\"}\n\n"))
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}
	if got := string(frames[0]); got != `{"type":"content_delta","content":"hi"}` {
		t.Errorf("frame = %q", got)
	}
}

func TestDecoder_FrameStraddlesChunks(t *testing.T) {
	// One frame arbitrarily split across many Feed calls must come out whole.
	full := "data: {\"type\":\"content_delta\",\"content\":\"hello world\"}\n"
	for _, splitAt := range []int{1, 5, 10, len(full) - 1} {
		d := NewDecoder()
		frames := d.Feed([]byte(full[:splitAt]))
		frames = append(frames, d.Feed([]byte(full[splitAt:]))...)
		if len(frames) != 1 {
			t.Errorf("split at %d: len(frames) = %d, want 1", splitAt, len(frames))
			continue
		}
		if got := string(frames[0]); got != `{"type":"content_delta","content":"hello world"}` {
			t.Errorf("split at %d: frame = %q", splitAt, got)
		}
	}
}

func TestDecoder_MultipleFramesOneChunk(t *testing.T) {
	d := NewDecoder()
	input := "data: {\"type\":\"content_delta\",\"content\":\"a\"}\n\n" +
		"data: {\"type\":\"content_delta\",\"content\":\"b\"}\n\n" +
		"data: {\"type\":\"content_delta\",\"content\":\"c\"}\n"
	frames := d.Feed([]byte(input))
	if len(frames) != 3 {
		t.Fatalf("len(frames) = %d, want 3", len(frames))
	}
}

func TestDecoder_DoneSentinel(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("data: {\"type\":\"content_delta\",\"content\":\"x\"}\n\ndata: [DONE]\n"))
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}
	if !d.Done() {
		t.Error("Done() = false after sentinel")
	}

	// Anything after the sentinel is ignored
	if late := d.Feed([]byte("data: {\"type\":\"content_delta\",\"content\":\"late\"}\n")); late != nil {
		t.Errorf("Feed() after sentinel = %v, want nil", late)
	}
}

func TestDecoder_MalformedFrameSkipped(t *testing.T) {
	d := NewDecoder()
	var droppedLines []string
	d.OnDrop = func(line []byte) { droppedLines = append(droppedLines, string(line)) }

	input := "data: {\"type\":\"content_delta\",\"content\":\"ok\"}\n" +
		"data: {not json at all\n" +
		"data: {\"type\":\"content_delta\",\"content\":\"also ok\"}\n"
	frames := d.Feed([]byte(input))
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2 (malformed frame dropped)", len(frames))
	}
	if d.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", d.Dropped())
	}
	if len(droppedLines) != 1 || !strings.Contains(droppedLines[0], "not json") {
		t.Errorf("OnDrop lines = %v", droppedLines)
	}
}

func TestDecoder_IgnoresNonDataLines(t *testing.T) {
	d := NewDecoder()
	input := ": keep-alive comment\n" +
		"event: something\n" +
		"data: {\"type\":\"content_delta\",\"content\":\"x\"}\n"
	frames := d.Feed([]byte(input))
	if len(frames) != 1 {
		t.Errorf("len(frames) = %d, want 1", len(frames))
	}
	if d.Dropped() != 0 {
		t.Errorf("Dropped() = %d, non-data lines are not malformed", d.Dropped())
	}
}

func TestDecoder_CRLFLines(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("data: {\"type\":\"content_delta\",\"content\":\"x\"}\r\n\r\n"))
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}
}

func TestDecoder_FlushTrailingResidual(t *testing.T) {
	d := NewDecoder()
	// No trailing newline: the frame sits in the residual until Flush
	if frames := d.Feed([]byte("data: {\"type\":\"content_delta\",\"content\":\"tail\"}")); frames != nil {
		t.Fatalf("Feed() = %v, want nil (incomplete line)", frames)
	}
	frame := d.Flush()
	if frame == nil {
		t.Fatal("Flush() = nil, want trailing frame")
	}
	if got := string(frame); got != `{"type":"content_delta","content":"tail"}` {
		t.Errorf("Flush() = %q", got)
	}
}

func TestDecoder_FlushDoneSentinel(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("data: [DONE]"))
	if frame := d.Flush(); frame != nil {
		t.Errorf("Flush() = %q, want nil for sentinel", frame)
	}
	if !d.Done() {
		t.Error("Done() = false after flushed sentinel")
	}
}

// =============================================================================
// STREAM READER TESTS
// =============================================================================

// chunkedReader yields its parts one Read at a time, simulating a transport
// that delivers frames in arbitrary pieces.
type chunkedReader struct {
	parts [][]byte
	err   error
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.parts) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	part := r.parts[0]
	r.parts = r.parts[1:]
	n := copy(p, part)
	return n, nil
}

func TestStreamReader_Next(t *testing.T) {
	r := &chunkedReader{parts: [][]byte{
		[]byte("data: {\"type\":\"content_delta\",\"co"),
		[]byte("ntent\":\"a\"}\n\ndata: {\"type\":\"content_delta\",\"content\":\"b\"}\n"),
		[]byte("data: [DONE]\n"),
	}}
	sr := NewStreamReader(r)
	ctx := context.Background()

	var got []string
	for {
		frame, err := sr.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, string(frame))
	}
	if len(got) != 2 {
		t.Fatalf("frames = %v, want 2", got)
	}
}

func TestStreamReader_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sr := NewStreamReader(strings.NewReader("data: {\"type\":\"content_delta\"}\n"))
	if _, err := sr.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestStreamReader_DeliversFramesBeforeTransportFailure(t *testing.T) {
	transportErr := errors.New("connection reset")
	r := &chunkedReader{
		parts: [][]byte{[]byte("data: {\"type\":\"content_delta\",\"content\":\"partial\"}\n")},
		err:   transportErr,
	}
	sr := NewStreamReader(r)
	ctx := context.Background()

	frame, err := sr.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v, want decoded frame first", err)
	}
	if !strings.Contains(string(frame), "partial") {
		t.Errorf("frame = %q", frame)
	}

	if _, err := sr.Next(ctx); !errors.Is(err, transportErr) {
		t.Errorf("Next() error = %v, want transport error after drained frames", err)
	}
}

// failingReader returns its whole payload and the error from a single
// Read call, which io.Reader permits.
type failingReader struct {
	data []byte
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	n := copy(p, r.data)
	return n, r.err
}

func TestStreamReader_SurfacesErrorAfterDrainingFrames(t *testing.T) {
	transportErr := errors.New("unexpected EOF")
	r := &failingReader{
		data: []byte("data: {\"type\":\"content_delta\",\"content\":\"a\"}\n" +
			"data: {\"type\":\"content_delta\",\"content\":\"b\"}\n"),
		err: transportErr,
	}
	sr := NewStreamReader(r)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := sr.Next(ctx); err != nil {
			t.Fatalf("frame %d: Next() error = %v", i, err)
		}
	}

	// Once the decoded frames are drained the transport failure must come
	// back, not a clean end-of-stream.
	if _, err := sr.Next(ctx); !errors.Is(err, transportErr) {
		t.Fatalf("Next() after drain = %v, want transport error", err)
	}
	if _, err := sr.Next(ctx); err != io.EOF {
		t.Errorf("Next() after error = %v, want io.EOF", err)
	}
}

func TestStreamReader_FlushesUnterminatedTail(t *testing.T) {
	sr := NewStreamReader(strings.NewReader("data: {\"type\":\"content_delta\",\"content\":\"tail\"}"))
	ctx := context.Background()

	frame, err := sr.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if !strings.Contains(string(frame), "tail") {
		t.Errorf("frame = %q", frame)
	}
	if _, err := sr.Next(ctx); err != io.EOF {
		t.Errorf("Next() after tail = %v, want io.EOF", err)
	}
}

// =============================================================================
// EVENT ROUTING TESTS
// =============================================================================

func TestProcessChat_RoutesEventsInOrder(t *testing.T) {
	stream := "data: {\"type\":\"content_delta\",\"content\":\"Hel\"}\n\n" +
		"data: {\"type\":\"content_delta\",\"content\":\"lo\"}\n\n" +
		"data: {\"type\":\"message_complete\",\"full_content\":\"Hello\",\"references\":[{\"id\":1,\"text\":\"src\",\"source\":\"doc.pdf\"}]}\n\n" +
		"data: [DONE]\n"

	sr := NewStreamReader(strings.NewReader(stream))
	var events []ChatEvent
	err := sr.ProcessChat(context.Background(), func(ev ChatEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("ProcessChat() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	if events[0].Content != "Hel" || events[1].Content != "lo" {
		t.Errorf("deltas = %q, %q", events[0].Content, events[1].Content)
	}
	final := events[2]
	if final.Type != ChatEventComplete || final.FullContent != "Hello" {
		t.Errorf("final = %+v", final)
	}
	if len(final.References) != 1 || final.References[0].ID != 1 {
		t.Errorf("references = %+v", final.References)
	}
}

func TestProcessChat_StopsAtTerminalEvent(t *testing.T) {
	// Frames after the terminal event must not be delivered.
	stream := "data: {\"type\":\"message_complete\",\"full_content\":\"done\"}\n" +
		"data: {\"type\":\"content_delta\",\"content\":\"ghost\"}\n"

	sr := NewStreamReader(strings.NewReader(stream))
	var events []ChatEvent
	err := sr.ProcessChat(context.Background(), func(ev ChatEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("ProcessChat() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("len(events) = %d, want 1 (nothing after terminal)", len(events))
	}
}

func TestProcessChat_SkipsUnknownEventTypes(t *testing.T) {
	stream := "data: {\"type\":\"heartbeat\"}\n" +
		"data: {\"type\":\"content_delta\",\"content\":\"x\"}\n" +
		"data: [DONE]\n"

	sr := NewStreamReader(strings.NewReader(stream))
	var events []ChatEvent
	if err := sr.ProcessChat(context.Background(), func(ev ChatEvent) {
		events = append(events, ev)
	}); err != nil {
		t.Fatalf("ProcessChat() error = %v", err)
	}
	if len(events) != 1 || events[0].Type != ChatEventDelta {
		t.Errorf("events = %+v, want only the delta", events)
	}
}

func TestProcessChat_ErrorEventIsTerminal(t *testing.T) {
	stream := "data: {\"type\":\"error\",\"error\":\"model exploded\"}\n"
	sr := NewStreamReader(strings.NewReader(stream))

	var events []ChatEvent
	if err := sr.ProcessChat(context.Background(), func(ev ChatEvent) {
		events = append(events, ev)
	}); err != nil {
		t.Fatalf("ProcessChat() error = %v", err)
	}
	if len(events) != 1 || events[0].ErrorText != "model exploded" {
		t.Errorf("events = %+v", events)
	}
	if !events[0].Terminal() {
		t.Error("error event should be terminal")
	}
}

func TestProcessDocument_ProgressThenResult(t *testing.T) {
	stream := "data: {\"type\":\"progress\",\"step\":\"saving_file\",\"message\":\"Saving\",\"progress\":10}\n\n" +
		"data: {\"type\":\"progress\",\"step\":\"building_chunks\",\"message\":\"Chunking\",\"progress\":80}\n\n" +
		"data: {\"type\":\"result\",\"chunks\":[{\"id\":\"report.pdf_0\",\"content\":\"chunk text\",\"metadata\":{\"source\":\"report.pdf\",\"chunk_id\":0}}]}\n\n" +
		"data: [DONE]\n"

	sr := NewStreamReader(strings.NewReader(stream))
	var events []DocEvent
	if err := sr.ProcessDocument(context.Background(), func(ev DocEvent) {
		events = append(events, ev)
	}); err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	if events[0].Step != StageSaving || events[0].Progress != 10 {
		t.Errorf("first progress = %+v", events[0])
	}
	result := events[2]
	if result.Type != DocEventResult || len(result.Chunks) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Chunks[0].ID != "report.pdf_0" || result.Chunks[0].Metadata.Source != "report.pdf" {
		t.Errorf("chunk = %+v", result.Chunks[0])
	}
}

func TestProcessDocument_ErrorEvent(t *testing.T) {
	stream := "data: {\"type\":\"progress\",\"step\":\"loading_pdf\",\"progress\":30}\n" +
		"data: {\"type\":\"error\",\"error\":\"corrupt PDF\"}\n"

	sr := NewStreamReader(strings.NewReader(stream))
	var events []DocEvent
	if err := sr.ProcessDocument(context.Background(), func(ev DocEvent) {
		events = append(events, ev)
	}); err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[1].ErrorText != "corrupt PDF" || !events[1].Terminal() {
		t.Errorf("error event = %+v", events[1])
	}
}
