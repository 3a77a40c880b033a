// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for communicating with the
// workbench API.
//
// This package implements a client for the multimodal workbench backend,
// covering the streaming chat endpoint, the streaming document processing
// endpoint, single-shot audio transcription, and the listing/health
// endpoints. It also contains the frame decoder that reassembles
// event-stream records from arbitrarily-chunked transport reads.
//
// # Key Types
//
//   - Client: HTTP client for the workbench API
//   - Decoder: chunk-boundary-safe event-stream frame decoder
//   - StreamReader: drives a Decoder over a response body
//   - ChatEvent / DocEvent: typed stream events
//   - ChatRequest: multimodal chat request with history and document chunks
//
// # Usage
//
// Stream a chat response:
//
//	client := backend.NewClient()
//	err := client.ChatStream(ctx, req, func(ev backend.ChatEvent) {
//	    switch ev.Type {
//	    case backend.ChatEventDelta:
//	        fmt.Print(ev.Content)
//	    case backend.ChatEventComplete:
//	        // ev.References holds the citation list
//	    }
//	})
//
// Process a document with progress reporting:
//
//	err := client.ProcessDocument(ctx, docReq, func(ev backend.DocEvent) {
//	    if ev.Type == backend.DocEventProgress {
//	        fmt.Printf("%s %d%%\n", ev.Step, ev.Progress)
//	    }
//	})
//
// # Stream Framing
//
// Events arrive as "data: <json>" lines separated by blank lines, ended by
// a "data: [DONE]" sentinel. The Decoder tolerates frames split across
// transport chunks and skips malformed lines without aborting the stream.
package backend
