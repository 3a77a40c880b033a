// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package staging manages attachments between selection and send.
//
// Attachments pass through a per-modality pipeline before they can join a
// message:
//
//   - Images are validated and base64-encoded locally; they are complete
//     the moment they are staged.
//   - Audio is uploaded for transcription first; only a successful
//     transcription produces a staged attachment.
//   - Documents are staged immediately but marked unprocessed until the
//     backend's streaming chunker returns their chunk records. A failed
//     run removes the document from staging.
//
// # Key Types
//
//   - Pipeline: thread-safe staged attachment set
//   - ImageAttachment / AudioAttachment / DocumentAttachment
//   - ProcessingProgress: shared last-writer-wins progress record
//   - Notifier: change callbacks for the UI
//
// # Usage
//
//	pipe := staging.NewPipeline(client)
//	pipe.AddImage("chart.png")
//	pipe.AddAudio(ctx, "memo.wav")
//	pipe.AddDocument(ctx, "report.pdf")
//
//	blocks := pipe.Blocks()   // content blocks for the outgoing message
//	chunks := pipe.Chunks()   // document chunks for the chat request
//	pipe.Clear()              // after the send reaches a terminal state
package staging
