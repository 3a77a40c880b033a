// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates the send/stream lifecycle of a conversation.
//
// The Controller enforces the single-send invariant: one streaming
// exchange at a time, moving through Idle, Sending, Streaming, and one of
// Completed, Failed, or Cancelled before returning to Idle. Cancellation
// is cooperative; the partial response text survives, and stream frames
// that race the cancellation are dropped.
//
// # Key Types
//
//   - Controller: owns the conversation, staging pipeline, and stream
//   - State: lifecycle state enumeration
//   - Listener: UI-facing event callbacks
//
// # Usage
//
//	ctrl := chat.NewController(client, pipeline, nil)
//	ctrl.SetListener(view)
//	if err := ctrl.Send(ctx, "Summarize the attached report"); err != nil {
//	    // ErrBusy or ErrEmptySend
//	}
//	// later, on user interrupt:
//	ctrl.Cancel()
package chat
