// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations, multimodal messages, and their
// content blocks.
//
// # Key Types
//
//   - Conversation: Container for a chat session with messages and metadata
//   - Message: Single message with role, ordered content blocks, and citations
//   - ContentBlock: Tagged union over text, image, audio, and document content
//   - Role: Message role enumeration (user, assistant, system, tool)
//
// # Usage
//
// Create a conversation and stream into it:
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("Summarize the report", attachments)
//	msg := conv.AddAssistantMessage()
//	msg.AppendDelta("The report")
//	msg.AppendDelta(" covers...")
//	msg.FinalizeStream("", refs, stats)
//
// A streaming message keeps its accumulated text in a single text block, so
// a view can always render msg.Blocks without caring whether the stream has
// finished.
package model
