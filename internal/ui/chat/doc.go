// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for ragbench.
//
// The view is a thin presentation layer over the conversation controller:
// it submits user input, renders the streaming assistant message with
// inline citations, shows the attachment staging bar with live document
// processing progress, and records per-stream statistics. All domain
// state lives in the controller and the staging pipeline; this package
// only draws it.
//
// Controller and pipeline callbacks arrive on streaming goroutines, so an
// event bridge converts them into Bubble Tea messages delivered through a
// channel the program drains with a self-rearming command.
package chat
