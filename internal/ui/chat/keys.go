// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// keys.go - Keyboard shortcuts for the chat view.
package chat

// KeyMap documents the chat view's keyboard shortcuts. Bindings are matched
// on tea.KeyMsg.String() values.
type KeyMap struct {
	Submit     string
	Cancel     string
	Quit       string
	ForceQuit  string
	Clear      string
	Help       string
	ScrollUp   string
	ScrollDown string
	PageUp     string
	PageDown   string
	GotoTop    string
	GotoBottom string
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit:     "enter",
		Cancel:     "esc",
		Quit:       "ctrl+c",
		ForceQuit:  "ctrl+q",
		Clear:      "ctrl+l",
		Help:       "ctrl+h",
		ScrollUp:   "up",
		ScrollDown: "down",
		PageUp:     "pgup",
		PageDown:   "pgdown",
		GotoTop:    "home",
		GotoBottom: "end",
	}
}

// helpEntry is one row of the help overlay.
type helpEntry struct {
	key  string
	desc string
}

// helpEntries lists the shortcuts and slash commands shown by the overlay.
func helpEntries() []helpEntry {
	return []helpEntry{
		{"enter", "send message"},
		{"esc / ctrl+c", "cancel the current stream"},
		{"ctrl+c (idle)", "quit"},
		{"ctrl+l", "clear conversation"},
		{"ctrl+h", "toggle this help"},
		{"pgup / pgdown", "scroll transcript"},
		{"home / end", "jump to top / bottom"},
		{"", ""},
		{"/model [name]", "show or switch model"},
		{"/kb [name]", "show or switch knowledge base"},
		{"/attach PATH", "stage an image, audio, or document file"},
		{"/detach N", "remove staged attachment N"},
		{"/attachments", "list staged attachments"},
		{"/refs", "show citations from the last answer"},
		{"/stats", "session statistics"},
		{"/clear", "clear conversation"},
		{"/quit", "exit"},
	}
}
