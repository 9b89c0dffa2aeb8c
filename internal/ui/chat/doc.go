// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea model that drives the lumen chat
// view. It owns the transcript viewport, the input line, the session
// picker and help overlays, and the dispatch of slash commands.
//
// Streaming replies arrive as StreamEventMsg values pushed into the
// program from the engine's sink, so a turn keeps flowing while the
// user scrolls, opens overlays, or switches sessions.
package chat
