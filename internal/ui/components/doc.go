// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the lumen
// TUI: the header bar, message transcript entries, the status bar, the
// session picker, the help overlay, and the chroma-backed code block
// renderer.
package components
