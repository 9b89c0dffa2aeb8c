// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the lumen TUI.
// All colors use Lip Gloss AdaptiveColor so the palette holds up on
// both light and dark terminals, with termenv handling capability
// detection.
package styles
