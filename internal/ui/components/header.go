// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/lumenforge/lumen-tui/internal/ui/styles"
	"github.com/lumenforge/lumen-tui/internal/util"
)

// =============================================================================
// HEADER BAR
// =============================================================================

// Header renders the top bar: brand, active session title, and the
// signed-in identity.
type Header struct {
	Width        int
	SessionTitle string
	Owner        string
	theme        *styles.Theme
}

// NewHeader creates a header bar.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{Width: 80, theme: theme}
}

// View renders the header as a single line.
func (h *Header) View() string {
	brand := h.theme.HeaderBrand.Render("LUMEN")

	title := h.SessionTitle
	if title != "" {
		maxTitle := h.Width / 2
		if maxTitle < 10 {
			maxTitle = 10
		}
		title = h.theme.HeaderSubtitle.Render(util.TruncateWidth(title, maxTitle))
	}

	owner := ""
	if h.Owner != "" {
		owner = h.theme.HeaderSubtitle.Render("@" + h.Owner)
	}

	left := brand
	if title != "" {
		left += "  " + title
	}

	gap := h.Width - lipgloss.Width(left) - lipgloss.Width(owner) - 2
	if gap < 1 {
		gap = 1
	}

	line := left + spaces(gap) + owner
	return h.theme.Header.Width(h.Width).Render(line)
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = ' '
	}
	return string(buf)
}

// padRight pads s with spaces to the given display width.
func padRight(s string, width int) string {
	return s + spaces(width-runewidth.StringWidth(s))
}
