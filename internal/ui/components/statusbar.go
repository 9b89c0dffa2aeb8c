// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lumenforge/lumen-tui/internal/session"
	"github.com/lumenforge/lumen-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar renders the bottom bar: provider mode, deep analysis and
// staged link indicators, the save state, and key hints.
type StatusBar struct {
	Width     int
	Mode      string
	Deep      bool
	HasLink   bool
	SaveState session.SaveState
	Streaming bool
	theme     *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// View renders the bar as a single line.
func (s *StatusBar) View() string {
	var left []string

	if s.Mode != "" {
		left = append(left, s.theme.ModeBadge.Render(strings.ToUpper(s.Mode)))
	}
	if s.Deep {
		left = append(left, s.theme.DeepBadge.Render("DEEP"))
	}
	if s.HasLink {
		left = append(left, s.theme.LinkBadge.Render("LINK"))
	}

	switch s.SaveState {
	case session.StateSaving:
		left = append(left, s.theme.StatusSaving.Render(s.SaveState.String()))
	default:
		left = append(left, s.theme.StatusSaved.Render(s.SaveState.String()))
	}

	if s.Streaming {
		left = append(left, s.theme.ThinkingText.Render("streaming"))
	}

	leftStr := strings.Join(left, " ")

	hints := s.renderHints()
	gap := s.Width - lipgloss.Width(leftStr) - lipgloss.Width(hints) - 2
	if gap < 1 {
		gap = 1
	}

	return s.theme.StatusBar.Width(s.Width).Render(leftStr + spaces(gap) + hints)
}

func (s *StatusBar) renderHints() string {
	if s.Width < 60 {
		return s.theme.ShortcutKey.Render("/help")
	}
	pairs := []struct{ key, desc string }{
		{"/help", "commands"},
		{"ctrl+c", "quit"},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, s.theme.ShortcutKey.Render(p.key)+" "+s.theme.ShortcutDesc.Render(p.desc))
	}
	return strings.Join(parts, "  ")
}
