// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/lumenforge/lumen-tui/internal/model"
	"github.com/lumenforge/lumen-tui/internal/ui/styles"
	"github.com/lumenforge/lumen-tui/internal/util"
)

// =============================================================================
// SESSION PICKER
// =============================================================================

// SessionList is the keyboard-driven session picker overlay. Sessions
// arrive already sorted newest first.
type SessionList struct {
	Sessions []*model.Session
	Cursor   int
	Width    int
	Height   int
	theme    *styles.Theme
}

// NewSessionList creates a picker over the given sessions.
func NewSessionList(sessions []*model.Session, theme *styles.Theme) *SessionList {
	return &SessionList{
		Sessions: sessions,
		Width:    60,
		Height:   20,
		theme:    theme,
	}
}

// MoveUp moves the cursor up one entry.
func (l *SessionList) MoveUp() {
	if l.Cursor > 0 {
		l.Cursor--
	}
}

// MoveDown moves the cursor down one entry.
func (l *SessionList) MoveDown() {
	if l.Cursor < len(l.Sessions)-1 {
		l.Cursor++
	}
}

// Selected returns the session under the cursor, or nil when empty.
func (l *SessionList) Selected() *model.Session {
	if l.Cursor < 0 || l.Cursor >= len(l.Sessions) {
		return nil
	}
	return l.Sessions[l.Cursor]
}

// View renders the picker box.
func (l *SessionList) View() string {
	var b strings.Builder
	b.WriteString(l.theme.SessionTitle.Render("Sessions"))
	b.WriteString("\n\n")

	if len(l.Sessions) == 0 {
		b.WriteString(l.theme.SessionMeta.Render("No saved sessions yet."))
		return l.theme.SessionList.Width(l.Width).Render(b.String())
	}

	visible := l.Height - 6
	if visible < 1 {
		visible = 1
	}
	start := 0
	if l.Cursor >= visible {
		start = l.Cursor - visible + 1
	}

	titleWidth := l.Width - 20
	if titleWidth < 16 {
		titleWidth = 16
	}

	for i := start; i < len(l.Sessions) && i < start+visible; i++ {
		sess := l.Sessions[i]
		title := util.TruncateWidth(sess.DisplayTitle(), titleWidth)
		meta := sess.ModifiedAt().Format("Jan 02 15:04") +
			" (" + strconv.Itoa(sess.MessageCount()) + " msgs)"

		line := padRight(title, titleWidth) + " " + l.theme.SessionMeta.Render(meta)
		if i == l.Cursor {
			b.WriteString(l.theme.SessionItemSelected.Render("> " + line))
		} else {
			b.WriteString(l.theme.SessionItem.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(l.theme.SessionMeta.Render("enter open  d delete  esc close"))

	return l.theme.SessionList.Width(l.Width).Render(b.String())
}
