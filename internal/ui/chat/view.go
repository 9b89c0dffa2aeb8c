// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lumenforge/lumen-tui/internal/model"
)

// View renders the full frame: header, transcript or overlay, the
// attachment chips, the input line, and the status bar.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.overlay {
	case overlayHelp:
		b.WriteString(m.centerOverlay(m.helpView.View()))
	case overlaySessions:
		if m.sessionList != nil {
			b.WriteString(m.centerOverlay(m.sessionList.View()))
		}
	default:
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	if chips := m.renderAttachmentChips(); chips != "" {
		b.WriteString(chips)
		b.WriteString("\n")
	}

	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderHeader() string {
	m.header.Owner = model.GuestOwnerID
	if m.profile != nil {
		m.header.Owner = m.profile.name
	}
	m.header.SessionTitle = ""
	if sess := m.sessions.Active(); sess != nil {
		m.header.SessionTitle = sess.DisplayTitle()
	}
	return m.header.View()
}

func (m *Model) renderInput() string {
	line := m.input.View()
	if m.state == StateStreaming {
		line = m.spinner.View() + " " + m.theme.ThinkingText.Render("thinking...")
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(line)
}

func (m *Model) renderStatusBar() string {
	m.statusBar.Mode = string(m.engine.Mode())
	m.statusBar.Deep = m.engine.DeepAnalysis()
	m.statusBar.HasLink = m.engine.PendingLink() != ""
	m.statusBar.SaveState = m.sessions.SaveState()
	m.statusBar.Streaming = m.state == StateStreaming

	bar := m.statusBar.View()
	if m.status == "" {
		return bar
	}
	return bar + "\n" + m.theme.ThinkingText.Render(m.status)
}

// renderAttachmentChips shows staged attachments waiting for the next
// prompt.
func (m *Model) renderAttachmentChips() string {
	pending := m.attach.Pending()
	if len(pending) == 0 {
		return ""
	}

	chips := make([]string, 0, len(pending)+1)
	chips = append(chips, m.theme.Attachment.Render(
		strconv.Itoa(len(pending))+" attached:"))
	for _, att := range pending {
		chips = append(chips, m.theme.Attachment.Render("["+att.Name+"]"))
	}
	return " " + strings.Join(chips, " ")
}

// centerOverlay positions an overlay box in the transcript area.
func (m *Model) centerOverlay(box string) string {
	return lipgloss.Place(
		m.viewport.Width, m.viewport.Height,
		lipgloss.Center, lipgloss.Center,
		box,
	)
}
