// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/lumenforge/lumen-tui/internal/model"
	"github.com/lumenforge/lumen-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE VIEW
// =============================================================================

// MessageView renders one transcript entry: a sender label line, the
// body, and any attachment listing.
type MessageView struct {
	Message       *model.Message
	Width         int
	ShowTimestamp bool
	theme         *styles.Theme
}

// NewMessageView creates a message view with the default width.
func NewMessageView(msg *model.Message, theme *styles.Theme) *MessageView {
	return &MessageView{
		Message:       msg,
		Width:         80,
		ShowTimestamp: true,
		theme:         theme,
	}
}

// SetWidth sets the rendered width.
func (v *MessageView) SetWidth(width int) {
	v.Width = width
}

// View renders the entry.
func (v *MessageView) View() string {
	if v.Message == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(v.renderLabel())
	b.WriteString("\n")
	b.WriteString(v.renderBody())

	if v.Message.HasAttachments() {
		b.WriteString("\n")
		b.WriteString(v.renderAttachments())
	}
	return b.String()
}

func (v *MessageView) renderLabel() string {
	var label lipgloss.Style
	if v.Message.Sender == model.SenderUser {
		label = v.theme.UserLabel
	} else {
		label = v.theme.ModelLabel
	}

	line := label.Render(v.Message.Sender.DisplayName())
	if v.Message.IsError {
		line += " " + v.theme.ErrorTitle.Render("(interrupted)")
	}
	if v.ShowTimestamp && !v.Message.Timestamp.IsZero() {
		line += " " + v.theme.Timestamp.Render(v.Message.Timestamp.Format("15:04"))
	}
	return line
}

func (v *MessageView) renderBody() string {
	text := v.Message.Text
	if text == "" && v.Message.IsStreaming {
		text = "..."
	}

	bodyWidth := v.Width - 4
	if bodyWidth < 20 {
		bodyWidth = 20
	}

	var body string
	switch {
	case v.Message.IsError:
		return v.theme.ErrorBody.Width(bodyWidth).Render(text)
	case v.Message.Sender == model.SenderModel:
		body = renderMarkdown(text, bodyWidth)
		if v.Message.IsStreaming {
			body = strings.TrimRight(body, "\n") + v.theme.StreamGlyph.Render(" |")
		}
		return v.theme.ModelBody.Render(body)
	default:
		return v.theme.UserBody.Width(bodyWidth).Render(text)
	}
}

func (v *MessageView) renderAttachments() string {
	lines := make([]string, 0, len(v.Message.Attachments))
	for _, att := range v.Message.Attachments {
		line := "+ " + att.Name
		if att.MimeType != "" {
			line += " (" + att.MimeType + ")"
		}
		lines = append(lines, v.theme.Attachment.Render(line))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	rendererMu    sync.Mutex
	rendererWidth int
	renderer      *glamour.TermRenderer
)

// renderMarkdown renders markdown for terminal display, rebuilding the
// glamour renderer only when the wrap width changes. Returns the input
// unchanged when rendering fails.
func renderMarkdown(content string, width int) string {
	rendererMu.Lock()
	defer rendererMu.Unlock()

	if renderer == nil || rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		renderer = r
		rendererWidth = width
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}
