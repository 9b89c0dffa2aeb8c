// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumenforge/lumen-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a session as a Markdown transcript.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export implements Exporter.
func (e *MarkdownExporter) Export(session *model.Session) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if session.MessageCount() == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(session.Title)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", session.LastModified.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", session.MessageCount()))
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: lumen\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(session.Title)))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(session.LastModified)))
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", session.MessageCount()))
		sb.WriteString(fmt.Sprintf("- **Temperature**: %.2f\n", session.Config.Temperature))
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")

	for i, msg := range session.Messages {
		label := msg.Sender.DisplayName()
		if msg.IsError {
			label += " (error)"
		}
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n",
				label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		sb.WriteString(msg.Text)
		sb.WriteString("\n\n")

		if len(msg.Attachments) > 0 {
			sb.WriteString("Attachments:\n\n")
			for _, att := range msg.Attachments {
				sb.WriteString(fmt.Sprintf("- `%s` (%s)\n", att.Name, att.MimeType))
			}
			sb.WriteString("\n")
		}

		if i < session.MessageCount()-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension implements Exporter.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType implements Exporter.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING
// =============================================================================

// escapeYAML quotes a string for use as a YAML scalar value.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#\"'\n") {
		s = strings.ReplaceAll(s, `"`, `\"`)
		return `"` + s + `"`
	}
	return s
}

// escapeMarkdown escapes heading-breaking characters in a title.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
