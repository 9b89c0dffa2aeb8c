// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sort"
	"strings"

	"github.com/lumenforge/lumen-tui/internal/commands"
	"github.com/lumenforge/lumen-tui/internal/ui/styles"
)

// =============================================================================
// HELP OVERLAY
// =============================================================================

// HelpView renders the command reference grouped by category.
type HelpView struct {
	Registry *commands.Registry
	Width    int
	theme    *styles.Theme
}

// NewHelpView creates the help overlay.
func NewHelpView(registry *commands.Registry, theme *styles.Theme) *HelpView {
	return &HelpView{
		Registry: registry,
		Width:    70,
		theme:    theme,
	}
}

// View renders the overlay box.
func (h *HelpView) View() string {
	grouped := h.Registry.ByCategory()

	categories := make([]string, 0, len(grouped))
	for category := range grouped {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString(h.theme.SessionTitle.Render("Commands"))
	b.WriteString("\n")

	for _, category := range categories {
		b.WriteString("\n")
		b.WriteString(h.theme.HelpCategory.Render(category))
		b.WriteString("\n")
		for _, cmd := range grouped[category] {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			if len(cmd.Aliases) > 0 {
				usage += " (" + strings.Join(cmd.Aliases, ", ") + ")"
			}
			b.WriteString("  ")
			b.WriteString(h.theme.HelpCommand.Render(usage))
			b.WriteString(" ")
			b.WriteString(h.theme.HelpDesc.Render(cmd.Description))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(h.theme.SessionMeta.Render("esc close"))

	return h.theme.HelpBox.Width(h.Width).Render(b.String())
}
