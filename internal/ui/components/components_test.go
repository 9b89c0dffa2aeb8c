// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumen-tui/internal/commands"
	"github.com/lumenforge/lumen-tui/internal/model"
	"github.com/lumenforge/lumen-tui/internal/ui/styles"
)

func testTheme() *styles.Theme {
	return styles.NewTheme()
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

func TestParseCodeBlocks_RendersFencedBlock(t *testing.T) {
	text := "before\n```go\nfunc main() {}\n```\nafter"

	out := ParseCodeBlocks(text, 80)
	assert.Contains(t, out, "before")
	assert.Contains(t, out, "after")
	assert.Contains(t, out, "main")
	assert.NotContains(t, out, "```")
}

func TestParseCodeBlocks_UnclosedFenceStillRenders(t *testing.T) {
	text := "```python\nprint('hi')"

	out := ParseCodeBlocks(text, 80)
	assert.Contains(t, out, "print")
	assert.NotContains(t, out, "```")
}

func TestCodeBlock_NumbersLines(t *testing.T) {
	cb := NewCodeBlock("go", "a := 1\nb := 2\nc := 3")

	out := cb.Render()
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "go")
}

// =============================================================================
// MESSAGE VIEW
// =============================================================================

func TestMessageView_UserMessage(t *testing.T) {
	msg := model.NewUserMessage("hello world", nil)
	msg.Timestamp = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	out := NewMessageView(msg, testTheme()).View()
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "09:30")
	assert.Contains(t, out, "hello world")
}

func TestMessageView_ModelMessageRendersMarkdown(t *testing.T) {
	msg := model.NewModelMessage()
	msg.SetStreamText("plain reply text")
	msg.Finalize()

	out := NewMessageView(msg, testTheme()).View()
	assert.Contains(t, out, "Lumen")
	assert.Contains(t, out, "plain reply text")
}

func TestMessageView_ErrorMessage(t *testing.T) {
	msg := model.NewModelMessage()
	msg.FinalizeError("Error: Connection interrupted.")

	out := NewMessageView(msg, testTheme()).View()
	assert.Contains(t, out, "(interrupted)")
	assert.Contains(t, out, "Error: Connection interrupted.")
}

func TestMessageView_ListsAttachments(t *testing.T) {
	msg := model.NewUserMessage("see files", []model.Attachment{
		{Name: "main.go", MimeType: "text/x-go", Kind: model.AttachmentText},
		{Name: "pic.png", MimeType: "image/png", Kind: model.AttachmentImage},
	})

	out := NewMessageView(msg, testTheme()).View()
	assert.Contains(t, out, "main.go (text/x-go)")
	assert.Contains(t, out, "pic.png (image/png)")
}

func TestMessageView_StreamingPlaceholder(t *testing.T) {
	msg := model.NewModelMessage()

	out := NewMessageView(msg, testTheme()).View()
	assert.Contains(t, out, "...")
}

// =============================================================================
// HEADER AND STATUS BAR
// =============================================================================

func TestHeader_ShowsBrandTitleOwner(t *testing.T) {
	h := NewHeader(testTheme())
	h.Width = 100
	h.SessionTitle = "Build a trading bot..."
	h.Owner = "guest"

	out := h.View()
	assert.Contains(t, out, "LUMEN")
	assert.Contains(t, out, "Build a trading bot...")
	assert.Contains(t, out, "@guest")
}

func TestStatusBar_ShowsBadgesAndSaveState(t *testing.T) {
	s := NewStatusBar(testTheme())
	s.Width = 100
	s.Mode = "gemini"
	s.Deep = true
	s.HasLink = true

	out := s.View()
	assert.Contains(t, out, "GEMINI")
	assert.Contains(t, out, "DEEP")
	assert.Contains(t, out, "LINK")
	assert.Contains(t, out, "SAVED")
}

// =============================================================================
// SESSION PICKER
// =============================================================================

func makeSessions(titles ...string) []*model.Session {
	sessions := make([]*model.Session, 0, len(titles))
	for _, title := range titles {
		sess := model.NewSession("guest")
		sess.Title = title
		sessions = append(sessions, sess)
	}
	return sessions
}

func TestSessionList_CursorMovement(t *testing.T) {
	l := NewSessionList(makeSessions("first", "second", "third"), testTheme())

	require.NotNil(t, l.Selected())
	assert.Equal(t, "first", l.Selected().Title)

	l.MoveUp()
	assert.Equal(t, "first", l.Selected().Title)

	l.MoveDown()
	l.MoveDown()
	assert.Equal(t, "third", l.Selected().Title)

	l.MoveDown()
	assert.Equal(t, "third", l.Selected().Title)
}

func TestSessionList_EmptyState(t *testing.T) {
	l := NewSessionList(nil, testTheme())

	assert.Nil(t, l.Selected())
	assert.Contains(t, l.View(), "No saved sessions yet.")
}

func TestSessionList_RendersTitles(t *testing.T) {
	l := NewSessionList(makeSessions("alpha", "beta"), testTheme())

	out := l.View()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func TestHelpView_ListsAllCommands(t *testing.T) {
	registry := commands.NewRegistry()
	h := NewHelpView(registry, testTheme())

	out := h.View()
	for _, cmd := range registry.All() {
		name := cmd.Name
		if cmd.Usage != "" {
			name = strings.Fields(cmd.Usage)[0]
		}
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "Sessions")
	assert.Contains(t, out, "Model")
}
