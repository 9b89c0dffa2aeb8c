// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"archive/zip"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumen-tui/internal/model"
)

func sampleSession() *model.Session {
	session := model.NewSession(model.GuestOwnerID)
	session.Title = "Build a trading bot..."
	session.AddMessage(model.NewUserMessage("Build a trading bot", []model.Attachment{
		{Name: "strategy.txt", Kind: model.AttachmentText, MimeType: "text/plain", Content: "buy low"},
	}))
	reply := session.AddModelMessage()
	reply.SetStreamText("Here is a plan.")
	reply.Finalize()
	return session
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownExport(t *testing.T) {
	content, err := NewMarkdownExporter(nil).Export(sampleSession())
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, "# Build a trading bot...")
	assert.Contains(t, text, "## Session Information")
	assert.Contains(t, text, "Build a trading bot")
	assert.Contains(t, text, "Here is a plan.")
	assert.Contains(t, text, "`strategy.txt` (text/plain)")
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	opts := &Options{OutputDir: ".", IncludeMetadata: false, IncludeTimestamps: false}
	content, err := NewMarkdownExporter(opts).Export(sampleSession())
	require.NoError(t, err)

	text := string(content)
	assert.NotContains(t, text, "## Session Information")
	assert.NotContains(t, text, "<sub>")
}

func TestMarkdownExport_ErrorMessageLabeled(t *testing.T) {
	session := sampleSession()
	errMsg := session.AddModelMessage()
	errMsg.FinalizeError("Error: Connection interrupted.")

	content, err := NewMarkdownExporter(nil).Export(session)
	require.NoError(t, err)
	assert.Contains(t, string(content), "(error)")
}

func TestMarkdownExport_RejectsNil(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(nil)
	assert.Error(t, err)
}

// =============================================================================
// JSON
// =============================================================================

func TestJSONExport_RoundTrips(t *testing.T) {
	session := sampleSession()
	content, err := NewJSONExporter().Export(session)
	require.NoError(t, err)

	var loaded model.Session
	require.NoError(t, json.Unmarshal(content, &loaded))
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, session.Title, loaded.Title)
	assert.Equal(t, session.MessageCount(), loaded.MessageCount())
}

// =============================================================================
// FILE EXPORT
// =============================================================================

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ExportMarkdown(sampleSession(), opts)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))
	assert.True(t, strings.HasSuffix(path, ".md"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Here is a plan.")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b_c", sanitizeFilename("a/b c"))
	assert.Equal(t, "session", sanitizeFilename(""))
}

// =============================================================================
// ZIP BACKUP
// =============================================================================

func TestWriteBackup(t *testing.T) {
	dir := t.TempDir()
	sessions := []*model.Session{sampleSession(), sampleSession()}

	path, err := WriteBackup(sessions, dir)
	require.NoError(t, err)

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "sessions.json")
	assert.Len(t, names, 3) // list + two transcripts

	for _, f := range r.File {
		if f.Name != "sessions.json" {
			assert.True(t, strings.HasPrefix(f.Name, "transcripts/"))
		}
	}
}
