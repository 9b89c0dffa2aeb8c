// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumenforge/lumen-tui/internal/attach"
	"github.com/lumenforge/lumen-tui/internal/config"
	"github.com/lumenforge/lumen-tui/internal/engine"
	"github.com/lumenforge/lumen-tui/internal/export"
	"github.com/lumenforge/lumen-tui/internal/model"
	"github.com/lumenforge/lumen-tui/internal/preview"
	"github.com/lumenforge/lumen-tui/internal/provider"
	"github.com/lumenforge/lumen-tui/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StreamEventMsg wraps one engine event. The provider sink pushes these
// into the program, so turns keep streaming while the UI does other
// things.
type StreamEventMsg struct {
	Event engine.Event
}

// SendFailedMsg reports that a turn could not be started.
type SendFailedMsg struct {
	Err error
}

// ImageReadyMsg carries a finished image generation. Path is the saved
// PNG on disk, or empty when the write failed.
type ImageReadyMsg struct {
	Prompt     string
	Path       string
	Attachment model.Attachment
	Err        error
}

// ExportDoneMsg reports the outcome of a session export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// BackupDoneMsg reports the outcome of a full history backup.
type BackupDoneMsg struct {
	Path string
	Err  error
}

// CopyDoneMsg reports the outcome of a clipboard copy.
type CopyDoneMsg struct {
	Err error
}

// FilesAttachedMsg reports a finished file-ingest batch. Skipped holds
// the paths that could not be read.
type FilesAttachedMsg struct {
	Added   []string
	Skipped []string
}

// PasteResultMsg carries an attachment ingested from the clipboard.
type PasteResultMsg struct {
	Attachment model.Attachment
	Ok         bool
	Err        error
}

// PreviewReadyMsg reports that the preview server is serving.
type PreviewReadyMsg struct {
	URL string
	Err error
}

// ConfigReloadedMsg carries a freshly reloaded configuration from the
// file watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// statusExpiredMsg clears a transient status line entry.
type statusExpiredMsg struct {
	id int
}

// =============================================================================
// COMMANDS
// =============================================================================

const imageTimeout = 90 * time.Second

// statusTTL is how long a transient status line stays on screen.
var statusTTL = 4 * time.Second

// sendTurnCmd starts a conversation turn. Stream progress arrives
// separately through the engine sink.
func sendTurnCmd(ctx context.Context, eng *engine.Engine, text string, attachments []model.Attachment) tea.Cmd {
	return func() tea.Msg {
		if err := eng.Send(ctx, text, attachments); err != nil {
			return SendFailedMsg{Err: err}
		}
		return nil
	}
}

// analyzeErrorCmd starts a turn asking the model to fix an error.
func analyzeErrorCmd(ctx context.Context, eng *engine.Engine, errText string) tea.Cmd {
	return func() tea.Msg {
		if err := eng.AnalyzeError(ctx, errText); err != nil {
			return SendFailedMsg{Err: err}
		}
		return nil
	}
}

// imagineCmd generates an image, writes it under the data directory,
// and returns it as an attachment.
func imagineCmd(prov provider.ContextProvider, req provider.ImageRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), imageTimeout)
		defer cancel()

		result, err := prov.GenerateImage(ctx, req)
		if err != nil {
			return ImageReadyMsg{Prompt: req.Prompt, Err: err}
		}

		path, err := saveImage(result.DataURI)
		if err != nil {
			// The image still reaches the transcript as a data URI.
			path = ""
		}
		return ImageReadyMsg{
			Prompt: req.Prompt,
			Path:   path,
			Attachment: model.Attachment{
				Name:     "generated.png",
				Content:  result.DataURI,
				MimeType: result.MimeType,
				Kind:     model.AttachmentImage,
			},
		}
	}
}

// saveImage decodes a base64 data URI and writes it to
// <data dir>/images/<unix-nano>.png, returning the file path.
func saveImage(dataURI string) (string, error) {
	idx := strings.Index(dataURI, "base64,")
	if idx < 0 {
		return "", fmt.Errorf("image payload is not base64 encoded")
	}
	raw, err := base64.StdEncoding.DecodeString(dataURI[idx+len("base64,"):])
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, strconv.FormatInt(time.Now().UnixNano(), 10)+".png")
	if err := util.AtomicWriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// exportCmd writes the session to disk in the requested format.
func exportCmd(sess *model.Session, format string, opts *export.Options) tea.Cmd {
	return func() tea.Msg {
		var path string
		var err error
		if format == "json" {
			path, err = export.ExportJSON(sess, opts)
		} else {
			path, err = export.ExportMarkdown(sess, opts)
		}
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// backupCmd bundles every session into a zip archive.
func backupCmd(sessions []*model.Session, outputDir string) tea.Cmd {
	return func() tea.Msg {
		path, err := export.WriteBackup(sessions, outputDir)
		return BackupDoneMsg{Path: path, Err: err}
	}
}

// copyCmd puts text on the system clipboard.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopyDoneMsg{Err: clipboard.WriteAll(text)}
	}
}

// attachFilesCmd ingests the given paths off the main loop. Directories
// are walked so a folder drop attaches every file under it; unreadable
// entries are skipped, not fatal.
func attachFilesCmd(processor *attach.Processor, paths []string) tea.Cmd {
	return func() tea.Msg {
		var msg FilesAttachedMsg
		for _, path := range expandPaths(paths) {
			att, err := processor.IngestFile(path)
			if err != nil {
				msg.Skipped = append(msg.Skipped, path)
				continue
			}
			processor.Add(att)
			msg.Added = append(msg.Added, att.Name)
		}
		return msg
	}
}

// expandPaths flattens directories into the files beneath them.
func expandPaths(paths []string) []string {
	var out []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			out = append(out, path)
			continue
		}
		filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err == nil && !d.IsDir() {
				out = append(out, p)
			}
			return nil
		})
	}
	return out
}

// pasteCmd ingests the clipboard as an attachment.
func pasteCmd(processor *attach.Processor) tea.Cmd {
	return func() tea.Msg {
		att, ok, err := processor.Paste()
		return PasteResultMsg{Attachment: att, Ok: ok, Err: err}
	}
}

// startPreviewCmd starts the preview server if needed and reports its URL.
func startPreviewCmd(server *preview.Server) tea.Cmd {
	return func() tea.Msg {
		if server.Running() {
			return PreviewReadyMsg{URL: server.URL()}
		}
		url, err := server.Start()
		return PreviewReadyMsg{URL: url, Err: err}
	}
}

// expireStatusCmd clears the status line after a short hold.
func expireStatusCmd(id int) tea.Cmd {
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusExpiredMsg{id: id}
	})
}
