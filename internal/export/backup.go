// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lumenforge/lumen-tui/internal/model"
)

// =============================================================================
// ZIP BACKUP
// =============================================================================

// WriteBackup bundles an owner's full session history into a zip
// archive: sessions.json with the machine-readable list, plus one
// Markdown transcript per session. Returns the archive path.
func WriteBackup(sessions []*model.Session, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(outputDir,
		fmt.Sprintf("lumen_backup_%s.zip", time.Now().Format("20060102_150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	listData, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		zw.Close()
		return "", err
	}
	if err := writeZipEntry(zw, "sessions.json", listData); err != nil {
		zw.Close()
		return "", err
	}

	md := NewMarkdownExporter(DefaultOptions())
	for i, session := range sessions {
		content, err := md.Export(session)
		if err != nil {
			// Empty or broken sessions are skipped, not fatal.
			continue
		}
		name := fmt.Sprintf("transcripts/%03d_%s.md", i+1, sanitizeFilename(session.Title))
		if err := writeZipEntry(zw, name, content); err != nil {
			zw.Close()
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize archive: %w", err)
	}
	return path, nil
}

func writeZipEntry(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}
