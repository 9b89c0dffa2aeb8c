// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach converts raw file and clipboard input into typed,
// content-addressable attachment records.
//
// Classification is by declared media type first (image/* is an image,
// anything else is text), with content sniffing as a fallback when no
// type is declared. Image content is encoded as a base64 data URI; text
// content is kept as decoded UTF-8. Ingestion is designed to run off the
// UI loop: each completed ingest appends independently to the shared
// pending set, so concurrent multi-file drops cannot interleave-corrupt
// the list.
package attach

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lumenforge/lumen-tui/internal/model"
)

// MaxReadBytes bounds a single ingest so a stray device file cannot wedge
// the client. Classification is still basic per design; this is not a
// policy limit.
const MaxReadBytes = 32 * 1024 * 1024

// =============================================================================
// CLIPBOARD CAPABILITY
// =============================================================================

// ClipboardSource abstracts the system clipboard so tests can inject a
// fake. The default implementation wraps atotto/clipboard.
type ClipboardSource interface {
	// Read returns the raw clipboard payload and its declared media type
	// (empty when unknown).
	Read() (data []byte, declaredType string, err error)
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor ingests raw input into attachments and owns the shared
// pending set for the next turn.
type Processor struct {
	mu        sync.Mutex
	pending   []model.Attachment
	clipboard ClipboardSource
}

// NewProcessor creates a processor with the given clipboard capability.
// A nil clipboard disables the paste path.
func NewProcessor(clipboard ClipboardSource) *Processor {
	return &Processor{clipboard: clipboard}
}

// IngestFile reads and classifies a file from disk. The path is retained
// on the attachment so folder drops keep their structure. An unreadable
// file returns an error and produces no attachment.
func (p *Processor) IngestFile(path string) (model.Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	declared := mime.TypeByExtension(filepath.Ext(path))
	att, err := p.Ingest(filepath.Base(path), declared, f)
	if err != nil {
		return model.Attachment{}, err
	}
	att.Path = path
	return att, nil
}

// Ingest classifies and converts a raw stream into an attachment.
func (p *Processor) Ingest(name, declaredType string, r io.Reader) (model.Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxReadBytes))
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return p.classify(name, declaredType, data)
}

// classify builds the attachment record from raw bytes.
func (p *Processor) classify(name, declaredType string, data []byte) (model.Attachment, error) {
	mediaType := declaredType
	if mediaType == "" {
		mediaType = mimetype.Detect(data).String()
	}
	// Strip parameters like "; charset=utf-8".
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}

	att := model.Attachment{
		Name:     name,
		MimeType: mediaType,
	}

	if strings.HasPrefix(mediaType, "image/") {
		att.Kind = model.AttachmentImage
		att.Content = "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
		return att, nil
	}

	att.Kind = model.AttachmentText
	att.Content = string(data)
	return att, nil
}

// =============================================================================
// CLIPBOARD PASTE PATH
// =============================================================================

// Paste ingests the clipboard if it holds image data. It returns
// (attachment, true) when an image was captured, in which case the
// caller must suppress its default paste handling. When the clipboard
// holds text or nothing it returns (zero, false) and default paste
// behavior applies.
func (p *Processor) Paste() (model.Attachment, bool, error) {
	if p.clipboard == nil {
		return model.Attachment{}, false, nil
	}
	data, declared, err := p.clipboard.Read()
	if err != nil {
		return model.Attachment{}, false, err
	}
	if len(data) == 0 {
		return model.Attachment{}, false, nil
	}

	mediaType := declared
	if mediaType == "" {
		mediaType = mimetype.Detect(data).String()
		if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
			mediaType = strings.TrimSpace(mediaType[:idx])
		}
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return model.Attachment{}, false, nil
	}

	name := fmt.Sprintf("pasted_image_%d%s", time.Now().UnixMilli(), extensionFor(mediaType))
	att, err := p.classify(name, mediaType, data)
	if err != nil {
		return model.Attachment{}, false, err
	}
	return att, true, nil
}

// extensionFor maps common pasted image types to a filename extension.
func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// =============================================================================
// PENDING SET
// =============================================================================

// Add appends a completed attachment to the pending set.
func (p *Processor) Add(att model.Attachment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, att)
}

// Pending returns a snapshot of the pending attachments.
func (p *Processor) Pending() []model.Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Attachment, len(p.pending))
	copy(out, p.pending)
	return out
}

// Remove drops the pending attachment at index i, ignoring out-of-range.
func (p *Processor) Remove(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.pending) {
		return
	}
	p.pending = append(p.pending[:i], p.pending[i+1:]...)
}

// Take returns the pending attachments and clears the set. Called when a
// turn is submitted.
func (p *Processor) Take() []model.Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pending
	p.pending = nil
	return out
}

// Count returns the number of pending attachments.
func (p *Processor) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
