// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderModel Sender = "model"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderModel:
		return "Lumen"
	default:
		return string(s)
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// AttachmentKind classifies an attachment by its content.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentText  AttachmentKind = "text"
)

// Attachment is a file or clipboard payload embedded by value in a message.
// Image content is a base64 data URI; text content is decoded UTF-8.
type Attachment struct {
	Name     string         `json:"name"`
	Content  string         `json:"content"`
	MimeType string         `json:"mime_type,omitempty"`
	Kind     AttachmentKind `json:"kind"`
	Path     string         `json:"path,omitempty"`
}

// IsImage reports whether the attachment holds image data.
func (a Attachment) IsImage() bool {
	return a.Kind == AttachmentImage
}

// DataURIPayload splits a data URI into its base64 payload, or returns
// ("", false) if the content is not a data URI.
func (a Attachment) DataURIPayload() (string, bool) {
	if !strings.HasPrefix(a.Content, "data:") {
		return "", false
	}
	idx := strings.Index(a.Content, ",")
	if idx < 0 {
		return "", false
	}
	return a.Content[idx+1:], true
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// SeedMessageID marks the synthetic greeting seeded into new sessions.
// Seed messages are excluded when reconstructing provider history.
const SeedMessageID = "seed"

// Message represents a single message in a session. Messages are immutable
// once appended, except for the in-place text growth of a model message
// while its turn is streaming.
type Message struct {
	ID          string       `json:"id"`
	Sender      Sender       `json:"sender"`
	Text        string       `json:"text"`
	Timestamp   time.Time    `json:"timestamp"`
	IsError     bool         `json:"is_error,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Streaming state (not persisted)
	IsStreaming bool `json:"-"`
}

// NewUserMessage creates a user message carrying the given attachments.
func NewUserMessage(text string, attachments []Attachment) *Message {
	return &Message{
		ID:          uuid.New().String(),
		Sender:      SenderUser,
		Text:        text,
		Timestamp:   time.Now(),
		Attachments: attachments,
	}
}

// NewModelMessage creates an empty streaming placeholder for a model reply.
func NewModelMessage() *Message {
	return &Message{
		ID:          uuid.New().String(),
		Sender:      SenderModel,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSeedMessage creates the synthetic assistant greeting for a new session.
func NewSeedMessage(text string) *Message {
	return &Message{
		ID:        SeedMessageID,
		Sender:    SenderModel,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// IsSeed reports whether this is the synthetic session greeting.
func (m *Message) IsSeed() bool {
	return m.ID == SeedMessageID
}

// SetStreamText replaces the in-progress text with the cumulative
// concatenation of all deltas received so far. Callers always resend the
// full accumulated text rather than a partial diff, so downstream
// renderers see a restartable document at every step.
func (m *Message) SetStreamText(cumulative string) {
	if m.IsStreaming {
		m.Text = cumulative
	}
}

// Finalize marks a streaming message as complete.
func (m *Message) Finalize() {
	m.IsStreaming = false
}

// FinalizeError terminates a streaming message with the given error text,
// discarding any partial content.
func (m *Message) FinalizeError(text string) {
	m.Text = text
	m.IsError = true
	m.IsStreaming = false
}

// FirstLine returns the first line of the message text.
func (m *Message) FirstLine() string {
	if idx := strings.IndexByte(m.Text, '\n'); idx >= 0 {
		return m.Text[:idx]
	}
	return m.Text
}

// HasAttachments reports whether the message carries attachments.
func (m *Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}
