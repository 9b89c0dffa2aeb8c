// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// GENERATION CONFIG
// =============================================================================

// GenerationConfig holds the sampling parameters passed to the provider on
// context creation, plus the deep-thinking reasoning flag. It travels with
// a session and is persisted alongside its messages.
type GenerationConfig struct {
	Temperature  float64 `json:"temperature"`
	TopK         int     `json:"top_k"`
	TopP         float64 `json:"top_p"`
	DeepThinking bool    `json:"deep_thinking"`
}

// DefaultGenerationConfig returns the sampling defaults for new sessions.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature: 1.0,
		TopK:        64,
		TopP:        0.95,
	}
}

// =============================================================================
// SESSION TYPE
// =============================================================================

// PlaceholderTitle is assigned at session creation and replaced once a
// title can be derived from the first user message.
const PlaceholderTitle = "New Chat"

// GuestOwnerID scopes sessions that belong to no signed-in identity.
const GuestOwnerID = "guest"

// DefaultGreeting seeds the single assistant message in a new session.
const DefaultGreeting = "# Lumen online\n\n" +
	"Paste images, attach files, or drop links. Ask for UI code and open " +
	"a live preview of whatever I generate."

// Session holds an ordered, append-only message list plus its generation
// config. The streaming goroutine reduces deltas into the tail message
// while the main loop renders and the persistence sweep serializes, so
// every mutation and every snapshot read goes through mu.
type Session struct {
	mu sync.RWMutex

	ID           string           `json:"id"`
	OwnerID      string           `json:"owner_id"`
	Title        string           `json:"title"`
	Messages     []*Message       `json:"messages"`
	Config       GenerationConfig `json:"config"`
	LastModified time.Time        `json:"last_modified"`
}

// NewSession creates a session for the given owner, seeded with a single
// assistant greeting and default config.
func NewSession(ownerID string) *Session {
	if ownerID == "" {
		ownerID = GuestOwnerID
	}
	return &Session{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Title:        PlaceholderTitle,
		Messages:     []*Message{NewSeedMessage(DefaultGreeting)},
		Config:       DefaultGenerationConfig(),
		LastModified: time.Now(),
	}
}

// AddMessage appends a message and stamps LastModified.
func (s *Session) AddMessage(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(msg)
}

// AddModelMessage appends and returns a streaming model placeholder.
func (s *Session) AddModelMessage() *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := NewModelMessage()
	s.addLocked(msg)
	return msg
}

func (s *Session) addLocked(msg *Message) {
	s.Messages = append(s.Messages, msg)
	s.LastModified = time.Now()
}

// MessageByID returns the message with the given ID, or nil.
func (s *Session) MessageByID(id string) *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageByIDLocked(id)
}

func (s *Session) messageByIDLocked(id string) *Message {
	for _, msg := range s.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// ReduceStream folds the cumulative stream text into the in-progress
// message. Called from the streaming goroutine.
func (s *Session) ReduceStream(msgID, cumulative string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.messageByIDLocked(msgID); msg != nil {
		msg.SetStreamText(cumulative)
	}
}

// FinalizeStream marks the in-progress message complete.
func (s *Session) FinalizeStream(msgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.messageByIDLocked(msgID); msg != nil {
		msg.Finalize()
	}
}

// FailStream terminates the in-progress message with the given error
// text, discarding any partial content.
func (s *Session) FailStream(msgID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.messageByIDLocked(msgID); msg != nil {
		msg.FinalizeError(text)
	}
}

// LastMessage returns the most recent message, or nil if empty.
func (s *Session) LastMessage() *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// FirstUserMessage returns the earliest user message, or nil.
func (s *Session) FirstUserMessage() *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msg := range s.Messages {
		if msg.Sender == SenderUser {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// HasPlaceholderTitle reports whether the title has not yet been derived
// from content.
func (s *Session) HasPlaceholderTitle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Title == PlaceholderTitle || s.Title == ""
}

// DisplayTitle returns the current title for rendering.
func (s *Session) DisplayTitle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Title
}

// SetTitle replaces the title.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Title = title
}

// ModifiedAt returns the last-modified stamp.
func (s *Session) ModifiedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastModified
}

// StampModified sets the last-modified stamp to now.
func (s *Session) StampModified() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastModified = time.Now()
}

// Clone returns a deep copy of the session. Renderers and snapshot
// writes work from a clone so an in-flight stream cannot mutate the
// structs mid-read.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Session{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		Title:        s.Title,
		Config:       s.Config,
		LastModified: s.LastModified,
		Messages:     make([]*Message, len(s.Messages)),
	}
	for i, msg := range s.Messages {
		msgCopy := *msg
		clone.Messages[i] = &msgCopy
	}
	return clone
}

// =============================================================================
// PROFILE TYPE
// =============================================================================

// Profile is the cached identity that scopes the visible session
// collection. A nil profile means guest scope.
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// OwnerID returns the storage scope for the profile, falling back to guest.
func (p *Profile) OwnerID() string {
	if p == nil || p.ID == "" {
		return GuestOwnerID
	}
	return p.ID
}
