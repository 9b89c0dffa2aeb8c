// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/lumenforge/lumen-tui/internal/model"
	"github.com/lumenforge/lumen-tui/internal/util"
)

// =============================================================================
// KEYS
// =============================================================================

// historyKeyPrefix scopes a session list to one owner identity.
const historyKeyPrefix = "lumen_history_"

// profileKey holds the cached signed-in profile.
const profileKey = "lumen_profile"

// titleMaxRunes is the fixed length a derived title is cut to before
// the ellipsis marker is appended.
const titleMaxRunes = 30

func historyKey(ownerID string) string {
	if ownerID == "" {
		ownerID = model.GuestOwnerID
	}
	return historyKeyPrefix + ownerID
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore manages the per-owner session collections on top of a
// key-value backend. Each mutation rewrites the owner's whole list,
// sorted most recently modified first.
type SessionStore struct {
	mu sync.Mutex
	kv KeyValueStore
}

// NewSessionStore creates a store over the given backend.
func NewSessionStore(kv KeyValueStore) *SessionStore {
	return &SessionStore{kv: kv}
}

// LoadAll returns the owner's sessions, most recent first. A missing or
// corrupt stored list yields an empty collection rather than an error
// so a damaged history file never blocks startup.
func (s *SessionStore) LoadAll(ownerID string) []*model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ownerID)
}

func (s *SessionStore) loadLocked(ownerID string) []*model.Session {
	data, ok, err := s.kv.Get(historyKey(ownerID))
	if err != nil || !ok {
		return []*model.Session{}
	}

	var sessions []*model.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return []*model.Session{}
	}

	sortByLastModified(sessions)
	return sessions
}

// SaveAll persists the owner's full session list.
func (s *SessionStore) SaveAll(ownerID string, sessions []*model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ownerID, sessions)
}

func (s *SessionStore) saveLocked(ownerID string, sessions []*model.Session) error {
	sortByLastModified(sessions)

	// Marshal clones so a stream reducing into the tail message cannot
	// mutate the structs mid-encode.
	snapshot := make([]*model.Session, len(sessions))
	for i, sess := range sessions {
		snapshot[i] = sess.Clone()
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return s.kv.Set(historyKey(ownerID), data)
}

// Create makes a new seeded session for the owner, prepends it to the
// collection, persists, and returns both.
func (s *SessionStore) Create(ownerID string) (*model.Session, []*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := model.NewSession(ownerID)
	sessions := append([]*model.Session{session}, s.loadLocked(ownerID)...)
	if err := s.saveLocked(ownerID, sessions); err != nil {
		return nil, nil, err
	}
	return session, sessions, nil
}

// Delete removes the session with the given ID from the owner's
// collection and returns the remaining list.
func (s *SessionStore) Delete(ownerID, id string) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadLocked(ownerID)
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	if err := s.saveLocked(ownerID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// Update writes the session back into the owner's collection, deriving
// the title if it is still the placeholder, stamping LastModified, and
// re-sorting. Returns the reordered collection.
func (s *SessionStore) Update(ownerID string, session *model.Session) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.HasPlaceholderTitle() && session.MessageCount() > 1 {
		if title := deriveTitle(session); title != "" {
			session.SetTitle(title)
		}
	}
	session.StampModified()

	sessions := s.loadLocked(ownerID)
	replaced := false
	for i, sess := range sessions {
		if sess.ID == session.ID {
			sessions[i] = session
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append([]*model.Session{session}, sessions...)
	}

	if err := s.saveLocked(ownerID, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// deriveTitle takes the first line of the first user message, cut to a
// fixed length, with a trailing ellipsis marker.
func deriveTitle(session *model.Session) string {
	userMsg := session.FirstUserMessage()
	if userMsg == nil {
		return ""
	}
	line := util.FirstLine(userMsg.Text)
	if line == "" {
		return ""
	}
	runes := []rune(line)
	if len(runes) > titleMaxRunes {
		runes = runes[:titleMaxRunes]
	}
	return string(runes) + "..."
}

func sortByLastModified(sessions []*model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].ModifiedAt().After(sessions[j].ModifiedAt())
	})
}

// =============================================================================
// PROFILE
// =============================================================================

// LoadProfile returns the cached signed-in profile, or nil when signed
// out or the cached value is corrupt.
func (s *SessionStore) LoadProfile() *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.kv.Get(profileKey)
	if err != nil || !ok {
		return nil
	}
	var profile model.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil
	}
	return &profile
}

// SaveProfile caches the signed-in profile.
func (s *SessionStore) SaveProfile(profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	return s.kv.Set(profileKey, data)
}

// ClearProfile removes the cached profile.
func (s *SessionStore) ClearProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(profileKey)
}
