// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumenforge/lumen-tui/internal/model"
	"github.com/lumenforge/lumen-tui/internal/storage"
)

// =============================================================================
// SAVE STATE
// =============================================================================

// SaveState is what the status bar shows for persistence activity.
type SaveState int

const (
	// StateSaved means the last write completed and the indicator has
	// settled.
	StateSaved SaveState = iota

	// StateSaving means a write just happened; the indicator holds this
	// state for a short fixed delay so the user can see it.
	StateSaving
)

func (s SaveState) String() string {
	if s == StateSaving {
		return "SYNCING"
	}
	return "SAVED"
}

// savingHold is how long the indicator shows SYNCING after a write.
// Purely cosmetic; the write itself is already durable.
const savingHold = 800 * time.Millisecond

// =============================================================================
// MANAGER
// =============================================================================

// Config holds scheduler settings.
type Config struct {
	// AutoSaveInterval is how often the active session is swept to
	// storage (default: 30 seconds).
	AutoSaveInterval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{AutoSaveInterval: 30 * time.Second}
}

// Manager owns the visible session collection for one owner identity,
// the active-session pointer, and the persistence schedule. Persist is
// called from the streaming goroutine, the rest from the main loop, so
// everything is mutex-guarded.
type Manager struct {
	mu sync.Mutex

	store   *storage.SessionStore
	ownerID string

	sessions []*model.Session
	activeID string

	saveState   SaveState
	savingSince time.Time

	autoSaveInterval time.Duration
	lastAutoSave     time.Time
}

// NewManager creates a manager scoped to the given owner and loads that
// owner's collection.
func NewManager(store *storage.SessionStore, ownerID string, cfg Config) *Manager {
	if cfg.AutoSaveInterval <= 0 {
		cfg.AutoSaveInterval = 30 * time.Second
	}
	if ownerID == "" {
		ownerID = model.GuestOwnerID
	}
	return &Manager{
		store:            store,
		ownerID:          ownerID,
		sessions:         store.LoadAll(ownerID),
		autoSaveInterval: cfg.AutoSaveInterval,
		lastAutoSave:     time.Now(),
	}
}

// =============================================================================
// COLLECTION
// =============================================================================

// OwnerID returns the identity whose collection is visible.
func (m *Manager) OwnerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownerID
}

// SwitchOwner swaps the visible collection to another identity. The
// active-session pointer is cleared; nothing is merged or migrated.
func (m *Manager) SwitchOwner(ownerID string) {
	if ownerID == "" {
		ownerID = model.GuestOwnerID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerID = ownerID
	m.sessions = m.store.LoadAll(ownerID)
	m.activeID = ""
}

// Sessions returns the visible collection, most recent first.
func (m *Manager) Sessions() []*model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Session, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// Active returns the active session, or nil when none is selected.
func (m *Manager) Active() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(m.activeID)
}

// ActiveID returns the active-session pointer.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// SetActive selects a session by ID. Selecting an unknown ID clears
// the pointer.
func (m *Manager) SetActive(id string) *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if found := m.findLocked(id); found != nil {
		m.activeID = id
		return found
	}
	m.activeID = ""
	return nil
}

func (m *Manager) findLocked(id string) *model.Session {
	if id == "" {
		return nil
	}
	for _, sess := range m.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// NewSession creates a seeded session, makes it active, and persists
// the collection.
func (m *Manager) NewSession() (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, sessions, err := m.store.Create(m.ownerID)
	if err != nil {
		return nil, err
	}
	m.sessions = sessions
	m.activeID = session.ID
	m.markSavedNowLocked()
	return session, nil
}

// DeleteSession removes a session. Deleting the active session clears
// the active pointer; deleting any other leaves it alone.
func (m *Manager) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.store.Delete(m.ownerID, id)
	if err != nil {
		return err
	}
	m.sessions = sessions
	if m.activeID == id {
		m.activeID = ""
	}
	return nil
}

// =============================================================================
// PERSISTENCE SCHEDULE
// =============================================================================

// Persist writes the session to storage immediately and flips the
// indicator to SYNCING. Used as the engine's persistence hook, so it
// must tolerate being called off the main loop. Persistence failures
// are swallowed; saving is best effort.
func (m *Manager) Persist(session *model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.store.Update(m.ownerID, session)
	if err != nil {
		return
	}
	m.sessions = sessions
	m.saveState = StateSaving
	m.savingSince = time.Now()
	m.lastAutoSave = time.Now()
}

// SaveState returns the indicator state, settling SYNCING back to
// SAVED once the cosmetic hold has elapsed.
func (m *Manager) SaveState() SaveState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveState == StateSaving && time.Since(m.savingSince) >= savingHold {
		m.saveState = StateSaved
	}
	return m.saveState
}

// shouldAutoSave reports whether the periodic sweep should write the
// active session.
func (m *Manager) shouldAutoSave() (*model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.findLocked(m.activeID)
	if active == nil || active.MessageCount() == 0 {
		return nil, false
	}
	if time.Since(m.lastAutoSave) < m.autoSaveInterval {
		return nil, false
	}
	return active, true
}

// Check runs one schedule evaluation: the auto-save sweep plus the
// indicator settle. Returns true if a write happened.
func (m *Manager) Check() bool {
	active, due := m.shouldAutoSave()
	if !due {
		m.SaveState()
		return false
	}
	m.Persist(active)
	return true
}

func (m *Manager) markSavedNowLocked() {
	m.saveState = StateSaving
	m.savingSince = time.Now()
	m.lastAutoSave = time.Now()
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg drives the persistence schedule from the main loop.
type TickMsg struct {
	Time time.Time
}

// AutoSavedMsg reports that the periodic sweep wrote the session.
type AutoSavedMsg struct{}

// TickCmd emits a TickMsg once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick evaluates the schedule and keeps the tick loop running.
func (m *Manager) HandleTick() tea.Cmd {
	var cmds []tea.Cmd
	if m.Check() {
		cmds = append(cmds, func() tea.Msg { return AutoSavedMsg{} })
	}
	cmds = append(cmds, TickCmd())
	return tea.Batch(cmds...)
}
