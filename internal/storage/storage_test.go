// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumen-tui/internal/model"
)

func newFileBackedStore(t *testing.T) *SessionStore {
	t.Helper()
	kv, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return NewSessionStore(kv)
}

// =============================================================================
// KEY-VALUE BACKENDS
// =============================================================================

func TestFileStore_RoundTrip(t *testing.T) {
	kv, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("lumen_history_guest", []byte(`[]`)))
	data, ok, err := kv.Get("lumen_history_guest")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[]`), data)

	require.NoError(t, kv.Delete("lumen_history_guest"))
	_, ok, _ = kv.Get("lumen_history_guest")
	assert.False(t, ok)

	// Deleting an absent key is fine.
	require.NoError(t, kv.Delete("lumen_history_guest"))
}

func TestFileStore_SanitizesKeys(t *testing.T) {
	kv, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, kv.Set("lumen_history_user/../../etc", []byte("x")))
	data, ok, err := kv.Get("lumen_history_user/../../etc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), data)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	kv, err := NewSQLiteStore(filepath.Join(t.TempDir(), "lumen.db"))
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := kv.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("k", []byte("v1")))
	require.NoError(t, kv.Set("k", []byte("v2")))

	data, ok, err := kv.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), data)

	require.NoError(t, kv.Delete("k"))
	_, ok, _ = kv.Get("k")
	assert.False(t, ok)
}

// =============================================================================
// SESSION COLLECTION
// =============================================================================

func TestSessionStore_PersistenceRoundTrip(t *testing.T) {
	store := newFileBackedStore(t)

	session, _, err := store.Create(model.GuestOwnerID)
	require.NoError(t, err)
	session.AddMessage(model.NewUserMessage("hello", nil))
	reply := session.AddModelMessage()
	reply.SetStreamText("hi there")
	reply.Finalize()

	_, err = store.Update(model.GuestOwnerID, session)
	require.NoError(t, err)

	loaded := store.LoadAll(model.GuestOwnerID)
	require.Len(t, loaded, 1)
	got := loaded[0]
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.Title, got.Title)
	assert.Equal(t, session.Config, got.Config)
	require.Equal(t, session.MessageCount(), got.MessageCount())
	for i, msg := range session.Messages {
		assert.Equal(t, msg.ID, got.Messages[i].ID)
		assert.Equal(t, msg.Sender, got.Messages[i].Sender)
		assert.Equal(t, msg.Text, got.Messages[i].Text)
	}
	assert.WithinDuration(t, session.LastModified, got.LastModified, time.Second)
}

func TestSessionStore_CorruptListYieldsEmptyCollection(t *testing.T) {
	kv, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.Set("lumen_history_guest", []byte("{not json")))

	store := NewSessionStore(kv)
	assert.Empty(t, store.LoadAll(model.GuestOwnerID))
}

func TestSessionStore_TitleDerivation(t *testing.T) {
	store := newFileBackedStore(t)

	session, _, err := store.Create(model.GuestOwnerID)
	require.NoError(t, err)
	session.AddMessage(model.NewUserMessage("Build a trading bot\nwith RSI", nil))
	reply := session.AddModelMessage()
	reply.SetStreamText("Sure.")
	reply.Finalize()

	_, err = store.Update(model.GuestOwnerID, session)
	require.NoError(t, err)
	assert.Equal(t, "Build a trading bot...", session.Title)

	// Stable on later updates even as more messages arrive.
	session.AddMessage(model.NewUserMessage("Now add MACD", nil))
	_, err = store.Update(model.GuestOwnerID, session)
	require.NoError(t, err)
	assert.Equal(t, "Build a trading bot...", session.Title)
}

func TestSessionStore_TitleNotDerivedFromGreetingAlone(t *testing.T) {
	store := newFileBackedStore(t)

	session, _, err := store.Create(model.GuestOwnerID)
	require.NoError(t, err)

	_, err = store.Update(model.GuestOwnerID, session)
	require.NoError(t, err)
	assert.Equal(t, model.PlaceholderTitle, session.Title)
}

func TestSessionStore_LongFirstLineCutToFixedLength(t *testing.T) {
	store := newFileBackedStore(t)

	session, _, err := store.Create(model.GuestOwnerID)
	require.NoError(t, err)
	long := "This prompt first line is well beyond the thirty rune cutoff point"
	session.AddMessage(model.NewUserMessage(long, nil))
	session.AddModelMessage().Finalize()

	_, err = store.Update(model.GuestOwnerID, session)
	require.NoError(t, err)

	runes := []rune(session.Title)
	assert.Len(t, runes, titleMaxRunes+3)
	assert.Equal(t, "...", string(runes[titleMaxRunes:]))
}

func TestSessionStore_OrderedByLastModifiedDescending(t *testing.T) {
	store := newFileBackedStore(t)

	older, _, err := store.Create(model.GuestOwnerID)
	require.NoError(t, err)
	newer, _, err := store.Create(model.GuestOwnerID)
	require.NoError(t, err)

	// Touching the older session moves it to the front.
	older.AddMessage(model.NewUserMessage("bump", nil))
	sessions, err := store.Update(model.GuestOwnerID, older)
	require.NoError(t, err)

	require.Len(t, sessions, 2)
	assert.Equal(t, older.ID, sessions[0].ID)
	assert.Equal(t, newer.ID, sessions[1].ID)
}

func TestSessionStore_Delete(t *testing.T) {
	store := newFileBackedStore(t)

	keep, _, err := store.Create(model.GuestOwnerID)
	require.NoError(t, err)
	drop, _, err := store.Create(model.GuestOwnerID)
	require.NoError(t, err)

	remaining, err := store.Delete(model.GuestOwnerID, drop.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)

	loaded := store.LoadAll(model.GuestOwnerID)
	require.Len(t, loaded, 1)
	assert.Equal(t, keep.ID, loaded[0].ID)
}

// =============================================================================
// IDENTITY SCOPING
// =============================================================================

func TestSessionStore_IdentitySwitchSwapsCollections(t *testing.T) {
	store := newFileBackedStore(t)

	guestSession, _, err := store.Create(model.GuestOwnerID)
	require.NoError(t, err)
	userSession, _, err := store.Create("user-42")
	require.NoError(t, err)

	guest := store.LoadAll(model.GuestOwnerID)
	user := store.LoadAll("user-42")

	require.Len(t, guest, 1)
	require.Len(t, user, 1)
	assert.Equal(t, guestSession.ID, guest[0].ID)
	assert.Equal(t, userSession.ID, user[0].ID)
	assert.NotEqual(t, guest[0].ID, user[0].ID)
}

// =============================================================================
// PROFILE CACHE
// =============================================================================

func TestSessionStore_ProfileLifecycle(t *testing.T) {
	store := newFileBackedStore(t)

	assert.Nil(t, store.LoadProfile())

	profile := &model.Profile{ID: "user-42", Name: "Dev", Email: "dev@example.com"}
	require.NoError(t, store.SaveProfile(profile))

	loaded := store.LoadProfile()
	require.NotNil(t, loaded)
	assert.Equal(t, "user-42", loaded.ID)
	assert.Equal(t, "Dev", loaded.Name)

	require.NoError(t, store.ClearProfile())
	assert.Nil(t, store.LoadProfile())
}
