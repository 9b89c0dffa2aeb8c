// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumen-tui/internal/attach"
	"github.com/lumenforge/lumen-tui/internal/config"
	"github.com/lumenforge/lumen-tui/internal/engine"
	"github.com/lumenforge/lumen-tui/internal/model"
	"github.com/lumenforge/lumen-tui/internal/preview"
	"github.com/lumenforge/lumen-tui/internal/provider"
	"github.com/lumenforge/lumen-tui/internal/session"
	"github.com/lumenforge/lumen-tui/internal/storage"
	"github.com/lumenforge/lumen-tui/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeHandle struct {
	mu     sync.Mutex
	turns  [][]provider.Part
	script []provider.Delta
}

func (f *fakeHandle) StreamTurn(ctx context.Context, parts []provider.Part) (<-chan provider.Delta, error) {
	f.mu.Lock()
	f.turns = append(f.turns, parts)
	script := f.script
	f.mu.Unlock()

	out := make(chan provider.Delta, len(script))
	go func() {
		defer close(out)
		for _, d := range script {
			out <- d
		}
	}()
	return out, nil
}

type fakeProvider struct {
	handle *fakeHandle
	image  provider.ImageResult
}

func (f *fakeProvider) CreateContext(history []*model.Message, cfg model.GenerationConfig, mode provider.Mode) (provider.ContextHandle, error) {
	if _, err := provider.BuildHistory(history); err != nil {
		return nil, err
	}
	return f.handle, nil
}

func (f *fakeProvider) GenerateImage(ctx context.Context, req provider.ImageRequest) (provider.ImageResult, error) {
	return f.image, nil
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	model  *Model
	events chan engine.Event
}

func newTestModel(t *testing.T, script []provider.Delta) *harness {
	t.Helper()
	t.Setenv("LUMEN_DATA_DIR", t.TempDir())

	statusTTL = 10 * time.Millisecond
	t.Cleanup(func() { statusTTL = 4 * time.Second })

	kv, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := storage.NewSessionStore(kv)
	manager := session.NewManager(store, model.GuestOwnerID, session.DefaultConfig())

	prov := &fakeProvider{
		handle: &fakeHandle{script: script},
		image: provider.ImageResult{
			DataURI:  "data:image/png;base64,aW1n",
			MimeType: "image/png",
		},
	}

	events := make(chan engine.Event, 64)
	eng := engine.New(engine.Options{
		Provider: prov,
		Mode:     provider.ModeGemini,
		Sink:     func(ev engine.Event) { events <- ev },
		Persist:  manager.Persist,
	})

	m := New(Options{
		Config:   config.Default(),
		Theme:    styles.NewTheme(),
		Engine:   eng,
		Provider: prov,
		Sessions: manager,
		Store:    store,
		Preview:  preview.NewServer("127.0.0.1:0"),
		Attach:   attach.NewProcessor(nil),
	})
	m.resize(100, 30)

	return &harness{model: m, events: events}
}

// pump feeds engine events into the model until Done or timeout.
func (h *harness) pump(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.events:
			h.model.Update(StreamEventMsg{Event: ev})
			if ev.Done {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for turn completion")
		}
	}
}

// run executes a tea.Cmd and routes resulting messages back into the
// model, following the commands Update returns so multi-step flows
// complete. Spinner frames are dropped so ticking never spins, and
// status expirations are dropped so transient statuses stay visible
// for assertions.
func (h *harness) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if msg == nil {
		return
	}
	switch msg := msg.(type) {
	case tea.BatchMsg:
		for _, sub := range msg {
			h.run(t, sub)
		}
		return
	case tea.QuitMsg:
		return
	case spinner.TickMsg:
		return
	case statusExpiredMsg:
		return
	}
	_, next := h.model.Update(msg)
	h.run(t, next)
}

func (h *harness) submitText(t *testing.T, text string) {
	t.Helper()
	h.model.input.SetValue(text)
	_, cmd := h.model.submit()
	h.run(t, cmd)
}

// =============================================================================
// TURNS
// =============================================================================

func TestSubmit_StartsSessionAndStreamsReply(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "Hello "}, {Text: "there"}})

	h.submitText(t, "hi lumen")
	h.pump(t)

	sess := h.model.sessions.Active()
	require.NotNil(t, sess)
	require.Equal(t, 3, sess.MessageCount()) // greeting, user, reply
	assert.Equal(t, "hi lumen", sess.Messages[1].Text)
	assert.Equal(t, "Hello there", sess.Messages[2].Text)
	assert.Equal(t, StateReady, h.model.state)
}

func TestSubmit_EmptyInputIgnored(t *testing.T) {
	h := newTestModel(t, nil)

	h.submitText(t, "   ")
	assert.Nil(t, h.model.sessions.Active())
	assert.Equal(t, StateReady, h.model.state)
}

func TestStreamError_SurfacesStatus(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "partial"}, {Err: context.Canceled}})

	h.submitText(t, "hi")
	h.pump(t)

	sess := h.model.sessions.Active()
	require.NotNil(t, sess)
	last := sess.LastMessage()
	assert.True(t, last.IsError)
	assert.Equal(t, engine.StreamErrorText, last.Text)
	assert.Contains(t, h.model.status, "interrupted")
}

func TestSendFailed_TurnInFlight(t *testing.T) {
	h := newTestModel(t, nil)

	_, cmd := h.model.Update(SendFailedMsg{Err: engine.ErrTurnInFlight})
	h.run(t, cmd)
	assert.Contains(t, h.model.status, "already streaming")
	assert.Equal(t, StateReady, h.model.state)
}

func TestSubmit_RefusedWhileStreaming(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "ok"}})

	h.submitText(t, "first question")
	require.Equal(t, StateStreaming, h.model.state)

	// A second Enter mid-stream is refused and keeps the typed text.
	h.model.input.SetValue("second question")
	h.model.submit()
	assert.Equal(t, StateStreaming, h.model.state)
	assert.Contains(t, h.model.status, "already streaming")
	assert.Equal(t, "second question", h.model.input.Value())

	h.pump(t)
	assert.Equal(t, StateReady, h.model.state)

	sess := h.model.sessions.Active()
	require.NotNil(t, sess)
	users := 0
	for _, msg := range sess.Clone().Messages {
		if msg.Sender == model.SenderUser {
			users++
		}
	}
	assert.Equal(t, 1, users)
}

func TestEsc_DoesNotInterruptStream(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "steady"}})

	h.submitText(t, "prompt")
	require.Equal(t, StateStreaming, h.model.state)

	h.model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, StateStreaming, h.model.state)

	h.pump(t)
	last := h.model.sessions.Active().LastMessage()
	assert.False(t, last.IsError)
	assert.Equal(t, "steady", last.Text)
}

func TestFixCommand_ResubmitsLastError(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Err: context.Canceled}})

	h.submitText(t, "make a button")
	h.pump(t)
	require.NotEmpty(t, h.model.lastErrorID)

	h.submitText(t, "/fix")
	require.Equal(t, StateStreaming, h.model.state)
	h.pump(t)

	sess := h.model.sessions.Active()
	var prompt string
	messages := sess.Clone().Messages
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender == model.SenderUser {
			prompt = messages[i].Text
			break
		}
	}
	assert.Contains(t, prompt, engine.StreamErrorText)
}

func TestFixCommand_WithoutErrorShowsStatus(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "fine"}})

	h.submitText(t, "hello")
	h.pump(t)

	h.submitText(t, "/fix")
	assert.Equal(t, StateReady, h.model.state)
	assert.Contains(t, h.model.status, "no error to analyze")
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestSubmit_SlashCommandChangesMode(t *testing.T) {
	h := newTestModel(t, nil)

	h.submitText(t, "/mode deepseek")
	assert.Equal(t, provider.ModeDeepSeek, h.model.engine.Mode())
	assert.Contains(t, h.model.status, "deepseek")
}

func TestDeepToggle_RoundTrips(t *testing.T) {
	h := newTestModel(t, nil)

	h.submitText(t, "/deep")
	assert.True(t, h.model.engine.DeepAnalysis())

	h.submitText(t, "/deep off")
	assert.False(t, h.model.engine.DeepAnalysis())
}

func TestLinkCommand_StagesURL(t *testing.T) {
	h := newTestModel(t, nil)

	h.submitText(t, "/link https://youtu.be/abc123")
	assert.Equal(t, "https://youtu.be/abc123", h.model.engine.PendingLink())
}

func TestUnknownCommand_ShowsError(t *testing.T) {
	h := newTestModel(t, nil)

	h.submitText(t, "/frobnicate")
	assert.Contains(t, h.model.status, "unknown command")
}

// =============================================================================
// OVERLAYS
// =============================================================================

func TestHelpOverlay_OpensAndCloses(t *testing.T) {
	h := newTestModel(t, nil)

	h.submitText(t, "/help")
	assert.Equal(t, overlayHelp, h.model.overlay)

	h.model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, overlayNone, h.model.overlay)
}

func TestSessionPicker_SelectsSession(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "ok"}})

	h.submitText(t, "first session prompt")
	h.pump(t)
	first := h.model.sessions.ActiveID()

	h.run(t, h.model.startNewSession())
	require.NotEqual(t, first, h.model.sessions.ActiveID())

	h.submitText(t, "/sessions")
	require.Equal(t, overlaySessions, h.model.overlay)
	require.NotNil(t, h.model.sessionList)

	// Newest first; move to the older session and open it.
	h.model.sessionList.MoveDown()
	selected := h.model.sessionList.Selected()
	require.NotNil(t, selected)

	_, cmd := h.model.handleOverlayKey(tea.KeyMsg{Type: tea.KeyEnter})
	h.run(t, cmd)
	assert.Equal(t, overlayNone, h.model.overlay)
	assert.Equal(t, selected.ID, h.model.sessions.ActiveID())
}

func TestDeleteActiveSession_ClearsTranscript(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "ok"}})

	h.submitText(t, "to be deleted")
	h.pump(t)
	id := h.model.sessions.ActiveID()
	require.NotEmpty(t, id)

	h.submitText(t, "/delete "+id)
	assert.Nil(t, h.model.sessions.Active())
	assert.Contains(t, h.model.status, "deleted")
}

// =============================================================================
// PREVIEW
// =============================================================================

func TestCompletedReply_FeedsPreview(t *testing.T) {
	code := "import React from 'react';\nexport default function App() { return <div/>; }"
	reply := "Here you go:\n```tsx\n" + code + "\n```"
	h := newTestModel(t, []provider.Delta{{Text: reply}})

	h.submitText(t, "build a component")
	h.pump(t)

	assert.Contains(t, h.model.preview.Code(), "export default function App")
}

func TestProseReply_DoesNotTouchPreview(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "Just an explanation, no code."}})

	h.submitText(t, "explain closures")
	h.pump(t)

	assert.Empty(t, h.model.preview.Code())
}

// =============================================================================
// IDENTITY
// =============================================================================

func TestLoginLogout_SwapsCollections(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "ok"}})

	h.submitText(t, "guest prompt")
	h.pump(t)
	require.Len(t, h.model.sessions.Sessions(), 1)

	h.submitText(t, "/login Ada")
	assert.Equal(t, "user-ada", h.model.sessions.OwnerID())
	assert.Empty(t, h.model.sessions.Sessions())
	require.NotNil(t, h.model.profile)
	assert.Equal(t, "Ada", h.model.profile.name)

	h.submitText(t, "/logout")
	assert.Equal(t, model.GuestOwnerID, h.model.sessions.OwnerID())
	assert.Len(t, h.model.sessions.Sessions(), 1)
	assert.Nil(t, h.model.profile)
}

// =============================================================================
// IMAGES
// =============================================================================

func TestImagine_AppendsImageMessage(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "ok"}})

	h.submitText(t, "seed the session")
	h.pump(t)

	h.submitText(t, "/imagine a fox in watercolor")

	sess := h.model.sessions.Active()
	require.NotNil(t, sess)
	last := sess.LastMessage()
	require.True(t, last.HasAttachments())
	assert.True(t, last.Attachments[0].IsImage())
	assert.Contains(t, last.Text, "a fox in watercolor")
	assert.Equal(t, "data:image/png;base64,aW1n", last.Attachments[0].Content)
}

// =============================================================================
// FILE ATTACHMENTS
// =============================================================================

func TestAttachCommand_StagesFilesAndSkipsUnreadable(t *testing.T) {
	h := newTestModel(t, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha beta"), 0o644))

	h.submitText(t, "/attach "+path+" "+filepath.Join(dir, "missing.txt"))

	require.Equal(t, 1, h.model.attach.Count())
	pending := h.model.attach.Pending()
	assert.Equal(t, "notes.txt", pending[0].Name)
	assert.Equal(t, model.AttachmentText, pending[0].Kind)
	assert.Contains(t, h.model.status, "skipped")
}

func TestAttachCommand_WalksFolders(t *testing.T) {
	h := newTestModel(t, nil)

	dir := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "util.go"), []byte("package sub"), 0o644))

	h.submitText(t, "/attach "+dir)

	assert.Equal(t, 2, h.model.attach.Count())
	assert.Contains(t, h.model.status, "attached 2 file(s)")
}

// =============================================================================
// LAYOUT
// =============================================================================

func TestResize_AdjustsViewport(t *testing.T) {
	h := newTestModel(t, nil)

	h.model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, h.model.width)
	assert.Equal(t, 120, h.model.viewport.Width)
	assert.Equal(t, 34, h.model.viewport.Height)
}

func TestView_RendersChrome(t *testing.T) {
	h := newTestModel(t, []provider.Delta{{Text: "reply"}})

	h.submitText(t, "render me")
	h.pump(t)

	out := h.model.View()
	assert.Contains(t, out, "LUMEN")
	assert.True(t, strings.Contains(out, "SAVED") || strings.Contains(out, "SYNCING"))
	assert.Contains(t, out, "GEMINI")
}
