// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumenforge/lumen-tui/internal/commands"
	"github.com/lumenforge/lumen-tui/internal/engine"
	"github.com/lumenforge/lumen-tui/internal/extract"
	"github.com/lumenforge/lumen-tui/internal/model"
	"github.com/lumenforge/lumen-tui/internal/preview"
	"github.com/lumenforge/lumen-tui/internal/provider"
	"github.com/lumenforge/lumen-tui/internal/session"
	"github.com/lumenforge/lumen-tui/internal/ui/components"
	"github.com/lumenforge/lumen-tui/internal/util"
)

// statusMaxRunes caps the one-line status message.
const statusMaxRunes = 120

// Update is the Bubble Tea update loop.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case session.TickMsg:
		return m, m.sessions.HandleTick()

	case session.AutoSavedMsg:
		return m, nil

	case StreamEventMsg:
		return m.handleStreamEvent(msg.Event)

	case SendFailedMsg:
		return m.handleSendFailed(msg.Err)

	case ImageReadyMsg:
		return m.handleImageReady(msg)

	case ExportDoneMsg:
		if msg.Err != nil {
			return m, m.setStatus("export failed: " + msg.Err.Error())
		}
		return m, m.setStatus("exported to " + msg.Path)

	case BackupDoneMsg:
		if msg.Err != nil {
			return m, m.setStatus("backup failed: " + msg.Err.Error())
		}
		return m, m.setStatus("backup written to " + msg.Path)

	case CopyDoneMsg:
		if msg.Err != nil {
			return m, m.setStatus("copy failed: " + msg.Err.Error())
		}
		return m, m.setStatus("copied to clipboard")

	case PasteResultMsg:
		return m.handlePasteResult(msg)

	case FilesAttachedMsg:
		return m.handleFilesAttached(msg)

	case PreviewReadyMsg:
		if msg.Err != nil {
			return m, m.setStatus("preview failed: " + msg.Err.Error())
		}
		m.previewURL = msg.URL
		return m, m.setStatus("preview at " + msg.URL)

	case ConfigReloadedMsg:
		if msg.Config != nil {
			m.cfg = msg.Config
			m.engine.SetMode(provider.ParseMode(msg.Config.Provider.Mode))
			return m, m.setStatus("configuration reloaded")
		}
		return m, nil

	case statusExpiredMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}

	if cmd, handled := m.handleCommandMsg(msg); handled {
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.overlay != overlayNone {
		return m.handleOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.NewSession):
		return m, m.startNewSession()

	case key.Matches(msg, m.keyMap.Sessions):
		m.openSessionPicker()
		return m, nil

	case key.Matches(msg, m.keyMap.Paste):
		return m, pasteCmd(m.attach)

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.ScrollUp):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keyMap.ScrollDown):
		m.viewport.LineDown(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Close) {
		m.overlay = overlayNone
		return m, nil
	}

	if m.overlay != overlaySessions || m.sessionList == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keyMap.ScrollUp):
		m.sessionList.MoveUp()
	case key.Matches(msg, m.keyMap.ScrollDown):
		m.sessionList.MoveDown()
	case key.Matches(msg, m.keyMap.Submit):
		if sess := m.sessionList.Selected(); sess != nil {
			m.overlay = overlayNone
			return m, m.openSession(sess.ID)
		}
	case msg.String() == "d":
		if sess := m.sessionList.Selected(); sess != nil {
			return m, m.deleteSession(sess.ID)
		}
	}
	return m, nil
}

// submit sends the input line as either a slash command or a prompt.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" && m.attach.Count() == 0 {
		return m, nil
	}

	if cmd, handled := commands.Execute(m.parser, m.cmdCtx, text); handled {
		m.input.Reset()
		return m, cmd
	}

	// The input keeps its text so the prompt is not lost to a stray
	// Enter while a reply is still streaming.
	if m.state == StateStreaming {
		return m, m.setStatus("a reply is already streaming")
	}

	m.input.Reset()
	return m, m.startTurn(text)
}

// =============================================================================
// COMMAND MESSAGE DISPATCH
// =============================================================================

func (m *Model) handleCommandMsg(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case commands.ShowHelpMsg:
		m.overlay = overlayHelp
		return nil, true

	case commands.NewSessionMsg:
		return m.startNewSession(), true

	case commands.ShowSessionsMsg:
		m.openSessionPicker()
		return nil, true

	case commands.DeleteSessionMsg:
		return m.deleteSession(msg.ID), true

	case commands.SetProviderModeMsg:
		mode := provider.ParseMode(msg.Mode)
		m.engine.SetMode(mode)
		return m.setStatus("mode set to " + string(mode)), true

	case commands.SetDeepAnalysisMsg:
		on := msg.On
		if msg.Toggle {
			on = !m.engine.DeepAnalysis()
		}
		m.engine.SetDeepAnalysis(on)
		if on {
			return m.setStatus("deep analysis on"), true
		}
		return m.setStatus("deep analysis off"), true

	case commands.StageLinkMsg:
		m.engine.SetPendingLink(msg.URL)
		return m.setStatus("video link staged for next prompt"), true

	case commands.GenerateImageMsg:
		return m.startImagine(msg.Prompt), true

	case commands.AnalyzeErrorMsg:
		return m.startErrorAnalysis(), true

	case commands.AttachFilesMsg:
		return attachFilesCmd(m.attach, msg.Paths), true

	case commands.OpenPreviewMsg:
		m.preview.SetMode(preview.ParseViewMode(msg.View))
		return startPreviewCmd(m.preview), true

	case commands.CopyReplyMsg:
		return m.copyLastReply(), true

	case commands.ExportSessionMsg:
		sess := m.sessions.Active()
		if sess == nil {
			return m.setStatus("no active session to export"), true
		}
		return exportCmd(sess.Clone(), msg.Format, m.exportOptions()), true

	case commands.BackupMsg:
		sessions := m.sessions.Sessions()
		snapshot := make([]*model.Session, len(sessions))
		for i, sess := range sessions {
			snapshot[i] = sess.Clone()
		}
		return backupCmd(snapshot, m.exportOptions().OutputDir), true

	case commands.LoginMsg:
		return m.login(msg.Name), true

	case commands.LogoutMsg:
		return m.logout(), true

	case commands.ErrorMsg:
		return m.setStatus(msg.Err.Error()), true
	}
	return nil, false
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

// startTurn ensures a session exists, then launches the send. New turns
// are refused while one is streaming.
func (m *Model) startTurn(text string) tea.Cmd {
	if m.state == StateStreaming {
		return m.setStatus("a reply is already streaming")
	}
	if m.sessions.Active() == nil {
		if cmd := m.startNewSession(); cmd != nil {
			return cmd
		}
	}

	attachments := m.attach.Take()
	m.state = StateStreaming

	return tea.Batch(
		sendTurnCmd(context.Background(), m.engine, text, attachments),
		m.spinner.Tick,
	)
}

// startErrorAnalysis re-submits the most recent errored reply as a
// fresh turn asking for a fix.
func (m *Model) startErrorAnalysis() tea.Cmd {
	if m.state == StateStreaming {
		return m.setStatus("a reply is already streaming")
	}
	sess := m.sessions.Active()
	if sess == nil || m.lastErrorID == "" {
		return m.setStatus("no error to analyze")
	}
	errMsg := sess.MessageByID(m.lastErrorID)
	if errMsg == nil || !errMsg.IsError {
		return m.setStatus("no error to analyze")
	}

	m.state = StateStreaming
	return tea.Batch(
		analyzeErrorCmd(context.Background(), m.engine, errMsg.Text),
		m.spinner.Tick,
	)
}

func (m *Model) handleStreamEvent(ev engine.Event) (tea.Model, tea.Cmd) {
	active := m.sessions.Active()
	if active == nil || active.ID != ev.SessionID {
		// Turn for a session that is no longer on screen; storage
		// already has the update.
		if ev.Done {
			m.endTurn()
		}
		return m, nil
	}

	m.refreshTranscript()
	m.viewport.GotoBottom()

	if !ev.Done {
		return m, nil
	}

	m.endTurn()
	if ev.IsError {
		m.lastErrorID = ev.MessageID
		return m, m.setStatus("stream interrupted, /fix asks for a correction")
	}

	// A finished reply that contains renderable code feeds the preview.
	if code, ok := extract.Code(ev.Text); ok {
		m.preview.SetCode(code)
		if m.preview.Running() {
			return m, m.setStatus("preview updated")
		}
	}
	return m, nil
}

func (m *Model) handleSendFailed(err error) (tea.Model, tea.Cmd) {
	m.endTurn()
	switch {
	case errors.Is(err, engine.ErrTurnInFlight):
		return m, m.setStatus("a reply is already streaming")
	case errors.Is(err, provider.ErrNotConfigured):
		return m, m.setStatus("no API key configured, set LUMEN_API_KEY")
	default:
		m.refreshTranscript()
		return m, m.setStatus(err.Error())
	}
}

func (m *Model) endTurn() {
	m.state = StateReady
}

// =============================================================================
// SESSION ACTIONS
// =============================================================================

func (m *Model) startNewSession() tea.Cmd {
	sess, err := m.sessions.NewSession()
	if err != nil {
		return m.setStatus("could not create session: " + err.Error())
	}
	if err := m.engine.Attach(sess); err != nil {
		return m.setStatus(err.Error())
	}
	m.refreshTranscript()
	m.viewport.GotoBottom()
	return nil
}

func (m *Model) openSession(id string) tea.Cmd {
	sess := m.sessions.SetActive(id)
	if sess == nil {
		return m.setStatus("session not found")
	}
	if err := m.engine.Attach(sess); err != nil {
		return m.setStatus(err.Error())
	}
	m.refreshTranscript()
	m.viewport.GotoBottom()
	return nil
}

func (m *Model) deleteSession(id string) tea.Cmd {
	if err := m.sessions.DeleteSession(id); err != nil {
		return m.setStatus("delete failed: " + err.Error())
	}
	if m.overlay == overlaySessions {
		m.openSessionPicker() // rebuild the list without the deleted entry
	}
	m.refreshTranscript()
	return m.setStatus("session deleted")
}

func (m *Model) openSessionPicker() {
	m.sessionList = components.NewSessionList(m.sessions.Sessions(), m.theme)
	m.sessionList.Width = m.width - 10
	m.sessionList.Height = m.height - 6
	m.overlay = overlaySessions
}

// =============================================================================
// IDENTITY
// =============================================================================

// login caches a profile and swaps to its session collection. The
// profile ID derives from the name so the same name always maps to the
// same history.
func (m *Model) login(name string) tea.Cmd {
	name = strings.TrimSpace(name)
	if name == "" {
		return m.setStatus("usage: /login <name>")
	}

	profile := &model.Profile{
		ID:   "user-" + strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Name: name,
	}
	if err := m.store.SaveProfile(profile); err != nil {
		return m.setStatus("login failed: " + err.Error())
	}

	m.sessions.SwitchOwner(profile.OwnerID())
	m.profile = &storageProfile{name: profile.Name}
	m.refreshTranscript()
	return m.setStatus("signed in as " + name)
}

func (m *Model) logout() tea.Cmd {
	if err := m.store.ClearProfile(); err != nil {
		return m.setStatus("logout failed: " + err.Error())
	}
	m.sessions.SwitchOwner(model.GuestOwnerID)
	m.profile = nil
	m.refreshTranscript()
	return m.setStatus("signed out")
}

// =============================================================================
// IMAGES, CLIPBOARD, ERRORS
// =============================================================================

func (m *Model) startImagine(prompt string) tea.Cmd {
	req := provider.ImageRequest{Prompt: prompt}
	if m.cfg != nil {
		req.AspectRatio = m.cfg.Image.AspectRatio
		req.StylePreset = m.cfg.Image.StylePreset
		req.NegativePrompt = m.cfg.Image.NegativePrompt
	}
	return tea.Batch(
		imagineCmd(m.provider, req),
		m.setStatus("generating image..."),
	)
}

func (m *Model) handleImageReady(msg ImageReadyMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.setStatus("image generation failed: " + msg.Err.Error())
	}

	sess := m.sessions.Active()
	if sess == nil {
		return m, m.setStatus("image ready but no active session")
	}

	reply := model.NewModelMessage()
	reply.Text = "Generated image for: " + msg.Prompt
	if msg.Path != "" {
		reply.Text += "\n\nSaved to [" + filepath.Base(msg.Path) + "](" + msg.Path + ")"
	}
	reply.Attachments = []model.Attachment{msg.Attachment}
	reply.Finalize()
	sess.AddMessage(reply)
	m.sessions.Persist(sess)

	m.refreshTranscript()
	m.viewport.GotoBottom()
	return m, m.setStatus("image added to session")
}

func (m *Model) handleFilesAttached(msg FilesAttachedMsg) (tea.Model, tea.Cmd) {
	if len(msg.Added) == 0 && len(msg.Skipped) == 0 {
		return m, m.setStatus("nothing to attach")
	}
	status := "attached " + strconv.Itoa(len(msg.Added)) + " file(s)"
	if len(msg.Skipped) > 0 {
		status += ", skipped " + strings.Join(msg.Skipped, ", ")
	}
	return m, m.setStatus(status)
}

func (m *Model) handlePasteResult(msg PasteResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.setStatus("clipboard read failed: " + msg.Err.Error())
	}
	if !msg.Ok {
		return m, m.setStatus("clipboard is empty")
	}
	m.attach.Add(msg.Attachment)
	return m, m.setStatus("attached " + msg.Attachment.Name)
}

// copyLastReply copies the newest finished model reply.
func (m *Model) copyLastReply() tea.Cmd {
	sess := m.sessions.Active()
	if sess == nil {
		return m.setStatus("nothing to copy")
	}
	messages := sess.Clone().Messages
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Sender == model.SenderModel && !msg.IsStreaming && !msg.IsSeed() {
			return copyCmd(msg.Text)
		}
	}
	return m.setStatus("nothing to copy")
}

// =============================================================================
// LAYOUT AND STATUS
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	m.header.Width = width
	m.statusBar.Width = width
	m.input.Width = width - 6
	m.helpView.Width = min(width-6, 76)

	// Header, input border, input line, status bar.
	chrome := 6
	m.viewport.Width = width
	m.viewport.Height = height - chrome
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}

	if m.sessionList != nil {
		m.sessionList.Width = width - 10
		m.sessionList.Height = height - 6
	}

	m.refreshTranscript()
}

// setStatus replaces the transient status line entry.
func (m *Model) setStatus(text string) tea.Cmd {
	// Provider errors can run to paragraphs; the status line is one row.
	m.status = util.TruncateRunes(text, statusMaxRunes)
	m.statusID++
	return expireStatusCmd(m.statusID)
}

// refreshTranscript rebuilds the viewport content from the active
// session.
func (m *Model) refreshTranscript() {
	sess := m.sessions.Active()
	if sess == nil {
		m.viewport.SetContent(m.emptyState())
		return
	}

	// Render from a clone; the streaming goroutine may still be
	// reducing deltas into the live structs.
	messages := sess.Clone().Messages
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		view := components.NewMessageView(msg, m.theme)
		view.SetWidth(m.viewport.Width)
		parts = append(parts, view.View())
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
}

func (m *Model) emptyState() string {
	return m.theme.ThinkingText.Render(
		"No active session. Press ctrl+n or just start typing.")
}
