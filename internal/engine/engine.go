// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lumenforge/lumen-tui/internal/model"
	"github.com/lumenforge/lumen-tui/internal/provider"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// StreamErrorText is the text shown in place of a reply when streaming
// fails. Kept fixed so the UI can offer the re-analyze action on it.
const StreamErrorText = "Error: Connection interrupted."

// ErrTurnInFlight is returned by Send while a turn is already streaming.
// Callers treat it as a no-op signal, not a failure.
var ErrTurnInFlight = errors.New("turn already in flight")

// ErrNoSession is returned when no session is attached to the engine.
var ErrNoSession = errors.New("no active session")

// =============================================================================
// EVENTS
// =============================================================================

// Event is one reduction step of a streaming turn. Text always carries
// the full accumulated reply so far, never an isolated fragment, so
// renderers can treat every event as a complete (if unfinished)
// document.
type Event struct {
	SessionID string
	MessageID string
	Text      string
	Done      bool
	IsError   bool
}

// Sink receives turn events. Called from the streaming goroutine;
// implementations must be safe to call off the main loop.
type Sink func(Event)

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs conversation turns against a provider-backed context.
// At most one turn may be in flight at a time.
type Engine struct {
	mu sync.Mutex

	prov provider.ContextProvider
	mode provider.Mode

	session *model.Session
	handle  provider.ContextHandle

	inFlight     bool
	pendingLink  string
	deepAnalysis bool

	sink    Sink
	persist func(*model.Session)
}

// Options configures an Engine.
type Options struct {
	Provider provider.ContextProvider
	Mode     provider.Mode

	// Sink receives per-delta and terminal events. May be nil.
	Sink Sink

	// Persist is invoked after every turn-affecting mutation of the
	// session. May be nil.
	Persist func(*model.Session)
}

// New creates an engine with no attached session.
func New(opts Options) *Engine {
	return &Engine{
		prov:    opts.Provider,
		mode:    opts.Mode,
		sink:    opts.Sink,
		persist: opts.Persist,
	}
}

// Attach makes the given session active and rebuilds the provider
// context from its retained history. Any prior context is discarded.
func (e *Engine) Attach(session *model.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inFlight {
		return ErrTurnInFlight
	}

	handle, err := e.prov.CreateContext(session.Messages, session.Config, e.mode)
	if err != nil {
		return fmt.Errorf("failed to create provider context: %w", err)
	}

	e.session = session
	e.handle = handle
	return nil
}

// Session returns the active session, or nil.
func (e *Engine) Session() *model.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Busy reports whether a turn is currently streaming.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// SetMode switches the provider mode. Takes effect on the next Attach.
func (e *Engine) SetMode(mode provider.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

// Mode returns the current provider mode.
func (e *Engine) Mode() provider.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetPendingLink stages a link target to be injected into the next
// turn's prompt. Cleared automatically once consumed.
func (e *Engine) SetPendingLink(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingLink = strings.TrimSpace(url)
}

// PendingLink returns the staged link target, if any.
func (e *Engine) PendingLink() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingLink
}

// SetDeepAnalysis toggles the research-mode instruction block.
func (e *Engine) SetDeepAnalysis(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deepAnalysis = on
}

// DeepAnalysis reports whether the research-mode block is active.
func (e *Engine) DeepAnalysis() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deepAnalysis
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

// Send runs one conversation turn. The raw text plus attachments form
// the user-visible message; the effective prompt sent to the provider
// is rewritten by the instruction transforms. Returns ErrTurnInFlight
// without touching the session if a turn is already streaming.
func (e *Engine) Send(ctx context.Context, text string, attachments []model.Attachment) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" && len(attachments) == 0 {
		return nil
	}

	e.mu.Lock()
	if e.session == nil || e.handle == nil {
		e.mu.Unlock()
		return ErrNoSession
	}
	if e.inFlight {
		e.mu.Unlock()
		return ErrTurnInFlight
	}
	e.inFlight = true

	prompt := e.buildPromptLocked(trimmed, attachments)
	session := e.session
	handle := e.handle
	e.mu.Unlock()

	userMsg := model.NewUserMessage(displayText(trimmed, attachments), attachments)
	session.AddMessage(userMsg)
	modelMsg := session.AddModelMessage()
	e.doPersist(session)

	parts := buildParts(prompt, attachments)
	deltas, err := handle.StreamTurn(ctx, parts)
	if err != nil {
		e.failTurn(session, modelMsg)
		return err
	}

	go e.consume(session, modelMsg, deltas)
	return nil
}

// AnalyzeError re-submits a prior stream or preview error as a fresh
// turn asking for a fix.
func (e *Engine) AnalyzeError(ctx context.Context, errText string) error {
	prompt := "I am encountering this error in my code. " +
		"Please analyze it and provide a fix:\n\n" + errText
	return e.Send(ctx, prompt, nil)
}

// consume drains the delta channel, reducing each cumulative update
// into the in-progress model message.
func (e *Engine) consume(session *model.Session, msg *model.Message, deltas <-chan provider.Delta) {
	var accumulated strings.Builder

	for d := range deltas {
		if d.Err != nil {
			e.failTurn(session, msg)
			return
		}
		accumulated.WriteString(d.Text)
		cumulative := accumulated.String()
		session.ReduceStream(msg.ID, cumulative)
		e.emit(Event{
			SessionID: session.ID,
			MessageID: msg.ID,
			Text:      cumulative,
		})
	}

	session.FinalizeStream(msg.ID)
	e.endTurn()
	e.doPersist(session)
	e.emit(Event{
		SessionID: session.ID,
		MessageID: msg.ID,
		Text:      accumulated.String(),
		Done:      true,
	})
}

// failTurn puts the model message into its terminal error state and
// persists the session as-is.
func (e *Engine) failTurn(session *model.Session, msg *model.Message) {
	session.FailStream(msg.ID, StreamErrorText)
	e.endTurn()
	e.doPersist(session)
	e.emit(Event{
		SessionID: session.ID,
		MessageID: msg.ID,
		Text:      StreamErrorText,
		Done:      true,
		IsError:   true,
	})
}

func (e *Engine) endTurn() {
	e.mu.Lock()
	e.inFlight = false
	e.mu.Unlock()
}

func (e *Engine) emit(ev Event) {
	if e.sink != nil {
		e.sink(ev)
	}
}

func (e *Engine) doPersist(session *model.Session) {
	if e.persist != nil {
		e.persist(session)
	}
}

// =============================================================================
// PROMPT CONSTRUCTION
// =============================================================================

// buildPromptLocked applies the ordered instruction transforms to the
// raw prompt. Caller holds e.mu. The staged link target is consumed.
func (e *Engine) buildPromptLocked(raw string, attachments []model.Attachment) string {
	prompt := raw

	if e.pendingLink != "" {
		prompt = "[SYSTEM: USER PROVIDED VIDEO URL: " + e.pendingLink + "]\n" +
			"ACT AS A LEAD ENGINEER. ANALYZE THE APPROACH FROM THIS VIDEO CONTEXT " +
			"AND GENERATE WORKING CODE.\n" + prompt
		e.pendingLink = ""
	} else if containsVideoLink(prompt) {
		prompt = "[SYSTEM: USER HAS PROVIDED A VIDEO LINK. " +
			"EXTRACT THE TECHNIQUE AND GENERATE CODE]\n" + prompt
	}

	if e.deepAnalysis {
		prompt = "[DEEP RESEARCH MODE ACTIVE]\n" +
			"- SEARCH OPEN SOURCE PATTERNS.\n" +
			"- ANALYZE GITHUB REPOSITORIES FOR SIMILAR SOLUTIONS.\n" +
			"- PROVIDE COMPREHENSIVE ARCHITECTURAL BREAKDOWN.\n\n" + prompt
	}

	if section := attachedFilesSection(attachments); section != "" {
		prompt += section
	}

	return prompt
}

// containsVideoLink recognizes the inline link patterns that trigger
// the lighter instruction block.
func containsVideoLink(text string) bool {
	return strings.Contains(text, "youtube.com/") || strings.Contains(text, "youtu.be/")
}

// attachedFilesSection renders non-image attachments as a fenced file
// listing appended to the prompt. Images travel as binary parts instead.
func attachedFilesSection(attachments []model.Attachment) string {
	var files []string
	for _, att := range attachments {
		if att.IsImage() {
			continue
		}
		name := att.Path
		if name == "" {
			name = att.Name
		}
		files = append(files, "[FILE] "+name+":\n```\n"+att.Content+"\n```")
	}
	if len(files) == 0 {
		return ""
	}
	return "\n\n=== ATTACHED FILES ===\n" + strings.Join(files, "\n\n")
}

// displayText is what the user message shows on screen. The upload
// annotation is display-only and never part of the effective prompt.
func displayText(raw string, attachments []model.Attachment) string {
	if len(attachments) == 0 {
		return raw
	}
	return fmt.Sprintf("%s\n\n*Uploaded %d file(s)*", raw, len(attachments))
}

// buildParts assembles the provider parts for a turn: the rewritten
// prompt followed by any image attachments as inline binary.
func buildParts(prompt string, attachments []model.Attachment) []provider.Part {
	parts := []provider.Part{provider.TextPart(prompt)}
	for _, att := range attachments {
		if !att.IsImage() {
			continue
		}
		data, err := provider.DecodeAttachment(att)
		if err != nil {
			continue
		}
		parts = append(parts, provider.BinaryPart(data, att.MimeType))
	}
	return parts
}
