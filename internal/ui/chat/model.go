// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumenforge/lumen-tui/internal/attach"
	"github.com/lumenforge/lumen-tui/internal/commands"
	"github.com/lumenforge/lumen-tui/internal/config"
	"github.com/lumenforge/lumen-tui/internal/engine"
	"github.com/lumenforge/lumen-tui/internal/export"
	"github.com/lumenforge/lumen-tui/internal/preview"
	"github.com/lumenforge/lumen-tui/internal/provider"
	"github.com/lumenforge/lumen-tui/internal/session"
	"github.com/lumenforge/lumen-tui/internal/storage"
	"github.com/lumenforge/lumen-tui/internal/ui/components"
	"github.com/lumenforge/lumen-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State is the coarse state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // A turn is in flight
)

// overlay selects which overlay, if any, covers the transcript.
type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlaySessions
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state   State
	theme   *styles.Theme
	keyMap  KeyMap
	width   int
	height  int
	cfg     *config.Config
	profile *storageProfile

	// Domain
	engine   *engine.Engine
	provider provider.ContextProvider
	sessions *session.Manager
	store    *storage.SessionStore
	preview  *preview.Server
	attach   *attach.Processor

	// Commands
	registry *commands.Registry
	parser   *commands.Parser
	cmdCtx   *commands.Context

	// Most recent errored reply, target of /fix
	lastErrorID string

	// UI components
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	header      *components.Header
	statusBar   *components.StatusBar
	sessionList *components.SessionList
	helpView    *components.HelpView

	overlay    overlay
	status     string
	statusID   int
	previewURL string

	quitting bool
}

// storageProfile tracks the signed-in identity for header display.
type storageProfile struct {
	name string
}

// Options wires the chat model to its collaborators.
type Options struct {
	Config   *config.Config
	Theme    *styles.Theme
	Engine   *engine.Engine
	Provider provider.ContextProvider
	Sessions *session.Manager
	Store    *storage.SessionStore
	Preview  *preview.Server
	Attach   *attach.Processor
}

// New creates the chat model. The active session, if any, is attached
// to the engine by the caller before the program starts.
func New(opts Options) *Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message or /help..."
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}
	sp.Style = theme.Spinner

	registry := commands.NewRegistry()

	m := &Model{
		theme:     theme,
		keyMap:    DefaultKeyMap(),
		width:     80,
		height:    24,
		cfg:       opts.Config,
		engine:    opts.Engine,
		provider:  opts.Provider,
		sessions:  opts.Sessions,
		store:     opts.Store,
		preview:   opts.Preview,
		attach:    opts.Attach,
		registry:  registry,
		parser:    commands.NewParser(registry),
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		header:    components.NewHeader(theme),
		statusBar: components.NewStatusBar(theme),
		helpView:  components.NewHelpView(registry, theme),
	}
	m.cmdCtx = &commands.Context{Config: opts.Config, Sessions: opts.Sessions}

	if profile := opts.Store.LoadProfile(); profile != nil {
		m.profile = &storageProfile{name: profile.Name}
	}

	m.refreshTranscript()
	return m
}

// Init starts the spinner and the persistence tick loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		session.TickCmd(),
		textinput.Blink,
	)
}

// exportOptions resolves the export target directory.
func (m *Model) exportOptions() *export.Options {
	opts := export.DefaultOptions()
	if dir, err := config.DataDir(); err == nil {
		opts.OutputDir = dir
	}
	return opts
}
