// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumenforge/lumen-tui/internal/config"
	"github.com/lumenforge/lumen-tui/internal/session"
)

// =============================================================================
// CONTEXT
// =============================================================================

// Context gives handlers access to application state. Fields may be
// nil; handlers check before use.
type Context struct {
	// Config provides application configuration.
	Config *config.Config

	// Sessions manages the visible collection and persistence schedule.
	Sessions *session.Manager
}

// =============================================================================
// MESSAGES
// =============================================================================

// Handlers emit these for the UI loop to act on.

// NewSessionMsg requests a fresh session.
type NewSessionMsg struct{}

// ShowSessionsMsg opens the session picker.
type ShowSessionsMsg struct{}

// DeleteSessionMsg deletes a session by ID.
type DeleteSessionMsg struct{ ID string }

// SetProviderModeMsg switches the provider persona.
type SetProviderModeMsg struct{ Mode string }

// SetDeepAnalysisMsg toggles or forces the deep analysis block.
type SetDeepAnalysisMsg struct {
	Toggle bool
	On     bool
}

// StageLinkMsg stages a video link for the next turn.
type StageLinkMsg struct{ URL string }

// GenerateImageMsg requests image generation.
type GenerateImageMsg struct{ Prompt string }

// AnalyzeErrorMsg asks the model to fix the most recent errored reply.
type AnalyzeErrorMsg struct{}

// AttachFilesMsg stages files from disk for the next turn.
type AttachFilesMsg struct{ Paths []string }

// OpenPreviewMsg opens or retargets the live preview.
type OpenPreviewMsg struct{ View string }

// CopyReplyMsg copies the last model reply to the clipboard.
type CopyReplyMsg struct{}

// ExportSessionMsg exports the active session.
type ExportSessionMsg struct{ Format string }

// BackupMsg bundles the full history into a zip archive.
type BackupMsg struct{}

// LoginMsg signs the user in under the given profile name.
type LoginMsg struct{ Name string }

// LogoutMsg signs the user out.
type LogoutMsg struct{}

// ShowHelpMsg opens the help overlay.
type ShowHelpMsg struct{}

// ErrorMsg surfaces a command error to the status line.
type ErrorMsg struct{ Err error }

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelp(ctx *Context, args []string) tea.Cmd {
	return emit(ShowHelpMsg{})
}

func handleQuit(ctx *Context, args []string) tea.Cmd {
	return tea.Quit
}

func handleNew(ctx *Context, args []string) tea.Cmd {
	return emit(NewSessionMsg{})
}

func handleSessions(ctx *Context, args []string) tea.Cmd {
	return emit(ShowSessionsMsg{})
}

func handleDelete(ctx *Context, args []string) tea.Cmd {
	return emit(DeleteSessionMsg{ID: args[0]})
}

func handleExport(ctx *Context, args []string) tea.Cmd {
	format := "md"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	return emit(ExportSessionMsg{Format: format})
}

func handleBackup(ctx *Context, args []string) tea.Cmd {
	return emit(BackupMsg{})
}

func handleMode(ctx *Context, args []string) tea.Cmd {
	return emit(SetProviderModeMsg{Mode: strings.ToLower(args[0])})
}

func handleDeep(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return emit(SetDeepAnalysisMsg{Toggle: true})
	}
	return emit(SetDeepAnalysisMsg{On: strings.EqualFold(args[0], "on")})
}

func handleLink(ctx *Context, args []string) tea.Cmd {
	return emit(StageLinkMsg{URL: args[0]})
}

func handleImagine(ctx *Context, args []string) tea.Cmd {
	return emit(GenerateImageMsg{Prompt: strings.Join(args, " ")})
}

func handleFix(ctx *Context, args []string) tea.Cmd {
	return emit(AnalyzeErrorMsg{})
}

func handleAttach(ctx *Context, args []string) tea.Cmd {
	return emit(AttachFilesMsg{Paths: args})
}

func handlePreview(ctx *Context, args []string) tea.Cmd {
	view := "preview"
	if len(args) > 0 {
		view = strings.ToLower(args[0])
	}
	return emit(OpenPreviewMsg{View: view})
}

func handleCopy(ctx *Context, args []string) tea.Cmd {
	return emit(CopyReplyMsg{})
}

func handleLogin(ctx *Context, args []string) tea.Cmd {
	return emit(LoginMsg{Name: strings.Join(args, " ")})
}

func handleLogout(ctx *Context, args []string) tea.Cmd {
	return emit(LogoutMsg{})
}

// =============================================================================
// EXECUTION
// =============================================================================

// Execute parses and runs a command line. Unknown commands and bad
// arguments come back as ErrorMsg commands so the UI shows them inline.
func Execute(parser *Parser, ctx *Context, input string) (tea.Cmd, bool) {
	result := parser.Parse(input)
	if !result.IsCommand {
		return nil, false
	}
	if result.Command == nil {
		return emit(ErrorMsg{Err: &ValidationError{
			Command: result.CommandName,
			Message: "unknown command",
		}}), true
	}
	args := result.Args
	if result.Command.FreeText && result.RawArgs != "" {
		args = []string{result.RawArgs}
	}
	if err := ValidateArgs(result.Command, args); err != nil {
		return emit(ErrorMsg{Err: err}), true
	}
	return result.Command.Handler(ctx, args), true
}
