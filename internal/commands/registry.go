// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command is one slash command.
type Command struct {
	// Name is the primary command name (e.g. "/new").
	Name string

	// Aliases are alternative names (e.g. "/n").
	Aliases []string

	// Description is shown in help.
	Description string

	// Usage shows argument syntax (e.g. "/mode <gemini|deepseek|openai>").
	Usage string

	// Args defines the expected arguments.
	Args []ArgDef

	// Handler executes the command.
	Handler func(ctx *Context, args []string) tea.Cmd

	// Category groups commands in help output.
	Category string

	// FreeText commands receive the untokenized remainder of the input
	// as a single argument.
	FreeText bool
}

// ArgDef defines one argument of a command.
type ArgDef struct {
	Name        string
	Required    bool
	Description string

	// Values restricts the argument to an enumerated set when non-empty.
	Values []string
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry populated with the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory returns commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Category:    "Navigation",
		Handler:     handleHelp,
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit lumen",
		Category:    "Navigation",
		Handler:     handleQuit,
	})

	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new session",
		Category:    "Sessions",
		Handler:     handleNew,
	})

	r.Register(&Command{
		Name:        "/sessions",
		Aliases:     []string{"/list"},
		Description: "Browse saved sessions",
		Category:    "Sessions",
		Handler:     handleSessions,
	})

	r.Register(&Command{
		Name:        "/delete",
		Description: "Delete a session",
		Usage:       "/delete <session_id>",
		Args: []ArgDef{
			{Name: "session_id", Required: true, Description: "ID of the session to delete"},
		},
		Category: "Sessions",
		Handler:  handleDelete,
	})

	r.Register(&Command{
		Name:        "/export",
		Description: "Export the active session",
		Usage:       "/export [md|json]",
		Args: []ArgDef{
			{Name: "format", Values: []string{"md", "json"}, Description: "Export format"},
		},
		Category: "Sessions",
		Handler:  handleExport,
	})

	r.Register(&Command{
		Name:        "/backup",
		Description: "Bundle the whole history into a zip archive",
		Category:    "Sessions",
		Handler:     handleBackup,
	})

	r.Register(&Command{
		Name:        "/mode",
		Description: "Switch provider persona",
		Usage:       "/mode <gemini|deepseek|openai>",
		Args: []ArgDef{
			{Name: "mode", Required: true, Values: []string{"gemini", "deepseek", "openai"}, Description: "Provider persona"},
		},
		Category: "Model",
		Handler:  handleMode,
	})

	r.Register(&Command{
		Name:        "/deep",
		Description: "Toggle deep analysis instructions",
		Usage:       "/deep [on|off]",
		Args: []ArgDef{
			{Name: "state", Values: []string{"on", "off"}, Description: "Force a state instead of toggling"},
		},
		Category: "Model",
		Handler:  handleDeep,
	})

	r.Register(&Command{
		Name:        "/link",
		Description: "Stage a video link for the next prompt",
		Usage:       "/link <url>",
		Args: []ArgDef{
			{Name: "url", Required: true, Description: "Video URL to analyze"},
		},
		Category: "Model",
		Handler:  handleLink,
	})

	r.Register(&Command{
		Name:        "/imagine",
		Description: "Generate an image from a prompt",
		Usage:       "/imagine <prompt>",
		Args: []ArgDef{
			{Name: "prompt", Required: true, Description: "Image description"},
		},
		Category: "Model",
		Handler:  handleImagine,
		FreeText: true,
	})

	r.Register(&Command{
		Name:        "/fix",
		Aliases:     []string{"/analyze"},
		Description: "Ask the model to analyze and fix the last error",
		Category:    "Model",
		Handler:     handleFix,
	})

	r.Register(&Command{
		Name:        "/attach",
		Aliases:     []string{"/file"},
		Description: "Attach files or folders to the next message",
		Usage:       "/attach <path> [path...]",
		Args: []ArgDef{
			{Name: "path", Required: true, Description: "File or folder to attach"},
		},
		Category: "Model",
		Handler:  handleAttach,
	})

	r.Register(&Command{
		Name:        "/preview",
		Aliases:     []string{"/p"},
		Description: "Open or retarget the live preview",
		Usage:       "/preview [preview|code|split]",
		Args: []ArgDef{
			{Name: "view", Values: []string{"preview", "code", "split"}, Description: "Presentation mode"},
		},
		Category: "Preview",
		Handler:  handlePreview,
	})

	r.Register(&Command{
		Name:        "/copy",
		Description: "Copy the last reply to the clipboard",
		Category:    "Preview",
		Handler:     handleCopy,
	})

	r.Register(&Command{
		Name:        "/login",
		Description: "Sign in and switch to your session history",
		Usage:       "/login <name>",
		Args: []ArgDef{
			{Name: "name", Required: true, Description: "Profile name"},
		},
		Category: "Identity",
		Handler:  handleLogin,
		FreeText: true,
	})

	r.Register(&Command{
		Name:        "/logout",
		Description: "Sign out and return to guest history",
		Category:    "Identity",
		Handler:     handleLogout,
	})
}
