// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands implements the slash command system: a registry of
// commands with aliases and argument definitions, a parser that
// recognizes and tokenizes command input, and handlers that emit typed
// messages for the UI loop to act on.
package commands
