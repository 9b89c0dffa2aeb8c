// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"unicode"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult is the outcome of parsing user input.
type ParseResult struct {
	// IsCommand is true if the input starts with /.
	IsCommand bool

	// Command is the matched command (nil when unknown).
	Command *Command

	// CommandName is the raw command name (e.g. "/mode").
	CommandName string

	// Args are the tokenized arguments.
	Args []string

	// RawArgs is everything after the command name, untokenized. Used by
	// commands that take free text, like /imagine.
	RawArgs string
}

// =============================================================================
// PARSER
// =============================================================================

// Parser recognizes slash commands against a registry.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser over the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse tokenizes user input. IsCommand is false for plain prompts.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)
	result := ParseResult{}

	if !strings.HasPrefix(input, "/") {
		return result
	}
	result.IsCommand = true

	tokens := splitTokens(input)
	if len(tokens) == 0 {
		return result
	}

	result.CommandName = strings.ToLower(tokens[0])
	result.Args = tokens[1:]
	result.RawArgs = strings.TrimSpace(strings.TrimPrefix(input, tokens[0]))
	result.Command = p.registry.Get(result.CommandName)
	return result
}

// IsCommand reports whether input looks like a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// splitTokens splits input into tokens, honoring single and double
// quotes so arguments may contain spaces.
func splitTokens(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingle, inDouble bool

	for _, r := range input {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case unicode.IsSpace(r) && !inSingle && !inDouble:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError reports a bad argument for a command.
type ValidationError struct {
	Command  string
	Arg      string
	Message  string
	Got      string
	Expected string
}

func (e *ValidationError) Error() string {
	msg := e.Command + ": " + e.Message
	if e.Arg != "" {
		msg += " for argument '" + e.Arg + "'"
	}
	if e.Got != "" {
		msg += " (got: " + e.Got + ")"
	}
	if e.Expected != "" {
		msg += " - expected: " + e.Expected
	}
	return msg
}

// ValidateArgs checks args against the command's definitions.
func ValidateArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}

	for i, def := range cmd.Args {
		if def.Required && i >= len(args) {
			return &ValidationError{
				Command:  cmd.Name,
				Arg:      def.Name,
				Message:  "required argument missing",
				Expected: def.Description,
			}
		}
		if i < len(args) && len(def.Values) > 0 {
			valid := false
			for _, v := range def.Values {
				if strings.EqualFold(args[i], v) {
					valid = true
					break
				}
			}
			if !valid {
				return &ValidationError{
					Command:  cmd.Name,
					Arg:      def.Name,
					Message:  "invalid value",
					Got:      args[i],
					Expected: strings.Join(def.Values, ", "),
				}
			}
		}
	}
	return nil
}
