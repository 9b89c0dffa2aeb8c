// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	return cmd()
}

func execute(t *testing.T, input string) tea.Msg {
	t.Helper()
	parser := NewParser(NewRegistry())
	cmd, handled := Execute(parser, &Context{}, input)
	require.True(t, handled)
	return runCmd(t, cmd)
}

// =============================================================================
// PARSER
// =============================================================================

func TestParse_PlainPromptIsNotACommand(t *testing.T) {
	parser := NewParser(NewRegistry())

	result := parser.Parse("write me a fibonacci function")
	assert.False(t, result.IsCommand)

	result = parser.Parse("  /help  ")
	assert.True(t, result.IsCommand)
	assert.Equal(t, "/help", result.CommandName)
}

func TestParse_TokenizesQuotedArguments(t *testing.T) {
	parser := NewParser(NewRegistry())

	result := parser.Parse(`/delete "session with spaces"`)
	require.Len(t, result.Args, 1)
	assert.Equal(t, "session with spaces", result.Args[0])
}

func TestParse_RawArgsKeepsFreeText(t *testing.T) {
	parser := NewParser(NewRegistry())

	result := parser.Parse("/imagine a fox in    watercolor")
	assert.Equal(t, "a fox in    watercolor", result.RawArgs)
	assert.Equal(t, []string{"a", "fox", "in", "watercolor"}, result.Args)
}

func TestParse_CommandNameIsCaseInsensitive(t *testing.T) {
	parser := NewParser(NewRegistry())

	result := parser.Parse("/HELP")
	require.NotNil(t, result.Command)
	assert.Equal(t, "/help", result.Command.Name)
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistry_AliasesResolve(t *testing.T) {
	registry := NewRegistry()

	for alias, want := range map[string]string{
		"/h":    "/help",
		"/?":    "/help",
		"/q":    "/quit",
		"/exit": "/quit",
		"/n":    "/new",
		"/list": "/sessions",
		"/p":    "/preview",
	} {
		cmd := registry.Get(alias)
		require.NotNil(t, cmd, "alias %s", alias)
		assert.Equal(t, want, cmd.Name)
	}
}

func TestRegistry_UnknownCommandReturnsNil(t *testing.T) {
	assert.Nil(t, NewRegistry().Get("/frobnicate"))
}

func TestRegistry_ByCategoryGroupsEverything(t *testing.T) {
	registry := NewRegistry()

	grouped := registry.ByCategory()
	total := 0
	for _, cmds := range grouped {
		total += len(cmds)
	}
	assert.Equal(t, len(registry.All()), total)
	assert.NotEmpty(t, grouped["Sessions"])
	assert.NotEmpty(t, grouped["Model"])
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidateArgs_RequiredArgumentMissing(t *testing.T) {
	registry := NewRegistry()

	err := ValidateArgs(registry.Get("/mode"), nil)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "mode", verr.Arg)
}

func TestValidateArgs_EnumRejectsUnknownValue(t *testing.T) {
	registry := NewRegistry()

	err := ValidateArgs(registry.Get("/mode"), []string{"llama"})
	require.Error(t, err)

	assert.NoError(t, ValidateArgs(registry.Get("/mode"), []string{"GEMINI"}))
	assert.NoError(t, ValidateArgs(registry.Get("/mode"), []string{"deepseek"}))
}

func TestValidateArgs_OptionalEnumAllowsEmpty(t *testing.T) {
	registry := NewRegistry()

	assert.NoError(t, ValidateArgs(registry.Get("/export"), nil))
	assert.NoError(t, ValidateArgs(registry.Get("/export"), []string{"json"}))
	assert.Error(t, ValidateArgs(registry.Get("/export"), []string{"pdf"}))
}

// =============================================================================
// EXECUTION
// =============================================================================

func TestExecute_PlainTextNotHandled(t *testing.T) {
	parser := NewParser(NewRegistry())

	cmd, handled := Execute(parser, &Context{}, "hello there")
	assert.False(t, handled)
	assert.Nil(t, cmd)
}

func TestExecute_UnknownCommandYieldsError(t *testing.T) {
	msg := execute(t, "/frobnicate")
	errMsg, ok := msg.(ErrorMsg)
	require.True(t, ok)
	assert.ErrorContains(t, errMsg.Err, "unknown command")
}

func TestExecute_ValidationFailureYieldsError(t *testing.T) {
	msg := execute(t, "/mode llama")
	_, ok := msg.(ErrorMsg)
	assert.True(t, ok)
}

func TestExecute_EmitsTypedMessages(t *testing.T) {
	tests := []struct {
		input string
		want  tea.Msg
	}{
		{"/new", NewSessionMsg{}},
		{"/n", NewSessionMsg{}},
		{"/sessions", ShowSessionsMsg{}},
		{"/help", ShowHelpMsg{}},
		{"/delete abc123", DeleteSessionMsg{ID: "abc123"}},
		{"/mode deepseek", SetProviderModeMsg{Mode: "deepseek"}},
		{"/mode OPENAI", SetProviderModeMsg{Mode: "openai"}},
		{"/deep", SetDeepAnalysisMsg{Toggle: true}},
		{"/deep on", SetDeepAnalysisMsg{On: true}},
		{"/deep off", SetDeepAnalysisMsg{On: false}},
		{"/link https://youtu.be/abc", StageLinkMsg{URL: "https://youtu.be/abc"}},
		{"/preview", OpenPreviewMsg{View: "preview"}},
		{"/preview split", OpenPreviewMsg{View: "split"}},
		{"/p code", OpenPreviewMsg{View: "code"}},
		{"/export", ExportSessionMsg{Format: "md"}},
		{"/export json", ExportSessionMsg{Format: "json"}},
		{"/backup", BackupMsg{}},
		{"/copy", CopyReplyMsg{}},
		{"/fix", AnalyzeErrorMsg{}},
		{"/analyze", AnalyzeErrorMsg{}},
		{"/attach a.txt b.txt", AttachFilesMsg{Paths: []string{"a.txt", "b.txt"}}},
		{`/attach "my notes.txt"`, AttachFilesMsg{Paths: []string{"my notes.txt"}}},
		{"/login Ada Lovelace", LoginMsg{Name: "Ada Lovelace"}},
		{"/logout", LogoutMsg{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, execute(t, tt.input))
		})
	}
}

func TestExecute_ImagineKeepsFreeTextPrompt(t *testing.T) {
	msg := execute(t, "/imagine a fox in    watercolor")
	img, ok := msg.(GenerateImageMsg)
	require.True(t, ok)
	assert.Equal(t, "a fox in    watercolor", img.Prompt)
}

func TestExecute_QuitReturnsQuitCommand(t *testing.T) {
	parser := NewParser(NewRegistry())

	cmd, handled := Execute(parser, &Context{}, "/quit")
	require.True(t, handled)
	assert.Equal(t, tea.Quit(), cmd())
}
