// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hello", TruncateRunes("hello", 10))
	assert.Equal(t, "hel...", TruncateRunes("hello world", 6))
	assert.Equal(t, "", TruncateRunes("hello", 0))
	assert.Equal(t, "he", TruncateRunes("hello", 2))

	// Multi-byte characters must not be split.
	assert.Equal(t, "héllo", TruncateRunes("héllo", 5))
	assert.Equal(t, "hél...", TruncateRunes("héllo wörld", 6))
}

func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "hello", TruncateWidth("hello", 5))
	assert.Equal(t, "he...", TruncateWidth("hello world", 5))
	// CJK characters occupy two columns.
	assert.Equal(t, "你好", TruncateWidth("你好", 4))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Build a trading bot", FirstLine("Build a trading bot\nwith RSI"))
	assert.Equal(t, "one line", FirstLine("one line"))
	assert.Equal(t, "trimmed", FirstLine("  trimmed  \nrest"))
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, AtomicWriteFile(path, []byte(`{"ok":true}`), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	// Overwrite must replace content completely.
	require.NoError(t, AtomicWriteFile(path, []byte("v2"), 0644))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
