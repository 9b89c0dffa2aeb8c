// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preview

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reactSnippet = `import React from 'react';
import { motion } from 'framer-motion';

export default function App() {
  return (
    <div className="p-4">hello</div>
  );
}`

// =============================================================================
// FRAMEWORK DETECTION
// =============================================================================

func TestIsFramework(t *testing.T) {
	assert.True(t, IsFramework("import React from 'react';"))
	assert.True(t, IsFramework("export default function Chart() {}"))
	assert.True(t, IsFramework(`<div className="x" />`))
	assert.False(t, IsFramework("<h1>Hello</h1>"))
	assert.False(t, IsFramework("<div class=\"x\">plain</div>"))
}

func TestStripImports(t *testing.T) {
	out := StripImports(reactSnippet)
	assert.NotContains(t, out, "import React")
	assert.NotContains(t, out, "framer-motion")
	assert.Contains(t, out, "export default function App()")
}

// =============================================================================
// DOCUMENT SYNTHESIS
// =============================================================================

func TestBuildDocument_Framework(t *testing.T) {
	doc := BuildDocument(reactSnippet)

	assert.Contains(t, doc, reactRuntimeURL)
	assert.Contains(t, doc, reactDOMRuntimeURL)
	assert.Contains(t, doc, transpilerURL)
	assert.Contains(t, doc, `type="text/babel"`)
	assert.NotContains(t, doc, "import React")

	// Mount convention with fallback and diagnostics.
	assert.Contains(t, doc, "typeof App !== 'undefined'")
	assert.Contains(t, doc, "typeof Example !== 'undefined'")
	assert.Contains(t, doc, "Could not find an \"App\" component")
	assert.Contains(t, doc, "Runtime Error:")
}

func TestBuildDocument_PlainHTML(t *testing.T) {
	doc := BuildDocument("<h1>Hi</h1>")

	assert.NotContains(t, doc, reactRuntimeURL)
	assert.NotContains(t, doc, "text/babel")
	assert.Contains(t, doc, "<h1>Hi</h1>")
	assert.Contains(t, doc, `<div class="p-4">`)
}

func TestBuildDocument_EscapesClosingScriptTag(t *testing.T) {
	doc := BuildDocument(`export default function App() { const s = "</script>"; return (<div className="x">{s}</div>); }`)
	assert.NotContains(t, doc, `"</script>"`)
	assert.Contains(t, doc, `<\/script>`)
}

func TestBuildDocument_RebuiltFromScratch(t *testing.T) {
	first := BuildDocument(`<p>one</p>`)
	second := BuildDocument(`<p>two</p>`)
	assert.NotContains(t, second, "one")
	assert.Contains(t, first, "one")
}

// =============================================================================
// HOST SERVER
// =============================================================================

func TestServer_ServesHostPage(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	url, err := s.Start()
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	s.SetCode(reactSnippet)

	body := fetch(t, url)
	assert.Contains(t, body, "<iframe")
	assert.Contains(t, body, `sandbox="allow-scripts allow-modals allow-forms"`)
	assert.NotContains(t, body, "allow-same-origin")

	// The sandbox document travels escaped inside srcdoc.
	assert.Contains(t, body, "text/babel")
}

func TestServer_ModeTogglesVisiblePanes(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	url, err := s.Start()
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	s.SetCode("<h1>Hi</h1>")

	s.SetMode(ModeCode)
	body := fetch(t, url)
	assert.NotContains(t, body, "<iframe")
	assert.Contains(t, body, `class="pane code"`)

	s.SetMode(ModeSplit)
	body = fetch(t, url)
	assert.Contains(t, body, "<iframe")
	assert.Contains(t, body, `class="pane code"`)

	s.SetMode(ModePreview)
	body = fetch(t, url)
	assert.Contains(t, body, "<iframe")
	assert.NotContains(t, body, `class="pane code"`)
}

func TestServer_EmptyStateWithoutCode(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	url, err := s.Start()
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	body := fetch(t, url)
	assert.Contains(t, body, "No preview yet")
}

func TestParseViewMode(t *testing.T) {
	assert.Equal(t, ModeCode, ParseViewMode("code"))
	assert.Equal(t, ModeSplit, ParseViewMode(" SPLIT "))
	assert.Equal(t, ModePreview, ParseViewMode("anything"))
}

func TestHighlightHTML_FallsBackToEscapedPre(t *testing.T) {
	out := highlightHTML("<h1>x</h1>", "html")
	assert.True(t, strings.Contains(out, "pre") || strings.Contains(out, "span"))
	assert.NotContains(t, out, "<h1>x</h1>")
}

func fetch(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
