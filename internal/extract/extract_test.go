// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const jsxWithExport = "Here is your component:\n\n```jsx\nfunction App() {\n  return <h1>Hi</h1>;\n}\nexport default App;\n```\n"

const jsxBare = "```jsx\nconst x = <div />;\n```\n"

const htmlBlock = "```html\n<h1>Hello</h1>\n```\n"

func TestCode_FrameworkBlockWins(t *testing.T) {
	code, ok := Code(jsxWithExport + htmlBlock)
	assert.True(t, ok)
	assert.Contains(t, code, "export default App")
	assert.NotContains(t, code, "<h1>Hello</h1>")
}

func TestCode_ReturnMarkerQualifies(t *testing.T) {
	text := "```tsx\nconst App = () => {\n  return (\n    <div>ok</div>\n  );\n};\n```\n"
	code, ok := Code(text)
	assert.True(t, ok)
	assert.Contains(t, code, "return (")
}

func TestCode_BareFrameworkBlockFallsThroughToHTML(t *testing.T) {
	code, ok := Code(jsxBare + htmlBlock)
	assert.True(t, ok)
	assert.Contains(t, code, "<h1>Hello</h1>")
}

func TestCode_BareFrameworkBlockAloneReturnsNone(t *testing.T) {
	_, ok := Code(jsxBare)
	assert.False(t, ok)
}

func TestCode_HTMLOnly(t *testing.T) {
	code, ok := Code("Some prose.\n" + htmlBlock)
	assert.True(t, ok)
	assert.Contains(t, code, "<h1>Hello</h1>")
}

func TestCode_NoFences(t *testing.T) {
	_, ok := Code("plain prose, no code at all")
	assert.False(t, ok)
}

func TestCode_IgnoresOtherLanguages(t *testing.T) {
	_, ok := Code("```python\nprint('hi')\n```")
	assert.False(t, ok)
}

func TestCode_StreamingPrefixIsSafe(t *testing.T) {
	// An unterminated fence mid-stream must not match.
	_, ok := Code("```jsx\nexport default function App() {")
	assert.False(t, ok)
}
