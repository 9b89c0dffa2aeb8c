// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preview

import (
	"regexp"
	"strings"
)

// =============================================================================
// FRAMEWORK DETECTION
// =============================================================================

// IsFramework reports whether code is UI-framework script rather than
// plain HTML. Markers: a framework import, the default-exported
// function component convention, or JSX-style attribute syntax.
func IsFramework(code string) bool {
	return strings.Contains(code, "import React") ||
		strings.Contains(code, "export default function") ||
		strings.Contains(code, "className=")
}

// importStatement matches module imports, which cannot resolve inside
// the sandbox and must be stripped before transpilation.
var importStatement = regexp.MustCompile(`(?m)^\s*import\s[^\n]*?;?\s*$`)

// StripImports removes module import statements from framework code.
func StripImports(code string) string {
	return importStatement.ReplaceAllString(code, "")
}

// =============================================================================
// PINNED RUNTIME SOURCES
// =============================================================================

// The sandbox loads its runtime from fixed, versioned URLs so a
// preview renders the same way regardless of what the model emits.
const (
	reactRuntimeURL    = "https://unpkg.com/react@18.3.1/umd/react.development.js"
	reactDOMRuntimeURL = "https://unpkg.com/react-dom@18.3.1/umd/react-dom.development.js"
	transpilerURL      = "https://unpkg.com/@babel/standalone@7.24.10/babel.min.js"
	tailwindURL        = "https://cdn.tailwindcss.com/3.4.5"
)

// =============================================================================
// DOCUMENT SYNTHESIS
// =============================================================================

const sandboxStyles = `
      body { font-family: sans-serif; background-color: #000; color: #fff; margin: 0; padding: 0; }
      ::-webkit-scrollbar { width: 8px; height: 8px; }
      ::-webkit-scrollbar-track { background: #000; }
      ::-webkit-scrollbar-thumb { background: #333; border-radius: 4px; }
      #root { height: 100vh; width: 100vw; overflow: auto; }
`

// BuildDocument synthesizes the complete isolated document for the
// given code. Framework code is transpiled in the sandbox and mounted
// by convention (a component named App, falling back to Example);
// anything else is wrapped as plain HTML. The document is rebuilt from
// scratch on every call so no state survives between previews.
func BuildDocument(code string) string {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html>\n  <head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\" />\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\" />\n")
	sb.WriteString("    <script src=\"" + tailwindURL + "\"></script>\n")

	framework := IsFramework(code)
	if framework {
		sb.WriteString("    <script src=\"" + reactRuntimeURL + "\"></script>\n")
		sb.WriteString("    <script src=\"" + reactDOMRuntimeURL + "\"></script>\n")
		sb.WriteString("    <script src=\"" + transpilerURL + "\"></script>\n")
	}

	sb.WriteString("    <style>" + sandboxStyles + "    </style>\n")
	sb.WriteString("  </head>\n  <body>\n")
	sb.WriteString("    <div id=\"root\"></div>\n")

	if framework {
		sb.WriteString("    <script type=\"text/babel\">\n")
		sb.WriteString(mountScript(code))
		sb.WriteString("\n    </script>\n")
	} else {
		sb.WriteString("    <div class=\"p-4\">\n")
		sb.WriteString(code)
		sb.WriteString("\n    </div>\n")
	}

	sb.WriteString("  </body>\n</html>\n")
	return sb.String()
}

// mountScript wraps framework code in the convention-based mount with
// error containment. Every mount failure ends up as a panel inside the
// sandbox, never in the host page.
func mountScript(code string) string {
	stripped := escapeScriptBody(StripImports(code))

	var sb strings.Builder
	sb.WriteString("const { useState, useEffect, useRef, useMemo, useCallback } = React;\n")
	sb.WriteString("try {\n")
	sb.WriteString(stripped)
	sb.WriteString("\n")
	sb.WriteString(`  const RootComponent = (typeof App !== 'undefined') ? App : (typeof Example !== 'undefined' ? Example : null);
  if (RootComponent) {
    const root = ReactDOM.createRoot(document.getElementById('root'));
    root.render(<RootComponent />);
  } else {
    document.getElementById('root').innerHTML = '<div class="p-4 text-red-400">Could not find an "App" component to render. Export a component named App or Example.</div>';
  }
} catch (err) {
  document.getElementById('root').innerHTML = '<div class="p-4 text-red-500 font-mono"><h3 class="font-bold">Runtime Error:</h3>' + err.message + '</div>';
}`)
	return sb.String()
}

// escapeScriptBody keeps a premature closing tag inside the code from
// ending the sandbox script element.
func escapeScriptBody(code string) string {
	return strings.ReplaceAll(code, "</script", "<\\/script")
}
