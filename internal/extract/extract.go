// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract selects the single most relevant fenced code block from
// model output for live preview.
//
// The selection policy is a fixed, ordered rule list rather than a full
// markdown parse:
//
//  1. The first fenced block tagged with a UI-framework language (jsx,
//     tsx, javascript, react) whose body contains "export default" or
//     "return (". The double condition skips incidental snippets that
//     merely mention the language.
//  2. Otherwise the first fenced html block.
//  3. Otherwise nothing.
package extract

import "regexp"

// Fence patterns for the ordered rule list. (?s) lets the body span lines.
var (
	frameworkFence = regexp.MustCompile("(?s)```(?:jsx|tsx|javascript|react)\\s*\\n(.*?)```")
	htmlFence      = regexp.MustCompile("(?s)```html\\s*\\n(.*?)```")

	exportDefaultMarker = regexp.MustCompile(`export\s+default`)
	returnMarker        = regexp.MustCompile(`return\s*\(`)
)

// Code extracts the preview candidate from markdown text. The second
// return value reports whether a candidate was found.
func Code(markdown string) (string, bool) {
	if m := frameworkFence.FindStringSubmatch(markdown); m != nil {
		body := m[1]
		if exportDefaultMarker.MatchString(body) || returnMarker.MatchString(body) {
			return body, true
		}
	}
	if m := htmlFence.FindStringSubmatch(markdown); m != nil {
		return m[1], true
	}
	return "", false
}
