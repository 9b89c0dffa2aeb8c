// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package preview renders extracted code in an isolated browser
// sandbox. The renderer synthesizes a self-contained document per
// render: framework code gets a pinned runtime plus in-browser
// transpiler and is mounted by convention, plain HTML gets a neutral
// wrapper. A loopback HTTP server hosts the result so the user's
// browser shows it next to a syntax-highlighted code pane.
package preview
