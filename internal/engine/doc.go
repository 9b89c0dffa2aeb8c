// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine drives conversation turns. It owns the active session's
// message list, rewrites the outgoing prompt according to the configured
// instruction transforms, streams the provider reply into the in-progress
// model message, and reports cumulative updates to a sink so the UI and
// persistence layers can react.
package engine
