// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes sessions out of lumen: single sessions as
// Markdown or JSON, and the whole per-owner history as a zip backup
// that bundles the machine-readable list with a readable transcript
// per session.
package export
