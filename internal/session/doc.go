// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the active conversation and its persistence
// schedule: immediate writes on turn-affecting mutations, a periodic
// auto-save sweep, and the cosmetic saving indicator the status bar
// shows. It also tracks which owner identity's collection is visible.
package session
