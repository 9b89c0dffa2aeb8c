// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable session persistence for lumen.
//
// The durable boundary is a key-value store: the session list for each
// owner identity is serialized as JSON under one key, and the cached
// profile under another. Two backends are provided, a file-per-key store
// with atomic writes and a SQLite store, selected by configuration.
package storage
