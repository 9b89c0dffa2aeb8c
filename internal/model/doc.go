// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// This package defines the core domain types used throughout the application
// for representing sessions, messages, attachments, and generation settings.
//
// # Key Types
//
//   - Session: Container for a chat with messages, config, and metadata
//   - Message: Single message with sender, text, timestamp, and attachments
//   - Attachment: Typed file or clipboard content embedded in a message
//   - GenerationConfig: Scalar sampling parameters plus the deep-thinking flag
//   - Profile: Cached identity used to scope the session collection
//
// # Usage
//
// Create a new session and add a turn:
//
//	sess := model.NewSession("guest")
//	sess.AddMessage(model.NewUserMessage("Build a landing page", nil))
//	reply := sess.AddModelMessage()
//	reply.SetStreamText("Here you go...")
//	reply.Finalize()
package model
