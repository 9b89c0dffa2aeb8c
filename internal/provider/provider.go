// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the hosted-model boundary and its HTTP
// implementation.
//
// The client is injected as a capability into the conversation engine;
// tests substitute a fake. Nothing above this package knows about
// transport details.
package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/lumenforge/lumen-tui/internal/model"
)

// =============================================================================
// PROMPT PARTS
// =============================================================================

// Part is one element of an ordered prompt sequence: either text or an
// inline binary blob with its media type.
type Part struct {
	Text       string
	InlineData []byte
	MimeType   string
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BinaryPart builds an inline binary part.
func BinaryPart(data []byte, mimeType string) Part {
	return Part{InlineData: data, MimeType: mimeType}
}

// =============================================================================
// STREAM DELTA
// =============================================================================

// Delta is one increment of streamed model output. A Delta with Err set
// is terminal; the channel is closed after it.
type Delta struct {
	Text string
	Err  error
}

// =============================================================================
// PROVIDER INTERFACES
// =============================================================================

// ContextHandle is provider-side conversation state created from prior
// turns plus generation config. A handle serializes turns: starting a new
// turn while one is streaming returns ErrTurnInFlight.
type ContextHandle interface {
	// StreamTurn sends one turn and returns a finite sequence of text
	// deltas. The sequence is not restartable; a second call starts a
	// fresh turn on the accumulated conversation state.
	StreamTurn(ctx context.Context, parts []Part) (<-chan Delta, error)
}

// ContextProvider creates conversation contexts and generates images.
type ContextProvider interface {
	// CreateContext reconstructs provider state from prior messages.
	// Retained image attachments become inline binary parts; the
	// synthetic session greeting is skipped. Malformed history is an
	// error.
	CreateContext(history []*model.Message, cfg model.GenerationConfig, mode Mode) (ContextHandle, error)

	// GenerateImage produces a single image for a prompt.
	GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error)
}

// ImageRequest describes a single image generation.
type ImageRequest struct {
	Prompt         string
	AspectRatio    string // "1:1", "16:9", "3:4"
	StylePreset    string
	NegativePrompt string
}

// ImageResult is the generated image as a base64 data URI.
type ImageResult struct {
	DataURI  string
	MimeType string
}

// =============================================================================
// PROVIDER MODE
// =============================================================================

// Mode selects the instruction profile sent on context creation. The
// transport is identical across modes; only the system instruction
// differs.
type Mode string

const (
	ModeGemini   Mode = "gemini"
	ModeDeepSeek Mode = "deepseek"
	ModeOpenAI   Mode = "openai"
)

// ParseMode maps a config string to a Mode, defaulting to gemini.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeDeepSeek:
		return ModeDeepSeek
	case ModeOpenAI:
		return ModeOpenAI
	default:
		return ModeGemini
	}
}

// modeInstructions is the closed mapping from mode to its instruction
// block. Empty means no extra block for the native mode.
var modeInstructions = map[Mode]string{
	ModeGemini:   "",
	ModeDeepSeek: "MODE: DeepSeek R1 (Emulated). PRIORITIZE: Chain of Thought, Step-by-Step Logic, and Mathematical Precision.",
	ModeOpenAI:   "MODE: ChatGPT-4o (Emulated). PRIORITIZE: Conversational fluency, Python expertise, and broad general knowledge.",
}

// deepThinkingInstruction is appended when the session's reasoning flag
// is active.
const deepThinkingInstruction = "\n\n[DEEP LOGIC ACTIVE]\n" +
	"- ADOPT CHAIN-OF-THOUGHT REASONING.\n" +
	"- VERIFY every line of code.\n" +
	"- IF ERRORS EXIST: Detect -> Explain -> Fix -> Optimize."

// baseInstruction is the standing system prompt for the assistant.
const baseInstruction = `You are Lumen, an AI engineering assistant.

CORE CAPABILITIES:
1. Full-stack engineering: HTML, CSS, JS, React, Tailwind.
2. Vision: analyze attached images pixel by pixel, including screenshots of code and errors.
3. Live preview: when generating UI, prefer a single self-contained component or HTML document.

OUTPUT RULES:
- Always use Markdown.
- When fixing an error, show the corrected code block clearly.`

// SystemInstruction assembles the full system prompt for a mode and
// generation config.
func SystemInstruction(mode Mode, cfg model.GenerationConfig) string {
	out := baseInstruction
	if extra := modeInstructions[mode]; extra != "" {
		out += "\n\n" + extra
	}
	if cfg.DeepThinking {
		out += deepThinkingInstruction
	}
	return out
}

// =============================================================================
// HISTORY RECONSTRUCTION
// =============================================================================

// Content is one prior turn in provider wire format.
type Content struct {
	Role  string // "user" or "model"
	Parts []Part
}

// ErrMalformedHistory signals that a prior message could not be
// reconstructed into provider parts.
var ErrMalformedHistory = errors.New("malformed message history")

// BuildHistory converts retained messages to provider contents. The
// synthetic greeting is skipped; image attachments are rehydrated as
// inline binary parts.
func BuildHistory(history []*model.Message) ([]Content, error) {
	contents := make([]Content, 0, len(history))
	for _, msg := range history {
		if msg == nil {
			return nil, ErrMalformedHistory
		}
		if msg.IsSeed() {
			continue
		}

		role := "user"
		if msg.Sender == model.SenderModel {
			role = "model"
		}

		parts := []Part{TextPart(msg.Text)}
		for _, att := range msg.Attachments {
			if !att.IsImage() {
				continue
			}
			data, err := DecodeAttachment(att)
			if err != nil {
				return nil, err
			}
			parts = append(parts, BinaryPart(data, attachmentMime(att)))
		}
		contents = append(contents, Content{Role: role, Parts: parts})
	}
	return contents, nil
}

// DecodeAttachment extracts the raw bytes from an image attachment's
// data URI.
func DecodeAttachment(att model.Attachment) ([]byte, error) {
	payload, ok := att.DataURIPayload()
	if !ok {
		return nil, fmt.Errorf("%w: attachment %q has no data URI payload", ErrMalformedHistory, att.Name)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: attachment %q: %v", ErrMalformedHistory, att.Name, err)
	}
	return data, nil
}

// attachmentMime returns the attachment media type, defaulting to PNG.
func attachmentMime(att model.Attachment) string {
	if att.MimeType != "" {
		return att.MimeType
	}
	return "image/png"
}
