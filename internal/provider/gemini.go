// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumenforge/lumen-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("provider not configured: missing API key")

// ErrTurnInFlight is returned when a turn is started while another is
// still streaming on the same context handle.
var ErrTurnInFlight = errors.New("a turn is already streaming on this context")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider error (HTTP %d)", e.Status)
}

// StreamError wraps a mid-stream failure, preserving any partial content
// received before the error.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error { return e.Err }

// =============================================================================
// HTTP CLIENT
// =============================================================================

// Shared streaming client with connection pooling; no overall timeout so
// long generations are not cut off (cancellation comes from the context).
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	ImageModel string
	MaxRetries int
	// RequestsPerSecond caps outbound request rate (0 = default 2/s).
	RequestsPerSecond float64
}

// Client talks to a Gemini-style generative language API over SSE.
type Client struct {
	apiKey     string
	baseURL    string
	chatModel  string
	imageModel string
	maxRetries int
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewClient creates a provider client.
func NewClient(opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		chatModel:  opts.ChatModel,
		imageModel: opts.ImageModel,
		maxRetries: opts.MaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		httpClient: sharedStreamingClient,
	}
}

// IsConfigured reports whether the client has credentials.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// calculateBackoff returns the delay before retry attempt n (1-based).
func (c *Client) calculateBackoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
	if d > 8*time.Second {
		d = 8 * time.Second
	}
	return d
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"topK"`
	TopP        float64 `json:"topP"`
}

type wireRequest struct {
	Contents          []wireContent         `json:"contents"`
	SystemInstruction *wireContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content      wireContent `json:"content"`
		FinishReason string      `json:"finishReason,omitempty"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// text returns the concatenated text parts of the first candidate.
func (r *wireResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func toWireParts(parts []Part) []wirePart {
	out := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		if p.InlineData != nil {
			out = append(out, wirePart{InlineData: &wireInlineData{
				MimeType: p.MimeType,
				Data:     base64.StdEncoding.EncodeToString(p.InlineData),
			}})
			continue
		}
		out = append(out, wirePart{Text: p.Text})
	}
	return out
}

// =============================================================================
// CONTEXT HANDLE
// =============================================================================

// handle is the provider-side conversation state for one session.
type handle struct {
	client *Client

	mu       sync.Mutex
	contents []wireContent
	system   string
	genCfg   wireGenerationConfig
	inFlight bool
}

// CreateContext implements ContextProvider.
func (c *Client) CreateContext(history []*model.Message, cfg model.GenerationConfig, mode Mode) (ContextHandle, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	contents, err := BuildHistory(history)
	if err != nil {
		return nil, err
	}

	wire := make([]wireContent, 0, len(contents))
	for _, content := range contents {
		wire = append(wire, wireContent{
			Role:  content.Role,
			Parts: toWireParts(content.Parts),
		})
	}

	return &handle{
		client:   c,
		contents: wire,
		system:   SystemInstruction(mode, cfg),
		genCfg: wireGenerationConfig{
			Temperature: cfg.Temperature,
			TopK:        cfg.TopK,
			TopP:        cfg.TopP,
		},
	}, nil
}

// StreamTurn implements ContextHandle.
func (h *handle) StreamTurn(ctx context.Context, parts []Part) (<-chan Delta, error) {
	h.mu.Lock()
	if h.inFlight {
		h.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	h.inFlight = true
	h.contents = append(h.contents, wireContent{Role: "user", Parts: toWireParts(parts)})
	body := wireRequest{
		Contents:         h.contents,
		GenerationConfig: &h.genCfg,
	}
	if h.system != "" {
		body.SystemInstruction = &wireContent{Parts: []wirePart{{Text: h.system}}}
	}
	h.mu.Unlock()

	resp, err := h.client.sendStreamRequest(ctx, h.client.chatModel, &body)
	if err != nil {
		h.finishTurn("")
		return nil, err
	}

	deltas := make(chan Delta, 64)
	go func() {
		defer close(deltas)
		defer resp.Body.Close()

		var accumulated strings.Builder
		reader := NewSSEReader(resp.Body)

		for {
			select {
			case <-ctx.Done():
				h.finishTurn(accumulated.String())
				deltas <- Delta{Err: ctx.Err()}
				return
			default:
			}

			data, err := reader.ReadEvent()
			if err != nil {
				if err == io.EOF {
					h.finishTurn(accumulated.String())
					return
				}
				h.finishTurn(accumulated.String())
				deltas <- Delta{Err: &StreamError{Partial: accumulated.String(), Err: err}}
				return
			}

			if bytes.Equal(data, []byte("[DONE]")) {
				h.finishTurn(accumulated.String())
				return
			}

			var chunk wireResponse
			if err := json.Unmarshal(data, &chunk); err != nil {
				// Skip malformed events rather than killing the turn.
				continue
			}
			if chunk.Error != nil {
				h.finishTurn(accumulated.String())
				deltas <- Delta{Err: &StreamError{
					Partial: accumulated.String(),
					Err:     &APIError{Status: chunk.Error.Code, Message: chunk.Error.Message},
				}}
				return
			}

			if text := chunk.text(); text != "" {
				accumulated.WriteString(text)
				select {
				case deltas <- Delta{Text: text}:
				case <-ctx.Done():
					h.finishTurn(accumulated.String())
					deltas <- Delta{Err: ctx.Err()}
					return
				}
			}
		}
	}()

	return deltas, nil
}

// finishTurn records the model reply into the conversation state and
// releases the in-flight guard.
func (h *handle) finishTurn(modelText string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if modelText != "" {
		h.contents = append(h.contents, wireContent{
			Role:  "model",
			Parts: []wirePart{{Text: modelText}},
		})
	}
	h.inFlight = false
}

// =============================================================================
// REQUEST SENDING
// =============================================================================

// sendStreamRequest posts a streaming request, retrying connection and
// 5xx failures with backoff. 4xx responses are returned immediately.
func (c *Client) sendStreamRequest(ctx context.Context, modelName string, body *wireRequest) (*http.Response, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, modelName)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		apiErr := parseAPIError(resp.StatusCode, respBody)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, apiErr
		}
		lastErr = apiErr
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// setHeaders applies authentication and content headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
}

// parseAPIError extracts a structured error from a response body.
func parseAPIError(status int, body []byte) error {
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		return &APIError{Status: status, Message: wrapped.Error.Message}
	}
	return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
}

// =============================================================================
// IMAGE GENERATION
// =============================================================================

// GenerateImage implements ContextProvider. It enriches the prompt with
// the style preset and negative prompt, then extracts the single inline
// image from the response.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error) {
	if !c.IsConfigured() {
		return ImageResult{}, ErrNotConfigured
	}

	prompt := req.Prompt
	if req.StylePreset != "" && req.StylePreset != "none" {
		prompt += " . Style: " + req.StylePreset
	}
	if req.NegativePrompt != "" {
		prompt += " . Exclude: " + req.NegativePrompt
	}

	body := map[string]any{
		"contents": []wireContent{{Parts: []wirePart{{Text: prompt}}}},
		"generationConfig": map[string]any{
			"imageConfig": map[string]any{
				"aspectRatio": req.AspectRatio,
			},
		},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return ImageResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return ImageResult{}, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.imageModel)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return ImageResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ImageResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ImageResult{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ImageResult{}, parseAPIError(resp.StatusCode, respBody)
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text       string          `json:"text,omitempty"`
					InlineData *wireInlineData `json:"inlineData,omitempty"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return ImageResult{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return ImageResult{}, errors.New("no content generated")
	}

	parts := parsed.Candidates[0].Content.Parts
	for _, part := range parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			mimeType := part.InlineData.MimeType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return ImageResult{
				DataURI:  "data:" + mimeType + ";base64," + part.InlineData.Data,
				MimeType: mimeType,
			}, nil
		}
	}

	// Text-only response means the model declined.
	if len(parts) > 0 && parts[0].Text != "" {
		return ImageResult{}, fmt.Errorf("model refused to generate image: %s", parts[0].Text)
	}
	return ImageResult{}, errors.New("no image data found in response")
}
