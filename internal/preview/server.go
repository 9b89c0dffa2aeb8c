// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preview

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// PRESENTATION MODES
// =============================================================================

// Mode selects which pre-rendered panes the host page shows. Switching
// modes only changes visibility; the panes themselves are derived once
// per code change.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeCode    Mode = "code"
	ModeSplit   Mode = "split"
)

// ParseViewMode maps a user-supplied mode name to a Mode, defaulting
// to preview.
func ParseViewMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCode:
		return ModeCode
	case ModeSplit:
		return ModeSplit
	default:
		return ModePreview
	}
}

// =============================================================================
// SERVER
// =============================================================================

// DefaultListenAddr binds the preview host to loopback only.
const DefaultListenAddr = "127.0.0.1:8790"

// Server hosts the current preview on a loopback address. Every code
// change rebuilds both the sandbox document and the highlighted code
// pane from scratch.
type Server struct {
	mu sync.Mutex

	addr     string
	listener net.Listener
	srv      *http.Server

	code       string
	sandboxDoc string
	codePane   string
	mode       Mode
}

// NewServer creates a preview server bound to addr (falling back to
// DefaultListenAddr when empty).
func NewServer(addr string) *Server {
	if addr == "" {
		addr = DefaultListenAddr
	}
	return &Server{addr: addr, mode: ModePreview}
}

// Start begins serving. Returns the URL the preview is reachable at.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.urlLocked(), nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to bind preview address: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)

	s.listener = listener
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go s.srv.Serve(listener)

	return s.urlLocked(), nil
}

// Running reports whether the server is listening.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// URL returns the address the preview is served at.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urlLocked()
}

func (s *Server) urlLocked() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + "/"
}

// Shutdown stops serving.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// =============================================================================
// CONTENT
// =============================================================================

// SetCode replaces the previewed code and rebuilds both panes. Stale
// sandbox state from the previous preview cannot survive because the
// document is synthesized anew.
func (s *Server) SetCode(code string) {
	sandboxDoc := BuildDocument(code)

	language := "html"
	if IsFramework(code) {
		language = "jsx"
	}
	codePane := highlightHTML(code, language)

	s.mu.Lock()
	s.code = code
	s.sandboxDoc = sandboxDoc
	s.codePane = codePane
	s.mu.Unlock()
}

// Code returns the currently previewed code.
func (s *Server) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// SetMode switches the presentation mode without touching the panes.
func (s *Server) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// ViewMode returns the current presentation mode.
func (s *Server) ViewMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// =============================================================================
// HOST PAGE
// =============================================================================

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	page := s.renderPageLocked()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(page))
}

// renderPageLocked assembles the host page. The sandbox iframe gets
// scripts only: no same-origin access, no storage, no top navigation.
func (s *Server) renderPageLocked() string {
	if s.code == "" {
		return hostPageShell("<div class=\"empty\">No preview yet. Ask for UI code and run /preview.</div>")
	}

	showPreview := s.mode == ModePreview || s.mode == ModeSplit
	showCode := s.mode == ModeCode || s.mode == ModeSplit

	var body strings.Builder
	body.WriteString("<div class=\"panes " + string(s.mode) + "\">\n")
	if showPreview {
		body.WriteString("<iframe class=\"pane\" title=\"Live Preview\" sandbox=\"allow-scripts allow-modals allow-forms\" srcdoc=\"")
		body.WriteString(html.EscapeString(s.sandboxDoc))
		body.WriteString("\"></iframe>\n")
	}
	if showCode {
		body.WriteString("<div class=\"pane code\">\n")
		body.WriteString(s.codePane)
		body.WriteString("</div>\n")
	}
	body.WriteString("</div>\n")
	return hostPageShell(body.String())
}

const hostPageStyles = `
    html, body { height: 100%; margin: 0; background: #09090b; color: #e4e4e7; font-family: sans-serif; }
    .panes { display: flex; height: 100vh; }
    .pane { flex: 1; height: 100%; border: 0; overflow: auto; }
    .panes.split .pane:first-child { border-right: 1px solid #27272a; }
    .pane.code { background: #1e1e1e; padding: 1rem; box-sizing: border-box; font-size: 13px; }
    .empty { display: flex; height: 100vh; align-items: center; justify-content: center; color: #71717a; }
`

func hostPageShell(body string) string {
	return "<!DOCTYPE html>\n<html>\n<head>\n" +
		"<meta charset=\"UTF-8\" />\n" +
		"<title>lumen preview</title>\n" +
		"<style>" + hostPageStyles + "</style>\n" +
		"</head>\n<body>\n" + body + "</body>\n</html>\n"
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightHTML renders the code pane with inline-styled HTML.
func highlightHTML(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "<pre>" + html.EscapeString(code) + "</pre>"
	}

	formatter := chromahtml.New(chromahtml.WithLineNumbers(true))
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "<pre>" + html.EscapeString(code) + "</pre>"
	}
	return buf.String()
}
