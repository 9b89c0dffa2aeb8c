// lumen - a terminal chat client for Gemini-style generative APIs with
// a sandboxed live preview for generated UI code.
//
// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumenforge/lumen-tui/internal/attach"
	"github.com/lumenforge/lumen-tui/internal/config"
	"github.com/lumenforge/lumen-tui/internal/engine"
	"github.com/lumenforge/lumen-tui/internal/preview"
	"github.com/lumenforge/lumen-tui/internal/provider"
	"github.com/lumenforge/lumen-tui/internal/session"
	"github.com/lumenforge/lumen-tui/internal/storage"
	"github.com/lumenforge/lumen-tui/internal/ui/chat"
	"github.com/lumenforge/lumen-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference so the engine sink and the config watcher
// can push messages into the running UI.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func programSend(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lumen %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "lumen:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, cfgFile, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	kv, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer kv.Close()

	store := storage.NewSessionStore(kv)
	owner := store.LoadProfile().OwnerID()

	manager := session.NewManager(store, owner, session.Config{
		AutoSaveInterval: time.Duration(cfg.Persistence.AutoSaveIntervalSecs) * time.Second,
	})

	client := provider.NewClient(provider.Options{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		ChatModel:  cfg.Provider.ChatModel,
		ImageModel: cfg.Provider.ImageModel,
	})

	eng := engine.New(engine.Options{
		Provider: client,
		Mode:     provider.ParseMode(cfg.Provider.Mode),
		Sink: func(ev engine.Event) {
			programSend(chat.StreamEventMsg{Event: ev})
		},
		Persist: manager.Persist,
	})

	// Resume the most recent session, if any.
	if sessions := manager.Sessions(); len(sessions) > 0 {
		if sess := manager.SetActive(sessions[0].ID); sess != nil {
			if err := eng.Attach(sess); err != nil {
				// Corrupt history should not block startup; start fresh.
				manager.SetActive("")
			}
		}
	}

	previewServer := preview.NewServer(cfg.Preview.ListenAddr)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = previewServer.Shutdown(ctx)
	}()

	m := chat.New(chat.Options{
		Config:   cfg,
		Theme:    styles.NewTheme(),
		Engine:   eng,
		Provider: client,
		Sessions: manager,
		Store:    store,
		Preview:  previewServer,
		Attach:   attach.NewProcessor(attach.SystemClipboard{}),
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	stopWatch, err := config.Watch(cfgFile, func(next *config.Config) {
		programSend(chat.ConfigReloadedMsg{Config: next})
	})
	if err == nil {
		defer stopWatch()
	}

	_, err = p.Run()

	programMu.Lock()
	programRef = nil
	programMu.Unlock()

	return err
}

// loadConfig resolves the config file path and loads it, falling back
// to defaults when the file does not exist yet.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, path, nil
}

// openStore picks the persistence backend.
func openStore(cfg *config.Config) (storage.KeyValueStore, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	if cfg.Persistence.Backend == "sqlite" {
		return storage.NewSQLiteStore(filepath.Join(dir, "lumen.db"))
	}
	return storage.NewFileStore(filepath.Join(dir, "sessions"))
}
