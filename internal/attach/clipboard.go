// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import "github.com/atotto/clipboard"

// SystemClipboard reads the OS clipboard via atotto/clipboard. The
// library exposes text only, so pasted image bytes reach us when a
// terminal or tmux pipeline places raw data on the text clipboard;
// content sniffing in Paste decides what it actually is.
type SystemClipboard struct{}

// Read implements ClipboardSource.
func (SystemClipboard) Read() ([]byte, string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return nil, "", err
	}
	return []byte(text), "", nil
}
