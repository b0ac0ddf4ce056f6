// Package config loads the persisted configuration described in spec.md
// §6.1: settings.json, layouts/*.json, window_rules.json, and
// keybinds.json. It is the only package in the repo that touches
// encoding/json and the filesystem on behalf of the core — per spec.md
// §1, configuration persistence is "deliberately out of scope" for the
// core itself, and this package is the narrow collaborator the core
// consumes parsed output from.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/himewm/himewm/internal/layout"
	"github.com/himewm/himewm/internal/rules"
	"github.com/himewm/himewm/internal/wm"
)

// Dir resolves the himewm configuration directory: $HIMEWM_CONFIG_DIR if
// set, else $XDG_CONFIG_HOME/himewm, else $HOME/.config/himewm.
func Dir() (string, error) {
	if d := os.Getenv("HIMEWM_CONFIG_DIR"); d != "" {
		return d, nil
	}
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "himewm"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "himewm"), nil
}

// Bundle is everything the daemon needs to construct or reload a
// wm.Manager: parsed settings, the ordered layout set (and their names, for
// settings.default_layout / window_rules.json layout name lookups), the
// compiled window-rule matcher, and the raw keybind sequences.
type Bundle struct {
	Settings    wm.Settings
	Layouts     []*layout.Layout
	LayoutNames []string
	Rules       *rules.Matcher
	Keybinds    map[string]Keybind
}

// Load reads the full configuration bundle from dir. Per spec.md §7, a
// layouts/ directory that is missing or has zero valid files is fatal;
// every other file substitutes defaults (settings.json, window_rules.json)
// or an empty set (keybinds.json) on error.
func Load(dir string) (*Bundle, error) {
	layouts, names, err := LoadLayouts(filepath.Join(dir, "layouts"))
	if err != nil {
		return nil, err
	}

	idxByName := make(map[string]int, len(names))
	for i, n := range names {
		idxByName[n] = i
	}

	settings := LoadSettings(dir, idxByName)

	matcher, err := LoadWindowRules(dir, idxByName)
	if err != nil {
		return nil, err
	}

	keybinds, err := LoadKeybinds(dir)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Settings:    settings,
		Layouts:     layouts,
		LayoutNames: names,
		Rules:       matcher,
		Keybinds:    keybinds,
	}, nil
}

// Watcher notifies on any change under the configuration directory so the
// daemon can perform spec.md §4.5's restart-on-reload flow.
type Watcher struct {
	w      *fsnotify.Watcher
	Events <-chan struct{}
	done   chan struct{}
}

// NewWatcher watches dir and its layouts/ subdirectory, coalescing every
// fsnotify event it reports (writes, creates, renames, removes, and
// permission changes alike) into a notification channel with a one-slot
// buffer.
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config: watching %s: %w", dir, err)
	}
	if layoutsDir := filepath.Join(dir, "layouts"); isDir(layoutsDir) {
		if err := fw.Add(layoutsDir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("config: watching %s: %w", layoutsDir, err)
		}
	}

	events := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(events)
		for {
			select {
			case _, ok := <-fw.Events:
				if !ok {
					return
				}
				select {
				case events <- struct{}{}:
				default:
				}
			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return &Watcher{w: fw, Events: events, done: done}, nil
}

// Close stops the watcher and releases its inotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.w.Close()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
