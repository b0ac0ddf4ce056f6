// Package config loads the persisted configuration described in spec.md
// §6.1: settings.json, layouts/*.json, window_rules.json, and
// keybinds.json. It is the only package in the repo that touches
// encoding/json and the filesystem on behalf of the core — per spec.md
// §1, configuration persistence is "deliberately out of scope" for the
// core itself, and this package is the narrow collaborator the core
// consumes parsed output from.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/wm"
)

type rawLayoutSettings struct {
	DefaultLayout string `json:"default_layout"`
	WindowPadding int    `json:"window_padding"`
	EdgePadding   int    `json:"edge_padding"`
}

type rawBorderSettings struct {
	DisableRounding        bool   `json:"disable_rounding"`
	DisableUnfocusedBorder bool   `json:"disable_unfocused_border"`
	FocusedBorderColour    string `json:"focused_border_colour"`
	UnfocusedBorderColour  string `json:"unfocused_border_colour"`
}

type rawMiscSettings struct {
	FloatingWindowDefaultWRatio float64 `json:"floating_window_default_w_ratio"`
	FloatingWindowDefaultHRatio float64 `json:"floating_window_default_h_ratio"`
}

type rawAdvancedSettings struct {
	NewWindowRetries int `json:"new_window_retries"`
}

type rawSettings struct {
	LayoutSettings   rawLayoutSettings   `json:"layout_settings"`
	BorderSettings   rawBorderSettings   `json:"border_settings"`
	MiscSettings     rawMiscSettings     `json:"misc_settings"`
	AdvancedSettings rawAdvancedSettings `json:"advanced_settings"`
}

func defaultRawSettings() rawSettings {
	return rawSettings{
		MiscSettings: rawMiscSettings{
			FloatingWindowDefaultWRatio: 0.5,
			FloatingWindowDefaultHRatio: 0.5,
		},
		AdvancedSettings: rawAdvancedSettings{
			NewWindowRetries: 10000,
		},
	}
}

// LoadSettings reads settings.json under dir, substituting built-in
// defaults on any parse failure (spec.md §7's configuration-error policy:
// "reported to the operator as a warning; the system substitutes defaults
// for the failed file").
func LoadSettings(dir string, layoutIdxByName map[string]int) wm.Settings {
	raw := defaultRawSettings()
	path := filepath.Join(dir, "settings.json")
	if data, err := os.ReadFile(path); err != nil {
		if !os.IsNotExist(err) {
			logWarn("reading %s: %v; using defaults", path, err)
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		logWarn("parsing %s: %v; using defaults", path, err)
		raw = defaultRawSettings()
	}

	idx := 0
	if raw.LayoutSettings.DefaultLayout != "" {
		if i, ok := layoutIdxByName[raw.LayoutSettings.DefaultLayout]; ok {
			idx = i
		}
	}

	focused, _ := parseColor(raw.BorderSettings.FocusedBorderColour)
	unfocused, hasUnfocused := parseColor(raw.BorderSettings.UnfocusedBorderColour)

	return wm.Settings{
		DefaultLayoutIdx:        idx,
		WindowPaddingPx:         raw.LayoutSettings.WindowPadding,
		EdgePaddingPx:           raw.LayoutSettings.EdgePadding,
		DisableRounding:         raw.BorderSettings.DisableRounding,
		DisableUnfocusedBorder:  raw.BorderSettings.DisableUnfocusedBorder,
		FocusedBorderColor:      focused,
		UnfocusedBorderColor:    unfocused,
		HasUnfocusedBorderColor: hasUnfocused,
		FloatingDefaultWRatio:   raw.MiscSettings.FloatingWindowDefaultWRatio,
		FloatingDefaultHRatio:   raw.MiscSettings.FloatingWindowDefaultHRatio,
		NewWindowRetries:        raw.AdvancedSettings.NewWindowRetries,
	}
}

// parseColor parses a 6-hex-digit RGB string; an empty string means
// "system default" (spec.md §6.1), reported via the second return value.
func parseColor(s string) (desktop.Color, bool) {
	if s == "" {
		return desktop.Color{}, false
	}
	if len(s) != 6 {
		logWarn("invalid border colour %q, expected 6 hex digits", s)
		return desktop.Color{}, false
	}
	r, err1 := strconv.ParseUint(s[0:2], 16, 8)
	g, err2 := strconv.ParseUint(s[2:4], 16, 8)
	b, err3 := strconv.ParseUint(s[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		logWarn("invalid border colour %q", s)
		return desktop.Color{}, false
	}
	return desktop.Color{R: uint8(r), G: uint8(g), B: uint8(b)}, true
}

func logWarn(format string, args ...any) {
	fmt.Printf("config: warning: "+format+"\n", args...)
}
