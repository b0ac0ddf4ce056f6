package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const testLayout = `{
	"w": 1920,
	"h": 1080,
	"default_variant_idx": [0],
	"variants": [
		{
			"positions": [[[0, 0, 1920, 1080]]],
			"end_behaviour": {
				"position_idx": 0,
				"behaviour": {"tag": "Directional", "direction": "Right"}
			}
		}
	]
}`

func TestLoadMissingDirFatal(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error when layouts/ is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "layouts", "tall.json"), testLayout)

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Layouts) != 1 {
		t.Fatalf("expected 1 layout, got %d", len(b.Layouts))
	}
	if b.LayoutNames[0] != "tall" {
		t.Fatalf("expected layout name %q, got %q", "tall", b.LayoutNames[0])
	}
	if b.Settings.FloatingDefaultWRatio != 0.5 {
		t.Fatalf("expected default floating width ratio 0.5, got %v", b.Settings.FloatingDefaultWRatio)
	}
	if b.Settings.NewWindowRetries != 10000 {
		t.Fatalf("expected default new_window_retries 10000, got %d", b.Settings.NewWindowRetries)
	}
	if b.Rules == nil {
		t.Fatal("expected a non-nil empty Matcher")
	}
	if len(b.Keybinds) != 0 {
		t.Fatalf("expected no keybinds, got %d", len(b.Keybinds))
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "layouts", "tall.json"), testLayout)
	settings := map[string]any{
		"layout_settings": map[string]any{
			"default_layout": "tall",
			"window_padding": 4,
			"edge_padding":   8,
		},
		"border_settings": map[string]any{
			"disable_rounding":        true,
			"focused_border_colour":   "ff0000",
			"unfocused_border_colour": "",
		},
	}
	data, _ := json.Marshal(settings)
	writeFile(t, filepath.Join(dir, "settings.json"), string(data))

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Settings.DefaultLayoutIdx != 0 {
		t.Fatalf("expected default layout idx 0, got %d", b.Settings.DefaultLayoutIdx)
	}
	if b.Settings.WindowPaddingPx != 4 || b.Settings.EdgePaddingPx != 8 {
		t.Fatalf("padding not applied: %+v", b.Settings)
	}
	if !b.Settings.DisableRounding {
		t.Fatal("expected disable_rounding true")
	}
	if b.Settings.HasUnfocusedBorderColor {
		t.Fatal("expected no unfocused border colour")
	}
	if b.Settings.FocusedBorderColor.R != 0xff {
		t.Fatalf("expected focused border red channel 0xff, got %x", b.Settings.FocusedBorderColor.R)
	}
}

func TestLoadSettingsMalformedFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "layouts", "tall.json"), testLayout)
	writeFile(t, filepath.Join(dir, "settings.json"), "{not valid json")

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Settings.NewWindowRetries != 10000 {
		t.Fatalf("expected defaults substituted, got %+v", b.Settings)
	}
}

func TestLoadKeybinds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "layouts", "tall.json"), testLayout)
	writeFile(t, filepath.Join(dir, "keybinds.json"), `{
		"cycle_focus_next": "alt j",
		"cycle_focus_prev": "alt k",
		"grab_window": "alt shift space",
		"toggle_fullscreen": "alt unknownkey"
	}`)

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := b.Keybinds["cycle_focus_next"].Sequence; got != "Mod1-j" {
		t.Fatalf("expected Mod1-j, got %q", got)
	}
	if got := b.Keybinds["grab_window"].Sequence; got != "Mod1-Shift-space" {
		t.Fatalf("expected Mod1-Shift-space, got %q", got)
	}
	if _, ok := b.Keybinds["toggle_fullscreen"]; ok {
		t.Fatal("expected unrecognized key to be skipped")
	}
}
