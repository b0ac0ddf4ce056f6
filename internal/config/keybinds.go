package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Keybind is one parsed keybinds.json entry, expressed as an xgbutil
// keybind.Connect-compatible string ("Mod1-Shift-j") plus the original
// action name it's bound to. himewm deliberately reuses xgbutil's own
// modifier-key string grammar rather than inventing a VK-code mapping
// layer, since spec.md §1 places keybind string *parsing* itself outside
// the core's scope — this package only needs to translate himewm's
// "alt shift l" dialect into the dialect the chosen Desktop Services
// backend already understands.
type Keybind struct {
	Action   string
	Sequence string
}

// LoadKeybinds reads keybinds.json under dir (spec.md §6.1): a map from
// action name to a space-separated "alt j" / "alt shift l" / "alt space"
// string. Recognized modifiers: alt, ctrl, shift, win. Recognized special
// keys: space; otherwise a single ASCII letter.
func LoadKeybinds(dir string) (map[string]Keybind, error) {
	path := dir + "/keybinds.json"
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logWarn("reading %s: %v; using no keybinds", path, err)
		}
		return map[string]Keybind{}, nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		logWarn("parsing %s: %v; using no keybinds", path, err)
		return map[string]Keybind{}, nil
	}

	out := make(map[string]Keybind, len(raw))
	for action, spec := range raw {
		seq, err := toXGBSequence(spec)
		if err != nil {
			logWarn("keybind %q: %v; skipping", action, err)
			continue
		}
		out[action] = Keybind{Action: action, Sequence: seq}
	}
	return out, nil
}

func toXGBSequence(spec string) (string, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty keybind")
	}

	var parts []string
	key := fields[len(fields)-1]
	for _, mod := range fields[:len(fields)-1] {
		switch strings.ToLower(mod) {
		case "alt":
			parts = append(parts, "Mod1")
		case "ctrl":
			parts = append(parts, "Control")
		case "shift":
			parts = append(parts, "Shift")
		case "win":
			parts = append(parts, "Mod4")
		default:
			return "", fmt.Errorf("unrecognized modifier %q", mod)
		}
	}

	switch strings.ToLower(key) {
	case "space":
		parts = append(parts, "space")
	default:
		if len(key) != 1 {
			return "", fmt.Errorf("unrecognized key %q", key)
		}
		parts = append(parts, strings.ToLower(key))
	}

	return strings.Join(parts, "-"), nil
}
