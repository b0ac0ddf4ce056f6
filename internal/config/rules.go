package config

import (
	"encoding/json"
	"os"

	"github.com/himewm/himewm/internal/rules"
)

// LoadWindowRules reads window_rules.json under dir (spec.md §6.1). A
// missing file yields an empty, valid Matcher rather than an error —
// window rules are optional.
func LoadWindowRules(dir string, layoutIdxByName map[string]int) (*rules.Matcher, error) {
	path := dir + "/window_rules.json"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules.Compile(nil, layoutIdxByName)
		}
		logWarn("reading %s: %v; using no window rules", path, err)
		return rules.Compile(nil, layoutIdxByName)
	}

	var raw []rules.RawRule
	if err := json.Unmarshal(data, &raw); err != nil {
		logWarn("parsing %s: %v; using no window rules", path, err)
		return rules.Compile(nil, layoutIdxByName)
	}

	m, err := rules.Compile(raw, layoutIdxByName)
	if err != nil {
		logWarn("compiling window rules from %s: %v; using no window rules", path, err)
		return rules.Compile(nil, layoutIdxByName)
	}
	return m, nil
}
