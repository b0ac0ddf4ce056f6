package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/himewm/himewm/internal/geometry"
	"github.com/himewm/himewm/internal/layout"
)

type rawLayoutFile struct {
	W                int             `json:"w"`
	H                int             `json:"h"`
	DefaultVariantIdx []int          `json:"default_variant_idx"`
	Variants         json.RawMessage `json:"variants"`
}

type rawVariantLeaf struct {
	Positions    [][][4]int        `json:"positions"`
	EndBehaviour rawEndBehaviour    `json:"end_behaviour"`
}

type rawEndBehaviour struct {
	PositionIdx int                  `json:"position_idx"`
	Behaviour   rawEndBehaviourKind  `json:"behaviour"`
}

type rawEndBehaviourKind struct {
	Tag       string           `json:"tag"`
	Direction string           `json:"direction,omitempty"`
	Splits    []rawRepeatSplit `json:"splits,omitempty"`
}

type rawRepeatSplit struct {
	Direction string  `json:"direction"`
	Ratio     float64 `json:"ratio"`
	Offset    int     `json:"offset"`
	Swap      bool    `json:"swap"`
}

// LoadLayouts reads every *.json file under dir, returning layouts keyed
// by name (the filename stem, spec.md §6.1) in deterministic
// filename-sorted order. A missing layouts directory, or one with no
// valid files, is fatal (spec.md §7).
func LoadLayouts(dir string) ([]*layout.Layout, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("config: layouts directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var layouts []*layout.Layout
	var order []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		l, err := loadLayoutFile(path)
		if err != nil {
			logWarn("parsing layout %s: %v; skipping", path, err)
			continue
		}
		layouts = append(layouts, l)
		order = append(order, strings.TrimSuffix(name, ".json"))
	}

	if len(layouts) == 0 {
		return nil, nil, fmt.Errorf("config: no valid layout files in %s", dir)
	}
	return layouts, order, nil
}

func loadLayoutFile(path string) (*layout.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw rawLayoutFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	monitorRect := geometry.Rect{X: 0, Y: 0, Width: raw.W, Height: raw.H}
	root, err := parseVariantsTree(raw.Variants)
	if err != nil {
		return nil, err
	}

	return &layout.Layout{
		MonitorRect:        monitorRect,
		Root:               root,
		DefaultVariantPath: raw.DefaultVariantIdx,
	}, nil
}

// parseVariantsTree parses the JSON "variants" field, disambiguating
// leaf-vs-container per spec.md §6.1: "an inner array whose elements are
// objects is a leaf Variant; an outer array whose elements are arrays is
// a container node."
func parseVariantsTree(raw json.RawMessage) (*layout.VariantNode, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("variants tree is not a JSON array: %w", err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("variants tree is empty")
	}

	if looksLikeObject(elements[0]) {
		v, err := parseVariantLeaf(elements)
		if err != nil {
			return nil, err
		}
		return &layout.VariantNode{Variant: v}, nil
	}

	children := make([]*layout.VariantNode, len(elements))
	for i, el := range elements {
		child, err := parseVariantsTree(el)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		children[i] = child
	}
	return &layout.VariantNode{Children: children}, nil
}

func looksLikeObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}

// parseVariantLeaf parses a leaf Variant. Per the §6.1 grammar a leaf's
// JSON array elements are each one authored state's Variant object, so a
// leaf is the sole element of `elements` in the single-Variant-per-node
// case the grammar describes.
func parseVariantLeaf(elements []json.RawMessage) (*layout.Variant, error) {
	if len(elements) != 1 {
		return nil, fmt.Errorf("leaf variant node must have exactly one element, got %d", len(elements))
	}
	var leaf rawVariantLeaf
	if err := json.Unmarshal(elements[0], &leaf); err != nil {
		return nil, fmt.Errorf("decoding variant leaf: %w", err)
	}

	states := make([][]geometry.Rect, len(leaf.Positions))
	for i, state := range leaf.Positions {
		zones := make([]geometry.Rect, len(state))
		for j, z := range state {
			zones[j] = geometry.Rect{X: z[0], Y: z[1], Width: z[2], Height: z[3]}
		}
		states[i] = zones
	}

	eb, err := parseEndBehaviour(leaf.EndBehaviour)
	if err != nil {
		return nil, err
	}

	return &layout.Variant{
		States:            states,
		ManualStatesUntil: len(states),
		EndBehaviour:      eb,
	}, nil
}

func parseEndBehaviour(raw rawEndBehaviour) (layout.EndBehaviour, error) {
	eb := layout.EndBehaviour{AnchorZoneIdx: raw.PositionIdx}
	switch raw.Behaviour.Tag {
	case "Directional":
		dir, err := parseDirection(raw.Behaviour.Direction)
		if err != nil {
			return eb, err
		}
		eb.Kind = layout.Directional
		eb.Direction = dir
	case "Repeating":
		eb.Kind = layout.Repeating
		for _, s := range raw.Behaviour.Splits {
			dir, err := parseDirection(s.Direction)
			if err != nil {
				return eb, err
			}
			eb.Splits = append(eb.Splits, layout.RepeatingSplit{
				Direction: dir,
				Ratio:     s.Ratio,
				Offset:    s.Offset,
				Swap:      s.Swap,
			})
		}
	default:
		return eb, fmt.Errorf("unknown end-behaviour tag %q", raw.Behaviour.Tag)
	}
	return eb, nil
}

func parseDirection(s string) (geometry.Direction, error) {
	switch s {
	case "Up":
		return geometry.Up, nil
	case "Down":
		return geometry.Down, nil
	case "Left":
		return geometry.Left, nil
	case "Right":
		return geometry.Right, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}
