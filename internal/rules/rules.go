// Package rules implements the Window Rule Matcher: injecting per-window
// behavior by matching a window's title or process name against
// user-authored regular expressions (spec.md §4, §9 rule 6).
package rules

import (
	"fmt"
	"regexp"

	"github.com/himewm/himewm/internal/geometry"
)

// MatchOn names which window attribute a Rule's regex is tested against.
type MatchOn int

const (
	Title MatchOn = iota
	Process
)

// ActionKind selects what a matched rule does to the window.
type ActionKind int

const (
	AssignLayoutIndex ActionKind = iota
	StartFloating
	FloatingPosition
)

// PlacementKind selects how a floated window is positioned.
type PlacementKind int

const (
	PlacementDefault PlacementKind = iota
	PlacementCenter
	PlacementAbsolute
)

// Placement is a PlacementPolicy (spec.md §3): Default leaves the window
// where the OS placed it, Center centers it on its monitor, Absolute moves
// it to Rect.
type Placement struct {
	Kind PlacementKind
	Rect geometry.Rect
}

// Action is the effect a matched Rule has (spec.md §3's WindowRule.action).
type Action struct {
	Kind             ActionKind
	LayoutIndex      int
	Placement        Placement
	FloatingPosition geometry.Rect
}

// Rule is one compiled window rule.
type Rule struct {
	MatchOn MatchOn
	Regex   *regexp.Regexp
	Action  Action
}

// Matcher holds the compiled rule set, partitioned by MatchOn so title
// rules can be consulted before process rules without re-scanning the
// full list (spec.md §9 rule 6).
type Matcher struct {
	titleRules   []Rule
	processRules []Rule
}

// RawRule is the JSON-facing shape of one window_rules.json entry
// (spec.md §6.1).
type RawRule struct {
	MatchType string    `json:"match_type"`
	Regex     string    `json:"regex"`
	Rule      RawAction `json:"rule"`
}

// RawAction is the JSON-facing shape of a rule's action. Exactly one of
// Layout, StartFloating, or FloatingPosition should be non-nil/non-empty;
// Layout names a layout by its configured name rather than its resolved
// index, matching the original's deferred layout_idx_map lookup.
type RawAction struct {
	Layout           string         `json:"layout,omitempty"`
	StartFloating    *RawPlacement  `json:"start_floating,omitempty"`
	FloatingPosition *geometry.Rect `json:"floating_position,omitempty"`
}

// RawPlacement is the JSON-facing shape of a PlacementPolicy.
type RawPlacement struct {
	Kind string         `json:"kind"`
	Rect *geometry.Rect `json:"rect,omitempty"`
}

// Compile builds a Matcher from raw rules, resolving each rule's layout
// name against layoutIdxByName; rules naming an unknown layout are skipped
// (matching get_internal_window_rules' behavior of silently dropping
// unresolvable layout rules rather than failing the whole config load).
func Compile(raw []RawRule, layoutIdxByName map[string]int) (*Matcher, error) {
	m := &Matcher{}
	for _, r := range raw {
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return nil, fmt.Errorf("rules: invalid regex %q: %w", r.Regex, err)
		}

		var action Action
		switch {
		case r.Rule.Layout != "":
			idx, ok := layoutIdxByName[r.Rule.Layout]
			if !ok {
				continue
			}
			action = Action{Kind: AssignLayoutIndex, LayoutIndex: idx}
		case r.Rule.StartFloating != nil:
			action = Action{Kind: StartFloating, Placement: parsePlacement(r.Rule.StartFloating)}
		case r.Rule.FloatingPosition != nil:
			action = Action{Kind: FloatingPosition, FloatingPosition: *r.Rule.FloatingPosition}
		default:
			return nil, fmt.Errorf("rules: rule for regex %q names no action", r.Regex)
		}

		rule := Rule{Regex: re, Action: action}
		switch r.MatchType {
		case "Title":
			rule.MatchOn = Title
			m.titleRules = append(m.titleRules, rule)
		case "Process":
			rule.MatchOn = Process
			m.processRules = append(m.processRules, rule)
		default:
			return nil, fmt.Errorf("rules: unknown match_type %q", r.MatchType)
		}
	}
	return m, nil
}

func parsePlacement(p *RawPlacement) Placement {
	switch p.Kind {
	case "Center":
		return Placement{Kind: PlacementCenter}
	case "Absolute":
		if p.Rect != nil {
			return Placement{Kind: PlacementAbsolute, Rect: *p.Rect}
		}
		return Placement{Kind: PlacementDefault}
	default:
		return Placement{Kind: PlacementDefault}
	}
}

// Match evaluates title against every title rule in order, then process
// against every process rule in order, returning the first match
// (spec.md §9 rule 6: title rules before process rules, first match wins
// within each class). The zero value (ok=false) means no rule applies.
func (m *Matcher) Match(title, process string) (Action, bool) {
	for _, r := range m.titleRules {
		if r.Regex.MatchString(title) {
			return r.Action, true
		}
	}
	for _, r := range m.processRules {
		if r.Regex.MatchString(process) {
			return r.Action, true
		}
	}
	return Action{}, false
}
