package layout

import (
	"fmt"

	"github.com/himewm/himewm/internal/geometry"
)

// EndBehaviourKind selects how a Variant manufactures states beyond the
// manually authored ones.
type EndBehaviourKind int

const (
	// Directional repeatedly splits a single anchor zone in one direction,
	// growing the zone count by exactly one per generated state.
	Directional EndBehaviourKind = iota
	// Repeating applies one split from a cyclic list per generated state,
	// cloning the previous state each time.
	Repeating
)

// RepeatingSplit is one entry of a Repeating end-behaviour's cyclic split
// list. Offset indexes which sibling zone (relative to the end of the
// previous repeating pass) becomes the split target; Swap exchanges the
// split zone and its newly created sibling's positions after the split.
type RepeatingSplit struct {
	Direction geometry.Direction
	Ratio     float64
	Offset    int
	Swap      bool
}

// EndBehaviour describes how to generate state k+1 from the states already
// present once k reaches ManualStatesUntil.
type EndBehaviour struct {
	Kind EndBehaviourKind

	// Directional fields.
	Direction geometry.Direction
	// FromState, if non-nil, is cloned as the base for every generated
	// Directional state instead of States[ManualStatesUntil-1].
	FromState []geometry.Rect

	// Repeating fields.
	Splits []RepeatingSplit

	// AnchorZoneIdx names the zone that directional generation repeatedly
	// splits, and the zone that the first repeating generation splits.
	AnchorZoneIdx int
}

// Variant is a lazy, extensible sequence of states: state k (1-indexed) is
// an ordered list of k zones covering the variant's authored monitor
// rectangle without gaps and with pairwise-disjoint interiors.
type Variant struct {
	States            [][]geometry.Rect
	ManualStatesUntil int
	EndBehaviour      EndBehaviour
}

// Clone deep-copies the variant, including its authored and any
// already-generated states.
func (v *Variant) Clone() *Variant {
	states := make([][]geometry.Rect, len(v.States))
	for i, s := range v.States {
		states[i] = append([]geometry.Rect(nil), s...)
	}
	eb := v.EndBehaviour
	eb.FromState = append([]geometry.Rect(nil), v.EndBehaviour.FromState...)
	eb.Splits = append([]RepeatingSplit(nil), v.EndBehaviour.Splits...)
	return &Variant{
		States:            states,
		ManualStatesUntil: v.ManualStatesUntil,
		EndBehaviour:      eb,
	}
}

// EnsureLen lazily extends v.States until it holds at least n states
// (state n-1 has n zones).
func (v *Variant) EnsureLen(n int) error {
	if n < 1 {
		return fmt.Errorf("layout: required window count must be >= 1, got %d", n)
	}
	if len(v.States) == 0 {
		return fmt.Errorf("layout: variant has no authored states")
	}
	for len(v.States) < n {
		if err := v.extendOnce(); err != nil {
			return err
		}
	}
	return nil
}

// extendOnce manufactures exactly one new state (index len(v.States),
// holding len(v.States)+1 zones) and appends it.
func (v *Variant) extendOnce() error {
	switch v.EndBehaviour.Kind {
	case Directional:
		return v.extendDirectional()
	case Repeating:
		return v.extendRepeating()
	default:
		return fmt.Errorf("layout: unknown end-behaviour kind %d", v.EndBehaviour.Kind)
	}
}

// extendDirectional clones the base state (FromState, or the last manually
// authored state), then repeatedly splits the anchor zone in v.EndBehaviour.Direction
// until the state holds target = len(v.States)+1 zones. Because the split
// primitive mutates the anchor's array slot in place and appends new zones
// to the tail, the anchor keeps its original index across every split —
// there is no separate "rotate to anchor" step to perform.
func (v *Variant) extendDirectional() error {
	base := v.EndBehaviour.FromState
	if base == nil {
		if v.ManualStatesUntil < 1 || v.ManualStatesUntil > len(v.States) {
			return fmt.Errorf("layout: manual_states_until out of range")
		}
		base = v.States[v.ManualStatesUntil-1]
	}

	anchor := v.EndBehaviour.AnchorZoneIdx
	if anchor < 0 || anchor >= len(base) {
		return fmt.Errorf("layout: anchor zone index %d out of range for base state of length %d", anchor, len(base))
	}

	target := len(v.States) + 1
	state := append([]geometry.Rect(nil), base...)
	numPieces := target - len(base) + 1
	if numPieces < 1 {
		return fmt.Errorf("layout: directional extension requires at least one piece, got %d", numPieces)
	}

	dir := v.EndBehaviour.Direction
	anchorZone := state[anchor]
	var uniform int
	if dir.Horizontal() {
		uniform = roundDiv(anchorZone.Width, numPieces)
	} else {
		uniform = roundDiv(anchorZone.Height, numPieces)
	}

	first := true
	splitIdx := anchor
	for len(state) < target {
		if !first {
			splitIdx = len(state) - 1
		}
		zone := state[splitIdx]
		var at int
		switch dir {
		case geometry.Up:
			at = zone.Height - uniform
		case geometry.Down:
			at = uniform
		case geometry.Left:
			at = zone.Width - uniform
		case geometry.Right:
			at = uniform
		}
		state = splitZone(state, splitIdx, dir, at)
		first = false
	}

	v.States = append(v.States, state)
	return nil
}

// extendRepeating clones the previous state and applies exactly one split
// from the cyclic splits list, picking the split target per spec.md §4.1's
// pick_split_target rule: the anchor zone on the first generated state,
// otherwise the sibling produced by the prior repeating pass (located via
// the split's Offset).
func (v *Variant) extendRepeating() error {
	splits := v.EndBehaviour.Splits
	if len(splits) == 0 {
		return fmt.Errorf("layout: repeating end-behaviour has no splits")
	}
	if v.ManualStatesUntil < 1 || v.ManualStatesUntil > len(v.States) {
		return fmt.Errorf("layout: manual_states_until out of range")
	}

	k := len(v.States) // current count of states, 0-indexed id of the state about to be generated
	i := (k - v.ManualStatesUntil) % len(splits)
	split := splits[i]

	var splitIdx int
	switch {
	case k == v.ManualStatesUntil:
		splitIdx = v.EndBehaviour.AnchorZoneIdx
	case i == 0:
		splitIdx = k - 1 - len(splits) + split.Offset
	default:
		splitIdx = k - 1 - i + split.Offset
	}

	prev := v.States[k-1]
	if splitIdx < 0 || splitIdx >= len(prev) {
		return fmt.Errorf("layout: repeating split target index %d out of range for state of length %d", splitIdx, len(prev))
	}

	state := append([]geometry.Rect(nil), prev...)

	zone := state[splitIdx]
	var dim int
	if split.Direction.Horizontal() {
		dim = zone.Width
	} else {
		dim = zone.Height
	}
	at := roundF(split.Ratio * float64(dim))

	state = splitZone(state, splitIdx, split.Direction, at)

	if split.Swap {
		last := len(state) - 1
		state[splitIdx], state[last] = state[last], state[splitIdx]
	}

	v.States = append(v.States, state)
	return nil
}

// splitZone replaces state[idx] with the "kept" piece and appends the
// "new" piece, per the direction conventions in spec.md §4.1: Up/Left
// places the new zone on the low-coordinate side; Down/Right places it on
// the high-coordinate side. The kept zone always retains array index idx;
// the new zone is always appended to the tail, so callers driving a
// multi-split loop can target the most recently created zone by index
// len(state)-1.
func splitZone(state []geometry.Rect, idx int, dir geometry.Direction, at int) []geometry.Rect {
	z := state[idx]
	var kept, created geometry.Rect
	switch dir {
	case geometry.Up:
		created = geometry.Rect{X: z.X, Y: z.Y, Width: z.Width, Height: at}
		kept = geometry.Rect{X: z.X, Y: z.Y + at, Width: z.Width, Height: z.Height - at}
	case geometry.Down:
		kept = geometry.Rect{X: z.X, Y: z.Y, Width: z.Width, Height: at}
		created = geometry.Rect{X: z.X, Y: z.Y + at, Width: z.Width, Height: z.Height - at}
	case geometry.Left:
		created = geometry.Rect{X: z.X, Y: z.Y, Width: at, Height: z.Height}
		kept = geometry.Rect{X: z.X + at, Y: z.Y, Width: z.Width - at, Height: z.Height}
	case geometry.Right:
		kept = geometry.Rect{X: z.X, Y: z.Y, Width: at, Height: z.Height}
		created = geometry.Rect{X: z.X + at, Y: z.Y, Width: z.Width - at, Height: z.Height}
	}
	state[idx] = kept
	return append(state, created)
}
