// Package zoneadjust implements the Zone Adjuster: rescaling an authored
// Layout's zones onto a monitor's actual work area when the two disagree
// (spec.md §4.2), e.g. after a DPI change or when a layout authored on one
// monitor is applied to another of a different resolution.
package zoneadjust

import (
	"github.com/himewm/himewm/internal/geometry"
	"github.com/himewm/himewm/internal/layout"
)

// AdaptToMonitor returns a copy of l rescaled so that its MonitorRect
// becomes target, linearly rescaling every zone of every already-generated
// state in every variant of the tree. It returns nil when l.MonitorRect
// already equals target — no adaptation is needed.
//
// Rescaling divides each axis independently; rounding error is absorbed
// into the last zone touching the right/bottom edge on that axis so the
// rescaled zones still tile target exactly, matching the authored set's
// no-gaps invariant.
func AdaptToMonitor(l *layout.Layout, target geometry.Rect) *layout.Layout {
	if l.MonitorRect == target {
		return nil
	}

	out := l.Clone()
	out.MonitorRect = target
	adaptNode(out.Root, l.MonitorRect, target)
	return out
}

func adaptNode(n *layout.VariantNode, from, to geometry.Rect) {
	if n == nil {
		return
	}
	if n.Variant != nil {
		for _, state := range n.Variant.States {
			adaptState(state, from, to)
		}
		return
	}
	for _, c := range n.Children {
		adaptNode(c, from, to)
	}
}

// adaptState rescales state in place from the `from` rect's coordinate
// space into `to`'s.
func adaptState(state []geometry.Rect, from, to geometry.Rect) {
	for i := range state {
		z := state[i]

		x := to.X + scale(z.X-from.X, from.Width, to.Width)
		y := to.Y + scale(z.Y-from.Y, from.Height, to.Height)
		right := to.X + scale(z.Right()-from.X, from.Width, to.Width)
		bottom := to.Y + scale(z.Bottom()-from.Y, from.Height, to.Height)

		// Absorb rounding slack on the edge-touching zones so the rescaled
		// set still tiles `to` exactly.
		if z.Right() == from.Right() {
			right = to.Right()
		}
		if z.Bottom() == from.Bottom() {
			bottom = to.Bottom()
		}

		state[i] = geometry.Rect{
			X:      x,
			Y:      y,
			Width:  right - x,
			Height: bottom - y,
		}.Clamped()
	}
}

// scale linearly rescales offset from a span of size fromSpan to a span of
// size toSpan, rounding to the nearest integer.
func scale(offset, fromSpan, toSpan int) int {
	if fromSpan == 0 {
		return 0
	}
	return roundDiv(offset*toSpan, fromSpan)
}

func roundDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	if (a < 0) != (b < 0) {
		return -((-a + b/2) / b)
	}
	return (a + b/2) / b
}
