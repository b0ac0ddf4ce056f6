// Package inset implements the Padding/Inset Transform: it converts a raw
// layout zone into the final window rectangle, honoring window/edge padding
// and Windows' invisible-resize-border compensation (spec.md §4.1).
package inset

import "github.com/himewm/himewm/internal/geometry"

// Border is the platform's invisible-resize-border compensation, exposed as
// a configurable struct (spec.md §9) so non-Windows test environments can
// zero it out. himewm widens the final rectangle by a fixed horizontal
// inset on each side and a fixed bottom inset; Top defaults to 0 to match
// that, but all four sides are independently adjustable.
type Border struct {
	Left, Top, Right, Bottom int
}

// DefaultBorder is the ≈7px compensation calibrated against Windows' DWM
// invisible resize borders (spec.md §4.1).
var DefaultBorder = Border{Left: 7, Top: 0, Right: 7, Bottom: 7}

// Transform deflates zone by windowPadding on every side, substituting
// edgePadding on any side that touches monitorRect's edge, after first
// widening the zone by border to compensate for invisible resize borders.
// The result is clamped to a minimum 1x1 size (spec.md §4.1 failure
// semantics); callers should log when clamping occurred.
func Transform(zone geometry.Rect, monitorRect geometry.Rect, windowPadding, edgePadding int, border Border) geometry.Rect {
	out := geometry.Rect{
		X:      zone.X - border.Left,
		Y:      zone.Y - border.Top,
		Width:  zone.Width + border.Left + border.Right,
		Height: zone.Height + border.Top + border.Bottom,
	}

	out.X += windowPadding
	out.Y += windowPadding
	out.Width -= 2 * windowPadding
	out.Height -= 2 * windowPadding

	diff := windowPadding - edgePadding
	if zone.X == monitorRect.X {
		out.X -= diff
		out.Width += diff
	}
	if zone.Y == monitorRect.Y {
		out.Y -= diff
		out.Height += diff
	}
	if zone.Right() == monitorRect.Right() {
		out.Width += diff
	}
	if zone.Bottom() == monitorRect.Bottom() {
		out.Height += diff
	}

	return out.Clamped()
}

// TransformAll applies Transform to every zone in states.
func TransformAll(zones []geometry.Rect, monitorRect geometry.Rect, windowPadding, edgePadding int, border Border) []geometry.Rect {
	out := make([]geometry.Rect, len(zones))
	for i, z := range zones {
		out[i] = Transform(z, monitorRect, windowPadding, edgePadding, border)
	}
	return out
}
