package wm

import (
	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/geometry"
	"github.com/himewm/himewm/internal/rules"
)

// initBorderAndCorners applies the focused border color and the
// corner preference a freshly discovered window should start with (spec.md
// §4.2 on_window_appeared step 5), grounded on the original's
// initialize_border/set_border_to_focused pairing.
func (m *Manager) initBorderAndCorners(w desktop.WindowId) {
	pref := desktop.CornerDefault
	if m.Settings.DisableRounding {
		pref = desktop.CornerDoNotRound
	}
	m.Services.SetCornerPreference(w, pref)
	m.Services.SetBorderColor(w, m.Settings.FocusedBorderColor)
}

// applyPlacement positions a newly-floated window per its matched
// PlacementPolicy (spec.md §3's WindowRule action) or, for
// FloatingPosition, an absolute rectangle regardless of the policy kind.
func (m *Manager) applyPlacement(w desktop.WindowId, mon desktop.MonitorId, placement rules.Placement) {
	var rect geometry.Rect
	switch placement.Kind {
	case rules.PlacementCenter:
		work, err := m.Services.MonitorWorkRect(mon)
		if err != nil {
			return
		}
		rect = centeredDefault(work, m.Settings.FloatingDefaultWRatio, m.Settings.FloatingDefaultHRatio)
	case rules.PlacementAbsolute:
		rect = placement.Rect
	default:
		return // Default: leave the OS-assigned geometry alone.
	}
	m.Services.SetWindowPos(w, rect, false)
}

// centeredDefault computes the centered default floating rectangle used by
// toggle_window and the Center placement policy (spec.md scenario
// D: floor(w*0.5) x floor(h*0.5) centered on the monitor work area).
func centeredDefault(work geometry.Rect, wRatio, hRatio float64) geometry.Rect {
	w := int(float64(work.Width) * wRatio)
	h := int(float64(work.Height) * hRatio)
	x := work.X + (work.Width-w)/2
	y := work.Y + (work.Height-h)/2
	return geometry.Rect{X: x, Y: y, Width: w, Height: h}.Clamped()
}
