package wm

import (
	"errors"

	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/geometry"
	"github.com/himewm/himewm/internal/inset"
	"github.com/himewm/himewm/internal/layout"
)

// getPositions wraps layout.GetPositions with this Manager's configured
// padding and the platform's invisible-border compensation.
func getPositions(l *layout.Layout, variantPath []int, k int, settings Settings) ([]geometry.Rect, error) {
	return layout.GetPositions(l, variantPath, k, settings.WindowPaddingPx, settings.EdgePaddingPx, inset.DefaultBorder)
}

// updateWorkspace implements spec.md §4.4: the single point where the
// manager applies state to the OS.
func (m *Manager) updateWorkspace(key WorkspaceKey) {
	if _, ignored := m.ignoredCombinations[key]; ignored {
		return
	}
	ws, ok := m.workspaces[key]
	if !ok || len(ws.TiledOrder) == 0 {
		return
	}

	l, err := m.currentLayout(key)
	if err != nil {
		m.logf("update_workspace %+v: %v", key, err)
		return
	}

	positions, err := layout.GetPositions(l, ws.VariantPath, len(ws.TiledOrder), m.Settings.WindowPaddingPx, m.Settings.EdgePaddingPx, inset.DefaultBorder)
	if err != nil {
		m.logf("update_workspace %+v: get_positions: %v", key, err)
		return
	}

	var evicted []desktop.WindowId
	for i, w := range ws.TiledOrder {
		if err := m.Services.SetWindowPos(w, positions[i], true); err != nil {
			if isAccessDenied(err) {
				evicted = append(evicted, w)
				continue
			}
			m.logf("set_window_pos(%v): %v", w, err)
		}
	}

	if len(evicted) == 0 {
		return
	}
	for _, w := range evicted {
		m.removeFromTiledOrder(ws, w)
		m.ignoredWindows[w] = struct{}{}
	}
	m.updateWorkspace(key)
}

// isAccessDenied reports whether err represents the platform's
// access-denied failure mode for a geometry command (spec.md §7). The X11
// adapter never returns a distinguishable access-denied error today, so
// this only ever matches a test double wrapping desktop.ErrAccessDenied;
// kept as a named hook so a future facade can report the distinction too.
func isAccessDenied(err error) bool {
	return errors.Is(err, desktop.ErrAccessDenied)
}
