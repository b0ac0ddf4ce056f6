package wm

import (
	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/layout"
	"github.com/himewm/himewm/internal/rules"
)

// Direction is Next/Prev, shared by every cyclic action (spec.md §4.3).
type Direction int

const (
	Next Direction = iota
	Prev
)

func step(dir Direction) int {
	if dir == Next {
		return 1
	}
	return -1
}

// wrap computes (i+delta) mod n for n > 0, handling negative results.
func wrap(i, delta, n int) int {
	if n <= 0 {
		return 0
	}
	r := (i + delta) % n
	if r < 0 {
		r += n
	}
	return r
}

func (m *Manager) foregroundEntry() (desktop.WindowId, *WindowEntry, bool) {
	if !m.hasForeground {
		return 0, nil, false
	}
	e, ok := m.windows[m.foreground]
	if !ok {
		return 0, nil, false
	}
	return m.foreground, e, true
}

// CycleFocus implements spec.md §4.3 cycle_focus(dir).
func (m *Manager) CycleFocus(dir Direction) {
	_, e, ok := m.foregroundEntry()
	if !ok || !e.Tiled {
		return
	}
	key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	ws, ok := m.workspaces[key]
	if !ok || len(ws.TiledOrder) == 0 {
		return
	}
	next := ws.TiledOrder[wrap(e.Index, step(dir), len(ws.TiledOrder))]
	m.Services.SetForeground(next)
}

// CycleSwap implements spec.md §4.3 cycle_swap(dir).
func (m *Manager) CycleSwap(dir Direction) {
	_, e, ok := m.foregroundEntry()
	if !ok || !e.Tiled {
		return
	}
	key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	ws, ok := m.workspaces[key]
	if !ok || len(ws.TiledOrder) < 2 {
		return
	}
	j := wrap(e.Index, step(dir), len(ws.TiledOrder))
	other := ws.TiledOrder[j]
	ws.TiledOrder[e.Index], ws.TiledOrder[j] = ws.TiledOrder[j], ws.TiledOrder[e.Index]
	if oe := m.windows[other]; oe != nil {
		oe.Index = e.Index
	}
	e.Index = j
	m.updateWorkspace(key)
}

// CycleVariant implements spec.md §4.3 cycle_variant(dir, depth).
func (m *Manager) CycleVariant(dir Direction, depth int) {
	_, e, ok := m.foregroundEntry()
	if !ok {
		return
	}
	key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	ws, ok := m.workspaces[key]
	if !ok {
		return
	}
	l, err := m.currentLayout(key)
	if err != nil {
		return
	}
	for len(ws.VariantPath) <= depth {
		ws.VariantPath = append(ws.VariantPath, 0)
	}
	n, err := l.ChildCountAt(ws.VariantPath[:depth])
	if err != nil || n == 0 {
		return
	}
	ws.VariantPath[depth] = wrap(ws.VariantPath[depth], step(dir), n)
	for i := depth + 1; i < len(ws.VariantPath); i++ {
		ws.VariantPath[i] = 0
	}
	m.updateWorkspace(key)
}

// CycleLayout implements spec.md §4.3 cycle_layout(dir).
func (m *Manager) CycleLayout(dir Direction) {
	_, e, ok := m.foregroundEntry()
	if !ok {
		return
	}
	key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	ws, ok := m.workspaces[key]
	if !ok {
		return
	}
	ls := m.layouts[e.Monitor]
	if len(ls) == 0 {
		return
	}
	ws.LayoutIdx = wrap(ws.LayoutIdx, step(dir), len(ls))
	ws.VariantPath = layout.DefaultVariantPath(ls[ws.LayoutIdx])
	m.updateWorkspace(key)
}

// CycleFocusedMonitor implements spec.md §4.3 cycle_focused_monitor(dir).
func (m *Manager) CycleFocusedMonitor(dir Direction) {
	_, e, ok := m.foregroundEntry()
	if !ok || len(m.monitors) == 0 {
		return
	}
	curIdx := 0
	for i, mid := range m.monitors {
		if mid == e.Monitor {
			curIdx = i
			break
		}
	}
	target := wrap(curIdx, step(dir), len(m.monitors))
	targetMonitor := m.monitors[target]
	for key, ws := range m.workspaces {
		if key.Monitor == targetMonitor && key.Desktop == e.Desktop && len(ws.TiledOrder) > 0 {
			m.Services.SetForeground(ws.TiledOrder[0])
			return
		}
	}
}

// CycleAssignedMonitor implements spec.md §4.3 cycle_assigned_monitor(dir).
func (m *Manager) CycleAssignedMonitor(dir Direction) {
	w, e, ok := m.foregroundEntry()
	if !ok || !e.Tiled || len(m.monitors) < 2 {
		return
	}
	curIdx := 0
	for i, mid := range m.monitors {
		if mid == e.Monitor {
			curIdx = i
			break
		}
	}

	dpiBefore, _ := m.Services.WindowDPI(w)

	for delta := 1; delta <= len(m.monitors); delta++ {
		target := wrap(curIdx, delta*step(dir), len(m.monitors))
		targetMonitor := m.monitors[target]
		newKey := WorkspaceKey{Desktop: e.Desktop, Monitor: targetMonitor}
		if _, ignored := m.ignoredCombinations[newKey]; ignored {
			continue
		}

		oldKey := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
		if oldWs, ok := m.workspaces[oldKey]; ok {
			m.removeFromTiledOrder(oldWs, w)
			delete(oldWs.Members, w)
			m.destroyWorkspaceIfEmpty(oldKey)
		}

		e.Monitor = targetMonitor
		newWs := m.workspaceFor(newKey)
		newWs.Members[w] = struct{}{}
		e.Index = len(newWs.TiledOrder)
		newWs.TiledOrder = append(newWs.TiledOrder, w)

		m.updateWorkspace(oldKey)
		m.updateWorkspace(newKey)

		if dpiAfter, err := m.Services.WindowDPI(w); err == nil && dpiAfter != dpiBefore {
			m.updateWorkspace(newKey)
		}
		return
	}
}

// GrabWindow implements spec.md §4.3 grab_window.
func (m *Manager) GrabWindow() {
	w, e, ok := m.foregroundEntry()
	if !ok || !e.Tiled {
		return
	}
	m.grabbed = w
	m.hasGrabbed = true
}

// ReleaseWindow implements spec.md §4.3 release_window.
func (m *Manager) ReleaseWindow() {
	if !m.hasGrabbed {
		return
	}
	grabbed := m.grabbed
	ge, ok := m.windows[grabbed]
	if !ok {
		m.hasGrabbed = false
		return
	}
	fg, fe, hasFg := m.foregroundEntry()
	if !hasFg || fg == grabbed || fe.Desktop != ge.Desktop {
		m.hasGrabbed = false
		if _, floated := m.ignoredWindows[grabbed]; floated && ok {
			delete(m.ignoredWindows, grabbed)
			ge.Tiled = true
			key := WorkspaceKey{Desktop: ge.Desktop, Monitor: ge.Monitor}
			ws := m.workspaceFor(key)
			ge.Index = len(ws.TiledOrder)
			ws.TiledOrder = append(ws.TiledOrder, grabbed)
			m.updateWorkspace(key)
		}
		m.Services.SetForeground(grabbed)
		return
	}

	dpiBefore, _ := m.Services.WindowDPI(grabbed)

	if _, floated := m.ignoredWindows[grabbed]; floated {
		delete(m.ignoredWindows, grabbed)
		ge.Tiled = true
		key := WorkspaceKey{Desktop: ge.Desktop, Monitor: ge.Monitor}
		ws := m.workspaceFor(key)
		ge.Index = len(ws.TiledOrder)
		ws.TiledOrder = append(ws.TiledOrder, grabbed)
		m.updateWorkspace(key)
	} else if fe.Monitor == ge.Monitor {
		key := WorkspaceKey{Desktop: fe.Desktop, Monitor: fe.Monitor}
		if ws, ok := m.workspaces[key]; ok {
			ws.TiledOrder[fe.Index], ws.TiledOrder[ge.Index] = ws.TiledOrder[ge.Index], ws.TiledOrder[fe.Index]
			fe.Index, ge.Index = ge.Index, fe.Index
			m.updateWorkspace(key)
		}
	} else {
		oldKey := WorkspaceKey{Desktop: fe.Desktop, Monitor: fe.Monitor}
		newKey := WorkspaceKey{Desktop: ge.Desktop, Monitor: ge.Monitor}
		if oldWs, ok := m.workspaces[oldKey]; ok {
			m.removeFromTiledOrder(oldWs, fg)
			delete(oldWs.Members, fg)
			m.destroyWorkspaceIfEmpty(oldKey)
		}
		fe.Monitor = ge.Monitor
		newWs := m.workspaceFor(newKey)
		newWs.Members[fg] = struct{}{}
		fe.Index = len(newWs.TiledOrder)
		newWs.TiledOrder = append(newWs.TiledOrder, fg)
		m.updateWorkspace(oldKey)
		m.updateWorkspace(newKey)
	}

	m.hasGrabbed = false
	m.Services.SetForeground(grabbed)

	if dpiAfter, err := m.Services.WindowDPI(grabbed); err == nil && dpiAfter != dpiBefore {
		m.updateWorkspace(WorkspaceKey{Desktop: ge.Desktop, Monitor: ge.Monitor})
	}
}

// ToggleWindow implements spec.md §4.3 toggle_window and scenario D.
func (m *Manager) ToggleWindow() {
	w, e, ok := m.foregroundEntry()
	if !ok {
		return
	}
	key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}

	if _, floated := m.ignoredWindows[w]; floated {
		delete(m.ignoredWindows, w)
		ws := m.workspaceFor(key)
		idx := e.Index
		if idx < 0 || idx > len(ws.TiledOrder) {
			idx = len(ws.TiledOrder)
		}
		ws.TiledOrder = append(ws.TiledOrder, desktop.WindowId(0))
		copy(ws.TiledOrder[idx+1:], ws.TiledOrder[idx:])
		ws.TiledOrder[idx] = w
		for i := idx; i < len(ws.TiledOrder); i++ {
			m.windows[ws.TiledOrder[i]].Index = i
		}
		e.Tiled = true
		m.updateWorkspace(key)
		return
	}

	if !e.Tiled {
		return
	}
	ws, ok := m.workspaces[key]
	if !ok {
		return
	}
	m.removeFromTiledOrder(ws, w)
	e.Tiled = false
	m.ignoredWindows[w] = struct{}{}

	title, _ := m.Services.WindowTitle(w)
	process, _ := m.Services.WindowProcessName(w)
	if a, ok := m.Rules.Match(title, process); ok && a.Kind == rules.FloatingPosition {
		m.Services.SetWindowPos(w, a.FloatingPosition, false)
	} else {
		work, err := m.Services.MonitorWorkRect(e.Monitor)
		if err == nil {
			rect := centeredDefault(work, m.Settings.FloatingDefaultWRatio, m.Settings.FloatingDefaultHRatio)
			m.Services.SetWindowPos(w, rect, false)
		}
	}
	m.updateWorkspace(key)
}

// ToggleWorkspace implements spec.md §4.3 toggle_workspace.
func (m *Manager) ToggleWorkspace() {
	_, e, ok := m.foregroundEntry()
	if !ok {
		return
	}
	key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	ws, exists := m.workspaces[key]

	if _, ignored := m.ignoredCombinations[key]; ignored {
		delete(m.ignoredCombinations, key)
		if exists {
			for w := range ws.Members {
				m.initBorderAndCorners(w)
			}
			if m.hasForeground {
				if fe, ok := m.windows[m.foreground]; ok && fe.Desktop == key.Desktop && fe.Monitor == key.Monitor {
					m.Services.SetBorderColor(m.foreground, m.Settings.FocusedBorderColor)
				}
			}
			m.updateWorkspace(key)
		}
		return
	}

	m.ignoredCombinations[key] = struct{}{}
	if exists {
		for _, w := range ws.TiledOrder {
			m.Services.SetBorderColor(w, desktop.Color{})
		}
	}
}

// RefreshWorkspace implements spec.md §4.3 refresh_workspace.
func (m *Manager) RefreshWorkspace() {
	_, e, ok := m.foregroundEntry()
	if !ok {
		return
	}
	m.updateWorkspace(WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor})
}

// RequestRestart implements spec.md §4.3 restart_himewm: it only raises a
// flag. The Event Pump owns the actual teardown/reload (spec.md §4.5).
func (m *Manager) RequestRestart() {
	m.restartRequested = true
}

// RestartRequested reports whether RequestRestart was called since the
// last ClearRestartRequested.
func (m *Manager) RestartRequested() bool { return m.restartRequested }

// ClearRestartRequested resets the restart flag (called by the Event Pump
// once it has begun the teardown sequence).
func (m *Manager) ClearRestartRequested() { m.restartRequested = false }

// ResetAllBorders clears border color and corner preference on every
// tracked window, restoring system defaults (spec.md §4.5 step b: dropping
// the WindowManager resets every known window's border). The Event Pump
// calls this on the outgoing Manager before reconstructing a new one.
func (m *Manager) ResetAllBorders() {
	for w := range m.windows {
		m.Services.SetBorderColor(w, desktop.Color{})
		m.Services.SetCornerPreference(w, desktop.CornerDefault)
	}
}
