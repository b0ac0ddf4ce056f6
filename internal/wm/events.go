package wm

import (
	"sort"

	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/rules"
)

// HandleEvent dispatches one Desktop Services event to the matching
// handler; this is the method the Event Pump calls per dequeued event
// (spec.md §2's control-flow summary).
func (m *Manager) HandleEvent(ev desktop.Event) {
	switch ev.Kind {
	case desktop.EventWindowShown:
		m.onWindowAppeared(ev.Window)
	case desktop.EventWindowDestroyed:
		m.onWindowDestroyed(ev.Window)
	case desktop.EventLocationChanged:
		m.onLocationChanged(ev.Window)
	case desktop.EventWindowCloaked:
		m.onWindowCloaked(ev.Window)
	case desktop.EventWindowUncloaked:
		m.onWindowUncloaked(ev.Window)
	case desktop.EventForegroundChanged:
		m.onForegroundChanged(ev.Window)
	case desktop.EventMoveSizeFinished:
		m.onWindowMovedFinished(ev.Window)
	}
}

// onWindowAppeared implements spec.md §4.2's handler of the same name.
func (m *Manager) onWindowAppeared(w desktop.WindowId) {
	if _, ignored := m.ignoredWindows[w]; ignored {
		return
	}

	if e, known := m.windows[w]; known {
		if e.Tiled {
			return
		}
		if m.restorable(w) {
			e.Tiled = true
			key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
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
			m.updateWorkspace(key)
		}
		return
	}

	if !m.manageable(w) {
		return
	}

	did, err := m.Services.WindowDesktopId(w)
	if err != nil || did.Zero() {
		// Retry budget is tracked per-window via a throwaway entry; once
		// new_window_retries is exhausted we give up silently per spec.md §7.
		e := m.windows[w]
		if e == nil {
			e = &WindowEntry{retries: 1}
			m.windows[w] = e
		} else {
			e.retries++
		}
		if e.retries <= m.Settings.NewWindowRetries {
			// Caller (Event Pump) is expected to re-post EventWindowShown;
			// here we just preserve the retry counter.
			delete(m.windows, w)
			m.windows[w] = e
		} else {
			delete(m.windows, w)
			m.logf("giving up on window %v: desktop id never resolved", w)
		}
		return
	}

	mon, err := m.Services.WindowMonitor(w)
	if err != nil {
		m.logf("window %v: monitor lookup failed: %v", w, err)
		return
	}

	key := WorkspaceKey{Desktop: did, Monitor: mon}
	entry := &WindowEntry{Desktop: did, Monitor: mon}
	m.windows[w] = entry

	ws := m.workspaceFor(key)
	ws.Members[w] = struct{}{}

	title, _ := m.Services.WindowTitle(w)
	process, _ := m.Services.WindowProcessName(w)
	if action, ok := m.Rules.Match(title, process); ok {
		switch action.Kind {
		case rules.StartFloating:
			m.ignoredWindows[w] = struct{}{}
			m.applyPlacement(w, mon, action.Placement)
		case rules.AssignLayoutIndex:
			ws.LayoutIdx = action.LayoutIndex
		case rules.FloatingPosition:
			m.ignoredWindows[w] = struct{}{}
			m.applyPlacement(w, mon, rules.Placement{Kind: rules.PlacementAbsolute, Rect: action.FloatingPosition})
		}
	}

	if _, floating := m.ignoredWindows[w]; !floating {
		entry.Tiled = true
		entry.Index = len(ws.TiledOrder)
		ws.TiledOrder = append(ws.TiledOrder, w)
	}

	if !m.hasForeground {
		m.foreground = w
		m.hasForeground = true
	}

	m.initBorderAndCorners(w)
	m.updateWorkspace(key)
}

// restorable reports whether a known-but-untiled window is visible, has a
// sizebox, and is neither iconic, zoomed, nor arranged (spec.md §4.2).
func (m *Manager) restorable(w desktop.WindowId) bool {
	flags, err := m.Services.WindowStyleFlags(w)
	if err != nil || flags&desktop.StyleSizebox == 0 {
		return false
	}
	st, err := m.Services.WindowState(w)
	if err != nil {
		return false
	}
	return st.Visible && !st.Iconic && !st.Zoomed && !st.Arranged
}

// onWindowDestroyed implements spec.md §4.2's handler of the same name.
func (m *Manager) onWindowDestroyed(w desktop.WindowId) {
	e, ok := m.windows[w]
	if !ok {
		return
	}
	key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	if ws, ok := m.workspaces[key]; ok {
		if e.Tiled {
			m.removeFromTiledOrder(ws, w)
		}
		delete(ws.Members, w)
	}
	delete(m.windows, w)
	delete(m.ignoredWindows, w)
	m.clearFocusIfMatches(w)
	m.destroyWorkspaceIfEmpty(key)
	m.updateWorkspace(key)
}

// onLocationChanged classifies a raw location-changed OS event into
// either a restore (handled by onWindowAppeared's known-but-untiled path)
// or a stopped-tiling transition, per spec.md §4.2's note that the core
// does this classification itself.
func (m *Manager) onLocationChanged(w desktop.WindowId) {
	e, ok := m.windows[w]
	if !ok {
		return
	}
	if m.restorable(w) {
		if !e.Tiled {
			m.onWindowAppeared(w)
		}
		return
	}
	if e.Tiled {
		m.onWindowStoppedTiling(w)
	}
}

// onWindowStoppedTiling implements spec.md §4.2's handler of the same
// name (minimized/arranged/hidden).
func (m *Manager) onWindowStoppedTiling(w desktop.WindowId) {
	e, ok := m.windows[w]
	if !ok || !e.Tiled {
		return
	}
	key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	ws, ok := m.workspaces[key]
	if !ok {
		return
	}
	m.removeFromTiledOrder(ws, w)
	e.Tiled = false
	m.clearFocusIfMatches(w)
	m.updateWorkspace(key)
}

// onWindowCloaked implements spec.md §4.2's handler of the same name.
func (m *Manager) onWindowCloaked(w desktop.WindowId) {
	e, ok := m.windows[w]
	if !ok {
		return
	}
	current, err := m.Services.WindowDesktopId(w)
	if err != nil || current.Zero() || current == e.Desktop {
		return
	}

	m.uncloakCount = 0
	m.maxUncloakCount = 0

	oldKey := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	if ws, ok := m.workspaces[oldKey]; ok {
		if e.Tiled {
			m.removeFromTiledOrder(ws, w)
		}
		delete(ws.Members, w)
		m.destroyWorkspaceIfEmpty(oldKey)
	}

	e.Desktop = current
	newKey := WorkspaceKey{Desktop: current, Monitor: e.Monitor}
	ws := m.workspaceFor(newKey)
	ws.Members[w] = struct{}{}
	if e.Tiled {
		e.Index = len(ws.TiledOrder)
		ws.TiledOrder = append(ws.TiledOrder, w)
	}

	m.updateWorkspace(oldKey)
	m.updateWorkspace(newKey)
}

// onWindowUncloaked implements spec.md §4.2's batched cross-desktop
// migration algorithm.
func (m *Manager) onWindowUncloaked(w desktop.WindowId) {
	e, ok := m.windows[w]
	if !ok {
		return
	}

	if m.uncloakCount > 0 {
		m.uncloakCount++
		if m.uncloakCount >= m.maxUncloakCount {
			m.uncloakCount = 0
			m.maxUncloakCount = 0
		}
		return
	}

	newDesktop := e.Desktop
	m.maxUncloakCount = m.tiledCountForDesktop(newDesktop)
	m.uncloakCount = 1
	if m.maxUncloakCount <= 1 {
		m.uncloakCount = 0
		m.maxUncloakCount = 0
	}

	if !m.haveLastDesktop || m.lastDesktop == newDesktop {
		m.lastDesktop = newDesktop
		m.haveLastDesktop = true
		return
	}
	oldDesktop := m.lastDesktop
	m.lastDesktop = newDesktop

	type migrant struct {
		w     desktop.WindowId
		entry *WindowEntry
	}
	var migrants []migrant
	for id, entry := range m.windows {
		if entry.Desktop != oldDesktop {
			continue
		}
		current, err := m.Services.WindowDesktopId(id)
		if err != nil || current.Zero() || current == oldDesktop {
			continue
		}
		migrants = append(migrants, migrant{id, entry})
	}
	sort.Slice(migrants, func(i, j int) bool { return migrants[i].entry.Index < migrants[j].entry.Index })

	affected := make(map[WorkspaceKey]struct{})
	for _, mg := range migrants {
		oldKey := WorkspaceKey{Desktop: oldDesktop, Monitor: mg.entry.Monitor}
		if ws, ok := m.workspaces[oldKey]; ok {
			if mg.entry.Tiled {
				m.removeFromTiledOrder(ws, mg.w)
			}
			delete(ws.Members, mg.w)
			m.destroyWorkspaceIfEmpty(oldKey)
		}
		affected[oldKey] = struct{}{}

		newDid, _ := m.Services.WindowDesktopId(mg.w)
		mg.entry.Desktop = newDid
		newKey := WorkspaceKey{Desktop: newDid, Monitor: mg.entry.Monitor}
		ws := m.workspaceFor(newKey)
		ws.Members[mg.w] = struct{}{}
		if mg.entry.Tiled {
			mg.entry.Index = len(ws.TiledOrder)
			ws.TiledOrder = append(ws.TiledOrder, mg.w)
		}
		affected[newKey] = struct{}{}
	}

	for key := range affected {
		m.updateWorkspace(key)
	}
}

func (m *Manager) tiledCountForDesktop(d desktop.DesktopId) int {
	total := 0
	for key, ws := range m.workspaces {
		if key.Desktop == d {
			total += len(ws.TiledOrder)
		}
	}
	return total
}

// onForegroundChanged implements spec.md §4.2's handler of the same name.
func (m *Manager) onForegroundChanged(w desktop.WindowId) {
	e, known := m.windows[w]
	if !known {
		m.unfocusPrior()
		m.hasForeground = false
		return
	}

	m.Services.SetBorderColor(w, m.Settings.FocusedBorderColor)
	if m.hasForeground && m.foreground != w {
		m.unfocusPrior()
	}
	m.previousForeground = m.foreground
	m.foreground = w
	m.hasForeground = true

	key := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	if _, ignored := m.ignoredCombinations[key]; ignored {
		return
	}
	if !m.restorable(w) {
		return
	}
	ws, ok := m.workspaces[key]
	if !ok {
		return
	}
	for sibling := range ws.Members {
		if sibling == w {
			continue
		}
		se := m.windows[sibling]
		if se == nil {
			continue
		}
		if !se.Tiled {
			m.Services.Minimize(sibling)
			continue
		}
		if _, floated := m.ignoredWindows[sibling]; floated {
			m.Services.Minimize(sibling)
		}
	}
}

func (m *Manager) unfocusPrior() {
	if !m.hasForeground {
		return
	}
	if m.Settings.DisableUnfocusedBorder {
		return
	}
	color := m.Settings.UnfocusedBorderColor
	if !m.Settings.HasUnfocusedBorderColor {
		return
	}
	m.Services.SetBorderColor(m.foreground, color)
}

// onWindowMovedFinished implements spec.md §4.2's handler of the same
// name.
func (m *Manager) onWindowMovedFinished(w desktop.WindowId) {
	if _, ignored := m.ignoredWindows[w]; ignored {
		return
	}
	e, ok := m.windows[w]
	if !ok || !e.Tiled {
		return
	}

	rect, err := m.Services.WindowRect(w)
	if err != nil {
		return
	}
	newMonitor, err := m.Services.WindowMonitor(w)
	if err != nil {
		return
	}

	oldKey := WorkspaceKey{Desktop: e.Desktop, Monitor: e.Monitor}
	changedMonitors := newMonitor != e.Monitor
	newKey := WorkspaceKey{Desktop: e.Desktop, Monitor: newMonitor}

	targetKey := oldKey
	if changedMonitors {
		targetKey = newKey
	}
	ws := m.workspaceFor(targetKey)

	k := len(ws.TiledOrder)
	if changedMonitors {
		k++
	}
	l, err := m.currentLayout(targetKey)
	if err != nil {
		return
	}
	positions, err := getPositions(l, ws.VariantPath, k, m.Settings)
	if err != nil {
		return
	}

	bestSlot, bestArea := 0, -1
	for i, p := range positions {
		if a := rect.OverlapArea(p); a > bestArea {
			bestArea, bestSlot = a, i
		}
	}

	if changedMonitors {
		if oldWs, ok := m.workspaces[oldKey]; ok {
			m.removeFromTiledOrder(oldWs, w)
			delete(oldWs.Members, w)
			m.destroyWorkspaceIfEmpty(oldKey)
		}
		e.Monitor = newMonitor
		ws.Members[w] = struct{}{}
		if bestSlot > len(ws.TiledOrder) {
			bestSlot = len(ws.TiledOrder)
		}
		ws.TiledOrder = append(ws.TiledOrder, desktop.WindowId(0))
		copy(ws.TiledOrder[bestSlot+1:], ws.TiledOrder[bestSlot:])
		ws.TiledOrder[bestSlot] = w
		for i := bestSlot; i < len(ws.TiledOrder); i++ {
			m.windows[ws.TiledOrder[i]].Index = i
		}
		m.updateWorkspace(oldKey)
	} else {
		occupant := ws.TiledOrder[bestSlot]
		if occupant != w {
			cur := e.Index
			ws.TiledOrder[cur], ws.TiledOrder[bestSlot] = ws.TiledOrder[bestSlot], ws.TiledOrder[cur]
			e.Index = bestSlot
			if oe := m.windows[occupant]; oe != nil {
				oe.Index = cur
			}
		}
	}

	m.updateWorkspace(targetKey)
}
