package wm

import (
	"fmt"
	"log"

	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/layout"
	"github.com/himewm/himewm/internal/rules"
)

// Manager owns every entity of spec.md §3 and implements the event and
// action handlers of §4.2–§4.4. Per spec.md §5's concurrency model, all of
// Manager's methods run on a single owning goroutine (the Event Pump's);
// there is deliberately no internal locking here — the single-threaded
// cooperative design is a requirement, not an oversight.
type Manager struct {
	Services desktop.Services
	Settings Settings
	Rules    *rules.Matcher

	monitors MonitorOrder
	layouts  MonitorLayouts

	windows    map[desktop.WindowId]*WindowEntry
	workspaces map[WorkspaceKey]*Workspace

	foreground         desktop.WindowId
	previousForeground desktop.WindowId
	hasForeground      bool

	grabbed    desktop.WindowId
	hasGrabbed bool

	ignoredCombinations map[WorkspaceKey]struct{}
	ignoredWindows       map[desktop.WindowId]struct{}

	// Desktop-switching batching state (spec.md §4.2 on_window_uncloaked).
	uncloakCount    int
	maxUncloakCount int
	lastDesktop     desktop.DesktopId
	haveLastDesktop bool

	restartRequested bool
}

// MonitorOrder is the ordered, enumerated set of monitors (spec.md §3's
// "Global state: the set of MonitorIds (ordered, as enumerated)").
type MonitorOrder []desktop.MonitorId

// NewManager constructs a Manager. Callers must call Initialize before
// dispatching any events.
func NewManager(svc desktop.Services, settings Settings, matcher *rules.Matcher) *Manager {
	return &Manager{
		Services:            svc,
		Settings:            settings,
		Rules:               matcher,
		windows:             make(map[desktop.WindowId]*WindowEntry),
		workspaces:          make(map[WorkspaceKey]*Workspace),
		ignoredCombinations: make(map[WorkspaceKey]struct{}),
		ignoredWindows:      make(map[desktop.WindowId]struct{}),
	}
}

// Initialize re-enumerates monitors and windows — called at startup and
// again after every restart (spec.md §4.5 step f).
func (m *Manager) Initialize(layouts MonitorLayouts) error {
	monitors, err := m.Services.EnumerateMonitors()
	if err != nil {
		return fmt.Errorf("wm: enumerate monitors: %w", err)
	}
	m.monitors = monitors
	m.layouts = layouts

	windows, err := m.Services.EnumerateWindows()
	if err != nil {
		return fmt.Errorf("wm: enumerate windows: %w", err)
	}
	for _, w := range windows {
		m.onWindowAppeared(w)
	}
	return nil
}

// manageable applies spec.md §6.3's window filter.
func (m *Manager) manageable(w desktop.WindowId) bool {
	flags, err := m.Services.WindowStyleFlags(w)
	if err != nil {
		return false
	}
	return desktop.StyleHasOverlappedAndSizebox(flags)
}

func (m *Manager) workspaceFor(key WorkspaceKey) *Workspace {
	ws, ok := m.workspaces[key]
	if !ok {
		idx := m.Settings.DefaultLayoutIdx
		var path []int
		if ls := m.layouts[key.Monitor]; idx >= 0 && idx < len(ls) {
			path = layout.DefaultVariantPath(ls[idx])
		}
		ws = newWorkspace(idx, path)
		m.workspaces[key] = ws
	}
	return ws
}

func (m *Manager) destroyWorkspaceIfEmpty(key WorkspaceKey) {
	if ws, ok := m.workspaces[key]; ok && len(ws.Members) == 0 {
		delete(m.workspaces, key)
	}
}

func (m *Manager) currentLayout(key WorkspaceKey) (*layout.Layout, error) {
	ws, ok := m.workspaces[key]
	if !ok {
		return nil, fmt.Errorf("wm: no workspace for %+v", key)
	}
	ls := m.layouts[key.Monitor]
	if ws.LayoutIdx < 0 || ws.LayoutIdx >= len(ls) {
		return nil, fmt.Errorf("wm: layout index %d out of range for monitor %v", ws.LayoutIdx, key.Monitor)
	}
	return ls[ws.LayoutIdx], nil
}

// indexOf returns the slot of w in order, or -1.
func indexOf(order []desktop.WindowId, w desktop.WindowId) int {
	for i, o := range order {
		if o == w {
			return i
		}
	}
	return -1
}

// removeFromTiledOrder removes w from ws.TiledOrder, compacting and
// shifting successors' cached Index down by one (spec.md §4.2
// on_window_destroyed / on_window_stopped_tiling).
func (m *Manager) removeFromTiledOrder(ws *Workspace, w desktop.WindowId) {
	idx := indexOf(ws.TiledOrder, w)
	if idx < 0 {
		return
	}
	ws.TiledOrder = append(ws.TiledOrder[:idx], ws.TiledOrder[idx+1:]...)
	for i := idx; i < len(ws.TiledOrder); i++ {
		if e, ok := m.windows[ws.TiledOrder[i]]; ok {
			e.Index = i
		}
	}
}

func (m *Manager) clearFocusIfMatches(w desktop.WindowId) {
	if m.hasForeground && m.foreground == w {
		m.hasForeground = false
		m.foreground = desktop.WindowId(0)
	}
	if m.previousForeground == w {
		m.previousForeground = desktop.WindowId(0)
	}
	if m.hasGrabbed && m.grabbed == w {
		m.hasGrabbed = false
		m.grabbed = desktop.WindowId(0)
	}
}

func (m *Manager) logf(format string, args ...any) {
	log.Printf("wm: "+format, args...)
}

// WindowCount returns the number of windows currently tracked (spec.md §3's
// window entry set) — reported by the IPC status command.
func (m *Manager) WindowCount() int {
	return len(m.windows)
}

// WorkspaceCount returns the number of workspaces currently materialized —
// reported by the IPC status command.
func (m *Manager) WorkspaceCount() int {
	return len(m.workspaces)
}

// Monitors returns the enumerated monitor order — reported by the IPC
// get-monitors command.
func (m *Manager) Monitors() MonitorOrder {
	return m.monitors
}
