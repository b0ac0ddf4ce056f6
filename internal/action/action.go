// Package action implements the Action Dispatcher: mapping operator
// intents (hotkeys, tray menu) onto Manager state transitions while
// preserving every invariant the Window Manager State maintains
// (spec.md §4.3).
package action

import "github.com/himewm/himewm/internal/wm"

// Direction is Next/Prev for every cyclic intent.
type Direction int

const (
	Next Direction = iota
	Prev
)

// Intent names one operator-facing action (spec.md §4.3's bulleted list).
type Intent int

const (
	CycleFocus Intent = iota
	CycleSwap
	CycleVariant
	CycleLayout
	CycleFocusedMonitor
	CycleAssignedMonitor
	GrabWindow
	ReleaseWindow
	ToggleWindow
	ToggleWorkspace
	RefreshWorkspace
	RestartHimewm
)

// Dispatcher routes Intents to wm.Manager methods. It holds no state of
// its own beyond the Manager reference — every intent is, per spec.md
// §4.3, "a pure state transition on WindowManager".
type Dispatcher struct {
	Manager *wm.Manager
}

func NewDispatcher(m *wm.Manager) *Dispatcher {
	return &Dispatcher{Manager: m}
}

// Dispatch applies intent, with depth only meaningful for CycleVariant
// (spec.md §4.3's variant_path[depth]).
func (d *Dispatcher) Dispatch(intent Intent, dir Direction, depth int) {
	switch intent {
	case CycleFocus:
		d.Manager.CycleFocus(wm.Direction(dir))
	case CycleSwap:
		d.Manager.CycleSwap(wm.Direction(dir))
	case CycleVariant:
		d.Manager.CycleVariant(wm.Direction(dir), depth)
	case CycleLayout:
		d.Manager.CycleLayout(wm.Direction(dir))
	case CycleFocusedMonitor:
		d.Manager.CycleFocusedMonitor(wm.Direction(dir))
	case CycleAssignedMonitor:
		d.Manager.CycleAssignedMonitor(wm.Direction(dir))
	case GrabWindow:
		d.Manager.GrabWindow()
	case ReleaseWindow:
		d.Manager.ReleaseWindow()
	case ToggleWindow:
		d.Manager.ToggleWindow()
	case ToggleWorkspace:
		d.Manager.ToggleWorkspace()
	case RefreshWorkspace:
		d.Manager.RefreshWorkspace()
	case RestartHimewm:
		d.Manager.RequestRestart()
	}
}
