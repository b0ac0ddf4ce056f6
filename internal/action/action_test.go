package action

import (
	"testing"

	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/geometry"
	"github.com/himewm/himewm/internal/wm"
)

// fakeServices is a no-op desktop.Services good enough to exercise
// Dispatch against an empty Manager (no windows, no monitors); every
// Intent's handler must tolerate that per spec.md §4.3's "pure state
// transition" framing.
type fakeServices struct{}

func (fakeServices) RegisterEventHook(desktop.EventCallback)                        {}
func (fakeServices) EnumerateMonitors() ([]desktop.MonitorId, error)                { return nil, nil }
func (fakeServices) MonitorWorkRect(desktop.MonitorId) (geometry.Rect, error)        { return geometry.Rect{}, nil }
func (fakeServices) EnumerateWindows() ([]desktop.WindowId, error)                   { return nil, nil }
func (fakeServices) WindowDesktopId(desktop.WindowId) (desktop.DesktopId, error)     { return desktop.DesktopId{}, nil }
func (fakeServices) WindowMonitor(desktop.WindowId) (desktop.MonitorId, error)       { return 0, nil }
func (fakeServices) WindowRect(desktop.WindowId) (geometry.Rect, error)              { return geometry.Rect{}, nil }
func (fakeServices) WindowDPI(desktop.WindowId) (uint32, error)                      { return 96, nil }
func (fakeServices) WindowStyleFlags(desktop.WindowId) (uint32, error)               { return 0, nil }
func (fakeServices) WindowState(desktop.WindowId) (desktop.WindowState, error)       { return desktop.WindowState{}, nil }
func (fakeServices) WindowTitle(desktop.WindowId) (string, error)                    { return "", nil }
func (fakeServices) WindowProcessName(desktop.WindowId) (string, error)              { return "", nil }
func (fakeServices) SetWindowPos(desktop.WindowId, geometry.Rect, bool) error        { return nil }
func (fakeServices) SetForeground(desktop.WindowId) error                           { return nil }
func (fakeServices) Minimize(desktop.WindowId) error                                { return nil }
func (fakeServices) Restore(desktop.WindowId) error                                 { return nil }
func (fakeServices) SetBorderColor(desktop.WindowId, desktop.Color) error            { return nil }
func (fakeServices) SetCornerPreference(desktop.WindowId, desktop.CornerPreference) error {
	return nil
}
func (fakeServices) RegisterHotkey(int, uint16, uint32) error  { return nil }
func (fakeServices) UnregisterHotkey(int) error                { return nil }
func (fakeServices) PostMessage(desktop.WindowId, int) error    { return nil }
func (fakeServices) Close() error                               { return nil }

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	mgr := wm.NewManager(fakeServices{}, wm.Settings{}, nil)
	if err := mgr.Initialize(nil); err != nil {
		t.Fatalf("unexpected error initializing manager: %v", err)
	}
	return NewDispatcher(mgr)
}

func TestDispatchEveryIntentOnEmptyManager(t *testing.T) {
	d := newTestDispatcher(t)

	intents := []Intent{
		CycleFocus, CycleSwap, CycleVariant, CycleLayout,
		CycleFocusedMonitor, CycleAssignedMonitor,
		GrabWindow, ReleaseWindow, ToggleWindow, ToggleWorkspace,
		RefreshWorkspace, RestartHimewm,
	}
	for _, intent := range intents {
		d.Dispatch(intent, Next, 0)
		d.Dispatch(intent, Prev, 0)
	}
}

func TestDispatchRestartSetsRestartRequested(t *testing.T) {
	d := newTestDispatcher(t)
	d.Dispatch(RestartHimewm, Next, 0)
	if !d.Manager.RestartRequested() {
		t.Fatalf("expected RestartHimewm to set the restart-requested flag")
	}
}
