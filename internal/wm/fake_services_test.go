package wm

import (
	"fmt"

	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/geometry"
)

// fakeWindow is one window's controllable OS-facing state in fakeServices.
type fakeWindow struct {
	desktop desktop.DesktopId
	monitor desktop.MonitorId
	rect    geometry.Rect
	style   uint32
	state   desktop.WindowState
	title   string
	process string
	dpi     uint32
}

// fakeServices is a controllable desktop.Services double for driving a
// Manager through real window scenarios (spec.md §8's concrete scenarios
// and testable properties) without an OS underneath it.
type fakeServices struct {
	monitors  []desktop.MonitorId
	workRects map[desktop.MonitorId]geometry.Rect
	windows   map[desktop.WindowId]*fakeWindow
	denied    map[desktop.WindowId]bool

	positions     map[desktop.WindowId]geometry.Rect
	foregroundReq []desktop.WindowId
	minimized     []desktop.WindowId
	borders       map[desktop.WindowId]desktop.Color
	corners       map[desktop.WindowId]desktop.CornerPreference
}

func newFakeServices() *fakeServices {
	return &fakeServices{
		workRects: make(map[desktop.MonitorId]geometry.Rect),
		windows:   make(map[desktop.WindowId]*fakeWindow),
		denied:    make(map[desktop.WindowId]bool),
		positions: make(map[desktop.WindowId]geometry.Rect),
		borders:   make(map[desktop.WindowId]desktop.Color),
		corners:   make(map[desktop.WindowId]desktop.CornerPreference),
	}
}

// addWindow registers a manageable, restorable window on the given
// desktop/monitor, ready for an EventWindowShown to pick it up.
func (f *fakeServices) addWindow(w desktop.WindowId, did desktop.DesktopId, mon desktop.MonitorId) {
	f.windows[w] = &fakeWindow{
		desktop: did,
		monitor: mon,
		style:   desktop.StyleOverlapped | desktop.StyleSizebox,
		state:   desktop.WindowState{Visible: true},
		dpi:     96,
	}
}

func (f *fakeServices) RegisterEventHook(desktop.EventCallback) {}

func (f *fakeServices) EnumerateMonitors() ([]desktop.MonitorId, error) { return f.monitors, nil }

func (f *fakeServices) MonitorWorkRect(m desktop.MonitorId) (geometry.Rect, error) {
	return f.workRects[m], nil
}

func (f *fakeServices) EnumerateWindows() ([]desktop.WindowId, error) { return nil, nil }

func (f *fakeServices) WindowDesktopId(w desktop.WindowId) (desktop.DesktopId, error) {
	if fw, ok := f.windows[w]; ok {
		return fw.desktop, nil
	}
	return desktop.DesktopId{}, nil
}

func (f *fakeServices) WindowMonitor(w desktop.WindowId) (desktop.MonitorId, error) {
	if fw, ok := f.windows[w]; ok {
		return fw.monitor, nil
	}
	return 0, nil
}

func (f *fakeServices) WindowRect(w desktop.WindowId) (geometry.Rect, error) {
	if fw, ok := f.windows[w]; ok {
		return fw.rect, nil
	}
	return geometry.Rect{}, nil
}

func (f *fakeServices) WindowDPI(w desktop.WindowId) (uint32, error) {
	if fw, ok := f.windows[w]; ok {
		return fw.dpi, nil
	}
	return 96, nil
}

func (f *fakeServices) WindowStyleFlags(w desktop.WindowId) (uint32, error) {
	if fw, ok := f.windows[w]; ok {
		return fw.style, nil
	}
	return 0, nil
}

func (f *fakeServices) WindowState(w desktop.WindowId) (desktop.WindowState, error) {
	if fw, ok := f.windows[w]; ok {
		return fw.state, nil
	}
	return desktop.WindowState{}, nil
}

func (f *fakeServices) WindowTitle(w desktop.WindowId) (string, error) {
	if fw, ok := f.windows[w]; ok {
		return fw.title, nil
	}
	return "", nil
}

func (f *fakeServices) WindowProcessName(w desktop.WindowId) (string, error) {
	if fw, ok := f.windows[w]; ok {
		return fw.process, nil
	}
	return "", nil
}

func (f *fakeServices) SetWindowPos(w desktop.WindowId, r geometry.Rect, noZ bool) error {
	if f.denied[w] {
		return fmt.Errorf("fake: set_window_pos(%v): %w", w, desktop.ErrAccessDenied)
	}
	f.positions[w] = r
	if fw, ok := f.windows[w]; ok {
		fw.rect = r
	}
	return nil
}

func (f *fakeServices) SetForeground(w desktop.WindowId) error {
	f.foregroundReq = append(f.foregroundReq, w)
	return nil
}

func (f *fakeServices) Minimize(w desktop.WindowId) error {
	f.minimized = append(f.minimized, w)
	return nil
}

func (f *fakeServices) Restore(w desktop.WindowId) error { return nil }

func (f *fakeServices) SetBorderColor(w desktop.WindowId, c desktop.Color) error {
	f.borders[w] = c
	return nil
}

func (f *fakeServices) SetCornerPreference(w desktop.WindowId, pref desktop.CornerPreference) error {
	f.corners[w] = pref
	return nil
}

func (f *fakeServices) RegisterHotkey(id int, mods uint16, vk uint32) error { return nil }
func (f *fakeServices) UnregisterHotkey(id int) error                      { return nil }
func (f *fakeServices) PostMessage(target desktop.WindowId, code int) error {
	return nil
}
func (f *fakeServices) Close() error { return nil }

func desktopID(n byte) desktop.DesktopId {
	var d desktop.DesktopId
	d[0] = n
	return d
}
