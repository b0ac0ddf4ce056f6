// Package desktop defines the Desktop Services facade (spec.md §6.2): the
// narrow set of OS operations the Window Manager State needs, and the
// lifecycle events the facade must deliver. Everything above this package
// is platform-neutral; only desktop's concrete adapter touches X11.
package desktop

import (
	"errors"

	"github.com/himewm/himewm/internal/geometry"
)

// ErrAccessDenied is the sentinel a Services implementation should wrap
// into the error it returns from SetWindowPos when the OS refuses a
// geometry command for a window the core no longer has the right to move
// (spec.md §7's access-denied eviction path). The X11 adapter never
// surfaces this distinction today; it exists so a test double can drive
// the eviction path and so a future backend has somewhere to report it.
var ErrAccessDenied = errors.New("desktop: access denied")

// WindowId, MonitorId, and DesktopId are opaque newtype handles (spec.md
// §9): they flow through maps by value and imply no ownership of the
// underlying OS object.
type WindowId uint32

type MonitorId int

// DesktopId is a 128-bit virtual-desktop identifier. X11 has no native
// notion of this size; the concrete adapter synthesizes one per small
// desktop index (see x11.go).
type DesktopId [16]byte

// Zero reports whether d is the null DesktopId, the signal to retry
// desktop resolution per on_window_appeared step 1.
func (d DesktopId) Zero() bool {
	return d == DesktopId{}
}

// Color is an RGB border color.
type Color struct {
	R, G, B uint8
}

// CornerPreference selects a window's rounded-corner treatment, carried
// alongside border color so set_corner_preference has somewhere to put
// its argument.
type CornerPreference int

const (
	CornerDefault CornerPreference = iota
	CornerRound
	CornerRoundSmall
	CornerDoNotRound
)

// WindowState is the snapshot window_state(WindowId) returns.
type WindowState struct {
	Iconic   bool
	Zoomed   bool
	Arranged bool
	Visible  bool
}

// EventKind enumerates the lifecycle events the facade delivers (spec.md
// §6.2). LocationChanged is deliberately not split into
// restored-vs-stopped-tiling at this layer — the core classifies that
// itself from WindowState, per spec.md §4.2.
type EventKind int

const (
	EventWindowShown EventKind = iota
	EventWindowDestroyed
	EventLocationChanged
	EventWindowCloaked
	EventWindowUncloaked
	EventForegroundChanged
	EventMoveSizeFinished
)

// Event is one dequeued Desktop Services event.
type Event struct {
	Kind   EventKind
	Window WindowId
}

// EventCallback is registered once via register_event_hook; it is called
// on the Event Pump's goroutine only — OS callback threads never invoke it
// directly (spec.md §9's cross-thread delivery note), they instead post
// through a synchronized queue that the pump drains.
type EventCallback func(Event)

// Services is the Desktop Services facade (spec.md §6.2's operation
// table). Implementations must be safe to call only from the Event Pump's
// goroutine; the queue/post primitive is the sole cross-thread contact
// point and lives inside the concrete adapter, not in this interface.
type Services interface {
	RegisterEventHook(cb EventCallback)

	EnumerateMonitors() ([]MonitorId, error)
	MonitorWorkRect(m MonitorId) (geometry.Rect, error)

	EnumerateWindows() ([]WindowId, error)
	WindowDesktopId(w WindowId) (DesktopId, error)
	WindowMonitor(w WindowId) (MonitorId, error)
	WindowRect(w WindowId) (geometry.Rect, error)
	WindowDPI(w WindowId) (uint32, error)
	WindowStyleFlags(w WindowId) (uint32, error)
	WindowState(w WindowId) (WindowState, error)
	WindowTitle(w WindowId) (string, error)
	WindowProcessName(w WindowId) (string, error)

	SetWindowPos(w WindowId, r geometry.Rect, noZ bool) error
	SetForeground(w WindowId) error
	Minimize(w WindowId) error
	Restore(w WindowId) error
	SetBorderColor(w WindowId, c Color) error
	SetCornerPreference(w WindowId, pref CornerPreference) error

	RegisterHotkey(id int, mods uint16, vk uint32) error
	UnregisterHotkey(id int) error

	// PostMessage is the cross-thread enqueue primitive (spec.md §6.2); OS
	// callback closures use it exclusively to get events onto the pump's
	// queue rather than calling into WindowManager directly.
	PostMessage(target WindowId, code int) error

	// Close releases the underlying connection. Restart flow (spec.md
	// scenario E) deliberately does NOT call this — the handle must
	// survive a restart unchanged.
	Close() error
}

// StyleHasOverlappedAndSizebox reports whether flags includes both the
// overlapped-window style and a sizebox, the manageability filter of
// spec.md §6.3. The concrete bit layout is platform-specific; the X11
// adapter synthesizes these flags from window-manager hints (see x11.go).
const (
	StyleOverlapped uint32 = 1 << 0
	StyleSizebox    uint32 = 1 << 1
)

func StyleHasOverlappedAndSizebox(flags uint32) bool {
	const want = StyleOverlapped | StyleSizebox
	return flags&want == want
}
