package desktop

import (
	"fmt"
	"log"
	"sync"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/google/uuid"

	"github.com/himewm/himewm/internal/geometry"
)

// X11Services is the concrete, X11-backed Desktop Services adapter. It
// plays the role a Win32 facade plays on Windows: every method here is the
// himewm-domain translation of one EWMH/Xlib call.
type X11Services struct {
	xu   *xgbutil.XUtil
	root xproto.Window

	mu           sync.Mutex
	cb           EventCallback
	postDispatch func()
	queue        chan Event
	funcs        chan func()
	done         chan struct{}
	hotkeys      map[int]func()

	desktopIDs   map[int]DesktopId // X11 desktop index -> synthesized DesktopId
	desktopNames map[DesktopId]int
}

// NewX11Services opens an X11 connection and prepares the facade. It does
// not yet register for events or start the pump loop — callers do that via
// RegisterEventHook followed by Run.
func NewX11Services() (*X11Services, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("desktop: connecting to X11: %w", err)
	}
	keybind.Initialize(xu)
	if err := randr.Init(xu.Conn()); err != nil {
		return nil, fmt.Errorf("desktop: randr init: %w", err)
	}

	s := &X11Services{
		xu:           xu,
		root:         xu.RootWin(),
		queue:        make(chan Event, 256),
		funcs:        make(chan func(), 64),
		done:         make(chan struct{}),
		hotkeys:      make(map[int]func()),
		desktopIDs:   make(map[int]DesktopId),
		desktopNames: make(map[DesktopId]int),
	}
	s.attachWMEvents()
	go xevent.Main(xu)
	return s, nil
}

// XUtil and RootWindow satisfy the x11Accessor interface the hotkeys
// package uses to reach into xgbutil directly for keybind registration,
// keeping the platform-facing internals out of the Services interface
// itself.
func (s *X11Services) XUtil() *xgbutil.XUtil      { return s.xu }
func (s *X11Services) RootWindow() xproto.Window { return s.root }

func (s *X11Services) RegisterEventHook(cb EventCallback) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

// SetPostDispatchHook installs fn to run on the Run goroutine immediately
// after every dispatched event and posted func. The Event Pump uses this to
// check for a pending restart request without running its own dispatch
// loop alongside Run's.
func (s *X11Services) SetPostDispatchHook(fn func()) {
	s.mu.Lock()
	s.postDispatch = fn
	s.mu.Unlock()
}

// Run drains both the internal event queue and the function-call queue on
// the calling goroutine, until Close is called. This is the single point
// where cross-thread-posted events and hotkey-triggered action dispatches
// reach single-threaded core logic (spec.md §5, §9) — xgbutil's own
// xevent.Main loop, and every key-grab callback it fires, runs on a
// different goroutine, so both events and hotkey actions are marshalled
// through channels rather than calling into the Manager directly.
func (s *X11Services) Run() {
	for {
		select {
		case ev := <-s.queue:
			s.mu.Lock()
			cb := s.cb
			s.mu.Unlock()
			if cb != nil {
				cb(ev)
			}
			s.runPostDispatch()
		case fn := <-s.funcs:
			fn()
			s.runPostDispatch()
		case <-s.done:
			return
		}
	}
}

func (s *X11Services) runPostDispatch() {
	s.mu.Lock()
	fn := s.postDispatch
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// PostFunc marshals fn onto the Run goroutine. Used by the hotkeys package
// so that a key-grab callback — fired on xgbutil's xevent.Main goroutine —
// never touches wm.Manager directly.
func (s *X11Services) PostFunc(fn func()) {
	select {
	case s.funcs <- fn:
	default:
		log.Printf("desktop: action queue full, dropping hotkey dispatch")
	}
}

func (s *X11Services) post(kind EventKind, w WindowId) {
	select {
	case s.queue <- Event{Kind: kind, Window: w}:
	default:
		log.Printf("desktop: event queue full, dropping event kind=%d window=%d", kind, w)
	}
}

// attachWMEvents wires xevent callbacks on the root window to the internal
// queue; this is the OS-callback side of the cross-thread bridge driven by
// xevent.Main's own connection loop.
func (s *X11Services) attachWMEvents() {
	xwindow.New(s.xu, s.root).Listen(xproto.EventMaskPropertyChange | xproto.EventMaskSubstructureNotify)

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xproto.GetAtomName(xu.Conn(), ev.Atom).Reply()
		if err != nil {
			return
		}
		switch name.Name {
		case "_NET_ACTIVE_WINDOW":
			if w, err := ewmh.ActiveWindowGet(xu); err == nil {
				s.post(EventForegroundChanged, WindowId(w))
			}
		case "_NET_CURRENT_DESKTOP":
			// Desktop switch: post a cloak and an uncloak event for every
			// managed client and let the core sort out which ones moved.
			s.reconcileCloakState()
		}
	}).Connect(s.xu, s.root)

	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		s.post(EventWindowDestroyed, WindowId(ev.Window))
	}).Connect(s.xu, s.root)

	xevent.MapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MapNotifyEvent) {
		s.post(EventWindowShown, WindowId(ev.Window))
	}).Connect(s.xu, s.root)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		s.post(EventLocationChanged, WindowId(ev.Window))
		s.post(EventMoveSizeFinished, WindowId(ev.Window))
	}).Connect(s.xu, s.root)
}

// reconcileCloakState posts an EventWindowCloaked followed by an
// EventWindowUncloaked for every window in _NET_CLIENT_LIST, without
// checking which windows actually changed desktop. X11 has no native
// cloak/uncloak notification (that's a Windows DWM concept); comparing each
// window's cached desktop with its current one is left to the core's
// cloak/uncloak handlers.
func (s *X11Services) reconcileCloakState() {
	clients, err := ewmh.ClientListGet(s.xu)
	if err != nil {
		return
	}
	for _, w := range clients {
		s.post(EventWindowCloaked, WindowId(w))
		s.post(EventWindowUncloaked, WindowId(w))
	}
}

func (s *X11Services) EnumerateMonitors() ([]MonitorId, error) {
	resources, err := randr.GetScreenResources(s.xu.Conn(), s.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("desktop: get screen resources: %w", err)
	}
	var ids []MonitorId
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(s.xu.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil || info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}
		ids = append(ids, MonitorId(i))
	}
	return ids, nil
}

func (s *X11Services) MonitorWorkRect(m MonitorId) (geometry.Rect, error) {
	resources, err := randr.GetScreenResources(s.xu.Conn(), s.root).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("desktop: get screen resources: %w", err)
	}
	idx := int(m)
	if idx < 0 || idx >= len(resources.Crtcs) {
		return geometry.Rect{}, fmt.Errorf("desktop: unknown monitor %d", m)
	}
	info, err := randr.GetCrtcInfo(s.xu.Conn(), resources.Crtcs[idx], resources.ConfigTimestamp).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("desktop: get crtc info: %w", err)
	}
	rect := geometry.Rect{X: int(info.X), Y: int(info.Y), Width: int(info.Width), Height: int(info.Height)}

	if workarea, err := ewmh.WorkareaGet(s.xu); err == nil && len(workarea) > 0 {
		wa := workarea[0]
		x1, y1 := max(rect.X, int(wa.X)), max(rect.Y, int(wa.Y))
		x2, y2 := min(rect.Right(), int(wa.X)+int(wa.Width)), min(rect.Bottom(), int(wa.Y)+int(wa.Height))
		if x2 > x1 && y2 > y1 {
			rect = geometry.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
		}
	}
	return rect, nil
}

func (s *X11Services) EnumerateWindows() ([]WindowId, error) {
	clients, err := ewmh.ClientListGet(s.xu)
	if err != nil {
		return nil, fmt.Errorf("desktop: get client list: %w", err)
	}
	out := make([]WindowId, len(clients))
	for i, w := range clients {
		out[i] = WindowId(w)
	}
	return out, nil
}

// WindowDesktopId synthesizes a 128-bit DesktopId from the small integer
// X11 exposes via _NET_WM_DESKTOP, caching the mapping for the session
// (spec.md §3's DesktopId is opaque and 128-bit; X11 has no native
// equivalent, so himewm deterministically derives a stable UUID per
// small index the first time it is seen).
func (s *X11Services) WindowDesktopId(w WindowId) (DesktopId, error) {
	idx, err := ewmh.WmDesktopGet(s.xu, xproto.Window(w))
	if err != nil {
		return DesktopId{}, fmt.Errorf("desktop: get window desktop: %w", err)
	}
	if idx == 0xFFFFFFFF {
		return DesktopId{}, nil // sticky window: treat like "no desktop yet", core retries
	}
	return s.desktopIdFor(int(idx)), nil
}

func (s *X11Services) desktopIdFor(idx int) DesktopId {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.desktopIDs[idx]; ok {
		return id
	}
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("himewm-desktop-%d", idx)))
	var id DesktopId
	copy(id[:], u[:])
	s.desktopIDs[idx] = id
	s.desktopNames[id] = idx
	return id
}

func (s *X11Services) WindowMonitor(w WindowId) (MonitorId, error) {
	geo, err := xproto.GetGeometry(s.xu.Conn(), xproto.Drawable(w)).Reply()
	if err != nil {
		return 0, fmt.Errorf("desktop: get geometry: %w", err)
	}
	monitors, err := s.EnumerateMonitors()
	if err != nil {
		return 0, err
	}
	best := MonitorId(0)
	bestArea := -1
	winRect := geometry.Rect{X: int(geo.X), Y: int(geo.Y), Width: int(geo.Width), Height: int(geo.Height)}
	for _, m := range monitors {
		rect, err := s.MonitorWorkRect(m)
		if err != nil {
			continue
		}
		if a := winRect.OverlapArea(rect); a > bestArea {
			bestArea, best = a, m
		}
	}
	return best, nil
}

func (s *X11Services) WindowRect(w WindowId) (geometry.Rect, error) {
	geo, err := xproto.GetGeometry(s.xu.Conn(), xproto.Drawable(w)).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("desktop: get geometry: %w", err)
	}
	return geometry.Rect{X: int(geo.X), Y: int(geo.Y), Width: int(geo.Width), Height: int(geo.Height)}, nil
}

// WindowDPI has no EWMH analogue; this always returns a fixed 96 for every
// window, so the core never observes a DPI change on X11 (the concept of
// per-monitor DPI change is supplemented from original_source, see
// SPEC_FULL.md §5).
func (s *X11Services) WindowDPI(w WindowId) (uint32, error) {
	return 96, nil
}

func (s *X11Services) WindowStyleFlags(w WindowId) (uint32, error) {
	var flags uint32
	hints, err := xwindow.New(s.xu, xproto.Window(w)).SizeHints()
	if err == nil && hints != nil {
		flags |= StyleSizebox
	}
	if types, err := ewmh.WmWindowTypeGet(s.xu, xproto.Window(w)); err == nil {
		normal := len(types) == 0
		for _, t := range types {
			if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
				normal = true
			}
		}
		if normal {
			flags |= StyleOverlapped
		}
	} else {
		flags |= StyleOverlapped
	}
	return flags, nil
}

func (s *X11Services) WindowState(w WindowId) (WindowState, error) {
	states, err := ewmh.WmStateGet(s.xu, xproto.Window(w))
	if err != nil {
		return WindowState{}, fmt.Errorf("desktop: get wm state: %w", err)
	}
	var st WindowState
	attr, err := xproto.GetWindowAttributes(s.xu.Conn(), xproto.Window(w)).Reply()
	st.Visible = err == nil && attr.MapState == xproto.MapStateViewable
	for _, v := range states {
		switch v {
		case "_NET_WM_STATE_HIDDEN":
			st.Iconic = true
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT":
			st.Zoomed = true
		}
	}
	return st, nil
}

func (s *X11Services) WindowTitle(w WindowId) (string, error) {
	name, err := ewmh.WmNameGet(s.xu, xproto.Window(w))
	if err != nil {
		return "", fmt.Errorf("desktop: get window name: %w", err)
	}
	return name, nil
}

func (s *X11Services) WindowProcessName(w WindowId) (string, error) {
	class, err := xprotoGetClass(s.xu, xproto.Window(w))
	if err != nil {
		return "", fmt.Errorf("desktop: get wm class: %w", err)
	}
	return class, nil
}

func (s *X11Services) SetWindowPos(w WindowId, r geometry.Rect, noZ bool) error {
	if err := ewmh.MoveresizeWindow(s.xu, xproto.Window(w), r.X, r.Y, r.Width, r.Height); err != nil {
		xwindow.New(s.xu, xproto.Window(w)).MoveResize(r.X, r.Y, r.Width, r.Height)
	}
	return nil
}

func (s *X11Services) SetForeground(w WindowId) error {
	return ewmh.ActiveWindowReq(s.xu, xproto.Window(w))
}

func (s *X11Services) Minimize(w WindowId) error {
	return ewmh.WmStateReq(s.xu, xproto.Window(w), ewmh.StateAdd, "_NET_WM_STATE_HIDDEN")
}

func (s *X11Services) Restore(w WindowId) error {
	return ewmh.WmStateReq(s.xu, xproto.Window(w), ewmh.StateRemove, "_NET_WM_STATE_HIDDEN")
}

// SetBorderColor has no EWMH equivalent; himewm's X11 adapter approximates
// it by setting the border pixel of the window directly (a legacy-ICCCM
// mechanism most modern window managers ignore, but which is the closest
// analogue available without a compositor-specific extension).
func (s *X11Services) SetBorderColor(w WindowId, c Color) error {
	pixel := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	return xproto.ChangeWindowAttributesChecked(s.xu.Conn(), xproto.Window(w), xproto.CwBorderPixel, []uint32{pixel}).Check()
}

// SetCornerPreference is a Windows 11 DWM concept with no X11 analogue; it
// is a deliberate no-op here (supplemented feature kept for API parity,
// see SPEC_FULL.md §5).
func (s *X11Services) SetCornerPreference(w WindowId, pref CornerPreference) error {
	return nil
}

func (s *X11Services) RegisterHotkey(id int, mods uint16, vk uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return xproto.GrabKeyChecked(s.xu.Conn(), true, s.root, mods, xproto.Keycode(vk),
		xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
}

func (s *X11Services) UnregisterHotkey(id int) error {
	return nil
}

func (s *X11Services) PostMessage(target WindowId, code int) error {
	s.post(EventKind(code), target)
	return nil
}

func (s *X11Services) Close() error {
	close(s.done)
	s.xu.Conn().Close()
	return nil
}

func xprotoGetClass(xu *xgbutil.XUtil, w xproto.Window) (string, error) {
	reply, err := xproto.GetProperty(xu.Conn(), false, w, xproto.AtomWmClass,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return "", err
	}
	// WM_CLASS is two NUL-terminated strings: instance then class; the
	// second is the one rule matching wants.
	parts := splitNul(reply.Value)
	if len(parts) >= 2 {
		return parts[1], nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "", nil
}

func splitNul(b []byte) []string {
	var out []string
	start := 0
	for i, c := range b {
		if c == 0 {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
