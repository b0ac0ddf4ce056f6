// Package hotkeys binds keybinds.json entries to global X11 key grabs and
// routes them into an action.Dispatcher. It owns no window-manager state of
// its own; a hotkey fire is just a call into the dispatcher on the same
// single-threaded event pump as every other state transition (spec.md §5).
package hotkeys

import (
	"fmt"
	"log"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/himewm/himewm/internal/action"
	"github.com/himewm/himewm/internal/config"
)

// x11Accessor is satisfied by desktop.X11Services; other Desktop Services
// backends simply leave hotkeys unregistered.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// poster marshals a hotkey callback (fired on xgbutil's own event
// goroutine) onto the single goroutine that owns wm.Manager, satisfied by
// desktop.X11Services.PostFunc.
type poster interface {
	PostFunc(func())
}

// Handler owns the set of global key grabs bound from keybinds.json.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	poster poster
	d      *action.Dispatcher

	mu    sync.Mutex
	bound []string
}

var ignoreModsOnce sync.Once

// NewHandler wires a Handler against whatever backend implements
// x11Accessor. Backends that don't (a future non-X11 Desktop Services
// implementation) get a Handler whose Register calls are no-ops.
func NewHandler(backend any, d *action.Dispatcher) *Handler {
	var xu *xgbutil.XUtil
	var root xproto.Window
	if accessor, ok := backend.(x11Accessor); ok {
		xu = accessor.XUtil()
		root = accessor.RootWindow()
		ignoreModsOnce.Do(func() {
			configureIgnoreMods(xu)
		})
	}
	p, _ := backend.(poster)

	return &Handler{xu: xu, root: root, poster: p, d: d}
}

// baseIntents maps keybinds.json action names to dispatcher intents. Actions
// carrying a direction or depth use the "_next"/"_prev" and "_<n>" suffix
// convention that parseActionName strips before the lookup.
var baseIntents = map[string]action.Intent{
	"cycle_focus":            action.CycleFocus,
	"cycle_swap":             action.CycleSwap,
	"cycle_variant":          action.CycleVariant,
	"cycle_layout":           action.CycleLayout,
	"cycle_focused_monitor":  action.CycleFocusedMonitor,
	"cycle_assigned_monitor": action.CycleAssignedMonitor,
	"grab_window":            action.GrabWindow,
	"release_window":         action.ReleaseWindow,
	"toggle_window":          action.ToggleWindow,
	"toggle_workspace":       action.ToggleWorkspace,
	"refresh_workspace":      action.RefreshWorkspace,
	"restart":                action.RestartHimewm,
}

// RegisterAll grabs every keybind in kbs, firing the dispatcher for each.
// Entries naming an unrecognized action are skipped with a warning rather
// than aborting the whole set (consistent with config's defaults-on-error
// policy, spec.md §7).
func (h *Handler) RegisterAll(kbs map[string]config.Keybind) {
	for name, kb := range kbs {
		intent, dir, depth, ok := parseActionName(name)
		if !ok {
			log.Printf("hotkeys: unrecognized action %q; skipping", name)
			continue
		}
		i, d := intent, dir
		n := depth
		if err := h.RegisterFunc(kb.Sequence, func() {
			if h.poster != nil {
				h.poster.PostFunc(func() { h.d.Dispatch(i, d, n) })
			} else {
				h.d.Dispatch(i, d, n)
			}
		}); err != nil {
			log.Printf("hotkeys: registering %q (%s): %v", name, kb.Sequence, err)
			continue
		}
		h.mu.Lock()
		h.bound = append(h.bound, kb.Sequence)
		h.mu.Unlock()
	}
}

// parseActionName splits a keybinds.json action name into its base intent,
// cycle direction (default Next), and cycle-variant depth (default 0). A
// trailing "_<n>" names the depth cycle_variant acts at (spec.md §4.3's
// variant_path[depth]); it sits between the base name and the direction
// suffix, e.g. "cycle_variant_1_next".
func parseActionName(name string) (action.Intent, action.Direction, int, bool) {
	base := name
	dir := action.Next
	switch {
	case hasSuffix(name, "_prev"):
		base, dir = name[:len(name)-len("_prev")], action.Prev
	case hasSuffix(name, "_next"):
		base = name[:len(name)-len("_next")]
	}

	depth := 0
	if rest, n, ok := stripDepthSuffix(base); ok {
		base, depth = rest, n
	}

	intent, ok := baseIntents[base]
	if !ok {
		return 0, 0, 0, false
	}
	return intent, dir, depth, true
}

// stripDepthSuffix splits a trailing "_<digits>" off name, returning the
// digits parsed as an int.
func stripDepthSuffix(name string) (rest string, depth int, ok bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) || i == 0 || name[i-1] != '_' {
		return name, 0, false
	}
	for _, c := range name[i:] {
		depth = depth*10 + int(c-'0')
	}
	return name[:i-1], depth, true
}

func hasSuffix(s, suf string) bool {
	return len(s) >= len(suf) && s[len(s)-len(suf):] == suf
}

// RegisterFunc grabs an arbitrary xgbutil key sequence.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	if h.xu == nil {
		return fmt.Errorf("hotkeys: no X11 backend available")
	}
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

// UnregisterAll releases every grab this Handler holds, in preparation for
// a restart that will re-read keybinds.json and call RegisterAll again.
func (h *Handler) UnregisterAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, seq := range h.bound {
		keybind.Detach(h.xu, h.root, seq)
	}
	h.bound = nil
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
