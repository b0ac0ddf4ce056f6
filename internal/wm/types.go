// Package wm implements the Window Manager State: the entities of
// spec.md §3 and the event/action handlers of §4.2–§4.4 that keep a
// consistent mapping from (virtual-desktop, monitor) pairs to ordered
// window lists under asynchronous, lossy, reordered OS events.
package wm

import (
	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/layout"
)

// WorkspaceKey identifies a workspace by the (desktop, monitor) pair it
// belongs to (spec.md §3).
type WorkspaceKey struct {
	Desktop desktop.DesktopId
	Monitor desktop.MonitorId
}

// WindowEntry is the per-window bookkeeping record (spec.md §3).
type WindowEntry struct {
	Desktop desktop.DesktopId
	Monitor desktop.MonitorId
	Tiled   bool
	Index   int

	// retries counts attempts at resolving a still-null DesktopId during
	// on_window_appeared (spec.md §4.2 step 1); not part of the spec's
	// data model proper, but needed to implement new_window_retries.
	retries int
}

// Workspace is the per-(desktop,monitor) tiling state (spec.md §3).
type Workspace struct {
	LayoutIdx   int
	VariantPath []int
	Members     map[desktop.WindowId]struct{}
	TiledOrder  []desktop.WindowId
}

func newWorkspace(layoutIdx int, variantPath []int) *Workspace {
	return &Workspace{
		LayoutIdx:   layoutIdx,
		VariantPath: append([]int(nil), variantPath...),
		Members:     make(map[desktop.WindowId]struct{}),
	}
}

// Settings mirrors spec.md §3's Settings entity (field names match the
// in-memory model, not the grouped settings.json shape — see internal/config
// for the JSON mapping).
type Settings struct {
	DefaultLayoutIdx         int
	WindowPaddingPx          int
	EdgePaddingPx            int
	DisableRounding          bool
	DisableUnfocusedBorder   bool
	FocusedBorderColor       desktop.Color
	UnfocusedBorderColor     desktop.Color
	HasUnfocusedBorderColor  bool
	FloatingDefaultWRatio    float64
	FloatingDefaultHRatio    float64
	NewWindowRetries         int
}

// MonitorLayouts is the set of Layouts configured for the system, already
// adapted to each monitor's current work rectangle (spec.md §3's
// "Layouts cloned per monitor at initialization").
type MonitorLayouts map[desktop.MonitorId][]*layout.Layout
