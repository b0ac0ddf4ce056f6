package wm

import (
	"testing"

	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/geometry"
	"github.com/himewm/himewm/internal/layout"
	"github.com/himewm/himewm/internal/rules"
)

func noRules(t *testing.T) *rules.Matcher {
	t.Helper()
	m, err := rules.Compile(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error compiling empty rule set: %v", err)
	}
	return m
}

// layoutWithStates builds a Layout whose single top-level Variant has
// exactly the authored states given (no end-behaviour extension is
// exercised by these tests, so its zero value is fine).
func layoutWithStates(monitor geometry.Rect, states [][]geometry.Rect) *layout.Layout {
	v := &layout.Variant{States: states, ManualStatesUntil: len(states)}
	return &layout.Layout{MonitorRect: monitor, Root: &layout.VariantNode{Variant: v}}
}

func show(m *Manager, w desktop.WindowId) {
	m.HandleEvent(desktop.Event{Kind: desktop.EventWindowShown, Window: w})
}

// checkIndexCoherence verifies spec.md §8 property 3: for every tiled
// window w, workspace.tiled_order[entry(w).index] == w.
func checkIndexCoherence(t *testing.T, m *Manager, key WorkspaceKey) {
	t.Helper()
	ws, ok := m.workspaces[key]
	if !ok {
		return
	}
	for i, w := range ws.TiledOrder {
		e, ok := m.windows[w]
		if !ok {
			t.Fatalf("tiled_order[%d]=%v has no window entry", i, w)
		}
		if e.Index != i {
			t.Fatalf("window %v: entry.Index=%d but tiled_order[%d]=%v", w, e.Index, i, w)
		}
	}
}

// Scenario A (spec.md §8): three windows, single monitor, vertical stack.
func TestScenarioA_VerticalStackAndSwap(t *testing.T) {
	monitor := geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1200}
	l := layoutWithStates(monitor, [][]geometry.Rect{
		{{X: 0, Y: 0, Width: 1920, Height: 1200}},
		{{X: 0, Y: 0, Width: 960, Height: 1200}, {X: 960, Y: 0, Width: 960, Height: 1200}},
		{
			{X: 0, Y: 0, Width: 960, Height: 1200},
			{X: 960, Y: 0, Width: 960, Height: 600},
			{X: 960, Y: 600, Width: 960, Height: 600},
		},
	})

	svc := newFakeServices()
	svc.monitors = []desktop.MonitorId{0}
	svc.workRects[0] = monitor

	mgr := NewManager(svc, Settings{}, noRules(t))
	if err := mgr.Initialize(MonitorLayouts{0: {l}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	d1 := desktopID(1)
	const a, b, c = desktop.WindowId(100), desktop.WindowId(200), desktop.WindowId(300)
	svc.addWindow(a, d1, 0)
	svc.addWindow(b, d1, 0)
	svc.addWindow(c, d1, 0)
	show(mgr, a)
	show(mgr, b)
	show(mgr, c)

	key := WorkspaceKey{Desktop: d1, Monitor: 0}
	ws, ok := mgr.workspaces[key]
	if !ok {
		t.Fatalf("expected workspace %+v to exist", key)
	}
	want := []desktop.WindowId{a, b, c}
	if !sliceEqual(ws.TiledOrder, want) {
		t.Fatalf("initial tiled_order = %v, want %v", ws.TiledOrder, want)
	}
	checkIndexCoherence(t, mgr, key)

	// A is foreground (first window to appear); cycle_swap(Next) on A must
	// yield B, A, C in slots 0, 1, 2.
	if mgr.foreground != a {
		t.Fatalf("expected A to be foreground, got %v", mgr.foreground)
	}
	mgr.CycleSwap(Next)
	want = []desktop.WindowId{b, a, c}
	if !sliceEqual(ws.TiledOrder, want) {
		t.Fatalf("after cycle_swap(Next), tiled_order = %v, want %v", ws.TiledOrder, want)
	}
	checkIndexCoherence(t, mgr, key)
}

// Scenario B (spec.md §8): a tiled window moved across monitors migrates to
// the target monitor's workspace at the slot its post-move rectangle
// overlaps maximally, and the source workspace compacts (or disappears).
func TestScenarioB_CrossMonitorMove(t *testing.T) {
	m1 := geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1200}
	m2 := geometry.Rect{X: 0, Y: 0, Width: 1280, Height: 720}

	layoutM1 := layoutWithStates(m1, [][]geometry.Rect{
		{{X: 0, Y: 0, Width: 1920, Height: 1200}},
	})
	layoutM2 := layoutWithStates(m2, [][]geometry.Rect{
		{{X: 0, Y: 0, Width: 1280, Height: 720}},
		{{X: 0, Y: 0, Width: 640, Height: 720}, {X: 640, Y: 0, Width: 640, Height: 720}},
	})

	svc := newFakeServices()
	svc.monitors = []desktop.MonitorId{0, 1}
	svc.workRects[0] = m1
	svc.workRects[1] = m2

	mgr := NewManager(svc, Settings{}, noRules(t))
	if err := mgr.Initialize(MonitorLayouts{0: {layoutM1}, 1: {layoutM2}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	d1 := desktopID(1)
	const mover, resident = desktop.WindowId(10), desktop.WindowId(20)
	svc.addWindow(mover, d1, 0)
	svc.addWindow(resident, d1, 1)
	show(mgr, mover)
	show(mgr, resident)

	oldKey := WorkspaceKey{Desktop: d1, Monitor: 0}
	newKey := WorkspaceKey{Desktop: d1, Monitor: 1}

	// Simulate the user dragging mover onto M2, landing deep in what will
	// become slot 1 once it joins resident's workspace.
	svc.windows[mover].monitor = 1
	svc.windows[mover].rect = geometry.Rect{X: 1000, Y: 0, Width: 200, Height: 700}
	mgr.HandleEvent(desktop.Event{Kind: desktop.EventMoveSizeFinished, Window: mover})

	if e := mgr.windows[mover]; e.Monitor != 1 {
		t.Fatalf("expected mover's tracked monitor to become 1, got %v", e.Monitor)
	}
	if _, ok := mgr.workspaces[oldKey]; ok {
		t.Fatalf("expected M1's workspace to be destroyed once empty")
	}
	ws, ok := mgr.workspaces[newKey]
	if !ok {
		t.Fatalf("expected M2's workspace to exist")
	}
	want := []desktop.WindowId{resident, mover}
	if !sliceEqual(ws.TiledOrder, want) {
		t.Fatalf("M2 tiled_order = %v, want %v (mover in slot 1)", ws.TiledOrder, want)
	}
	checkIndexCoherence(t, mgr, newKey)
}

// Scenario D (spec.md §8): toggle_window floats a tiled foreground window
// centered on its monitor, then restores it to its pre-float slot.
func TestScenarioD_ToggleWindowFloat(t *testing.T) {
	monitor := geometry.Rect{X: 0, Y: 0, Width: 1000, Height: 1000}
	l := layoutWithStates(monitor, [][]geometry.Rect{
		{{X: 0, Y: 0, Width: 1000, Height: 1000}},
		{{X: 0, Y: 0, Width: 500, Height: 1000}, {X: 500, Y: 0, Width: 500, Height: 1000}},
	})

	svc := newFakeServices()
	svc.monitors = []desktop.MonitorId{0}
	svc.workRects[0] = monitor

	mgr := NewManager(svc, Settings{FloatingDefaultWRatio: 0.5, FloatingDefaultHRatio: 0.5}, noRules(t))
	if err := mgr.Initialize(MonitorLayouts{0: {l}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	d1 := desktopID(1)
	const a, b = desktop.WindowId(1), desktop.WindowId(2)
	svc.addWindow(a, d1, 0)
	svc.addWindow(b, d1, 0)
	show(mgr, a)
	show(mgr, b)

	key := WorkspaceKey{Desktop: d1, Monitor: 0}
	ws := mgr.workspaces[key]

	mgr.ToggleWindow() // toggles the foreground window, A
	if _, floated := mgr.ignoredWindows[a]; !floated {
		t.Fatalf("expected A to be floated after toggle_window")
	}
	if sliceContains(ws.TiledOrder, a) {
		t.Fatalf("expected A removed from tiled_order, got %v", ws.TiledOrder)
	}
	want := geometry.Rect{X: 250, Y: 250, Width: 500, Height: 500}
	if got := svc.positions[a]; got != want {
		t.Fatalf("floated position = %+v, want %+v", got, want)
	}

	mgr.ToggleWindow() // toggles again; foreground is still A
	if _, floated := mgr.ignoredWindows[a]; floated {
		t.Fatalf("expected A un-floated after second toggle_window")
	}
	if !sliceContains(ws.TiledOrder, a) {
		t.Fatalf("expected A restored to tiled_order, got %v", ws.TiledOrder)
	}
	checkIndexCoherence(t, mgr, key)
}

// Scenario F (spec.md §8): a variant tree with two top-level variants of
// different child counts; cycling at depth 0 moves between them, cycling
// at depth 1 moves within whichever is current, and variant_path extends
// lazily with zeroes.
func TestScenarioF_VariantTreeCycling(t *testing.T) {
	monitor := geometry.Rect{X: 0, Y: 0, Width: 1280, Height: 720}
	leaf := func() *layout.VariantNode {
		return &layout.VariantNode{Variant: &layout.Variant{
			States:            [][]geometry.Rect{{{X: 0, Y: 0, Width: 1280, Height: 720}}},
			ManualStatesUntil: 1,
		}}
	}
	nodeA := &layout.VariantNode{Children: []*layout.VariantNode{leaf(), leaf(), leaf()}} // 3 sub-variants
	nodeB := &layout.VariantNode{Children: []*layout.VariantNode{leaf(), leaf()}}         // 2 sub-variants
	l := &layout.Layout{MonitorRect: monitor, Root: &layout.VariantNode{Children: []*layout.VariantNode{nodeA, nodeB}}}

	svc := newFakeServices()
	svc.monitors = []desktop.MonitorId{0}
	svc.workRects[0] = monitor

	mgr := NewManager(svc, Settings{}, noRules(t))
	if err := mgr.Initialize(MonitorLayouts{0: {l}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	d1 := desktopID(1)
	const w = desktop.WindowId(1)
	svc.addWindow(w, d1, 0)
	show(mgr, w)

	key := WorkspaceKey{Desktop: d1, Monitor: 0}
	ws := mgr.workspaces[key]
	if len(ws.VariantPath) != 0 {
		t.Fatalf("expected an unextended variant_path initially, got %v", ws.VariantPath)
	}

	mgr.CycleVariant(Next, 0)
	if want := ([]int{1}); !intSliceEqual(ws.VariantPath, want) {
		t.Fatalf("variant_path after depth-0 cycle = %v, want %v", ws.VariantPath, want)
	}

	mgr.CycleVariant(Next, 1)
	if want := ([]int{1, 1}); !intSliceEqual(ws.VariantPath, want) {
		t.Fatalf("variant_path after depth-1 cycle = %v, want %v", ws.VariantPath, want)
	}

	mgr.CycleVariant(Next, 0)
	if want := ([]int{0, 0}); !intSliceEqual(ws.VariantPath, want) {
		t.Fatalf("variant_path after wrapping depth-0 cycle = %v, want %v (depth>0 zeroed)", ws.VariantPath, want)
	}
}

// TestPropertyWorkspaceLiveness is spec.md §8 property 4: after any
// on_window_destroyed, either members is non-empty or the workspace key is
// absent from the map.
func TestPropertyWorkspaceLiveness(t *testing.T) {
	monitor := geometry.Rect{X: 0, Y: 0, Width: 800, Height: 600}
	l := layoutWithStates(monitor, [][]geometry.Rect{{{X: 0, Y: 0, Width: 800, Height: 600}}})

	svc := newFakeServices()
	svc.monitors = []desktop.MonitorId{0}
	svc.workRects[0] = monitor

	mgr := NewManager(svc, Settings{}, noRules(t))
	if err := mgr.Initialize(MonitorLayouts{0: {l}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	d1 := desktopID(1)
	const w = desktop.WindowId(1)
	svc.addWindow(w, d1, 0)
	show(mgr, w)

	key := WorkspaceKey{Desktop: d1, Monitor: 0}
	if _, ok := mgr.workspaces[key]; !ok {
		t.Fatalf("expected workspace to exist once a window is tiled")
	}

	mgr.HandleEvent(desktop.Event{Kind: desktop.EventWindowDestroyed, Window: w})

	if ws, ok := mgr.workspaces[key]; ok && len(ws.Members) == 0 {
		t.Fatalf("expected an empty workspace to be removed from the map, found %+v", ws)
	}
}

// TestPropertyCycleClosure is spec.md §8 property 5: cycle_focus(Next)
// applied len(tiled_order) times returns focus to the original window.
func TestPropertyCycleClosure(t *testing.T) {
	monitor := geometry.Rect{X: 0, Y: 0, Width: 1200, Height: 400}
	l := layoutWithStates(monitor, [][]geometry.Rect{
		{{X: 0, Y: 0, Width: 1200, Height: 400}},
		{{X: 0, Y: 0, Width: 600, Height: 400}, {X: 600, Y: 0, Width: 600, Height: 400}},
		{
			{X: 0, Y: 0, Width: 400, Height: 400},
			{X: 400, Y: 0, Width: 400, Height: 400},
			{X: 800, Y: 0, Width: 400, Height: 400},
		},
	})

	svc := newFakeServices()
	svc.monitors = []desktop.MonitorId{0}
	svc.workRects[0] = monitor

	mgr := NewManager(svc, Settings{}, noRules(t))
	if err := mgr.Initialize(MonitorLayouts{0: {l}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	d1 := desktopID(1)
	const a, b, c = desktop.WindowId(1), desktop.WindowId(2), desktop.WindowId(3)
	svc.addWindow(a, d1, 0)
	svc.addWindow(b, d1, 0)
	svc.addWindow(c, d1, 0)
	show(mgr, a)
	show(mgr, b)
	show(mgr, c)

	key := WorkspaceKey{Desktop: d1, Monitor: 0}
	ws := mgr.workspaces[key]
	n := len(ws.TiledOrder)
	original := mgr.foreground

	for i := 0; i < n; i++ {
		mgr.CycleFocus(Next)
		next := svc.foregroundReq[len(svc.foregroundReq)-1]
		mgr.HandleEvent(desktop.Event{Kind: desktop.EventForegroundChanged, Window: next})
	}

	if mgr.foreground != original {
		t.Fatalf("cycle_focus(Next) applied %d times landed on %v, want original %v", n, mgr.foreground, original)
	}
}

// TestToggleWorkspaceRestoresBordersOnExit guards the fix for leaving an
// ignored combination: borders cleared on entry must be restored, and
// geometry re-applied, once the combination is toggled back on (spec.md
// §4.3 toggle_workspace).
func TestToggleWorkspaceRestoresBordersOnExit(t *testing.T) {
	monitor := geometry.Rect{X: 0, Y: 0, Width: 800, Height: 600}
	l := layoutWithStates(monitor, [][]geometry.Rect{
		{{X: 0, Y: 0, Width: 800, Height: 600}},
		{{X: 0, Y: 0, Width: 400, Height: 600}, {X: 400, Y: 0, Width: 400, Height: 600}},
	})

	svc := newFakeServices()
	svc.monitors = []desktop.MonitorId{0}
	svc.workRects[0] = monitor

	focused := desktop.Color{R: 10, G: 20, B: 30}
	mgr := NewManager(svc, Settings{FocusedBorderColor: focused}, noRules(t))
	if err := mgr.Initialize(MonitorLayouts{0: {l}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	d1 := desktopID(1)
	const a, b = desktop.WindowId(1), desktop.WindowId(2)
	svc.addWindow(a, d1, 0)
	svc.addWindow(b, d1, 0)
	show(mgr, a)
	show(mgr, b)

	mgr.ToggleWorkspace() // enters ignored: clears borders
	if svc.borders[a] != (desktop.Color{}) || svc.borders[b] != (desktop.Color{}) {
		t.Fatalf("expected borders cleared on entering ignored, got a=%+v b=%+v", svc.borders[a], svc.borders[b])
	}

	mgr.ToggleWorkspace() // leaves ignored: must restore borders
	if svc.borders[a] != focused {
		t.Fatalf("expected A's border restored to %+v, got %+v", focused, svc.borders[a])
	}
	if svc.borders[b] != focused {
		t.Fatalf("expected B's border restored to %+v, got %+v", focused, svc.borders[b])
	}
}

// TestUpdateWorkspaceEvictsAccessDeniedWindow exercises spec.md §4.4/§7's
// access-denied eviction path via a test double, since the X11 backend
// never distinguishes this failure mode in production.
func TestUpdateWorkspaceEvictsAccessDeniedWindow(t *testing.T) {
	monitor := geometry.Rect{X: 0, Y: 0, Width: 800, Height: 600}
	l := layoutWithStates(monitor, [][]geometry.Rect{{{X: 0, Y: 0, Width: 800, Height: 600}}})

	svc := newFakeServices()
	svc.monitors = []desktop.MonitorId{0}
	svc.workRects[0] = monitor

	mgr := NewManager(svc, Settings{}, noRules(t))
	if err := mgr.Initialize(MonitorLayouts{0: {l}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	d1 := desktopID(1)
	const w = desktop.WindowId(1)
	svc.addWindow(w, d1, 0)
	show(mgr, w)
	svc.denied[w] = true

	key := WorkspaceKey{Desktop: d1, Monitor: 0}
	mgr.RefreshWorkspace()

	ws, ok := mgr.workspaces[key]
	if !ok {
		t.Fatalf("expected workspace to survive (its Members are untouched by eviction)")
	}
	if sliceContains(ws.TiledOrder, w) {
		t.Fatalf("expected denied window evicted from tiled_order, got %v", ws.TiledOrder)
	}
	if _, ignored := mgr.ignoredWindows[w]; !ignored {
		t.Fatalf("expected denied window added to ignored_windows")
	}
}

func sliceEqual(a, b []desktop.WindowId) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sliceContains(a []desktop.WindowId, w desktop.WindowId) bool {
	for _, x := range a {
		if x == w {
			return true
		}
	}
	return false
}
