package geometry

import "testing"

func TestRectSplit(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 50}

	low, high := r.Split(Right, 30)
	if low != (Rect{X: 0, Y: 0, Width: 30, Height: 50}) {
		t.Fatalf("unexpected low: %+v", low)
	}
	if high != (Rect{X: 30, Y: 0, Width: 70, Height: 50}) {
		t.Fatalf("unexpected high: %+v", high)
	}

	low, high = r.Split(Down, 20)
	if low != (Rect{X: 0, Y: 0, Width: 100, Height: 20}) {
		t.Fatalf("unexpected low: %+v", low)
	}
	if high != (Rect{X: 0, Y: 20, Width: 100, Height: 30}) {
		t.Fatalf("unexpected high: %+v", high)
	}
}

func TestRectOverlapArea(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	if got := a.OverlapArea(b); got != 25 {
		t.Fatalf("expected overlap area 25, got %d", got)
	}

	c := Rect{X: 20, Y: 20, Width: 5, Height: 5}
	if got := a.OverlapArea(c); got != 0 {
		t.Fatalf("expected no overlap, got %d", got)
	}
}

func TestRectClamped(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: -5, Height: 0}
	c := r.Clamped()
	if c.Width != 1 || c.Height != 1 {
		t.Fatalf("expected clamp to 1x1, got %dx%d", c.Width, c.Height)
	}
}

func TestDirectionOpposite(t *testing.T) {
	cases := map[Direction]Direction{
		Up:    Down,
		Down:  Up,
		Left:  Right,
		Right: Left,
	}
	for dir, want := range cases {
		if got := dir.Opposite(); got != want {
			t.Fatalf("%v.Opposite() = %v, want %v", dir, got, want)
		}
	}
}

func TestDirectionHorizontal(t *testing.T) {
	if !Left.Horizontal() || !Right.Horizontal() {
		t.Fatalf("expected Left/Right to be horizontal")
	}
	if Up.Horizontal() || Down.Horizontal() {
		t.Fatalf("expected Up/Down to not be horizontal")
	}
}
