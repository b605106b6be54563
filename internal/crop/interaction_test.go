package crop

import (
	"math/rand"
	"testing"

	"github.com/starford/wayfarer/internal/geometry"
)

var container = geometry.Size{Width: 400, Height: 300}

func newTestInteraction(r geometry.Rect) *Interaction {
	return NewInteraction(container, r, geometry.MinCropSize)
}

func TestInteraction_IdleMoveIsNoop(t *testing.T) {
	start := geometry.Rect{X: 10, Y: 10, Width: 100, Height: 100}
	in := newTestInteraction(start)
	if in.PointerMove(Point{200, 200}) {
		t.Error("PointerMove in Idle should report no transition")
	}
	if in.Area() != start {
		t.Errorf("area changed while idle: %+v", in.Area())
	}
	if in.Mode() != Idle {
		t.Errorf("mode = %v, want idle", in.Mode())
	}
}

func TestInteraction_PointerDownOutsideBody(t *testing.T) {
	in := newTestInteraction(geometry.Rect{X: 10, Y: 10, Width: 100, Height: 100})
	if in.PointerDown(Point{300, 250}, HandleNone) {
		t.Error("pointer-down outside the body should not start a gesture")
	}
	if in.Mode() != Idle {
		t.Errorf("mode = %v, want idle", in.Mode())
	}
}

func TestInteraction_DragTranslatesAndClamps(t *testing.T) {
	in := newTestInteraction(geometry.Rect{X: 100, Y: 100, Width: 100, Height: 50})
	if !in.PointerDown(Point{150, 120}, HandleNone) {
		t.Fatal("expected drag to start")
	}
	if in.Mode() != Dragging {
		t.Fatalf("mode = %v, want dragging", in.Mode())
	}

	in.PointerMove(Point{170, 130})
	if got := in.Area(); got.X != 120 || got.Y != 110 {
		t.Errorf("after move area = %+v, want x=120 y=110", got)
	}
	// Committed rect only changes on pointer-up.
	if in.Committed().X != 100 {
		t.Errorf("committed changed mid-gesture: %+v", in.Committed())
	}

	got := in.PointerUp(Point{1000, -1000})
	want := geometry.Rect{X: 300, Y: 0, Width: 100, Height: 50}
	if got != want {
		t.Errorf("PointerUp = %+v, want %+v", got, want)
	}
	if in.Mode() != Idle || in.Committed() != want {
		t.Errorf("mode=%v committed=%+v after pointer-up", in.Mode(), in.Committed())
	}
}

func TestInteraction_ResizeSEClampedByContainer(t *testing.T) {
	in := newTestInteraction(geometry.Rect{X: 350, Y: 250, Width: 40, Height: 40})
	in.PointerDown(Point{390, 290}, HandleSE)
	in.PointerMove(Point{600, 600})
	got := in.PointerUp(Point{600, 600})
	if got.Width != 50 || got.Height != 50 {
		t.Errorf("size = %vx%v, want 50x50", got.Width, got.Height)
	}
	if got.X != 350 || got.Y != 250 {
		t.Errorf("origin moved to (%v,%v)", got.X, got.Y)
	}
}

func TestInteraction_ResizeCornerAnchorsOppositeCorner(t *testing.T) {
	cases := []struct {
		handle Handle
		delta  Point
		want   geometry.Rect
	}{
		{HandleNW, Point{20, 10}, geometry.Rect{X: 120, Y: 110, Width: 180, Height: 90}},
		{HandleNE, Point{20, 10}, geometry.Rect{X: 100, Y: 110, Width: 220, Height: 90}},
		{HandleSW, Point{20, 10}, geometry.Rect{X: 120, Y: 100, Width: 180, Height: 110}},
		{HandleSE, Point{20, 10}, geometry.Rect{X: 100, Y: 100, Width: 220, Height: 110}},
		{HandleN, Point{20, 10}, geometry.Rect{X: 100, Y: 110, Width: 200, Height: 90}},
		{HandleS, Point{20, 10}, geometry.Rect{X: 100, Y: 100, Width: 200, Height: 110}},
		{HandleW, Point{20, 10}, geometry.Rect{X: 120, Y: 100, Width: 180, Height: 100}},
		{HandleE, Point{20, 10}, geometry.Rect{X: 100, Y: 100, Width: 220, Height: 100}},
	}
	for _, tc := range cases {
		t.Run(string(tc.handle), func(t *testing.T) {
			in := newTestInteraction(geometry.Rect{X: 100, Y: 100, Width: 200, Height: 100})
			in.PointerDown(Point{0, 0}, tc.handle)
			if in.Mode() != Resizing || in.Handle() != tc.handle {
				t.Fatalf("mode=%v handle=%q", in.Mode(), in.Handle())
			}
			got := in.PointerUp(tc.delta)
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestInteraction_ResizeRespectsMinSize(t *testing.T) {
	in := newTestInteraction(geometry.Rect{X: 100, Y: 100, Width: 200, Height: 100})
	in.PointerDown(Point{100, 100}, HandleNW)
	got := in.PointerUp(Point{500, 500})
	want := geometry.Rect{X: 250, Y: 150, Width: 50, Height: 50}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestInteraction_PointerLeaveCommits(t *testing.T) {
	in := newTestInteraction(geometry.Rect{X: 0, Y: 0, Width: 100, Height: 100})
	in.PointerDown(Point{50, 50}, HandleNone)
	in.PointerMove(Point{80, 60})
	got := in.PointerLeave()
	want := geometry.Rect{X: 30, Y: 10, Width: 100, Height: 100}
	if got != want || in.Committed() != want || in.Mode() != Idle {
		t.Errorf("leave committed %+v (mode %v), want %+v", got, in.Mode(), want)
	}
}

func TestInteraction_SecondPointerDownIgnored(t *testing.T) {
	in := newTestInteraction(geometry.Rect{X: 0, Y: 0, Width: 100, Height: 100})
	in.PointerDown(Point{50, 50}, HandleNone)
	if in.PointerDown(Point{0, 0}, HandleSE) {
		t.Error("pointer-down during a gesture should be ignored")
	}
	if in.Mode() != Dragging {
		t.Errorf("mode = %v, want dragging", in.Mode())
	}
}

func TestInteraction_HandleAt(t *testing.T) {
	in := newTestInteraction(geometry.Rect{X: 100, Y: 100, Width: 200, Height: 100})
	cases := []struct {
		p    Point
		want Handle
	}{
		{Point{100, 100}, HandleNW},
		{Point{303, 98}, HandleNE},
		{Point{100, 200}, HandleSW},
		{Point{300, 200}, HandleSE},
		{Point{200, 100}, HandleN},
		{Point{200, 200}, HandleS},
		{Point{100, 150}, HandleW},
		{Point{300, 150}, HandleE},
		{Point{180, 140}, HandleNone},
	}
	for _, tc := range cases {
		if got := in.HandleAt(tc.p, 5); got != tc.want {
			t.Errorf("HandleAt(%v) = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestParseHandle(t *testing.T) {
	if ParseHandle("se") != HandleSE {
		t.Error("se not parsed")
	}
	if ParseHandle("middle") != HandleNone {
		t.Error("unknown handle should map to none")
	}
}

// Random gestures from a valid rectangle must always commit a valid one.
func TestInteraction_InvariantsHoldUnderRandomGestures(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	in := newTestInteraction(geometry.Rect{X: 40, Y: 90, Width: 320, Height: 120})

	for i := 0; i < 5000; i++ {
		h := HandleNone
		if rng.Intn(3) > 0 {
			h = Handles[rng.Intn(len(Handles))]
		}
		a := in.Area()
		down := Point{a.X + rng.Float64()*a.Width, a.Y + rng.Float64()*a.Height}
		in.PointerDown(down, h)
		for j := 0; j < 1+rng.Intn(4); j++ {
			in.PointerMove(Point{rng.Float64()*800 - 200, rng.Float64()*600 - 150})
		}
		var r geometry.Rect
		if rng.Intn(2) == 0 {
			r = in.PointerLeave()
		} else {
			r = in.PointerUp(Point{rng.Float64()*800 - 200, rng.Float64()*600 - 150})
		}

		const tol = 1e-9
		if r.X < -tol || r.Y < -tol || r.Right() > container.Width+tol || r.Bottom() > container.Height+tol {
			t.Fatalf("step %d: %+v escapes container", i, r)
		}
		if r.Width < geometry.MinCropSize-1e-9 || r.Height < geometry.MinCropSize-1e-9 {
			t.Fatalf("step %d: %+v smaller than min size", i, r)
		}
	}
}
