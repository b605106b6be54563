package geometry

import (
	"image"
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func rectApprox(a, b Rect) bool {
	return approx(a.X, b.X) && approx(a.Y, b.Y) && approx(a.Width, b.Width) && approx(a.Height, b.Height)
}

func TestContain_WideImage(t *testing.T) {
	g := Contain(Size{1000, 500}, Size{400, 300})
	want := DisplayGeometry{
		DisplayedWidth:  400,
		DisplayedHeight: 200,
		OffsetX:         0,
		OffsetY:         50,
		ScaleX:          2.5,
		ScaleY:          2.5,
	}
	if g != want {
		t.Errorf("Contain = %+v, want %+v", g, want)
	}
}

func TestContain_TallImage(t *testing.T) {
	g := Contain(Size{300, 600}, Size{400, 300})
	if !approx(g.DisplayedWidth, 150) || !approx(g.DisplayedHeight, 300) {
		t.Fatalf("displayed = %vx%v, want 150x300", g.DisplayedWidth, g.DisplayedHeight)
	}
	if !approx(g.OffsetX, 125) || !approx(g.OffsetY, 0) {
		t.Errorf("offset = (%v,%v), want (125,0)", g.OffsetX, g.OffsetY)
	}
	if !approx(g.ScaleX, 2) || !approx(g.ScaleY, 2) {
		t.Errorf("scale = (%v,%v), want (2,2)", g.ScaleX, g.ScaleY)
	}
}

func TestContain_Degenerate(t *testing.T) {
	cases := []struct {
		name               string
		natural, container Size
	}{
		{"zero natural", Size{0, 100}, Size{400, 300}},
		{"zero container", Size{100, 100}, Size{0, 300}},
		{"negative", Size{-1, 100}, Size{400, 300}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if g := Contain(tc.natural, tc.container); g != (DisplayGeometry{}) {
				t.Errorf("Contain = %+v, want zero geometry", g)
			}
		})
	}
}

func TestMapCropToNatural_Example(t *testing.T) {
	g := Contain(Size{1000, 500}, Size{400, 300})
	got := MapCropToNatural(Rect{X: 50, Y: 100, Width: 100, Height: 50}, g)
	want := Rect{X: 125, Y: 125, Width: 250, Height: 125}
	if !rectApprox(got, want) {
		t.Errorf("MapCropToNatural = %+v, want %+v", got, want)
	}
}

func TestMapCropToNatural_CropStartsInBand(t *testing.T) {
	g := Contain(Size{1000, 500}, Size{400, 300})
	// Top edge in the upper letterbox band: y is clamped to the image top.
	got := MapCropToNatural(Rect{X: 0, Y: 10, Width: 400, Height: 280}, g)
	if !approx(got.Y, 0) {
		t.Errorf("y = %v, want 0", got.Y)
	}
	if !approx(got.Height, 500) {
		t.Errorf("height = %v, want 500 (capped by displayed height)", got.Height)
	}
}

func TestMapCropToNatural_CropEntirelyInBand(t *testing.T) {
	g := Contain(Size{1000, 500}, Size{400, 300})
	got := MapCropToNatural(Rect{X: 0, Y: 250, Width: 100, Height: 50}, g)
	if got.Height != 0 {
		t.Errorf("height = %v, want 0", got.Height)
	}
	if got.Bottom() > 500+eps {
		t.Errorf("bottom = %v exceeds natural height", got.Bottom())
	}
}

func TestMapCropToNatural_StaysInBounds(t *testing.T) {
	naturals := []Size{{1000, 500}, {500, 1000}, {640, 480}, {37, 1201}, {4000, 3000}}
	containers := []Size{{400, 300}, {300, 400}, {120, 120}, {1024, 768}}

	for _, nat := range naturals {
		for _, ctr := range containers {
			g := Contain(nat, ctr)
			step := 17.0
			for x := 0.0; x+MinCropSize <= ctr.Width; x += step {
				for y := 0.0; y+MinCropSize <= ctr.Height; y += step {
					for w := MinCropSize * 1.0; x+w <= ctr.Width; w += 3 * step {
						for h := MinCropSize * 1.0; y+h <= ctr.Height; h += 3 * step {
							n := MapCropToNatural(Rect{X: x, Y: y, Width: w, Height: h}, g)
							if n.X < -eps || n.Y < -eps || n.Right() > nat.Width+1e-6 || n.Bottom() > nat.Height+1e-6 {
								t.Fatalf("natural=%v container=%v crop=(%v,%v,%v,%v) -> %+v out of bounds",
									nat, ctr, x, y, w, h, n)
							}
							if n.Width < 0 || n.Height < 0 {
								t.Fatalf("negative size %+v", n)
							}
						}
					}
				}
			}
		}
	}
}

func TestDefaultCrop(t *testing.T) {
	ctr := Size{400, 300}
	g := Contain(Size{1000, 500}, ctr)
	got := DefaultCrop(g, ctr, MinCropSize)
	want := Rect{X: 40, Y: 90, Width: 320, Height: 120}
	if !rectApprox(got, want) {
		t.Fatalf("DefaultCrop = %+v, want %+v", got, want)
	}

	n := MapCropToNatural(got, g)
	if !approx(n.Width, 800) || !approx(n.Height, 300) {
		t.Errorf("natural size = %vx%v, want 800x300", n.Width, n.Height)
	}
}

func TestDefaultCrop_TinyImageGrowsToMinSize(t *testing.T) {
	ctr := Size{400, 300}
	g := Contain(Size{20, 10}, Size{40, 30})
	got := DefaultCrop(g, ctr, MinCropSize)
	if got.Width < MinCropSize || got.Height < MinCropSize {
		t.Errorf("DefaultCrop = %+v, want at least %v on each side", got, MinCropSize)
	}
	if !got.Within(ctr) {
		t.Errorf("DefaultCrop = %+v escapes container", got)
	}
}

func TestRectImage(t *testing.T) {
	r := Rect{X: 99.6, Y: 100.2, Width: 800.1, Height: 299.9}
	want := image.Rect(100, 100, 900, 400)
	if got := r.Image(); got != want {
		t.Errorf("Image() = %v, want %v", got, want)
	}
}

func TestClampInto(t *testing.T) {
	ctr := Size{400, 300}
	cases := []struct {
		in, want Rect
	}{
		{Rect{X: -10, Y: -10, Width: 100, Height: 100}, Rect{X: 0, Y: 0, Width: 100, Height: 100}},
		{Rect{X: 350, Y: 250, Width: 100, Height: 100}, Rect{X: 300, Y: 200, Width: 100, Height: 100}},
		{Rect{X: 0, Y: 0, Width: 500, Height: 400}, Rect{X: 0, Y: 0, Width: 400, Height: 300}},
	}
	for _, tc := range cases {
		if got := tc.in.ClampInto(ctr); !rectApprox(got, tc.want) {
			t.Errorf("ClampInto(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
