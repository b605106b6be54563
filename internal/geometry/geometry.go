// Package geometry maps crop rectangles between display space (the on-screen
// container) and natural space (the source image's pixel grid).
package geometry

import (
	"image"
	"math"
)

// MinCropSize is the smallest width or height a crop rectangle may have,
// in display pixels.
const MinCropSize = 50

// Default crop proportions relative to the displayed image.
const (
	defaultCropWidth  = 0.8
	defaultCropHeight = 0.6
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether the point lies inside r (edges inclusive).
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// Within reports whether r lies entirely inside a container of the given size.
func (r Rect) Within(container Size) bool {
	return r.X >= 0 && r.Y >= 0 && r.Right() <= container.Width && r.Bottom() <= container.Height
}

// Image rounds r to integer pixel coordinates.
func (r Rect) Image() image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.Right()))
	y1 := int(math.Round(r.Bottom()))
	return image.Rect(x0, y0, x1, y1)
}

// DisplayGeometry describes how a natural image is laid out inside a
// container with object-contain scaling. It is always derived, never stored.
type DisplayGeometry struct {
	DisplayedWidth  float64 `json:"displayedWidth"`
	DisplayedHeight float64 `json:"displayedHeight"`
	OffsetX         float64 `json:"offsetX"`
	OffsetY         float64 `json:"offsetY"`
	ScaleX          float64 `json:"scaleX"`
	ScaleY          float64 `json:"scaleY"`
}

// Displayed returns the on-screen rectangle occupied by the image.
func (g DisplayGeometry) Displayed() Rect {
	return Rect{X: g.OffsetX, Y: g.OffsetY, Width: g.DisplayedWidth, Height: g.DisplayedHeight}
}

// Contain fits natural inside container preserving aspect ratio and centers
// it. A degenerate natural or container size yields the zero geometry.
func Contain(natural, container Size) DisplayGeometry {
	if natural.Empty() || container.Empty() {
		return DisplayGeometry{}
	}

	dw := math.Min(container.Width, natural.Width*container.Height/natural.Height)
	dh := math.Min(container.Height, natural.Height*container.Width/natural.Width)

	return DisplayGeometry{
		DisplayedWidth:  dw,
		DisplayedHeight: dh,
		OffsetX:         (container.Width - dw) / 2,
		OffsetY:         (container.Height - dh) / 2,
		ScaleX:          natural.Width / dw,
		ScaleY:          natural.Height / dh,
	}
}

// MapCropToNatural converts a display-space crop into natural image pixels.
// The part of the crop that falls in a letterbox band is discarded, so the
// result always lies within the natural image bounds.
func MapCropToNatural(crop Rect, g DisplayGeometry) Rect {
	adjX := clamp(crop.X-g.OffsetX, 0, g.DisplayedWidth)
	adjY := clamp(crop.Y-g.OffsetY, 0, g.DisplayedHeight)
	adjW := math.Max(0, math.Min(crop.Width, g.DisplayedWidth-adjX))
	adjH := math.Max(0, math.Min(crop.Height, g.DisplayedHeight-adjY))

	return Rect{
		X:      adjX * g.ScaleX,
		Y:      adjY * g.ScaleY,
		Width:  adjW * g.ScaleX,
		Height: adjH * g.ScaleY,
	}
}

// DefaultCrop returns the initial crop area: 80% by 60% of the displayed
// image, centered on it. The rectangle is grown to minSize where the
// container allows it and is always kept inside the container.
func DefaultCrop(g DisplayGeometry, container Size, minSize float64) Rect {
	w := g.DisplayedWidth * defaultCropWidth
	h := g.DisplayedHeight * defaultCropHeight
	w = math.Min(math.Max(w, minSize), container.Width)
	h = math.Min(math.Max(h, minSize), container.Height)

	r := Rect{
		X:      g.OffsetX + (g.DisplayedWidth-w)/2,
		Y:      g.OffsetY + (g.DisplayedHeight-h)/2,
		Width:  w,
		Height: h,
	}
	return r.ClampInto(container)
}

// ClampInto translates r so it lies inside container without resizing it,
// unless it is larger than the container, in which case it is shrunk.
func (r Rect) ClampInto(container Size) Rect {
	r.Width = math.Min(r.Width, container.Width)
	r.Height = math.Min(r.Height, container.Height)
	r.X = clamp(r.X, 0, container.Width-r.Width)
	r.Y = clamp(r.Y, 0, container.Height-r.Height)
	return r
}

// clamp bounds v to [lo, hi]. When lo > hi the upper bound wins.
func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Clamp is the exported form of clamp for callers applying the same
// edge-bounding rules.
func Clamp(v, lo, hi float64) float64 {
	return clamp(v, lo, hi)
}
