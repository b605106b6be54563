package crop

import (
	"math"

	"github.com/starford/wayfarer/internal/geometry"
)

// Mode is the interaction state of a crop rectangle.
type Mode int

const (
	Idle Mode = iota
	Dragging
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Handle identifies one of the eight resize grips.
type Handle string

const (
	HandleNone Handle = ""
	HandleNW   Handle = "nw"
	HandleNE   Handle = "ne"
	HandleSW   Handle = "sw"
	HandleSE   Handle = "se"
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleW    Handle = "w"
	HandleE    Handle = "e"
)

// Handles lists every resize grip in hit-test priority order (corners first).
var Handles = []Handle{HandleNW, HandleNE, HandleSW, HandleSE, HandleN, HandleS, HandleW, HandleE}

// ParseHandle converts s into a Handle. Unknown names map to HandleNone.
func ParseHandle(s string) Handle {
	for _, h := range Handles {
		if string(h) == s {
			return h
		}
	}
	return HandleNone
}

func (h Handle) west() bool  { return h == HandleNW || h == HandleSW || h == HandleW }
func (h Handle) east() bool  { return h == HandleNE || h == HandleSE || h == HandleE }
func (h Handle) north() bool { return h == HandleNW || h == HandleNE || h == HandleN }
func (h Handle) south() bool { return h == HandleSW || h == HandleSE || h == HandleS }

// Point is a pointer position in display space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Interaction turns pointer events into mutations of a crop rectangle.
//
// Moves are computed from the rectangle captured at pointer-down plus the
// total pointer delta, so rounding never accumulates across events.
type Interaction struct {
	container geometry.Size
	minSize   float64

	committed geometry.Rect
	live      geometry.Rect

	mode      Mode
	handle    Handle
	start     Point
	startArea geometry.Rect
}

// NewInteraction creates an idle interaction over initial inside container.
func NewInteraction(container geometry.Size, initial geometry.Rect, minSize float64) *Interaction {
	if minSize <= 0 {
		minSize = geometry.MinCropSize
	}
	return &Interaction{
		container: container,
		minSize:   minSize,
		committed: initial,
		live:      initial,
	}
}

// Mode returns the current state.
func (in *Interaction) Mode() Mode { return in.mode }

// Handle returns the grip being dragged while Resizing.
func (in *Interaction) Handle() Handle { return in.handle }

// Area returns the live rectangle, including any gesture in progress.
func (in *Interaction) Area() geometry.Rect { return in.live }

// Committed returns the last rectangle committed by pointer-up.
func (in *Interaction) Committed() geometry.Rect { return in.committed }

// Container returns the display-space bounds.
func (in *Interaction) Container() geometry.Size { return in.container }

// HandleAt returns the grip within tolerance of p, or HandleNone.
func (in *Interaction) HandleAt(p Point, tolerance float64) Handle {
	r := in.live
	cx := r.X + r.Width/2
	cy := r.Y + r.Height/2
	grips := map[Handle]Point{
		HandleNW: {r.X, r.Y},
		HandleNE: {r.Right(), r.Y},
		HandleSW: {r.X, r.Bottom()},
		HandleSE: {r.Right(), r.Bottom()},
		HandleN:  {cx, r.Y},
		HandleS:  {cx, r.Bottom()},
		HandleW:  {r.X, cy},
		HandleE:  {r.Right(), cy},
	}
	for _, h := range Handles {
		g := grips[h]
		if math.Abs(p.X-g.X) <= tolerance && math.Abs(p.Y-g.Y) <= tolerance {
			return h
		}
	}
	return HandleNone
}

// Hit reports whether p is on the rectangle body.
func (in *Interaction) Hit(p Point) bool {
	return in.live.Contains(p.X, p.Y)
}

// PointerDown starts a gesture. A handle starts Resizing; HandleNone starts
// Dragging if p is on the body. It reports whether a gesture started.
func (in *Interaction) PointerDown(p Point, h Handle) bool {
	if in.mode != Idle {
		return false
	}
	switch {
	case h != HandleNone:
		in.mode = Resizing
		in.handle = h
	case in.Hit(p):
		in.mode = Dragging
		in.handle = HandleNone
	default:
		return false
	}
	in.start = p
	in.startArea = in.live
	return true
}

// PointerMove updates the live rectangle. It is a no-op while Idle.
func (in *Interaction) PointerMove(p Point) bool {
	dx := p.X - in.start.X
	dy := p.Y - in.start.Y

	switch in.mode {
	case Dragging:
		in.live = in.translate(dx, dy)
	case Resizing:
		in.live = in.resize(dx, dy)
	default:
		return false
	}
	return true
}

// PointerUp ends the gesture at p and commits the rectangle.
func (in *Interaction) PointerUp(p Point) geometry.Rect {
	if in.mode != Idle {
		in.PointerMove(p)
	}
	return in.end()
}

// PointerLeave ends the gesture where it is and commits the rectangle.
func (in *Interaction) PointerLeave() geometry.Rect {
	return in.end()
}

func (in *Interaction) end() geometry.Rect {
	in.mode = Idle
	in.handle = HandleNone
	in.committed = in.live
	return in.committed
}

func (in *Interaction) translate(dx, dy float64) geometry.Rect {
	r := in.startArea
	r.X = geometry.Clamp(r.X+dx, 0, in.container.Width-r.Width)
	r.Y = geometry.Clamp(r.Y+dy, 0, in.container.Height-r.Height)
	return r
}

// resize moves the edges named by the handle. The opposite edges stay where
// they were at pointer-down.
func (in *Interaction) resize(dx, dy float64) geometry.Rect {
	s := in.startArea
	left, top, right, bottom := s.X, s.Y, s.Right(), s.Bottom()

	// The container wins over minSize when a rectangle was already undersized
	// against an edge.
	if in.handle.west() {
		left = math.Max(0, geometry.Clamp(left+dx, 0, right-in.minSize))
	}
	if in.handle.east() {
		right = geometry.Clamp(right+dx, left+in.minSize, in.container.Width)
	}
	if in.handle.north() {
		top = math.Max(0, geometry.Clamp(top+dy, 0, bottom-in.minSize))
	}
	if in.handle.south() {
		bottom = geometry.Clamp(bottom+dy, top+in.minSize, in.container.Height)
	}

	return geometry.Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}
