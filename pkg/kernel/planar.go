package kernel

import (
	"math"

	"honnef.co/go/curve"
)

// Shape tags the variants of PlanarCurve. The trimming rules of the network
// (corner cuts, endpoint joints, seam wrapping) are chosen by Shape.
type Shape int

const (
	ShapeLine    Shape = iota // open straight segment, domain [0, 1]
	ShapeCircle               // closed circle, domain [0, 2π)
	ShapeArc                  // open circular arc, domain [0, 1]
	ShapeContour              // chain of pieces, domain [0, n]
)

func (s Shape) String() string {
	switch s {
	case ShapeLine:
		return "line"
	case ShapeCircle:
		return "circle"
	case ShapeArc:
		return "arc"
	case ShapeContour:
		return "contour"
	default:
		return "unknown"
	}
}

// PlanarCurve is a curve expressed in the 2D frame of a Placement.
type PlanarCurve interface {
	Shape() Shape
	Closed() bool
	Domain() (tmin, tmax float64)
	Eval(t float64) curve.Point
	BoundingBox() curve.Rect
	planarCurve() // marker method restricting implementations to this package
}

// Period returns the length of the parameter domain of c.
func Period(c PlanarCurve) float64 {
	tmin, tmax := c.Domain()
	return tmax - tmin
}

// Start returns the point at the start of the domain.
func Start(c PlanarCurve) curve.Point {
	tmin, _ := c.Domain()
	return c.Eval(tmin)
}

// End returns the point at the end of the domain.
func End(c PlanarCurve) curve.Point {
	_, tmax := c.Domain()
	return c.Eval(tmax)
}

// ---------------------------------------------------------------------------
// Segment
// ---------------------------------------------------------------------------

// Segment is a straight segment from P0 to P1.
type Segment struct {
	P0 curve.Point `json:"p0"`
	P1 curve.Point `json:"p1"`
}

func (Segment) Shape() Shape { return ShapeLine }
func (Segment) Closed() bool { return false }
func (Segment) Domain() (float64, float64) { return 0, 1 }
func (s Segment) Eval(t float64) curve.Point { return s.P0.Lerp(s.P1, t) }
func (s Segment) BoundingBox() curve.Rect { return curve.NewRectFromPoints(s.P0, s.P1) }
func (s Segment) Line() curve.Line { return curve.Line{P0: s.P0, P1: s.P1} }
func (s Segment) Length() float64 { return s.P0.Distance(s.P1) }
func (Segment) planarCurve() {}

// ---------------------------------------------------------------------------
// Circle
// ---------------------------------------------------------------------------

// CircleCurve is a full counter-clockwise circle parameterised by angle.
type CircleCurve struct {
	Center curve.Point `json:"center"`
	Radius float64     `json:"radius"`
}

func (CircleCurve) Shape() Shape { return ShapeCircle }
func (CircleCurve) Closed() bool { return true }
func (CircleCurve) Domain() (float64, float64) { return 0, 2 * math.Pi }
func (CircleCurve) planarCurve() {}

func (c CircleCurve) Eval(t float64) curve.Point {
	return pointOnCircle(c.Center, c.Radius, t)
}

func (c CircleCurve) BoundingBox() curve.Rect {
	return curve.Rect{
		X0: c.Center.X - c.Radius, Y0: c.Center.Y - c.Radius,
		X1: c.Center.X + c.Radius, Y1: c.Center.Y + c.Radius,
	}
}

// ---------------------------------------------------------------------------
// Arc
// ---------------------------------------------------------------------------

// ArcCurve is a circular arc. Parameter t in [0, 1] maps to the angle
// Start + t*Sweep; a negative Sweep runs clockwise.
type ArcCurve struct {
	Center curve.Point `json:"center"`
	Radius float64     `json:"radius"`
	Start  float64     `json:"start"`
	Sweep  float64     `json:"sweep"`
}

func (ArcCurve) Shape() Shape { return ShapeArc }
func (ArcCurve) Closed() bool { return false }
func (ArcCurve) Domain() (float64, float64) { return 0, 1 }
func (ArcCurve) planarCurve() {}

func (a ArcCurve) Eval(t float64) curve.Point {
	return pointOnCircle(a.Center, a.Radius, a.Start+t*a.Sweep)
}

// BoundingBox returns the box of the full circle, which always contains
// the arc.
func (a ArcCurve) BoundingBox() curve.Rect {
	return CircleCurve{Center: a.Center, Radius: a.Radius}.BoundingBox()
}

// Length returns the arc length.
func (a ArcCurve) Length() float64 {
	return math.Abs(a.Sweep) * a.Radius
}

// Arc converts a to the go-curve representation used for flattening.
func (a ArcCurve) Arc() curve.Arc {
	return curve.Arc{
		Center:     a.Center,
		Radii:      curve.Vec(a.Radius, a.Radius),
		StartAngle: a.Start,
		SweepAngle: a.Sweep,
	}
}

// ---------------------------------------------------------------------------
// Contour
// ---------------------------------------------------------------------------

// Contour is a chain of Segment and ArcCurve pieces joined end to end.
// Piece i owns the parameter range [i, i+1]. A Periodic contour closes back
// onto its first point and its parameter n is the same point as 0.
type Contour struct {
	Pieces   []PlanarCurve `json:"pieces"`
	Periodic bool          `json:"periodic"`
}

func (Contour) Shape() Shape { return ShapeContour }
func (c Contour) Closed() bool { return c.Periodic }
func (Contour) planarCurve() {}

func (c Contour) Domain() (float64, float64) {
	return 0, float64(len(c.Pieces))
}

func (c Contour) Eval(t float64) curve.Point {
	if len(c.Pieces) == 0 {
		return curve.Point{}
	}
	i, local := c.Locate(t)
	return c.Pieces[i].Eval(local)
}

// Locate splits a contour parameter into a piece index and the local
// parameter on that piece.
func (c Contour) Locate(t float64) (int, float64) {
	n := len(c.Pieces)
	i := int(math.Floor(t))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i, t - float64(i)
}

// Corners returns the parameters where one piece hands over to the next.
// A periodic contour also reports its seam at 0.
func (c Contour) Corners() []float64 {
	var corners []float64
	if c.Periodic && len(c.Pieces) > 0 {
		corners = append(corners, 0)
	}
	for i := 1; i < len(c.Pieces); i++ {
		corners = append(corners, float64(i))
	}
	return corners
}

func (c Contour) BoundingBox() curve.Rect {
	if len(c.Pieces) == 0 {
		return curve.Rect{}
	}
	bb := c.Pieces[0].BoundingBox()
	for _, p := range c.Pieces[1:] {
		bb = bb.Union(p.BoundingBox())
	}
	return bb
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// Reverse returns c traversed in the opposite direction. A circle reverses
// into a clockwise full-sweep arc.
func Reverse(c PlanarCurve) PlanarCurve {
	switch c := c.(type) {
	case Segment:
		return Segment{P0: c.P1, P1: c.P0}
	case ArcCurve:
		return ArcCurve{Center: c.Center, Radius: c.Radius, Start: c.Start + c.Sweep, Sweep: -c.Sweep}
	case CircleCurve:
		return ArcCurve{Center: c.Center, Radius: c.Radius, Start: 2 * math.Pi, Sweep: -2 * math.Pi}
	case Contour:
		pieces := make([]PlanarCurve, len(c.Pieces))
		for i, p := range c.Pieces {
			pieces[len(c.Pieces)-1-i] = Reverse(p)
		}
		return Contour{Pieces: pieces, Periodic: c.Periodic}
	default:
		return c
	}
}

func pointOnCircle(center curve.Point, radius, angle float64) curve.Point {
	s, c := math.Sincos(angle)
	return curve.Pt(center.X+radius*c, center.Y+radius*s)
}
