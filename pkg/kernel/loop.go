package kernel

import (
	"math"

	"honnef.co/go/curve"
)

// Loop is a closed chain of oriented Segment and ArcCurve edges. Outline is
// the go-curve path of the chain, used for orientation and containment.
type Loop struct {
	Edges   []PlanarCurve `json:"edges"`
	Outline curve.BezPath `json:"-"`
	Area    float64       `json:"area"` // signed; positive when counter-clockwise
}

// NewLoop builds a loop from edges that are already chained end to end.
// Arcs are flattened into cubic Béziers with the given tolerance.
func NewLoop(edges []PlanarCurve, tolerance float64) Loop {
	l := Loop{Edges: edges}
	if len(edges) == 0 {
		return l
	}
	l.Outline.MoveTo(Start(edges[0]))
	for _, e := range edges {
		switch e := e.(type) {
		case Segment:
			l.Outline.LineTo(e.P1)
		case ArcCurve:
			for el := range e.Arc().PathElements(tolerance) {
				if el.Kind == curve.MoveToKind {
					continue
				}
				l.Outline.Push(el)
			}
		default:
			l.Outline.LineTo(End(e))
		}
	}
	l.Outline.ClosePath()
	l.Area = l.Outline.SignedArea()
	return l
}

// Reverse returns the loop traversed the other way round.
func (l Loop) Reverse(tolerance float64) Loop {
	edges := make([]PlanarCurve, len(l.Edges))
	for i, e := range l.Edges {
		edges[len(l.Edges)-1-i] = Reverse(e)
	}
	return NewLoop(edges, tolerance)
}

// Contains reports whether pt lies inside the loop.
func (l Loop) Contains(pt curve.Point) bool {
	return l.Outline.Winding(pt) != 0
}

// Sample returns a point on the loop, away from its vertices.
func (l Loop) Sample() curve.Point {
	if len(l.Edges) == 0 {
		return curve.Point{}
	}
	tmin, tmax := l.Edges[0].Domain()
	return l.Edges[0].Eval(0.5 * (tmin + tmax))
}

// Region is a closed planar area: one counter-clockwise outer loop and any
// number of clockwise holes.
type Region struct {
	Outer Loop   `json:"outer"`
	Holes []Loop `json:"holes,omitempty"`
}

// Area returns the enclosed area with holes subtracted.
func (r Region) Area() float64 {
	a := math.Abs(r.Outer.Area)
	for _, h := range r.Holes {
		a -= math.Abs(h.Area)
	}
	return a
}

// Contains reports whether pt lies inside the outer loop and outside every
// hole.
func (r Region) Contains(pt curve.Point) bool {
	if !r.Outer.Contains(pt) {
		return false
	}
	for _, h := range r.Holes {
		if h.Contains(pt) {
			return false
		}
	}
	return true
}
