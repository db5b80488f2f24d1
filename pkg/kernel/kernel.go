// Package kernel defines the abstract geometry kernel interface used by the
// planar curve network. Implementations (sdfx) provide curve projection,
// curve/curve intersection, trimming and region construction behind this
// interface. Every operation is a pure function of its arguments: the kernel
// never holds on to network state.
package kernel

import (
	"errors"

	"honnef.co/go/curve"
)

// ErrDegenerate is returned when the kernel is handed geometry it cannot
// work with, such as a zero-radius circle or a NaN parameter.
var ErrDegenerate = errors.New("kernel: degenerate geometry")

// Crossing is a point where two coplanar curves meet. T is the parameter on
// the first curve, OtherT the parameter on the second.
type Crossing struct {
	T      float64
	OtherT float64
	Point  curve.Point
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Plane fits a plane to c. Curves that pin down their own plane (circles,
	// arcs, non-collinear polylines) ignore known; straight lines reuse the
	// first known placement that contains them. ok is false when the curve
	// is not planar, which is not an error.
	Plane(c Curve3D, known []Placement) (p Placement, ok bool, err error)

	// Project expresses c in the 2D frame of p.
	Project(c Curve3D, p Placement) (PlanarCurve, error)

	// Intersect returns the crossings of a and b, sorted by T. Points closer
	// than tolerance are reported once.
	Intersect(a, b PlanarCurve, tolerance float64) ([]Crossing, error)

	// Trim returns the span [start, stop) of c. For closed curves stop may
	// be smaller than start, in which case the span wraps past the seam.
	Trim(c PlanarCurve, start, stop float64) (PlanarCurve, error)

	// Decompose splits contours into their atomic pieces. Other curves are
	// returned as a single-element slice.
	Decompose(c PlanarCurve) []PlanarCurve

	// OuterContours assembles the outer boundary of every connected group
	// of segments. Returned loops are counter-clockwise.
	OuterContours(segments []PlanarCurve, tolerance float64) ([]Loop, error)

	// Regions classifies loops by nesting into regions with holes.
	Regions(loops []Loop) ([]Region, error)
}
