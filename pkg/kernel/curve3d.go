package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// CurveKind enumerates the 3D curve types the network understands.
type CurveKind int

const (
	CurveLine     CurveKind = iota // straight segment
	CurveCircle                    // full circle
	CurveArc                       // circular arc
	CurvePolyline                  // chain of straight segments
)

func (k CurveKind) String() string {
	switch k {
	case CurveLine:
		return "line"
	case CurveCircle:
		return "circle"
	case CurveArc:
		return "arc"
	case CurvePolyline:
		return "polyline"
	default:
		return "unknown"
	}
}

// Curve3D is a curve in model space. The set of implementations is closed.
type Curve3D interface {
	Kind() CurveKind
	curve3D() // marker method restricting implementations to this package
}

// Line3D is a straight segment from P0 to P1.
type Line3D struct {
	P0 v3.Vec `json:"p0"`
	P1 v3.Vec `json:"p1"`
}

func (Line3D) Kind() CurveKind { return CurveLine }
func (Line3D) curve3D() {}

// Circle3D is a full circle lying in the plane through Center with the given
// normal.
type Circle3D struct {
	Center v3.Vec  `json:"center"`
	Normal v3.Vec  `json:"normal"`
	Radius float64 `json:"radius"`
}

func (Circle3D) Kind() CurveKind { return CurveCircle }
func (Circle3D) curve3D() {}

// Arc3D is a circular arc that starts at Start and sweeps Sweep radians
// counter-clockwise about Normal. The radius is |Start-Center|.
type Arc3D struct {
	Center v3.Vec  `json:"center"`
	Normal v3.Vec  `json:"normal"`
	Start  v3.Vec  `json:"start"`
	Sweep  float64 `json:"sweep"`
}

func (Arc3D) Kind() CurveKind { return CurveArc }
func (Arc3D) curve3D() {}

// Radius returns the arc radius.
func (a Arc3D) Radius() float64 {
	return a.Start.Sub(a.Center).Length()
}

// Polyline3D is a chain of straight segments through Points. When Closed is
// set the last point connects back to the first.
type Polyline3D struct {
	Points []v3.Vec `json:"points"`
	Closed bool     `json:"closed"`
}

func (Polyline3D) Kind() CurveKind { return CurvePolyline }
func (Polyline3D) curve3D() {}
