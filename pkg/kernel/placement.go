package kernel

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"honnef.co/go/curve"
)

// Placement is an orthonormal plane pose: an origin, a unit normal and an
// in-plane basis. Two placements describe the same plane when Equal reports
// true, regardless of origin or of which way the normal points.
type Placement struct {
	Origin v3.Vec `json:"origin"`
	Normal v3.Vec `json:"normal"`
	XAxis  v3.Vec `json:"x_axis"`
	YAxis  v3.Vec `json:"y_axis"`
}

// NewPlacement builds a placement from an origin and a (not necessarily
// unit) normal. The in-plane X axis is the projection of world X onto the
// plane, or of world Z when the normal is close to X.
func NewPlacement(origin, normal v3.Vec) Placement {
	n := normal.Normalize()
	ref := v3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		ref = v3.Vec{Z: 1}
	}
	x := ref.Sub(n.MulScalar(ref.Dot(n))).Normalize()
	y := n.Cross(x)
	return Placement{Origin: origin, Normal: n, XAxis: x, YAxis: y}
}

// XY returns the placement of the plane z = height with the world basis.
func XY(height float64) Placement {
	return NewPlacement(v3.Vec{Z: height}, v3.Vec{Z: 1})
}

// Equal reports whether p and o lie on the same plane within tolerance.
func (p Placement) Equal(o Placement, tolerance float64) bool {
	if p.Normal.Cross(o.Normal).Length() > tolerance {
		return false
	}
	if math.Abs(p.Distance(o.Origin)) > tolerance {
		return false
	}
	return math.Abs(o.Distance(p.Origin)) <= tolerance
}

// SameSense reports whether the normals of p and o point the same way.
func (p Placement) SameSense(o Placement) bool {
	return p.Normal.Dot(o.Normal) > 0
}

// Distance returns the signed distance of q from the plane.
func (p Placement) Distance(q v3.Vec) float64 {
	return q.Sub(p.Origin).Dot(p.Normal)
}

// ToPlane maps a model-space point to plane coordinates. Any offset along
// the normal is discarded.
func (p Placement) ToPlane(q v3.Vec) curve.Point {
	d := q.Sub(p.Origin)
	return curve.Pt(d.Dot(p.XAxis), d.Dot(p.YAxis))
}

// FromPlane maps plane coordinates back to model space.
func (p Placement) FromPlane(pt curve.Point) v3.Vec {
	return p.Origin.Add(p.XAxis.MulScalar(pt.X)).Add(p.YAxis.MulScalar(pt.Y))
}

func (p Placement) String() string {
	return fmt.Sprintf("placement(origin=(%g, %g, %g) normal=(%g, %g, %g))",
		p.Origin.X, p.Origin.Y, p.Origin.Z, p.Normal.X, p.Normal.Y, p.Normal.Z)
}
