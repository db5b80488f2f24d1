// Package sdfx implements the kernel.Kernel interface using the vector
// math of the github.com/deadsy/sdfx CAD library for model space and the
// honnef.co/go/curve primitives for the 2D plane frame.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/curvenet/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"honnef.co/go/curve"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultPlanarity is how far a point may sit off a plane and still count
// as lying on it.
const DefaultPlanarity = 1e-6

// SdfxKernel implements kernel.Kernel with analytic line/arc geometry.
type SdfxKernel struct {
	// Planarity bounds plane-fit residuals in Plane and the polyline point
	// merge distance in Project.
	Planarity float64
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{Planarity: DefaultPlanarity}
}

// Plane fits a placement to c.
func (k *SdfxKernel) Plane(c kernel.Curve3D, known []kernel.Placement) (kernel.Placement, bool, error) {
	switch c := c.(type) {
	case kernel.Circle3D:
		if c.Radius <= 0 || c.Normal.Length() == 0 {
			return kernel.Placement{}, false, fmt.Errorf("circle radius %g: %w", c.Radius, kernel.ErrDegenerate)
		}
		return kernel.NewPlacement(c.Center, c.Normal), true, nil

	case kernel.Arc3D:
		if c.Radius() == 0 || c.Normal.Length() == 0 || c.Sweep == 0 {
			return kernel.Placement{}, false, fmt.Errorf("arc sweep %g: %w", c.Sweep, kernel.ErrDegenerate)
		}
		p := kernel.NewPlacement(c.Center, c.Normal)
		if math.Abs(p.Distance(c.Start)) > k.Planarity {
			return kernel.Placement{}, false, fmt.Errorf("arc start off its plane: %w", kernel.ErrDegenerate)
		}
		return p, true, nil

	case kernel.Line3D:
		if c.P0.Sub(c.P1).Length() <= k.Planarity {
			return kernel.Placement{}, false, fmt.Errorf("zero-length line: %w", kernel.ErrDegenerate)
		}
		p, ok := k.linePlane([]v3.Vec{c.P0, c.P1}, known)
		return p, ok, nil

	case kernel.Polyline3D:
		if len(c.Points) < 2 {
			return kernel.Placement{}, false, fmt.Errorf("polyline with %d points: %w", len(c.Points), kernel.ErrDegenerate)
		}
		n := newellNormal(c.Points)
		if n.Length() <= k.Planarity {
			// Collinear points pin down no plane of their own.
			p, ok := k.linePlane(c.Points, known)
			return p, ok, nil
		}
		p := kernel.NewPlacement(c.Points[0], n)
		if !k.onPlane(p, c.Points) {
			return kernel.Placement{}, false, nil
		}
		return p, true, nil

	default:
		return kernel.Placement{}, false, fmt.Errorf("unsupported curve type %T", c)
	}
}

// linePlane picks a plane for straight geometry: the first known placement
// containing every point, or else the horizontal plane through them.
func (k *SdfxKernel) linePlane(pts []v3.Vec, known []kernel.Placement) (kernel.Placement, bool) {
	for _, p := range known {
		if k.onPlane(p, pts) {
			return p, true
		}
	}
	horizontal := kernel.XY(pts[0].Z)
	if k.onPlane(horizontal, pts) {
		return horizontal, true
	}
	return kernel.Placement{}, false
}

func (k *SdfxKernel) onPlane(p kernel.Placement, pts []v3.Vec) bool {
	for _, q := range pts {
		if math.Abs(p.Distance(q)) > k.Planarity {
			return false
		}
	}
	return true
}

// newellNormal returns the area vector of the polygon through pts. It is
// zero when the points are collinear.
func newellNormal(pts []v3.Vec) v3.Vec {
	var n v3.Vec
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// Project expresses c in the 2D frame of p.
func (k *SdfxKernel) Project(c kernel.Curve3D, p kernel.Placement) (kernel.PlanarCurve, error) {
	switch c := c.(type) {
	case kernel.Line3D:
		return kernel.Segment{P0: p.ToPlane(c.P0), P1: p.ToPlane(c.P1)}, nil

	case kernel.Circle3D:
		return kernel.CircleCurve{Center: p.ToPlane(c.Center), Radius: c.Radius}, nil

	case kernel.Arc3D:
		center := p.ToPlane(c.Center)
		start := p.ToPlane(c.Start).Sub(center)
		sweep := c.Sweep
		if c.Normal.Dot(p.Normal) < 0 {
			sweep = -sweep
		}
		return kernel.ArcCurve{
			Center: center,
			Radius: c.Radius(),
			Start:  start.Angle(),
			Sweep:  sweep,
		}, nil

	case kernel.Polyline3D:
		return k.projectPolyline(c, p)

	default:
		return nil, fmt.Errorf("unsupported curve type %T", c)
	}
}

// projectPolyline converts a polyline into a contour of segments so that
// every corner becomes a parameter boundary.
func (k *SdfxKernel) projectPolyline(c kernel.Polyline3D, p kernel.Placement) (kernel.PlanarCurve, error) {
	var pts []curve.Point
	for _, q := range c.Points {
		pt := p.ToPlane(q)
		if len(pts) > 0 && pts[len(pts)-1].Distance(pt) <= k.Planarity {
			continue
		}
		pts = append(pts, pt)
	}
	closed := c.Closed
	if len(pts) > 2 && pts[0].Distance(pts[len(pts)-1]) <= k.Planarity {
		closed = true
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("polyline collapses to a point: %w", kernel.ErrDegenerate)
	}

	pieces := make([]kernel.PlanarCurve, 0, len(pts))
	for i := 0; i+1 < len(pts); i++ {
		pieces = append(pieces, kernel.Segment{P0: pts[i], P1: pts[i+1]})
	}
	if closed && len(pts) > 2 {
		pieces = append(pieces, kernel.Segment{P0: pts[len(pts)-1], P1: pts[0]})
	} else {
		closed = false
	}
	return kernel.Contour{Pieces: pieces, Periodic: closed}, nil
}
