package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/curvenet/pkg/kernel"
)

// spanEpsilon is the shortest parameter span Trim keeps when cutting a
// contour at its corners.
const spanEpsilon = 1e-12

// Trim returns the span [start, stop) of c.
func (k *SdfxKernel) Trim(c kernel.PlanarCurve, start, stop float64) (kernel.PlanarCurve, error) {
	if math.IsNaN(start) || math.IsNaN(stop) {
		return nil, fmt.Errorf("trim [%g, %g): %w", start, stop, kernel.ErrDegenerate)
	}
	if c.Closed() && stop <= start {
		stop += kernel.Period(c)
	}
	if stop <= start {
		return nil, fmt.Errorf("empty span [%g, %g) on %s: %w", start, stop, c.Shape(), kernel.ErrDegenerate)
	}

	switch c := c.(type) {
	case kernel.Segment:
		return kernel.Segment{P0: c.Eval(start), P1: c.Eval(stop)}, nil

	case kernel.ArcCurve:
		return kernel.ArcCurve{
			Center: c.Center,
			Radius: c.Radius,
			Start:  c.Start + start*c.Sweep,
			Sweep:  (stop - start) * c.Sweep,
		}, nil

	case kernel.CircleCurve:
		return kernel.ArcCurve{
			Center: c.Center,
			Radius: c.Radius,
			Start:  start,
			Sweep:  stop - start,
		}, nil

	case kernel.Contour:
		return k.trimContour(c, start, stop)

	default:
		return nil, fmt.Errorf("unsupported curve type %T", c)
	}
}

func (k *SdfxKernel) trimContour(c kernel.Contour, start, stop float64) (kernel.PlanarCurve, error) {
	n := len(c.Pieces)
	if n == 0 {
		return nil, fmt.Errorf("empty contour: %w", kernel.ErrDegenerate)
	}
	var pieces []kernel.PlanarCurve
	for cur := start; stop-cur > spanEpsilon; {
		base := math.Floor(cur)
		next := math.Min(base+1, stop)
		lo, hi := cur-base, next-base
		if hi-lo > spanEpsilon {
			idx := int(base) % n
			if idx < 0 {
				idx += n
			}
			p, err := k.Trim(c.Pieces[idx], lo, hi)
			if err != nil {
				return nil, err
			}
			pieces = append(pieces, p)
		}
		cur = next
	}
	switch len(pieces) {
	case 0:
		return nil, fmt.Errorf("empty span [%g, %g) on contour: %w", start, stop, kernel.ErrDegenerate)
	case 1:
		return pieces[0], nil
	default:
		return kernel.Contour{Pieces: pieces}, nil
	}
}

// Decompose splits contours into their pieces.
func (k *SdfxKernel) Decompose(c kernel.PlanarCurve) []kernel.PlanarCurve {
	if ct, ok := c.(kernel.Contour); ok {
		return append([]kernel.PlanarCurve(nil), ct.Pieces...)
	}
	return []kernel.PlanarCurve{c}
}
