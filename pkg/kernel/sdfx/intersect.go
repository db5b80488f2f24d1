package sdfx

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/curvenet/pkg/kernel"
	"honnef.co/go/curve"
)

// atom is a Segment, ArcCurve or CircleCurve together with the parameter
// offset it occupies inside its parent curve.
type atom struct {
	c      kernel.PlanarCurve
	offset float64
}

func atomsOf(c kernel.PlanarCurve) []atom {
	if ct, ok := c.(kernel.Contour); ok {
		out := make([]atom, len(ct.Pieces))
		for i, p := range ct.Pieces {
			out[i] = atom{c: p, offset: float64(i)}
		}
		return out
	}
	return []atom{{c: c}}
}

// hit is an intersection in atom-local parameters.
type hit struct {
	ta, tb float64
	pt     curve.Point
}

// Intersect returns the crossings of a and b sorted by the parameter on a.
func (k *SdfxKernel) Intersect(a, b kernel.PlanarCurve, tolerance float64) ([]kernel.Crossing, error) {
	if !overlaps(a.BoundingBox(), b.BoundingBox(), tolerance) {
		return nil, nil
	}

	var out []kernel.Crossing
	for _, aa := range atomsOf(a) {
		for _, ab := range atomsOf(b) {
			if !overlaps(aa.c.BoundingBox(), ab.c.BoundingBox(), tolerance) {
				continue
			}
			hs, err := atomHits(aa.c, ab.c, tolerance)
			if err != nil {
				return nil, err
			}
			for _, h := range hs {
				out = append(out, kernel.Crossing{
					T:      normalize(a, aa.offset+snapEnd(aa.c, h.ta, tolerance)),
					OtherT: normalize(b, ab.offset+snapEnd(ab.c, h.tb, tolerance)),
					Point:  h.pt,
				})
			}
		}
	}

	for _, c := range out {
		if math.IsNaN(c.T) || math.IsNaN(c.OtherT) || c.Point.IsNaN() {
			return nil, fmt.Errorf("intersection parameter is NaN: %w", kernel.ErrDegenerate)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].T < out[j].T })

	// Contour corners and tangent contacts show up once per atom pair.
	kept := out[:0]
	for _, c := range out {
		dup := false
		for _, p := range kept {
			if p.Point.Distance(c.Point) <= tolerance {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

func overlaps(a, b curve.Rect, tol float64) bool {
	a = a.Inflate(tol, tol)
	return a.X0 <= b.X1 && b.X0 <= a.X1 && a.Y0 <= b.Y1 && b.Y0 <= a.Y1
}

// snapEnd pulls a local parameter that lands within tol of an open atom's
// endpoint onto the endpoint itself.
func snapEnd(c kernel.PlanarCurve, t, tol float64) float64 {
	if c.Closed() {
		return t
	}
	p := c.Eval(t)
	if t != 0 && p.Distance(kernel.Start(c)) <= tol {
		return 0
	}
	if t != 1 && p.Distance(kernel.End(c)) <= tol {
		return 1
	}
	return t
}

// normalize maps the seam of a closed curve onto 0.
func normalize(c kernel.PlanarCurve, t float64) float64 {
	if !c.Closed() {
		return t
	}
	period := kernel.Period(c)
	t = math.Mod(t, period)
	if t < 0 {
		t += period
	}
	if period-t < 1e-12 {
		t = 0
	}
	return t
}

func atomHits(a, b kernel.PlanarCurve, tol float64) ([]hit, error) {
	switch a := a.(type) {
	case kernel.Segment:
		switch b := b.(type) {
		case kernel.Segment:
			return segSeg(a, b, tol), nil
		default:
			cb, err := circOf(b)
			if err != nil {
				return nil, err
			}
			return segCirc(a, cb, tol), nil
		}
	default:
		ca, err := circOf(a)
		if err != nil {
			return nil, err
		}
		if sb, ok := b.(kernel.Segment); ok {
			return swap(segCirc(sb, ca, tol)), nil
		}
		cb, err := circOf(b)
		if err != nil {
			return nil, err
		}
		return circCirc(ca, cb, tol), nil
	}
}

func swap(hs []hit) []hit {
	for i := range hs {
		hs[i].ta, hs[i].tb = hs[i].tb, hs[i].ta
	}
	return hs
}

// ---------------------------------------------------------------------------
// Segment / segment
// ---------------------------------------------------------------------------

func segSeg(a, b kernel.Segment, tol float64) []hit {
	var hs []hit
	la, lb := a.Line(), b.Line()
	if xs, n := la.IntersectLine(lb); n > 0 {
		ta := clamp01(xs[0].SegmentT)
		hs = append(hs, hit{ta: ta, tb: clamp01(xs[0].LineT), pt: la.Eval(ta)})
	}

	// Touching and collinear overlaps are found through the endpoints.
	tol2 := tol * tol
	for _, ta := range [2]float64{0, 1} {
		p := la.Eval(ta)
		if d, tb := lb.Nearest(p, 0); d <= tol2 {
			hs = append(hs, hit{ta: ta, tb: tb, pt: p})
		}
	}
	for _, tb := range [2]float64{0, 1} {
		p := lb.Eval(tb)
		if d, ta := la.Nearest(p, 0); d <= tol2 {
			hs = append(hs, hit{ta: ta, tb: tb, pt: p})
		}
	}
	return hs
}

func clamp01(t float64) float64 {
	return math.Min(1, math.Max(0, t))
}

// ---------------------------------------------------------------------------
// Circular pieces
// ---------------------------------------------------------------------------

// circ is the common view of arcs and circles. Full circles are
// parameterised by angle, arcs by the fraction of their sweep.
type circ struct {
	center curve.Point
	r      float64
	start  float64
	sweep  float64
	full   bool
}

func circOf(c kernel.PlanarCurve) (circ, error) {
	switch c := c.(type) {
	case kernel.CircleCurve:
		if c.Radius <= 0 {
			return circ{}, fmt.Errorf("circle radius %g: %w", c.Radius, kernel.ErrDegenerate)
		}
		return circ{center: c.Center, r: c.Radius, sweep: 2 * math.Pi, full: true}, nil
	case kernel.ArcCurve:
		if c.Radius <= 0 || c.Sweep == 0 {
			return circ{}, fmt.Errorf("arc radius %g sweep %g: %w", c.Radius, c.Sweep, kernel.ErrDegenerate)
		}
		return circ{center: c.Center, r: c.Radius, start: c.Start, sweep: c.Sweep}, nil
	default:
		return circ{}, fmt.Errorf("unsupported piece %T", c)
	}
}

func (c circ) eval(t float64) curve.Point {
	if c.full {
		return curve.Pt(c.center.X+c.r*math.Cos(t), c.center.Y+c.r*math.Sin(t))
	}
	a := c.start + t*c.sweep
	return curve.Pt(c.center.X+c.r*math.Cos(a), c.center.Y+c.r*math.Sin(a))
}

// param returns the parameter of the point at angle, or false when the
// angle lies outside the arc by more than tol along its length.
func (c circ) param(angle, tol float64) (float64, bool) {
	if c.full {
		return wrapAngle(angle), true
	}
	var rel float64
	if c.sweep > 0 {
		rel = wrapAngle(angle - c.start)
	} else {
		rel = wrapAngle(c.start - angle)
	}
	span := math.Abs(c.sweep)
	if rel <= span {
		return rel / span, true
	}
	// rel is past the end; it may still be just before the start.
	if (2*math.Pi-rel)*c.r <= tol {
		return 0, true
	}
	if (rel-span)*c.r <= tol {
		return 1, true
	}
	return 0, false
}

// endpoints returns the open ends of an arc with their parameters.
func (c circ) endpoints() []float64 {
	if c.full {
		return nil
	}
	return []float64{0, 1}
}

// near reports the parameter of pt on c when pt lies within tol of it.
func (c circ) near(pt curve.Point, tol float64) (float64, bool) {
	v := pt.Sub(c.center)
	if math.Abs(v.Hypot()-c.r) > tol {
		return 0, false
	}
	return c.param(v.Angle(), tol)
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func segCirc(s kernel.Segment, c circ, tol float64) []hit {
	var hs []hit
	l := s.Line()
	d := s.P1.Sub(s.P0)
	f := s.P0.Sub(c.center)
	qa := d.Dot(d)
	qb := 2 * f.Dot(d)
	qc := f.Dot(f) - c.r*c.r

	var roots []float64
	disc := qb*qb - 4*qa*qc
	switch {
	case disc >= 0:
		sq := math.Sqrt(disc)
		roots = append(roots, (-qb-sq)/(2*qa), (-qb+sq)/(2*qa))
	default:
		// Near-tangent lines miss by a hair in floating point.
		t := -qb / (2 * qa)
		if math.Abs(l.Eval(t).Sub(c.center).Hypot()-c.r) <= tol {
			roots = append(roots, t)
		}
	}
	slack := tol / math.Sqrt(qa)
	for _, t := range roots {
		if t < -slack || t > 1+slack {
			continue
		}
		t = clamp01(t)
		p := l.Eval(t)
		if tc, ok := c.param(p.Sub(c.center).Angle(), tol); ok {
			hs = append(hs, hit{ta: t, tb: tc, pt: p})
		}
	}

	for _, ts := range [2]float64{0, 1} {
		p := l.Eval(ts)
		if tc, ok := c.near(p, tol); ok {
			hs = append(hs, hit{ta: ts, tb: tc, pt: p})
		}
	}
	tol2 := tol * tol
	for _, tc := range c.endpoints() {
		p := c.eval(tc)
		if dist, ts := l.Nearest(p, 0); dist <= tol2 {
			hs = append(hs, hit{ta: ts, tb: tc, pt: p})
		}
	}
	return hs
}

func circCirc(a, b circ, tol float64) []hit {
	var hs []hit
	v := b.center.Sub(a.center)
	d := v.Hypot()

	// Concentric circles either coincide or never meet; only arc ends can
	// touch, and those are picked up below.
	if d > tol && d <= a.r+b.r+tol && d >= math.Abs(a.r-b.r)-tol {
		u := v.Div(d)
		perp := curve.Vec(-u.Y, u.X)
		along := (a.r*a.r - b.r*b.r + d*d) / (2 * d)
		h := math.Sqrt(math.Max(0, a.r*a.r-along*along))
		base := a.center.Translate(u.Mul(along))
		pts := []curve.Point{base.Translate(perp.Mul(h))}
		if h > tol/2 {
			pts = append(pts, base.Translate(perp.Mul(-h)))
		}
		for _, p := range pts {
			ta, okA := a.param(p.Sub(a.center).Angle(), tol)
			tb, okB := b.param(p.Sub(b.center).Angle(), tol)
			if okA && okB {
				hs = append(hs, hit{ta: ta, tb: tb, pt: p})
			}
		}
	}

	for _, ta := range a.endpoints() {
		p := a.eval(ta)
		if tb, ok := b.near(p, tol); ok {
			hs = append(hs, hit{ta: ta, tb: tb, pt: p})
		}
	}
	for _, tb := range b.endpoints() {
		p := b.eval(tb)
		if ta, ok := a.near(p, tol); ok {
			hs = append(hs, hit{ta: ta, tb: tb, pt: p})
		}
	}
	return hs
}
