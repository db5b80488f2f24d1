package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/curvenet/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"honnef.co/go/curve"
)

const tol = 1e-3

func square(x0, y0, side float64) kernel.Contour {
	p := []curve.Point{
		curve.Pt(x0, y0), curve.Pt(x0+side, y0),
		curve.Pt(x0+side, y0+side), curve.Pt(x0, y0+side),
	}
	var pieces []kernel.PlanarCurve
	for i := range p {
		pieces = append(pieces, kernel.Segment{P0: p[i], P1: p[(i+1)%len(p)]})
	}
	return kernel.Contour{Pieces: pieces, Periodic: true}
}

// --- Plane and Project ---

func TestPlane(t *testing.T) {
	k := New()
	tilted := kernel.NewPlacement(v3.Vec{}, v3.Vec{X: 1, Z: 1})

	tests := []struct {
		name   string
		c      kernel.Curve3D
		known  []kernel.Placement
		want   kernel.Placement
		wantOK bool
	}{
		{
			name:   "circle defines its plane",
			c:      kernel.Circle3D{Center: v3.Vec{Z: 2}, Normal: v3.Vec{Z: 1}, Radius: 1},
			want:   kernel.XY(2),
			wantOK: true,
		},
		{
			name:   "horizontal line",
			c:      kernel.Line3D{P0: v3.Vec{Z: 3}, P1: v3.Vec{X: 1, Y: 1, Z: 3}},
			want:   kernel.XY(3),
			wantOK: true,
		},
		{
			name:   "line reuses known plane",
			c:      kernel.Line3D{P0: v3.Vec{Y: -1}, P1: v3.Vec{X: 1, Y: 4, Z: -1}},
			known:  []kernel.Placement{kernel.XY(5), tilted},
			want:   tilted,
			wantOK: true,
		},
		{
			name: "sloped line without known plane",
			c:    kernel.Line3D{P0: v3.Vec{}, P1: v3.Vec{X: 1, Z: 1}},
		},
		{
			name: "polyline in vertical plane",
			c: kernel.Polyline3D{Points: []v3.Vec{
				{}, {X: 1}, {X: 1, Z: 1},
			}},
			want:   kernel.NewPlacement(v3.Vec{}, v3.Vec{Y: 1}),
			wantOK: true,
		},
		{
			name: "twisted polyline",
			c: kernel.Polyline3D{Points: []v3.Vec{
				{}, {X: 1}, {X: 1, Y: 1}, {Y: 1, Z: 1},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok, err := k.Plane(tt.c, tt.known)
			if err != nil {
				t.Fatalf("Plane: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !p.Equal(tt.want, 1e-9) {
				t.Errorf("placement = %v, want %v", p, tt.want)
			}
		})
	}
}

func TestPlaneDegenerate(t *testing.T) {
	k := New()
	bad := []kernel.Curve3D{
		kernel.Circle3D{Normal: v3.Vec{Z: 1}},
		kernel.Line3D{P0: v3.Vec{X: 1}, P1: v3.Vec{X: 1}},
		kernel.Polyline3D{Points: []v3.Vec{{}}},
	}
	for _, c := range bad {
		if _, _, err := k.Plane(c, nil); !errors.Is(err, kernel.ErrDegenerate) {
			t.Errorf("%s: err = %v, want ErrDegenerate", c.Kind(), err)
		}
	}
}

func TestProjectArcAgainstNormal(t *testing.T) {
	k := New()
	arc := kernel.Arc3D{
		Center: v3.Vec{},
		Normal: v3.Vec{Z: -1},
		Start:  v3.Vec{X: 1},
		Sweep:  math.Pi / 2,
	}
	pc, err := k.Project(arc, kernel.XY(0))
	if err != nil {
		t.Fatal(err)
	}
	a := pc.(kernel.ArcCurve)
	if a.Sweep >= 0 {
		t.Errorf("sweep = %g, want negative", a.Sweep)
	}
	if got := kernel.End(a); got.Distance(curve.Pt(0, -1)) > 1e-9 {
		t.Errorf("end = %v, want (0, -1)", got)
	}
}

func TestProjectPolylineClosesItself(t *testing.T) {
	k := New()
	pl := kernel.Polyline3D{Points: []v3.Vec{
		{}, {X: 1}, {X: 1}, {X: 1, Y: 1}, {},
	}}
	pc, err := k.Project(pl, kernel.XY(0))
	if err != nil {
		t.Fatal(err)
	}
	c := pc.(kernel.Contour)
	if !c.Periodic {
		t.Error("contour should be periodic")
	}
	if len(c.Pieces) != 3 {
		t.Errorf("pieces = %d, want 3", len(c.Pieces))
	}
}

// --- Intersect ---

func TestIntersect(t *testing.T) {
	k := New()
	tests := []struct {
		name  string
		a, b  kernel.PlanarCurve
		wantT []float64
	}{
		{
			name:  "crossing segments",
			a:     kernel.Segment{P0: curve.Pt(0, 0), P1: curve.Pt(2, 2)},
			b:     kernel.Segment{P0: curve.Pt(0, 2), P1: curve.Pt(2, 0)},
			wantT: []float64{0.5},
		},
		{
			name:  "tee junction snaps to endpoint",
			a:     kernel.Segment{P0: curve.Pt(0, 0), P1: curve.Pt(1, 1.0004)},
			b:     kernel.Segment{P0: curve.Pt(-1, 1), P1: curve.Pt(3, 1)},
			wantT: []float64{1},
		},
		{
			name: "disjoint",
			a:    kernel.Segment{P0: curve.Pt(0, 0), P1: curve.Pt(1, 0)},
			b:    kernel.Segment{P0: curve.Pt(0, 1), P1: curve.Pt(1, 1)},
		},
		{
			name:  "overlapping circles",
			a:     kernel.CircleCurve{Radius: 1},
			b:     kernel.CircleCurve{Center: curve.Pt(1, 0), Radius: 1},
			wantT: []float64{math.Pi / 3, 5 * math.Pi / 3},
		},
		{
			name:  "tangent circles",
			a:     kernel.CircleCurve{Radius: 1},
			b:     kernel.CircleCurve{Center: curve.Pt(2, 0), Radius: 1},
			wantT: []float64{0},
		},
		{
			name: "concentric circles",
			a:    kernel.CircleCurve{Radius: 1},
			b:    kernel.CircleCurve{Radius: 2},
		},
		{
			name:  "segment through circle",
			a:     kernel.Segment{P0: curve.Pt(-2, 0), P1: curve.Pt(2, 0)},
			b:     kernel.CircleCurve{Radius: 1},
			wantT: []float64{0.25, 0.75},
		},
		{
			name:  "segment misses arc",
			a:     kernel.Segment{P0: curve.Pt(-2, 0.5), P1: curve.Pt(0, 0.5)},
			b:     kernel.ArcCurve{Radius: 1, Start: -math.Pi / 2, Sweep: math.Pi},
			wantT: nil,
		},
		{
			name:  "horizontal segment across a downward one",
			a:     kernel.Segment{P0: curve.Pt(-1, 0), P1: curve.Pt(1, 0)},
			b:     kernel.Segment{P0: curve.Pt(0, 1), P1: curve.Pt(0, -1)},
			wantT: []float64{0.5},
		},
		{
			name:  "leftward segment across an upward one",
			a:     kernel.Segment{P0: curve.Pt(1, 0), P1: curve.Pt(-1, 0)},
			b:     kernel.Segment{P0: curve.Pt(0, -1), P1: curve.Pt(0, 1)},
			wantT: []float64{0.5},
		},
		{
			name:  "both segments decreasing",
			a:     kernel.Segment{P0: curve.Pt(3, 1), P1: curve.Pt(-1, 1)},
			b:     kernel.Segment{P0: curve.Pt(1, 3), P1: curve.Pt(1, -1)},
			wantT: []float64{0.5},
		},
		{
			name:  "leftward segment through circle",
			a:     kernel.Segment{P0: curve.Pt(2, 0), P1: curve.Pt(-2, 0)},
			b:     kernel.CircleCurve{Radius: 1},
			wantT: []float64{0.25, 0.75},
		},
		{
			name:  "leftward line across the back edges of a square",
			a:     square(0, 0, 1),
			b:     kernel.Segment{P0: curve.Pt(2, 0.5), P1: curve.Pt(-1, 0.5)},
			wantT: []float64{1.5, 3.5},
		},
		{
			name:  "square corner touching a line counts once",
			a:     square(0, 0, 1),
			b:     kernel.Segment{P0: curve.Pt(1, 1), P1: curve.Pt(2, 2)},
			wantT: []float64{2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xs, err := k.Intersect(tt.a, tt.b, tol)
			if err != nil {
				t.Fatal(err)
			}
			if len(xs) != len(tt.wantT) {
				t.Fatalf("got %d crossings %+v, want %d", len(xs), xs, len(tt.wantT))
			}
			for i, x := range xs {
				if math.Abs(x.T-tt.wantT[i]) > 1e-6 {
					t.Errorf("crossing %d: T = %g, want %g", i, x.T, tt.wantT[i])
				}
				if d := x.Point.Distance(tt.a.Eval(x.T)); d > tol {
					t.Errorf("crossing %d: point is %g away from a", i, d)
				}
				if d := x.Point.Distance(tt.b.Eval(x.OtherT)); d > tol {
					t.Errorf("crossing %d: point is %g away from b", i, d)
				}
			}
		})
	}
}

// --- Trim ---

func TestTrimCircleWrapsSeam(t *testing.T) {
	k := New()
	c := kernel.CircleCurve{Radius: 2}
	got, err := k.Trim(c, 3*math.Pi/2, math.Pi/2)
	if err != nil {
		t.Fatal(err)
	}
	a := got.(kernel.ArcCurve)
	if math.Abs(a.Sweep-math.Pi) > 1e-12 {
		t.Errorf("sweep = %g, want π", a.Sweep)
	}
	if a.Eval(0.5).Distance(curve.Pt(2, 0)) > 1e-9 {
		t.Errorf("wrapped arc should pass through (2, 0)")
	}
}

func TestTrimContour(t *testing.T) {
	k := New()
	sq := square(0, 0, 1)

	one, err := k.Trim(sq, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := one.(kernel.Segment); !ok {
		t.Errorf("single-piece span = %T, want Segment", one)
	}

	wrap, err := k.Trim(sq, 3.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := wrap.(kernel.Contour)
	if !ok || len(c.Pieces) != 2 || c.Periodic {
		t.Fatalf("wrapping span = %+v, want open two-piece contour", wrap)
	}
	if kernel.Start(c).Distance(curve.Pt(0, 0.5)) > 1e-12 || kernel.End(c).Distance(curve.Pt(0.5, 0)) > 1e-12 {
		t.Errorf("wrapping span runs %v -> %v", kernel.Start(c), kernel.End(c))
	}

	if _, err := k.Trim(kernel.Segment{P1: curve.Pt(1, 0)}, 0.5, 0.5); !errors.Is(err, kernel.ErrDegenerate) {
		t.Errorf("empty span err = %v, want ErrDegenerate", err)
	}
}

func TestDecompose(t *testing.T) {
	k := New()
	if n := len(k.Decompose(square(0, 0, 1))); n != 4 {
		t.Errorf("square decomposes into %d pieces, want 4", n)
	}
	if n := len(k.Decompose(kernel.CircleCurve{Radius: 1})); n != 1 {
		t.Errorf("circle decomposes into %d pieces, want 1", n)
	}
}

// --- OuterContours and Regions ---

func TestOuterContours(t *testing.T) {
	k := New()
	tests := []struct {
		name      string
		segments  []kernel.PlanarCurve
		wantLoops int
		wantArea  float64
	}{
		{
			name:      "square",
			segments:  []kernel.PlanarCurve{square(0, 0, 2)},
			wantLoops: 1,
			wantArea:  4,
		},
		{
			name: "square with dangling tail",
			segments: []kernel.PlanarCurve{
				square(0, 0, 1),
				kernel.Segment{P0: curve.Pt(1, 1), P1: curve.Pt(3, 3)},
			},
			wantLoops: 1,
			wantArea:  1,
		},
		{
			name: "two overlapping circles",
			segments: []kernel.PlanarCurve{
				kernel.CircleCurve{Radius: 1},
				kernel.CircleCurve{Center: curve.Pt(1, 0), Radius: 1},
			},
			wantLoops: 1,
			wantArea:  2*math.Pi - (2*math.Pi/3 - math.Sqrt(3)/2),
		},
		{
			name: "two disjoint squares",
			segments: []kernel.PlanarCurve{
				square(0, 0, 1),
				square(5, 5, 1),
			},
			wantLoops: 2,
			wantArea:  2,
		},
		{
			name: "squares joined by a bridge",
			segments: []kernel.PlanarCurve{
				square(0, 0, 1),
				square(3, 0, 1),
				kernel.Segment{P0: curve.Pt(1, 0.5), P1: curve.Pt(3, 0.5)},
			},
			wantLoops: 2,
			wantArea:  2,
		},
		{
			name: "triangle of overshooting lines running backwards",
			segments: []kernel.PlanarCurve{
				kernel.Segment{P0: curve.Pt(5, 0), P1: curve.Pt(-1, 0)},
				kernel.Segment{P0: curve.Pt(0, -1), P1: curve.Pt(0, 5)},
				kernel.Segment{P0: curve.Pt(4.5, -0.5), P1: curve.Pt(-0.5, 4.5)},
			},
			wantLoops: 1,
			wantArea:  8,
		},
		{
			name:     "open polyline",
			segments: []kernel.PlanarCurve{kernel.Segment{P1: curve.Pt(1, 1)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loops, err := k.OuterContours(tt.segments, tol)
			if err != nil {
				t.Fatal(err)
			}
			if len(loops) != tt.wantLoops {
				t.Fatalf("got %d loops, want %d", len(loops), tt.wantLoops)
			}
			var area float64
			for _, l := range loops {
				if l.Area <= 0 {
					t.Errorf("loop area %g is not counter-clockwise", l.Area)
				}
				area += l.Area
			}
			if math.Abs(area-tt.wantArea) > 1e-2 {
				t.Errorf("total area = %g, want %g", area, tt.wantArea)
			}
		})
	}
}

func TestRegionsNesting(t *testing.T) {
	k := New()
	loops, err := k.OuterContours([]kernel.PlanarCurve{
		kernel.CircleCurve{Radius: 3},
		kernel.CircleCurve{Radius: 2},
		kernel.CircleCurve{Radius: 1},
	}, tol)
	if err != nil {
		t.Fatal(err)
	}
	if len(loops) != 3 {
		t.Fatalf("got %d loops, want 3", len(loops))
	}

	regions, err := k.Regions(loops)
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}
	var ring, disc int
	for _, r := range regions {
		switch len(r.Holes) {
		case 1:
			ring++
			if math.Abs(r.Area()-5*math.Pi) > 1e-2 {
				t.Errorf("ring area = %g, want 5π", r.Area())
			}
		case 0:
			disc++
		}
	}
	if ring != 1 || disc != 1 {
		t.Errorf("got %d rings and %d discs, want one of each", ring, disc)
	}
}
