package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/curvenet/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(circle :radius 5)`,
			expect: `(circle "__kw_radius" 5)`,
		},
		{
			name:   "multiple keywords",
			input:  `(circle :radius 5 :name "hub")`,
			expect: `(circle "__kw_radius" 5 "__kw_name" "hub")`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def outer-ring 3)`,
			expect: `(def outer_ring 3)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:start-point`,
			expect: `"__kw_start-point"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Curve builtins
// ---------------------------------------------------------------------------

func evalSketch(t *testing.T, source string) *Sketch {
	t.Helper()
	sk, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if sk == nil {
		t.Fatal("expected non-nil sketch")
	}
	return sk
}

func TestCircle(t *testing.T) {
	sk := evalSketch(t, `(circle :center (vec3 1 2 3) :radius 4 :name "hub")`)
	if len(sk.Curves) != 1 {
		t.Fatalf("expected 1 curve, got %d", len(sk.Curves))
	}
	c, ok := sk.Curves[0].Curve.(kernel.Circle3D)
	if !ok {
		t.Fatalf("expected Circle3D, got %T", sk.Curves[0].Curve)
	}
	if c.Center != (v3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("center = %v", c.Center)
	}
	if c.Normal != (v3.Vec{Z: 1}) {
		t.Errorf("default normal = %v, want +Z", c.Normal)
	}
	if c.Radius != 4 {
		t.Errorf("radius = %g, want 4", c.Radius)
	}
	if sk.Curves[0].Name != "hub" {
		t.Errorf("name = %q, want hub", sk.Curves[0].Name)
	}
}

func TestLineAndArc(t *testing.T) {
	sk := evalSketch(t, `
; a quarter arc closed off by two lines
(line (vec3 0 0 0) (vec3 1 0 0))
(arc :center (vec3 0 0 0) :start (vec3 1 0 0) :sweep (deg 90))
(line (vec3 0 1 0) (vec3 0 0 0))
`)
	if len(sk.Curves) != 3 {
		t.Fatalf("expected 3 curves, got %d", len(sk.Curves))
	}
	l, ok := sk.Curves[0].Curve.(kernel.Line3D)
	if !ok || l.P1 != (v3.Vec{X: 1}) {
		t.Errorf("first curve = %#v", sk.Curves[0].Curve)
	}
	a, ok := sk.Curves[1].Curve.(kernel.Arc3D)
	if !ok {
		t.Fatalf("expected Arc3D, got %T", sk.Curves[1].Curve)
	}
	if math.Abs(a.Sweep-math.Pi/2) > 1e-12 {
		t.Errorf("sweep = %g, want π/2", a.Sweep)
	}
	if a.Radius() != 1 {
		t.Errorf("radius = %g, want 1", a.Radius())
	}
}

func TestPolylineAndPolygon(t *testing.T) {
	sk := evalSketch(t, `
(polyline (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0))
(polyline :closed true (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0))
(polygon :name "tri" (vec3 0 0 0) (vec3 2 0 0) (vec3 0 2 0))
`)
	want := []bool{false, true, true}
	if len(sk.Curves) != len(want) {
		t.Fatalf("expected %d curves, got %d", len(want), len(sk.Curves))
	}
	for i, closed := range want {
		p, ok := sk.Curves[i].Curve.(kernel.Polyline3D)
		if !ok {
			t.Fatalf("curve %d: expected Polyline3D, got %T", i, sk.Curves[i].Curve)
		}
		if p.Closed != closed {
			t.Errorf("curve %d: closed = %v, want %v", i, p.Closed, closed)
		}
		if len(p.Points) != 3 {
			t.Errorf("curve %d: %d points, want 3", i, len(p.Points))
		}
	}
	if i, ok := sk.Lookup("tri"); !ok || i != 2 {
		t.Errorf("Lookup(tri) = %d, %v", i, ok)
	}
}

func TestScriptComputesGeometry(t *testing.T) {
	sk := evalSketch(t, `
(def r 2)
(circle :center (vec3 0 0 0) :radius r :name "rim")
(circle :center (vec3 (* r 1.5) 0 0) :radius r)
(curve "rim")
`)
	if len(sk.Curves) != 2 {
		t.Fatalf("expected 2 curves, got %d", len(sk.Curves))
	}
	c := sk.Curves[1].Curve.(kernel.Circle3D)
	if c.Center.X != 3 {
		t.Errorf("second center x = %g, want 3", c.Center.X)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"vec3 arity", `(vec3 1 2)`, "exactly 3"},
		{"vec3 type", `(vec3 1 "a" 3)`, "expected number"},
		{"line arity", `(line (vec3 0 0 0))`, "2 points"},
		{"circle radius", `(circle :radius 0)`, "radius must be positive"},
		{"circle center type", `(circle :center 5 :radius 1)`, "expected vec3"},
		{"arc without start", `(arc :sweep 1)`, "start point"},
		{"arc zero sweep", `(arc :start (vec3 1 0 0) :sweep 0)`, "non-zero"},
		{"polygon too short", `(polygon (vec3 0 0 0) (vec3 1 0 0))`, "at least 3"},
		{"polyline closed flag", `(polyline :closed 1 (vec3 0 0 0) (vec3 1 0 0))`, "true or false"},
		{"duplicate name", `(circle :radius 1 :name "a") (circle :radius 2 :name "a")`, "duplicate"},
		{"unknown curve", `(curve "nope")`, "no curve named"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sk, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if sk != nil {
				t.Error("expected nil sketch on error")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.wantMsg)
			}
		})
	}
}
