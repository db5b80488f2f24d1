package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/chazu/curvenet/pkg/planar"
)

func evaluate(t *testing.T, source string) EvalResult {
	t.Helper()
	return NewApp(planar.DefaultConfig()).Evaluate(context.Background(), source)
}

// TestE2ELensExample exercises the full pipeline: script → engine → sketch
// → contour manager → fragments and regions.
func TestE2ELensExample(t *testing.T) {
	source, err := os.ReadFile("../../examples/lens.sketch")
	if err != nil {
		t.Fatalf("failed to read lens.sketch: %v", err)
	}
	result := evaluate(t, string(source))

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if len(result.Findings) > 0 {
		t.Errorf("validation findings: %v", result.Findings)
	}
	if result.Curves != 6 {
		t.Errorf("expected 6 curves, got %d", result.Curves)
	}
	if len(result.Planes) != 2 {
		t.Fatalf("expected 2 planes, got %d", len(result.Planes))
	}

	ground, upper := result.Planes[0], result.Planes[1]
	fragments := map[string]int{}
	for _, c := range ground.Curves {
		fragments[c.Name] = c.Fragments
	}
	want := map[string]int{"left": 2, "right": 2, "plate": 4, "bore": 1}
	for name, n := range want {
		if fragments[name] != n {
			t.Errorf("%s: %d fragments, want %d", name, fragments[name], n)
		}
	}
	if len(ground.Regions) != 2 {
		t.Errorf("ground plane: %d regions, want 2", len(ground.Regions))
	}
	var holes int
	for _, r := range ground.Regions {
		holes += r.Holes
	}
	if holes != 1 {
		t.Errorf("ground plane: %d holes, want 1", holes)
	}

	if len(upper.Regions) != 1 {
		t.Fatalf("upper plane: %d regions, want 1", len(upper.Regions))
	}
	ring := upper.Regions[0]
	if want := math.Pi * (4 - 2.25); math.Abs(ring.Area-want) > 1e-2 {
		t.Errorf("ring area = %g, want %g", ring.Area, want)
	}
}

func TestE2EEmptySource(t *testing.T) {
	result := evaluate(t, "")
	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if result.Curves != 0 || len(result.Planes) != 0 {
		t.Errorf("expected an empty network, got %d curves on %d planes", result.Curves, len(result.Planes))
	}
}

func TestE2ECommentsOnly(t *testing.T) {
	result := evaluate(t, ";; nothing here\n; or here\n")
	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	if result.Curves != 0 {
		t.Errorf("expected no curves, got %d", result.Curves)
	}
}

func TestE2ESyntaxError(t *testing.T) {
	result := evaluate(t, "(circle :radius 1")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for unbalanced parens")
	}
	if len(result.Planes) != 0 {
		t.Errorf("expected no planes on error, got %d", len(result.Planes))
	}
}

func TestE2EBuiltinError(t *testing.T) {
	result := evaluate(t, "(circle :radius -1)")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for a negative radius")
	}
	if !strings.Contains(result.Errors[0].Message, "radius") {
		t.Errorf("message = %q", result.Errors[0].Message)
	}
}

func TestE2ENonPlanarCurve(t *testing.T) {
	result := evaluate(t, `
(line (vec3 0 0 0) (vec3 1 1 1))
(circle :radius 1)
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Curves != 2 {
		t.Errorf("expected 2 curves, got %d", result.Curves)
	}
	if len(result.Planes) != 1 || len(result.Planes[0].Curves) != 1 {
		t.Errorf("only the circle should be in the network, got %+v", result.Planes)
	}
}

func TestE2ETiltedPlane(t *testing.T) {
	result := evaluate(t, `
(circle :center (vec3 0 0 0) :normal (vec3 1 0 0) :radius 1)
(circle :center (vec3 0 1.1 0) :normal (vec3 -1 0 0) :radius 1)
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Planes) != 1 {
		t.Fatalf("opposite normals share a plane, got %d planes", len(result.Planes))
	}
	for _, c := range result.Planes[0].Curves {
		if c.Fragments != 2 {
			t.Errorf("curve %s: %d fragments, want 2", c.ID, c.Fragments)
		}
	}
	if len(result.Planes[0].Regions) != 1 {
		t.Errorf("expected 1 region, got %d", len(result.Planes[0].Regions))
	}
}

func TestE2ERepeatedEvaluation(t *testing.T) {
	app := NewApp(planar.DefaultConfig())
	src := "(circle :radius 1) (circle :center (vec3 1.1 0 0) :radius 1)"
	for i := 0; i < 5; i++ {
		r := app.Evaluate(context.Background(), src)
		if len(r.Errors) > 0 {
			t.Fatalf("iteration %d: %v", i, r.Errors)
		}
		if len(r.Planes) != 1 || len(r.Planes[0].Regions) != 1 {
			t.Fatalf("iteration %d: each evaluation starts from a fresh network", i)
		}
	}
}

func TestRunJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-json"}, strings.NewReader("(circle :radius 1 :name \"c\")"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	var r EvalResult
	if err := json.Unmarshal(stdout.Bytes(), &r); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if len(r.Planes) != 1 || r.Planes[0].Curves[0].Name != "c" {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestRunText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"../../examples/lens.sketch"}, nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"6 curves on 2 planes", "plate", "region"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		in   string
		code int
	}{
		{"bad flag", []string{"-nope"}, "", 2},
		{"too many files", []string{"a", "b"}, "", 2},
		{"missing file", []string{"does-not-exist.sketch"}, "", 1},
		{"script error", nil, "(vec3 1)", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, strings.NewReader(tt.in), &stdout, &stderr); code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
		})
	}
}
