package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/curvenet/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites sketch source before passing it to zygomys. It
// performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: closed-polyline -> closed_polyline
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a model-space point or direction.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpCurveRef refers to a curve already added to the sketch.
type sexpCurveRef struct {
	index int
	kind  kernel.CurveKind
	name  string
}

func (c *sexpCurveRef) SexpString(ps *zygo.PrintState) string {
	if c.name != "" {
		return fmt.Sprintf("(curve %q)", c.name)
	}
	return fmt.Sprintf("(%s #%d)", c.kind, c.index)
}
func (c *sexpCurveRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// kwFloat reads an optional numeric keyword argument.
func (a kwArgs) kwFloat(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// kwVec3 reads an optional vector keyword argument.
func (a kwArgs) kwVec3(key string, def v3.Vec) (v3.Vec, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return v3.Vec{}, fmt.Errorf("%s: %w", key, err)
	}
	return vec, nil
}

// name reads the optional :name keyword.
func (a kwArgs) name() (string, error) {
	v, ok := a.kw["name"]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("name: %w", err)
	}
	return s, nil
}

// points converts every positional argument to a vector.
func (a kwArgs) points() ([]v3.Vec, error) {
	pts := make([]v3.Vec, 0, len(a.positional))
	for i, p := range a.positional {
		v, err := toVec3(p)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		pts = append(pts, v)
	}
	return pts, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

var worldZ = v3.Vec{Z: 1}

// registerBuiltins installs the sketch builtins into a zygomys environment.
// Every curve builtin appends to sk and returns a reference to the new
// curve.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sk *Sketch) {
	emit := func(fn string, a kwArgs, c kernel.Curve3D) (zygo.Sexp, error) {
		name, err := a.name()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		if _, dup := sk.Lookup(name); dup {
			return zygo.SexpNull, fmt.Errorf("%s: duplicate curve name %q", fn, name)
		}
		return &sexpCurveRef{index: sk.add(name, c), kind: c.Kind(), name: name}, nil
	}

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, arg := range args {
			f, err := toFloat64(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (deg 90) converts degrees to radians.
	env.AddFunction("deg", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("deg requires exactly 1 argument, got %d", len(args))
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("deg: %w", err)
		}
		return &zygo.SexpFloat{Val: f * math.Pi / 180}, nil
	})

	// (line (vec3 0 0 0) (vec3 1 0 0) :name "base")
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		a := parseArgs(args)
		if len(a.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("line requires 2 points, got %d", len(a.positional))
		}
		pts, err := a.points()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		return emit("line", a, kernel.Line3D{P0: pts[0], P1: pts[1]})
	})

	// (circle :center (vec3 0 0 0) :normal (vec3 0 0 1) :radius 5)
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		a := parseArgs(args)
		center, err := a.kwVec3("center", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		normal, err := a.kwVec3("normal", worldZ)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		r, err := a.kwFloat("radius", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		if r <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: radius must be positive, got %g", r)
		}
		return emit("circle", a, kernel.Circle3D{Center: center, Normal: normal, Radius: r})
	})

	// (arc :center (vec3 0 0 0) :start (vec3 1 0 0) :sweep (deg 90))
	env.AddFunction("arc", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		a := parseArgs(args)
		center, err := a.kwVec3("center", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		normal, err := a.kwVec3("normal", worldZ)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		if _, ok := a.kw["start"]; !ok {
			return zygo.SexpNull, fmt.Errorf("arc: start point is required")
		}
		start, err := a.kwVec3("start", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		sweep, err := a.kwFloat("sweep", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		if sweep == 0 {
			return zygo.SexpNull, fmt.Errorf("arc: sweep must be non-zero")
		}
		return emit("arc", a, kernel.Arc3D{Center: center, Normal: normal, Start: start, Sweep: sweep})
	})

	// (polyline :closed true (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0))
	env.AddFunction("polyline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		a := parseArgs(args)
		closed := false
		if v, ok := a.kw["closed"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polyline: closed: %w", err)
			}
			closed = b
		}
		return polyline("polyline", a, closed, emit)
	})

	// (polygon (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0))
	env.AddFunction("polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return polyline("polygon", parseArgs(args), true, emit)
	})

	// (curve "name")
	env.AddFunction("curve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("curve requires a name argument")
		}
		curveName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("curve: name: %w", err)
		}
		i, ok := sk.Lookup(curveName)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("curve: no curve named %q", curveName)
		}
		return &sexpCurveRef{index: i, kind: sk.Curves[i].Curve.Kind(), name: curveName}, nil
	})
}

func polyline(fn string, a kwArgs, closed bool, emit func(string, kwArgs, kernel.Curve3D) (zygo.Sexp, error)) (zygo.Sexp, error) {
	pts, err := a.points()
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	need := 2
	if closed {
		need = 3
	}
	if len(pts) < need {
		return zygo.SexpNull, fmt.Errorf("%s requires at least %d points, got %d", fn, need, len(pts))
	}
	return emit(fn, a, kernel.Polyline3D{Points: pts, Closed: closed})
}
