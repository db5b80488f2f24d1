package sdfx

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/dhconnelly/rtreego"
	"honnef.co/go/curve"
)

// probe is the fraction of an edge's domain used to measure the direction
// in which it leaves a vertex.
const probe = 1e-3

// flatten is the arc flattening tolerance for loops rebuilt by Regions.
const flatten = 1e-4

// vertex is a snapped graph node indexed in the R-tree.
type vertex struct {
	id  int
	pt  curve.Point
	box rtreego.Rect
}

func (v *vertex) Bounds() rtreego.Rect { return v.box }

// graph is the planar graph assembled from a segment set.
type graph struct {
	tol   float64
	tree  *rtreego.Rtree
	verts []*vertex
	edges []edge
}

type edge struct {
	from, to int
	c        kernel.PlanarCurve
	dead     bool
}

func newGraph(tol float64) *graph {
	return &graph{tol: tol, tree: rtreego.NewTree(2, 4, 16)}
}

// vertexAt returns the vertex within tol of pt, creating one if needed.
func (g *graph) vertexAt(pt curve.Point) int {
	for _, s := range g.tree.SearchIntersect(rtreego.Point{pt.X, pt.Y}.ToRect(g.tol)) {
		v := s.(*vertex)
		if v.pt.Distance(pt) <= g.tol {
			return v.id
		}
	}
	v := &vertex{id: len(g.verts), pt: pt, box: rtreego.Point{pt.X, pt.Y}.ToRect(g.tol)}
	g.verts = append(g.verts, v)
	g.tree.Insert(v)
	return v.id
}

func (g *graph) addEdge(c kernel.PlanarCurve) {
	from, to := g.vertexAt(kernel.Start(c)), g.vertexAt(kernel.End(c))
	if from == to {
		return
	}
	mid := midpoint(c)
	for _, e := range g.edges {
		// Coincident spans from overlapping curves count once.
		if ((e.from == from && e.to == to) || (e.from == to && e.to == from)) &&
			midpoint(e.c).Distance(mid) <= g.tol {
			return
		}
	}
	g.edges = append(g.edges, edge{from: from, to: to, c: c})
}

func midpoint(c kernel.PlanarCurve) curve.Point {
	tmin, tmax := c.Domain()
	return c.Eval(0.5 * (tmin + tmax))
}

// prune removes edges hanging off vertices of degree one until none are
// left.
func (g *graph) prune() {
	for {
		degree := make([]int, len(g.verts))
		for _, e := range g.edges {
			if !e.dead {
				degree[e.from]++
				degree[e.to]++
			}
		}
		changed := false
		for i := range g.edges {
			e := &g.edges[i]
			if !e.dead && (degree[e.from] < 2 || degree[e.to] < 2) {
				e.dead = true
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// halfEdge h belongs to edge h/2; even half-edges run from->to.
type halfEdge int

func (h halfEdge) twin() halfEdge { return h ^ 1 }

func (g *graph) origin(h halfEdge) int {
	e := g.edges[h/2]
	if h%2 == 0 {
		return e.from
	}
	return e.to
}

func (g *graph) curveOf(h halfEdge) kernel.PlanarCurve {
	c := g.edges[h/2].c
	if h%2 == 0 {
		return c
	}
	return kernel.Reverse(c)
}

// faces traces every face of the live graph. Each face is a cycle of
// half-edges with the face on its left.
func (g *graph) faces() [][]halfEdge {
	out := make(map[int][]halfEdge)
	angle := make(map[halfEdge]float64)
	for i, e := range g.edges {
		if e.dead {
			continue
		}
		for _, h := range [2]halfEdge{halfEdge(2 * i), halfEdge(2*i + 1)} {
			c := g.curveOf(h)
			tmin, tmax := c.Domain()
			o := g.origin(h)
			angle[h] = c.Eval(tmin + probe*(tmax-tmin)).Sub(g.verts[o].pt).Angle()
			out[o] = append(out[o], h)
		}
	}
	index := make(map[halfEdge]int)
	for _, hs := range out {
		sort.Slice(hs, func(i, j int) bool { return angle[hs[i]] < angle[hs[j]] })
		for i, h := range hs {
			index[h] = i
		}
	}

	next := func(h halfEdge) halfEdge {
		t := h.twin()
		hs := out[g.origin(t)]
		return hs[(index[t]-1+len(hs))%len(hs)]
	}

	order := make([]halfEdge, 0, len(angle))
	for h := range angle {
		order = append(order, h)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	seen := make(map[halfEdge]bool)
	var faces [][]halfEdge
	for _, h := range order {
		if seen[h] {
			continue
		}
		var face []halfEdge
		for cur := h; !seen[cur]; cur = next(cur) {
			seen[cur] = true
			face = append(face, cur)
		}
		faces = append(faces, face)
	}
	return faces
}

// dropBridges removes edges whose two sides lie on the same face. It
// reports whether anything was removed.
func (g *graph) dropBridges(faces [][]halfEdge) bool {
	faceOf := make(map[halfEdge]int)
	for i, f := range faces {
		for _, h := range f {
			faceOf[h] = i
		}
	}
	removed := false
	for h, f := range faceOf {
		if h%2 == 0 && faceOf[h.twin()] == f {
			g.edges[h/2].dead = true
			removed = true
		}
	}
	return removed
}

// splitAll cuts every atom at its crossings with every other atom.
func (k *SdfxKernel) splitAll(atoms []kernel.PlanarCurve, tol float64) ([]kernel.PlanarCurve, error) {
	cuts := make([][]float64, len(atoms))
	for i := range atoms {
		for j := i + 1; j < len(atoms); j++ {
			xs, err := k.Intersect(atoms[i], atoms[j], tol)
			if err != nil {
				return nil, err
			}
			for _, x := range xs {
				cuts[i] = append(cuts[i], x.T)
				cuts[j] = append(cuts[j], x.OtherT)
			}
		}
	}

	var out []kernel.PlanarCurve
	for i, a := range atoms {
		ts := append([]float64{0}, cuts[i]...)
		ts = append(ts, 1)
		sort.Float64s(ts)
		for j := 0; j+1 < len(ts); j++ {
			lo, hi := ts[j], ts[j+1]
			if hi-lo <= spanEpsilon {
				continue
			}
			piece, err := k.Trim(a, lo, hi)
			if err != nil {
				return nil, err
			}
			out = append(out, piece)
		}
	}
	return out, nil
}

// atomize turns the input into open Segment and ArcCurve pieces. Closed
// pieces are halved so that every edge joins two distinct vertices.
func (k *SdfxKernel) atomize(segments []kernel.PlanarCurve) ([]kernel.PlanarCurve, error) {
	var out []kernel.PlanarCurve
	for _, s := range segments {
		for _, p := range k.Decompose(s) {
			switch p := p.(type) {
			case kernel.Segment:
				out = append(out, p)
			case kernel.ArcCurve:
				if math.Abs(p.Sweep) >= 2*math.Pi-spanEpsilon {
					a, _ := k.Trim(p, 0, 0.5)
					b, _ := k.Trim(p, 0.5, 1)
					out = append(out, a, b)
					continue
				}
				out = append(out, p)
			case kernel.CircleCurve:
				a, _ := k.Trim(p, 0, math.Pi)
				b, _ := k.Trim(p, math.Pi, 2*math.Pi)
				out = append(out, a, b)
			default:
				return nil, fmt.Errorf("unsupported piece %T", p)
			}
		}
	}
	return out, nil
}

// OuterContours assembles the outer boundary of every connected group of
// segments into a counter-clockwise loop.
func (k *SdfxKernel) OuterContours(segments []kernel.PlanarCurve, tolerance float64) ([]kernel.Loop, error) {
	atoms, err := k.atomize(segments)
	if err != nil {
		return nil, err
	}
	atoms, err = k.splitAll(atoms, tolerance)
	if err != nil {
		return nil, err
	}

	g := newGraph(tolerance)
	for _, a := range atoms {
		g.addEdge(a)
	}

	var faces [][]halfEdge
	for {
		g.prune()
		faces = g.faces()
		if !g.dropBridges(faces) {
			break
		}
	}

	var loops []kernel.Loop
	for _, f := range faces {
		edges := make([]kernel.PlanarCurve, len(f))
		for i, h := range f {
			edges[i] = g.curveOf(h)
		}
		l := kernel.NewLoop(edges, tolerance)
		// Bounded faces wind counter-clockwise; the clockwise ones are the
		// outside of a connected component.
		if l.Area < 0 {
			loops = append(loops, l.Reverse(tolerance))
		}
	}
	return loops, nil
}

// Regions groups loops by even-odd nesting: loops at even depth become
// outer boundaries and the loops directly inside them become holes.
func (k *SdfxKernel) Regions(loops []kernel.Loop) ([]kernel.Region, error) {
	parent := make([]int, len(loops))
	depth := make([]int, len(loops))
	for i, l := range loops {
		if len(l.Edges) == 0 {
			return nil, fmt.Errorf("empty loop %d: %w", i, kernel.ErrDegenerate)
		}
		parent[i] = -1
		sample := l.Sample()
		for j, o := range loops {
			if i == j || math.Abs(o.Area) <= math.Abs(l.Area) || !o.Contains(sample) {
				continue
			}
			depth[i]++
			if parent[i] < 0 || math.Abs(o.Area) < math.Abs(loops[parent[i]].Area) {
				parent[i] = j
			}
		}
	}

	index := make(map[int]int)
	var regions []kernel.Region
	for i, l := range loops {
		if depth[i]%2 != 0 {
			continue
		}
		outer := l
		if outer.Area < 0 {
			outer = outer.Reverse(flatten)
		}
		index[i] = len(regions)
		regions = append(regions, kernel.Region{Outer: outer})
	}
	for i, l := range loops {
		if depth[i]%2 == 0 || parent[i] < 0 {
			continue
		}
		hole := l
		if hole.Area > 0 {
			hole = hole.Reverse(flatten)
		}
		r := &regions[index[parent[i]]]
		r.Holes = append(r.Holes, hole)
	}
	return regions, nil
}
