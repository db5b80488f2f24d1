package main

import (
	"context"

	"github.com/chazu/curvenet/pkg/contour"
	"github.com/chazu/curvenet/pkg/engine"
	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/kernel/sdfx"
	"github.com/chazu/curvenet/pkg/planar"
	"github.com/chazu/curvenet/pkg/region"
	"github.com/chazu/curvenet/pkg/store"
)

// App evaluates sketch scripts into a curve network and summarises it.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	cfg    planar.Config
}

// RegionSummary describes one region item.
type RegionSummary struct {
	ID    store.ItemID `json:"id"`
	Area  float64      `json:"area"`
	Holes int          `json:"holes"`
}

// CurveSummary describes one member curve.
type CurveSummary struct {
	ID        store.ItemID   `json:"id"`
	Name      string         `json:"name,omitempty"`
	Kind      string         `json:"kind"`
	Fragments int            `json:"fragments"`
	Touches   []store.ItemID `json:"touches,omitempty"`
}

// PlaneSummary groups the curves and regions of one placement.
type PlaneSummary struct {
	Placement kernel.Placement `json:"placement"`
	Curves    []CurveSummary   `json:"curves"`
	Regions   []RegionSummary  `json:"regions"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Curves   int             `json:"curves"`
	Planes   []PlaneSummary  `json:"planes"`
	Errors   []EvalErrorData `json:"errors"`
	Findings []string        `json:"findings,omitempty"`
}

// NewApp creates an App with the sdfx kernel and the given tolerances.
func NewApp(cfg planar.Config) *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.New(),
		cfg:    cfg,
	}
}

// Evaluate runs source and builds a fresh network from the curves it
// produces. Errors are reported in the result rather than returned.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Planes: []PlaneSummary{},
		Errors: []EvalErrorData{},
	}
	fail := func(err error) EvalResult {
		store.Logger().Error("evaluate", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	sk, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		return fail(err)
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	if len(evalErrs) > 0 {
		return result
	}

	s := store.New()
	db := planar.New(a.kernel, s, a.cfg)
	regions := region.New(db, a.kernel, s)
	m := contour.New(s, db, regions)
	defer m.Close()

	if _, err := sk.Apply(ctx, m); err != nil {
		return fail(err)
	}

	result.Curves = s.Count(store.KindCurve)
	for _, p := range db.Placements() {
		result.Planes = append(result.Planes, summarise(s, db, regions, p))
	}
	for _, f := range db.Validate() {
		result.Findings = append(result.Findings, f.Error())
	}
	return result
}

func summarise(s *store.Store, db *planar.Database, regions *region.Manager, p kernel.Placement) PlaneSummary {
	ps := PlaneSummary{Placement: p, Curves: []CurveSummary{}, Regions: []RegionSummary{}}
	for _, info := range db.FindWithSamePlacement(p) {
		cs := CurveSummary{
			ID:        info.Curve,
			Kind:      info.Planar.Curve.Shape().String(),
			Fragments: len(info.Fragments),
			Touches:   info.TouchedIDs(),
		}
		if it, ok := s.Get(info.Curve); ok {
			cs.Name = it.Name
		}
		ps.Curves = append(ps.Curves, cs)
	}
	for _, id := range regions.Regions(p) {
		it, ok := s.Get(id)
		if !ok {
			continue
		}
		r := it.Data.(store.RegionData).Region
		ps.Regions = append(ps.Regions, RegionSummary{ID: id, Area: r.Area(), Holes: len(r.Holes)})
	}
	return ps
}
