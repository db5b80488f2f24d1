package planar

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/store"
)

// span is a parameter range [start, stop) of a planar curve. On closed
// curves stop may be below start, in which case the span wraps the seam.
type span struct {
	start, stop float64
}

// whole is the sentinel span of an untouched curve.
var whole = span{start: -1, stop: -1}

// cut is a crossing of a curve with one of its coplanar neighbours.
type cut struct {
	t          float64
	other      store.ItemID
	otherT     float64
	otherCurve kernel.PlanarCurve
}

type fragmentJob struct {
	info  *CurveInfo
	spans []span
}

// retrim recomputes fragments starting from seed. The seed's neighbours
// are recomputed too, but their own neighbours are not. extra lists curves
// to recompute alongside the seed's neighbours; seed may be zero.
func (db *Database) retrim(seed store.ItemID, extra []store.ItemID) error {
	type work struct {
		id    store.ItemID
		depth int
	}
	var queue []work
	visited := make(map[store.ItemID]bool)

	db.mu.Lock()
	if _, ok := db.infos[seed]; ok {
		visited[seed] = true
		queue = append(queue, work{id: seed})
	}
	for _, id := range extra {
		if _, ok := db.infos[id]; ok && !visited[id] {
			visited[id] = true
			queue = append(queue, work{id: id, depth: 1})
		}
	}

	var jobs []fragmentJob
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		info := db.infos[w.id]

		cuts, err := db.crossings(info)
		if err != nil {
			db.mu.Unlock()
			return err
		}
		for _, c := range cuts {
			info.Touched[c.other] = struct{}{}
			db.infos[c.other].Touched[info.Curve] = struct{}{}
			if w.depth == 0 && !visited[c.other] {
				visited[c.other] = true
				queue = append(queue, work{id: c.other, depth: 1})
			}
		}

		spans, joints := db.spans(info.Planar.Curve, cuts)
		info.Joints = joints
		jobs = append(jobs, fragmentJob{info: info, spans: spans})
	}
	db.mu.Unlock()

	return db.runFragmentJobs(jobs)
}

// crossings intersects info's curve with every other curve on its
// placement. The caller holds db.mu.
func (db *Database) crossings(info *CurveInfo) ([]cut, error) {
	var cuts []cut
	for _, id := range db.memberIDs() {
		other := db.infos[id]
		if id == info.Curve || other.PlacementIndex != info.PlacementIndex {
			continue
		}
		xs, err := db.kernel.Intersect(info.Planar.Curve, other.Planar.Curve, db.cfg.IntersectionTolerance)
		if err != nil {
			return nil, fmt.Errorf("intersect %s with %s: %w", info.Curve, id, err)
		}
		for _, x := range xs {
			cuts = append(cuts, cut{t: x.T, other: id, otherT: x.OtherT, otherCurve: other.Planar.Curve})
		}
	}
	return cuts, nil
}

// spans turns the cuts on c into the fragment spans that partition its
// domain. The cut points depend on the shape of c: contours are also cut at
// their corners, open curves at their ends, and closed curves wrap the last
// cut round to the first.
func (db *Database) spans(c kernel.PlanarCurve, cuts []cut) ([]span, Joints) {
	eps := db.cfg.MinSpan

	var ts []float64
	if ct, ok := c.(kernel.Contour); ok {
		ts = append(ts, ct.Corners()...)
	}
	for _, x := range cuts {
		ts = append(ts, x.t)
	}
	if len(ts) == 0 {
		return []span{whole}, Joints{}
	}
	slices.Sort(ts)
	ts = dedupe(ts, eps)

	tmin, tmax := c.Domain()
	var out []span
	var joints Joints
	if c.Closed() {
		period := tmax - tmin
		if len(ts) == 1 {
			return []span{{start: ts[0], stop: ts[0] + period}}, joints
		}
		for i := range ts {
			out = append(out, span{start: ts[i], stop: ts[(i+1)%len(ts)]})
		}
		return dropShort(out, period, eps), joints
	}

	joints = db.endJoints(c, cuts)
	if ts[0]-tmin > eps {
		ts = append([]float64{tmin}, ts...)
	} else {
		ts[0] = tmin
	}
	if tmax-ts[len(ts)-1] > eps {
		ts = append(ts, tmax)
	} else {
		ts[len(ts)-1] = tmax
	}
	for i := 0; i+1 < len(ts); i++ {
		out = append(out, span{start: ts[i], stop: ts[i+1]})
	}
	return dropShort(out, 0, eps), joints
}

// endJoints finds the curves meeting the ends of open curve c, preferring
// a curve whose own end is there too.
func (db *Database) endJoints(c kernel.PlanarCurve, cuts []cut) Joints {
	eps := db.cfg.MinSpan
	tmin, tmax := c.Domain()

	var joints Joints
	var startEnd, stopEnd bool
	for _, x := range cuts {
		atEnd := isEnd(x.otherCurve, x.otherT, eps)
		j := &Joint{Curve: x.other, T: x.otherT}
		if math.Abs(x.t-tmin) <= eps && (joints.Start == nil || atEnd && !startEnd) {
			joints.Start, startEnd = j, atEnd
		}
		if math.Abs(x.t-tmax) <= eps && (joints.Stop == nil || atEnd && !stopEnd) {
			joints.Stop, stopEnd = j, atEnd
		}
	}
	return joints
}

func isEnd(c kernel.PlanarCurve, t, eps float64) bool {
	if c.Closed() {
		return false
	}
	tmin, tmax := c.Domain()
	return math.Abs(t-tmin) <= eps || math.Abs(t-tmax) <= eps
}

func dedupe(ts []float64, eps float64) []float64 {
	out := ts[:1]
	for _, t := range ts[1:] {
		if t-out[len(out)-1] > eps {
			out = append(out, t)
		}
	}
	return out
}

// dropShort removes spans shorter than eps. period is the domain length
// of a closed curve, zero for open ones.
func dropShort(spans []span, period, eps float64) []span {
	out := spans[:0]
	for _, s := range spans {
		length := s.stop - s.start
		if period > 0 && length <= 0 {
			length += period
		}
		if length < eps {
			store.Logger().Warn("dropping degenerate span", "start", s.start, "stop", s.stop)
			continue
		}
		out = append(out, s)
	}
	return out
}

// runFragmentJobs replaces the fragment sets of every job concurrently and
// returns the first error once all have settled.
func (db *Database) runFragmentJobs(jobs []fragmentJob) error {
	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = db.updateCurve(j.info, j.spans)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// updateCurve discards the fragments of info and stores one new fragment
// per span.
func (db *Database) updateCurve(info *CurveInfo, spans []span) error {
	c := info.Planar.Curve
	trimmed := make([]kernel.PlanarCurve, len(spans))
	for i, s := range spans {
		if s == whole {
			trimmed[i] = c
			continue
		}
		t, err := db.kernel.Trim(c, s.start, s.stop)
		if err != nil {
			return fmt.Errorf("trim %s to [%g, %g): %w", info.Curve, s.start, s.stop, err)
		}
		trimmed[i] = t
	}

	db.mu.RLock()
	old := slices.Clone(info.Fragments)
	placement := info.Placement
	db.mu.RUnlock()

	ids := make([]store.ItemID, 0, len(spans))
	err := db.store.Batch(func(tx *store.Tx) error {
		for _, f := range old {
			// Already gone if the user removed it directly.
			if err := tx.Remove(f, store.Automatic); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		for i, s := range spans {
			ids = append(ids, tx.Add(store.FragmentData{
				Curve:     info.Curve,
				Start:     s.start,
				Stop:      s.stop,
				Placement: placement,
				Trimmed:   trimmed[i],
			}, store.Automatic))
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.mu.Lock()
	info.Fragments = ids
	db.mu.Unlock()
	store.Logger().Debug("trimmed curve", "curve", info.Curve, "shape", c.Shape(), "fragments", len(ids))
	return nil
}
