package region

import (
	"context"
	"math"
	"testing"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/kernel/sdfx"
	"github.com/chazu/curvenet/pkg/planar"
	"github.com/chazu/curvenet/pkg/store"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

type fixture struct {
	store   *store.Store
	db      *planar.Database
	regions *Manager
}

func newFixture() *fixture {
	s := store.New()
	k := sdfx.New()
	db := planar.New(k, s, planar.DefaultConfig())
	return &fixture{store: s, db: db, regions: New(db, k, s)}
}

func (f *fixture) circle(t *testing.T, x, y, z, r float64) store.ItemID {
	t.Helper()
	id := f.store.Add(store.CurveData{Curve: kernel.Circle3D{
		Center: v3.Vec{X: x, Y: y, Z: z}, Normal: v3.Vec{Z: 1}, Radius: r,
	}}, store.User)
	if err := f.db.Add(context.Background(), id); err != nil {
		t.Fatalf("add %s: %v", id, err)
	}
	return id
}

func (f *fixture) remove(t *testing.T, id store.ItemID) {
	t.Helper()
	if err := f.db.Remove(context.Background(), id); err != nil {
		t.Fatalf("remove %s: %v", id, err)
	}
	if err := f.store.Remove(id, store.User); err != nil {
		t.Fatalf("remove %s: %v", id, err)
	}
}

func (f *fixture) update(t *testing.T, p kernel.Placement) {
	t.Helper()
	if err := f.regions.UpdatePlacement(context.Background(), p); err != nil {
		t.Fatalf("update %s: %v", p, err)
	}
}

func TestOverlappingCircles(t *testing.T) {
	f := newFixture()
	a := f.circle(t, 0, 0, 0, 1)
	b := f.circle(t, 1.1, 0, 0, 1)
	p := kernel.XY(0)

	f.update(t, p)
	if n := f.store.Count(store.KindRegion); n != 1 {
		t.Fatalf("regions = %d, want 1", n)
	}

	f.remove(t, a)
	f.update(t, p)
	if n := f.store.Count(store.KindRegion); n != 1 {
		t.Errorf("after removing one circle: regions = %d, want 1", n)
	}

	f.remove(t, b)
	f.update(t, p)
	if n := f.store.Count(store.KindRegion); n != 0 {
		t.Errorf("after removing both circles: regions = %d, want 0", n)
	}
}

func TestOffsetCircles(t *testing.T) {
	f := newFixture()
	f.circle(t, 0, 0, 0, 1)
	top := f.circle(t, 0, 0, 2, 1)

	for _, p := range f.db.Placements() {
		f.update(t, p)
	}
	if n := f.store.Count(store.KindRegion); n != 2 {
		t.Fatalf("regions = %d, want 2", n)
	}
	if got := len(f.regions.Regions(kernel.XY(2))); got != 1 {
		t.Errorf("regions on z=2: %d, want 1", got)
	}

	f.remove(t, top)
	f.update(t, kernel.XY(2))
	if n := f.store.Count(store.KindRegion); n != 1 {
		t.Errorf("after removing the top circle: regions = %d, want 1", n)
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	f := newFixture()
	f.circle(t, 0, 0, 0, 1)
	f.circle(t, 1.1, 0, 0, 1)
	f.circle(t, 5, 0, 0, 1)
	p := kernel.XY(0)

	f.update(t, p)
	first := areas(f)
	f.update(t, p)
	second := areas(f)

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("region counts %d and %d, want 2", len(first), len(second))
	}
	for i := range first {
		if math.Abs(first[i]-second[i]) > 1e-9 {
			t.Errorf("region %d area changed from %g to %g", i, first[i], second[i])
		}
	}
}

func TestRingHasHole(t *testing.T) {
	f := newFixture()
	f.circle(t, 0, 0, 0, 2)
	f.circle(t, 0, 0, 0, 1)
	f.update(t, kernel.XY(0))

	items := f.store.Find(store.KindRegion)
	if len(items) != 1 {
		t.Fatalf("regions = %d, want 1", len(items))
	}
	r := items[0].Data.(store.RegionData).Region
	if len(r.Holes) != 1 {
		t.Errorf("holes = %d, want 1", len(r.Holes))
	}
	if got, want := r.Area(), 3*math.Pi; math.Abs(got-want) > 1e-2 {
		t.Errorf("area = %g, want %g", got, want)
	}
}

func TestRebuildLeavesOtherPlanesAlone(t *testing.T) {
	f := newFixture()
	f.circle(t, 0, 0, 0, 1)
	f.circle(t, 0, 0, 4, 1)
	f.update(t, kernel.XY(0))
	f.update(t, kernel.XY(4))
	before := f.regions.Regions(kernel.XY(4))

	f.update(t, kernel.XY(0))
	after := f.regions.Regions(kernel.XY(4))
	if len(before) != 1 || len(after) != 1 || before[0] != after[0] {
		t.Errorf("regions on z=4 changed from %v to %v", before, after)
	}
}

func TestRegionItemsAreAutomatic(t *testing.T) {
	f := newFixture()
	f.circle(t, 0, 0, 0, 1)

	var events []store.Event
	cancel := f.store.Subscribe(func(e store.Event) {
		if e.ItemKind == store.KindRegion {
			events = append(events, e)
		}
	})
	defer cancel()

	f.update(t, kernel.XY(0))
	if len(events) != 1 {
		t.Fatalf("region events = %d, want 1", len(events))
	}
	if events[0].Kind != store.EventAdded || events[0].Origin != store.Automatic {
		t.Errorf("event = %+v, want an automatic add", events[0])
	}
}

func areas(f *fixture) []float64 {
	var out []float64
	for _, it := range f.store.Find(store.KindRegion) {
		out = append(out, it.Data.(store.RegionData).Region.Area())
	}
	return out
}
