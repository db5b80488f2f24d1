package planar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/store"
	"github.com/google/uuid"
)

// Database is the planar curve database.
type Database struct {
	kernel kernel.Kernel
	store  *store.Store
	cfg    Config

	mu         sync.RWMutex
	infos      map[store.ItemID]*CurveInfo
	placements []kernel.Placement
}

// New creates an empty database over s.
func New(k kernel.Kernel, s *store.Store, cfg Config) *Database {
	return &Database{
		kernel: k,
		store:  s,
		cfg:    cfg,
		infos:  make(map[store.ItemID]*CurveInfo),
	}
}

// Config returns the numeric policy in use.
func (db *Database) Config() Config {
	return db.cfg
}

// Add registers the curve item id with the network and recomputes the
// fragments of every curve it touches. Non-planar, hidden or missing curves
// are not members and are left out without error. Adding a member again
// rebuilds its entry from the current item.
func (db *Database) Add(ctx context.Context, id store.ItemID) error {
	var former []store.ItemID
	if old, ok := db.Lookup(id); ok {
		former = old.TouchedIDs()
	}
	if err := db.drop(id); err != nil {
		return err
	}

	it, ok := db.store.Get(id)
	if !ok || it.Hidden {
		return db.retrimOnly(former)
	}
	cd, ok := it.Data.(store.CurveData)
	if !ok {
		return fmt.Errorf("add %s: item is a %s, not a curve", id, it.Kind)
	}

	p, planar, err := db.kernel.Plane(cd.Curve, db.Placements())
	if err != nil {
		return fmt.Errorf("add %s: plane: %w", id, err)
	}
	if !planar {
		store.Logger().Debug("curve is not planar", "curve", id, "kind", cd.Curve.Kind())
		return db.retrimOnly(former)
	}

	idx, p := db.canonical(p)
	pc, err := db.kernel.Project(cd.Curve, p)
	if err != nil {
		return fmt.Errorf("add %s: project: %w", id, err)
	}

	info := &CurveInfo{
		Curve:          id,
		Planar:         PlanarCurve{ID: uuid.New(), Curve: pc},
		Placement:      p,
		PlacementIndex: idx,
		Touched:        make(map[store.ItemID]struct{}),
	}
	db.mu.Lock()
	db.infos[id] = info
	db.mu.Unlock()

	return db.retrim(id, former)
}

// retrimOnly recomputes the fragments of curves that lost a neighbour.
func (db *Database) retrimOnly(ids []store.ItemID) error {
	return db.retrim(0, ids)
}

// canonical returns the index of the known placement equal to p, adding p
// when none matches. Placements are never removed.
func (db *Database) canonical(p kernel.Placement) (int, kernel.Placement) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, q := range db.placements {
		if q.Equal(p, db.cfg.PlaneTolerance) {
			return i, q
		}
	}
	db.placements = append(db.placements, p)
	return len(db.placements) - 1, p
}

// drop forgets id: its fragments are removed from the store and its links
// in the touched graph are cut on both sides.
func (db *Database) drop(id store.ItemID) error {
	db.mu.Lock()
	info, ok := db.infos[id]
	if ok {
		for n := range info.Touched {
			if other := db.infos[n]; other != nil {
				delete(other.Touched, id)
			}
		}
		delete(db.infos, id)
	}
	db.mu.Unlock()
	if !ok {
		return nil
	}
	return db.removeFragments(info.Fragments)
}

func (db *Database) removeFragments(ids []store.ItemID) error {
	return db.store.Batch(func(tx *store.Tx) error {
		for _, f := range ids {
			if err := tx.Remove(f, store.Automatic); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}

// Cascade records id as deleted in tx and marks every curve reachable from
// it through the touched graph as dirty.
func (db *Database) Cascade(id store.ItemID, tx *Transaction) {
	tx.Deleted[id] = struct{}{}

	db.mu.RLock()
	defer db.mu.RUnlock()
	info, ok := db.infos[id]
	if !ok {
		return
	}
	seen := map[store.ItemID]bool{id: true}
	queue := slices.Clone(info.TouchedIDs())
	for _, n := range queue {
		seen[n] = true
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		tx.Dirty[n] = struct{}{}
		other, ok := db.infos[n]
		if !ok {
			continue
		}
		for _, m := range other.TouchedIDs() {
			if !seen[m] {
				seen[m] = true
				queue = append(queue, m)
			}
		}
	}
}

// Remove takes id out of the network and recomputes everything it used to
// cut.
func (db *Database) Remove(ctx context.Context, id store.ItemID) error {
	tx := NewTransaction()
	db.Cascade(id, tx)
	return db.Commit(ctx, tx)
}

// Commit applies tx in four passes: drop dirty curves, drop deleted ones,
// re-add dirty curves that survive, then add new ones. Every removal is
// done before the first re-addition.
func (db *Database) Commit(ctx context.Context, tx *Transaction) error {
	log := store.Logger()
	log.Debug("commit", "added", len(tx.Added), "deleted", len(tx.Deleted), "dirty", len(tx.Dirty))

	for _, id := range sorted(tx.Dirty) {
		if err := db.drop(id); err != nil {
			return fmt.Errorf("commit: drop dirty %s: %w", id, err)
		}
	}
	for _, id := range sorted(tx.Deleted) {
		if has(tx.Dirty, id) {
			continue
		}
		if err := db.drop(id); err != nil {
			return fmt.Errorf("commit: drop deleted %s: %w", id, err)
		}
	}
	for _, id := range sorted(tx.Dirty) {
		if has(tx.Deleted, id) {
			continue
		}
		if err := db.Add(ctx, id); err != nil {
			return fmt.Errorf("commit: re-add %s: %w", id, err)
		}
	}
	for _, id := range sorted(tx.Added) {
		if has(tx.Dirty, id) || has(tx.Deleted, id) {
			continue
		}
		if err := db.Add(ctx, id); err != nil {
			return fmt.Errorf("commit: add %s: %w", id, err)
		}
	}
	return nil
}

// Lookup returns a copy of the network entry for id.
func (db *Database) Lookup(id store.ItemID) (CurveInfo, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	info, ok := db.infos[id]
	if !ok {
		return CurveInfo{}, false
	}
	return info.clone(), true
}

// PlacementOf returns the placement of member id.
func (db *Database) PlacementOf(id store.ItemID) (kernel.Placement, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	info, ok := db.infos[id]
	if !ok {
		return kernel.Placement{}, false
	}
	return info.Placement, true
}

// FindWithSamePlacement returns copies of every entry whose placement
// equals p, ordered by curve ID.
func (db *Database) FindWithSamePlacement(p kernel.Placement) []CurveInfo {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []CurveInfo
	for _, id := range db.memberIDs() {
		info := db.infos[id]
		if info.Placement.Equal(p, db.cfg.PlaneTolerance) {
			out = append(out, info.clone())
		}
	}
	return out
}

// Placements returns the canonical placement set.
func (db *Database) Placements() []kernel.Placement {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return slices.Clone(db.placements)
}

// Members returns the IDs of every member curve in ascending order.
func (db *Database) Members() []store.ItemID {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.memberIDs()
}

func (db *Database) memberIDs() []store.ItemID {
	ids := make([]store.ItemID, 0, len(db.infos))
	for id := range db.infos {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
