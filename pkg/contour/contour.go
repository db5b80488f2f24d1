// Package contour keeps the curve network in step with the item store.
//
// Manager decorates the store's add, replace and remove operations: curve
// items are registered with the planar curve database and the regions of
// their placement are rebuilt. Transactions batch many edits into one
// cascade and one region rebuild per affected placement.
package contour

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/planar"
	"github.com/chazu/curvenet/pkg/store"
	"github.com/samber/lo"
)

var (
	// ErrNestedTransaction is returned when a transaction is opened while
	// another one is open or committing.
	ErrNestedTransaction = errors.New("contour: transaction already open")
	// ErrNoTransaction is returned by Rebuild outside a transaction.
	ErrNoTransaction = errors.New("contour: no open transaction")
)

// RegionUpdater rebuilds the regions of one placement.
type RegionUpdater interface {
	UpdatePlacement(ctx context.Context, p kernel.Placement) error
}

type state int

const (
	stateIdle state = iota
	stateOpen
	stateCommitting
)

// Manager is the curve-aware front of the item store.
type Manager struct {
	store   *store.Store
	db      *planar.Database
	regions RegionUpdater

	mu    sync.Mutex
	state state
	tx    *planar.Transaction

	unsubscribe func()
}

// New returns a Manager and subscribes it to hide and unhide events of s.
// Call Close to unsubscribe.
func New(s *store.Store, db *planar.Database, regions RegionUpdater) *Manager {
	m := &Manager{store: s, db: db, regions: regions}
	m.unsubscribe = s.Subscribe(m.onEvent)
	return m
}

// Close stops listening to store events.
func (m *Manager) Close() {
	m.unsubscribe()
}

// AddItem stores data and, for curves, registers the new item with the
// network.
func (m *Manager) AddItem(ctx context.Context, data store.ItemData) (store.ItemID, error) {
	id := m.store.Add(data, store.User)
	if data.Kind() != store.KindCurve {
		return id, nil
	}
	return id, m.AddCurve(ctx, id)
}

// ReplaceItem swaps the payload of id and, for curves, re-registers it.
func (m *Manager) ReplaceItem(ctx context.Context, id store.ItemID, data store.ItemData) error {
	if err := m.store.Replace(id, data, store.User); err != nil {
		return err
	}
	if data.Kind() != store.KindCurve {
		return nil
	}
	if err := m.RemoveCurve(ctx, id); err != nil {
		return err
	}
	return m.AddCurve(ctx, id)
}

// RemoveItem deletes id and, for curves, takes it out of the network.
func (m *Manager) RemoveItem(ctx context.Context, id store.ItemID) error {
	it, ok := m.store.Get(id)
	if !ok {
		return fmt.Errorf("remove item %s: %w", id, store.ErrNotFound)
	}
	if err := m.store.Remove(id, store.User); err != nil {
		return err
	}
	if it.Kind != store.KindCurve {
		return nil
	}
	return m.RemoveCurve(ctx, id)
}

// AddCurve registers curve id with the network. Inside a transaction the
// curve is only recorded.
func (m *Manager) AddCurve(ctx context.Context, id store.ItemID) error {
	if m.record(recordAdd(id)) {
		return nil
	}
	return m.store.Queue().Do(ctx, m.addJob(id))
}

// RemoveCurve takes curve id out of the network. Inside a transaction the
// removal is only recorded, together with the curves it un-cuts.
func (m *Manager) RemoveCurve(ctx context.Context, id store.ItemID) error {
	if m.record(m.recordRemove(id)) {
		return nil
	}
	return m.store.Queue().Do(ctx, m.removeJob(id))
}

func recordAdd(id store.ItemID) func(*planar.Transaction) {
	return func(tx *planar.Transaction) {
		delete(tx.Deleted, id)
		tx.Add(id)
	}
}

func (m *Manager) recordRemove(id store.ItemID) func(*planar.Transaction) {
	return func(tx *planar.Transaction) {
		m.db.Cascade(id, tx)
	}
}

func (m *Manager) addJob(id store.ItemID) store.Job {
	return func(ctx context.Context) error {
		ps := m.newPlacementSet()
		ps.addCurve(id)
		if err := m.db.Add(ctx, id); err != nil {
			return err
		}
		ps.addCurve(id)
		return m.update(ctx, ps)
	}
}

func (m *Manager) removeJob(id store.ItemID) store.Job {
	return func(ctx context.Context) error {
		ps := m.newPlacementSet()
		ps.addCurve(id)
		if err := m.db.Remove(ctx, id); err != nil {
			return err
		}
		return m.update(ctx, ps)
	}
}

// record applies fn to the open transaction and reports whether there was
// one.
func (m *Manager) record(fn func(tx *planar.Transaction)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateOpen {
		return false
	}
	fn(m.tx)
	return true
}

// Transaction runs f with a transaction open, then commits everything f
// recorded as one queue job. Each affected placement has its regions
// rebuilt once. If f fails, nothing it recorded is committed.
func (m *Manager) Transaction(ctx context.Context, f func(ctx context.Context) error) error {
	m.mu.Lock()
	if m.state != stateIdle {
		m.mu.Unlock()
		return ErrNestedTransaction
	}
	m.state = stateOpen
	m.tx = planar.NewTransaction()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.state = stateIdle
		m.tx = nil
		m.mu.Unlock()
	}()

	if err := f(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	tx := m.tx
	m.state = stateCommitting
	m.mu.Unlock()

	if tx.Empty() {
		return nil
	}
	return m.store.Queue().Do(ctx, func(ctx context.Context) error {
		return m.commit(ctx, tx)
	})
}

func (m *Manager) commit(ctx context.Context, tx *planar.Transaction) error {
	ps := m.newPlacementSet()
	for _, id := range ids(tx.Dirty) {
		ps.addCurve(id)
	}
	for _, id := range ids(tx.Deleted) {
		ps.addCurve(id)
	}
	// Curves added again may be leaving their old plane.
	for _, id := range ids(tx.Added) {
		ps.addCurve(id)
	}

	if err := m.db.Commit(ctx, tx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	for _, id := range ids(tx.Added) {
		ps.addCurve(id)
	}

	store.Logger().Debug("transaction committed",
		"added", len(tx.Added), "deleted", len(tx.Deleted), "dirty", len(tx.Dirty),
		"placements", len(ps.list))
	return m.update(ctx, ps)
}

// Rebuild records every visible curve in the store as added, and every
// member that is gone or hidden as removed, so that the commit
// reconstructs the whole network. It is only valid inside a transaction.
func (m *Manager) Rebuild(ctx context.Context) error {
	curves := m.store.Visible(store.KindCurve)
	members := m.db.Members()
	if !m.record(func(tx *planar.Transaction) {
		for _, id := range members {
			if it, ok := m.store.Get(id); !ok || it.Hidden {
				m.db.Cascade(id, tx)
			}
		}
		for _, it := range curves {
			delete(tx.Deleted, it.ID)
			tx.Add(it.ID)
		}
	}) {
		return ErrNoTransaction
	}
	return nil
}

// SetName names an item.
func (m *Manager) SetName(id store.ItemID, name string) error {
	return m.store.SetName(id, name)
}

// Lookup returns the network entry of curve id.
func (m *Manager) Lookup(id store.ItemID) (planar.CurveInfo, bool) {
	return m.db.Lookup(id)
}

// FindWithSamePlacement returns the network entries on p.
func (m *Manager) FindWithSamePlacement(p kernel.Placement) []planar.CurveInfo {
	return m.db.FindWithSamePlacement(p)
}

// SaveToMemento snapshots the network on the store queue.
func (m *Manager) SaveToMemento(ctx context.Context) (*planar.Memento, error) {
	var mem *planar.Memento
	err := m.store.Queue().Do(ctx, func(context.Context) error {
		mem = m.db.SaveToMemento()
		return nil
	})
	return mem, err
}

// RestoreFromMemento replaces the network state on the store queue.
func (m *Manager) RestoreFromMemento(ctx context.Context, mem *planar.Memento) error {
	return m.store.Queue().Do(ctx, func(context.Context) error {
		m.db.RestoreFromMemento(mem)
		return nil
	})
}

// Flush waits until every job queued so far has run.
func (m *Manager) Flush(ctx context.Context) error {
	return m.store.Queue().Do(ctx, func(context.Context) error { return nil })
}

// onEvent treats hiding a curve as removing it and unhiding as adding it.
// Outside a transaction the work is queued without waiting, since the
// event may be delivered from inside a queue job.
func (m *Manager) onEvent(e store.Event) {
	if e.ItemKind != store.KindCurve {
		return
	}
	var (
		rec func(*planar.Transaction)
		job store.Job
	)
	switch e.Kind {
	case store.EventHidden:
		rec, job = m.recordRemove(e.Item), m.removeJob(e.Item)
	case store.EventUnhidden:
		rec, job = recordAdd(e.Item), m.addJob(e.Item)
	default:
		return
	}
	if m.record(rec) {
		return
	}
	fut := m.store.Queue().Enqueue(context.Background(), job)
	go func() {
		if err := fut.Wait(context.Background()); err != nil {
			store.Logger().Error("visibility change failed", "curve", e.Item, "event", e.Kind, "err", err)
		}
	}()
}

func (m *Manager) update(ctx context.Context, ps *placementSet) error {
	for _, p := range ps.list {
		if err := m.regions.UpdatePlacement(ctx, p); err != nil {
			return fmt.Errorf("update regions: %w", err)
		}
	}
	return nil
}

// placementSet collects the distinct placements touched by an edit, in the
// order they were first seen.
type placementSet struct {
	db   *planar.Database
	tol  float64
	list []kernel.Placement
}

func (m *Manager) newPlacementSet() *placementSet {
	return &placementSet{db: m.db, tol: m.db.Config().PlaneTolerance}
}

func (ps *placementSet) addCurve(id store.ItemID) {
	if p, ok := ps.db.PlacementOf(id); ok {
		ps.add(p)
	}
}

func (ps *placementSet) add(p kernel.Placement) {
	for _, q := range ps.list {
		if q.Equal(p, ps.tol) {
			return
		}
	}
	ps.list = append(ps.list, p)
}

func ids(set map[store.ItemID]struct{}) []store.ItemID {
	out := lo.Keys(set)
	slices.Sort(out)
	return out
}
