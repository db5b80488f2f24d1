package planar

import (
	"slices"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/store"
)

// Memento is an immutable snapshot of the database state.
type Memento struct {
	infos      map[store.ItemID]CurveInfo
	placements []kernel.Placement
}

// Len returns the number of member curves in the snapshot.
func (m *Memento) Len() int {
	return len(m.infos)
}

// SaveToMemento snapshots the member entries and the placement set. The
// snapshot shares no mutable state with the database.
func (db *Database) SaveToMemento() *Memento {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m := &Memento{
		infos:      make(map[store.ItemID]CurveInfo, len(db.infos)),
		placements: slices.Clone(db.placements),
	}
	for id, info := range db.infos {
		m.infos[id] = info.clone()
	}
	return m
}

// RestoreFromMemento replaces the database state with the snapshot. The
// snapshot stays valid and may be restored again.
func (db *Database) RestoreFromMemento(m *Memento) {
	infos := make(map[store.ItemID]*CurveInfo, len(m.infos))
	for id, info := range m.infos {
		c := info.clone()
		infos[id] = &c
	}
	db.mu.Lock()
	db.infos = infos
	db.placements = slices.Clone(m.placements)
	db.mu.Unlock()
}
