package planar

import (
	"maps"
	"slices"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// PlanarCurve is the projection of a store curve onto its placement. ID is
// regenerated every time the projection is recomputed.
type PlanarCurve struct {
	ID    uuid.UUID          `json:"id"`
	Curve kernel.PlanarCurve `json:"-"`
}

// Joint records that the end of one open curve meets another curve. T is
// the parameter on the other curve.
type Joint struct {
	Curve store.ItemID `json:"curve"`
	T     float64      `json:"t"`
}

// Joints holds the optional joints at the start and stop of an open curve.
type Joints struct {
	Start *Joint `json:"start,omitempty"`
	Stop  *Joint `json:"stop,omitempty"`
}

// CurveInfo is the network state of one member curve.
type CurveInfo struct {
	Curve          store.ItemID              `json:"curve"`
	Planar         PlanarCurve               `json:"planar"`
	Placement      kernel.Placement          `json:"placement"`
	PlacementIndex int                       `json:"placement_index"`
	Touched        map[store.ItemID]struct{} `json:"touched"`
	Joints         Joints                    `json:"joints"`
	Fragments      []store.ItemID            `json:"fragments"`
}

// TouchedIDs returns the touched set in ascending order.
func (ci *CurveInfo) TouchedIDs() []store.ItemID {
	ids := lo.Keys(ci.Touched)
	slices.Sort(ids)
	return ids
}

// clone returns a copy that shares no mutable state with ci. Kernel curve
// values are never modified in place and are shared.
func (ci *CurveInfo) clone() CurveInfo {
	c := *ci
	c.Touched = maps.Clone(ci.Touched)
	if c.Touched == nil {
		c.Touched = make(map[store.ItemID]struct{})
	}
	c.Fragments = slices.Clone(ci.Fragments)
	if ci.Joints.Start != nil {
		j := *ci.Joints.Start
		c.Joints.Start = &j
	}
	if ci.Joints.Stop != nil {
		j := *ci.Joints.Stop
		c.Joints.Stop = &j
	}
	return c
}

// Transaction accumulates the curves touched by a batched edit.
type Transaction struct {
	Added   map[store.ItemID]struct{}
	Deleted map[store.ItemID]struct{}
	Dirty   map[store.ItemID]struct{}
}

// NewTransaction returns an empty transaction.
func NewTransaction() *Transaction {
	return &Transaction{
		Added:   make(map[store.ItemID]struct{}),
		Deleted: make(map[store.ItemID]struct{}),
		Dirty:   make(map[store.ItemID]struct{}),
	}
}

// Add records id as added.
func (tx *Transaction) Add(id store.ItemID) { tx.Added[id] = struct{}{} }

// Empty reports whether nothing has been recorded.
func (tx *Transaction) Empty() bool {
	return len(tx.Added) == 0 && len(tx.Deleted) == 0 && len(tx.Dirty) == 0
}

func sorted(set map[store.ItemID]struct{}) []store.ItemID {
	ids := lo.Keys(set)
	slices.Sort(ids)
	return ids
}

func has(set map[store.ItemID]struct{}, id store.ItemID) bool {
	_, ok := set[id]
	return ok
}
