// Package region maintains the closed planar areas bounded by the curves
// of each placement. Regions are derived store items and are always
// replaced wholesale for a placement, never patched.
package region

import (
	"context"
	"fmt"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/planar"
	"github.com/chazu/curvenet/pkg/store"
)

// Curves is the read side of the planar curve database.
type Curves interface {
	FindWithSamePlacement(p kernel.Placement) []planar.CurveInfo
	Config() planar.Config
}

// Manager rebuilds region items.
type Manager struct {
	curves Curves
	kernel kernel.Kernel
	store  *store.Store
}

// New returns a Manager publishing regions into s.
func New(curves Curves, k kernel.Kernel, s *store.Store) *Manager {
	return &Manager{curves: curves, kernel: k, store: s}
}

// UpdatePlacement rebuilds the regions of p on the store queue and waits
// for the result.
func (m *Manager) UpdatePlacement(ctx context.Context, p kernel.Placement) error {
	return m.store.Queue().Do(ctx, func(ctx context.Context) error {
		return m.Rebuild(ctx, p)
	})
}

// Rebuild replaces the regions of p with the regions bounded by the member
// curves currently on p. It must run inside a queue job. Old regions are
// removed and new ones added in one store batch.
func (m *Manager) Rebuild(ctx context.Context, p kernel.Placement) error {
	cfg := m.curves.Config()

	var segments []kernel.PlanarCurve
	for _, info := range m.curves.FindWithSamePlacement(p) {
		segments = append(segments, m.kernel.Decompose(info.Planar.Curve)...)
	}

	var regions []kernel.Region
	if len(segments) > 0 {
		loops, err := m.kernel.OuterContours(segments, cfg.IntersectionTolerance)
		if err != nil {
			return fmt.Errorf("rebuild regions: outer contours: %w", err)
		}
		regions, err = m.kernel.Regions(loops)
		if err != nil {
			return fmt.Errorf("rebuild regions: classify: %w", err)
		}
	}

	var removed int
	err := m.store.Batch(func(tx *store.Tx) error {
		for _, it := range tx.Find(store.KindRegion) {
			rd, ok := it.Data.(store.RegionData)
			if !ok || !rd.Placement.Equal(p, cfg.PlaneTolerance) {
				continue
			}
			if err := tx.Remove(it.ID, store.Automatic); err != nil {
				return err
			}
			removed++
		}
		for _, r := range regions {
			tx.Add(store.RegionData{Placement: p, Region: r}, store.Automatic)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild regions: %w", err)
	}

	store.Logger().Debug("regions rebuilt",
		"placement", p, "segments", len(segments), "removed", removed, "added", len(regions))
	return nil
}

// Regions returns the IDs of the region items on p, in ascending order.
func (m *Manager) Regions(p kernel.Placement) []store.ItemID {
	tol := m.curves.Config().PlaneTolerance
	var ids []store.ItemID
	for _, it := range m.store.Find(store.KindRegion) {
		if rd, ok := it.Data.(store.RegionData); ok && rd.Placement.Equal(p, tol) {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
