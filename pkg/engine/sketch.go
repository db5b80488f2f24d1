package engine

import (
	"context"
	"fmt"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/store"
)

// SketchCurve is one curve produced by a script. Name is empty for
// anonymous curves.
type SketchCurve struct {
	Name  string         `json:"name,omitempty"`
	Curve kernel.Curve3D `json:"curve"`
}

// Sketch is the ordered list of curves a script produced.
type Sketch struct {
	Curves []SketchCurve `json:"curves"`
}

// NewSketch returns an empty sketch.
func NewSketch() *Sketch {
	return &Sketch{}
}

func (s *Sketch) add(name string, c kernel.Curve3D) int {
	s.Curves = append(s.Curves, SketchCurve{Name: name, Curve: c})
	return len(s.Curves) - 1
}

// Lookup returns the index of the curve with the given name.
func (s *Sketch) Lookup(name string) (int, bool) {
	for i, c := range s.Curves {
		if c.Name != "" && c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Editor is the curve-aware item API a sketch is applied through.
type Editor interface {
	Transaction(ctx context.Context, f func(ctx context.Context) error) error
	AddItem(ctx context.Context, data store.ItemData) (store.ItemID, error)
	SetName(id store.ItemID, name string) error
}

// Apply adds every curve of the sketch as one transaction and returns the
// new item IDs in sketch order.
func (s *Sketch) Apply(ctx context.Context, ed Editor) ([]store.ItemID, error) {
	ids := make([]store.ItemID, 0, len(s.Curves))
	err := ed.Transaction(ctx, func(ctx context.Context) error {
		for _, c := range s.Curves {
			id, err := ed.AddItem(ctx, store.CurveData{Curve: c.Curve})
			if err != nil {
				return err
			}
			ids = append(ids, id)
			if c.Name == "" {
				continue
			}
			if err := ed.SetName(id, c.Name); err != nil {
				return fmt.Errorf("name %s %q: %w", id, c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply sketch: %w", err)
	}
	return ids, nil
}
