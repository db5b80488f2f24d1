package store

import (
	"fmt"

	"github.com/chazu/curvenet/pkg/kernel"
)

// ItemID identifies an item in the store. IDs are allocated in increasing
// order and never reused.
type ItemID int64

func (id ItemID) String() string { return fmt.Sprintf("#%d", id) }

// Kind enumerates the types of items in the store.
type Kind int

const (
	KindCurve    Kind = iota // user-drawn 3D curve
	KindFragment             // trimmed span of a curve, derived
	KindRegion               // closed planar area, derived
)

func (k Kind) String() string {
	switch k {
	case KindCurve:
		return "curve"
	case KindFragment:
		return "fragment"
	case KindRegion:
		return "region"
	default:
		return "unknown"
	}
}

// Origin tells observers whether a change came from the user or was
// derived by the curve network. Undo layers record only user changes.
type Origin int

const (
	User Origin = iota
	Automatic
)

func (o Origin) String() string {
	if o == Automatic {
		return "automatic"
	}
	return "user"
}

// Item is the fundamental element of the store.
type Item struct {
	ID     ItemID   `json:"id"`
	Kind   Kind     `json:"kind"`
	Name   string   `json:"name,omitempty"`
	Hidden bool     `json:"hidden,omitempty"`
	Data   ItemData `json:"data"`
}

// ItemData is the interface for kind-specific item payloads.
type ItemData interface {
	Kind() Kind
	itemData() // marker method restricting implementations to this package
}

// ---------------------------------------------------------------------------
// Curve
// ---------------------------------------------------------------------------

// CurveData holds a user-drawn curve.
type CurveData struct {
	Curve kernel.Curve3D `json:"curve"`
}

func (CurveData) Kind() Kind { return KindCurve }
func (CurveData) itemData() {}

// ---------------------------------------------------------------------------
// Fragment
// ---------------------------------------------------------------------------

// FragmentData is one trimmed span [Start, Stop) of a curve's planar
// projection. The span [-1, -1) stands for the whole, untrimmed curve.
type FragmentData struct {
	Curve     ItemID             `json:"curve"`
	Start     float64            `json:"start"`
	Stop      float64            `json:"stop"`
	Placement kernel.Placement   `json:"placement"`
	Trimmed   kernel.PlanarCurve `json:"-"`
}

func (FragmentData) Kind() Kind { return KindFragment }
func (FragmentData) itemData() {}

// Whole reports whether f is the untrimmed sentinel span.
func (f FragmentData) Whole() bool {
	return f.Start == -1 && f.Stop == -1
}

// ---------------------------------------------------------------------------
// Region
// ---------------------------------------------------------------------------

// RegionData is one closed area bounded by the curves of a placement.
type RegionData struct {
	Placement kernel.Placement `json:"placement"`
	Region    kernel.Region    `json:"region"`
}

func (RegionData) Kind() Kind { return KindRegion }
func (RegionData) itemData() {}
