package planar

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/chazu/curvenet/pkg/kernel"
	"github.com/chazu/curvenet/pkg/store"
)

// ValidationSeverity indicates whether a finding means the network is
// corrupt or merely suspicious.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // network state is inconsistent
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Curve    store.ItemID       // which curve has the problem (zero if network-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Curve == 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] curve %s: %s", e.Severity, e.Curve, e.Message)
}

// Validate checks the database against the store and returns every
// finding. An empty slice means the network is consistent. Validate is
// read-only; run it on the queue for a stable snapshot.
func (db *Database) Validate() []ValidationError {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var errs []ValidationError
	errs = append(errs, db.validatePlacements()...)
	errs = append(errs, db.validateTouched()...)
	for _, id := range db.memberIDs() {
		errs = append(errs, db.validateMember(db.infos[id])...)
	}
	return errs
}

// validatePlacements checks that the canonical set has no two equal
// entries and that every member points at the entry it carries.
func (db *Database) validatePlacements() []ValidationError {
	var errs []ValidationError
	tol := db.cfg.PlaneTolerance
	for i, p := range db.placements {
		for j := i + 1; j < len(db.placements); j++ {
			if p.Equal(db.placements[j], tol) {
				errs = append(errs, ValidationError{
					Message:  fmt.Sprintf("placements %d and %d are the same plane", i, j),
					Severity: SeverityError,
				})
			}
		}
	}
	for _, id := range db.memberIDs() {
		info := db.infos[id]
		if info.PlacementIndex < 0 || info.PlacementIndex >= len(db.placements) {
			errs = append(errs, ValidationError{
				Curve:    id,
				Message:  fmt.Sprintf("placement index %d out of range", info.PlacementIndex),
				Severity: SeverityError,
			})
			continue
		}
		if db.placements[info.PlacementIndex] != info.Placement {
			errs = append(errs, ValidationError{
				Curve:    id,
				Message:  "placement is not the canonical entry",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateTouched checks that the touched graph is symmetric and only links
// coplanar members.
func (db *Database) validateTouched() []ValidationError {
	var errs []ValidationError
	for _, id := range db.memberIDs() {
		info := db.infos[id]
		for _, n := range info.TouchedIDs() {
			other, ok := db.infos[n]
			if !ok {
				errs = append(errs, ValidationError{
					Curve:    id,
					Message:  fmt.Sprintf("touches %s, which is not a member", n),
					Severity: SeverityError,
				})
				continue
			}
			if !has(other.Touched, id) {
				errs = append(errs, ValidationError{
					Curve:    id,
					Message:  fmt.Sprintf("touches %s but not the other way round", n),
					Severity: SeverityError,
				})
			}
			if other.PlacementIndex != info.PlacementIndex {
				errs = append(errs, ValidationError{
					Curve:    id,
					Message:  fmt.Sprintf("touches %s on another placement", n),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}

// validateMember checks the store item and the fragment partition of one
// member.
func (db *Database) validateMember(info *CurveInfo) []ValidationError {
	var errs []ValidationError
	id := info.Curve
	if it, ok := db.store.Get(id); !ok {
		errs = append(errs, ValidationError{Curve: id, Message: "curve item no longer exists", Severity: SeverityWarning})
	} else if it.Hidden {
		errs = append(errs, ValidationError{Curve: id, Message: "hidden curve is still a member", Severity: SeverityWarning})
	}

	var spans []store.FragmentData
	for _, f := range info.Fragments {
		it, ok := db.store.Get(f)
		if !ok {
			errs = append(errs, ValidationError{Curve: id, Message: fmt.Sprintf("fragment %s is missing", f), Severity: SeverityError})
			continue
		}
		fd, ok := it.Data.(store.FragmentData)
		if !ok || fd.Curve != id {
			errs = append(errs, ValidationError{Curve: id, Message: fmt.Sprintf("item %s is not a fragment of this curve", f), Severity: SeverityError})
			continue
		}
		spans = append(spans, fd)
	}
	if len(spans) == 0 {
		return append(errs, ValidationError{Curve: id, Message: "member has no fragments", Severity: SeverityError})
	}
	if msg := checkPartition(info.Planar.Curve, spans, db.cfg.MinSpan); msg != "" {
		errs = append(errs, ValidationError{Curve: id, Message: msg, Severity: SeverityError})
	}
	return errs
}

// checkPartition reports how spans fail to cover the domain of c exactly
// once, or "" when they do.
func checkPartition(c kernel.PlanarCurve, spans []store.FragmentData, eps float64) string {
	if len(spans) == 1 && spans[0].Whole() {
		return ""
	}
	slices.SortFunc(spans, func(a, b store.FragmentData) int { return cmp.Compare(a.Start, b.Start) })

	tmin, tmax := c.Domain()
	period := tmax - tmin
	var total float64
	for i, s := range spans {
		if s.Whole() {
			return "sentinel fragment alongside trimmed fragments"
		}
		length := s.Stop - s.Start
		if c.Closed() && length <= 0 {
			length += period
		}
		if length < eps {
			return fmt.Sprintf("fragment [%g, %g) is shorter than %g", s.Start, s.Stop, eps)
		}
		total += length

		next := spans[(i+1)%len(spans)]
		last := i == len(spans)-1
		switch {
		case !c.Closed() && last:
			if math.Abs(s.Stop-tmax) > eps {
				return fmt.Sprintf("last fragment stops at %g, not %g", s.Stop, tmax)
			}
		case c.Closed() && len(spans) == 1:
		case math.Abs(math.Mod(s.Stop-next.Start, period)) > eps && math.Abs(math.Abs(s.Stop-next.Start)-period) > eps:
			return fmt.Sprintf("gap or overlap between %g and %g", s.Stop, next.Start)
		}
	}
	if !c.Closed() && math.Abs(spans[0].Start-tmin) > eps {
		return fmt.Sprintf("first fragment starts at %g, not %g", spans[0].Start, tmin)
	}
	if math.Abs(total-period) > eps*float64(len(spans)) {
		return fmt.Sprintf("fragments cover %g of a %g domain", total, period)
	}
	return ""
}
