package planar

// Config holds the numeric policy of the network.
type Config struct {
	// PlaneTolerance is the epsilon of placement equality and plane fitting.
	PlaneTolerance float64 `json:"plane_tolerance"`
	// IntersectionTolerance is the distance under which two curves meet.
	IntersectionTolerance float64 `json:"intersection_tolerance"`
	// MinSpan is the shortest parameter span emitted as a fragment.
	MinSpan float64 `json:"min_span"`
}

// DefaultConfig returns the default tolerances, in model units.
func DefaultConfig() Config {
	return Config{
		PlaneTolerance:        1e-6,
		IntersectionTolerance: 1e-3,
		MinSpan:               1e-6,
	}
}
