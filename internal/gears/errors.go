package gears

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGearRatio is returned when the ratio has a zero term or equals one,
	// which would divide by zero when deriving the sun gear.
	ErrInvalidGearRatio = errors.New("gear ratio must have nonzero terms and must not equal 1")
	// ErrInvalidRingTeeth is returned when the ring gear tooth count is not positive.
	ErrInvalidRingTeeth = errors.New("ring gear tooth count must be a positive integer")
	// ErrNoIntegerSolution is returned when the sun or planet tooth count is not a whole number.
	ErrNoIntegerSolution = errors.New("no valid solution with given parameters")
	// ErrNonPositiveTeeth is returned when the derived sun or planet tooth count is zero or negative.
	ErrNonPositiveTeeth = errors.New("no valid solution: derived tooth counts must be positive")
	// ErrMeshingConstraint is the kind matched by every *MeshingError.
	ErrMeshingConstraint = errors.New("no valid solution as (R + S) / Np is not a whole number.")
)

// MeshingError reports that the planets cannot be spaced evenly around the sun.
type MeshingError struct {
	Ring      int
	Sun       int
	Planets   int
	Remainder int
}

func (e *MeshingError) Error() string {
	return fmt.Sprintf("%s: %d", ErrMeshingConstraint, e.Remainder)
}

// Is lets errors.Is(err, ErrMeshingConstraint) match.
func (e *MeshingError) Is(target error) bool {
	return target == ErrMeshingConstraint
}

// Error kinds exposed to API clients.
const (
	KindInvalidGearRatio  = "invalid_gear_ratio"
	KindInvalidRingTeeth  = "invalid_ring_teeth"
	KindNoIntegerSolution = "no_integer_solution"
	KindNonPositiveTeeth  = "non_positive_teeth"
	KindMeshingViolation  = "meshing_constraint_violation"
	KindUnknown           = "unknown"
)

// Kind maps a solver error to a stable identifier. It returns an empty string for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidGearRatio):
		return KindInvalidGearRatio
	case errors.Is(err, ErrInvalidRingTeeth):
		return KindInvalidRingTeeth
	case errors.Is(err, ErrNoIntegerSolution):
		return KindNoIntegerSolution
	case errors.Is(err, ErrNonPositiveTeeth):
		return KindNonPositiveTeeth
	case errors.Is(err, ErrMeshingConstraint):
		return KindMeshingViolation
	default:
		return KindUnknown
	}
}

// IsInputError reports whether err was caused by invalid inputs rather than
// by inputs that simply have no realizable gearset.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidGearRatio) || errors.Is(err, ErrInvalidRingTeeth)
}
