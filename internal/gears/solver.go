package gears

import (
	"fmt"
	"math"
)

// maxExactWhole is the largest magnitude at which every float64 integer is exact.
const maxExactWhole = 1 << 53

type closedFormSolver struct {
	planets   int
	tolerance float64
}

// Option configures the solver returned by New.
type Option func(*closedFormSolver)

// WithPlanetCount overrides the number of planet gears used by the meshing check.
// Non-positive values keep the default.
func WithPlanetCount(n int) Option {
	return func(s *closedFormSolver) {
		if n > 0 {
			s.planets = n
		}
	}
}

// WithTolerance allows tooth counts within eps of a whole number to be rounded.
// Zero, the default, requires exact whole numbers.
func WithTolerance(eps float64) Option {
	return func(s *closedFormSolver) {
		if eps > 0 && !math.IsNaN(eps) {
			s.tolerance = eps
		}
	}
}

// New creates a Solver that derives tooth counts in closed form.
func New(opts ...Option) Solver {
	s := &closedFormSolver{planets: DefaultPlanetCount}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *closedFormSolver) Solve(ratio Ratio, ring int) (Solution, error) {
	if ring <= 0 {
		return Solution{}, ErrInvalidRingTeeth
	}
	if ratio.Num == 0 || ratio.Den == 0 || ratio.IsUnity() {
		return Solution{}, fmt.Errorf("ratio %s: %w", ratio, ErrInvalidGearRatio)
	}

	divisor := 1/ratio.Float() - 1
	if divisor == 0 || math.IsInf(divisor, 0) || math.IsNaN(divisor) {
		return Solution{}, fmt.Errorf("ratio %s: %w", ratio, ErrInvalidGearRatio)
	}

	sunF := float64(ring) / divisor
	sun, ok := s.whole(sunF)
	if !ok {
		return Solution{}, ErrNoIntegerSolution
	}

	planet, ok := s.whole(float64(ring-sun) / 2)
	if !ok {
		return Solution{}, ErrNoIntegerSolution
	}

	if sun <= 0 || planet <= 0 {
		return Solution{}, ErrNonPositiveTeeth
	}

	if rem := (ring + sun) % s.planets; rem != 0 {
		return Solution{}, &MeshingError{
			Ring:      ring,
			Sun:       sun,
			Planets:   s.planets,
			Remainder: rem,
		}
	}

	return Solution{
		Sun:     sun,
		Planet:  planet,
		Ring:    ring,
		Planets: s.planets,
	}, nil
}

// whole converts x to an int when it is a whole number. Without a tolerance
// the comparison is exact, so values off by floating-point rounding fail.
func (s *closedFormSolver) whole(x float64) (int, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.Abs(x) > maxExactWhole {
		return 0, false
	}
	if s.tolerance == 0 {
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	}
	rounded := math.Round(x)
	if math.Abs(x-rounded) > s.tolerance {
		return 0, false
	}
	return int(rounded), true
}
