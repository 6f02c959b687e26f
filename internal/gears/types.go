package gears

import (
	"fmt"
	"math/big"
	"strings"
)

// DefaultPlanetCount is the number of planet gears in the gearset.
const DefaultPlanetCount = 3

// Ratio is a gear ratio expressed as Num/Den.
type Ratio struct {
	Num int64
	Den int64
}

// NewRatio builds a Ratio without reducing it.
func NewRatio(num, den int64) Ratio {
	return Ratio{Num: num, Den: den}
}

// ParseRatio accepts "a/b", "a:b", decimals such as "0.25" and integers.
func ParseRatio(raw string) (Ratio, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ratio{}, fmt.Errorf("parse ratio: empty value: %w", ErrInvalidGearRatio)
	}
	s = strings.Replace(s, ":", "/", 1)

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Ratio{}, fmt.Errorf("parse ratio %q: %w", raw, ErrInvalidGearRatio)
	}
	if !r.Num().IsInt64() || !r.Denom().IsInt64() {
		return Ratio{}, fmt.Errorf("parse ratio %q: terms out of range: %w", raw, ErrInvalidGearRatio)
	}
	return Ratio{Num: r.Num().Int64(), Den: r.Denom().Int64()}, nil
}

// Float returns the ratio as float64.
func (r Ratio) Float() float64 {
	return float64(r.Num) / float64(r.Den)
}

// IsUnity reports whether the ratio equals one.
func (r Ratio) IsUnity() bool {
	return r.Den != 0 && r.Num == r.Den
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Solution holds the derived tooth counts of a realizable gearset.
type Solution struct {
	Sun     int `json:"sun"`
	Planet  int `json:"planet"`
	Ring    int `json:"ring"`
	Planets int `json:"planets"`
}

func (s Solution) String() string {
	return fmt.Sprintf("{S: %d, P: %d}", s.Sun, s.Planet)
}

// Solver describes the behaviour required from a gearset solver.
type Solver interface {
	Solve(ratio Ratio, ring int) (Solution, error)
}
