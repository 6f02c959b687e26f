package storage

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/eugenenazirov/gearsolver/internal/gears"
)

const (
	// MaxPlanetCount bounds the configurable number of planet gears.
	MaxPlanetCount = 12
	// MaxTolerance is the exclusive upper bound for the integrality tolerance.
	MaxTolerance = 0.5
)

var (
	// ErrInvalidSettings indicates the provided settings violate validation rules.
	ErrInvalidSettings = errors.New("settings must have 1-12 planets and a tolerance in [0, 0.5)")
)

// Settings controls how the service builds its solver.
type Settings struct {
	PlanetCount int     `json:"planetCount" yaml:"planet_count"`
	Tolerance   float64 `json:"tolerance" yaml:"tolerance"`
}

// SolverOptions converts the settings into solver options.
func (s Settings) SolverOptions() []gears.Option {
	return []gears.Option{
		gears.WithPlanetCount(s.PlanetCount),
		gears.WithTolerance(s.Tolerance),
	}
}

// Storage provides access to the solver settings.
type Storage interface {
	GetSettings() (Settings, error)
	SetSettings(settings Settings) error
}

// MemoryStorage keeps settings in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	settings Settings
}

// NewMemoryStorage initialises storage with the default settings.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		settings: DefaultSettings(),
	}
}

// DefaultSettings returns three planets and exact integrality checks.
func DefaultSettings() Settings {
	return Settings{PlanetCount: gears.DefaultPlanetCount}
}

// GetSettings returns the currently configured settings.
func (s *MemoryStorage) GetSettings() (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings, nil
}

// SetSettings validates and stores the provided settings.
func (s *MemoryStorage) SetSettings(settings Settings) error {
	if err := Validate(settings); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	return nil
}

// Validate checks settings against the storage bounds.
func Validate(settings Settings) error {
	if settings.PlanetCount < 1 || settings.PlanetCount > MaxPlanetCount {
		return fmt.Errorf("planet count %d: %w", settings.PlanetCount, ErrInvalidSettings)
	}
	if math.IsNaN(settings.Tolerance) || settings.Tolerance < 0 || settings.Tolerance >= MaxTolerance {
		return fmt.Errorf("tolerance %v: %w", settings.Tolerance, ErrInvalidSettings)
	}
	return nil
}
