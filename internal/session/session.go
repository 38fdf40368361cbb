// Package session owns the tick manager and the cities it drives.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/citysim/core/internal/building"
	"github.com/citysim/core/internal/city"
	"github.com/citysim/core/internal/config"
	"github.com/citysim/core/internal/core/entity"
	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/core/tick"
	"github.com/citysim/core/internal/data"
	"github.com/citysim/core/internal/grid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Observer is told about every completed cycle.
type Observer interface {
	ObserveCycle(ctx context.Context, cycle uint64, stats []city.Stats) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, cycle uint64, stats []city.Stats) error

func (f ObserverFunc) ObserveCycle(ctx context.Context, cycle uint64, stats []city.Stats) error {
	return f(ctx, cycle, stats)
}

type Session struct {
	id        uuid.UUID
	mgr       *tick.Manager
	settings  config.SimulationConfig
	catalog   *data.BuildingTable
	scorer    grid.HappinessScorer
	cities    []*city.City
	observers []Observer
	log       *zap.Logger
}

// New creates an empty session. catalog and scorer may be nil.
func New(settings config.SimulationConfig, catalog *data.BuildingTable, scorer grid.HappinessScorer, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	log = log.With(zap.String("session", id.String()))
	return &Session{
		id:       id,
		mgr:      tick.NewManager(log.Named("tick")),
		settings: settings,
		catalog:  catalog,
		scorer:   scorer,
		log:      log,
	}
}

func (s *Session) ID() uuid.UUID          { return s.id }
func (s *Session) Manager() *tick.Manager { return s.mgr }
func (s *Session) Cities() []*city.City   { return s.cities }

// AddObserver registers o for every following cycle.
func (s *Session) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// NewCity creates a city, hooks it into the tick manager and returns it.
// Owner names are unique within a session.
func (s *Session) NewCity(owner string) (*city.City, error) {
	c := city.New(owner, s.mgr, s.settings, s.log)
	if _, ok := s.City(c.Owner()); ok {
		return nil, fmt.Errorf("%w: city %q already exists", errs.ErrConfiguration, c.Owner())
	}
	if s.scorer != nil {
		c.SetHappinessScorer(s.scorer)
	}
	if err := c.PostSetup(); err != nil {
		return nil, err
	}
	s.cities = append(s.cities, c)
	s.log.Info("city founded", zap.String("owner", c.Owner()))
	return c, nil
}

// City finds a city by owner.
func (s *Session) City(owner string) (*city.City, bool) {
	for _, c := range s.cities {
		if c.Owner() == owner {
			return c, true
		}
	}
	return nil, false
}

// Build places a new building from the catalog on a city's grid.
func (s *Session) Build(c *city.City, gridID, x, y int, key string) (entity.ID, error) {
	if s.catalog == nil {
		return entity.None, fmt.Errorf("%w: no building catalog loaded", errs.ErrConfiguration)
	}
	tmpl := s.catalog.Get(key)
	if tmpl == nil {
		return entity.None, fmt.Errorf("%w: unknown building %q", errs.ErrConfiguration, key)
	}
	g, ok := c.GetGrid(gridID)
	if !ok {
		return entity.None, fmt.Errorf("%w: city %q has no grid %d", errs.ErrConfiguration, c.Owner(), gridID)
	}
	b, err := building.FromTemplate(tmpl)
	if err != nil {
		return entity.None, err
	}
	id, err := g.Place(x, y, b)
	if err != nil {
		return entity.None, fmt.Errorf("build %s at (%d,%d): %w", key, x, y, err)
	}
	return id, nil
}

// Demolish removes whatever stands on a city's tile.
func (s *Session) Demolish(c *city.City, gridID, x, y int) error {
	g, ok := c.GetGrid(gridID)
	if !ok {
		return fmt.Errorf("%w: city %q has no grid %d", errs.ErrConfiguration, c.Owner(), gridID)
	}
	_, err := g.Remove(x, y)
	return err
}

// Stats snapshots every city.
func (s *Session) Stats() []city.Stats {
	out := make([]city.Stats, 0, len(s.cities))
	for _, c := range s.cities {
		out = append(out, c.Stats())
	}
	return out
}

// Step runs one full cycle with dt seconds of elapsed time and then informs
// the observers. Observer failures are logged, not returned.
func (s *Session) Step(ctx context.Context, dt float64) error {
	if err := s.mgr.RunCycle(dt); err != nil {
		return err
	}
	if len(s.observers) == 0 {
		return nil
	}
	cycle, stats := s.mgr.Cycle(), s.Stats()
	for _, o := range s.observers {
		if err := o.ObserveCycle(ctx, cycle, stats); err != nil {
			s.log.Warn("cycle observer failed", zap.Uint64("cycle", cycle), zap.Error(err))
		}
	}
	return nil
}

// maxStepRates caps a single step after a stall.
const maxStepRates = 5

// Run drives the session every rate until ctx is done. Each cycle receives
// the wall time elapsed since the previous one, capped at five rates.
func (s *Session) Run(ctx context.Context, rate time.Duration) error {
	if rate <= 0 {
		return fmt.Errorf("%w: tick rate %s", errs.ErrConfiguration, rate)
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	s.log.Info("session running", zap.Duration("tick_rate", rate))
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("session stopped", zap.Uint64("cycles", s.mgr.Cycle()))
			return nil
		case now := <-ticker.C:
			elapsed := min(now.Sub(last), maxStepRates*rate)
			last = now
			if err := s.Step(ctx, elapsed.Seconds()); err != nil {
				return err
			}
		}
	}
}
