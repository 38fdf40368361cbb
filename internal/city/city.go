// Package city composes grids, the resource ledger and residents into one
// simulated city, and hooks the city's per-cycle work into the tick manager.
package city

import (
	"fmt"

	"github.com/citysim/core/internal/config"
	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/core/tick"
	"github.com/citysim/core/internal/grid"
	"github.com/citysim/core/internal/resource"
	"go.uber.org/zap"
)

const defaultOwner = "Mayor"

// Scheduler is the part of the tick manager a city drives.
type Scheduler interface {
	Subscribe(phase tick.Phase, name string, fn tick.Handler) error
	EnqueueGridSystem(g tick.Group)
	EnqueueLowPriority(t tick.Tickable)
}

type City struct {
	owner    string
	sched    Scheduler
	settings config.SimulationConfig
	log      *zap.Logger

	ledger    *resource.Ledger
	grids     []*grid.System
	scorer    grid.HappinessScorer
	happiness float64
	setup     bool
	lastCycle []resource.Snapshot

	allocator
}

// New creates a city for owner. An empty owner becomes "Mayor". Call
// PostSetup once before the first cycle.
func New(owner string, sched Scheduler, settings config.SimulationConfig, log *zap.Logger) *City {
	if owner == "" {
		owner = defaultOwner
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &City{
		owner:    owner,
		sched:    sched,
		settings: settings,
		log:      log.With(zap.String("city", owner)),
		ledger:   resource.NewLedger(),
		grids:    make([]*grid.System, 0, 4),
	}
	c.allocator = newAllocator(c, settings)
	return c
}

// PostSetup subscribes the city's phase handlers. It may run only once.
func (c *City) PostSetup() error {
	if c.setup {
		return fmt.Errorf("%w: city %q already set up", errs.ErrConfiguration, c.owner)
	}
	subs := []struct {
		phase tick.Phase
		name  string
		fn    tick.Handler
	}{
		{tick.PhasePostTick, "reset-resource-counters", c.resetResourceTickCounters},
		{tick.PhasePreTick, "resident-vacancy", c.residentVacancyUpdate},
		{tick.PhaseLowPriority, "resident-happiness", c.residentHappinessUpdate},
	}
	for _, s := range subs {
		if err := c.sched.Subscribe(s.phase, s.name, s.fn); err != nil {
			return fmt.Errorf("subscribe %s: %w", s.name, err)
		}
	}
	c.setup = true
	return nil
}

func (c *City) Owner() string             { return c.owner }
func (c *City) Ledger() *resource.Ledger  { return c.ledger }
func (c *City) Grids() []*grid.System     { return c.grids }
func (c *City) HappinessAverage() float64 { return c.happiness }

// GetResource returns the city's ledger entry for k, creating it on first use.
func (c *City) GetResource(k resource.Kind) (*resource.Resource, bool) {
	return c.ledger.Get(k)
}

// CreateGrid allocates a new grid with the next sequential id and queues it
// for activation at the next cycle boundary.
func (c *City) CreateGrid(width, height int, origin grid.Vec3) (*grid.System, error) {
	g, err := grid.New(len(c.grids), width, height, origin, c, c.log)
	if err != nil {
		return nil, err
	}
	if c.scorer != nil {
		g.SetScorer(c.scorer)
	}
	g.AddListener(c)
	c.grids = append(c.grids, g)
	c.sched.EnqueueGridSystem(g)
	c.log.Info("grid created",
		zap.Int("grid", g.ID()), zap.Int("width", width), zap.Int("height", height))
	return g, nil
}

// GetGrid returns the grid with the given id.
func (c *City) GetGrid(id int) (*grid.System, bool) {
	if id < 0 || id >= len(c.grids) {
		return nil, false
	}
	return c.grids[id], true
}

// SetHappinessScorer applies s to every current and future grid.
func (c *City) SetHappinessScorer(s grid.HappinessScorer) {
	c.scorer = s
	for _, g := range c.grids {
		g.SetScorer(s)
	}
}

// resetResourceTickCounters keeps the cycle's resource totals for Stats and
// then zeroes the per-cycle counters.
func (c *City) resetResourceTickCounters(_ *tick.Manager, _ float64) error {
	c.lastCycle = c.ledger.Snapshots()
	c.ledger.ResetCounters()
	return nil
}

// residentHappinessUpdate refreshes every grid's happiness and the city-wide
// average over all of the city's grids, including ones created this cycle
// that the manager has not activated yet. The configured offset (1 by
// default) is added to the mean as the game has always done.
func (c *City) residentHappinessUpdate(_ *tick.Manager, _ float64) error {
	if len(c.grids) == 0 {
		return nil
	}
	var total float64
	for _, g := range c.grids {
		total += g.UpdateHappiness()
	}
	c.happiness = total/float64(len(c.grids)) + c.settings.HappinessOffset
	return nil
}
