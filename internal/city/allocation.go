package city

import (
	"errors"
	"fmt"
	"math"

	"github.com/citysim/core/internal/building"
	"github.com/citysim/core/internal/config"
	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/core/tick"
	"github.com/citysim/core/internal/grid"
	"github.com/citysim/core/internal/resident"
	"go.uber.org/zap"
)

// AllocationState is where the resident allocation process stands after the
// last pre-tick.
type AllocationState int

const (
	StateIdle          AllocationState = iota // no vacant buildings
	StateAccumulating                         // waiting out the update interval
	StateAllocating                           // moved residents in
	StateRecalculating                        // no demand, fill limit refreshed
)

var stateNames = []string{"idle", "accumulating", "allocating", "recalculating"}

func (s AllocationState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ratioEpsilon keeps products like 30*0.1 from rounding up to the next integer.
const ratioEpsilon = 1e-9

// CeilRatio returns ceil(n * ratio).
func CeilRatio(n int, ratio float64) int {
	return int(math.Ceil(float64(n)*ratio - ratioEpsilon))
}

// allocator fills vacant residential buildings with new residents at a
// throttled rate. Every residential building of the city is in exactly one of
// vacant or occupied.
type allocator struct {
	city     *City
	settings config.SimulationConfig

	vacant    []*building.Residential
	occupied  []*building.Residential
	residents []*resident.Resident

	demand    int
	fillLimit int
	acc       float64
	state     AllocationState
}

func newAllocator(c *City, s config.SimulationConfig) allocator {
	fill := s.InitialFillLimit
	if fill < 1 {
		fill = 1
	}
	return allocator{
		city:      c,
		settings:  s,
		vacant:    make([]*building.Residential, 0, 10),
		occupied:  make([]*building.Residential, 0, 10),
		residents: make([]*resident.Resident, 0, 10),
		demand:    s.InitialDemand,
		fillLimit: fill,
	}
}

func (a *allocator) ResidentialDemand() int           { return a.demand }
func (a *allocator) FillLimit() int                   { return a.fillLimit }
func (a *allocator) VacantCount() int                 { return len(a.vacant) }
func (a *allocator) OccupiedCount() int               { return len(a.occupied) }
func (a *allocator) Residents() []*resident.Resident  { return a.residents }
func (a *allocator) AllocationState() AllocationState { return a.state }

// recalculateFillLimit sizes the fill limit to the occupied building count,
// never below one.
func (a *allocator) recalculateFillLimit() {
	a.fillLimit = max(CeilRatio(len(a.occupied), a.settings.FillRecalcRatio), 1)
}

// fillLimitTooLow reports whether the city has outgrown the fill limit.
func (a *allocator) fillLimitTooLow() bool {
	return a.fillLimit < CeilRatio(len(a.occupied), a.settings.FillThresholdRatio)
}

// residentVacancyUpdate is the pre-tick step of the allocation process.
func (a *allocator) residentVacancyUpdate(_ *tick.Manager, dt float64) error {
	if len(a.vacant) == 0 {
		a.state = StateIdle
		a.recalculateFillLimit()
		return nil
	}
	a.acc += dt
	if a.acc <= a.settings.ResidentUpdateInterval {
		a.state = StateAccumulating
		return nil
	}
	a.acc = 0

	if a.demand <= 0 {
		a.state = StateRecalculating
		a.recalculateFillLimit()
		return nil
	}
	a.state = StateAllocating
	return a.allocate()
}

// allocate walks the vacant list from the back, moving one new resident into
// each building until demand runs out or fillLimit residents moved in. The
// visited entry is always the current tail, so it is removed by truncation and
// unvisited entries keep their positions.
func (a *allocator) allocate() error {
	var failures []error
	moved := 0
	for i := len(a.vacant) - 1; i >= 0; i-- {
		home := a.vacant[i]
		a.vacant[i] = nil
		a.vacant = a.vacant[:i]

		r := resident.New(home, a.settings.InitialHappiness, a.settings.HappinessDrift)
		if err := home.SetResident(r); err != nil {
			// Misfiled building: keep the indices consistent, leave demand alone.
			if !home.Destroyed() {
				a.occupied = append(a.occupied, home)
			}
			a.city.log.Warn("vacant building rejected resident",
				zap.String("building", home.Name()), zap.Error(err))
			failures = append(failures, fmt.Errorf("%w: vacant list held %s: %v",
				errs.ErrConsistency, home.Name(), err))
			continue
		}

		a.city.sched.EnqueueLowPriority(r)
		a.residents = append(a.residents, r)
		a.occupied = append(a.occupied, home)
		a.demand--
		moved++

		if a.fillLimitTooLow() {
			a.recalculateFillLimit()
		}
		if a.demand < 1 || moved >= a.fillLimit {
			break
		}
	}
	a.city.log.Debug("residents allocated",
		zap.Int("moved", moved),
		zap.Int("demand", a.demand),
		zap.Int("vacant", len(a.vacant)),
		zap.Int("fill_limit", a.fillLimit),
	)
	return errors.Join(failures...)
}

func (a *allocator) tracked(r *building.Residential) bool {
	return indexOf(a.vacant, r) >= 0 || indexOf(a.occupied, r) >= 0
}

// OnNewResidential implements grid.Listener.
func (c *City) OnNewResidential(ev grid.ResidentialEvent) {
	r, ok := ev.Building.(*building.Residential)
	if !ok {
		c.log.Warn("unsupported residential building",
			zap.String("type", fmt.Sprintf("%T", ev.Building)), zap.Int("grid", ev.Grid.ID()))
		return
	}
	if c.tracked(r) {
		return
	}
	if r.IsVacant() {
		c.vacant = append(c.vacant, r)
	} else {
		c.occupied = append(c.occupied, r)
	}
}

// OnResidentialRemoved implements grid.Listener. An occupied building's
// resident has been evicted by its OnDestroy; it goes back into demand.
func (c *City) OnResidentialRemoved(ev grid.ResidentialEvent) {
	r, ok := ev.Building.(*building.Residential)
	if !ok {
		return
	}
	if i := indexOf(c.vacant, r); i >= 0 {
		c.vacant = removeAt(c.vacant, i)
		return
	}
	if i := indexOf(c.occupied, r); i >= 0 {
		c.occupied = removeAt(c.occupied, i)
		c.demand++
		c.pruneResidents()
		return
	}
	c.log.Warn("removed residential building was not indexed",
		zap.String("building", r.Name()), zap.Stringer("tile", ev.Tile))
}

func (a *allocator) pruneResidents() {
	kept := a.residents[:0]
	for _, r := range a.residents {
		if !r.Expired() {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(a.residents); i++ {
		a.residents[i] = nil
	}
	a.residents = kept
}

// CheckConsistency verifies that every residential building placed on the
// city's grids is in exactly one of the vacant and occupied indices, and that
// nothing else is.
func (c *City) CheckConsistency() error {
	placed := make(map[*building.Residential]bool)
	var problems []error
	for _, g := range c.grids {
		g.Each(func(t *grid.Tile) {
			r, ok := t.Occupant().(*building.Residential)
			if !ok {
				return
			}
			placed[r] = true
			v, o := indexOf(c.vacant, r) >= 0, indexOf(c.occupied, r) >= 0
			switch {
			case v && o:
				problems = append(problems, fmt.Errorf("%w: %s on grid %d is both vacant and occupied",
					errs.ErrConsistency, r.Name(), g.ID()))
			case !v && !o:
				problems = append(problems, fmt.Errorf("%w: %s on grid %d is not indexed",
					errs.ErrConsistency, r.Name(), g.ID()))
			case v && !r.IsVacant():
				problems = append(problems, fmt.Errorf("%w: %s on grid %d is indexed vacant but occupied",
					errs.ErrConsistency, r.Name(), g.ID()))
			}
		})
	}
	for _, list := range [][]*building.Residential{c.vacant, c.occupied} {
		for _, r := range list {
			if !placed[r] {
				problems = append(problems, fmt.Errorf("%w: %s indexed but not placed",
					errs.ErrConsistency, r.Name()))
			}
		}
	}
	return errors.Join(problems...)
}

func indexOf(list []*building.Residential, r *building.Residential) int {
	for i, cur := range list {
		if cur == r {
			return i
		}
	}
	return -1
}

func removeAt(list []*building.Residential, i int) []*building.Residential {
	copy(list[i:], list[i+1:])
	list[len(list)-1] = nil
	return list[:len(list)-1]
}
