package building

import (
	"fmt"

	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/grid"
	"github.com/citysim/core/internal/resource"
)

// Occupant is whoever lives in a Residential building.
type Occupant interface {
	Happiness() float64
	Evict()
}

// Residential houses at most one occupant. While occupied it draws Usage
// electricity per time unit.
type Residential struct {
	Base

	Comfort float64
	Usage   float64

	supply   *resource.Resource
	occupant Occupant
	powered  bool
}

func NewResidential(name, prefab string, cost int64, comfort, usage float64) *Residential {
	return &Residential{
		Base:    newBase(name, prefab, cost, CategoryResidential),
		Comfort: comfort,
		Usage:   usage,
		powered: true,
	}
}

// NewHouse is the stock residential building.
func NewHouse() *Residential {
	return NewResidential("House", "House Future", 1500, 0.8, 0.5)
}

func (r *Residential) IsVacant() bool     { return r.occupant == nil }
func (r *Residential) Resident() Occupant { return r.occupant }
func (r *Residential) Powered() bool      { return r.powered }

// ComfortLevel is the happiness an occupant drifts toward when powered.
func (r *Residential) ComfortLevel() float64 { return r.Comfort }

// OccupantHappiness implements grid.Inhabited.
func (r *Residential) OccupantHappiness() (float64, bool) {
	if r.occupant == nil {
		return 0, false
	}
	return r.occupant.Happiness(), true
}

// SetResident moves o in. The building must be placed, alive and vacant.
func (r *Residential) SetResident(o Occupant) error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: nil resident for %s", errs.ErrConfiguration, r.name)
	case r.destroyed:
		return fmt.Errorf("%w: %s is destroyed", errs.ErrConsistency, r.name)
	case r.occupant != nil:
		return fmt.Errorf("%w: %s already occupied", errs.ErrConsistency, r.name)
	}
	r.occupant = o
	return nil
}

func (r *Residential) OnEntityProduced(g *grid.System) error {
	if err := r.produce(g, r); err != nil {
		return err
	}
	r.supply = g.Ledger().Electricity()
	return nil
}

func (r *Residential) Tick(dt float64) error {
	if err := r.update(dt); err != nil {
		return err
	}
	if r.occupant == nil || r.Usage <= 0 {
		r.powered = true
		return nil
	}
	want := r.Usage * dt
	got := r.supply.Consume(want)
	r.powered = got >= want
	return nil
}

// OnDestroy evicts the occupant, if any.
func (r *Residential) OnDestroy() error {
	err := r.destroy()
	if r.occupant != nil {
		r.occupant.Evict()
		r.occupant = nil
	}
	return err
}
