package building

import (
	"fmt"

	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/grid"
	"github.com/citysim/core/internal/resource"
)

// Producer feeds one resource kind at a fixed rate per time unit.
type Producer struct {
	Base

	Rate float64

	kind    resource.Kind
	binding *resource.Binding
}

// NewProducer builds a producer of kind.
func NewProducer(name, prefab string, cost int64, kind resource.Kind, rate float64) *Producer {
	return &Producer{
		Base: newBase(name, prefab, cost, CategoryResource),
		Rate: rate,
		kind: kind,
	}
}

// NewPowerPlant is the stock electricity producer.
func NewPowerPlant() *Producer {
	return NewProducer("Powerplant", "Powerplant Future", 25000, resource.Electricity, 5)
}

func (p *Producer) Kind() resource.Kind        { return p.kind }
func (p *Producer) ProductionRate() float64    { return p.Rate }
func (p *Producer) Binding() *resource.Binding { return p.binding }

func (p *Producer) OnEntityProduced(g *grid.System) error {
	if p.produced {
		return fmt.Errorf("%w: %s produced twice", errs.ErrConfiguration, p.name)
	}
	res, ok := g.Ledger().Get(p.kind)
	if !ok {
		return fmt.Errorf("%w: %s produces unknown %v", errs.ErrConfiguration, p.name, p.kind)
	}
	b, err := res.Bind(p)
	if err != nil {
		return err
	}
	p.binding = b

	// Bindings first; produce registers the tickable.
	if err := p.produce(g, p); err != nil {
		p.binding.Destroy()
		p.binding = nil
		return err
	}
	return nil
}

func (p *Producer) Tick(dt float64) error {
	if err := p.update(dt); err != nil {
		return err
	}
	return p.binding.Add(p.Rate * dt)
}

func (p *Producer) OnDestroy() error {
	err := p.destroy()
	if p.binding != nil {
		p.binding.Destroy()
	}
	return err
}
