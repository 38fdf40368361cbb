package grid

import "github.com/citysim/core/internal/core/entity"

// ResidentialEvent is fired when a residential building is placed on or
// removed from a grid.
type ResidentialEvent struct {
	Grid     *System
	Tile     Point
	EntityID entity.ID
	Building Residence
}

// Listener receives residential lifecycle events. Calls happen synchronously
// from Place and Remove, in listener registration order.
type Listener interface {
	OnNewResidential(ev ResidentialEvent)
	OnResidentialRemoved(ev ResidentialEvent)
}

// AddListener registers l. Adding the same listener twice has no effect.
func (g *System) AddListener(l Listener) {
	for _, cur := range g.listeners {
		if cur == l {
			return
		}
	}
	g.listeners = append(g.listeners, l)
}

func (g *System) notifyPlaced(ev ResidentialEvent) {
	for _, l := range g.listeners {
		l.OnNewResidential(ev)
	}
}

func (g *System) notifyRemoved(ev ResidentialEvent) {
	for _, l := range g.listeners {
		l.OnResidentialRemoved(ev)
	}
}
