package city

import "github.com/citysim/core/internal/resource"

// Stats is a point-in-time summary of a city.
type Stats struct {
	Owner     string              `json:"owner"`
	Grids     int                 `json:"grids"`
	Residents int                 `json:"residents"`
	Demand    int                 `json:"demand"`
	Vacant    int                 `json:"vacant"`
	Occupied  int                 `json:"occupied"`
	FillLimit int                 `json:"fill_limit"`
	Happiness float64             `json:"happiness"`
	State     string              `json:"state"`
	Resources []resource.Snapshot `json:"resources"`
}

// Stats reports the city as of the last completed cycle. Resource produced and
// consumed totals are the ones accumulated during that cycle.
func (c *City) Stats() Stats {
	res := c.lastCycle
	if res == nil {
		res = c.ledger.Snapshots()
	}
	return Stats{
		Owner:     c.owner,
		Grids:     len(c.grids),
		Residents: len(c.residents),
		Demand:    c.demand,
		Vacant:    len(c.vacant),
		Occupied:  len(c.occupied),
		FillLimit: c.fillLimit,
		Happiness: c.happiness,
		State:     c.state.String(),
		Resources: append([]resource.Snapshot(nil), res...),
	}
}
