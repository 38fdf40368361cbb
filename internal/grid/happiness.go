package grid

// HappinessSample summarizes the residential state of one grid.
type HappinessSample struct {
	GridID      int
	Residential int     // residential buildings on the grid
	Vacant      int     // of which vacant
	Residents   int     // buildings reporting an occupant
	Sum         float64 // total occupant happiness
}

// Mean is the average occupant happiness, 0 without residents.
func (s HappinessSample) Mean() float64 {
	if s.Residents == 0 {
		return 0
	}
	return s.Sum / float64(s.Residents)
}

// HappinessScorer turns a sample into the grid's happiness value.
type HappinessScorer interface {
	ScoreHappiness(s HappinessSample) float64
}

type meanScorer struct{}

func (meanScorer) ScoreHappiness(s HappinessSample) float64 { return s.Mean() }

// SetScorer replaces the happiness formula. nil restores the plain mean.
func (g *System) SetScorer(s HappinessScorer) {
	if s == nil {
		s = meanScorer{}
	}
	g.scorer = s
}

// Sample gathers the current residential state of the grid.
func (g *System) Sample() HappinessSample {
	s := HappinessSample{GridID: g.id}
	g.Each(func(t *Tile) {
		if r, ok := t.occupant.(Residence); ok {
			s.Residential++
			if r.IsVacant() {
				s.Vacant++
			}
		}
		if in, ok := t.occupant.(Inhabited); ok {
			if h, ok := in.OccupantHappiness(); ok {
				s.Residents++
				s.Sum += h
			}
		}
	})
	return s
}

// UpdateHappiness recomputes and returns the grid's happiness.
func (g *System) UpdateHappiness() float64 {
	g.happiness = g.scorer.ScoreHappiness(g.Sample())
	return g.happiness
}

// Happiness is the value from the last UpdateHappiness.
func (g *System) Happiness() float64 { return g.happiness }
