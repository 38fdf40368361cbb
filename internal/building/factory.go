package building

import (
	"fmt"

	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/data"
	"github.com/citysim/core/internal/grid"
)

// FromTemplate builds a fresh, unplaced building from a catalog entry.
func FromTemplate(t *data.BuildingTemplate) (grid.Entity, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil building template", errs.ErrConfiguration)
	}
	cat, err := ParseCategory(t.Category)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", t.Key, err)
	}
	switch cat {
	case CategoryResource:
		return NewProducer(t.Name, t.Prefab, t.Cost, t.Resource, t.Rate), nil
	case CategoryResidential:
		return NewResidential(t.Name, t.Prefab, t.Cost, t.Comfort, t.Usage), nil
	default:
		return nil, fmt.Errorf("%w: template %q: no building for category %s", errs.ErrConfiguration, t.Key, cat)
	}
}
