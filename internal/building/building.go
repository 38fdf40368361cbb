// Package building holds the placeable simulation buildings. Every variant
// embeds Base, which carries the catalog data and finalizes registration with
// the grid once the variant has set up its resource bindings.
package building

import (
	"fmt"
	"strings"

	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/core/tick"
	"github.com/citysim/core/internal/grid"
)

// Category groups buildings for placement UI and factory dispatch.
type Category int

const (
	CategoryResource Category = iota
	CategoryResidential
	CategoryCommercial
)

var categoryNames = []string{"resource", "residential", "commercial"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory maps a catalog name to its Category.
func ParseCategory(name string) (Category, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, cn := range categoryNames {
		if cn == n {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown building category %q", errs.ErrConfiguration, name)
}

// Base is the shared part of every building.
type Base struct {
	name     string
	prefab   string
	cost     int64
	category Category

	tile      *grid.Tile
	grid      *grid.System
	produced  bool
	destroyed bool
	age       float64
}

func newBase(name, prefab string, cost int64, cat Category) Base {
	return Base{name: name, prefab: prefab, cost: cost, category: cat}
}

func (b *Base) Name() string         { return b.name }
func (b *Base) Prefab() string       { return b.prefab }
func (b *Base) Cost() int64          { return b.cost }
func (b *Base) Category() Category   { return b.category }
func (b *Base) Tile() *grid.Tile     { return b.tile }
func (b *Base) Grid() *grid.System   { return b.grid }
func (b *Base) Produced() bool       { return b.produced }
func (b *Base) Destroyed() bool      { return b.destroyed }
func (b *Base) Age() float64         { return b.age }
func (b *Base) SetTile(t *grid.Tile) { b.tile = t }

// produce finalizes placement by entering self into the grid's tickable
// registry. Variants call it last from OnEntityProduced, after their bindings
// exist.
func (b *Base) produce(g *grid.System, self tick.Tickable) error {
	if b.produced {
		return fmt.Errorf("%w: %s produced twice", errs.ErrConfiguration, b.name)
	}
	b.grid = g
	b.produced = true
	if self != nil {
		g.Register(self)
	}
	return nil
}

// update is the base part of Tick.
func (b *Base) update(dt float64) error {
	if b.destroyed {
		return fmt.Errorf("%w: %s ticked after destroy", errs.ErrConsistency, b.name)
	}
	b.age += dt
	return nil
}

// destroy is the base part of OnDestroy.
func (b *Base) destroy() error {
	if b.destroyed {
		return fmt.Errorf("%w: %s destroyed twice", errs.ErrConsistency, b.name)
	}
	b.destroyed = true
	return nil
}
