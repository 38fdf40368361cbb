package grid

import (
	"fmt"

	"github.com/citysim/core/internal/core/entity"
)

// Point is a tile coordinate inside a grid.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Vec3 is the world-space anchor of a grid, handed through to presentation.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Tile is one cell of a grid. It holds at most one entity.
type Tile struct {
	Position Point

	occupant Entity
	id       entity.ID
}

func (t *Tile) Occupant() Entity    { return t.occupant }
func (t *Tile) EntityID() entity.ID { return t.id }
func (t *Tile) Empty() bool         { return t.occupant == nil }

// Entity is anything that can be placed on a tile.
//
// OnEntityProduced runs once, after the tile is assigned. OnDestroy runs when
// the entity is removed, before the grid forgets it. Tile is nil until the
// entity is placed.
type Entity interface {
	Name() string
	Tile() *Tile
	SetTile(t *Tile)
	OnEntityProduced(g *System) error
	OnDestroy() error
}

// Residence is an Entity that houses residents.
type Residence interface {
	Entity
	IsVacant() bool
}

// Inhabited exposes the happiness of whoever lives in a building.
type Inhabited interface {
	OccupantHappiness() (float64, bool)
}
