// Package grid implements grid systems: fixed-size 2D tile arrays that own
// entity placement, the tickable registry of placed buildings, and residential
// lifecycle notifications.
package grid

import (
	"fmt"

	"github.com/citysim/core/internal/core/entity"
	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/core/tick"
	"github.com/citysim/core/internal/resource"
	"go.uber.org/zap"
)

// Owner is the city a grid belongs to.
type Owner interface {
	Ledger() *resource.Ledger
}

// System is one grid. Dimensions are fixed at creation and tiles are indexed
// [x][y]. Not safe for concurrent use.
type System struct {
	id     int
	width  int
	height int
	origin Vec3
	owner  Owner
	log    *zap.Logger

	tiles     [][]*Tile
	ids       *entity.Pool
	byID      map[entity.ID]*Tile
	tickables []tick.Tickable
	listeners []Listener
	scorer    HappinessScorer
	happiness float64
}

// New allocates a width×height grid. Non-positive dimensions are a
// configuration error.
func New(id, width, height int, origin Vec3, owner Owner, log *zap.Logger) (*System, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid dimensions %dx%d", errs.ErrConfiguration, width, height)
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: grid %d has no owner", errs.ErrConfiguration, id)
	}
	if log == nil {
		log = zap.NewNop()
	}
	g := &System{
		id:     id,
		width:  width,
		height: height,
		origin: origin,
		owner:  owner,
		log:    log.With(zap.Int("grid", id)),
		tiles:  make([][]*Tile, width),
		ids:    entity.NewPool(),
		byID:   make(map[entity.ID]*Tile),
		scorer: meanScorer{},
	}
	for x := 0; x < width; x++ {
		g.tiles[x] = make([]*Tile, height)
		for y := 0; y < height; y++ {
			g.tiles[x][y] = &Tile{Position: Point{X: x, Y: y}}
		}
	}
	return g, nil
}

func (g *System) ID() int                  { return g.id }
func (g *System) Width() int               { return g.width }
func (g *System) Height() int              { return g.height }
func (g *System) Origin() Vec3             { return g.origin }
func (g *System) Owner() Owner             { return g.owner }
func (g *System) Ledger() *resource.Ledger { return g.owner.Ledger() }
func (g *System) Entities() int            { return len(g.byID) }

// Tickables implements tick.Group.
func (g *System) Tickables() []tick.Tickable { return g.tickables }

// InBounds reports whether (x, y) lies inside the grid.
func (g *System) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// GetTile returns the tile at (x, y), or false when out of bounds.
func (g *System) GetTile(x, y int) (*Tile, bool) {
	if !g.InBounds(x, y) {
		return nil, false
	}
	return g.tiles[x][y], true
}

// TileAt is GetTile for a Point.
func (g *System) TileAt(p Point) (*Tile, bool) {
	return g.GetTile(p.X, p.Y)
}

// Lookup finds the tile holding the entity with the given id.
func (g *System) Lookup(id entity.ID) (*Tile, bool) {
	t, ok := g.byID[id]
	return t, ok
}

// Each visits occupied tiles in x-major order.
func (g *System) Each(fn func(*Tile)) {
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			if t := g.tiles[x][y]; t.occupant != nil {
				fn(t)
			}
		}
	}
}

// Place puts e on the tile at (x, y) and runs its OnEntityProduced hook. If
// the hook fails the tile is left empty and the error is returned. An entity
// that already sits on a tile, of this grid or any other, is rejected before
// anything changes. Placing a Residence notifies listeners.
func (g *System) Place(x, y int, e Entity) (entity.ID, error) {
	if e == nil {
		return entity.None, fmt.Errorf("%w: nil entity", errs.ErrConfiguration)
	}
	t, ok := g.GetTile(x, y)
	if !ok {
		return entity.None, fmt.Errorf("%w: place %s at (%d,%d) on %dx%d grid",
			errs.ErrOutOfBounds, e.Name(), x, y, g.width, g.height)
	}
	if t.occupant != nil {
		return entity.None, fmt.Errorf("%w: tile %v already holds %s",
			errs.ErrConfiguration, t.Position, t.occupant.Name())
	}
	if cur := e.Tile(); cur != nil {
		return entity.None, fmt.Errorf("%w: %s is already placed at %v",
			errs.ErrConfiguration, e.Name(), cur.Position)
	}

	id := g.ids.Acquire()
	t.occupant = e
	t.id = id
	g.byID[id] = t
	e.SetTile(t)

	if err := e.OnEntityProduced(g); err != nil {
		if tk, ok := e.(tick.Tickable); ok {
			g.Unregister(tk)
		}
		g.clear(t)
		return entity.None, fmt.Errorf("produce %s at %v: %w", e.Name(), t.Position, err)
	}

	g.log.Debug("entity placed",
		zap.String("name", e.Name()),
		zap.Stringer("tile", t.Position),
		zap.Stringer("id", id),
	)
	if r, ok := e.(Residence); ok {
		g.notifyPlaced(ResidentialEvent{Grid: g, Tile: t.Position, EntityID: id, Building: r})
	}
	return id, nil
}

// Remove destroys the entity at (x, y). OnDestroy always runs before the tile
// is cleared; its error is returned but does not keep the entity on the grid.
func (g *System) Remove(x, y int) (Entity, error) {
	t, ok := g.GetTile(x, y)
	if !ok {
		return nil, fmt.Errorf("%w: remove at (%d,%d) on %dx%d grid",
			errs.ErrOutOfBounds, x, y, g.width, g.height)
	}
	e := t.occupant
	if e == nil {
		return nil, fmt.Errorf("%w: tile %v is empty", errs.ErrConfiguration, t.Position)
	}
	id := t.id

	destroyErr := e.OnDestroy()
	if tk, ok := e.(tick.Tickable); ok {
		g.Unregister(tk)
	}
	g.clear(t)

	if r, ok := e.(Residence); ok {
		g.notifyRemoved(ResidentialEvent{Grid: g, Tile: t.Position, EntityID: id, Building: r})
	}
	if destroyErr != nil {
		return e, fmt.Errorf("destroy %s at %v: %w", e.Name(), t.Position, destroyErr)
	}
	return e, nil
}

func (g *System) clear(t *Tile) {
	delete(g.byID, t.id)
	g.ids.Release(t.id)
	if t.occupant != nil {
		t.occupant.SetTile(nil)
	}
	t.occupant = nil
	t.id = entity.None
}

// Register adds tk to the grid's tickable registry. Buildings call it from
// OnEntityProduced once their resource bindings exist.
func (g *System) Register(tk tick.Tickable) {
	for _, cur := range g.tickables {
		if cur == tk {
			return
		}
	}
	g.tickables = append(g.tickables, tk)
}

// Unregister drops tk from the registry, keeping the order of the others.
func (g *System) Unregister(tk tick.Tickable) {
	for i, cur := range g.tickables {
		if cur == tk {
			next := make([]tick.Tickable, 0, len(g.tickables)-1)
			next = append(next, g.tickables[:i]...)
			g.tickables = append(next, g.tickables[i+1:]...)
			return
		}
	}
}

// SwapGridTiles exchanges the tiles at a and b together with their occupants,
// updating each tile's Position to its new coordinate. Swapping twice restores
// the original layout.
func (g *System) SwapGridTiles(a, b Point) error {
	ta, ok := g.TileAt(a)
	if !ok {
		return fmt.Errorf("%w: swap source %v", errs.ErrOutOfBounds, a)
	}
	tb, ok := g.TileAt(b)
	if !ok {
		return fmt.Errorf("%w: swap target %v", errs.ErrOutOfBounds, b)
	}
	if a == b {
		return nil
	}
	g.tiles[a.X][a.Y], g.tiles[b.X][b.Y] = tb, ta
	ta.Position, tb.Position = b, a
	return nil
}
