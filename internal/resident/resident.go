// Package resident models individual inhabitants. A Resident is created when
// the city moves it into a vacant building and ticks in the low-priority phase
// until evicted.
package resident

import (
	"github.com/google/uuid"
)

// Home is the building a resident lives in.
type Home interface {
	ComfortLevel() float64
	Powered() bool
}

// unpoweredFactor scales the comfort target of a home without electricity.
const unpoweredFactor = 0.5

type Resident struct {
	ID uuid.UUID

	home      Home
	happiness float64
	drift     float64
	age       float64
	evicted   bool
}

// New creates a resident living in home. drift is how far happiness may move
// toward the home's comfort per time unit.
func New(home Home, happiness, drift float64) *Resident {
	return &Resident{
		ID:        uuid.New(),
		home:      home,
		happiness: clamp01(happiness),
		drift:     drift,
	}
}

func (r *Resident) Name() string       { return "resident " + r.ID.String()[:8] }
func (r *Resident) Home() Home         { return r.home }
func (r *Resident) Happiness() float64 { return r.happiness }
func (r *Resident) Age() float64       { return r.age }

// Evict detaches the resident from its home. It expires at the next cycle
// boundary.
func (r *Resident) Evict() {
	r.evicted = true
	r.home = nil
}

// Expired implements tick.Expirer.
func (r *Resident) Expired() bool { return r.evicted }

// Tick moves happiness toward the home's comfort, halved without power.
func (r *Resident) Tick(dt float64) error {
	if r.evicted || r.home == nil {
		return nil
	}
	r.age += dt

	target := r.home.ComfortLevel()
	if !r.home.Powered() {
		target *= unpoweredFactor
	}
	target = clamp01(target)

	step := r.drift * dt
	switch {
	case r.happiness < target:
		r.happiness = min(r.happiness+step, target)
	case r.happiness > target:
		r.happiness = max(r.happiness-step, target)
	}
	return nil
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
