package entity

import "fmt"

// ID identifies a placed simulation object. The low 32 bits are a slot index,
// the high 32 bits a generation that is bumped when the slot is released, so
// an ID held after release no longer resolves.
type ID uint64

// None is never handed out by a Pool.
const None ID = 0

func makeID(slot, gen uint32) ID {
	return ID(uint64(gen)<<32 | uint64(slot))
}

func (id ID) Slot() uint32       { return uint32(id) }
func (id ID) Generation() uint32 { return uint32(id >> 32) }

func (id ID) String() string {
	return fmt.Sprintf("%d#%d", id.Slot(), id.Generation())
}

// Pool hands out IDs and recycles released slots. Generations start at 1 so
// that None stays invalid. Not safe for concurrent use; the tick loop owns it.
type Pool struct {
	gens []uint32
	free []uint32
	live int
}

func NewPool() *Pool {
	return &Pool{
		gens: make([]uint32, 0, 64),
		free: make([]uint32, 0, 16),
	}
}

// Acquire returns a fresh ID, reusing the most recently released slot first.
func (p *Pool) Acquire() ID {
	p.live++
	if n := len(p.free); n > 0 {
		slot := p.free[n-1]
		p.free = p.free[:n-1]
		return makeID(slot, p.gens[slot])
	}
	slot := uint32(len(p.gens))
	p.gens = append(p.gens, 1)
	return makeID(slot, 1)
}

// Valid reports whether id was handed out and not yet released.
func (p *Pool) Valid(id ID) bool {
	slot := id.Slot()
	if int(slot) >= len(p.gens) {
		return false
	}
	return id.Generation() != 0 && p.gens[slot] == id.Generation()
}

// Release invalidates id. Releasing a stale or unknown id is a no-op and
// reports false.
func (p *Pool) Release(id ID) bool {
	if !p.Valid(id) {
		return false
	}
	slot := id.Slot()
	p.gens[slot]++
	if p.gens[slot] == 0 {
		p.gens[slot] = 1
	}
	p.free = append(p.free, slot)
	p.live--
	return true
}

// Live is the number of IDs currently held.
func (p *Pool) Live() int { return p.live }
