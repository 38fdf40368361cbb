package tick

// Phase defines execution ordering within a single cycle. Every phase of a
// cycle completes before the next one starts.
type Phase int

const (
	PhasePreTick     Phase = iota // 0: bookkeeping ahead of production (resident vacancy)
	PhaseTick                     // 1: main update, buildings produce and consume
	PhasePostTick                 // 2: per-cycle counter resets
	PhaseLowPriority              // 3: residents, city-wide aggregates
	phaseCount
)

var phaseNames = [phaseCount]string{"pre_tick", "tick", "post_tick", "low_priority_tick"}

func (p Phase) String() string {
	if !p.Valid() {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) Valid() bool { return p >= PhasePreTick && p < phaseCount }

// Phases lists all phases in execution order.
func Phases() []Phase {
	return []Phase{PhasePreTick, PhaseTick, PhasePostTick, PhaseLowPriority}
}

// Tickable is any simulation object advanced by elapsed time. Grid tickables
// run in PhaseTick; low-priority tickables (residents) run in PhaseLowPriority.
type Tickable interface {
	Tick(dt float64) error
}

// PreTicker is implemented by grid tickables that also need PhasePreTick.
type PreTicker interface {
	PreTick(dt float64) error
}

// PostTicker is implemented by grid tickables that also need PhasePostTick.
type PostTicker interface {
	PostTick(dt float64) error
}

// Expirer lets a low-priority tickable ask to be dropped. Expired tickables
// are pruned at the cycle boundary, never mid-phase.
type Expirer interface {
	Expired() bool
}

// Group is a container of tickables that is activated as a unit, e.g. a grid
// system and the buildings placed on it.
type Group interface {
	Tickables() []Tickable
}

// Handler is a phase callback. It receives the manager driving the cycle and
// the cycle's elapsed time.
type Handler func(m *Manager, dt float64) error
