package tick

import (
	"fmt"
	"math"

	"github.com/citysim/core/internal/core/errs"
	"go.uber.org/zap"
)

type subscription struct {
	phase Phase
	name  string
	fn    Handler
}

// Manager drives the simulation one cycle at a time.
//
// A cycle runs PhasePreTick, PhaseTick, PhasePostTick and PhaseLowPriority in
// that order. Within a phase, object tickables run first (in registration
// order) and the phase's handlers after them (in subscription order). Every
// call receives the same dt.
//
// Grid systems and low-priority tickables are never activated directly: they
// go through the NewGridSystems and LowPriorityIncoming queues, which are
// drained once all phases of the current cycle are done. Objects created
// while a cycle runs therefore first run in the following cycle.
//
// A failing handler or tickable (error or panic) is logged and skipped; the
// rest of the cycle still runs. Single-goroutine access only.
type Manager struct {
	log *zap.Logger

	handlers [phaseCount][]subscription
	groups   []Group
	low      []Tickable

	newGroups   []Group
	incoming    []Tickable
	pendingSubs []subscription

	running  bool
	cycle    uint64
	failures uint64
}

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:       log,
		groups:    make([]Group, 0, 4),
		low:       make([]Tickable, 0, 64),
		newGroups: make([]Group, 0, 4),
		incoming:  make([]Tickable, 0, 16),
	}
}

// Subscribe adds a handler to phase. Handlers subscribed while a cycle is
// running take effect from the next cycle.
func (m *Manager) Subscribe(phase Phase, name string, fn Handler) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: unknown phase %d", errs.ErrConfiguration, int(phase))
	}
	if fn == nil {
		return fmt.Errorf("%w: nil handler %q", errs.ErrConfiguration, name)
	}
	sub := subscription{phase: phase, name: name, fn: fn}
	if m.running {
		m.pendingSubs = append(m.pendingSubs, sub)
		return nil
	}
	m.handlers[phase] = append(m.handlers[phase], sub)
	return nil
}

// EnqueueGridSystem queues g for activation at the next cycle boundary
// (NewGridSystems).
func (m *Manager) EnqueueGridSystem(g Group) {
	m.newGroups = append(m.newGroups, g)
}

// EnqueueLowPriority queues t for activation at the next cycle boundary
// (LowPriorityIncomingQueue).
func (m *Manager) EnqueueLowPriority(t Tickable) {
	m.incoming = append(m.incoming, t)
}

// RunCycle advances the simulation by dt. It fails on an invalid dt, and when
// called from inside a running cycle; in both cases nothing runs and no state
// changes.
func (m *Manager) RunCycle(dt float64) error {
	if m.running {
		return fmt.Errorf("%w: cycle %d is already running", errs.ErrConsistency, m.cycle)
	}
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: invalid elapsed time %v", errs.ErrConfiguration, dt)
	}

	m.running = true
	m.cycle++

	// Snapshot grid tickables once so that buildings placed mid-cycle wait
	// for the next one.
	active := m.gridTickables()
	low := m.low

	for _, phase := range Phases() {
		switch phase {
		case PhasePreTick:
			for _, t := range active {
				if pt, ok := t.(PreTicker); ok {
					m.guard(phase, t, func() error { return pt.PreTick(dt) })
				}
			}
		case PhaseTick:
			for _, t := range active {
				tk := t
				m.guard(phase, tk, func() error { return tk.Tick(dt) })
			}
		case PhasePostTick:
			for _, t := range active {
				if pt, ok := t.(PostTicker); ok {
					m.guard(phase, t, func() error { return pt.PostTick(dt) })
				}
			}
		case PhaseLowPriority:
			for _, t := range low {
				tk := t
				m.guard(phase, tk, func() error { return tk.Tick(dt) })
			}
		}
		for _, sub := range m.handlers[phase] {
			s := sub
			m.guard(phase, s.name, func() error { return s.fn(m, dt) })
		}
	}

	m.running = false
	m.drain()
	return nil
}

// drain activates everything queued during the cycle and prunes expired
// low-priority tickables.
func (m *Manager) drain() {
	if len(m.newGroups) > 0 {
		m.groups = append(m.groups, m.newGroups...)
		m.log.Debug("grid systems activated",
			zap.Int("count", len(m.newGroups)), zap.Uint64("cycle", m.cycle))
		m.newGroups = m.newGroups[:0]
	}

	kept := m.low[:0]
	for _, t := range m.low {
		if e, ok := t.(Expirer); ok && e.Expired() {
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(m.low); i++ {
		m.low[i] = nil
	}
	m.low = kept

	if len(m.incoming) > 0 {
		m.low = append(m.low, m.incoming...)
		for i := range m.incoming {
			m.incoming[i] = nil
		}
		m.incoming = m.incoming[:0]
	}

	for _, sub := range m.pendingSubs {
		m.handlers[sub.phase] = append(m.handlers[sub.phase], sub)
	}
	m.pendingSubs = m.pendingSubs[:0]
}

func (m *Manager) gridTickables() []Tickable {
	var out []Tickable
	for _, g := range m.groups {
		out = append(out, g.Tickables()...)
	}
	return out
}

// guard runs fn and isolates its failure.
func (m *Manager) guard(phase Phase, target any, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			m.failures++
			m.log.Error("tick panic recovered",
				zap.Stringer("phase", phase),
				zap.String("target", targetName(target)),
				zap.Uint64("cycle", m.cycle),
				zap.Any("panic", r),
			)
		}
	}()
	if err := fn(); err != nil {
		m.failures++
		m.log.Warn("tick failed",
			zap.Stringer("phase", phase),
			zap.String("target", targetName(target)),
			zap.Uint64("cycle", m.cycle),
			zap.Error(err),
		)
	}
}

func targetName(target any) string {
	switch v := target.(type) {
	case string:
		return v
	case interface{ Name() string }:
		return v.Name()
	default:
		return fmt.Sprintf("%T", target)
	}
}

// Cycle is the number of cycles started so far.
func (m *Manager) Cycle() uint64 { return m.cycle }

// Failures counts isolated handler/tickable failures since creation.
func (m *Manager) Failures() uint64 { return m.failures }

// Running reports whether a cycle is in progress.
func (m *Manager) Running() bool { return m.running }

func (m *Manager) ActiveGridSystems() int  { return len(m.groups) }
func (m *Manager) ActiveLowPriority() int  { return len(m.low) }
func (m *Manager) PendingGridSystems() int { return len(m.newGroups) }
func (m *Manager) PendingLowPriority() int { return len(m.incoming) }

// HandlerCount reports how many handlers are subscribed to phase.
func (m *Manager) HandlerCount(phase Phase) int {
	if !phase.Valid() {
		return 0
	}
	return len(m.handlers[phase])
}
