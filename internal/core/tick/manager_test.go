package tick

import (
	"errors"
	"testing"

	"github.com/citysim/core/internal/core/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	name string
	log  *[]string
	dts  []float64
	err  error
	boom bool
	done bool
}

func (r *recorder) Tick(dt float64) error {
	*r.log = append(*r.log, r.name+":tick")
	r.dts = append(r.dts, dt)
	if r.boom {
		panic("boom")
	}
	return r.err
}

func (r *recorder) Expired() bool { return r.done }

type prePost struct{ *recorder }

func (p prePost) PreTick(dt float64) error {
	*p.log = append(*p.log, p.name+":pre")
	return nil
}

func (p prePost) PostTick(dt float64) error {
	*p.log = append(*p.log, p.name+":post")
	return nil
}

type group struct{ items []Tickable }

func (g *group) Tickables() []Tickable { return g.items }

func TestRunCyclePhaseOrder(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	var trace []string

	for _, phase := range Phases() {
		p := phase
		if err := m.Subscribe(p, p.String(), func(_ *Manager, _ float64) error {
			trace = append(trace, "handler:"+p.String())
			return nil
		}); err != nil {
			t.Fatalf("subscribe %v: %v", p, err)
		}
	}

	b := prePost{&recorder{name: "building", log: &trace}}
	m.EnqueueGridSystem(&group{items: []Tickable{b}})
	m.EnqueueLowPriority(&recorder{name: "resident", log: &trace})

	// First cycle: queued objects are not active yet.
	if err := m.RunCycle(0.1); err != nil {
		t.Fatal(err)
	}
	want := []string{"handler:pre_tick", "handler:tick", "handler:post_tick", "handler:low_priority_tick"}
	assertTrace(t, trace, want)

	trace = trace[:0]
	if err := m.RunCycle(0.1); err != nil {
		t.Fatal(err)
	}
	want = []string{
		"building:pre", "handler:pre_tick",
		"building:tick", "handler:tick",
		"building:post", "handler:post_tick",
		"resident:tick", "handler:low_priority_tick",
	}
	assertTrace(t, trace, want)
}

func TestRunCycleSameElapsedEverywhere(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	var got []float64
	for _, phase := range Phases() {
		_ = m.Subscribe(phase, "probe", func(_ *Manager, dt float64) error {
			got = append(got, dt)
			return nil
		})
	}
	var trace []string
	b := &recorder{name: "b", log: &trace}
	m.EnqueueGridSystem(&group{items: []Tickable{b}})
	_ = m.RunCycle(0)
	got = got[:0]

	if err := m.RunCycle(0.75); err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("handlers called %d times, want 4", len(got))
	}
	for i, dt := range got {
		if dt != 0.75 {
			t.Fatalf("handler %d got dt %v, want 0.75", i, dt)
		}
	}
	if len(b.dts) != 1 || b.dts[0] != 0.75 {
		t.Fatalf("tickable dts = %v, want [0.75]", b.dts)
	}
}

func TestEnqueueDuringCycleIsDeferred(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	var trace []string
	spawned := &recorder{name: "late", log: &trace}
	enqueued := false

	_ = m.Subscribe(PhasePreTick, "spawner", func(m *Manager, _ float64) error {
		if !enqueued {
			m.EnqueueLowPriority(spawned)
			enqueued = true
		}
		return nil
	})

	_ = m.RunCycle(1)
	if len(spawned.dts) != 0 {
		t.Fatal("tickable enqueued mid-cycle ran in the same cycle")
	}
	if m.ActiveLowPriority() != 1 || m.PendingLowPriority() != 0 {
		t.Fatalf("after drain active=%d pending=%d", m.ActiveLowPriority(), m.PendingLowPriority())
	}
	_ = m.RunCycle(1)
	if len(spawned.dts) != 1 {
		t.Fatalf("deferred tickable ran %d times in second cycle, want 1", len(spawned.dts))
	}
}

func TestGridTickablesAddedMidCycleWait(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	var trace []string
	g := &group{}
	m.EnqueueGridSystem(g)
	_ = m.RunCycle(1)

	late := &recorder{name: "late", log: &trace}
	_ = m.Subscribe(PhasePreTick, "placer", func(_ *Manager, _ float64) error {
		if len(g.items) == 0 {
			g.items = append(g.items, late)
		}
		return nil
	})
	_ = m.RunCycle(1)
	if len(late.dts) != 0 {
		t.Fatal("building placed during pre-tick ticked in the same cycle")
	}
	_ = m.RunCycle(1)
	if len(late.dts) != 1 {
		t.Fatalf("late building ticked %d times, want 1", len(late.dts))
	}
}

func TestFailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := NewManager(zap.New(core))

	var trace []string
	bad := &recorder{name: "bad", log: &trace, err: errors.New("no fuel")}
	crash := &recorder{name: "crash", log: &trace, boom: true}
	good := &recorder{name: "good", log: &trace}
	m.EnqueueGridSystem(&group{items: []Tickable{bad, crash, good}})

	ran := false
	_ = m.Subscribe(PhaseTick, "exploding", func(_ *Manager, _ float64) error {
		panic("handler down")
	})
	_ = m.Subscribe(PhaseTick, "after", func(_ *Manager, _ float64) error {
		ran = true
		return nil
	})

	_ = m.RunCycle(1)
	_ = m.RunCycle(1)

	if len(good.dts) != 1 {
		t.Fatalf("good tickable ran %d times, want 1", len(good.dts))
	}
	if !ran {
		t.Fatal("handler after a panicking handler did not run")
	}
	if m.Failures() != 4 {
		t.Fatalf("failures = %d, want 4", m.Failures())
	}
	if n := logs.FilterMessage("tick panic recovered").Len(); n != 3 {
		t.Fatalf("panic logs = %d, want 3", n)
	}
	if n := logs.FilterMessage("tick failed").Len(); n != 1 {
		t.Fatalf("failure logs = %d, want 1", n)
	}
	if m.Running() {
		t.Fatal("manager still marked running after cycle")
	}
}

func TestExpiredLowPriorityPruned(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	var trace []string
	a := &recorder{name: "a", log: &trace}
	b := &recorder{name: "b", log: &trace}
	m.EnqueueLowPriority(a)
	m.EnqueueLowPriority(b)
	_ = m.RunCycle(1)

	a.done = true
	_ = m.RunCycle(1)
	if m.ActiveLowPriority() != 1 {
		t.Fatalf("active low priority = %d, want 1", m.ActiveLowPriority())
	}
	_ = m.RunCycle(1)
	if len(a.dts) != 1 || len(b.dts) != 2 {
		t.Fatalf("a ran %d, b ran %d; want 1 and 2", len(a.dts), len(b.dts))
	}
}

func TestSubscribeValidation(t *testing.T) {
	m := NewManager(nil)
	if err := m.Subscribe(Phase(9), "x", func(*Manager, float64) error { return nil }); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("unknown phase: got %v", err)
	}
	if err := m.Subscribe(PhaseTick, "x", nil); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("nil handler: got %v", err)
	}
}

func TestSubscribeDuringCycleStartsNextCycle(t *testing.T) {
	m := NewManager(nil)
	calls := 0
	_ = m.Subscribe(PhasePreTick, "outer", func(m *Manager, _ float64) error {
		if m.HandlerCount(PhaseLowPriority) == 0 && m.Cycle() == 1 {
			return m.Subscribe(PhaseLowPriority, "inner", func(*Manager, float64) error {
				calls++
				return nil
			})
		}
		return nil
	})
	_ = m.RunCycle(1)
	if calls != 0 {
		t.Fatal("handler subscribed mid-cycle ran in the same cycle")
	}
	_ = m.RunCycle(1)
	if calls != 1 {
		t.Fatalf("inner calls = %d, want 1", calls)
	}
}

func TestRunCycleRejectsInvalidElapsed(t *testing.T) {
	m := NewManager(nil)
	for _, dt := range []float64{-1} {
		if err := m.RunCycle(dt); !errors.Is(err, errs.ErrConfiguration) {
			t.Fatalf("dt %v: got %v", dt, err)
		}
	}
	if m.Cycle() != 0 {
		t.Fatalf("cycle advanced on rejected input: %d", m.Cycle())
	}
}

func assertTrace(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("trace = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trace[%d] = %q, want %q (full %v)", i, got[i], want[i], got)
		}
	}
}

func TestRunCycleRejectsNestedCall(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := NewManager(zap.New(core))
	var trace []string
	var nested error

	if err := m.Subscribe(PhaseTick, "reenter", func(m *Manager, dt float64) error {
		m.EnqueueGridSystem(&group{items: []Tickable{&recorder{name: "late", log: &trace}}})
		nested = m.RunCycle(dt)
		if m.ActiveGridSystems() != 0 || !m.Running() {
			t.Error("nested call touched the running cycle")
		}
		return nested
	}); err != nil {
		t.Fatal(err)
	}

	if err := m.RunCycle(0.1); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(nested, errs.ErrConsistency) {
		t.Fatalf("nested RunCycle err = %v, want consistency error", nested)
	}
	if m.Cycle() != 1 || m.Failures() != 1 || logs.FilterMessage("tick failed").Len() != 1 {
		t.Fatalf("cycle=%d failures=%d", m.Cycle(), m.Failures())
	}
	if len(trace) != 0 {
		t.Fatalf("grid queued mid-cycle ran in the same cycle: %v", trace)
	}
	if m.ActiveGridSystems() != 1 || m.Running() {
		t.Fatalf("active=%d running=%v after cycle", m.ActiveGridSystems(), m.Running())
	}
}
