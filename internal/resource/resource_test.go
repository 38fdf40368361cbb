package resource

import (
	"errors"
	"testing"

	"github.com/citysim/core/internal/core/errs"
)

func TestLedgerSingletonPerKind(t *testing.T) {
	l := NewLedger()
	if l.Created(Electricity) {
		t.Fatal("entry exists before first access")
	}
	a := l.Electricity()
	b, ok := l.Get(Electricity)
	if !ok || a != b {
		t.Fatal("Get and typed accessor returned different entries")
	}
	if l.Water() == a {
		t.Fatal("distinct kinds share an entry")
	}
	if _, ok := l.Get(Kind(99)); ok {
		t.Fatal("unknown kind resolved")
	}

	other := NewLedger()
	if other.Electricity() == a {
		t.Fatal("two ledgers share an entry")
	}
}

func TestCountersResetEachCycle(t *testing.T) {
	l := NewLedger()
	e := l.Electricity()
	for cycle := 1; cycle <= 5; cycle++ {
		e.Add(2)
		e.Add(3)
		e.Consume(1)
		if e.Produced() != 5 {
			t.Fatalf("cycle %d: produced %v, want 5", cycle, e.Produced())
		}
		if e.Consumed() != 1 {
			t.Fatalf("cycle %d: consumed %v, want 1", cycle, e.Consumed())
		}
		l.ResetCounters()
		if e.Produced() != 0 || e.Consumed() != 0 {
			t.Fatalf("cycle %d: counters not reset", cycle)
		}
	}
	if e.Quantity() != 20 {
		t.Fatalf("quantity = %v, want 20", e.Quantity())
	}
}

func TestConsumeNeverGoesNegative(t *testing.T) {
	r := newResource(Water)
	r.Add(1.5)
	if got := r.Consume(4); got != 1.5 {
		t.Fatalf("consumed %v, want 1.5", got)
	}
	if r.Quantity() != 0 {
		t.Fatalf("quantity = %v, want 0", r.Quantity())
	}
	if got := r.Consume(-3); got != 0 {
		t.Fatalf("negative consume took %v", got)
	}
}

type plant struct{ name string }

func TestBindingRoundTrip(t *testing.T) {
	l := NewLedger()
	e := l.Electricity()
	p1, p2 := &plant{"a"}, &plant{"b"}

	b1, err := e.Bind(p1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := e.Bind(p2)
	if err != nil {
		t.Fatal(err)
	}
	if b1.ID == b2.ID {
		t.Fatal("bindings share an id")
	}

	if err := b1.Add(5); err != nil {
		t.Fatal(err)
	}
	if err := b2.Add(2); err != nil {
		t.Fatal(err)
	}

	if !b1.Destroy() {
		t.Fatal("destroy reported no-op")
	}
	if b1.Destroy() {
		t.Fatal("second destroy reported success")
	}
	if e.BoundTo(p1) {
		t.Fatal("destroyed binding still attached")
	}
	if !e.BoundTo(p2) || len(e.Bindings()) != 1 {
		t.Fatal("other producer lost its binding")
	}
	if err := b1.Add(5); !errors.Is(err, errs.ErrConsistency) {
		t.Fatalf("add through destroyed binding: got %v", err)
	}
	if e.Quantity() != 7 {
		t.Fatalf("quantity = %v, want 7 (contributions persist)", e.Quantity())
	}
	if err := b2.Add(1); err != nil || b2.Contributed() != 3 {
		t.Fatalf("surviving binding: err=%v contributed=%v", err, b2.Contributed())
	}
}

func TestDuplicateBindingRejected(t *testing.T) {
	e := NewLedger().Electricity()
	p := &plant{"a"}
	if _, err := e.Bind(p); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Bind(p); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("duplicate bind: got %v", err)
	}
	if _, err := e.Bind(nil); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("nil owner: got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"electricity", Electricity, true},
		{" Water ", Water, true},
		{"MONEY", Money, true},
		{"steam", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseKind(%q) = %v, %v", tt.in, got, err)
		}
		if !tt.ok && !errors.Is(err, errs.ErrConfiguration) {
			t.Errorf("ParseKind(%q) err = %v, want configuration error", tt.in, err)
		}
	}
}

func TestSnapshotsOnlyCreatedEntries(t *testing.T) {
	l := NewLedger()
	l.Money().Add(10)
	snaps := l.Snapshots()
	if len(snaps) != 1 || snaps[0].Kind != "money" || snaps[0].Quantity != 10 {
		t.Fatalf("snapshots = %+v", snaps)
	}
}
