package resident

import (
	"math"
	"testing"
)

type flat struct {
	comfort float64
	powered bool
}

func (f *flat) ComfortLevel() float64 { return f.comfort }
func (f *flat) Powered() bool         { return f.powered }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestHappinessDriftsTowardComfort(t *testing.T) {
	home := &flat{comfort: 0.8, powered: true}
	r := New(home, 0.5, 0.1)

	_ = r.Tick(1)
	if !near(r.Happiness(), 0.6) {
		t.Fatalf("after 1 unit happiness = %v, want 0.6", r.Happiness())
	}
	for i := 0; i < 10; i++ {
		_ = r.Tick(1)
	}
	if !near(r.Happiness(), 0.8) {
		t.Fatalf("happiness overshot or stalled: %v", r.Happiness())
	}

	home.powered = false
	_ = r.Tick(2)
	if !near(r.Happiness(), 0.6) {
		t.Fatalf("unpowered happiness = %v, want 0.6", r.Happiness())
	}
	if !near(r.Age(), 13) {
		t.Fatalf("age = %v", r.Age())
	}
}

func TestEvictedResidentExpires(t *testing.T) {
	r := New(&flat{comfort: 1, powered: true}, 0.2, 1)
	if r.Expired() {
		t.Fatal("new resident expired")
	}
	r.Evict()
	if !r.Expired() || r.Home() != nil {
		t.Fatal("evict did not detach")
	}
	before := r.Happiness()
	if err := r.Tick(1); err != nil || r.Happiness() != before {
		t.Fatal("evicted resident kept updating")
	}
}

func TestInitialHappinessClamped(t *testing.T) {
	if h := New(&flat{}, 3, 0).Happiness(); h != 1 {
		t.Fatalf("happiness = %v, want 1", h)
	}
	if New(&flat{}, 0, 0).ID == New(&flat{}, 0, 0).ID {
		t.Fatal("residents share an id")
	}
}
