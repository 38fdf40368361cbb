package resource

// Ledger holds one Resource per Kind for a single city. Entries are created on
// first access and live as long as the ledger.
type Ledger struct {
	entries [kindCount]*Resource
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Get returns the entry for k, creating it on first use. It reports false only
// for a kind outside the known set.
func (l *Ledger) Get(k Kind) (*Resource, bool) {
	if !k.Valid() {
		return nil, false
	}
	if l.entries[k] == nil {
		l.entries[k] = newResource(k)
	}
	return l.entries[k], true
}

func (l *Ledger) must(k Kind) *Resource {
	r, _ := l.Get(k)
	return r
}

func (l *Ledger) Electricity() *Resource { return l.must(Electricity) }
func (l *Ledger) Water() *Resource       { return l.must(Water) }
func (l *Ledger) Money() *Resource       { return l.must(Money) }

// Created reports whether the entry for k exists yet.
func (l *Ledger) Created(k Kind) bool {
	return k.Valid() && l.entries[k] != nil
}

// ResetCounters zeroes the per-cycle counters of every existing entry.
func (l *Ledger) ResetCounters() {
	for _, r := range l.entries {
		if r != nil {
			r.ResetCounters()
		}
	}
}

// Snapshot is a read-only copy of one entry.
type Snapshot struct {
	Kind     string  `json:"kind"`
	Quantity float64 `json:"quantity"`
	Produced float64 `json:"produced"`
	Consumed float64 `json:"consumed"`
	Bindings int     `json:"bindings"`
}

// Snapshots copies every existing entry in kind order.
func (l *Ledger) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, kindCount)
	for _, r := range l.entries {
		if r == nil {
			continue
		}
		out = append(out, Snapshot{
			Kind:     r.kind.String(),
			Quantity: r.quantity,
			Produced: r.produced,
			Consumed: r.consumed,
			Bindings: len(r.bindings),
		})
	}
	return out
}
