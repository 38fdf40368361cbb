// Package resource implements the per-city resource ledger: one Resource per
// Kind, per-cycle production and consumption counters, and Bindings that tie a
// producing entity to the resource it feeds.
package resource

import (
	"fmt"
	"strings"

	"github.com/citysim/core/internal/core/errs"
	"github.com/google/uuid"
)

// Kind tags a resource type. The set is closed; every kind has a typed
// accessor on Ledger.
type Kind int

const (
	Electricity Kind = iota
	Water
	Money
	kindCount
)

var kindNames = [kindCount]string{"electricity", "water", "money"}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) Valid() bool { return k >= 0 && k < kindCount }

// Kinds lists every resource kind in ledger order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind maps a catalog name ("electricity") to its Kind.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, kn := range kindNames {
		if kn == n {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown resource kind %q", errs.ErrConfiguration, name)
}

// Resource is one ledger entry. Quantity is the running total; Produced and
// Consumed only cover the current cycle and are zeroed by ResetCounters.
type Resource struct {
	kind     Kind
	quantity float64
	produced float64
	consumed float64
	bindings []*Binding
}

func newResource(k Kind) *Resource {
	return &Resource{kind: k}
}

func (r *Resource) Kind() Kind           { return r.kind }
func (r *Resource) Quantity() float64    { return r.quantity }
func (r *Resource) Produced() float64    { return r.produced }
func (r *Resource) Consumed() float64    { return r.consumed }
func (r *Resource) Bindings() []*Binding { return r.bindings }

// Add increases the quantity and this cycle's production by amount.
func (r *Resource) Add(amount float64) {
	r.quantity += amount
	r.produced += amount
}

// Consume takes up to amount from the quantity and returns what was actually
// taken. The quantity never goes below zero.
func (r *Resource) Consume(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	if amount > r.quantity {
		amount = r.quantity
	}
	r.quantity -= amount
	r.consumed += amount
	return amount
}

// ResetCounters zeroes production and consumption. Quantity is untouched.
func (r *Resource) ResetCounters() {
	r.produced = 0
	r.consumed = 0
}

// Bind attaches owner as a producer of r. Owners are compared by identity;
// binding the same owner twice is a configuration error.
func (r *Resource) Bind(owner any) (*Binding, error) {
	if owner == nil {
		return nil, fmt.Errorf("%w: nil owner for %s binding", errs.ErrConfiguration, r.kind)
	}
	for _, b := range r.bindings {
		if b.owner == owner {
			return nil, fmt.Errorf("%w: %s already bound to %v", errs.ErrConfiguration, r.kind, b.ID)
		}
	}
	b := &Binding{ID: uuid.New(), owner: owner, res: r}
	r.bindings = append(r.bindings, b)
	return b, nil
}

// BoundTo reports whether owner currently holds a binding on r.
func (r *Resource) BoundTo(owner any) bool {
	for _, b := range r.bindings {
		if b.owner == owner {
			return true
		}
	}
	return false
}

func (r *Resource) detach(b *Binding) {
	for i, cur := range r.bindings {
		if cur == b {
			copy(r.bindings[i:], r.bindings[i+1:])
			r.bindings[len(r.bindings)-1] = nil
			r.bindings = r.bindings[:len(r.bindings)-1]
			return
		}
	}
}

// Binding ties a producing entity to a Resource. Once destroyed it no longer
// feeds the resource; what it already contributed stays in the quantity.
type Binding struct {
	ID          uuid.UUID
	owner       any
	res         *Resource
	contributed float64
	destroyed   bool
}

func (b *Binding) Owner() any           { return b.owner }
func (b *Binding) Resource() *Resource  { return b.res }
func (b *Binding) Contributed() float64 { return b.contributed }
func (b *Binding) Active() bool         { return !b.destroyed }

// Add produces amount into the bound resource.
func (b *Binding) Add(amount float64) error {
	if b.destroyed {
		return fmt.Errorf("%w: add through destroyed %s binding %v", errs.ErrConsistency, b.res.kind, b.ID)
	}
	b.res.Add(amount)
	b.contributed += amount
	return nil
}

// Destroy detaches the binding from its resource. It reports false if the
// binding was already destroyed.
func (b *Binding) Destroy() bool {
	if b.destroyed {
		return false
	}
	b.destroyed = true
	b.res.detach(b)
	return true
}
