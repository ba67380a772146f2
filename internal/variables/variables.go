// Package variables implements C4: named scalars with global
// (reduction-synchronized) or local scope (spec.md §3 "Variable", glossary
// row C4). It is grounded on the teacher's stop_condition.go, which tracks
// a named running scalar (infected count) and compares it against a
// threshold each tick; here that single-purpose counter becomes a general
// named-variable registry with a pluggable reduction for global scope.
package variables

import "github.com/pkg/errors"

// Scope mirrors the set engine's local/global distinction (spec.md §3).
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeGlobal
)

// ResetPolicy controls what happens to a variable's value at the start of
// each tick, before deltas for the new tick are applied.
type ResetPolicy int

const (
	// ResetNever carries the value forward across ticks.
	ResetNever ResetPolicy = iota
	// ResetToInitial restores InitialValue at the start of every tick.
	ResetToInitial
)

// Variable is one named scalar, per spec.md §3: "id, scope (global/local),
// value, initial value, reset policy."
type Variable struct {
	Name         string
	Scope        Scope
	Value        float64
	InitialValue float64
	Reset        ResetPolicy

	// pendingDelta accumulates local contributions for a global variable
	// until the next cross-partition reduction (spec.md §3, "a global
	// variable is kept consistent by reducing per-tick deltas across
	// partitions").
	pendingDelta float64
}

// Registry holds every variable known to one partition process.
type Registry struct {
	vars map[string]*Variable
}

// NewRegistry returns an empty variable registry.
func NewRegistry() *Registry {
	return &Registry{vars: make(map[string]*Variable)}
}

// Define registers a new variable. It is an error to redefine a name.
func (r *Registry) Define(v Variable) error {
	if _, exists := r.vars[v.Name]; exists {
		return errors.Errorf("variables: %q already defined", v.Name)
	}
	v.Value = v.InitialValue
	cp := v
	r.vars[v.Name] = &cp
	return nil
}

// Get returns the named variable's current value.
func (r *Registry) Get(name string) (float64, error) {
	v, ok := r.vars[name]
	if !ok {
		return 0, errors.Errorf("variables: %q not defined", name)
	}
	return v.Value, nil
}

// Lookup returns the Variable itself, for callers (C8 operations) that need
// to inspect scope before mutating.
func (r *Registry) Lookup(name string) (*Variable, bool) {
	v, ok := r.vars[name]
	return v, ok
}

// PendingDelta returns a global variable's accumulated-but-unreduced local
// delta, for C11 to hand to the distribution plane's cross-partition
// reduction ahead of calling Reduce.
func (r *Registry) PendingDelta(name string) (float64, error) {
	v, ok := r.vars[name]
	if !ok {
		return 0, errors.Errorf("variables: %q not defined", name)
	}
	if v.Scope != ScopeGlobal {
		return 0, errors.Errorf("variables: %q is local, has no pending delta", name)
	}
	return v.pendingDelta, nil
}

// Assign sets a local variable's value directly. Global variables must go
// through AddDelta + Reduce so every partition's contribution is counted.
func (r *Registry) Assign(name string, value float64) error {
	v, ok := r.vars[name]
	if !ok {
		return errors.Errorf("variables: %q not defined", name)
	}
	if v.Scope == ScopeGlobal {
		return errors.Errorf("variables: %q is global, use AddDelta", name)
	}
	v.Value = value
	return nil
}

// AddDelta records a local contribution to a global variable, to be folded
// in at the next Reduce call (spec.md §3).
func (r *Registry) AddDelta(name string, delta float64) error {
	v, ok := r.vars[name]
	if !ok {
		return errors.Errorf("variables: %q not defined", name)
	}
	if v.Scope != ScopeGlobal {
		return errors.Errorf("variables: %q is local, use Assign", name)
	}
	v.pendingDelta += delta
	return nil
}

// ReduceFunc combines this partition's pending delta with the deltas
// collected from every other partition (via C12) into the new value.
type ReduceFunc func(current float64, localDelta float64, peerDeltas []float64) float64

// SumReduce is the default ReduceFunc: new value = current + sum of all
// partitions' deltas.
func SumReduce(current, localDelta float64, peerDeltas []float64) float64 {
	total := current + localDelta
	for _, d := range peerDeltas {
		total += d
	}
	return total
}

// Reduce applies reduce to name's pending delta and any peerDeltas gathered
// from other partitions (by C12's collective), then clears the pending
// delta for the next tick.
func (r *Registry) Reduce(name string, peerDeltas []float64, reduce ReduceFunc) error {
	v, ok := r.vars[name]
	if !ok {
		return errors.Errorf("variables: %q not defined", name)
	}
	if v.Scope != ScopeGlobal {
		return errors.Errorf("variables: %q is local, nothing to reduce", name)
	}
	v.Value = reduce(v.Value, v.pendingDelta, peerDeltas)
	v.pendingDelta = 0
	return nil
}

// BeginTick applies each variable's reset policy, called by C11 before the
// tick's first consumer reads any variable.
func (r *Registry) BeginTick() {
	for _, v := range r.vars {
		if v.Reset == ResetToInitial {
			v.Value = v.InitialValue
		}
	}
}

// Names returns every defined variable name, for diagnostics and C7 graph
// construction.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.vars))
	for name := range r.vars {
		names = append(names, name)
	}
	return names
}
