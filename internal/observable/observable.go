// Package observable implements C6: lazy derived scalars with a fixed
// recipe (elapsed tick, total population, health-state counts), refreshed
// exactly once per tick by C7 before any consumer reads them (spec.md §3
// "Observable", §4.4). It plays the same registry-of-named-lazy-values role
// the teacher's stop_condition.go plays for a single hardcoded "infected
// count" check, generalized to the fixed recipe set spec.md names.
package observable

import "github.com/pkg/errors"

// Recipe names which fixed computation an Observable performs.
type Recipe int

const (
	RecipeElapsedTick Recipe = iota
	RecipeTotalPopulation
	RecipeStateCount
)

// CountKind selects which of the four state-count flavors spec.md §3
// names: absolute/relative, current/in/out.
type CountKind int

const (
	CountCurrentAbsolute CountKind = iota
	CountCurrentRelative
	CountInAbsolute
	CountOutAbsolute
)

// Observable is one named lazy scalar.
type Observable struct {
	Name      string
	Recipe    Recipe
	State     int // used when Recipe == RecipeStateCount
	CountKind CountKind

	value float64
	fresh bool
}

// StateCounts is the snapshot C11 hands to Refresh each tick: per-state
// current/in/out counts plus total population, matching the global state
// count CSV columns (spec.md §6).
type StateCounts struct {
	Tick             int64
	TotalPopulation  int64
	Current, In, Out []int64 // indexed by state
}

// Registry holds every observable known to one partition process.
type Registry struct {
	byName map[string]*Observable
}

// NewRegistry returns an empty observable registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Observable)}
}

// Define registers a new observable. Redefining a name is an error.
func (r *Registry) Define(o Observable) error {
	if _, exists := r.byName[o.Name]; exists {
		return errors.Errorf("observable: %q already defined", o.Name)
	}
	cp := o
	r.byName[o.Name] = &cp
	return nil
}

// Invalidate marks every observable stale, called by C7 at the start of a
// tick's update-order pass so consumers don't read last tick's value.
func (r *Registry) Invalidate() {
	for _, o := range r.byName {
		o.fresh = false
	}
}

// Refresh recomputes name against snap if it isn't already fresh this tick,
// implementing the "registered as a prerequisite ... refreshed exactly once
// per tick" contract (spec.md §3).
func (r *Registry) Refresh(name string, snap StateCounts) (float64, error) {
	o, ok := r.byName[name]
	if !ok {
		return 0, errors.Errorf("observable: %q not defined", name)
	}
	if o.fresh {
		return o.value, nil
	}
	switch o.Recipe {
	case RecipeElapsedTick:
		o.value = float64(snap.Tick)
	case RecipeTotalPopulation:
		o.value = float64(snap.TotalPopulation)
	case RecipeStateCount:
		if o.State < 0 || o.State >= len(snap.Current) {
			return 0, errors.Errorf("observable: %q references unknown state %d", o.Name, o.State)
		}
		switch o.CountKind {
		case CountCurrentAbsolute:
			o.value = float64(snap.Current[o.State])
		case CountCurrentRelative:
			if snap.TotalPopulation == 0 {
				o.value = 0
			} else {
				o.value = float64(snap.Current[o.State]) / float64(snap.TotalPopulation)
			}
		case CountInAbsolute:
			o.value = float64(snap.In[o.State])
		case CountOutAbsolute:
			o.value = float64(snap.Out[o.State])
		}
	}
	o.fresh = true
	return o.value, nil
}

// Get returns the last refreshed value without recomputing, for consumers
// that run strictly after C7's update-order pass for this tick.
func (r *Registry) Get(name string) (float64, error) {
	o, ok := r.byName[name]
	if !ok {
		return 0, errors.Errorf("observable: %q not defined", name)
	}
	return o.value, nil
}

// Names returns every defined observable name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
