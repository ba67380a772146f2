// Package dependency implements C7: a DAG over every computable (variable,
// observable, set, condition), topologically ordering a tick's requested
// computables so each is refreshed at most once, with prerequisites fresh
// before dependents (spec.md §4.4). It is grounded on the teacher's
// sequence_tree.go memoization pattern (Genotype.Fitness caches per fitness
// model id rather than recomputing), generalized here from a single memo
// cache into an explicit graph with three traversal modes.
package dependency

import "github.com/pkg/errors"

// Mode selects how Order walks the graph from a requested node.
type Mode int

const (
	// ModeBefore (pre-order) lists prerequisites before dependents: the
	// "apply update order" walk spec.md §4.4 describes.
	ModeBefore Mode = iota
	// ModeAfter (post-order) lists dependents before prerequisites.
	ModeAfter
	// ModeRecursive walks the same way as ModeBefore but is also used as
	// the cycle indicator: Order returns an error at the first back-edge
	// found, regardless of mode, unless ignoreCycles is set on the Graph.
	ModeRecursive
)

// Graph is a DAG of named computables. Edges go from prerequisite to
// dependent, matching spec.md §4.4's "edges go from prerequisite to
// dependent".
type Graph struct {
	nodes        map[string]bool
	dependsOn    map[string][]string // node -> its prerequisites
	ignoreCycles bool

	fresh map[string]bool
}

// NewGraph returns an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]bool),
		dependsOn: make(map[string][]string),
		fresh:     make(map[string]bool),
	}
}

// SetIgnoreCycles controls whether Order reports cycles as errors (the
// default) or silently proceeds in whatever order DFS visits nodes,
// matching spec.md §4.4 "unless an ignore flag is set".
func (g *Graph) SetIgnoreCycles(ignore bool) { g.ignoreCycles = ignore }

// AddNode registers a computable. It is a no-op if already present.
func (g *Graph) AddNode(name string) { g.nodes[name] = true }

// AddEdge declares that dependent requires prerequisite to be fresh first.
func (g *Graph) AddEdge(prerequisite, dependent string) {
	g.AddNode(prerequisite)
	g.AddNode(dependent)
	g.dependsOn[dependent] = append(g.dependsOn[dependent], prerequisite)
}

// MarkStale invalidates one or more nodes, typically called when their
// upstream input (a node/edge field, an external trigger) changes.
func (g *Graph) MarkStale(names ...string) {
	for _, n := range names {
		g.fresh[n] = false
	}
}

// MarkAllStale invalidates every node, called at the start of a tick
// before the update-order pass (spec.md §4.4).
func (g *Graph) MarkAllStale() {
	for n := range g.nodes {
		g.fresh[n] = false
	}
}

// Order returns the transitive closure of requested's prerequisites plus
// requested itself, in the traversal order named by mode, excluding nodes
// already marked fresh. Cycles are reported as errors unless ignoreCycles.
func (g *Graph) Order(mode Mode, requested []string) ([]string, error) {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var order []string

	// A post-order DFS over "depends on" edges (visit prerequisites, then
	// append the node itself) is already a valid topological order:
	// every prerequisite is appended before any of its dependents.
	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			if g.ignoreCycles {
				return nil
			}
			return errors.Errorf("dependency: cycle detected at %q", name)
		}
		visiting[name] = true
		for _, dep := range g.dependsOn[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		if g.fresh[name] {
			return nil
		}
		order = append(order, name)
		return nil
	}

	for _, r := range requested {
		if err := visit(r); err != nil {
			return nil, err
		}
	}

	if mode == ModeAfter {
		reversed := make([]string, len(order))
		for i, name := range order {
			reversed[len(order)-1-i] = name
		}
		return reversed, nil
	}
	return order, nil
}

// ApplyComputeOnce runs compute for every static (no stale dependency ever
// again) node exactly once, per spec.md §4.4 "apply compute-once pass".
// Callers pass the full initial requested set; compute is invoked in
// ModeBefore order and every visited node is marked fresh afterward.
func (g *Graph) ApplyComputeOnce(requested []string, compute func(name string) error) error {
	order, err := g.Order(ModeBefore, requested)
	if err != nil {
		return err
	}
	for _, name := range order {
		if err := compute(name); err != nil {
			return err
		}
		g.fresh[name] = true
	}
	return nil
}

// ApplyUpdateOrder runs compute for every currently-stale node in
// requested's transitive closure, in dependency order, marking each fresh
// as it completes (spec.md §4.4 "thereafter applyUpdateOrder runs each
// tick").
func (g *Graph) ApplyUpdateOrder(requested []string, compute func(name string) error) error {
	order, err := g.Order(ModeBefore, requested)
	if err != nil {
		return err
	}
	for _, name := range order {
		if err := compute(name); err != nil {
			return err
		}
		g.fresh[name] = true
	}
	return nil
}
