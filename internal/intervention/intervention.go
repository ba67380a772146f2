// Package intervention implements C9: declarative initializations,
// condition-triggered interventions, and the per-target action ensembles
// that populate C8's queue (spec.md §4.6). Its ActionEnsemble generalizes
// the teacher's Colonizer interface (colonizer.go), which parameterizes a
// single numeric growth policy per host type, into three declarative
// policy groups (once / forEach / sampling) applied against a target set.
package intervention

import (
	"github.com/epihiper-go/epihiper/internal/actions"
	"github.com/epihiper-go/epihiper/internal/randstream"
	"github.com/epihiper-go/epihiper/internal/sets"
)

// ActionTemplate is an Operation shape with NodeID/EdgeTarget/EdgeSource
// left unbound; Instantiate binds it to a concrete target element.
type ActionTemplate struct {
	Priority  int
	Condition actions.Condition
	Op        actions.Operation
}

// Instantiate returns an actions.Action bound to nodeID (for node targets)
// or target/source (for edge targets), per spec.md §4.6 "forEach: action
// definitions instantiated per target element (node or edge)".
func (t ActionTemplate) Instantiate(nodeID int64, edgeTarget, edgeSource int64, isEdge bool) actions.Action {
	op := t.Op
	if isEdge {
		op.EdgeTarget = edgeTarget
		op.EdgeSource = edgeSource
	} else {
		op.NodeID = nodeID
	}
	return actions.Action{Priority: t.Priority, Condition: t.Condition, Operations: []actions.Operation{op}}
}

// SamplingMode names whether a sampling group's fraction is a percent or
// an absolute count, per spec.md §4.6.
type SamplingMode int

const (
	SamplingMaxCount SamplingMode = iota
	SamplingPercent
)

// Ensemble is the three optional groups spec.md §4.6 describes: once (run
// a single time regardless of target size), forEach (per target element),
// and sampling (chooses a subset, then recurses into Sampled/NonSampled).
type Ensemble struct {
	Once    []ActionTemplate
	ForEach []ActionTemplate

	HasSampling bool
	Mode        SamplingMode
	Amount      float64 // percent (0-100) or absolute count, per Mode

	Sampled    *Ensemble
	NonSampled *Ensemble
}

// Build expands ensemble against target's computed content into concrete
// queue actions for currentTick, per spec.md §4.6. allowance, when
// Mode == SamplingMaxCount, is this partition's share as computed by the
// caller. C11 passes floor(amount * localSize / total size across
// partitions), not a sets.AllocateMax allocation, so the partitions'
// allowances can add up to less than amount.
func Build(e *Ensemble, target *sets.Content, stream *randstream.Stream, allowance int) []actions.Action {
	var out []actions.Action
	for _, tmpl := range e.Once {
		out = append(out, actions.Action{Priority: tmpl.Priority, Condition: tmpl.Condition, Operations: []actions.Operation{tmpl.Op}})
	}
	for _, tmpl := range e.ForEach {
		out = append(out, expandForEach(tmpl, target)...)
	}
	if e.HasSampling {
		sampledIDs, nonSampledIDs := partitionSample(e, target, stream, allowance)
		if e.Sampled != nil {
			out = append(out, Build(e.Sampled, &sets.Content{Nodes: sampledIDs}, stream, allowance)...)
		}
		if e.NonSampled != nil {
			out = append(out, Build(e.NonSampled, &sets.Content{Nodes: nonSampledIDs}, stream, allowance)...)
		}
	}
	return out
}

func expandForEach(tmpl ActionTemplate, target *sets.Content) []actions.Action {
	var out []actions.Action
	for _, id := range target.Nodes {
		out = append(out, tmpl.Instantiate(id, 0, 0, false))
	}
	for _, e := range target.Edges {
		out = append(out, tmpl.Instantiate(0, e.Target, e.Source, true))
	}
	return out
}

func partitionSample(e *Ensemble, target *sets.Content, stream *randstream.Stream, allowance int) (sampled, nonSampled []int64) {
	var keep []int64
	switch e.Mode {
	case SamplingMaxCount:
		keep = sets.SampleAllowance(target.Nodes, allowance, stream)
	case SamplingPercent:
		keep = sets.SamplePercent(target.Nodes, e.Amount, stream)
	}
	keepSet := make(map[int64]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	for _, id := range target.Nodes {
		if keepSet[id] {
			sampled = append(sampled, id)
		} else {
			nonSampled = append(nonSampled, id)
		}
	}
	return sampled, nonSampled
}

// Initialization runs exactly once before the first tick against Target,
// per spec.md §4.6.
type Initialization struct {
	Name     string
	Target   *sets.Set
	Ensemble Ensemble
}

// Intervention is an Initialization keyed by id that may be re-fired by a
// Trigger.
type Intervention struct {
	ID       string
	Target   *sets.Set
	Ensemble Ensemble
}

// Trigger holds a condition and the intervention ids it fires when that
// condition is true. On each tick all triggers evaluate independently;
// C11/C12 then OR each trigger's per-partition result across all
// partitions so every partition fires the same interventions (spec.md
// §4.6).
type Trigger struct {
	Name          string
	Condition     actions.Condition
	InterventionIDs []string
}

// Evaluate runs t's condition against lookup, returning this partition's
// local vote; the caller is responsible for the cross-partition OR.
func (t Trigger) Evaluate(lookup actions.Lookup) (bool, error) {
	return actions.Evaluate(t.Condition, lookup)
}
