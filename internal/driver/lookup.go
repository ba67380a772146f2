package driver

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/epihiper-go/epihiper/internal/actions"
)

// tickLookup implements actions.Lookup against one partition's live
// computables for the duration of a single tick. A condition's LeftRef is
// resolved as a variable name, falling back to an observable name; the
// "var:"/"obs:" prefixes disambiguate the rare case a variable and an
// observable share a name. TraitValue needs a node to evaluate against,
// which the driver sets before evaluating each action's or trigger's
// condition (spec.md §4.5 "Conditions ... trait slice predicates").
type tickLookup struct {
	d              *Driver
	contextNodeID  int64
	hasContextNode bool
}

func (l *tickLookup) setContextNode(id int64) {
	l.contextNodeID = id
	l.hasContextNode = true
}

func (l *tickLookup) clearContextNode() {
	l.hasContextNode = false
}

func (l *tickLookup) Resolve(ref string) (float64, error) {
	switch {
	case strings.HasPrefix(ref, "var:"):
		return l.d.Variables.Get(strings.TrimPrefix(ref, "var:"))
	case strings.HasPrefix(ref, "obs:"):
		return l.d.Observables.Get(strings.TrimPrefix(ref, "obs:"))
	}
	if v, err := l.d.Variables.Get(ref); err == nil {
		return v, nil
	}
	return l.d.Observables.Get(ref)
}

func (l *tickLookup) TraitValue(index int) (int, error) {
	if !l.hasContextNode {
		return 0, errors.New("driver: trait predicate evaluated without a context node")
	}
	node, ok := l.d.Partition.LookupNode(l.contextNodeID)
	if !ok {
		return 0, errors.Errorf("driver: trait predicate references unknown node %d", l.contextNodeID)
	}
	if l.d.TraitCodec == nil {
		return 0, errors.New("driver: trait predicate requires a trait codec")
	}
	values, err := l.d.TraitCodec.Unpack(node.Traits)
	if err != nil {
		return 0, errors.Wrap(err, "driver: unpack node traits")
	}
	if index < 0 || index >= len(values) {
		return 0, errors.Errorf("driver: trait index %d out of range", index)
	}
	return values[index], nil
}

// contextNodeOf returns the node an action concerns, for trait-predicate
// evaluation: the node id of a node-targeted operation, or the edge's
// target for an edge-targeted one. Actions mix at most one kind of target
// across their Operations in practice, so the first operation decides.
func contextNodeOf(a actions.Action) (int64, bool) {
	if len(a.Operations) == 0 {
		return 0, false
	}
	op := a.Operations[0]
	switch op.Target {
	case actions.TargetEdgeActive, actions.TargetEdgeWeight, actions.TargetEdgeDuration:
		return op.EdgeTarget, true
	case actions.TargetVariable:
		return 0, false
	default:
		return op.NodeID, true
	}
}
