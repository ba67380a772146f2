package driver

import (
	"math"

	"github.com/pkg/errors"

	"github.com/epihiper-go/epihiper/internal/actions"
	"github.com/epihiper-go/epihiper/internal/changelog"
	"github.com/epihiper-go/epihiper/internal/network"
	"github.com/epihiper-go/epihiper/internal/variables"
)

// tickExecutor implements actions.Executor against one partition's live
// node/edge storage and variable registry, recording C10 change records
// when a health-state mutation fires (spec.md §4.5 "Operations").
type tickExecutor struct {
	d *Driver
}

func (e *tickExecutor) Execute(op actions.Operation) error {
	switch op.Target {
	case actions.TargetHealthState:
		return e.d.applyHealthState(op)
	case actions.TargetSusceptibility:
		return e.d.mutateNode(op, func(n *nodeRef) { n.node.Susceptibility = op.Op.Apply(n.node.Susceptibility, op.Value) })
	case actions.TargetSusceptibilityFactor:
		return e.d.mutateNode(op, func(n *nodeRef) { n.node.Susceptibility = math.Max(0, op.Op.Apply(n.node.Susceptibility, op.Value)) })
	case actions.TargetInfectivity:
		return e.d.mutateNode(op, func(n *nodeRef) { n.node.Infectivity = op.Op.Apply(n.node.Infectivity, op.Value) })
	case actions.TargetInfectivityFactor:
		return e.d.mutateNode(op, func(n *nodeRef) { n.node.Infectivity = math.Max(0, op.Op.Apply(n.node.Infectivity, op.Value)) })
	case actions.TargetTrait:
		return e.d.mutateTrait(op)
	case actions.TargetEdgeActive:
		return e.d.mutateEdge(op, func(edge *edgeRef) {
			current := 0.0
			if edge.edge.IsActive() {
				current = 1
			}
			edge.edge.Active = op.Op.Apply(current, op.Value) != 0
			edge.edge.HasActive = true
		})
	case actions.TargetEdgeWeight:
		return e.d.mutateEdge(op, func(edge *edgeRef) {
			edge.edge.Weight = op.Op.Apply(edge.edge.EffectiveWeight(), op.Value)
			edge.edge.HasWeight = true
		})
	case actions.TargetEdgeDuration:
		return e.d.mutateEdge(op, func(edge *edgeRef) {
			edge.edge.Duration = op.Op.Apply(edge.edge.Duration, op.Value)
		})
	case actions.TargetVariable:
		return e.d.applyVariable(op)
	}
	return errors.Errorf("driver: unknown operation target %d", op.Target)
}

type nodeRef struct{ node *network.Node }

func (d *Driver) mutateNode(op actions.Operation, apply func(*nodeRef)) error {
	node, ok := d.Partition.LookupNode(op.NodeID)
	if !ok || node.Remote {
		return errors.Errorf("driver: operation targets unknown or remote node %d", op.NodeID)
	}
	apply(&nodeRef{node: node})
	node.Dirty = true
	return nil
}

type edgeRef struct{ edge *network.Edge }

func (d *Driver) mutateEdge(op actions.Operation, apply func(*edgeRef)) error {
	edge, ok := d.Partition.LookupEdge(op.EdgeTarget, op.EdgeSource)
	if !ok {
		return errors.Errorf("driver: operation targets unknown edge (%d,%d)", op.EdgeTarget, op.EdgeSource)
	}
	apply(&edgeRef{edge: edge})
	return nil
}

func (d *Driver) mutateTrait(op actions.Operation) error {
	if d.TraitCodec == nil {
		return errors.New("driver: trait mutation requires a trait codec")
	}
	return d.mutateNode(op, func(n *nodeRef) {
		values, err := d.TraitCodec.Unpack(n.node.Traits)
		if err != nil || op.TraitIndex < 0 || op.TraitIndex >= len(values) {
			return
		}
		values[op.TraitIndex] = op.TraitValue
		if packed, err := d.TraitCodec.Pack(values); err == nil {
			n.node.Traits = packed
		}
	})
}

func (d *Driver) applyHealthState(op actions.Operation) error {
	node, ok := d.Partition.LookupNode(op.NodeID)
	if !ok || node.Remote {
		return errors.Errorf("driver: health-state operation targets unknown or remote node %d", op.NodeID)
	}
	exitState := node.HealthState
	newState := int(op.Op.Apply(float64(exitState), op.Value))
	node.HealthState = newState
	node.Dirty = true

	d.tickOut[exitState]++
	d.tickIn[newState]++

	d.changeBuf.Append(changelog.Record{
		Tick:           d.current,
		NodeID:         node.ID,
		ExitState:      newState,
		HasContactNode: op.HasContactNodeID,
		ContactNodeID:  op.ContactNodeID,
		HasLocationID:  op.HasLocationID,
		LocationID:     op.LocationID,
	})

	d.scheduleProgression(node.ID, newState)
	return nil
}

func (d *Driver) applyVariable(op actions.Operation) error {
	v, ok := d.Variables.Lookup(op.Variable)
	if !ok {
		return errors.Errorf("driver: operation references unknown variable %q", op.Variable)
	}
	if v.Scope == variables.ScopeGlobal {
		return d.Variables.AddDelta(op.Variable, op.Value)
	}
	return d.Variables.Assign(op.Variable, op.Op.Apply(v.Value, op.Value))
}
