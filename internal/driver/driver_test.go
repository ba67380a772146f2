package driver

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epihiper-go/epihiper/internal/actions"
	"github.com/epihiper-go/epihiper/internal/diseasemodel"
	"github.com/epihiper-go/epihiper/internal/distribution"
	"github.com/epihiper-go/epihiper/internal/network"
	"github.com/epihiper-go/epihiper/internal/variables"
)

// sirPartition builds a two-node partition: node 1 is infected and
// already exposing node 2 over an active, long-duration edge, so the
// transmission hazard is large enough that infection fires on tick 0
// with overwhelming probability for any seed.
func sirPartition(t *testing.T) *network.Partition {
	t.Helper()
	edges := []network.Edge{
		{Target: 2, Source: 1, HasActive: true, Active: true, Duration: 500},
	}
	parts := network.BuildPartitions(edges, []int64{3}, nil)
	require.Len(t, parts, 1)
	part := parts[0]

	source, ok := part.LookupNode(1)
	require.True(t, ok)
	source.HealthState = 1
	source.Infectivity = 1
	source.Susceptibility = 1

	exposed, ok := part.LookupNode(2)
	require.True(t, ok)
	exposed.HealthState = 0
	exposed.Infectivity = 1
	exposed.Susceptibility = 1

	return part
}

// sirModel is Susceptible(0) -> Infected(1) -> Recovered(2), with recovery
// always firing exactly one tick after infection.
func sirModel() *diseasemodel.Model {
	return &diseasemodel.Model{
		States: []string{"S", "I", "R"},
		Transmissions: []diseasemodel.Transmission{
			{Name: "infect", EntryState: 0, ContactState: 1, ExitState: 1, Transmissibility: 1},
		},
		Progressions: []diseasemodel.Progression{
			{
				Name: "recover", EntryState: 1, ExitState: 2, Probability: 1,
				Dwell: diseasemodel.Dwell{Kind: diseasemodel.DwellFixed, Fixed: 1},
			},
		},
	}
}

func TestRunAdvancesTickByOnePastEndTick(t *testing.T) {
	cfg := Config{
		Partition: sirPartition(t),
		Model:     sirModel(),
		StartTick: 0,
		EndTick:   3,
	}
	d, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, int64(4), d.CurrentTick())
}

func TestRunInfectsExposedNodeAndLatersRecovers(t *testing.T) {
	part := sirPartition(t)
	cfg := Config{
		Partition: part,
		Model:     sirModel(),
		StartTick: 0,
		EndTick:   3,
	}
	d, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Run(context.Background()))

	exposed, ok := part.LookupNode(2)
	require.True(t, ok)
	assert.Equal(t, 2, exposed.HealthState, "node should have progressed S -> I -> R")
}

func TestRunEmitsChangeRecordsForEveryHealthStateMutation(t *testing.T) {
	part := sirPartition(t)
	var changeOut bytes.Buffer
	cfg := Config{
		Partition: part,
		Model:     sirModel(),
		StartTick: 0,
		EndTick:   3,
		ChangeOut: &changeOut,
	}
	d, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Run(context.Background()))

	rows := strings.Split(strings.TrimSpace(changeOut.String()), "\n")
	require.Len(t, rows, 2, "one row for the S->I infection, one for the I->R recovery")
	assert.Contains(t, rows[0], ",1,")
	assert.Contains(t, rows[1], ",2,")
}

func TestRunWritesConservingGlobalStateCounts(t *testing.T) {
	part := sirPartition(t)
	model := sirModel()
	var globalOut bytes.Buffer
	cfg := Config{
		Partition:      part,
		Model:          model,
		StartTick:      0,
		EndTick:        3,
		GlobalStateOut: &globalOut,
	}
	d, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(globalOut.String()), "\n")
	require.NotEmpty(t, lines)

	const totalPopulation = 2 // sirPartition has exactly two nodes

	for _, line := range lines {
		fields := strings.Split(line, ",")
		// tick + 3 columns (in,out,current) per state.
		require.Equal(t, 1+3*len(model.States), len(fields))
		var sumCurrent int64
		for s := 0; s < len(model.States); s++ {
			in, err := strconv.ParseInt(fields[1+3*s], 10, 64)
			require.NoError(t, err)
			out, err := strconv.ParseInt(fields[2+3*s], 10, 64)
			require.NoError(t, err)
			current, err := strconv.ParseInt(fields[3+3*s], 10, 64)
			require.NoError(t, err)
			assert.Equal(t, in-out, current, "state %d should conserve on line %q", s, line)
			sumCurrent += current
		}
		assert.Equal(t, int64(totalPopulation), sumCurrent, "state counts should sum to the total population on line %q", line)
	}
}

func TestRunFailsOnInvalidDiseaseModel(t *testing.T) {
	badModel := &diseasemodel.Model{
		States: []string{"S", "I"},
		Transmissions: []diseasemodel.Transmission{
			{Name: "bad", EntryState: 0, ContactState: 1, ExitState: 5, Transmissibility: 1},
		},
	}
	_, err := New(Config{Partition: sirPartition(t), Model: badModel})
	assert.Error(t, err)
}

func TestSyncVariablesFoldsLocalDeltaIntoGlobalValue(t *testing.T) {
	registry := variables.NewRegistry()
	require.NoError(t, registry.Define(variables.Variable{Name: "totalInfected", Scope: variables.ScopeGlobal}))

	cfg := Config{
		Partition: sirPartition(t),
		Model:     sirModel(),
		Variables: registry,
		StartTick: 0,
		EndTick:   0,
	}
	d, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, registry.AddDelta("totalInfected", 5))
	require.NoError(t, d.syncVariables(context.Background()))

	got, err := registry.Get("totalInfected")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)

	// A second sync with no new delta should leave the value unchanged.
	require.NoError(t, d.syncVariables(context.Background()))
	got, err = registry.Get("totalInfected")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
}

func TestDrainActionQueueAppliesQueuedHealthStateChange(t *testing.T) {
	part := sirPartition(t)
	cfg := Config{
		Partition: part,
		Model:     sirModel(),
		StartTick: 0,
		EndTick:   0,
	}
	d, err := New(cfg)
	require.NoError(t, err)
	d.current = 0

	d.Queue.Add(0, 0, actions.Action{
		Priority:  0,
		Condition: actions.Condition{Kind: actions.CondAlways},
		Operations: []actions.Operation{
			{Target: actions.TargetHealthState, Op: actions.OpAssign, Value: 2, NodeID: 1},
		},
	})

	require.NoError(t, d.drainActionQueue(context.Background()))

	node, ok := part.LookupNode(1)
	require.True(t, ok)
	assert.Equal(t, 2, node.HealthState)
}

func TestDrainActionQueueShipsRemoteActionsToOwningRank(t *testing.T) {
	part := sirPartition(t)
	group := distribution.NewLoopbackGroup(2)
	cfg := Config{
		Partition: part,
		Model:     sirModel(),
		Transport: group[0],
		StartTick: 0,
		EndTick:   0,
	}
	d, err := New(cfg)
	require.NoError(t, err)
	d.current = 0

	d.Queue.Add(0, 0, actions.Action{
		Priority:   0,
		Remote:     true,
		OwnerRank:  1,
		Condition:  actions.Condition{Kind: actions.CondAlways},
		Operations: []actions.Operation{{Target: actions.TargetHealthState, Op: actions.OpAssign, Value: 2, NodeID: 1}},
	})

	require.NoError(t, d.processOneRound())
	require.NoError(t, d.shipOutbox(context.Background()))

	envs, err := group[1].Receive(context.Background())
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, distribution.KindRemoteAction, envs[0].Kind)
}

func TestNewRejectsMissingPartition(t *testing.T) {
	_, err := New(Config{Model: sirModel()})
	assert.Error(t, err)
}

func TestNewRejectsMissingModel(t *testing.T) {
	_, err := New(Config{Partition: sirPartition(t)})
	assert.Error(t, err)
}

func TestContextNodeOfPrefersEdgeTargetForEdgeOperations(t *testing.T) {
	action := actions.Action{Operations: []actions.Operation{
		{Target: actions.TargetEdgeWeight, EdgeTarget: 7, EdgeSource: 3, Value: 1},
	}}
	id, ok := contextNodeOf(action)
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestContextNodeOfHasNoNodeForVariableOperations(t *testing.T) {
	action := actions.Action{Operations: []actions.Operation{
		{Target: actions.TargetVariable, Variable: "x", Value: 1},
	}}
	_, ok := contextNodeOf(action)
	assert.False(t, ok)
}
