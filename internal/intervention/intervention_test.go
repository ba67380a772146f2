package intervention

import (
	"testing"

	"github.com/epihiper-go/epihiper/internal/actions"
	"github.com/epihiper-go/epihiper/internal/randstream"
	"github.com/epihiper-go/epihiper/internal/sets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOnceRunsSingleAction(t *testing.T) {
	e := &Ensemble{
		Once: []ActionTemplate{
			{Priority: 1, Condition: actions.Condition{Kind: actions.CondAlways}, Op: actions.Operation{Target: actions.TargetVariable, Variable: "edges_cut", Op: actions.OpAssign, Value: 68}},
		},
	}
	stream := randstream.New(1, 0, 0, 0)
	out := Build(e, &sets.Content{}, stream, 0)
	require.Len(t, out, 1)
	assert.Equal(t, "edges_cut", out[0].Operations[0].Variable)
}

func TestBuildForEachInstantiatesPerNode(t *testing.T) {
	e := &Ensemble{
		ForEach: []ActionTemplate{
			{Priority: 1, Op: actions.Operation{Target: actions.TargetHealthState, Op: actions.OpAssign, Value: 1}},
		},
	}
	target := &sets.Content{Nodes: []int64{10, 20, 30}}
	stream := randstream.New(1, 0, 0, 0)
	out := Build(e, target, stream, 0)
	require.Len(t, out, 3)
	ids := []int64{out[0].Operations[0].NodeID, out[1].Operations[0].NodeID, out[2].Operations[0].NodeID}
	assert.ElementsMatch(t, []int64{10, 20, 30}, ids)
}

func TestBuildSamplingSplitsIntoSampledAndNonSampled(t *testing.T) {
	e := &Ensemble{
		HasSampling: true,
		Mode:        SamplingMaxCount,
		Sampled: &Ensemble{
			ForEach: []ActionTemplate{{Priority: 1, Op: actions.Operation{Target: actions.TargetEdgeActive, Op: actions.OpAssign, Value: 0}}},
		},
		NonSampled: &Ensemble{
			ForEach: []ActionTemplate{{Priority: 1, Op: actions.Operation{Target: actions.TargetEdgeActive, Op: actions.OpAssign, Value: 1}}},
		},
	}
	target := &sets.Content{Nodes: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	stream := randstream.New(9, 0, 0, 0)
	out := Build(e, target, stream, 4)
	assert.Len(t, out, 10)
}

func TestTriggerEvaluateDelegatesToCondition(t *testing.T) {
	trig := Trigger{Condition: actions.Condition{Kind: actions.CondAlways}, InterventionIDs: []string{"iv1"}}
	ok, err := trig.Evaluate(&fakeLookup{})
	require.NoError(t, err)
	assert.True(t, ok)
}

type fakeLookup struct{}

func (fakeLookup) Resolve(ref string) (float64, error) { return 0, nil }
func (fakeLookup) TraitValue(index int) (int, error)   { return 0, nil }
