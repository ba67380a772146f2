package actions

import (
	"testing"

	"github.com/epihiper-go/epihiper/internal/randstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	values map[string]float64
	traits map[int]int
}

func (l *fakeLookup) Resolve(ref string) (float64, error) { return l.values[ref], nil }
func (l *fakeLookup) TraitValue(index int) (int, error)    { return l.traits[index], nil }

type recordingExecutor struct {
	applied []Operation
}

func (e *recordingExecutor) Execute(op Operation) error {
	e.applied = append(e.applied, op)
	return nil
}

func TestOperatorApply(t *testing.T) {
	assert.Equal(t, 5.0, OpAssign.Apply(1, 5))
	assert.Equal(t, 10.0, OpMultiply.Apply(5, 2))
	assert.Equal(t, 2.5, OpDivide.Apply(5, 2))
	assert.Equal(t, 0.0, OpDivide.Apply(5, 0))
	assert.Equal(t, 7.0, OpAdd.Apply(5, 2))
	assert.Equal(t, 3.0, OpSubtract.Apply(5, 2))
}

func TestEvaluateCompare(t *testing.T) {
	l := &fakeLookup{values: map[string]float64{"infected": 10}}
	cond := Condition{Kind: CondCompare, LeftRef: "infected", Op: CmpGt, Right: 5}
	ok, err := Evaluate(cond, l)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateAndShortCircuits(t *testing.T) {
	l := &fakeLookup{values: map[string]float64{"a": 1, "b": 0}}
	cond := Condition{Kind: CondAnd, Operands: []Condition{
		{Kind: CondCompare, LeftRef: "a", Op: CmpEq, Right: 1},
		{Kind: CondCompare, LeftRef: "b", Op: CmpEq, Right: 1},
	}}
	ok, err := Evaluate(cond, l)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateNotNegates(t *testing.T) {
	l := &fakeLookup{}
	cond := Condition{Kind: CondNot, Operands: []Condition{{Kind: CondAlways}}}
	ok, err := Evaluate(cond, l)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateTraitEquals(t *testing.T) {
	l := &fakeLookup{traits: map[int]int{0: 3}}
	cond := Condition{Kind: CondTraitEquals, TraitIndex: 0, TraitValue: 3}
	ok, err := Evaluate(cond, l)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestQueueAddAndTake(t *testing.T) {
	q := NewQueue()
	q.Add(10, 0, Action{Priority: 1})
	q.Add(10, 5, Action{Priority: 2})

	assert.Equal(t, 1, q.PendingCount(10))
	assert.Equal(t, 1, q.PendingCount(15))

	batch := q.Take(10)
	assert.Len(t, batch, 1)
	assert.Equal(t, 0, q.PendingCount(10))
}

func TestGroupByPriorityOrdersDescending(t *testing.T) {
	stream := randstream.New(1, 0, 0, 0)
	batch := []Action{
		{Priority: 1},
		{Priority: 5},
		{Priority: 3},
	}
	ordered := GroupByPriority(batch, stream)
	require.Len(t, ordered, 3)
	assert.Equal(t, 5, ordered[0].Priority)
	assert.Equal(t, 3, ordered[1].Priority)
	assert.Equal(t, 1, ordered[2].Priority)
}

func TestProcessTickExecutesOnlyPassingActions(t *testing.T) {
	q := NewQueue()
	q.Add(0, 0, Action{
		Priority:  1,
		Condition: Condition{Kind: CondAlways},
		Operations: []Operation{
			{Target: TargetSusceptibility, Op: OpAssign, Value: 0.5},
		},
	})
	q.Add(0, 0, Action{
		Priority:  1,
		Condition: Condition{Kind: CondCompare, LeftRef: "never", Op: CmpGt, Right: 1},
		Operations: []Operation{
			{Target: TargetInfectivity, Op: OpAssign, Value: 9.9},
		},
	})

	exec := &recordingExecutor{}
	stream := randstream.New(1, 0, 0, 0)
	l := &fakeLookup{values: map[string]float64{"never": 0}}

	err := ProcessTick(q, 0, l, exec, stream)
	require.NoError(t, err)
	require.Len(t, exec.applied, 1)
	assert.Equal(t, TargetSusceptibility, exec.applied[0].Target)
}
