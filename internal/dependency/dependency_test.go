package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderBeforePutsPrerequisitesFirst(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b") // b depends on a
	g.AddEdge("b", "c") // c depends on b

	order, err := g.Order(ModeBefore, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestOrderAfterReversesBeforeOrder(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	order, err := g.Order(ModeAfter, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestOrderExcludesAlreadyFreshNodes(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.fresh["a"] = true

	order, err := g.Order(ModeBefore, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, order)
}

func TestOrderDetectsCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	_, err := g.Order(ModeBefore, []string{"a"})
	assert.Error(t, err)
}

func TestOrderIgnoresCycleWhenFlagSet(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	g.SetIgnoreCycles(true)

	_, err := g.Order(ModeBefore, []string{"a"})
	assert.NoError(t, err)
}

func TestApplyComputeOnceMarksEveryNodeFresh(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	var computed []string
	err := g.ApplyComputeOnce([]string{"b"}, func(name string) error {
		computed = append(computed, name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, computed)

	// A second call with all nodes already fresh computes nothing.
	computed = nil
	err = g.ApplyUpdateOrder([]string{"b"}, func(name string) error {
		computed = append(computed, name)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, computed)
}

func TestApplyUpdateOrderRecomputesStaleNodes(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	require.NoError(t, g.ApplyComputeOnce([]string{"b"}, func(string) error { return nil }))

	g.MarkStale("a", "b")
	var computed []string
	err := g.ApplyUpdateOrder([]string{"b"}, func(name string) error {
		computed = append(computed, name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, computed)
}
