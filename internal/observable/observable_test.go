package observable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshComputesStateCount(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(Observable{Name: "infected", Recipe: RecipeStateCount, State: 1, CountKind: CountCurrentAbsolute}))
	snap := StateCounts{Tick: 3, TotalPopulation: 10, Current: []int64{7, 3}, In: []int64{0, 3}, Out: []int64{0, 0}}
	v, err := r.Refresh("infected", snap)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestRefreshIsIdempotentWithinATick(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(Observable{Name: "pop", Recipe: RecipeTotalPopulation}))
	snap := StateCounts{TotalPopulation: 100}
	v1, err := r.Refresh("pop", snap)
	require.NoError(t, err)
	snap.TotalPopulation = 999 // should be ignored; observable is already fresh
	v2, err := r.Refresh("pop", snap)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(Observable{Name: "pop", Recipe: RecipeTotalPopulation}))
	_, err := r.Refresh("pop", StateCounts{TotalPopulation: 100})
	require.NoError(t, err)
	r.Invalidate()
	v, err := r.Refresh("pop", StateCounts{TotalPopulation: 200})
	require.NoError(t, err)
	assert.Equal(t, 200.0, v)
}

func TestRelativeCountHandlesZeroPopulation(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(Observable{Name: "rel", Recipe: RecipeStateCount, State: 0, CountKind: CountCurrentRelative}))
	v, err := r.Refresh("rel", StateCounts{TotalPopulation: 0, Current: []int64{0}, In: []int64{0}, Out: []int64{0}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestRefreshRejectsUnknownState(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(Observable{Name: "bad", Recipe: RecipeStateCount, State: 5, CountKind: CountCurrentAbsolute}))
	_, err := r.Refresh("bad", StateCounts{Current: []int64{1, 2}, In: []int64{0, 0}, Out: []int64{0, 0}})
	assert.Error(t, err)
}
