package changelog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndFlush(t *testing.T) {
	b := NewBuffer(0)
	b.Append(Record{Tick: 1, NodeID: 5, ExitState: 2, HasContactNode: true, ContactNodeID: 9})
	b.Append(Record{Tick: 1, NodeID: 6, ExitState: 3})

	var out bytes.Buffer
	require.NoError(t, b.Flush(&out))
	assert.Equal(t, "1,5,2,9\n1,6,3,-1\n", out.String())
	assert.Equal(t, 0, b.Len())
}

func TestFlushIncludesLocationIDWhenPresent(t *testing.T) {
	b := NewBuffer(9)
	b.Append(Record{Tick: 2, NodeID: 1, ExitState: 1, HasContactNode: true, ContactNodeID: 2, HasLocationID: true, LocationID: 77})

	var out bytes.Buffer
	require.NoError(t, b.Flush(&out))
	assert.Equal(t, "2,1,1,2,77\n", out.String())
}

func TestRemoteInterestNodesForReturnsSorted(t *testing.T) {
	ri := RemoteInterest{2: {30, 10, 20}}
	assert.Equal(t, []int64{10, 20, 30}, ri.NodesFor(2))
	assert.Nil(t, ri.NodesFor(99))
}

func TestGlobalStateCountsConservation(t *testing.T) {
	g := GlobalStateCounts{Current: []int64{5, 3}, In: []int64{8, 5}, Out: []int64{3, 2}}
	assert.True(t, g.Conserves())

	g.Current[0] = 100
	assert.False(t, g.Conserves())
}

func TestGlobalStateCountsWriteCSV(t *testing.T) {
	g := GlobalStateCounts{Tick: 4, Current: []int64{1}, In: []int64{1}, Out: []int64{0}}
	var out bytes.Buffer
	require.NoError(t, g.WriteCSV(&out))
	assert.Equal(t, "4,1,0,1\n", out.String())
}
