package traits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	codec := NewCodec([]Feature{
		{Name: "age_group", NumStates: 9},
		{Name: "occupation", NumStates: 5},
		{Name: "vaccinated", NumStates: 2},
	})

	values := []int{7, 3, 1}
	packed, err := codec.Pack(values)
	require.NoError(t, err)

	unpacked, err := codec.Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, values, unpacked)
}

func TestPackRejectsOutOfRange(t *testing.T) {
	codec := NewCodec([]Feature{{Name: "binary", NumStates: 2}})
	_, err := codec.Pack([]int{2})
	assert.Error(t, err)
}

func TestFeatureLookup(t *testing.T) {
	codec := NewCodec([]Feature{{Name: "a", NumStates: 4}, {Name: "b", NumStates: 4}})
	idx, ok := codec.Feature("b")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = codec.Feature("missing")
	assert.False(t, ok)
}

func TestWidePackingAcrossWords(t *testing.T) {
	features := make([]Feature, 20)
	values := make([]int, 20)
	for i := range features {
		features[i] = Feature{Name: "f", NumStates: 1 << 10}
		values[i] = (i * 37) % (1 << 10)
	}
	codec := NewCodec(features)
	assert.Greater(t, codec.Words(), 1)

	packed, err := codec.Pack(values)
	require.NoError(t, err)
	unpacked, err := codec.Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, values, unpacked)
}
