package persontraits

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFetcherReturnsConfiguredRows(t *testing.T) {
	f := NewMemoryFetcher([]Row{
		{NodeID: 1, Fields: map[string]any{"age": 34}},
		{NodeID: 2, Fields: map[string]any{"age": 51}},
	})
	rows, err := f.Rows(context.Background(), "select * from traits")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 34, rows[0].Fields["age"])
}

func TestRetryPolicyDelayRespectsMaxDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: 2 * time.Second}
	for attempt := 0; attempt < 10; attempt++ {
		d := p.delay(attempt)
		assert.LessOrEqual(t, d, p.MaxDelay)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
}

func TestDefaultRetryPolicyHasPositiveBounds(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Greater(t, p.MaxRetries, 0)
	assert.Greater(t, p.BaseDelay, time.Duration(0))
	assert.Greater(t, p.MaxDelay, p.BaseDelay)
}
