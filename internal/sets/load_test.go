package sets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSetsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sets.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSetsParsesNodeSelector(t *testing.T) {
	path := writeSetsFile(t, `{"sets": [
		{"id": "infected", "kind": "nodeSelector", "criteria": [{"field": "healthState", "op": "=", "value": 1}]}
	]}`)

	reg := NewRegistry()
	loaded, err := LoadSets(path, reg)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, KindNodeSelector, loaded[0].Kind)
}

func TestLoadSetsParsesOperationWithNestedOperands(t *testing.T) {
	path := writeSetsFile(t, `{"sets": [
		{"kind": "operation", "op": "union", "operands": [
			{"kind": "nodeSelector", "criteria": [{"field": "healthState", "op": "=", "value": 0}]},
			{"kind": "nodeSelector", "criteria": [{"field": "healthState", "op": "=", "value": 2}]}
		]}
	]}`)

	reg := NewRegistry()
	loaded, err := LoadSets(path, reg)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, KindOperation, loaded[0].Kind)
	assert.Equal(t, OpUnion, loaded[0].Op)
	require.Len(t, loaded[0].Operands, 2)
}

func TestLoadSetsParsesSampledSet(t *testing.T) {
	path := writeSetsFile(t, `{"sets": [
		{"kind": "sampled", "maxCount": 5, "hasMax": true, "source": {"kind": "nodeSelector"}}
	]}`)

	reg := NewRegistry()
	loaded, err := LoadSets(path, reg)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, KindSampled, loaded[0].Kind)
	require.NotNil(t, loaded[0].Source)
	assert.Equal(t, 5, loaded[0].MaxCount)
}

func TestLoadSetsRejectsSampledSetWithoutBound(t *testing.T) {
	path := writeSetsFile(t, `{"sets": [
		{"kind": "sampled", "source": {"kind": "nodeSelector"}}
	]}`)

	_, err := LoadSets(path, NewRegistry())
	assert.Error(t, err)
}

func TestLoadSetsRejectsUnknownKind(t *testing.T) {
	path := writeSetsFile(t, `{"sets": [{"kind": "bogus"}]}`)

	_, err := LoadSets(path, NewRegistry())
	assert.Error(t, err)
}

func TestLoadSetsInternsIdenticalExpressionsOnce(t *testing.T) {
	path := writeSetsFile(t, `{"sets": [
		{"kind": "nodeSelector", "criteria": [{"field": "healthState", "op": "=", "value": 1}]},
		{"kind": "nodeSelector", "criteria": [{"field": "healthState", "op": "=", "value": 1}]}
	]}`)

	reg := NewRegistry()
	loaded, err := LoadSets(path, reg)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Same(t, loaded[0], loaded[1])
}
