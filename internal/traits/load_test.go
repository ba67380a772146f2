package traits

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchemaFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trait-schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSchemaBuildsCodecInDeclarationOrder(t *testing.T) {
	path := writeSchemaFile(t, `{"features": [
		{"name": "age_group", "numStates": 9},
		{"name": "vaccinated", "numStates": 2}
	]}`)

	codec, err := LoadSchema(path)
	require.NoError(t, err)

	idx, ok := codec.Feature("age_group")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = codec.Feature("vaccinated")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	packed, err := codec.Pack([]int{7, 1})
	require.NoError(t, err)
	unpacked, err := codec.Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 1}, unpacked)
}

func TestLoadSchemaRejectsDuplicateFeatureNames(t *testing.T) {
	path := writeSchemaFile(t, `{"features": [
		{"name": "age_group", "numStates": 9},
		{"name": "age_group", "numStates": 2}
	]}`)

	_, err := LoadSchema(path)
	assert.Error(t, err)
}

func TestLoadSchemaRejectsZeroNumStates(t *testing.T) {
	path := writeSchemaFile(t, `{"features": [{"name": "bad", "numStates": 0}]}`)

	_, err := LoadSchema(path)
	assert.Error(t, err)
}

func TestLoadSchemaRejectsMissingFile(t *testing.T) {
	_, err := LoadSchema(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
