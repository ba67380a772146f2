package diseasemodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModelJSON = `{
	"states": ["S", "I", "R"],
	"transmissions": [
		{"name": "infect", "entryState": "S", "contactState": "I", "exitState": "I", "transmissibility": 0.2,
		 "nodeFactors": [{"target": "susceptibility", "op": "multiply", "value": 0.5}]}
	],
	"progressions": [
		{"name": "recover", "entryState": "I", "exitState": "R", "probability": 1.0,
		 "dwell": {"kind": "fixed", "fixed": 5}}
	]
}`

func writeModelFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disease-model.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadModelParsesStatesAndFactors(t *testing.T) {
	path := writeModelFile(t, sampleModelJSON)

	m, err := LoadModel(path)
	require.NoError(t, err)

	require.Len(t, m.Transmissions, 1)
	assert.Equal(t, State(0), m.Transmissions[0].EntryState)
	assert.Equal(t, State(1), m.Transmissions[0].ContactState)
	assert.Equal(t, State(1), m.Transmissions[0].ExitState)
	require.Len(t, m.Transmissions[0].NodeFactors, 1)
	assert.Equal(t, TargetSusceptibility, m.Transmissions[0].NodeFactors[0].Target)
	assert.Equal(t, FactorMultiply, m.Transmissions[0].NodeFactors[0].Op)

	require.Len(t, m.Progressions, 1)
	assert.Equal(t, State(1), m.Progressions[0].EntryState)
	assert.Equal(t, State(2), m.Progressions[0].ExitState)
	assert.Equal(t, DwellFixed, m.Progressions[0].Dwell.Kind)
	assert.Equal(t, 5.0, m.Progressions[0].Dwell.Fixed)
}

func TestLoadModelRejectsUnknownStateName(t *testing.T) {
	path := writeModelFile(t, `{"states": ["S", "I"], "transmissions": [
		{"name": "bad", "entryState": "S", "contactState": "I", "exitState": "Recovered", "transmissibility": 1}
	]}`)

	_, err := LoadModel(path)
	assert.Error(t, err)
}

func TestLoadModelRejectsMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
