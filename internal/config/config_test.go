package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunParametersValidateRequiresModelScenario(t *testing.T) {
	r := &RunParameters{StartTick: 0, EndTick: 10}
	assert.Error(t, r.Validate())
}

func TestRunParametersValidateRejectsEndBeforeStart(t *testing.T) {
	r := &RunParameters{ModelScenario: "m.json", StartTick: 10, EndTick: 5}
	assert.Error(t, r.Validate())
}

func TestRunParametersValidateRejectsReseedOutOfRange(t *testing.T) {
	r := &RunParameters{ModelScenario: "m.json", StartTick: 0, EndTick: 5, Reseed: []ReseedPoint{{Tick: 99, Seed: 1}}}
	assert.Error(t, r.Validate())
}

func TestRunParametersValidateAcceptsMinimalValid(t *testing.T) {
	r := &RunParameters{ModelScenario: "m.json", StartTick: 0, EndTick: 0}
	assert.NoError(t, r.Validate())
}

func TestModelScenarioValidateRequiresContactNetworkAndDiseaseModel(t *testing.T) {
	m := &ModelScenario{}
	assert.Error(t, m.Validate())

	m = &ModelScenario{ContactNetwork: "net.txt", DiseaseModel: "disease.json"}
	assert.NoError(t, m.Validate())
}

func TestLoadRunParametersFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"modelScenario":"scenario.json","startTick":0,"endTick":10,"seed":42}`), 0o644))

	r, err := LoadRunParameters(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), r.Seed)
}

func TestLoadRunParametersRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not valid json`), 0o644))

	_, err := LoadRunParameters(path)
	assert.Error(t, err)
}
