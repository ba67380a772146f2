package intervention

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epihiper-go/epihiper/internal/actions"
	"github.com/epihiper-go/epihiper/internal/sets"
)

func writeDocFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "interventions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDocumentParsesInterventionWithInlineTarget(t *testing.T) {
	path := writeDocFile(t, `{
		"interventions": [
			{
				"id": "vaccinate",
				"target": {"kind": "nodeSelector", "criteria": [{"field": "healthState", "op": "=", "value": 0}]},
				"ensemble": {
					"forEach": [
						{"priority": 1, "op": {"target": "susceptibility", "op": "multiply", "value": 0.5}}
					]
				}
			}
		]
	}`)

	doc, err := LoadDocument(path, sets.NewRegistry())
	require.NoError(t, err)
	require.Len(t, doc.Interventions, 1)
	iv := doc.Interventions[0]
	assert.Equal(t, "vaccinate", iv.ID)
	require.NotNil(t, iv.Target)
	assert.Equal(t, sets.KindNodeSelector, iv.Target.Kind)
	require.Len(t, iv.Ensemble.ForEach, 1)
	assert.Equal(t, actions.TargetSusceptibility, iv.Ensemble.ForEach[0].Op.Target)
	assert.Equal(t, actions.OpMultiply, iv.Ensemble.ForEach[0].Op.Op)
}

func TestLoadDocumentResolvesTargetByRef(t *testing.T) {
	reg := sets.NewRegistry()
	setsPath := writeDocFile(t, `{"sets": [{"id": "susceptible", "kind": "nodeSelector"}]}`)
	_, err := sets.LoadSets(setsPath, reg)
	require.NoError(t, err)

	docPath := writeDocFile(t, `{
		"initializations": [
			{"name": "seed", "target": {"ref": "susceptible"}, "ensemble": {}}
		]
	}`)

	doc, err := LoadDocument(docPath, reg)
	require.NoError(t, err)
	require.Len(t, doc.Initializations, 1)
	require.NotNil(t, doc.Initializations[0].Target)
	assert.Equal(t, sets.KindNodeSelector, doc.Initializations[0].Target.Kind)
}

func TestLoadDocumentRejectsUnknownTargetRef(t *testing.T) {
	path := writeDocFile(t, `{
		"interventions": [{"id": "x", "target": {"ref": "missing"}, "ensemble": {}}]
	}`)

	_, err := LoadDocument(path, sets.NewRegistry())
	assert.Error(t, err)
}

func TestLoadDocumentParsesTriggerWithAndCondition(t *testing.T) {
	path := writeDocFile(t, `{
		"triggers": [
			{
				"name": "lockdown",
				"condition": {
					"kind": "and",
					"operands": [
						{"kind": "compare", "leftRef": "obs:totalInfected", "op": ">", "right": 100},
						{"kind": "not", "operands": [{"kind": "always"}]}
					]
				},
				"interventionIds": ["closeSchools"]
			}
		]
	}`)

	doc, err := LoadDocument(path, sets.NewRegistry())
	require.NoError(t, err)
	require.Len(t, doc.Triggers, 1)
	trig := doc.Triggers[0]
	assert.Equal(t, actions.CondAnd, trig.Condition.Kind)
	require.Len(t, trig.Condition.Operands, 2)
	assert.Equal(t, actions.CondCompare, trig.Condition.Operands[0].Kind)
	assert.Equal(t, actions.CmpGt, trig.Condition.Operands[0].Op)
	assert.Equal(t, []string{"closeSchools"}, trig.InterventionIDs)
}

func TestLoadDocumentRejectsMalformedNotCondition(t *testing.T) {
	path := writeDocFile(t, `{
		"triggers": [
			{"name": "bad", "condition": {"kind": "not", "operands": []}, "interventionIds": []}
		]
	}`)

	_, err := LoadDocument(path, sets.NewRegistry())
	assert.Error(t, err)
}

func TestLoadDocumentParsesSamplingEnsemble(t *testing.T) {
	path := writeDocFile(t, `{
		"interventions": [
			{
				"id": "partial-close",
				"target": {"kind": "edgeSelector"},
				"ensemble": {
					"sampling": {
						"mode": "percent",
						"amount": 30,
						"sampled": {"once": [{"priority": 0, "op": {"target": "edgeActive", "op": "assign", "value": 0}}]}
					}
				}
			}
		]
	}`)

	doc, err := LoadDocument(path, sets.NewRegistry())
	require.NoError(t, err)
	require.Len(t, doc.Interventions, 1)
	ens := doc.Interventions[0].Ensemble
	require.True(t, ens.HasSampling)
	assert.Equal(t, SamplingPercent, ens.Mode)
	assert.Equal(t, 30.0, ens.Amount)
	require.NotNil(t, ens.Sampled)
	require.Len(t, ens.Sampled.Once, 1)
}
