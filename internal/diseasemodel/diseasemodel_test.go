package diseasemodel

import (
	"testing"

	"github.com/epihiper-go/epihiper/internal/network"
	"github.com/epihiper-go/epihiper/internal/randstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siModel() *Model {
	return &Model{
		States: []string{"S", "I", "R"},
		Transmissions: []Transmission{
			{Name: "infect", EntryState: 0, ContactState: 1, ExitState: 1, Transmissibility: 1.0},
		},
		Progressions: []Progression{
			{Name: "recover", EntryState: 1, ExitState: 2, Probability: 1.0, Dwell: Dwell{Kind: DwellFixed, Fixed: 5}},
		},
	}
}

func TestModelValidate(t *testing.T) {
	m := siModel()
	require.NoError(t, m.Validate())
}

func TestModelValidateRejectsUnknownState(t *testing.T) {
	m := siModel()
	m.Transmissions[0].ExitState = 99
	assert.Error(t, m.Validate())
}

func TestModelValidateRejectsZeroProbabilitySum(t *testing.T) {
	m := siModel()
	m.Progressions[0].Probability = 0
	assert.Error(t, m.Validate())
}

func TestFactorApplyClampsToZero(t *testing.T) {
	f := Factor{Op: FactorMultiply, Value: -2}
	assert.Equal(t, 0.0, f.Apply(5))

	f = Factor{Op: FactorDivide, Value: 0}
	assert.Equal(t, 0.0, f.Apply(5))

	f = Factor{Op: FactorAssign, Value: 3}
	assert.Equal(t, 3.0, f.Apply(100))
}

func TestTransmissionSampleHighHazardInfects(t *testing.T) {
	m := siModel()
	require.NoError(t, m.Validate())

	node := &network.Node{ID: 1, Susceptibility: 1.0}
	source := &network.Node{ID: 2, Infectivity: 1.0}
	edges := []network.Edge{
		{Target: 1, Source: 2, Duration: 1440, HasActive: true, Active: true, HasWeight: true, Weight: 1.0},
	}

	stream := randstream.New(42, 0, 0, 0)
	outcome := TransmissionSample(m, node, 0, edges, func(id int64) (*network.Node, State, bool) {
		if id == 2 {
			return source, 1, true
		}
		return nil, 0, false
	}, 1440, stream)

	assert.True(t, outcome.Infected)
	assert.Equal(t, State(1), outcome.Firing.ExitState)
}

func TestTransmissionSampleNoEligibleEdgesNeverInfects(t *testing.T) {
	m := siModel()
	require.NoError(t, m.Validate())
	node := &network.Node{ID: 1, Susceptibility: 1.0}
	stream := randstream.New(1, 0, 0, 0)

	outcome := TransmissionSample(m, node, 0, nil, func(id int64) (*network.Node, State, bool) {
		return nil, 0, false
	}, 1440, stream)

	assert.False(t, outcome.Infected)
}

func TestSampleNextProgressionPicksOnlyCandidate(t *testing.T) {
	m := siModel()
	require.NoError(t, m.Validate())
	stream := randstream.New(7, 0, 0, 0)
	p, ok := SampleNextProgression(m, 1, stream)
	require.True(t, ok)
	assert.Equal(t, "recover", p.Name)
}

func TestSampleDwellFixed(t *testing.T) {
	stream := randstream.New(3, 0, 0, 0)
	d := Dwell{Kind: DwellFixed, Fixed: 7}
	assert.Equal(t, 7.0, SampleDwell(d, stream))
}
