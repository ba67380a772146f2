package diseasemodel

import (
	"math"

	"github.com/epihiper-go/epihiper/internal/network"
	"github.com/epihiper-go/epihiper/internal/randstream"
)

// Contact is one edge eligible to transmit onto the susceptible node in
// TransmissionSample, paired with the transmission it would fire.
type Contact struct {
	Edge         *network.Edge
	Source       *network.Node
	Transmission Transmission
	Contribution float64
}

// TransmissionOutcome reports the result of TransmissionSample for one node.
type TransmissionOutcome struct {
	Infected bool
	Edge     *network.Edge
	Source   *network.Node
	Firing   Transmission
}

// TransmissionSample implements spec.md §4.2's per-tick, per-node hazard
// draw: sum contributions across eligible incoming edges and transmissions,
// draw the infection event, then pick the firing contact by categorical
// sampling weighted by contribution.
func TransmissionSample(
	m *Model,
	node *network.Node,
	nodeState State,
	incoming []network.Edge,
	sourceOf func(id int64) (*network.Node, State, bool),
	timeResolution float64,
	stream *randstream.Stream,
) TransmissionOutcome {
	var contacts []Contact
	hazard := 0.0

	for i := range incoming {
		edge := &incoming[i]
		if !edge.IsActive() {
			continue
		}
		source, sourceState, ok := sourceOf(edge.Source)
		if !ok {
			continue
		}
		for _, t := range m.TransmissionsFor(nodeState, sourceState) {
			contribution := t.Transmissibility *
				source.Infectivity *
				node.Susceptibility *
				edge.EffectiveWeight() *
				(edge.Duration / timeResolution)
			if contribution <= 0 {
				continue
			}
			hazard += contribution
			contacts = append(contacts, Contact{Edge: edge, Source: source, Transmission: t, Contribution: contribution})
		}
	}

	if hazard <= 0 {
		return TransmissionOutcome{}
	}

	u := stream.Uniform01()
	if u >= 1-math.Exp(-hazard) {
		return TransmissionOutcome{}
	}

	chosen := pickByWeight(contacts, stream)
	return TransmissionOutcome{
		Infected: true,
		Edge:     chosen.Edge,
		Source:   chosen.Source,
		Firing:   chosen.Transmission,
	}
}

func pickByWeight(contacts []Contact, stream *randstream.Stream) Contact {
	weights := make([]float64, len(contacts))
	for i, c := range contacts {
		weights[i] = c.Contribution
	}
	idx := stream.Categorical(weights)
	return contacts[idx]
}

// SampleDwell draws a sojourn time from a progression's distribution per
// spec.md §4.2 ("fixed, discrete, uniform, normal").
func SampleDwell(d Dwell, stream *randstream.Stream) float64 {
	switch d.Kind {
	case DwellFixed:
		return d.Fixed
	case DwellDiscrete:
		idx := stream.Categorical(d.DiscreteProbs)
		return d.DiscreteValues[idx]
	case DwellUniform:
		return d.UniformLo + stream.Uniform01()*(d.UniformHi-d.UniformLo)
	case DwellNormal:
		v := stream.Normal(d.NormalMean, d.NormalStdDev)
		if v < 0 {
			return 0
		}
		return v
	}
	return 0
}

// SampleNextProgression chooses the next progression out of state by
// normalized probability, per spec.md §4.2 "Progression scheduling".
func SampleNextProgression(m *Model, state State, stream *randstream.Stream) (Progression, bool) {
	candidates := m.ProgressionsFrom(state)
	if len(candidates) == 0 {
		return Progression{}, false
	}
	weights := make([]float64, len(candidates))
	for i, p := range candidates {
		weights[i] = p.Probability
	}
	idx := stream.Categorical(weights)
	return candidates[idx], true
}
