package diseasemodel

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// wireDwell and wireFactor mirror Dwell/Factor with string-named kinds, the
// JSON document shape spec.md §6 describes for the disease model file.
type wireFactor struct {
	Target string  `json:"target"`
	Op     string  `json:"op"`
	Value  float64 `json:"value"`
}

type wireDwell struct {
	Kind string `json:"kind"`

	Fixed float64 `json:"fixed,omitempty"`

	DiscreteValues []float64 `json:"discreteValues,omitempty"`
	DiscreteProbs  []float64 `json:"discreteProbs,omitempty"`

	UniformLo float64 `json:"uniformLo,omitempty"`
	UniformHi float64 `json:"uniformHi,omitempty"`

	NormalMean   float64 `json:"normalMean,omitempty"`
	NormalStdDev float64 `json:"normalStdDev,omitempty"`
}

type wireTransmission struct {
	Name             string       `json:"name"`
	EntryState       string       `json:"entryState"`
	ContactState     string       `json:"contactState"`
	ExitState        string       `json:"exitState"`
	Transmissibility float64      `json:"transmissibility"`
	NodeFactors      []wireFactor `json:"nodeFactors,omitempty"`
	ContactFactors   []wireFactor `json:"contactFactors,omitempty"`
}

type wireProgression struct {
	Name        string       `json:"name"`
	EntryState  string       `json:"entryState"`
	ExitState   string       `json:"exitState"`
	Probability float64      `json:"probability"`
	Dwell       wireDwell    `json:"dwell"`
	NodeFactors []wireFactor `json:"nodeFactors,omitempty"`
}

type wireModel struct {
	States        []string           `json:"states"`
	Transmissions []wireTransmission `json:"transmissions"`
	Progressions  []wireProgression  `json:"progressions"`
}

// LoadModel reads the disease-model JSON document named by the
// model-scenario's "diseaseModel" field and validates it (spec.md §6
// "Disease model JSON").
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "diseasemodel: open")
	}
	defer f.Close()

	var w wireModel
	if err := json.NewDecoder(f).Decode(&w); err != nil {
		return nil, errors.Wrap(err, "diseasemodel: decode")
	}

	index := make(map[string]State, len(w.States))
	for i, name := range w.States {
		index[name] = State(i)
	}
	stateOf := func(name string) (State, error) {
		s, ok := index[name]
		if !ok {
			return 0, errors.Errorf("diseasemodel: unknown state %q", name)
		}
		return s, nil
	}

	m := &Model{States: w.States}
	for _, wt := range w.Transmissions {
		t := Transmission{Name: wt.Name, Transmissibility: wt.Transmissibility}
		var err error
		if t.EntryState, err = stateOf(wt.EntryState); err != nil {
			return nil, err
		}
		if t.ContactState, err = stateOf(wt.ContactState); err != nil {
			return nil, err
		}
		if t.ExitState, err = stateOf(wt.ExitState); err != nil {
			return nil, err
		}
		if t.NodeFactors, err = factorsFrom(wt.NodeFactors); err != nil {
			return nil, err
		}
		if t.ContactFactors, err = factorsFrom(wt.ContactFactors); err != nil {
			return nil, err
		}
		m.Transmissions = append(m.Transmissions, t)
	}
	for _, wp := range w.Progressions {
		p := Progression{Name: wp.Name, Probability: wp.Probability, Dwell: dwellFrom(wp.Dwell)}
		var err error
		if p.EntryState, err = stateOf(wp.EntryState); err != nil {
			return nil, err
		}
		if p.ExitState, err = stateOf(wp.ExitState); err != nil {
			return nil, err
		}
		if p.NodeFactors, err = factorsFrom(wp.NodeFactors); err != nil {
			return nil, err
		}
		m.Progressions = append(m.Progressions, p)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func factorsFrom(ws []wireFactor) ([]Factor, error) {
	out := make([]Factor, 0, len(ws))
	for _, wf := range ws {
		f := Factor{Value: wf.Value}
		switch wf.Target {
		case "susceptibility":
			f.Target = TargetSusceptibility
		case "infectivity":
			f.Target = TargetInfectivity
		default:
			return nil, errors.Errorf("diseasemodel: unknown factor target %q", wf.Target)
		}
		switch wf.Op {
		case "assign":
			f.Op = FactorAssign
		case "multiply":
			f.Op = FactorMultiply
		case "divide":
			f.Op = FactorDivide
		default:
			return nil, errors.Errorf("diseasemodel: unknown factor op %q", wf.Op)
		}
		out = append(out, f)
	}
	return out, nil
}

func dwellFrom(w wireDwell) Dwell {
	d := Dwell{
		Fixed: w.Fixed, DiscreteValues: w.DiscreteValues, DiscreteProbs: w.DiscreteProbs,
		UniformLo: w.UniformLo, UniformHi: w.UniformHi,
		NormalMean: w.NormalMean, NormalStdDev: w.NormalStdDev,
	}
	switch w.Kind {
	case "discrete":
		d.Kind = DwellDiscrete
	case "uniform":
		d.Kind = DwellUniform
	case "normal":
		d.Kind = DwellNormal
	default:
		d.Kind = DwellFixed
	}
	return d
}
