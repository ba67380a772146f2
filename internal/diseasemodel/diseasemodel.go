// Package diseasemodel implements C3: health states, transmissions,
// progressions and factor operations (spec.md §4.2). It generalizes the
// teacher's TransmissionModel/IntrahostModel interfaces (transmission_model.go,
// intrahost_process.go) from a single-host pathogen-replication model into
// the per-tick, per-edge hazard model the specification requires.
package diseasemodel

import "github.com/pkg/errors"

// State is a disease health state index into Model.States.
type State int

// Dwell describes how a progression's sojourn time is sampled.
type DwellKind int

const (
	DwellFixed DwellKind = iota
	DwellDiscrete
	DwellUniform
	DwellNormal
)

// Dwell parameterizes one of the four sojourn-time distributions named in
// spec.md §4.2.
type Dwell struct {
	Kind DwellKind

	Fixed float64 // DwellFixed

	DiscreteValues []float64 // DwellDiscrete
	DiscreteProbs  []float64

	UniformLo, UniformHi float64 // DwellUniform

	NormalMean, NormalStdDev float64 // DwellNormal
}

// FactorOp is one of the three factor operations from spec.md §4.2.
type FactorOp int

const (
	FactorAssign FactorOp = iota
	FactorMultiply
	FactorDivide
)

// FactorTarget names which node field a FactorOp mutates.
type FactorTarget int

const (
	TargetSusceptibility FactorTarget = iota
	TargetInfectivity
)

// Factor is applied to a node's susceptibility or infectivity when a
// transmission fires or a progression is taken, clamped to >= 0.
type Factor struct {
	Target FactorTarget
	Op     FactorOp
	Value  float64
}

// Apply returns op(current, f.Value) clamped to zero, per spec.md §4.2
// "clamped to >= 0".
func (f Factor) Apply(current float64) float64 {
	var out float64
	switch f.Op {
	case FactorAssign:
		out = f.Value
	case FactorMultiply:
		out = current * f.Value
	case FactorDivide:
		if f.Value == 0 {
			out = 0
		} else {
			out = current / f.Value
		}
	}
	if out < 0 {
		return 0
	}
	return out
}

// Transmission describes one possible infection event: a susceptible node
// currently in EntryState, exposed to a contact in ContactState over an
// active edge, becomes ExitState with probability derived from edge weight,
// duration, and the product of factors (spec.md §3).
type Transmission struct {
	Name             string
	EntryState       State
	ContactState     State
	ExitState        State
	Transmissibility float64
	NodeFactors      []Factor
	ContactFactors   []Factor
}

// Progression is one possible next step out of a state, chosen by
// normalized probability among all progressions sharing EntryState.
type Progression struct {
	Name        string
	EntryState  State
	ExitState   State
	Probability float64
	Dwell       Dwell
	NodeFactors []Factor
}

// Model is the full disease model: named states plus the transmissions and
// progressions that connect them.
type Model struct {
	States        []string
	Transmissions []Transmission
	Progressions  []Progression

	byEntryState map[State][]Progression
}

// Validate checks the invariants spec.md §3 implies for a disease model: all
// referenced states exist, and progression probabilities out of each entry
// state sum to a positive total (so normalization is well defined).
func (m *Model) Validate() error {
	if len(m.States) == 0 {
		return errors.New("diseasemodel: no states defined")
	}
	valid := func(s State) bool { return s >= 0 && int(s) < len(m.States) }
	for _, t := range m.Transmissions {
		if !valid(t.EntryState) || !valid(t.ContactState) || !valid(t.ExitState) {
			return errors.Errorf("diseasemodel: transmission %q references unknown state", t.Name)
		}
		if t.Transmissibility < 0 {
			return errors.Errorf("diseasemodel: transmission %q has negative transmissibility", t.Name)
		}
	}
	sums := make(map[State]float64)
	for _, p := range m.Progressions {
		if !valid(p.EntryState) || !valid(p.ExitState) {
			return errors.Errorf("diseasemodel: progression %q references unknown state", p.Name)
		}
		if p.Probability < 0 {
			return errors.Errorf("diseasemodel: progression %q has negative probability", p.Name)
		}
		sums[p.EntryState] += p.Probability
	}
	for state, sum := range sums {
		if sum <= 0 {
			return errors.Errorf("diseasemodel: entry state %d has no positive-probability progression", state)
		}
	}
	m.index()
	return nil
}

func (m *Model) index() {
	m.byEntryState = make(map[State][]Progression)
	for _, p := range m.Progressions {
		m.byEntryState[p.EntryState] = append(m.byEntryState[p.EntryState], p)
	}
}

// ProgressionsFrom returns the progressions whose EntryState is state,
// indexing lazily if Validate hasn't run yet.
func (m *Model) ProgressionsFrom(state State) []Progression {
	if m.byEntryState == nil {
		m.index()
	}
	return m.byEntryState[state]
}

// TransmissionsFor returns the transmissions eligible for a susceptible
// node currently in entryState, exposed to a contact in contactState.
func (m *Model) TransmissionsFor(entryState, contactState State) []Transmission {
	var out []Transmission
	for _, t := range m.Transmissions {
		if t.EntryState == entryState && t.ContactState == contactState {
			out = append(out, t)
		}
	}
	return out
}
