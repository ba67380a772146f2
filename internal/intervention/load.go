package intervention

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/epihiper-go/epihiper/internal/actions"
	"github.com/epihiper-go/epihiper/internal/sets"
)

// wireOperation and wireCondition mirror actions.Operation/actions.Condition
// with string-named targets/operators, the JSON document shape spec.md §6
// describes for intervention/initialization/trigger documents.
type wireOperation struct {
	Target string  `json:"target"`
	Op     string  `json:"op"`
	Value  float64 `json:"value"`

	NodeID     int64 `json:"nodeId,omitempty"`
	EdgeTarget int64 `json:"edgeTarget,omitempty"`
	EdgeSource int64 `json:"edgeSource,omitempty"`

	TraitIndex int `json:"traitIndex,omitempty"`
	TraitValue int `json:"traitValue,omitempty"`

	Variable string `json:"variable,omitempty"`

	HasContactNodeID bool  `json:"hasContactNodeId,omitempty"`
	ContactNodeID    int64 `json:"contactNodeId,omitempty"`
	HasLocationID    bool  `json:"hasLocationId,omitempty"`
	LocationID       int64 `json:"locationId,omitempty"`
}

type wireCondition struct {
	Kind string `json:"kind"`

	LeftRef string  `json:"leftRef,omitempty"`
	Op      string  `json:"op,omitempty"`
	Right   float64 `json:"right,omitempty"`

	TraitIndex int `json:"traitIndex,omitempty"`
	TraitValue int `json:"traitValue,omitempty"`

	Operands []wireCondition `json:"operands,omitempty"`
}

type wireActionTemplate struct {
	Priority  int           `json:"priority"`
	Condition wireCondition `json:"condition,omitempty"`
	Op        wireOperation `json:"op"`
}

type wireEnsemble struct {
	Once    []wireActionTemplate `json:"once,omitempty"`
	ForEach []wireActionTemplate `json:"forEach,omitempty"`

	Sampling *wireSampling `json:"sampling,omitempty"`
}

type wireSampling struct {
	Mode   string  `json:"mode"`
	Amount float64 `json:"amount"`

	Sampled    *wireEnsemble `json:"sampled,omitempty"`
	NonSampled *wireEnsemble `json:"nonSampled,omitempty"`
}

type wireInitialization struct {
	Name     string       `json:"name"`
	Target   wireSetRef   `json:"target"`
	Ensemble wireEnsemble `json:"ensemble"`
}

type wireIntervention struct {
	ID       string       `json:"id"`
	Target   wireSetRef   `json:"target"`
	Ensemble wireEnsemble `json:"ensemble"`
}

type wireTrigger struct {
	Name            string        `json:"name"`
	Condition       wireCondition `json:"condition"`
	InterventionIDs []string      `json:"interventionIds"`
}

// wireSetRef is either {"ref": "id"} naming a previously loaded set or an
// inline set expression in the sets package's document shape.
type wireSetRef struct {
	Ref    string          `json:"ref,omitempty"`
	Inline json.RawMessage `json:"-"`
}

func (w *wireSetRef) UnmarshalJSON(data []byte) error {
	type refOnly struct {
		Ref string `json:"ref"`
	}
	var r refOnly
	if err := json.Unmarshal(data, &r); err == nil && r.Ref != "" {
		w.Ref = r.Ref
		return nil
	}
	w.Inline = append([]byte(nil), data...)
	return nil
}

type wireDocument struct {
	Initializations []wireInitialization `json:"initializations,omitempty"`
	Interventions   []wireIntervention   `json:"interventions,omitempty"`
	Triggers        []wireTrigger        `json:"triggers,omitempty"`
}

// Document is the parsed, typed form of one initialization/intervention/
// trigger JSON document (spec.md §6).
type Document struct {
	Initializations []Initialization
	Interventions   []Intervention
	Triggers        []Trigger
}

// LoadDocument reads an initialization/intervention/trigger JSON document,
// resolving each target against reg (sets referenced by id must already be
// loaded into reg, e.g. via sets.LoadSets).
func LoadDocument(path string, reg *sets.Registry) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "intervention: open")
	}
	defer f.Close()

	var w wireDocument
	if err := json.NewDecoder(f).Decode(&w); err != nil {
		return nil, errors.Wrap(err, "intervention: decode")
	}

	doc := &Document{}
	for _, wi := range w.Initializations {
		target, err := setRefFrom(wi.Target, reg)
		if err != nil {
			return nil, err
		}
		ensemble, err := ensembleFrom(wi.Ensemble)
		if err != nil {
			return nil, err
		}
		doc.Initializations = append(doc.Initializations, Initialization{Name: wi.Name, Target: target, Ensemble: ensemble})
	}
	for _, wi := range w.Interventions {
		target, err := setRefFrom(wi.Target, reg)
		if err != nil {
			return nil, err
		}
		ensemble, err := ensembleFrom(wi.Ensemble)
		if err != nil {
			return nil, err
		}
		doc.Interventions = append(doc.Interventions, Intervention{ID: wi.ID, Target: target, Ensemble: ensemble})
	}
	for _, wt := range w.Triggers {
		cond, err := conditionFrom(wt.Condition)
		if err != nil {
			return nil, err
		}
		doc.Triggers = append(doc.Triggers, Trigger{Name: wt.Name, Condition: cond, InterventionIDs: wt.InterventionIDs})
	}
	return doc, nil
}

func setRefFrom(w wireSetRef, reg *sets.Registry) (*sets.Set, error) {
	if w.Ref != "" {
		s, ok := reg.LookupRef(w.Ref)
		if !ok {
			return nil, errors.Errorf("intervention: unknown set reference %q", w.Ref)
		}
		return s, nil
	}
	if len(w.Inline) == 0 {
		return nil, errors.New("intervention: target requires a set reference or inline expression")
	}
	return sets.LoadSetExpression(w.Inline, reg)
}

func ensembleFrom(w wireEnsemble) (Ensemble, error) {
	e := Ensemble{}
	for _, wt := range w.Once {
		tmpl, err := actionTemplateFrom(wt)
		if err != nil {
			return e, err
		}
		e.Once = append(e.Once, tmpl)
	}
	for _, wt := range w.ForEach {
		tmpl, err := actionTemplateFrom(wt)
		if err != nil {
			return e, err
		}
		e.ForEach = append(e.ForEach, tmpl)
	}
	if w.Sampling != nil {
		e.HasSampling = true
		e.Amount = w.Sampling.Amount
		switch w.Sampling.Mode {
		case "maxCount":
			e.Mode = SamplingMaxCount
		case "percent":
			e.Mode = SamplingPercent
		default:
			return e, errors.Errorf("intervention: unknown sampling mode %q", w.Sampling.Mode)
		}
		if w.Sampling.Sampled != nil {
			sub, err := ensembleFrom(*w.Sampling.Sampled)
			if err != nil {
				return e, err
			}
			e.Sampled = &sub
		}
		if w.Sampling.NonSampled != nil {
			sub, err := ensembleFrom(*w.Sampling.NonSampled)
			if err != nil {
				return e, err
			}
			e.NonSampled = &sub
		}
	}
	return e, nil
}

func actionTemplateFrom(w wireActionTemplate) (ActionTemplate, error) {
	cond, err := conditionFrom(w.Condition)
	if err != nil {
		return ActionTemplate{}, err
	}
	op, err := operationFrom(w.Op)
	if err != nil {
		return ActionTemplate{}, err
	}
	return ActionTemplate{Priority: w.Priority, Condition: cond, Op: op}, nil
}

func operationFrom(w wireOperation) (actions.Operation, error) {
	op := actions.Operation{
		Value: w.Value, NodeID: w.NodeID, EdgeTarget: w.EdgeTarget, EdgeSource: w.EdgeSource,
		TraitIndex: w.TraitIndex, TraitValue: w.TraitValue, Variable: w.Variable,
		HasContactNodeID: w.HasContactNodeID, ContactNodeID: w.ContactNodeID,
		HasLocationID: w.HasLocationID, LocationID: w.LocationID,
	}
	switch w.Target {
	case "healthState":
		op.Target = actions.TargetHealthState
	case "susceptibility":
		op.Target = actions.TargetSusceptibility
	case "infectivity":
		op.Target = actions.TargetInfectivity
	case "susceptibilityFactor":
		op.Target = actions.TargetSusceptibilityFactor
	case "infectivityFactor":
		op.Target = actions.TargetInfectivityFactor
	case "trait":
		op.Target = actions.TargetTrait
	case "edgeActive":
		op.Target = actions.TargetEdgeActive
	case "edgeWeight":
		op.Target = actions.TargetEdgeWeight
	case "edgeDuration":
		op.Target = actions.TargetEdgeDuration
	case "variable":
		op.Target = actions.TargetVariable
	default:
		return op, errors.Errorf("intervention: unknown operation target %q", w.Target)
	}
	switch w.Op {
	case "assign":
		op.Op = actions.OpAssign
	case "multiply":
		op.Op = actions.OpMultiply
	case "divide":
		op.Op = actions.OpDivide
	case "add":
		op.Op = actions.OpAdd
	case "subtract":
		op.Op = actions.OpSubtract
	default:
		return op, errors.Errorf("intervention: unknown operator %q", w.Op)
	}
	return op, nil
}

func conditionFrom(w wireCondition) (actions.Condition, error) {
	c := actions.Condition{
		LeftRef: w.LeftRef, Right: w.Right,
		TraitIndex: w.TraitIndex, TraitValue: w.TraitValue,
	}
	switch w.Kind {
	case "", "always":
		c.Kind = actions.CondAlways
		return c, nil
	case "compare":
		c.Kind = actions.CondCompare
		switch w.Op {
		case "=":
			c.Op = actions.CmpEq
		case "!=":
			c.Op = actions.CmpNeq
		case "<":
			c.Op = actions.CmpLt
		case "<=":
			c.Op = actions.CmpLte
		case ">":
			c.Op = actions.CmpGt
		case ">=":
			c.Op = actions.CmpGte
		default:
			return c, errors.Errorf("intervention: unknown comparison operator %q", w.Op)
		}
	case "traitEquals":
		c.Kind = actions.CondTraitEquals
	case "and":
		c.Kind = actions.CondAnd
	case "or":
		c.Kind = actions.CondOr
	case "not":
		c.Kind = actions.CondNot
	default:
		return c, errors.Errorf("intervention: unknown condition kind %q", w.Kind)
	}
	for _, wo := range w.Operands {
		operand, err := conditionFrom(wo)
		if err != nil {
			return c, err
		}
		c.Operands = append(c.Operands, operand)
	}
	if c.Kind == actions.CondNot && len(c.Operands) != 1 {
		return c, errors.New("intervention: not condition requires exactly one operand")
	}
	return c, nil
}
