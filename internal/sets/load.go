package sets

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// wireSet mirrors Set's shape with a string-named Kind/Scope/Op, the JSON
// document shape spec.md §6 describes for set definitions. Every definition
// in the document is given an "id" so KindReference entries elsewhere in
// the document (or in intervention/initialization documents loaded
// afterwards) can refer back to it.
type wireSet struct {
	ID    string `json:"id,omitempty"`
	Kind  string `json:"kind"`
	Scope string `json:"scope,omitempty"`

	RefID string `json:"refId,omitempty"`

	Criteria []Criterion `json:"criteria,omitempty"`
	DbField  string      `json:"dbField,omitempty"`

	Op       string    `json:"op,omitempty"`
	Operands []wireSet `json:"operands,omitempty"`

	Source     *wireSet `json:"source,omitempty"`
	MaxCount   int      `json:"maxCount,omitempty"`
	HasMax     bool     `json:"hasMax,omitempty"`
	Percent    float64  `json:"percent,omitempty"`
	HasPercent bool     `json:"hasPercent,omitempty"`
}

type wireSetDocument struct {
	Sets []wireSet `json:"sets"`
}

// LoadSets reads a set-definitions JSON document and interns every
// top-level definition (and its nested operands/source expressions) into
// reg, returning the interned top-level Sets in document order (spec.md
// §6 "Set definitions").
func LoadSets(path string, reg *Registry) ([]*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "sets: open")
	}
	defer f.Close()

	var doc wireSetDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "sets: decode")
	}

	out := make([]*Set, 0, len(doc.Sets))
	for _, ws := range doc.Sets {
		s, err := setFrom(ws, reg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadSetExpression parses a single inline set expression (the same shape
// LoadSets accepts per entry) and interns it into reg. Used by callers
// that embed a set expression directly in another document, e.g. an
// intervention's "target" field, instead of referencing one by id.
func LoadSetExpression(data []byte, reg *Registry) (*Set, error) {
	var ws wireSet
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, errors.Wrap(err, "sets: decode inline expression")
	}
	return setFrom(ws, reg)
}

func setFrom(ws wireSet, reg *Registry) (*Set, error) {
	s := &Set{
		RefID:      ws.RefID,
		Criteria:   ws.Criteria,
		DbField:    ws.DbField,
		MaxCount:   ws.MaxCount,
		HasMax:     ws.HasMax,
		Percent:    ws.Percent,
		HasPercent: ws.HasPercent,
	}

	switch ws.Scope {
	case "", "local":
		s.Scope = ScopeLocal
	case "global":
		s.Scope = ScopeGlobal
	default:
		return nil, errors.Errorf("sets: unknown scope %q", ws.Scope)
	}

	switch ws.Kind {
	case "reference":
		s.Kind = KindReference
		if ws.RefID == "" {
			return nil, errors.New("sets: reference set requires refId")
		}
	case "edgeSelector":
		s.Kind = KindEdgeSelector
	case "nodeSelector":
		s.Kind = KindNodeSelector
	case "dbFieldSelector":
		s.Kind = KindDbFieldSelector
		if ws.DbField == "" {
			return nil, errors.New("sets: dbFieldSelector requires dbField")
		}
	case "operation":
		s.Kind = KindOperation
		switch ws.Op {
		case "union":
			s.Op = OpUnion
		case "intersection":
			s.Op = OpIntersection
		default:
			return nil, errors.Errorf("sets: unknown set operator %q", ws.Op)
		}
		for _, wo := range ws.Operands {
			operand, err := setFrom(wo, reg)
			if err != nil {
				return nil, err
			}
			s.Operands = append(s.Operands, operand)
		}
		if len(s.Operands) < 2 {
			return nil, errors.New("sets: operation set requires at least two operands")
		}
	case "sampled":
		s.Kind = KindSampled
		if ws.Source == nil {
			return nil, errors.New("sets: sampled set requires a source")
		}
		source, err := setFrom(*ws.Source, reg)
		if err != nil {
			return nil, err
		}
		s.Source = source
		if !ws.HasMax && !ws.HasPercent {
			return nil, errors.New("sets: sampled set requires maxCount or percent")
		}
	default:
		return nil, errors.Errorf("sets: unknown set kind %q", ws.Kind)
	}

	interned := reg.Intern(s)
	if ws.ID != "" {
		reg.Name(ws.ID, interned)
	}
	return interned, nil
}
