// Package sets implements C5: declarative, composable node/edge/value sets
// with local or global scope, computed on demand and interned by structural
// key (spec.md §4.3). The teacher's fitness model (fitness_model_matrix.go,
// fitness_model_composite.go) expresses alternative computations behind one
// interface selected by a "kind" value (multiplicative vs additive fitness
// matrix); Set generalizes that same tagged-variant shape to the six set
// expression kinds spec.md §4.3 names, as a single value type instead of an
// interface, so two structurally identical expressions hash to the same
// interned object.
package sets

import (
	"encoding/json"
	"fmt"

	"github.com/epihiper-go/epihiper/internal/network"
)

// Scope mirrors C4's local/global distinction; a global set's membership
// must be agreed by every partition before it's consumed (spec.md §4.3).
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeGlobal
)

// Kind discriminates the six set expression shapes named in spec.md §4.3.
type Kind int

const (
	KindReference Kind = iota
	KindEdgeSelector
	KindNodeSelector
	KindDbFieldSelector
	KindOperation
	KindSampled
)

// SetOp names a binary set combinator.
type SetOp int

const (
	OpUnion SetOp = iota
	OpIntersection
)

// Criterion is one field/operator/value test used by element selectors,
// e.g. {Field: "healthState", Op: "=", Value: 2}.
type Criterion struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Set is a value-typed handle around one of the expression kinds in
// spec.md §4.3. Two Sets built with identical field values produce the
// same Key() and are interned to the same *Set by a Registry.
type Set struct {
	Kind  Kind
	Scope Scope

	// KindReference
	RefID string

	// KindNodeSelector / KindEdgeSelector / KindDbFieldSelector
	Criteria []Criterion
	DbField  string

	// KindOperation
	Op       SetOp
	Operands []*Set

	// KindSampled
	Source    *Set
	MaxCount  int
	HasMax    bool
	Percent   float64
	HasPercent bool
}

type setKey struct {
	Kind     Kind
	Scope    Scope
	RefID    string        `json:",omitempty"`
	Criteria []Criterion   `json:",omitempty"`
	DbField  string        `json:",omitempty"`
	Op       SetOp         `json:",omitempty"`
	Operands []string      `json:",omitempty"`
	Source   string        `json:",omitempty"`
	MaxCount int           `json:",omitempty"`
	Percent  float64       `json:",omitempty"`
}

// Key returns the canonical structural key used for interning (spec.md
// §4.3 "Uniqueness"): two identical JSON expressions yield the same
// object.
func (s *Set) Key() string {
	k := setKey{
		Kind: s.Kind, Scope: s.Scope, RefID: s.RefID,
		Criteria: s.Criteria, DbField: s.DbField, Op: s.Op,
		MaxCount: s.MaxCount, Percent: s.Percent,
	}
	for _, op := range s.Operands {
		k.Operands = append(k.Operands, op.Key())
	}
	if s.Source != nil {
		k.Source = s.Source.Key()
	}
	b, err := json.Marshal(k)
	if err != nil {
		// Criteria values are expected to be JSON-marshalable scalars;
		// a failure here means a caller built a malformed Criterion.
		panic(fmt.Sprintf("sets: key encoding: %v", err))
	}
	return string(b)
}

// Registry interns Sets by structural key so identical expressions share
// one object and one computed Content (spec.md §4.3 "Uniqueness").
type Registry struct {
	byKey map[string]*Set
	byID  map[string]*Set
}

// NewRegistry returns an empty set registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]*Set), byID: make(map[string]*Set)}
}

// Intern returns the canonical *Set for s's structural key, registering s
// if this is the first time this expression has been seen.
func (r *Registry) Intern(s *Set) *Set {
	key := s.Key()
	if existing, ok := r.byKey[key]; ok {
		return existing
	}
	r.byKey[key] = s
	return s
}

// Name records s as addressable by id, so a later KindReference with a
// matching RefID (or a direct LookupRef call) resolves to it. Document
// loaders call this for every named top-level set definition (spec.md
// §4.3 "Uniqueness", §6 "Set definitions").
func (r *Registry) Name(id string, s *Set) {
	r.byID[id] = s
}

// LookupRef returns the set registered under id, either by a prior Name
// call or by a KindReference previously Intern'd under that RefID.
func (r *Registry) LookupRef(id string) (*Set, bool) {
	if s, ok := r.byID[id]; ok {
		return s, true
	}
	for _, s := range r.byKey {
		if s.Kind == KindReference && s.RefID == id {
			return s, true
		}
	}
	return nil, false
}

// CValueList is a sorted, deduplicated list of observed db-field values of
// one concrete type, keyed by type name in Content.Values (spec.md §4.3
// "a map keyed by value-list type").
type CValueList struct {
	Type   string
	Values []any
}

// Content is the computed membership of a Set on one partition: sorted
// unique node ids, sorted unique edge refs, and any observed db-field
// value lists (spec.md §4.3 "Computation").
type Content struct {
	Nodes []int64
	Edges []network.Edge

	// Local/RemoteKnown split node ids when Scope is global (spec.md §4.3
	// "a 'global' scope set guarantees the node vector is partitioned into
	// local and remote-known slices").
	Local       []int64
	RemoteKnown []int64

	Values map[string]CValueList
}

// Size returns the reported cardinality of the content: for a local set,
// the local partition's count; for a global set, local + remote-known
// (spec.md §3 invariant, "reported size equals the sum of its per-partition
// local sizes when its scope is global").
func (c *Content) Size(scope Scope) int {
	if scope == ScopeGlobal {
		return len(c.Local) + len(c.RemoteKnown)
	}
	return len(c.Nodes)
}
