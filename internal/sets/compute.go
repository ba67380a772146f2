package sets

import (
	"fmt"
	"sort"

	"github.com/epihiper-go/epihiper/internal/network"
)

// World is the data a Set computation needs from the running partition: its
// node/edge storage and a db-field lookup for DbFieldSelector sets. C11's
// driver supplies the concrete implementation backed by *network.Partition
// and the persontraits fetcher.
type World interface {
	LocalNodes() []network.Node
	LocalEdges() []network.Edge
	RemoteKnownNodeIDs() []int64
	DbField(nodeID int64, field string) (any, bool)
}

// Compute populates s's membership against w, recursing into operands,
// source sets, and referenced sets as needed (spec.md §4.3 "Computation").
func Compute(s *Set, w World, reg *Registry) (*Content, error) {
	switch s.Kind {
	case KindReference:
		target, ok := reg.LookupRef(s.RefID)
		if !ok {
			return nil, fmt.Errorf("sets: unresolved reference %q", s.RefID)
		}
		return Compute(target, w, reg)

	case KindNodeSelector:
		return computeNodeSelector(s, w)

	case KindEdgeSelector:
		return computeEdgeSelector(s, w)

	case KindDbFieldSelector:
		return computeDbFieldSelector(s, w)

	case KindOperation:
		return computeOperation(s, w, reg)

	case KindSampled:
		// Sampling policy is applied by the C5 sampler (sample.go), which
		// needs cross-partition coordination the pure Compute pass doesn't
		// have; Compute on a Sampled set returns its unsampled source
		// content so callers can drive SampleMax/SamplePercent explicitly.
		return Compute(s.Source, w, reg)

	default:
		return nil, fmt.Errorf("sets: unknown set kind %d", s.Kind)
	}
}

func matchCriterion(get func(field string) (any, bool), c Criterion) bool {
	v, ok := get(c.Field)
	if !ok {
		return false
	}
	switch c.Op {
	case "=":
		return fmt.Sprint(v) == fmt.Sprint(c.Value)
	case "!=":
		return fmt.Sprint(v) != fmt.Sprint(c.Value)
	case "<", "<=", ">", ">=":
		vf, vok := toFloat(v)
		cf, cok := toFloat(c.Value)
		if !vok || !cok {
			return false
		}
		switch c.Op {
		case "<":
			return vf < cf
		case "<=":
			return vf <= cf
		case ">":
			return vf > cf
		case ">=":
			return vf >= cf
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func nodeField(n *network.Node) func(string) (any, bool) {
	return func(field string) (any, bool) {
		switch field {
		case "healthState":
			return n.HealthState, true
		case "susceptibility":
			return n.Susceptibility, true
		case "infectivity":
			return n.Infectivity, true
		case "id":
			return n.ID, true
		}
		return nil, false
	}
}

func edgeField(e *network.Edge) func(string) (any, bool) {
	return func(field string) (any, bool) {
		switch field {
		case "target":
			return e.Target, true
		case "source":
			return e.Source, true
		case "duration":
			return e.Duration, true
		case "weight":
			return e.EffectiveWeight(), true
		case "active":
			return e.IsActive(), true
		}
		return nil, false
	}
}

func computeNodeSelector(s *Set, w World) (*Content, error) {
	var nodes []int64
	for _, n := range w.LocalNodes() {
		n := n
		if matchesAll(nodeField(&n), s.Criteria) {
			nodes = append(nodes, n.ID)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	content := &Content{Nodes: nodes, Local: nodes}
	if s.Scope == ScopeGlobal {
		content.RemoteKnown = filterRemoteKnown(w, s.Criteria)
	}
	return content, nil
}

func filterRemoteKnown(w World, criteria []Criterion) []int64 {
	// Remote replicas only carry an id and are not locally evaluable
	// against node-field criteria; an empty criteria list passes them
	// through (spec.md §4.3 scope propagation), otherwise they're excluded
	// since their fields aren't known without a remote fetch.
	if len(criteria) > 0 {
		return nil
	}
	ids := append([]int64(nil), w.RemoteKnownNodeIDs()...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func computeEdgeSelector(s *Set, w World) (*Content, error) {
	var edges []network.Edge
	for _, e := range w.LocalEdges() {
		e := e
		if matchesAll(edgeField(&e), s.Criteria) {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Target != edges[j].Target {
			return edges[i].Target < edges[j].Target
		}
		return edges[i].Source < edges[j].Source
	})
	return &Content{Edges: edges}, nil
}

func computeDbFieldSelector(s *Set, w World) (*Content, error) {
	values := make(map[any]bool)
	var nodes []int64
	for _, n := range w.LocalNodes() {
		v, ok := w.DbField(n.ID, s.DbField)
		if !ok {
			continue
		}
		get := func(field string) (any, bool) {
			if field == s.DbField {
				return v, true
			}
			return nodeField(&n)(field)
		}
		if matchesAll(get, s.Criteria) {
			nodes = append(nodes, n.ID)
			values[v] = true
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	list := CValueList{Type: s.DbField}
	for v := range values {
		list.Values = append(list.Values, v)
	}
	return &Content{
		Nodes:  nodes,
		Local:  nodes,
		Values: map[string]CValueList{s.DbField: list},
	}, nil
}

func matchesAll(get func(string) (any, bool), criteria []Criterion) bool {
	for _, c := range criteria {
		if !matchCriterion(get, c) {
			return false
		}
	}
	return true
}

func computeOperation(s *Set, w World, reg *Registry) (*Content, error) {
	if len(s.Operands) == 0 {
		return &Content{}, nil
	}
	contents := make([]*Content, len(s.Operands))
	for i, op := range s.Operands {
		c, err := Compute(op, w, reg)
		if err != nil {
			return nil, err
		}
		contents[i] = c
	}
	switch s.Op {
	case OpUnion:
		return unionContents(contents), nil
	case OpIntersection:
		return intersectContents(contents), nil
	}
	return nil, fmt.Errorf("sets: unknown set op %d", s.Op)
}

func unionContents(contents []*Content) *Content {
	nodeSet := make(map[int64]bool)
	edgeSet := make(map[[2]int64]network.Edge)
	for _, c := range contents {
		for _, id := range c.Nodes {
			nodeSet[id] = true
		}
		for _, e := range c.Edges {
			edgeSet[[2]int64{e.Target, e.Source}] = e
		}
	}
	return &Content{Nodes: sortedKeys(nodeSet), Edges: sortedEdges(edgeSet)}
}

func intersectContents(contents []*Content) *Content {
	if len(contents) == 0 {
		return &Content{}
	}
	nodeCounts := make(map[int64]int)
	edgeCounts := make(map[[2]int64]int)
	edgeVal := make(map[[2]int64]network.Edge)
	for _, c := range contents {
		for _, id := range c.Nodes {
			nodeCounts[id]++
		}
		for _, e := range c.Edges {
			key := [2]int64{e.Target, e.Source}
			edgeCounts[key]++
			edgeVal[key] = e
		}
	}
	n := len(contents)
	nodeSet := make(map[int64]bool)
	for id, count := range nodeCounts {
		if count == n {
			nodeSet[id] = true
		}
	}
	edgeSet := make(map[[2]int64]network.Edge)
	for key, count := range edgeCounts {
		if count == n {
			edgeSet[key] = edgeVal[key]
		}
	}
	return &Content{Nodes: sortedKeys(nodeSet), Edges: sortedEdges(edgeSet)}
}

func sortedKeys(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedEdges(m map[[2]int64]network.Edge) []network.Edge {
	out := make([]network.Edge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Source < out[j].Source
	})
	return out
}
