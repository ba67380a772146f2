package network

import "sort"

// LookupNode implements spec.md §4.1: binary search within Nodes. If id is
// outside the local interval, fall back to the remote-node map built at
// load time; if not present there either, return (nil, false).
func (p *Partition) LookupNode(id int64) (*Node, bool) {
	if p.IsLocal(id) {
		i := sort.Search(p.numLocal, func(i int) bool { return p.Nodes[i].ID >= id })
		if i < p.numLocal && p.Nodes[i].ID == id {
			return &p.Nodes[i], true
		}
		return nil, false
	}
	if idx, ok := p.remoteIndex[id]; ok {
		return &p.Nodes[idx], true
	}
	return nil, false
}

// LookupEdge performs the bounded binary search described in spec.md §4.1
// within the target node's contiguous edge slice.
func (p *Partition) LookupEdge(target, source int64) (*Edge, bool) {
	node, ok := p.LookupNode(target)
	if !ok || node.Remote {
		return nil, false
	}
	slice := p.Edges[node.EdgesBegin : node.EdgesBegin+node.EdgesSize]
	i := sort.Search(len(slice), func(i int) bool { return slice[i].Source >= source })
	if i < len(slice) && slice[i].Source == source {
		return &slice[i], true
	}
	return nil, false
}

// IncomingEdges returns the contiguous slice of edges whose Target is id,
// or nil if id is not a local node.
func (p *Partition) IncomingEdges(id int64) []Edge {
	node, ok := p.LookupNode(id)
	if !ok || node.Remote {
		return nil
	}
	return p.Edges[node.EdgesBegin : node.EdgesBegin+node.EdgesSize]
}
