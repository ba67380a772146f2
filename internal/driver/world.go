package driver

import (
	"github.com/epihiper-go/epihiper/internal/network"
)

// partitionWorld adapts one process's *network.Partition plus a cached
// person-trait row table into the sets.World interface C5's Compute needs
// (spec.md §4.3 "Computation").
type partitionWorld struct {
	part   *network.Partition
	traits map[int64]map[string]any
}

func (w *partitionWorld) LocalNodes() []network.Node { return w.part.LocalNodes() }
func (w *partitionWorld) LocalEdges() []network.Edge { return w.part.Edges }

func (w *partitionWorld) RemoteKnownNodeIDs() []int64 {
	local := w.part.LocalNodes()
	ids := make([]int64, 0, len(w.part.Nodes)-len(local))
	for _, n := range w.part.Nodes[len(local):] {
		ids = append(ids, n.ID)
	}
	return ids
}

func (w *partitionWorld) DbField(nodeID int64, field string) (any, bool) {
	row, ok := w.traits[nodeID]
	if !ok {
		return nil, false
	}
	v, ok := row[field]
	return v, ok
}
