// Package network implements C2: the contact network's node and edge
// storage, partitioning by target node, local/remote lookup, and the
// change-broadcast request graph. See spec.md §3 (Node, Edge invariants)
// and §4.1.
//
// It generalizes the teacher's adjacency-matrix host network (network.go's
// map[int]map[int]float64) into the arena-of-struct-slices layout the
// specification's scale requires: two contiguous, id-sorted slices per
// partition, exactly as §4.1 mandates, so millions of nodes/edges can be
// looked up by binary search without per-node allocation.
package network

// Node is one individual in the contact network. A Node is local to
// exactly one Partition (the owner of its incoming edges) and may be a
// read-only remote replica on any number of other partitions.
type Node struct {
	ID             int64
	HealthState    int
	Susceptibility float64
	Infectivity    float64
	Traits         []uint64

	// EdgesBegin/EdgesSize index into the owning Partition's Edges slice;
	// both are zero for remote replicas, which carry no incoming edges.
	EdgesBegin int
	EdgesSize  int

	Remote bool
	Dirty  bool // set by the driver's executor when this tick mutated the node; cleared at broadcast
}

// Edge is one directed contact from Source to Target. Its LocationID,
// Trait, Active and Weight fields carry "presence" flags (HasLocationID,
// HasTrait, HasActive, HasWeight) because the contact-network preamble
// declares these fields optional per file (§6).
type Edge struct {
	Target         int64
	Source         int64
	TargetActivity []uint64
	SourceActivity []uint64
	Duration       float64

	HasLocationID bool
	LocationID    int64

	HasTrait bool
	Trait    []uint64

	HasActive bool
	Active    bool

	HasWeight bool
	Weight    float64
}

// EffectiveWeight returns the edge's weight, or 1.0 if the file omitted
// the weight column (spec.md §6, hasWeightField).
func (e *Edge) EffectiveWeight() float64 {
	if e.HasWeight {
		return e.Weight
	}
	return 1.0
}

// IsActive returns the edge's active flag, or true if the file omitted the
// active column.
func (e *Edge) IsActive() bool {
	if e.HasActive {
		return e.Active
	}
	return true
}
