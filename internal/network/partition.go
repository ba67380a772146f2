package network

import "sort"

// Partition is one process's share of the contact network: the edges it
// owns (sorted by (target, source)) and the nodes it can resolve without a
// remote lookup (sorted by id, local entries first in the id-ordering,
// remote replicas appended at the end of the slice and excluded from the
// binary-searchable local range).
type Partition struct {
	Index       int
	NumParts    int
	FirstLocal  int64
	BeyondLocal int64

	Nodes []Node // len == NumLocal + NumRemote, sorted by ID within each group
	Edges []Edge // len == local edge count, sorted by (Target, Source)

	numLocal int

	// RemoteInterest maps another partition's index to the local node IDs
	// on THIS partition that partition references as an edge source. Built
	// at load time from the global edge list; consumed by C10/C12 to know
	// who needs this partition's change records (spec.md §4.1 "Change
	// broadcast", §4.7).
	RemoteInterest map[int][]int64

	// remoteIndex maps a remote node's ID to its position in Nodes, for
	// O(1) dispatch once the binary search over the local range misses.
	remoteIndex map[int64]int
}

// LocalNodes returns the slice of nodes this partition authoritatively
// owns (excludes remote replicas).
func (p *Partition) LocalNodes() []Node { return p.Nodes[:p.numLocal] }

// IsLocal reports whether id falls in this partition's owned interval.
func (p *Partition) IsLocal(id int64) bool { return id >= p.FirstLocal && id < p.BeyondLocal }

// Boundaries computes the partition boundaries described in spec.md §4.1:
// "walk edges accumulating per-target counts. Close a partition when
// cumulative count first reaches k·(E_total/P); when crossing, either
// keep the current node in the previous part or push it to the next,
// choosing whichever yields the closer balance."
//
// edges must already be sorted by Target. Returns, for each of numParts
// partitions, the exclusive upper bound on node id ("beyondLocal").
func Boundaries(edges []Edge, numParts int) []int64 {
	if numParts <= 1 {
		if len(edges) == 0 {
			return []int64{0}
		}
		return []int64{edges[len(edges)-1].Target + 1}
	}

	// Group edge counts by target, in the order targets first appear
	// (edges are sorted by target, so this is a single linear pass).
	type targetCount struct {
		target int64
		count  int
	}
	var counts []targetCount
	for _, e := range edges {
		if len(counts) == 0 || counts[len(counts)-1].target != e.Target {
			counts = append(counts, targetCount{target: e.Target, count: 0})
		}
		counts[len(counts)-1].count++
	}

	total := len(edges)
	target := float64(total) / float64(numParts)

	boundaries := make([]int64, 0, numParts)
	cum := 0
	idx := 0
	for part := 1; part < numParts; part++ {
		wantCum := target * float64(part)
		prevCum := cum
		for idx < len(counts) && float64(cum) < wantCum {
			prevCum = cum
			cum += counts[idx].count
			idx++
		}
		if idx >= len(counts) {
			// Ran out of targets; remaining parts share the last boundary.
			boundaries = append(boundaries, counts[len(counts)-1].target+1)
			continue
		}
		// Deciding point: counts[idx-1] just crossed wantCum. Compare
		// pushing it to the next part (boundary = its target, so the
		// previous part ends at prevCum) vs keeping it in the previous
		// part (boundary = its target+1, so the previous part ends at cum).
		keepPrevBalance := absFloat(float64(prevCum) - wantCum)
		pushNextBalance := absFloat(float64(cum) - wantCum)
		if keepPrevBalance <= pushNextBalance {
			boundaries = append(boundaries, counts[idx-1].target)
		} else {
			boundaries = append(boundaries, counts[idx-1].target+1)
		}
	}
	boundaries = append(boundaries, counts[len(counts)-1].target+1)
	return boundaries
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// BuildPartitions assigns every edge and node to a partition given
// precomputed boundaries, producing one fully populated Partition per
// boundary. Each of sourceOnlyNodes is attached to the partition whose
// [FirstLocal, BeyondLocal) interval contains its id; the nearest lower
// target id is not consulted.
func BuildPartitions(edges []Edge, boundaries []int64, sourceOnlyNodes []int64) []*Partition {
	numParts := len(boundaries)
	parts := make([]*Partition, numParts)
	firstLocal := int64(0)
	for i, beyond := range boundaries {
		parts[i] = &Partition{
			Index:          i,
			NumParts:       numParts,
			FirstLocal:     firstLocal,
			BeyondLocal:    beyond,
			RemoteInterest: make(map[int][]int64),
			remoteIndex:    make(map[int64]int),
		}
		firstLocal = beyond
	}
	ownerOf := func(id int64) int {
		i := sort.Search(numParts, func(i int) bool { return id < boundaries[i] })
		if i >= numParts {
			i = numParts - 1
		}
		return i
	}

	// Assign edges (owned by the partition owning Target) and discover
	// local node IDs and remote references along the way.
	localNodeSet := make([]map[int64]bool, numParts)
	remoteNeed := make([]map[int64]bool, numParts) // partition i needs these remote ids
	for i := range localNodeSet {
		localNodeSet[i] = make(map[int64]bool)
		remoteNeed[i] = make(map[int64]bool)
	}
	for _, e := range edges {
		owner := ownerOf(e.Target)
		parts[owner].Edges = append(parts[owner].Edges, e)
		localNodeSet[owner][e.Target] = true
		if !parts[owner].IsLocal(e.Source) {
			remoteNeed[owner][e.Source] = true
		} else {
			localNodeSet[owner][e.Source] = true
		}
	}
	for _, id := range sourceOnlyNodes {
		owner := ownerOf(id)
		if owner > 0 && id < boundaries[owner-1] {
			owner--
		}
		localNodeSet[owner][id] = true
	}

	for i, part := range parts {
		sort.Slice(part.Edges, func(a, b int) bool {
			if part.Edges[a].Target != part.Edges[b].Target {
				return part.Edges[a].Target < part.Edges[b].Target
			}
			return part.Edges[a].Source < part.Edges[b].Source
		})

		localIDs := make([]int64, 0, len(localNodeSet[i]))
		for id := range localNodeSet[i] {
			localIDs = append(localIDs, id)
		}
		sort.Slice(localIDs, func(a, b int) bool { return localIDs[a] < localIDs[b] })

		part.Nodes = make([]Node, 0, len(localIDs)+len(remoteNeed[i]))
		for _, id := range localIDs {
			part.Nodes = append(part.Nodes, Node{ID: id})
		}
		part.numLocal = len(part.Nodes)

		// Attach each local node's edge slice (contiguous since Edges is
		// sorted by Target).
		begin := 0
		for ni := range part.Nodes[:part.numLocal] {
			id := part.Nodes[ni].ID
			size := 0
			for begin+size < len(part.Edges) && part.Edges[begin+size].Target == id {
				size++
			}
			part.Nodes[ni].EdgesBegin = begin
			part.Nodes[ni].EdgesSize = size
			begin += size
		}

		remoteIDs := make([]int64, 0, len(remoteNeed[i]))
		for id := range remoteNeed[i] {
			remoteIDs = append(remoteIDs, id)
		}
		sort.Slice(remoteIDs, func(a, b int) bool { return remoteIDs[a] < remoteIDs[b] })
		for _, id := range remoteIDs {
			part.remoteIndex[id] = len(part.Nodes)
			part.Nodes = append(part.Nodes, Node{ID: id, Remote: true})
		}
	}

	// Build RemoteInterest: for each partition P and each remote id it
	// needs that's owned by partition Q, record on Q that P is interested
	// in that local id.
	for i, need := range remoteNeed {
		for id := range need {
			owner := ownerOf(id)
			parts[owner].RemoteInterest[i] = append(parts[owner].RemoteInterest[i], id)
		}
	}
	for _, part := range parts {
		for rank := range part.RemoteInterest {
			sort.Slice(part.RemoteInterest[rank], func(a, b int) bool {
				return part.RemoteInterest[rank][a] < part.RemoteInterest[rank][b]
			})
		}
	}

	return parts
}
