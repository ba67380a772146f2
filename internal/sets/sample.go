package sets

import "github.com/epihiper-go/epihiper/internal/randstream"

// AllocateMax computes, for each partition's reported local size, the
// number of items it may keep so the global total equals min(M, sum of
// sizes), using proportional rounding with error carry (spec.md §4.3
// "max" sampling). Intended to run on rank 0 after collecting every
// partition's local size; the result is broadcast back by C12.
func AllocateMax(localSizes []int, m int) []int {
	total := 0
	for _, s := range localSizes {
		total += s
	}
	if total <= m {
		return append([]int(nil), localSizes...)
	}
	allowances := make([]int, len(localSizes))
	exact := make([]float64, len(localSizes))
	for i, s := range localSizes {
		exact[i] = float64(s) * float64(m) / float64(total)
		allowances[i] = int(exact[i])
	}
	assigned := 0
	for _, a := range allowances {
		assigned += a
	}
	remainder := m - assigned
	// Distribute leftover allowance to the partitions with the largest
	// fractional remainder, the standard largest-remainder apportionment,
	// matching "proportional rounding with error carry".
	type frac struct {
		idx int
		f   float64
	}
	fracs := make([]frac, len(localSizes))
	for i := range localSizes {
		fracs[i] = frac{idx: i, f: exact[i] - float64(allowances[i])}
	}
	for remainder > 0 {
		best := -1
		bestF := -1.0
		for _, fr := range fracs {
			if allowances[fr.idx] >= localSizes[fr.idx] {
				continue
			}
			if fr.f > bestF {
				bestF = fr.f
				best = fr.idx
			}
		}
		if best == -1 {
			break
		}
		allowances[best]++
		for i := range fracs {
			if fracs[i].idx == best {
				fracs[i].f = -1
			}
		}
		remainder--
	}
	return allowances
}

// SampleAllowance performs the streaming Bernoulli sampling described in
// spec.md §4.3: walk the local items, keeping each with probability
// remaining-allowance / remaining-available.
func SampleAllowance(items []int64, allowance int, stream *randstream.Stream) []int64 {
	if allowance >= len(items) {
		return append([]int64(nil), items...)
	}
	out := make([]int64, 0, allowance)
	remaining := len(items)
	left := allowance
	for _, id := range items {
		if left <= 0 {
			break
		}
		p := float64(left) / float64(remaining)
		if stream.Bernoulli(p) {
			out = append(out, id)
			left--
		}
		remaining--
	}
	return out
}

// SamplePercent independently keeps each item with probability p/100, with
// no cross-partition coordination (spec.md §4.3 "percent").
func SamplePercent(items []int64, percent float64, stream *randstream.Stream) []int64 {
	var out []int64
	prob := percent / 100
	for _, id := range items {
		if stream.Bernoulli(prob) {
			out = append(out, id)
		}
	}
	return out
}
