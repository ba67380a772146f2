// Package randstream provides the deterministic, per-thread seeded random
// streams the specification requires: "the random stream is seeded
// deterministically (seed + replicate, re-spawned per thread) so that given
// inputs plus seed plus process count, outputs are reproducible" (§5).
//
// It generalizes the teacher's direct calls to github.com/kentwait/randomvariate
// (rv.Binomial, rv.Poisson, rv.Multinomial, ...) against the single global
// math/rand source into an explicit per-(process,thread) stream object.
package randstream

import (
	"math/rand"

	rv "github.com/kentwait/randomvariate"
)

// Stream is a single reproducible random source, owned by exactly one
// worker thread within one partition process.
type Stream struct {
	src *rand.Rand
}

// New derives a Stream for (seed, replicate, partitionID, threadID). The
// derivation is a simple deterministic mix so the same four integers always
// produce the same stream across process counts and re-runs, per the
// reproducibility invariant (spec.md §8, property 1).
func New(seed int64, replicate, partitionID, threadID int) *Stream {
	mixed := seed
	mixed = mixed*6364136223846793005 + int64(replicate)*1442695040888963407
	mixed = mixed*6364136223846793005 + int64(partitionID)*1442695040888963407
	mixed = mixed*6364136223846793005 + int64(threadID)*1442695040888963407
	return &Stream{src: rand.New(rand.NewSource(mixed))}
}

// Reseed replaces the underlying source, used by the driver's optional
// per-tick reseed feature (run-parameter `reseed: [{tick, seed}]`).
func (s *Stream) Reseed(seed int64, replicate, partitionID, threadID int) {
	*s = *New(seed, replicate, partitionID, threadID)
}

// Uniform01 draws u ~ Uniform(0, 1), used directly by the transmission
// hazard test in spec.md §4.2 step 3.
func (s *Stream) Uniform01() float64 { return s.src.Float64() }

// Intn draws a uniform integer in [0, n).
func (s *Stream) Intn(n int) int { return s.src.Intn(n) }

// Shuffle permutes a slice in place, used by the action queue to
// randomize processing order within a priority bucket (spec.md §4.5).
func (s *Stream) Shuffle(n int, swap func(i, j int)) { s.src.Shuffle(n, swap) }

// Binomial draws from Binomial(n, p) using this stream's own source rather
// than the package-global generator rv.Binomial defaults to.
func (s *Stream) Binomial(n int, p float64) int { return rv.Binomial(n, p, s.src) }

// Poisson draws from Poisson(lambda) using this stream's own source.
func (s *Stream) Poisson(lambda float64) int { return rv.Poisson(lambda, s.src) }

// Normal draws from Normal(mean, sd).
func (s *Stream) Normal(mean, sd float64) float64 { return mean + sd*s.src.NormFloat64() }

// Categorical draws an index in [0, len(weights)) with probability
// proportional to weights[i]. Used by the transmission sampler (spec.md
// §4.2 step 3, "pick the contact edge by categorical sampling") and by
// progression selection (§4.2, "sample the next outgoing progression by
// normalized probability").
func (s *Stream) Categorical(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return -1
	}
	u := s.src.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if u < cum {
			return i
		}
	}
	return len(weights) - 1
}

// Bernoulli draws a boolean true with probability p.
func (s *Stream) Bernoulli(p float64) bool { return s.src.Float64() < p }
