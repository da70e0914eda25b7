package recommend

import (
	"math/rand/v2"
	"time"
)

// Sampler picks k distinct indexes out of a population. Implementations
// must return every index when k >= population.
type Sampler interface {
	Sample(population, k int) []int
}

// randSampler is a partial Fisher-Yates shuffle over index space.
type randSampler struct {
	rng *rand.Rand
}

// NewSampler returns a time-seeded sampler for production use.
func NewSampler() Sampler {
	now := uint64(time.Now().UnixNano())
	return &randSampler{rng: rand.New(rand.NewPCG(now, now>>32))}
}

// NewSeededSampler returns a deterministic sampler. Tests use this to pin
// down which items a sample selects.
func NewSeededSampler(seed uint64) Sampler {
	return &randSampler{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (s *randSampler) Sample(population, k int) []int {
	if population <= 0 || k <= 0 {
		return nil
	}
	idx := make([]int, population)
	for i := range idx {
		idx[i] = i
	}
	if k > population {
		k = population
	}
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(population-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
