package workload

import (
	"math"
	"math/rand"
)

// SyntheticOptions parameterizes generated workloads: a Poisson arrival
// process with Gaussian cloudlet lengths, the distribution-based
// counterpart to trace replay.
type SyntheticOptions struct {
	Rate         float64 // arrivals per second
	MaxCloudlets int
	LengthMeanMI float64
	LengthStdMI  float64
	LengthMinMI  int64
	LengthMaxMI  int64
	MaxPEs       int // pes drawn uniformly from [1, MaxPEs]
}

// Generate produces a synthetic source from the given RNG. The same RNG
// state yields the same stream, so seeded episodes replay identically.
func Generate(rng *rand.Rand, opts SyntheticOptions) *Source {
	items := make([]Item, 0, opts.MaxCloudlets)
	currentTime := 0.0
	for i := 0; i < opts.MaxCloudlets; i++ {
		currentTime += rng.ExpFloat64() / opts.Rate
		items = append(items, Item{
			ID:          i,
			ArrivalTime: currentTime,
			LengthMI:    gaussLength(rng, opts),
			PEs:         1 + rng.Intn(opts.MaxPEs),
		})
	}
	return NewSource(items)
}

// gaussLength draws a length from N(mean, std) clamped to [min, max].
func gaussLength(rng *rand.Rand, opts SyntheticOptions) int64 {
	length := int64(math.Round(rng.NormFloat64()*opts.LengthStdMI + opts.LengthMeanMI))
	if length < opts.LengthMinMI {
		length = opts.LengthMinMI
	}
	if opts.LengthMaxMI > 0 && length > opts.LengthMaxMI {
		length = opts.LengthMaxMI
	}
	return length
}
