package sim

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// EpisodeSummary aggregates an episode after (or during) its run: outcome
// counts, wait-time distribution, energy split, and cost.
type EpisodeSummary struct {
	Steps          int     `json:"steps"`
	Clock          float64 `json:"clock"`
	Completed      int     `json:"completed"`
	Failed         int     `json:"failed"`
	TotalCloudlets int     `json:"total_cloudlets"`
	CompletionRate float64 `json:"completion_rate"`

	AvgWaitTime float64 `json:"avg_wait_time"`
	P50WaitTime float64 `json:"p50_wait_time"`
	P95WaitTime float64 `json:"p95_wait_time"`
	P99WaitTime float64 `json:"p99_wait_time"`
	MaxWaitTime float64 `json:"max_wait_time"`

	EnergyWh      float64 `json:"energy_wh"`
	GreenWh       float64 `json:"green_wh"`
	BrownWh       float64 `json:"brown_wh"`
	WastedGreenWh float64 `json:"wasted_green_wh"`
	GreenRatio    float64 `json:"green_ratio"`
	CarbonKg      float64 `json:"carbon_kg"`

	Cost      CostReport `json:"cost"`
	TotalCost float64    `json:"total_cost"`
}

// Summary aggregates the current episode. Valid any time after reset; most
// useful once the episode terminated or truncated.
func (g *Gateway) Summary() EpisodeSummary {
	if !g.hasEpisode {
		return EpisodeSummary{}
	}
	s := EpisodeSummary{
		Steps:          g.episode.CurrentStep,
		Clock:          g.engine.Now(),
		Completed:      g.completedCount,
		Failed:         g.failedCount,
		TotalCloudlets: g.broker.TotalCloudlets(),

		EnergyWh:      g.energy.CumulativeWh,
		GreenWh:       g.energy.CumulativeGreenWh,
		BrownWh:       g.energy.CumulativeBrownWh,
		WastedGreenWh: g.energy.TotalWastedWh,
		GreenRatio:    g.energy.GreenRatio(),
		CarbonKg:      g.energy.CarbonKg(),

		Cost: g.dc.ComputeCosts(g.engine.Now()),
	}
	s.TotalCost = s.Cost.Total()
	if s.TotalCloudlets > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.TotalCloudlets)
	}

	var waits []float64
	for _, c := range g.dc.Cloudlets() {
		if c.State == CloudletFinished {
			waits = append(waits, c.WaitTime())
		}
	}
	if len(waits) > 0 {
		sort.Float64s(waits)
		s.AvgWaitTime = stat.Mean(waits, nil)
		s.P50WaitTime = stat.Quantile(0.50, stat.Empirical, waits, nil)
		s.P95WaitTime = stat.Quantile(0.95, stat.Empirical, waits, nil)
		s.P99WaitTime = stat.Quantile(0.99, stat.Empirical, waits, nil)
		s.MaxWaitTime = waits[len(waits)-1]
	}
	return s
}
