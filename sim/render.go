package sim

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Render returns a human-readable snapshot of the episode: clock, queue,
// energy split, and the host → VM → cloudlet placement tree.
func (g *Gateway) Render() string {
	if !g.hasEpisode {
		return "no episode (call reset)\n"
	}
	var b strings.Builder

	fmt.Fprintf(&b, "clock %.1fs  step %d  queue %d  completed %d/%d  failed %d\n",
		g.engine.Now(), g.episode.CurrentStep, g.broker.WaitingCount(),
		g.completedCount, g.broker.TotalCloudlets(), g.failedCount)
	fmt.Fprintf(&b, "power %.1fW (max %.1fW)  energy %.4fWh (green %.4f / brown %.4f / wasted %.4f)  co2 %.4fkg\n",
		g.energy.LastPowerW, g.energy.MaxTotalPowerW,
		g.energy.CumulativeWh, g.energy.CumulativeGreenWh, g.energy.CumulativeBrownWh,
		g.energy.TotalWastedWh, g.energy.CarbonKg())
	if g.provider != nil {
		fmt.Fprintf(&b, "green supply %.1fW  time-to-peak %.2f\n",
			g.energy.LastGreenPowerW, g.provider.TimeToPeakNorm(g.engine.Now()))
	}
	fmt.Fprintf(&b, "cost %.4f\n", g.dc.ComputeCosts(g.engine.Now()).Total())

	for _, h := range g.dc.Hosts() {
		fmt.Fprintf(&b, "host %d: %d pes (%d free)  util %.2f  ram %.2f\n",
			h.ID, h.PEs, h.FreePEs(), g.dc.HostUtilization(h), h.RAMUsageRatio())
		for _, vmID := range h.VMs() {
			vm := g.dc.VM(vmID)
			if vm == nil {
				continue
			}
			fmt.Fprintf(&b, "  vm %d [%s,%s]: %d pes (%d free)  util %.2f  running %d  queued %d\n",
				vm.ID, vm.Type, vm.State, vm.PEs, vm.FreePEs(), vm.CPUPercent(),
				len(vm.Scheduler.Running()), len(vm.Scheduler.Waiting()))
			for _, c := range vm.Scheduler.Running() {
				fmt.Fprintf(&b, "    cloudlet %d: %d pes  %.0f/%d MI\n",
					c.ID, c.PEs, float64(c.LengthMI)-c.RemainingMI, c.LengthMI)
			}
		}
	}

	if head := g.broker.PeekWaiting(); head != nil {
		fmt.Fprintf(&b, "queue head: cloudlet %d (%d pes, %d MI, waiting %.1fs)\n",
			head.ID, head.PEs, head.LengthMI, g.engine.Now()-head.ArrivalTime)
	}
	return b.String()
}

// renderSnapshot is the JSON shape of RenderJSON.
type renderSnapshot struct {
	Clock              float64   `json:"clock"`
	Step               int       `json:"step"`
	WaitingCloudlets   int       `json:"waiting_cloudlets"`
	Completed          int       `json:"completed"`
	Failed             int       `json:"failed"`
	Total              int       `json:"total"`
	PowerW             float64   `json:"power_w"`
	MaxPowerW          float64   `json:"max_power_w"`
	CumulativeWh       float64   `json:"cumulative_energy_wh"`
	GreenWh            float64   `json:"green_wh"`
	BrownWh            float64   `json:"brown_wh"`
	WastedGreenWh      float64   `json:"wasted_green_wh"`
	CarbonKg           float64   `json:"carbon_kg"`
	HostLoads          []float64 `json:"host_loads"`
	InfrastructureTree []int     `json:"infrastructure_tree"`
}

// RenderJSON returns a machine-readable snapshot including the flat
// infrastructure tree encoding.
func (g *Gateway) RenderJSON() (string, error) {
	if !g.hasEpisode {
		return "", configErrorf("render before reset")
	}
	snap := renderSnapshot{
		Clock:            g.engine.Now(),
		Step:             g.episode.CurrentStep,
		WaitingCloudlets: g.broker.WaitingCount(),
		Completed:        g.completedCount,
		Failed:           g.failedCount,
		Total:            g.broker.TotalCloudlets(),
		PowerW:           g.energy.LastPowerW,
		MaxPowerW:        g.energy.MaxTotalPowerW,
		CumulativeWh:     g.energy.CumulativeWh,
		GreenWh:          g.energy.CumulativeGreenWh,
		BrownWh:          g.energy.CumulativeBrownWh,
		WastedGreenWh:    g.energy.TotalWastedWh,
		CarbonKg:         g.energy.CarbonKg(),
		HostLoads: lo.Map(g.dc.Hosts(), func(h *Host, _ int) float64 {
			return g.dc.HostUtilization(h)
		}),
		InfrastructureTree: buildInfrastructureTree(g.dc),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
