package sim

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RewardComponents is the per-step reward decomposition. Every component
// except the invalid-action penalty is ≤ 0 under normal operation; agents
// optimize by minimizing penalties.
type RewardComponents struct {
	WaitTime      float64 `json:"reward_wait_time"`
	Unutilization float64 `json:"reward_unutilization"`
	QueuePenalty  float64 `json:"reward_queue_penalty"`
	InvalidAction float64 `json:"reward_invalid_action"`
	Energy        float64 `json:"reward_energy"`
}

// Total sums the signed components.
func (r RewardComponents) Total() float64 {
	return r.WaitTime + r.Unutilization + r.QueuePenalty + r.InvalidAction + r.Energy
}

// RewardInputs carries the per-step measurements the reward is computed
// from.
type RewardInputs struct {
	FinishedWaitTimes []float64 // wait times of cloudlets finished this step
	RunningVmUtils    []float64 // CPU utilization of each Running VM
	WaitingCount      int
	TotalArrived      int
	WasInvalidAction  bool
	StepEnergyWh      float64
	MaxTotalPowerW    float64
	DeltaH            float64 // step duration in hours
}

// utilizationTarget is the mean VM utilization the balance term rewards.
const utilizationTarget = 0.95

// ComputeReward evaluates the reward decomposition for one step. A zero
// coefficient disables its component entirely: the component stays 0 even
// when its inputs are nonzero, which is observable in logged decompositions.
func ComputeReward(cfg RewardConfig, in RewardInputs) RewardComponents {
	var r RewardComponents

	if cfg.WaitTimeCoef > 0 && len(in.FinishedWaitTimes) > 0 {
		avg := stat.Mean(in.FinishedWaitTimes, nil)
		r.WaitTime = -cfg.WaitTimeCoef * math.Log1p(avg)
	}

	if cfg.UnutilizationCoef > 0 && len(in.RunningVmUtils) > 0 {
		mean := stat.Mean(in.RunningVmUtils, nil)
		spread := stat.PopStdDev(in.RunningVmUtils, nil)
		r.Unutilization = -cfg.UnutilizationCoef * (spread + math.Abs(mean-utilizationTarget))
	}

	if cfg.QueuePenaltyCoef > 0 && in.TotalArrived > 0 {
		r.QueuePenalty = -cfg.QueuePenaltyCoef * float64(in.WaitingCount) / float64(in.TotalArrived)
	}

	if cfg.InvalidActionCoef > 0 && in.WasInvalidAction {
		r.InvalidAction = -cfg.InvalidActionCoef
	}

	// Step energy, not instantaneous power: penalizing ∫P dt keeps agents
	// from stretching execution at low power to game the term.
	if cfg.EnergyCoef > 0 && in.MaxTotalPowerW > 0 && in.DeltaH > 0 {
		r.Energy = -cfg.EnergyCoef * in.StepEnergyWh / (in.MaxTotalPowerW * in.DeltaH)
	}

	return r
}
