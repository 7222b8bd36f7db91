package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullRewardConfig() RewardConfig {
	return RewardConfig{
		WaitTimeCoef:      0.3,
		UnutilizationCoef: 0.2,
		QueuePenaltyCoef:  0.2,
		InvalidActionCoef: 1.0,
		EnergyCoef:        0.3,
	}
}

func TestReward_WaitTimeTerm(t *testing.T) {
	r := ComputeReward(fullRewardConfig(), RewardInputs{
		FinishedWaitTimes: []float64{2, 4},
	})
	want := -0.3 * math.Log1p(3)
	assert.InDelta(t, want, r.WaitTime, 1e-12)
}

func TestReward_UtilizationBalanceTerm(t *testing.T) {
	// Two VMs at 0.5 and 1.0: mean 0.75, population stddev 0.25.
	r := ComputeReward(fullRewardConfig(), RewardInputs{
		RunningVmUtils: []float64{0.5, 1.0},
	})
	want := -0.2 * (0.25 + math.Abs(0.75-0.95))
	assert.InDelta(t, want, r.Unutilization, 1e-12)
}

func TestReward_UtilizationZeroWithoutRunningVMs(t *testing.T) {
	r := ComputeReward(fullRewardConfig(), RewardInputs{})
	assert.Zero(t, r.Unutilization)
}

func TestReward_QueuePenalty(t *testing.T) {
	r := ComputeReward(fullRewardConfig(), RewardInputs{
		WaitingCount: 5,
		TotalArrived: 20,
	})
	assert.InDelta(t, -0.2*0.25, r.QueuePenalty, 1e-12)

	// No arrivals yet: no penalty.
	r = ComputeReward(fullRewardConfig(), RewardInputs{WaitingCount: 5})
	assert.Zero(t, r.QueuePenalty)
}

func TestReward_InvalidActionPenalty(t *testing.T) {
	r := ComputeReward(fullRewardConfig(), RewardInputs{WasInvalidAction: true})
	assert.Equal(t, -1.0, r.InvalidAction)
}

func TestReward_EnergyTermUsesStepEnergy(t *testing.T) {
	deltaH := 1.0 / 3600
	r := ComputeReward(fullRewardConfig(), RewardInputs{
		StepEnergyWh:   420 * deltaH,
		MaxTotalPowerW: 600,
		DeltaH:         deltaH,
	})
	assert.InDelta(t, -0.3*420.0/600.0, r.Energy, 1e-12)
}

func TestReward_ZeroCoefficientDisablesComponent(t *testing.T) {
	cfg := fullRewardConfig()
	cfg.EnergyCoef = 0
	r := ComputeReward(cfg, RewardInputs{
		StepEnergyWh:   100,
		MaxTotalPowerW: 600,
		DeltaH:         1.0 / 3600,
	})
	assert.Zero(t, r.Energy)
}

func TestReward_TotalSumsComponents(t *testing.T) {
	r := RewardComponents{WaitTime: -1, Unutilization: -2, QueuePenalty: -3, InvalidAction: -4, Energy: -5}
	assert.Equal(t, -15.0, r.Total())
}
