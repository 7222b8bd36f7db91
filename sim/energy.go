package sim

import (
	"github.com/greendc-sim/greendc-sim/sim/green"
)

// EnergyAccountant computes instantaneous and cumulative energy each step,
// split between renewable ("green") and grid ("brown") supply. The power
// integral uses a left-endpoint rule evaluated at the end of each interval;
// the same rule is applied on every step of a run.
type EnergyAccountant struct {
	dc       *Datacenter
	provider *green.Provider // nil when green accounting is off

	carbonFactorBrown float64 // kg CO2 per kWh
	carbonFactorGreen float64

	// MaxTotalPowerW is the all-hosts-at-full-load draw, cached at reset.
	MaxTotalPowerW float64

	CumulativeWh      float64
	CumulativeGreenWh float64
	CumulativeBrownWh float64
	TotalWastedWh     float64

	// Last step snapshot.
	LastStepWh       float64
	LastPowerW       float64
	LastGreenPowerW  float64
}

// NewEnergyAccountant creates an accountant over the datacenter; provider
// may be nil, in which case all energy is brown.
func NewEnergyAccountant(dc *Datacenter, provider *green.Provider, carbonBrown, carbonGreen float64) *EnergyAccountant {
	return &EnergyAccountant{
		dc:                dc,
		provider:          provider,
		carbonFactorBrown: carbonBrown,
		carbonFactorGreen: carbonGreen,
		MaxTotalPowerW:    dc.MaxTotalPowerW(),
	}
}

// Update accounts one step ending at virtual time t1 spanning deltaSec.
func (a *EnergyAccountant) Update(t1, deltaSec float64) {
	deltaH := deltaSec / 3600.0
	power := a.dc.TotalPowerW()
	stepWh := power * deltaH

	a.LastPowerW = power
	a.LastStepWh = stepWh
	a.CumulativeWh += stepWh

	if a.provider == nil {
		a.CumulativeBrownWh += stepWh
		a.LastGreenPowerW = 0
		return
	}

	alloc := a.provider.Allocate(stepWh, t1, deltaH)
	a.CumulativeGreenWh += alloc.GreenWh
	a.CumulativeBrownWh += alloc.BrownWh
	a.TotalWastedWh += alloc.WastedWh
	a.LastGreenPowerW = alloc.GreenPowerW
}

// GreenRatio returns the renewable share of cumulative energy, 0 when no
// energy has been drawn yet.
func (a *EnergyAccountant) GreenRatio() float64 {
	if a.CumulativeWh <= 0 {
		return 0
	}
	return a.CumulativeGreenWh / a.CumulativeWh
}

// CarbonKg returns cumulative CO2 emissions from both supplies.
func (a *EnergyAccountant) CarbonKg() float64 {
	return a.CumulativeBrownWh/1000.0*a.carbonFactorBrown +
		a.CumulativeGreenWh/1000.0*a.carbonFactorGreen
}
