// Package green provides the renewable power supply model: a fixed-period
// time series of available green power with interpolation, step-energy
// allocation against it, and short/long-horizon forecast queries.
package green

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/interp"
)

// Interpolation modes.
const (
	InterpolationLinear = "linear"
	InterpolationSpline = "spline"
)

// Allocation splits one step's energy between supply sources.
type Allocation struct {
	GreenWh     float64
	BrownWh     float64
	WastedWh    float64
	GreenPowerW float64
}

// Provider models available renewable power over virtual time. One
// interpolator instance serves both allocation and forecasts, so the two
// always agree on intermediate values.
type Provider struct {
	samplesW  []float64
	periodSec float64
	predictor interp.Predictor
	horizon   float64
}

// New builds a provider from power samples in watts at a fixed period.
// mode selects linear or spline interpolation; splines need at least four
// samples and degrade to linear below that.
func New(samplesW []float64, periodSec float64, mode string) (*Provider, error) {
	if len(samplesW) == 0 {
		return nil, fmt.Errorf("green power series is empty")
	}
	if periodSec <= 0 {
		return nil, fmt.Errorf("green sample period must be positive, got %v", periodSec)
	}
	p := &Provider{
		samplesW:  samplesW,
		periodSec: periodSec,
		horizon:   float64(len(samplesW)-1) * periodSec,
	}
	if len(samplesW) == 1 {
		return p, nil
	}

	xs := make([]float64, len(samplesW))
	for i := range xs {
		xs[i] = float64(i) * periodSec
	}
	if mode == InterpolationSpline && len(samplesW) >= 4 {
		spline := &interp.AkimaSpline{}
		if err := spline.Fit(xs, samplesW); err != nil {
			return nil, fmt.Errorf("fit green spline: %w", err)
		}
		p.predictor = spline
	} else {
		linear := &interp.PiecewiseLinear{}
		if err := linear.Fit(xs, samplesW); err != nil {
			return nil, fmt.Errorf("fit green interpolation: %w", err)
		}
		p.predictor = linear
	}
	return p, nil
}

// Load reads a green power time series CSV. The file holds samples in kW:
// either a single value column, or (turbine_id, value) rows filtered by the
// given turbine id. A non-numeric first row is treated as a header.
func Load(path, turbineID string, periodSec float64, mode string) (*Provider, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open green power series: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var samplesW []float64
	first := true
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		valueField := record[len(record)-1]
		if first {
			first = false
			if _, err := strconv.ParseFloat(valueField, 64); err != nil {
				continue // header row
			}
		}
		if len(record) > 1 && turbineID != "" && record[0] != turbineID {
			continue
		}
		kw, err := strconv.ParseFloat(valueField, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: power value: %w", line, err)
		}
		samplesW = append(samplesW, kw*1000)
	}
	if len(samplesW) == 0 {
		return nil, fmt.Errorf("green power series %s has no samples for turbine %q", path, turbineID)
	}
	return New(samplesW, periodSec, mode)
}

// PowerAt returns the available green power in watts at virtual time t.
// Times outside the series clamp to its endpoints.
func (p *Provider) PowerAt(t float64) float64 {
	if len(p.samplesW) == 1 || t <= 0 {
		return p.samplesW[0]
	}
	if t >= p.horizon {
		return p.samplesW[len(p.samplesW)-1]
	}
	w := p.predictor.Predict(t)
	if w < 0 {
		w = 0 // splines can undershoot between low samples
	}
	return w
}

// Allocate splits a step's energy stepWh over the interval ending at t1
// with duration deltaH hours: green is consumed first, the grid covers the
// remainder, and unconsumed green supply is wasted.
func (p *Provider) Allocate(stepWh, t1, deltaH float64) Allocation {
	greenPowerW := p.PowerAt(t1)
	availableWh := greenPowerW * deltaH
	greenWh := stepWh
	if availableWh < greenWh {
		greenWh = availableWh
	}
	return Allocation{
		GreenWh:     greenWh,
		BrownWh:     stepWh - greenWh,
		WastedWh:    availableWh - greenWh,
		GreenPowerW: greenPowerW,
	}
}
