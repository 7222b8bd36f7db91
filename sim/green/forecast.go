package green

import "gonum.org/v1/gonum/stat"

// Forecast horizons in samples: ~30 minutes and ~24 hours at the default
// 600 s sample period.
const (
	ShortHorizonSamples = 3
	LongHorizonSamples  = 144
)

// Forecast summarizes upcoming green supply: the mean power over the
// horizon and the linear trend in watts per second.
type Forecast struct {
	MeanW        float64
	TrendWPerSec float64
}

// ShortForecast summarizes the next ~30 minutes from t.
func (p *Provider) ShortForecast(t float64) Forecast {
	return p.forecast(t, ShortHorizonSamples)
}

// LongForecast summarizes the next ~24 hours from t.
func (p *Provider) LongForecast(t float64) Forecast {
	return p.forecast(t, LongHorizonSamples)
}

func (p *Provider) forecast(t float64, horizonSamples int) Forecast {
	xs := make([]float64, horizonSamples)
	ys := make([]float64, horizonSamples)
	for i := 0; i < horizonSamples; i++ {
		dt := float64(i+1) * p.periodSec
		xs[i] = dt
		ys[i] = p.PowerAt(t + dt)
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return Forecast{
		MeanW:        stat.Mean(ys, nil),
		TrendWPerSec: beta,
	}
}

// TimeToPeakNorm returns the normalized time until the highest upcoming
// sample within the long horizon, in [0,1]. A peak at the current instant
// returns 0; a peak at (or beyond) the horizon end returns 1.
func (p *Provider) TimeToPeakNorm(t float64) float64 {
	horizon := float64(LongHorizonSamples) * p.periodSec
	peakAt := 0.0
	peakW := p.PowerAt(t)
	for i := 1; i <= LongHorizonSamples; i++ {
		dt := float64(i) * p.periodSec
		if w := p.PowerAt(t + dt); w > peakW {
			peakW = w
			peakAt = dt
		}
	}
	return peakAt / horizon
}
