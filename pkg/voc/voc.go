// Package voc implements the adaptive gas-index model that turns raw
// SGP40 ticks into a 0..500 VOC index, in the style of Sensirion's
// published gas-index algorithm: an exponentially tracked baseline with
// event gating, a sigmoid mapping centered on the baseline, and an
// adaptive output lowpass. The index is meaningful only as a continuous
// series, so the algorithm is constructed once per device session and
// must be fed every successful raw reading in chronological order.
package voc

import (
	"time"

	"github.com/chewxy/math32"
)

const (
	// IndexOffsetDefault is the index reported for a sensor sitting at
	// its learned baseline.
	IndexOffsetDefault = 100

	initialBlackout = 45.0 // seconds of warm-up during which 0 is reported

	indexGain = 230.0
	stdFloor  = 50.0 // also the seed standard deviation

	tauMean           = 12.0 * 3600.0
	tauMeanInitial    = 20.0
	initDurationMean  = 3600.0 * 0.75
	tauVariance       = 12.0 * 3600.0
	tauVarianceInit   = 2500.0
	initDurationVar   = 3600.0 * 1.45
	gatingThreshold   = 340.0
	gatingThresholdIn = 510.0
	gatingMaxDuration = 3.0 * 60.0 * 60.0
	gatingMaxRatio    = 0.3

	sigmoidL  = 500.0
	sigmoidK  = 0.0065
	sigmoidX0 = 213.0

	lpTauFast = 20.0
	lpTauSlow = 500.0
	lpAlpha   = -0.2
)

// Algorithm holds the cross-tick state of the gas-index model. The zero
// value is not usable; create one with New.
type Algorithm struct {
	dt     float32 // sampling interval in seconds
	uptime float32

	// Baseline estimator.
	initialized bool
	mean        float32
	variance    float32
	gatedFor    float32

	// Adaptive lowpass.
	lpInit bool
	lpX1   float32
	lpX2   float32
	lpOut  float32
}

// New creates an Algorithm keyed to the fixed interval at which Update
// will be called.
func New(samplingInterval time.Duration) *Algorithm {
	return &Algorithm{dt: float32(samplingInterval.Seconds())}
}

// Update feeds one raw reading into the model and returns the current
// gas index in [0, 500]. During the initial blackout window it returns 0.
func (a *Algorithm) Update(sraw uint16) int32 {
	a.uptime += a.dt
	if a.uptime < initialBlackout {
		return 0
	}

	s := float32(sraw)
	if !a.initialized {
		a.mean = s
		a.variance = stdFloor * stdFloor
		a.initialized = true
	}

	std := math32.Sqrt(a.variance)
	if std < stdFloor {
		std = stdFloor
	}

	// Raw ticks drop as VOC concentration rises, so distance below the
	// baseline maps to a positive index excursion.
	x := (a.mean - s) / std * indexGain
	idx := a.lowpass(sigmoid(x))

	a.updateBaseline(s, idx)

	return int32(math32.Round(idx))
}

// sigmoid maps the scaled baseline distance onto the index range. At
// x=0 it evaluates to IndexOffsetDefault.
func sigmoid(x float32) float32 {
	return sigmoidL / (1.0 + math32.Exp(-sigmoidK*(x-sigmoidX0)))
}

// lowpass applies the adaptive output filter: two fixed lowpasses whose
// disagreement steers the effective time constant between lpTauFast and
// lpTauSlow, so the index tracks events quickly but stays quiet at rest.
func (a *Algorithm) lowpass(x float32) float32 {
	if !a.lpInit {
		a.lpX1 = x
		a.lpX2 = x
		a.lpOut = x
		a.lpInit = true
		return x
	}

	a1 := a.dt / (a.dt + lpTauFast)
	a2 := a.dt / (a.dt + lpTauSlow)
	a.lpX1 += a1 * (x - a.lpX1)
	a.lpX2 += a2 * (x - a.lpX2)

	absDelta := math32.Abs(a.lpX1 - a.lpX2)
	tau := lpTauFast + (lpTauSlow-lpTauFast)*math32.Exp(lpAlpha*absDelta)
	a3 := a.dt / (a.dt + tau)
	a.lpOut += a3 * (x - a.lpOut)
	return a.lpOut
}

// updateBaseline advances the mean/variance estimate of the raw signal.
// Learning is fast right after the blackout and slows to the steady
// time constants; updates are gated while the index indicates an event
// so the baseline does not chase VOC excursions.
func (a *Algorithm) updateBaseline(s, idx float32) {
	elapsed := a.uptime - initialBlackout

	tm := ramp(tauMeanInitial, tauMean, elapsed, initDurationMean)
	tv := ramp(tauVarianceInit, tauVariance, elapsed, initDurationVar)
	threshold := ramp(gatingThresholdIn, gatingThreshold, elapsed, initDurationMean)

	ratio := float32(1.0)
	if idx > threshold {
		a.gatedFor += a.dt
		if a.gatedFor < gatingMaxDuration {
			return
		}
		// Gated for too long: the environment has genuinely shifted,
		// let the baseline follow at a reduced rate.
		ratio = gatingMaxRatio
	} else if a.gatedFor > 0 {
		a.gatedFor -= a.dt
		if a.gatedFor < 0 {
			a.gatedFor = 0
		}
	}

	alphaM := a.dt / (a.dt + tm) * ratio
	a.mean += alphaM * (s - a.mean)

	dev := s - a.mean
	alphaV := a.dt / (a.dt + tv) * ratio
	a.variance += alphaV * (dev*dev - a.variance)
}

// ramp interpolates a parameter from its init value to its steady
// value over the given duration after the blackout.
func ramp(from, to, elapsed, duration float32) float32 {
	if elapsed >= duration {
		return to
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return from + (to-from)*elapsed/duration
}
