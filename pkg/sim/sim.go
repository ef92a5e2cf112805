// Package sim provides simulated sensors for running the pipeline
// without hardware. Readings drift sinusoidally around the configured
// baselines with a little deterministic noise on top; the gas path
// feeds the simulated raw signal through the real gas index algorithm.
package sim

import (
	"math"
	"time"

	"github.com/denlab/airnode/pkg/config"
	"github.com/denlab/airnode/pkg/pms"
	"github.com/denlab/airnode/pkg/sgp40"
	"github.com/denlab/airnode/pkg/sht3x"
	"github.com/denlab/airnode/pkg/voc"
)

// drift periods, chosen long enough that a publish window sees a
// slowly moving mean rather than a flat line
const (
	tempPeriod = 20 * time.Minute
	humPeriod  = 45 * time.Minute
	vocPeriod  = 90 * time.Minute
	pmPeriod   = 30 * time.Minute
)

// Sim generates correlated readings for all three sensor families.
type Sim struct {
	cfg config.MockConfig
	voc *voc.Algorithm

	start time.Time
	now   func() time.Time
}

// New creates a simulator from cfg. samplingInterval must match the
// scheduler's short tick so the gas index algorithm sees the cadence it
// was configured for.
func New(cfg config.MockConfig, samplingInterval time.Duration) *Sim {
	return &Sim{
		cfg:   cfg,
		voc:   voc.New(samplingInterval),
		start: time.Now(),
		now:   time.Now,
	}
}

// Env returns the simulated temperature/humidity sensor.
func (s *Sim) Env() *Env { return &Env{s} }

// Gas returns the simulated gas sensor.
func (s *Sim) Gas() *Gas { return &Gas{s} }

// Particulate returns the simulated particulate sensor.
func (s *Sim) Particulate() *Particulate { return &Particulate{s} }

// Env simulates the temperature/humidity sensor.
type Env struct {
	s *Sim
}

func (e *Env) Read() (sht3x.Reading, error) {
	t := e.s.elapsed()

	temp := e.s.cfg.Temperature +
		2.0*drift(t, tempPeriod) +
		e.s.noise(t)*e.s.cfg.Temperature
	hum := e.s.cfg.Humidity +
		5.0*drift(t, humPeriod) +
		e.s.noise(t)*e.s.cfg.Humidity

	return sht3x.Reading{
		TemperatureF: temp,
		Humidity:     clamp(hum, 0, 100),
	}, nil
}

// Gas simulates the gas sensor. The raw signal is generated; the index
// comes from the same algorithm the hardware path uses, so mock runs
// exercise its blackout and baseline behavior for real.
type Gas struct {
	s *Sim
}

func (g *Gas) Read(env sht3x.Reading) (sgp40.Measurement, error) {
	t := g.s.elapsed()

	raw := g.s.cfg.RawVOC +
		500.0*drift(t, vocPeriod) +
		g.s.noise(t)*g.s.cfg.RawVOC
	ticks := uint16(clamp(raw, 0, 65535))

	return sgp40.Measurement{
		Index: g.s.voc.Update(ticks),
		Raw:   ticks,
	}, nil
}

// Particulate simulates the particulate sensor. Every poll yields a
// frame; the real sensor frames faster than the scheduler polls.
type Particulate struct {
	s *Sim
}

func (p *Particulate) Poll() (pms.Reading, error) {
	t := p.s.elapsed()

	pm25 := p.s.cfg.PM25 +
		3.0*drift(t, pmPeriod) +
		p.s.noise(t)*p.s.cfg.PM25
	pm25 = clamp(pm25, 0, 1000)

	// Typical ambient size distribution: most mass sits in the fine
	// fraction, coarse adds a modest tail.
	return pms.Reading{
		PM1:  uint16(math.Round(pm25 * 0.6)),
		PM25: uint16(math.Round(pm25)),
		PM10: uint16(math.Round(pm25 * 1.4)),
	}, nil
}

func (s *Sim) elapsed() time.Duration {
	return s.now().Sub(s.start)
}

// noise is a deterministic pseudo-noise term in the range
// [-NoiseLevel, NoiseLevel].
func (s *Sim) noise(t time.Duration) float64 {
	x := t.Seconds()
	return (math.Sin(x*7.31) + math.Cos(x*13.77)) * s.cfg.NoiseLevel * 0.5
}

func drift(t time.Duration, period time.Duration) float64 {
	return math.Sin(2 * math.Pi * t.Seconds() / period.Seconds())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
