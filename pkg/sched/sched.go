// Package sched runs the device's sampling and aggregation loop: read
// every sensor on a short fixed cadence, fold the results into running
// accumulators, and on a longer cadence publish the window's means and
// start fresh. The loop is a single thread of control polling two
// elapsed-time timers; no sensor read or publish overlaps another tick.
package sched

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/denlab/airnode/pkg/pms"
	"github.com/denlab/airnode/pkg/sgp40"
	"github.com/denlab/airnode/pkg/sht3x"
	"github.com/denlab/airnode/pkg/telemetry"
)

const (
	// DefaultSampleInterval is the short tick period.
	DefaultSampleInterval = 5 * time.Second
	// DefaultPublishInterval is the long tick period.
	DefaultPublishInterval = 60 * time.Second

	// pollInterval paces the Run loop between timer checks.
	pollInterval = 100 * time.Millisecond
)

// EnvReader reads one temperature/humidity sample.
type EnvReader interface {
	Read() (sht3x.Reading, error)
}

// GasReader performs one compensated gas measurement using the
// just-obtained environment reading.
type GasReader interface {
	Read(env sht3x.Reading) (sgp40.Measurement, error)
}

// ParticulateReader polls for one decoded particulate frame, returning
// pms.ErrNoFrame when the sensor has not emitted one yet.
type ParticulateReader interface {
	Poll() (pms.Reading, error)
}

// Publisher hands one aggregate off for transmission. Implementations
// must not block the sampling loop; failures are theirs to log, and
// they never see the scheduler's accumulators.
type Publisher interface {
	Publish(telemetry.Aggregate)
}

// Clock abstracts time so tests can drive the loop without waiting.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Hooks receive successful readings and failures as they happen. Nil
// funcs are skipped. Callbacks run on the scheduler thread and should
// return quickly.
type Hooks struct {
	OnEnv         func(sht3x.Reading)
	OnGas         func(sgp40.Measurement)
	OnParticulate func(pms.Reading)
	OnReadError   func(sensor string)
	OnAggregate   func(telemetry.Aggregate)
}

// Options configures a Scheduler. Env, Gas, Particulate and Publisher
// are required; zero intervals select the defaults.
type Options struct {
	SampleInterval  time.Duration
	PublishInterval time.Duration

	Env         EnvReader
	Gas         GasReader
	Particulate ParticulateReader
	Publisher   Publisher

	Hooks Hooks
	Clock Clock
}

// Scheduler owns the accumulators and the two timers. Not safe for
// concurrent use; Run and Tick must be called from one goroutine.
type Scheduler struct {
	sampleEvery  time.Duration
	publishEvery time.Duration

	env   EnvReader
	gas   GasReader
	part  ParticulateReader
	pub   Publisher
	hooks Hooks
	clock Clock

	acc         accumulator
	started     bool
	lastSample  time.Time
	lastPublish time.Time
}

// New creates a Scheduler from opts.
func New(opts Options) *Scheduler {
	if opts.SampleInterval == 0 {
		opts.SampleInterval = DefaultSampleInterval
	}
	if opts.PublishInterval == 0 {
		opts.PublishInterval = DefaultPublishInterval
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}

	return &Scheduler{
		sampleEvery:  opts.SampleInterval,
		publishEvery: opts.PublishInterval,
		env:          opts.Env,
		gas:          opts.Gas,
		part:         opts.Particulate,
		pub:          opts.Publisher,
		hooks:        opts.Hooks,
		clock:        opts.Clock,
	}
}

// Run polls the timers until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"sample_interval":  s.sampleEvery,
		"publish_interval": s.publishEvery,
	}).Info("scheduler running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.Tick(s.clock.Now())
		s.clock.Sleep(pollInterval)
	}
}

// Tick checks both timers against now and fires whichever elapsed. The
// two timers run on independent phases; the first call arms them both
// without firing.
func (s *Scheduler) Tick(now time.Time) {
	if !s.started {
		s.started = true
		s.lastSample = now
		s.lastPublish = now
		return
	}

	if now.Sub(s.lastSample) >= s.sampleEvery {
		s.lastSample = now
		s.sample()
	}

	if now.Sub(s.lastPublish) >= s.publishEvery {
		s.lastPublish = now
		s.publish()
	}
}

// sample attempts all three reads. Each failure skips only its own
// sensor family for this tick; nothing here is fatal.
func (s *Scheduler) sample() {
	env, err := s.env.Read()
	if err != nil {
		log.WithError(err).Warn("temperature/humidity read failed")
		s.readError("sht3x")
	} else {
		s.acc.addEnv(env)
		if s.hooks.OnEnv != nil {
			s.hooks.OnEnv(env)
		}

		// The gas measurement is compensated with this tick's reading,
		// never a stale one, so it is skipped when the reading failed.
		gas, err := s.gas.Read(env)
		if err != nil {
			log.WithError(err).Warn("gas read failed")
			s.readError("sgp40")
		} else {
			s.acc.addGas(gas)
			if s.hooks.OnGas != nil {
				s.hooks.OnGas(gas)
			}
		}
	}

	part, err := s.part.Poll()
	switch {
	case errors.Is(err, pms.ErrNoFrame):
		// The particulate sensor frames on its own cadence; a tick
		// without a frame is expected, not a failure.
	case err != nil:
		log.WithError(err).Warn("particulate read failed")
		s.readError("pms")
	default:
		s.acc.addParticulate(part)
		if s.hooks.OnParticulate != nil {
			s.hooks.OnParticulate(part)
		}
	}
}

// publish snapshots the window's means, resets the accumulators, and
// hands the aggregate off. The reset happens here, on the scheduler
// thread, regardless of how transmission goes: a failed send costs that
// window's data and nothing else.
func (s *Scheduler) publish() {
	if s.acc.total() == 0 {
		log.Debug("publish window elapsed with no samples")
		return
	}

	agg := s.acc.aggregate()
	s.acc.reset()

	log.WithFields(log.Fields{
		"samples":    agg.SampleCount,
		"pm_samples": agg.PMSampleCount,
	}).Info("publishing aggregate")

	s.pub.Publish(agg)
	if s.hooks.OnAggregate != nil {
		s.hooks.OnAggregate(agg)
	}
}

func (s *Scheduler) readError(sensor string) {
	if s.hooks.OnReadError != nil {
		s.hooks.OnReadError(sensor)
	}
}
