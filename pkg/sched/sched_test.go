package sched

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denlab/airnode/pkg/pms"
	"github.com/denlab/airnode/pkg/sgp40"
	"github.com/denlab/airnode/pkg/sht3x"
	"github.com/denlab/airnode/pkg/telemetry"
)

// Scripted fakes: each call pops the next result.

type fakeEnv struct {
	readings []sht3x.Reading
	errs     []error
	calls    int
}

func (f *fakeEnv) Read() (sht3x.Reading, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return sht3x.Reading{}, f.errs[i]
	}
	if len(f.readings) == 0 {
		return sht3x.Reading{TemperatureF: 70.0, Humidity: 45.0}, nil
	}
	return f.readings[i%len(f.readings)], nil
}

type fakeGas struct {
	m     sgp40.Measurement
	err   error
	seen  []sht3x.Reading
	calls int
}

func (f *fakeGas) Read(env sht3x.Reading) (sgp40.Measurement, error) {
	f.calls++
	f.seen = append(f.seen, env)
	if f.err != nil {
		return sgp40.Measurement{}, f.err
	}
	return f.m, nil
}

type fakePart struct {
	readings []pms.Reading
	err      error
	calls    int
}

func (f *fakePart) Poll() (pms.Reading, error) {
	i := f.calls
	f.calls++
	if f.err != nil {
		return pms.Reading{}, f.err
	}
	if i >= len(f.readings) {
		return pms.Reading{}, pms.ErrNoFrame
	}
	return f.readings[i], nil
}

type fakePub struct {
	published []telemetry.Aggregate
}

func (f *fakePub) Publish(a telemetry.Aggregate) {
	f.published = append(f.published, a)
}

func newTestScheduler(env EnvReader, gas GasReader, part ParticulateReader, pub Publisher) *Scheduler {
	return New(Options{
		SampleInterval:  5 * time.Second,
		PublishInterval: 60 * time.Second,
		Env:             env,
		Gas:             gas,
		Particulate:     part,
		Publisher:       pub,
	})
}

// drive advances the scheduler one tick per sample interval for n
// sample intervals past the arming tick.
func drive(s *Scheduler, start time.Time, n int) time.Time {
	s.Tick(start)
	now := start
	for i := 0; i < n; i++ {
		now = now.Add(5 * time.Second)
		s.Tick(now)
	}
	return now
}

func TestTick_AccumulatorRoundTrip(t *testing.T) {
	env := &fakeEnv{readings: []sht3x.Reading{
		{TemperatureF: 68.0, Humidity: 40.0},
		{TemperatureF: 70.0, Humidity: 45.0},
		{TemperatureF: 72.0, Humidity: 50.0},
	}}
	gas := &fakeGas{m: sgp40.Measurement{Index: 100, Raw: 30000}}
	part := &fakePart{readings: []pms.Reading{
		{PM1: 4, PM25: 10, PM10: 16},
		{PM1: 6, PM25: 12, PM10: 18},
	}}
	pub := &fakePub{}
	s := newTestScheduler(env, gas, part, pub)

	start := time.Unix(1700000000, 0)
	drive(s, start, 12) // one full publish window

	require.Len(t, pub.published, 1)
	agg := pub.published[0]

	assert.Equal(t, 12, agg.SampleCount)
	assert.InDelta(t, 70.0, agg.Temperature, 1e-9) // mean of the cycling readings
	assert.InDelta(t, 45.0, agg.Humidity, 1e-9)
	assert.Equal(t, int64(100), agg.VOCIndex)
	assert.Equal(t, int64(30000), agg.RawVOC)

	// Only two particulate frames arrived in the window.
	assert.Equal(t, 2, agg.PMSampleCount)
	assert.InDelta(t, 5.0, agg.PM1, 1e-9)
	assert.InDelta(t, 11.0, agg.PM25, 1e-9)
	assert.InDelta(t, 17.0, agg.PM10, 1e-9)

	// After the long tick every sum and count must be zero.
	assert.Equal(t, accumulator{}, s.acc)
}

func TestTick_PartialFailureTolerance(t *testing.T) {
	// 36 short ticks; the temperature read succeeds on 12 and fails on
	// 24, always reporting 70.0 when it succeeds.
	errs := make([]error, 36)
	for i := range errs {
		if i%3 != 0 {
			errs[i] = errors.New("bus stuck")
		}
	}
	env := &fakeEnv{
		readings: []sht3x.Reading{{TemperatureF: 70.0, Humidity: 45.0}},
		errs:     errs,
	}
	gas := &fakeGas{m: sgp40.Measurement{Index: 100, Raw: 30000}}
	part := &fakePart{}
	pub := &fakePub{}

	s := New(Options{
		SampleInterval:  5 * time.Second,
		PublishInterval: 180 * time.Second,
		Env:             env,
		Gas:             gas,
		Particulate:     part,
		Publisher:       pub,
	})

	drive(s, time.Unix(1700000000, 0), 36)

	require.Len(t, pub.published, 1)
	agg := pub.published[0]
	assert.Equal(t, 12, agg.SampleCount)
	assert.InDelta(t, 70.0, agg.Temperature, 1e-9)

	// The gas read is skipped on ticks where the env read failed.
	assert.Equal(t, 12, gas.calls)
}

func TestTick_GasGetsSameTickReading(t *testing.T) {
	env := &fakeEnv{readings: []sht3x.Reading{
		{TemperatureF: 60.0, Humidity: 30.0},
		{TemperatureF: 80.0, Humidity: 60.0},
	}}
	gas := &fakeGas{m: sgp40.Measurement{Index: 100, Raw: 30000}}
	s := newTestScheduler(env, gas, &fakePart{}, &fakePub{})

	drive(s, time.Unix(1700000000, 0), 4)

	require.Len(t, gas.seen, 4)
	for i, seen := range gas.seen {
		assert.Equal(t, env.readings[i%2], seen, "gas compensation input at tick %d is stale", i)
	}
}

func TestTick_NoFrameIsNotAFailure(t *testing.T) {
	var failures []string
	s := New(Options{
		Env:         &fakeEnv{},
		Gas:         &fakeGas{},
		Particulate: &fakePart{}, // always ErrNoFrame
		Publisher:   &fakePub{},
		Hooks: Hooks{
			OnReadError: func(sensor string) { failures = append(failures, sensor) },
		},
	})

	drive(s, time.Unix(1700000000, 0), 5)
	assert.Empty(t, failures)
}

func TestTick_EmptyWindowSkipsPublish(t *testing.T) {
	pub := &fakePub{}

	// Every read fails, so the window elapses with nothing in it.
	s := New(Options{
		SampleInterval:  5 * time.Second,
		PublishInterval: 10 * time.Second,
		Env:             &fakeEnv{errs: []error{errors.New("dead"), errors.New("dead"), errors.New("dead")}},
		Gas:             &fakeGas{},
		Particulate:     &fakePart{err: errors.New("dead")},
		Publisher:       pub,
	})
	drive(s, time.Unix(1700000000, 0), 3)

	assert.Empty(t, pub.published)
}

func TestTick_PublishResetsBetweenWindows(t *testing.T) {
	env := &fakeEnv{readings: []sht3x.Reading{{TemperatureF: 70.0, Humidity: 45.0}}}
	gas := &fakeGas{m: sgp40.Measurement{Index: 110, Raw: 29000}}
	pub := &fakePub{}
	s := newTestScheduler(env, gas, &fakePart{}, pub)

	now := drive(s, time.Unix(1700000000, 0), 12)
	drive(s, now, 12)

	require.Len(t, pub.published, 2)
	// Both windows must report only their own 12 samples.
	assert.Equal(t, 12, pub.published[0].SampleCount)
	assert.Equal(t, 12, pub.published[1].SampleCount)
}

// failingPub mimics a transmission failure: the publisher is handed a
// value copy, so however it fails it cannot touch the accumulators.
type failingPub struct {
	got []telemetry.Aggregate
}

func (f *failingPub) Publish(a telemetry.Aggregate) {
	a.Temperature = -999 // mutate the copy, deliberately
	f.got = append(f.got, a)
}

func TestTick_FailedPublishDoesNotCorruptNextWindow(t *testing.T) {
	env := &fakeEnv{readings: []sht3x.Reading{{TemperatureF: 70.0, Humidity: 45.0}}}
	pub := &failingPub{}
	s := newTestScheduler(env, &fakeGas{m: sgp40.Measurement{Index: 100, Raw: 30000}}, &fakePart{}, pub)

	now := drive(s, time.Unix(1700000000, 0), 12)

	// First window handed off; accumulators already reset.
	require.Len(t, pub.got, 1)
	assert.Equal(t, accumulator{}, s.acc)

	// The next window proceeds normally despite the failed send.
	drive(s, now, 12)
	require.Len(t, pub.got, 2)
	assert.Equal(t, 12, pub.got[1].SampleCount)
}

func TestTick_FirstTickArmsWithoutFiring(t *testing.T) {
	env := &fakeEnv{}
	s := newTestScheduler(env, &fakeGas{}, &fakePart{}, &fakePub{})

	s.Tick(time.Unix(1700000000, 0))
	assert.Equal(t, 0, env.calls)
}
