package sched

import (
	"math"

	"github.com/denlab/airnode/pkg/pms"
	"github.com/denlab/airnode/pkg/sgp40"
	"github.com/denlab/airnode/pkg/sht3x"
	"github.com/denlab/airnode/pkg/telemetry"
)

// accumulator holds the running sums and counts for one publish window.
// It is owned exclusively by the Scheduler and mutated only from its
// single thread of control; a reset zeroes every sum and count together.
//
// Counts are tracked per sensor family: the particulate sensor frames
// on its own cadence and can miss ticks independently of the I2C
// sensors, and a gas read can fail on a tick where the environment read
// succeeded. Each mean is computed over exactly the additions its
// family saw.
type accumulator struct {
	tempF    float64
	humidity float64
	envCount int

	vocIndex float64
	rawVOC   float64
	gasCount int

	pm1     uint64
	pm25    uint64
	pm10    uint64
	pmCount int
}

func (a *accumulator) addEnv(r sht3x.Reading) {
	a.tempF += r.TemperatureF
	a.humidity += r.Humidity
	a.envCount++
}

func (a *accumulator) addGas(m sgp40.Measurement) {
	a.vocIndex += float64(m.Index)
	a.rawVOC += float64(m.Raw)
	a.gasCount++
}

func (a *accumulator) addParticulate(r pms.Reading) {
	a.pm1 += uint64(r.PM1)
	a.pm25 += uint64(r.PM25)
	a.pm10 += uint64(r.PM10)
	a.pmCount++
}

// total reports how many additions the window has seen across all
// families.
func (a *accumulator) total() int {
	return a.envCount + a.gasCount + a.pmCount
}

// aggregate computes the arithmetic means of every accumulated field.
// Families with no samples report zero values.
func (a *accumulator) aggregate() telemetry.Aggregate {
	agg := telemetry.Aggregate{
		SampleCount:   a.envCount,
		PMSampleCount: a.pmCount,
	}
	if a.envCount > 0 {
		n := float64(a.envCount)
		agg.Temperature = a.tempF / n
		agg.Humidity = a.humidity / n
	}
	if a.gasCount > 0 {
		n := float64(a.gasCount)
		agg.VOCIndex = int64(math.Round(a.vocIndex / n))
		agg.RawVOC = int64(math.Round(a.rawVOC / n))
	}
	if a.pmCount > 0 {
		n := float64(a.pmCount)
		agg.PM1 = float64(a.pm1) / n
		agg.PM25 = float64(a.pm25) / n
		agg.PM10 = float64(a.pm10) / n
	}
	return agg
}

// reset zeroes all sums and counts for the next window.
func (a *accumulator) reset() {
	*a = accumulator{}
}
