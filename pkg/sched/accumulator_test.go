package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/denlab/airnode/pkg/pms"
	"github.com/denlab/airnode/pkg/sgp40"
	"github.com/denlab/airnode/pkg/sht3x"
)

func TestAccumulator_PerFamilyMeans(t *testing.T) {
	var a accumulator

	a.addEnv(sht3x.Reading{TemperatureF: 68.0, Humidity: 40.0})
	a.addEnv(sht3x.Reading{TemperatureF: 72.0, Humidity: 50.0})
	a.addGas(sgp40.Measurement{Index: 101, Raw: 30000})
	a.addGas(sgp40.Measurement{Index: 102, Raw: 30100})
	a.addGas(sgp40.Measurement{Index: 104, Raw: 30200})
	a.addParticulate(pms.Reading{PM1: 3, PM25: 9, PM10: 15})

	agg := a.aggregate()
	assert.Equal(t, 2, agg.SampleCount)
	assert.InDelta(t, 70.0, agg.Temperature, 1e-9)
	assert.InDelta(t, 45.0, agg.Humidity, 1e-9)

	// Gas mean is over the gas family's own three additions, rounded.
	assert.Equal(t, int64(102), agg.VOCIndex)
	assert.Equal(t, int64(30100), agg.RawVOC)

	assert.Equal(t, 1, agg.PMSampleCount)
	assert.InDelta(t, 9.0, agg.PM25, 1e-9)
}

func TestAccumulator_EmptyFamiliesReportZero(t *testing.T) {
	var a accumulator
	a.addEnv(sht3x.Reading{TemperatureF: 70.0, Humidity: 45.0})

	agg := a.aggregate()
	assert.Equal(t, 1, agg.SampleCount)
	assert.Equal(t, 0, agg.PMSampleCount)
	assert.Zero(t, agg.PM1)
	assert.Zero(t, agg.PM25)
	assert.Zero(t, agg.PM10)
	assert.Zero(t, agg.VOCIndex)
}

func TestAccumulator_Reset(t *testing.T) {
	var a accumulator
	a.addEnv(sht3x.Reading{TemperatureF: 70.0, Humidity: 45.0})
	a.addGas(sgp40.Measurement{Index: 100, Raw: 30000})
	a.addParticulate(pms.Reading{PM1: 1, PM25: 2, PM10: 3})
	assert.Equal(t, 3, a.total())

	a.reset()
	assert.Equal(t, accumulator{}, a)
	assert.Equal(t, 0, a.total())
}
