// Package telemetry defines the wire model sent to the ingestion
// endpoint.
package telemetry

// Aggregate is one long-interval summary: means of every accumulated
// field plus the sample counts behind them. All fields are mandatory on
// the wire; the ingestion endpoint rejects payloads with missing keys.
type Aggregate struct {
	// Temperature is the mean temperature in Fahrenheit.
	Temperature float64 `json:"temperature"`
	// Humidity is the mean relative humidity in percent.
	Humidity float64 `json:"humidity"`
	// VOCIndex is the mean gas index, rounded to an integer.
	VOCIndex int64 `json:"voc_index"`
	// RawVOC is the mean raw gas ticks, rounded to an integer.
	RawVOC int64 `json:"raw_voc"`
	// PM1, PM25 and PM10 are mean mass concentrations in ug/m3,
	// atmospheric calibration.
	PM1  float64 `json:"pm1_0"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	// SampleCount is the number of successful temperature/humidity/gas
	// read cycles folded into the means above.
	SampleCount int `json:"sample_count"`
	// PMSampleCount counts the particulate frames folded in; the
	// particulate sensor frames on its own cadence, so this can differ
	// from SampleCount.
	PMSampleCount int `json:"pm_sample_count"`
}
