// Package metrics exposes the latest sensor readings and the loop's
// failure counters over a Prometheus /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/denlab/airnode/pkg/pms"
	"github.com/denlab/airnode/pkg/sched"
	"github.com/denlab/airnode/pkg/sgp40"
	"github.com/denlab/airnode/pkg/sht3x"
	"github.com/denlab/airnode/pkg/telemetry"
)

// gauges hold the most recent reading of each measurand
var (
	gaugeTemperature = newGauge("air_temperature", "Air temperature (units: degrees Fahrenheit)")
	gaugeHumidity    = newGauge("air_humidity", "Relative humidity (units: %)")
	gaugeVocIndex    = newGauge("air_voc_index", "VOC gas index (unitless, 0-500)")
	gaugeVocRaw      = newGauge("air_voc_raw", "Raw VOC sensor signal (units: ticks)")
	gaugePM1         = newGauge("air_pm1", "PM1.0 mass concentration, atmospheric (units: ug/m3)")
	gaugePM25        = newGauge("air_pm2_5", "PM2.5 mass concentration, atmospheric (units: ug/m3)")
	gaugePM10        = newGauge("air_pm10", "PM10 mass concentration, atmospheric (units: ug/m3)")
)

var (
	counterReadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "air_read_errors_total",
			Help: "Number of failed sensor reads, by sensor.",
		},
		[]string{"sensor"},
	)
	counterAggregates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "air_aggregates_total",
			Help: "Number of aggregates handed off for transmission.",
		},
	)
)

func newGauge(name string, help string) prometheus.Gauge {
	return prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
	)
}

func init() {
	prometheus.MustRegister(gaugeTemperature)
	prometheus.MustRegister(gaugeHumidity)
	prometheus.MustRegister(gaugeVocIndex)
	prometheus.MustRegister(gaugeVocRaw)
	prometheus.MustRegister(gaugePM1)
	prometheus.MustRegister(gaugePM25)
	prometheus.MustRegister(gaugePM10)
	prometheus.MustRegister(counterReadErrors)
	prometheus.MustRegister(counterAggregates)

	// Add Go module build info.
	prometheus.MustRegister(prometheus.NewBuildInfoCollector())
}

// Hooks returns scheduler hooks that mirror every reading and failure
// into the registered collectors.
func Hooks() sched.Hooks {
	return sched.Hooks{
		OnEnv: func(r sht3x.Reading) {
			gaugeTemperature.Set(float64(r.TemperatureF))
			gaugeHumidity.Set(float64(r.Humidity))
		},
		OnGas: func(m sgp40.Measurement) {
			gaugeVocIndex.Set(float64(m.Index))
			gaugeVocRaw.Set(float64(m.Raw))
		},
		OnParticulate: func(r pms.Reading) {
			gaugePM1.Set(float64(r.PM1))
			gaugePM25.Set(float64(r.PM25))
			gaugePM10.Set(float64(r.PM10))
		},
		OnReadError: func(sensor string) {
			counterReadErrors.WithLabelValues(sensor).Inc()
		},
		OnAggregate: func(telemetry.Aggregate) {
			counterAggregates.Inc()
		},
	}
}

// Serve exposes the registered metrics over HTTP until the process
// exits. Meant to run in its own goroutine.
func Serve(listenAddr string) {
	http.Handle("/metrics", promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
		},
	))
	log.WithField("listen", listenAddr).Info("metrics listener started")
	log.Panic(http.ListenAndServe(listenAddr, nil))
}
