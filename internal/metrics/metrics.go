// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aqdash"

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	ReportBuilds   *prometheus.CounterVec
	ReportDuration prometheus.Histogram
	StoreLoads     *prometheus.CounterVec
	StoreRecords   prometheus.Gauge
	StoreLoadedAt  prometheus.Gauge
	MQTTMessages   *prometheus.CounterVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ReportBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_builds_total",
			Help:      "Reports built, by presenter format and outcome.",
		}, []string{"format", "outcome"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_build_duration_seconds",
			Help:      "Time spent filtering and aggregating a report.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		StoreLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_loads_total",
			Help:      "Store loads from the configured source, by outcome.",
		}, []string{"outcome"}),
		StoreRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_records",
			Help:      "Measurements in the current store snapshot.",
		}),
		StoreLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_loaded_timestamp_seconds",
			Help:      "Unix time of the last successful store load.",
		}),
		MQTTMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_messages_total",
			Help:      "MQTT measurement messages, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.ReportBuilds,
		m.ReportDuration,
		m.StoreLoads,
		m.StoreRecords,
		m.StoreLoadedAt,
		m.MQTTMessages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveReport(format, outcome string, took time.Duration) {
	m.ReportBuilds.WithLabelValues(format, outcome).Inc()
	if outcome == OutcomeOK {
		m.ReportDuration.Observe(took.Seconds())
	}
}

func (m *Metrics) ObserveLoad(records int, at time.Time, err error) {
	if err != nil {
		m.StoreLoads.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.StoreLoads.WithLabelValues(OutcomeOK).Inc()
	m.StoreRecords.Set(float64(records))
	m.StoreLoadedAt.Set(float64(at.Unix()))
}

func (m *Metrics) ObserveMessage(outcome string) {
	m.MQTTMessages.WithLabelValues(outcome).Inc()
}
