package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HarvestMetrics struct {
	registry *prometheus.Registry
	service  string

	runTotal      *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runInFlight   prometheus.Gauge
	documentTotal *prometheus.CounterVec
	caseTotal     *prometheus.CounterVec
}

func NewHarvestMetrics(service string) *HarvestMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dje",
			Subsystem: "harvest",
			Name:      "runs_total",
			Help:      "Total harvest runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dje",
			Subsystem: "harvest",
			Name:      "run_duration_seconds",
			Help:      "Harvest run duration in seconds by status.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
		[]string{"service", "status"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dje",
			Subsystem: "harvest",
			Name:      "runs_in_flight",
			Help:      "Number of harvest runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	documentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dje",
			Subsystem: "harvest",
			Name:      "documents_total",
			Help:      "Gazette documents processed by status.",
		},
		[]string{"service", "status"},
	)
	caseTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dje",
			Subsystem: "harvest",
			Name:      "cases_total",
			Help:      "Case records persisted by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(runTotal, runDuration, runInFlight, documentTotal, caseTotal)

	return &HarvestMetrics{
		registry:      registry,
		service:       service,
		runTotal:      runTotal,
		runDuration:   runDuration,
		runInFlight:   runInFlight,
		documentTotal: documentTotal,
		caseTotal:     caseTotal,
	}
}

func (m *HarvestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HarvestMetrics) StartRun() {
	m.runInFlight.Inc()
}

func (m *HarvestMetrics) ObserveRun(duration time.Duration, err error) {
	m.runInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.runTotal.WithLabelValues(m.service, status).Inc()
	m.runDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *HarvestMetrics) ObserveDocument(status string) {
	m.documentTotal.WithLabelValues(m.service, status).Inc()
}

func (m *HarvestMetrics) ObserveCase(status string) {
	m.caseTotal.WithLabelValues(m.service, status).Inc()
}
