package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers the worker path: classification verdicts,
// extraction outcomes and field coverage.
type PipelineMetrics struct {
	registry *prometheus.Registry

	classifyTotal   *prometheus.CounterVec
	extractTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	coverageFilled  prometheus.Histogram
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	classifyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoiceflow",
			Subsystem: "worker",
			Name:      "classify_total",
			Help:      "Total classified attachments by verdict kind.",
		},
		[]string{"service", "kind"},
	)
	extractTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoiceflow",
			Subsystem: "worker",
			Name:      "extract_total",
			Help:      "Total extraction outcomes by source engine and status.",
		},
		[]string{"service", "source", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoiceflow",
			Subsystem: "worker",
			Name:      "attachment_process_duration_seconds",
			Help:      "Per-attachment classify plus extract duration by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "invoiceflow",
			Subsystem: "worker",
			Name:      "attachment_process_in_flight",
			Help:      "Number of attachments being processed right now.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	coverageFilled := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "invoiceflow",
			Subsystem: "worker",
			Name:      "extraction_fields_filled",
			Help:      "Distribution of filled scalar fields per extracted record.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(classifyTotal, extractTotal, processDuration, processInFlight, coverageFilled)

	return &PipelineMetrics{
		registry:        registry,
		classifyTotal:   classifyTotal,
		extractTotal:    extractTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		coverageFilled:  coverageFilled,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartAttachment() {
	m.processInFlight.Inc()
}

func (m *PipelineMetrics) FinishAttachment(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveVerdict(service, kind string) {
	m.classifyTotal.WithLabelValues(service, kind).Inc()
}

func (m *PipelineMetrics) ObserveExtraction(service, source string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.extractTotal.WithLabelValues(service, source, status).Inc()
}

func (m *PipelineMetrics) ObserveCoverage(filled int) {
	m.coverageFilled.Observe(float64(filled))
}
