package metrics

import (
	"context"
	"time"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
)

type BatchMetrics struct {
	service string

	batchesTotal     *prometheus.CounterVec
	batchSize        *prometheus.HistogramVec
	batchDuration    *prometheus.HistogramVec
	filesTotal       *prometheus.CounterVec
	extractionsTotal *prometheus.CounterVec
	reportsTotal     *prometheus.CounterVec
	retriesTotal     *prometheus.CounterVec
}

func NewBatchMetrics(service string, registerer prometheus.Registerer) *BatchMetrics {
	batchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "total",
			Help:      "Total categorization batches by status.",
		},
		[]string{"service", "status"},
	)
	batchSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "files",
			Help:      "Distribution of files per categorized batch.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
		},
		[]string{"service"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch categorization duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service"},
	)
	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "files",
			Name:      "categorized_total",
			Help:      "Total categorized files by bucket.",
		},
		[]string{"service", "bucket"},
	)
	extractionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "total",
			Help:      "Text extraction outcomes by file kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	reportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "total",
			Help:      "Rendered analysis reports by status.",
		},
		[]string{"service", "status"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "retries_total",
			Help:      "Retried backend operations.",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(
		batchesTotal,
		batchSize,
		batchDuration,
		filesTotal,
		extractionsTotal,
		reportsTotal,
		retriesTotal,
	)

	return &BatchMetrics{
		service:          service,
		batchesTotal:     batchesTotal,
		batchSize:        batchSize,
		batchDuration:    batchDuration,
		filesTotal:       filesTotal,
		extractionsTotal: extractionsTotal,
		reportsTotal:     reportsTotal,
		retriesTotal:     retriesTotal,
	}
}

// ObserveBatch records one finished Categorize call.
func (m *BatchMetrics) ObserveBatch(batch *domain.Batch, duration time.Duration, err error) {
	if err != nil || batch == nil {
		m.batchesTotal.WithLabelValues(m.service, "error").Inc()
		return
	}
	m.batchesTotal.WithLabelValues(m.service, "success").Inc()
	m.batchSize.WithLabelValues(m.service).Observe(float64(len(batch.Results)))
	m.batchDuration.WithLabelValues(m.service).Observe(duration.Seconds())

	for _, r := range batch.Results {
		m.filesTotal.WithLabelValues(m.service, bucketLabel(r.Bucket)).Inc()
		if r.Extraction.Status != domain.ExtractionNotAttempted {
			kind := string(r.Extraction.Kind)
			if kind == "" {
				kind = "unknown"
			}
			m.extractionsTotal.WithLabelValues(m.service, kind, string(r.Extraction.Status)).Inc()
		}
		if r.Report != nil {
			status := "ok"
			if r.Report.Failed {
				status = "failed"
			}
			m.reportsTotal.WithLabelValues(m.service, status).Inc()
		}
	}
}

// ObserveRetry matches resilience.RetryObserver.
func (m *BatchMetrics) ObserveRetry(operation string, _ int, _ error) {
	if operation == "" {
		operation = "unknown"
	}
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

type instrumentedCategorizer struct {
	next    ports.Categorizer
	metrics *BatchMetrics
}

// InstrumentCategorizer wraps a Categorizer so every call is observed.
func InstrumentCategorizer(next ports.Categorizer, m *BatchMetrics) ports.Categorizer {
	if m == nil {
		return next
	}
	return &instrumentedCategorizer{next: next, metrics: m}
}

func (c *instrumentedCategorizer) Categorize(ctx context.Context, files []domain.UploadedFile) (*domain.Batch, error) {
	start := time.Now()
	batch, err := c.next.Categorize(ctx, files)
	c.metrics.ObserveBatch(batch, time.Since(start), err)
	return batch, err
}

// bucketLabel keeps the bucket label bounded: every raw extension bucket is
// reported as "extension".
func bucketLabel(b domain.Bucket) string {
	if b.IsExtension() {
		return "extension"
	}
	return string(b)
}
