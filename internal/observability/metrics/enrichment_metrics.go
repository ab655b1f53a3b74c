package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Config carries the constant labels stamped on every metric.
type Config struct {
	ServiceName string
	Environment string
}

const (
	RunOutcomeDispatched = "dispatched"
	RunOutcomeLocked     = "locked"
	RunOutcomeFresh      = "fresh"
	RunOutcomeNotFound   = "not_found"
	RunOutcomeError      = "error"
)

const (
	TaskOutcomeOK      = "ok"
	TaskOutcomeNoMatch = "no_match"
	TaskOutcomeFailed  = "failed"
	TaskOutcomeDropped = "dropped"
)

const (
	TaskErrorReasonDeadlineExceeded = "deadline_exceeded"
	TaskErrorReasonRateLimit        = "rate_limit"
	TaskErrorReasonDB               = "db"
	TaskErrorReasonUpstream         = "upstream"
)

// EnrichmentMetrics captures enrichment pipeline health signals.
type EnrichmentMetrics struct {
	runs           *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	taskOutcomes   *prometheus.CounterVec
	taskRetries    *prometheus.CounterVec
	regionFailures *prometheus.CounterVec
	cascades       *prometheus.CounterVec
	queueDepth     *prometheus.GaugeVec
	queueDrops     *prometheus.CounterVec
	pricesWritten  *prometheus.CounterVec
}

var (
	enrichmentMetricsOnce sync.Once
	enrichmentMetrics     *EnrichmentMetrics
)

// Enrichment returns the singleton enrichment metrics registry.
func Enrichment() *EnrichmentMetrics {
	return EnrichmentWithConfig(Config{})
}

// EnrichmentWithConfig returns the singleton enrichment metrics registry using config labels.
func EnrichmentWithConfig(cfg Config) *EnrichmentMetrics {
	enrichmentMetricsOnce.Do(func() {
		enrichmentMetrics = newEnrichmentMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return enrichmentMetrics
}

// ResetEnrichmentMetricsForTest resets the enrichment metrics singleton for tests.
func ResetEnrichmentMetricsForTest() {
	enrichmentMetricsOnce = sync.Once{}
	enrichmentMetrics = nil
}

func newEnrichmentMetrics(registerer prometheus.Registerer, cfg Config) *EnrichmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "pricedex"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricedex_enrichment_runs_total",
		Help:        "Enrichment orchestrations by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	taskDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "pricedex_enrichment_task_duration_seconds",
		Help:        "Fetch and search task latency per provider.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		ConstLabels: constLabels,
	}, []string{"provider", "task"})
	taskOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricedex_enrichment_task_outcomes_total",
		Help:        "Fetch and search task completions by provider and outcome.",
		ConstLabels: constLabels,
	}, []string{"provider", "task", "outcome"})
	taskRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricedex_enrichment_task_retries_total",
		Help:        "Task retry attempts per provider.",
		ConstLabels: constLabels,
	}, []string{"provider", "task"})
	regionFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricedex_enrichment_region_failures_total",
		Help:        "Per-region fetch failures that did not fail the whole task.",
		ConstLabels: constLabels,
	}, []string{"provider", "region"})
	cascades := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricedex_enrichment_cascade_mappings_total",
		Help:        "Provider mappings discovered from catalog store references.",
		ConstLabels: constLabels,
	}, []string{"provider"})
	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "pricedex_enrichment_queue_depth",
		Help:        "Pending tasks in each provider dispatch queue.",
		ConstLabels: constLabels,
	}, []string{"provider"})
	queueDrops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricedex_enrichment_queue_drops_total",
		Help:        "Tasks dropped because a provider dispatch queue was full.",
		ConstLabels: constLabels,
	}, []string{"provider"})
	pricesWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricedex_enrichment_prices_written_total",
		Help:        "Price observations committed per provider.",
		ConstLabels: constLabels,
	}, []string{"provider"})

	registerer.MustRegister(
		runs,
		taskDuration,
		taskOutcomes,
		taskRetries,
		regionFailures,
		cascades,
		queueDepth,
		queueDrops,
		pricesWritten,
	)

	return &EnrichmentMetrics{
		runs:           runs,
		taskDuration:   taskDuration,
		taskOutcomes:   taskOutcomes,
		taskRetries:    taskRetries,
		regionFailures: regionFailures,
		cascades:       cascades,
		queueDepth:     queueDepth,
		queueDrops:     queueDrops,
		pricesWritten:  pricesWritten,
	}
}

// IncRun increments the orchestration counter for an outcome.
func (m *EnrichmentMetrics) IncRun(outcome string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// ObserveTaskDuration records task latency in seconds.
func (m *EnrichmentMetrics) ObserveTaskDuration(provider, task string, duration time.Duration) {
	if m == nil || m.taskDuration == nil {
		return
	}
	m.taskDuration.WithLabelValues(provider, task).Observe(duration.Seconds())
}

// IncTaskOutcome increments the task completion counter.
func (m *EnrichmentMetrics) IncTaskOutcome(provider, task, outcome string) {
	if m == nil || m.taskOutcomes == nil {
		return
	}
	m.taskOutcomes.WithLabelValues(provider, task, outcome).Inc()
}

// IncTaskRetry increments the retry counter for a provider task.
func (m *EnrichmentMetrics) IncTaskRetry(provider, task string) {
	if m == nil || m.taskRetries == nil {
		return
	}
	m.taskRetries.WithLabelValues(provider, task).Inc()
}

// IncRegionFailure counts a region that failed inside an otherwise live fetch.
func (m *EnrichmentMetrics) IncRegionFailure(provider, region string) {
	if m == nil || m.regionFailures == nil {
		return
	}
	m.regionFailures.WithLabelValues(provider, region).Inc()
}

// IncCascade counts a mapping created from catalog store discovery.
func (m *EnrichmentMetrics) IncCascade(provider string) {
	if m == nil || m.cascades == nil {
		return
	}
	m.cascades.WithLabelValues(provider).Inc()
}

// SetQueueDepth records the pending task count for a provider queue.
func (m *EnrichmentMetrics) SetQueueDepth(provider string, depth int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.WithLabelValues(provider).Set(float64(depth))
}

// IncQueueDrop counts a task dropped on a full provider queue.
func (m *EnrichmentMetrics) IncQueueDrop(provider string) {
	if m == nil || m.queueDrops == nil {
		return
	}
	m.queueDrops.WithLabelValues(provider).Inc()
}

// AddPricesWritten adds committed price observations for a provider.
func (m *EnrichmentMetrics) AddPricesWritten(provider string, count int) {
	if m == nil || m.pricesWritten == nil || count <= 0 {
		return
	}
	m.pricesWritten.WithLabelValues(provider).Add(float64(count))
}

// ClassifyTaskError maps task errors to a low-cardinality reason for logging.
func ClassifyTaskError(err error) string {
	if err == nil {
		return TaskErrorReasonUpstream
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TaskErrorReasonDeadlineExceeded
	}
	if isDBError(err) {
		return TaskErrorReasonDB
	}
	return TaskErrorReasonUpstream
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
