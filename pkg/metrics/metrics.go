// pkg/metrics/metrics.go
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/David-Botos/data-quality/pkg/model"
	"github.com/David-Botos/data-quality/pkg/runner"
)

// RunMetrics tracks metrics for validation runs. Gauges describe the most
// recent run.
type RunMetrics struct {
	mu        sync.Mutex
	logger    *zap.Logger
	registry  *prometheus.Registry
	StartTime time.Time
	EndTime   time.Time
	Runs      int

	checks           *prometheus.GaugeVec
	failedBySeverity *prometheus.GaugeVec
	configErrors     *prometheus.GaugeVec
	datasetPassRate  *prometheus.GaugeVec
	datasetRows      *prometheus.GaugeVec
	passRate         prometheus.Gauge
	criticalFailures prometheus.Gauge
	slaPass          prometheus.Gauge
	lastRun          prometheus.Gauge
	duration         prometheus.Gauge
	runsTotal        prometheus.Counter

	last model.RunSummary
}

// NewRunMetrics creates run metrics on a private registry
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &RunMetrics{
		logger:    logger.Named("metrics"),
		registry:  prometheus.NewRegistry(),
		StartTime: time.Now(),
		checks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dq_checks",
			Help: "Checks in the last run by status.",
		}, []string{"status"}),
		failedBySeverity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dq_failed_checks",
			Help: "Failed checks in the last run by severity.",
		}, []string{"severity"}),
		configErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dq_config_errors",
			Help: "Configuration errors in the last run by category.",
		}, []string{"category"}),
		datasetPassRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dq_dataset_pass_rate",
			Help: "Pass rate of each dataset in the last run.",
		}, []string{"dataset"}),
		datasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dq_dataset_rows",
			Help: "Rows loaded per dataset in the last run.",
		}, []string{"dataset"}),
		passRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dq_pass_rate",
			Help: "Overall pass rate of the last run.",
		}),
		criticalFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dq_critical_failures",
			Help: "Critical failures in the last run.",
		}),
		slaPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dq_sla_pass",
			Help: "1 when the last run met its SLA, 0 otherwise.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dq_last_run_timestamp_seconds",
			Help: "Generation time of the last run summary.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dq_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dq_runs_total",
			Help: "Runs recorded by this process.",
		}),
	}
	m.registry.MustRegister(
		m.checks,
		m.failedBySeverity,
		m.configErrors,
		m.datasetPassRate,
		m.datasetRows,
		m.passRate,
		m.criticalFailures,
		m.slaPass,
		m.lastRun,
		m.duration,
		m.runsTotal,
	)
	return m
}

// Registry returns the registry holding the run metrics
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Start marks the beginning of a run
func (m *RunMetrics) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartTime = time.Now()
	m.EndTime = time.Time{}
}

// RecordSummary replaces the gauges with the values of a run summary
func (m *RunMetrics) RecordSummary(summary model.RunSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checks.Reset()
	m.checks.WithLabelValues(string(model.StatusPass)).Set(float64(summary.PassedChecks))
	m.checks.WithLabelValues(string(model.StatusFail)).Set(float64(summary.FailedChecks))
	m.checks.WithLabelValues(string(model.StatusConfigError)).Set(float64(summary.ConfigErrors))
	m.checks.WithLabelValues(string(model.StatusNotApplicable)).Set(float64(summary.NotApplicable))

	failed := make(map[model.Severity]int, len(model.Severities))
	for _, sev := range model.Severities {
		failed[sev] = 0
	}
	m.datasetPassRate.Reset()
	for _, ds := range summary.Datasets {
		m.datasetPassRate.WithLabelValues(ds.Dataset).Set(ds.PassRate)
		for sev, n := range ds.SeverityCounts {
			failed[sev] += n
		}
	}
	m.failedBySeverity.Reset()
	for sev, n := range failed {
		m.failedBySeverity.WithLabelValues(string(sev)).Set(float64(n))
	}

	m.datasetRows.Reset()
	for name, rows := range summary.RowCounts {
		m.datasetRows.WithLabelValues(name).Set(float64(rows))
	}

	m.passRate.Set(summary.PassRate)
	m.criticalFailures.Set(float64(summary.CriticalFailures))
	if summary.Passed() {
		m.slaPass.Set(1)
	} else {
		m.slaPass.Set(0)
	}
	m.lastRun.Set(float64(summary.GeneratedAt.Unix()))
	m.runsTotal.Inc()
	m.Runs++
	m.last = summary
}

// RecordErrors replaces the configuration error gauges
func (m *RunMetrics) RecordErrors(counts map[runner.ErrorCategory]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configErrors.Reset()
	for category, n := range counts {
		m.configErrors.WithLabelValues(category.String()).Set(float64(n))
	}
}

// Complete marks the run as complete and logs its summary
func (m *RunMetrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()
	duration := m.EndTime.Sub(m.StartTime)
	m.duration.Set(duration.Seconds())

	m.logger.Info("Validation run completed",
		zap.String("runID", m.last.RunID),
		zap.Duration("totalDuration", duration),
		zap.Int("totalChecks", m.last.TotalChecks),
		zap.Int("passedChecks", m.last.PassedChecks),
		zap.Int("failedChecks", m.last.FailedChecks),
		zap.Int("configErrors", m.last.ConfigErrors),
		zap.Int("notApplicable", m.last.NotApplicable),
		zap.Float64("passRate", m.last.PassRate),
		zap.String("verdict", string(m.last.SLA.Verdict)))
}

// Duration returns the duration of the current or last run
func (m *RunMetrics) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// WriteTextfile writes the registry in the text exposition format, for
// collection by the node exporter textfile collector
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
