// pkg/scoring/scoring.go
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/data-quality/pkg/history"
	"github.com/David-Botos/data-quality/pkg/model"
)

// RunIDLayout formats the timestamp part of run ids
const RunIDLayout = "20060102T150405Z"

// fingerprintNamespace scopes outcome fingerprints to this tool
var fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("github.com/David-Botos/data-quality/outcomes"))

// Score aggregates outcomes into a run summary and applies the SLA.
//
// Pass rates count passes over executed checks, where configuration errors
// count as executed and not applicable outcomes are left out. A pass rate
// equal to the minimum passes. Critical failures are FAIL outcomes at
// critical severity.
func Score(outcomes []model.CheckOutcome, sla model.SLA, rowCounts map[string]int, now time.Time) model.RunSummary {
	now = now.UTC()
	summary := model.RunSummary{
		RunID:       NewRunID(now),
		GeneratedAt: now,
		Fingerprint: Fingerprint(outcomes),
		TotalChecks: len(outcomes),
		RowCounts:   copyCounts(rowCounts),
	}

	byDataset := make(map[string]*model.DatasetScore)
	for _, o := range outcomes {
		ds, ok := byDataset[o.Dataset]
		if !ok {
			ds = &model.DatasetScore{Dataset: o.Dataset, SeverityCounts: emptySeverityCounts()}
			byDataset[o.Dataset] = ds
		}

		switch o.Status {
		case model.StatusPass:
			summary.PassedChecks++
			ds.Passed++
		case model.StatusFail:
			summary.FailedChecks++
			ds.Failed++
			ds.SeverityCounts[o.Severity]++
			if o.Severity == model.SeverityCritical {
				summary.CriticalFailures++
			}
		case model.StatusConfigError:
			summary.ConfigErrors++
			ds.ConfigErrors++
		case model.StatusNotApplicable:
			summary.NotApplicable++
			ds.NotApplicable++
		}
	}

	names := make([]string, 0, len(byDataset))
	for name := range byDataset {
		names = append(names, name)
	}
	sort.Strings(names)
	summary.Datasets = make([]model.DatasetScore, 0, len(names))
	for _, name := range names {
		ds := byDataset[name]
		ds.Executed = ds.Passed + ds.Failed + ds.ConfigErrors
		ds.PassRate = passRate(ds.Passed, ds.Executed)
		summary.Datasets = append(summary.Datasets, *ds)
	}

	executed := summary.PassedChecks + summary.FailedChecks + summary.ConfigErrors
	summary.PassRate = passRate(summary.PassedChecks, executed)
	summary.SLA = Verdict(summary.PassRate, summary.CriticalFailures, sla)
	return summary
}

// Verdict applies the SLA thresholds. The run fails when the pass rate is
// below the minimum or the critical failures exceed the maximum.
func Verdict(passRate float64, criticalFailures int, sla model.SLA) model.SLAResult {
	result := model.SLAResult{
		MinPassRate:         sla.MinPassRate,
		MaxCriticalFailures: sla.MaxCriticalFailures,
		Verdict:             model.VerdictPass,
	}
	if passRate < sla.MinPassRate {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("pass rate %.4f below minimum %.4f", passRate, sla.MinPassRate))
	}
	if criticalFailures > sla.MaxCriticalFailures {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("%d critical failures exceed maximum %d", criticalFailures, sla.MaxCriticalFailures))
	}
	if len(result.Reasons) > 0 {
		result.Verdict = model.VerdictFail
	}
	return result
}

// NewRunID returns a time-ordered run id with a random suffix so that runs
// started within the same second stay distinct
func NewRunID(at time.Time) string {
	return at.UTC().Format(RunIDLayout) + "-" + uuid.NewString()[:8]
}

// Fingerprint identifies an outcome sequence. Identical sequences share
// the same fingerprint.
func Fingerprint(outcomes []model.CheckOutcome) string {
	data, err := json.Marshal(outcomes)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", outcomes))
	}
	return uuid.NewSHA1(fingerprintNamespace, data).String()
}

func passRate(passed, executed int) float64 {
	if executed <= 0 {
		return 0
	}
	rate := float64(passed) / float64(executed)
	switch {
	case rate < 0:
		return 0
	case rate > 1:
		return 1
	}
	return rate
}

func emptySeverityCounts() map[model.Severity]int {
	counts := make(map[model.Severity]int, len(model.Severities))
	for _, sev := range model.Severities {
		counts[sev] = 0
	}
	return counts
}

func copyCounts(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}

// Scorer produces exactly one summary per run and appends it to the run
// history
type Scorer struct {
	policy model.SeverityPolicy
	logger *zap.Logger
	now    func() time.Time
}

// NewScorer creates a scorer for the given policy
func NewScorer(policy model.SeverityPolicy, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		policy: policy,
		logger: logger.Named("scoring"),
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Finalize scores the outcomes and appends the summary to log. A nil log
// skips persistence. The summary is returned even when the append fails.
func (s *Scorer) Finalize(
	ctx context.Context,
	outcomes []model.CheckOutcome,
	rowCounts map[string]int,
	log history.Log,
) (model.RunSummary, error) {
	summary := Score(outcomes, s.policy.SLA, rowCounts, s.now())

	fields := []zap.Field{
		zap.String("runID", summary.RunID),
		zap.String("verdict", string(summary.SLA.Verdict)),
		zap.Float64("passRate", summary.PassRate),
		zap.Int("criticalFailures", summary.CriticalFailures),
		zap.Int("configErrors", summary.ConfigErrors),
		zap.Strings("reasons", summary.SLA.Reasons),
	}
	if summary.Passed() {
		s.logger.Info("Run met SLA", fields...)
	} else {
		s.logger.Warn("Run failed SLA", fields...)
	}

	if log == nil {
		return summary, nil
	}
	if err := log.Append(ctx, summary); err != nil {
		return summary, fmt.Errorf("failed to append run summary: %w", err)
	}
	return summary, nil
}
