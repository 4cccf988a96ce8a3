package scoring

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-quality/pkg/history"
	"github.com/David-Botos/data-quality/pkg/model"
)

func outcome(dataset string, status model.Status, sev model.Severity) model.CheckOutcome {
	return model.CheckOutcome{
		CheckID:  dataset + ":" + string(status) + ":" + string(sev),
		Dataset:  dataset,
		Kind:     model.KindNotNull,
		Severity: sev,
		Status:   status,
		Passed:   status == model.StatusPass,
		Sample:   []model.SampleEntry{},
	}
}

func repeat(o model.CheckOutcome, n int) []model.CheckOutcome {
	out := make([]model.CheckOutcome, n)
	for i := range out {
		out[i] = o
	}
	return out
}

var now = time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

func TestScoreThresholdIsInclusive(t *testing.T) {
	outcomes := append(
		repeat(outcome("orders", model.StatusPass, model.SeverityMedium), 19),
		outcome("orders", model.StatusFail, model.SeverityHigh),
	)

	s := Score(outcomes, model.SLA{MinPassRate: 0.95}, nil, now)

	assert.Equal(t, 0.95, s.PassRate)
	assert.Equal(t, model.VerdictPass, s.SLA.Verdict)
	assert.True(t, s.Passed())
	assert.Empty(t, s.SLA.Reasons)
}

func TestScoreBelowThresholdFails(t *testing.T) {
	outcomes := append(
		repeat(outcome("orders", model.StatusPass, model.SeverityMedium), 18),
		repeat(outcome("orders", model.StatusFail, model.SeverityLow), 2)...,
	)

	s := Score(outcomes, model.SLA{MinPassRate: 0.95}, nil, now)

	assert.Equal(t, model.VerdictFail, s.SLA.Verdict)
	require.Len(t, s.SLA.Reasons, 1)
	assert.Contains(t, s.SLA.Reasons[0], "below minimum")
}

func TestScoreCriticalFailuresOverridePassRate(t *testing.T) {
	outcomes := append(
		repeat(outcome("customers", model.StatusPass, model.SeverityLow), 100),
		outcome("customers", model.StatusFail, model.SeverityCritical),
	)

	s := Score(outcomes, model.DefaultSLA(), nil, now)

	assert.Greater(t, s.PassRate, 0.95)
	assert.Equal(t, 1, s.CriticalFailures)
	assert.Equal(t, model.VerdictFail, s.SLA.Verdict)

	s = Score(outcomes, model.SLA{MinPassRate: 0.95, MaxCriticalFailures: 1}, nil, now)
	assert.Equal(t, model.VerdictPass, s.SLA.Verdict)
}

func TestScoreCategories(t *testing.T) {
	outcomes := []model.CheckOutcome{
		outcome("customers", model.StatusPass, model.SeverityHigh),
		outcome("customers", model.StatusConfigError, model.SeverityCritical),
		outcome("orders", model.StatusNotApplicable, model.SeverityLow),
		outcome("orders", model.StatusNotApplicable, model.SeverityLow),
		outcome("orders", model.StatusPass, model.SeverityLow),
		outcome("orders", model.StatusFail, model.SeverityHigh),
	}

	s := Score(outcomes, model.SLA{MinPassRate: 0.5}, map[string]int{"orders": 4}, now)

	assert.Equal(t, 6, s.TotalChecks)
	assert.Equal(t, 2, s.PassedChecks)
	assert.Equal(t, 1, s.FailedChecks)
	assert.Equal(t, 1, s.ConfigErrors)
	assert.Equal(t, 2, s.NotApplicable)
	// config errors are not critical failures
	assert.Zero(t, s.CriticalFailures)
	assert.InDelta(t, 0.5, s.PassRate, 1e-12)
	assert.Equal(t, model.VerdictPass, s.SLA.Verdict)
	assert.Equal(t, map[string]int{"orders": 4}, s.RowCounts)

	require.Len(t, s.Datasets, 2)
	customers, orders := s.Datasets[0], s.Datasets[1]
	assert.Equal(t, "customers", customers.Dataset)
	assert.Equal(t, 2, customers.Executed)
	assert.Equal(t, 1, customers.ConfigErrors)
	assert.InDelta(t, 0.5, customers.PassRate, 1e-12)
	assert.Equal(t, "orders", orders.Dataset)
	assert.Equal(t, 2, orders.Executed)
	assert.Equal(t, 2, orders.NotApplicable)
	assert.InDelta(t, 0.5, orders.PassRate, 1e-12)
	assert.Equal(t, map[model.Severity]int{
		model.SeverityCritical: 0, model.SeverityHigh: 1, model.SeverityMedium: 0, model.SeverityLow: 0,
	}, orders.SeverityCounts)
}

func TestScoreNothingExecuted(t *testing.T) {
	onlySkipped := []model.CheckOutcome{outcome("orders", model.StatusNotApplicable, model.SeverityLow)}

	s := Score(onlySkipped, model.DefaultSLA(), nil, now)
	assert.Zero(t, s.PassRate)
	assert.Equal(t, model.VerdictFail, s.SLA.Verdict)

	s = Score(nil, model.SLA{MinPassRate: 0}, nil, now)
	assert.Equal(t, model.VerdictPass, s.SLA.Verdict)
	assert.Empty(t, s.Datasets)
}

func TestScoreIsDeterministic(t *testing.T) {
	outcomes := []model.CheckOutcome{
		outcome("customers", model.StatusPass, model.SeverityHigh),
		outcome("orders", model.StatusFail, model.SeverityCritical),
	}

	a := Score(outcomes, model.DefaultSLA(), map[string]int{"orders": 2}, now)
	b := Score(outcomes, model.DefaultSLA(), map[string]int{"orders": 2}, now.Add(time.Hour))

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	a.RunID, b.RunID = "", ""
	a.GeneratedAt, b.GeneratedAt = time.Time{}, time.Time{}
	assert.Equal(t, a, b)

	// run ids stay distinct even for identical runs at the same instant
	same := Score(outcomes, model.DefaultSLA(), map[string]int{"orders": 2}, now)
	assert.NotEqual(t, same.RunID, Score(outcomes, model.DefaultSLA(), map[string]int{"orders": 2}, now).RunID)
	assert.Equal(t, same.Fingerprint, a.Fingerprint)

	changed := Score(outcomes[:1], model.DefaultSLA(), nil, now)
	assert.NotEqual(t, a.Fingerprint, changed.Fingerprint)
}

func TestNewRunID(t *testing.T) {
	id := NewRunID(now)
	assert.True(t, strings.HasPrefix(id, "20240301T083000Z-"), id)
	assert.NotEqual(t, id, NewRunID(now))
}

func TestFinalizeAppendsOnce(t *testing.T) {
	ctx := context.Background()
	log, err := history.OpenFileLog(filepath.Join(t.TempDir(), "run_history.jsonl"))
	require.NoError(t, err)
	defer log.Close()

	scorer := NewScorer(model.DefaultPolicy(), zaptest.NewLogger(t)).WithClock(func() time.Time { return now })
	outcomes := []model.CheckOutcome{outcome("orders", model.StatusPass, model.SeverityHigh)}

	summary, err := scorer.Finalize(ctx, outcomes, map[string]int{"orders": 1}, log)
	require.NoError(t, err)
	assert.Equal(t, now, summary.GeneratedAt)

	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, summary, entries[0])
}

type failingLog struct{}

func (failingLog) Append(context.Context, model.RunSummary) error { return errors.New("disk full") }
func (failingLog) Entries(context.Context) ([]model.RunSummary, error) {
	return nil, nil
}
func (failingLog) Close() error { return nil }

func TestFinalizeReportsAppendFailure(t *testing.T) {
	scorer := NewScorer(model.DefaultPolicy(), nil)

	summary, err := scorer.Finalize(context.Background(), nil, nil, failingLog{})
	assert.Error(t, err)
	assert.Equal(t, model.VerdictFail, summary.SLA.Verdict)

	summary, err = scorer.Finalize(context.Background(), nil, nil, nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
}
