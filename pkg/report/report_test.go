package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-quality/pkg/model"
)

func TestWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed", "quality_results.json")
	outcomes := []model.CheckOutcome{{
		CheckID:     "not_null:customers.email",
		Dataset:     "customers",
		Column:      "email",
		Kind:        model.KindNotNull,
		Severity:    model.SeverityHigh,
		Status:      model.StatusFail,
		Metric:      "fail_count",
		FailedCount: 1,
		TotalCount:  2,
		FailRate:    0.5,
		Sample:      []model.SampleEntry{{RowID: "2", Column: "email"}},
	}}
	summary := model.RunSummary{
		RunID:       "r1",
		GeneratedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Datasets:    []model.DatasetScore{},
		RowCounts:   map[string]int{"customers": 2},
		SLA:         model.SLAResult{Verdict: model.VerdictFail},
	}

	require.NoError(t, WriteResults(path, outcomes, summary))
	// a second write replaces the first
	require.NoError(t, WriteResults(path, outcomes, summary))

	got, err := ReadResults(path)
	require.NoError(t, err)
	assert.Equal(t, outcomes, got.Results)
	assert.Equal(t, summary, got.Summary)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestWriteResultsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteResults(path, nil, model.RunSummary{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"results": []`)
}

func TestReadResultsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := ReadResults(path)
	assert.Error(t, err)
}

func TestWriteResultsNonFiniteSampleValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	outcomes := []model.CheckOutcome{{
		CheckID: "range:orders.discount_pct",
		Status:  model.StatusFail,
		Sample: []model.SampleEntry{
			{RowID: "row:1", Value: math.Inf(1)},
			{RowID: "row:2", Value: math.NaN()},
		},
	}}

	require.NoError(t, WriteResults(path, outcomes, model.RunSummary{}))

	got, err := ReadResults(path)
	require.NoError(t, err)
	require.Len(t, got.Results[0].Sample, 2)
	assert.Equal(t, "+Inf", got.Results[0].Sample[0].Value)
	assert.Equal(t, "NaN", got.Results[0].Sample[1].Value)
	// the caller's outcomes are left untouched
	assert.True(t, math.IsInf(outcomes[0].Sample[0].Value.(float64), 1))
}
