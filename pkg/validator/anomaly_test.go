package validator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-quality/pkg/model"
)

func anomalySpec(method string) model.AnomalySpec {
	return model.AnomalySpec{Method: method, Threshold: 3.0, MinSamples: 2, MaxSample: 20}
}

func floats(values ...float64) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func TestDetectAnomaliesOrderTotalScenario(t *testing.T) {
	ds := column("orders", "order_total", floats(10, 12, 11, 13, 9, 500)...)

	out := DetectAnomalies(ds, "orders", "order_total", anomalySpec(MethodRobustZScore))

	assert.Equal(t, model.StatusFail, out.Status)
	assert.Equal(t, model.KindAnomalyZScore, out.Kind)
	assert.Equal(t, "anomaly_zscore:orders.order_total", out.CheckID)
	assert.Equal(t, 1, out.FailedCount)
	assert.Equal(t, 6, out.TotalCount)
	require.Len(t, out.Sample, 1)
	assert.Equal(t, 500.0, out.Sample[0].Value)
	assert.Equal(t, "row:5", out.Sample[0].RowID)
	require.NotNil(t, out.Sample[0].ZScore)
	assert.Greater(t, *out.Sample[0].ZScore, 3.0)
}

func TestDetectAnomaliesSampleZScoreIsBoundedBySampleSize(t *testing.T) {
	// with n values no sample z-score can exceed (n-1)/sqrt(n)
	ds := column("orders", "order_total", floats(10, 12, 11, 13, 9, 500)...)

	out := DetectAnomalies(ds, "orders", "order_total", anomalySpec(MethodZScore))

	assert.Equal(t, model.StatusPass, out.Status)
	assert.Zero(t, out.FailedCount)
	assert.Less(t, 5/math.Sqrt(6), 3.0)
}

func TestDetectAnomaliesZScore(t *testing.T) {
	values := make([]float64, 0, 51)
	for i := 0; i < 50; i++ {
		values = append(values, 10)
	}
	values = append(values, 1000)
	ds := column("orders", "order_total", floats(values...)...)

	out := DetectAnomalies(ds, "orders", "order_total", anomalySpec(MethodZScore))

	require.Equal(t, 1, out.FailedCount)
	assert.Equal(t, 1000.0, out.Sample[0].Value)
	assert.InDelta(t, 7.0, *out.Sample[0].ZScore, 0.05)
}

func TestDetectAnomaliesNotApplicable(t *testing.T) {
	tests := []struct {
		name   string
		values []interface{}
		method string
	}{
		{"zero variance", floats(5, 5, 5, 5), MethodZScore},
		{"zero variance fractional", floats(0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1), MethodZScore},
		{"zero MAD", floats(1, 1, 1, 1, 50), MethodRobustZScore},
		{"single value", floats(7), MethodZScore},
		{"no numeric values", []interface{}{"a", nil, "b"}, MethodZScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := column("orders", "order_total", tt.values...)
			out := DetectAnomalies(ds, "orders", "order_total", anomalySpec(tt.method))

			assert.Equal(t, model.StatusNotApplicable, out.Status)
			assert.False(t, out.Passed)
			assert.Zero(t, out.FailedCount)
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestDetectAnomaliesMinSamples(t *testing.T) {
	ds := column("orders", "order_total", floats(1, 2, 3)...)
	spec := anomalySpec(MethodZScore)
	spec.MinSamples = 4

	out := DetectAnomalies(ds, "orders", "order_total", spec)

	assert.Equal(t, model.StatusNotApplicable, out.Status)
	assert.Equal(t, 3, out.TotalCount)
}

func TestDetectAnomaliesBoundsSample(t *testing.T) {
	ds := column("orders", "order_total", floats(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 1000, 2000, 3000)...)
	spec := anomalySpec(MethodRobustZScore)
	spec.MaxSample = 2

	out := DetectAnomalies(ds, "orders", "order_total", spec)

	assert.Equal(t, 3, out.FailedCount)
	assert.Len(t, out.Sample, 2)
}

func TestDetectAnomaliesIgnoresNonNumeric(t *testing.T) {
	values := append(floats(10, 12, 11, 13, 9, 500), "n/a", nil, "11")
	ds := column("orders", "order_total", values...)

	out := DetectAnomalies(ds, "orders", "order_total", anomalySpec(MethodRobustZScore))

	assert.Equal(t, 7, out.TotalCount)
	assert.Equal(t, 1, out.FailedCount)
}

func TestDetectAnomaliesConfigErrors(t *testing.T) {
	ds := column("orders", "order_total", floats(1, 2)...)

	out := DetectAnomalies(ds, "orders", "missing", anomalySpec(MethodZScore))
	assert.Equal(t, model.StatusConfigError, out.Status)

	out = DetectAnomalies(nil, "orders", "order_total", anomalySpec(MethodZScore))
	assert.Contains(t, out.Error, ErrDatasetNotLoaded.Error())

	out = DetectAnomalies(ds, "orders", "order_total", anomalySpec("iqr"))
	assert.Equal(t, model.StatusConfigError, out.Status)
}

func TestDetectAnomaliesDefaultsThreshold(t *testing.T) {
	ds := column("orders", "order_total", floats(10, 12, 11, 13, 9, 500)...)
	spec := model.AnomalySpec{Method: MethodRobustZScore}

	out := DetectAnomalies(ds, "orders", "order_total", spec)
	assert.Equal(t, model.StatusFail, out.Status)
	assert.Equal(t, 1, out.FailedCount)

	spec.Threshold = -1
	out = DetectAnomalies(ds, "orders", "order_total", spec)
	assert.Equal(t, model.StatusConfigError, out.Status)
}
