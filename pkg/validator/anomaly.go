// pkg/validator/anomaly.go
package validator

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/David-Botos/data-quality/pkg/converter"
	"github.com/David-Botos/data-quality/pkg/model"
)

// Anomaly scoring methods
const (
	// MethodZScore scores values by (x - mean) / stddev using the sample
	// standard deviation
	MethodZScore = "zscore"
	// MethodRobustZScore scores values by 0.6745 * (x - median) / MAD
	MethodRobustZScore = "robust_zscore"
)

// DefaultThreshold is the absolute score above which a value is flagged
// when the spec leaves the threshold unset
const DefaultThreshold = 3.0

// madScale makes the median absolute deviation consistent with the standard
// deviation of normally distributed data
const madScale = 0.6745

// DetectAnomalies flags records of a numeric column whose score exceeds the
// threshold in absolute value. Columns with fewer numeric values than the
// minimum sample size, or with no spread, are reported as not applicable.
// Non-numeric values are ignored here; type conformance belongs to the
// schema validator.
func DetectAnomalies(ds *model.Dataset, name, column string, spec model.AnomalySpec) model.CheckOutcome {
	outcome := newOutcome(fmt.Sprintf("%s:%s.%s", model.KindAnomalyZScore, name, column), name, column, model.KindAnomalyZScore)
	if err := requireColumn(ds, name, column); err != nil {
		return configError(outcome, err)
	}
	threshold := spec.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 {
		return configError(outcome, fmt.Errorf("%w: anomaly threshold must be positive", ErrInvalidRule))
	}

	rows := make([]int, 0, ds.Len())
	values := make([]float64, 0, ds.Len())
	for i := range ds.Records {
		v, ok := ds.Value(i, column)
		if !ok || converter.IsNull(v) {
			continue
		}
		f, err := converter.ToFloat(v)
		if err != nil {
			continue
		}
		rows = append(rows, i)
		values = append(values, f)
	}

	minSamples := spec.MinSamples
	if minSamples < 2 {
		minSamples = 2
	}
	if len(values) < minSamples {
		return notApplicable(outcome, len(values), fmt.Sprintf("%d numeric values, need at least %d", len(values), minSamples))
	}

	// identical values can leave rounding residue in the computed spread
	if constant(values) {
		return notApplicable(outcome, len(values), "zero spread")
	}

	var scores []float64
	switch spec.Method {
	case "", MethodZScore:
		scores = zScores(values)
	case MethodRobustZScore:
		scores = robustZScores(values)
	default:
		return configError(outcome, fmt.Errorf("%w: unknown anomaly method %q", ErrInvalidRule, spec.Method))
	}
	if scores == nil {
		return notApplicable(outcome, len(values), "zero spread")
	}

	limit := spec.MaxSample
	if limit <= 0 {
		limit = 20
	}
	s := newSampler(limit)
	flagged := 0
	for j, z := range scores {
		if math.Abs(z) <= threshold {
			continue
		}
		flagged++
		score := z
		s.add(model.SampleEntry{
			RowID:  ds.RowID(rows[j]),
			Column: column,
			Value:  values[j],
			ZScore: &score,
		})
	}
	return finish(outcome, "outliers", flagged, len(values), s)
}

// zScores returns standard scores, or nil when the standard deviation is zero
func zScores(values []float64) []float64 {
	mean, sd := stat.MeanStdDev(values, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}
	scores := make([]float64, len(values))
	for i, v := range values {
		scores[i] = (v - mean) / sd
	}
	return scores
}

// robustZScores returns modified z-scores, or nil when the median absolute
// deviation is zero
func robustZScores(values []float64) []float64 {
	med := median(values)
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)
	if mad == 0 {
		return nil
	}
	scores := make([]float64, len(values))
	for i, v := range values {
		scores[i] = madScale * (v - med) / mad
	}
	return scores
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// median of an unsorted sample, averaging the middle pair for even sizes
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
