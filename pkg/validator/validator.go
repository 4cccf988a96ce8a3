// pkg/validator/validator.go
package validator

import (
	"errors"
	"fmt"

	"github.com/David-Botos/data-quality/pkg/converter"
	"github.com/David-Botos/data-quality/pkg/model"
)

var (
	// ErrDatasetNotLoaded is reported when a check targets a dataset that is
	// absent or nil
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
	// ErrColumnNotFound is reported when a check targets a column outside the
	// dataset's column set
	ErrColumnNotFound = errors.New("column not found")
	// ErrInvalidRule is reported for rule parameters that cannot be evaluated
	ErrInvalidRule = errors.New("invalid rule parameters")
	// ErrUnknownKind is reported for rule kinds without an evaluator
	ErrUnknownKind = errors.New("unknown rule kind")
)

// DefaultSampleSize bounds the diagnostic sample attached to rule outcomes
const DefaultSampleSize = 5

// Options tunes evaluation output
type Options struct {
	SampleSize int
}

func (o Options) sampleSize() int {
	if o.SampleSize <= 0 {
		return DefaultSampleSize
	}
	return o.SampleSize
}

// Resolver looks up other loaded datasets by name
type Resolver interface {
	Dataset(name string) (*model.Dataset, bool)
}

// Datasets is the set of datasets loaded for a run, keyed by name
type Datasets map[string]*model.Dataset

// Dataset returns the named dataset. Nil entries count as not loaded.
func (d Datasets) Dataset(name string) (*model.Dataset, bool) {
	ds, ok := d[name]
	if !ok || ds == nil {
		return nil, false
	}
	return ds, true
}

// sampler collects at most limit sample entries
type sampler struct {
	limit   int
	entries []model.SampleEntry
}

func newSampler(limit int) *sampler {
	return &sampler{limit: limit, entries: make([]model.SampleEntry, 0)}
}

func (s *sampler) add(entry model.SampleEntry) {
	if len(s.entries) < s.limit {
		entry.Value = converter.SampleValue(entry.Value)
		s.entries = append(s.entries, entry)
	}
}

func newOutcome(checkID, dataset, column string, kind model.Kind) model.CheckOutcome {
	return model.CheckOutcome{
		CheckID: checkID,
		Dataset: dataset,
		Column:  column,
		Kind:    kind,
		Sample:  []model.SampleEntry{},
	}
}

// configError marks an outcome as not executed because of its configuration
func configError(outcome model.CheckOutcome, err error) model.CheckOutcome {
	outcome.Status = model.StatusConfigError
	outcome.Passed = false
	outcome.Metric = "config_error"
	outcome.FailedCount = 0
	outcome.TotalCount = 0
	outcome.FailRate = 0
	outcome.Sample = []model.SampleEntry{}
	outcome.Error = err.Error()
	return outcome
}

// notApplicable marks a statistical outcome that could not run meaningfully
func notApplicable(outcome model.CheckOutcome, total int, reason string) model.CheckOutcome {
	outcome.Status = model.StatusNotApplicable
	outcome.Passed = false
	outcome.Metric = "not_applicable"
	outcome.TotalCount = total
	outcome.Error = reason
	return outcome
}

// finish records counts and derives status from the failure count
func finish(outcome model.CheckOutcome, metric string, failed, total int, s *sampler) model.CheckOutcome {
	outcome.Metric = metric
	outcome.FailedCount = failed
	outcome.TotalCount = total
	if total > 0 {
		outcome.FailRate = float64(failed) / float64(total)
	}
	if s != nil {
		outcome.Sample = s.entries
	}
	if failed == 0 {
		outcome.Status = model.StatusPass
		outcome.Passed = true
	} else {
		outcome.Status = model.StatusFail
		outcome.Passed = false
	}
	return outcome
}

// requireColumn returns an error unless the dataset is loaded and carries column
func requireColumn(ds *model.Dataset, name, column string) error {
	if ds == nil {
		return fmt.Errorf("%w: %s", ErrDatasetNotLoaded, name)
	}
	if !ds.HasColumn(column) {
		return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, name, column)
	}
	return nil
}
