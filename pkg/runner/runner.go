// pkg/runner/runner.go
package runner

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/David-Botos/data-quality/pkg/converter"
	"github.com/David-Botos/data-quality/pkg/model"
	"github.com/David-Botos/data-quality/pkg/validator"
)

// Input is everything one validation run reads
type Input struct {
	Datasets  validator.Datasets
	RuleSet   *model.RuleSet
	Contracts map[string]model.SchemaContract
	Policy    model.SeverityPolicy
}

// RowCounts returns the record count of every loaded dataset
func (in Input) RowCounts() map[string]int {
	counts := make(map[string]int, len(in.Datasets))
	for name, ds := range in.Datasets {
		if ds != nil {
			counts[name] = ds.Len()
		}
	}
	return counts
}

// check is one planned unit of work. Schema checks produce two outcomes,
// every other check produces one.
type check struct {
	id       string
	severity model.Severity // explicit per-rule severity, if any
	run      func() []model.CheckOutcome
}

// Runner executes all configured checks and assembles their outcomes in
// canonical order: rules, schema checks, anomaly checks, relationships
type Runner struct {
	logger  *zap.Logger
	errors  *ErrorHandler
	workers int
	opts    validator.Options
}

// NewRunner creates a runner that evaluates checks sequentially
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("runner")
	return &Runner{
		logger:  logger,
		errors:  NewErrorHandler(logger),
		workers: 1,
	}
}

// WithWorkers sets the number of checks evaluated concurrently
func (r *Runner) WithWorkers(count int) *Runner {
	if count > 0 {
		r.workers = count
	}
	return r
}

// WithSampleSize sets the diagnostic sample bound of rule outcomes
func (r *Runner) WithSampleSize(size int) *Runner {
	r.opts.SampleSize = size
	return r
}

// Errors returns the configuration errors of the latest run
func (r *Runner) Errors() *ErrorHandler {
	return r.errors
}

// Run evaluates every check and returns the outcomes in canonical order.
// A check that cannot run yields a configuration-error outcome and never
// stops the run. The only error returned is context cancellation.
func (r *Runner) Run(ctx context.Context, in Input) ([]model.CheckOutcome, error) {
	if in.RuleSet == nil {
		in.RuleSet = &model.RuleSet{}
	}
	if in.Policy.Kinds == nil {
		in.Policy = model.DefaultPolicy()
	}

	start := time.Now()
	r.errors = NewErrorHandler(r.logger)
	checks := r.plan(in)
	r.logger.Info("Starting validation run",
		zap.Int("datasets", len(in.Datasets)),
		zap.Int("checks", len(checks)),
		zap.Int("workers", r.workers))

	// Each check writes only its own slot so order never depends on
	// completion order
	slots := make([][]model.CheckOutcome, len(checks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range checks {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = r.finalize(checks[i], in.Policy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.logger.Warn("Validation run cancelled", zap.Error(err))
		}
		return nil, err
	}

	outcomes := make([]model.CheckOutcome, 0, len(checks)+len(in.Contracts))
	for _, slot := range slots {
		outcomes = append(outcomes, slot...)
	}

	r.logger.Info("Validation run complete",
		zap.Int("outcomes", len(outcomes)),
		zap.Int("configErrors", r.errors.Total()),
		zap.Duration("duration", time.Since(start)))
	return outcomes, nil
}

// finalize runs one check and assigns severities to its outcomes
func (r *Runner) finalize(c check, policy model.SeverityPolicy) []model.CheckOutcome {
	outcomes := c.run()
	for i := range outcomes {
		o := &outcomes[i]
		if c.severity != "" && o.Kind != model.KindSchemaRequired {
			o.Severity = c.severity
		} else {
			o.Severity = policy.Resolve(o.Kind, o.CheckID)
		}
		if !r.errors.RecordOutcome(*o) {
			r.logger.Debug("Check evaluated",
				zap.String("check", o.CheckID),
				zap.String("status", string(o.Status)),
				zap.Int("failed", o.FailedCount),
				zap.Int("total", o.TotalCount))
		}
	}
	return outcomes
}

// plan builds the ordered list of checks for a run
func (r *Runner) plan(in Input) []check {
	checks := make([]check, 0)
	opts := r.opts

	for _, rule := range in.RuleSet.Rules {
		rule := rule
		checks = append(checks, check{
			id:       rule.CheckID(),
			severity: rule.Severity,
			run: func() []model.CheckOutcome {
				ds, _ := in.Datasets.Dataset(rule.Dataset)
				return []model.CheckOutcome{validator.Evaluate(ds, rule, in.Datasets, opts)}
			},
		})
	}

	for _, name := range sortedKeys(in.Contracts) {
		name := name
		contract := in.Contracts[name]
		contract.Dataset = name
		checks = append(checks, check{
			id: "schema:" + name,
			run: func() []model.CheckOutcome {
				ds, _ := in.Datasets.Dataset(name)
				return validator.ValidateSchema(ds, contract, opts)
			},
		})
	}

	spec := in.RuleSet.Anomaly
	for _, target := range anomalyTargets(in) {
		target := target
		checks = append(checks, check{
			id: target.dataset + "." + target.column,
			run: func() []model.CheckOutcome {
				ds, _ := in.Datasets.Dataset(target.dataset)
				return []model.CheckOutcome{validator.DetectAnomalies(ds, target.dataset, target.column, spec)}
			},
		})
	}

	for _, rel := range in.RuleSet.Relationships {
		rel := rel
		checks = append(checks, check{
			id: rel.CheckID(),
			run: func() []model.CheckOutcome {
				childName, _, _ := model.ParseColumnRef(rel.Child)
				parentName, _, _ := model.ParseColumnRef(rel.Parent)
				child, _ := in.Datasets.Dataset(childName)
				parent, _ := in.Datasets.Dataset(parentName)
				return []model.CheckOutcome{validator.CheckReferences(rel, child, parent, opts)}
			},
		})
	}

	return checks
}

type anomalyTarget struct {
	dataset string
	column  string
}

// anomalyTargets lists the columns to score, datasets in sorted order.
// Configured columns come first in configuration order. With auto_numeric,
// the numeric columns of each loaded dataset follow: the contract's numeric
// columns when a contract exists, otherwise columns holding only numbers.
// Contract key columns are never scored automatically.
func anomalyTargets(in Input) []anomalyTarget {
	spec := in.RuleSet.Anomaly
	names := make(map[string]bool)
	for name := range spec.Columns {
		names[name] = true
	}
	if spec.AutoNumeric {
		for name, ds := range in.Datasets {
			if ds != nil {
				names[name] = true
			}
		}
	}

	targets := make([]anomalyTarget, 0)
	for _, name := range sortedKeys(names) {
		seen := make(map[string]bool)
		add := func(col string) {
			if !seen[col] {
				seen[col] = true
				targets = append(targets, anomalyTarget{dataset: name, column: col})
			}
		}
		for _, col := range spec.Columns[name] {
			add(col)
		}
		if !spec.AutoNumeric {
			continue
		}
		ds, ok := in.Datasets.Dataset(name)
		if !ok {
			continue
		}
		contract, hasContract := in.Contracts[name]
		var auto []string
		if hasContract {
			auto = validator.ContractColumns(contract, model.ColumnType.IsNumeric)
		} else {
			auto = numericColumns(ds)
		}
		for _, col := range auto {
			if col == ds.KeyColumn || (hasContract && col == contract.Key) {
				continue
			}
			if ds.HasColumn(col) {
				add(col)
			}
		}
	}
	return targets
}

// numericColumns returns the columns whose non-null values are all numbers,
// in column order
func numericColumns(ds *model.Dataset) []string {
	cols := make([]string, 0)
	for _, col := range ds.Columns {
		numeric, seen := true, false
		for i := range ds.Records {
			v, ok := ds.Value(i, col)
			if !ok || converter.IsNull(v) {
				continue
			}
			seen = true
			if converter.Classify(v) != converter.ClassNumber {
				numeric = false
				break
			}
		}
		if numeric && seen {
			cols = append(cols, col)
		}
	}
	return cols
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
