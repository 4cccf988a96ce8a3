// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-quality/pkg/config"
	"github.com/David-Botos/data-quality/pkg/connector"
	"github.com/David-Botos/data-quality/pkg/history"
	"github.com/David-Botos/data-quality/pkg/metrics"
	"github.com/David-Botos/data-quality/pkg/model"
	"github.com/David-Botos/data-quality/pkg/report"
	"github.com/David-Botos/data-quality/pkg/runner"
	"github.com/David-Botos/data-quality/pkg/scoring"
)

// Options adjust a single run
type Options struct {
	SkipHistory bool   // score without appending to the run history
	ResultsPath string // overrides the configured results path
}

// Result is the output of one run
type Result struct {
	Outcomes []model.CheckOutcome
	Summary  model.RunSummary
	Errors   map[runner.ErrorCategory]int
}

// Checks is the declarative check configuration of a run
type Checks struct {
	Rules     *model.RuleSet
	Contracts map[string]model.SchemaContract
	Policy    model.SeverityPolicy
}

// Loader loads the datasets of a run
type Loader func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (map[string]*model.Dataset, error)

// Pipeline runs load, validate, score, report and history in order
type Pipeline struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.RunMetrics
	load    Loader
	now     func() time.Time
}

// NewPipeline creates a pipeline for the configuration
func NewPipeline(cfg *config.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRunMetrics(logger),
		load:    connector.LoadDatasets,
		now:     time.Now,
	}
}

// WithLoader replaces the dataset loader
func (p *Pipeline) WithLoader(load Loader) *Pipeline {
	p.load = load
	return p
}

// WithClock replaces the time source used for run summaries
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Metrics returns the metrics recorded across runs
func (p *Pipeline) Metrics() *metrics.RunMetrics {
	return p.metrics
}

// LoadChecks reads the rule, schema and profile files
func LoadChecks(cfg *config.Config) (*Checks, error) {
	rules, err := config.LoadRuleSet(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	contracts, err := config.LoadSchema(cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	policy, err := config.LoadPolicy(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}
	return &Checks{Rules: rules, Contracts: contracts, Policy: policy}, nil
}

// Run executes one validation run. Configuration and load failures abort
// the run before any check executes. The summary is appended to the run
// history exactly once unless history is skipped.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	p.metrics.Start()

	checks, err := LoadChecks(p.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load check configuration: %w", err)
	}

	datasets, err := p.load(ctx, p.cfg, p.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}
	for name, contract := range checks.Contracts {
		if ds, ok := datasets[name]; ok && ds != nil && contract.Key != "" && ds.KeyColumn == "" {
			ds.WithKey(contract.Key)
		}
	}

	in := runner.Input{
		Datasets:  datasets,
		RuleSet:   checks.Rules,
		Contracts: checks.Contracts,
		Policy:    checks.Policy,
	}
	r := runner.NewRunner(p.logger).
		WithWorkers(p.cfg.Workers).
		WithSampleSize(p.cfg.SampleSize)

	outcomes, err := r.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	scorer := scoring.NewScorer(checks.Policy, p.logger).WithClock(p.now)
	var summary model.RunSummary
	if opts.SkipHistory {
		summary, err = scorer.Finalize(ctx, outcomes, in.RowCounts(), nil)
	} else {
		err = history.With(ctx, history.OpenerFor(p.cfg), func(log history.Log) error {
			var ferr error
			summary, ferr = scorer.Finalize(ctx, outcomes, in.RowCounts(), log)
			return ferr
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record run history: %w", err)
	}

	resultsPath := p.cfg.ResultsPath
	if opts.ResultsPath != "" {
		resultsPath = opts.ResultsPath
	}
	if resultsPath != "" {
		if err := report.WriteResults(resultsPath, outcomes, summary); err != nil {
			return nil, err
		}
		p.logger.Info("Wrote results", zap.String("path", resultsPath))
	}

	errorSummary := r.Errors().GetErrorSummary()
	p.metrics.RecordSummary(summary)
	p.metrics.RecordErrors(errorSummary)
	p.metrics.Complete()
	if p.cfg.MetricsTextfile != "" {
		if err := p.metrics.WriteTextfile(p.cfg.MetricsTextfile); err != nil {
			// metrics are best effort, the run itself succeeded
			p.logger.Warn("Failed to write metrics", zap.Error(err))
		}
	}

	return &Result{
		Outcomes: outcomes,
		Summary:  summary,
		Errors:   errorSummary,
	}, nil
}
