// cmd/dqcheck/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/data-quality/pkg/history"
	"github.com/David-Botos/data-quality/pkg/model"
	"github.com/David-Botos/data-quality/pkg/pipeline"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		opts      pipeline.Options
		failOnSLA bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every configured check once",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := pipeline.NewPipeline(a.cfg, a.logger).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), result.Summary)
			if failOnSLA && !result.Summary.Passed() {
				return errSLAFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.SkipHistory, "skip-history", false, "do not append the summary to the run history")
	cmd.Flags().StringVar(&opts.ResultsPath, "results", "", "results file (defaults to DQ_RESULTS_PATH)")
	cmd.Flags().BoolVar(&failOnSLA, "fail-on-sla", false, "exit with status 2 when the run fails its SLA")
	return cmd
}

func newScheduleCommand(a *app) *cobra.Command {
	var (
		spec      string
		immediate bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the checks on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec == "" {
				spec = a.cfg.Schedule
			}
			return runSchedule(cmd.Context(), a, spec, immediate)
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "", "cron expression (defaults to DQ_SCHEDULE)")
	cmd.Flags().BoolVar(&immediate, "now", false, "also run once at startup")
	return cmd
}

func runSchedule(ctx context.Context, a *app, spec string, immediate bool) error {
	logger := a.logger.Named("scheduler")
	p := pipeline.NewPipeline(a.cfg, a.logger)

	job := func() {
		result, err := p.Run(ctx, pipeline.Options{})
		if err != nil {
			logger.Error("Scheduled run failed", zap.Error(err))
			return
		}
		logger.Info("Scheduled run finished",
			zap.String("runID", result.Summary.RunID),
			zap.String("verdict", string(result.Summary.SLA.Verdict)))
	}

	cronLog := cronLogger{logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(spec, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	if immediate {
		job()
	}
	logger.Info("Starting scheduler", zap.String("schedule", spec))
	c.Start()

	<-ctx.Done()
	logger.Info("Stopping scheduler, waiting for the running check to finish")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts zap to the cron logger interface
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

func newHistoryCommand(a *app) *cobra.Command {
	var (
		last   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent run summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := history.Recent(cmd.Context(), a.cfg, last)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, e := range entries {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
				return nil
			}
			return printHistory(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&last, "last", 10, "number of runs to show, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON summary per line")
	return cmd
}

func newValidateConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Check that the rule, schema and profile files load",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks, err := pipeline.LoadChecks(a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rules: %d, relationships: %d, schema contracts: %d, min pass rate: %.2f\n",
				len(checks.Rules.Rules),
				len(checks.Rules.Relationships),
				len(checks.Contracts),
				checks.Policy.SLA.MinPassRate)
			return nil
		},
	}
}

func printSummary(w io.Writer, s model.RunSummary) {
	fmt.Fprintf(w, "run %s: %s (pass rate %.4f, %d/%d passed, %d critical failures, %d config errors, %d not applicable)\n",
		s.RunID, s.SLA.Verdict, s.PassRate, s.PassedChecks, s.TotalChecks,
		s.CriticalFailures, s.ConfigErrors, s.NotApplicable)
	for _, reason := range s.SLA.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
}

func printHistory(w io.Writer, entries []model.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tGENERATED AT\tVERDICT\tPASS RATE\tCHECKS\tCRITICAL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%d\t%d\n",
			e.RunID,
			e.GeneratedAt.Format("2006-01-02 15:04:05Z07:00"),
			e.SLA.Verdict,
			e.PassRate,
			e.TotalChecks,
			e.CriticalFailures)
	}
	return tw.Flush()
}
