// cmd/dqcheck/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/data-quality/pkg/config"
	"github.com/David-Botos/data-quality/pkg/logging"
)

// Exit codes
const (
	exitOK        = 0
	exitError     = 1
	exitSLAFailed = 2
)

var errSLAFailed = errors.New("run failed its SLA")

// app carries what every command needs once the root command has loaded it
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string) int {
	a := &app{}
	root := newRootCommand(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errSLAFailed):
		return exitSLAFailed
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitError
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dqcheck",
		Short:         "Validate e-commerce datasets against declarative quality rules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			a.cfg = cfg
			a.logger = logger
			return nil
		},
	}

	root.AddCommand(
		newRunCommand(a),
		newScheduleCommand(a),
		newHistoryCommand(a),
		newValidateConfigCommand(a),
	)
	return root
}
