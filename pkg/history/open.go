// pkg/history/open.go
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Register the pure-Go SQLite driver for the sql backend
	_ "modernc.org/sqlite"

	"github.com/David-Botos/data-quality/pkg/config"
	"github.com/David-Botos/data-quality/pkg/model"
)

// OpenerFor returns the opener of the configured history backend
func OpenerFor(cfg *config.Config) Opener {
	return func(ctx context.Context) (Log, error) {
		switch cfg.HistoryBackend {
		case config.HistoryFile:
			return OpenFileLog(cfg.HistoryPath)
		case config.HistorySQL:
			if cfg.HistoryDriver == config.DriverSQLite {
				if err := os.MkdirAll(filepath.Dir(cfg.HistoryPath), 0o755); err != nil {
					return nil, fmt.Errorf("failed to create history directory: %w", err)
				}
			}
			return OpenSQLLog(ctx, cfg.HistoryDriver, cfg.HistoryPath)
		default:
			return nil, fmt.Errorf("unsupported history backend %q", cfg.HistoryBackend)
		}
	}
}

// Recent returns at most n of the latest entries of the configured backend
// without creating it. A backend that does not exist yet has no entries.
func Recent(ctx context.Context, cfg *config.Config, n int) ([]model.RunSummary, error) {
	switch cfg.HistoryBackend {
	case config.HistoryFile:
		entries, err := ReadFile(ctx, cfg.HistoryPath)
		if err != nil {
			return nil, err
		}
		return tail(entries, n), nil
	case config.HistorySQL:
		if cfg.HistoryDriver == config.DriverSQLite {
			if _, err := os.Stat(cfg.HistoryPath); errors.Is(err, os.ErrNotExist) {
				return []model.RunSummary{}, nil
			}
		}
	}

	var entries []model.RunSummary
	err := With(ctx, OpenerFor(cfg), func(log Log) error {
		var lerr error
		entries, lerr = Last(ctx, log, n)
		return lerr
	})
	return entries, err
}
