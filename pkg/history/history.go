// pkg/history/history.go
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/David-Botos/data-quality/pkg/model"
)

// ErrClosed is returned by operations on a closed log
var ErrClosed = errors.New("run history is closed")

// Log is an append-only sequence of run summaries. Entries are never
// rewritten or removed.
type Log interface {
	// Append adds one summary after all existing entries
	Append(ctx context.Context, summary model.RunSummary) error
	// Entries returns every summary in append order
	Entries(ctx context.Context) ([]model.RunSummary, error)
	// Close flushes pending writes and releases the underlying resource
	Close() error
}

// Opener acquires a log
type Opener func(ctx context.Context) (Log, error)

// With opens a log, passes it to fn and always closes it afterwards, also
// when fn fails or panics. Close errors are joined to fn's error.
func With(ctx context.Context, open Opener, fn func(Log) error) (err error) {
	log, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer func() {
		if cerr := log.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close run history: %w", cerr))
		}
	}()
	return fn(log)
}

// Last returns at most n of the most recent entries, oldest first
func Last(ctx context.Context, log Log, n int) ([]model.RunSummary, error) {
	entries, err := log.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return tail(entries, n), nil
}

// tail keeps the last n entries, all of them when n is not positive
func tail(entries []model.RunSummary, n int) []model.RunSummary {
	if n > 0 && len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}
