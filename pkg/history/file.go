// pkg/history/file.go
package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/David-Botos/data-quality/pkg/model"
)

// maxLineSize bounds a single JSONL history entry
const maxLineSize = 16 * 1024 * 1024

// FileLog stores one JSON summary per line. The file is opened in append
// mode so earlier lines are never touched.
type FileLog struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
	closed bool
}

// OpenFileLog opens or creates the history file, creating parent directories
func OpenFileLog(path string) (*FileLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file %s: %w", path, err)
	}
	return &FileLog{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Path returns the history file location
func (l *FileLog) Path() string {
	return l.path
}

// Append writes the summary as one line
func (l *FileLog) Append(ctx context.Context, summary model.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary %s: %w", summary.RunID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write run summary %s: %w", summary.RunID, err)
	}
	return nil
}

// Entries flushes pending writes and reads every line back
func (l *FileLog) Entries(ctx context.Context) ([]model.RunSummary, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	err := l.writer.Flush()
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to flush history file: %w", err)
	}
	return ReadFile(ctx, l.path)
}

// Close flushes buffered entries, syncs and closes the file
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if err := l.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if err := l.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	return errors.Join(errs...)
}

// ReadFile decodes a JSONL history file without opening it for writing.
// A missing file has no entries.
func ReadFile(ctx context.Context, path string) ([]model.RunSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.RunSummary{}, nil
		}
		return nil, fmt.Errorf("failed to open history file %s: %w", path, err)
	}
	defer file.Close()

	entries := make([]model.RunSummary, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var summary model.RunSummary
		if err := json.Unmarshal(raw, &summary); err != nil {
			return nil, fmt.Errorf("malformed history entry at %s:%d: %w", path, line, err)
		}
		entries = append(entries, summary)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file %s: %w", path, err)
	}
	return entries, nil
}
