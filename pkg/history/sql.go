// pkg/history/sql.go
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/David-Botos/data-quality/pkg/model"
)

// generatedAtLayout has a fixed width so stored timestamps sort as text
const generatedAtLayout = "2006-01-02T15:04:05.000000000Z"

const createHistoryTableSQL = `
	CREATE TABLE IF NOT EXISTS run_history (
		run_id TEXT PRIMARY KEY,
		generated_at TEXT NOT NULL,
		verdict TEXT NOT NULL,
		pass_rate DOUBLE PRECISION NOT NULL,
		critical_failures INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		summary TEXT NOT NULL
	)
`

func init() {
	// modernc.org/sqlite registers as "sqlite", which sqlx does not know
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLLog stores summaries in the run_history table. Rows are only ever
// inserted.
type SQLLog struct {
	db    *sqlx.DB
	owned bool
}

// NewSQLLog uses an existing connection and ensures the history table exists.
// Close leaves the connection open.
func NewSQLLog(ctx context.Context, db *sqlx.DB) (*SQLLog, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createHistoryTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create run_history table: %w", err)
	}
	return &SQLLog{db: db}, nil
}

// OpenSQLLog connects with the given driver and owns the connection
func OpenSQLLog(ctx context.Context, driverName, dsn string) (*SQLLog, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s history database: %w", driverName, err)
	}
	log, err := NewSQLLog(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.owned = true
	return log, nil
}

// Append inserts the summary as a new row
func (l *SQLLog) Append(ctx context.Context, summary model.RunSummary) error {
	if l.db == nil {
		return ErrClosed
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary %s: %w", summary.RunID, err)
	}

	query := l.db.Rebind(`
		INSERT INTO run_history
			(run_id, generated_at, verdict, pass_rate, critical_failures, fingerprint, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = l.db.ExecContext(ctx, query,
		summary.RunID,
		summary.GeneratedAt.UTC().Format(generatedAtLayout),
		string(summary.SLA.Verdict),
		summary.PassRate,
		summary.CriticalFailures,
		summary.Fingerprint,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run summary %s: %w", summary.RunID, err)
	}
	return nil
}

// Entries returns every stored summary ordered by generation time
func (l *SQLLog) Entries(ctx context.Context) ([]model.RunSummary, error) {
	if l.db == nil {
		return nil, ErrClosed
	}
	var rows []string
	if err := l.db.SelectContext(ctx, &rows, `SELECT summary FROM run_history ORDER BY generated_at, run_id`); err != nil {
		return nil, fmt.Errorf("failed to query run_history: %w", err)
	}

	entries := make([]model.RunSummary, 0, len(rows))
	for _, raw := range rows {
		var summary model.RunSummary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			return nil, fmt.Errorf("malformed run_history row: %w", err)
		}
		entries = append(entries, summary)
	}
	return entries, nil
}

// Close releases the connection when the log owns it
func (l *SQLLog) Close() error {
	if l.db == nil {
		return nil
	}
	db := l.db
	l.db = nil
	if l.owned {
		return db.Close()
	}
	return nil
}
