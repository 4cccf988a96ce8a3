// pkg/connector/loader.go
package connector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/data-quality/pkg/config"
	"github.com/David-Botos/data-quality/pkg/converter"
	"github.com/David-Botos/data-quality/pkg/model"
)

// DefaultTableTimeout bounds the time spent reading one table
const DefaultTableTimeout = 5 * time.Minute

// SQLLoader reads whole tables into datasets
type SQLLoader struct {
	conn    DatabaseConnector
	db      *sqlx.DB
	logger  *zap.Logger
	timeout time.Duration
}

// NewSQLLoader creates a loader over an open connector
func NewSQLLoader(conn DatabaseConnector, logger *zap.Logger) *SQLLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLLoader{
		conn:    conn,
		db:      sqlx.NewDb(conn.DB(), conn.DriverName()),
		logger:  logger.Named("loader"),
		timeout: DefaultTableTimeout,
	}
}

// WithTimeout sets the per-table read timeout
func (l *SQLLoader) WithTimeout(timeout time.Duration) *SQLLoader {
	l.timeout = timeout
	return l
}

// LoadTable reads every row of a table. Columns keep the order reported by
// the database.
func (l *SQLLoader) LoadTable(ctx context.Context, table string) (*model.Dataset, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := l.db.QueryxContext(ctx, "SELECT * FROM "+l.conn.QualifiedTable(table))
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	records := make([]model.Record, 0)
	for rows.Next() {
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan row %d of %s: %w", len(records), table, err)
		}
		record := make(model.Record, len(row))
		for col, value := range row {
			record[col] = converter.NormalizeValue(value)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows of %s: %w", table, err)
	}

	l.logger.Info("Loaded table",
		zap.String("table", table),
		zap.Int("rows", len(records)),
		zap.Int("columns", len(columns)),
		zap.Duration("duration", time.Since(start)))

	return model.NewDataset(table, columns, records), nil
}

// LoadTables loads each table into a dataset of the same name
func (l *SQLLoader) LoadTables(ctx context.Context, tables []string) (map[string]*model.Dataset, error) {
	datasets := make(map[string]*model.Dataset, len(tables))
	for _, table := range tables {
		if _, dup := datasets[table]; dup {
			continue
		}
		ds, err := l.LoadTable(ctx, table)
		if err != nil {
			return nil, err
		}
		datasets[table] = ds
	}
	return datasets, nil
}

// LoadDatasets loads the configured tables from the source database and the
// configured JSONL files. The database is not contacted when no tables are
// configured.
func LoadDatasets(ctx context.Context, cfg *config.Config, logger *zap.Logger) (map[string]*model.Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	datasets := make(map[string]*model.Dataset)

	if len(cfg.Tables) > 0 {
		conn, err := NewConnectorFactory(cfg, logger).CreateSourceConnector(ctx)
		if err != nil {
			return nil, err
		}
		defer conn.Close()

		if err := conn.Validate(ctx); err != nil {
			return nil, fmt.Errorf("source validation failed: %w", err)
		}
		tables, err := NewSQLLoader(conn, logger).LoadTables(ctx, cfg.Tables)
		if err != nil {
			return nil, err
		}
		for name, ds := range tables {
			datasets[name] = ds
		}
	}

	names := make([]string, 0, len(cfg.JSONLSources))
	for name := range cfg.JSONLSources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, dup := datasets[name]; dup {
			return nil, fmt.Errorf("dataset %s is configured as both a table and a JSONL file", name)
		}
		ds, err := LoadJSONL(ctx, name, cfg.JSONLSources[name])
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded JSONL dataset",
			zap.String("dataset", name),
			zap.Int("rows", ds.Len()),
			zap.Int("columns", len(ds.Columns)))
		datasets[name] = ds
	}

	return datasets, nil
}
