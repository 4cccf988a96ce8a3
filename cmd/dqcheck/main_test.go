package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-quality/pkg/history"
	"github.com/David-Botos/data-quality/pkg/report"
)

const cliRules = `
rules:
  - dataset: customers
    column: email
    kind: regex
    pattern: '[^@]+@[^@]+'
  - dataset: orders
    column: customer_id
    kind: referential_integrity
    references: customers.customer_id
  - dataset: web_events
    column: event_type
    kind: allowed_values
    allowed: [view, purchase]
`

// setupEnv points the configuration at a throwaway sqlite source, JSONL
// file and output directory
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "rdbms.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE customers (customer_id INTEGER, email TEXT)`,
		`INSERT INTO customers VALUES (1, 'a@example.com'), (2, 'b@example.com')`,
		`CREATE TABLE orders (order_id INTEGER, customer_id INTEGER)`,
		`INSERT INTO orders VALUES (10, 1), (11, 9999)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	events := filepath.Join(dir, "web_events.jsonl")
	require.NoError(t, os.WriteFile(events, []byte(`{"event_type": "view"}`+"\n"+`{"event_type": "purchase"}`+"\n"), 0o644))
	rules := filepath.Join(dir, "quality_rules.yml")
	require.NoError(t, os.WriteFile(rules, []byte(cliRules), 0o644))

	env := map[string]string{
		"DQ_ENV_FILE":        filepath.Join(dir, "missing.env"),
		"DQ_SOURCE_DRIVER":   "sqlite",
		"DQ_SQLITE_PATH":     dbPath,
		"DQ_TABLES":          "customers,orders",
		"DQ_JSONL_DATASETS":  "web_events=" + events,
		"DQ_RULES_PATH":      rules,
		"DQ_SCHEMA_PATH":     filepath.Join(dir, "missing_schema.yml"),
		"DQ_PROFILE_PATH":    filepath.Join(dir, "missing_profile.yml"),
		"DQ_RESULTS_PATH":    filepath.Join(dir, "out", "quality_results.json"),
		"DQ_HISTORY_BACKEND": "file",
		"DQ_HISTORY_PATH":    filepath.Join(dir, "out", "run_history.jsonl"),
		"LOG_LEVEL":          "error",
		"LOG_FORMAT":         "console",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	return dir
}

func TestRunCommand(t *testing.T) {
	dir := setupEnv(t)
	ctx := context.Background()

	assert.Equal(t, exitOK, execute(ctx, []string{"run"}))
	// the dangling order fails the default SLA
	assert.Equal(t, exitSLAFailed, execute(ctx, []string{"run", "--fail-on-sla"}))

	alt := filepath.Join(dir, "alt", "results.json")
	assert.Equal(t, exitOK, execute(ctx, []string{"run", "--skip-history", "--results", alt}))

	entries, err := history.ReadFile(ctx, filepath.Join(dir, "out", "run_history.jsonl"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].PassedChecks)
	assert.Equal(t, 1, entries[0].FailedChecks)

	results, err := report.ReadResults(alt)
	require.NoError(t, err)
	assert.Len(t, results.Results, 3)
	assert.NotEqual(t, entries[1].RunID, results.Summary.RunID)
}

func TestHistoryAndValidateCommands(t *testing.T) {
	dir := setupEnv(t)
	ctx := context.Background()

	assert.Equal(t, exitOK, execute(ctx, []string{"history"}))
	// listing an empty history leaves the output directory alone
	_, err := os.Stat(filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.Equal(t, exitOK, execute(ctx, []string{"run"}))
	assert.Equal(t, exitOK, execute(ctx, []string{"history", "--last", "1", "--json"}))
	assert.Equal(t, exitOK, execute(ctx, []string{"validate-config"}))
}

func TestCommandFailures(t *testing.T) {
	dir := setupEnv(t)
	ctx := context.Background()

	assert.Equal(t, exitError, execute(ctx, []string{"schedule", "--cron", "not a schedule"}))
	assert.Equal(t, exitError, execute(ctx, []string{"frobnicate"}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "quality_rules.yml"), []byte("rules: {"), 0o644))
	assert.Equal(t, exitError, execute(ctx, []string{"run"}))
	assert.Equal(t, exitError, execute(ctx, []string{"validate-config"}))

	t.Setenv("DQ_SOURCE_DRIVER", "oracle")
	assert.Equal(t, exitError, execute(ctx, []string{"run"}))
}

func TestScheduleStopsOnCancel(t *testing.T) {
	setupEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// --now runs once before the cancelled context stops the scheduler
	assert.Equal(t, exitOK, execute(ctx, []string{"schedule", "--cron", "@every 1h", "--now"}))
}
