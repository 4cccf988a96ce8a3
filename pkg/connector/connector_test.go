package connector

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-quality/pkg/config"
)

func writeSQLite(t *testing.T, statements ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rdbms.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

var shopTables = []string{
	`CREATE TABLE customers (customer_id INTEGER PRIMARY KEY, email TEXT, status TEXT, avatar BLOB)`,
	`INSERT INTO customers VALUES (1, 'a@example.com', 'active', X'6869')`,
	`INSERT INTO customers VALUES (2, NULL, 'inactive', NULL)`,
	`CREATE TABLE orders (order_id INTEGER, customer_id INTEGER, amount REAL)`,
	`INSERT INTO orders VALUES (10, 1, 19.5)`,
	`INSERT INTO orders VALUES (11, 9999, 5)`,
}

func TestSQLLoaderLoadTables(t *testing.T) {
	ctx := context.Background()
	path := writeSQLite(t, shopTables...)

	conn, err := NewSQLiteConnector(ctx, &config.SQLiteConfig{Path: path, MaxOpenConns: 1}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Validate(ctx))

	datasets, err := NewSQLLoader(conn, zaptest.NewLogger(t)).LoadTables(ctx, []string{"customers", "orders", "customers"})
	require.NoError(t, err)
	require.Len(t, datasets, 2)

	customers := datasets["customers"]
	assert.Equal(t, "customers", customers.Name)
	assert.Equal(t, []string{"customer_id", "email", "status", "avatar"}, customers.Columns)
	require.Equal(t, 2, customers.Len())
	assert.Equal(t, int64(1), customers.Records[0]["customer_id"])
	assert.Equal(t, "hi", customers.Records[0]["avatar"])
	assert.Nil(t, customers.Records[1]["email"])

	// NULL values are present in the record, not missing
	_, ok := customers.Value(1, "email")
	assert.True(t, ok)

	orders := datasets["orders"]
	assert.Equal(t, 19.5, orders.Records[0]["amount"])
	assert.Equal(t, int64(9999), orders.Records[1]["customer_id"])
}

func TestSQLLoaderErrors(t *testing.T) {
	ctx := context.Background()
	path := writeSQLite(t, shopTables...)

	conn, err := NewSQLiteConnector(ctx, &config.SQLiteConfig{Path: path}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer conn.Close()
	loader := NewSQLLoader(conn, nil)

	_, err = loader.LoadTable(ctx, "missing_table")
	assert.Error(t, err)

	_, err = loader.LoadTable(ctx, "orders; DROP TABLE orders")
	assert.ErrorContains(t, err, "invalid table name")

	// the table survived
	ds, err := loader.LoadTable(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestSQLiteConnectorRequiresExistingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.db")
	_, err := NewSQLiteConnector(context.Background(), &config.SQLiteConfig{Path: missing}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(missing)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadJSONL(t *testing.T) {
	path := writeFile(t, "web_events.jsonl", `{"event_id": "e1", "user_id": 1, "value": 2.5}

{"event_id": "e2", "user_id": null, "extra": {"a": 1}}

`)

	ds, err := LoadJSONL(context.Background(), "web_events", path)
	require.NoError(t, err)

	assert.Equal(t, "web_events", ds.Name)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"event_id", "user_id", "value", "extra"}, ds.Columns)
	assert.Equal(t, int64(1), ds.Records[0]["user_id"])
	assert.Equal(t, 2.5, ds.Records[0]["value"])
	assert.Nil(t, ds.Records[1]["user_id"])

	// a key absent from a record is missing, not null
	_, ok := ds.Value(1, "value")
	assert.False(t, ok)
}

func TestLoadJSONLRejectsMalformedLines(t *testing.T) {
	for name, content := range map[string]string{
		"broken":   "{\"a\": 1}\n{\"a\": \n",
		"array":    "[1, 2]\n",
		"null":     "null\n",
		"trailing": "{\"a\": 1} {\"a\": 2}\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "events.jsonl", content)
			_, err := LoadJSONL(context.Background(), "events", path)
			assert.Error(t, err)
		})
	}

	path := writeFile(t, "events.jsonl", "{\"a\": 1}\n\n{oops}\n")
	_, err := LoadJSONL(context.Background(), "events", path)
	assert.ErrorContains(t, err, "events.jsonl:3")

	_, err = LoadJSONL(context.Background(), "events", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDatasets(t *testing.T) {
	ctx := context.Background()
	dbPath := writeSQLite(t, shopTables...)
	events := writeFile(t, "web_events.jsonl", `{"event_id": "e1"}`+"\n")

	cfg := &config.Config{
		SourceDriver: config.DriverSQLite,
		SQLite:       &config.SQLiteConfig{Path: dbPath, MaxOpenConns: 1},
		Tables:       []string{"customers", "orders"},
		JSONLSources: map[string]string{"web_events": events},
	}

	datasets, err := LoadDatasets(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Len(t, datasets, 3)
	assert.Equal(t, 1, datasets["web_events"].Len())

	cfg.JSONLSources = map[string]string{"orders": events}
	_, err = LoadDatasets(ctx, cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "both a table and a JSONL file")
}

func TestLoadDatasetsWithoutTablesSkipsDatabase(t *testing.T) {
	events := writeFile(t, "web_events.jsonl", `{"event_id": "e1"}`+"\n")
	cfg := &config.Config{
		SourceDriver: config.DriverPostgres,
		JSONLSources: map[string]string{"web_events": events},
	}

	datasets, err := LoadDatasets(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, []string{"event_id"}, datasets["web_events"].Columns)
}

func TestConnectorFactory(t *testing.T) {
	ctx := context.Background()

	_, err := NewConnectorFactory(&config.Config{SourceDriver: "oracle"}, nil).CreateSourceConnector(ctx)
	assert.ErrorContains(t, err, "unsupported source driver")

	_, err = NewConnectorFactory(&config.Config{SourceDriver: config.DriverPostgres}, nil).CreateSourceConnector(ctx)
	assert.Error(t, err)

	path := writeSQLite(t, shopTables...)
	conn, err := NewConnectorFactory(&config.Config{
		SourceDriver: config.DriverSQLite,
		SQLite:       &config.SQLiteConfig{Path: path},
	}, zaptest.NewLogger(t)).CreateSourceConnector(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", conn.DriverName())
	assert.Equal(t, "orders", conn.QualifiedTable("orders"))
	require.NoError(t, conn.Close())
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("orders"))
	assert.True(t, ValidIdentifier("_Orders_2024"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("2orders"))
	assert.False(t, ValidIdentifier("public.orders"))
	assert.False(t, ValidIdentifier("o'rders"))
}
