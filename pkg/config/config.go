// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Source drivers for loading datasets
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverSnowflake = "snowflake"
)

// History backends for the run-history log
const (
	HistoryFile = "file"
	HistorySQL  = "sql"
)

// Config represents the application configuration
type Config struct {
	// Dataset sources
	SourceDriver string
	Tables       []string
	JSONLSources map[string]string // dataset name -> path
	SQLite       *SQLiteConfig
	Snowflake    *SnowflakeConfig
	Postgres     *PostgresConfig

	// Declarative check configuration
	RulesPath   string
	SchemaPath  string
	ProfilePath string

	// Outputs
	ResultsPath     string
	HistoryBackend  string
	HistoryDriver   string // database/sql driver of the sql backend
	HistoryPath     string // file path, or DSN for the sql backend
	MetricsTextfile string

	// Run settings
	Workers    int
	SampleSize int
	Schedule   string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables, reading a
// .env file first when one exists
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(getEnv("DQ_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	jsonl, err := parseDatasetPaths(getEnv("DQ_JSONL_DATASETS", "web_events=data/raw/web_events.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DQ_JSONL_DATASETS: %w", err)
	}

	cfg := &Config{
		// Default values
		SourceDriver:    strings.ToLower(getEnv("DQ_SOURCE_DRIVER", DriverSQLite)),
		Tables:          getEnvAsStringSlice("DQ_TABLES", []string{"customers", "orders"}),
		JSONLSources:    jsonl,
		RulesPath:       getEnv("DQ_RULES_PATH", "config/quality_rules.yml"),
		SchemaPath:      getEnv("DQ_SCHEMA_PATH", "config/schema.yml"),
		ProfilePath:     getEnv("DQ_PROFILE_PATH", "config/quality_profile.yml"),
		ResultsPath:     getEnv("DQ_RESULTS_PATH", "data/processed/quality_results.json"),
		HistoryBackend:  strings.ToLower(getEnv("DQ_HISTORY_BACKEND", HistoryFile)),
		HistoryDriver:   getEnv("DQ_HISTORY_DRIVER", DriverSQLite),
		HistoryPath:     getEnv("DQ_HISTORY_PATH", "data/processed/run_history.jsonl"),
		MetricsTextfile: getEnv("DQ_METRICS_TEXTFILE", ""),
		Workers:         getEnvAsInt("DQ_WORKERS", 1),
		SampleSize:      getEnvAsInt("DQ_SAMPLE_SIZE", 5),
		Schedule:        getEnv("DQ_SCHEDULE", "@hourly"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}

	// Load only the database configuration the selected driver needs
	switch cfg.SourceDriver {
	case DriverSQLite:
		cfg.SQLite = LoadSQLiteConfig()
	case DriverPostgres:
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	case DriverSnowflake:
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, errors.New("failed to load Snowflake configuration: " + err.Error())
		}
		cfg.Snowflake = snowConfig
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.SourceDriver {
	case DriverSQLite:
		if c.SQLite == nil {
			return errors.New("sqlite configuration is required")
		}
	case DriverPostgres:
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required")
		}
	case DriverSnowflake:
		if c.Snowflake == nil {
			return errors.New("snowflake configuration is required")
		}
	default:
		return fmt.Errorf("unsupported source driver %q", c.SourceDriver)
	}

	if c.HistoryBackend != HistoryFile && c.HistoryBackend != HistorySQL {
		return fmt.Errorf("unsupported history backend %q", c.HistoryBackend)
	}

	if c.HistoryPath == "" {
		return errors.New("history path is required")
	}

	if c.HistoryBackend == HistorySQL && c.HistoryDriver == "" {
		return errors.New("history driver is required for the sql backend")
	}

	if c.RulesPath == "" {
		return errors.New("rules path is required")
	}

	if c.Workers <= 0 {
		return errors.New("worker count must be positive")
	}

	if c.SampleSize <= 0 {
		return errors.New("sample size must be positive")
	}

	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// parseDatasetPaths parses "name=path,name=path" pairs
func parseDatasetPaths(value string) (map[string]string, error) {
	result := make(map[string]string)
	for _, pair := range splitCommaDelimited(value) {
		if pair == "" {
			continue
		}
		name, path, ok := strings.Cut(pair, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid dataset source %q, expected name=path", pair)
		}
		result[name] = path
	}
	return result, nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
