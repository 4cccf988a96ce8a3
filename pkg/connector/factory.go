// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/data-quality/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSourceConnector creates the connector of the configured source driver
func (f *ConnectorFactory) CreateSourceConnector(ctx context.Context) (DatabaseConnector, error) {
	f.logger.Info("Creating source connector", zap.String("driver", f.cfg.SourceDriver))

	switch f.cfg.SourceDriver {
	case config.DriverSQLite:
		if f.cfg.SQLite == nil {
			return nil, fmt.Errorf("sqlite configuration is required")
		}
		conn, err := NewSQLiteConnector(ctx, f.cfg.SQLite, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite connector: %w", err)
		}
		return conn, nil
	case config.DriverPostgres:
		if f.cfg.Postgres == nil {
			return nil, fmt.Errorf("postgreSQL configuration is required")
		}
		conn, err := NewPostgresConnector(ctx, f.cfg.Postgres, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
		}
		return conn, nil
	case config.DriverSnowflake:
		if f.cfg.Snowflake == nil {
			return nil, fmt.Errorf("snowflake configuration is required")
		}
		conn, err := NewSnowflakeConnector(ctx, f.cfg.Snowflake, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Snowflake connector: %w", err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported source driver %q", f.cfg.SourceDriver)
	}
}
