package config

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql and sqlx
)

const (
	postgresDriverName = "postgres"
	maxConnLifetime    = time.Hour
	maxConnIdleTime    = 5 * time.Minute
	healthCheckPeriod  = time.Minute
)

var ErrConnectingFailed = errors.New("connecting to postgres failed")

// PostgresConfig configures the connection pool of every adapter.
type PostgresConfig struct {
	DSN            string        `mapstructure:"dsn"`
	Adapter        string        `mapstructure:"adapter"`
	Schema         string        `mapstructure:"schema"`
	MaxConns       int32         `mapstructure:"max-conns"`
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`
}

// NewPGXPool creates a pgx pool. The pool connects lazily, so a wrong host only shows up on first use.
func NewPGXPool(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = min(2, cfg.MaxConns)
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	return pool, nil
}

// OpenSQLDB opens a database/sql handle backed by lib/pq.
func OpenSQLDB(cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open(postgresDriverName, cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	configureSQLPool(db, cfg)

	return db, nil
}

// OpenSQLX opens a sqlx handle backed by lib/pq.
func OpenSQLX(cfg PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(postgresDriverName, cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	configureSQLPool(db.DB, cfg)

	return db, nil
}

func configureSQLPool(db *sql.DB, cfg PostgresConfig) {
	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MaxConns))
	db.SetConnMaxLifetime(maxConnLifetime)
	db.SetConnMaxIdleTime(maxConnIdleTime)
}
