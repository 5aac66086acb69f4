package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shop-load-generator/shell/config"
	"github.com/AntonStoeckl/shop-load-generator/shop/postgresengine"
	"github.com/AntonStoeckl/shop-load-generator/testutil/helper"
)

// Engine type constants
const (
	typePGXPool = "pgxpool"
	typeSQLDB   = "sqldb"
	typeSQLXDB  = "sqlxdb"
)

const pingTimeout = 2 * time.Second

// Wrapper abstracts over the connection types a Store can run on.
type Wrapper interface {
	GetStore() *postgresengine.Store
	Schema() string
	CountRows(t testing.TB, table string) int
	Close()
}

type wrapper struct {
	store    *postgresengine.Store
	schema   string
	exec     func(ctx context.Context, query string) error
	queryInt func(ctx context.Context, query string) (int, error)
}

func (w *wrapper) GetStore() *postgresengine.Store {
	return w.store
}

func (w *wrapper) Schema() string {
	return w.schema
}

// CountRows counts the rows of a table in the wrapper's schema.
func (w *wrapper) CountRows(t testing.TB, table string) int {
	count, err := w.queryInt(context.Background(), fmt.Sprintf("SELECT count(*) FROM %s.%s", w.schema, table))
	require.NoError(t, err, "error counting rows")

	return count
}

// Close drops the schema and closes the connection.
func (w *wrapper) Close() {
	_ = w.exec(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", w.schema)) // best effort
	_ = w.store.Close()                                                                         // ignore error
}

// CreateWrapperWithTestConfig connects according to ADAPTER_TYPE and bootstraps a unique schema.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	schema := helper.GivenUniqueSchemaName(t)
	options = append([]postgresengine.Option{postgresengine.WithSchemaName(schema)}, options...)
	pgConfig := config.PostgresConfig{DSN: helper.TestDSN(), MaxConns: 4, ConnectTimeout: pingTimeout}

	var w *wrapper

	switch adapterType := strings.ToLower(os.Getenv("ADAPTER_TYPE")); adapterType {
	case typePGXPool, "":
		pool, err := config.NewPGXPool(ctx, pgConfig)
		require.NoError(t, err, "error creating DB pool in test setup")
		skipIfUnreachable(t, pool.Ping(ctx), pool.Close)

		store, err := postgresengine.NewStoreFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating store")

		w = &wrapper{store: store, schema: schema, exec: pgxExec(pool), queryInt: pgxQueryInt(pool)}

	case typeSQLDB:
		db, err := config.OpenSQLDB(pgConfig)
		require.NoError(t, err, "error opening DB in test setup")
		skipIfUnreachable(t, db.PingContext(ctx), func() { _ = db.Close() })

		store, err := postgresengine.NewStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating store")

		w = &wrapper{store: store, schema: schema, exec: stdExec(db), queryInt: stdQueryInt(db)}

	case typeSQLXDB:
		db, err := config.OpenSQLX(pgConfig)
		require.NoError(t, err, "error opening DB in test setup")
		skipIfUnreachable(t, db.PingContext(ctx), func() { _ = db.Close() })

		store, err := postgresengine.NewStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating store")

		w = &wrapper{store: store, schema: schema, exec: stdExec(db.DB), queryInt: stdQueryInt(db.DB)}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterType))
	}

	require.NoError(t, w.store.Bootstrap(context.Background()), "error bootstrapping schema")

	return w
}

func skipIfUnreachable(t testing.TB, pingErr error, closeConn func()) {
	if pingErr == nil {
		return
	}

	closeConn()
	t.Skipf("postgres not reachable at %s: %v", helper.TestDSN(), pingErr)
}

func pgxExec(pool *pgxpool.Pool) func(ctx context.Context, query string) error {
	return func(ctx context.Context, query string) error {
		_, err := pool.Exec(ctx, query)
		return err
	}
}

func pgxQueryInt(pool *pgxpool.Pool) func(ctx context.Context, query string) (int, error) {
	return func(ctx context.Context, query string) (int, error) {
		var n int
		err := pool.QueryRow(ctx, query).Scan(&n)

		return n, err
	}
}

func stdExec(db *sql.DB) func(ctx context.Context, query string) error {
	return func(ctx context.Context, query string) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}

func stdQueryInt(db *sql.DB) func(ctx context.Context, query string) (int, error) {
	return func(ctx context.Context, query string) (int, error) {
		var n int
		err := db.QueryRowContext(ctx, query).Scan(&n)

		return n, err
	}
}
