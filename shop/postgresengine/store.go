package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/shop-load-generator/shop"
	"github.com/AntonStoeckl/shop-load-generator/shop/postgresengine/internal/adapters"
)

const (
	defaultSchemaName    = "shop"
	defaultSeedBatchSize = 500
)

var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrInvalidSchemaName = errors.New("schema name must be a lowercase identifier of at most 63 characters")
var ErrInvalidSeedBatchSize = errors.New("seed batch size must be positive")
var ErrBuildingQueryFailed = errors.New("building query failed")
var ErrBootstrapFailed = errors.New("creating schema failed")
var ErrInsertingRowsFailed = errors.New("inserting seed rows failed")
var ErrQueryingItemPricesFailed = errors.New("querying item prices failed")
var ErrScanningDBRowFailed = errors.New("scanning db row failed")
var ErrInsertingPurchaseFailed = errors.New("inserting purchase failed")
var ErrNoRowReturned = errors.New("insert returned no row")

// Store persists the shop tables in PostgreSQL. It is safe for concurrent use.
type Store struct {
	db               adapters.DBAdapter
	schema           string
	seedBatchSize    int
	logger           shop.Logger
	contextualLogger shop.ContextualLogger
	metricsCollector shop.MetricsCollector
	tracingCollector shop.TracingCollector
}

// NewStoreFromPGXPool creates a Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options)
}

// NewStoreFromSQLDB creates a Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options)
}

// NewStoreFromSQLX creates a Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options)
}

func newStore(db adapters.DBAdapter, options []Option) (*Store, error) {
	s := &Store{
		db:            db,
		schema:        defaultSchemaName,
		seedBatchSize: defaultSeedBatchSize,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Schema returns the name of the schema the Store writes to.
func (s *Store) Schema() string {
	return s.schema
}

// Bootstrap creates the schema and the users, items and purchases tables if they do not exist.
func (s *Store) Bootstrap(ctx context.Context) error {
	observer, ctx := s.startOperation(ctx, operationBootstrap)

	for _, statement := range schemaStatements(s.schema) {
		if _, err := s.exec(ctx, statement, operationBootstrap); err != nil {
			observer.failure(errorTypeExec)
			return errors.Join(ErrBootstrapFailed, err)
		}
	}

	observer.success(0)
	s.logOperation(logMsgSchemaReady, logAttrSchema, s.schema)

	return nil
}

// InsertItems writes the items in batches of the configured seed batch size.
func (s *Store) InsertItems(ctx context.Context, items []shop.Item) error {
	return s.insertInBatches(ctx, operationInsertItems, tableItems, len(items), func(from, to int) (string, error) {
		return buildInsertItemsQuery(s.schema, items[from:to])
	})
}

// InsertUsers writes the users in batches of the configured seed batch size.
func (s *Store) InsertUsers(ctx context.Context, users []shop.User) error {
	return s.insertInBatches(ctx, operationInsertUsers, tableUsers, len(users), func(from, to int) (string, error) {
		return buildInsertUsersQuery(s.schema, users[from:to])
	})
}

func (s *Store) insertInBatches(
	ctx context.Context,
	operation string,
	table string,
	rowCount int,
	buildBatch func(from, to int) (string, error),
) error {

	if rowCount == 0 {
		return nil
	}

	observer, ctx := s.startOperation(ctx, operation)
	started := time.Now()
	inserted := int64(0)

	for from := 0; from < rowCount; from += s.seedBatchSize {
		to := min(from+s.seedBatchSize, rowCount)

		sqlQuery, err := buildBatch(from, to)
		if err != nil {
			s.logError(ctx, logMsgBuildQueryFailed, err, logAttrOperation, operation)
			observer.failure(errorTypeBuildQuery)

			return err
		}

		result, err := s.exec(ctx, sqlQuery, operation)
		if err != nil {
			observer.failure(errorTypeExec)
			return errors.Join(ErrInsertingRowsFailed, err)
		}

		if affected, err := result.RowsAffected(); err == nil {
			inserted += affected
		}
	}

	observer.success(inserted)
	s.logOperation(logMsgRowsSeeded,
		logAttrTable, table,
		logAttrRowCount, inserted,
		logAttrDurationMS, toMilliseconds(time.Since(started)),
	)

	return nil
}

// ItemPrices loads the id and price of every item, ordered by id.
// Prices are read as text so that no floating point conversion happens.
func (s *Store) ItemPrices(ctx context.Context) ([]shop.ItemPrice, error) {
	observer, ctx := s.startOperation(ctx, operationItemPrices)

	sqlQuery, err := buildItemPricesQuery(s.schema)
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrOperation, operationItemPrices)
		observer.failure(errorTypeBuildQuery)

		return nil, err
	}

	rows, err := s.query(ctx, sqlQuery, operationItemPrices)
	if err != nil {
		observer.failure(errorTypeQuery)
		return nil, errors.Join(ErrQueryingItemPricesFailed, err)
	}
	defer s.closeRows(ctx, rows)

	prices := make([]shop.ItemPrice, 0)

	for rows.Next() {
		var id int64
		var priceText string

		if err = rows.Scan(&id, &priceText); err != nil {
			s.logError(ctx, logMsgScanRowFailed, err, logAttrOperation, operationItemPrices)
			observer.failure(errorTypeScan)

			return nil, errors.Join(ErrScanningDBRowFailed, err)
		}

		price, parseErr := shop.ParseMoney(priceText)
		if parseErr != nil {
			s.logError(ctx, logMsgScanRowFailed, parseErr, logAttrOperation, operationItemPrices, logAttrItemID, id)
			observer.failure(errorTypeScan)

			return nil, errors.Join(ErrScanningDBRowFailed, parseErr)
		}

		prices = append(prices, shop.ItemPrice{ItemID: id, Price: price})
	}

	if err = rows.Err(); err != nil {
		s.logError(ctx, logMsgDBQueryFailed, err, logAttrOperation, operationItemPrices)
		observer.failure(errorTypeQuery)

		return nil, errors.Join(ErrQueryingItemPricesFailed, err)
	}

	observer.success(int64(len(prices)))
	s.logOperation(logMsgPricesLoaded, logAttrRowCount, len(prices))

	return prices, nil
}

// InsertPurchase writes one purchase and returns its id. The row is committed on return.
func (s *Store) InsertPurchase(ctx context.Context, purchase shop.Purchase) (int64, error) {
	observer, ctx := s.startOperation(ctx, operationInsertPurchase)

	sqlQuery, err := buildInsertPurchaseQuery(s.schema, purchase)
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrOperation, operationInsertPurchase)
		observer.failure(errorTypeBuildQuery)

		return 0, err
	}

	rows, err := s.query(ctx, sqlQuery, operationInsertPurchase)
	if err != nil {
		observer.failure(errorTypeQuery)
		return 0, errors.Join(ErrInsertingPurchaseFailed, err)
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			s.logError(ctx, logMsgDBQueryFailed, err, logAttrOperation, operationInsertPurchase)
			observer.failure(errorTypeQuery)

			return 0, errors.Join(ErrInsertingPurchaseFailed, err)
		}

		observer.failure(errorTypeNoRow)

		return 0, errors.Join(ErrInsertingPurchaseFailed, ErrNoRowReturned)
	}

	var id int64
	if err = rows.Scan(&id); err != nil {
		s.logError(ctx, logMsgScanRowFailed, err, logAttrOperation, operationInsertPurchase)
		observer.failure(errorTypeScan)

		return 0, errors.Join(ErrScanningDBRowFailed, err)
	}

	observer.success(1)

	return id, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// exec runs a statement and logs it with its duration.
func (s *Store) exec(ctx context.Context, sqlQuery, operation string) (adapters.DBResult, error) {
	start := time.Now()
	result, err := s.db.Exec(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, operation, time.Since(start))

	if err != nil {
		s.logError(ctx, logMsgDBExecFailed, err, logAttrOperation, operation, logAttrQuery, sqlQuery)
		return nil, err
	}

	return result, nil
}

// query runs a row-returning statement and logs it with its duration.
func (s *Store) query(ctx context.Context, sqlQuery, operation string) (adapters.DBRows, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, operation, time.Since(start))

	if err != nil {
		s.logError(ctx, logMsgDBQueryFailed, err, logAttrOperation, operation, logAttrQuery, sqlQuery)
		return nil, err
	}

	return rows, nil
}

// closeRows closes database rows and logs any errors.
func (s *Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, err.Error())
	}
}
