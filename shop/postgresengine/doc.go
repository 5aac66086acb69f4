// Package postgresengine is the PostgreSQL store of the load generator.
//
// It creates the shop schema, seeds users and items, loads the item price snapshot and inserts
// purchases. SQL is built with goqu and executed through one of three adapters (pgx, sql.DB, sqlx),
// so callers pick whichever connection type they already have.
//
// Usage examples:
//
//	pool, _ := pgxpool.New(ctx, dsn)
//	store, _ := postgresengine.NewStoreFromPGXPool(pool, postgresengine.WithLogger(logger))
//
//	_ = store.Bootstrap(ctx)
//	prices, _ := store.ItemPrices(ctx)
//	id, _ := store.InsertPurchase(ctx, purchase)
//
// Every write is a single autocommitted statement, so an inserted purchase is committed when
// InsertPurchase returns.
package postgresengine
