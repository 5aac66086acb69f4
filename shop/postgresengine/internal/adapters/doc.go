// Package adapters lets the store run on pgxpool.Pool, sql.DB (lib/pq) or sqlx.DB.
//
// Every adapter executes ready-built SQL strings; the store never sees which driver is underneath.
package adapters
