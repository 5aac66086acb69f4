package postgresengine

import "fmt"

// schemaStatements returns the idempotent DDL for the shop tables.
// purchases carries no foreign keys: purchase user ids are drawn without checking that the user exists.
func schemaStatements(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.users (
	id BIGSERIAL PRIMARY KEY,
	email VARCHAR(255) NOT NULL,
	is_vip BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.items (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	category VARCHAR(100) NOT NULL,
	price DECIMAL(7,2) NOT NULL,
	inventory INT NOT NULL,
	inventory_updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.purchases (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	item_id BIGINT NOT NULL,
	status SMALLINT NOT NULL DEFAULT 1,
	quantity INT NOT NULL DEFAULT 1,
	purchase_price DECIMAL(12,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, schema),
	}
}
