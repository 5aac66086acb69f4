package postgresengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

func Test_BuildInsertPurchaseQuery(t *testing.T) {
	sqlQuery, err := buildInsertPurchaseQuery("shop", shop.Purchase{
		UserID:        42,
		ItemID:        7,
		Quantity:      3,
		PurchasePrice: shop.Cents(5997),
	})

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `INSERT INTO "shop"."purchases"`)
	assert.Contains(t, sqlQuery, `"item_id", "purchase_price", "quantity", "user_id"`)
	assert.Contains(t, sqlQuery, `(7, '59.97'::numeric, 3, 42)`)
	assert.Contains(t, sqlQuery, `RETURNING "id"`)
}

func Test_BuildInsertItemsQuery_OneRowPerItem(t *testing.T) {
	sqlQuery, err := buildInsertItemsQuery("load_test", []shop.Item{
		{Name: "lamp", Category: "gadgets", Price: shop.Cents(1234), Inventory: 1200},
		{Name: "o'brien", Category: "widgets", Price: shop.Cents(500), Inventory: 4999},
	})

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `INSERT INTO "load_test"."items"`)
	assert.Contains(t, sqlQuery, `('gadgets', 1200, 'lamp', '12.34'::numeric)`)
	assert.Contains(t, sqlQuery, `('widgets', 4999, 'o''brien', '5.00'::numeric)`, "quotes must be escaped")
}

func Test_BuildInsertUsersQuery(t *testing.T) {
	sqlQuery, err := buildInsertUsersQuery("shop", []shop.User{
		{Email: "a@example.com", IsVIP: true},
		{Email: "b@example.com", IsVIP: false},
	})

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `INSERT INTO "shop"."users" ("email", "is_vip")`)
	assert.Contains(t, sqlQuery, `('a@example.com', TRUE)`)
	assert.Contains(t, sqlQuery, `('b@example.com', FALSE)`)
}

func Test_BuildItemPricesQuery_ReadsPriceAsText(t *testing.T) {
	sqlQuery, err := buildItemPricesQuery("shop")

	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", price::text FROM "shop"."items" ORDER BY "id" ASC`, sqlQuery)
}

func Test_SchemaStatements_UseTheSchemaAndAreIdempotent(t *testing.T) {
	statements := schemaStatements("load_test")

	require.Len(t, statements, 4)
	assert.Equal(t, "CREATE SCHEMA IF NOT EXISTS load_test", statements[0])

	for _, statement := range statements[1:] {
		assert.Contains(t, statement, "CREATE TABLE IF NOT EXISTS load_test.")
	}

	assert.NotContains(t, statements[3], "REFERENCES")
}
