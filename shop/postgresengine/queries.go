package postgresengine

import (
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const (
	dialectPostgres  = "postgres"
	tableUsers       = "users"
	tableItems       = "items"
	tablePurchases   = "purchases"
	colID            = "id"
	colEmail         = "email"
	colIsVIP         = "is_vip"
	colName          = "name"
	colCategory      = "category"
	colPrice         = "price"
	colInventory     = "inventory"
	colUserID        = "user_id"
	colItemID        = "item_id"
	colQuantity      = "quantity"
	colPurchasePrice = "purchase_price"
	castNumeric      = "?::numeric"
	priceAsText      = "price::text"
)

func table(schema, name string) exp.IdentifierExpression {
	return goqu.S(schema).Table(name)
}

// numeric renders money as a decimal literal, e.g. '12.34'::numeric.
func numeric(m shop.Money) exp.LiteralExpression {
	return goqu.L(castNumeric, m.String())
}

func buildInsertItemsQuery(schema string, items []shop.Item) (string, error) {
	records := make([]any, 0, len(items))
	for _, item := range items {
		records = append(records, goqu.Record{
			colName:      item.Name,
			colCategory:  item.Category,
			colPrice:     numeric(item.Price),
			colInventory: item.Inventory,
		})
	}

	return toSQL(goqu.Dialect(dialectPostgres).Insert(table(schema, tableItems)).Rows(records...))
}

func buildInsertUsersQuery(schema string, users []shop.User) (string, error) {
	records := make([]any, 0, len(users))
	for _, user := range users {
		records = append(records, goqu.Record{
			colEmail: user.Email,
			colIsVIP: user.IsVIP,
		})
	}

	return toSQL(goqu.Dialect(dialectPostgres).Insert(table(schema, tableUsers)).Rows(records...))
}

func buildItemPricesQuery(schema string) (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(table(schema, tableItems)).
		Select(goqu.C(colID), goqu.L(priceAsText)).
		Order(goqu.C(colID).Asc())

	sqlQuery, _, err := selectStmt.ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func buildInsertPurchaseQuery(schema string, purchase shop.Purchase) (string, error) {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(table(schema, tablePurchases)).
		Rows(goqu.Record{
			colUserID:        purchase.UserID,
			colItemID:        purchase.ItemID,
			colQuantity:      purchase.Quantity,
			colPurchasePrice: numeric(purchase.PurchasePrice),
		}).
		Returning(goqu.C(colID))

	return toSQL(insertStmt)
}

func toSQL(insertStmt *goqu.InsertDataset) (string, error) {
	sqlQuery, _, err := insertStmt.ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}
