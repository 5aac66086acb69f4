// Package seeding generates the users and items the shop schema is seeded with.
package seeding

import (
	"errors"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const (
	vipDrawMax       = 10
	vipDrawThreshold = 8
)

var ErrInvalidPriceRange = errors.New("price range must be positive with min not above max")
var ErrInvalidInventoryRange = errors.New("inventory range must not be negative with min not above max")

// Config holds the sizes and value ranges of the seed data. Both ranges are inclusive.
type Config struct {
	Users        int
	Items        int
	PriceMin     shop.Money
	PriceMax     shop.Money
	InventoryMin int
	InventoryMax int
}

// DefaultConfig returns 10000 users and 1000 items priced 5.00 to 500.00 with 1000 to 5000 in stock.
func DefaultConfig() Config {
	return Config{
		Users:        10000,
		Items:        1000,
		PriceMin:     shop.Cents(500),
		PriceMax:     shop.Cents(50000),
		InventoryMin: 1000,
		InventoryMax: 5000,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Users <= 0:
		return shop.ErrInvalidUserCount
	case c.Items <= 0:
		return shop.ErrInvalidItemCount
	case c.PriceMin <= 0 || c.PriceMin > c.PriceMax:
		return ErrInvalidPriceRange
	case c.InventoryMin < 0 || c.InventoryMin > c.InventoryMax:
		return ErrInvalidInventoryRange
	}

	return nil
}

// Option defines a functional option for configuring Generator.
type Option func(*Generator)

// WithSeed makes the generated rows reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.faker = gofakeit.New(seed)
	}
}

// Generator produces seed rows.
type Generator struct {
	config Config
	faker  *gofakeit.Faker
}

// NewGenerator validates config and creates a Generator with a randomly seeded faker.
func NewGenerator(config Config, options ...Option) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	g := &Generator{config: config, faker: gofakeit.New(0)}
	for _, option := range options {
		option(g)
	}

	return g, nil
}

// Items returns Config.Items items: a fake noun as name, a random category, price and inventory.
func (g *Generator) Items() []shop.Item {
	items := make([]shop.Item, g.config.Items)
	for i := range items {
		items[i] = shop.Item{
			Name:      g.faker.Noun(),
			Category:  shop.Categories[g.faker.Number(0, len(shop.Categories)-1)],
			Price:     shop.Cents(int64(g.faker.Number(int(g.config.PriceMin.Cents()), int(g.config.PriceMax.Cents())))),
			Inventory: g.faker.Number(g.config.InventoryMin, g.config.InventoryMax),
		}
	}

	return items
}

// Users returns Config.Users users with fake emails. Roughly 2 in 11 users are VIPs.
func (g *Generator) Users() []shop.User {
	users := make([]shop.User, g.config.Users)
	for i := range users {
		users[i] = shop.User{
			Email: g.faker.Email(),
			IsVIP: g.faker.Number(0, vipDrawMax) > vipDrawThreshold,
		}
	}

	return users
}
