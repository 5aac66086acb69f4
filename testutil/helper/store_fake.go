package helper

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

// StoreFake is an in-memory stand-in for the relational store.
type StoreFake struct {
	mu            sync.Mutex
	itemPrices    []shop.ItemPrice
	items         []shop.Item
	users         []shop.User
	purchases     []shop.Purchase
	bootstrapped  bool
	closed        bool
	insertErr     error
	bootstrapErr  error
	itemPricesErr error
	closeErr      error
}

// StoreFakeOption configures a StoreFake.
type StoreFakeOption func(*StoreFake)

// WithItemPrices sets the snapshot returned by ItemPrices. Without it, prices are derived from inserted items.
func WithItemPrices(prices []shop.ItemPrice) StoreFakeOption {
	return func(s *StoreFake) {
		s.itemPrices = prices
	}
}

// WithInsertPurchaseError makes every InsertPurchase call fail with err.
func WithInsertPurchaseError(err error) StoreFakeOption {
	return func(s *StoreFake) {
		s.insertErr = err
	}
}

// WithBootstrapError makes Bootstrap fail with err.
func WithBootstrapError(err error) StoreFakeOption {
	return func(s *StoreFake) {
		s.bootstrapErr = err
	}
}

// WithItemPricesError makes ItemPrices fail with err.
func WithItemPricesError(err error) StoreFakeOption {
	return func(s *StoreFake) {
		s.itemPricesErr = err
	}
}

// WithCloseError makes Close fail with err.
func WithCloseError(err error) StoreFakeOption {
	return func(s *StoreFake) {
		s.closeErr = err
	}
}

// NewStoreFake creates a StoreFake.
func NewStoreFake(options ...StoreFakeOption) *StoreFake {
	s := &StoreFake{}
	for _, option := range options {
		option(s)
	}

	return s
}

// Bootstrap records that the schema was created.
func (s *StoreFake) Bootstrap(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bootstrapErr != nil {
		return s.bootstrapErr
	}

	s.bootstrapped = true

	return nil
}

// InsertItems keeps the items in memory.
func (s *StoreFake) InsertItems(_ context.Context, items []shop.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)

	return nil
}

// InsertUsers keeps the users in memory.
func (s *StoreFake) InsertUsers(_ context.Context, users []shop.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, users...)

	return nil
}

// ItemPrices returns the configured snapshot or one entry per inserted item with ids starting at 1.
func (s *StoreFake) ItemPrices(_ context.Context) ([]shop.ItemPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.itemPricesErr != nil {
		return nil, s.itemPricesErr
	}

	if s.itemPrices != nil {
		return s.itemPrices, nil
	}

	prices := make([]shop.ItemPrice, 0, len(s.items))
	for i, item := range s.items {
		prices = append(prices, shop.ItemPrice{ItemID: int64(i + 1), Price: item.Price})
	}

	return prices, nil
}

// InsertPurchase keeps the purchase in memory and returns its 1-based row id.
func (s *StoreFake) InsertPurchase(_ context.Context, purchase shop.Purchase) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return 0, s.insertErr
	}

	s.purchases = append(s.purchases, purchase)

	return int64(len(s.purchases)), nil
}

// Close marks the fake as closed.
func (s *StoreFake) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	return s.closeErr
}

// Purchases returns a copy of the inserted purchases.
func (s *StoreFake) Purchases() []shop.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchases := make([]shop.Purchase, len(s.purchases))
	copy(purchases, s.purchases)

	return purchases
}

// ItemCount returns the number of inserted items.
func (s *StoreFake) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

// UserCount returns the number of inserted users.
func (s *StoreFake) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.users)
}

// Bootstrapped reports whether Bootstrap succeeded.
func (s *StoreFake) Bootstrapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bootstrapped
}

// Closed reports whether Close was called.
func (s *StoreFake) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
