package shop_test

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

func Test_EventFactory_MakePurchase_PriceIsAlwaysUnitPriceTimesQuantity(t *testing.T) {
	// setup
	factory := shop.NewEventFactory(shop.WithRand(rand.New(rand.NewPCG(1, 2)))) //nolint:gosec
	pool := []shop.ItemPrice{
		{ItemID: 1, Price: shop.Cents(499)},
		{ItemID: 2, Price: shop.Cents(50000)},
		{ItemID: 3, Price: shop.Cents(1234)},
	}
	prices := map[int64]shop.Money{1: shop.Cents(499), 2: shop.Cents(50000), 3: shop.Cents(1234)}

	for range 1000 {
		// act
		purchase := factory.MakePurchase(pool, 10)

		// assert
		unitPrice, known := prices[purchase.ItemID]
		require.True(t, known, "purchase references an item outside the pool")
		assert.Equal(t, unitPrice.Times(purchase.Quantity), purchase.PurchasePrice)
		assert.GreaterOrEqual(t, purchase.Quantity, 1)
		assert.LessOrEqual(t, purchase.Quantity, 5)
		assert.GreaterOrEqual(t, purchase.UserID, int64(0))
		assert.Less(t, purchase.UserID, int64(10))
	}
}

func Test_EventFactory_MakePurchase_WithSingleItemPool(t *testing.T) {
	// setup
	factory := shop.NewEventFactory()
	pool := []shop.ItemPrice{{ItemID: 7, Price: shop.Cents(1000)}}
	allowed := map[shop.Money]bool{
		shop.Cents(1000): true,
		shop.Cents(2000): true,
		shop.Cents(3000): true,
		shop.Cents(4000): true,
		shop.Cents(5000): true,
	}

	for range 100 {
		// act
		purchase := factory.MakePurchase(pool, 10000)

		// assert
		assert.Equal(t, int64(7), purchase.ItemID)
		assert.True(t, allowed[purchase.PurchasePrice], "unexpected purchase price %s", purchase.PurchasePrice)
	}
}

func Test_EventFactory_MakePageview_URLAndChannel(t *testing.T) {
	// setup
	fakeClock := time.Unix(1700000000, 0)
	factory := shop.NewEventFactory(shop.WithClock(func() time.Time { return fakeClock }))
	urlPattern := regexp.MustCompile(`^/(products|profiles)/[0-9]+$`)
	channels := make(map[shop.Channel]bool)
	for _, channel := range shop.Channels {
		channels[channel] = true
	}

	for i := range 500 {
		pageType := shop.PageTypes[i%2]

		// act
		pageview := factory.MakePageview(42, int64(i), pageType)

		// assert
		assert.Equal(t, shop.PageviewURL(pageType, int64(i)), pageview.URL)
		assert.Regexp(t, urlPattern, pageview.URL)
		assert.True(t, channels[pageview.Channel], "unexpected channel %q", pageview.Channel)
		assert.Equal(t, int64(42), pageview.UserID)
		assert.Equal(t, fakeClock.Unix(), pageview.ReceivedAt)
	}
}

func Test_PageviewURL(t *testing.T) {
	assert.Equal(t, "/products/17", shop.PageviewURL(shop.PageTypeProducts, 17))
	assert.Equal(t, "/profiles/0", shop.PageviewURL(shop.PageTypeProfiles, 0))
}

func Test_EventFactory_RandomID_StaysWithinInclusiveBounds(t *testing.T) {
	// setup
	factory := shop.NewEventFactory(shop.WithRand(rand.New(rand.NewPCG(3, 4)))) //nolint:gosec
	seen := make(map[int64]bool)

	// act
	for range 2000 {
		id := factory.RandomID(3)
		assert.GreaterOrEqual(t, id, int64(0))
		assert.LessOrEqual(t, id, int64(3))
		seen[id] = true
	}

	// assert
	assert.Len(t, seen, 4, "every id in [0, 3] should be drawn eventually")
	assert.Equal(t, int64(0), factory.RandomID(0))
}

func Test_EventFactory_RandomPageType(t *testing.T) {
	factory := shop.NewEventFactory()

	for range 100 {
		assert.Contains(t, shop.PageTypes, factory.RandomPageType())
	}
}
