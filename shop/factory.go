package shop

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const (
	minPurchaseQuantity = 1
	maxPurchaseQuantity = 5
)

// Rand is the random source the EventFactory draws from.
// *rand.Rand from math/rand/v2 satisfies it, but is not safe for concurrent use.
type Rand interface {
	IntN(n int) int
	Int64N(n int64) int64
}

// globalRand uses the concurrency-safe top-level functions of math/rand/v2.
type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n) //nolint:gosec // synthetic load - weak random is acceptable
}

func (globalRand) Int64N(n int64) int64 {
	return rand.Int64N(n) //nolint:gosec // synthetic load - weak random is acceptable
}

// EventFactory builds synthetic pageview and purchase records.
// It holds no state besides its random source and clock.
type EventFactory struct {
	rand Rand
	now  func() time.Time
}

// FactoryOption defines a functional option for configuring EventFactory.
type FactoryOption func(*EventFactory)

// WithRand sets the random source. The source must be safe for concurrent use
// if the factory is shared between producer loops.
func WithRand(r Rand) FactoryOption {
	return func(f *EventFactory) {
		f.rand = r
	}
}

// WithClock sets the clock used to stamp pageviews.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *EventFactory) {
		f.now = now
	}
}

// NewEventFactory creates an EventFactory using the global math/rand/v2 source and time.Now by default.
func NewEventFactory(options ...FactoryOption) EventFactory {
	f := EventFactory{
		rand: globalRand{},
		now:  time.Now,
	}

	for _, option := range options {
		option(&f)
	}

	return f
}

// MakePageview builds a pageview of viewerID on "/{pageType}/{targetID}" with a random channel.
func (f EventFactory) MakePageview(viewerID, targetID int64, pageType PageType) Pageview {
	return Pageview{
		UserID:     viewerID,
		URL:        PageviewURL(pageType, targetID),
		Channel:    Channels[f.rand.IntN(len(Channels))],
		ReceivedAt: f.now().Unix(),
	}
}

// MakePurchase picks an item from pool, a user in [0, userCount) and a quantity in [1, 5].
// The purchase price is the item's unit price times the quantity.
//
// The pool must not be empty and userCount must be positive; producer loops validate both
// when they are constructed.
func (f EventFactory) MakePurchase(pool []ItemPrice, userCount int) Purchase {
	item := pool[f.rand.IntN(len(pool))]
	quantity := minPurchaseQuantity + f.rand.IntN(maxPurchaseQuantity-minPurchaseQuantity+1)

	return Purchase{
		UserID:        f.rand.Int64N(int64(userCount)),
		ItemID:        item.ItemID,
		Quantity:      quantity,
		PurchasePrice: item.Price.Times(quantity),
	}
}

// RandomPageType picks products or profiles.
func (f EventFactory) RandomPageType() PageType {
	return PageTypes[f.rand.IntN(len(PageTypes))]
}

// RandomID picks an id in [0, upTo], both ends included.
func (f EventFactory) RandomID(upTo int64) int64 {
	if upTo <= 0 {
		return 0
	}

	return f.rand.Int64N(upTo + 1)
}

// PageviewURL renders "/{pageType}/{targetID}".
func PageviewURL(pageType PageType, targetID int64) string {
	return "/" + string(pageType) + "/" + strconv.FormatInt(targetID, 10)
}
