package producer

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const (
	metricPurchases         = "loadgen_purchases_total"
	metricPageviews         = "loadgen_pageviews_total"
	metricPurchaseInsert    = "loadgen_purchase_insert_duration_seconds"
	metricPublish           = "loadgen_publish_duration_seconds"
	labelLoop               = "loop"
	labelStatus             = "status"
	logMsgPublishFailed     = "publish pageview failed"
	logMsgInsertFailed      = "insert purchase failed"
	logMsgPurchaseInserted  = "purchase inserted"
	logMsgPageviewPublished = "pageview published"
	logAttrLoop             = "loop"
	logAttrError            = "error"
	logAttrTopic            = "topic"
	logAttrUserID           = "user_id"
	logAttrItemID           = "item_id"
	logAttrPurchaseID       = "purchase_id"
	logAttrURL              = "url"
	logAttrPurchasePrice    = "purchase_price"
	logAttrQuantity         = "quantity"
	logAttrDurationMS       = "duration_ms"
	purchaseLoopName        = "purchases"
	pageviewLoopName        = "pageviews"
)

var ErrNilStore = errors.New("purchase store must not be nil")
var ErrNilPublisher = errors.New("publisher must not be nil")
var ErrEmptyTopic = errors.New("topic must not be empty")
var ErrPublishFailed = errors.New("publish pageview failed")
var ErrInsertFailed = errors.New("insert purchase failed")

// PurchaseStore persists purchases. The purchase must be committed when InsertPurchase returns.
type PurchaseStore interface {
	InsertPurchase(ctx context.Context, purchase shop.Purchase) (int64, error)
}

// Publisher delivers one message to the message stream.
// Implementations must be safe for concurrent use, both loops share one.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
}

// Counters is a snapshot of what a loop emitted so far.
type Counters struct {
	Purchases       int64
	Pageviews       int64
	FailedInserts   int64
	FailedPublishes int64
}

type counters struct {
	purchases       atomic.Int64
	pageviews       atomic.Int64
	failedInserts   atomic.Int64
	failedPublishes atomic.Int64
}

func (c *counters) snapshot() Counters {
	return Counters{
		Purchases:       c.purchases.Load(),
		Pageviews:       c.pageviews.Load(),
		FailedInserts:   c.failedInserts.Load(),
		FailedPublishes: c.failedPublishes.Load(),
	}
}

// userKey is the message key of a pageview: the user id as decimal ASCII.
func userKey(userID int64) []byte {
	return strconv.AppendInt(nil, userID, 10)
}
