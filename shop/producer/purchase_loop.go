package producer

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

// PurchaseLoopConfig holds the collaborators and inputs of a PurchaseLoop.
type PurchaseLoopConfig struct {
	Store      PurchaseStore
	Publisher  Publisher
	Topic      string
	ItemPrices []shop.ItemPrice
	UserCount  int
}

// PurchaseLoop emits one purchase per tick.
type PurchaseLoop struct {
	loop
	counters

	store     PurchaseStore
	publisher Publisher
	topic     string
	prices    []shop.ItemPrice
	userCount int
}

// NewPurchaseLoop validates the config and creates a PurchaseLoop.
// The item price snapshot is only read, never modified.
func NewPurchaseLoop(config PurchaseLoopConfig, options ...Option) (*PurchaseLoop, error) {
	if config.Store == nil {
		return nil, ErrNilStore
	}

	if config.Publisher == nil {
		return nil, ErrNilPublisher
	}

	if config.Topic == "" {
		return nil, ErrEmptyTopic
	}

	if len(config.ItemPrices) == 0 {
		return nil, shop.ErrEmptyItemPricePool
	}

	if config.UserCount <= 0 {
		return nil, shop.ErrInvalidUserCount
	}

	l, err := newLoop(options)
	if err != nil {
		return nil, err
	}

	return &PurchaseLoop{
		loop:      l,
		store:     config.Store,
		publisher: config.Publisher,
		topic:     config.Topic,
		prices:    config.ItemPrices,
		userCount: config.UserCount,
	}, nil
}

// Name returns the loop name used in logs and metrics.
func (l *PurchaseLoop) Name() string {
	return purchaseLoopName
}

// Tick makes a purchase, publishes the pageview that led to it and inserts the purchase.
//
// The pageview is published first. A failed publish is logged and the purchase is inserted
// anyway; the returned error joins both failures.
func (l *PurchaseLoop) Tick(ctx context.Context) error {
	purchase := l.factory.MakePurchase(l.prices, l.userCount)
	pageview := l.factory.MakePageview(purchase.UserID, purchase.ItemID, shop.PageTypeProducts)

	var errs []error

	if err := l.publish(ctx, pageview); err != nil {
		errs = append(errs, err)
	}

	if err := l.insert(ctx, purchase); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Counters returns what the loop emitted so far.
func (l *PurchaseLoop) Counters() Counters {
	return l.snapshot()
}

func (l *PurchaseLoop) publish(ctx context.Context, pageview shop.Pageview) error {
	started := time.Now()
	err := l.publisher.Publish(ctx, l.topic, userKey(pageview.UserID), pageview)
	l.record(ctx, metricPageviews, metricPublish, purchaseLoopName, err, time.Since(started))

	if err != nil {
		l.failedPublishes.Add(1)
		l.logWarn(ctx, logMsgPublishFailed,
			logAttrLoop, purchaseLoopName,
			logAttrTopic, l.topic,
			logAttrURL, pageview.URL,
			logAttrError, err.Error(),
		)

		return errors.Join(ErrPublishFailed, err)
	}

	l.pageviews.Add(1)

	return nil
}

func (l *PurchaseLoop) insert(ctx context.Context, purchase shop.Purchase) error {
	started := time.Now()
	id, err := l.store.InsertPurchase(ctx, purchase)
	duration := time.Since(started)
	l.record(ctx, metricPurchases, metricPurchaseInsert, purchaseLoopName, err, duration)

	if err != nil {
		l.failedInserts.Add(1)
		l.logWarn(ctx, logMsgInsertFailed,
			logAttrLoop, purchaseLoopName,
			logAttrUserID, purchase.UserID,
			logAttrItemID, purchase.ItemID,
			logAttrError, err.Error(),
		)

		return errors.Join(ErrInsertFailed, err)
	}

	l.purchases.Add(1)
	l.logDebug(ctx, logMsgPurchaseInserted,
		logAttrPurchaseID, id,
		logAttrUserID, purchase.UserID,
		logAttrItemID, purchase.ItemID,
		logAttrQuantity, purchase.Quantity,
		logAttrPurchasePrice, purchase.PurchasePrice.String(),
		logAttrDurationMS, toMilliseconds(duration),
	)

	return nil
}
