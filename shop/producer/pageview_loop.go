package producer

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

// PageviewLoopConfig holds the collaborators and id bounds of a PageviewLoop.
type PageviewLoopConfig struct {
	Publisher Publisher
	Topic     string
	UserCount int
	ItemCount int
}

// PageviewLoop publishes one random pageview per tick.
type PageviewLoop struct {
	loop
	counters

	publisher Publisher
	topic     string
	userCount int64
	itemCount int64
}

// NewPageviewLoop validates the config and creates a PageviewLoop.
func NewPageviewLoop(config PageviewLoopConfig, options ...Option) (*PageviewLoop, error) {
	if config.Publisher == nil {
		return nil, ErrNilPublisher
	}

	if config.Topic == "" {
		return nil, ErrEmptyTopic
	}

	if config.UserCount <= 0 {
		return nil, shop.ErrInvalidUserCount
	}

	if config.ItemCount <= 0 {
		return nil, shop.ErrInvalidItemCount
	}

	l, err := newLoop(options)
	if err != nil {
		return nil, err
	}

	return &PageviewLoop{
		loop:      l,
		publisher: config.Publisher,
		topic:     config.Topic,
		userCount: int64(config.UserCount),
		itemCount: int64(config.ItemCount),
	}, nil
}

// Name returns the loop name used in logs and metrics.
func (l *PageviewLoop) Name() string {
	return pageviewLoopName
}

// Tick publishes a pageview of a random viewer on a random product or profile page.
// Viewer and target ids are drawn with both bounds included.
func (l *PageviewLoop) Tick(ctx context.Context) error {
	viewerID := l.factory.RandomID(l.userCount)
	pageType := l.factory.RandomPageType()

	targetBound := l.userCount
	if pageType == shop.PageTypeProducts {
		targetBound = l.itemCount
	}

	pageview := l.factory.MakePageview(viewerID, l.factory.RandomID(targetBound), pageType)

	started := time.Now()
	err := l.publisher.Publish(ctx, l.topic, userKey(viewerID), pageview)
	l.record(ctx, metricPageviews, metricPublish, pageviewLoopName, err, time.Since(started))

	if err != nil {
		l.failedPublishes.Add(1)
		l.logWarn(ctx, logMsgPublishFailed,
			logAttrLoop, pageviewLoopName,
			logAttrTopic, l.topic,
			logAttrURL, pageview.URL,
			logAttrError, err.Error(),
		)

		return errors.Join(ErrPublishFailed, err)
	}

	l.pageviews.Add(1)
	l.logDebug(ctx, logMsgPageviewPublished, logAttrLoop, pageviewLoopName, logAttrURL, pageview.URL)

	return nil
}

// Counters returns what the loop emitted so far.
func (l *PageviewLoop) Counters() Counters {
	return l.snapshot()
}
