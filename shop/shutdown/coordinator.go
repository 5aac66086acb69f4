package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const (
	logMsgStopRequested   = "stop requested"
	logMsgSignalIgnored   = "stop already requested, ignoring signal"
	logMsgSignalReceived  = "received signal"
	logAttrReason         = "reason"
	logAttrSignal         = "signal"
	reasonParentCancelled = "parent context canceled"
)

// DefaultSignals are the signals ListenForSignals reacts to when none are given.
var DefaultSignals = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}

// Option defines a functional option for configuring a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for stop requests and received signals.
func WithLogger(logger shop.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// Coordinator holds the stop signal: unset at start, set exactly once, never reset.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	mu     sync.RWMutex
	reason string
	logger shop.Logger
}

// NewCoordinator creates a Coordinator whose context is derived from parent.
// Canceling parent counts as a stop request.
func NewCoordinator(parent context.Context, options ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(parent)

	c := &Coordinator{ctx: ctx, cancel: cancel}
	for _, option := range options {
		option(c)
	}

	go func() {
		<-ctx.Done()
		c.RequestStop(reasonParentCancelled)
	}()

	return c
}

// RequestStop sets the stop signal. Only the first call has an effect; later calls are no-ops.
func (c *Coordinator) RequestStop(reason string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()

		if c.logger != nil {
			c.logger.Info(logMsgStopRequested, logAttrReason, reason)
		}

		c.cancel()
	})
}

// Context is done once stop was requested.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Stopped reports whether stop was requested.
func (c *Coordinator) Stopped() bool {
	return c.ctx.Err() != nil
}

// Reason returns the reason passed with the first stop request, or "" while running.
func (c *Coordinator) Reason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.reason
}

// ListenForSignals requests stop on the first of the given signals, DefaultSignals if none.
// Further signals are logged and otherwise ignored. The returned function stops listening.
func (c *Coordinator) ListenForSignals(signals ...os.Signal) (stop func()) {
	if len(signals) == 0 {
		signals = DefaultSignals
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	done := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-ch:
				c.handleSignal(sig)
			}
		}
	}()

	return func() {
		stopOnce.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

func (c *Coordinator) handleSignal(sig os.Signal) {
	if c.Stopped() {
		if c.logger != nil {
			c.logger.Warn(logMsgSignalIgnored, logAttrSignal, sig.String())
		}

		return
	}

	if c.logger != nil {
		c.logger.Info(logMsgSignalReceived, logAttrSignal, sig.String())
	}

	c.RequestStop("signal " + sig.String())
}
