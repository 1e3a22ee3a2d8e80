package query

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrFetchFailed wraps any error returned by a fetch, including aborts.
var ErrFetchFailed = errors.New("fetch failed")

// FetchFunc retrieves a result set for one configuration.
type FetchFunc[C, R any] func(ctx context.Context, cfg C) (R, error)

// Option configures a Coalescer.
type Option[C, R any] func(*Coalescer[C, R])

// OnResult is called with every final result. Superseded results are dropped.
// Repeated OnResult options are all called, in the order given.
func OnResult[C, R any](fn func(cfg C, res R)) Option[C, R] {
	return func(c *Coalescer[C, R]) {
		prev := c.onResult
		if prev == nil {
			c.onResult = fn
			return
		}
		c.onResult = func(cfg C, res R) {
			prev(cfg, res)
			fn(cfg, res)
		}
	}
}

// OnError is called when the final fetch of a sequence fails. The error wraps
// ErrFetchFailed.
func OnError[C, R any](fn func(cfg C, err error)) Option[C, R] {
	return func(c *Coalescer[C, R]) {
		prev := c.onError
		if prev == nil {
			c.onError = fn
			return
		}
		c.onError = func(cfg C, err error) {
			prev(cfg, err)
			fn(cfg, err)
		}
	}
}

// OnStateChange is called after every start and settle, useful for loading
// indicators.
func OnStateChange[C, R any](fn func(State)) Option[C, R] {
	return func(c *Coalescer[C, R]) {
		prev := c.onState
		if prev == nil {
			c.onState = fn
			return
		}
		c.onState = func(s State) {
			prev(s)
			fn(s)
		}
	}
}

func WithLogger[C, R any](logger *zap.Logger) Option[C, R] {
	return func(c *Coalescer[C, R]) { c.logger = logger }
}

func WithName[C, R any](name string) Option[C, R] {
	return func(c *Coalescer[C, R]) { c.name = name }
}

// Coalescer runs fetches in goroutines under a Gate. Request may be called
// from any goroutine, including from inside the callbacks.
type Coalescer[C, R any] struct {
	fetch    FetchFunc[C, R]
	onResult func(C, R)
	onError  func(C, error)
	onState  func(State)
	logger   *zap.Logger
	name     string

	base      context.Context
	cancelAll context.CancelFunc

	mu     sync.Mutex
	gate   Gate[C]
	cancel context.CancelFunc
	idle   chan struct{}
	closed bool

	// deliverMu orders callbacks; delivered is the newest generation handed out.
	deliverMu sync.Mutex
	delivered uint64
}

func NewCoalescer[C, R any](fetch FetchFunc[C, R], opts ...Option[C, R]) *Coalescer[C, R] {
	base, cancel := context.WithCancel(context.Background())
	c := &Coalescer[C, R]{
		fetch:     fetch,
		logger:    zap.NewNop(),
		name:      "query",
		base:      base,
		cancelAll: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request asks for cfg to be fetched. If a fetch is running it is cancelled
// and exactly one follow-up will run once it settles.
func (c *Coalescer[C, R]) Request(cfg C) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	ticket, start := c.gate.Request(cfg)
	if start {
		if c.idle == nil {
			c.idle = make(chan struct{})
		}
		c.launch(ticket)
	} else if c.cancel != nil {
		c.cancel()
	}
	state := c.gate.State()
	c.mu.Unlock()

	if start {
		c.logger.Debug("query started", zap.String("widget", c.name), zap.Uint64("gen", ticket.Gen))
	} else {
		c.logger.Debug("query follow-up owed", zap.String("widget", c.name))
	}
	c.notify(state)
}

// launch must be called with c.mu held.
func (c *Coalescer[C, R]) launch(t Ticket[C]) {
	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel
	go c.run(ctx, cancel, t)
}

func (c *Coalescer[C, R]) run(ctx context.Context, cancel context.CancelFunc, t Ticket[C]) {
	res, err := c.fetch(ctx, t.Config)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	c.mu.Lock()
	final, next, start := c.gate.Settle(t.Gen)
	if start {
		c.launch(next)
	} else if !c.gate.Active() {
		c.cancel = nil
	}
	state := c.gate.State()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("query failed",
			zap.String("widget", c.name),
			zap.Uint64("gen", t.Gen),
			zap.Bool("final", final),
			zap.Error(err))
	}
	if final {
		c.deliver(t, res, err)
	}
	if start {
		c.logger.Debug("query follow-up started", zap.String("widget", c.name), zap.Uint64("gen", next.Gen))
	}
	c.notify(state)

	// Waiters are released only after the result has been handed out.
	c.mu.Lock()
	if !c.gate.Active() && c.idle != nil {
		close(c.idle)
		c.idle = nil
	}
	c.mu.Unlock()
}

func (c *Coalescer[C, R]) deliver(t Ticket[C], res R, err error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if t.Gen <= c.delivered {
		return
	}
	c.delivered = t.Gen
	if err != nil {
		if c.onError != nil {
			c.onError(t.Config, err)
		}
		return
	}
	if c.onResult != nil {
		c.onResult(t.Config, res)
	}
}

func (c *Coalescer[C, R]) notify(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}

// Loading reports whether a fetch is outstanding.
func (c *Coalescer[C, R]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate.Active()
}

func (c *Coalescer[C, R]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate.State()
}

// Wait blocks until no fetch is outstanding or ctx is done.
func (c *Coalescer[C, R]) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		idle := c.idle
		c.mu.Unlock()
		if idle == nil {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels any running fetch and ignores further requests. Results that
// arrive afterwards are still settled but never delivered.
func (c *Coalescer[C, R]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancelAll()
	c.deliverMu.Lock()
	c.delivered = ^uint64(0)
	c.deliverMu.Unlock()
}
