// Package orders holds the client-side controller for the order list: the
// in-memory projection of the server's order collection plus the pending
// create form.
//
// The projection is never patched locally. Every successful create or delete
// is followed by a full re-read, and whichever read resolves last wins.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dharsanguruparan/IntakeDesk/internal/logger"
	"github.com/dharsanguruparan/IntakeDesk/internal/model"
)

var (
	// ErrSubmitInFlight is returned by Submit while a previous create has not
	// resolved. No request is issued.
	ErrSubmitInFlight = errors.New("order submission already in progress")
	// ErrClosed is returned once the controller has been torn down. Results
	// that arrive afterwards are discarded.
	ErrClosed = errors.New("order controller closed")
)

// API is the slice of the HTTP client the controller needs.
type API interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
	CreateOrder(ctx context.Context, req model.CreateOrderRequest) error
	DeleteOrder(ctx context.Context, id int64) error
}

// State is a point-in-time copy of the controller used for rendering.
type State struct {
	Orders     []model.Order
	Loaded     bool
	Draft      model.OrderDraft
	Submitting bool
	Err        error
}

// Controller owns the order list projection and the draft form.
type Controller struct {
	api      API
	log      logger.AppLogger
	onChange func()

	life context.Context
	stop context.CancelFunc

	mu         sync.Mutex
	orders     []model.Order
	loaded     bool
	draft      model.OrderDraft
	submitting bool
	err        error
	// submitErr is the last create failure. It stays until the next Submit
	// so a refresh does not hide it while the draft is still unsent.
	submitErr error
	closed    bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.AppLogger) Option {
	return func(c *Controller) { c.log = l }
}

// WithOnChange registers a callback run after every state change. It is
// called without the controller lock held, so it may call State.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// New constructs a Controller with an empty list and the default draft.
func New(api API, opts ...Option) *Controller {
	life, stop := context.WithCancel(context.Background())
	c := &Controller{
		api:    api,
		log:    logger.Discard(),
		life:   life,
		stop:   stop,
		orders: []model.Order{},
		draft:  model.EmptyDraft(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(slog.String("component", "orders"))
	return c
}

// Activate performs the initial load.
func (c *Controller) Activate(ctx context.Context) error {
	return c.Refresh(ctx)
}

// Refresh reads the full collection and replaces the projection wholesale.
// On failure the previous list is kept and the error is recorded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	ctx, done := c.scope(ctx)
	defer done()

	orders, err := c.api.ListOrders(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		err = fmt.Errorf("refresh orders: %w", err)
		c.err = err
		c.mu.Unlock()
		c.log.Error("order refresh failed", err)
		c.notify()
		return err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	c.orders = orders
	c.loaded = true
	c.err = nil
	c.mu.Unlock()
	c.notify()
	return nil
}

// Submit sends the current draft as a new order. Only one submission may be
// outstanding; the guard is released on every return path. On success the
// draft is reset and the list re-read. On failure the draft is kept so the
// operator can retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.submitting = true
	c.submitErr = nil
	req := c.draft.Request()
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.submitting = false
		c.mu.Unlock()
		c.notify()
	}()

	ctx, done := c.scope(ctx)
	defer done()

	if err := c.api.CreateOrder(ctx, req); err != nil {
		err = fmt.Errorf("create order: %w", err)
		c.mu.Lock()
		closed := c.closed
		if !closed {
			c.submitErr = err
		}
		c.mu.Unlock()
		if closed {
			return ErrClosed
		}
		c.log.Error("order create failed", err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.draft = model.EmptyDraft()
	c.mu.Unlock()
	c.notify()

	return c.Refresh(ctx)
}

// Remove deletes the order and then re-reads the list whether or not the
// delete succeeded. The row disappears only when the server's list no longer
// contains it. Concurrent removes are allowed.
func (c *Controller) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	ctx, done := c.scope(ctx)
	defer done()

	delErr := c.api.DeleteOrder(ctx, id)
	refreshErr := c.Refresh(ctx)
	if errors.Is(refreshErr, ErrClosed) {
		return ErrClosed
	}
	if delErr == nil {
		return refreshErr
	}

	delErr = fmt.Errorf("delete order %d: %w", id, delErr)
	c.log.Error("order delete failed", delErr, slog.Int64("order_id", id))
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.err = delErr
	c.mu.Unlock()
	c.notify()
	if refreshErr != nil {
		return errors.Join(delErr, refreshErr)
	}
	return delErr
}

// UpdateDraft applies fn to the draft form.
func (c *Controller) UpdateDraft(fn func(*model.OrderDraft)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fn(&c.draft)
	c.mu.Unlock()
	c.notify()
}

// Draft returns the current draft.
func (c *Controller) Draft() model.OrderDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// State returns a copy of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	orders := make([]model.Order, len(c.orders))
	copy(orders, c.orders)
	return State{
		Orders:     orders,
		Loaded:     c.loaded,
		Draft:      c.draft,
		Submitting: c.submitting,
		Err:        c.currentErr(),
	}
}

// currentErr is the error shown with the list. A pending create failure is
// reported alongside any later refresh or delete failure. Callers hold c.mu.
func (c *Controller) currentErr() error {
	switch {
	case c.submitErr == nil:
		return c.err
	case c.err == nil:
		return c.submitErr
	default:
		return errors.Join(c.submitErr, c.err)
	}
}

// Close tears the controller down. In-flight requests are cancelled and any
// response that still arrives is dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.stop()
}

// scope derives a request context that is also cancelled when the
// controller closes.
func (c *Controller) scope(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(c.life, cancel)
	return ctx, func() {
		stopAfter()
		cancel()
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
