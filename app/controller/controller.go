package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"nuclight.org/tgweb/pkg/emitter"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

var tracer = otel.Tracer("nuclight.org/tgweb/app/controller")

// EventClass names one of the two listener namespaces.
type EventClass string

const (
	ClassUpdate       EventClass = "update"
	ClassClientUpdate EventClass = "clientUpdate"
)

// Engine is a connection to the messaging engine. Payloads are JSON objects.
type Engine interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
}

// Poster schedules work on the UI task queue.
type Poster interface {
	Post(task func())
}

// Journal records the outcome of every request.
type Journal interface {
	SaveRequest(ctx context.Context, requestType string) (int64, error)
	SaveResult(ctx context.Context, id int64, resultType string) error
	SaveError(ctx context.Context, id int64, code int32, message string, fatal bool) error
}

type pendingRequest struct {
	future    *Future[td.Response]
	reqType   string
	journalID int64
	settled   atomic.Bool
}

type Controller struct {
	Journal Journal
	Metrics *Metrics

	log    logger.Logger
	engine Engine
	queue  Poster

	extra atomic.Int64

	mu      sync.Mutex
	pending map[int64]*pendingRequest
	closed  error

	fatalReported atomic.Bool

	updates       *emitter.Emitter[td.Update]
	clientUpdates *emitter.Emitter[td.ClientUpdate]
}

func New(log logger.Logger, engine Engine, queue Poster) *Controller {
	return &Controller{
		log:           log,
		engine:        engine,
		queue:         queue,
		pending:       make(map[int64]*pendingRequest),
		updates:       emitter.New[td.Update](),
		clientUpdates: emitter.New[td.ClientUpdate](),
	}
}

// Send sends one request and waits for its response. Error responses from the
// engine are returned as *td.Error.
func (c *Controller) Send(ctx context.Context, req td.Request) (td.Response, error) {
	ctx, span := tracer.Start(ctx, "td."+req.Type(), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	resp, err := c.send(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("td.severity", Classify(err).String()))
	}

	return resp, err
}

func (c *Controller) send(ctx context.Context, req td.Request) (td.Response, error) {
	extra := c.extra.Inc()
	log := c.log.With("td_type", req.Type(), "td_extra", extra)

	payload, err := td.EncodeRequest(req, extra)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", req.Type(), err)
	}

	p := &pendingRequest{
		future:    NewFuture[td.Response](),
		reqType:   req.Type(),
		journalID: c.journalRequest(ctx, req.Type()),
	}

	c.mu.Lock()
	if c.closed != nil {
		err := c.closed
		c.mu.Unlock()
		c.settle(ctx, p, nil, err)
		return nil, err
	}
	c.pending[extra] = p
	c.Metrics.setInFlight(len(c.pending))
	c.mu.Unlock()

	log.Debug("sending request")

	if err := c.engine.Send(ctx, payload); err != nil {
		c.forget(extra)
		if ctx.Err() == nil {
			err = &EngineError{Op: "send", Err: err}
		}
		c.settle(ctx, p, nil, err)
		return nil, err
	}

	resp, err := p.future.Get(ctx)
	if err != nil {
		// A late response for a forgotten request is dropped by the receive loop.
		if c.forget(extra) {
			c.settle(ctx, p, nil, err)
		}
		return nil, err
	}

	return resp, nil
}

// Call sends req and asserts the response type.
func Call[T td.Response](ctx context.Context, c *Controller, req td.Request) (T, error) {
	var zero T

	resp, err := c.Send(ctx, req)
	if err != nil {
		return zero, err
	}

	v, ok := resp.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected %s response to %s", resp.Type(), req.Type())
	}

	return v, nil
}

// SendAsync sends req in the background.
func (c *Controller) SendAsync(ctx context.Context, req td.Request) *Future[td.Response] {
	f := NewFuture[td.Response]()

	go func() {
		resp, err := c.Send(ctx, req)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(resp)
	}()

	return f
}

// SendThen sends req in the background and runs fn on the task queue once it
// settles. fn must check that its owner is still alive.
func (c *Controller) SendThen(ctx context.Context, req td.Request, fn func(td.Response, error)) {
	go func() {
		resp, err := c.Send(ctx, req)
		c.queue.Post(func() {
			fn(resp, err)
		})
	}()
}

// ClientUpdate delivers u to every clientUpdate listener before returning.
func (c *Controller) ClientUpdate(u td.ClientUpdate) {
	c.Metrics.clientUpdate(u.Type())

	if err := c.clientUpdates.Emit(string(ClassClientUpdate), u); err != nil {
		c.Metrics.listenerError(ClassClientUpdate)
		c.log.Error("dispatching client update", "td_type", u.Type(), "error", err)
	}
}

// DispatchUpdate delivers an engine update to every update listener.
func (c *Controller) DispatchUpdate(u td.Update) {
	if err := c.updates.Emit(string(ClassUpdate), u); err != nil {
		c.Metrics.listenerError(ClassUpdate)
		c.log.Error("dispatching update", "td_type", u.Type(), "error", err)
	}
}

func (c *Controller) OnUpdate(h emitter.Handler[td.Update]) *emitter.Subscription {
	return c.updates.On(string(ClassUpdate), h)
}

func (c *Controller) OnClientUpdate(h emitter.Handler[td.ClientUpdate]) *emitter.Subscription {
	return c.clientUpdates.On(string(ClassClientUpdate), h)
}

// AddListener subscribes h to one namespace by name.
func (c *Controller) AddListener(class EventClass, h emitter.Handler[td.Object]) (*emitter.Subscription, error) {
	switch class {
	case ClassUpdate:
		return c.OnUpdate(func(u td.Update) error { return h(u) }), nil
	case ClassClientUpdate:
		return c.OnClientUpdate(func(u td.ClientUpdate) error { return h(u) }), nil
	default:
		return nil, fmt.Errorf("unknown event class %q", class)
	}
}

func (c *Controller) RemoveListener(sub *emitter.Subscription) {
	sub.Unsubscribe()
}

// ListenerCount reports how many listeners a namespace has.
func (c *Controller) ListenerCount(class EventClass) int {
	switch class {
	case ClassUpdate:
		return c.updates.ListenerCount(string(ClassUpdate))
	case ClassClientUpdate:
		return c.clientUpdates.ListenerCount(string(ClassClientUpdate))
	default:
		return 0
	}
}

// Pending reports how many requests are waiting for a response.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// Run receives from the engine until ctx ends or the engine fails. Responses
// settle their requests directly; updates are posted to the task queue.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info("receive loop started")

	for {
		raw, err := c.engine.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.shutdown(ctx, ErrClosed)
				return nil
			}

			err = &EngineError{Op: "receive", Err: err}
			c.log.Error("receiving from engine", "error", err)
			c.shutdown(ctx, err)
			c.reportFatal(err)
			return err
		}

		c.handle(ctx, raw)
	}
}

func (c *Controller) handle(ctx context.Context, raw []byte) {
	if extra, ok := td.PeekExtra(raw); ok {
		c.resolve(ctx, extra, raw)
		return
	}

	u, err := td.DecodeUpdate(raw)
	if err != nil {
		c.log.Warn("decoding update", "error", err)
		return
	}

	if unknown, ok := u.(*td.UnknownUpdate); ok {
		c.log.Debug("unknown update", "td_type", unknown.TypeName)
	}

	c.Metrics.update(u.Type())
	c.queue.Post(func() {
		c.DispatchUpdate(u)
	})
}

func (c *Controller) resolve(ctx context.Context, extra int64, raw []byte) {
	c.mu.Lock()
	p, ok := c.pending[extra]
	delete(c.pending, extra)
	c.Metrics.setInFlight(len(c.pending))
	c.mu.Unlock()

	if !ok {
		c.log.Debug("dropping response without pending request", "td_extra", extra)
		return
	}

	resp, err := td.DecodeResponse(raw)
	switch {
	case err != nil:
		c.settle(ctx, p, nil, fmt.Errorf("decoding %s response: %w", p.reqType, err))
	case resp.Type() == td.TypeError:
		c.settle(ctx, p, nil, resp.(*td.Error))
	default:
		c.settle(ctx, p, resp, nil)
	}
}

func (c *Controller) forget(extra int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.pending[extra]
	delete(c.pending, extra)
	c.Metrics.setInFlight(len(c.pending))

	return ok
}

// shutdown rejects every pending request with err and refuses new ones.
func (c *Controller) shutdown(ctx context.Context, err error) {
	c.mu.Lock()
	if c.closed == nil {
		c.closed = err
	}
	pending := c.pending
	c.pending = make(map[int64]*pendingRequest)
	c.Metrics.setInFlight(0)
	c.mu.Unlock()

	for _, p := range pending {
		c.settle(ctx, p, nil, err)
	}
}

func (c *Controller) settle(ctx context.Context, p *pendingRequest, resp td.Response, err error) {
	if !p.settled.CompareAndSwap(false, true) {
		return
	}

	// Record before waking the caller so the journal is complete when Send returns.
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		c.Metrics.request(p.reqType, outcome(err))
		c.journalError(ctx, p, err)
		if Classify(err) == SeverityFatal && !errors.Is(err, ErrClosed) {
			c.reportFatal(err)
		}
		p.future.Reject(err)
		return
	}

	c.Metrics.request(p.reqType, "ok")
	c.journalResult(ctx, p, resp)
	p.future.Resolve(resp)
}

// reportFatal posts a single updateFatalError for the controller's lifetime.
// Later fatal errors are only returned to their callers.
func (c *Controller) reportFatal(err error) {
	if !c.fatalReported.CompareAndSwap(false, true) {
		return
	}

	c.log.Error("session failed", "error", err)
	c.queue.Post(func() {
		c.DispatchUpdate(&td.UpdateFatalError{Err: err})
	})
}

func outcome(err error) string {
	if Classify(err) == SeverityFatal {
		return "fatal"
	}
	return "error"
}
