// Package controllertest provides an in-memory engine for tests that need a real
// Controller.
package controllertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"nuclight.org/tgweb/pkg/td"
)

// Handler answers one request. A nil response means the engine never replies.
type Handler func(req td.Request) td.Response

// Engine implements controller.Engine over channels.
type Engine struct {
	mu       sync.Mutex
	handler  Handler
	requests []td.Request

	inbox  chan []byte
	failed chan struct{}
	err    error
	once   sync.Once
}

func NewEngine(h Handler) *Engine {
	return &Engine{
		handler: h,
		inbox:   make(chan []byte, 1024),
		failed:  make(chan struct{}),
	}
}

func (e *Engine) SetHandler(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handler = h
}

func (e *Engine) Send(ctx context.Context, payload []byte) error {
	select {
	case <-e.failed:
		return e.err
	default:
	}

	req, err := td.DecodeRequest(payload)
	if err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}

	extra, ok := td.PeekExtra(payload)
	if !ok {
		return errors.New("request without @extra")
	}

	e.mu.Lock()
	e.requests = append(e.requests, req)
	h := e.handler
	e.mu.Unlock()

	if h == nil {
		return nil
	}

	resp := h(req)
	if resp == nil {
		return nil
	}

	raw, err := td.EncodeObject(resp, &extra)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}

	return e.enqueue(ctx, raw)
}

func (e *Engine) Receive(ctx context.Context) ([]byte, error) {
	select {
	case raw := <-e.inbox:
		return raw, nil
	case <-e.failed:
		return nil, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Push delivers an update as if the engine had sent it.
func (e *Engine) Push(u td.Update) error {
	raw, err := td.EncodeObject(u, nil)
	if err != nil {
		return fmt.Errorf("encoding update: %w", err)
	}

	return e.enqueue(context.Background(), raw)
}

// PushRaw delivers an arbitrary frame.
func (e *Engine) PushRaw(raw []byte) error {
	return e.enqueue(context.Background(), raw)
}

// Fail makes every later Send and Receive return err.
func (e *Engine) Fail(err error) {
	e.once.Do(func() {
		e.err = err
		close(e.failed)
	})
}

// Requests returns every request received so far.
func (e *Engine) Requests() []td.Request {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]td.Request(nil), e.requests...)
}

// RequestsOf returns the received requests with the given type tag.
func (e *Engine) RequestsOf(typ string) []td.Request {
	var out []td.Request
	for _, req := range e.Requests() {
		if req.Type() == typ {
			out = append(out, req)
		}
	}
	return out
}

func (e *Engine) enqueue(ctx context.Context, raw []byte) error {
	select {
	case e.inbox <- raw:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
