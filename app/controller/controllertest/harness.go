package controllertest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nuclight.org/tgweb/app/controller"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/loop"
)

// Harness is a controller running against an in-memory engine. The task queue
// is never run in the background; tests drain it explicitly.
type Harness struct {
	Engine     *Engine
	Loop       *loop.Loop
	Controller *controller.Controller
}

// Start runs the receive loop until the test ends.
func Start(t testing.TB, h Handler) *Harness {
	t.Helper()

	log := logger.Discard()
	engine := NewEngine(h)
	queue := loop.New(log)
	ctrl := controller.New(log, engine, queue)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ctrl.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &Harness{
		Engine:     engine,
		Loop:       queue,
		Controller: ctrl,
	}
}

// DrainUntil runs queued tasks until cond holds.
func (h *Harness) DrainUntil(t testing.TB, cond func() bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		h.Loop.Drain()
		return cond()
	}, time.Second, time.Millisecond)
}
