// Package session builds one client instance (task queue, controller, stores and
// root) and runs it until it ends or asks to be replaced.
package session

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"nuclight.org/tgweb/app/controller"
	"nuclight.org/tgweb/app/reporting"
	"nuclight.org/tgweb/app/shell"
	"nuclight.org/tgweb/app/stores"
	"nuclight.org/tgweb/pkg/emitter"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/loop"
	"nuclight.org/tgweb/pkg/td"
)

// ErrRestart ends Run when the user asked for a fresh session.
var ErrRestart = errors.New("session restart requested")

type Config struct {
	Engine controller.Engine

	// Optional.
	Journal  controller.Journal
	Metrics  *controller.Metrics
	Reporter *reporting.Reporter

	// Retry applies to requests started by the UI. A policy with fewer than two
	// attempts sends once.
	Retry controller.RetryPolicy
}

type Session struct {
	Loop       *loop.Loop
	Controller *controller.Controller
	Stores     shell.Stores
	Root       *shell.Root

	log     logger.Logger
	subs    emitter.Bag
	changed chan struct{}

	restart     chan struct{}
	restartOnce sync.Once
	closeOnce   sync.Once
}

func New(log logger.Logger, cfg Config) *Session {
	s := &Session{
		log:     log,
		Loop:    loop.New(log),
		changed: make(chan struct{}, 1),
		restart: make(chan struct{}),
	}

	ctrl := controller.New(log, cfg.Engine, s.Loop)
	ctrl.Journal = cfg.Journal
	ctrl.Metrics = cfg.Metrics
	s.Controller = ctrl

	s.Stores = shell.Stores{
		App:      stores.NewApplicationStore(log, ctrl),
		Chats:    stores.NewChatStore(log, ctrl),
		Users:    stores.NewUserStore(log, ctrl),
		Polls:    stores.NewPollStore(log, ctrl),
		Stickers: stores.NewStickerStore(log, ctrl),
		Files:    stores.NewFileStore(log, ctrl),
	}

	var gw shell.Gateway = ctrl
	if cfg.Retry.MaxAttempts > 1 {
		gw = &retryGateway{Controller: ctrl, queue: s.Loop, policy: cfg.Retry}
	}
	s.Root = shell.New(log, gw, s.Loop, s.Stores, s.Restart)

	// Registered after the stores so that state is already updated when it fires.
	s.subs.Add(
		ctrl.OnUpdate(func(td.Update) error { s.notify(); return nil }),
		ctrl.OnClientUpdate(func(td.ClientUpdate) error { s.notify(); return nil }),
	)
	if cfg.Reporter != nil {
		s.subs.Add(cfg.Reporter.Watch(s.Stores.App))
	}

	return s
}

// Run mounts the root and serves the session until ctx ends (nil) or Restart is
// called (ErrRestart). An engine failure does not end Run: the root shows the
// fatal error overlay and the user picks Refresh or Log out.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	s.Loop.Post(func() {
		s.Root.Mount(gctx)
		s.notify()
	})

	g.Go(func() error {
		if err := s.Loop.Run(gctx); gctx.Err() == nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := s.Controller.Run(gctx); err != nil {
			s.log.Error("engine stopped", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-s.restart:
			s.log.Info("restarting session")
			return ErrRestart
		}
	})

	return g.Wait()
}

// Restart ends Run with ErrRestart. It may be called from any goroutine.
func (s *Session) Restart() {
	s.restartOnce.Do(func() { close(s.restart) })
}

// Close unmounts the root and detaches the stores. Call it after Run returns.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Root.Unmount()
		s.subs.Close()
		s.Stores.App.Close()
		s.Stores.Chats.Close()
		s.Stores.Users.Close()
		s.Stores.Polls.Close()
		s.Stores.Stickers.Close()
		s.Stores.Files.Close()
	})
}

// Changed signals after an update changed the session. Signals coalesce.
func (s *Session) Changed() <-chan struct{} {
	return s.changed
}

// Do runs a user action with the root on the task queue and waits for it.
func (s *Session) Do(ctx context.Context, fn func(*shell.Root)) error {
	_, err := read(ctx, s, func(r *shell.Root) struct{} {
		fn(r)
		s.notify()
		return struct{}{}
	})
	return err
}

// Snapshot reads the root state on the task queue.
func (s *Session) Snapshot(ctx context.Context) (shell.State, error) {
	return read(ctx, s, (*shell.Root).State)
}

// Render draws the root on the task queue.
func (s *Session) Render(ctx context.Context) (string, error) {
	return read(ctx, s, (*shell.Root).Render)
}

func read[T any](ctx context.Context, s *Session, fn func(*shell.Root) T) (T, error) {
	out := make(chan T, 1)
	s.Loop.Post(func() {
		out <- fn(s.Root)
	})

	select {
	case v := <-out:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (s *Session) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// retryGateway retries transient failures of UI requests before handing the
// result to the task queue.
type retryGateway struct {
	*controller.Controller
	queue  *loop.Loop
	policy controller.RetryPolicy
}

func (g *retryGateway) SendThen(ctx context.Context, req td.Request, fn func(td.Response, error)) {
	go func() {
		resp, err := g.SendRetry(ctx, req, g.policy)
		g.queue.Post(func() {
			fn(resp, err)
		})
	}()
}
