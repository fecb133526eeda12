package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclight.org/tgweb/app/controller"
	"nuclight.org/tgweb/app/controller/controllertest"
	"nuclight.org/tgweb/app/reporting"
	"nuclight.org/tgweb/app/session"
	"nuclight.org/tgweb/app/shell"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

func okHandler(td.Request) td.Response { return &td.Ok{} }

func ready() td.Update {
	return &td.UpdateAuthorizationState{
		AuthorizationState: td.AuthorizationState{Kind: td.AuthorizationStateReady},
	}
}

type running struct {
	*session.Session
	engine *controllertest.Engine
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, engine *controllertest.Engine, cfg session.Config) *running {
	t.Helper()

	cfg.Engine = engine
	s := session.New(logger.Discard(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{Session: s, engine: engine, cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- s.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-r.done
		s.Close()
	})

	return r
}

func (r *running) wait(t *testing.T) error {
	t.Helper()

	select {
	case err := <-r.done:
		r.done <- err
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop")
		return nil
	}
}

func (r *running) eventually(t *testing.T, cond func(shell.State) bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		st, err := r.Snapshot(context.Background())
		return err == nil && cond(st)
	}, 5*time.Second, 5*time.Millisecond)
}

func TestSession_ReadyGoesOnline(t *testing.T) {
	r := start(t, controllertest.NewEngine(okHandler), session.Config{})

	require.NoError(t, r.engine.Push(ready()))
	r.eventually(t, func(st shell.State) bool { return st.Page == "main" })

	require.Eventually(t, func() bool {
		return len(r.engine.RequestsOf(td.TypeSetOption)) == 1
	}, time.Second, 5*time.Millisecond)

	frame, err := r.Render(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, frame)
}

func TestSession_ChangedSignals(t *testing.T) {
	r := start(t, controllertest.NewEngine(okHandler), session.Config{})

	select {
	case <-r.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("no change after mount")
	}

	require.NoError(t, r.engine.Push(ready()))

	select {
	case <-r.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("no change after update")
	}
}

func TestSession_StopsWithContext(t *testing.T) {
	r := start(t, controllertest.NewEngine(okHandler), session.Config{})

	r.cancel()
	assert.NoError(t, r.wait(t))
}

func TestSession_RefreshRestarts(t *testing.T) {
	r := start(t, controllertest.NewEngine(okHandler), session.Config{})

	require.NoError(t, r.Do(context.Background(), (*shell.Root).Refresh))
	assert.ErrorIs(t, r.wait(t), session.ErrRestart)
}

type fakeHub struct {
	mu       sync.Mutex
	captured []error
}

func (h *fakeHub) CaptureException(err error) *sentry.EventID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.captured = append(h.captured, err)
	return nil
}

func (h *fakeHub) Flush(time.Duration) bool { return true }

func (h *fakeHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.captured)
}

func TestSession_EngineFailureShowsOverlay(t *testing.T) {
	hub := &fakeHub{}
	r := start(t, controllertest.NewEngine(okHandler), session.Config{
		Reporter: reporting.NewWithHub(logger.Discard(), hub),
	})

	require.NoError(t, r.engine.Push(ready()))
	r.eventually(t, func(st shell.State) bool { return st.Page == "main" })

	r.engine.Fail(errors.New("socket closed"))
	r.eventually(t, func(st shell.State) bool { return st.FatalError })
	assert.Equal(t, 1, hub.count())

	// the session keeps serving the overlay until the user picks an action
	select {
	case err := <-r.done:
		t.Fatalf("session stopped: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, r.Do(context.Background(), (*shell.Root).Refresh))
	assert.ErrorIs(t, r.wait(t), session.ErrRestart)
}

type countingJournal struct {
	mu       sync.Mutex
	requests []string
	results  int
}

func (j *countingJournal) SaveRequest(_ context.Context, typ string) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.requests = append(j.requests, typ)
	return int64(len(j.requests)), nil
}

func (j *countingJournal) SaveResult(context.Context, int64, string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results++
	return nil
}

func (j *countingJournal) SaveError(context.Context, int64, int32, string, bool) error {
	return nil
}

func TestSession_RetriesUIRequests(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	engine := controllertest.NewEngine(func(req td.Request) td.Response {
		if req.Type() != td.TypeSetAuthenticationPhoneNumber {
			return &td.Ok{}
		}
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return &td.Error{Code: 500, Message: "internal"}
		}
		return &td.Ok{}
	})

	journal := &countingJournal{}
	r := start(t, engine, session.Config{
		Journal: journal,
		Retry: controller.RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	})

	require.NoError(t, r.engine.Push(&td.UpdateAuthorizationState{
		AuthorizationState: td.AuthorizationState{Kind: td.AuthorizationStateWaitPhoneNumber},
	}))
	r.eventually(t, func(st shell.State) bool { return st.Page == "auth" })

	require.NoError(t, r.Do(context.Background(), func(root *shell.Root) {
		root.SubmitPhoneNumber("+100")
	}))

	require.Eventually(t, func() bool {
		return len(engine.RequestsOf(td.TypeSetAuthenticationPhoneNumber)) == 2
	}, 5*time.Second, 5*time.Millisecond)

	r.eventually(t, func(st shell.State) bool { return st.AuthError == "" })

	journal.mu.Lock()
	defer journal.mu.Unlock()
	assert.Equal(t, []string{td.TypeSetAuthenticationPhoneNumber, td.TypeSetAuthenticationPhoneNumber}, journal.requests)
}
