package controller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclight.org/tgweb/app/controller"
	"nuclight.org/tgweb/app/controller/controllertest"
	"nuclight.org/tgweb/pkg/td"
)

func answerMe(req td.Request) td.Response {
	switch req.(type) {
	case td.GetMe:
		return &td.User{ID: 42, FirstName: "Ann"}
	case td.Destroy:
		return &td.Error{Code: 401, Message: "Unauthorized"}
	case td.GetStickerSet:
		return &td.Error{Code: 400, Message: "STICKERSET_INVALID"}
	default:
		return &td.Ok{}
	}
}

func TestSend_ResolvesByExtra(t *testing.T) {
	h := controllertest.Start(t, answerMe)

	resp, err := h.Controller.Send(context.Background(), td.GetMe{})
	require.NoError(t, err)

	user, ok := resp.(*td.User)
	require.True(t, ok)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, 0, h.Controller.Pending())
}

func TestSend_ConcurrentRequestsSettleIndependently(t *testing.T) {
	h := controllertest.Start(t, answerMe)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Controller.Send(context.Background(), td.SetOption{Name: "online", Value: td.OptionBool(true)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, h.Engine.RequestsOf(td.TypeSetOption), 20)
	assert.Equal(t, 0, h.Controller.Pending())
}

func TestSend_ErrorResponse(t *testing.T) {
	h := controllertest.Start(t, answerMe)

	_, err := h.Controller.Send(context.Background(), td.GetStickerSet{SetID: 1})
	require.Error(t, err)

	var tdErr *td.Error
	require.ErrorAs(t, err, &tdErr)
	assert.Equal(t, int32(400), tdErr.Code)
	assert.Equal(t, controller.SeverityTransient, controller.Classify(err))

	_, err = h.Controller.Send(context.Background(), td.Destroy{})
	assert.Equal(t, controller.SeverityFatal, controller.Classify(err))
}

func TestSend_ContextCancelForgetsRequest(t *testing.T) {
	h := controllertest.Start(t, func(td.Request) td.Response { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Controller.Send(ctx, td.GetMe{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, h.Controller.Pending())
	assert.Equal(t, controller.SeverityTransient, controller.Classify(err))
}

func TestCall(t *testing.T) {
	h := controllertest.Start(t, answerMe)

	user, err := controller.Call[*td.User](context.Background(), h.Controller, td.GetMe{})
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.FirstName)

	_, err = controller.Call[*td.Chats](context.Background(), h.Controller, td.GetMe{})
	assert.ErrorContains(t, err, "unexpected user response to getMe")
}

func TestSendAsync(t *testing.T) {
	h := controllertest.Start(t, answerMe)

	f := h.Controller.SendAsync(context.Background(), td.GetMe{})
	resp, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, td.TypeUser, resp.Type())
}

func TestSendThen_RunsOnQueue(t *testing.T) {
	h := controllertest.Start(t, answerMe)

	var got td.Response
	h.Controller.SendThen(context.Background(), td.GetMe{}, func(resp td.Response, err error) {
		assert.NoError(t, err)
		got = resp
	})

	h.DrainUntil(t, func() bool { return got != nil })
	assert.Equal(t, td.TypeUser, got.Type())
}

func TestRun_UpdatesArePostedToQueue(t *testing.T) {
	h := controllertest.Start(t, answerMe)

	var got []td.Update
	h.Controller.OnUpdate(func(u td.Update) error {
		got = append(got, u)
		return nil
	})

	require.NoError(t, h.Engine.Push(&td.UpdateOption{Name: "my_id", Value: td.OptionValue{Kind: td.OptionValueInteger, Value: []byte(`"7"`)}}))
	require.NoError(t, h.Engine.PushRaw([]byte(`{"@type":"updateSomethingNew","x":1}`)))
	require.NoError(t, h.Engine.PushRaw([]byte(`not json`)))

	h.DrainUntil(t, func() bool { return len(got) == 2 })

	opt, ok := got[0].(*td.UpdateOption)
	require.True(t, ok)
	id, ok := opt.Value.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	assert.Equal(t, "updateSomethingNew", got[1].Type())
}

func TestRun_EngineFailureIsFatal(t *testing.T) {
	h := controllertest.Start(t, func(td.Request) td.Response { return nil })

	var fatal *td.UpdateFatalError
	h.Controller.OnUpdate(func(u td.Update) error {
		if f, ok := u.(*td.UpdateFatalError); ok {
			fatal = f
		}
		return nil
	})

	pending := h.Controller.SendAsync(context.Background(), td.GetMe{})
	require.Eventually(t, func() bool { return h.Controller.Pending() == 1 }, time.Second, time.Millisecond)

	h.Engine.Fail(errors.New("connection reset"))

	_, err := pending.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, controller.SeverityFatal, controller.Classify(err))

	h.DrainUntil(t, func() bool { return fatal != nil })
	var engineErr *controller.EngineError
	assert.ErrorAs(t, fatal.Err, &engineErr)

	_, err = h.Controller.Send(context.Background(), td.GetMe{})
	assert.Equal(t, controller.SeverityFatal, controller.Classify(err))
}

func TestSend_FatalResponsePostsOneFatalUpdate(t *testing.T) {
	h := controllertest.Start(t, answerMe)

	var fatal []*td.UpdateFatalError
	h.Controller.OnUpdate(func(u td.Update) error {
		if f, ok := u.(*td.UpdateFatalError); ok {
			fatal = append(fatal, f)
		}
		return nil
	})

	_, err := h.Controller.Send(context.Background(), td.GetStickerSet{SetID: 1})
	require.Error(t, err)
	h.Loop.Drain()
	assert.Empty(t, fatal)

	_, err = h.Controller.Send(context.Background(), td.Destroy{})
	require.Error(t, err)
	_, err = h.Controller.Send(context.Background(), td.Destroy{})
	require.Error(t, err)

	h.DrainUntil(t, func() bool { return len(fatal) > 0 })
	h.Loop.Drain()
	require.Len(t, fatal, 1)

	var tdErr *td.Error
	require.ErrorAs(t, fatal[0].Err, &tdErr)
	assert.Equal(t, int32(401), tdErr.Code)
}

func TestSend_EngineSendFailurePostsFatalUpdate(t *testing.T) {
	h := controllertest.Start(t, answerMe)

	var fatal *td.UpdateFatalError
	h.Controller.OnUpdate(func(u td.Update) error {
		if f, ok := u.(*td.UpdateFatalError); ok {
			fatal = f
		}
		return nil
	})

	h.Engine.Fail(errors.New("broken pipe"))

	_, err := h.Controller.Send(context.Background(), td.GetMe{})
	require.Error(t, err)

	h.DrainUntil(t, func() bool { return fatal != nil })
	var engineErr *controller.EngineError
	assert.ErrorAs(t, fatal.Err, &engineErr)
}

func TestClientUpdate_IsSynchronous(t *testing.T) {
	h := controllertest.Start(t, answerMe)
	c := h.Controller

	var calls []string
	c.OnClientUpdate(func(u td.ClientUpdate) error {
		calls = append(calls, "first:"+u.Type())
		if _, ok := u.(*td.ClientUpdateFocusWindow); ok {
			c.OnClientUpdate(func(u td.ClientUpdate) error {
				calls = append(calls, "late:"+u.Type())
				return nil
			})
			c.ClientUpdate(&td.ClientUpdateAppInactive{})
		}
		return nil
	})
	c.OnClientUpdate(func(u td.ClientUpdate) error {
		calls = append(calls, "second:"+u.Type())
		return errors.New("listener failed")
	})

	c.ClientUpdate(&td.ClientUpdateFocusWindow{Focused: true})

	assert.Equal(t, []string{
		"first:clientUpdateFocusWindow",
		"first:clientUpdateAppInactive",
		"second:clientUpdateAppInactive",
		"late:clientUpdateAppInactive",
		"second:clientUpdateFocusWindow",
	}, calls)
}

func TestAddListener(t *testing.T) {
	h := controllertest.Start(t, answerMe)
	c := h.Controller

	var got []string
	sub, err := c.AddListener(controller.ClassUpdate, func(o td.Object) error {
		got = append(got, o.Type())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.ListenerCount(controller.ClassUpdate))

	c.DispatchUpdate(&td.UpdateUser{User: td.User{ID: 1}})
	c.RemoveListener(sub)
	c.RemoveListener(sub)
	c.DispatchUpdate(&td.UpdateUser{User: td.User{ID: 2}})

	assert.Equal(t, []string{td.TypeUpdateUser}, got)
	assert.Equal(t, 0, c.ListenerCount(controller.ClassUpdate))

	_, err = c.AddListener("bogus", func(td.Object) error { return nil })
	assert.Error(t, err)
}

func TestSendRetry(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	h := controllertest.Start(t, func(td.Request) td.Response {
		mu.Lock()
		defer mu.Unlock()

		attempts++
		if attempts < 3 {
			return &td.Error{Code: 429, Message: "Too Many Requests"}
		}
		return &td.Ok{}
	})

	policy := controller.RetryPolicy{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	resp, err := h.Controller.SendRetry(context.Background(), td.GetMe{}, policy)
	require.NoError(t, err)
	assert.Equal(t, td.TypeOk, resp.Type())
	assert.Equal(t, 3, attempts)
}

func TestSendRetry_GivesUp(t *testing.T) {
	h := controllertest.Start(t, func(td.Request) td.Response {
		return &td.Error{Code: 500, Message: "Internal"}
	})

	policy := controller.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	_, err := h.Controller.SendRetry(context.Background(), td.GetMe{}, policy)
	require.Error(t, err)
	assert.Len(t, h.Engine.Requests(), 2)

	h.Engine.SetHandler(answerMe)
	_, err = h.Controller.SendRetry(context.Background(), td.GetStickerSet{SetID: 9}, policy)
	require.Error(t, err)
	assert.Len(t, h.Engine.RequestsOf(td.TypeGetStickerSet), 1, "400 is not retried")
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, controller.RetryAfter(&td.Error{Code: 420, Message: "FLOOD_WAIT_3"}))
	assert.Equal(t, 12*time.Second, controller.RetryAfter(&td.Error{Code: 429, Message: "Too Many Requests: retry after 12"}))
	assert.Zero(t, controller.RetryAfter(&td.Error{Code: 400, Message: "BAD_REQUEST"}))
	assert.Zero(t, controller.RetryAfter(errors.New("plain")))
}

type memJournal struct {
	mu      sync.Mutex
	rows    map[int64]string
	results map[int64]string
	errs    map[int64]int32
}

func newMemJournal() *memJournal {
	return &memJournal{rows: map[int64]string{}, results: map[int64]string{}, errs: map[int64]int32{}}
}

func (j *memJournal) SaveRequest(_ context.Context, requestType string) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	id := int64(len(j.rows) + 1)
	j.rows[id] = requestType
	return id, nil
}

func (j *memJournal) SaveResult(_ context.Context, id int64, resultType string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[id] = resultType
	return nil
}

func (j *memJournal) SaveError(_ context.Context, id int64, code int32, _ string, _ bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errs[id] = code
	return nil
}

func TestJournalAndMetrics(t *testing.T) {
	h := controllertest.Start(t, answerMe)
	journal := newMemJournal()
	reg := prometheus.NewRegistry()
	h.Controller.Journal = journal
	h.Controller.Metrics = controller.NewMetrics(reg)

	_, err := h.Controller.Send(context.Background(), td.GetMe{})
	require.NoError(t, err)
	_, err = h.Controller.Send(context.Background(), td.GetStickerSet{SetID: 5})
	require.Error(t, err)

	journal.mu.Lock()
	assert.Equal(t, map[int64]string{1: td.TypeGetMe, 2: td.TypeGetStickerSet}, journal.rows)
	assert.Equal(t, map[int64]string{1: td.TypeUser}, journal.results)
	assert.Equal(t, map[int64]int32{2: 400}, journal.errs)
	journal.mu.Unlock()

	n, err := testutil.GatherAndCount(reg, "tgweb_controller_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFuture_SettlesOnce(t *testing.T) {
	f := controller.NewFuture[int]()
	assert.True(t, f.Resolve(1))
	assert.False(t, f.Reject(errors.New("late")))
	assert.False(t, f.Resolve(2))

	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
