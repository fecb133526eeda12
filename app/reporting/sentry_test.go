package reporting_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclight.org/tgweb/app/reporting"
	"nuclight.org/tgweb/pkg/emitter"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

type fakeHub struct {
	mu       sync.Mutex
	captured []error
	flushed  int
}

func (h *fakeHub) CaptureException(err error) *sentry.EventID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.captured = append(h.captured, err)
	id := sentry.EventID("abc")
	return &id
}

func (h *fakeHub) Flush(time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushed++
	return true
}

func TestReporter_WatchReportsFatalErrors(t *testing.T) {
	hub := &fakeHub{}
	r := reporting.NewWithHub(logger.Discard(), hub)

	src := emitter.New[td.Object]()
	sub := r.Watch(src)

	boom := errors.New("engine gone")
	require.NoError(t, src.Emit(td.TypeUpdateFatalError, &td.UpdateFatalError{Err: boom}))
	require.NoError(t, src.Emit(td.TypeUpdateFatalError, &td.UpdateFatalError{}))

	sub.Unsubscribe()
	require.NoError(t, src.Emit(td.TypeUpdateFatalError, &td.UpdateFatalError{Err: boom}))

	r.Close()

	assert.Equal(t, []error{boom}, hub.captured)
	assert.Equal(t, 1, hub.flushed)
}

func TestReporter_DisabledWithoutDSN(t *testing.T) {
	r, err := reporting.New(logger.Discard(), reporting.Options{})
	require.NoError(t, err)
	assert.Nil(t, r)

	assert.NotPanics(t, func() {
		r.Report(errors.New("x"))
		r.Close()
	})
}

func TestReporter_InvalidDSN(t *testing.T) {
	_, err := reporting.New(logger.Discard(), reporting.Options{DSN: "::not a dsn"})
	assert.Error(t, err)
}
