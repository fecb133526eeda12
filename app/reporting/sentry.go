// Package reporting forwards fatal session errors to Sentry.
package reporting

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"nuclight.org/tgweb/pkg/emitter"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

const flushTimeout = 2 * time.Second

// Hub is the part of *sentry.Hub the reporter uses.
type Hub interface {
	CaptureException(err error) *sentry.EventID
	Flush(timeout time.Duration) bool
}

// Source is a store that re-emits updateFatalError.
type Source interface {
	On(event string, h emitter.Handler[td.Object]) *emitter.Subscription
}

type Options struct {
	DSN         string
	Release     string
	Environment string
	Engine      string
}

// Reporter is nil-safe: a nil *Reporter drops everything.
type Reporter struct {
	log logger.Logger
	hub Hub
}

// New returns nil when no DSN is configured.
func New(log logger.Logger, opts Options) (*Reporter, error) {
	if opts.DSN == "" {
		return nil, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Release:     opts.Release,
		Environment: opts.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("creating sentry client: %w", err)
	}

	scope := sentry.NewScope()
	scope.SetTag("engine", opts.Engine)

	return NewWithHub(log, sentry.NewHub(client, scope)), nil
}

func NewWithHub(log logger.Logger, hub Hub) *Reporter {
	return &Reporter{log: log, hub: hub}
}

func (r *Reporter) Report(err error) {
	if r == nil || err == nil {
		return
	}

	id := r.hub.CaptureException(err)
	if id != nil {
		r.log.Info("fatal error reported", "sentry_event_id", string(*id))
	}
}

// Watch reports every fatal error the source re-emits.
func (r *Reporter) Watch(src Source) *emitter.Subscription {
	return src.On(td.TypeUpdateFatalError, func(u td.Object) error {
		if fatal, ok := u.(*td.UpdateFatalError); ok {
			r.Report(fatal.Err)
		}
		return nil
	})
}

// Close flushes buffered events.
func (r *Reporter) Close() {
	if r == nil {
		return
	}

	if !r.hub.Flush(flushTimeout) {
		r.log.Warn("flushing sentry events timed out")
	}
}
