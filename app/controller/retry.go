package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"nuclight.org/tgweb/pkg/td"
)

// RetryPolicy bounds SendRetry.
type RetryPolicy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     5,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     30 * time.Second,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	var bo backoff.BackOff = b
	if p.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(b, p.MaxAttempts-1)
	}

	return backoff.WithContext(bo, ctx)
}

// SendRetry sends req again while it fails with a retryable error. A flood-wait
// delay from the engine takes precedence over a shorter backoff interval.
func (c *Controller) SendRetry(ctx context.Context, req td.Request, policy RetryPolicy) (td.Response, error) {
	b := policy.backOff(ctx)
	b.Reset()

	for attempt := 1; ; attempt++ {
		resp, err := c.Send(ctx, req)
		if err == nil || !Retryable(err) {
			return resp, err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return nil, fmt.Errorf("sending %s after %d attempts: %w", req.Type(), attempt, err)
		}
		if d := RetryAfter(err); d > wait {
			wait = d
		}

		c.log.Warn("retrying request", "td_type", req.Type(), "attempt", attempt, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
