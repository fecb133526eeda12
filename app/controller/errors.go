package controller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	"nuclight.org/tgweb/pkg/td"
)

// ErrClosed is returned by requests sent after the receive loop has stopped.
var ErrClosed = errors.New("controller is closed")

// EngineError means the engine connection itself failed.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

type Severity int

const (
	// SeverityTransient failures may be ignored or retried.
	SeverityTransient Severity = iota

	// SeverityFatal failures leave the session unusable; the user can only refresh
	// or log out.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityTransient:
		return "transient"
	case SeverityFatal:
		return "fatal"
	default:
		return "severity(" + strconv.Itoa(int(s)) + ")"
	}
}

const codeUnauthorized = 401

// Classify decides how a failed request should be handled.
func Classify(err error) Severity {
	var engineErr *EngineError
	var tdErr *td.Error

	switch {
	case err == nil:
		return SeverityTransient
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return SeverityTransient
	case errors.As(err, &engineErr), errors.Is(err, ErrClosed):
		return SeverityFatal
	case errors.As(err, &tdErr):
		if tdErr.Code == codeUnauthorized {
			return SeverityFatal
		}
		return SeverityTransient
	default:
		return SeverityTransient
	}
}

// Retryable reports whether sending the same request again may succeed.
func Retryable(err error) bool {
	if err == nil || Classify(err) == SeverityFatal {
		return false
	}

	var tdErr *td.Error
	if errors.As(err, &tdErr) {
		return tdErr.Code == 420 || tdErr.Code == 429 || tdErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

var retryAfterRe = regexp.MustCompile(`(?:FLOOD_WAIT_|retry after )(\d+)`)

// RetryAfter extracts the wait demanded by a flood-control error.
func RetryAfter(err error) time.Duration {
	var tdErr *td.Error
	if !errors.As(err, &tdErr) {
		return 0
	}

	m := retryAfterRe.FindStringSubmatch(tdErr.Message)
	if m == nil {
		return 0
	}

	seconds, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
