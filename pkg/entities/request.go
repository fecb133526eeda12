package entities

import "time"

type Request struct {
	ID           int64
	Type         string
	SentAt       time.Time
	SettledAt    *time.Time
	ResultType   *string
	ErrorCode    *int32
	ErrorMessage *string
	Fatal        bool
}

func (r *Request) Outcome() Outcome {
	switch {
	case r.SettledAt == nil:
		return OutcomePending
	case r.Fatal:
		return OutcomeFatal
	case r.ErrorMessage != nil:
		return OutcomeError
	default:
		return OutcomeOk
	}
}

// Latency is the time between sending and settling. It is zero for pending requests.
func (r *Request) Latency() time.Duration {
	if r.SettledAt == nil {
		return 0
	}
	return r.SettledAt.Sub(r.SentAt)
}

// TypeStats aggregates the journal by request type.
type TypeStats struct {
	Type    string
	Total   int64
	Ok      int64
	Errors  int64
	Fatal   int64
	Pending int64
}
