package entities

// Outcome is how a journaled request ended.
type Outcome string

const (
	// OutcomePending means the request was sent but never settled, usually because
	// the process stopped first.
	OutcomePending Outcome = "pending"

	// OutcomeOk indicates the engine answered with a result
	OutcomeOk Outcome = "ok"

	// OutcomeError indicates a transient failure
	OutcomeError Outcome = "error"

	// OutcomeFatal indicates a failure that invalidated the session
	OutcomeFatal Outcome = "fatal"
)
