package shell

import "nuclight.org/tgweb/pkg/td"

// Page is the top-level region shown for an authorization phase.
type Page int

const (
	PageLoading Page = iota
	PageAuth
	PageMain
	PageClosed
	PageInactive
)

func (p Page) String() string {
	switch p {
	case PageLoading:
		return "loading"
	case PageAuth:
		return "auth"
	case PageMain:
		return "main"
	case PageClosed:
		return "closed"
	case PageInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// PageFor maps an authorization state to a page. No transition is validated;
// the engine owns the state graph.
func PageFor(state *td.AuthorizationState, inactive bool) Page {
	if inactive {
		return PageInactive
	}
	if state == nil {
		return PageLoading
	}

	switch state.Kind {
	case td.AuthorizationStateWaitPhoneNumber,
		td.AuthorizationStateWaitCode,
		td.AuthorizationStateWaitPassword:
		return PageAuth
	case td.AuthorizationStateReady:
		return PageMain
	case td.AuthorizationStateLoggingOut,
		td.AuthorizationStateClosing,
		td.AuthorizationStateClosed:
		return PageClosed
	default:
		return PageLoading
	}
}
