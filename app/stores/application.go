package stores

import (
	"sync"

	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

// AppState is a snapshot of application-wide UI state.
type AppState struct {
	AuthorizationState *td.AuthorizationState

	ChatID       int64
	MessageID    int64
	DialogChatID int64

	ChatDetailsVisible bool
	WindowFocused      bool
	Inactive           bool

	MediaViewerContent        *td.MediaViewerContent
	ProfileMediaViewerContent *td.ProfileMediaViewerContent
	ForwardInfo               *td.ForwardInfo

	FatalError error
}

type ApplicationStore struct {
	*publisher

	log logger.Logger

	mu    sync.RWMutex
	state AppState
}

func NewApplicationStore(log logger.Logger, gw Gateway) *ApplicationStore {
	s := &ApplicationStore{
		publisher: newPublisher(),
		log:       log.With("store", "application"),
		state: AppState{
			WindowFocused:      true,
			ChatDetailsVisible: true,
		},
	}
	s.subs.Add(gw.OnUpdate(s.onUpdate), gw.OnClientUpdate(s.onClientUpdate))

	return s
}

func (s *ApplicationStore) State() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// AuthorizationState returns the last state reported by the engine, or nil.
func (s *ApplicationStore) AuthorizationState() *td.AuthorizationState {
	return s.State().AuthorizationState
}

func (s *ApplicationStore) ChatID() int64 {
	return s.State().ChatID
}

func (s *ApplicationStore) DialogChatID() int64 {
	return s.State().DialogChatID
}

func (s *ApplicationStore) onUpdate(u td.Update) error {
	switch u := u.(type) {
	case *td.UpdateAuthorizationState:
		state := u.AuthorizationState
		s.update(func(st *AppState) { st.AuthorizationState = &state })
		s.log.Info("authorization state changed", "state", state.Kind)
	case *td.UpdateFatalError:
		s.update(func(st *AppState) { st.FatalError = u.Err })
	default:
		return nil
	}

	return s.emit(u)
}

func (s *ApplicationStore) onClientUpdate(u td.ClientUpdate) error {
	switch u := u.(type) {
	case *td.ClientUpdateChatID:
		s.update(func(st *AppState) {
			st.ChatID = u.ChatID
			st.MessageID = u.MessageID
		})
	case *td.ClientUpdateDialogChatID:
		s.update(func(st *AppState) { st.DialogChatID = u.ChatID })
	case *td.ClientUpdateChatDetailsVisibility:
		s.update(func(st *AppState) { st.ChatDetailsVisible = u.Visible })
	case *td.ClientUpdateMediaViewerContent:
		s.update(func(st *AppState) { st.MediaViewerContent = u.Content })
	case *td.ClientUpdateProfileMediaViewerContent:
		s.update(func(st *AppState) { st.ProfileMediaViewerContent = u.Content })
	case *td.ClientUpdateForward:
		s.update(func(st *AppState) { st.ForwardInfo = u.Info })
	case *td.ClientUpdateAppInactive:
		s.update(func(st *AppState) { st.Inactive = true })
	case *td.ClientUpdateFocusWindow:
		s.update(func(st *AppState) { st.WindowFocused = u.Focused })
	case *td.ClientUpdateMessageHighlighted:
	default:
		return nil
	}

	return s.emit(u)
}

func (s *ApplicationStore) update(fn func(st *AppState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
}
