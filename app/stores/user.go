package stores

import (
	"sync"

	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

const optionMyID = "my_id"

type UserStore struct {
	*publisher

	log logger.Logger

	mu    sync.RWMutex
	users map[int64]*td.User
	myID  int64
}

func NewUserStore(log logger.Logger, gw Gateway) *UserStore {
	s := &UserStore{
		publisher: newPublisher(),
		log:       log.With("store", "user"),
		users:     make(map[int64]*td.User),
	}
	s.subs.Add(gw.OnUpdate(s.onUpdate), gw.OnClientUpdate(s.onClientUpdate))

	return s
}

func (s *UserStore) Get(id int64) *td.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.users[id]
}

func (s *UserStore) Set(user *td.User) {
	if user == nil {
		return
	}

	u := *user

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.ID] = &u
}

// MyID returns the id of the signed-in user, or 0 before it is known.
func (s *UserStore) MyID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.myID
}

func (s *UserStore) onUpdate(u td.Update) error {
	switch u := u.(type) {
	case *td.UpdateUser:
		s.Set(&u.User)
	case *td.UpdateOption:
		if u.Name != optionMyID {
			return nil
		}

		id, ok := u.Value.Int64()
		if !ok {
			s.log.Warn("unexpected my_id option", "kind", u.Value.Kind)
			return nil
		}

		s.mu.Lock()
		s.myID = id
		s.mu.Unlock()
	default:
		return nil
	}

	return s.emit(u)
}

func (s *UserStore) onClientUpdate(u td.ClientUpdate) error {
	switch u := u.(type) {
	case *td.ClientUpdateOpenUser:
		return s.emit(u)
	default:
		return nil
	}
}
