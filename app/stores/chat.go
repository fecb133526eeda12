package stores

import (
	"sort"
	"sync"

	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

type ChatStore struct {
	*publisher

	log logger.Logger

	mu    sync.RWMutex
	chats map[int64]*td.Chat
}

func NewChatStore(log logger.Logger, gw Gateway) *ChatStore {
	s := &ChatStore{
		publisher: newPublisher(),
		log:       log.With("store", "chat"),
		chats:     make(map[int64]*td.Chat),
	}
	s.subs.Add(gw.OnUpdate(s.onUpdate), gw.OnClientUpdate(s.onClientUpdate))

	return s
}

// Get returns a chat snapshot or nil.
func (s *ChatStore) Get(id int64) *td.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chats[id]
}

// Set stores a chat received in a response.
func (s *ChatStore) Set(chat *td.Chat) {
	if chat == nil {
		return
	}

	c := *chat

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats[c.ID] = &c
}

func (s *ChatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.chats)
}

// Pinned returns pinned chats, highest order first.
func (s *ChatStore) Pinned() []*td.Chat {
	s.mu.RLock()
	var pinned []*td.Chat
	for _, c := range s.chats {
		if c.IsPinned {
			pinned = append(pinned, c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(pinned, func(i, j int) bool {
		if pinned[i].Order != pinned[j].Order {
			return pinned[i].Order > pinned[j].Order
		}
		return pinned[i].ID > pinned[j].ID
	})

	return pinned
}

func (s *ChatStore) onUpdate(u td.Update) error {
	switch u := u.(type) {
	case *td.UpdateNewChat:
		s.Set(&u.Chat)
	case *td.UpdateChatIsPinned:
		s.assign(u.ChatID, func(c *td.Chat) {
			c.IsPinned = u.IsPinned
			c.Order = u.Order
		})
	case *td.UpdateChatReadInbox:
		s.assign(u.ChatID, func(c *td.Chat) {
			c.LastReadInboxMessageID = u.LastReadInboxMessageID
			c.UnreadCount = u.UnreadCount
		})
	default:
		return nil
	}

	return s.emit(u)
}

func (s *ChatStore) onClientUpdate(u td.ClientUpdate) error {
	switch u := u.(type) {
	case *td.ClientUpdateOpenChat:
		return s.emit(u)
	default:
		return nil
	}
}

// assign replaces a known chat with an edited copy.
func (s *ChatStore) assign(id int64, edit func(c *td.Chat)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.chats[id]
	if !ok {
		s.log.Debug("update for unknown chat", "chat_id", id)
		return
	}

	next := *old
	edit(&next)
	s.chats[id] = &next
}
