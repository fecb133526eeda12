package stores

import (
	"sync"

	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

// StickerStore keeps the sticker set shown in the sticker set dialog.
type StickerStore struct {
	*publisher

	log logger.Logger

	mu         sync.RWMutex
	stickerSet *td.StickerSet
}

func NewStickerStore(log logger.Logger, gw Gateway) *StickerStore {
	s := &StickerStore{
		publisher: newPublisher(),
		log:       log.With("store", "sticker"),
	}
	s.subs.Add(gw.OnUpdate(s.onUpdate), gw.OnClientUpdate(s.onClientUpdate))

	return s
}

// StickerSet returns the current set or nil. The value must not be modified.
func (s *StickerStore) StickerSet() *td.StickerSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stickerSet
}

func (s *StickerStore) onUpdate(u td.Update) error {
	switch u := u.(type) {
	case *td.UpdateInstalledStickerSets:
		s.mu.Lock()
		if set := s.stickerSet; set != nil {
			installed := u.Contains(set.ID)
			if set.IsInstalled != installed {
				next := *set
				next.IsInstalled = installed
				s.stickerSet = &next
			}
		}
		s.mu.Unlock()

		return s.emit(u)
	default:
		return nil
	}
}

func (s *StickerStore) onClientUpdate(u td.ClientUpdate) error {
	switch u := u.(type) {
	case *td.ClientUpdateStickerSet:
		var next *td.StickerSet
		if u.StickerSet != nil {
			set := *u.StickerSet
			set.Stickers = append([]td.Sticker(nil), set.Stickers...)
			next = &set
		}

		s.mu.Lock()
		s.stickerSet = next
		s.mu.Unlock()

		s.log.Debug("sticker set replaced", "set_id", setID(u.StickerSet))
		return s.emit(u)
	default:
		return nil
	}
}

func setID(set *td.StickerSet) int64 {
	if set == nil {
		return 0
	}
	return int64(set.ID)
}
