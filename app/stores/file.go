package stores

import (
	"sync"

	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

// FileStore mirrors transfer state of files by id.
type FileStore struct {
	*publisher

	log logger.Logger

	mu    sync.RWMutex
	files map[int32]*td.File
}

func NewFileStore(log logger.Logger, gw Gateway) *FileStore {
	s := &FileStore{
		publisher: newPublisher(),
		log:       log.With("store", "file"),
		files:     make(map[int32]*td.File),
	}
	s.subs.Add(gw.OnUpdate(s.onUpdate))

	return s
}

func (s *FileStore) Get(id int32) *td.File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.files[id]
}

func (s *FileStore) onUpdate(u td.Update) error {
	switch u := u.(type) {
	case *td.UpdateFile:
		f := u.File

		s.mu.Lock()
		s.files[f.ID] = &f
		s.mu.Unlock()

		return s.emit(u)
	default:
		return nil
	}
}
