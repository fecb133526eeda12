package mutex

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes callers per key. Entries are dropped once no caller holds or
// waits for them.
type KeyedMutex[K comparable] struct {
	mu sync.Mutex
	m  map[K]*entry
}

func (km *KeyedMutex[K]) Lock(key K) {
	km.mu.Lock()
	if km.m == nil {
		km.m = make(map[K]*entry)
	}
	e, ok := km.m[key]
	if !ok {
		e = &entry{}
		km.m[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
}

func (km *KeyedMutex[K]) Unlock(key K) {
	km.mu.Lock()
	defer km.mu.Unlock()

	e, ok := km.m[key]
	if !ok {
		panic("mutex: unlock of unlocked key")
	}

	e.refs--
	if e.refs == 0 {
		delete(km.m, key)
	}
	e.mu.Unlock()
}

// Len returns the number of keys currently held or awaited.
func (km *KeyedMutex[K]) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.m)
}
