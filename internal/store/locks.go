package store

import "sync"

// conversationLocks serializes mutations per conversation id. Appends and
// feedback patches for the same conversation take the same lock; different
// conversations proceed independently. Entries are reference-counted and
// removed once the last holder releases, so the map does not grow with the
// number of conversations ever touched.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[string]*lockEntry)}
}

// acquire blocks until the caller holds the lock for conversationID. Every
// acquire must be paired with a release.
func (l *conversationLocks) acquire(conversationID string) {
	l.mu.Lock()
	entry, ok := l.locks[conversationID]
	if !ok {
		entry = &lockEntry{}
		l.locks[conversationID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *conversationLocks) release(conversationID string) {
	l.mu.Lock()
	entry := l.locks[conversationID]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, conversationID)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}

// held reports how many conversation ids currently have a lock entry.
func (l *conversationLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
