package progress

import (
	"fmt"
	"sync"
)

// SnapshotStore holds the current topic collection.
//
// Stored topics are never modified in place: Replace and Patch install new
// values, so readers and Patch can share untouched topics safely. Snapshot
// and Topic hand out deep copies.
type SnapshotStore struct {
	mu      sync.RWMutex
	topics  []Topic
	index   map[string]int
	version uint64

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		index: make(map[string]int),
		subs:  make(map[int]chan struct{}),
	}
}

// Replace swaps in a deep copy of topics as the whole collection. Progress
// is recomputed from each topic's problems.
func (s *SnapshotStore) Replace(topics []Topic) {
	next := CloneTopics(topics)
	index := make(map[string]int, len(next))
	for i, t := range next {
		next[i] = Recompute(t)
		index[t.ID] = i
	}

	s.mu.Lock()
	s.topics = next
	s.index = index
	s.version++
	s.mu.Unlock()

	s.notify()
}

// Patch replaces the topic with the given id by updater's result. Other
// topics keep their identity. It returns ErrNotFound for an unknown id.
func (s *SnapshotStore) Patch(topicID string, updater func(Topic) Topic) error {
	return s.update(topicID, func(t Topic) (Topic, error) {
		return updater(t), nil
	})
}

// update is Patch with an updater that may refuse the change. Nothing is
// written when it returns an error.
func (s *SnapshotStore) update(topicID string, updater func(Topic) (Topic, error)) error {
	s.mu.Lock()
	i, ok := s.index[topicID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}

	updated, err := updater(s.topics[i].Clone())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	updated.ID = topicID

	next := make([]Topic, len(s.topics))
	copy(next, s.topics)
	next[i] = updated
	s.topics = next
	s.version++
	s.mu.Unlock()

	s.notify()
	return nil
}

// Snapshot returns a deep copy of the current collection.
func (s *SnapshotStore) Snapshot() []Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneTopics(s.topics)
}

// Topic returns a copy of one topic.
func (s *SnapshotStore) Topic(id string) (Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Topic{}, false
	}
	return s.topics[i].Clone(), true
}

// Version counts writes since creation.
func (s *SnapshotStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe returns a channel signalled after each write and a func that
// unsubscribes. Signals coalesce: a slow reader sees at least one signal
// after the latest write.
func (s *SnapshotStore) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *SnapshotStore) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
