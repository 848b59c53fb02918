// Package memstore implements an in-memory, capacity-bounded cache.Storage
// with last-access-first eviction, grounded on the teacher's MemoryCache
// (httpcache.go: a plain mutex-protected map with no bound) but restructured
// around cache.Entry values and given an actual eviction order via
// google/btree, since an unbounded in-process map is unfit for a long-lived
// client.
package memstore

import (
	"sync"

	"github.com/google/btree"

	"github.com/fluxhttp/flux/cache"
)

const btreeDegree = 32

// DefaultCapacity bounds the number of entries kept in memory absent an
// explicit capacity.
const DefaultCapacity = 1000

// Store is a bounded in-memory cache.Storage. Entries are ordered by access
// sequence in a btree so the least-recently-touched entry can be found and
// evicted in O(log n) once capacity is exceeded.
type Store struct {
	mu       sync.Mutex
	capacity int
	tree     *btree.BTree
	items    map[string]*node
	seq      int64
}

type node struct {
	key   string
	entry cache.Entry
	seq   int64
}

func (n *node) Less(than btree.Item) bool {
	return n.seq < than.(*node).seq
}

// New constructs a Store bounded to capacity entries. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		tree:     btree.New(btreeDegree),
		items:    make(map[string]*node),
	}
}

// Get returns the entry stored under key, if any, and marks it
// most-recently-used.
func (s *Store) Get(key string) (cache.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[key]
	if !ok {
		return cache.Entry{}, false
	}
	s.touch(n)
	return n.entry, true
}

// Set stores entry under key, evicting the least-recently-used entries as
// needed to stay within capacity. An entry with ShouldNotStore set is never
// persisted (invariant I3).
func (s *Store) Set(key string, entry cache.Entry) error {
	if entry.ShouldNotStore() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[key]; ok {
		s.tree.Delete(existing)
		existing.entry = entry
		s.touch(existing)
		return nil
	}

	n := &node{key: key, entry: entry}
	s.items[key] = n
	s.touch(n)

	for len(s.items) > s.capacity {
		oldest := s.tree.Min()
		if oldest == nil {
			break
		}
		s.tree.Delete(oldest)
		delete(s.items, oldest.(*node).key)
	}
	return nil
}

// Delete removes key, if present.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.items[key]; ok {
		s.tree.Delete(n)
		delete(s.items, key)
	}
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree = btree.New(btreeDegree)
	s.items = make(map[string]*node)
	s.seq = 0
}

// touch reinserts n at the current sequence, marking it most-recently-used.
// Callers must hold s.mu.
func (s *Store) touch(n *node) {
	s.tree.Delete(n)
	s.seq++
	n.seq = s.seq
	s.tree.ReplaceOrInsert(n)
}
