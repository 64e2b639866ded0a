package table

import (
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"
)

// ErrCapacityExceeded is returned when a new key is put into a full table.
var ErrCapacityExceeded = xerrors.New("table capacity exceeded")

// Table is a fixed capacity map with lock free reads. Writers copy the current map, modify the
// copy and publish it, so a reader sees either the old or the new entry and never a torn one.
type Table[K comparable, V any] struct {
	capacity int
	mu       sync.Mutex // serializes writers
	entries  atomic.Pointer[map[K]V]
}

func New[K comparable, V any](capacity int) *Table[K, V] {
	t := &Table[K, V]{capacity: capacity}
	m := make(map[K]V)
	t.entries.Store(&m)
	return t
}

func (t *Table[K, V]) Get(key K) (V, bool) {
	v, ok := (*t.entries.Load())[key]
	return v, ok
}

// Put inserts or updates key. Inserting a new key into a full table fails and leaves the
// table unchanged; updating an existing key always succeeds.
func (t *Table[K, V]) Put(key K, value V) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := *t.entries.Load()
	if _, ok := cur[key]; !ok && len(cur) >= t.capacity {
		return xerrors.Errorf("put %v into table of %d: %w", key, t.capacity, ErrCapacityExceeded)
	}
	next := make(map[K]V, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[key] = value
	t.entries.Store(&next)
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (t *Table[K, V]) Delete(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := *t.entries.Load()
	if _, ok := cur[key]; !ok {
		return
	}
	next := make(map[K]V, len(cur))
	for k, v := range cur {
		if k != key {
			next[k] = v
		}
	}
	t.entries.Store(&next)
}

func (t *Table[K, V]) Len() int {
	return len(*t.entries.Load())
}
