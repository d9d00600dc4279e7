package native

import (
	"errors"
	"sync"
)

var (
	ErrTableClosed = errors.New("handle table closed")
	ErrTableFull   = errors.New("handle table exhausted")
)

// Table hands out handles for values stored on the engine side. Released
// handles go on a free list and are reused by later Create calls, the same
// way a native allocator reuses addresses.
type Table[V any] struct {
	entries  []tableEntry[V]
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type tableEntry[V any] struct {
	value V
	kind  Kind
	valid bool
}

// NewTable creates an empty handle table.
func NewTable[V any]() *Table[V] {
	return &Table[V]{
		entries:  make([]tableEntry[V], 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores value under a fresh or recycled handle.
func (t *Table[V]) Create(kind Kind, value V) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return Invalid, ErrTableClosed
	}

	e := tableEntry[V]{
		value: value,
		kind:  kind,
		valid: true,
	}

	if len(t.freeList) > 0 {
		h := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[h-1] = e
		return h, nil
	}

	if uint64(len(t.entries)) >= uint64(^Handle(0)) {
		return Invalid, ErrTableFull
	}
	t.entries = append(t.entries, e)
	return Handle(len(t.entries)), nil
}

// Get returns the value stored under h.
func (t *Table[V]) Get(h Handle) (V, bool) {
	var zero V
	if h == Invalid {
		return zero, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(h - 1)
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return zero, false
	}
	return t.entries[idx].value, true
}

// GetKind returns the value under h only if it was created with kind.
func (t *Table[V]) GetKind(h Handle, kind Kind) (V, bool) {
	var zero V
	if h == Invalid {
		return zero, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(h - 1)
	if idx >= len(t.entries) {
		return zero, false
	}
	e := t.entries[idx]
	if !e.valid || e.kind != kind {
		return zero, false
	}
	return e.value, true
}

// Kind returns the kind recorded for h.
func (t *Table[V]) Kind(h Handle) (Kind, bool) {
	if h == Invalid {
		return KindUnknown, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(h - 1)
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return KindUnknown, false
	}
	return t.entries[idx].kind, true
}

// Drop removes h and returns its value. A second Drop of the same handle
// returns false unless the handle was recycled in between.
func (t *Table[V]) Drop(h Handle) (V, bool) {
	var zero V
	if h == Invalid {
		return zero, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := int(h - 1)
	if idx >= len(t.entries) {
		return zero, false
	}

	e := &t.entries[idx]
	if !e.valid {
		return zero, false
	}

	value := e.value
	e.valid = false
	e.value = zero
	e.kind = KindUnknown
	t.freeList = append(t.freeList, h)
	return value, true
}

// Len returns the number of live handles.
func (t *Table[V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, e := range t.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// CountKind returns the number of live handles of kind.
func (t *Table[V]) CountKind(kind Kind) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, e := range t.entries {
		if e.valid && e.kind == kind {
			count++
		}
	}
	return count
}

// Each calls fn for every live handle until fn returns false.
func (t *Table[V]) Each(fn func(Handle, Kind, V) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.valid {
			if !fn(Handle(i+1), e.kind, e.value) {
				break
			}
		}
	}
}

// Close drops every entry and rejects further Create calls.
func (t *Table[V]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.entries = nil
	t.freeList = nil
}
