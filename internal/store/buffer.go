package store

import (
	"fmt"
	"sync"

	"github.com/sievelabs/sieve/internal/model"
)

// Evicted is the (id, entry) pair dropped from the buffer to make room for a
// newly pushed entry.
type Evicted struct {
	ID    model.MessageID
	Entry model.Entry
}

// PushResult reports the outcome of one buffer push.
type PushResult struct {
	Added   model.MessageID
	Evicted *Evicted // nil when the buffer was below capacity
}

// MessageBuffer is the bounded ring of all recent entries. It assigns every
// pushed entry the next MessageID and evicts the single oldest entry once the
// bound is reached. The set of retained ids is always the contiguous range
// [start, start+len).
type MessageBuffer struct {
	mu    sync.Mutex
	start model.MessageID // id of the oldest retained entry
	ring  []model.Entry   // fixed capacity, len(ring) == bound
	head  int             // ring offset of the oldest entry
	size  int
}

// NewMessageBuffer creates a buffer retaining at most bound entries.
// A non-positive bound is a configuration error.
func NewMessageBuffer(bound int) (*MessageBuffer, error) {
	if bound <= 0 {
		return nil, fmt.Errorf("buffer bound must be positive, got %d", bound)
	}
	return &MessageBuffer{ring: make([]model.Entry, bound)}, nil
}

// Push appends entry, assigning it the next sequential id. If the buffer was
// at capacity the oldest entry is removed first and returned in the result.
func (b *MessageBuffer) Push(entry model.Entry) PushResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	var evicted *Evicted
	if b.size == len(b.ring) {
		evicted = &Evicted{ID: b.start, Entry: b.ring[b.head]}
		b.ring[b.head] = nil
		b.head = (b.head + 1) % len(b.ring)
		b.start++
		b.size--
	}

	added := b.start + model.MessageID(b.size)
	b.ring[(b.head+b.size)%len(b.ring)] = entry
	b.size++

	return PushResult{Added: added, Evicted: evicted}
}

// Len returns the number of currently retained entries.
func (b *MessageBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Bound returns the fixed capacity of the buffer.
func (b *MessageBuffer) Bound() int {
	return len(b.ring)
}

// Window returns the half-open id range [start, end) currently retained.
func (b *MessageBuffer) Window() (start, end model.MessageID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.start, b.start + model.MessageID(b.size)
}

// Get returns the entry with the given id, or false if the id is outside the
// current window (already evicted, or not yet assigned).
func (b *MessageBuffer) Get(id model.MessageID) (model.Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id < b.start || id >= b.start+model.MessageID(b.size) {
		return nil, false
	}
	offset := int(id - b.start)
	return b.ring[(b.head+offset)%len(b.ring)], true
}
