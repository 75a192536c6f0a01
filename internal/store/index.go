package store

import (
	"fmt"
	"sync"

	"github.com/sievelabs/sieve/internal/model"
)

// Index is an ordered queue of the ids of entries that matched one index
// method at push time and have not yet been evicted from the buffer. The raw
// index is structurally the same, just never conditioned.
//
// Each Index carries its own lock and is shared by reference, so mutating one
// index never blocks a concurrent mutation of another.
type Index struct {
	mu    sync.Mutex
	queue []model.MessageID
	head  int // dead prefix of queue consumed by Remove
}

// Add appends id to the tail of the queue. Ids arrive in global push order,
// so a non-increasing id means the store's invariants are broken; that is a
// defect and panics rather than corrupting the index.
func (ix *Index) Add(id model.MessageID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if n := len(ix.queue); n > ix.head {
		if tail := ix.queue[n-1]; tail >= id {
			panic(fmt.Sprintf("index invariant violated: adding id %d after tail %d", id, tail))
		}
	}
	ix.queue = append(ix.queue, id)
}

// Remove drops id from the head of the queue. An empty queue, or a head newer
// than id, means the index was created after id was pushed and never held it;
// that is a no-op. A head older than id means an entry is being evicted out of
// order, which is a defect and panics.
func (ix *Index) Remove(id model.MessageID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.head == len(ix.queue) {
		return
	}
	front := ix.queue[ix.head]
	switch {
	case front > id:
		// index created after id was pushed; id was never a member
	case front < id:
		panic(fmt.Sprintf("index invariant violated: evicting id %d but head is stale id %d", id, front))
	default:
		ix.head++
		ix.compact()
	}
}

// compact reclaims the consumed prefix once it dominates the backing slice.
// Caller must hold mu.
func (ix *Index) compact() {
	if ix.head == len(ix.queue) {
		ix.queue = ix.queue[:0]
		ix.head = 0
		return
	}
	if ix.head >= 64 && ix.head*2 >= len(ix.queue) {
		n := copy(ix.queue, ix.queue[ix.head:])
		ix.queue = ix.queue[:n]
		ix.head = 0
	}
}

// Len returns the number of ids currently held.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.queue) - ix.head
}

// Snapshot returns a copy of the currently held ids, oldest first.
func (ix *Index) Snapshot() []model.MessageID {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]model.MessageID, len(ix.queue)-ix.head)
	copy(out, ix.queue[ix.head:])
	return out
}
