// Package store implements the indexed ring-buffer at the heart of sieve:
// a bounded window of recent log entries plus dynamic per-criterion secondary
// indices kept consistent with buffer eviction.
package store

import (
	"sync"

	"github.com/sievelabs/sieve/internal/model"
)

// Store owns the message buffer, the raw index for opaque entries, and the
// registry of secondary indices. It is written by a single ingestion
// goroutine via Push and read by any number of concurrent queriers; all
// synchronization is internal.
type Store struct {
	buffer   *MessageBuffer
	rawIndex *Index

	// registryMu guards the registry map only. It is write-locked solely
	// when a new index is registered, which is rare, so computing push
	// targets under a read lock barely contends.
	registryMu sync.RWMutex
	registry   map[string]*registered

	stats ingestStats
}

// registered pairs an index with the method it was registered under, so a
// registry snapshot can be listed without a reverse lookup.
type registered struct {
	method model.IndexMethod
	index  *Index
}

// New creates a Store whose buffer retains at most bound entries.
func New(bound int) (*Store, error) {
	buffer, err := NewMessageBuffer(bound)
	if err != nil {
		return nil, err
	}
	return &Store{
		buffer:   buffer,
		rawIndex: &Index{},
		registry: make(map[string]*registered),
	}, nil
}

// indexTarget is the set of indices one entry belongs to: either the raw
// index, or whichever secondary indices the entry's fields match.
type indexTarget struct {
	raw     bool
	matched []*Index
}

// Push ingests one entry: classify it against the current registry, append it
// to the buffer, record the new id in every targeted index, and, if the
// append evicted an old entry, re-classify that entry and remove its id.
//
// The two classifications are deliberately independent reads of the registry.
// A registration landing between them is tolerated (Index.Remove treats a
// never-member id as a no-op) rather than serialized against, which would
// pin the registry lock across the buffer mutation.
func (s *Store) Push(entry model.Entry) {
	target := s.indexTarget(entry)

	result := s.buffer.Push(entry)

	s.addToIndex(result.Added, target)
	if result.Evicted != nil {
		s.removeFromIndex(result.Evicted.ID, result.Evicted.Entry)
	}

	s.stats.recordPush()
}

func (s *Store) indexTarget(entry model.Entry) indexTarget {
	structured, ok := entry.(model.Structured)
	if !ok {
		return indexTarget{raw: true}
	}

	s.registryMu.RLock()
	var matched []*Index
	for _, reg := range s.registry {
		if Matches(reg.method.Conditions, structured.Fields) {
			matched = append(matched, reg.index)
		}
	}
	s.registryMu.RUnlock()

	return indexTarget{matched: matched}
}

func (s *Store) addToIndex(id model.MessageID, target indexTarget) {
	if target.raw {
		s.rawIndex.Add(id)
		return
	}
	for _, index := range target.matched {
		index.Add(id)
	}
}

func (s *Store) removeFromIndex(id model.MessageID, entry model.Entry) {
	target := s.indexTarget(entry)
	if target.raw {
		s.rawIndex.Remove(id)
		return
	}
	for _, index := range target.matched {
		index.Remove(id)
	}
}

// Register returns the secondary index for method, creating an empty one if
// the method is not yet registered. A new index does not backfill from
// entries already in the buffer: it only ever learns ids pushed after it
// exists.
func (s *Store) Register(method model.IndexMethod) *Index {
	key := method.Key()

	s.registryMu.RLock()
	reg, ok := s.registry[key]
	s.registryMu.RUnlock()
	if ok {
		return reg.index
	}

	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	if reg, ok := s.registry[key]; ok {
		return reg.index
	}
	reg = &registered{method: method, index: &Index{}}
	s.registry[key] = reg
	return reg.index
}

// Lookup returns the index registered for method, if any.
func (s *Store) Lookup(method model.IndexMethod) (*Index, bool) {
	s.registryMu.RLock()
	defer s.registryMu.RUnlock()
	reg, ok := s.registry[method.Key()]
	if !ok {
		return nil, false
	}
	return reg.index, true
}

// ListIndices returns a snapshot of all currently registered index methods.
func (s *Store) ListIndices() []model.IndexMethod {
	s.registryMu.RLock()
	defer s.registryMu.RUnlock()
	methods := make([]model.IndexMethod, 0, len(s.registry))
	for _, reg := range s.registry {
		methods = append(methods, reg.method)
	}
	return methods
}

// RawIndex returns the always-present index of opaque entries.
func (s *Store) RawIndex() *Index {
	return s.rawIndex
}

// Buffer returns the underlying message buffer.
func (s *Store) Buffer() *MessageBuffer {
	return s.buffer
}
