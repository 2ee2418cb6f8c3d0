// File: internal/session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe registry of live connectors.

package session

import (
	"hash/fnv"
	"sync"
)

// Store maps connector ids to connectors.
type Store struct {
	shards []*storeShard
	mask   uint32
}

type storeShard struct {
	mu         sync.RWMutex
	connectors map[string]*Connector
}

// NewStore constructs a store with shardCount shards, rounded up to a power of two.
func NewStore(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = 16
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*storeShard, m)
	for i := range shards {
		shards[i] = &storeShard{connectors: make(map[string]*Connector)}
	}
	return &Store{shards: shards, mask: m - 1}
}

func (s *Store) shard(id string) *storeShard {
	return s.shards[fnv32(id)&s.mask]
}

// Add inserts c. It reports false when the id is already present.
func (s *Store) Add(c *Connector) bool {
	sh := s.shard(c.ID())
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.connectors[c.ID()]; ok {
		return false
	}
	sh.connectors[c.ID()] = c
	return true
}

// Get fetches a connector if present.
func (s *Store) Get(id string) (*Connector, bool) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	c, ok := sh.connectors[id]
	return c, ok
}

// Delete removes id and reports whether it was present.
func (s *Store) Delete(id string) bool {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.connectors[id]
	delete(sh.connectors, id)
	return ok
}

// Range calls fn for every connector. fn runs under a shard read lock and
// must not modify the store.
func (s *Store) Range(fn func(*Connector)) {
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, c := range sh.connectors {
			fn(c)
		}
		sh.mu.RUnlock()
	}
}

// Snapshot returns the current connectors.
func (s *Store) Snapshot() []*Connector {
	var out []*Connector
	s.Range(func(c *Connector) { out = append(out, c) })
	return out
}

// Len counts the connectors.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.connectors)
		sh.mu.RUnlock()
	}
	return n
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
