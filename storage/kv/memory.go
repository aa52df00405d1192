package kv

import (
	"context"
	"sync"
	"time"

	"github.com/japhetcordova/clc-sub000/core"
)

type entry struct {
	value    string
	expireAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// MemoryStore is a core.KVStore for single process installs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

var _ core.KVStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: func() time.Time { return core.NowFunc() }}
}

// get must be called with mu held.
func (s *MemoryStore) get(key string) (entry, bool) {
	e, ok := s.entries[key]
	if ok && e.expired(s.now()) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, ok
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.get(key)
	if !ok {
		return "", core.ErrKeyNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, expireAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, expireAt: expireAt}
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, expireAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.get(key); ok {
		return false, nil
	}
	s.entries[key] = entry{value: value, expireAt: expireAt}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
