// Package clientstate holds the per-browser state of a marketplace client: the
// signed-in session, the cart and the wishlist. State is mirrored into a
// key/value Storage so it survives reloads and is shared by every tab that
// uses the same Storage.
package clientstate

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Change describes one write to a Storage. Origin is the tab that made it, or
// empty when the write came from outside the process.
type Change struct {
	Key     string
	Value   string
	Removed bool
	Origin  string
}

// Storage is a string key/value store shared between tabs. Subscribers are
// told about every change, including their own, and filter on Origin.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(origin, key, value string) error
	Remove(origin, key string) error
	Subscribe(fn func(Change)) (cancel func())
}

// subscribers is the fan-out shared by the Storage implementations.
type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Change)
}

func (s *subscribers) add(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Change))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

// notify calls every subscriber without holding the lock, so callbacks may read the storage.
func (s *subscribers) notify(changes ...Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// MemoryStorage keeps everything in process memory. Tabs share one instance.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
	subs subscribers
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(origin, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()

	m.subs.notify(Change{Key: key, Value: value, Origin: origin})
	return nil
}

func (m *MemoryStorage) Remove(origin, key string) error {
	m.mu.Lock()
	_, existed := m.data[key]
	delete(m.data, key)
	m.mu.Unlock()

	if existed {
		m.subs.notify(Change{Key: key, Removed: true, Origin: origin})
	}
	return nil
}

func (m *MemoryStorage) Subscribe(fn func(Change)) func() {
	return m.subs.add(fn)
}

// loadJSON decodes key into dst. A missing key leaves dst untouched and an
// undecodable value is discarded, the same way a browser app treats corrupt local storage.
func loadJSON(s Storage, key string, dst interface{}) error {
	raw, ok, err := s.Get(key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		zap.L().Warn("discarding undecodable client state", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func saveJSON(s Storage, origin, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.Set(origin, key, string(raw)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
