package page

import (
	"context"
	"sync"
	"time"
)

type mapEntry[V any] struct {
	value    V
	expireAt time.Time
}

// MapStore 进程内存储，过期键在读取时清理
type MapStore[V any] struct {
	mu  sync.RWMutex
	m   map[string]mapEntry[V]
	now func() time.Time
}

func NewMapStore[V any]() *MapStore[V] {
	return &MapStore[V]{
		m:   make(map[string]mapEntry[V]),
		now: time.Now,
	}
}

func (s *MapStore[V]) Get(ctx context.Context, key string) (V, error) {
	s.mu.RLock()
	entry, ok := s.m[key]
	s.mu.RUnlock()

	if ok && !entry.expireAt.IsZero() && !s.now().Before(entry.expireAt) {
		s.mu.Lock()
		if cur, exists := s.m[key]; exists && cur.expireAt.Equal(entry.expireAt) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		ok = false
	}

	if !ok {
		var zero V
		return zero, ErrKeyNotFound
	}
	return entry.value, nil
}

func (s *MapStore[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	entry := mapEntry[V]{value: value}
	if ttl > 0 {
		entry.expireAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.m[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MapStore[V]) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *MapStore[V]) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.m = make(map[string]mapEntry[V])
	s.mu.Unlock()
	return nil
}

func (s *MapStore[V]) Close() error {
	return s.Clear(context.Background())
}
