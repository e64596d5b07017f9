package session

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps client storage in process. Entries expire after the
// configured TTL the same way the browser drops the session cookie.
type MemoryBackend struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[memoryKey]entry
	hub *hub
	now func() time.Time
}

type memoryKey struct {
	client string
	key    string
}

type entry struct {
	val string
	exp time.Time
}

func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &MemoryBackend{
		ttl: ttl,
		m:   make(map[memoryKey]entry),
		hub: newHub(),
		now: time.Now,
	}
}

func (b *MemoryBackend) ForClient(clientID string) Storage {
	return &memoryStorage{b: b, client: clientID}
}

func (b *MemoryBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (b *MemoryBackend) Close() error {
	b.hub.closeAll()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.m = make(map[memoryKey]entry)
	return nil
}

type memoryStorage struct {
	b      *MemoryBackend
	client string
}

func (s *memoryStorage) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	k := memoryKey{client: s.client, key: key}
	now := s.b.now()

	s.b.mu.RLock()
	e, ok := s.b.m[k]
	s.b.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}

	if now.After(e.exp) {
		s.b.mu.Lock()
		delete(s.b.m, k)
		s.b.mu.Unlock()
		return "", ErrNotFound
	}

	return e.val, nil
}

func (s *memoryStorage) Set(ctx context.Context, entries map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	exp := s.b.now().Add(s.b.ttl)

	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	for key, val := range entries {
		s.b.m[memoryKey{client: s.client, key: key}] = entry{val: val, exp: exp}
	}
	for key := range entries {
		s.b.hub.publish(s.client, Change{Key: key})
	}
	return nil
}

func (s *memoryStorage) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	for _, key := range keys {
		delete(s.b.m, memoryKey{client: s.client, key: key})
	}
	for _, key := range keys {
		s.b.hub.publish(s.client, Change{Key: key, Cleared: true})
	}
	return nil
}

func (s *memoryStorage) Watch(ctx context.Context) (<-chan Change, error) {
	return s.b.hub.subscribe(ctx, s.client), nil
}
