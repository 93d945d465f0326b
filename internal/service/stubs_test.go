package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type stubProvider struct {
	mu    sync.Mutex
	snap  models.Snapshot
	err   error
	loads int
}

func (p *stubProvider) Load(ctx context.Context, hy models.HalfYear) (models.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	if p.err != nil {
		return models.Snapshot{}, p.err
	}
	return p.snap, nil
}

type recordingSink struct {
	mu     sync.Mutex
	deltas []models.SnapshotDelta
	err    error
	fails  int
}

func (s *recordingSink) Apply(ctx context.Context, delta models.SnapshotDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.fails > 0 {
		s.fails--
		return appErrors.ErrUnavailable
	}
	s.deltas = append(s.deltas, delta)
	return nil
}

func (s *recordingSink) applied() []models.SnapshotDelta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SnapshotDelta(nil), s.deltas...)
}

// memoryCache round-trips through JSON the way the Redis repository does.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	c.sets++
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

// newTestSnapshots serves fixtureSnapshot for H1 without a cache.
func newTestSnapshots() (*SnapshotService, *stubProvider, *recordingSink) {
	provider := &stubProvider{snap: fixtureSnapshot()}
	sink := &recordingSink{}
	return NewSnapshotService(provider, sink, NewCacheService(nil, nil, 0, "test", nil, false), 5, nil), provider, sink
}
