package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Versions records the invalidation epoch of each tag at the time it was
// read. Every Invalidate of a tag advances its epoch.
type Versions map[Tag]uint64

// Cache stores serialized read models grouped by partition tags.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...Tag) error
	Invalidate(ctx context.Context, tags ...Tag) error
	// Versions reads the current epoch of tags. Read-through fills take it
	// before loading.
	Versions(ctx context.Context, tags ...Tag) (Versions, error)
	// SetIfUnchanged stores value under the tags in seen plus extra, unless a
	// tag in seen was invalidated after seen was read. It reports whether the
	// entry was stored.
	SetIfUnchanged(ctx context.Context, key string, value []byte, ttl time.Duration, seen Versions, extra ...Tag) (bool, error)
}

// Memory is an in-process Cache for single-instance deployments and tests.
type Memory struct {
	entries *ristretto.Cache[string, []byte]

	mu       sync.Mutex
	tags     map[Tag]map[string]struct{}
	versions map[Tag]uint64
}

func NewMemory(maxBytes int64) (*Memory, error) {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	entries, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100_000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{
		entries:  entries,
		tags:     make(map[Tag]map[string]struct{}),
		versions: make(map[Tag]uint64),
	}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.entries.Get(key)
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags ...Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, value, ttl, tags)
	return nil
}

// set requires m.mu.
func (m *Memory) set(key string, value []byte, ttl time.Duration, tags []Tag) {
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	m.entries.SetWithTTL(key, value, int64(len(value)), ttl)
	m.entries.Wait()
}

func (m *Memory) Versions(_ context.Context, tags ...Tag) (Versions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(Versions, len(tags))
	for _, tag := range tags {
		seen[tag] = m.versions[tag]
	}
	return seen, nil
}

func (m *Memory) SetIfUnchanged(_ context.Context, key string, value []byte, ttl time.Duration, seen Versions, extra ...Tag) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tag, version := range seen {
		if m.versions[tag] != version {
			return false, nil
		}
	}
	m.set(key, value, ttl, append(seen.Tags(), extra...))
	return true, nil
}

func (m *Memory) Invalidate(_ context.Context, tags ...Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		m.versions[tag]++
		for key := range m.tags[tag] {
			m.entries.Del(key)
		}
		delete(m.tags, tag)
	}
	return nil
}

func (m *Memory) Close() {
	m.entries.Close()
}

// Tags lists the tags in v in a stable order.
func (v Versions) Tags() []Tag {
	tags := make([]Tag, 0, len(v))
	for tag := range v {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
