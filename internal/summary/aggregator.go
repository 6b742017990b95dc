package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-tracker/internal/platform/cache"
	"github.com/p-n-ai/pai-tracker/internal/progress"
)

// Cache stores authority summaries per user. Get reports a miss with
// ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, user string) (s Summary, ok bool, err error)
	Set(ctx context.Context, user string, s Summary, ttl time.Duration) error
	Delete(ctx context.Context, user string) error
}

// AggregatorConfig holds dependencies for an Aggregator.
type AggregatorConfig struct {
	Client Client
	Cache  Cache // optional
	TTL    time.Duration
	UserID string
	Logger *slog.Logger
}

// Aggregator serves Views, caching the authority payload when a Cache is
// configured.
type Aggregator struct {
	client Client
	cache  Cache
	ttl    time.Duration
	user   string
	logger *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		client: cfg.Client,
		cache:  cfg.Cache,
		ttl:    cfg.TTL,
		user:   cfg.UserID,
		logger: logger.With("component", "summary"),
	}
}

// View returns the aggregate view for the given snapshot. Cache failures
// are logged and fall through to the authority.
func (a *Aggregator) View(ctx context.Context, topics []progress.Topic) (View, error) {
	if a.cache != nil {
		s, ok, err := a.cache.Get(ctx, a.user)
		switch {
		case err != nil:
			a.logger.Warn("summary cache read failed", "user_id", a.user, "error", err)
		case ok:
			return Build(s, topics), nil
		}
	}

	s, err := a.client.FetchSummary(ctx)
	if err != nil {
		return View{}, fmt.Errorf("fetch summary: %w", err)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, a.user, s, a.ttl); err != nil {
			a.logger.Warn("summary cache write failed", "user_id", a.user, "error", err)
		}
	}
	return Build(s, topics), nil
}

// Invalidate drops the cached summary so the next View refetches it.
func (a *Aggregator) Invalidate(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	if err := a.cache.Delete(ctx, a.user); err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}

// RedisCache keeps summaries in Redis/Dragonfly under summary:<user>.
type RedisCache struct {
	c *cache.Cache
}

func NewRedisCache(c *cache.Cache) *RedisCache {
	return &RedisCache{c: c}
}

func key(user string) string {
	return "summary:" + user
}

func (r *RedisCache) Get(ctx context.Context, user string) (Summary, bool, error) {
	var s Summary
	err := r.c.GetJSON(ctx, key(user), &s)
	if errors.Is(err, cache.ErrMiss) {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, err
	}
	return s, true, nil
}

func (r *RedisCache) Set(ctx context.Context, user string, s Summary, ttl time.Duration) error {
	return r.c.SetJSON(ctx, key(user), s, ttl)
}

func (r *RedisCache) Delete(ctx context.Context, user string) error {
	return r.c.Delete(ctx, key(user))
}

// MemoryCache is an in-process Cache for tests and single-node runs.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	s       Summary
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, user string) (Summary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[user]
	if !ok {
		return Summary{}, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, user)
		return Summary{}, false, nil
	}
	return e.s, true, nil
}

func (m *MemoryCache) Set(_ context.Context, user string, s Summary, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{s: s}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[user] = e
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, user string) error {
	m.mu.Lock()
	delete(m.entries, user)
	m.mu.Unlock()
	return nil
}

// MockClient is a test double for Client.
type MockClient struct {
	mu      sync.Mutex
	Summary Summary
	Err     error
	calls   int
}

func (m *MockClient) FetchSummary(context.Context) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return Summary{}, m.Err
	}
	return m.Summary, nil
}

// Calls returns how many times FetchSummary was called.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
