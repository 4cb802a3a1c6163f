package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no table is stored under a digest.
var ErrNotFound = errors.New("stock table not found")

// TableStore keeps loaded extracts between bot interactions, keyed by content digest.
type TableStore interface {
	Put(ctx context.Context, digest string, t *stock.Table) error
	Get(ctx context.Context, digest string) (*stock.Table, error)
}

// MemoryStore holds up to max tables and drops the oldest first.
type MemoryStore struct {
	mu     sync.Mutex
	max    int
	tables map[string]*stock.Table
	order  []string
}

func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 32
	}
	return &MemoryStore{max: max, tables: map[string]*stock.Table{}}
}

func (s *MemoryStore) Put(_ context.Context, digest string, t *stock.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[digest]; ok {
		s.tables[digest] = t
		return nil
	}
	for len(s.order) >= s.max {
		delete(s.tables, s.order[0])
		s.order = s.order[1:]
	}
	s.tables[digest] = t
	s.order = append(s.order, digest)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, digest string) (*stock.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[digest]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// RedisStore keeps tables as JSON with a TTL, so several bot replicas share uploads.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, prefix: "crod:table:"}
}

func (s *RedisStore) Put(ctx context.Context, digest string, t *stock.Table) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	return s.client.Set(ctx, s.prefix+digest, data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, digest string) (*stock.Table, error) {
	data, err := s.client.Get(ctx, s.prefix+digest).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t stock.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return &t, nil
}
