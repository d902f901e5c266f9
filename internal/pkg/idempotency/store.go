package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bearshare:idem:"

// DefaultInFlightTTL bounds how long a reservation outlives a crashed request
const DefaultInFlightTTL = time.Minute

// ErrNotFound is returned by Get when nothing is stored under a key
var ErrNotFound = errors.New("idempotency record not found")

// Record is a stored response. A record with Done == false marks a request
// that is still in flight.
type Record struct {
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store keeps the first response for an idempotency key
type Store interface {
	// Reserve claims key. It returns false when the key is already taken.
	Reserve(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Complete(ctx context.Context, key string, record Record) error
	Release(ctx context.Context, key string) error
}

// RedisConfig configures the redis client
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a client and pings it once
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisStore stores records as JSON strings. Reservations expire after
// inFlightTTL, completed responses after ttl.
type RedisStore struct {
	rdb         redis.Cmdable
	ttl         time.Duration
	inFlightTTL time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl, inFlightTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, inFlightTTL: inFlightOrDefault(inFlightTTL)}
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (bool, error) {
	pending, _ := json.Marshal(Record{})
	ok, err := s.rdb.SetNX(ctx, keyPrefix+key, pending, s.inFlightTTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, record Record) error {
	record.Done = true
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

// MemoryStore is a process local Store
type MemoryStore struct {
	mu          sync.Mutex
	ttl         time.Duration
	inFlightTTL time.Duration
	entries     map[string]memoryEntry
	now         func() time.Time
}

func NewMemoryStore(ttl, inFlightTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:         ttl,
		inFlightTTL: inFlightOrDefault(inFlightTTL),
		entries:     make(map[string]memoryEntry),
		now:         time.Now,
	}
}

func (s *MemoryStore) Reserve(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = memoryEntry{expiresAt: s.now().Add(s.inFlightTTL)}
	return true, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	record := entry.record
	return &record, nil
}

func (s *MemoryStore) Complete(ctx context.Context, key string, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.Done = true
	s.entries[key] = memoryEntry{record: record, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// live must be called with mu held
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func inFlightOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultInFlightTTL
	}
	return d
}
