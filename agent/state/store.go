package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStoreKeyPrefix = "support:run:"
	defaultStoreTTL       = 24 * time.Hour
)

// Store persists run snapshots keyed by run id.
type Store interface {
	Load(ctx context.Context, runID string) (*RunState, error)
	Save(ctx context.Context, st *RunState) error
	Delete(ctx context.Context, runID string) error
}

// StoreOption customizes RedisStore.
type StoreOption func(*RedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *RedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func WithClient(client redis.UniversalClient) StoreOption {
	return func(s *RedisStore) {
		if client != nil {
			s.client = client
		}
	}
}

type RedisConfig struct {
	Addr        string        `envconfig:"ADDR" split_words:"true" default:"localhost:6379"`
	Password    string        `envconfig:"PASSWORD" split_words:"true"`
	DB          int           `envconfig:"DB" split_words:"true" default:"0"`
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	KeyPrefix   string        `envconfig:"KEY_PREFIX" split_words:"true" default:"support:run:"`
	TTL         time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// RedisStore keeps one JSON snapshot per run.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(cfg RedisConfig, opts ...StoreOption) (*RedisStore, error) {
	store := &RedisStore{
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
	}
	if trimmed := strings.TrimSpace(cfg.KeyPrefix); trimmed != "" {
		store.keyPrefix = trimmed
	}
	if cfg.TTL > 0 {
		store.ttl = cfg.TTL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.client == nil {
		addr := strings.TrimSpace(cfg.Addr)
		if addr == "" {
			return nil, errors.New("redis addr is required")
		}
		dialTimeout := cfg.DialTimeout
		if dialTimeout <= 0 {
			dialTimeout = 5 * time.Second
		}
		store.client = redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  dialTimeout,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context, runID string) (*RunState, error) {
	key, err := s.redisKey(runID)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var st RunState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal run state: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run state loaded from store: %w", err)
	}
	return &st, nil
}

func (s *RedisStore) Save(ctx context.Context, st *RunState) error {
	if st == nil {
		return ErrNilRunState
	}
	key, err := s.redisKey(st.RunID)
	if err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	key, err := s.redisKey(runID)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) redisKey(runID string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", ErrInvalidRun
	}
	return s.keyPrefix + runID, nil
}

// MemoryOption customizes MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL sets how long a snapshot is kept after its last save.
// Zero keeps snapshots until deleted.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		if ttl >= 0 {
			m.ttl = ttl
		}
	}
}

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore keeps snapshots in process memory. Snapshots are deep copies
// and expire ttl after their last save, like RedisStore keys.
type MemoryStore struct {
	mu        sync.RWMutex
	runs      map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		runs: make(map[string]memoryEntry),
		ttl:  defaultStoreTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *MemoryStore) Load(_ context.Context, runID string) (*RunState, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, ErrInvalidRun
	}
	m.mu.RLock()
	entry, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrRunNotFound
	}
	if m.expired(entry, m.now()) {
		m.mu.Lock()
		if cur, ok := m.runs[runID]; ok && m.expired(cur, m.now()) {
			delete(m.runs, runID)
		}
		m.mu.Unlock()
		return nil, ErrRunNotFound
	}

	var st RunState
	if err := json.Unmarshal(entry.payload, &st); err != nil {
		return nil, fmt.Errorf("unmarshal run state: %w", err)
	}
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, st *RunState) error {
	if st == nil {
		return ErrNilRunState
	}
	if strings.TrimSpace(st.RunID) == "" {
		return ErrInvalidRun
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	now := m.now()
	entry := memoryEntry{payload: payload}
	if m.ttl > 0 {
		entry.expiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	m.runs[st.RunID] = entry
	m.sweepLocked(now)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, runID string) error {
	m.mu.Lock()
	delete(m.runs, runID)
	m.mu.Unlock()
	return nil
}

// Len reports how many snapshots are held, expired ones included until swept.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// sweepLocked drops expired snapshots at most once per sweep interval.
func (m *MemoryStore) sweepLocked(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) < m.sweepInterval() {
		return
	}
	m.lastSweep = now
	for id, entry := range m.runs {
		if m.expired(entry, now) {
			delete(m.runs, id)
		}
	}
}

func (m *MemoryStore) sweepInterval() time.Duration {
	if m.ttl < time.Minute {
		return m.ttl
	}
	return time.Minute
}

func (m *MemoryStore) expired(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}

// NoopStore discards every snapshot.
type NoopStore struct{}

func (NoopStore) Load(context.Context, string) (*RunState, error) { return nil, ErrRunNotFound }
func (NoopStore) Save(context.Context, *RunState) error           { return nil }
func (NoopStore) Delete(context.Context, string) error            { return nil }
