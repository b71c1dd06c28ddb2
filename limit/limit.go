package limit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Result is the outcome of a limit check. ResetAt is when the current
// window ends and the counter starts over.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store tracks fixed-window attempt counts per client key. Check never
// consumes an attempt; callers invoke Record only for requests that
// should count against the limit, so server errors stay free.
type Store interface {
	Check(key string) Result
	Record(key string)
}

type window struct {
	Count        int
	FirstAttempt time.Time
}

// MemoryStore is the process-local store. Stale windows are superseded
// lazily on the next access, never swept, so the map holds one entry per
// client key seen since startup.
type MemoryStore struct {
	mu          sync.Mutex
	windows     map[string]*window
	maxAttempts int
	windowSize  time.Duration
	now         func() time.Time
}

func NewMemoryStore(maxAttempts int, windowSize time.Duration) *MemoryStore {
	return &MemoryStore{
		windows:     make(map[string]*window),
		maxAttempts: maxAttempts,
		windowSize:  windowSize,
		now:         time.Now,
	}
}

func (s *MemoryStore) Check(key string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, exists := s.windows[key]
	if !exists || now.Sub(w.FirstAttempt) >= s.windowSize {
		return Result{Allowed: true, Remaining: s.maxAttempts, ResetAt: now.Add(s.windowSize)}
	}

	remaining := s.maxAttempts - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   w.Count < s.maxAttempts,
		Remaining: remaining,
		ResetAt:   w.FirstAttempt.Add(s.windowSize),
	}
}

func (s *MemoryStore) Record(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, exists := s.windows[key]
	if !exists || now.Sub(w.FirstAttempt) >= s.windowSize {
		s.windows[key] = &window{Count: 1, FirstAttempt: now}
		return
	}
	w.Count++
}

// RedisStore shares one window across instances. Every failure path
// fails open: a broken or unreachable store must not lock clients out.
type RedisStore struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
	windowSize  time.Duration
	ctx         context.Context
}

func NewRedisStore(client *redis.Client, prefix string, maxAttempts int, windowSize time.Duration) *RedisStore {
	return &RedisStore{
		client:      client,
		prefix:      prefix,
		maxAttempts: maxAttempts,
		windowSize:  windowSize,
		ctx:         context.Background(),
	}
}

func (s *RedisStore) key(clientKey string) string {
	return fmt.Sprintf("%s:%s", s.prefix, clientKey)
}

func (s *RedisStore) Check(clientKey string) Result {
	now := time.Now()
	val, err := s.client.Get(s.ctx, s.key(clientKey)).Result()
	if err != nil {
		// redis.Nil or connectivity error: treat as no prior attempts
		return Result{Allowed: true, Remaining: s.maxAttempts, ResetAt: now.Add(s.windowSize)}
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return Result{Allowed: true, Remaining: s.maxAttempts, ResetAt: now.Add(s.windowSize)}
	}

	ttl, err := s.client.TTL(s.ctx, s.key(clientKey)).Result()
	if err != nil || ttl < 0 {
		ttl = s.windowSize
	}
	remaining := s.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count < s.maxAttempts,
		Remaining: remaining,
		ResetAt:   now.Add(ttl),
	}
}

func (s *RedisStore) Record(clientKey string) {
	count, err := s.client.Incr(s.ctx, s.key(clientKey)).Result()
	if err != nil {
		return
	}
	if count == 1 {
		s.client.Expire(s.ctx, s.key(clientKey), s.windowSize)
	}
}
