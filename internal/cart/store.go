package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"billing/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrInvalidSession = errors.New("session id must not be empty")

// Store persists carts per session. Loading an unknown or expired session yields
// an empty cart.
type Store interface {
	Load(ctx context.Context, sessionID string) (Cart, error)
	Save(ctx context.Context, sessionID string, c Cart) error
	Clear(ctx context.Context, sessionID string) error
}

// Update loads the session's cart, applies fn and saves the result
func Update(ctx context.Context, store Store, sessionID string, fn func(Cart) (Cart, error)) (Cart, error) {
	current, err := store.Load(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := store.Save(ctx, sessionID, next); err != nil {
		return current, err
	}
	return next, nil
}

func checkSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	return nil
}

// --- Memory ---

type memoryEntry struct {
	cart      Cart
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.After(e.expiresAt)
}

// MemoryStore keeps carts in process memory. Suitable for a single instance.
// Expired carts are dropped when loaded and swept at most once per ttl on save.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (Cart, error) {
	if err := checkSession(sessionID); err != nil {
		return Cart{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		return New(), nil
	}
	if e.expired(s.now(), s.ttl) {
		delete(s.entries, sessionID)
		return New(), nil
	}
	return e.cart.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, c Cart) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	if c.IsEmpty() {
		delete(s.entries, sessionID)
		return nil
	}
	s.entries[sessionID] = memoryEntry{cart: c.clone(), expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 || now.Before(s.nextSweep) {
		return
	}
	for id, e := range s.entries {
		if e.expired(now, s.ttl) {
			delete(s.entries, id)
		}
	}
	s.nextSweep = now.Add(s.ttl)
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

// --- Redis ---

// RedisStore keeps one hash per session (field = product id, value = quantity)
// that expires ttl after the last write.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, keyPrefix: "cart:", ttl: ttl}
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Cart, error) {
	if err := checkSession(sessionID); err != nil {
		return Cart{}, err
	}
	fields, err := s.client.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return Cart{}, fmt.Errorf("failed to load cart: %w", err)
	}
	c := New()
	for id, raw := range fields {
		qty, err := strconv.Atoi(raw)
		if err != nil || qty <= 0 {
			continue
		}
		c.Items[id] = qty
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, c Cart) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	key := s.key(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if c.IsEmpty() {
			return nil
		}
		values := make(map[string]interface{}, len(c.Items))
		for id, qty := range c.Items {
			values[id] = qty
		}
		pipe.HSet(ctx, key, values)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// NewStore builds the configured backend. A redis backend that cannot be reached
// falls back to memory with a warning.
func NewStore(cfg config.CartConfig, redisCfg config.RedisConfig, log *zap.Logger) Store {
	if cfg.Backend != "redis" {
		return NewMemoryStore(cfg.TTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, carts kept in memory", zap.String("addr", redisCfg.Addr()), zap.Error(err))
		_ = client.Close()
		return NewMemoryStore(cfg.TTL)
	}
	log.Info("cart store connected to redis", zap.String("addr", redisCfg.Addr()))
	return NewRedisStoreWithClient(client, cfg.TTL)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
