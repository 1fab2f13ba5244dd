package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

const (
	lockTTL  = 30 * time.Second
	lockWait = 2 * time.Second
)

// Unlock releases a session lock.
type Unlock func(ctx context.Context) error

// Store persists the places document of each session.
type Store interface {
	Load(ctx context.Context, id string) (*dto.PlacesDocument, error)
	Save(ctx context.Context, id string, doc *dto.PlacesDocument) error
	Delete(ctx context.Context, id string) error
	// Lock serialises mutations of one session. It fails with ErrSessionBusy when the
	// lock is not obtained within a short wait.
	Lock(ctx context.Context, id string) (Unlock, error)
}

type memoryEntry struct {
	doc     []byte
	expires time.Time
}

// MemoryStore keeps sessions in process. Like the redis store, every read or write
// extends a session by ttl; a zero ttl never expires.
type MemoryStore struct {
	mx    sync.Mutex
	docs  map[string]memoryEntry
	locks map[string]chan struct{}
	ttl   time.Duration
	wait  time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]memoryEntry),
		locks: make(map[string]chan struct{}),
		ttl:   ttl,
		wait:  lockWait,
		now:   time.Now,
	}
}

func (m *MemoryStore) expiry(now time.Time) time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(m.ttl)
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// evict drops expired sessions. The caller holds m.mx.
func (m *MemoryStore) evict(now time.Time) {
	for id, e := range m.docs {
		if e.expired(now) {
			delete(m.docs, id)
			delete(m.locks, id)
		}
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*dto.PlacesDocument, error) {
	m.mx.Lock()
	now := m.now()
	e, ok := m.docs[id]
	if ok && e.expired(now) {
		delete(m.docs, id)
		ok = false
	}
	if ok {
		e.expires = m.expiry(now)
		m.docs[id] = e
	}
	m.mx.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrSessionNotFound, id)
	}

	var doc dto.PlacesDocument
	if err := sonic.Unmarshal(e.doc, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, doc *dto.PlacesDocument) error {
	b, err := sonic.Marshal(doc)
	if err != nil {
		return err
	}

	m.mx.Lock()
	defer m.mx.Unlock()

	now := m.now()
	m.evict(now)
	m.docs[id] = memoryEntry{doc: b, expires: m.expiry(now)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mx.Lock()
	defer m.mx.Unlock()

	e, ok := m.docs[id]
	if !ok || e.expired(m.now()) {
		delete(m.docs, id)
		return fmt.Errorf("%w: %s", constants.ErrSessionNotFound, id)
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryStore) Lock(ctx context.Context, id string) (Unlock, error) {
	m.mx.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = make(chan struct{}, 1)
		m.locks[id] = lock
	}
	m.mx.Unlock()

	timer := time.NewTimer(m.wait)
	defer timer.Stop()

	select {
	case lock <- struct{}{}:
		return func(context.Context) error {
			<-lock
			m.mx.Lock()
			if _, ok := m.docs[id]; !ok && m.locks[id] == lock {
				delete(m.locks, id)
			}
			m.mx.Unlock()
			return nil
		}, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", constants.ErrSessionBusy, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type RedisStore struct {
	client *redis.Client
	locker *redislock.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		locker: redislock.New(client),
		ttl:    ttl,
	}
}

func sessionKey(id string) string {
	return "session:" + id
}

func lockKey(id string) string {
	return "lock:session:" + id
}

// Load refreshes the session TTL on every read.
func (r *RedisStore) Load(ctx context.Context, id string) (*dto.PlacesDocument, error) {
	b, err := r.client.GetEx(ctx, sessionKey(id), r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", constants.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var doc dto.PlacesDocument
	if err := sonic.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *RedisStore) Save(ctx context.Context, id string, doc *dto.PlacesDocument) error {
	b, err := sonic.Marshal(doc)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, sessionKey(id), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", constants.ErrSessionNotFound, id)
	}
	return nil
}

func (r *RedisStore) Lock(ctx context.Context, id string) (Unlock, error) {
	lock, err := r.locker.Obtain(ctx, lockKey(id), lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(lockWait/(100*time.Millisecond))),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", constants.ErrSessionBusy, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redislock.Obtain: %w", err)
	}

	return lock.Release, nil
}
