package pager

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/bookbot/internal/books"
)

// ErrRefExpired is returned when a page ref is unknown or has expired.
var ErrRefExpired = errors.New("page context expired")

// RefStore keeps filters too long to fit into callback data.
type RefStore interface {
	Put(ctx context.Context, f books.Filter) (string, error)
	Get(ctx context.Context, ref string) (books.Filter, error)
}

var refNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bookbot/page-filter"))

// RefFor is the deterministic ref of a filter, so repeated searches reuse one entry.
func RefFor(f books.Filter) string {
	key := f.Clause + "\x00" + strings.Join(f.Params, "\x00")
	id := uuid.NewSHA1(refNamespace, []byte(key))
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// MemoryRefStore is an in-process RefStore with a TTL refreshed on access.
type MemoryRefStore struct {
	mu      sync.Mutex
	entries map[string]refEntry
	ttl     time.Duration
	now     func() time.Time
}

type refEntry struct {
	filter  books.Filter
	touched time.Time
}

// NewMemoryRefStore builds an in-memory store; ttl <= 0 keeps entries forever.
func NewMemoryRefStore(ttl time.Duration) *MemoryRefStore {
	return &MemoryRefStore{entries: make(map[string]refEntry), ttl: ttl, now: time.Now}
}

// Put implements RefStore.
func (m *MemoryRefStore) Put(_ context.Context, f books.Filter) (string, error) {
	ref := RefFor(f)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked()
	m.entries[ref] = refEntry{filter: f, touched: m.now()}
	return ref, nil
}

// Get implements RefStore.
func (m *MemoryRefStore) Get(_ context.Context, ref string) (books.Filter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ref]
	if !ok || m.expired(e) {
		delete(m.entries, ref)
		return books.Filter{}, ErrRefExpired
	}
	e.touched = m.now()
	m.entries[ref] = e
	return e.filter, nil
}

func (m *MemoryRefStore) expired(e refEntry) bool {
	return m.ttl > 0 && m.now().Sub(e.touched) > m.ttl
}

func (m *MemoryRefStore) evictLocked() {
	for ref, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, ref)
		}
	}
}

// RedisRefStore keeps refs in Redis under "<prefix>:<ref>".
type RedisRefStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisRefStore builds a Redis-backed RefStore.
func NewRedisRefStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisRefStore {
	return &RedisRefStore{client: client, prefix: prefix, ttl: ttl}
}

// Put implements RefStore.
func (r *RedisRefStore) Put(ctx context.Context, f books.Filter) (string, error) {
	ref := RefFor(f)
	raw, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode page ref: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+":"+ref, raw, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store page ref: %w", err)
	}
	return ref, nil
}

// Get implements RefStore.
func (r *RedisRefStore) Get(ctx context.Context, ref string) (books.Filter, error) {
	key := r.prefix + ":" + ref
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return books.Filter{}, ErrRefExpired
	}
	if err != nil {
		return books.Filter{}, fmt.Errorf("load page ref: %w", err)
	}
	var f books.Filter
	if err := json.Unmarshal(raw, &f); err != nil {
		return books.Filter{}, fmt.Errorf("decode page ref: %w", err)
	}
	if r.ttl > 0 {
		_ = r.client.Expire(ctx, key, r.ttl).Err()
	}
	return f, nil
}
