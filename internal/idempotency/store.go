package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dejobratic/libris/internal/orders/ports"
	"github.com/dejobratic/libris/internal/storage"
)

// DefaultTTL bounds how long a key can be replayed.
const DefaultTTL = 24 * time.Hour

type entry struct {
	Response  ports.StoredResponse `json:"response"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Store retains responses in the idempotency collection for replaying
// duplicate requests. The first response saved for a key wins.
type Store struct {
	store storage.Store
	ttl   time.Duration
	now   func() time.Time

	mu sync.Mutex
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an idempotency store backed by the given gateway.
func NewStore(store storage.Store, opts ...Option) *Store {
	s := &Store{
		store: store,
		ttl:   DefaultTTL,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) load(ctx context.Context) (map[string]entry, error) {
	entries, err := storage.Load(ctx, s.store, storage.Idempotency, map[string]entry{})
	if err != nil {
		return nil, fmt.Errorf("load idempotency keys: %w", err)
	}
	return entries, nil
}

// Get returns the stored response for a key, or nil if absent or expired.
func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := entries[key]
	if !ok || s.expired(e) {
		return nil, nil
	}
	resp := e.Response
	return &resp, nil
}

// Save stores the response for a key unless a live one already exists.
// Expired keys are pruned on the same write.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	if e, ok := entries[key]; ok && !s.expired(e) {
		return nil
	}

	for k, e := range entries {
		if s.expired(e) {
			delete(entries, k)
		}
	}
	entries[key] = entry{Response: response, CreatedAt: s.now()}

	if err := storage.Save(ctx, s.store, storage.Idempotency, entries); err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}

func (s *Store) expired(e entry) bool {
	return s.now().Sub(e.CreatedAt) > s.ttl
}
