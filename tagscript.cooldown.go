package tagscript

import (
	"context"
	"sync"
	"time"
)

// CooldownStore keeps the token buckets of the cooldown block.
//
// Take consumes a token from the bucket key within namespace. Each bucket
// holds rate tokens and refills completely once per has passed since the
// first token of the current window was taken. Take returns 0 when a token
// was consumed, otherwise how long to wait until the bucket refills.
//
// A namespace remembers the rate and per it was last used with; a call with
// different values resets all of its buckets.
type CooldownStore interface {
	Take(ctx context.Context, namespace, key string, rate int, per time.Duration, now time.Time) (time.Duration, error)
}

// bucketState is one token bucket.
type bucketState struct {
	Tokens int
	Window time.Time
}

// take applies one request to a bucket. A zero bucket is a fresh one.
func (b bucketState) take(rate int, per time.Duration, now time.Time) (bucketState, time.Duration) {
	if b.Window.IsZero() || now.After(b.Window.Add(per)) {
		b.Tokens = rate
	}
	if b.Tokens == rate {
		b.Window = now
	}
	if b.Tokens <= 0 {
		return b, per - now.Sub(b.Window)
	}
	b.Tokens--
	return b, 0
}

// expired reports whether the bucket would be full again at now.
func (b bucketState) expired(per time.Duration, now time.Time) bool {
	return now.After(b.Window.Add(per))
}

type cooldownNamespace struct {
	rate    int
	per     time.Duration
	buckets map[string]bucketState
}

// MemoryCooldownStore keeps buckets in memory. Each store owns its buckets,
// so separate interpreters never share limits unless they share a store.
type MemoryCooldownStore struct {
	mu         sync.Mutex
	namespaces map[string]*cooldownNamespace
}

// NewMemoryCooldownStore creates an empty in-memory cooldown store.
func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{
		namespaces: make(map[string]*cooldownNamespace),
	}
}

// Take implements CooldownStore.
func (s *MemoryCooldownStore) Take(ctx context.Context, namespace, key string, rate int, per time.Duration, now time.Time) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok || ns.rate != rate || ns.per != per {
		ns = &cooldownNamespace{
			rate:    rate,
			per:     per,
			buckets: make(map[string]bucketState),
		}
		s.namespaces[namespace] = ns
	}

	if len(ns.buckets) >= cooldownPruneThreshold {
		for k, b := range ns.buckets {
			if b.expired(per, now) {
				delete(ns.buckets, k)
			}
		}
	}

	bucket, retryAfter := ns.buckets[key].take(rate, per, now)
	ns.buckets[key] = bucket
	return retryAfter, nil
}

// Reset drops every bucket.
func (s *MemoryCooldownStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.namespaces = make(map[string]*cooldownNamespace)
}

const cooldownPruneThreshold = 1024
