package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ErrComputeTimeout marks a computation that exceeded its caller-imposed
// time budget. ErrComputeFailure marks a panic inside a compute function.
var (
	ErrComputeTimeout = errors.New("computation timed out")
	ErrComputeFailure = errors.New("computation failed")
)

// Entry is one memoized value with its creation time and TTL. Entries are
// replaced whole on recompute, never partially updated.
type Entry struct {
	Value     any           `json:"value"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether the entry has reached its TTL.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.CreatedAt.Add(e.TTL))
}

// Store holds cache entries. Implementations must be safe for concurrent
// use; expired entries stay retrievable so stale-while-error can serve them.
type Store interface {
	Get(key string) (Entry, bool)
	Set(key string, e Entry)
	Delete(key string)
	Flush()
}

// MemoryStore is the default in-process store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryStore) Set(key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
}

// ComputeFunc produces a fresh value for a cache key.
type ComputeFunc func(ctx context.Context) (any, error)

// Result is the outcome of GetOrCompute. FromCache reports whether the
// value was served from the store rather than computed during the call;
// a stale value served after a failed recompute also reports FromCache.
type Result struct {
	Value      any       `json:"value"`
	FromCache  bool      `json:"from_cache"`
	ComputedAt time.Time `json:"computed_at"`
}

// Service is the memoization layer in front of widget computations.
//
// Single-flight policy: blocking. For a given key at most one compute
// function is in flight; concurrent callers during that flight block until
// it completes and share its result. Computations here are short-lived and
// CPU-bound, so blocking keeps every caller's value within one TTL of fresh.
//
// Failure policy: stale-while-error. A failed recompute never poisons the
// store — the previous entry keeps being served past its nominal TTL, and
// the failure is returned alongside it so the caller can report both.
type Service struct {
	store   Store
	enabled bool
	group   singleflight.Group
	metrics *Metrics
	clock   func() time.Time
}

// NewService creates a memoization service over the given store. A nil
// metrics disables instrumentation. With enabled false every call computes,
// still deduplicated per key.
func NewService(store Store, enabled bool, metrics *Metrics) *Service {
	return &Service{
		store:   store,
		enabled: enabled,
		metrics: metrics,
		clock:   time.Now,
	}
}

type flightResult struct {
	value      any
	computedAt time.Time
	fromCache  bool
}

// GetOrCompute returns the cached value for key when it is younger than
// ttl, and otherwise invokes fn under the single-flight guarantee, storing
// the result atomically. See the Service doc for the failure policy.
func (s *Service) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) (Result, error) {
	widget := widgetLabel(key)

	if s.enabled {
		if e, ok := s.store.Get(key); ok && !e.Expired(s.clock()) {
			s.metrics.hit(widget)
			return Result{Value: e.Value, FromCache: true, ComputedAt: e.CreatedAt}, nil
		}
	}
	s.metrics.miss(widget)

	v, err, _ := s.group.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// refreshed the entry while this one waited.
		if s.enabled {
			if e, ok := s.store.Get(key); ok && !e.Expired(s.clock()) {
				return flightResult{value: e.Value, computedAt: e.CreatedAt, fromCache: true}, nil
			}
		}

		start := s.clock()
		value, err := s.invoke(ctx, fn)
		s.metrics.observe(widget, s.clock().Sub(start))
		if err != nil {
			return nil, err
		}

		computedAt := s.clock()
		if s.enabled {
			s.store.Set(key, Entry{Value: value, CreatedAt: computedAt, TTL: ttl})
		}
		return flightResult{value: value, computedAt: computedAt}, nil
	})

	if err != nil {
		s.metrics.failure(widget)
		if prev, ok := s.store.Get(key); ok {
			s.metrics.staleServe(widget)
			log.Warn().Str("key", key).Err(err).Msg("Recompute failed, serving stale value")
			return Result{Value: prev.Value, FromCache: true, ComputedAt: prev.CreatedAt}, err
		}
		return Result{}, err
	}

	flight := v.(flightResult)
	return Result{Value: flight.value, FromCache: flight.fromCache, ComputedAt: flight.computedAt}, nil
}

// invoke runs fn with panic recovery and timeout classification.
func (s *Service) invoke(ctx context.Context, fn ComputeFunc) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrComputeFailure, r)
		}
	}()

	value, err = fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %v", ErrComputeTimeout, err)
	}
	return value, err
}

// Invalidate removes one entry immediately.
func (s *Service) Invalidate(key string) {
	s.store.Delete(key)
}

// InvalidateAll clears the store; used on configuration change.
func (s *Service) InvalidateAll() {
	s.store.Flush()
}

// Key canonicalizes a widget name plus parameters into a cache key.
// Parameters are sorted by name so their order never affects identity.
func Key(widget string, params map[string]string) string {
	if len(params) == 0 {
		return widget
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(widget)
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}
	return b.String()
}

// widgetLabel extracts the widget name from a canonical key for metric labels.
func widgetLabel(key string) string {
	if i := strings.IndexByte(key, '|'); i >= 0 {
		return key[:i]
	}
	return key
}
