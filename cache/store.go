package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"emarknews/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Freshness classifies a lookup.
type Freshness int

const (
	Miss Freshness = iota
	Fresh
	Stale
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// envelope is what actually lands in a Backend.
type envelope struct {
	Seq        uint64          `json:"seq"`
	StoredAt   time.Time       `json:"storedAt"`
	FreshUntil time.Time       `json:"freshUntil"`
	StaleUntil time.Time       `json:"staleUntil"`
	Value      json.RawMessage `json:"value"`
}

// Store is the fail-open cache facade. It never returns errors: primary
// backend failures are logged and the in-process fallback answers instead.
type Store struct {
	primary   Backend
	fallback  *MemoryBackend
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
	now       func() time.Time
	fallbacks prometheus.Counter
	prefix    string
}

type Option func(*Store)

// WithLogger sets the logger used for backend failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFallbackCapacity bounds the in-process map.
func WithFallbackCapacity(n int) Option {
	return func(s *Store) { s.fallback = NewMemoryBackend(n) }
}

// WithFallbackCounter counts operations answered by the fallback.
func WithFallbackCounter(c prometheus.Counter) Option {
	return func(s *Store) { s.fallbacks = c }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore builds a Store over primary, which may be nil to run on the
// in-process map alone.
func NewStore(primary Backend, opts ...Option) *Store {
	s := &Store{
		primary:  primary,
		fallback: NewMemoryBackend(config.MemoryCacheEntries),
		logger:   zap.NewNop(),
		now:      time.Now,
		prefix:   config.CacheKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fallback.now = s.now

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache-primary",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("cache breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return s
}

// Get returns the stored value and its freshness.
func (s *Store) Get(ctx context.Context, key string) ([]byte, Freshness) {
	raw, err := s.load(ctx, key)
	if err != nil {
		return nil, Miss
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Value) == 0 {
		s.logger.Warn("evicting malformed cache entry", zap.String("key", key), zap.Error(ErrMalformed))
		s.Delete(ctx, key)
		return nil, Miss
	}

	now := s.now()
	switch {
	case now.Before(env.FreshUntil):
		return env.Value, Fresh
	case now.Before(env.StaleUntil):
		return env.Value, Stale
	default:
		return nil, Miss
	}
}

// Set writes value under key unless a newer sequence is already stored.
// The entry is fresh for ttl and then served as stale for staleFor.
func (s *Store) Set(ctx context.Context, key string, value []byte, seq uint64, ttl, staleFor time.Duration) bool {
	now := s.now()
	raw, err := json.Marshal(envelope{
		Seq:        seq,
		StoredAt:   now,
		FreshUntil: now.Add(ttl),
		StaleUntil: now.Add(ttl + staleFor),
		Value:      value,
	})
	if err != nil {
		s.logger.Error("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	physical := ttl + staleFor

	if s.primary != nil {
		res, err := s.breaker.Execute(func() (interface{}, error) {
			return s.primary.StoreIfNewer(ctx, key, seq, raw, physical)
		})
		if err == nil {
			return res.(bool)
		}
		s.degrade("set", key, err)
	}
	ok, _ := s.fallback.StoreIfNewer(ctx, key, seq, raw, physical)
	return ok
}

// Delete removes keys from both backends.
func (s *Store) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if s.primary != nil {
		if _, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.primary.Delete(ctx, keys...)
		}); err != nil {
			s.degrade("delete", keys[0], err)
		}
	}
	_ = s.fallback.Delete(ctx, keys...)
}

// Clear flushes every key this service owns, on both backends.
func (s *Store) Clear(ctx context.Context) {
	if s.primary != nil {
		if _, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.primary.Flush(ctx, s.prefix)
		}); err != nil {
			s.degrade("clear", s.prefix, err)
		}
	}
	_ = s.fallback.Flush(ctx, s.prefix)
}

func (s *Store) load(ctx context.Context, key string) ([]byte, error) {
	if s.primary != nil {
		res, err := s.breaker.Execute(func() (interface{}, error) {
			return s.primary.Load(ctx, key)
		})
		if err == nil {
			return res.([]byte), nil
		}
		if !errors.Is(err, ErrNotFound) {
			s.degrade("get", key, err)
		}
	}
	// The fallback also holds writes made while the primary was down.
	return s.fallback.Load(ctx, key)
}

func (s *Store) degrade(op, key string, err error) {
	if s.fallbacks != nil {
		s.fallbacks.Inc()
	}
	s.logger.Warn("cache backend unavailable, using in-process fallback",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
}
