// Package budget persists summarizer token counters in the key-value store.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/lorelink/internal/db"
)

// Default counter lifetimes. A counter outlives its period so a restart
// late in the period still reads it back.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

// store is the consumer interface for budget counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store keeps one counter per budget period key (INCRBY + EXPIRE NX).
type Store struct {
	store      store
	dailyTTL   time.Duration
	monthlyTTL time.Duration
}

// New creates a counter store with the default lifetimes.
func New(s store) *Store {
	return &Store{store: s, dailyTTL: DefaultDailyTTL, monthlyTTL: DefaultMonthlyTTL}
}

// WithTTLs overrides the counter lifetimes. Non-positive values are ignored.
func (s *Store) WithTTLs(daily, monthly time.Duration) *Store {
	if daily > 0 {
		s.dailyTTL = daily
	}
	if monthly > 0 {
		s.monthlyTTL = monthly
	}
	return s
}

// IncrBy adds val to the counter and returns the new total. The expiry is
// set once, on the first increment of a period.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	n, err := s.store.IncrBy(ctx, key, val)
	if err != nil {
		return 0, fmt.Errorf("budget incr %s: %w", key, err)
	}
	if err := s.store.Expire(ctx, key, s.ttlFor(key), true); err != nil {
		return n, fmt.Errorf("budget expire %s: %w", key, err)
	}
	return n, nil
}

// Get returns the counter value, zero for a counter never written.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: parse %q: %w", key, data, err)
	}
	return n, nil
}

// ttlFor picks the lifetime by the period segment of the key (":daily:" or ":monthly:").
func (s *Store) ttlFor(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthlyTTL
}
