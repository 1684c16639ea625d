package summary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/domain"
)

// BudgetAction is what happens once a budget period is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs and lets the request through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject refuses the request with domain.ErrSummarizerBudgetExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// persistTimeout bounds the write-behind to the counter store.
const persistTimeout = 2 * time.Second

// CounterStore persists period counters.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// Budget tracks tokens spent per UTC day and month. Check is served from
// memory; Record updates memory first, then the store.
type Budget struct {
	dailyLimit   int64
	monthlyLimit int64
	action       BudgetAction
	prefix       string
	store        CounterStore
	now          func() time.Time
	logger       *zap.Logger

	mu          sync.Mutex
	day         time.Time
	month       time.Time
	dailyUsed   int64
	monthlyUsed int64
}

// NewBudget creates a budget. A zero limit leaves that period unlimited.
func NewBudget(dailyLimit, monthlyLimit int64, action BudgetAction, logger *zap.Logger) *Budget {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Budget{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		prefix:       domain.KeyPrefix,
		now:          time.Now,
		logger:       logger,
	}
	b.day, b.month = periods(b.now())
	return b
}

// WithKeyPrefix overrides the storage key prefix.
func (b *Budget) WithKeyPrefix(prefix string) *Budget {
	if prefix != "" {
		b.prefix = prefix
	}
	return b
}

// WithClock replaces time.Now, mostly for tests.
func (b *Budget) WithClock(now func() time.Time) *Budget {
	if now != nil {
		b.now = now
		b.day, b.month = periods(now())
	}
	return b
}

// WithStore attaches persistence and loads the counters of the current periods.
func (b *Budget) WithStore(ctx context.Context, store CounterStore) *Budget {
	b.store = store

	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	if n, err := store.Get(ctx, b.key("daily", b.day)); err == nil {
		b.dailyUsed = n
	} else {
		b.logger.Warn("Failed to load daily summarizer budget", zap.Error(err))
	}
	if n, err := store.Get(ctx, b.key("monthly", b.month)); err == nil {
		b.monthlyUsed = n
	} else {
		b.logger.Warn("Failed to load monthly summarizer budget", zap.Error(err))
	}
	b.logger.Info("Summarizer budget loaded",
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
	return b
}

// Check returns domain.ErrSummarizerBudgetExceeded when a period is spent and the action is reject.
func (b *Budget) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()

	spent := (b.dailyLimit > 0 && b.dailyUsed >= b.dailyLimit) ||
		(b.monthlyLimit > 0 && b.monthlyUsed >= b.monthlyLimit)
	if !spent {
		return nil
	}
	if b.action == BudgetActionReject {
		return domain.ErrSummarizerBudgetExceeded
	}
	b.logger.Warn("Summarizer token budget exceeded",
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.dailyLimit),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.monthlyLimit),
	)
	return nil
}

// Record adds spent tokens.
func (b *Budget) Record(tokens int64) {
	if tokens <= 0 {
		return
	}
	b.mu.Lock()
	b.rollLocked()
	b.dailyUsed += tokens
	b.monthlyUsed += tokens
	dailyKey, monthlyKey := b.key("daily", b.day), b.key("monthly", b.month)
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if _, err := store.IncrBy(ctx, dailyKey, tokens); err != nil {
		b.logger.Warn("Failed to persist daily summarizer budget", zap.String("key", dailyKey), zap.Error(err))
	}
	if _, err := store.IncrBy(ctx, monthlyKey, tokens); err != nil {
		b.logger.Warn("Failed to persist monthly summarizer budget", zap.String("key", monthlyKey), zap.Error(err))
	}
}

// RemainingDaily returns tokens left today, -1 when unlimited.
func (b *Budget) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return remaining(b.dailyLimit, b.dailyUsed)
}

// RemainingMonthly returns tokens left this month, -1 when unlimited.
func (b *Budget) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return remaining(b.monthlyLimit, b.monthlyUsed)
}

// rollLocked zeroes the counters of a period that has ended.
func (b *Budget) rollLocked() {
	day, month := periods(b.now())
	if day.After(b.day) {
		b.day, b.dailyUsed = day, 0
	}
	if month.After(b.month) {
		b.month, b.monthlyUsed = month, 0
	}
}

func (b *Budget) key(period string, start time.Time) string {
	layout := "2006-01-02"
	if period == "monthly" {
		layout = "2006-01"
	}
	return fmt.Sprintf("%sbudget:summarizer:%s:%s", b.prefix, period, start.Format(layout))
}

func periods(t time.Time) (day, month time.Time) {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	if used >= limit {
		return 0
	}
	return limit - used
}
