package biz

import (
	"context"
	"fmt"
	"time"

	"lottery-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// Reservation is an accepted reservation against one day's budget.
type Reservation struct {
	Day   string
	Cents int64
}

// ReserveResult 预算预留结果
type ReserveResult struct {
	Accepted    bool
	NewTotal    float64 // 美元；被拒绝时为回滚后的总额
	Reservation Reservation
}

// BudgetRepo 每日预算计数器存储接口（分）
type BudgetRepo interface {
	// Reserve atomically adds cents, sets ttl if the counter has none, and reverts
	// when the new total exceeds limitCents. totalCents is the settled total.
	Reserve(ctx context.Context, day string, cents, limitCents int64, ttl time.Duration) (accepted bool, totalCents int64, err error)
	Release(ctx context.Context, day string, cents int64) error
	Total(ctx context.Context, day string) (int64, error)
}

// BudgetLedger tracks the day's direct payouts against the configured limit.
type BudgetLedger struct {
	repo    BudgetRepo
	config  *ConfigUseCase
	cal     *Calendar
	grace   time.Duration
	log     *log.Helper
	metrics *metrics.LotteryMetrics
}

// NewBudgetLedger 创建每日预算账本
func NewBudgetLedger(repo BudgetRepo, config *ConfigUseCase, cal *Calendar, opts *LotteryOptions, logger log.Logger) *BudgetLedger {
	return &BudgetLedger{
		repo:    repo,
		config:  config,
		cal:     cal,
		grace:   opts.BudgetExpiryGrace,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

func (l *BudgetLedger) limitCents(ctx context.Context) (int64, error) {
	cfg, err := l.config.GetConfig(ctx)
	if err != nil {
		return 0, err
	}
	return DollarsToCents(cfg.DailyDirectLimit), nil
}

// TodayTotal returns today's reserved dollars.
func (l *BudgetLedger) TodayTotal(ctx context.Context) (float64, error) {
	cents, err := l.repo.Total(ctx, l.cal.Today())
	if err != nil {
		return 0, fmt.Errorf("read budget total: %w", err)
	}
	l.metrics.BudgetUsedDollars.Set(CentsToDollars(cents))
	return CentsToDollars(cents), nil
}

// RemainingToday is limit minus today's total. It is a point-in-time read, not a reservation.
func (l *BudgetLedger) RemainingToday(ctx context.Context) (float64, error) {
	limit, err := l.limitCents(ctx)
	if err != nil {
		return 0, err
	}
	cents, err := l.repo.Total(ctx, l.cal.Today())
	if err != nil {
		return 0, fmt.Errorf("read budget total: %w", err)
	}
	return CentsToDollars(limit - cents), nil
}

// Reserve tries to take dollars from today's budget in one atomic store operation.
func (l *BudgetLedger) Reserve(ctx context.Context, dollars float64) (*ReserveResult, error) {
	day := l.cal.Today()
	cents := DollarsToCents(dollars)
	if cents <= 0 {
		total, err := l.repo.Total(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("read budget total: %w", err)
		}
		return &ReserveResult{NewTotal: CentsToDollars(total)}, nil
	}
	limit, err := l.limitCents(ctx)
	if err != nil {
		return nil, err
	}
	ttl := l.cal.UntilMidnight() + l.grace
	accepted, total, err := l.repo.Reserve(ctx, day, cents, limit, ttl)
	if err != nil {
		return nil, fmt.Errorf("reserve budget: %w", err)
	}
	result := &ReserveResult{Accepted: accepted, NewTotal: CentsToDollars(total)}
	if accepted {
		result.Reservation = Reservation{Day: day, Cents: cents}
		l.metrics.BudgetReserveTotal.WithLabelValues("accepted").Inc()
		l.metrics.BudgetUsedDollars.Set(result.NewTotal)
	} else {
		l.metrics.BudgetReserveTotal.WithLabelValues("rejected").Inc()
	}
	return result, nil
}

// Rollback returns a reservation to the day it was taken from.
func (l *BudgetLedger) Rollback(ctx context.Context, r Reservation) error {
	if r.Cents <= 0 {
		return nil
	}
	if err := l.repo.Release(ctx, r.Day, r.Cents); err != nil {
		return fmt.Errorf("rollback budget: %w", err)
	}
	l.metrics.BudgetReserveTotal.WithLabelValues("rollback").Inc()
	return nil
}
