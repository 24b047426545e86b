package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"lottery-service/internal/biz"
	"lottery-service/internal/conf"
	"lottery-service/internal/constants"
	"lottery-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultLockTTL        = 15 * time.Second
	defaultLockRetryDelay = 120 * time.Millisecond
	defaultLockMaxRetries = 25
)

type creditLocker struct {
	rs         *redsync.Redsync
	ttl        time.Duration
	retryDelay time.Duration
	tries      int
	log        *log.Helper
	metrics    *metrics.LotteryMetrics
}

// NewCreditLocker 创建外部账户额度锁
func NewCreditLocker(c *conf.Bootstrap, rs *redsync.Redsync, logger log.Logger) biz.CreditLocker {
	l := &creditLocker{
		rs:         rs,
		ttl:        defaultLockTTL,
		retryDelay: defaultLockRetryDelay,
		tries:      defaultLockMaxRetries,
		log:        log.NewHelper(logger),
		metrics:    metrics.GetMetrics(),
	}
	if c != nil && c.NewApi != nil {
		if d := c.NewApi.LockTtl.AsDuration(); d > 0 {
			l.ttl = d
		}
		if d := c.NewApi.LockRetryDelay.AsDuration(); d > 0 {
			l.retryDelay = d
		}
		if c.NewApi.LockMaxRetries > 0 {
			l.tries = c.NewApi.LockMaxRetries
		}
	}
	return l
}

// Acquire polls for the per-account lock. Every holder gets a fresh random token and
// only the token owner can release it.
func (l *creditLocker) Acquire(ctx context.Context, accountID int64) (biz.CreditLock, error) {
	start := time.Now()
	mutex := l.rs.NewMutex(
		constants.RedisKeyQuotaLock+strconv.FormatInt(accountID, 10),
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(l.retryDelay),
		redsync.WithGenValueFunc(func() (string, error) {
			return gonanoid.New()
		}),
	)
	err := mutex.LockContext(ctx)
	l.metrics.LockAcquireDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if isLockContention(err) {
			l.metrics.LockAcquireTotal.WithLabelValues("busy").Inc()
			return nil, biz.ErrLockBusy
		}
		l.metrics.LockAcquireTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("acquire quota lock: %w", err)
	}
	l.metrics.LockAcquireTotal.WithLabelValues("success").Inc()
	return &creditLock{mutex: mutex}, nil
}

func isLockContention(err error) bool {
	if errors.Is(err, redsync.ErrFailed) {
		return true
	}
	var (
		takenPtr  *redsync.ErrTaken
		taken     redsync.ErrTaken
		nodePtr   *redsync.ErrNodeTaken
		nodeTaken redsync.ErrNodeTaken
	)
	return errors.As(err, &takenPtr) || errors.As(err, &taken) ||
		errors.As(err, &nodePtr) || errors.As(err, &nodeTaken)
}

type creditLock struct {
	mutex *redsync.Mutex
}

// Release deletes the lock only while it still carries our token.
func (k *creditLock) Release(ctx context.Context) error {
	ok, err := k.mutex.UnlockContext(ctx)
	if err != nil {
		return fmt.Errorf("release quota lock: %w", err)
	}
	if !ok {
		return errors.New("quota lock already expired or taken over")
	}
	return nil
}
