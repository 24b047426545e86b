package biz

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lottery-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// CachedLink is a cached account link. Found=false caches a miss.
type CachedLink struct {
	AccountID int64 `json:"newApiUserId"`
	Found     bool  `json:"found"`
	CachedAt  int64 `json:"cachedAt"` // unix ms
}

// AccountLinkCache 账户映射缓存接口
type AccountLinkCache interface {
	Get(ctx context.Context, platformUserID int64) (*CachedLink, bool, error)
	Set(ctx context.Context, platformUserID int64, link *CachedLink, ttl time.Duration) error
	Delete(ctx context.Context, platformUserID int64) error
}

// AccountDirectory looks up the billing account id of a platform user.
type AccountDirectory interface {
	LookupAccountID(ctx context.Context, platformUserID int64) (accountID int64, found bool, err error)
}

// AccountLinkUseCase resolves platform users to billing accounts through a TTL cache.
type AccountLinkUseCase struct {
	cache   AccountLinkCache
	dir     AccountDirectory
	ttl     time.Duration
	missTTL time.Duration
	now     func() time.Time
	log     *log.Helper
	metrics *metrics.LotteryMetrics
}

// NewAccountLinkUseCase 创建账户映射 UseCase
func NewAccountLinkUseCase(cache AccountLinkCache, dir AccountDirectory, opts *LotteryOptions, logger log.Logger) *AccountLinkUseCase {
	return &AccountLinkUseCase{
		cache:   cache,
		dir:     dir,
		ttl:     opts.LinkTTL,
		missTTL: opts.LinkMissTTL,
		now:     time.Now,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// Resolve returns the billing account id, or found=false when the user has none yet.
// Cache failures fall through to the directory; directory failures are returned.
func (uc *AccountLinkUseCase) Resolve(ctx context.Context, platformUserID int64) (int64, bool, error) {
	masked := MaskID(strconv.FormatInt(platformUserID, 10))
	cached, ok, err := uc.cache.Get(ctx, platformUserID)
	if err != nil {
		uc.log.Warnf("account link cache read failed: user=%s err=%v", masked, err)
	}
	if err == nil && ok && uc.fresh(cached) {
		if !cached.Found {
			uc.metrics.AccountLinkTotal.WithLabelValues("cache_miss_hit").Inc()
			return 0, false, nil
		}
		if cached.AccountID > 0 {
			uc.metrics.AccountLinkTotal.WithLabelValues("cache_hit").Inc()
			return cached.AccountID, true, nil
		}
	}

	accountID, found, err := uc.dir.LookupAccountID(ctx, platformUserID)
	if err != nil {
		uc.metrics.AccountLinkTotal.WithLabelValues("error").Inc()
		return 0, false, fmt.Errorf("lookup account link: %w", err)
	}
	link := &CachedLink{CachedAt: uc.now().UnixMilli()}
	ttl := uc.missTTL
	if found && accountID > 0 {
		link.AccountID = accountID
		link.Found = true
		ttl = uc.ttl
		uc.metrics.AccountLinkTotal.WithLabelValues("db_found").Inc()
		uc.log.Infof("account link found: user=%s", masked)
	} else {
		found = false
		accountID = 0
		uc.metrics.AccountLinkTotal.WithLabelValues("db_not_found").Inc()
		uc.log.Warnf("account link not found: user=%s", masked)
	}
	if err := uc.cache.Set(ctx, platformUserID, link, ttl); err != nil {
		uc.log.Warnf("account link cache write failed: user=%s err=%v", masked, err)
	}
	return accountID, found, nil
}

func (uc *AccountLinkUseCase) fresh(link *CachedLink) bool {
	if link == nil || link.CachedAt <= 0 {
		return false
	}
	ttl := uc.ttl
	if !link.Found {
		ttl = uc.missTTL
	}
	return uc.now().Sub(time.UnixMilli(link.CachedAt)) < ttl
}

// Invalidate drops the cached link, used on re-login.
func (uc *AccountLinkUseCase) Invalidate(ctx context.Context, platformUserID int64) error {
	if err := uc.cache.Delete(ctx, platformUserID); err != nil {
		return fmt.Errorf("invalidate account link: %w", err)
	}
	return nil
}
