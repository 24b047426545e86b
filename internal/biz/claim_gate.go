package biz

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// Claim identifies a daily claim mark. Release targets the day the claim was made,
// so a rollback that straddles midnight never deletes the next day's mark.
type Claim struct {
	UserID int64
	Day    string
}

// ClaimRepo 每日抽奖标记存储接口
type ClaimRepo interface {
	// SetIfAbsent creates the mark with ttl; false when it already exists.
	SetIfAbsent(ctx context.Context, userID int64, day string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, userID int64, day string) error
	Exists(ctx context.Context, userID int64, day string) (bool, error)
}

// ClaimGate enforces one spin per user per lottery day.
type ClaimGate struct {
	repo ClaimRepo
	cal  *Calendar
	log  *log.Helper
}

// NewClaimGate 创建每日抽奖标记 Gate
func NewClaimGate(repo ClaimRepo, cal *Calendar, logger log.Logger) *ClaimGate {
	return &ClaimGate{
		repo: repo,
		cal:  cal,
		log:  log.NewHelper(logger),
	}
}

// TryClaim sets today's mark for userID if absent, expiring at local midnight.
// A store error is returned as-is and must be treated as "cannot spin now".
func (g *ClaimGate) TryClaim(ctx context.Context, userID int64) (Claim, bool, error) {
	claim := Claim{UserID: userID, Day: g.cal.Today()}
	ok, err := g.repo.SetIfAbsent(ctx, userID, claim.Day, g.cal.UntilMidnight())
	if err != nil {
		return Claim{}, false, err
	}
	return claim, ok, nil
}

// Release deletes the mark unconditionally.
func (g *ClaimGate) Release(ctx context.Context, claim Claim) error {
	return g.repo.Delete(ctx, claim.UserID, claim.Day)
}

// HasClaimedToday reports whether userID already spun today.
func (g *ClaimGate) HasClaimedToday(ctx context.Context, userID int64) (bool, error) {
	return g.repo.Exists(ctx, userID, g.cal.Today())
}
