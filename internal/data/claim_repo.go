package data

import (
	"context"
	"fmt"
	"time"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

type claimRepo struct {
	data *Data
	log  *log.Helper
}

// NewClaimRepo 创建每日抽奖标记 Repository
func NewClaimRepo(data *Data, logger log.Logger) biz.ClaimRepo {
	return &claimRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func claimKey(userID int64, day string) string {
	return fmt.Sprintf("%s%d:%s", constants.RedisKeyDailyClaim, userID, day)
}

func (r *claimRepo) SetIfAbsent(ctx context.Context, userID int64, day string, ttl time.Duration) (bool, error) {
	ok, err := r.data.rdb.SetNX(ctx, claimKey(userID, day), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("set daily claim: %w", err)
	}
	return ok, nil
}

func (r *claimRepo) Delete(ctx context.Context, userID int64, day string) error {
	if err := r.data.rdb.Del(ctx, claimKey(userID, day)).Err(); err != nil {
		return fmt.Errorf("delete daily claim: %w", err)
	}
	return nil
}

func (r *claimRepo) Exists(ctx context.Context, userID int64, day string) (bool, error) {
	n, err := r.data.rdb.Exists(ctx, claimKey(userID, day)).Result()
	if err != nil {
		return false, fmt.Errorf("check daily claim: %w", err)
	}
	return n > 0, nil
}
