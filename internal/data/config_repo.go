package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
)

type configRepo struct {
	data *Data
	log  *log.Helper
}

// NewConfigRepo 创建抽奖配置 Repository
func NewConfigRepo(data *Data, logger log.Logger) biz.ConfigRepo {
	return &configRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Get reads and normalizes the stored config. A corrupt value is reported as the
// default config so a bad write cannot take the lottery down.
func (r *configRepo) Get(ctx context.Context) (*biz.LotteryConfig, bool, error) {
	raw, err := r.data.rdb.Get(ctx, constants.RedisKeyLotteryConfig).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read lottery config: %w", err)
	}
	cfg, err := biz.ParseStoredConfig(raw)
	if err != nil {
		r.log.Warnf("stored lottery config is corrupt, serving defaults: %v", err)
		return biz.DefaultLotteryConfig(), true, nil
	}
	return cfg, true, nil
}

func (r *configRepo) Save(ctx context.Context, cfg *biz.LotteryConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode lottery config: %w", err)
	}
	if err := r.data.rdb.Set(ctx, constants.RedisKeyLotteryConfig, raw, 0).Err(); err != nil {
		return fmt.Errorf("save lottery config: %w", err)
	}
	return nil
}
