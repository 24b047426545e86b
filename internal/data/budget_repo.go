package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
)

// reserveScript adds ARGV[1] cents to the day counter, stamps a TTL on a fresh counter and
// takes the increment back when the new total passes the limit.
// Returns {1, total} when accepted, {0, total} (already reverted) otherwise.
var reserveScript = redis.NewScript(`
local total = redis.call('INCRBY', KEYS[1], ARGV[1])
if redis.call('TTL', KEYS[1]) == -1 then
	redis.call('EXPIRE', KEYS[1], ARGV[3])
end
if total > tonumber(ARGV[2]) then
	total = redis.call('DECRBY', KEYS[1], ARGV[1])
	return {0, total}
end
return {1, total}
`)

type budgetRepo struct {
	data *Data
	log  *log.Helper
}

// NewBudgetRepo 创建每日预算 Repository
func NewBudgetRepo(data *Data, logger log.Logger) biz.BudgetRepo {
	return &budgetRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func budgetKey(day string) string {
	return constants.RedisKeyDailyDirect + day
}

func (r *budgetRepo) Reserve(ctx context.Context, day string, cents, limitCents int64, ttl time.Duration) (bool, int64, error) {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	result, err := reserveScript.Run(ctx, r.data.rdb, []string{budgetKey(day)}, cents, limitCents, seconds).Result()
	if err != nil {
		return false, 0, fmt.Errorf("reserve daily budget: %w", err)
	}
	vals, ok := result.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("unexpected reserve script result: %v", result)
	}
	accepted, ok1 := vals[0].(int64)
	total, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, fmt.Errorf("unexpected reserve script result: %v", result)
	}
	return accepted == 1, total, nil
}

func (r *budgetRepo) Release(ctx context.Context, day string, cents int64) error {
	if err := r.data.rdb.DecrBy(ctx, budgetKey(day), cents).Err(); err != nil {
		return fmt.Errorf("release daily budget: %w", err)
	}
	return nil
}

func (r *budgetRepo) Total(ctx context.Context, day string) (int64, error) {
	total, err := r.data.rdb.Get(ctx, budgetKey(day)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daily budget: %w", err)
	}
	return total, nil
}
