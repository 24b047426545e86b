package data

import (
	"context"
	"encoding/json"
	"fmt"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
)

type recordRepo struct {
	data *Data
	log  *log.Helper
}

// NewRecordRepo 创建抽奖记录 Repository
func NewRecordRepo(data *Data, logger log.Logger) biz.RecordRepo {
	return &recordRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *recordRepo) Append(ctx context.Context, rec *biz.SpinRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode spin record: %w", err)
	}
	_, err = r.data.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, constants.RedisKeyRecords, raw)
		pipe.LPush(ctx, constants.RedisKeyUserRecords+rec.UserID, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append spin record: %w", err)
	}
	return nil
}

func (r *recordRepo) ListGlobal(ctx context.Context, offset, limit int64) ([]*biz.SpinRecord, int, error) {
	if limit <= 0 {
		return nil, 0, nil
	}
	raws, err := r.data.rdb.LRange(ctx, constants.RedisKeyRecords, offset, offset+limit-1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("list spin records: %w", err)
	}
	return r.parse(raws), len(raws), nil
}

func (r *recordRepo) ListUser(ctx context.Context, userID string, limit int64) ([]*biz.SpinRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	raws, err := r.data.rdb.LRange(ctx, constants.RedisKeyUserRecords+userID, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list user spin records: %w", err)
	}
	return r.parse(raws), nil
}

func (r *recordRepo) CountGlobal(ctx context.Context) (int64, error) {
	n, err := r.data.rdb.LLen(ctx, constants.RedisKeyRecords).Result()
	if err != nil {
		return 0, fmt.Errorf("count spin records: %w", err)
	}
	return n, nil
}

func (r *recordRepo) TrimGlobal(ctx context.Context, maxLen int64) error {
	if maxLen <= 0 {
		return nil
	}
	if err := r.data.rdb.LTrim(ctx, constants.RedisKeyRecords, 0, maxLen-1).Err(); err != nil {
		return fmt.Errorf("trim spin records: %w", err)
	}
	return nil
}

// parse drops entries that cannot be read as a record.
func (r *recordRepo) parse(raws []string) []*biz.SpinRecord {
	out := make([]*biz.SpinRecord, 0, len(raws))
	for _, raw := range raws {
		rec, ok := biz.ParseStoredRecord([]byte(raw))
		if !ok {
			r.log.Warnf("skip unreadable spin record: %.64s", raw)
			continue
		}
		out = append(out, rec)
	}
	return out
}
