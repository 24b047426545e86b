package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/go-sql-driver/mysql"
)

// linkColumns are the users table columns that may hold the platform user id,
// current name first.
var linkColumns = []string{"linux_do_id", "linuxdo_id"}

const linkColumnTTL = 24 * time.Hour

type accountLinkCache struct {
	data *Data
	log  *log.Helper
}

// NewAccountLinkCache 创建账户映射缓存
func NewAccountLinkCache(data *Data, logger log.Logger) biz.AccountLinkCache {
	return &accountLinkCache{data: data, log: log.NewHelper(logger)}
}

func linkKey(platformUserID int64) string {
	return constants.RedisKeyAccountLink + strconv.FormatInt(platformUserID, 10)
}

func (c *accountLinkCache) Get(ctx context.Context, platformUserID int64) (*biz.CachedLink, bool, error) {
	raw, err := c.data.rdb.Get(ctx, linkKey(platformUserID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read account link: %w", err)
	}
	var link biz.CachedLink
	if err := json.Unmarshal(raw, &link); err != nil {
		c.log.Warnf("drop unreadable account link entry: user=%s", biz.MaskID(strconv.FormatInt(platformUserID, 10)))
		return nil, false, nil
	}
	// entries written before the found flag existed only carry positive ids
	if link.AccountID > 0 {
		link.Found = true
	}
	return &link, true, nil
}

func (c *accountLinkCache) Set(ctx context.Context, platformUserID int64, link *biz.CachedLink, ttl time.Duration) error {
	raw, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode account link: %w", err)
	}
	if err := c.data.rdb.Set(ctx, linkKey(platformUserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save account link: %w", err)
	}
	return nil
}

func (c *accountLinkCache) Delete(ctx context.Context, platformUserID int64) error {
	if err := c.data.rdb.Del(ctx, linkKey(platformUserID)).Err(); err != nil {
		return fmt.Errorf("delete account link: %w", err)
	}
	return nil
}

type accountDirectory struct {
	data *Data
	log  *log.Helper
}

// NewAccountDirectory 创建计费系统用户目录
func NewAccountDirectory(data *Data, logger log.Logger) biz.AccountDirectory {
	return &accountDirectory{data: data, log: log.NewHelper(logger)}
}

// LookupAccountID finds the billing user bound to the platform id. The column that
// answered last is remembered so the legacy name is only probed once per day.
func (d *accountDirectory) LookupAccountID(ctx context.Context, platformUserID int64) (int64, bool, error) {
	var lastErr error
	for _, column := range d.columnOrder(ctx) {
		var row struct {
			ID int64
		}
		err := d.data.db.WithContext(ctx).
			Raw("SELECT id FROM users WHERE "+column+" = ? LIMIT 1", strconv.FormatInt(platformUserID, 10)).
			Scan(&row).Error
		if err != nil {
			if isUnknownColumn(err) {
				lastErr = err
				continue
			}
			return 0, false, fmt.Errorf("lookup billing account: %w", err)
		}
		if err := d.data.rdb.Set(ctx, constants.RedisKeyAccountLinkColumn, column, linkColumnTTL).Err(); err != nil {
			d.log.Warnf("remember account link column failed: %v", err)
		}
		if row.ID == 0 {
			return 0, false, nil
		}
		return row.ID, true, nil
	}
	return 0, false, fmt.Errorf("users table has no platform id column: %w", lastErr)
}

func (d *accountDirectory) columnOrder(ctx context.Context) []string {
	preferred, err := d.data.rdb.Get(ctx, constants.RedisKeyAccountLinkColumn).Result()
	if err != nil || preferred == linkColumns[0] {
		return linkColumns
	}
	order := []string{}
	for _, c := range linkColumns {
		if c == preferred {
			order = append([]string{c}, order...)
		} else {
			order = append(order, c)
		}
	}
	return order
}

func isUnknownColumn(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1054
	}
	return strings.Contains(err.Error(), "no such column")
}
