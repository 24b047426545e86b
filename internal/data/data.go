package data

import (
	"fmt"
	"time"

	"lottery-service/internal/conf"
	"lottery-service/internal/data/model"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/google/wire"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewDB,
	NewRedis,
	NewRedsync,
	NewData,
	NewClaimRepo,
	NewBudgetRepo,
	NewConfigRepo,
	NewRecordRepo,
	NewCreditLocker,
	NewAdminSession,
	NewBillingClient,
	NewAccountLinkCache,
	NewAccountDirectory,
	NewArchiveRepo,
	NewEventPublisher,
)

// Data 数据层结构体
type Data struct {
	db      *gorm.DB
	rdb     *redis.Client
	mq      rocketmq.Producer // nil when RocketMQ is disabled
	mqTopic string
}

// NewDB 创建数据库连接
func NewDB(c *conf.Bootstrap) (*gorm.DB, error) {
	if c.Data == nil || c.Data.Database == nil {
		return nil, fmt.Errorf("database config is nil")
	}
	var dialector gorm.Dialector
	switch c.Data.Database.Driver {
	case "", "mysql":
		dialector = mysql.Open(c.Data.Database.Source)
	case "sqlite":
		dialector = sqlite.Open(c.Data.Database.Source)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Data.Database.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewRedis 创建 Redis 连接
func NewRedis(c *conf.Bootstrap) (*redis.Client, error) {
	if c.Data == nil || c.Data.Redis == nil {
		return nil, fmt.Errorf("redis config is nil")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Data.Redis.Addr,
		Password:     c.Data.Redis.Password,
		DB:           c.Data.Redis.Db,
		ReadTimeout:  c.Data.Redis.ReadTimeout.AsDuration(),
		WriteTimeout: c.Data.Redis.WriteTimeout.AsDuration(),
	})

	// 测试连接
	if err := rdb.Ping(rdb.Context()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// NewRedsync 创建分布式锁
func NewRedsync(rdb *redis.Client) *redsync.Redsync {
	return redsync.New(goredis.NewPool(rdb))
}

// NewData 创建数据层实例
func NewData(c *conf.Bootstrap, logger log.Logger, db *gorm.DB, rdb *redis.Client) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	d := &Data{db: db, rdb: rdb}

	if err := db.AutoMigrate(&model.LotterySpinArchive{}); err != nil {
		helper.Warnf("auto migrate spin archive failed: %v", err)
	}

	if mq := c.Data.Rocketmq; mq != nil && mq.Enabled {
		p, err := rocketmq.NewProducer(
			producer.WithNsResolver(primitive.NewPassthroughResolver(mq.NameServers)),
			producer.WithGroupName(mq.GroupName),
			producer.WithRetry(int(mq.RetryTimes)),
			producer.WithSendMsgTimeout(3*time.Second),
		)
		if err != nil {
			helper.Errorf("init rocketmq producer failed, falling back to direct archive: %v", err)
		} else if err := p.Start(); err != nil {
			helper.Errorf("start rocketmq producer failed, falling back to direct archive: %v", err)
		} else {
			d.mq = p
			d.mqTopic = mq.Topic
		}
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		if d.mq != nil {
			if err := d.mq.Shutdown(); err != nil {
				helper.Errorf("failed to shutdown rocketmq producer: %v", err)
			}
		}
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
		if err := rdb.Close(); err != nil {
			helper.Errorf("failed to close redis: %v", err)
		}
	}

	return d, cleanup, nil
}
