package biz

import (
	"time"

	"lottery-service/internal/conf"
	"lottery-service/internal/constants"
)

// LotteryOptions 抽奖运行参数
type LotteryOptions struct {
	TimezoneOffsetHours int
	RecordsScanBatch    int64         // 今日记录扫描批大小
	RecordsMaxScan      int64         // 今日记录最多扫描条数
	GlobalRecordsMaxLen int64         // 全局记录列表保留条数
	QuotaPerDollar      int64         // 每美元对应的外部额度
	BudgetExpiryGrace   time.Duration // 每日预算计数器在午夜后额外保留时间
	LinkTTL             time.Duration // 账户映射命中缓存时间
	LinkMissTTL         time.Duration // 账户映射未命中缓存时间
}

// NewLotteryOptions 从配置创建 LotteryOptions
func NewLotteryOptions(c *conf.Bootstrap) *LotteryOptions {
	opts := &LotteryOptions{
		TimezoneOffsetHours: 8,
		RecordsScanBatch:    200,
		RecordsMaxScan:      20000,
		GlobalRecordsMaxLen: 50000,
		QuotaPerDollar:      constants.DefaultQuotaPerDollar,
		BudgetExpiryGrace:   time.Hour,
		LinkTTL:             24 * time.Hour,
		LinkMissTTL:         10 * time.Minute,
	}
	if c == nil {
		return opts
	}
	if l := c.Lottery; l != nil {
		if off := l.TimezoneOffsetHours; off != nil && *off >= -12 && *off <= 14 {
			opts.TimezoneOffsetHours = *off
		}
		if l.RecordsScanBatch > 0 {
			opts.RecordsScanBatch = l.RecordsScanBatch
		}
		if l.RecordsMaxScan > 0 {
			opts.RecordsMaxScan = l.RecordsMaxScan
		}
		if l.GlobalRecordsMaxLen > 0 {
			opts.GlobalRecordsMaxLen = l.GlobalRecordsMaxLen
		}
	}
	if c.NewApi != nil && c.NewApi.QuotaPerDollar > 0 {
		opts.QuotaPerDollar = c.NewApi.QuotaPerDollar
	}
	if a := c.AccountLink; a != nil {
		if a.Ttl.AsDuration() > 0 {
			opts.LinkTTL = a.Ttl.AsDuration()
		}
		if a.MissTtl.AsDuration() > 0 {
			opts.LinkMissTTL = a.MissTtl.AsDuration()
		}
	}
	if opts.RecordsMaxScan < opts.RecordsScanBatch {
		opts.RecordsMaxScan = opts.RecordsScanBatch
	}
	return opts
}
