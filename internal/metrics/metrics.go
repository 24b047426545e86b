package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LotteryMetrics 抽奖服务指标
type LotteryMetrics struct {
	// 抽奖相关指标
	SpinTotal    *prometheus.CounterVec // 抽奖总数（按结果、原因）
	SpinDuration prometheus.Histogram   // 抽奖耗时

	// 每日预算相关指标
	BudgetReserveTotal *prometheus.CounterVec // 预算预留总数（按结果）
	BudgetUsedDollars  prometheus.Gauge       // 今日已发放金额

	// 直充相关指标
	CreditTotal    *prometheus.CounterVec // 直充总数（按结果）
	CreditDuration prometheus.Histogram   // 直充耗时

	// 分布式锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时

	// 账户映射缓存指标
	AccountLinkTotal *prometheus.CounterVec // 映射查询总数（按来源）

	// 记录与消息指标
	RecordAppendTotal *prometheus.CounterVec // 记录写入总数（按结果）
	MQPublishTotal    *prometheus.CounterVec // 消息发布总数（按结果）
}

// NewLotteryMetrics 创建抽奖服务指标
func NewLotteryMetrics() *LotteryMetrics {
	return &LotteryMetrics{
		SpinTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_spin_total",
				Help: "Total number of spins",
			},
			[]string{"result", "reason"}, // result: success/uncertain/rejected
		),
		SpinDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lottery_spin_duration_seconds",
				Help:    "Duration of spin operations",
				Buckets: prometheus.DefBuckets,
			},
		),

		BudgetReserveTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_budget_reserve_total",
				Help: "Total number of daily budget reservations",
			},
			[]string{"result"}, // result: accepted/rejected/rollback
		),
		BudgetUsedDollars: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lottery_budget_used_dollars",
				Help: "Dollars reserved against today's payout limit",
			},
		),

		CreditTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_credit_total",
				Help: "Total number of external credit attempts",
			},
			[]string{"result"}, // result: confirmed/failed/uncertain
		),
		CreditDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lottery_credit_duration_seconds",
				Help:    "Duration of external credit attempts",
				Buckets: prometheus.DefBuckets,
			},
		),

		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_lock_acquire_total",
				Help: "Total number of quota lock acquisition attempts",
			},
			[]string{"result"}, // result: success/busy/error
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lottery_lock_acquire_duration_seconds",
				Help:    "Duration of quota lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
		),

		AccountLinkTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_account_link_total",
				Help: "Total number of account link lookups",
			},
			[]string{"source"}, // source: cache_hit/cache_miss_hit/db_found/db_not_found/error
		),

		RecordAppendTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_record_append_total",
				Help: "Total number of spin record appends",
			},
			[]string{"result"}, // result: success/failed
		),
		MQPublishTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_mq_publish_total",
				Help: "Total number of spin event publishes",
			},
			[]string{"result"}, // result: success/failed/skipped
		),
	}
}

var (
	defaultMetrics *LotteryMetrics
	once           sync.Once
)

// InitMetrics 初始化全局指标
func InitMetrics() {
	once.Do(func() {
		defaultMetrics = NewLotteryMetrics()
	})
}

// GetMetrics 获取全局指标实例
func GetMetrics() *LotteryMetrics {
	InitMetrics()
	return defaultMetrics
}
