package constants

// 时间格式常量
const (
	// DayFormat 抽奖日格式 (YYYY-MM-DD)
	DayFormat = "2006-01-02"
)

// Redis Key 前缀常量
const (
	// RedisKeyLotteryConfig 抽奖配置 key
	RedisKeyLotteryConfig = "lottery:config"
	// RedisKeyRecords 全局抽奖记录列表 key
	RedisKeyRecords = "lottery:records"
	// RedisKeyUserRecords 用户抽奖记录列表 key 前缀
	RedisKeyUserRecords = "lottery:user:records:"
	// RedisKeyDailyClaim 每日抽奖标记 key 前缀 (lottery:daily:<uid>:<day>)
	RedisKeyDailyClaim = "lottery:daily:"
	// RedisKeyDailyDirect 每日直充总额 key 前缀 (lottery:daily_direct:<day>)
	RedisKeyDailyDirect = "lottery:daily_direct:"
	// RedisKeyQuotaLock 外部账户额度更新锁 key 前缀
	RedisKeyQuotaLock = "newapi:quota:credit:lock:"
	// RedisKeyAccountLink 账户映射缓存 key 前缀
	RedisKeyAccountLink = "mapping:linuxdo:"
	// RedisKeyAccountLinkColumn 账户映射命中列缓存 key
	RedisKeyAccountLinkColumn = "mapping:linuxdo:column:users"
)

// 金额换算常量
const (
	// DirectAmountScale 每日预算计数器的定点倍数（分）
	DirectAmountScale = 100
	// DefaultQuotaPerDollar 外部计费系统每美元对应的额度
	DefaultQuotaPerDollar = 500000
)

// 抽奖记录常量
const (
	// PendingTierPrefix 结果不确定记录的奖品名前缀
	PendingTierPrefix = "[pending] "
	// RecordIDPrefix 抽奖记录ID前缀
	RecordIDPrefix = "lottery_"
	// PendingRecordIDPrefix 待确认记录ID前缀
	PendingRecordIDPrefix = "lottery_pending_"
	// UserRecordsLimit 用户记录查询条数
	UserRecordsLimit = 50
	// RecentRecordsLimit 管理统计中最近记录条数
	RecentRecordsLimit = 10
)

// 排行榜常量
const (
	// RankingDefaultLimit 默认排行条数
	RankingDefaultLimit = 10
	// RankingMaxLimit 最大排行条数
	RankingMaxLimit = 50
)

// 直充结果常量（用于指标和日志）
const (
	// CreditStatusConfirmed 已确认到账
	CreditStatusConfirmed = "confirmed"
	// CreditStatusFailed 确认未到账
	CreditStatusFailed = "failed"
	// CreditStatusUncertain 结果不确定
	CreditStatusUncertain = "uncertain"
)

// 抽奖结果常量（用于指标）
const (
	// SpinResultSuccess 成功
	SpinResultSuccess = "success"
	// SpinResultUncertain 不确定
	SpinResultUncertain = "uncertain"
	// SpinResultRejected 被拒绝
	SpinResultRejected = "rejected"
)

// 归档状态常量
const (
	// ArchiveStatusConfirmed 已确认
	ArchiveStatusConfirmed = "confirmed"
	// ArchiveStatusPending 待人工核对
	ArchiveStatusPending = "pending"
	// ArchiveStatusDelivered 核对后确认已到账
	ArchiveStatusDelivered = "delivered"
	// ArchiveStatusNotDelivered 核对后确认未到账
	ArchiveStatusNotDelivered = "not_delivered"
)

// 外部计费系统请求头
const (
	// HeaderNewApiUser 管理员用户ID请求头
	HeaderNewApiUser = "New-Api-User"
)
