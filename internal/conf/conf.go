// Package conf holds the bootstrap configuration scanned from configs/config.yaml
// and the LOTTERY_ environment source.
package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap 启动配置
type Bootstrap struct {
	Server      *Server      `json:"server"`
	Data        *Data        `json:"data"`
	Lottery     *Lottery     `json:"lottery"`
	NewApi      *NewApi      `json:"newapi"`
	Auth        *Auth        `json:"auth"`
	AccountLink *AccountLink `json:"account_link"`
	Log         *Log         `json:"log"`
}

// Server 服务监听配置
type Server struct {
	Http *Server_HTTP `json:"http"`
	Grpc *Server_GRPC `json:"grpc"`
}

type Server_HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

type Server_GRPC struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Data 存储配置
type Data struct {
	Database *Data_Database `json:"database"`
	Redis    *Data_Redis    `json:"redis"`
	Rocketmq *Data_RocketMQ `json:"rocketmq"`
}

type Data_Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

type Data_Redis struct {
	Addr         string   `json:"addr"`
	Password     string   `json:"password"`
	Db           int      `json:"db"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

type Data_RocketMQ struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	GroupName   string   `json:"group_name"`
	Topic       string   `json:"topic"`
	RetryTimes  int32    `json:"retry_times"`
}

// Lottery 抽奖业务配置
type Lottery struct {
	// TimezoneOffsetHours is the fixed UTC offset that defines the lottery day. Nil means +8.
	TimezoneOffsetHours *int  `json:"timezone_offset_hours"`
	RecordsScanBatch    int64 `json:"records_scan_batch"`
	RecordsMaxScan      int64 `json:"records_max_scan"`
	GlobalRecordsMaxLen int64 `json:"global_records_max_len"`
}

// NewApi 外部计费系统配置
type NewApi struct {
	BaseUrl        string   `json:"base_url"`
	AdminUsername  string   `json:"admin_username"`
	AdminPassword  string   `json:"admin_password"`
	QuotaPerDollar int64    `json:"quota_per_dollar"`
	Timeout        Duration `json:"timeout"`
	SessionTtl     Duration `json:"session_ttl"`
	LockTtl        Duration `json:"lock_ttl"`
	LockRetryDelay Duration `json:"lock_retry_delay"`
	LockMaxRetries int      `json:"lock_max_retries"`
}

// Auth 会话校验配置
type Auth struct {
	JwtSecret      string   `json:"jwt_secret"`
	AdminUsernames []string `json:"admin_usernames"`
}

// AccountLink 账户映射缓存配置
type AccountLink struct {
	Ttl     Duration `json:"ttl"`
	MissTtl Duration `json:"miss_ttl"`
}

// Log 日志输出配置，空值使用默认
type Log struct {
	Level    string `json:"level"`
	Format   string `json:"format"`
	FilePath string `json:"file_path"`
}

// Duration decodes "15s" style strings as well as plain nanosecond numbers.
type Duration struct {
	time.Duration
}

// NewDuration wraps d.
func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

// AsDuration returns the wrapped value, zero when unset.
func (d Duration) AsDuration() time.Duration {
	return d.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		if value == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	case nil:
		d.Duration = 0
		return nil
	default:
		return fmt.Errorf("invalid duration type %T", v)
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
