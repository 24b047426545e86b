package model

import "time"

// LotterySpinArchive 抽奖归档表，一条记录对应一次已确认或待核对的抽奖
type LotterySpinArchive struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	RecordID      string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID        string    `gorm:"type:varchar(64);index;not null"`
	Username      string    `gorm:"type:varchar(128)"`
	AccountID     int64     `gorm:"not null"`
	TierID        string    `gorm:"type:varchar(64)"`
	TierName      string    `gorm:"type:varchar(128)"`
	TierValue     float64   `gorm:"type:decimal(12,2);not null"`
	CreditedQuota int64     `gorm:"not null;default:0"`
	Status        string    `gorm:"type:varchar(20);index;not null"` // confirmed/pending/delivered/not_delivered
	Day           string    `gorm:"type:char(10);index;not null"`
	Note          string    `gorm:"type:varchar(512)"`
	SpunAt        time.Time `gorm:"not null"`
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 表名
func (LotterySpinArchive) TableName() string {
	return "lottery_spin_archive"
}
