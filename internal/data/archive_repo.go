package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"
	"lottery-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type archiveRepo struct {
	data *Data
	log  *log.Helper
}

// NewArchiveRepo 创建抽奖归档 Repository
func NewArchiveRepo(data *Data, logger log.Logger) biz.ArchiveRepo {
	return &archiveRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// SaveBatch inserts the events; rows whose record id is already archived are skipped.
func (r *archiveRepo) SaveBatch(ctx context.Context, events []*biz.SpinEvent) (int64, error) {
	rows := make([]*model.LotterySpinArchive, 0, len(events))
	for _, ev := range events {
		if ev == nil || ev.RecordID == "" {
			continue
		}
		rows = append(rows, &model.LotterySpinArchive{
			RecordID:      ev.RecordID,
			UserID:        ev.UserID,
			Username:      ev.Username,
			AccountID:     ev.AccountID,
			TierID:        ev.TierID,
			TierName:      ev.TierName,
			TierValue:     ev.TierValue,
			CreditedQuota: ev.CreditedQuota,
			Status:        ev.Status,
			Day:           ev.Day,
			SpunAt:        time.UnixMilli(ev.CreatedAt),
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	result := r.data.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "record_id"}}, DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("insert spin archive: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *archiveRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*biz.ArchiveEntry, error) {
	var rows []*model.LotterySpinArchive
	err := r.data.db.WithContext(ctx).
		Where("status = ?", status).
		Order("spun_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list spin archive: %w", err)
	}
	out := make([]*biz.ArchiveEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, toArchiveEntry(row))
	}
	return out, nil
}

func (r *archiveRepo) Get(ctx context.Context, recordID string) (*biz.ArchiveEntry, error) {
	var row model.LotterySpinArchive
	err := r.data.db.WithContext(ctx).Where("record_id = ?", recordID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, biz.ErrArchiveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get spin archive: %w", err)
	}
	return toArchiveEntry(&row), nil
}

// Resolve only moves rows that are still pending.
func (r *archiveRepo) Resolve(ctx context.Context, recordID, status, note string, at time.Time) (bool, error) {
	result := r.data.db.WithContext(ctx).
		Model(&model.LotterySpinArchive{}).
		Where("record_id = ? AND status = ?", recordID, constants.ArchiveStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"note":        note,
			"resolved_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("resolve spin archive: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *archiveRepo) SummarizeDay(ctx context.Context, day string) (*biz.DailySummary, error) {
	var rows []struct {
		Status string
		Cnt    int64
		Total  float64
	}
	err := r.data.db.WithContext(ctx).
		Model(&model.LotterySpinArchive{}).
		Select("status, COUNT(*) AS cnt, COALESCE(SUM(tier_value), 0) AS total").
		Where("day = ?", day).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("summarize spin archive: %w", err)
	}
	summary := &biz.DailySummary{Day: day, StatusCounts: make(map[string]int64, len(rows))}
	for _, row := range rows {
		summary.StatusCounts[row.Status] = row.Cnt
		// not_delivered spins never paid out
		if row.Status != constants.ArchiveStatusNotDelivered {
			summary.TotalValue += row.Total
		}
	}
	return summary, nil
}

func toArchiveEntry(row *model.LotterySpinArchive) *biz.ArchiveEntry {
	return &biz.ArchiveEntry{
		RecordID:      row.RecordID,
		UserID:        row.UserID,
		Username:      row.Username,
		AccountID:     row.AccountID,
		TierID:        row.TierID,
		TierName:      row.TierName,
		TierValue:     row.TierValue,
		CreditedQuota: row.CreditedQuota,
		Status:        row.Status,
		Day:           row.Day,
		Note:          row.Note,
		SpunAt:        row.SpunAt,
		ResolvedAt:    row.ResolvedAt,
	}
}
