package main

import (
	"context"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// CronApp Cron 应用结构
type CronApp struct {
	records *biz.RecordUseCase
	archive *biz.ArchiveUseCase
	cal     *biz.Calendar
	log     *log.Helper
}

func newCronApp(records *biz.RecordUseCase, archive *biz.ArchiveUseCase, cal *biz.Calendar, logger log.Logger) *CronApp {
	return &CronApp{
		records: records,
		archive: archive,
		cal:     cal,
		log:     log.NewHelper(logger),
	}
}

// DailyReport logs yesterday's archive summary and the spins still awaiting reconciliation.
func (a *CronApp) DailyReport(ctx context.Context) error {
	day := a.cal.Yesterday()
	summary, err := a.archive.DailySummary(ctx, day)
	if err != nil {
		return err
	}
	a.log.Infof("[CRON] Daily summary: day=%s confirmed=%d pending=%d delivered=%d not_delivered=%d total=%.2f",
		day,
		summary.StatusCounts[constants.ArchiveStatusConfirmed],
		summary.StatusCounts[constants.ArchiveStatusPending],
		summary.StatusCounts[constants.ArchiveStatusDelivered],
		summary.StatusCounts[constants.ArchiveStatusNotDelivered],
		summary.TotalValue,
	)

	pending, err := a.archive.ListPending(ctx, 500)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	a.log.Warnf("[CRON] %d uncertain spins await reconciliation", len(pending))
	for i, entry := range pending {
		if i == 10 {
			a.log.Warnf("[CRON] ... and %d more", len(pending)-10)
			break
		}
		a.log.Warnf("[CRON] pending: record=%s account=%d value=%.2f spunAt=%s",
			entry.RecordID, entry.AccountID, entry.TierValue, entry.SpunAt.In(a.cal.Location()).Format("2006-01-02 15:04:05"))
	}
	return nil
}

// TrimRecords caps the global record list.
func (a *CronApp) TrimRecords(ctx context.Context) error {
	removed, err := a.records.TrimGlobal(ctx)
	if err != nil {
		return err
	}
	a.log.Infof("[CRON] Trimmed global spin records: removed=%d", removed)
	return nil
}
