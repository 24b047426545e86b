package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lottery-service/internal/constants"
	lotteryErrors "lottery-service/internal/errors"
	"lottery-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// ErrArchiveNotFound no archived spin with that record id.
var ErrArchiveNotFound = errors.New("archived spin not found")

// SpinEvent is published after a confirmed or uncertain spin.
type SpinEvent struct {
	RecordID      string  `json:"recordId"`
	UserID        string  `json:"userId"`
	Username      string  `json:"username"`
	AccountID     int64   `json:"accountId"`
	TierID        string  `json:"tierId"`
	TierName      string  `json:"tierName"`
	TierValue     float64 `json:"tierValue"`
	CreditedQuota int64   `json:"creditedQuota"`
	Status        string  `json:"status"` // confirmed/pending
	Day           string  `json:"day"`
	CreatedAt     int64   `json:"createdAt"` // unix ms
}

// ArchiveEntry is an archived spin row.
type ArchiveEntry struct {
	RecordID      string     `json:"recordId"`
	UserID        string     `json:"userId"`
	Username      string     `json:"username"`
	AccountID     int64      `json:"accountId"`
	TierID        string     `json:"tierId"`
	TierName      string     `json:"tierName"`
	TierValue     float64    `json:"tierValue"`
	CreditedQuota int64      `json:"creditedQuota"`
	Status        string     `json:"status"`
	Day           string     `json:"day"`
	Note          string     `json:"note,omitempty"`
	SpunAt        time.Time  `json:"spunAt"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// DailySummary 每日汇总
type DailySummary struct {
	Day          string           `json:"day"`
	StatusCounts map[string]int64 `json:"statusCounts"`
	TotalValue   float64          `json:"totalValue"`
}

// EventPublisher 抽奖事件发布接口
type EventPublisher interface {
	PublishSpinEvent(ctx context.Context, ev *SpinEvent) error
}

// ArchiveRepo 抽奖归档存储接口
type ArchiveRepo interface {
	// SaveBatch inserts events, skipping record ids already archived.
	SaveBatch(ctx context.Context, events []*SpinEvent) (int64, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*ArchiveEntry, error)
	Get(ctx context.Context, recordID string) (*ArchiveEntry, error)
	// Resolve moves a pending entry to status; false when it was not pending.
	Resolve(ctx context.Context, recordID, status, note string, at time.Time) (bool, error)
	SummarizeDay(ctx context.Context, day string) (*DailySummary, error)
}

// ArchiveUseCase 抽奖归档与待核对业务逻辑
type ArchiveUseCase struct {
	repo      ArchiveRepo
	publisher EventPublisher
	log       *log.Helper
	metrics   *metrics.LotteryMetrics
}

// NewArchiveUseCase 创建归档 UseCase
func NewArchiveUseCase(repo ArchiveRepo, publisher EventPublisher, logger log.Logger) *ArchiveUseCase {
	return &ArchiveUseCase{
		repo:      repo,
		publisher: publisher,
		log:       log.NewHelper(logger),
		metrics:   metrics.GetMetrics(),
	}
}

// Publish sends the event; failures are logged only.
func (uc *ArchiveUseCase) Publish(ctx context.Context, ev *SpinEvent) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishSpinEvent(ctx, ev); err != nil {
		uc.metrics.MQPublishTotal.WithLabelValues("failed").Inc()
		uc.log.Warnf("publish spin event failed: record=%s err=%v", ev.RecordID, err)
		return
	}
	uc.metrics.MQPublishTotal.WithLabelValues("success").Inc()
}

// Archive stores a batch of consumed events idempotently.
func (uc *ArchiveUseCase) Archive(ctx context.Context, events []*SpinEvent) error {
	if len(events) == 0 {
		return nil
	}
	inserted, err := uc.repo.SaveBatch(ctx, events)
	if err != nil {
		return fmt.Errorf("archive spin events: %w", err)
	}
	uc.log.Infof("archived spin events: received=%d inserted=%d", len(events), inserted)
	return nil
}

// ListPending returns uncertain spins awaiting an operator.
func (uc *ArchiveUseCase) ListPending(ctx context.Context, limit int) ([]*ArchiveEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return uc.repo.ListByStatus(ctx, constants.ArchiveStatusPending, limit)
}

// Resolve records the operator's verdict for a pending spin. The Redis record is left as is.
func (uc *ArchiveUseCase) Resolve(ctx context.Context, recordID string, delivered bool, note string) (*ArchiveEntry, error) {
	status := constants.ArchiveStatusNotDelivered
	if delivered {
		status = constants.ArchiveStatusDelivered
	}
	ok, err := uc.repo.Resolve(ctx, recordID, status, note, time.Now())
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeSystemError, err)
	}
	if !ok {
		entry, err := uc.repo.Get(ctx, recordID)
		if errors.Is(err, ErrArchiveNotFound) {
			return nil, lotteryErrors.New(lotteryErrors.ErrCodePendingNotFound)
		}
		if err != nil {
			return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeSystemError, err)
		}
		if entry.Status != constants.ArchiveStatusPending {
			return nil, lotteryErrors.New(lotteryErrors.ErrCodePendingAlreadyResolved)
		}
		return nil, lotteryErrors.New(lotteryErrors.ErrCodeSystemError)
	}
	uc.log.Infof("pending spin resolved: record=%s status=%s", recordID, status)
	return uc.repo.Get(ctx, recordID)
}

// DailySummary aggregates the archive for one day.
func (uc *ArchiveUseCase) DailySummary(ctx context.Context, day string) (*DailySummary, error) {
	return uc.repo.SummarizeDay(ctx, day)
}
