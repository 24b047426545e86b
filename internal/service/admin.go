package service

import (
	"context"
	"unicode/utf8"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"
	lotteryErrors "lottery-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// StatsReply 管理统计
type StatsReply struct {
	*biz.LotteryStats
	DailyDirectLimit float64           `json:"dailyDirectLimit"`
	Enabled          bool              `json:"enabled"`
	RecentRecords    []*biz.SpinRecord `json:"recentRecords"`
}

// PendingReply 待核对列表
type PendingReply struct {
	Pending []*biz.ArchiveEntry `json:"pending"`
}

// ResolvePendingRequest 核对结论
type ResolvePendingRequest struct {
	RecordID  string `json:"recordId"`
	Delivered bool   `json:"delivered"`
	Note      string `json:"note"`
}

// InvalidateAccountLinkRequest 清除账户映射缓存
type InvalidateAccountLinkRequest struct {
	UserID int64 `json:"userId"`
}

// LotteryAdminService 管理端服务，HTTP 管理接口与内部 gRPC 共用
type LotteryAdminService struct {
	config  *biz.ConfigUseCase
	records *biz.RecordUseCase
	archive *biz.ArchiveUseCase
	links   *biz.AccountLinkUseCase
	log     *log.Helper
}

// NewLotteryAdminService 创建 LotteryAdminService
func NewLotteryAdminService(
	config *biz.ConfigUseCase,
	records *biz.RecordUseCase,
	archive *biz.ArchiveUseCase,
	links *biz.AccountLinkUseCase,
	logger log.Logger,
) *LotteryAdminService {
	return &LotteryAdminService{
		config:  config,
		records: records,
		archive: archive,
		links:   links,
		log:     log.NewHelper(logger),
	}
}

// GetConfig 获取抽奖配置
func (s *LotteryAdminService) GetConfig(ctx context.Context) (*biz.LotteryConfig, error) {
	cfg, err := s.config.GetConfig(ctx)
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	return cfg, nil
}

// UpdateConfig 更新抽奖配置
func (s *LotteryAdminService) UpdateConfig(ctx context.Context, req *biz.ConfigUpdate) (*biz.LotteryConfig, error) {
	return s.config.UpdateConfig(ctx, req)
}

// GetStats 今日统计
func (s *LotteryAdminService) GetStats(ctx context.Context) (*StatsReply, error) {
	cfg, err := s.config.GetConfig(ctx)
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	stats, err := s.records.Stats(ctx)
	if err != nil {
		s.log.Errorf("GetStats failed: %v", err)
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	recent, err := s.records.List(ctx, 0, constants.RecentRecordsLimit)
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	return &StatsReply{
		LotteryStats:     stats,
		DailyDirectLimit: cfg.DailyDirectLimit,
		Enabled:          cfg.Enabled,
		RecentRecords:    recent,
	}, nil
}

// ListPending 待核对的不确定抽奖
func (s *LotteryAdminService) ListPending(ctx context.Context, limit int) (*PendingReply, error) {
	pending, err := s.archive.ListPending(ctx, limit)
	if err != nil {
		s.log.Errorf("ListPending failed: %v", err)
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeSystemError, err)
	}
	return &PendingReply{Pending: pending}, nil
}

// ResolvePending 记录人工核对结论
func (s *LotteryAdminService) ResolvePending(ctx context.Context, req *ResolvePendingRequest) (*biz.ArchiveEntry, error) {
	if req == nil || req.RecordID == "" {
		return nil, lotteryErrors.Newf(lotteryErrors.ErrCodeInvalidArgument, "recordId is required")
	}
	if utf8.RuneCountInString(req.Note) > 512 {
		return nil, lotteryErrors.Newf(lotteryErrors.ErrCodeInvalidArgument, "note must be at most 512 characters")
	}
	return s.archive.Resolve(ctx, req.RecordID, req.Delivered, req.Note)
}

// InvalidateAccountLink 用户重新登录后清除映射缓存
func (s *LotteryAdminService) InvalidateAccountLink(ctx context.Context, req *InvalidateAccountLinkRequest) error {
	if req == nil || req.UserID <= 0 {
		return lotteryErrors.Newf(lotteryErrors.ErrCodeInvalidArgument, "userId is required")
	}
	if err := s.links.Invalidate(ctx, req.UserID); err != nil {
		return lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	return nil
}
