package service

import (
	"context"
	"strconv"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"
	lotteryErrors "lottery-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// SpinReply 抽奖结果
type SpinReply struct {
	Success   bool            `json:"success"`
	Uncertain bool            `json:"uncertain,omitempty"`
	Message   string          `json:"message"`
	Record    *biz.SpinRecord `json:"record,omitempty"`
}

// RecordsReply 抽奖记录
type RecordsReply struct {
	Records []*biz.SpinRecord `json:"records"`
}

// RankingReply 今日排行
type RankingReply struct {
	Ranking []*biz.RankingEntry `json:"ranking"`
}

// LotteryService 面向用户的抽奖服务
type LotteryService struct {
	spin    *biz.SpinUseCase
	records *biz.RecordUseCase
	links   *biz.AccountLinkUseCase
	log     *log.Helper
}

// NewLotteryService 创建 LotteryService
func NewLotteryService(spin *biz.SpinUseCase, records *biz.RecordUseCase, links *biz.AccountLinkUseCase, logger log.Logger) *LotteryService {
	return &LotteryService{
		spin:    spin,
		records: records,
		links:   links,
		log:     log.NewHelper(logger),
	}
}

// GetStatus 获取今日抽奖状态
func (s *LotteryService) GetStatus(ctx context.Context) (*biz.Status, error) {
	user, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.spin.Status(ctx, user.UserID)
}

// Spin 抽奖
func (s *LotteryService) Spin(ctx context.Context) (*SpinReply, error) {
	user, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	accountID, found, err := s.links.Resolve(ctx, user.UserID)
	if err != nil {
		s.log.Errorf("resolve account link failed: user=%s err=%v", biz.MaskID(strconv.FormatInt(user.UserID, 10)), err)
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	if !found {
		return nil, lotteryErrors.New(lotteryErrors.ErrCodeAccountNotLinked)
	}
	out, err := s.spin.Spin(ctx, user.UserID, user.Username, accountID)
	if err != nil {
		return nil, err
	}
	return &SpinReply{
		Success:   !out.Uncertain,
		Uncertain: out.Uncertain,
		Message:   out.Message,
		Record:    out.Record,
	}, nil
}

// ListRecords 获取当前用户最近的抽奖记录
func (s *LotteryService) ListRecords(ctx context.Context) (*RecordsReply, error) {
	user, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.records.ListUser(ctx, strconv.FormatInt(user.UserID, 10), constants.UserRecordsLimit)
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	return &RecordsReply{Records: recs}, nil
}

// Ranking 今日排行
func (s *LotteryService) Ranking(ctx context.Context, limit int) (*RankingReply, error) {
	if _, err := CurrentUser(ctx); err != nil {
		return nil, err
	}
	ranking, err := s.records.Ranking(ctx, limit)
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	return &RankingReply{Ranking: ranking}, nil
}
