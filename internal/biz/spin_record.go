package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"lottery-service/internal/constants"
	"lottery-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// legacyPendingPrefix marks uncertain records written by older deployments.
const legacyPendingPrefix = "[待确认]"

// SpinRecord 抽奖记录，写入后不再修改
type SpinRecord struct {
	ID            string  `json:"id"`
	UserID        string  `json:"userId"`
	Username      string  `json:"username"`
	TierID        string  `json:"tierId"`
	TierName      string  `json:"tierName"`
	TierValue     float64 `json:"tierValue"`
	DirectCredit  bool    `json:"directCredit"`
	CreditedQuota *int64  `json:"creditedQuota,omitempty"`
	CreatedAt     int64   `json:"createdAt"` // unix ms
}

// IsPending reports whether the record is an uncertain outcome awaiting reconciliation.
func (r *SpinRecord) IsPending() bool {
	return strings.HasPrefix(r.TierName, constants.PendingTierPrefix) ||
		strings.HasPrefix(r.TierName, legacyPendingPrefix)
}

// ParseStoredRecord decodes a stored record. Records without an id, user, tier name,
// value or timestamp are dropped (ok=false). Older records keyed the user as
// linuxdoId or oderId, and may lack a tier id.
func ParseStoredRecord(raw []byte) (*SpinRecord, bool) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return nil, false
	}
	rec := &SpinRecord{}
	rec.ID = strings.TrimSpace(stringField(doc, "id"))
	for _, key := range []string{"userId", "linuxdoId", "oderId"} {
		if v := strings.TrimSpace(stringField(doc, key)); v != "" {
			rec.UserID = v
			break
		}
	}
	rec.Username = stringField(doc, "username")
	rec.TierName = stringField(doc, "tierName")
	value, okValue := numberField(doc, "tierValue")
	createdAt, okCreated := numberField(doc, "createdAt")
	if rec.ID == "" || rec.UserID == "" || rec.TierName == "" || !okValue || !okCreated {
		return nil, false
	}
	rec.TierValue = value
	rec.CreatedAt = int64(createdAt)
	rec.TierID = strings.TrimSpace(stringField(doc, "tierId"))
	if rec.TierID == "" {
		rec.TierID = fallbackTierID(value)
	}
	if v, ok := doc["directCredit"].(bool); ok {
		rec.DirectCredit = v
	}
	if q, ok := numberField(doc, "creditedQuota"); ok {
		quota := int64(q)
		rec.CreditedQuota = &quota
	}
	return rec, true
}

func stringField(doc map[string]interface{}, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func numberField(doc map[string]interface{}, key string) (float64, bool) {
	switch v := doc[key].(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func fallbackTierID(value float64) string {
	for _, t := range defaultTiers() {
		if t.Value == value {
			return t.ID
		}
	}
	return fmt.Sprintf("tier_%d", int64(math.Max(1, math.Floor(value))))
}

// RecordRepo 抽奖记录存储接口，列表按时间倒序
type RecordRepo interface {
	// Append pushes the record to the global and the per-user list.
	Append(ctx context.Context, rec *SpinRecord) error
	// ListGlobal returns parsed records in [offset, offset+limit) and the raw entry count read.
	ListGlobal(ctx context.Context, offset, limit int64) ([]*SpinRecord, int, error)
	ListUser(ctx context.Context, userID string, limit int64) ([]*SpinRecord, error)
	CountGlobal(ctx context.Context) (int64, error)
	TrimGlobal(ctx context.Context, maxLen int64) error
}

// RankingEntry 今日排行
type RankingEntry struct {
	Rank       int     `json:"rank"`
	UserID     string  `json:"userId"`
	Username   string  `json:"username"`
	TotalValue float64 `json:"totalValue"`
	BestPrize  string  `json:"bestPrize"`
	Count      int     `json:"count"`
}

// LotteryStats 今日统计
type LotteryStats struct {
	TodayDirectTotal float64 `json:"todayDirectTotal"`
	TodayUsers       int     `json:"todayUsers"`
	TodaySpins       int     `json:"todaySpins"`
	TotalRecords     int64   `json:"totalRecords"`
}

// RecordUseCase 抽奖记录业务逻辑
type RecordUseCase struct {
	repo    RecordRepo
	ledger  *BudgetLedger
	cal     *Calendar
	opts    *LotteryOptions
	log     *log.Helper
	metrics *metrics.LotteryMetrics
}

// NewRecordUseCase 创建抽奖记录 UseCase
func NewRecordUseCase(repo RecordRepo, ledger *BudgetLedger, cal *Calendar, opts *LotteryOptions, logger log.Logger) *RecordUseCase {
	return &RecordUseCase{
		repo:    repo,
		ledger:  ledger,
		cal:     cal,
		opts:    opts,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// Append writes the record; failures are logged and swallowed.
func (uc *RecordUseCase) Append(ctx context.Context, rec *SpinRecord) {
	if err := uc.repo.Append(ctx, rec); err != nil {
		uc.metrics.RecordAppendTotal.WithLabelValues("failed").Inc()
		uc.log.Errorf("append spin record failed: id=%s user=%s err=%v", rec.ID, MaskID(rec.UserID), err)
		return
	}
	uc.metrics.RecordAppendTotal.WithLabelValues("success").Inc()
}

// List returns a page of the global log, newest first.
func (uc *RecordUseCase) List(ctx context.Context, offset, limit int64) ([]*SpinRecord, error) {
	if limit <= 0 {
		return []*SpinRecord{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	recs, _, err := uc.repo.ListGlobal(ctx, offset, limit)
	return recs, err
}

// ListUser returns the user's latest records.
func (uc *RecordUseCase) ListUser(ctx context.Context, userID string, limit int64) ([]*SpinRecord, error) {
	if limit <= 0 {
		limit = constants.UserRecordsLimit
	}
	return uc.repo.ListUser(ctx, userID, limit)
}

// Today walks the global log newest first and stops at the first record older than local midnight.
func (uc *RecordUseCase) Today(ctx context.Context, includePending bool) ([]*SpinRecord, error) {
	start := uc.cal.DayStart().UnixMilli()
	batch := uc.opts.RecordsScanBatch
	out := make([]*SpinRecord, 0)
	for offset := int64(0); offset < uc.opts.RecordsMaxScan; {
		recs, raw, err := uc.repo.ListGlobal(ctx, offset, batch)
		if err != nil {
			return nil, err
		}
		if raw == 0 {
			break
		}
		for _, rec := range recs {
			if rec.CreatedAt < start {
				return out, nil
			}
			if !includePending && rec.IsPending() {
				continue
			}
			out = append(out, rec)
		}
		offset += int64(raw)
		if int64(raw) < batch {
			break
		}
	}
	return out, nil
}

// Stats aggregates today's confirmed spins with the ledger total.
func (uc *RecordUseCase) Stats(ctx context.Context) (*LotteryStats, error) {
	total, err := uc.ledger.TodayTotal(ctx)
	if err != nil {
		return nil, err
	}
	count, err := uc.repo.CountGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	today, err := uc.Today(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("scan today records: %w", err)
	}
	users := make(map[string]struct{}, len(today))
	for _, rec := range today {
		users[rec.UserID] = struct{}{}
	}
	return &LotteryStats{
		TodayDirectTotal: total,
		TodayUsers:       len(users),
		TodaySpins:       len(today),
		TotalRecords:     count,
	}, nil
}

// Ranking sums today's confirmed prizes per user, highest total first.
// limit is clamped to [1, 50]; zero means the default of 10.
func (uc *RecordUseCase) Ranking(ctx context.Context, limit int) ([]*RankingEntry, error) {
	if limit == 0 {
		limit = constants.RankingDefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > constants.RankingMaxLimit {
		limit = constants.RankingMaxLimit
	}
	records, err := uc.Today(ctx, false)
	if err != nil {
		return nil, err
	}
	return rankRecords(records, limit), nil
}

func rankRecords(records []*SpinRecord, limit int) []*RankingEntry {
	type agg struct {
		entry     *RankingEntry
		bestValue float64
	}
	byUser := make(map[string]*agg)
	list := make([]*agg, 0)
	for _, rec := range records {
		a, ok := byUser[rec.UserID]
		if !ok {
			a = &agg{
				entry:     &RankingEntry{UserID: rec.UserID, Username: rec.Username, BestPrize: rec.TierName},
				bestValue: rec.TierValue,
			}
			byUser[rec.UserID] = a
			list = append(list, a)
		}
		a.entry.TotalValue = SumDollars(a.entry.TotalValue, rec.TierValue)
		a.entry.Count++
		if rec.TierValue > a.bestValue {
			a.bestValue = rec.TierValue
			a.entry.BestPrize = rec.TierName
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].entry.TotalValue > list[j].entry.TotalValue
	})
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]*RankingEntry, len(list))
	for i, a := range list {
		a.entry.Rank = i + 1
		out[i] = a.entry
	}
	return out
}

// TrimGlobal caps the global log. Per-user lists are untouched.
func (uc *RecordUseCase) TrimGlobal(ctx context.Context) (int64, error) {
	before, err := uc.repo.CountGlobal(ctx)
	if err != nil {
		return 0, err
	}
	if before <= uc.opts.GlobalRecordsMaxLen {
		return 0, nil
	}
	if err := uc.repo.TrimGlobal(ctx, uc.opts.GlobalRecordsMaxLen); err != nil {
		return 0, err
	}
	return before - uc.opts.GlobalRecordsMaxLen, nil
}
