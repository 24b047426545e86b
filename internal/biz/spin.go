package biz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"lottery-service/internal/constants"
	lotteryErrors "lottery-service/internal/errors"
	"lottery-service/internal/metrics"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// SpinOutcome is a spin that got past the credit step. Rejections are returned as errors.
type SpinOutcome struct {
	Record    *SpinRecord
	Uncertain bool // credit could be neither confirmed nor ruled out
	Message   string
}

// SpinUseCase 抽奖编排
// Claim, budget and credit are chained with compensating rollbacks: every step before the
// credit is undone on failure, nothing is undone once the credit is confirmed or uncertain.
type SpinUseCase struct {
	gate     *ClaimGate
	config   *ConfigUseCase
	ledger   *BudgetLedger
	selector *PrizeSelector
	gateway  *CreditGateway
	records  *RecordUseCase
	archive  *ArchiveUseCase
	cal      *Calendar
	log      *log.Helper
	metrics  *metrics.LotteryMetrics
	now      func() time.Time
}

// NewSpinUseCase 创建抽奖编排 UseCase
func NewSpinUseCase(
	gate *ClaimGate,
	config *ConfigUseCase,
	ledger *BudgetLedger,
	selector *PrizeSelector,
	gateway *CreditGateway,
	records *RecordUseCase,
	archive *ArchiveUseCase,
	cal *Calendar,
	logger log.Logger,
) *SpinUseCase {
	return &SpinUseCase{
		gate:     gate,
		config:   config,
		ledger:   ledger,
		selector: selector,
		gateway:  gateway,
		records:  records,
		archive:  archive,
		cal:      cal,
		log:      log.NewHelper(logger),
		metrics:  metrics.GetMetrics(),
		now:      time.Now,
	}
}

// Spin runs one daily spin for userID, crediting the prize to accountID.
func (uc *SpinUseCase) Spin(ctx context.Context, userID int64, username string, accountID int64) (out *SpinOutcome, err error) {
	start := time.Now()
	defer func() {
		uc.metrics.SpinDuration.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			uc.metrics.SpinTotal.WithLabelValues(constants.SpinResultRejected, kerrors.Reason(err)).Inc()
		case out != nil && out.Uncertain:
			uc.metrics.SpinTotal.WithLabelValues(constants.SpinResultUncertain, "").Inc()
		default:
			uc.metrics.SpinTotal.WithLabelValues(constants.SpinResultSuccess, "").Inc()
		}
	}()

	uid := strconv.FormatInt(userID, 10)
	masked := MaskID(uid)

	// Compensation must run even if the caller goes away mid-spin.
	ctx = context.WithoutCancel(ctx)

	claim, ok, err := uc.gate.TryClaim(ctx, userID)
	if err != nil {
		uc.log.Errorf("claim daily spin failed: user=%s err=%v", masked, err)
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	if !ok {
		return nil, lotteryErrors.New(lotteryErrors.ErrCodeAlreadyClaimed)
	}

	var (
		reservation *Reservation
		committed   bool
	)
	defer func() {
		if r := recover(); r != nil {
			uc.log.Errorf("spin panic: user=%s committed=%v panic=%v", masked, committed, r)
			if committed {
				// the prize may have landed; never report this as a plain failure
				out, err = &SpinOutcome{Uncertain: true, Message: "credit result uncertain, please check your balance later"}, nil
				return
			}
			out = nil
			err = lotteryErrors.Wrap(lotteryErrors.ErrCodeSystemError, fmt.Errorf("panic: %v", r))
		}
		if committed || err == nil {
			return
		}
		uc.compensate(ctx, claim, reservation, masked)
	}()

	cfg, err := uc.config.GetConfig(ctx)
	if err != nil {
		uc.log.Errorf("load lottery config failed: user=%s err=%v", masked, err)
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeSystemError, err)
	}
	if !cfg.Enabled {
		return nil, lotteryErrors.New(lotteryErrors.ErrCodeLotteryDisabled)
	}

	remaining, err := uc.ledger.RemainingToday(ctx)
	if err != nil {
		uc.log.Errorf("read remaining budget failed: user=%s err=%v", masked, err)
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	tier, err := uc.selector.Select(cfg.Tiers, remaining)
	switch {
	case errors.Is(err, ErrNoAffordableTier):
		return nil, lotteryErrors.New(lotteryErrors.ErrCodeBudgetExhausted)
	case errors.Is(err, ErrZeroWeight):
		uc.log.Errorf("lottery tiers have zero total weight")
		return nil, lotteryErrors.New(lotteryErrors.ErrCodeConfigInvalid)
	case err != nil:
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeSystemError, err)
	}

	reserved, err := uc.ledger.Reserve(ctx, tier.Value)
	if err != nil {
		uc.log.Errorf("reserve budget failed: user=%s tier=%s err=%v", masked, tier.ID, err)
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	if !reserved.Accepted {
		uc.log.Infof("budget race lost: user=%s tier=%s total=%v", masked, tier.ID, reserved.NewTotal)
		return nil, lotteryErrors.New(lotteryErrors.ErrCodeBudgetExhausted)
	}
	reservation = &reserved.Reservation

	credit := uc.gateway.Credit(ctx, accountID, tier.Value)
	switch credit.Status {
	case CreditConfirmed:
		committed = true
		quota := credit.NewQuota
		rec := uc.newRecord(uid, username, tier, false)
		rec.CreditedQuota = &quota
		uc.records.Append(ctx, rec)
		uc.archive.Publish(ctx, uc.newEvent(rec, accountID, constants.ArchiveStatusConfirmed))
		uc.log.Infof("spin credited: user=%s name=%s tier=%s value=%v", masked, MaskName(username), tier.ID, tier.Value)
		return &SpinOutcome{
			Record:  rec,
			Message: fmt.Sprintf("congratulations, you won %s, credited to your account", tier.Name),
		}, nil
	case CreditUncertain:
		committed = true
		rec := uc.newRecord(uid, username, tier, true)
		uc.records.Append(ctx, rec)
		uc.archive.Publish(ctx, uc.newEvent(rec, accountID, constants.ArchiveStatusPending))
		uc.log.Warnf("spin credit uncertain, kept reservations: user=%s tier=%s record=%s msg=%s", masked, tier.ID, rec.ID, credit.Message)
		return &SpinOutcome{
			Record:    rec,
			Uncertain: true,
			Message:   "credit result uncertain, please check your balance later",
		}, nil
	default:
		if credit.Busy {
			return nil, lotteryErrors.New(lotteryErrors.ErrCodeSystemBusy)
		}
		uc.log.Warnf("spin credit failed: user=%s tier=%s msg=%s", masked, tier.ID, credit.Message)
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeCreditFailed, errors.New(credit.Message))
	}
}

// compensate undoes the budget reservation and the claim. Failures are logged; the
// claim mark expires at midnight and the budget counter the hour after.
func (uc *SpinUseCase) compensate(ctx context.Context, claim Claim, reservation *Reservation, masked string) {
	if reservation != nil {
		if err := uc.ledger.Rollback(ctx, *reservation); err != nil {
			uc.log.Errorf("rollback budget failed: user=%s cents=%d err=%v", masked, reservation.Cents, err)
		}
	}
	if err := uc.gate.Release(ctx, claim); err != nil {
		uc.log.Errorf("release daily claim failed: user=%s err=%v", masked, err)
	}
}

func (uc *SpinUseCase) newRecord(userID, username string, tier PrizeTier, pending bool) *SpinRecord {
	now := uc.now()
	prefix, name := constants.RecordIDPrefix, tier.Name
	if pending {
		prefix, name = constants.PendingRecordIDPrefix, constants.PendingTierPrefix+tier.Name
	}
	return &SpinRecord{
		ID:           fmt.Sprintf("%s%d_%s", prefix, now.UnixMilli(), uuid.NewString()[:8]),
		UserID:       userID,
		Username:     username,
		TierID:       tier.ID,
		TierName:     name,
		TierValue:    tier.Value,
		DirectCredit: true,
		CreatedAt:    now.UnixMilli(),
	}
}

func (uc *SpinUseCase) newEvent(rec *SpinRecord, accountID int64, status string) *SpinEvent {
	ev := &SpinEvent{
		RecordID:  rec.ID,
		UserID:    rec.UserID,
		Username:  rec.Username,
		AccountID: accountID,
		TierID:    rec.TierID,
		TierName:  rec.TierName,
		TierValue: rec.TierValue,
		Status:    status,
		Day:       time.UnixMilli(rec.CreatedAt).In(uc.cal.Location()).Format(constants.DayFormat),
		CreatedAt: rec.CreatedAt,
	}
	if rec.CreditedQuota != nil {
		ev.CreditedQuota = *rec.CreditedQuota
	}
	return ev
}

// Status is the caller's view of the lottery for today.
type Status struct {
	Enabled      bool        `json:"enabled"`
	CanSpin      bool        `json:"canSpin"`
	HasSpunToday bool        `json:"hasSpunToday"`
	Tiers        []PrizeTier `json:"tiers"`
}

// Status reports whether userID can still spin today.
func (uc *SpinUseCase) Status(ctx context.Context, userID int64) (*Status, error) {
	cfg, err := uc.config.GetConfig(ctx)
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	spun, err := uc.gate.HasClaimedToday(ctx, userID)
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	return &Status{
		Enabled:      cfg.Enabled,
		CanSpin:      cfg.Enabled && !spun,
		HasSpunToday: spun,
		Tiers:        cfg.Tiers,
	}, nil
}
