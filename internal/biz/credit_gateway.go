package biz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lottery-service/internal/constants"
	"lottery-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

var (
	// ErrLockBusy the per-account lock could not be acquired within the polling budget.
	ErrLockBusy = errors.New("quota lock busy")
	// ErrSessionUnavailable no admin session for the billing system.
	ErrSessionUnavailable = errors.New("billing admin session unavailable")
)

// RemoteRejectedError is a well-formed "success=false" answer from the billing system.
type RemoteRejectedError struct {
	Op      string
	Message string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("billing %s rejected: %s", e.Op, e.Message)
}

// BillingAccount is an account record of the billing system.
// Raw keeps every field of the record so an update can replace it in full.
type BillingAccount struct {
	ID    int64
	Quota int64
	Raw   map[string]json.RawMessage
}

// BillingClient is the billing system's account API.
type BillingClient interface {
	GetAccount(ctx context.Context, accountID int64) (*BillingAccount, error)
	// ReplaceAccount writes the full record with quota replaced.
	ReplaceAccount(ctx context.Context, account *BillingAccount, quota int64) error
}

// CreditLock is a held per-account lock.
type CreditLock interface {
	Release(ctx context.Context) error
}

// CreditLocker hands out per-account locks with a bounded lifetime.
type CreditLocker interface {
	// Acquire polls a bounded number of times; ErrLockBusy when exhausted.
	Acquire(ctx context.Context, accountID int64) (CreditLock, error)
}

// CreditStatus 直充结果
type CreditStatus int

const (
	CreditConfirmed CreditStatus = iota
	CreditFailed
	CreditUncertain
)

func (s CreditStatus) String() string {
	switch s {
	case CreditConfirmed:
		return constants.CreditStatusConfirmed
	case CreditFailed:
		return constants.CreditStatusFailed
	default:
		return constants.CreditStatusUncertain
	}
}

// CreditResult 直充结果详情
type CreditResult struct {
	Status   CreditStatus
	Busy     bool  // lock contention, nothing was written
	NewQuota int64 // verified or written quota, set when confirmed
	Message  string
}

// CreditGateway credits dollars to a billing account with read-modify-write under a per-account lock.
// It reports FAILED only when the write provably did not land.
type CreditGateway struct {
	client    BillingClient
	locker    CreditLocker
	perDollar int64
	log       *log.Helper
	metrics   *metrics.LotteryMetrics
}

// NewCreditGateway 创建直充网关
func NewCreditGateway(client BillingClient, locker CreditLocker, opts *LotteryOptions, logger log.Logger) *CreditGateway {
	return &CreditGateway{
		client:    client,
		locker:    locker,
		perDollar: opts.QuotaPerDollar,
		log:       log.NewHelper(logger),
		metrics:   metrics.GetMetrics(),
	}
}

// Credit adds floor(dollars * quotaPerDollar) to the account.
func (g *CreditGateway) Credit(ctx context.Context, accountID int64, dollars float64) *CreditResult {
	start := time.Now()
	res := g.credit(ctx, accountID, dollars)
	g.metrics.CreditDuration.Observe(time.Since(start).Seconds())
	g.metrics.CreditTotal.WithLabelValues(res.Status.String()).Inc()
	return res
}

func (g *CreditGateway) credit(ctx context.Context, accountID int64, dollars float64) (res *CreditResult) {
	var written bool
	defer func() {
		if r := recover(); r != nil {
			if !written {
				panic(r)
			}
			// the update request is out, so the remote balance may already have moved
			g.log.Errorf("credit panic after write sent: account=%d panic=%v", accountID, r)
			res = &CreditResult{Status: CreditUncertain, Message: "credit result uncertain, please check your balance later"}
		}
	}()

	lock, err := g.locker.Acquire(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrLockBusy) {
			g.log.Warnf("quota lock busy: account=%d", accountID)
			return &CreditResult{Status: CreditFailed, Busy: true, Message: "system busy, credit request queued, please retry"}
		}
		g.log.Errorf("quota lock acquire failed: account=%d err=%v", accountID, err)
		return &CreditResult{Status: CreditFailed, Message: "failed to acquire quota lock"}
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			g.log.Warnf("release quota lock failed: account=%d err=%v", accountID, err)
		}
	}()

	account, err := g.client.GetAccount(ctx, accountID)
	if err != nil {
		// nothing has been written yet
		g.log.Errorf("read billing account failed: account=%d err=%v", accountID, err)
		return &CreditResult{Status: CreditFailed, Message: "failed to read billing account"}
	}

	expected := account.Quota + QuotaForDollars(dollars, g.perDollar)
	written = true
	err = g.client.ReplaceAccount(ctx, account, expected)
	if err == nil {
		return &CreditResult{Status: CreditConfirmed, NewQuota: expected, Message: fmt.Sprintf("credited $%v", dollars)}
	}

	var rejected *RemoteRejectedError
	explicit := errors.As(err, &rejected)
	g.log.Warnf("billing account update not confirmed, verifying: account=%d explicit=%v err=%v", accountID, explicit, err)
	return g.verify(ctx, accountID, expected, explicit, err)
}

// verify rereads the account after an unconfirmed write. A reread at or above the
// expected quota confirms the credit. A lower balance is a definite failure only when
// the billing system answered with an explicit rejection; otherwise the write may still
// be in flight, so the outcome stays uncertain.
func (g *CreditGateway) verify(ctx context.Context, accountID, expected int64, explicit bool, cause error) *CreditResult {
	account, err := g.client.GetAccount(ctx, accountID)
	if err != nil {
		g.log.Errorf("verify billing account failed: account=%d err=%v", accountID, err)
		return &CreditResult{Status: CreditUncertain, Message: "credit result uncertain, please check your balance later"}
	}
	if account.Quota >= expected {
		return &CreditResult{Status: CreditConfirmed, NewQuota: account.Quota, Message: "credit confirmed"}
	}
	if explicit {
		msg := "quota update failed"
		var rejected *RemoteRejectedError
		if errors.As(cause, &rejected) && rejected.Message != "" {
			msg = rejected.Message
		}
		return &CreditResult{Status: CreditFailed, Message: msg}
	}
	return &CreditResult{Status: CreditUncertain, Message: "credit result uncertain, please check your balance later"}
}
