package biz

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

var errStoreDown = errors.New("store down")

func testLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

// fixedNow is 2026-03-10 15:00:00 at UTC+8.
func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
}

type claimKey struct {
	userID int64
	day    string
}

type fakeClaimRepo struct {
	mu        sync.Mutex
	marks     map[claimKey]time.Duration
	setErr    error
	deleteErr error
	deletes   int
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{marks: make(map[claimKey]time.Duration)}
}

func (r *fakeClaimRepo) SetIfAbsent(_ context.Context, userID int64, day string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return false, r.setErr
	}
	k := claimKey{userID, day}
	if _, ok := r.marks[k]; ok {
		return false, nil
	}
	r.marks[k] = ttl
	return true, nil
}

func (r *fakeClaimRepo) Delete(_ context.Context, userID int64, day string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.marks, claimKey{userID, day})
	return nil
}

func (r *fakeClaimRepo) Exists(_ context.Context, userID int64, day string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.marks[claimKey{userID, day}]
	return ok, nil
}

func (r *fakeClaimRepo) has(userID int64, day string) bool {
	ok, _ := r.Exists(context.Background(), userID, day)
	return ok
}

type fakeBudgetRepo struct {
	mu         sync.Mutex
	totals     map[string]int64
	ttls       map[string]time.Duration
	reserveErr error
	totalErr   error
	rejectAll  bool // simulates losing the race for the last slice of budget
	reserves   int
}

func newFakeBudgetRepo() *fakeBudgetRepo {
	return &fakeBudgetRepo{totals: make(map[string]int64), ttls: make(map[string]time.Duration)}
}

func (r *fakeBudgetRepo) Reserve(_ context.Context, day string, cents, limitCents int64, ttl time.Duration) (bool, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserves++
	if r.reserveErr != nil {
		return false, 0, r.reserveErr
	}
	if r.rejectAll {
		return false, r.totals[day], nil
	}
	r.totals[day] += cents
	if _, ok := r.ttls[day]; !ok {
		r.ttls[day] = ttl
	}
	if r.totals[day] > limitCents {
		r.totals[day] -= cents
		return false, r.totals[day], nil
	}
	return true, r.totals[day], nil
}

func (r *fakeBudgetRepo) Release(_ context.Context, day string, cents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals[day] -= cents
	return nil
}

func (r *fakeBudgetRepo) Total(_ context.Context, day string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.totalErr != nil {
		return 0, r.totalErr
	}
	return r.totals[day], nil
}

func (r *fakeBudgetRepo) total(day string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totals[day]
}

type fakeConfigRepo struct {
	mu     sync.Mutex
	cfg    *LotteryConfig
	getErr error
	saves  int
}

func (r *fakeConfigRepo) Get(context.Context) (*LotteryConfig, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, false, r.getErr
	}
	if r.cfg == nil {
		return nil, false, nil
	}
	return r.cfg.Clone(), true, nil
}

func (r *fakeConfigRepo) Save(_ context.Context, cfg *LotteryConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.cfg = cfg.Clone()
	return nil
}

type fakeRecordRepo struct {
	mu        sync.Mutex
	global    []*SpinRecord // newest first
	users     map[string][]*SpinRecord
	appendErr error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{users: make(map[string][]*SpinRecord)}
}

func (r *fakeRecordRepo) Append(_ context.Context, rec *SpinRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.global = append([]*SpinRecord{rec}, r.global...)
	r.users[rec.UserID] = append([]*SpinRecord{rec}, r.users[rec.UserID]...)
	return nil
}

func (r *fakeRecordRepo) ListGlobal(_ context.Context, offset, limit int64) ([]*SpinRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= int64(len(r.global)) {
		return nil, 0, nil
	}
	end := offset + limit
	if end > int64(len(r.global)) {
		end = int64(len(r.global))
	}
	out := append([]*SpinRecord(nil), r.global[offset:end]...)
	return out, len(out), nil
}

func (r *fakeRecordRepo) ListUser(_ context.Context, userID string, limit int64) ([]*SpinRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.users[userID]
	if int64(len(recs)) > limit {
		recs = recs[:limit]
	}
	return append([]*SpinRecord(nil), recs...), nil
}

func (r *fakeRecordRepo) CountGlobal(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.global)), nil
}

func (r *fakeRecordRepo) TrimGlobal(_ context.Context, maxLen int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int64(len(r.global)) > maxLen {
		r.global = r.global[:maxLen]
	}
	return nil
}

// fakeBillingClient scripts billing responses per call.
type fakeBillingClient struct {
	mu         sync.Mutex
	quota      int64
	getErrs    []error // consumed per GetAccount call, nil entries succeed
	replaceErr error
	applyWrite bool // apply the quota even when replaceErr is set
	panicOnGet bool
	// panicOnReplace lands the write, then panics
	panicOnReplace bool
	gets           int
	replaces       int
}

func (c *fakeBillingClient) GetAccount(_ context.Context, accountID int64) (*BillingAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.panicOnGet {
		panic("billing client exploded")
	}
	if len(c.getErrs) > 0 {
		err := c.getErrs[0]
		c.getErrs = c.getErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &BillingAccount{ID: accountID, Quota: c.quota}, nil
}

func (c *fakeBillingClient) ReplaceAccount(_ context.Context, _ *BillingAccount, quota int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaces++
	if c.replaceErr == nil || c.applyWrite || c.panicOnReplace {
		c.quota = quota
	}
	if c.panicOnReplace {
		panic("billing client exploded mid-write")
	}
	return c.replaceErr
}

type fakeLock struct {
	locker *fakeLocker
}

func (l *fakeLock) Release(context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	l.locker.releases++
	return nil
}

type fakeLocker struct {
	mu       sync.Mutex
	err      error
	acquires int
	releases int
}

func (l *fakeLocker) Acquire(context.Context, int64) (CreditLock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquires++
	return &fakeLock{locker: l}, nil
}

type fakeArchiveRepo struct {
	mu      sync.Mutex
	entries map[string]*ArchiveEntry
}

func newFakeArchiveRepo() *fakeArchiveRepo {
	return &fakeArchiveRepo{entries: make(map[string]*ArchiveEntry)}
}

func (r *fakeArchiveRepo) SaveBatch(_ context.Context, events []*SpinEvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, ev := range events {
		if _, ok := r.entries[ev.RecordID]; ok {
			continue
		}
		r.entries[ev.RecordID] = &ArchiveEntry{
			RecordID:  ev.RecordID,
			UserID:    ev.UserID,
			TierName:  ev.TierName,
			TierValue: ev.TierValue,
			Status:    ev.Status,
			Day:       ev.Day,
		}
		n++
	}
	return n, nil
}

func (r *fakeArchiveRepo) ListByStatus(_ context.Context, status string, limit int) ([]*ArchiveEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ArchiveEntry, 0)
	for _, e := range r.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID < out[j].RecordID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeArchiveRepo) Get(_ context.Context, recordID string) (*ArchiveEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[recordID]
	if !ok {
		return nil, ErrArchiveNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeArchiveRepo) Resolve(_ context.Context, recordID, status, note string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[recordID]
	if !ok || e.Status != "pending" {
		return false, nil
	}
	e.Status = status
	e.Note = note
	e.ResolvedAt = &at
	return true, nil
}

func (r *fakeArchiveRepo) SummarizeDay(_ context.Context, day string) (*DailySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &DailySummary{Day: day, StatusCounts: map[string]int64{}}
	for _, e := range r.entries {
		if e.Day == day {
			s.StatusCounts[e.Status]++
			s.TotalValue = SumDollars(s.TotalValue, e.TierValue)
		}
	}
	return s, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*SpinEvent
	err    error
}

func (p *fakePublisher) PublishSpinEvent(_ context.Context, ev *SpinEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

// spinEnv wires a SpinUseCase over in-memory fakes.
type spinEnv struct {
	cal       *Calendar
	claims    *fakeClaimRepo
	budget    *fakeBudgetRepo
	config    *fakeConfigRepo
	records   *fakeRecordRepo
	billing   *fakeBillingClient
	locker    *fakeLocker
	archive   *fakeArchiveRepo
	publisher *fakePublisher
	opts      *LotteryOptions

	configUC *ConfigUseCase
	ledger   *BudgetLedger
	recordUC *RecordUseCase
	gateway  *CreditGateway
	spin     *SpinUseCase
}

func newSpinEnv(cfg *LotteryConfig) *spinEnv {
	logger := testLogger()
	opts := NewLotteryOptions(nil)
	e := &spinEnv{
		cal:       NewCalendarAt(8, fixedNow),
		claims:    newFakeClaimRepo(),
		budget:    newFakeBudgetRepo(),
		config:    &fakeConfigRepo{cfg: cfg},
		records:   newFakeRecordRepo(),
		billing:   &fakeBillingClient{quota: 1_000_000},
		locker:    &fakeLocker{},
		archive:   newFakeArchiveRepo(),
		publisher: &fakePublisher{},
		opts:      opts,
	}
	e.configUC = NewConfigUseCase(e.config, logger)
	e.ledger = NewBudgetLedger(e.budget, e.configUC, e.cal, opts, logger)
	e.recordUC = NewRecordUseCase(e.records, e.ledger, e.cal, opts, logger)
	e.gateway = NewCreditGateway(e.billing, e.locker, opts, logger)
	archiveUC := NewArchiveUseCase(e.archive, e.publisher, logger)
	e.spin = NewSpinUseCase(
		NewClaimGate(e.claims, e.cal, logger),
		e.configUC,
		e.ledger,
		NewPrizeSelector(),
		e.gateway,
		e.recordUC,
		archiveUC,
		e.cal,
		logger,
	)
	e.spin.now = fixedNow
	return e
}

func withRandom(v float64) func() {
	original := randFloat
	randFloat = func() float64 { return v }
	return func() { randFloat = original }
}
