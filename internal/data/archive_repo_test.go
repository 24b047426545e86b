package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"lottery-service/internal/biz"
	"lottery-service/internal/constants"
)

func testEvent(id, status string, value float64) *biz.SpinEvent {
	return &biz.SpinEvent{
		RecordID:  id,
		UserID:    "100",
		Username:  "alice",
		AccountID: 7,
		TierID:    "tier_x",
		TierName:  "prize",
		TierValue: value,
		Status:    status,
		Day:       "2026-03-10",
		CreatedAt: time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestArchiveRepo_SaveBatchIsIdempotent(t *testing.T) {
	d, _ := newTestData(t)
	repo := NewArchiveRepo(d, testLogger())
	ctx := context.Background()

	events := []*biz.SpinEvent{
		testEvent("r1", constants.ArchiveStatusConfirmed, 5),
		testEvent("r2", constants.ArchiveStatusPending, 3),
	}
	n, err := repo.SaveBatch(ctx, events)
	if err != nil || n != 2 {
		t.Fatalf("first save: n=%d err=%v", n, err)
	}
	n, err = repo.SaveBatch(ctx, append(events, testEvent("r3", constants.ArchiveStatusConfirmed, 1)))
	if err != nil || n != 1 {
		t.Fatalf("redelivered save: n=%d err=%v want=1", n, err)
	}
	got, err := repo.Get(ctx, "r1")
	if err != nil || got.TierValue != 5 || got.AccountID != 7 {
		t.Fatalf("get: entry=%+v err=%v", got, err)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, biz.ErrArchiveNotFound) {
		t.Fatalf("expected ErrArchiveNotFound, got=%v", err)
	}
}

func TestArchiveRepo_ResolvePending(t *testing.T) {
	d, _ := newTestData(t)
	repo := NewArchiveRepo(d, testLogger())
	ctx := context.Background()
	_, _ = repo.SaveBatch(ctx, []*biz.SpinEvent{
		testEvent("p1", constants.ArchiveStatusPending, 3),
		testEvent("c1", constants.ArchiveStatusConfirmed, 1),
	})

	pending, err := repo.ListByStatus(ctx, constants.ArchiveStatusPending, 10)
	if err != nil || len(pending) != 1 || pending[0].RecordID != "p1" {
		t.Fatalf("pending list: %+v err=%v", pending, err)
	}

	at := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	ok, err := repo.Resolve(ctx, "p1", constants.ArchiveStatusDelivered, "seen in billing log", at)
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.Resolve(ctx, "p1", constants.ArchiveStatusNotDelivered, "", at); ok {
		t.Fatalf("resolved entry must not move again")
	}
	if ok, _ := repo.Resolve(ctx, "c1", constants.ArchiveStatusDelivered, "", at); ok {
		t.Fatalf("confirmed entry is not pending")
	}
	got, _ := repo.Get(ctx, "p1")
	if got.Status != constants.ArchiveStatusDelivered || got.Note != "seen in billing log" || got.ResolvedAt == nil {
		t.Fatalf("unexpected resolved entry: %+v", got)
	}
}

func TestArchiveRepo_SummarizeDay(t *testing.T) {
	d, _ := newTestData(t)
	repo := NewArchiveRepo(d, testLogger())
	ctx := context.Background()
	_, _ = repo.SaveBatch(ctx, []*biz.SpinEvent{
		testEvent("a", constants.ArchiveStatusConfirmed, 5),
		testEvent("b", constants.ArchiveStatusConfirmed, 10),
		testEvent("c", constants.ArchiveStatusPending, 3),
	})
	_, _ = repo.Resolve(ctx, "c", constants.ArchiveStatusNotDelivered, "", time.Now())

	sum, err := repo.SummarizeDay(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.StatusCounts[constants.ArchiveStatusConfirmed] != 2 || sum.StatusCounts[constants.ArchiveStatusNotDelivered] != 1 {
		t.Fatalf("unexpected counts: %v", sum.StatusCounts)
	}
	if sum.TotalValue != 15 {
		t.Fatalf("undelivered spins must not count: total=%v want=15", sum.TotalValue)
	}
	empty, _ := repo.SummarizeDay(ctx, "2026-01-01")
	if len(empty.StatusCounts) != 0 || empty.TotalValue != 0 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}

func TestEventPublisher_ArchivesDirectlyWithoutMQ(t *testing.T) {
	d, _ := newTestData(t)
	repo := NewArchiveRepo(d, testLogger())
	pub := NewEventPublisher(d, repo, testLogger())

	if err := pub.PublishSpinEvent(context.Background(), testEvent("e1", constants.ArchiveStatusPending, 3)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := repo.Get(context.Background(), "e1"); err != nil {
		t.Fatalf("event must be archived: %v", err)
	}
}
