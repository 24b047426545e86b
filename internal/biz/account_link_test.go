package biz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeLinkCache struct {
	mu      sync.Mutex
	entries map[int64]*CachedLink
	ttls    map[int64]time.Duration
	getErr  error
}

func newFakeLinkCache() *fakeLinkCache {
	return &fakeLinkCache{entries: map[int64]*CachedLink{}, ttls: map[int64]time.Duration{}}
}

func (c *fakeLinkCache) Get(_ context.Context, id int64) (*CachedLink, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	l, ok := c.entries[id]
	return l, ok, nil
}

func (c *fakeLinkCache) Set(_ context.Context, id int64, link *CachedLink, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = link
	c.ttls[id] = ttl
	return nil
}

func (c *fakeLinkCache) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

type fakeDirectory struct {
	accounts map[int64]int64
	err      error
	lookups  int
}

func (d *fakeDirectory) LookupAccountID(_ context.Context, id int64) (int64, bool, error) {
	d.lookups++
	if d.err != nil {
		return 0, false, d.err
	}
	acc, ok := d.accounts[id]
	return acc, ok, nil
}

func newLinkUseCase(cache *fakeLinkCache, dir *fakeDirectory, now *time.Time) *AccountLinkUseCase {
	uc := NewAccountLinkUseCase(cache, dir, NewLotteryOptions(nil), testLogger())
	uc.now = func() time.Time { return *now }
	return uc
}

func TestAccountLink_CachesHitsAndMisses(t *testing.T) {
	now := fixedNow()
	cache := newFakeLinkCache()
	dir := &fakeDirectory{accounts: map[int64]int64{1: 501}}
	uc := newLinkUseCase(cache, dir, &now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, found, err := uc.Resolve(ctx, 1)
		if err != nil || !found || id != 501 {
			t.Fatalf("resolve hit: id=%d found=%v err=%v", id, found, err)
		}
	}
	for i := 0; i < 3; i++ {
		_, found, err := uc.Resolve(ctx, 2)
		if err != nil || found {
			t.Fatalf("resolve miss: found=%v err=%v", found, err)
		}
	}
	if dir.lookups != 2 {
		t.Fatalf("directory should be queried once per user: got=%d want=2", dir.lookups)
	}
	if cache.ttls[1] != 24*time.Hour || cache.ttls[2] != 10*time.Minute {
		t.Fatalf("unexpected ttls: hit=%v miss=%v", cache.ttls[1], cache.ttls[2])
	}
}

func TestAccountLink_StaleEntryIsRefreshed(t *testing.T) {
	now := fixedNow()
	cache := newFakeLinkCache()
	cache.entries[1] = &CachedLink{AccountID: 9, Found: true, CachedAt: now.Add(-25 * time.Hour).UnixMilli()}
	dir := &fakeDirectory{accounts: map[int64]int64{1: 501}}
	uc := newLinkUseCase(cache, dir, &now)

	id, found, err := uc.Resolve(context.Background(), 1)
	if err != nil || !found || id != 501 {
		t.Fatalf("stale entry should be refreshed: id=%d found=%v err=%v", id, found, err)
	}
}

func TestAccountLink_CacheErrorFallsThrough(t *testing.T) {
	now := fixedNow()
	cache := newFakeLinkCache()
	cache.getErr = errStoreDown
	dir := &fakeDirectory{accounts: map[int64]int64{1: 501}}
	uc := newLinkUseCase(cache, dir, &now)

	id, found, err := uc.Resolve(context.Background(), 1)
	if err != nil || !found || id != 501 {
		t.Fatalf("cache failure should fall through: id=%d found=%v err=%v", id, found, err)
	}
}

func TestAccountLink_DirectoryErrorIsReturned(t *testing.T) {
	now := fixedNow()
	dir := &fakeDirectory{err: errStoreDown}
	uc := newLinkUseCase(newFakeLinkCache(), dir, &now)
	if _, _, err := uc.Resolve(context.Background(), 1); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected directory error, got=%v", err)
	}
}

func TestAccountLink_Invalidate(t *testing.T) {
	now := fixedNow()
	cache := newFakeLinkCache()
	dir := &fakeDirectory{accounts: map[int64]int64{}}
	uc := newLinkUseCase(cache, dir, &now)
	ctx := context.Background()

	if _, found, _ := uc.Resolve(ctx, 1); found {
		t.Fatalf("user should not be linked yet")
	}
	dir.accounts[1] = 501
	if _, found, _ := uc.Resolve(ctx, 1); found {
		t.Fatalf("negative entry should still be cached")
	}
	if err := uc.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if id, found, _ := uc.Resolve(ctx, 1); !found || id != 501 {
		t.Fatalf("re-login should see the new link: id=%d found=%v", id, found)
	}
}
