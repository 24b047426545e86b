package data

import (
	"sync"
	"time"

	"lottery-service/internal/conf"
)

const (
	defaultSessionTTL     = 24 * time.Hour
	sessionRefreshHeadway = 5 * time.Minute
)

// AdminSession is a logged-in admin session of the billing system.
type AdminSession struct {
	Cookies   string
	UserID    int64
	ExpiresAt time.Time
}

// AdminSessionCache holds the billing admin session shared by all credit calls.
type AdminSessionCache struct {
	mu      sync.Mutex
	current *AdminSession
	ttl     time.Duration
	now     func() time.Time
}

// NewAdminSession 创建管理员会话缓存
func NewAdminSession(c *conf.Bootstrap) *AdminSessionCache {
	ttl := defaultSessionTTL
	if c != nil && c.NewApi != nil && c.NewApi.SessionTtl.AsDuration() > 0 {
		ttl = c.NewApi.SessionTtl.AsDuration()
	}
	return &AdminSessionCache{ttl: ttl, now: time.Now}
}

// Current returns the cached session while more than the refresh headway remains.
func (c *AdminSessionCache) Current() (*AdminSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || !c.now().Add(sessionRefreshHeadway).Before(c.current.ExpiresAt) {
		return nil, false
	}
	return c.current, true
}

// Store caches a fresh session.
func (c *AdminSessionCache) Store(cookies string, userID int64) *AdminSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &AdminSession{
		Cookies:   cookies,
		UserID:    userID,
		ExpiresAt: c.now().Add(c.ttl),
	}
	return c.current
}

// Invalidate drops the cached session.
func (c *AdminSessionCache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
