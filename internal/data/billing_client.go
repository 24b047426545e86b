package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"lottery-service/internal/biz"
	"lottery-service/internal/conf"
	"lottery-service/internal/constants"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const defaultBillingTimeout = 10 * time.Second

// apiReply is the envelope every billing system endpoint answers with.
type apiReply struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type billingClient struct {
	client   *khttp.Client
	session  *AdminSessionCache
	username string
	password string
	loginMu  sync.Mutex
	log      *log.Helper
}

// NewBillingClient 创建外部计费系统客户端
func NewBillingClient(c *conf.Bootstrap, session *AdminSessionCache, logger log.Logger) (biz.BillingClient, func(), error) {
	if c == nil || c.NewApi == nil || c.NewApi.BaseUrl == "" {
		return nil, nil, errors.New("newapi base url is empty")
	}
	timeout := defaultBillingTimeout
	if d := c.NewApi.Timeout.AsDuration(); d > 0 {
		timeout = d
	}
	client, err := khttp.NewClient(context.Background(),
		khttp.WithEndpoint(strings.TrimRight(c.NewApi.BaseUrl, "/")),
		khttp.WithTimeout(timeout),
		khttp.WithMiddleware(adminSessionHeaders()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create billing http client: %w", err)
	}
	helper := log.NewHelper(logger)
	cleanup := func() {
		if err := client.Close(); err != nil {
			helper.Errorf("close billing http client failed: %v", err)
		}
	}
	return &billingClient{
		client:   client,
		session:  session,
		username: c.NewApi.AdminUsername,
		password: c.NewApi.AdminPassword,
		log:      helper,
	}, cleanup, nil
}

type sessionKey struct{}

// adminSessionHeaders puts the session attached to ctx on the outgoing request.
func adminSessionHeaders() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if s, ok := ctx.Value(sessionKey{}).(*AdminSession); ok {
				if tr, ok := transport.FromClientContext(ctx); ok {
					tr.RequestHeader().Set("Cookie", s.Cookies)
					tr.RequestHeader().Set(constants.HeaderNewApiUser, strconv.FormatInt(s.UserID, 10))
				}
			}
			return handler(ctx, req)
		}
	}
}

func (b *billingClient) GetAccount(ctx context.Context, accountID int64) (*biz.BillingAccount, error) {
	reply, err := b.call(ctx, nethttp.MethodGet, "/api/user/"+strconv.FormatInt(accountID, 10), nil, true)
	if err != nil {
		return nil, err
	}
	if !reply.Success {
		return nil, &biz.RemoteRejectedError{Op: "get account", Message: reply.Message}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(reply.Data, &raw); err != nil || raw == nil {
		return nil, fmt.Errorf("billing account %d: unreadable data", accountID)
	}
	quota, err := parseQuota(raw["quota"])
	if err != nil {
		return nil, fmt.Errorf("billing account %d: %w", accountID, err)
	}
	return &biz.BillingAccount{ID: accountID, Quota: quota, Raw: raw}, nil
}

// ReplaceAccount sends the full record back with only the quota changed.
func (b *billingClient) ReplaceAccount(ctx context.Context, account *biz.BillingAccount, quota int64) error {
	body := make(map[string]json.RawMessage, len(account.Raw)+2)
	for k, v := range account.Raw {
		body[k] = v
	}
	body["id"] = json.RawMessage(strconv.FormatInt(account.ID, 10))
	body["quota"] = json.RawMessage(strconv.FormatInt(quota, 10))

	reply, err := b.call(ctx, nethttp.MethodPut, "/api/user/", body, false)
	if err != nil {
		if code := kerrors.Code(err); code == nethttp.StatusUnauthorized || code == nethttp.StatusForbidden {
			b.session.Invalidate()
			return &biz.RemoteRejectedError{Op: "update account", Message: fmt.Sprintf("http status %d", code)}
		}
		return err
	}
	if !reply.Success {
		return &biz.RemoteRejectedError{Op: "update account", Message: reply.Message}
	}
	return nil
}

// call sends one request with the admin session. Reads that come back 401 drop the
// session and are retried once with a fresh login.
func (b *billingClient) call(ctx context.Context, method, path string, args interface{}, retryUnauthorized bool) (*apiReply, error) {
	s, err := b.login(ctx)
	if err != nil {
		return nil, err
	}
	var reply apiReply
	err = b.client.Invoke(context.WithValue(ctx, sessionKey{}, s), method, path, args, &reply)
	if err != nil && retryUnauthorized && kerrors.Code(err) == nethttp.StatusUnauthorized {
		b.log.Warnf("billing session rejected, logging in again")
		b.session.Invalidate()
		if s, err = b.login(ctx); err != nil {
			return nil, err
		}
		reply = apiReply{}
		err = b.client.Invoke(context.WithValue(ctx, sessionKey{}, s), method, path, args, &reply)
	}
	if err != nil {
		return nil, fmt.Errorf("billing %s %s: %w", method, path, err)
	}
	return &reply, nil
}

func (b *billingClient) login(ctx context.Context) (*AdminSession, error) {
	b.loginMu.Lock()
	defer b.loginMu.Unlock()
	if s, ok := b.session.Current(); ok {
		return s, nil
	}
	if b.username == "" || b.password == "" {
		return nil, biz.ErrSessionUnavailable
	}

	var reply apiReply
	header := nethttp.Header{}
	creds := map[string]string{"username": b.username, "password": b.password}
	if err := b.client.Invoke(ctx, nethttp.MethodPost, "/api/user/login", creds, &reply, khttp.Header(&header)); err != nil {
		return nil, fmt.Errorf("%w: login: %v", biz.ErrSessionUnavailable, err)
	}
	if !reply.Success {
		return nil, fmt.Errorf("%w: login rejected: %s", biz.ErrSessionUnavailable, reply.Message)
	}
	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(reply.Data, &user); err != nil || user.ID == 0 {
		return nil, fmt.Errorf("%w: login reply carries no user id", biz.ErrSessionUnavailable)
	}
	cookies := (&nethttp.Response{Header: header}).Cookies()
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: login reply sets no cookie", biz.ErrSessionUnavailable)
	}
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	b.log.Infof("billing admin session refreshed: admin=%d", user.ID)
	return b.session.Store(strings.Join(pairs, "; "), user.ID), nil
}

// parseQuota reads an integer quota; a missing field counts as zero.
func parseQuota(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if q, err := strconv.ParseInt(s, 10, 64); err == nil {
		return q, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quota %s", s)
	}
	return int64(f), nil
}
