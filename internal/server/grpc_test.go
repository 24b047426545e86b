package server

import (
	"context"
	"testing"

	"lottery-service/internal/biz"
	lotteryErrors "lottery-service/internal/errors"
	"lottery-service/internal/service"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeAdmin struct {
	lastUpdate     *biz.ConfigUpdate
	invalidated    int64
	pendingLimit   int
	invalidateFail bool
}

func (f *fakeAdmin) GetConfig(context.Context) (*biz.LotteryConfig, error) {
	return biz.DefaultLotteryConfig(), nil
}

func (f *fakeAdmin) UpdateConfig(_ context.Context, u *biz.ConfigUpdate) (*biz.LotteryConfig, error) {
	f.lastUpdate = u
	return u.Apply(biz.DefaultLotteryConfig()), nil
}

func (f *fakeAdmin) GetStats(context.Context) (*service.StatsReply, error) {
	return &service.StatsReply{LotteryStats: &biz.LotteryStats{TodaySpins: 3}, Enabled: true}, nil
}

func (f *fakeAdmin) ListPending(_ context.Context, limit int) (*service.PendingReply, error) {
	f.pendingLimit = limit
	return &service.PendingReply{Pending: []*biz.ArchiveEntry{}}, nil
}

func (f *fakeAdmin) ResolvePending(context.Context, *service.ResolvePendingRequest) (*biz.ArchiveEntry, error) {
	return nil, lotteryErrors.New(lotteryErrors.ErrCodePendingNotFound)
}

func (f *fakeAdmin) InvalidateAccountLink(_ context.Context, req *service.InvalidateAccountLinkRequest) error {
	if f.invalidateFail {
		return lotteryErrors.New(lotteryErrors.ErrCodeStoreUnavailable)
	}
	f.invalidated = req.UserID
	return nil
}

func invokeAdmin(t *testing.T, srv lotteryAdminServer, method string, in map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for _, m := range lotteryAdminServiceDesc.Methods {
		if m.MethodName != method {
			continue
		}
		dec := func(v interface{}) error {
			proto.Merge(v.(*structpb.Struct), req)
			return nil
		}
		out, err := m.Handler(srv, context.Background(), dec, nil)
		if err != nil {
			return nil, err
		}
		return out.(*structpb.Struct), nil
	}
	t.Fatalf("unknown method %s", method)
	return nil, nil
}

func TestGRPCAdmin_GetConfigAndStats(t *testing.T) {
	admin := &fakeAdmin{}
	out, err := invokeAdmin(t, admin, "GetConfig", nil)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if out.Fields["dailyDirectLimit"].GetNumberValue() != 2000 {
		t.Fatalf("unexpected config: %v", out.AsMap())
	}
	out, err = invokeAdmin(t, admin, "GetStats", nil)
	if err != nil || out.Fields["todaySpins"].GetNumberValue() != 3 {
		t.Fatalf("GetStats: out=%v err=%v", out, err)
	}
}

func TestGRPCAdmin_UpdateConfigDecodesPayload(t *testing.T) {
	admin := &fakeAdmin{}
	out, err := invokeAdmin(t, admin, "UpdateConfig", map[string]interface{}{"enabled": false, "dailyDirectLimit": 10})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if admin.lastUpdate == nil || admin.lastUpdate.Enabled == nil || *admin.lastUpdate.Enabled {
		t.Fatalf("enabled flag not decoded: %+v", admin.lastUpdate)
	}
	if out.Fields["enabled"].GetBoolValue() || out.Fields["dailyDirectLimit"].GetNumberValue() != 10 {
		t.Fatalf("unexpected reply: %v", out.AsMap())
	}
}

func TestGRPCAdmin_InvalidateAccountLink(t *testing.T) {
	admin := &fakeAdmin{}
	if _, err := invokeAdmin(t, admin, "InvalidateAccountLink", map[string]interface{}{"userId": 1001}); err != nil {
		t.Fatalf("InvalidateAccountLink: %v", err)
	}
	if admin.invalidated != 1001 {
		t.Fatalf("unexpected user: got=%d want=1001", admin.invalidated)
	}

	admin.invalidateFail = true
	_, err := invokeAdmin(t, admin, "InvalidateAccountLink", map[string]interface{}{"userId": 1001})
	if !lotteryErrors.Is(err, lotteryErrors.ErrCodeStoreUnavailable) {
		t.Fatalf("expected STORE_UNAVAILABLE, got=%v", err)
	}
}

func TestGRPCAdmin_BadPayload(t *testing.T) {
	admin := &fakeAdmin{}
	_, err := invokeAdmin(t, admin, "ListPending", map[string]interface{}{"limit": "many"})
	if !lotteryErrors.Is(err, lotteryErrors.ErrCodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got=%v", err)
	}
	if _, err := invokeAdmin(t, admin, "ListPending", map[string]interface{}{"limit": 20}); err != nil || admin.pendingLimit != 20 {
		t.Fatalf("ListPending: limit=%d err=%v", admin.pendingLimit, err)
	}
}
