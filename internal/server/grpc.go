package server

import (
	"context"
	"encoding/json"

	"lottery-service/internal/biz"
	"lottery-service/internal/conf"
	lotteryErrors "lottery-service/internal/errors"
	"lottery-service/internal/service"

	"github.com/gaoyong06/go-pkg/middleware/app_id"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	grpcgo "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// NewGRPCServer new a gRPC server for internal callers.
func NewGRPCServer(c *conf.Bootstrap, admin *service.LotteryAdminService, logger log.Logger) *grpc.Server {
	var opts = []grpc.ServerOption{
		grpc.Middleware(
			recovery.Recovery(),
			app_id.Middleware(),
		),
	}
	if c.Server != nil && c.Server.Grpc != nil {
		if c.Server.Grpc.Network != "" {
			opts = append(opts, grpc.Network(c.Server.Grpc.Network))
		}
		if c.Server.Grpc.Addr != "" {
			opts = append(opts, grpc.Address(c.Server.Grpc.Addr))
		}
		if d := c.Server.Grpc.Timeout.AsDuration(); d > 0 {
			opts = append(opts, grpc.Timeout(d))
		}
	}
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&lotteryAdminServiceDesc, admin)
	return srv
}

// lotteryAdminServer is the handler type of lottery.v1.LotteryAdmin. Payloads are
// google.protobuf.Struct documents carrying the same JSON as the HTTP admin API.
type lotteryAdminServer interface {
	GetConfig(context.Context) (*biz.LotteryConfig, error)
	UpdateConfig(context.Context, *biz.ConfigUpdate) (*biz.LotteryConfig, error)
	GetStats(context.Context) (*service.StatsReply, error)
	ListPending(context.Context, int) (*service.PendingReply, error)
	ResolvePending(context.Context, *service.ResolvePendingRequest) (*biz.ArchiveEntry, error)
	InvalidateAccountLink(context.Context, *service.InvalidateAccountLinkRequest) error
}

var lotteryAdminServiceDesc = grpcgo.ServiceDesc{
	ServiceName: "lottery.v1.LotteryAdmin",
	HandlerType: (*lotteryAdminServer)(nil),
	Methods: []grpcgo.MethodDesc{
		adminMethod("GetConfig", func(ctx context.Context, s lotteryAdminServer, _ *structpb.Struct) (interface{}, error) {
			return s.GetConfig(ctx)
		}),
		adminMethod("UpdateConfig", func(ctx context.Context, s lotteryAdminServer, in *structpb.Struct) (interface{}, error) {
			var req biz.ConfigUpdate
			if err := fromStruct(in, &req); err != nil {
				return nil, err
			}
			return s.UpdateConfig(ctx, &req)
		}),
		adminMethod("GetStats", func(ctx context.Context, s lotteryAdminServer, _ *structpb.Struct) (interface{}, error) {
			return s.GetStats(ctx)
		}),
		adminMethod("ListPending", func(ctx context.Context, s lotteryAdminServer, in *structpb.Struct) (interface{}, error) {
			var req struct {
				Limit int `json:"limit"`
			}
			if err := fromStruct(in, &req); err != nil {
				return nil, err
			}
			return s.ListPending(ctx, req.Limit)
		}),
		adminMethod("ResolvePending", func(ctx context.Context, s lotteryAdminServer, in *structpb.Struct) (interface{}, error) {
			var req service.ResolvePendingRequest
			if err := fromStruct(in, &req); err != nil {
				return nil, err
			}
			return s.ResolvePending(ctx, &req)
		}),
		adminMethod("InvalidateAccountLink", func(ctx context.Context, s lotteryAdminServer, in *structpb.Struct) (interface{}, error) {
			var req service.InvalidateAccountLinkRequest
			if err := fromStruct(in, &req); err != nil {
				return nil, err
			}
			return nil, s.InvalidateAccountLink(ctx, &req)
		}),
	},
	Streams:  []grpcgo.StreamDesc{},
	Metadata: "lottery/v1/admin.proto",
}

type adminCall func(ctx context.Context, s lotteryAdminServer, in *structpb.Struct) (interface{}, error)

func adminMethod(name string, call adminCall) grpcgo.MethodDesc {
	fullMethod := "/lottery.v1.LotteryAdmin/" + name
	return grpcgo.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpcgo.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				out, err := call(ctx, srv.(lotteryAdminServer), req.(*structpb.Struct))
				if err != nil {
					return nil, err
				}
				return toStruct(out)
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpcgo.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func fromStruct(in *structpb.Struct, v interface{}) error {
	raw, err := json.Marshal(in.AsMap())
	if err == nil {
		err = json.Unmarshal(raw, v)
	}
	if err != nil {
		return lotteryErrors.Newf(lotteryErrors.ErrCodeInvalidArgument, "invalid request: "+err.Error())
	}
	return nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	if v == nil {
		return &structpb.Struct{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeSystemError, err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeSystemError, err)
	}
	return structpb.NewStruct(m)
}
