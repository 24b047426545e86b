package server

import (
	"context"
	"strconv"

	"lottery-service/internal/biz"
	"lottery-service/internal/conf"
	lotteryErrors "lottery-service/internal/errors"
	"lottery-service/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OperationLotteryGetStatus   = "/lottery.v1.Lottery/GetStatus"
	OperationLotterySpin        = "/lottery.v1.Lottery/Spin"
	OperationLotteryListRecords = "/lottery.v1.Lottery/ListRecords"
	OperationLotteryRanking     = "/lottery.v1.Lottery/Ranking"

	OperationAdminGetConfig      = "/lottery.v1.LotteryAdmin/GetConfig"
	OperationAdminUpdateConfig   = "/lottery.v1.LotteryAdmin/UpdateConfig"
	OperationAdminGetStats       = "/lottery.v1.LotteryAdmin/GetStats"
	OperationAdminListPending    = "/lottery.v1.LotteryAdmin/ListPending"
	OperationAdminResolvePending = "/lottery.v1.LotteryAdmin/ResolvePending"
)

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(c *conf.Bootstrap, lottery *service.LotteryService, admin *service.LotteryAdminService, logger log.Logger) *http.Server {
	var (
		secret []byte
		admins []string
	)
	if c.Auth != nil {
		secret = []byte(c.Auth.JwtSecret)
		admins = c.Auth.AdminUsernames
	}
	if len(secret) == 0 {
		log.NewHelper(logger).Warn("auth.jwt_secret is empty, every session will be rejected")
	}

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			selector.Server(
				jwt.Server(
					func(token *jwtv5.Token) (interface{}, error) {
						if len(secret) == 0 {
							return nil, lotteryErrors.New(lotteryErrors.ErrCodeUnauthorized)
						}
						return secret, nil
					},
					jwt.WithSigningMethod(jwtv5.SigningMethodHS256),
					jwt.WithClaims(service.NewSessionClaims),
				),
			).Prefix("/lottery.v1.Lottery/", "/lottery.v1.LotteryAdmin/").Build(),
			selector.Server(adminOnly(admins)).Prefix("/lottery.v1.LotteryAdmin/").Build(),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if d := c.Server.Http.Timeout.AsDuration(); d > 0 {
			opts = append(opts, http.Timeout(d))
		}
	}
	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.Handler())
	registerLotteryHTTPServer(srv, lottery)
	registerLotteryAdminHTTPServer(srv, admin)
	return srv
}

func registerLotteryHTTPServer(s *http.Server, svc *service.LotteryService) {
	r := s.Route("/")
	r.GET("/api/lottery", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationLotteryGetStatus)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.GetStatus(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
	r.POST("/api/lottery/spin", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationLotterySpin)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.Spin(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		reply := out.(*service.SpinReply)
		if reply.Uncertain {
			return ctx.Result(202, reply)
		}
		return ctx.Result(200, reply)
	})
	r.GET("/api/lottery/records", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationLotteryListRecords)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ListRecords(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
	r.GET("/api/lottery/ranking", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationLotteryRanking)
		limit := queryInt(ctx, "limit")
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.Ranking(ctx, limit)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
}

func registerLotteryAdminHTTPServer(s *http.Server, svc *service.LotteryAdminService) {
	r := s.Route("/")
	r.GET("/api/admin/lottery/config", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationAdminGetConfig)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.GetConfig(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
	r.PATCH("/api/admin/lottery/config", func(ctx http.Context) error {
		var in biz.ConfigUpdate
		if err := ctx.Bind(&in); err != nil {
			return lotteryErrors.Newf(lotteryErrors.ErrCodeInvalidArgument, "invalid request body")
		}
		http.SetOperation(ctx, OperationAdminUpdateConfig)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.UpdateConfig(ctx, req.(*biz.ConfigUpdate))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
	r.GET("/api/admin/lottery/stats", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationAdminGetStats)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.GetStats(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
	r.GET("/api/admin/lottery/pending", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationAdminListPending)
		limit := queryInt(ctx, "limit")
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ListPending(ctx, limit)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
	r.POST("/api/admin/lottery/pending/{id}/resolve", func(ctx http.Context) error {
		var in service.ResolvePendingRequest
		if err := ctx.Bind(&in); err != nil {
			return lotteryErrors.Newf(lotteryErrors.ErrCodeInvalidArgument, "invalid request body")
		}
		in.RecordID = ctx.Vars().Get("id")
		http.SetOperation(ctx, OperationAdminResolvePending)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.ResolvePending(ctx, req.(*service.ResolvePendingRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
}

// queryInt reads an integer query parameter; anything unparsable counts as unset.
func queryInt(ctx http.Context, key string) int {
	v, err := strconv.Atoi(ctx.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
