package server

import (
	"context"

	lotteryErrors "lottery-service/internal/errors"
	"lottery-service/internal/service"

	"github.com/go-kratos/kratos/v2/middleware"
)

// adminOnly lets through sessions whose username is on the admin list.
func adminOnly(usernames []string) middleware.Middleware {
	allowed := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		if name != "" {
			allowed[name] = struct{}{}
		}
	}
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			user, err := service.CurrentUser(ctx)
			if err != nil {
				return nil, err
			}
			if _, ok := allowed[user.Username]; !ok {
				return nil, lotteryErrors.New(lotteryErrors.ErrCodeForbidden)
			}
			return handler(ctx, req)
		}
	}
}
