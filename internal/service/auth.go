package service

import (
	"context"

	lotteryErrors "lottery-service/internal/errors"

	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the platform session carried in the bearer token.
type SessionClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwtv5.RegisteredClaims
}

// NewSessionClaims is the claims factory handed to the jwt middleware.
func NewSessionClaims() jwtv5.Claims {
	return &SessionClaims{}
}

// CurrentUser returns the verified session of the request.
func CurrentUser(ctx context.Context) (*SessionClaims, error) {
	claims, ok := jwt.FromContext(ctx)
	if !ok {
		return nil, lotteryErrors.New(lotteryErrors.ErrCodeUnauthorized)
	}
	session, ok := claims.(*SessionClaims)
	if !ok || session.UserID <= 0 {
		return nil, lotteryErrors.New(lotteryErrors.ErrCodeUnauthorized)
	}
	return session, nil
}
