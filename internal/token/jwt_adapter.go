package token

import (
	"roster/internal/platform/middleware"
)

func toMiddlewareClaims(claims *AccessTokenClaims) *middleware.TokenClaims {
	return &middleware.TokenClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Roles:    claims.Roles,
		JTI:      claims.ID, // JWT ID for revocation tracking
	}
}

// JWTServiceAdapter bridges JWTService to the middleware's TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return toMiddlewareClaims(claims), nil
}
