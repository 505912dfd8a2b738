// Package token issues and validates the service's access and refresh tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// AccessTokenClaims represents the JWT claims for our access tokens.
type AccessTokenClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	BranchID string   `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

func NewJWTService(signingKey, issuer string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
	}
}

// GenerateAccessToken signs an HS256 access token for the user and returns
// the token along with its JTI for revocation tracking.
func (s *JWTService) GenerateAccessToken(userID id.UserID, username string, roles []string, branchID string) (string, string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate jti: %w", err)
	}
	jti := hex.EncodeToString(b)
	now := time.Now()

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		UserID:   userID.String(),
		Username: username,
		Roles:    roles,
		BranchID: branchID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   userID.String(),
			ID:        jti,
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}
	return signedToken, jti, nil
}

// ValidateToken verifies the signature, algorithm, expiry, and issuer.
func (s *JWTService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Issuer != s.issuer {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token issuer")
	}
	return claims, nil
}

// ParseTokenSkipClaimsValidation parses a token WITHOUT validating expiration.
//
// Only use this where an expired token is acceptable input, e.g. logout needs
// the JTI of a possibly-expired token to revoke it. The signature and
// algorithm are still verified.
func (s *JWTService) ParseTokenSkipClaimsValidation(tokenString string) (*AccessTokenClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "empty token")
	}

	claims := new(AccessTokenClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unexpected signing algorithm")
		}
		return s.signingKey, nil
	},
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid jwt signature")
		}
		return nil, dErrors.New(dErrors.CodeInvalidInput, "jwt parse failed")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid jwt signature")
	}
	return claims, nil
}

// CreateRefreshToken returns an opaque 256-bit token, base64 URL-encoded.
func (s *JWTService) CreateRefreshToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// TTL reports the configured access token lifetime.
func (s *JWTService) TTL() time.Duration {
	return s.tokenTTL
}
