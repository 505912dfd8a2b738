package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator defines the interface for validating access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked.
type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenClaims represents the claims we expect from the token validator.
type TokenClaims struct {
	UserID   string
	Username string
	Roles    []string
	JTI      string // JWT ID for revocation tracking
}

// Context keys for storing authenticated user information
type contextKeyUserID struct{}
type contextKeyUsername struct{}
type contextKeyRoles struct{}

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(contextKeyUserID{}).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUsername retrieves the authenticated username from the context.
func GetUsername(ctx context.Context) string {
	username, ok := ctx.Value(contextKeyUsername{}).(string)
	if !ok {
		return ""
	}
	return username
}

// GetRoles retrieves the authenticated user's role names from the context.
func GetRoles(ctx context.Context) []string {
	roles, ok := ctx.Value(contextKeyRoles{}).([]string)
	if !ok {
		return nil
	}
	return roles
}

// WithIdentity stores authenticated identity details on the context.
// Exposed for handler tests that bypass RequireAuth.
func WithIdentity(ctx context.Context, userID, username string, roles []string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUserID{}, userID)
	ctx = context.WithValue(ctx, contextKeyUsername{}, username)
	ctx = context.WithValue(ctx, contextKeyRoles{}, roles)
	return ctx
}

// RequireAuth validates the bearer token, checks revocation, and stores the
// authenticated identity on the request context.
func RequireAuth(validator TokenValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			if revocationChecker != nil && claims.JTI != "" {
				revoked, err := revocationChecker.IsRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"message":"Failed to validate token","data":[]}`))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					writeUnauthorized(w, "Token has been revoked")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, claims.UserID, claims.Username, claims.Roles)))
		})
	}
}

// RequireRole allows the request through only when the authenticated user
// carries at least one of the given role names. Must run after RequireAuth.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, role := range GetRoles(ctx) {
				if _, ok := allowed[strings.ToLower(role)]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger.WarnContext(ctx, "forbidden - missing role",
				"required", roles,
				"request_id", GetRequestID(ctx),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Insufficient permissions","data":[]}`))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"` + msg + `","data":[]}`))
}
