// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type claimsKey struct{}

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*AdminClaims, error)
}

type AdminClaims struct {
	AdminID      string
	Username     string
	TokenVersion int
	JTI          string
	ExpiresAt    time.Time
}

// Authenticator gates admin routes. The session cookie is preferred; an
// Authorization bearer header is accepted for scripted clients.
func Authenticator(verifier TokenVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, cookieName)
			if token == "" {
				core.JSONError(w, core.UnauthorizedError("missing admin session"))
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				core.JSONError(w, authFailure(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func ExtractToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func authFailure(err error) error {
	switch {
	case core.IsAppError(err):
		return err
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		return core.TokenRevokedError()
	default:
		return core.TokenInvalidError()
	}
}

func WithClaims(ctx context.Context, claims *AdminClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaims returns nil outside an authenticated request.
func GetClaims(ctx context.Context) *AdminClaims {
	claims, _ := ctx.Value(claimsKey{}).(*AdminClaims)
	return claims
}

func GetAdminID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.AdminID
	}
	return ""
}
