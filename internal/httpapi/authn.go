package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"hosi.com/identity/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth verifies the bearer token and attaches its claims to the request.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, CodeUnauthenticated, err.Error())
			return
		}
		claims, err := a.auth.VerifyToken(r.Context(), token)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithClaims(r.Context(), claims)))
	})
}

// RequireRole rejects callers whose token lacks ROLE_<role>.
func RequireRole(role string) func(http.Handler) http.Handler {
	return requireScope(func(c *auth.Claims) bool { return c.HasRole(role) })
}

// RequirePermission rejects callers whose token lacks the permission.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return requireScope(func(c *auth.Claims) bool { return c.HasPermission(perm) })
}

func requireScope(allowed func(*auth.Claims) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeKind(w, r, kindUnauthenticated)
				return
			}
			if !allowed(claims) {
				writeKind(w, r, kindForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
