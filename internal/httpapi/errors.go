package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"hosi.com/identity/internal/auth"
)

// Numeric result codes carried in every response envelope.
const (
	CodeSuccess          = 1000
	CodeInvalidRequest   = 1002
	CodeUserNotFound     = 1004
	CodeUnauthenticated  = 1005
	CodeForbidden        = 1006
	CodeStoreUnavailable = 1007
	CodeRateLimited      = 1008
	CodeUncategorized    = 9999
)

type envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message,omitempty"`
	Result    any    `json:"result,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorKind struct {
	status  int
	code    int
	message string
}

var (
	kindUnauthenticated  = errorKind{http.StatusUnauthorized, CodeUnauthenticated, "Unauthenticated"}
	kindUserNotFound     = errorKind{http.StatusNotFound, CodeUserNotFound, "User not found"}
	kindForbidden        = errorKind{http.StatusForbidden, CodeForbidden, "You do not have permission"}
	kindStoreUnavailable = errorKind{http.StatusServiceUnavailable, CodeStoreUnavailable, "Service temporarily unavailable"}
	kindUncategorized    = errorKind{http.StatusInternalServerError, CodeUncategorized, "Uncategorized error"}
)

// classify maps an auth error to its transport representation.
func classify(err error) errorKind {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return kindUnauthenticated
	case errors.Is(err, auth.ErrUserNotFound):
		return kindUserNotFound
	case errors.Is(err, auth.ErrForbidden):
		return kindForbidden
	case errors.Is(err, auth.ErrStoreUnavailable):
		return kindStoreUnavailable
	default:
		return kindUncategorized
	}
}

func writeResult(w http.ResponseWriter, r *http.Request, result any) {
	writeJSON(w, http.StatusOK, envelope{
		Code:      CodeSuccess,
		Result:    result,
		RequestID: requestIDFrom(r),
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status, code int, message string) {
	switch status {
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="identity"`)
	case http.StatusForbidden:
		w.Header().Set("WWW-Authenticate", `Bearer realm="identity", error="insufficient_scope"`)
	}
	writeJSON(w, status, envelope{
		Code:      code,
		Message:   message,
		RequestID: requestIDFrom(r),
	})
}

func writeKind(w http.ResponseWriter, r *http.Request, k errorKind) {
	writeError(w, r, k.status, k.code, k.message)
}

// writeAuthError reports err without leaking internal detail to the caller.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	writeKind(w, r, classify(err))
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, message)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, r, http.StatusMethodNotAllowed, CodeInvalidRequest, "method not allowed")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
