package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"hosi.com/identity/internal/audit"
	"hosi.com/identity/internal/auth"
)

type tokenRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Valid bool `json:"valid"`
}

type meResponse struct {
	Subject   string    `json:"subject"`
	Scope     string    `json:"scope"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var cred auth.Credential
	if err := decodeJSON(r, &cred); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	cred.Username = strings.TrimSpace(cred.Username)
	if cred.Username == "" {
		badRequest(w, r, "username is required")
		return
	}

	result, err := a.auth.Authenticate(r.Context(), cred)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
			"username": cred.Username,
			"reason":   classify(err).message,
		})
		writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{"username": cred.Username})
	writeResult(w, r, result)
}

func (a *API) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	req, ok := a.tokenBody(w, r)
	if !ok {
		return
	}
	valid, err := a.auth.Introspect(r.Context(), req.Token)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeResult(w, r, introspectResponse{Valid: valid})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	req, ok := a.tokenBody(w, r)
	if !ok {
		return
	}
	if err := a.auth.Logout(r.Context(), req.Token); err != nil {
		writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeResult(w, r, nil)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	req, ok := a.tokenBody(w, r)
	if !ok {
		return
	}
	result, err := a.auth.Refresh(r.Context(), req.Token)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.refresh", nil)
	writeResult(w, r, result)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeKind(w, r, kindUnauthenticated)
		return
	}
	writeResult(w, r, meResponse{
		Subject:   claims.Subject,
		Scope:     claims.Scope,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAtTime(),
	})
}

func (a *API) handleAdminPing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeResult(w, r, map[string]string{"status": "pong"})
}

func (a *API) tokenBody(w http.ResponseWriter, r *http.Request) (tokenRequest, bool) {
	var req tokenRequest
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return req, false
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return req, false
	}
	req.Token = strings.TrimSpace(req.Token)
	return req, true
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}
