package httpapi

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"hosi.com/identity/internal/auth"
	"hosi.com/identity/internal/obs"
)

const maxBodyBytes = 1 << 20

type readinessChecker interface {
	Check(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe reports readiness by pinging the backing store, if any.
type ReadyProbe struct {
	Store pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return rp.Store.Ping(ctx)
}

// API is the HTTP transport over auth.Service.
type API struct {
	mux        *http.ServeMux
	readyProbe readinessChecker
	version    string
	auth       *auth.Service

	rateBurst      int
	ratePerSec     int
	trustedProxies []netip.Prefix
}

// Option tunes the API.
type Option func(*API)

// WithLoginRateLimit bounds password attempts per client IP.
func WithLoginRateLimit(perSecond, burst int) Option {
	return func(a *API) {
		if perSecond > 0 {
			a.ratePerSec = perSecond
		}
		if burst > 0 {
			a.rateBurst = burst
		}
	}
}

// WithTrustedProxies lists the reverse proxies whose X-Forwarded-For header
// identifies the client for rate limiting.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) {
		a.trustedProxies = prefixes
	}
}

func New(rp readinessChecker, version string, svc *auth.Service, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		auth:       svc,
		rateBurst:  10,
		ratePerSec: 5,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.Handle("/auth/token", RateLimit(http.HandlerFunc(a.handleToken), a.rateBurst, a.ratePerSec, a.trustedProxies...))
	a.mux.HandleFunc("/auth/introspect", a.handleIntrospect)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/auth/refresh", a.handleRefresh)

	a.mux.Handle("/v1/me", a.withAuth(http.HandlerFunc(a.handleMe)))
	a.mux.Handle("/v1/admin/ping", a.withAuth(RequireRole(auth.AdminRole)(http.HandlerFunc(a.handleAdminPing))))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeInvalidRequest, "not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, maxBodyBytes)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
