package auth

import (
	"context"
	"errors"
	"time"

	"hosi.com/identity/internal/obs"
)

// Mode selects which deadline a token is checked against.
type Mode int

const (
	// ModeStandard accepts a token until its exp claim.
	ModeStandard Mode = iota
	// ModeRefreshWindow accepts a token until iat plus the refreshable
	// duration, regardless of exp.
	ModeRefreshWindow
)

func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeRefreshWindow:
		return "refresh_window"
	default:
		return "unknown"
	}
}

// Verifier checks signature, time window and revocation state.
type Verifier struct {
	signer         *Signer
	now            Clock
	issuer         string
	refreshableFor time.Duration
	revoked        RevocationStore
}

// NewVerifier constructs a Verifier.
func NewVerifier(signer *Signer, issuer string, refreshableFor time.Duration, revoked RevocationStore, now Clock) *Verifier {
	if now == nil {
		now = SystemClock
	}
	return &Verifier{signer: signer, now: now, issuer: issuer, refreshableFor: refreshableFor, revoked: revoked}
}

// Verify returns the token's claims or ErrUnauthenticated. A revocation store
// failure is returned as ErrStoreUnavailable instead.
func (v *Verifier) Verify(ctx context.Context, token string, mode Mode) (*Claims, error) {
	claims, err := v.verify(ctx, token, mode)
	switch {
	case err == nil:
		obs.ObserveVerification(mode.String(), "ok")
	case errors.Is(err, ErrUnauthenticated):
		obs.ObserveVerification(mode.String(), "rejected")
	default:
		obs.ObserveVerification(mode.String(), "error")
	}
	return claims, err
}

func (v *Verifier) verify(ctx context.Context, token string, mode Mode) (*Claims, error) {
	claims, err := v.signer.Parse(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if err := claims.validateShape(v.issuer); err != nil {
		return nil, ErrUnauthenticated
	}

	deadline, err := v.deadline(claims, mode)
	if err != nil {
		return nil, err
	}
	if !v.now().Before(deadline) {
		return nil, ErrUnauthenticated
	}

	revoked, err := v.revoked.Contains(ctx, claims.ID)
	if err != nil {
		return nil, storeError("check revocation", err)
	}
	if revoked {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

func (v *Verifier) deadline(claims *Claims, mode Mode) (time.Time, error) {
	switch mode {
	case ModeStandard:
		return claims.ExpiresAtTime(), nil
	case ModeRefreshWindow:
		return claims.IssuedAtTime().Add(v.refreshableFor), nil
	default:
		return time.Time{}, ErrUnauthenticated
	}
}
