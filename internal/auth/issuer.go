package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer builds claims for a user and signs them.
type Issuer struct {
	signer   *Signer
	now      Clock
	issuer   string
	validFor time.Duration
	newID    func() string
}

// NewIssuer constructs an Issuer. newID defaults to a random UUID.
func NewIssuer(signer *Signer, issuer string, validFor time.Duration, now Clock, newID func() string) *Issuer {
	if now == nil {
		now = SystemClock
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Issuer{signer: signer, now: now, issuer: issuer, validFor: validFor, newID: newID}
}

// Issue signs a fresh token for user valid for the configured duration.
func (i *Issuer) Issue(user User) (SignedToken, error) {
	now := issueInstant(i.now())
	claims := &Claims{
		Scope: BuildScope(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validFor)),
			ID:        i.newID(),
		},
	}
	token, err := i.signer.Sign(claims)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: token, Claims: claims}, nil
}

// issueInstant rounds t up to a whole second. NumericDate drops the fraction,
// so rounding down would end both windows early.
func issueInstant(t time.Time) time.Time {
	whole := t.Truncate(time.Second)
	if whole.Equal(t) {
		return t
	}
	return whole.Add(time.Second)
}
