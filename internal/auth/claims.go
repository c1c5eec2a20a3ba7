package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RolePrefix marks role entries inside the scope claim.
const RolePrefix = "ROLE_"

// Claims represents the JWT claims carried by session tokens.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenID returns the jti claim.
func (c *Claims) TokenID() string { return c.ID }

// IssuedAtTime returns iat, or the zero time when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns exp, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ScopeTokens splits the scope claim into its space separated entries.
func (c *Claims) ScopeTokens() []string {
	return strings.Fields(c.Scope)
}

// HasScope reports whether entry appears in the scope claim.
func (c *Claims) HasScope(entry string) bool {
	if entry == "" {
		return false
	}
	for _, tok := range c.ScopeTokens() {
		if tok == entry {
			return true
		}
	}
	return false
}

// HasRole checks for a ROLE_<name> scope entry.
func (c *Claims) HasRole(name string) bool {
	return c.HasScope(RolePrefix + name)
}

// HasPermission checks for a bare permission scope entry.
func (c *Claims) HasPermission(name string) bool {
	if strings.HasPrefix(name, RolePrefix) {
		return false
	}
	return c.HasScope(name)
}

func (c *Claims) validateShape(issuer string) error {
	switch {
	case strings.TrimSpace(c.Subject) == "":
		return ErrUnauthenticated
	case c.ID == "":
		return ErrUnauthenticated
	case c.IssuedAt == nil || c.ExpiresAt == nil:
		return ErrUnauthenticated
	case issuer != "" && c.Issuer != issuer:
		return ErrUnauthenticated
	}
	return nil
}
