package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAlgorithm is used when no signing algorithm is configured.
const DefaultAlgorithm = "HS512"

var hmacMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// Signer produces and checks HMAC signed compact tokens with a shared key.
// It only checks signatures; time windows and revocation belong to Verifier.
type Signer struct {
	method *jwt.SigningMethodHMAC
	key    []byte
	parser *jwt.Parser
}

// NewSigner validates the algorithm and key once. The key must be at least as
// long as the algorithm's digest.
func NewSigner(alg string, key []byte) (*Signer, error) {
	alg = strings.ToUpper(strings.TrimSpace(alg))
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := hmacMethods[alg]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", ErrConfiguration, alg)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: signer key is not configured", ErrConfiguration)
	}
	if need := method.Hash.Size(); len(key) < need {
		return nil, fmt.Errorf("%w: %s requires a signer key of at least %d bytes, got %d", ErrConfiguration, alg, need, len(key))
	}
	owned := make([]byte, len(key))
	copy(owned, key)
	return &Signer{
		method: method,
		key:    owned,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Algorithm returns the JWS alg header value, e.g. HS512.
func (s *Signer) Algorithm() string { return s.method.Alg() }

// Sign serializes claims as header.payload.signature.
func (s *Signer) Sign(claims *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %w", ErrConfiguration, err)
	}
	return signed, nil
}

// Parse decodes the token and checks its MAC. Any failure is ErrUnauthenticated.
func (s *Signer) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims := &Claims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}
