package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignerHeaderAndPayload(t *testing.T) {
	signer, err := NewSigner("", testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	claims := &Claims{
		Scope: "ROLE_ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			Issuer:    DefaultIssuer,
			IssuedAt:  jwt.NewNumericDate(testEpoch),
			ExpiresAt: jwt.NewNumericDate(testEpoch.Add(time.Hour)),
			ID:        "tok-1",
		},
	}
	token, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three segments, got %d", len(parts))
	}

	var header map[string]any
	decodeSegment(t, parts[0], &header)
	if header["alg"] != "HS512" {
		t.Fatalf("unexpected alg header: %v", header["alg"])
	}

	var payload map[string]any
	decodeSegment(t, parts[1], &payload)
	for _, key := range []string{"sub", "iss", "iat", "exp", "jti", "scope"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("payload missing %q: %v", key, payload)
		}
	}
	if payload["exp"] != float64(testEpoch.Add(time.Hour).Unix()) {
		t.Fatalf("unexpected exp: %v", payload["exp"])
	}

	again, err := signer.Sign(claims)
	if err != nil || again != token {
		t.Fatalf("signature must be deterministic for identical claims")
	}

	parsed, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Subject != "admin" || parsed.ID != "tok-1" || parsed.Scope != "ROLE_ADMIN" {
		t.Fatalf("unexpected parsed claims: %+v", parsed)
	}
}

func TestSignerParseIgnoresExpiry(t *testing.T) {
	signer, err := NewSigner(DefaultAlgorithm, testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	long := testEpoch.Add(-48 * time.Hour)
	token, err := signer.Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "john",
		IssuedAt:  jwt.NewNumericDate(long),
		ExpiresAt: jwt.NewNumericDate(long.Add(time.Hour)),
		ID:        "old",
	}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := signer.Parse(token); err != nil {
		t.Fatalf("signature check must not depend on exp: %v", err)
	}
}

func TestSignerRejectsForeignTokens(t *testing.T) {
	signer, err := NewSigner(DefaultAlgorithm, testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	claims := jwt.RegisteredClaims{
		Subject:   "john",
		IssuedAt:  jwt.NewNumericDate(testEpoch),
		ExpiresAt: jwt.NewNumericDate(testEpoch.Add(time.Hour)),
		ID:        "x",
	}

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign HS256: %v", err)
	}
	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(strings.Repeat("z", 64)))
	if err != nil {
		t.Fatalf("sign other key: %v", err)
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	for name, token := range map[string]string{
		"hs256":     hs256,
		"other key": otherKey,
		"none":      unsigned,
		"empty":     "",
		"two parts": "abc.def",
		"garbage":   "!!!.###.$$$",
	} {
		if _, err := signer.Parse(token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestVerifierRejectsForeignIssuerAndMissingClaims(t *testing.T) {
	signer, err := NewSigner(DefaultAlgorithm, testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	clock := newFakeClock(testEpoch)
	v := NewVerifier(signer, DefaultIssuer, 2*time.Hour, NewMemoryRevocations(), clock.Now)

	base := jwt.RegisteredClaims{
		Subject:   "john",
		Issuer:    DefaultIssuer,
		IssuedAt:  jwt.NewNumericDate(testEpoch),
		ExpiresAt: jwt.NewNumericDate(testEpoch.Add(time.Hour)),
		ID:        "tok",
	}
	good, _ := signer.Sign(&Claims{RegisteredClaims: base})
	if _, err := v.Verify(context.Background(), good, ModeStandard); err != nil {
		t.Fatalf("baseline token rejected: %v", err)
	}

	mutations := map[string]func(c *jwt.RegisteredClaims){
		"foreign issuer": func(c *jwt.RegisteredClaims) { c.Issuer = "evil.example" },
		"no subject":     func(c *jwt.RegisteredClaims) { c.Subject = "" },
		"no jti":         func(c *jwt.RegisteredClaims) { c.ID = "" },
		"no iat":         func(c *jwt.RegisteredClaims) { c.IssuedAt = nil },
		"no exp":         func(c *jwt.RegisteredClaims) { c.ExpiresAt = nil },
	}
	for name, mutate := range mutations {
		c := base
		mutate(&c)
		token, err := signer.Sign(&Claims{RegisteredClaims: c})
		if err != nil {
			t.Fatalf("%s: sign: %v", name, err)
		}
		if _, err := v.Verify(context.Background(), token, ModeStandard); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
	if _, err := v.Verify(context.Background(), good, Mode(42)); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unknown mode: expected ErrUnauthenticated, got %v", err)
	}
}

func decodeSegment(t *testing.T, seg string, v any) {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		t.Fatalf("decode segment: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("unmarshal segment: %v", err)
	}
}
