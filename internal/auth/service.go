package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hosi.com/identity/internal/obs"
)

const (
	// DefaultIssuer is the iss claim stamped on every token.
	DefaultIssuer = "hosi.com"

	defaultValidDuration       = time.Hour
	defaultRefreshableDuration = 2 * time.Hour
)

// Config is the process-wide token configuration. It is copied into the
// Service at construction and never mutated afterwards.
type Config struct {
	Key                 []byte
	Algorithm           string
	Issuer              string
	ValidDuration       time.Duration
	RefreshableDuration time.Duration
}

// Service orchestrates login, introspection, logout and refresh.
type Service struct {
	users       UserDirectory
	revocations RevocationStore
	passwords   PasswordVerifier
	now         Clock
	newID       func() string

	cfg      Config
	issuer   *Issuer
	verifier *Verifier
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides time source (useful for tests).
func WithClock(now Clock) ServiceOption {
	return func(s *Service) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// WithPasswordVerifier replaces the default bcrypt/argon2id verifier.
func WithPasswordVerifier(v PasswordVerifier) ServiceOption {
	return func(s *Service) error {
		if v == nil {
			return fmt.Errorf("%w: nil password verifier", ErrConfiguration)
		}
		s.passwords = v
		return nil
	}
}

// WithIDGenerator overrides how token ids are generated.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.newID = fn
		}
		return nil
	}
}

// NewService validates cfg and wires the issuer and verifier. Any error is
// ErrConfiguration and should abort startup.
func NewService(cfg Config, users UserDirectory, revocations RevocationStore, opts ...ServiceOption) (*Service, error) {
	if users == nil || revocations == nil {
		return nil, fmt.Errorf("%w: user directory and revocation store are required", ErrConfiguration)
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.ValidDuration == 0 {
		cfg.ValidDuration = defaultValidDuration
	}
	if cfg.RefreshableDuration == 0 {
		cfg.RefreshableDuration = defaultRefreshableDuration
	}
	if cfg.ValidDuration < time.Second {
		return nil, fmt.Errorf("%w: valid duration must be at least one second", ErrConfiguration)
	}
	if cfg.RefreshableDuration < time.Second {
		return nil, fmt.Errorf("%w: refreshable duration must be at least one second", ErrConfiguration)
	}
	signer, err := NewSigner(cfg.Algorithm, cfg.Key)
	if err != nil {
		return nil, err
	}
	cfg.Key = nil
	cfg.Algorithm = signer.Algorithm()

	svc := &Service{
		users:       users,
		revocations: revocations,
		passwords:   PasswordVerifierFunc(VerifyPassword),
		now:         SystemClock,
		cfg:         cfg,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	svc.issuer = NewIssuer(signer, cfg.Issuer, cfg.ValidDuration, svc.now, svc.newID)
	svc.verifier = NewVerifier(signer, cfg.Issuer, cfg.RefreshableDuration, revocations, svc.now)
	return svc, nil
}

// Config returns the effective configuration without the key.
func (s *Service) Config() Config { return s.cfg }

// RevocationGrace is how long after a token's exp its denylist entry must be
// kept: a token stays refreshable for RefreshableDuration-ValidDuration past exp.
func (s *Service) RevocationGrace() time.Duration {
	if grace := s.cfg.RefreshableDuration - s.cfg.ValidDuration; grace > 0 {
		return grace
	}
	return 0
}

// Authenticate checks the credential against the directory and issues a token.
func (s *Service) Authenticate(ctx context.Context, cred Credential) (AuthResult, error) {
	user, err := s.users.FindByUsername(ctx, cred.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, ErrUserNotFound
		}
		return AuthResult{}, storeError("find user", err)
	}
	if cred.Password == "" || s.passwords.Verify(user.PasswordHash, cred.Password) != nil {
		return AuthResult{}, ErrUnauthenticated
	}
	signed, err := s.issuer.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	obs.ObserveTokenIssued("login")
	return AuthResult{Token: signed.Token, Authenticated: true}, nil
}

// Introspect reports whether token is currently valid. Only store failures
// are returned as errors.
func (s *Service) Introspect(ctx context.Context, token string) (bool, error) {
	_, err := s.verifier.Verify(ctx, token, ModeStandard)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrUnauthenticated):
		return false, nil
	default:
		return false, err
	}
}

// VerifyToken returns the claims of a currently valid token.
func (s *Service) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	return s.verifier.Verify(ctx, token, ModeStandard)
}

// Logout revokes token. A token that is already invalid is ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.verifier.Verify(ctx, token, ModeRefreshWindow)
	if errors.Is(err, ErrUnauthenticated) {
		obs.Warn("logout ignored: token is not valid", nil)
		return nil
	}
	if err != nil {
		return err
	}
	return s.revoke(ctx, claims, "logout")
}

// Refresh exchanges a token still inside its refresh window for a new one.
// The presented token is revoked before the new one is issued.
func (s *Service) Refresh(ctx context.Context, token string) (AuthResult, error) {
	claims, err := s.verifier.Verify(ctx, token, ModeRefreshWindow)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.revoke(ctx, claims, "refresh"); err != nil {
		return AuthResult{}, err
	}
	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, ErrUnauthenticated
		}
		return AuthResult{}, storeError("find user", err)
	}
	signed, err := s.issuer.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	obs.ObserveTokenIssued("refresh")
	return AuthResult{Token: signed.Token, Authenticated: true}, nil
}

func (s *Service) revoke(ctx context.Context, claims *Claims, reason string) error {
	if err := s.revocations.Record(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		return storeError("record revocation", err)
	}
	obs.ObserveRevocation(reason)
	return nil
}
