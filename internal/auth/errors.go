package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated covers bad credentials and any token that is malformed,
	// wrongly signed, expired or revoked. The cases are deliberately not
	// distinguished.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrUserNotFound    = errors.New("auth: user not found")
	// ErrConfiguration marks a missing or unusable signer key. It is fatal.
	ErrConfiguration    = errors.New("auth: invalid configuration")
	ErrStoreUnavailable = errors.New("auth: store unavailable")

	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrForbidden    = errors.New("auth: forbidden")
	ErrInvalidInput = errors.New("auth: invalid input")
)

// storeError tags a collaborator I/O failure as ErrStoreUnavailable while
// keeping the cause reachable through errors.Is.
func storeError(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
