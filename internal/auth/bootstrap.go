package auth

import (
	"context"
	"errors"
	"fmt"

	"hosi.com/identity/internal/obs"
)

const (
	AdminUsername = "admin"
	AdminRole     = "ADMIN"
	UserRole      = "USER"
)

// AdminStore is the directory surface needed to seed the admin account.
type AdminStore interface {
	UserDirectory
	UserWriter
}

// EnsureAdmin creates the admin account with the given password when it does
// not exist yet. It reports whether an account was created.
func EnsureAdmin(ctx context.Context, store AdminStore, password string) (bool, error) {
	_, err := store.FindByUsername(ctx, AdminUsername)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, storeError("find admin", err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("%w: admin password: %w", ErrConfiguration, err)
	}
	admin := &User{
		Username:     AdminUsername,
		PasswordHash: hash,
		Roles:        []Role{{Name: AdminRole, Description: "Administrator"}},
	}
	if err := store.SaveUser(ctx, admin); err != nil {
		if errors.Is(err, ErrConflict) {
			return false, nil
		}
		return false, storeError("save admin", err)
	}
	obs.Warn("admin user has been created with the default password, please change it", map[string]any{
		"username": AdminUsername,
	})
	return true, nil
}
