package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"hosi.com/identity/internal/ids"
)

// UserDirectory resolves principals by username. FindByUsername returns
// ErrNotFound when no such user exists.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (User, error)
}

// UserWriter persists a user together with its role assignments.
// SaveUser assigns an ID when the user has none and returns ErrConflict
// when the username is taken.
type UserWriter interface {
	SaveUser(ctx context.Context, user *User) error
}

// MemoryDirectory is an in-process UserDirectory used by tests and local runs.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryDirectory returns a directory seeded with users. It panics on a
// seed user SaveUser would reject (blank or duplicate username).
func NewMemoryDirectory(users ...User) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[string]User, len(users))}
	for _, u := range users {
		if err := d.SaveUser(context.Background(), &u); err != nil {
			panic(fmt.Sprintf("auth: seed user %q: %v", u.Username, err))
		}
	}
	return d
}

func (d *MemoryDirectory) FindByUsername(ctx context.Context, username string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

func (d *MemoryDirectory) SaveUser(ctx context.Context, user *User) error {
	if user == nil || strings.TrimSpace(user.Username) == "" {
		return ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[user.Username]; ok {
		return ErrConflict
	}
	if user.ID == "" {
		user.ID = ids.New()
	}
	d.users[user.Username] = cloneUser(*user)
	return nil
}

func cloneUser(u User) User {
	out := u
	if len(u.Roles) == 0 {
		out.Roles = nil
		return out
	}
	out.Roles = make([]Role, len(u.Roles))
	for i, r := range u.Roles {
		out.Roles[i] = r
		if len(r.Permissions) > 0 {
			out.Roles[i].Permissions = append([]Permission(nil), r.Permissions...)
		}
	}
	return out
}
