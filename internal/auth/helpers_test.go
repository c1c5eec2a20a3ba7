package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	testKey   = []byte(strings.Repeat("0123456789abcdef", 4))
	testEpoch = time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var errConnRefused = errors.New("dial tcp 10.0.0.5:5432: connection refused")

type failingRevocations struct{}

func (failingRevocations) Record(context.Context, string, time.Time) error { return errConnRefused }
func (failingRevocations) Contains(context.Context, string) (bool, error) {
	return false, errConnRefused
}

type failingDirectory struct{}

func (failingDirectory) FindByUsername(context.Context, string) (User, error) {
	return User{}, errConnRefused
}

// countingRevocations wraps the memory store and counts writes.
type countingRevocations struct {
	*MemoryRevocations
	mu     sync.Mutex
	writes int
}

func (c *countingRevocations) Record(ctx context.Context, id string, exp time.Time) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.MemoryRevocations.Record(ctx, id, exp)
}

func (c *countingRevocations) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}

func john(t *testing.T) User {
	t.Helper()
	return User{
		ID:           "01HZJOHN",
		Username:     "john",
		PasswordHash: mustHash(t, "s3cret-pass"),
		Roles: []Role{
			{Name: "USER", Permissions: []Permission{{Name: "READ_POST"}, {Name: "CREATE_POST"}}},
			{Name: "EDITOR", Permissions: []Permission{{Name: "APPROVE_POST"}}},
		},
	}
}

type fixture struct {
	svc         *Service
	clock       *fakeClock
	users       *MemoryDirectory
	revocations *countingRevocations
}

func newFixture(t *testing.T, valid, refreshable time.Duration, users ...User) *fixture {
	t.Helper()
	clock := newFakeClock(testEpoch)
	dir := NewMemoryDirectory(users...)
	revs := &countingRevocations{MemoryRevocations: NewMemoryRevocations()}
	svc, err := NewService(Config{
		Key:                 testKey,
		ValidDuration:       valid,
		RefreshableDuration: refreshable,
	}, dir, revs, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, clock: clock, users: dir, revocations: revs}
}

func (f *fixture) login(t *testing.T, username, password string) string {
	t.Helper()
	res, err := f.svc.Authenticate(context.Background(), Credential{Username: username, Password: password})
	if err != nil {
		t.Fatalf("Authenticate(%s): %v", username, err)
	}
	if !res.Authenticated || res.Token == "" {
		t.Fatalf("unexpected auth result: %+v", res)
	}
	return res.Token
}

func scopeSet(scope string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(scope) {
		out[tok] = struct{}{}
	}
	return out
}
