package auth

import "time"

// Credential is a username/password pair presented at login. It is never stored.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// User is the principal owned by the user directory.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Roles        []Role
}

// Role groups permissions.
type Role struct {
	Name        string
	Description string
	Permissions []Permission
}

// Permission is a fine-grained capability.
type Permission struct {
	Name        string
	Description string
}

// RevokedToken is a denylist entry keyed by token id.
type RevokedToken struct {
	ID         string
	ExpiryTime time.Time
}

// SignedToken is a compact JWS string together with the claims it carries.
type SignedToken struct {
	Token  string
	Claims *Claims
}

// AuthResult is returned by a successful login or refresh.
type AuthResult struct {
	Token         string `json:"token"`
	Authenticated bool   `json:"authenticated"`
}
