// Package account stores storefront login credentials.
package account

import (
	"errors"
	"time"
)

var (
	// ErrAlreadyExists is returned when registering a username that is taken.
	ErrAlreadyExists = errors.New("username already exists")
	// ErrInvalidInput is returned when a username or password is empty.
	ErrInvalidInput = errors.New("username and password required")
)

// Credential is a stored login. Entries are never modified once created.
type Credential struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store abstracts credential storage. Usernames are compared by exact,
// case-sensitive string match.
type Store interface {
	// Register hashes password and stores a new credential. It returns
	// ErrAlreadyExists if username is taken and ErrInvalidInput if either
	// argument is empty.
	Register(username, password string) error
	// Verify reports whether username exists and password matches its hash.
	Verify(username, password string) bool
	// Exists reports whether username is registered.
	Exists(username string) bool
}
