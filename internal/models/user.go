package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. The engine does not own
// authentication policy; it states the interface it needs (a verified user
// ID per request) and this is the minimal account entity behind it.
type User struct {
	// ID is the unique identifier (UUID format).
	ID string

	// Name is the display name.
	Name string

	// Email is the login identifier (unique).
	Email string

	// PasswordHash is the bcrypt hash of the password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser creates a user with a fresh ID and timestamp.
func NewUser(email, name, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}
