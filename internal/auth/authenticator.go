// Package auth provides password authentication and JWT session tokens.
package auth

import (
	"context"

	"github.com/mdjukic/settleup/internal/models"
)

// Authenticator abstracts the credential scheme so the service layer does
// not care whether it is passwords, passkeys, or OAuth.
type Authenticator interface {
	// Register creates a new user account with the given credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credentials and returns the user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential against the scheme's
	// requirements.
	ValidateCredential(credential string) error
}
