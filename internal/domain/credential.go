package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Credential is the identity provider's record of an account
type Credential struct {
	Account
	PasswordHash string
	Revoked      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCredential creates a credential with a fresh uid
func NewCredential(email, passwordHash string) *Credential {
	now := time.Now()
	return &Credential{
		Account:      Account{UID: uuid.New().String(), Email: email},
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CredentialRepository defines the interface for credential persistence.
// Create fails with ErrEmailAlreadyInUse on a duplicate email; lookups
// fail with ErrNotFound.
type CredentialRepository interface {
	Create(ctx context.Context, cred *Credential) error
	GetByID(ctx context.Context, uid string) (*Credential, error)
	GetByEmail(ctx context.Context, email string) (*Credential, error)
	Update(ctx context.Context, cred *Credential) error
}
