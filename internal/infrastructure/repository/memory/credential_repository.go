package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/hotelops/backoffice/internal/domain"
)

// CredentialRepository implements domain.CredentialRepository in memory
type CredentialRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.Credential
	byEmail map[string]string
}

// NewCredentialRepository creates an empty repository
func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{
		byID:    make(map[string]domain.Credential),
		byEmail: make(map[string]string),
	}
}

// Create inserts a new credential
func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(cred.Email)
	if _, taken := r.byEmail[email]; taken {
		return domain.ErrEmailAlreadyInUse
	}
	r.byID[cred.UID] = *cred
	r.byEmail[email] = cred.UID
	return nil
}

// GetByID retrieves a credential by uid
func (r *CredentialRepository) GetByID(ctx context.Context, uid string) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.byID[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}

// GetByEmail retrieves a credential by email, case-insensitively
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uid, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cred := r.byID[uid]
	return &cred, nil
}

// Update replaces an existing credential
func (r *CredentialRepository) Update(ctx context.Context, cred *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[cred.UID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byEmail, strings.ToLower(old.Email))
	r.byID[cred.UID] = *cred
	r.byEmail[strings.ToLower(cred.Email)] = cred.UID
	return nil
}
