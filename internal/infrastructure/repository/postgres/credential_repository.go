package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// CredentialRepository implements domain.CredentialRepository with PostgreSQL
type CredentialRepository struct {
	db *pgxpool.Pool
}

// NewCredentialRepository creates a new PostgreSQL credential repository
func NewCredentialRepository(db *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create inserts a new credential
func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	query := `
		INSERT INTO credentials (uid, email, password_hash, display_name, revoked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		cred.UID,
		strings.ToLower(cred.Email),
		cred.PasswordHash,
		cred.DisplayName,
		cred.Revoked,
		cred.CreatedAt,
		cred.UpdatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrEmailAlreadyInUse
	}
	return err
}

// GetByID retrieves a credential by uid
func (r *CredentialRepository) GetByID(ctx context.Context, uid string) (*domain.Credential, error) {
	query := `
		SELECT uid, email, password_hash, display_name, revoked, created_at, updated_at
		FROM credentials WHERE uid = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, uid))
}

// GetByEmail retrieves a credential by email
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	query := `
		SELECT uid, email, password_hash, display_name, revoked, created_at, updated_at
		FROM credentials WHERE email = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, strings.ToLower(email)))
}

func (r *CredentialRepository) scanOne(row pgx.Row) (*domain.Credential, error) {
	var cred domain.Credential
	err := row.Scan(
		&cred.UID,
		&cred.Email,
		&cred.PasswordHash,
		&cred.DisplayName,
		&cred.Revoked,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}
	return &cred, nil
}

// Update updates an existing credential
func (r *CredentialRepository) Update(ctx context.Context, cred *domain.Credential) error {
	query := `
		UPDATE credentials
		SET email = $1, password_hash = $2, display_name = $3, revoked = $4, updated_at = $5
		WHERE uid = $6
	`

	tag, err := r.db.Exec(ctx, query,
		strings.ToLower(cred.Email),
		cred.PasswordHash,
		cred.DisplayName,
		cred.Revoked,
		time.Now(),
		cred.UID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
