package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrWeakPassword = errors.New("password must be at least 6 characters")
)

const (
	issuer            = "backoffice"
	minPasswordLength = 6
)

// Provider is the server-side identity provider: it owns the credential
// records, verifies passwords and issues session tokens. It also acts as
// the privileged backend for password resets and credential revocation.
type Provider struct {
	repo            domain.CredentialRepository
	jwtSecret       []byte
	tokenExpiration time.Duration
	now             func() time.Time
	log             zerolog.Logger
}

// Claims represents JWT claims
type Claims struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// NewProvider creates a new identity provider
func NewProvider(repo domain.CredentialRepository, jwtSecret string, tokenExpHours int) *Provider {
	return &Provider{
		repo:            repo,
		jwtSecret:       []byte(jwtSecret),
		tokenExpiration: time.Duration(tokenExpHours) * time.Hour,
		now:             time.Now,
		log:             logger.Component("identity"),
	}
}

// CreateAccount registers a new account with a hashed password
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (domain.Account, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Account{}, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return domain.Account{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Account{}, err
	}

	cred := domain.NewCredential(email, string(hash))
	if err := p.repo.Create(ctx, cred); err != nil {
		return domain.Account{}, err
	}

	p.log.Info().Str("uid", cred.UID).Msg("Account created")
	return cred.Account, nil
}

// Authenticate verifies credentials and issues a session. Every failure
// caused by the credentials themselves yields ErrInvalidCredentials.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (domain.AuthSession, error) {
	cred, err := p.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AuthSession{}, domain.ErrInvalidCredentials
		}
		return domain.AuthSession{}, err
	}

	if cred.Revoked {
		return domain.AuthSession{}, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return domain.AuthSession{}, domain.ErrInvalidCredentials
	}

	return p.issue(cred.Account)
}

// ValidateToken verifies a session token and returns the session it
// belongs to, with the account as currently stored
func (p *Provider) ValidateToken(ctx context.Context, tokenString string) (domain.AuthSession, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return p.jwtSecret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.AuthSession{}, ErrTokenExpired
		}
		return domain.AuthSession{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.AuthSession{}, ErrInvalidToken
	}

	cred, err := p.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AuthSession{}, ErrInvalidToken
		}
		return domain.AuthSession{}, err
	}
	if cred.Revoked {
		return domain.AuthSession{}, ErrInvalidToken
	}

	session := domain.AuthSession{Account: cred.Account, Token: tokenString}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// SetDisplayName updates the display name of an account
func (p *Provider) SetDisplayName(ctx context.Context, uid, name string) error {
	return p.update(ctx, uid, func(cred *domain.Credential) error {
		cred.DisplayName = strings.TrimSpace(name)
		return nil
	})
}

// ResetPassword replaces the password of an account
func (p *Provider) ResetPassword(ctx context.Context, uid, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := p.update(ctx, uid, func(cred *domain.Credential) error {
		cred.PasswordHash = string(hash)
		return nil
	}); err != nil {
		return err
	}

	p.log.Info().Str("uid", uid).Msg("Password reset")
	return nil
}

// RevokeCredential disables an account. Tokens already issued stop validating.
func (p *Provider) RevokeCredential(ctx context.Context, uid string) error {
	if err := p.update(ctx, uid, func(cred *domain.Credential) error {
		cred.Revoked = true
		return nil
	}); err != nil {
		return err
	}

	p.log.Info().Str("uid", uid).Msg("Credential revoked")
	return nil
}

// NewClient opens a client bound to this provider. Each client carries at
// most one signed-in session.
func (p *Provider) NewClient() *Client {
	return newClient(p)
}

func (p *Provider) update(ctx context.Context, uid string, apply func(*domain.Credential) error) error {
	cred, err := p.repo.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	if err := apply(cred); err != nil {
		return err
	}
	cred.UpdatedAt = p.now()
	return p.repo.Update(ctx, cred)
}

// issue signs a session token for the account
func (p *Provider) issue(account domain.Account) (domain.AuthSession, error) {
	now := p.now()
	expiresAt := now.Add(p.tokenExpiration)

	claims := &Claims{
		Email:       account.Email,
		DisplayName: account.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   account.UID,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(p.jwtSecret)
	if err != nil {
		return domain.AuthSession{}, err
	}

	return domain.AuthSession{
		Account:   account,
		Token:     tokenString,
		ExpiresAt: expiresAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
