package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/rs/zerolog"
)

// IdentityClient is a per-session identity provider that can resume a
// previously issued token
type IdentityClient interface {
	domain.IdentityProvider
	Restore(ctx context.Context, token string) error
}

// TokenValidator checks that a session token is still valid
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (domain.AuthSession, error)
}

type registeredSession struct {
	session   *Session
	uid       string
	expiresAt time.Time
}

// SessionRegistry maps bearer tokens to live sessions for stateless callers
type SessionRegistry struct {
	ctx        context.Context
	store      domain.DocumentStore
	privileged domain.PrivilegedBackend
	tokens     TokenValidator
	newClient  func() IdentityClient
	now        func() time.Time
	log        zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*registeredSession
	// tokens ended by logout, kept until they expire
	ended map[string]time.Time
}

// NewSessionRegistry creates a registry. Sessions live until logout,
// token expiry or Close, independently of the request that opened them.
func NewSessionRegistry(
	ctx context.Context,
	store domain.DocumentStore,
	privileged domain.PrivilegedBackend,
	tokens TokenValidator,
	newClient func() IdentityClient,
) *SessionRegistry {
	return &SessionRegistry{
		ctx:        ctx,
		store:      store,
		privileged: privileged,
		tokens:     tokens,
		newClient:  newClient,
		now:        time.Now,
		log:        logger.Component("session_registry"),
		sessions:   make(map[string]*registeredSession),
		ended:      make(map[string]time.Time),
	}
}

// Login opens a session from credentials
func (r *SessionRegistry) Login(ctx context.Context, email, password string) (*Session, domain.AuthSession, error) {
	client := r.newClient()
	session := NewSession(r.ctx, client, r.store, r.privileged)

	if err := session.Login(ctx, email, password); err != nil {
		session.Close()
		return nil, domain.AuthSession{}, err
	}

	return r.open(ctx, client, session)
}

// Signup creates an account and opens a session for it
func (r *SessionRegistry) Signup(ctx context.Context, email, password, displayName string) (*Session, domain.AuthSession, error) {
	client := r.newClient()
	session := NewSession(r.ctx, client, r.store, r.privileged)

	if _, err := session.Signup(ctx, email, password, displayName); err != nil {
		session.Close()
		return nil, domain.AuthSession{}, err
	}

	return r.open(ctx, client, session)
}

// Resume returns the session of token, restoring it when this process has
// not seen the token yet. The token is validated on every call, so revoked
// credentials lose their sessions immediately.
func (r *SessionRegistry) Resume(ctx context.Context, token string) (*Session, error) {
	r.mu.Lock()
	_, ended := r.ended[token]
	r.mu.Unlock()
	if ended {
		return nil, fmt.Errorf("%w: session ended", domain.ErrNotAuthenticated)
	}

	if _, err := r.tokens.ValidateToken(ctx, token); err != nil {
		r.evict(token)
		return nil, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}

	r.mu.Lock()
	entry, ok := r.sessions[token]
	r.mu.Unlock()
	if ok {
		return entry.session, nil
	}

	client := r.newClient()
	session := NewSession(r.ctx, client, r.store, r.privileged)

	if err := client.Restore(ctx, token); err != nil {
		session.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}

	session, _, err := r.open(ctx, client, session)
	return session, err
}

// Logout ends the session of token
func (r *SessionRegistry) Logout(ctx context.Context, token string) error {
	r.mu.Lock()
	entry, ok := r.sessions[token]
	delete(r.sessions, token)
	if ok {
		r.ended[token] = entry.expiresAt
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	err := entry.session.Logout(ctx)
	entry.session.Close()
	r.log.Info().Str("uid", entry.uid).Msg("Logged out")
	return err
}

// Sweep closes every session whose token has expired
func (r *SessionRegistry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	var expired []*registeredSession
	for token, entry := range r.sessions {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			expired = append(expired, entry)
			delete(r.sessions, token)
		}
	}
	for token, expiresAt := range r.ended {
		if now.After(expiresAt) {
			delete(r.ended, token)
		}
	}
	r.mu.Unlock()

	for _, entry := range expired {
		entry.session.Close()
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx ends
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Info().Int("count", n).Msg("Expired sessions closed")
			}
		}
	}
}

// Len returns the number of open sessions
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close closes every session
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*registeredSession)
	r.mu.Unlock()

	for _, entry := range sessions {
		entry.session.Close()
	}
}

// open waits for the session to adopt its principal and registers it
// under its token. A concurrent open of the same token wins.
func (r *SessionRegistry) open(ctx context.Context, client IdentityClient, session *Session) (*Session, domain.AuthSession, error) {
	if err := session.WaitReady(ctx); err != nil {
		session.Close()
		return nil, domain.AuthSession{}, err
	}

	auth := client.CurrentSession()
	if auth == nil {
		session.Close()
		return nil, domain.AuthSession{}, domain.ErrNotAuthenticated
	}

	r.mu.Lock()
	if existing, ok := r.sessions[auth.Token]; ok {
		r.mu.Unlock()
		session.Close()
		return existing.session, *auth, nil
	}
	r.sessions[auth.Token] = &registeredSession{
		session:   session,
		uid:       auth.Account.UID,
		expiresAt: auth.ExpiresAt,
	}
	r.mu.Unlock()

	return session, *auth, nil
}

func (r *SessionRegistry) evict(token string) {
	r.mu.Lock()
	entry, ok := r.sessions[token]
	delete(r.sessions, token)
	r.mu.Unlock()

	if ok {
		entry.session.Close()
	}
}
