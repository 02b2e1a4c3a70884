package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/rs/zerolog"
)

// SessionState is the lifecycle state of a Session
type SessionState string

const (
	StateAnonymous     SessionState = "ANONYMOUS"
	StateLoading       SessionState = "LOADING"
	StateAuthenticated SessionState = "AUTHENTICATED"
)

// Session tracks one client's authenticated principal and gates every
// principal mutation behind the caller's role. It follows the identity
// provider's session transitions: a valid token moves it to LOADING, the
// principal document is fetched or bootstrapped, and the session becomes
// AUTHENTICATED.
type Session struct {
	ctx        context.Context
	cancel     context.CancelFunc
	identity   domain.IdentityProvider
	store      domain.DocumentStore
	privileged domain.PrivilegedBackend
	log        zerolog.Logger

	// authMu serializes session transitions
	authMu sync.Mutex

	mu            sync.RWMutex
	state         SessionState
	ready         chan struct{}
	readyErr      error
	adopted       domain.Principal
	principal     *Live[domain.Principal]
	settings      *SettingsSync
	pendingSignup bool

	stopAuth domain.Unsubscribe
}

// NewSession creates a session bound to an identity provider client.
// privileged may be nil, in which case password resets are unsupported and
// deleted principals keep their credential.
func NewSession(ctx context.Context, identity domain.IdentityProvider, store domain.DocumentStore, privileged domain.PrivilegedBackend) *Session {
	ctx, cancel := context.WithCancel(ctx)

	ready := make(chan struct{})
	close(ready)

	s := &Session{
		ctx:        ctx,
		cancel:     cancel,
		identity:   identity,
		store:      store,
		privileged: privileged,
		log:        logger.Component("session"),
		state:      StateAnonymous,
		ready:      ready,
	}
	s.stopAuth = identity.OnSessionChanged(s.onSessionChanged)
	return s
}

// State returns the current lifecycle state
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the authenticated principal as currently projected,
// including a pending optimistic profile edit
func (s *Session) Current() (domain.Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateAuthenticated {
		return domain.Principal{}, false
	}
	if s.principal != nil {
		if p, ok := s.principal.Snapshot(); ok {
			// an empty uid means the principal document was deleted
			return p, p.UID != ""
		}
	}
	return s.adopted, true
}

// WaitReady blocks until the session leaves LOADING and reports whether a
// principal was adopted
func (s *Session) WaitReady(ctx context.Context) error {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == StateAuthenticated {
		return nil
	}
	if s.readyErr != nil {
		return s.readyErr
	}
	return domain.ErrNotAuthenticated
}

// Login exchanges credentials with the identity provider. The principal is
// adopted by the session-changed callback; use WaitReady to await it.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	prev := s.state
	s.setStateLocked(StateLoading, nil)
	s.mu.Unlock()

	if _, err := s.identity.Authenticate(ctx, email, password); err != nil {
		s.revert(prev, err)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	return nil
}

// Signup creates an identity-provider account and a manager principal for
// it. A failure after the account exists leaves that account without a
// principal; it is logged and not rolled back.
func (s *Session) Signup(ctx context.Context, email, password, displayName string) (domain.Principal, error) {
	displayName = strings.TrimSpace(displayName)

	s.mu.Lock()
	prev := s.state
	s.pendingSignup = true
	s.setStateLocked(StateLoading, nil)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pendingSignup = false
		s.mu.Unlock()
	}()

	account, err := s.identity.CreateAccount(ctx, email, password)
	if err != nil {
		s.revert(prev, err)
		if errors.Is(err, domain.ErrEmailAlreadyInUse) {
			return domain.Principal{}, domain.ErrEmailAlreadyInUse
		}
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrSignupFailed, err)
	}

	if err := s.identity.SetDisplayName(ctx, account.UID, displayName); err != nil {
		return domain.Principal{}, s.orphaned(ctx, account, err)
	}
	account.DisplayName = displayName

	principal := domain.NewPrincipal(account, domain.RoleManager)
	if err := s.store.MergeWrite(ctx, domain.PrincipalPath(account.UID), principal.Document()); err != nil {
		return domain.Principal{}, s.orphaned(ctx, account, err)
	}

	s.authMu.Lock()
	s.detach()
	s.adopt(principal)
	s.authMu.Unlock()

	s.log.Info().Str("uid", account.UID).Msg("Signed up")
	return principal, nil
}

// Logout ends the identity-provider session and clears the principal
func (s *Session) Logout(ctx context.Context) error {
	err := s.identity.EndSession(ctx)

	s.authMu.Lock()
	s.reset(nil)
	s.authMu.Unlock()

	return err
}

// UpdateProfile renames the session owner. The new name is visible through
// Current immediately, before the store confirms the write.
func (s *Session) UpdateProfile(ctx context.Context, displayName string) error {
	p, ok := s.Current()
	if !ok {
		return domain.ErrNotAuthenticated
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		return fmt.Errorf("%w: display name is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	live := s.principal
	previous := s.adopted.DisplayName
	s.adopted.DisplayName = name
	s.mu.Unlock()

	if live != nil {
		live.Overlay(func(v domain.Principal) domain.Principal {
			v.DisplayName = name
			return v
		})
	}

	rollback := func(err error) error {
		if live != nil {
			live.ClearOverlay()
		}
		s.mu.Lock()
		if s.adopted.UID == p.UID {
			s.adopted.DisplayName = previous
		}
		s.mu.Unlock()
		return err
	}

	if err := s.identity.SetDisplayName(ctx, p.UID, name); err != nil {
		return rollback(fmt.Errorf("failed to update display name: %w", err))
	}
	if err := s.store.MergeWrite(ctx, domain.PrincipalPath(p.UID), domain.Document{"displayName": name}); err != nil {
		return rollback(fmt.Errorf("failed to update profile: %w", err))
	}

	return nil
}

// AdminUpdateUser merges the set fields of update into another principal.
// A password change is forwarded to the privileged backend.
func (s *Session) AdminUpdateUser(ctx context.Context, targetUID string, update domain.PrincipalUpdate) error {
	caller, err := s.requireAdmin()
	if err != nil {
		return err
	}

	if update.Password != nil && s.privileged == nil {
		return fmt.Errorf("%w: password reset requires the privileged backend", domain.ErrUnsupportedOperation)
	}

	if err := s.requireTarget(ctx, targetUID); err != nil {
		return err
	}

	if patch := update.Document(); len(patch) > 0 {
		if err := s.store.MergeWrite(ctx, domain.PrincipalPath(targetUID), patch); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
	}

	if update.Password != nil {
		if err := s.privileged.ResetPassword(ctx, targetUID, *update.Password); err != nil {
			return fmt.Errorf("failed to reset password: %w", err)
		}
	}

	s.log.Info().Str("uid", caller.UID).Str("target_uid", targetUID).Msg("User updated")
	return nil
}

// UpdateUserPermissions replaces another principal's role and permissions in one merge
func (s *Session) UpdateUserPermissions(ctx context.Context, targetUID string, role domain.Role, permissions domain.PermissionSet) error {
	caller, err := s.requireAdmin()
	if err != nil {
		return err
	}

	if err := s.requireTarget(ctx, targetUID); err != nil {
		return err
	}

	patch := domain.Document{
		"role":        string(domain.ParseRole(string(role))),
		"permissions": domain.Document(permissions.Map()),
	}
	if err := s.store.MergeWrite(ctx, domain.PrincipalPath(targetUID), patch); err != nil {
		return fmt.Errorf("failed to update permissions: %w", err)
	}

	s.log.Info().
		Str("uid", caller.UID).
		Str("target_uid", targetUID).
		Str("role", string(role)).
		Msg("User permissions updated")
	return nil
}

// DeleteUser removes another principal's document. The credential is
// revoked through the privileged backend when one is configured; without
// it the account can still sign in and is bootstrapped again as staff.
func (s *Session) DeleteUser(ctx context.Context, targetUID string) error {
	caller, err := s.requireAdmin()
	if err != nil {
		return err
	}

	if err := s.store.DeleteDocument(ctx, domain.PrincipalPath(targetUID)); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if s.privileged == nil {
		s.log.Warn().
			Str("uid", caller.UID).
			Str("target_uid", targetUID).
			Msg("Principal deleted but credential not revoked, account can still sign in")
		return nil
	}

	if err := s.privileged.RevokeCredential(ctx, targetUID); err != nil {
		return fmt.Errorf("principal deleted but credential revocation failed: %w", err)
	}

	s.log.Info().Str("uid", caller.UID).Str("target_uid", targetUID).Msg("User deleted")
	return nil
}

// RegisterUser always fails. Creating an account signs the client in as
// that account, which would replace the caller's own session.
func (s *Session) RegisterUser(ctx context.Context, email, password, displayName string, role domain.Role) error {
	return fmt.Errorf("%w: create the account through signup, then promote it with UpdateUserPermissions",
		domain.ErrUnsupportedOperation)
}

// Settings returns the live settings of the session owner, starting the
// synchronizer on first use
func (s *Session) Settings(ctx context.Context) (*SettingsSync, error) {
	p, ok := s.Current()
	if !ok {
		return nil, domain.ErrNotAuthenticated
	}

	s.mu.RLock()
	existing := s.settings
	s.mu.RUnlock()
	if existing != nil && existing.UID() == p.UID {
		return existing, nil
	}

	started, err := NewSettingsSync(s.ctx, s.store, p.UID, p.DisplayName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated || s.adopted.UID != p.UID {
		started.Close()
		return nil, domain.ErrNotAuthenticated
	}
	if s.settings != nil && s.settings.UID() == p.UID {
		started.Close()
		return s.settings, nil
	}
	if s.settings != nil {
		s.settings.Close()
	}
	s.settings = started
	return started, nil
}

// Close stops following the identity provider and releases every subscription
func (s *Session) Close() {
	if s.stopAuth != nil {
		s.stopAuth()
	}

	s.authMu.Lock()
	s.reset(nil)
	s.authMu.Unlock()

	s.cancel()
}

func (s *Session) onSessionChanged(auth *domain.AuthSession) {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	if auth == nil {
		s.reset(nil)
		return
	}

	s.mu.Lock()
	if s.pendingSignup {
		// Signup writes the principal itself
		s.setStateLocked(StateLoading, nil)
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateLoading, nil)
	s.mu.Unlock()

	s.detach()

	principal, err := s.bootstrap(auth.Account)
	if err != nil {
		s.log.Error().Err(err).Str("uid", auth.Account.UID).Msg("Failed to load principal")
		s.reset(err)
		return
	}

	s.adopt(principal)
}

// bootstrap fetches the principal of account, creating a staff principal
// when none exists. Concurrent bootstraps write the same key.
func (s *Session) bootstrap(account domain.Account) (domain.Principal, error) {
	path := domain.PrincipalPath(account.UID)

	snap, err := s.store.Get(s.ctx, path)
	if err != nil {
		return domain.Principal{}, err
	}
	if p, ok := domain.PrincipalFromSnapshot(snap); ok {
		return p, nil
	}

	if account.DisplayName == "" {
		account.DisplayName = strings.SplitN(account.Email, "@", 2)[0]
	}
	principal := domain.NewPrincipal(account, domain.RoleStaff)

	if err := s.store.MergeWrite(s.ctx, path, principal.Document()); err != nil {
		return domain.Principal{}, fmt.Errorf("failed to create principal: %w", err)
	}

	s.log.Info().Str("uid", account.UID).Msg("Principal bootstrapped")
	return principal, nil
}

// adopt makes p the current principal and starts following its document.
// Callers hold authMu.
func (s *Session) adopt(p domain.Principal) {
	live, err := SubscribeDocument(s.ctx, s.store, domain.PrincipalPath(p.UID), decodePrincipal, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("uid", p.UID).Msg("Failed to follow principal document")
		live = nil
	}

	s.mu.Lock()
	s.adopted = p
	s.principal = live
	s.setStateLocked(StateAuthenticated, nil)
	s.mu.Unlock()

	s.log.Info().Str("uid", p.UID).Str("role", string(p.Role)).Msg("Session authenticated")
}

// detach drops the projections of the previous principal. Callers hold authMu.
func (s *Session) detach() {
	s.mu.Lock()
	principal, settings := s.principal, s.settings
	s.principal, s.settings = nil, nil
	s.mu.Unlock()

	if principal != nil {
		principal.Close()
	}
	if settings != nil {
		settings.Close()
	}
}

// reset returns the session to ANONYMOUS. Callers hold authMu.
func (s *Session) reset(err error) {
	s.detach()

	s.mu.Lock()
	s.adopted = domain.Principal{}
	s.setStateLocked(StateAnonymous, err)
	s.mu.Unlock()
}

// revert undoes the LOADING transition of a failed login or signup
func (s *Session) revert(prev SessionState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading {
		return
	}
	if prev == StateLoading {
		prev = StateAnonymous
	}
	s.setStateLocked(prev, err)
}

// orphaned reports a signup that created an account but no principal
func (s *Session) orphaned(ctx context.Context, account domain.Account, cause error) error {
	s.log.Warn().Err(cause).Str("uid", account.UID).Msg("Signup left an account without a principal")

	if err := s.identity.EndSession(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to end session after signup failure")
	}

	err := fmt.Errorf("%w: %v", domain.ErrSignupFailed, cause)
	s.authMu.Lock()
	s.reset(err)
	s.authMu.Unlock()
	return err
}

func (s *Session) requireAdmin() (domain.Principal, error) {
	p, ok := s.Current()
	if !ok {
		return p, domain.ErrNotAuthenticated
	}
	if !p.IsAdmin() {
		return p, domain.ErrUnauthorized
	}
	return p, nil
}

func (s *Session) requireTarget(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	snap, err := s.store.Get(ctx, domain.PrincipalPath(uid))
	if err != nil {
		return err
	}
	if !snap.Exists {
		return fmt.Errorf("user %s: %w", uid, domain.ErrNotFound)
	}
	return nil
}

// setStateLocked moves the state machine. Leaving LOADING releases WaitReady.
func (s *Session) setStateLocked(state SessionState, err error) {
	if state == StateLoading {
		if s.state != StateLoading {
			s.ready = make(chan struct{})
		}
		s.state = state
		return
	}

	prev := s.state
	s.state = state
	s.readyErr = err
	if prev == StateLoading {
		close(s.ready)
	}
}

func decodePrincipal(snap domain.DocumentSnapshot) domain.Principal {
	p, _ := domain.PrincipalFromSnapshot(snap)
	return p
}
