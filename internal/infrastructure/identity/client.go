package identity

import (
	"context"
	"sync"

	"github.com/hotelops/backoffice/internal/domain"
)

// Client is one signed-in view of the provider, implementing
// domain.IdentityProvider. Session listeners run synchronously on the
// goroutine that caused the transition, in registration order.
type Client struct {
	provider *Provider

	mu        sync.Mutex
	session   *domain.AuthSession
	listeners map[int]func(*domain.AuthSession)
	order     []int
	nextID    int
}

func newClient(p *Provider) *Client {
	return &Client{
		provider:  p,
		listeners: make(map[int]func(*domain.AuthSession)),
	}
}

// CreateAccount creates an account and signs the client in as it
func (c *Client) CreateAccount(ctx context.Context, email, password string) (domain.Account, error) {
	account, err := c.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return domain.Account{}, err
	}

	session, err := c.provider.issue(account)
	if err != nil {
		return domain.Account{}, err
	}

	c.setSession(&session)
	return account, nil
}

// Authenticate signs the client in
func (c *Client) Authenticate(ctx context.Context, email, password string) (domain.AuthSession, error) {
	session, err := c.provider.Authenticate(ctx, email, password)
	if err != nil {
		return domain.AuthSession{}, err
	}

	c.setSession(&session)
	return session, nil
}

// Restore signs the client in from a previously issued token
func (c *Client) Restore(ctx context.Context, token string) error {
	session, err := c.provider.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	c.setSession(&session)
	return nil
}

// EndSession signs the client out
func (c *Client) EndSession(ctx context.Context) error {
	c.setSession(nil)
	return nil
}

// SetDisplayName updates an account's display name, keeping the current
// session's copy in step
func (c *Client) SetDisplayName(ctx context.Context, uid, name string) error {
	if err := c.provider.SetDisplayName(ctx, uid, name); err != nil {
		return err
	}

	c.mu.Lock()
	if c.session != nil && c.session.Account.UID == uid {
		updated := *c.session
		updated.Account.DisplayName = name
		c.session = &updated
	}
	c.mu.Unlock()

	return nil
}

// CurrentSession returns a copy of the signed-in session, or nil
func (c *Client) CurrentSession() *domain.AuthSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// OnSessionChanged registers a listener and immediately reports the
// current session to it
func (c *Client) OnSessionChanged(callback func(*domain.AuthSession)) domain.Unsubscribe {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = callback
	c.order = append(c.order, id)
	current := c.copySessionLocked()
	c.mu.Unlock()

	callback(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			for i, v := range c.order {
				if v == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
			c.mu.Unlock()
		})
	}
}

func (c *Client) setSession(session *domain.AuthSession) {
	c.mu.Lock()
	c.session = session
	var callbacks []func(*domain.AuthSession)
	for _, id := range c.order {
		if cb, ok := c.listeners[id]; ok {
			callbacks = append(callbacks, cb)
		}
	}
	current := c.copySessionLocked()
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(current)
	}
}

func (c *Client) copySessionLocked() *domain.AuthSession {
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}
