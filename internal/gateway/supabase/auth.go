package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
)

// refreshMargin renews access tokens slightly before they expire.
const refreshMargin = 30 * time.Second

// TokenResponse is the body of a successful token grant.
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at,omitempty"`
	RefreshToken string   `json:"refresh_token"`
	User         UserBody `json:"user"`
}

// UserBody is the auth user as serialized by the auth endpoints.
type UserBody struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

func (u UserBody) Identity() model.Identity {
	id := model.Identity{ID: u.ID, Email: u.Email}
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		id.FullName = name
	}
	return id
}

func authError(status int, raw []byte) error {
	ae := &gateway.AuthError{Status: status}
	var body struct {
		gateway.AuthError
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		ae.Code, ae.Message = body.Code, body.Message
		if ae.Message == "" {
			ae.Message = body.Description
		}
	}
	if ae.Message == "" {
		ae.Message = strings.TrimSpace(string(raw))
	}
	return ae
}

func (c *Client) grant(ctx context.Context, grantType string, body any) (*gateway.Session, error) {
	q := url.Values{"grant_type": {grantType}}
	_, raw, err := c.request(ctx, http.MethodPost, "/auth/v1/token", q, body, nil, authError)
	if err != nil {
		return nil, err
	}
	var tr TokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	sess := &gateway.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		User:         tr.User.Identity(),
	}
	switch {
	case tr.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		sess.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return sess, nil
}

// SignInWithPassword exchanges credentials for a session, persists it and
// emits SIGNED_IN.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*gateway.Session, error) {
	sess, err := c.grant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	c.install(sess)
	c.emit(gateway.AuthEvent{Kind: gateway.EventSignedIn, Session: sess})
	return sess, nil
}

// SignOut revokes the session remotely and forgets it locally. The local
// session is dropped even when the remote call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.ensureLoaded()
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil
	}
	h := http.Header{"Authorization": {"Bearer " + sess.AccessToken}}
	_, _, err := c.request(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, h, authError)
	c.install(nil)
	c.emit(gateway.AuthEvent{Kind: gateway.EventSignedOut})
	return err
}

// GetSession returns the current session, refreshing it first when the
// access token is about to expire. A failed refresh signs out.
func (c *Client) GetSession(ctx context.Context) (*gateway.Session, error) {
	c.ensureLoaded()
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil || !sess.Expired(c.now().Add(refreshMargin)) {
		return sess, nil
	}
	return c.refreshSession(ctx, sess)
}

func (c *Client) refreshSession(ctx context.Context, stale *gateway.Session) (*gateway.Session, error) {
	c.refresh.Lock()
	defer c.refresh.Unlock()

	c.mu.Lock()
	current := c.session
	c.mu.Unlock()
	if current != stale {
		// Another caller refreshed or signed out meanwhile.
		return current, nil
	}
	if stale.RefreshToken == "" {
		c.install(nil)
		c.emit(gateway.AuthEvent{Kind: gateway.EventSignedOut})
		return nil, nil
	}
	sess, err := c.grant(ctx, "refresh_token", map[string]string{"refresh_token": stale.RefreshToken})
	if err != nil {
		c.log.Warn("supabase: token refresh failed", "err", err)
		c.install(nil)
		c.emit(gateway.AuthEvent{Kind: gateway.EventSignedOut})
		return nil, err
	}
	c.install(sess)
	c.emit(gateway.AuthEvent{Kind: gateway.EventTokenRefreshed, Session: sess})
	return sess, nil
}

func (c *Client) OnAuthStateChange(fn func(gateway.AuthEvent)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// ensureLoaded reads the persisted session once.
func (c *Client) ensureLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true
	sess, err := c.storage.Load()
	if err != nil {
		c.log.Warn("supabase: stored session unreadable", "err", err)
		return
	}
	c.session = sess
}

func (c *Client) install(sess *gateway.Session) {
	c.mu.Lock()
	c.session = sess
	c.loaded = true
	c.mu.Unlock()
	var err error
	if sess == nil {
		err = c.storage.Clear()
	} else {
		err = c.storage.Save(sess)
	}
	if err != nil {
		c.log.Warn("supabase: persisting session failed", "err", err)
	}
}

// emit calls listeners outside the lock, in registration order.
func (c *Client) emit(ev gateway.AuthEvent) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(gateway.AuthEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
