package gatewaytest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
)

// UserOptions configures AddUser.
type UserOptions struct {
	FullName string
	Admin    bool
	Inactive bool
	// NoProfile skips the user_profiles row.
	NoProfile bool
}

// AddUser registers an account that can sign in with password and, unless
// NoProfile is set, stores its user_profiles row.
func (b *Backend) AddUser(email, password string, opts UserOptions) model.Identity {
	id := model.Identity{ID: uuid.NewString(), Email: strings.ToLower(email), FullName: opts.FullName}
	b.mu.Lock()
	b.accounts[id.Email] = &account{identity: id, password: password}
	if opts.Admin {
		b.admins[id.ID] = true
	}
	b.mu.Unlock()
	if !opts.NoProfile {
		p := map[string]any{"user_id": id.ID, "email": id.Email, "is_active": !opts.Inactive}
		if opts.FullName != "" {
			p["full_name"] = opts.FullName
		}
		b.Seed(gateway.TableUserProfiles, p)
	}
	return id
}

// SetAdmin grants or revokes the admin role.
func (b *Backend) SetAdmin(userID string, admin bool) {
	b.mu.Lock()
	b.admins[userID] = admin
	b.mu.Unlock()
}

// SetActive flips user_profiles.is_active for userID.
func (b *Backend) SetActive(userID string, active bool) {
	b.Set(gateway.TableUserProfiles, gateway.Q().Eq("user_id", userID), "is_active", active)
}

// StartSession installs a session for identity without going through sign-in
// and without emitting an event, as if restored from storage.
func (b *Backend) StartSession(identity model.Identity) *gateway.Session {
	s := b.newSession(identity)
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()
	return s
}

func (b *Backend) newSession(identity model.Identity) *gateway.Session {
	return &gateway.Session{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ExpiresAt:    b.now().Add(time.Hour),
		User:         identity,
	}
}

func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*gateway.Session, error) {
	if err := b.enter(OpSignIn, "password"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	acc, ok := b.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		b.mu.Unlock()
		return nil, &gateway.AuthError{Status: http.StatusBadRequest, Code: gateway.CodeUserNotFound, Message: "User not found"}
	}
	if acc.password != password {
		b.mu.Unlock()
		return nil, &gateway.AuthError{Status: http.StatusBadRequest, Code: gateway.CodeInvalidCredentials, Message: "Invalid login credentials"}
	}
	s := b.newSession(acc.identity)
	b.session = s
	b.mu.Unlock()
	b.emit(gateway.AuthEvent{Kind: gateway.EventSignedIn, Session: s})
	return s, nil
}

func (b *Backend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	had := b.session != nil
	b.session = nil
	b.mu.Unlock()
	if had {
		b.emit(gateway.AuthEvent{Kind: gateway.EventSignedOut})
	}
	return nil
}

func (b *Backend) GetSession(ctx context.Context) (*gateway.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, nil
	}
	s := *b.session
	return &s, nil
}

func (b *Backend) OnAuthStateChange(fn func(gateway.AuthEvent)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Listeners reports how many auth listeners are registered.
func (b *Backend) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Emit delivers ev to every listener, as the provider would on a token
// refresh or a sign-in from another tab.
func (b *Backend) Emit(ev gateway.AuthEvent) {
	b.mu.Lock()
	if ev.Session != nil {
		b.session = ev.Session
	} else if ev.Kind == gateway.EventSignedOut {
		b.session = nil
	}
	b.mu.Unlock()
	b.emit(ev)
}

func (b *Backend) emit(ev gateway.AuthEvent) {
	b.mu.Lock()
	fns := make([]func(gateway.AuthEvent), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

var (
	_ gateway.Auth = (*Backend)(nil)
	_ gateway.Data = (*Backend)(nil)
)
