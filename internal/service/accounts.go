package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/queue"
	"github.com/iliyamo/miboda/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, email, password, fullName string, cost int) (repository.User, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
}

type ProfileStore interface {
	Create(ctx context.Context, userID, email, fullName string) error
}

type RoleStore interface {
	SetRole(ctx context.Context, userID, role string) error
}

type TokenRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

// Accounts creates, suspends and reactivates accounts and announces each
// change on the event queue.
type Accounts struct {
	Users    UserStore
	Profiles ProfileStore
	Roles    RoleStore
	Tokens   TokenRevoker
	Events   Publisher
	Cost     int
	Log      *slog.Logger
	Now      func() time.Time
}

func (a *Accounts) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func (a *Accounts) publish(ctx context.Context, ev queue.AccountEvent) {
	ev.OccurredAt = a.now()
	if err := a.Events.Publish(ctx, ev); err != nil {
		a.Log.Warn("accounts: event not published", "type", ev.Type, "user_id", ev.UserID, "err", err)
	}
}

// Create inserts the auth user with an active profile and the user role.
// actorID is the administrator who asked for it. A taken email fails with
// repository.ErrEmailExists.
func (a *Accounts) Create(ctx context.Context, actorID, email, password, fullName string) (repository.User, error) {
	u, err := a.Users.Create(ctx, email, password, fullName, a.Cost)
	if err != nil {
		return repository.User{}, err
	}
	if err := a.Profiles.Create(ctx, u.ID, u.Email, u.FullName.String); err != nil {
		return repository.User{}, fmt.Errorf("create profile for %s: %w", u.ID, err)
	}
	if err := a.Roles.SetRole(ctx, u.ID, model.RoleUser); err != nil {
		return repository.User{}, fmt.Errorf("assign role to %s: %w", u.ID, err)
	}
	a.Log.Info("accounts: user created", "user_id", u.ID, "actor_id", actorID)
	a.publish(ctx, queue.AccountEvent{Type: queue.UserCreated, UserID: u.ID, Email: u.Email, ActorID: actorID})
	return u, nil
}

// SetActive records a suspension or reactivation already written to
// user_profiles. Suspending also revokes every refresh token of the user so
// open sessions end at their next refresh.
func (a *Accounts) SetActive(ctx context.Context, actorID, userID, email string, active bool) error {
	if !active {
		if err := a.Tokens.RevokeAllForUser(ctx, userID); err != nil {
			return fmt.Errorf("revoke tokens of %s: %w", userID, err)
		}
	}
	a.Log.Info("accounts: status changed", "user_id", userID, "active", active, "actor_id", actorID)
	a.publish(ctx, queue.AccountEvent{Type: queue.StatusEvent(active), UserID: userID, Email: email, ActorID: actorID})
	return nil
}

// EnsureAdmin makes sure an account for email exists and holds the admin
// role. An existing account keeps its password.
func (a *Accounts) EnsureAdmin(ctx context.Context, email, password, fullName string) error {
	u, err := a.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if u, err = a.Create(ctx, "", email, password, fullName); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	if err := a.Roles.SetRole(ctx, u.ID, model.RoleAdmin); err != nil {
		return fmt.Errorf("grant admin to %s: %w", u.ID, err)
	}
	a.Log.Info("accounts: admin ready", "user_id", u.ID, "email", u.Email)
	return nil
}
