package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/queue"
	"github.com/iliyamo/miboda/internal/repository"
)

type fakeUsers struct {
	byEmail map[string]repository.User
	created int
}

func (f *fakeUsers) Create(_ context.Context, email, _, fullName string, _ int) (repository.User, error) {
	email = repository.NormalizeEmail(email)
	if _, ok := f.byEmail[email]; ok {
		return repository.User{}, repository.ErrEmailExists
	}
	f.created++
	u := repository.User{ID: "u-" + email, Email: email, FullName: sql.NullString{String: fullName, Valid: fullName != ""}}
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (repository.User, error) {
	u, ok := f.byEmail[repository.NormalizeEmail(email)]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeProfiles struct{ created []string }

func (f *fakeProfiles) Create(_ context.Context, userID, _, _ string) error {
	f.created = append(f.created, userID)
	return nil
}

type fakeRoles map[string]string

func (f fakeRoles) SetRole(_ context.Context, userID, role string) error {
	f[userID] = role
	return nil
}

type fakeTokens struct{ revoked []string }

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, queue.AccountEvent) error {
	return errors.New("broker down")
}

type fixture struct {
	accounts *Accounts
	users    *fakeUsers
	profiles *fakeProfiles
	roles    fakeRoles
	tokens   *fakeTokens
	events   *Recorder
}

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		users:    &fakeUsers{byEmail: map[string]repository.User{}},
		profiles: &fakeProfiles{},
		roles:    fakeRoles{},
		tokens:   &fakeTokens{},
		events:   &Recorder{},
	}
	f.accounts = &Accounts{
		Users: f.users, Profiles: f.profiles, Roles: f.roles, Tokens: f.tokens, Events: f.events,
		Cost: 4,
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:  func() time.Time { return fixedNow },
	}
	return f
}

func TestCreatePublishesUserCreated(t *testing.T) {
	f := newFixture()
	u, err := f.accounts.Create(context.Background(), "admin-1", " Ana@Mail.com ", "secreto", "Ana Ruiz")
	require.NoError(t, err)
	assert.Equal(t, "ana@mail.com", u.Email)
	assert.Equal(t, []string{u.ID}, f.profiles.created)
	assert.Equal(t, model.RoleUser, f.roles[u.ID])

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, queue.AccountEvent{
		Type: queue.UserCreated, UserID: u.ID, Email: "ana@mail.com", ActorID: "admin-1", OccurredAt: fixedNow,
	}, events[0])
}

func TestCreateDuplicateEmail(t *testing.T) {
	f := newFixture()
	_, err := f.accounts.Create(context.Background(), "a", "ana@mail.com", "secreto", "")
	require.NoError(t, err)
	_, err = f.accounts.Create(context.Background(), "a", "ANA@mail.com", "secreto", "")
	assert.ErrorIs(t, err, repository.ErrEmailExists)
	assert.Len(t, f.events.Events(), 1)
}

func TestCreateSurvivesBrokerFailure(t *testing.T) {
	f := newFixture()
	f.accounts.Events = failingPublisher{}
	_, err := f.accounts.Create(context.Background(), "a", "ana@mail.com", "secreto", "")
	assert.NoError(t, err)
}

func TestSetActive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.accounts.SetActive(ctx, "admin-1", "u-1", "ana@mail.com", false))
	assert.Equal(t, []string{"u-1"}, f.tokens.revoked)

	require.NoError(t, f.accounts.SetActive(ctx, "admin-1", "u-1", "ana@mail.com", true))
	assert.Len(t, f.tokens.revoked, 1, "reactivation keeps tokens alone")

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, queue.UserSuspended, events[0].Type)
	assert.Equal(t, queue.UserActivated, events[1].Type)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.accounts.EnsureAdmin(ctx, "root@miboda.co", "secreto", "Root"))
	require.NoError(t, f.accounts.EnsureAdmin(ctx, "root@miboda.co", "otra", "Root"))
	assert.Equal(t, 1, f.users.created)
	assert.Equal(t, model.RoleAdmin, f.roles["u-root@miboda.co"])
}
