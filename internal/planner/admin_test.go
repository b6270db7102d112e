package planner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/gateway/gatewaytest"
	"github.com/iliyamo/miboda/internal/model"
)

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()

	_, err := f.client.Users(ctx)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = f.client.Stats(ctx)
	assert.ErrorIs(t, err, ErrNotAdmin)

	err = f.client.SetUserActive(ctx, f.user.ID, false)
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.Equal(t, "Error al actualizar usuario: No tienes permisos de administrador", f.lastNotice(t).Message)

	_, err = f.client.CreateUser(ctx, CreateUserInput{Email: "nueva@miboda.co", Password: "secreto", FullName: "Ana"})
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.Zero(t, f.backend.TotalCalls())
}

func TestAdminUsersAndStats(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{Admin: true, FullName: "Admin"})
	ctx := context.Background()
	b := f.backend
	other := b.AddUser("moroso@miboda.co", "secreto", gatewaytest.UserOptions{Inactive: true})
	b.Set(gateway.TableUserProfiles, gateway.Q().Eq("user_id", other.ID), "created_at", "2020-01-01T00:00:00Z")
	b.Seed(gateway.TableWeddingProfiles, map[string]any{"user_id": f.user.ID})

	users, err := f.client.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, f.user.ID, users[0].UserID)
	assert.Equal(t, model.RoleAdmin, users[0].Role)
	assert.Equal(t, model.RoleUser, users[1].Role)

	stats, err := f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AdminStats{
		TotalUsers: 2, ActiveUsers: 1, InactiveUsers: 1, TotalWeddings: 1, UsersThisMonth: 1,
	}, *stats)

	u, err := f.client.User(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	require.NoError(t, f.client.SetUserActive(ctx, other.ID, true))
	assert.Equal(t, "Usuario activado", f.lastNotice(t).Message)
	stats, err = f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveUsers)
	u, err = f.client.User(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, u.IsActive)

	_, err = f.client.User(ctx, "no-existe")
	assert.True(t, gateway.IsNotFound(err))
}

// slowRoles delays every role RPC and records the peak number in flight.
type slowRoles struct {
	*gatewaytest.Backend
	mu       sync.Mutex
	inflight int
	peak     int
}

func (s *slowRoles) RPC(ctx context.Context, fn string, args any, out any) error {
	if fn == gateway.RPCGetUserRole {
		s.mu.Lock()
		s.inflight++
		s.peak = max(s.peak, s.inflight)
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		defer func() {
			s.mu.Lock()
			s.inflight--
			s.mu.Unlock()
		}()
	}
	return s.Backend.RPC(ctx, fn, args, out)
}

func TestUsersBoundsRoleLookups(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{Admin: true})
	for i := range 3 * roleLookups {
		f.backend.AddUser(fmt.Sprintf("invitado%d@miboda.co", i), "secreto", gatewaytest.UserOptions{})
	}
	data := &slowRoles{Backend: f.backend}
	client := New(data, f.store, WithNotifier(f.notices))

	users, err := client.Users(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 3*roleLookups+1)
	for _, u := range users {
		assert.NotEmpty(t, u.Role, u.UserID)
	}
	assert.LessOrEqual(t, data.peak, roleLookups)
	assert.Greater(t, data.peak, 1)
}

func TestCreateUser(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{Admin: true})
	b := f.backend
	var got map[string]any
	b.HandleFunction(gateway.FunctionCreateUser, func(body map[string]any) (any, error) {
		got = body
		id := b.AddUser(body["email"].(string), body["password"].(string), gatewaytest.UserOptions{})
		return gateway.CreateUserResponse{Success: true, User: model.CreatedUser{ID: id.ID, Email: id.Email}}, nil
	})

	ctx := context.Background()
	_, err := f.client.Users(ctx)
	require.NoError(t, err)

	created, err := f.client.CreateUser(ctx, CreateUserInput{Email: "nueva@miboda.co", Password: "secreto", FullName: "Ana María"})
	require.NoError(t, err)
	assert.Equal(t, "nueva@miboda.co", created.Email)
	assert.Equal(t, "Ana María", got["fullName"])
	assert.Equal(t, "Usuario creado exitosamente", f.lastNotice(t).Message)

	users, err := f.client.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestCreateUserFunctionError(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{Admin: true})
	f.backend.HandleFunction(gateway.FunctionCreateUser, func(map[string]any) (any, error) {
		return nil, &gateway.Error{Status: 400, Message: "A user with this email address has already been registered"}
	})
	_, err := f.client.CreateUser(context.Background(), CreateUserInput{Email: "novia@miboda.co", Password: "secreto", FullName: "Laura"})
	require.Error(t, err)
	assert.Equal(t, "Error al crear usuario: A user with this email address has already been registered", f.lastNotice(t).Message)
}

func TestCreateUserValidates(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{Admin: true})
	_, err := f.client.CreateUser(context.Background(), CreateUserInput{Email: "nueva@miboda.co", Password: "123", FullName: "Ana"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "La contraseña debe tener al menos 6 caracteres", ve.Message)
	assert.Zero(t, f.backend.TotalCalls())
}

func TestStatsMonthBoundaryUsesClock(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{Admin: true})
	f.client.now = func() time.Time { return time.Date(2030, time.January, 15, 10, 0, 0, 0, time.UTC) }
	stats, err := f.client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Zero(t, stats.UsersThisMonth)
}
