package planner

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/validate"
)

// CreateUserInput is the admin "new account" form.
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required,min=2"`
}

// roleLookups bounds the concurrent role RPCs of Users.
const roleLookups = 8

// adminRead is read for callers the session reports as administrators.
func adminRead[T any](ctx context.Context, c *Client, entity string, load func(ctx context.Context) (T, error)) (T, error) {
	if _, err := c.requireAdmin(); err != nil {
		var zero T
		return zero, err
	}
	return read(ctx, c, entity, func(ctx context.Context, _ string) (T, error) { return load(ctx) })
}

// Users lists every profile, newest first, with its role.
func (c *Client) Users(ctx context.Context) ([]model.UserWithRole, error) {
	return adminRead(ctx, c, EntityAdminUsers, func(ctx context.Context) ([]model.UserWithRole, error) {
		var profiles []model.UserProfile
		if err := c.data.Select(ctx, gateway.TableUserProfiles, gateway.Q().Order("created_at", false), &profiles); err != nil {
			return nil, err
		}
		out := make([]model.UserWithRole, len(profiles))
		var g errgroup.Group
		g.SetLimit(roleLookups)
		for i, p := range profiles {
			g.Go(func() error {
				out[i] = model.UserWithRole{UserProfile: p, Role: c.role(ctx, p.UserID)}
				return nil
			})
		}
		_ = g.Wait()
		return out, nil
	})
}

// User returns one profile with its role.
func (c *Client) User(ctx context.Context, userID string) (*model.UserWithRole, error) {
	return adminRead(ctx, c, entityAdminUser+userID, func(ctx context.Context) (*model.UserWithRole, error) {
		p, err := gateway.Single[model.UserProfile](ctx, c.data, gateway.TableUserProfiles, gateway.Q().Eq("user_id", userID))
		if err != nil {
			return nil, err
		}
		return &model.UserWithRole{UserProfile: *p, Role: c.role(ctx, userID)}, nil
	})
}

// role resolves the role label; failures read as a regular user.
func (c *Client) role(ctx context.Context, userID string) string {
	var role string
	if err := c.data.RPC(ctx, gateway.RPCGetUserRole, gateway.UserArgs{UserUUID: userID}, &role); err != nil {
		c.log.Debug("planner: role lookup failed", "user_id", userID, "err", err)
		return model.RoleUser
	}
	if role == "" {
		return model.RoleUser
	}
	return role
}

// Stats counts accounts and weddings. Month boundaries use the client
// clock's location.
func (c *Client) Stats(ctx context.Context) (*model.AdminStats, error) {
	return adminRead(ctx, c, EntityAdminStats, func(ctx context.Context) (*model.AdminStats, error) {
		total, err := c.data.Count(ctx, gateway.TableUserProfiles, gateway.Q())
		if err != nil {
			return nil, err
		}
		active, err := c.data.Count(ctx, gateway.TableUserProfiles, gateway.Q().Eq("is_active", true))
		if err != nil {
			return nil, err
		}
		weddings, err := c.data.Count(ctx, gateway.TableWeddingProfiles, gateway.Q())
		if err != nil {
			return nil, err
		}
		now := c.now()
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		month, err := c.data.Count(ctx, gateway.TableUserProfiles, gateway.Q().Gte("created_at", start))
		if err != nil {
			return nil, err
		}
		return &model.AdminStats{
			TotalUsers:     total,
			ActiveUsers:    active,
			InactiveUsers:  total - active,
			TotalWeddings:  weddings,
			UsersThisMonth: month,
		}, nil
	})
}

// CreateUser provisions an account through the privileged function.
func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (*model.CreatedUser, error) {
	const prefix = "Error al crear usuario"
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := c.requireAdmin(); err != nil {
		return nil, c.fail(prefix, err)
	}
	if c.ident.Snapshot().Token == "" {
		return nil, c.fail(prefix, ErrNoSession)
	}
	var res gateway.CreateUserResponse
	req := gateway.CreateUserRequest{Email: in.Email, Password: in.Password, FullName: in.FullName}
	if err := c.data.Invoke(ctx, gateway.FunctionCreateUser, req, &res); err != nil {
		return nil, c.fail(prefix, err)
	}
	c.invalidate(EntityAdminUsers, EntityAdminStats)
	c.ok("Usuario creado exitosamente")
	return &res.User, nil
}

// SetUserActive suspends or reactivates an account.
func (c *Client) SetUserActive(ctx context.Context, userID string, active bool) error {
	const prefix = "Error al actualizar usuario"
	if _, err := c.requireAdmin(); err != nil {
		return c.fail(prefix, err)
	}
	q := gateway.Q().Eq("user_id", userID)
	if err := c.data.Update(ctx, gateway.TableUserProfiles, q, map[string]any{"is_active": active}); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntityAdminUsers, EntityAdminStats, entityAdminUser+userID)
	if active {
		c.ok("Usuario activado")
	} else {
		c.ok("Usuario desactivado")
	}
	return nil
}
