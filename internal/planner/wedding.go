package planner

import (
	"context"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/validate"
)

type weddingProfileRow struct {
	UserID string `json:"user_id"`
	model.WeddingProfileInput
}

// WeddingProfile returns the caller's profile, or nil when onboarding has
// not been completed.
func (c *Client) WeddingProfile(ctx context.Context) (*model.WeddingProfile, error) {
	return read(ctx, c, EntityWeddingProfile, func(ctx context.Context, owner string) (*model.WeddingProfile, error) {
		return gateway.MaybeSingle[model.WeddingProfile](ctx, c.data, gateway.TableWeddingProfiles,
			gateway.Q().Eq("user_id", owner))
	})
}

// SaveWeddingProfile creates or updates the caller's profile and returns the
// stored row.
func (c *Client) SaveWeddingProfile(ctx context.Context, in model.WeddingProfileInput) (*model.WeddingProfile, error) {
	const prefix = "Error al actualizar"
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	owner, err := c.caller()
	if err != nil {
		return nil, c.fail(prefix, err)
	}
	match := gateway.Q().Eq("user_id", owner)
	err = c.upsert(ctx, gateway.TableWeddingProfiles, match, "id",
		func(rowRef) any { return in },
		func() any { return weddingProfileRow{UserID: owner, WeddingProfileInput: in} },
	)
	if err != nil {
		return nil, c.fail(prefix, err)
	}
	c.invalidate(EntityWeddingProfile)
	c.ok("Perfil actualizado")
	return c.WeddingProfile(ctx)
}
