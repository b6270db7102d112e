package planner

import (
	"context"
	"strings"

	"github.com/iliyamo/miboda/internal/category"
	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/validate"
)

// ProviderInput is the "new provider" form.
type ProviderInput struct {
	Name        string      `json:"name" validate:"notblank"`
	Category    category.ID `json:"category" validate:"required,category"`
	City        string      `json:"city"`
	PriceApprox float64     `json:"price_approx" validate:"gte=0"`
	WhatsApp    string      `json:"whatsapp"`
	Instagram   string      `json:"instagram"`
}

type providerRow struct {
	UserID      string      `json:"user_id"`
	Name        string      `json:"name"`
	Category    category.ID `json:"category"`
	City        *string     `json:"city"`
	PriceApprox *float64    `json:"price_approx"`
	WhatsApp    *string     `json:"whatsapp"`
	Instagram   *string     `json:"instagram"`
	IsCustom    bool        `json:"is_custom"`
}

// Providers returns the caller's vendors ordered by name.
func (c *Client) Providers(ctx context.Context) ([]model.Provider, error) {
	return read(ctx, c, EntityProviders, func(ctx context.Context, owner string) ([]model.Provider, error) {
		var out []model.Provider
		err := c.data.Select(ctx, gateway.TableProviders, gateway.Q().Eq("user_id", owner).Order("name", true), &out)
		return out, err
	})
}

// AddProvider stores a custom vendor. Empty optional fields and a zero
// price are stored as NULL.
func (c *Client) AddProvider(ctx context.Context, in ProviderInput) error {
	const prefix = "Error al guardar"
	if err := validate.Struct(in); err != nil {
		return err
	}
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	row := providerRow{
		UserID:    owner,
		Name:      strings.TrimSpace(in.Name),
		Category:  in.Category,
		City:      optional(strings.TrimSpace(in.City)),
		WhatsApp:  optional(strings.TrimSpace(in.WhatsApp)),
		Instagram: optional(strings.TrimPrefix(strings.TrimSpace(in.Instagram), "@")),
		IsCustom:  true,
	}
	if in.PriceApprox > 0 {
		p := in.PriceApprox
		row.PriceApprox = &p
	}
	if err := c.data.Insert(ctx, gateway.TableProviders, row, nil); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntityProviders)
	c.ok("Proveedor guardado")
	return nil
}

// UpdateProvider applies patch to provider id. Marking a provider hired
// also marks it contacted.
func (c *Client) UpdateProvider(ctx context.Context, id string, patch model.ProviderPatch) error {
	const prefix = "Error al actualizar"
	if err := validate.Struct(patch); err != nil {
		return err
	}
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	if patch.Hired != nil && *patch.Hired {
		contacted := true
		patch.Contacted = &contacted
	}
	q := gateway.Q().Eq("id", id).Eq("user_id", owner)
	if err := c.data.Update(ctx, gateway.TableProviders, q, patch); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntityProviders)
	return nil
}

// SetContacted flips the contacted flag.
func (c *Client) SetContacted(ctx context.Context, id string, contacted bool) error {
	return c.UpdateProvider(ctx, id, model.ProviderPatch{Contacted: &contacted})
}

// SetHired flips the hired flag.
func (c *Client) SetHired(ctx context.Context, id string, hired bool) error {
	return c.UpdateProvider(ctx, id, model.ProviderPatch{Hired: &hired})
}

// DeleteProvider removes provider id.
func (c *Client) DeleteProvider(ctx context.Context, id string) error {
	const prefix = "Error al eliminar"
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	if err := c.data.Delete(ctx, gateway.TableProviders, gateway.Q().Eq("id", id).Eq("user_id", owner)); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntityProviders)
	c.ok("Proveedor eliminado")
	return nil
}
