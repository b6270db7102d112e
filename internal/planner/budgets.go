package planner

import (
	"context"
	"errors"

	"github.com/iliyamo/miboda/internal/category"
	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/validate"
)

type budgetWrite struct {
	Category category.ID `json:"category" validate:"category"`
	Amount   float64     `json:"amount" validate:"gte=0"`
}

type budgetRow struct {
	UserID        string      `json:"user_id"`
	Category      category.ID `json:"category"`
	PlannedAmount float64     `json:"planned_amount"`
	SpentAmount   float64     `json:"spent_amount"`
}

// Budgets returns the caller's budget rows ordered by category.
func (c *Client) Budgets(ctx context.Context) ([]model.Budget, error) {
	return read(ctx, c, EntityBudgets, func(ctx context.Context, owner string) ([]model.Budget, error) {
		var out []model.Budget
		err := c.data.Select(ctx, gateway.TableBudgets, gateway.Q().Eq("user_id", owner).Order("category", true), &out)
		return out, err
	})
}

// SetPlanned stores amount as the planned total for cat.
func (c *Client) SetPlanned(ctx context.Context, cat category.ID, amount float64) error {
	const prefix = "Error al actualizar presupuesto"
	err := c.writeBudget(ctx, cat, amount,
		func(rowRef) any { return map[string]any{"planned_amount": amount} },
		func(owner string) budgetRow { return budgetRow{UserID: owner, Category: cat, PlannedAmount: amount} },
	)
	if err != nil {
		return c.failUnlessInvalid(prefix, err)
	}
	c.invalidate(EntityBudgets)
	c.ok("Presupuesto actualizado")
	return nil
}

// AddSpent adds amount to the spent total of cat, creating the row with a
// zero plan when absent.
func (c *Client) AddSpent(ctx context.Context, cat category.ID, amount float64) error {
	const prefix = "Error al actualizar presupuesto"
	err := c.writeBudget(ctx, cat, amount,
		func(ex rowRef) any { return map[string]any{"spent_amount": ex.SpentAmount + amount} },
		func(owner string) budgetRow { return budgetRow{UserID: owner, Category: cat, SpentAmount: amount} },
	)
	if err != nil {
		return c.failUnlessInvalid(prefix, err)
	}
	c.invalidate(EntityBudgets)
	return nil
}

// SetSpent overwrites the spent total of cat.
func (c *Client) SetSpent(ctx context.Context, cat category.ID, amount float64) error {
	const prefix = "Error al actualizar gasto"
	err := c.writeBudget(ctx, cat, amount,
		func(rowRef) any { return map[string]any{"spent_amount": amount} },
		func(owner string) budgetRow { return budgetRow{UserID: owner, Category: cat, SpentAmount: amount} },
	)
	if err != nil {
		return c.failUnlessInvalid(prefix, err)
	}
	c.invalidate(EntityBudgets)
	return nil
}

func (c *Client) writeBudget(ctx context.Context, cat category.ID, amount float64,
	update func(rowRef) any, insert func(owner string) budgetRow) error {
	if err := validate.Struct(budgetWrite{Category: cat, Amount: amount}); err != nil {
		return err
	}
	owner, err := c.caller()
	if err != nil {
		return err
	}
	match := gateway.Q().Eq("user_id", owner).Eq("category", string(cat))
	return c.upsert(ctx, gateway.TableBudgets, match, "id,spent_amount", update,
		func() any { return insert(owner) })
}

// failUnlessInvalid posts a failure notice for everything except local
// validation errors, which the form shows inline.
func (c *Client) failUnlessInvalid(prefix string, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return c.fail(prefix, err)
}

// Line is the derived planned and spent amounts of one category.
type Line struct {
	Category category.ID
	Label    string
	Planned  float64
	Spent    float64
}

// Over reports spending beyond the plan.
func (l Line) Over() bool { return l.Spent > l.Planned }

// Percent is spent over planned (0 when nothing is planned).
func (l Line) Percent() float64 {
	if l.Planned <= 0 {
		return 0
	}
	return l.Spent / l.Planned * 100
}

// Breakdown returns one line per category in display order. Categories
// without a stored plan use their default share of the profile's total.
func Breakdown(profile *model.WeddingProfile, budgets []model.Budget) []Line {
	byCat := make(map[category.ID]model.Budget, len(budgets))
	for _, b := range budgets {
		byCat[category.ID(b.Category)] = b
	}
	total := profile.Budget()
	all := category.All()
	lines := make([]Line, 0, len(all))
	for _, info := range all {
		b := byCat[info.ID]
		lines = append(lines, Line{
			Category: info.ID,
			Label:    info.Label,
			Planned:  info.ID.Planned(b.PlannedAmount, total),
			Spent:    b.SpentAmount,
		})
	}
	return lines
}
