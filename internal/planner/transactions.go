package planner

import (
	"context"
	"strings"

	"github.com/iliyamo/miboda/internal/category"
	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/validate"
)

// ExpenseInput is the "new expense" form.
type ExpenseInput struct {
	Amount      float64     `json:"amount" validate:"gt=0"`
	Category    category.ID `json:"category" validate:"required,category"`
	Description string      `json:"description"`
	ProviderID  string      `json:"provider_id" validate:"omitempty,uuid"`
}

// IncomeInput is the "new income" form. Source, when set, prefixes the
// stored description.
type IncomeInput struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	Source      string  `json:"source"`
	Description string  `json:"description"`
}

type transactionRow struct {
	UserID      string       `json:"user_id"`
	Amount      float64      `json:"amount"`
	Type        string       `json:"type" validate:"oneof=ingreso gasto"`
	Category    *category.ID `json:"category"`
	Description *string      `json:"description"`
	ProviderID  *string      `json:"provider_id,omitempty"`
}

// Transactions returns the caller's ledger, newest first.
func (c *Client) Transactions(ctx context.Context) ([]model.Transaction, error) {
	return read(ctx, c, EntityTransactions, func(ctx context.Context, owner string) ([]model.Transaction, error) {
		var out []model.Transaction
		err := c.data.Select(ctx, gateway.TableTransactions,
			gateway.Q().Eq("user_id", owner).Order("transaction_date", false), &out)
		return out, err
	})
}

// AddExpense records an expense and adds its amount to the category's spent
// total. When the second write fails the transaction is already stored and
// the budget error is returned.
func (c *Client) AddExpense(ctx context.Context, in ExpenseInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	cat := in.Category
	if err := c.addTransaction(ctx, transactionRow{
		Amount:      in.Amount,
		Type:        model.TransactionExpense,
		Category:    &cat,
		Description: optional(strings.TrimSpace(in.Description)),
		ProviderID:  optional(in.ProviderID),
	}); err != nil {
		return err
	}
	return c.AddSpent(ctx, in.Category, in.Amount)
}

// AddIncome records money set aside for the wedding.
func (c *Client) AddIncome(ctx context.Context, in IncomeInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	desc := strings.TrimSpace(in.Description)
	if src := strings.TrimSpace(in.Source); src != "" {
		desc = src + ": " + desc
	}
	return c.addTransaction(ctx, transactionRow{
		Amount:      in.Amount,
		Type:        model.TransactionIncome,
		Description: optional(desc),
	})
}

func (c *Client) addTransaction(ctx context.Context, row transactionRow) error {
	const prefix = "Error al guardar"
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	row.UserID = owner
	if err := validate.Struct(row); err != nil {
		return err
	}
	if err := c.data.Insert(ctx, gateway.TableTransactions, row, nil); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntityTransactions, EntityBudgets)
	c.ok("Transacción guardada")
	return nil
}
