package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/category"
	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/gateway/gatewaytest"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/notice"
)

func TestSetPlannedIsIdempotent(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()

	require.NoError(t, f.client.SetPlanned(ctx, category.Decoration, 4_000_000))
	require.NoError(t, f.client.SetPlanned(ctx, category.Decoration, 4_000_000))

	rows := f.backend.Rows(gateway.TableBudgets)
	require.Len(t, rows, 1)
	assert.Equal(t, 4_000_000.0, rows[0]["planned_amount"])
	assert.Equal(t, 0.0, rows[0]["spent_amount"])
	assert.Equal(t, notice.Notice{Level: notice.Success, Message: "Presupuesto actualizado"}, f.lastNotice(t))

	budgets, err := f.client.Budgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, string(category.Decoration), budgets[0].Category)
}

func TestExpenseCreatesBudgetRow(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()

	_, err := f.client.Budgets(ctx)
	require.NoError(t, err)

	require.NoError(t, f.client.AddExpense(ctx, ExpenseInput{Amount: 2_000_000, Category: category.Music, Description: "DJ"}))

	txs := f.backend.Rows(gateway.TableTransactions)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TransactionExpense, txs[0]["type"])
	assert.Equal(t, "musica_sonido", txs[0]["category"])

	budgets, err := f.client.Budgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, 0.0, budgets[0].PlannedAmount)
	assert.Equal(t, 2_000_000.0, budgets[0].SpentAmount)

	require.NoError(t, f.client.AddExpense(ctx, ExpenseInput{Amount: 500_000, Category: category.Music}))
	budgets, err = f.client.Budgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2_500_000.0, budgets[0].SpentAmount)
	assert.Len(t, f.backend.Rows(gateway.TableBudgets), 1)
}

func TestIncomeDescriptionCarriesSource(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()

	require.NoError(t, f.client.AddIncome(ctx, IncomeInput{Amount: 1_000_000, Source: "Prima", Description: "diciembre"}))
	txs, err := f.client.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].Description)
	assert.Equal(t, "Prima: diciembre", *txs[0].Description)
	assert.Nil(t, txs[0].Category)
	assert.Empty(t, f.backend.Rows(gateway.TableBudgets))
}

func TestValidationMakesNoRemoteCalls(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()

	cases := []struct {
		name string
		run  func() error
		msg  string
	}{
		{"zero expense", func() error {
			return f.client.AddExpense(ctx, ExpenseInput{Amount: 0, Category: category.Music})
		}, "El monto debe ser mayor a cero"},
		{"unknown category", func() error {
			return f.client.SetPlanned(ctx, category.ID("flores"), 10)
		}, "Categoría no válida"},
		{"blank task", func() error {
			return f.client.AddTask(ctx, TaskInput{Title: "   "})
		}, "El título es obligatorio"},
		{"bad schedule time", func() error {
			return f.client.AddScheduleItem(ctx, ScheduleInput{Time: "8am", Activity: "Maquillaje"})
		}, "La hora debe tener el formato HH:MM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.msg, ve.Message)
		})
	}
	assert.Zero(t, f.backend.TotalCalls())
	assert.Empty(t, f.notices.All())
}

func TestFailureNoticeLeavesCacheUntouched(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()
	require.NoError(t, f.client.SetPlanned(ctx, category.Venue, 7_500_000))
	before, err := f.client.Budgets(ctx)
	require.NoError(t, err)

	f.backend.FailOn(gatewaytest.OpUpdate, gateway.TableBudgets, &gateway.Error{Status: 500, Message: "db down"})
	err = f.client.SetPlanned(ctx, category.Venue, 9_000_000)
	require.Error(t, err)
	n := f.lastNotice(t)
	assert.Equal(t, notice.Error, n.Level)
	assert.Equal(t, "Error al actualizar presupuesto: db down", n.Message)

	selects := f.backend.Calls(gatewaytest.OpSelect, gateway.TableBudgets)
	after, err := f.client.Budgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, selects, f.backend.Calls(gatewaytest.OpSelect, gateway.TableBudgets))
}

func TestUpsertRaceRetriesAsUpdate(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()

	// Another writer creates the row between our check and our insert.
	f.backend.Before(gatewaytest.OpInsert, gateway.TableBudgets, func() {
		f.backend.Seed(gateway.TableBudgets, map[string]any{
			"user_id": f.user.ID, "category": "belleza", "planned_amount": 100, "spent_amount": 0,
		})
	})
	require.NoError(t, f.client.SetPlanned(ctx, category.Beauty, 1_500_000))

	rows := f.backend.Rows(gateway.TableBudgets)
	require.Len(t, rows, 1)
	assert.Equal(t, 1_500_000.0, rows[0]["planned_amount"])
	assert.Equal(t, 1, f.backend.Calls(gatewaytest.OpUpdate, gateway.TableBudgets))
}

func TestPersistentConflictIsReported(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	f.backend.FailOn(gatewaytest.OpInsert, gateway.TableBudgets,
		&gateway.Error{Status: 409, Code: gateway.CodeUniqueViolation, Message: "duplicate key"})

	err := f.client.AddSpent(context.Background(), category.Rings, 300_000)
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, gateway.IsConflict(err))
	assert.Equal(t, 2, f.backend.Calls(gatewaytest.OpInsert, gateway.TableBudgets))
	assert.Equal(t, "Error al actualizar presupuesto: duplicate key", f.lastNotice(t).Message)
}

func TestSetSpentFailurePrefix(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	f.backend.FailOn(gatewaytest.OpSelect, gateway.TableBudgets, errors.New("timeout"))

	require.Error(t, f.client.SetSpent(context.Background(), category.Attire, 1))
	assert.Equal(t, "Error al actualizar gasto: timeout", f.lastNotice(t).Message)
}

func TestBreakdownUsesDefaultShares(t *testing.T) {
	total := 50_000_000.0
	profile := &model.WeddingProfile{TotalBudget: &total}
	budgets := []model.Budget{
		{Category: string(category.Venue), PlannedAmount: 10_000_000, SpentAmount: 12_000_000},
	}
	lines := Breakdown(profile, budgets)
	require.Len(t, lines, 12)

	assert.Equal(t, category.Venue, lines[0].Category)
	assert.Equal(t, 10_000_000.0, lines[0].Planned)
	assert.True(t, lines[0].Over())
	assert.InDelta(t, 120.0, lines[0].Percent(), 0.001)

	for _, l := range lines {
		if l.Category == category.Decoration {
			assert.Equal(t, 4_000_000.0, l.Planned)
			assert.Zero(t, l.Spent)
			assert.Equal(t, "Decoración y Flores", l.Label)
		}
	}
	assert.Zero(t, Breakdown(nil, nil)[0].Planned)
}
