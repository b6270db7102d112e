package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/category"
	"github.com/iliyamo/miboda/internal/gateway/gatewaytest"
	"github.com/iliyamo/miboda/internal/model"
)

func strp(s string) *string { return &s }

func TestSummarize(t *testing.T) {
	now := time.Date(2026, time.October, 14, 15, 30, 0, 0, time.UTC)
	total := 40_000_000.0
	profile := &model.WeddingProfile{WeddingDate: strp("2026-12-12"), TotalBudget: &total}
	budgets := []model.Budget{
		{Category: string(category.Catering), PlannedAmount: 10_000_000, SpentAmount: 3_000_000},
		{Category: string(category.Music), SpentAmount: 2_000_000},
		{Category: string(category.Rings), SpentAmount: 1_000_000},
		{Category: string(category.Beauty), SpentAmount: 500_000},
	}
	txs := []model.Transaction{
		{Type: model.TransactionIncome, Amount: 8_000_000},
		{Type: model.TransactionExpense, Amount: 6_500_000},
	}
	tasks := []model.Task{
		{Title: "c", DueDate: strp("2026-11-20")},
		{Title: "done", Completed: true, DueDate: strp("2026-10-01")},
		{Title: "a", DueDate: strp("2026-10-20")},
		{Title: "sin fecha"},
		{Title: "b", DueDate: strp("2026-11-01")},
		{Title: "d", DueDate: strp("2026-12-01")},
	}

	s := Summarize(now, profile, budgets, txs, tasks)

	assert.Equal(t, 6_500_000.0, s.TotalSpent)
	assert.Equal(t, 8_000_000.0, s.TotalIncome)
	assert.Equal(t, 6_500_000.0, s.TotalExpenses)
	assert.Equal(t, 1_500_000.0, s.Savings)
	// Catering explicit 10M, the other eleven at their default shares of 40M.
	assert.Equal(t, 10_000_000.0+40_000_000*0.75, s.TotalPlanned)
	assert.Equal(t, s.TotalPlanned-s.TotalSpent, s.Remaining)
	assert.InDelta(t, 6.5/40*100, s.PercentUsed, 0.0001)

	require.Len(t, s.TopCategories, 3)
	assert.Equal(t, category.Catering, s.TopCategories[0].Category)
	assert.Equal(t, category.Music, s.TopCategories[1].Category)
	assert.Equal(t, category.Rings, s.TopCategories[2].Category)

	require.Len(t, s.UpcomingTasks, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{s.UpcomingTasks[0].Title, s.UpcomingTasks[1].Title, s.UpcomingTasks[2].Title})
	assert.Equal(t, 1, s.CompletedTasks)
	assert.Equal(t, 6, s.TotalTasks)

	assert.True(t, s.HasDate)
	assert.Equal(t, 59, s.DaysUntilWedding)
}

func TestSummarizeWithoutProfile(t *testing.T) {
	now := time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)
	s := Summarize(now, nil, nil, nil, nil)
	assert.False(t, s.HasDate)
	assert.Equal(t, 365, s.DaysUntilWedding)
	assert.Zero(t, s.TotalPlanned)
	assert.Zero(t, s.PercentUsed)
	assert.Empty(t, s.UpcomingTasks)
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, time.October, 14, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysUntil(now, time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysUntil(now, now))
	assert.Equal(t, -3, DaysUntil(now, time.Date(2026, time.October, 11, 0, 0, 0, 0, time.UTC)))
}

func TestClientSummary(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()
	f.client.now = func() time.Time { return time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC) }

	date, budget := "2026-10-24", 20_000_000.0
	_, err := f.client.SaveWeddingProfile(ctx, model.WeddingProfileInput{WeddingDate: &date, TotalBudget: &budget})
	require.NoError(t, err)
	require.NoError(t, f.client.AddExpense(ctx, ExpenseInput{Amount: 2_000_000, Category: category.Music}))

	s, err := f.client.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, s.DaysUntilWedding)
	assert.Equal(t, 2_000_000.0, s.TotalSpent)
	assert.Equal(t, category.Music, s.TopCategories[0].Category)
}

func TestFormatCOP(t *testing.T) {
	assert.Equal(t, "$ 50.000.000", FormatCOP(50_000_000))
	assert.Equal(t, "$ 2.000.000", FormatCOP(1_999_999.6))
	assert.Equal(t, "-$ 250.000", FormatCOP(-250_000))
}
