package planner

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/iliyamo/miboda/internal/model"
)

// Summary is the dashboard view of the caller's planning. WeddingDate is one
// year from now when the profile has no date; HasDate tells the two apart.
type Summary struct {
	TotalPlanned     float64
	TotalSpent       float64
	TotalIncome      float64
	TotalExpenses    float64
	Savings          float64
	Remaining        float64
	PercentUsed      float64
	TopCategories    []Line
	UpcomingTasks    []model.Task
	CompletedTasks   int
	TotalTasks       int
	WeddingDate      time.Time
	HasDate          bool
	DaysUntilWedding int
}

// Summary loads the four planner reads and derives the dashboard figures.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	profile, err := c.WeddingProfile(ctx)
	if err != nil {
		return nil, err
	}
	budgets, err := c.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := c.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := c.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	s := Summarize(c.now(), profile, budgets, txs, tasks)
	return &s, nil
}

// Summarize is the pure part of Summary.
func Summarize(now time.Time, profile *model.WeddingProfile, budgets []model.Budget, txs []model.Transaction, tasks []model.Task) Summary {
	var s Summary
	lines := Breakdown(profile, budgets)
	for _, l := range lines {
		s.TotalPlanned += l.Planned
		s.TotalSpent += l.Spent
	}
	for _, t := range txs {
		switch t.Type {
		case model.TransactionIncome:
			s.TotalIncome += t.Amount
		case model.TransactionExpense:
			s.TotalExpenses += t.Amount
		}
	}
	s.Savings = s.TotalIncome - s.TotalSpent
	s.Remaining = s.TotalPlanned - s.TotalSpent
	if s.TotalPlanned > 0 {
		s.PercentUsed = s.TotalSpent / s.TotalPlanned * 100
	}

	top := make([]Line, len(lines))
	copy(top, lines)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Spent > top[j].Spent })
	s.TopCategories = top[:min(3, len(top))]

	var pending []model.Task
	for _, t := range tasks {
		if t.Completed {
			s.CompletedTasks++
			continue
		}
		if t.DueDate != nil {
			pending = append(pending, t)
		}
	}
	s.TotalTasks = len(tasks)
	sort.SliceStable(pending, func(i, j int) bool { return *pending[i].DueDate < *pending[j].DueDate })
	s.UpcomingTasks = pending[:min(3, len(pending))]

	if d, ok := profile.Date(); ok {
		s.WeddingDate, s.HasDate = d, true
	} else {
		s.WeddingDate = now.AddDate(1, 0, 0)
	}
	s.DaysUntilWedding = DaysUntil(now, s.WeddingDate)
	return s
}

// DaysUntil counts calendar days from now to date, both taken at midnight
// in now's location. Past dates are negative.
func DaysUntil(now, date time.Time) int {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return int(math.Round(day.Sub(today).Hours() / 24))
}
