package planner

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/validate"
)

// TaskInput is the "new task" form. DueDate is YYYY-MM-DD or empty.
type TaskInput struct {
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type taskRow struct {
	UserID       string  `json:"user_id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	DueDate      *string `json:"due_date"`
	IsCustom     bool    `json:"is_custom"`
	MonthsBefore *int    `json:"months_before,omitempty"`
}

// Tasks returns the caller's checklist ordered by due date.
func (c *Client) Tasks(ctx context.Context) ([]model.Task, error) {
	return read(ctx, c, EntityTasks, func(ctx context.Context, owner string) ([]model.Task, error) {
		var out []model.Task
		err := c.data.Select(ctx, gateway.TableTasks, gateway.Q().Eq("user_id", owner).Order("due_date", true), &out)
		return out, err
	})
}

// AddTask creates a custom task.
func (c *Client) AddTask(ctx context.Context, in TaskInput) error {
	const prefix = "Error al crear tarea"
	if err := validate.Struct(in); err != nil {
		return err
	}
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	row := taskRow{
		UserID:      owner,
		Title:       strings.TrimSpace(in.Title),
		Description: optional(strings.TrimSpace(in.Description)),
		DueDate:     optional(in.DueDate),
		IsCustom:    true,
	}
	if err := c.data.Insert(ctx, gateway.TableTasks, row, nil); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntityTasks)
	c.ok("Tarea creada")
	return nil
}

// ToggleTask sets the completed flag of task id.
func (c *Client) ToggleTask(ctx context.Context, id string, completed bool) error {
	const prefix = "Error al actualizar tarea"
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	q := gateway.Q().Eq("id", id).Eq("user_id", owner)
	if err := c.data.Update(ctx, gateway.TableTasks, q, map[string]any{"completed": completed}); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntityTasks)
	return nil
}

// DeleteTask removes task id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	const prefix = "Error al eliminar"
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	if err := c.data.Delete(ctx, gateway.TableTasks, gateway.Q().Eq("id", id).Eq("user_id", owner)); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntityTasks)
	c.ok("Tarea eliminada")
	return nil
}

// DueDate places a checklist item monthsBefore months ahead of the wedding;
// items of the final week are due seven days before.
func DueDate(wedding time.Time, monthsBefore int) time.Time {
	if monthsBefore <= 0 {
		return wedding.AddDate(0, 0, -7)
	}
	return wedding.AddDate(0, -monthsBefore, 0)
}

// SeedDefaultTasks adds the standard checklist unless the caller already
// has seeded items. Due dates derive from the wedding date when one is set.
// It returns the number of tasks created.
func (c *Client) SeedDefaultTasks(ctx context.Context) (int, error) {
	const prefix = "Error al crear tareas"
	owner, err := c.caller()
	if err != nil {
		return 0, c.fail(prefix, err)
	}
	seeded, err := c.data.Count(ctx, gateway.TableTasks, gateway.Q().Eq("user_id", owner).Eq("is_custom", false))
	if err != nil {
		return 0, c.fail(prefix, err)
	}
	if seeded > 0 {
		return 0, nil
	}
	profile, err := c.WeddingProfile(ctx)
	if err != nil {
		return 0, c.fail(prefix, err)
	}
	wedding, hasDate := profile.Date()

	rows := make([]taskRow, 0, len(defaultTasks))
	for _, t := range defaultTasks {
		months := t.MonthsBefore
		row := taskRow{
			UserID:       owner,
			Title:        t.Title,
			Description:  optional(t.Description),
			MonthsBefore: &months,
		}
		if hasDate {
			due := DueDate(wedding, months).Format(model.DateLayout)
			row.DueDate = &due
		}
		rows = append(rows, row)
	}
	if err := c.data.Insert(ctx, gateway.TableTasks, rows, nil); err != nil {
		return 0, c.fail(prefix, err)
	}
	c.invalidate(EntityTasks)
	c.ok("Lista de tareas creada")
	return len(rows), nil
}
