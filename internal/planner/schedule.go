package planner

import (
	"context"
	"strings"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/validate"
)

// ScheduleInput is one itinerary entry. Time is HH:MM.
type ScheduleInput struct {
	Time     string `json:"time" validate:"datetime=15:04"`
	Activity string `json:"activity" validate:"notblank"`
	Notes    string `json:"notes"`
}

type scheduleRow struct {
	UserID   string  `json:"user_id"`
	Time     string  `json:"time"`
	Activity string  `json:"activity"`
	Notes    *string `json:"notes"`
}

// Schedule returns the wedding-day itinerary ordered by time.
func (c *Client) Schedule(ctx context.Context) ([]model.DayScheduleItem, error) {
	return read(ctx, c, EntitySchedule, func(ctx context.Context, owner string) ([]model.DayScheduleItem, error) {
		var out []model.DayScheduleItem
		err := c.data.Select(ctx, gateway.TableDaySchedule, gateway.Q().Eq("user_id", owner).Order("time", true), &out)
		return out, err
	})
}

// AddScheduleItem appends an entry to the itinerary.
func (c *Client) AddScheduleItem(ctx context.Context, in ScheduleInput) error {
	const prefix = "Error al guardar"
	if err := validate.Struct(in); err != nil {
		return err
	}
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	row := scheduleRow{
		UserID:   owner,
		Time:     in.Time,
		Activity: strings.TrimSpace(in.Activity),
		Notes:    optional(strings.TrimSpace(in.Notes)),
	}
	if err := c.data.Insert(ctx, gateway.TableDaySchedule, row, nil); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntitySchedule)
	c.ok("Actividad agregada")
	return nil
}

// ToggleScheduleItem sets the completed flag of entry id.
func (c *Client) ToggleScheduleItem(ctx context.Context, id string, completed bool) error {
	const prefix = "Error al actualizar"
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	q := gateway.Q().Eq("id", id).Eq("user_id", owner)
	if err := c.data.Update(ctx, gateway.TableDaySchedule, q, map[string]any{"completed": completed}); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntitySchedule)
	return nil
}

// DeleteScheduleItem removes entry id.
func (c *Client) DeleteScheduleItem(ctx context.Context, id string) error {
	const prefix = "Error al eliminar"
	owner, err := c.caller()
	if err != nil {
		return c.fail(prefix, err)
	}
	if err := c.data.Delete(ctx, gateway.TableDaySchedule, gateway.Q().Eq("id", id).Eq("user_id", owner)); err != nil {
		return c.fail(prefix, err)
	}
	c.invalidate(EntitySchedule)
	c.ok("Actividad eliminada")
	return nil
}

// SeedDefaultSchedule fills an empty itinerary with the suggested day. It
// returns the number of entries created.
func (c *Client) SeedDefaultSchedule(ctx context.Context) (int, error) {
	const prefix = "Error al guardar"
	owner, err := c.caller()
	if err != nil {
		return 0, c.fail(prefix, err)
	}
	n, err := c.data.Count(ctx, gateway.TableDaySchedule, gateway.Q().Eq("user_id", owner))
	if err != nil {
		return 0, c.fail(prefix, err)
	}
	if n > 0 {
		return 0, nil
	}
	rows := make([]scheduleRow, 0, len(defaultSchedule))
	for _, it := range defaultSchedule {
		rows = append(rows, scheduleRow{UserID: owner, Time: it.Time, Activity: it.Activity})
	}
	if err := c.data.Insert(ctx, gateway.TableDaySchedule, rows, nil); err != nil {
		return 0, c.fail(prefix, err)
	}
	c.invalidate(EntitySchedule)
	c.ok("Itinerario creado")
	return len(rows), nil
}
