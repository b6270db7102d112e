package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/gateway/gatewaytest"
	"github.com/iliyamo/miboda/internal/model"
)

func TestTaskRoundTrip(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()

	require.NoError(t, f.client.AddTask(ctx, TaskInput{Title: "Llamar floristería", DueDate: "2026-03-01"}))
	assert.Equal(t, "Tarea creada", f.lastNotice(t).Message)

	tasks, err := f.client.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "Llamar floristería", task.Title)
	assert.True(t, task.IsCustom)
	assert.False(t, task.Completed)
	assert.Nil(t, task.Description)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2026-03-01", *task.DueDate)

	require.NoError(t, f.client.ToggleTask(ctx, task.ID, true))
	tasks, err = f.client.Tasks(ctx)
	require.NoError(t, err)
	assert.True(t, tasks[0].Completed)

	require.NoError(t, f.client.DeleteTask(ctx, task.ID))
	assert.Equal(t, "Tarea eliminada", f.lastNotice(t).Message)
	tasks, err = f.client.Tasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskDueDateFormat(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	err := f.client.AddTask(context.Background(), TaskInput{Title: "Prueba", DueDate: "01/03/2026"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "due_date", ve.Field)
}

func TestDueDate(t *testing.T) {
	wedding := time.Date(2027, time.June, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC), DueDate(wedding, 12))
	assert.Equal(t, time.Date(2027, time.April, 12, 0, 0, 0, 0, time.UTC), DueDate(wedding, 2))
	assert.Equal(t, time.Date(2027, time.June, 5, 0, 0, 0, 0, time.UTC), DueDate(wedding, 0))
}

func TestSeedDefaultTasks(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()
	date := "2027-06-12"
	_, err := f.client.SaveWeddingProfile(ctx, model.WeddingProfileInput{WeddingDate: &date})
	require.NoError(t, err)

	n, err := f.client.SeedDefaultTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultTasks()), n)

	tasks, err := f.client.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, n)
	first := tasks[0]
	require.NotNil(t, first.DueDate)
	assert.Equal(t, "2026-06-12", *first.DueDate)
	require.NotNil(t, first.MonthsBefore)
	assert.Equal(t, 12, *first.MonthsBefore)
	assert.False(t, first.IsCustom)

	again, err := f.client.SeedDefaultTasks(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
	assert.Len(t, f.backend.Rows(gateway.TableTasks), n)
}

func TestSeedWithoutWeddingDateLeavesDueDatesEmpty(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	n, err := f.client.SeedDefaultTasks(context.Background())
	require.NoError(t, err)
	require.NotZero(t, n)
	for _, r := range f.backend.Rows(gateway.TableTasks) {
		assert.Nil(t, r["due_date"])
	}
}

func TestScheduleSeedAndToggle(t *testing.T) {
	f := signedIn(t, gatewaytest.UserOptions{})
	ctx := context.Background()

	n, err := f.client.SeedDefaultSchedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	again, err := f.client.SeedDefaultSchedule(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	require.NoError(t, f.client.AddScheduleItem(ctx, ScheduleInput{Time: "22:30", Activity: "Hora loca"}))
	items, err := f.client.Schedule(ctx)
	require.NoError(t, err)
	require.Len(t, items, 17)
	assert.Equal(t, "00:00", items[0].Time)
	assert.Equal(t, "Hora loca", items[len(items)-1].Activity)

	require.NoError(t, f.client.ToggleScheduleItem(ctx, items[1].ID, true))
	items, err = f.client.Schedule(ctx)
	require.NoError(t, err)
	assert.True(t, items[1].Completed)

	require.NoError(t, f.client.DeleteScheduleItem(ctx, items[1].ID))
	items, err = f.client.Schedule(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 16)
}
