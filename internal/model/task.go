package model

import "time"

// Task mirrors a row of `tasks`. MonthsBefore is set for checklist items
// seeded from the default plan.
type Task struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	DueDate      *string   `json:"due_date"`
	Completed    bool      `json:"completed"`
	IsCustom     bool      `json:"is_custom"`
	MonthsBefore *int      `json:"months_before"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DayScheduleItem mirrors a row of `day_schedule`: one entry of the wedding
// day itinerary. Time is "HH:MM".
type DayScheduleItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Time      string    `json:"time"`
	Activity  string    `json:"activity"`
	Notes     *string   `json:"notes"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}
