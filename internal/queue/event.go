// Package queue carries account lifecycle events over RabbitMQ and keeps an
// audit log of them.
package queue

import "time"

// Event types.
const (
	UserCreated   = "user.created"
	UserSuspended = "user.suspended"
	UserActivated = "user.activated"
)

// AccountEvent is published whenever an administrator creates, suspends or
// reactivates an account.
type AccountEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StatusEvent returns the event type for an is_active change.
func StatusEvent(active bool) string {
	if active {
		return UserActivated
	}
	return UserSuspended
}
