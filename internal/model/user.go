package model

import (
	"strings"
	"time"
)

// Identity is an authenticated account principal as issued by the auth
// provider. FullName comes from the user metadata and may be empty.
//
// Fields:
//
//	ID       – auth user id (uuid).
//	Email    – login email.
//	FullName – optional display name.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// FirstName returns the first word of the display name, or fallback when the
// identity carries no name.
func (i *Identity) FirstName(fallback string) string {
	if i == nil {
		return fallback
	}
	parts := strings.Fields(i.FullName)
	if len(parts) == 0 {
		return fallback
	}
	return parts[0]
}

// UserProfile mirrors a row of `user_profiles`. There is at most one profile
// per identity; IsActive is toggled by administrators to suspend an account.
type UserProfile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role names stored in the `roles` table.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// UserWithRole is a profile decorated with its role label for the admin
// listing.
type UserWithRole struct {
	UserProfile
	Role string `json:"role"`
}

// AdminStats aggregates the counters shown on the admin dashboard.
type AdminStats struct {
	TotalUsers     int `json:"total_users"`
	ActiveUsers    int `json:"active_users"`
	InactiveUsers  int `json:"inactive_users"`
	TotalWeddings  int `json:"total_weddings"`
	UsersThisMonth int `json:"users_this_month"`
}

// CreatedUser is the body returned by the create-user function.
type CreatedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
