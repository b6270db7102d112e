package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// ProfileRepo covers the server's own access to user_profiles: creating the
// row with the account and reading the suspension flag at sign-in.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// Create inserts the active profile of a new account.
func (r *ProfileRepo) Create(ctx context.Context, userID, email, fullName string) error {
	name := sql.NullString{String: fullName, Valid: fullName != ""}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_profiles (id, user_id, email, full_name, is_active) VALUES (?,?,?,?,1)",
		uuid.NewString(), userID, NormalizeEmail(email), name)
	return translate(err)
}

// IsActive reports the suspension flag. An account without a profile row
// counts as active.
func (r *ProfileRepo) IsActive(ctx context.Context, userID string) (bool, error) {
	var active bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT is_active FROM user_profiles WHERE user_id=? LIMIT 1", userID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	return active, err
}
