package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/miboda/internal/utils"
)

// User mirrors the 'users' table: the accounts the auth endpoints sign in.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail is the stored form of an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes password and inserts the account. A second account with the
// same email fails with ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, fullName string, cost int) (User, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		FullName:     sql.NullString{String: strings.TrimSpace(fullName), Valid: strings.TrimSpace(fullName) != ""},
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, full_name) VALUES (?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.FullName)
	if err != nil {
		if err = translate(err); errors.Is(err, ErrConflict) {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return u, nil
}

const userColumns = "id,email,password_hash,full_name,created_at,updated_at"

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches an account by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}
