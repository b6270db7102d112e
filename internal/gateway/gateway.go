// Package gateway declares the remote backend the client talks to: an auth
// provider plus row-secured tables, privileged procedures and functions.
// Implementations live in subpackages.
package gateway

import (
	"context"
	"time"

	"github.com/iliyamo/miboda/internal/model"
)

// Table names.
const (
	TableUserProfiles    = "user_profiles"
	TableWeddingProfiles = "wedding_profiles"
	TableBudgets         = "budgets"
	TableTransactions    = "transactions"
	TableProviders       = "providers"
	TableTasks           = "tasks"
	TableDaySchedule     = "day_schedule"
)

// Remote procedures and functions.
const (
	RPCIsAdmin         = "is_admin"
	RPCGetUserRole     = "get_user_role"
	FunctionCreateUser = "create-user"
)

// Session is an issued credential pair and the identity it proves.
type Session struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	User         model.Identity `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AuthEventKind names an auth state transition.
type AuthEventKind string

const (
	EventInitialSession AuthEventKind = "INITIAL_SESSION"
	EventSignedIn       AuthEventKind = "SIGNED_IN"
	EventSignedOut      AuthEventKind = "SIGNED_OUT"
	EventTokenRefreshed AuthEventKind = "TOKEN_REFRESHED"
)

// AuthEvent is delivered to OnAuthStateChange listeners. Session is nil for
// SIGNED_OUT.
type AuthEvent struct {
	Kind    AuthEventKind
	Session *Session
}

// Auth is the password auth provider.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// GetSession returns the current session or nil when signed out.
	GetSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers fn for every subsequent transition and
	// returns a function that removes it.
	OnAuthStateChange(fn func(AuthEvent)) (unsubscribe func())
}

// Data is table, procedure and function access scoped to the caller's
// session.
type Data interface {
	// Select decodes the matching rows into out, which must point to a slice.
	Select(ctx context.Context, table string, q Query, out any) error
	// Insert writes row and, when out is non-nil, decodes the stored rows
	// into it.
	Insert(ctx context.Context, table string, row any, out any) error
	Update(ctx context.Context, table string, q Query, patch any) error
	Delete(ctx context.Context, table string, q Query) error
	Count(ctx context.Context, table string, q Query) (int, error)
	RPC(ctx context.Context, fn string, args any, out any) error
	Invoke(ctx context.Context, function string, body any, out any) error
}

// Backend is a gateway exposing both halves.
type Backend interface {
	Auth
	Data
}

// MaybeSingle returns the first matching row, or nil when there is none.
func MaybeSingle[T any](ctx context.Context, d Data, table string, q Query) (*T, error) {
	var rows []T
	if err := d.Select(ctx, table, q.Limit(1), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Single is MaybeSingle but reports a missing row as a not-found Error.
func Single[T any](ctx context.Context, d Data, table string, q Query) (*T, error) {
	row, err := MaybeSingle[T](ctx, d, table, q)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &Error{Status: 406, Code: CodeNoRows, Message: "JSON object requested, multiple (or no) rows returned"}
	}
	return row, nil
}

// UserArgs is the argument body of the role procedures.
type UserArgs struct {
	UserUUID string `json:"user_uuid"`
}

// CreateUserRequest is the create-user function body.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

// CreateUserResponse is the create-user function success body.
type CreateUserResponse struct {
	Success bool              `json:"success"`
	User    model.CreatedUser `json:"user"`
}
