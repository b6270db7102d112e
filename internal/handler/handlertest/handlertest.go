// Package handlertest provides in-memory stores satisfying the handler
// interfaces.
package handlertest

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/repository"
)

type token struct {
	userID  string
	exp     time.Time
	revoked bool
}

// Store implements Users, Tokens, Profiles, Roles, Accounts and Tables.
type Store struct {
	mu       sync.Mutex
	users    map[string]repository.User
	tokens   map[string]*token
	inactive map[string]bool
	roles    map[string]string
	rows     map[string][]map[string]any

	// StatusChanges records SetActive calls as "user_id=active".
	StatusChanges []string
}

func New() *Store {
	return &Store{
		users:    map[string]repository.User{},
		tokens:   map[string]*token{},
		inactive: map[string]bool{},
		roles:    map[string]string{},
		rows:     map[string][]map[string]any{},
	}
}

// AddUser creates an account with an active profile and returns it.
func (s *Store) AddUser(email, password, fullName string) repository.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := repository.User{
		ID:           uuid.NewString(),
		Email:        repository.NormalizeEmail(email),
		PasswordHash: string(hash),
		FullName:     sql.NullString{String: fullName, Valid: fullName != ""},
	}
	s.mu.Lock()
	s.users[u.ID] = u
	s.rows[gateway.TableUserProfiles] = append(s.rows[gateway.TableUserProfiles], map[string]any{
		"id": uuid.NewString(), "user_id": u.ID, "email": u.Email, "full_name": fullName, "is_active": true,
	})
	s.mu.Unlock()
	return u
}

func (s *Store) SetAdmin(userID string) {
	s.mu.Lock()
	s.roles[userID] = model.RoleAdmin
	s.mu.Unlock()
}

// Suspend marks the profile inactive.
func (s *Store) Suspend(userID string) {
	s.mu.Lock()
	s.inactive[userID] = true
	s.mu.Unlock()
}

// LiveTokens counts the user's unrevoked refresh tokens.
func (s *Store) LiveTokens(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.userID == userID && !t.revoked {
			n++
		}
	}
	return n
}

func (s *Store) GetByEmail(_ context.Context, email string) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == repository.NormalizeEmail(email) {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (s *Store) GetByID(_ context.Context, id string) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) StoreRefresh(_ context.Context, userID, hash string, exp time.Time) error {
	s.mu.Lock()
	s.tokens[hash] = &token{userID: userID, exp: exp}
	s.mu.Unlock()
	return nil
}

func (s *Store) ValidateRefresh(_ context.Context, hash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return "", repository.ErrNotFound
	}
	return t.userID, nil
}

func (s *Store) Rotate(_ context.Context, userID, oldHash, newHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[oldHash]
	if !ok || t.revoked || t.userID != userID {
		return repository.ErrNotFound
	}
	t.revoked = true
	s.tokens[newHash] = &token{userID: userID, exp: exp}
	return nil
}

func (s *Store) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

func (s *Store) IsActive(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inactive[userID], nil
}

func (s *Store) Role(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.roles[userID]; ok {
		return r, nil
	}
	return model.RoleUser, nil
}

func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	r, err := s.Role(ctx, userID)
	return r == model.RoleAdmin, err
}

func (s *Store) Create(_ context.Context, _, email, password, fullName string) (repository.User, error) {
	if _, err := s.GetByEmail(context.Background(), email); err == nil {
		return repository.User{}, repository.ErrEmailExists
	}
	return s.AddUser(email, password, fullName), nil
}

func (s *Store) SetActive(_ context.Context, _, userID, _ string, active bool) error {
	if !active {
		_ = s.RevokeAllForUser(context.Background(), userID)
	}
	s.mu.Lock()
	s.inactive[userID] = !active
	s.StatusChanges = append(s.StatusChanges, fmt.Sprintf("%s=%t", userID, active))
	s.mu.Unlock()
	return nil
}

// Table access supports eq filters only.

func (s *Store) visible(sc repository.Scope, table string, q gateway.Query) []map[string]any {
	var out []map[string]any
	for _, r := range s.rows[table] {
		if !sc.Admin && r["user_id"] != sc.UserID {
			continue
		}
		if matches(r, q.Filters) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r map[string]any, filters []gateway.Filter) bool {
	for _, f := range filters {
		if f.Op == gateway.OpEq && gateway.FormatValue(r[f.Column]) != f.Value {
			return false
		}
	}
	return true
}

func (s *Store) Select(_ context.Context, sc repository.Scope, table string, q gateway.Query) ([]map[string]any, error) {
	if _, ok := repository.LookupTable(table); !ok {
		return nil, &repository.QueryError{Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for _, r := range s.visible(sc, table, q) {
		out = append(out, copyRow(r))
	}
	if q.Max > 0 && len(out) > q.Max {
		out = out[:q.Max]
	}
	return out, nil
}

func (s *Store) Insert(_ context.Context, sc repository.Scope, table string, rows []map[string]any, returning bool) ([]map[string]any, error) {
	t, ok := repository.LookupTable(table)
	if !ok {
		return nil, &repository.QueryError{Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	if t.NoInsert {
		return nil, repository.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, in := range rows {
		r := copyRow(in)
		r["user_id"] = sc.UserID
		if _, ok := r["id"]; !ok {
			r["id"] = uuid.NewString()
		}
		s.rows[table] = append(s.rows[table], r)
		out = append(out, copyRow(r))
	}
	if !returning {
		return nil, nil
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, sc repository.Scope, table string, q gateway.Query, patch map[string]any) (int64, error) {
	if len(q.Filters) == 0 {
		return 0, &repository.QueryError{Message: "UPDATE requires a WHERE clause"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.visible(sc, table, q) {
		for k, v := range patch {
			r[k] = v
		}
		n++
	}
	return n, nil
}

func (s *Store) Delete(_ context.Context, sc repository.Scope, table string, q gateway.Query) (int64, error) {
	if len(q.Filters) == 0 {
		return 0, &repository.QueryError{Message: "DELETE requires a WHERE clause"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	gone := s.visible(repository.Scope{UserID: sc.UserID}, table, q)
	s.rows[table] = slices.DeleteFunc(s.rows[table], func(r map[string]any) bool {
		for _, g := range gone {
			if g["id"] == r["id"] {
				return true
			}
		}
		return false
	})
	return int64(len(gone)), nil
}

func (s *Store) Count(_ context.Context, sc repository.Scope, table string, q gateway.Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visible(sc, table, q)), nil
}

func copyRow(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
