// Package handler implements the HTTP endpoints of the gateway server:
// token grants under /auth/v1, row-scoped tables and procedures under
// /rest/v1 and the administrator functions under /functions/v1.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/gateway/supabase"
	"github.com/iliyamo/miboda/internal/repository"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

type Users interface {
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id string) (repository.User, error)
}

type Tokens interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	Rotate(ctx context.Context, userID, oldHash, newHash string, exp time.Time) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type Profiles interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

type Roles interface {
	Role(ctx context.Context, userID string) (string, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Tables is the row-scoped table access behind /rest/v1.
type Tables interface {
	Select(ctx context.Context, s repository.Scope, table string, q gateway.Query) ([]map[string]any, error)
	Insert(ctx context.Context, s repository.Scope, table string, rows []map[string]any, returning bool) ([]map[string]any, error)
	Update(ctx context.Context, s repository.Scope, table string, q gateway.Query, patch map[string]any) (int64, error)
	Delete(ctx context.Context, s repository.Scope, table string, q gateway.Query) (int64, error)
	Count(ctx context.Context, s repository.Scope, table string, q gateway.Query) (int, error)
}

// Accounts covers the account lifecycle writes that publish events.
type Accounts interface {
	Create(ctx context.Context, actorID, email, password, fullName string) (repository.User, error)
	SetActive(ctx context.Context, actorID, userID, email string, active bool) error
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func authFail(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, &gateway.AuthError{Code: code, Message: msg})
}

// dataFail writes err in the table error shape.
func dataFail(c echo.Context, log *slog.Logger, err error) error {
	var qe *repository.QueryError
	switch {
	case errors.As(err, &qe):
		return c.JSON(http.StatusBadRequest, &gateway.Error{Code: "PGRST100", Message: qe.Message})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, &gateway.Error{
			Code:    gateway.CodeUniqueViolation,
			Message: repository.ErrConflict.Error(),
			Details: err.Error(),
		})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, &gateway.Error{Code: "42501", Message: "permission denied"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, &gateway.Error{Code: gateway.CodeNoRows, Message: "no rows"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, &gateway.Error{Code: "57014", Message: "canceling statement due to statement timeout"})
	}
	log.Error("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "err", err)
	return c.JSON(http.StatusInternalServerError, &gateway.Error{Message: "internal server error"})
}

func userBody(u repository.User) supabase.UserBody {
	b := supabase.UserBody{ID: u.ID, Email: u.Email}
	if u.FullName.Valid {
		b.UserMetadata = map[string]any{"full_name": u.FullName.String}
	}
	return b
}
