package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/middleware"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/repository"
	"github.com/iliyamo/miboda/internal/utils"
)

// FunctionsHandler serves /functions/v1. Routes are mounted behind
// RequireAdmin.
type FunctionsHandler struct {
	Accounts Accounts
	Log      *slog.Logger
}

func NewFunctionsHandler(a Accounts, log *slog.Logger) *FunctionsHandler {
	return &FunctionsHandler{Accounts: a, Log: log}
}

func fnFail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// CreateUser creates an account with an active profile on behalf of an
// administrator.
func (h *FunctionsHandler) CreateUser(c echo.Context) error {
	var req gateway.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return fnFail(c, http.StatusBadRequest, "Cuerpo de solicitud inválido")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return fnFail(c, http.StatusBadRequest, "Email y contraseña requeridos")
	}
	if len(req.Password) < utils.MinPasswordLength {
		return fnFail(c, http.StatusBadRequest, "Password should be at least 6 characters")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.Accounts.Create(ctx, middleware.UserID(c), req.Email, req.Password, req.FullName)
	if err != nil {
		var qe *repository.QueryError
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return fnFail(c, http.StatusBadRequest, "A user with this email address has already been registered")
		case errors.As(err, &qe):
			return fnFail(c, http.StatusBadRequest, qe.Message)
		}
		h.Log.Error("functions: create-user failed", "err", err)
		return fnFail(c, http.StatusInternalServerError, "Error interno del servidor")
	}
	return c.JSON(http.StatusOK, gateway.CreateUserResponse{
		Success: true,
		User:    model.CreatedUser{ID: u.ID, Email: u.Email},
	})
}
