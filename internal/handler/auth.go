package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/miboda/internal/config"
	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/gateway/supabase"
	"github.com/iliyamo/miboda/internal/middleware"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/repository"
	"github.com/iliyamo/miboda/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    Users
	Tokens   Tokens
	Profiles Profiles
	Roles    Roles
	Log      *slog.Logger
	Now      func() time.Time
}

func NewAuthHandler(cfg config.Config, u Users, t Tokens, p Profiles, r Roles, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Profiles: p, Roles: r, Log: log, Now: time.Now}
}

type passwordReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

const (
	codeValidation      = "validation_failed"
	codeRefreshNotFound = "refresh_token_not_found"
)

func (h *AuthHandler) internal(c echo.Context, what string, err error) error {
	h.Log.Error("auth: "+what, "err", err)
	return authFail(c, http.StatusInternalServerError, "unexpected_failure", what)
}

// Token dispatches on grant_type.
func (h *AuthHandler) Token(c echo.Context) error {
	switch c.QueryParam("grant_type") {
	case "password":
		return h.password(c)
	case "refresh_token":
		return h.refresh(c)
	}
	return authFail(c, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant_type")
}

// password verifies credentials and returns a new session. Suspended
// accounts are refused unless they are administrators.
func (h *AuthHandler) password(c echo.Context) error {
	var req passwordReq
	if err := c.Bind(&req); err != nil {
		return authFail(c, http.StatusBadRequest, codeValidation, "invalid body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return authFail(c, http.StatusBadRequest, codeValidation, "missing email or password")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !utils.VerifyPassword(u.PasswordHash, req.Password)) {
		return authFail(c, http.StatusBadRequest, gateway.CodeInvalidCredentials, "Invalid login credentials")
	}
	if err != nil {
		return h.internal(c, "query failed", err)
	}
	role, err := h.admitted(ctx, u.ID)
	if err != nil {
		if errors.Is(err, errSuspended) {
			return authFail(c, http.StatusBadRequest, gateway.CodeAccountSuspended, gateway.MsgAccountSuspended)
		}
		return h.internal(c, "status lookup failed", err)
	}
	h.Log.Info("auth: signed in", "user_id", u.ID)
	return h.issue(c, ctx, u, role, "")
}

// refresh exchanges a refresh token for a new pair. The presented token is
// revoked in the same transaction that stores its successor.
func (h *AuthHandler) refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return authFail(c, http.StatusBadRequest, codeValidation, "refresh_token required")
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := withTimeout(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, oldHash)
	if errors.Is(err, repository.ErrNotFound) {
		return authFail(c, http.StatusBadRequest, codeRefreshNotFound, "Invalid Refresh Token: Refresh Token Not Found")
	}
	if err != nil {
		return h.internal(c, "refresh lookup failed", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return authFail(c, http.StatusBadRequest, gateway.CodeUserNotFound, "User not found")
	}
	if err != nil {
		return h.internal(c, "load user failed", err)
	}
	role, err := h.admitted(ctx, u.ID)
	if err != nil {
		if errors.Is(err, errSuspended) {
			return authFail(c, http.StatusBadRequest, gateway.CodeAccountSuspended, gateway.MsgAccountSuspended)
		}
		return h.internal(c, "status lookup failed", err)
	}
	return h.issue(c, ctx, u, role, oldHash)
}

var errSuspended = errors.New("account suspended")

// admitted returns the user's role, or errSuspended for a deactivated
// non-admin account.
func (h *AuthHandler) admitted(ctx context.Context, userID string) (string, error) {
	role, err := h.Roles.Role(ctx, userID)
	if err != nil {
		return "", err
	}
	if role == model.RoleAdmin {
		return role, nil
	}
	active, err := h.Profiles.IsActive(ctx, userID)
	if err != nil {
		return "", err
	}
	if !active {
		return "", errSuspended
	}
	return role, nil
}

// issue signs an access token and stores a refresh token, rotating oldHash
// when it is set.
func (h *AuthHandler) issue(c echo.Context, ctx context.Context, u repository.User, role, oldHash string) error {
	now := h.Now()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, role, h.Cfg.AccessTTLMin, now)
	if err != nil {
		return h.internal(c, "issue access failed", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays, now)
	if err != nil {
		return h.internal(c, "issue refresh failed", err)
	}
	newHash := utils.HashRefreshRaw(refresh.Raw)
	if oldHash == "" {
		err = h.Tokens.StoreRefresh(ctx, u.ID, newHash, refresh.Exp)
	} else {
		err = h.Tokens.Rotate(ctx, u.ID, oldHash, newHash, refresh.Exp)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return authFail(c, http.StatusBadRequest, codeRefreshNotFound, "Invalid Refresh Token: Already Used")
	}
	if err != nil {
		return h.internal(c, "save refresh failed", err)
	}
	return c.JSON(http.StatusOK, supabase.TokenResponse{
		AccessToken:  access.Token,
		TokenType:    "bearer",
		ExpiresIn:    int(access.Exp.Sub(now).Seconds()),
		ExpiresAt:    access.Exp.Unix(),
		RefreshToken: refresh.Raw,
		User:         userBody(u),
	})
}

// Logout revokes every refresh token of the caller.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	uid := middleware.UserID(c)
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return h.internal(c, "logout failed", err)
	}
	h.Log.Info("auth: signed out", "user_id", uid)
	return c.NoContent(http.StatusNoContent)
}

// User returns the caller's auth user.
func (h *AuthHandler) User(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		return authFail(c, http.StatusNotFound, gateway.CodeUserNotFound, "User not found")
	}
	if err != nil {
		return h.internal(c, "load user failed", err)
	}
	return c.JSON(http.StatusOK, userBody(u))
}
