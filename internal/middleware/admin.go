package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RoleChecker answers whether a user is an administrator.
type RoleChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin lets only administrators through. The role is looked up per
// request, not read from the token. It must run after JWTAuth.
func RequireAdmin(roles RoleChecker, deny Deny) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := UserID(c)
			if uid == "" {
				return deny(c, http.StatusUnauthorized, MsgUnauthorized)
			}
			admin, err := roles.IsAdmin(c.Request().Context(), uid)
			if err != nil {
				return deny(c, http.StatusInternalServerError, MsgRoleLookup)
			}
			if !admin {
				return deny(c, http.StatusForbidden, MsgNotAdmin)
			}
			return next(c)
		}
	}
}
