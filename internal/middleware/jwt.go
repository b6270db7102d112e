package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/miboda/internal/utils"
)

// APIKey rejects requests whose apikey header is not key.
func APIKey(key string, deny Deny) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get("apikey")
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return deny(c, http.StatusUnauthorized, MsgInvalidAPIKey)
			}
			return next(c)
		}
	}
}

// JWTAuth validates the Bearer access token and stores its subject and
// email in the context. The anon key is not a token, so anonymous callers
// are rejected here.
func JWTAuth(secret string, deny Deny) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return deny(c, http.StatusUnauthorized, MsgMissingToken)
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return deny(c, http.StatusUnauthorized, MsgInvalidToken)
			}
			c.Set(KeyUserID, claims.Subject)
			c.Set(KeyEmail, claims.Email)
			return next(c)
		}
	}
}
