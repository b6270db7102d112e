package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/miboda/internal/gateway"
)

// Rejection messages passed to a Deny.
const (
	MsgInvalidAPIKey = "Invalid API key"
	MsgMissingToken  = "missing bearer token"
	MsgInvalidToken  = "invalid JWT"
	MsgUnauthorized  = "Unauthorized"
	MsgRoleLookup    = "role lookup failed"
	MsgNotAdmin      = "Forbidden: admin access required"
)

// functionMessages are the user-facing texts of the functions surface.
var functionMessages = map[string]string{
	MsgMissingToken: "No autorizado",
	MsgUnauthorized: "No autorizado",
	MsgInvalidToken: "Token inválido",
	MsgNotAdmin:     "No eres administrador",
}

// Context keys set by JWTAuth.
const (
	KeyUserID = "user_id"
	KeyEmail  = "email"
)

// UserID returns the authenticated subject, or "" for anonymous requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(KeyUserID).(string)
	return s
}

// Deny writes a rejection in the error shape of the route group.
type Deny func(c echo.Context, status int, msg string) error

// DataDeny answers {code, message} like the table endpoints.
func DataDeny(c echo.Context, status int, msg string) error {
	code := ""
	switch status {
	case http.StatusUnauthorized:
		code = "PGRST301"
	case http.StatusForbidden:
		code = "42501"
	}
	return c.JSON(status, &gateway.Error{Code: code, Message: msg})
}

// AuthDeny answers {error_code, msg} like the auth endpoints.
func AuthDeny(c echo.Context, status int, msg string) error {
	return c.JSON(status, &gateway.AuthError{Code: "bad_jwt", Message: msg})
}

// FunctionDeny answers {error} like the functions, in their language.
func FunctionDeny(c echo.Context, status int, msg string) error {
	if es, ok := functionMessages[msg]; ok {
		msg = es
	}
	return c.JSON(status, echo.Map{"error": msg})
}
