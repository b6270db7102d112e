package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by client and server.
const (
	CodeUniqueViolation = "23505"
	CodeNoRows          = "PGRST116"

	CodeInvalidCredentials = "invalid_credentials"
	CodeUserNotFound       = "user_not_found"
	CodeAccountSuspended   = "account_suspended"
)

// MsgAccountSuspended is the marker the auth provider returns for a
// deactivated account.
const MsgAccountSuspended = "CUENTA_SUSPENDIDA"

// Error is a failed table, procedure or function call.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("gateway error %d", e.Status)
}

// AuthError is a failed auth call.
type AuthError struct {
	Status  int    `json:"-"`
	Code    string `json:"error_code,omitempty"`
	Message string `json:"msg"`
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth error %d", e.Status)
}

// IsConflict reports a unique constraint violation.
func IsConflict(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code == CodeUniqueViolation || ge.Status == http.StatusConflict
	}
	return false
}

// IsNotFound reports a missing row.
func IsNotFound(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code == CodeNoRows || ge.Status == http.StatusNotFound
	}
	return false
}

// Message extracts the human-readable part of err for notices.
func Message(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Error()
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
