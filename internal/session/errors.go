package session

import (
	"errors"
	"strings"

	"github.com/iliyamo/miboda/internal/gateway"
)

// Kind classifies a failed sign-in.
type Kind int

const (
	Other Kind = iota
	InvalidCredentials
	UnknownAccount
	AccountSuspended
)

func (k Kind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid_credentials"
	case UnknownAccount:
		return "unknown_account"
	case AccountSuspended:
		return "account_suspended"
	}
	return "other"
}

// AuthError is a classified sign-in failure carrying the message shown to
// the user.
type AuthError struct {
	Kind    Kind
	Title   string
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

const (
	TitleSuspended   = "Cuenta suspendida"
	MessageSuspended = "Tu cuenta ha sido suspendida. Comunícate con el administrador para realizar el pago y continuar."
)

// classify maps a gateway sign-in error to an AuthError.
func classify(err error) *AuthError {
	var ae *gateway.AuthError
	code, msg := "", err.Error()
	if errors.As(err, &ae) {
		code, msg = ae.Code, ae.Message
	}
	switch {
	case code == gateway.CodeAccountSuspended || strings.Contains(msg, gateway.MsgAccountSuspended):
		return suspended(err)
	case code == gateway.CodeInvalidCredentials || strings.Contains(msg, "Invalid login credentials"):
		return &AuthError{Kind: InvalidCredentials, Title: "Error al iniciar sesión", Message: "Email o contraseña incorrectos", Err: err}
	case code == gateway.CodeUserNotFound || strings.Contains(msg, "User not found") || strings.Contains(msg, "user_not_found"):
		return &AuthError{Kind: UnknownAccount, Title: "Usuario no encontrado", Message: "No existe una cuenta con este email. Contacta al administrador.", Err: err}
	}
	return &AuthError{Kind: Other, Title: "Error al iniciar sesión", Message: msg, Err: err}
}

func suspended(err error) *AuthError {
	return &AuthError{Kind: AccountSuspended, Title: TitleSuspended, Message: MessageSuspended, Err: err}
}
