// Package validate checks form input before it reaches the gateway and
// reports the first problem with a Spanish message.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/miboda/internal/category"
)

// FieldError is a rejected field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return category.ID(fl.Field().String()).Valid()
		})
	})
	return v
}

// messages overrides the generic text for a field and tag.
var messages = map[string]string{
	"email.email":             "Por favor ingresa un email válido",
	"email.required":          "Por favor ingresa un email válido",
	"password.min":            "La contraseña debe tener al menos 6 caracteres",
	"password.required":       "La contraseña debe tener al menos 6 caracteres",
	"fullName.min":            "El nombre debe tener al menos 2 caracteres",
	"confirmPassword.eqfield": "Las contraseñas no coinciden",
	"title.notblank":          "El título es obligatorio",
	"name.notblank":           "El nombre es obligatorio",
	"amount.gt":               "El monto debe ser mayor a cero",
	"amount.gte":              "El monto no puede ser negativo",
	"category.required":       "Selecciona una categoría",
	"category.category":       "Categoría no válida",
	"type.oneof":              "Tipo de transacción no válido",
	"time.datetime":           "La hora debe tener el formato HH:MM",
	"activity.notblank":       "La actividad es obligatoria",
	"total_budget.gt":         "El presupuesto debe ser mayor a cero",
	"guest_count.gt":          "El número de invitados debe ser mayor a cero",
	"due_date.datetime":       "La fecha debe tener el formato AAAA-MM-DD",
	"wedding_date.datetime":   "La fecha debe tener el formato AAAA-MM-DD",
	"price_approx.gte":        "El precio no puede ser negativo",
	"fullName.required":       "El nombre debe tener al menos 2 caracteres",
}

// RegisterValidation adds a custom tag, e.g. a closed enumeration check.
func RegisterValidation(tag string, fn func(s string) bool) {
	_ = instance().RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
}

// Struct validates s and returns a *FieldError for the first failing field.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &FieldError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("El campo %s es obligatorio", fe.Field())
	case "gt":
		return fmt.Sprintf("El campo %s debe ser mayor a %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("El campo %s debe tener al menos %s caracteres", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("El campo %s no es válido", fe.Field())
}
