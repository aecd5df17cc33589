package resource

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/Haleralex/edgeapi/internal/domain/errors"
)

// Validator проверяет записи по тегам validate и отдаёт ошибки
// с json именами полей.
type Validator struct {
	v *validator.Validate
}

// NewValidator создаёт Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Используем json tag для имён полей в ошибках
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{v: v}
}

// Struct проверяет запись. Возвращает domainerrors.ValidationErrors
// в порядке объявления полей.
func (val *Validator) Struct(record any) error {
	err := val.v.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate record: %w", err)
	}

	var out domainerrors.ValidationErrors
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), validationMessage(fe))
	}
	return out
}

// validationMessage возвращает человекочитаемое сообщение об ошибке.
func validationMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "uuid":
		return field + " must be a valid UUID"
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		if isCollection(fe.Kind()) {
			return field + " must contain at most " + fe.Param() + " items"
		}
		return field + " must be at most " + fe.Param() + " characters"
	case "min":
		if isCollection(fe.Kind()) {
			return field + " must contain at least " + fe.Param() + " items"
		}
		return field + " must be at least " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}

func isCollection(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Map
}
