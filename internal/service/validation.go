package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var inputValidate = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput runs struct tag validation and maps failures onto a
// ValidationError keyed by JSON field name.
func validateInput(in any) *domain.ValidationError {
	verr := domain.NewValidationError()
	err := inputValidate.Struct(in)
	if err == nil {
		return verr
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("input", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "numeric":
		return "must be a decimal number"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

// parseAmount parses a decimal that already passed tag validation. An empty
// string is zero.
func parseAmount(verr *domain.ValidationError, field, s string, allowNegative bool) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		verr.Add(field, "must be a decimal number")
		return decimal.Zero
	}
	if !allowNegative && d.IsNegative() {
		verr.Add(field, "must not be negative")
	}
	return d
}
