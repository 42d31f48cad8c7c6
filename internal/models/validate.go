package models

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/isdelr/accounts-be/internal/apperrors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report the JSON field name so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt only looks at the first 72 bytes, and "max" counts runes.
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation("%v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperrors.Validation("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " is not a valid email address"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "maxbytes":
		return fe.Field() + " must be at most " + fe.Param() + " bytes"
	default:
		return fe.Field() + " failed " + fe.Tag()
	}
}
