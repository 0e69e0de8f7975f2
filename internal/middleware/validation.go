package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"cinehub/internal/apperr"
)

// RegisterValidators adds the custom binding rules to gin's validator and
// reports field names by their JSON key.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	v.RegisterTagNameFunc(jsonFieldName)
	return v.RegisterValidation("notblank", validateNotBlank)
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// validateNotBlank rejects strings that are empty after trimming.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// BindingError converts a binding failure into a validation error naming the
// first offending field.
func BindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required", "notblank":
			return apperr.Wrap(apperr.KindValidation, fmt.Sprintf("%s required", fe.Field()), err)
		}
		return apperr.Wrap(apperr.KindValidation, fmt.Sprintf("Invalid %s", fe.Field()), err)
	}
	return apperr.Wrap(apperr.KindValidation, "Malformed request body", err)
}
