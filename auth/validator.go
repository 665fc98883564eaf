package auth

import (
	"fmt"
	"planning-poker/domain"
	"planning-poker/errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = newValidator()

// newValidator reports fields by their wire name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// ValidateCommand normalizes cmd in place and checks its tags. Failures wrap
// errors.ErrValidation and name the offending fields.
func ValidateCommand(cmd domain.Command) error {
	cmd.Normalize()
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	fields := lo.Map(fieldErrors, func(fe validator.FieldError, _ int) string {
		return fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag())
	})
	return fmt.Errorf("%w: invalid %s", errors.ErrValidation, strings.Join(fields, ", "))
}
