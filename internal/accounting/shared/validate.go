package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// ValidateStruct runs struct tag validation and maps the first failure onto the ledger
// taxonomy: a failed "required" becomes ErrMissingField, anything else ErrInvalidField.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	fe := verrs[0]
	field := fe.Field()
	if fe.Tag() == "required" {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return fmt.Errorf("%w: %s", ErrInvalidField, field)
}
