// AngelaMos | 2026
// validate.go

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validatorInstance = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("koanf")
	})
	return v
}()

// validate reports the first failing field by the environment name an
// operator would set to fix it.
func validate(c *Config) error {
	err := validatorInstance.Struct(c)

	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		_, key, _ := strings.Cut(fe.Namespace(), ".")
		if fe.Tag() == "required" || strings.HasPrefix(fe.Tag(), "required_") {
			return fmt.Errorf("%s is required", displayName(key))
		}
		return fmt.Errorf("%s fails %q (got %v)", displayName(key), fe.Tag(), fe.Value())
	}
	if err != nil {
		return err
	}
	return checkPolicy(c)
}
