package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// isValidEmail matches /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("side", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "brand" || s == "showroom"
	})
	return v
}

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// Struct validates request bodies tagged with `validate:"..."` and returns a
// single readable error naming the first failing fields.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return errors.New("Invalid request: " + strings.Join(parts, ", "))
}
