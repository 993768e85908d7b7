// README: Struct validation with domain rules (passport, VIN, phone, full name).
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
)

var (
	validate *validator.Validate

	passportRegex = regexp.MustCompile(`^\d{4} \d{6}$`)
	vinRegex      = regexp.MustCompile(`^[A-Za-z0-9]{17}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("passport", func(fl validator.FieldLevel) bool {
		return passportRegex.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = validate.RegisterValidation("vin", func(fl validator.FieldLevel) bool {
		return vinRegex.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(normalizePhone(fl.Field().String()))
	})
	_ = validate.RegisterValidation("full_name", func(fl validator.FieldLevel) bool {
		return len(strings.Fields(fl.Field().String())) >= 2
	})
	_ = validate.RegisterValidation("trimmed_min2", func(fl validator.FieldLevel) bool {
		return len([]rune(strings.TrimSpace(fl.Field().String()))) >= 2
	})
}

// Struct validates s and reports the first violated field as a user input error.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Wrap(apperr.KindUserInput, fmt.Sprintf("invalid %s", strings.ToLower(fe.Field())), err)
	}
	return err
}

// Var validates a single value against tag.
func Var(v any, tag, field string) error {
	if err := validate.Var(v, tag); err != nil {
		return apperr.Wrap(apperr.KindUserInput, "invalid "+field, err)
	}
	return nil
}

func normalizePhone(s string) string {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return r.Replace(strings.TrimSpace(s))
}

// NormalizePhone strips separators so stored numbers compare equal.
func NormalizePhone(s string) string {
	return normalizePhone(s)
}
