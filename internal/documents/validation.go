package documents

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var zaPhone = regexp.MustCompile(`^(\+27|0)[1-9][0-9]{8}$`)

// ErrInvalidClient is returned by ValidateClient.
var ErrInvalidClient = errors.New("documents: invalid client")

// FieldErrors maps a field name to the rule it failed.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, ", ")
}

// FieldMap exposes the failures for structured error responses.
func (f FieldErrors) FieldMap() map[string]string {
	return f
}

type clientRules struct {
	Name  string `validate:"required"`
	Phone string `validate:"omitempty,za_phone"`
	Email string `validate:"omitempty,email"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("za_phone", func(fl validator.FieldLevel) bool {
		return zaPhone.MatchString(fl.Field().String())
	})
	return v
}

var defaultValidator = newValidator()

func fieldErrors(err error) FieldErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"_": err.Error()}
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}

// ValidateClient checks the presentation-level client rules: a non-blank
// name, a plausible email and a South African phone number when given.
func ValidateClient(c Client) error {
	rules := clientRules{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.Join(strings.Fields(c.Phone), ""),
		Email: strings.TrimSpace(c.Email),
	}
	if err := defaultValidator.Struct(rules); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidClient, fieldErrors(err))
	}
	return nil
}

// validateDocument is the schema check applied at the store boundary.
func validateDocument(v *validator.Validate, doc Document) error {
	if err := v.Struct(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, fieldErrors(err))
	}
	return nil
}
