package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hotelops/backoffice/internal/domain"
)

// Validator checks request structs against their validate tags
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the back-office custom rules registered
func New() *Validator {
	v := validator.New()

	// Custom validators
	v.RegisterValidation("role", validateRole)
	v.RegisterValidation("capability", validateCapability)

	return &Validator{validate: v}
}

// Validate returns an ErrInvalidInput describing every failed field
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describe(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(messages, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "role":
		return field + " must be one of admin, manager, staff"
	case "capability":
		return field + " contains an unknown capability"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func validateRole(fl validator.FieldLevel) bool {
	switch domain.Role(fl.Field().String()) {
	case domain.RoleAdmin, domain.RoleManager, domain.RoleStaff:
		return true
	}
	return false
}

// validateCapability accepts a map keyed by capability names
func validateCapability(fl validator.FieldLevel) bool {
	for _, key := range fl.Field().MapKeys() {
		known := false
		for _, capability := range domain.Capabilities {
			if key.String() == string(capability) {
				known = true
				break
			}
		}
		if !known {
			return false
		}
	}
	return true
}
