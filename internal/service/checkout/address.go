package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"coffeecart/internal/domain"
	"github.com/go-playground/validator/v10"
)

const minPhoneDigits = 10

// NewAddressValidator reports fields by their JSON names and knows the "phone" rule.
func NewAddressValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("phone", validPhone); err != nil {
		panic(fmt.Sprintf("register phone validation: %v", err))
	}
	return v
}

func validPhone(fl validator.FieldLevel) bool {
	return countDigits(fl.Field().String()) >= minPhoneDigits
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// NormalizeAddress trims every field.
func NormalizeAddress(a domain.Address) domain.Address {
	a.ID = strings.TrimSpace(a.ID)
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Email = strings.TrimSpace(a.Email)
	a.Street = strings.TrimSpace(a.Street)
	a.Department = strings.TrimSpace(a.Department)
	a.City = strings.TrimSpace(a.City)
	a.Note = strings.TrimSpace(a.Note)
	return a
}

// ValidateAddress reports every invalid field at once as a *domain.AddressError.
func ValidateAddress(v *validator.Validate, a domain.Address) error {
	err := v.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate address: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &domain.AddressError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return fmt.Sprintf("must contain at least %d digits", minPhoneDigits)
	default:
		return "is invalid"
	}
}

// AddressBook is the read-only list of the user's saved addresses.
type AddressBook interface {
	Addresses(ctx context.Context, token string) ([]domain.Address, error)
}

func resolveSavedAddress(ctx context.Context, book AddressBook, token, id string) (domain.Address, error) {
	if book == nil {
		return domain.Address{}, fmt.Errorf("address %s: %w", id, domain.ErrNotFound)
	}
	saved, err := book.Addresses(ctx, token)
	if err != nil {
		return domain.Address{}, fmt.Errorf("load addresses: %w", err)
	}
	for _, a := range saved {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Address{}, fmt.Errorf("address %s: %w", id, domain.ErrNotFound)
}
