package invoice

import (
	"strings"
	"unicode"
)

// Customer is the billed party. It is immutable once constructed.
type Customer struct {
	name    string
	email   string
	address string
	phone   string
}

// NewCustomer validates the raw fields and returns a Customer.
//
// name, email and address are required. The email must contain exactly one
// "@" followed by a non-empty domain that contains a ".". phone is optional.
// Values are taken as given; normalization (trimming, lowercasing) belongs to
// the field validators.
func NewCustomer(name, email, address, phone string) (Customer, error) {
	if strings.TrimSpace(name) == "" {
		return Customer{}, MissingField("name")
	}
	if strings.TrimSpace(email) == "" {
		return Customer{}, MissingField("email")
	}
	if !IsValidEmail(email) {
		return Customer{}, NewValidationError(ErrInvalidFormat, "email", email, "invalid email format")
	}
	if strings.TrimSpace(address) == "" {
		return Customer{}, MissingField("address")
	}

	return Customer{
		name:    name,
		email:   email,
		address: address,
		phone:   phone,
	}, nil
}

// IsValidEmail reports whether email has exactly one "@", the part after
// it is non-empty and contains a ".", and no character is whitespace or a
// control character.
func IsValidEmail(email string) bool {
	if strings.Count(email, "@") != 1 {
		return false
	}
	if strings.IndexFunc(email, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return false
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	return domain != "" && strings.Contains(domain, ".")
}

func (c Customer) Name() string { return c.name }
func (c Customer) Email() string { return c.email }
func (c Customer) Address() string { return c.address }

// Phone returns the phone number, or "" when none was given.
func (c Customer) Phone() string { return c.phone }
