package iam

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"
)

// Verification records who verified a contact and when.
type Verification struct {
	By string    `json:"by,omitempty"`
	On time.Time `json:"on"`
}

type Email struct {
	Address    string `json:"address"`
	IsVerified bool   `json:"is_verified"`
}

func NewEmail(address string, isVerified bool) (Email, error) {
	address, err := trimmed("EmailAddress", address)
	if err != nil {
		return Email{}, err
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return Email{}, NewValidationError("EmailAddress", "EmailValidator", fmt.Sprintf("%q is not an email address", address))
	}
	return Email{Address: address, IsVerified: isVerified}, nil
}

type Phone struct {
	CountryCode string `json:"country_code,omitempty"`
	Number      string `json:"number"`
	Extension   string `json:"extension,omitempty"`
	IsVerified  bool   `json:"is_verified"`
}

func NewPhone(countryCode, number, extension string, isVerified bool) (Phone, error) {
	countryCode = strings.TrimSpace(countryCode)
	if countryCode != "" && (len(countryCode) != 2 || strings.ToUpper(countryCode) != countryCode) {
		return Phone{}, NewValidationError("Phone.CountryCode", "CountryCodeValidator", "must be a 2-letter upper-case country code")
	}
	number, err := trimmed("Phone.Number", number)
	if err != nil {
		return Phone{}, err
	}
	digits := 0
	for i, r := range number {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0, r == ' ', r == '-', r == '(', r == ')', r == '.':
		default:
			return Phone{}, NewValidationError("Phone.Number", "PhoneNumberValidator", fmt.Sprintf("contains disallowed character %q", r))
		}
	}
	if digits < 4 || digits > 15 {
		return Phone{}, NewValidationError("Phone.Number", "PhoneNumberValidator", "must contain between 4 and 15 digits")
	}
	extension = strings.TrimSpace(extension)
	if len(extension) > 10 || strings.TrimFunc(extension, unicode.IsDigit) != "" {
		return Phone{}, NewValidationError("Phone.Extension", "PhoneExtensionValidator", "must be at most 10 digits")
	}
	return Phone{CountryCode: countryCode, Number: number, Extension: extension, IsVerified: isVerified}, nil
}

// E164 is a best-effort compact rendering of the number.
func (p Phone) E164() string {
	var b strings.Builder
	for _, r := range p.Number {
		if unicode.IsDigit(r) || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type Address struct {
	Street     string `json:"street"`
	Locality   string `json:"locality"`
	PostalCode string `json:"postal_code,omitempty"`
	Region     string `json:"region,omitempty"`
	Country    string `json:"country"`
	IsVerified bool   `json:"is_verified"`
}

func NewAddress(street, locality, postalCode, region, country string, isVerified bool) (Address, error) {
	var failures []ValidationFailure
	required := func(property, value string) string {
		v, err := trimmed(property, value)
		if err != nil {
			failures = append(failures, err.(*ValidationError).Failures...)
		}
		return v
	}
	optional := func(property, value string) string {
		if strings.TrimSpace(value) == "" {
			return ""
		}
		return required(property, value)
	}
	a := Address{
		Street:     required("Address.Street", street),
		Locality:   required("Address.Locality", locality),
		PostalCode: optional("Address.PostalCode", postalCode),
		Region:     optional("Address.Region", region),
		Country:    required("Address.Country", country),
		IsVerified: isVerified,
	}
	if len(failures) > 0 {
		return Address{}, &ValidationError{Failures: failures}
	}
	return a, nil
}

func (a Address) Format() string {
	line := strings.TrimSpace(strings.Join([]string{a.Locality, a.Region, a.PostalCode}, " "))
	return strings.Join([]string{a.Street, strings.Join(strings.Fields(line), " "), a.Country}, "\n")
}
