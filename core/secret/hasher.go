package secret

import (
	"errors"
	"fmt"
	"unicode"
)

const (
	DefaultIterations = 600000
	DefaultSaltLength = 32
	DefaultKeyLength  = 32
)

var ErrPasswordTooWeak = errors.New("password does not meet requirements")

// PasswordSettings are the strength requirements a plaintext password must meet.
type PasswordSettings struct {
	RequiredLength         int  `yaml:"required_length"`
	RequiredUniqueChars    int  `yaml:"required_unique_chars"`
	RequireNonAlphanumeric bool `yaml:"require_non_alphanumeric"`
	RequireLowercase       bool `yaml:"require_lowercase"`
	RequireUppercase       bool `yaml:"require_uppercase"`
	RequireDigit           bool `yaml:"require_digit"`
}

func DefaultPasswordSettings() PasswordSettings {
	return PasswordSettings{
		RequiredLength:         8,
		RequiredUniqueChars:    8,
		RequireNonAlphanumeric: true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireDigit:           true,
	}
}

// PasswordError lists every requirement a password failed.
type PasswordError struct {
	Codes []string
}

func (e *PasswordError) Error() string { return fmt.Sprintf("%s: %v", ErrPasswordTooWeak, e.Codes) }
func (e *PasswordError) Unwrap() error { return ErrPasswordTooWeak }

// Validate checks plain against the settings.
func (s PasswordSettings) Validate(plain string) error {
	var (
		codes                       []string
		unique                      = map[rune]struct{}{}
		lower, upper, digit, symbol bool
	)
	for _, r := range plain {
		unique[r] = struct{}{}
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}
	if len([]rune(plain)) < s.RequiredLength {
		codes = append(codes, "PasswordTooShort")
	}
	if len(unique) < s.RequiredUniqueChars {
		codes = append(codes, "PasswordRequiresUniqueChars")
	}
	if s.RequireNonAlphanumeric && !symbol {
		codes = append(codes, "PasswordRequiresNonAlphanumeric")
	}
	if s.RequireLowercase && !lower {
		codes = append(codes, "PasswordRequiresLower")
	}
	if s.RequireUppercase && !upper {
		codes = append(codes, "PasswordRequiresUpper")
	}
	if s.RequireDigit && !digit {
		codes = append(codes, "PasswordRequiresDigit")
	}
	if len(codes) > 0 {
		return &PasswordError{Codes: codes}
	}
	return nil
}

// Hasher creates Passwords. The zero value uses the defaults.
type Hasher struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

func (h Hasher) withDefaults() Hasher {
	if h.Iterations < 1 {
		h.Iterations = DefaultIterations
	}
	if h.SaltLength < 1 {
		h.SaltLength = DefaultSaltLength
	}
	if h.KeyLength < 1 {
		h.KeyLength = DefaultKeyLength
	}
	return h
}

// Hash derives a Password from plain using a fresh random salt.
func (h Hasher) Hash(plain string) (Password, error) {
	h = h.withDefaults()
	salt, err := Generate(h.SaltLength)
	if err != nil {
		return Password{}, err
	}
	return Password{
		Algorithm:  AlgorithmPBKDF2,
		Iterations: h.Iterations,
		Salt:       salt,
		Hash:       derive(plain, salt, h.Iterations, h.KeyLength),
	}, nil
}

// ValidateAndHash enforces settings before hashing.
func (h Hasher) ValidateAndHash(settings PasswordSettings, plain string) (Password, error) {
	if err := settings.Validate(plain); err != nil {
		return Password{}, err
	}
	return h.Hash(plain)
}

// HashSecret hashes a generated byte secret in its canonical string form.
func (h Hasher) HashSecret(s []byte) (Password, error) {
	return h.Hash(EncodeSecret(s))
}
