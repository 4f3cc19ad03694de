package iam

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"golang.org/x/text/language"
)

const maxLength = 255

func trimmed(property, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", NewValidationError(property, "NotEmptyValidator", "must not be empty")
	}
	if utf8.RuneCountInString(value) > maxLength {
		return "", NewValidationError(property, "MaximumLengthValidator", fmt.Sprintf("must be at most %d characters", maxLength))
	}
	return value, nil
}

// UniqueName is the tenant-scoped name of a user or role. Comparisons are
// case-insensitive, see Normalize.
type UniqueName string

func NewUniqueName(settings UniqueNameSettings, value string) (UniqueName, error) {
	value, err := trimmed("UniqueName", value)
	if err != nil {
		return "", err
	}
	if allowed := settings.AllowedCharacters; allowed != "" {
		for _, r := range value {
			if !strings.ContainsRune(allowed, r) {
				return "", NewValidationError("UniqueName", "AllowedCharactersValidator", fmt.Sprintf("contains disallowed character %q", r))
			}
		}
	}
	return UniqueName(value), nil
}

func (n UniqueName) String() string { return string(n) }

// Normalize is the form unique names are compared in.
func (n UniqueName) Normalize() string { return NormalizeKey(string(n)) }

// NormalizeKey folds case for case-insensitive lookups.
func NormalizeKey(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func NewDisplayName(value string) (string, error) { return trimmed("DisplayName", value) }
func NewPersonName(property, value string) (string, error) {
	return trimmed(property, value)
}
func NewGender(value string) (string, error) { return trimmed("Gender", value) }

func NewDescription(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", NewValidationError("Description", "NotEmptyValidator", "must not be empty")
	}
	return value, nil
}

func NewLocale(value string) (string, error) {
	value, err := trimmed("Locale", value)
	if err != nil {
		return "", err
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", NewValidationError("Locale", "LocaleValidator", err.Error())
	}
	return tag.String(), nil
}

func NewTimeZone(value string) (string, error) {
	value, err := trimmed("TimeZone", value)
	if err != nil {
		return "", err
	}
	if _, err := time.LoadLocation(value); err != nil || value == "Local" {
		return "", NewValidationError("TimeZone", "TimeZoneValidator", fmt.Sprintf("unknown time zone %q", value))
	}
	return value, nil
}

func NewURL(property, value string) (string, error) {
	value, err := trimmed(property, value)
	if err != nil {
		return "", err
	}
	u, err := url.ParseRequestURI(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", NewValidationError(property, "UrlValidator", fmt.Sprintf("%q is not an absolute http(s) url", value))
	}
	return u.String(), nil
}

// NewBirthdate accepts past dates only.
func NewBirthdate(value time.Time) (time.Time, error) {
	if value.IsZero() || !value.Before(time.Now()) {
		return time.Time{}, NewValidationError("Birthdate", "PastValidator", "must be in the past")
	}
	return value.UTC(), nil
}

// NewFutureTime accepts instants strictly after now, as used for expirations.
func NewFutureTime(property string, value time.Time) (time.Time, error) {
	if !value.After(time.Now()) {
		return time.Time{}, NewValidationError(property, "FutureValidator", "must be in the future")
	}
	return value.UTC(), nil
}

// IsIdentifier reports whether s is a letter or underscore followed by
// letters, digits or underscores.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func NewIdentifierKey(property, key string) (string, error) {
	key, err := trimmed(property, key)
	if err != nil {
		return "", err
	}
	if !IsIdentifier(key) {
		return "", NewValidationError(property, "IdentifierValidator", fmt.Sprintf("%q is not an identifier", key))
	}
	return key, nil
}

// CustomIdentifier is an externally assigned, tenant-unique key/value pair.
type CustomIdentifier struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func NewCustomIdentifier(key, value string) (CustomIdentifier, error) {
	k, err := NewIdentifierKey("CustomIdentifierKey", key)
	if err != nil {
		return CustomIdentifier{}, err
	}
	v, err := trimmed("CustomIdentifierValue", value)
	if err != nil {
		return CustomIdentifier{}, err
	}
	return CustomIdentifier{Key: k, Value: v}, nil
}
