// Package secret implements the password hash and token formats shared by
// users, sessions, API keys and one-time passwords.
package secret

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// AlgorithmPBKDF2 is PBKDF2 with HMAC-SHA256.
	AlgorithmPBKDF2 = "PBKDF2"

	passwordSeparator = "."
)

var (
	ErrMalformedPassword = errors.New("malformed password hash")
	ErrUnknownAlgorithm  = errors.New("unknown password algorithm")
)

// Password is a salted, iterated password hash. Its string form is
// {algorithm}.{iterations}.{base64 salt}.{base64 hash}.
type Password struct {
	Algorithm  string
	Iterations int
	Salt       []byte
	Hash       []byte
}

// ParsePassword decodes the string form of a Password.
func ParsePassword(s string) (Password, error) {
	parts := strings.Split(s, passwordSeparator)
	if len(parts) != 4 {
		return Password{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformedPassword, len(parts))
	}
	if parts[0] != AlgorithmPBKDF2 {
		return Password{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, parts[0])
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations < 1 {
		return Password{}, fmt.Errorf("%w: invalid iterations %q", ErrMalformedPassword, parts[1])
	}
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return Password{}, fmt.Errorf("%w: salt: %v", ErrMalformedPassword, err)
	}
	hash, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return Password{}, fmt.Errorf("%w: hash: %v", ErrMalformedPassword, err)
	}
	if len(salt) == 0 || len(hash) == 0 {
		return Password{}, fmt.Errorf("%w: empty salt or hash", ErrMalformedPassword)
	}
	return Password{Algorithm: parts[0], Iterations: iterations, Salt: salt, Hash: hash}, nil
}

func (p Password) IsZero() bool { return len(p.Hash) == 0 }

func (p Password) String() string {
	if p.IsZero() {
		return ""
	}
	return strings.Join([]string{
		p.Algorithm,
		strconv.Itoa(p.Iterations),
		base64.StdEncoding.EncodeToString(p.Salt),
		base64.StdEncoding.EncodeToString(p.Hash),
	}, passwordSeparator)
}

// Verify recomputes the hash of candidate with the stored parameters.
func (p Password) Verify(candidate string) bool {
	if p.IsZero() || p.Algorithm != AlgorithmPBKDF2 {
		return false
	}
	derived := derive(candidate, p.Salt, p.Iterations, len(p.Hash))
	return subtle.ConstantTimeCompare(derived, p.Hash) == 1
}

func (p Password) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

func (p *Password) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*p = Password{}
		return nil
	}
	parsed, err := ParsePassword(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func derive(plain string, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key([]byte(plain), salt, iterations, keyLen, sha256.New)
}
