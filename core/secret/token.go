package secret

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const tokenSeparator = "."

var ErrMalformedToken = errors.New("malformed token")

var b64url = base64.RawURLEncoding

// ApiKeyToken is the bearer credential of an API key:
// {prefix}.{base64url(16 id bytes)}.{base64url(secret)}.
type ApiKeyToken struct {
	ID     uuid.UUID
	Secret []byte
}

func (t ApiKeyToken) String(prefix string) string {
	return strings.Join([]string{prefix, b64url.EncodeToString(t.ID[:]), b64url.EncodeToString(t.Secret)}, tokenSeparator)
}

// ParseApiKeyToken decodes s, requiring prefix to match case-sensitively.
func ParseApiKeyToken(prefix, s string) (ApiKeyToken, error) {
	parts := strings.Split(s, tokenSeparator)
	if len(parts) != 3 {
		return ApiKeyToken{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}
	if parts[0] != prefix {
		return ApiKeyToken{}, fmt.Errorf("%w: prefix %q does not match", ErrMalformedToken, parts[0])
	}
	rawID, err := b64url.DecodeString(parts[1])
	if err != nil {
		return ApiKeyToken{}, fmt.Errorf("%w: id: %v", ErrMalformedToken, err)
	}
	id, err := uuid.FromBytes(rawID)
	if err != nil {
		return ApiKeyToken{}, fmt.Errorf("%w: id: %v", ErrMalformedToken, err)
	}
	s2, err := b64url.DecodeString(parts[2])
	if err != nil || len(s2) == 0 {
		return ApiKeyToken{}, fmt.Errorf("%w: secret", ErrMalformedToken)
	}
	return ApiKeyToken{ID: id, Secret: s2}, nil
}

// RefreshToken is the credential of a persistent session:
// base64url(16 id bytes ++ secret).
type RefreshToken struct {
	ID     uuid.UUID
	Secret []byte
}

func (t RefreshToken) String() string {
	raw := make([]byte, 0, len(t.ID)+len(t.Secret))
	raw = append(raw, t.ID[:]...)
	raw = append(raw, t.Secret...)
	return b64url.EncodeToString(raw)
}

func ParseRefreshToken(s string) (RefreshToken, error) {
	raw, err := b64url.DecodeString(s)
	if err != nil {
		return RefreshToken{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if len(raw) <= len(uuid.UUID{}) {
		return RefreshToken{}, fmt.Errorf("%w: too short", ErrMalformedToken)
	}
	id, _ := uuid.FromBytes(raw[:16])
	return RefreshToken{ID: id, Secret: raw[16:]}, nil
}
