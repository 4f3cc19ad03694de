package secret

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var testHasher = Hasher{Iterations: 10, SaltLength: 16, KeyLength: 32}

func TestPassword_roundTrip(t *testing.T) {
	p, err := testHasher.Hash("P@s$W0rD")
	require.NoError(t, err)

	s := p.String()
	require.True(t, strings.HasPrefix(s, "PBKDF2.10."))
	require.Len(t, strings.Split(s, "."), 4)

	parsed, err := ParsePassword(s)
	require.NoError(t, err)
	require.Equal(t, p, parsed)
	require.True(t, parsed.Verify("P@s$W0rD"))
	require.False(t, parsed.Verify("p@s$w0rd"))
}

func TestPassword_saltIsRandom(t *testing.T) {
	a, err := testHasher.Hash("same")
	require.NoError(t, err)
	b, err := testHasher.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a.Salt, b.Salt)
	require.NotEqual(t, a.String(), b.String())
}

func TestParsePassword_malformed(t *testing.T) {
	for _, s := range []string{
		"",
		"PBKDF2.10.c2FsdA==",
		"PBKDF2.0.c2FsdA==.aGFzaA==",
		"PBKDF2.x.c2FsdA==.aGFzaA==",
		"PBKDF2.10.***.aGFzaA==",
		"PBKDF2.10.c2FsdA==.aGFzaA==.extra",
	} {
		_, err := ParsePassword(s)
		require.ErrorIs(t, err, ErrMalformedPassword, s)
	}

	_, err := ParsePassword("BCRYPT.10.c2FsdA==.aGFzaA==")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestPassword_json(t *testing.T) {
	p, err := testHasher.Hash("secret")
	require.NoError(t, err)

	data, err := json.Marshal(struct {
		Password Password `json:"password"`
	}{p})
	require.NoError(t, err)

	var out struct {
		Password Password `json:"password"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, out.Password.Verify("secret"))
}

func TestPasswordSettings_Validate(t *testing.T) {
	settings := DefaultPasswordSettings()
	require.NoError(t, settings.Validate("P@s$W0rD"))

	err := settings.Validate("aaaa")
	var pe *PasswordError
	require.ErrorAs(t, err, &pe)
	require.ErrorIs(t, err, ErrPasswordTooWeak)
	require.Equal(t, []string{
		"PasswordTooShort",
		"PasswordRequiresUniqueChars",
		"PasswordRequiresNonAlphanumeric",
		"PasswordRequiresUpper",
		"PasswordRequiresDigit",
	}, pe.Codes)

	require.NoError(t, PasswordSettings{}.Validate("x"))
}
