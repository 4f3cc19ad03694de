package iam

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	id := NewID("acme")
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
	require.Equal(t, "acme:"+id.EntityID.String(), id.String())

	global := NewID("")
	require.Equal(t, global.EntityID.String(), global.String())
	parsed, err = ParseID(global.String())
	require.NoError(t, err)
	require.True(t, parsed.TenantID.IsZero())

	_, err = ParseID("acme:not-a-uuid")
	require.ErrorIs(t, err, ErrValidation)
	_, err = ParseID("ac me:" + uuid.NewString())
	require.ErrorIs(t, err, ErrValidation)
}

func TestUniqueName(t *testing.T) {
	settings := UniqueNameSettings{AllowedCharacters: DefaultAllowedCharacters}

	n, err := NewUniqueName(settings, "  Admin ")
	require.NoError(t, err)
	require.Equal(t, UniqueName("Admin"), n)
	require.Equal(t, "ADMIN", n.Normalize())

	_, err = NewUniqueName(settings, "ad min")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.True(t, ve.Has("UniqueName", "AllowedCharactersValidator"))

	_, err = NewUniqueName(settings, "   ")
	require.ErrorAs(t, err, &ve)
	require.True(t, ve.Has("UniqueName", "NotEmptyValidator"))

	_, err = NewUniqueName(UniqueNameSettings{}, "ad min")
	require.NoError(t, err)
}

func TestValueObjects(t *testing.T) {
	_, err := NewEmail("a@b.com", false)
	require.NoError(t, err)
	_, err = NewEmail("Ada <a@b.com>", false)
	require.ErrorIs(t, err, ErrValidation)

	p, err := NewPhone("CA", "+1 (514) 555-0123", "123", true)
	require.NoError(t, err)
	require.Equal(t, "+15145550123", p.E164())
	_, err = NewPhone("ca", "5145550123", "", false)
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewPhone("", "call me", "", false)
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewAddress("", "", "", "", "", false)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Failures, 3)

	loc, err := NewLocale("fr-ca")
	require.NoError(t, err)
	require.Equal(t, "fr-CA", loc)

	_, err = NewTimeZone("America/Montreal")
	require.NoError(t, err)
	_, err = NewTimeZone("Mars/Olympus")
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewURL("Website", "https://example.com/me")
	require.NoError(t, err)
	_, err = NewURL("Website", "example.com")
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewFutureTime("ExpiresOn", time.Now().Add(-time.Second))
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewBirthdate(time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrValidation)

	require.True(t, IsIdentifier("_employee_no2"))
	require.False(t, IsIdentifier("2fa"))
	require.False(t, IsIdentifier("employee-no"))
}

func TestChange_json(t *testing.T) {
	type diff struct {
		Name Change[string] `json:"name,omitzero"`
		Nick Change[string] `json:"nick,omitzero"`
		Age  Change[int]    `json:"age,omitzero"`
	}

	data, err := json.Marshal(diff{Name: Set("ada"), Nick: Clear[string]()})
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"ada","nick":null}`, string(data))

	var out diff
	require.NoError(t, json.Unmarshal(data, &out))
	v, ok := out.Name.Value()
	require.True(t, ok)
	require.Equal(t, "ada", v)
	require.True(t, out.Nick.IsSet())
	require.Nil(t, out.Nick.Ptr())
	require.True(t, out.Age.IsZero())

	cur := new(string)
	*cur = "x"
	out.Nick.ApplyTo(&cur)
	require.Nil(t, cur)
	out.Age.ApplyTo(new(*int))
}

func TestAttributeEditor(t *testing.T) {
	current := CustomAttributes{"color": "red", "size": "L"}
	e := NewAttributeEditor(current)

	require.NoError(t, e.Set("color", "red"))
	require.False(t, e.HasChanges())

	require.NoError(t, e.Set("color", "blue"))
	e.Remove("size")
	e.Remove("missing")
	require.NoError(t, e.Set("shape", " round "))
	require.Error(t, e.Set("not valid", "x"))

	changes := e.Changes()
	require.Len(t, changes, 3)
	require.Equal(t, "blue", *changes["color"])
	require.Nil(t, changes["size"])
	require.Equal(t, "round", *changes["shape"])

	next := current.Clone()
	next.Apply(changes)
	require.Equal(t, CustomAttributes{"color": "blue", "shape": "round"}, next)

	// setting back to the current value drops the change
	require.NoError(t, e.Set("color", "red"))
	require.NotContains(t, e.Changes(), "color")
}

func TestErrors(t *testing.T) {
	require.ErrorIs(t, ErrMaximumAttemptsReached, ErrInvalidCredentials)
	require.False(t, errors.Is(ErrMaximumAttemptsReached, ErrOneTimePasswordIsExpired))

	var err error = &UniqueNameAlreadyUsedError{AggType: "user", UniqueName: "admin"}
	require.ErrorIs(t, err, ErrConflict)
	require.ErrorIs(t, EnsureSameTenant("a", "b"), ErrConflict)
	require.NoError(t, EnsureSameTenant("a", "a"))
}
