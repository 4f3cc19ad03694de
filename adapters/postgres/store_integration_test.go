package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/iam-go/core/iam/readmodel"
)

func TestStore_postgres(t *testing.T) {
	dsn := NewTestContainer(t)

	s, err := Open(t.Context(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// idempotent
	require.NoError(t, Migrate(t.Context(), s.db))

	r := &readmodel.Role{UniqueName: "admin"}
	r.StreamID = "acme:r-1"
	r.TenantID = "acme"
	r.Version = 1
	require.NoError(t, s.Roles().Save(t.Context(), r))

	r.Version = 2
	r.UniqueName = "admins"
	require.NoError(t, s.Roles().Save(t.Context(), r))

	got, err := s.Roles().Get(t.Context(), "acme:r-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "admins", got.UniqueName)
	require.EqualValues(t, 2, got.Version)

	require.NoError(t, s.Roles().Delete(t.Context(), "acme:r-1"))
	got, err = s.Roles().Get(t.Context(), "acme:r-1")
	require.NoError(t, err)
	require.Nil(t, got)
}
