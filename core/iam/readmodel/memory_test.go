package readmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_copiesOnGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	missing, err := s.Roles().Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	r := &Role{Entity: Entity{StreamID: "r1", Version: 1}, UniqueName: "admin"}
	require.NoError(t, s.Roles().Save(ctx, r))
	r.UniqueName = "changed"

	got, err := s.Roles().Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "admin", got.UniqueName)
	got.Version = 7

	again, err := s.Roles().Get(ctx, "r1")
	require.NoError(t, err)
	require.EqualValues(t, 1, again.Version)

	require.NoError(t, s.Roles().Delete(ctx, "r1"))
	gone, err := s.Roles().Get(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestMemoryStore_actorsKeyedByID(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Actors().Save(t.Context(), &Actor{ID: "u1", Type: ActorUser, DisplayName: "admin"}))
	a, err := s.Actors().Get(t.Context(), "u1")
	require.NoError(t, err)
	require.Equal(t, ActorUser, a.Type)
	require.Equal(t, 1, s.actors.Len())
}
