package manager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/apikeys"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/iam/sessions"
	"github.com/codewandler/iam-go/core/iam/users"
	"github.com/codewandler/iam-go/core/secret"
)

var settings = iam.UserSettings{RequireUniqueEmail: true}

func startManager(t *testing.T) *Manager {
	t.Helper()
	te := es.StartTestEnv(t, es.WithAggregates(
		users.Empty(), roles.Empty(), sessions.Empty(), apikeys.Empty(),
	))
	m := New(te.Repository())
	t.Cleanup(m.Close)
	return m
}

func newUser(t *testing.T, m *Manager, name iam.UniqueName) *users.User {
	t.Helper()
	u, err := users.New(name, "acme", "system")
	require.NoError(t, err)
	require.NoError(t, m.Users.Save(t.Context(), settings, u))
	return u
}

func TestUserManager_uniqueName(t *testing.T) {
	m := startManager(t)
	first := newUser(t, m, "admin")

	dup, err := users.New("ADMIN", "acme", "system")
	require.NoError(t, err)
	err = m.Users.Save(t.Context(), settings, dup)
	var conflict *iam.UniqueNameAlreadyUsedError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, first.GetID(), conflict.ConflictID)
	require.ErrorIs(t, err, iam.ErrConflict)

	// same name in another tenant is fine
	other, err := users.New("admin", "other", "system")
	require.NoError(t, err)
	require.NoError(t, m.Users.Save(t.Context(), settings, other))

	// renaming to its own name again does not conflict with itself
	require.NoError(t, first.SetUniqueName("Admin", "system"))
	require.NoError(t, m.Users.Save(t.Context(), settings, first))
}

func TestUserManager_nameFreedByDeletion(t *testing.T) {
	m := startManager(t)
	first := newUser(t, m, "admin")
	require.NoError(t, first.Delete("system"))
	require.NoError(t, m.Users.Save(t.Context(), settings, first))

	newUser(t, m, "admin")
}

func TestUserManager_customIdentifier(t *testing.T) {
	m := startManager(t)
	id, err := iam.NewCustomIdentifier("EmployeeId", "42")
	require.NoError(t, err)

	a := newUser(t, m, "a")
	require.NoError(t, a.SetCustomIdentifier(id, "system"))
	require.NoError(t, m.Users.Save(t.Context(), settings, a))

	b := newUser(t, m, "b")
	require.NoError(t, b.SetCustomIdentifier(id, "system"))
	var conflict *iam.CustomIdentifierAlreadyUsedError
	require.ErrorAs(t, m.Users.Save(t.Context(), settings, b), &conflict)
	require.Equal(t, "EmployeeId", conflict.Key)
}

func TestUserManager_uniqueEmail(t *testing.T) {
	m := startManager(t)
	addr, err := iam.NewEmail("a@b.com", false)
	require.NoError(t, err)

	a := newUser(t, m, "a")
	require.NoError(t, a.Update("system", a.Edit().SetEmail(&addr)))
	require.NoError(t, m.Users.Save(t.Context(), settings, a))

	b := newUser(t, m, "b")
	require.NoError(t, b.Update("system", b.Edit().SetEmail(&addr)))
	var conflict *iam.EmailAddressAlreadyUsedError
	require.ErrorAs(t, m.Users.Save(t.Context(), settings, b), &conflict)
	require.Equal(t, []string{a.GetID()}, conflict.ConflictIDs)

	require.NoError(t, m.Users.Save(t.Context(), iam.UserSettings{}, b))
}

func TestUserManager_deleteCascadesToSessions(t *testing.T) {
	m := startManager(t)
	u := newUser(t, m, "admin")

	s, err := u.SignIn(iam.UserSettings{}, nil, nil, "")
	require.NoError(t, err)
	require.NoError(t, m.Sessions.Save(t.Context(), s))
	require.NoError(t, m.Users.Save(t.Context(), settings, u))

	require.NoError(t, u.Delete("system"))
	require.NoError(t, m.Users.Save(t.Context(), settings, u))

	loaded, err := m.Sessions.Repository().GetByID(t.Context(), s.GetID())
	require.NoError(t, err)
	require.True(t, loaded.IsDeleted())
	require.Equal(t, "system", loaded.UpdatedBy())
}

func TestUserManager_deleteKeepsSignedOutSessions(t *testing.T) {
	m := startManager(t)
	u := newUser(t, m, "admin")

	active, err := u.SignIn(iam.UserSettings{}, nil, nil, "")
	require.NoError(t, err)
	signedOut, err := u.SignIn(iam.UserSettings{}, nil, nil, "")
	require.NoError(t, err)
	ok, err := signedOut.SignOut("admin")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, m.Sessions.Save(t.Context(), active, signedOut))
	require.NoError(t, m.Users.Save(t.Context(), settings, u))

	require.NoError(t, u.Delete("system"))
	require.NoError(t, m.Users.Save(t.Context(), settings, u))

	loaded, err := m.Sessions.Repository().GetByID(t.Context(), active.GetID())
	require.NoError(t, err)
	require.True(t, loaded.IsDeleted())

	loaded, err = m.Sessions.Repository().GetByID(t.Context(), signedOut.GetID())
	require.NoError(t, err)
	require.False(t, loaded.IsDeleted())
	require.Equal(t, es.Version(2), loaded.GetVersion())
}

func TestRoleManager_uniqueNameAndRevoke(t *testing.T) {
	m := startManager(t)
	ctx := t.Context()

	admin, err := roles.New("admin", "acme", "system")
	require.NoError(t, err)
	require.NoError(t, m.Roles.Save(ctx, admin))

	dup, err := roles.New("Admin", "acme", "system")
	require.NoError(t, err)
	var conflict *iam.UniqueNameAlreadyUsedError
	require.ErrorAs(t, m.Roles.Save(ctx, dup), &conflict)

	u := newUser(t, m, "alice")
	require.NoError(t, u.AddRole(admin, "system"))
	require.NoError(t, m.Users.Save(ctx, settings, u))

	pw, err := secret.Hasher{Iterations: 10}.Hash("x")
	require.NoError(t, err)
	k, err := apikeys.New("bot", pw, "acme", "system")
	require.NoError(t, err)
	require.NoError(t, k.AddRole(admin, "system"))
	require.NoError(t, m.ApiKeys.Save(ctx, k))

	require.NoError(t, admin.Delete("system"))
	require.NoError(t, m.Roles.Save(ctx, admin))

	lu, err := m.Users.Repository().GetByID(ctx, u.GetID())
	require.NoError(t, err)
	require.False(t, lu.HasRole(admin.GetID()))
	lk, err := m.ApiKeys.Repository().GetByID(ctx, k.GetID())
	require.NoError(t, err)
	require.Empty(t, lk.Roles())
}
