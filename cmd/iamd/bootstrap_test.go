package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/manager"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/iam/sessions"
	"github.com/codewandler/iam-go/core/iam/users"
	"github.com/codewandler/iam-go/internal/config"
)

func TestBootstrapAdmin(t *testing.T) {
	te := es.StartTestEnv(t, es.WithAggregates(users.Empty(), roles.Empty(), sessions.Empty()))
	m := manager.New(te.Repository())
	t.Cleanup(m.Close)

	b := config.Bootstrap{TenantID: "acme", AdminName: "root", AdminPassword: "Adm1n#Secret!", AdminRole: "admin"}
	settings := iam.DefaultTenantSettings()

	require.NoError(t, bootstrapAdmin(t.Context(), b, settings, m, slog.Default()))

	u, err := m.Users.Repository().LoadByUniqueName(t.Context(), "acme", "ROOT")
	require.NoError(t, err)
	require.NotNil(t, u)
	role, err := m.Roles.Repository().LoadByUniqueName(t.Context(), "acme", "admin")
	require.NoError(t, err)
	require.NotNil(t, role)
	require.True(t, u.HasRole(role.GetID()))
	version := u.GetVersion()
	require.NoError(t, u.Authenticate(settings.User, "Adm1n#Secret!", ""))

	require.NoError(t, bootstrapAdmin(t.Context(), b, settings, m, slog.Default()))
	again, err := m.Users.Repository().GetByID(t.Context(), u.GetID())
	require.NoError(t, err)
	require.Equal(t, version, again.GetVersion())
}

func TestBootstrapAdmin_weakPassword(t *testing.T) {
	te := es.StartTestEnv(t, es.WithAggregates(users.Empty(), roles.Empty(), sessions.Empty()))
	m := manager.New(te.Repository())
	t.Cleanup(m.Close)

	b := config.Bootstrap{AdminName: "root", AdminPassword: "short", AdminRole: "admin"}
	err := bootstrapAdmin(t.Context(), b, iam.DefaultTenantSettings(), m, slog.Default())
	require.ErrorContains(t, err, "admin password")
}
