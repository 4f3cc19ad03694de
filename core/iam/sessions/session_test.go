package sessions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/secret"
)

var hasher = secret.Hasher{Iterations: 10}

func newPersistent(t *testing.T) (*Session, string) {
	t.Helper()
	pw, err := hasher.Hash("s3cr3t")
	require.NoError(t, err)
	s, err := New(iam.NewID("acme"), &pw, "alice")
	require.NoError(t, err)
	return s, "s3cr3t"
}

func TestSession_create(t *testing.T) {
	userID := iam.NewID("acme")
	s, err := New(userID, nil, "alice")
	require.NoError(t, err)
	require.True(t, s.IsActive())
	require.False(t, s.IsPersistent())
	require.Equal(t, userID.String(), s.UserID())
	require.Equal(t, iam.TenantID("acme"), s.TenantID())

	_, err = NewWithID(iam.NewID("other"), userID, nil, "alice")
	var tm *iam.TenantMismatchError
	require.ErrorAs(t, err, &tm)
}

func TestSession_signOutIsIdempotent(t *testing.T) {
	s, _ := newPersistent(t)

	ok, err := s.SignOut("bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, s.IsActive())
	require.Equal(t, "bob", s.SignedOutBy())
	require.NotNil(t, s.SignedOutOn())

	ok, err = s.SignOut("bob")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, es.Version(2), s.GetVersion())

	var signedOut int
	for _, r := range s.Uncommitted() {
		if r.Type == "SessionSignedOut" {
			signedOut++
		}
	}
	require.Equal(t, 1, signedOut)
}

func TestSession_renew(t *testing.T) {
	s, current := newPersistent(t)
	next, err := hasher.Hash("n3xt")
	require.NoError(t, err)

	upd := s.Edit()
	require.NoError(t, upd.SetCustomAttribute("ip", "10.0.0.1"))
	require.NoError(t, s.Renew(current, next, "alice", upd))
	require.Equal(t, es.Version(2), s.GetVersion())
	require.Equal(t, iam.CustomAttributes{"ip": "10.0.0.1"}, s.CustomAttributes())

	require.ErrorIs(t, s.Renew(current, next, "alice", nil), iam.ErrIncorrectSessionSecret)
	require.NoError(t, s.Renew("n3xt", next, "alice", nil))

	_, err = s.SignOut("alice")
	require.NoError(t, err)
	err = s.Renew("n3xt", next, "alice", nil)
	require.ErrorIs(t, err, iam.ErrSessionIsNotActive)
	require.ErrorIs(t, err, iam.ErrInvalidCredentials)
}

func TestSession_renewEphemeral(t *testing.T) {
	s, err := New(iam.NewID(""), nil, "")
	require.NoError(t, err)
	next, err := hasher.Hash("x")
	require.NoError(t, err)
	require.ErrorIs(t, s.Renew("x", next, "", nil), iam.ErrSessionIsNotPersistent)
}

func TestSession_replay(t *testing.T) {
	s, current := newPersistent(t)
	next, err := hasher.Hash("n3xt")
	require.NoError(t, err)
	require.NoError(t, s.Renew(current, next, "alice", nil))
	upd := s.Edit()
	require.NoError(t, upd.SetCustomAttribute("device", "phone"))
	require.NoError(t, s.Update("alice", upd))
	_, err = s.SignOut("alice")
	require.NoError(t, err)

	replayed := Empty()
	replayed.SetID(s.GetID())
	require.NoError(t, es.Load(replayed, s.Uncommitted()...))
	require.Equal(t, es.Version(4), replayed.GetVersion())
	require.False(t, replayed.IsActive())
	require.True(t, replayed.IsPersistent())
	require.Equal(t, s.CustomAttributes(), replayed.CustomAttributes())
	require.Equal(t, s.SignedOutOn(), replayed.SignedOutOn())
}

func TestRepository_loadByUser(t *testing.T) {
	te := es.StartTestEnv(t, es.WithAggregates(Empty()))
	repo := NewRepository(te.Repository())

	userID := iam.NewID("acme")
	a, err := New(userID, nil, "")
	require.NoError(t, err)
	b, err := New(userID, nil, "")
	require.NoError(t, err)
	_, err = b.SignOut("")
	require.NoError(t, err)
	other, err := New(iam.NewID("acme"), nil, "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(t.Context(), a, b, other))

	all, err := repo.LoadByUser(t.Context(), userID.String())
	require.NoError(t, err)
	require.Len(t, all, 2)

	active, err := repo.LoadActiveByUser(t.Context(), userID.String())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, a.GetID(), active[0].GetID())
}
