package projection

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/apikeys"
	"github.com/codewandler/iam-go/core/iam/otps"
	"github.com/codewandler/iam-go/core/iam/readmodel"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/iam/sessions"
	"github.com/codewandler/iam-go/core/iam/users"
	"github.com/codewandler/iam-go/ports/kv"
)

type notHandled struct {
	eventType        string
	expected, actual es.Version
}

type recorder struct {
	mu         sync.Mutex
	handled    []string
	notHandled []notHandled
}

func (r *recorder) EventHandled(_ context.Context, env es.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, env.Type)
}

func (r *recorder) EventNotHandled(_ context.Context, env es.Envelope, expected, actual es.Version) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notHandled = append(r.notHandled, notHandled{env.Type, expected, actual})
}

func (r *recorder) rejected() []notHandled {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.notHandled)
}

func newSync(t *testing.T) (*Synchronizer, *readmodel.MemoryStore, *recorder) {
	t.Helper()
	store := readmodel.NewMemoryStore()
	rec := &recorder{}
	return New(store, WithSignals(rec)), store, rec
}

func deliver(t *testing.T, s *Synchronizer, aggType, id string, v es.Version, ev es.Event) error {
	t.Helper()
	now := time.Now().UTC()
	env := es.Envelope{
		ID:            "env-" + ev.EventType(),
		AggregateType: aggType,
		AggregateID:   id,
		Version:       v,
		Type:          ev.EventType(),
		ActorID:       "system",
		OccurredAt:    now,
	}
	return s.Sync(t.Context(), env, es.Record{Type: env.Type, Version: v, ActorID: "system", OccurredAt: now, Event: ev})
}

func TestSynchronizer_userCreateAndUpdate(t *testing.T) {
	s, store, sig := newSync(t)
	id := iam.NewID("acme").String()

	require.NoError(t, deliver(t, s, users.AggType, id, 1, &users.UserCreated{TenantID: "acme", UniqueName: "admin"}))
	email, err := iam.NewEmail("a@b.com", false)
	require.NoError(t, err)
	require.NoError(t, deliver(t, s, users.AggType, id, 2, &users.UserUpdated{Email: iam.Set(email)}))

	u, err := store.Users().Get(t.Context(), id)
	require.NoError(t, err)
	require.Equal(t, es.Version(2), u.Version)
	require.Equal(t, "a@b.com", u.Email.Address)
	require.Equal(t, iam.TenantID("acme"), u.TenantID)
	require.False(t, u.IsConfirmed)
	require.Equal(t, []string{"UserCreated", "UserUpdated"}, sig.handled)

	actor, err := store.Actors().Get(t.Context(), id)
	require.NoError(t, err)
	require.Equal(t, "admin", actor.DisplayName)
	require.Equal(t, "a@b.com", *actor.EmailAddress)
}

func TestSynchronizer_rejectsGapsAndDuplicates(t *testing.T) {
	s, store, sig := newSync(t)
	id := iam.NewID("acme").String()

	// nothing to update yet
	require.NoError(t, deliver(t, s, roles.AggType, id, 2, &roles.RoleUniqueNameChanged{UniqueName: "x"}))
	require.NoError(t, deliver(t, s, roles.AggType, id, 1, &roles.RoleCreated{TenantID: "acme", UniqueName: "admin"}))
	// duplicate creation
	require.NoError(t, deliver(t, s, roles.AggType, id, 1, &roles.RoleCreated{TenantID: "acme", UniqueName: "other"}))
	// gap: version 3 while the entity is at 1
	require.NoError(t, deliver(t, s, roles.AggType, id, 3, &roles.RoleUniqueNameChanged{UniqueName: "y"}))

	r, err := store.Roles().Get(t.Context(), id)
	require.NoError(t, err)
	require.Equal(t, es.Version(1), r.Version)
	require.Equal(t, "admin", r.UniqueName)
	require.Equal(t, []notHandled{
		{"RoleUniqueNameChanged", 1, 0},
		{"RoleCreated", 0, 1},
		{"RoleUniqueNameChanged", 2, 1},
	}, sig.notHandled)
	require.Equal(t, []string{"RoleCreated"}, sig.handled)
}

func TestSynchronizer_missingRelatedEntity(t *testing.T) {
	s, store, _ := newSync(t)
	userID := iam.NewID("acme").String()
	require.NoError(t, deliver(t, s, users.AggType, userID, 1, &users.UserCreated{TenantID: "acme", UniqueName: "admin"}))

	err := deliver(t, s, users.AggType, userID, 2, &users.UserRoleAdded{RoleID: "acme:nope"})
	require.ErrorIs(t, err, iam.ErrInvalidOperation)
	u, err := store.Users().Get(t.Context(), userID)
	require.NoError(t, err)
	require.Equal(t, es.Version(1), u.Version)
	require.Empty(t, u.Roles)

	err = deliver(t, s, sessions.AggType, iam.NewID("acme").String(), 1, &sessions.SessionCreated{UserID: "acme:missing"})
	require.ErrorIs(t, err, iam.ErrInvalidOperation)
}

func TestSynchronizer_deleteMarksActor(t *testing.T) {
	s, store, _ := newSync(t)
	ctx := t.Context()
	keyID := iam.NewID("acme").String()
	roleID := iam.NewID("acme").String()

	require.NoError(t, deliver(t, s, roles.AggType, roleID, 1, &roles.RoleCreated{TenantID: "acme", UniqueName: "admin"}))
	require.NoError(t, deliver(t, s, apikeys.AggType, keyID, 1, &apikeys.ApiKeyCreated{TenantID: "acme", DisplayName: "bot"}))
	require.NoError(t, deliver(t, s, apikeys.AggType, keyID, 2, &apikeys.ApiKeyRoleAdded{RoleID: roleID}))

	k, err := store.ApiKeys().Get(ctx, keyID)
	require.NoError(t, err)
	require.Equal(t, []string{roleID}, k.Roles)

	require.NoError(t, deliver(t, s, apikeys.AggType, keyID, 3, &apikeys.ApiKeyDeleted{}))
	k, err = store.ApiKeys().Get(ctx, keyID)
	require.NoError(t, err)
	require.Nil(t, k)

	actor, err := store.Actors().Get(ctx, keyID)
	require.NoError(t, err)
	require.True(t, actor.IsDeleted)
	require.Equal(t, readmodel.ActorApiKey, actor.Type)
}

func TestSynchronizer_otpCounts(t *testing.T) {
	s, store, _ := newSync(t)
	id := iam.NewID("acme").String()
	require.NoError(t, deliver(t, s, otps.AggType, id, 1, &otps.OneTimePasswordCreated{TenantID: "acme"}))
	require.NoError(t, deliver(t, s, otps.AggType, id, 2, &otps.OneTimePasswordValidationFailed{}))
	require.NoError(t, deliver(t, s, otps.AggType, id, 3, &otps.OneTimePasswordValidationSucceeded{}))

	o, err := store.OneTimePasswords().Get(t.Context(), id)
	require.NoError(t, err)
	require.Equal(t, 2, o.AttemptCount)
	require.True(t, o.HasValidationSucceeded)
}

func TestSynchronizer_asProjection(t *testing.T) {
	s, store, _ := newSync(t)
	te := es.StartTestEnv(t,
		es.WithAggregates(users.Empty(), roles.Empty(), sessions.Empty()),
		es.WithProjections(s),
	)
	ctx := t.Context()
	repo := users.NewRepository(te.Repository())

	u, err := users.New("admin", "acme", "system")
	require.NoError(t, err)
	email, err := iam.NewEmail("a@b.com", false)
	require.NoError(t, err)
	require.NoError(t, u.Update("system", u.Edit().SetEmail(&email)))
	require.NoError(t, repo.Save(ctx, u))

	sess, err := u.SignIn(iam.UserSettings{}, nil, nil, "")
	require.NoError(t, err)
	require.NoError(t, sessions.NewRepository(te.Repository()).Save(ctx, sess))
	require.NoError(t, repo.Save(ctx, u))

	require.Eventually(t, func() bool {
		got, err := store.Sessions().Get(ctx, sess.GetID())
		return err == nil && got != nil
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		got, err := store.Users().Get(ctx, u.GetID())
		return err == nil && got != nil && got.Version == 3 && got.AuthenticatedOn != nil
	}, 5*time.Second, 10*time.Millisecond)

	got, err := store.Users().Get(ctx, u.GetID())
	require.NoError(t, err)
	require.Equal(t, "a@b.com", got.Email.Address)
}

func TestSynchronizer_creationAfterDeletionIsRejected(t *testing.T) {
	s, store, sig := newSync(t)
	ctx := t.Context()
	id := iam.NewID("acme").String()

	require.NoError(t, deliver(t, s, roles.AggType, id, 1, &roles.RoleCreated{TenantID: "acme", UniqueName: "admin"}))
	require.NoError(t, deliver(t, s, roles.AggType, id, 2, &roles.RoleDeleted{}))
	require.NoError(t, deliver(t, s, roles.AggType, id, 1, &roles.RoleCreated{TenantID: "acme", UniqueName: "admin"}))
	require.NoError(t, deliver(t, s, roles.AggType, id, 2, &roles.RoleDeleted{}))

	r, err := store.Roles().Get(ctx, id)
	require.NoError(t, err)
	require.Nil(t, r)

	tomb, err := store.Tombstones().Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, es.Version(2), tomb.Version)
	require.Equal(t, iam.TenantID("acme"), tomb.TenantID)
	require.Equal(t, "system", tomb.DeletedBy)

	require.Equal(t, []notHandled{
		{"RoleCreated", 0, 2},
		{"RoleDeleted", 1, 2},
	}, sig.notHandled)
}

type failingRoles struct {
	readmodel.Table[readmodel.Role]
	failAt es.Version
	failed atomic.Bool
}

func (t *failingRoles) Save(ctx context.Context, r *readmodel.Role) error {
	if r.Version == t.failAt && t.failed.CompareAndSwap(false, true) {
		return errors.New("connection reset")
	}
	return t.Table.Save(ctx, r)
}

type failingStore struct {
	*readmodel.MemoryStore
	roles *failingRoles
}

func (s *failingStore) Roles() readmodel.Table[readmodel.Role] { return s.roles }

func newFailingStore(failAt es.Version) *failingStore {
	m := readmodel.NewMemoryStore()
	return &failingStore{MemoryStore: m, roles: &failingRoles{Table: m.Roles(), failAt: failAt}}
}

func TestSynchronizer_handleClassifiesErrors(t *testing.T) {
	store := newFailingStore(1)
	s := New(store, WithSignals(&recorder{}))
	id := iam.NewID("acme").String()
	now := time.Now().UTC()
	msg := func(v es.Version, ev es.Event) es.MsgCtx {
		env := es.Envelope{AggregateType: roles.AggType, AggregateID: id, Version: v, Type: ev.EventType(), OccurredAt: now}
		return es.NewMsgCtx(t.Context(), s.log, env, es.Record{Type: env.Type, Version: v, OccurredAt: now, Event: ev})
	}

	err := s.Handle(msg(1, &roles.RoleCreated{TenantID: "acme", UniqueName: "admin"}))
	require.Error(t, err)
	require.False(t, es.IsPermanent(err), "store failures are retried")
	require.NoError(t, s.Handle(msg(1, &roles.RoleCreated{TenantID: "acme", UniqueName: "admin"})))

	userID := iam.NewID("acme").String()
	require.NoError(t, deliver(t, s, users.AggType, userID, 1, &users.UserCreated{TenantID: "acme", UniqueName: "admin"}))
	env := es.Envelope{AggregateType: users.AggType, AggregateID: userID, Version: 2, Type: "UserRoleAdded", OccurredAt: now}
	err = s.Handle(es.NewMsgCtx(t.Context(), s.log, env, es.Record{Version: 2, OccurredAt: now, Event: &users.UserRoleAdded{RoleID: "acme:nope"}}))
	require.ErrorIs(t, err, iam.ErrInvalidOperation)
	require.True(t, es.IsPermanent(err))
}

func TestSynchronizer_convergesAfterStoreFailure(t *testing.T) {
	store := newFailingStore(2)
	sig := &recorder{}
	s := New(store, WithSignals(sig))
	te := es.StartTestEnv(t, es.WithAggregates(roles.Empty()))
	ctx := t.Context()
	cp := kv.NewCpStore(kv.NewMemStore(), s.Name())

	c := te.NewConsumer(s, es.WithCheckpointStore(cp), es.WithRetryBackoff(time.Millisecond, 10*time.Millisecond))
	require.NoError(t, c.Start(ctx))
	t.Cleanup(c.Stop)

	repo := roles.NewRepository(te.Repository())
	r, err := roles.New("admin", "acme", "system")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, r))
	require.NoError(t, r.SetUniqueName("operators", "system"))
	require.NoError(t, repo.Save(ctx, r))
	name := "Operators"
	require.NoError(t, r.Update("system", r.Edit().SetDisplayName(&name)))
	require.NoError(t, repo.Save(ctx, r))

	require.Eventually(t, func() bool {
		got, err := store.Roles().Get(ctx, r.GetID())
		return err == nil && got != nil && got.Version == 3
	}, 5*time.Second, 10*time.Millisecond)

	got, err := store.Roles().Get(ctx, r.GetID())
	require.NoError(t, err)
	require.Equal(t, "operators", got.UniqueName)
	require.Equal(t, &name, got.DisplayName)
	require.True(t, store.roles.failed.Load())
	require.Empty(t, sig.rejected())
	require.Eventually(t, func() bool {
		seq, err := cp.Get(ctx)
		return err == nil && seq == 3
	}, 5*time.Second, 10*time.Millisecond)
}
