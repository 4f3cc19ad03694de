package postgres

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/iam-go/core/iam/readmodel"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(db), mock
}

func TestTable_Get(t *testing.T) {
	s, mock := newStoreWithMock(t)

	q := `(?s)^SELECT\s+data\s+FROM\s+iam_users\s+WHERE\s+key\s*=\s*\$1$`
	mock.ExpectQuery(q).
		WithArgs("acme:u-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"stream_id":"acme:u-1","tenant_id":"acme","version":3,"unique_name":"alice","roles":["r-1"]}`)))

	u, err := s.Users().Get(t.Context(), "acme:u-1")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "alice", u.UniqueName)
	require.EqualValues(t, 3, u.Version)
	require.Equal(t, []string{"r-1"}, u.Roles)
}

func TestTable_Get_missing(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM\s+iam_roles`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	r, err := s.Roles().Get(t.Context(), "nope")
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestTable_Get_error(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM\s+iam_sessions`).
		WithArgs("s-1").
		WillReturnError(errors.New("db down"))

	_, err := s.Sessions().Get(t.Context(), "s-1")
	require.ErrorContains(t, err, "db down")
}

func TestTable_Save(t *testing.T) {
	s, mock := newStoreWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+iam_api_keys\s*\(key,\s*tenant_id,\s*data,\s*updated_at\).*ON\s+CONFLICT\s+\(key\)\s+DO\s+UPDATE`
	mock.ExpectExec(q).
		WithArgs("acme:k-1", "acme", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	k := &readmodel.ApiKey{DisplayName: "ci"}
	k.StreamID = "acme:k-1"
	k.TenantID = "acme"
	k.CreatedOn = time.Now()
	require.NoError(t, s.ApiKeys().Save(t.Context(), k))
}

func TestTable_Save_actor(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+iam_actors`).
		WithArgs("u-1", "", sqlmock.AnyArg()).
		WillReturnError(errors.New("boom"))

	err := s.Actors().Save(t.Context(), &readmodel.Actor{ID: "u-1", Type: readmodel.ActorUser})
	require.ErrorContains(t, err, "save iam_actors u-1")
}

func TestTable_Save_tombstone(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+iam_tombstones`).
		WithArgs("acme:r-1", "acme", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM\s+iam_tombstones`).
		WithArgs("acme:r-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"stream_id":"acme:r-1","tenant_id":"acme","version":4,"deleted_by":"system"}`)))

	require.NoError(t, s.Tombstones().Save(t.Context(), &readmodel.Tombstone{StreamID: "acme:r-1", TenantID: "acme", Version: 4, DeletedBy: "system"}))
	tomb, err := s.Tombstones().Get(t.Context(), "acme:r-1")
	require.NoError(t, err)
	require.EqualValues(t, 4, tomb.Version)
}

func TestTable_Delete(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+iam_one_time_passwords\s+WHERE\s+key\s*=\s*\$1$`).
		WithArgs("o-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.OneTimePasswords().Delete(t.Context(), "o-1"))
}
