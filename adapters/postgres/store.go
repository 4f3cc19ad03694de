// Package postgres persists the IAM read model in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/codewandler/iam-go/adapters/postgres/migrations"
	"github.com/codewandler/iam-go/core/iam/readmodel"
)

type Store struct {
	db       *sql.DB
	roles    *table[readmodel.Role, *readmodel.Role]
	users    *table[readmodel.User, *readmodel.User]
	sessions *table[readmodel.Session, *readmodel.Session]
	apiKeys  *table[readmodel.ApiKey, *readmodel.ApiKey]
	otps     *table[readmodel.OneTimePassword, *readmodel.OneTimePassword]
	actors   *table[readmodel.Actor, *readmodel.Actor]
	tombs    *table[readmodel.Tombstone, *readmodel.Tombstone]
}

// New wraps an open database. The schema is expected to be migrated.
func New(db *sql.DB) *Store {
	return &Store{
		db:       db,
		roles:    newTable[readmodel.Role](db, "iam_roles"),
		users:    newTable[readmodel.User](db, "iam_users"),
		sessions: newTable[readmodel.Session](db, "iam_sessions"),
		apiKeys:  newTable[readmodel.ApiKey](db, "iam_api_keys"),
		otps:     newTable[readmodel.OneTimePassword](db, "iam_one_time_passwords"),
		actors:   newTable[readmodel.Actor](db, "iam_actors"),
		tombs:    newTable[readmodel.Tombstone](db, "iam_tombstones"),
	}
}

// Open connects through the pgx driver, verifies the connection and applies
// pending migrations.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	log.Debug("read model store ready")
	return New(db), nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Roles() readmodel.Table[readmodel.Role]       { return s.roles }
func (s *Store) Users() readmodel.Table[readmodel.User]       { return s.users }
func (s *Store) Sessions() readmodel.Table[readmodel.Session] { return s.sessions }
func (s *Store) ApiKeys() readmodel.Table[readmodel.ApiKey]   { return s.apiKeys }
func (s *Store) OneTimePasswords() readmodel.Table[readmodel.OneTimePassword] {
	return s.otps
}
func (s *Store) Actors() readmodel.Table[readmodel.Actor]         { return s.actors }
func (s *Store) Tombstones() readmodel.Table[readmodel.Tombstone] { return s.tombs }

var _ readmodel.Store = (*Store)(nil)
