package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/readmodel"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type row interface {
	readmodel.Keyed
	Tenant() iam.TenantID
}

// table stores one read entity kind as a JSONB document per key.
type table[T any, PT interface {
	*T
	row
}] struct {
	db   DBTX
	name string
}

func newTable[T any, PT interface {
	*T
	row
}](db DBTX, name string) *table[T, PT] {
	return &table[T, PT]{db: db, name: name}
}

func (t *table[T, PT]) Get(ctx context.Context, key string) (*T, error) {
	var data []byte
	err := t.db.QueryRowContext(ctx, `SELECT data FROM `+t.name+` WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s %s: %w", t.name, key, err)
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", t.name, key, err)
	}
	return v, nil
}

func (t *table[T, PT]) Save(ctx context.Context, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.name, err)
	}
	p := PT(v)
	_, err = t.db.ExecContext(ctx,
		`INSERT INTO `+t.name+` (key, tenant_id, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (key) DO UPDATE
		 SET tenant_id = EXCLUDED.tenant_id, data = EXCLUDED.data, updated_at = now()`,
		p.Key(), p.Tenant().String(), data,
	)
	if err != nil {
		return fmt.Errorf("save %s %s: %w", t.name, p.Key(), err)
	}
	return nil
}

func (t *table[T, PT]) Delete(ctx context.Context, key string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM `+t.name+` WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s %s: %w", t.name, key, err)
	}
	return nil
}
