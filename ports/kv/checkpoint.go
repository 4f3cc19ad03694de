package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codewandler/iam-go/core/es"
)

// CpStore keeps the checkpoint of one consumer under a key of a Store.
type CpStore struct {
	store Store
	key   string
}

// NewCpStore returns the checkpoint store of the consumer called name.
func NewCpStore(store Store, name string) *CpStore {
	return &CpStore{store: store, key: "cp-" + strings.NewReplacer(":", "-", ".", "-").Replace(name)}
}

func (c *CpStore) Get(ctx context.Context) (uint64, error) {
	v, err := Get[uint64](ctx, c.store, c.key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get checkpoint %s: %w", c.key, err)
	}
	return v, nil
}

func (c *CpStore) Set(ctx context.Context, lastSeq uint64) error {
	return Put(ctx, c.store, c.key, lastSeq)
}

var _ es.CpStore = (*CpStore)(nil)
