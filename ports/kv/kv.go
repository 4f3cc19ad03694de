// Package kv is the key-value port the consumer checkpoints are kept in.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("key not found")

type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	// Get returns ErrNotFound for unknown keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete succeeds for unknown keys.
	Delete(ctx context.Context, key string) error
}

// Put stores v as JSON.
func Put[T any](ctx context.Context, store Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, data)
}

// Get decodes the JSON value of key.
func Get[T any](ctx context.Context, store Store, key string) (out T, err error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}
