package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/iam-go/ports/kv"
)

type KvConfig struct {
	Connect Connector
	Bucket  string
}

// KvStore is a kv.Store backed by a JetStream key-value bucket.
type KvStore struct {
	kv        jetstream.KeyValue
	closeConn closeFunc
}

func NewKvStore(ctx context.Context, cfg KvConfig) (*KvStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}
	nc, closeConn, err := doConnect()
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		closeConn()
		return nil, err
	}
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  cfg.Bucket,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", cfg.Bucket, err)
	}
	return &KvStore{kv: bucket, closeConn: closeConn}, nil
}

func (k *KvStore) Close() { k.closeConn() }

func (k *KvStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := k.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (k *KvStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := k.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v.Value(), nil
}

func (k *KvStore) Delete(ctx context.Context, key string) error {
	err := k.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

var _ kv.Store = (*KvStore)(nil)
