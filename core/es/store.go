package es

import (
	"context"
	"errors"
)

var ErrStoreNoEvents = errors.New("no events to store")

// LoadOptions narrow EventStore.Load.
type LoadOptions struct {
	// StartVersion skips envelopes below it. Repositories use it to load only
	// what an aggregate has not applied yet.
	StartVersion Version
}

type StoreLoadOption func(*LoadOptions)

func WithStartAtVersion(v Version) StoreLoadOption {
	return func(o *LoadOptions) { o.StartVersion = v }
}

func NewLoadOptions(opts ...StoreLoadOption) LoadOptions {
	var o LoadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// EventStore stores and loads envelopes per aggregate stream.
type (
	StoreAppendResult struct {
		LastSeq uint64
	}

	EventStore interface {
		Stream
		// Load returns the envelopes of one stream in version order. A missing
		// stream yields no envelopes and no error.
		Load(ctx context.Context, aggType string, aggID string, opts ...StoreLoadOption) ([]Envelope, error)
		// Append appends events only if the stream is at expectedVersion,
		// otherwise it fails with ErrConcurrencyConflict and stores nothing.
		Append(ctx context.Context, aggType string, aggID string, expectedVersion Version, events []Envelope) (*StoreAppendResult, error)
		// IDs lists the stream ids of one aggregate type.
		IDs(ctx context.Context, aggType string) ([]string, error)
	}
)
