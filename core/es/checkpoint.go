package es

import (
	"context"
	"errors"
)

// ErrCheckpointNotFound may be returned by Checkpoint implementations that
// distinguish a missing checkpoint from sequence 0.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// CpStore persists the last global sequence a consumer has handled. Get
// returns 0 when nothing was stored yet.
type CpStore interface {
	Get(ctx context.Context) (lastSeq uint64, err error)
	Set(ctx context.Context, lastSeq uint64) error
}
