package es

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memCp struct {
	mu   sync.Mutex
	seq  uint64
	sets int
}

func (m *memCp) Get(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq, nil
}

func (m *memCp) Set(_ context.Context, seq uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq, m.sets = seq, m.sets+1
	return nil
}

type seqRecorder struct {
	mu   sync.Mutex
	seqs []uint64
}

// handler records every delivery and returns fail(seq, attempt) as the
// handler error, attempt counting deliveries of seq from 1.
func (r *seqRecorder) handler(fail func(seq uint64, attempt int) error) HandleFunc {
	return func(m MsgCtx) error {
		r.mu.Lock()
		r.seqs = append(r.seqs, m.Seq())
		attempt := 0
		for _, s := range r.seqs {
			if s == m.Seq() {
				attempt++
			}
		}
		r.mu.Unlock()
		if fail == nil {
			return nil
		}
		return fail(m.Seq(), attempt)
	}
}

func (r *seqRecorder) get() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.seqs)
}

func failOnce(at uint64) func(uint64, int) error {
	return func(seq uint64, attempt int) error {
		if seq == at && attempt == 1 {
			return errors.New("connection reset")
		}
		return nil
	}
}

func seedCounters(t *testing.T, te *Env, names ...string) {
	t.Helper()
	repo := NewTypedRepository(te.Repository(), newCounter)
	for _, n := range names {
		require.NoError(t, repo.Save(t.Context(), createCounter(t, n)))
	}
}

func cpSeq(t *testing.T, cp *memCp) uint64 {
	seq, err := cp.Get(t.Context())
	require.NoError(t, err)
	return seq
}

func TestConsumer_checkpoint(t *testing.T) {
	te := StartTestEnv(t, WithAggregates(newCounter()))
	seedCounters(t, te, "a", "b", "c")

	cp := &memCp{}
	first := &seqRecorder{}
	c := te.NewConsumer(first.handler(nil), WithConsumerName("first"), WithCheckpointStore(cp))
	require.NoError(t, c.Start(t.Context()))
	require.Eventually(t, func() bool { return len(first.get()) == 3 }, time.Second, 5*time.Millisecond)
	c.Stop()
	require.EqualValues(t, 3, cpSeq(t, cp))

	second := &seqRecorder{}
	c = te.NewConsumer(second.handler(nil), WithConsumerName("second"), WithCheckpointStore(cp))
	require.NoError(t, c.Start(t.Context()))
	t.Cleanup(c.Stop)

	seedCounters(t, te, "d")
	require.Eventually(t, func() bool { return len(second.get()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []uint64{4}, second.get())
	require.Eventually(t, func() bool { return cpSeq(t, cp) == 4 }, time.Second, 5*time.Millisecond)
}

func TestConsumer_retriesTransientFailure(t *testing.T) {
	te := StartTestEnv(t, WithAggregates(newCounter()))
	seedCounters(t, te, "a", "b", "c")

	cp := &memCp{}
	rec := &seqRecorder{}
	c := te.NewConsumer(
		rec.handler(failOnce(2)),
		WithCheckpointStore(cp),
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
	)
	require.NoError(t, c.Start(t.Context()))
	t.Cleanup(c.Stop)

	require.Eventually(t, func() bool { return cpSeq(t, cp) == 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []uint64{1, 2, 2, 3}, rec.get())
}

func TestConsumer_skipsPermanentFailure(t *testing.T) {
	te := StartTestEnv(t, WithAggregates(newCounter()))
	seedCounters(t, te, "a", "b", "c")

	cp := &memCp{}
	rec := &seqRecorder{}
	c := te.NewConsumer(
		rec.handler(func(seq uint64, _ int) error {
			if seq == 2 {
				return Permanent(errors.New("missing relation"))
			}
			return nil
		}),
		WithCheckpointStore(cp),
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
	)
	require.NoError(t, c.Start(t.Context()))
	t.Cleanup(c.Stop)

	require.Eventually(t, func() bool { return cpSeq(t, cp) == 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []uint64{1, 2, 3}, rec.get())
}

func TestConsumer_stopWhileRetryingKeepsCheckpoint(t *testing.T) {
	te := StartTestEnv(t, WithAggregates(newCounter()))
	seedCounters(t, te, "a", "b")

	cp := &memCp{}
	failing := &seqRecorder{}
	c := te.NewConsumer(
		failing.handler(func(seq uint64, _ int) error {
			if seq == 2 {
				return errors.New("store down")
			}
			return nil
		}),
		WithCheckpointStore(cp),
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
	)
	go func() { _ = c.Start(t.Context()) }()
	require.Eventually(t, func() bool { return len(failing.get()) >= 3 }, time.Second, 5*time.Millisecond)
	c.Stop()
	require.EqualValues(t, 1, cpSeq(t, cp))

	resumed := &seqRecorder{}
	c = te.NewConsumer(resumed.handler(nil), WithCheckpointStore(cp))
	require.NoError(t, c.Start(t.Context()))
	t.Cleanup(c.Stop)

	require.Eventually(t, func() bool { return cpSeq(t, cp) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []uint64{2}, resumed.get())
}

func TestPermanent(t *testing.T) {
	require.NoError(t, Permanent(nil))
	base := errors.New("x")
	err := Permanent(base)
	require.True(t, IsPermanent(err))
	require.ErrorIs(t, err, base)
	require.Same(t, err, Permanent(err))
	require.False(t, IsPermanent(base))
}
