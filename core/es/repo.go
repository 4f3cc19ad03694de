package es

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NotFoundError lists the stream ids of one aggregate type that have no events.
type NotFoundError struct {
	AggType string
	IDs     []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s [%s]", ErrAggregateNotFound, e.AggType, strings.Join(e.IDs, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrAggregateNotFound }

type (
	repoOpts struct {
		metrics ESMetrics
	}
	RepositoryOption interface{ applyToRepository(*repoOpts) }
	Repository       interface {
		// Load replays the stream of agg onto it. agg must be empty and carry its id.
		Load(ctx context.Context, agg Aggregate) error
		// Save appends the staged records of agg at its expected version.
		Save(ctx context.Context, agg Aggregate) error
		// IDs lists the stream ids of one aggregate type.
		IDs(ctx context.Context, aggType string) ([]string, error)
	}
)

// Repository rehydrates aggregates and persists new events with optimistic concurrency.
type repository struct {
	log      *slog.Logger
	store    EventStore
	registry Decoder
	metrics  ESMetrics
}

func NewRepository(
	log *slog.Logger,
	store EventStore,
	registry Decoder,
	opts ...RepositoryOption,
) Repository {
	options := repoOpts{metrics: NopESMetrics()}
	for _, opt := range opts {
		opt.applyToRepository(&options)
	}

	return &repository{
		log:      log.With(slog.String("repo", fmt.Sprintf("%T", store))),
		store:    store,
		registry: registry,
		metrics:  options.metrics,
	}
}

func (r *repository) Load(ctx context.Context, agg Aggregate) error {
	aggType := agg.GetAggType()
	if aggType == "" {
		return errors.New("aggregate type is empty")
	}
	aggID := agg.GetID()
	if aggID == "" {
		return errors.New("aggregate id is empty")
	}
	if len(agg.Uncommitted()) != 0 {
		return errors.New("aggregate has uncommitted events (dirty=true)")
	}

	defer r.metrics.RepoLoadDuration(aggType).ObserveDuration()

	minVersion := agg.GetVersion() + 1
	loaded, err := r.store.Load(ctx, aggType, aggID, WithStartAtVersion(minVersion))
	if err != nil {
		return fmt.Errorf("failed to load agg_type=%s agg_id=%s: %w", aggType, aggID, err)
	}

	records := make([]Record, 0, len(loaded))
	for _, env := range loaded {
		rec, err := r.registry.Record(env)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := Load(agg, records...); err != nil {
		return err
	}

	if agg.GetVersion() == 0 {
		return &NotFoundError{AggType: aggType, IDs: []string{aggID}}
	}

	r.log.Debug(
		"loaded",
		slog.Group(
			"agg",
			slog.String("type", aggType),
			slog.String("id", aggID),
			agg.GetVersion().SlogAttr(),
		),
		slog.Int("num_events", len(records)),
	)

	return nil
}

func (r *repository) Save(ctx context.Context, agg Aggregate) error {
	uncommitted := agg.Uncommitted()
	if len(uncommitted) == 0 {
		return nil
	}
	aggType := agg.GetAggType()
	if aggType == "" {
		return errors.New("aggregate type is empty")
	}
	aggID := agg.GetID()
	if aggID == "" {
		return errors.New("aggregate id is empty")
	}

	defer r.metrics.RepoSaveDuration(aggType).ObserveDuration()

	expectVersion := agg.base().ExpectedVersion()
	newEnvs := make([]Envelope, 0, len(uncommitted))
	for _, rec := range uncommitted {
		env, err := newEnvelope(gonanoid.Must(), aggType, aggID, rec)
		if err != nil {
			return err
		}
		newEnvs = append(newEnvs, env)
	}

	res, err := r.store.Append(ctx, aggType, aggID, expectVersion, newEnvs)
	if err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			r.metrics.ConcurrencyConflict(aggType)
		}
		return fmt.Errorf("failed to save agg_type=%s agg_id=%s: %w", aggType, aggID, err)
	}
	if res == nil {
		return errors.New("append returned nil result")
	}

	agg.ClearUncommitted()

	r.log.Debug(
		"saved",
		slog.Group(
			"agg",
			slog.String("id", aggID),
			slog.String("type", aggType),
			slog.Uint64("seq", res.LastSeq),
			agg.GetVersion().SlogAttr(),
		),
		slog.Int("num_events", len(newEnvs)),
	)

	return nil
}

func (r *repository) IDs(ctx context.Context, aggType string) ([]string, error) {
	return r.store.IDs(ctx, aggType)
}

var _ Repository = &repository{}

// === TypedRepository ===

type (
	TypedRepository[T Aggregate] interface {
		GetAggType() string
		New() T
		GetByID(ctx context.Context, aggID string) (T, error)
		// GetMany loads every id or fails with a *NotFoundError naming the missing ones.
		GetMany(ctx context.Context, aggIDs ...string) ([]T, error)
		// All replays every stream of the type, deleted aggregates included.
		All(ctx context.Context) ([]T, error)
		// Find returns the aggregates of the type matching keep.
		Find(ctx context.Context, keep func(T) bool) ([]T, error)
		Save(ctx context.Context, aggs ...T) error
	}
)

type typedRepo[T Aggregate] struct {
	r       Repository
	newFn   func() T
	aggType string
}

func (t *typedRepo[T]) New() T             { return t.newFn() }
func (t *typedRepo[T]) GetAggType() string { return t.aggType }

func (t *typedRepo[T]) GetByID(ctx context.Context, aggID string) (a T, err error) {
	if aggID == "" {
		return a, errors.New("aggregate id is empty")
	}
	a = t.newFn()
	a.SetID(aggID)
	if err = t.r.Load(ctx, a); err != nil {
		return a, err
	}
	return a, nil
}

func (t *typedRepo[T]) GetMany(ctx context.Context, aggIDs ...string) ([]T, error) {
	var (
		out     = make([]T, 0, len(aggIDs))
		missing []string
	)
	for _, id := range aggIDs {
		a, err := t.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrAggregateNotFound) {
				missing = append(missing, id)
				continue
			}
			return nil, err
		}
		out = append(out, a)
	}
	if len(missing) > 0 {
		return nil, &NotFoundError{AggType: t.aggType, IDs: missing}
	}
	return out, nil
}

func (t *typedRepo[T]) All(ctx context.Context) ([]T, error) {
	return t.Find(ctx, func(T) bool { return true })
}

func (t *typedRepo[T]) Find(ctx context.Context, keep func(T) bool) ([]T, error) {
	ids, err := t.r.IDs(ctx, t.aggType)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	for _, id := range ids {
		a, err := t.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *typedRepo[T]) Save(ctx context.Context, aggs ...T) error {
	for _, a := range aggs {
		if err := t.r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// NewTypedRepository builds a TypedRepository whose aggregates come from newFn.
func NewTypedRepository[T Aggregate](r Repository, newFn func() T) TypedRepository[T] {
	return &typedRepo[T]{r: r, newFn: newFn, aggType: newFn().GetAggType()}
}
