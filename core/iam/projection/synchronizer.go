// Package projection replicates committed events into the read model.
//
// Every event is applied to its read entity only when the entity is exactly
// one version behind it; creation events only when the stream has neither an
// entity nor a tombstone. Any other delivery is rejected through Signals
// without touching the entity, so duplicates and out-of-order deliveries leave
// the read model intact.
//
// Store failures are returned as is, for the consumer to retry. A missing
// related entity or an unknown event is returned as an es.Permanent error.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/apikeys"
	"github.com/codewandler/iam-go/core/iam/otps"
	"github.com/codewandler/iam-go/core/iam/readmodel"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/iam/sessions"
	"github.com/codewandler/iam-go/core/iam/users"
)

const DefaultName = "iam-readmodel"

type (
	Option  func(*options)
	options struct {
		name    string
		log     *slog.Logger
		signals Signals
	}
)

func WithName(name string) Option   { return func(o *options) { o.name = name } }
func WithLog(l *slog.Logger) Option { return func(o *options) { o.log = l } }
func WithSignals(s Signals) Option  { return func(o *options) { o.signals = s } }

// Synchronizer is an es.Projection writing to a readmodel.Store.
type Synchronizer struct {
	name    string
	store   readmodel.Store
	log     *slog.Logger
	signals Signals
}

func New(store readmodel.Store, opts ...Option) *Synchronizer {
	o := options{name: DefaultName, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.signals == nil {
		o.signals = LogSignals{Log: o.log}
	}
	return &Synchronizer{
		name:    o.name,
		store:   store,
		log:     o.log.With(slog.String("projection", o.name)),
		signals: o.signals,
	}
}

func (s *Synchronizer) Name() string { return s.name }

func (s *Synchronizer) Handle(m es.MsgCtx) error {
	err := s.Sync(m.Context(), m.Envelope(), m.Record())
	if err == nil {
		return nil
	}
	if isFatal(err) {
		m.Log().Error("read model out of sync", slog.Any("error", err))
		return es.Permanent(err)
	}
	return err
}

func isFatal(err error) bool {
	return errors.Is(err, iam.ErrInvalidOperation) ||
		errors.Is(err, iam.ErrValidation) ||
		errors.Is(err, es.ErrUnknownEventType)
}

// Sync applies one decoded event. It returns an error only when the store
// fails or a related read entity is missing; version mismatches are reported
// through Signals.
func (s *Synchronizer) Sync(ctx context.Context, env es.Envelope, rec es.Record) error {
	switch env.AggregateType {
	case roles.AggType:
		return s.syncRole(ctx, env, rec)
	case users.AggType:
		return s.syncUser(ctx, env, rec)
	case sessions.AggType:
		return s.syncSession(ctx, env, rec)
	case apikeys.AggType:
		return s.syncApiKey(ctx, env, rec)
	case otps.AggType:
		return s.syncOTP(ctx, env, rec)
	}
	s.log.Debug("ignored aggregate type", slog.String("type", env.AggregateType))
	return nil
}

var _ es.Projection = (*Synchronizer)(nil)

// === version gate ===

type entity interface{ Base() *readmodel.Entity }

// create inserts a new entity for a creation event.
func create[T any, PT interface {
	*T
	entity
}](ctx context.Context, s *Synchronizer, table readmodel.Table[T], env es.Envelope, rec es.Record, fn func(PT) error) error {
	cur, err := table.Get(ctx, env.AggregateID)
	if err != nil {
		return err
	}
	if cur != nil {
		s.signals.EventNotHandled(ctx, env, 0, PT(cur).Base().Version)
		return nil
	}
	tomb, err := s.store.Tombstones().Get(ctx, env.AggregateID)
	if err != nil {
		return err
	}
	if tomb != nil {
		s.signals.EventNotHandled(ctx, env, 0, tomb.Version)
		return nil
	}
	id, err := iam.ParseID(env.AggregateID)
	if err != nil {
		return err
	}
	v := PT(new(T))
	*v.Base() = readmodel.Entity{
		StreamID:  env.AggregateID,
		TenantID:  id.TenantID,
		Version:   env.Version,
		CreatedBy: rec.ActorID,
		CreatedOn: rec.OccurredAt,
		UpdatedBy: rec.ActorID,
		UpdatedOn: rec.OccurredAt,
	}
	if err := fn(v); err != nil {
		return err
	}
	if err := table.Save(ctx, (*T)(v)); err != nil {
		return err
	}
	s.signals.EventHandled(ctx, env)
	return nil
}

// load returns the entity when it is one version behind env, or nil after
// signalling the mismatch. A deleted entity reports its tombstone version.
func load[T any, PT interface {
	*T
	entity
}](ctx context.Context, s *Synchronizer, table readmodel.Table[T], env es.Envelope) (PT, error) {
	cur, err := table.Get(ctx, env.AggregateID)
	if err != nil {
		return nil, err
	}
	expected := env.Version - 1
	if cur == nil {
		var actual es.Version
		tomb, err := s.store.Tombstones().Get(ctx, env.AggregateID)
		if err != nil {
			return nil, err
		}
		if tomb != nil {
			actual = tomb.Version
		}
		s.signals.EventNotHandled(ctx, env, expected, actual)
		return nil, nil
	}
	v := PT(cur)
	if actual := v.Base().Version; actual != expected {
		s.signals.EventNotHandled(ctx, env, expected, actual)
		return nil, nil
	}
	return v, nil
}

// update applies fn to the entity at the version before env.
func update[T any, PT interface {
	*T
	entity
}](ctx context.Context, s *Synchronizer, table readmodel.Table[T], env es.Envelope, rec es.Record, fn func(PT) error) error {
	v, err := load[T, PT](ctx, s, table, env)
	if err != nil || v == nil {
		return err
	}
	if err := fn(v); err != nil {
		return err
	}
	b := v.Base()
	b.Version = env.Version
	b.UpdatedBy = rec.ActorID
	b.UpdatedOn = rec.OccurredAt
	if err := table.Save(ctx, (*T)(v)); err != nil {
		return err
	}
	s.signals.EventHandled(ctx, env)
	return nil
}

// remove deletes the entity at the version before env, leaving a tombstone.
func remove[T any, PT interface {
	*T
	entity
}](ctx context.Context, s *Synchronizer, table readmodel.Table[T], env es.Envelope, rec es.Record) error {
	v, err := load[T, PT](ctx, s, table, env)
	if err != nil || v == nil {
		return err
	}
	tomb := &readmodel.Tombstone{
		StreamID:  env.AggregateID,
		TenantID:  v.Base().TenantID,
		Version:   env.Version,
		DeletedBy: rec.ActorID,
		DeletedOn: rec.OccurredAt,
	}
	if err := s.store.Tombstones().Save(ctx, tomb); err != nil {
		return err
	}
	if err := table.Delete(ctx, env.AggregateID); err != nil {
		return err
	}
	s.signals.EventHandled(ctx, env)
	return nil
}

func unexpected(rec es.Record) error {
	return fmt.Errorf("%w: %T", es.ErrUnknownEventType, rec.Event)
}

func missing(kind, id, owner string) error {
	return fmt.Errorf("%w: %s %s referenced by %s is not in the read model", iam.ErrInvalidOperation, kind, id, owner)
}

func applyAttributes(dst *iam.CustomAttributes, changes iam.CustomAttributeChanges) {
	if *dst == nil {
		*dst = iam.CustomAttributes{}
	}
	dst.Apply(changes)
}

// === actors ===

func (s *Synchronizer) saveActor(ctx context.Context, a *readmodel.Actor) error {
	return s.store.Actors().Save(ctx, a)
}

func (s *Synchronizer) markActorDeleted(ctx context.Context, id string) error {
	a, err := s.store.Actors().Get(ctx, id)
	if err != nil || a == nil {
		return err
	}
	a.IsDeleted = true
	return s.store.Actors().Save(ctx, a)
}
