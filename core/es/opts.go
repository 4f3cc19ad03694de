package es

import (
	"context"
	"log/slog"
)

type (
	valueOption[T any] struct{ v T }
	StoreOption        valueOption[EventStore]
	ContextOption      struct{ ctx context.Context }
	MemoryOption       struct{}
	ProjectionsOption  struct {
		ps []Projection
	}
	LogOption struct {
		l *slog.Logger
	}
	AggregateOption struct {
		aggregates []Aggregate
	}
	MultiOption[T any] struct{ opts []T }
	EnvOpts            MultiOption[EnvOption]
)

func WithInMemory() MemoryOption         { return MemoryOption{} }
func WithStore(s EventStore) StoreOption { return StoreOption{v: s} }

func WithProjections(ps ...Projection) ProjectionsOption { return ProjectionsOption{ps: ps} }
func WithCtx(ctx context.Context) ContextOption          { return ContextOption{ctx: ctx} }
func WithLog(l *slog.Logger) LogOption                   { return LogOption{l: l} }
func WithAggregates(a ...Aggregate) AggregateOption      { return AggregateOption{aggregates: a} }
func WithEnvOpts(opts ...EnvOption) EnvOpts              { return EnvOpts{opts: opts} }

func (o StoreOption) applyToEnv(e *envOptions) { e.store = o.v }
func (o MemoryOption) applyToEnv(e *envOptions) {
	e.store = NewInMemoryStore()
}
func (o ProjectionsOption) applyToEnv(e *envOptions) {
	e.projections = append(e.projections, o.ps...)
}
func (o ContextOption) applyToEnv(e *envOptions) {
	e.ctx = o.ctx
}
func (o LogOption) applyToEnv(e *envOptions) {
	e.log = o.l
}
func (o AggregateOption) applyToEnv(e *envOptions) {
	e.aggregates = append(e.aggregates, o.aggregates...)
}
func (o EnvOpts) applyToEnv(e *envOptions) {
	for _, opt := range o.opts {
		opt.applyToEnv(e)
	}
}
