package es

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type (
	EnvOption interface {
		applyToEnv(*envOptions)
	}

	envOptions struct {
		ctx         context.Context
		log         *slog.Logger
		store       EventStore
		metrics     ESMetrics
		aggregates  []Aggregate
		projections []Projection
	}
)

func newEnvOptions(opts ...EnvOption) envOptions {
	options := envOptions{}
	for _, opt := range opts {
		opt.applyToEnv(&options)
	}
	return options
}

// Env wires a store, an event registry, a repository and the consumers running
// its projections.
type Env struct {
	ctx          context.Context
	id           string
	done         chan struct{}
	shutdownOnce sync.Once
	cancelCtx    context.CancelFunc
	log          *slog.Logger
	store        EventStore
	registry     *EventRegistry
	repo         Repository
	metrics      ESMetrics
	consumers    []*Consumer
}

func (e *Env) Repository() Repository   { return e.repo }
func (e *Env) Store() EventStore        { return e.store }
func (e *Env) Registry() *EventRegistry { return e.registry }
func (e *Env) Log() *slog.Logger        { return e.log }
func (e *Env) Context() context.Context { return e.ctx }
func (e *Env) Consumers() []*Consumer   { return e.consumers }

func NewEnv(opts ...EnvOption) (e *Env, err error) {
	var (
		id      = gonanoid.Must(6)
		options = newEnvOptions(opts...)
	)

	if options.store == nil {
		return nil, errors.New("env requires a store")
	}

	ctx := options.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	log := options.log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("env", id))

	metrics := options.metrics
	store := options.store
	if metrics == nil {
		metrics = NopESMetrics()
	} else {
		store = InstrumentStore(store, metrics)
	}

	e = &Env{
		id:        id,
		log:       log,
		store:     store,
		registry:  NewRegistry(),
		metrics:   metrics,
		done:      make(chan struct{}),
		consumers: make([]*Consumer, 0),
	}
	e.ctx, e.cancelCtx = context.WithCancel(ctx)

	for _, agg := range options.aggregates {
		agg.Register(e.registry)
		e.log.Debug("registered aggregate", slog.String("type", agg.GetAggType()))
	}

	e.repo = NewRepository(e.log, e.store, e.registry, WithMetrics(e.metrics))

	for _, p := range options.projections {
		consumer := e.NewConsumer(p, WithConsumerName(p.Name()))
		if err := consumer.Start(e.ctx); err != nil {
			for _, c := range e.consumers {
				c.Stop()
			}
			e.cancelCtx()
			return nil, fmt.Errorf("failed to start projection %s: %w", p.Name(), err)
		}
		e.consumers = append(e.consumers, consumer)
	}

	context.AfterFunc(e.ctx, func() {
		e.log.Info("shutting down")

		e.log.Debug("stopping consumers", slog.Int("count", len(e.consumers)))
		for _, c := range e.consumers {
			c.Stop()
		}

		e.log.Info("env shutdown")
		close(e.done)
	})

	return e, nil
}

func (e *Env) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.cancelCtx()
		<-e.done
	})
}

func (e *Env) NewConsumer(handler Handler, opts ...ConsumerOption) *Consumer {
	return NewConsumer(
		e.store,
		e.registry,
		handler,
		WithLog(e.log),
		WithMetrics(e.metrics),
		WithConsumerOpts(opts...),
	)
}
