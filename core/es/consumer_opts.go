package es

import (
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type (
	consumerOpts struct {
		mws             []HandlerMiddleware
		log             *slog.Logger
		name            string
		cpStore         CpStore
		metrics         ESMetrics
		shutdownTimeout time.Duration
		retry           retryBackoff
	}

	retryBackoff struct{ min, max time.Duration }

	ConsumerOption interface {
		applyToConsumerOpts(*consumerOpts)
	}

	ConsumerNameOption    valueOption[string]
	MiddlewareOption      valueOption[[]HandlerMiddleware]
	CpStoreOption         valueOption[CpStore]
	ShutdownTimeoutOption valueOption[time.Duration]
	RetryBackoffOption    valueOption[retryBackoff]
	ConsumerOptions       MultiOption[ConsumerOption]
)

func (o ConsumerNameOption) applyToConsumerOpts(opts *consumerOpts) { opts.name = o.v }
func (o MiddlewareOption) applyToConsumerOpts(opts *consumerOpts) {
	opts.mws = append(opts.mws, o.v...)
}
func (o CpStoreOption) applyToConsumerOpts(opts *consumerOpts)         { opts.cpStore = o.v }
func (o ShutdownTimeoutOption) applyToConsumerOpts(opts *consumerOpts) { opts.shutdownTimeout = o.v }
func (o RetryBackoffOption) applyToConsumerOpts(opts *consumerOpts)    { opts.retry = o.v }
func (o LogOption) applyToConsumerOpts(opts *consumerOpts)             { opts.log = o.l }
func (o ConsumerOptions) applyToConsumerOpts(opts *consumerOpts) {
	for _, opt := range o.opts {
		opt.applyToConsumerOpts(opts)
	}
}

func WithMiddlewares(mws ...HandlerMiddleware) MiddlewareOption {
	return MiddlewareOption{
		v: mws,
	}
}

// WithCheckpointStore makes the consumer resume after the stored sequence and
// advance it after every handled or permanently failed envelope.
func WithCheckpointStore(cp CpStore) CpStoreOption { return CpStoreOption{v: cp} }

// WithRetryBackoff sets the delay before the first retry of a failed envelope
// and the cap it doubles up to.
func WithRetryBackoff(first, max time.Duration) RetryBackoffOption {
	return RetryBackoffOption{v: retryBackoff{min: first, max: max}}
}

func WithShutdownTimeout(d time.Duration) ShutdownTimeoutOption { return ShutdownTimeoutOption{v: d} }
func WithConsumerOpts(opts ...ConsumerOption) ConsumerOptions   { return ConsumerOptions{opts: opts} }
func WithConsumerName(name string) ConsumerNameOption           { return ConsumerNameOption{name} }

func newConsumerOpts(opts ...ConsumerOption) consumerOpts {
	options := consumerOpts{
		log:             slog.Default(),
		name:            fmt.Sprintf("consumer-%s", gonanoid.Must(6)),
		shutdownTimeout: 5 * time.Second,
		retry:           retryBackoff{min: 100 * time.Millisecond, max: 30 * time.Second},
	}
	for _, opt := range opts {
		opt.applyToConsumerOpts(&options)
	}
	return options
}
