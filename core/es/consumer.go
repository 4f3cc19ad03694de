package es

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Checkpoint is implemented by handlers that track their processing progress.
// The Consumer resumes after the returned sequence.
type Checkpoint interface {
	// GetLastSeq returns ErrCheckpointNotFound if no checkpoint exists.
	GetLastSeq(ctx context.Context) (uint64, error)
}

// MsgCtx is the context of one delivered envelope. Live reports whether the
// consumer had caught up with the stream when the envelope arrived.
type MsgCtx struct {
	ctx  context.Context
	log  *slog.Logger
	ev   Envelope
	rec  Record
	live bool
}

func (c MsgCtx) Log() *slog.Logger        { return c.log }
func (c MsgCtx) Context() context.Context { return c.ctx }
func (c MsgCtx) Event() Event             { return c.rec.Event }
func (c MsgCtx) Record() Record           { return c.rec }
func (c MsgCtx) Live() bool               { return c.live }

func (c MsgCtx) Seq() uint64           { return c.ev.Seq }
func (c MsgCtx) Envelope() Envelope    { return c.ev }
func (c MsgCtx) Version() Version      { return c.ev.Version }
func (c MsgCtx) AggregateID() string   { return c.ev.AggregateID }
func (c MsgCtx) AggregateType() string { return c.ev.AggregateType }
func (c MsgCtx) Data() json.RawMessage { return c.ev.Data }
func (c MsgCtx) Type() string          { return c.ev.Type }
func (c MsgCtx) OccurredAt() time.Time { return c.ev.OccurredAt }

// NewMsgCtx builds a MsgCtx outside of a Consumer, for direct handler calls.
func NewMsgCtx(ctx context.Context, log *slog.Logger, env Envelope, rec Record) MsgCtx {
	return MsgCtx{ctx: ctx, log: log, ev: env, rec: rec, live: true}
}

// Consumer subscribes to an EventStore and dispatches decoded envelopes to a
// Handler in commit order.
type Consumer struct {
	store           EventStore
	decoder         Decoder
	handler         Handler
	target          Handler
	checkpoint      Checkpoint
	log             *slog.Logger
	live            chan struct{}
	isLive          atomic.Bool
	started         atomic.Bool
	closeChan       chan struct{}
	closeOnce       sync.Once
	done            chan struct{}
	shutdownTimeout time.Duration
	name            string
	metrics         ESMetrics
	retry           retryBackoff
}

func (c *Consumer) Name() string { return c.name }

func (c *Consumer) handle(ctx context.Context, ev Envelope) error {
	live := c.isLive.Load()

	defer c.metrics.ConsumerEventDuration(ev.Type, live).ObserveDuration()

	rec, err := c.decoder.Record(ev)
	if err != nil {
		c.metrics.ConsumerEventProcessed(ev.Type, live, false)
		return Permanent(fmt.Errorf("failed to decode event: %w", err))
	}
	msgCtx := MsgCtx{
		ctx:  ctx,
		ev:   ev,
		rec:  rec,
		live: live,
		log: c.log.With(
			slog.Group(
				"event",
				slog.String("id", ev.ID),
				slog.Uint64("seq", ev.Seq),
				ev.Version.SlogAttr(),
				slog.String("type", ev.Type),
				slog.String("aggregate_id", ev.AggregateID),
				slog.String("aggregate_type", ev.AggregateType),
				slog.Time("occurred_at", ev.OccurredAt),
			),
		),
	}
	if err := c.handler.Handle(msgCtx); err != nil {
		c.metrics.ConsumerEventProcessed(ev.Type, live, false)
		return fmt.Errorf("failed to handle event: %w", err)
	}
	c.metrics.ConsumerEventProcessed(ev.Type, live, true)
	return nil
}

// dispatch handles ev until it succeeds or fails permanently, retrying other
// errors with exponential backoff. It returns false when the consumer stops
// while waiting to retry.
func (c *Consumer) dispatch(ctx context.Context, ev Envelope) bool {
	delay := c.retry.min
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, ev)
		if err == nil {
			return true
		}
		if IsPermanent(err) {
			c.log.Error("event handler failed, skipping", slog.Uint64("seq", ev.Seq), slog.Any("error", err))
			return true
		}
		c.log.Warn(
			"event handler failed, retrying",
			slog.Uint64("seq", ev.Seq),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-c.closeChan:
			timer.Stop()
			return false
		case <-timer.C:
		}
		delay = min(delay*2, c.retry.max)
	}
}

func (c *Consumer) markLive() {
	if c.isLive.CompareAndSwap(false, true) {
		close(c.live)
	}
}

// Start subscribes and blocks until the consumer has caught up with the
// events present at subscription time, or ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("starting event consumer", slog.String("handler", fmt.Sprintf("%T", c.target)))

	if lc, ok := c.target.(HandlerLifecycleStart); ok {
		if err := lc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start consumer lifecycle: %w", err)
		}
		c.log.Debug("handler started")
	}

	var lastSeenSeq uint64
	if c.checkpoint != nil {
		var err error
		lastSeenSeq, err = c.checkpoint.GetLastSeq(ctx)
		if err != nil && !errors.Is(err, ErrCheckpointNotFound) {
			return err
		}
	}

	c.log.Info("subscribing", slog.Uint64("last_seen_seq", lastSeenSeq))

	sub, err := c.store.Subscribe(
		ctx,
		WithDeliverPolicy(DeliverAllPolicy),
		WithStartSequence(lastSeenSeq+1),
	)
	if err != nil {
		return err
	}

	c.started.Store(true)
	liveAt := sub.MaxSequence()
	if liveAt == 0 || liveAt <= lastSeenSeq {
		c.markLive()
	}

	go func() {
		defer func() {
			sub.Cancel()
			if lc, ok := c.target.(HandlerLifecycleShutdown); ok {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.shutdownTimeout)
				defer cancel()
				if err := lc.Shutdown(shutdownCtx); err != nil {
					c.log.Error("failed to shutdown consumer lifecycle", slog.Any("error", err))
				}
			}
			c.log.Info("stopped")
			close(c.done)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closeChan:
				return

			case ev, ok := <-sub.Chan():
				if !ok {
					return
				}
				if !c.dispatch(ctx, ev) {
					return
				}
				if ev.Seq >= liveAt {
					c.markLive()
				}
				if liveAt > ev.Seq {
					c.metrics.ConsumerLag(c.name, int64(liveAt-ev.Seq))
				} else {
					c.metrics.ConsumerLag(c.name, 0)
				}
			}
		}
	}()

	c.log.Debug("started, waiting until live")
	select {
	case <-c.live:
	case <-c.done:
		return errors.New("consumer stopped before becoming live")
	case <-ctx.Done():
		return ctx.Err()
	}
	c.log.Debug("became live")

	return nil
}

// Stop ends the dispatch loop and waits for it to exit.
func (c *Consumer) Stop() {
	if !c.started.Load() {
		return
	}
	c.closeOnce.Do(func() {
		close(c.closeChan)
		<-c.done
	})
}

func NewConsumer(
	store EventStore,
	decoder Decoder,
	handler Handler,
	opts ...ConsumerOption,
) *Consumer {
	options := newConsumerOpts(opts...)
	log := options.log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("consumer", options.name))

	metrics := options.metrics
	if metrics == nil {
		metrics = NopESMetrics()
	}

	mws := options.mws
	checkpoint, _ := handler.(Checkpoint)
	if options.cpStore != nil {
		cp := &checkpointHandler{cp: options.cpStore}
		checkpoint = cp
		mws = append(mws, func(next Handler) Handler {
			cp.h = next
			return cp
		})
	}

	return &Consumer{
		log:             log,
		store:           store,
		decoder:         decoder,
		closeChan:       make(chan struct{}),
		done:            make(chan struct{}),
		live:            make(chan struct{}),
		handler:         applyMiddlewares(handler, mws),
		target:          handler,
		checkpoint:      checkpoint,
		shutdownTimeout: options.shutdownTimeout,
		name:            options.name,
		metrics:         metrics,
		retry:           options.retry,
	}
}
