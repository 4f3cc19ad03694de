package es

import (
	"context"
	"errors"
	"log/slog"
)

type (
	Handler interface {
		Handle(msgCtx MsgCtx) error
	}
	// HandlerLifecycleStart is called once before the consumer subscribes.
	HandlerLifecycleStart interface {
		Start(ctx context.Context) error
	}
	// HandlerLifecycleShutdown is called once after the consumer stopped.
	HandlerLifecycleShutdown interface {
		Shutdown(ctx context.Context) error
	}
	HandleFunc        func(msgCtx MsgCtx) error
	HandlerMiddleware func(next Handler) Handler
)

func (f HandleFunc) Handle(msgCtx MsgCtx) error { return f(msgCtx) }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error that redelivery cannot fix. The consumer
// logs it and moves past the envelope; any other error is retried.
func Permanent(err error) error {
	if err == nil || IsPermanent(err) {
		return err
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// applyMiddlewares wraps h so that middlewares[0] runs first.
func applyMiddlewares(h Handler, middlewares []HandlerMiddleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// checkpointHandler skips envelopes at or below the stored sequence and
// advances it once an envelope is handled or failed permanently. The cursor
// is read from the store once.
type checkpointHandler struct {
	cp     CpStore
	h      Handler
	loaded bool
	last   uint64
}

func (c *checkpointHandler) GetLastSeq(ctx context.Context) (uint64, error) {
	if c.loaded {
		return c.last, nil
	}
	last, err := c.cp.Get(ctx)
	if err != nil {
		return 0, err
	}
	c.last, c.loaded = last, true
	return last, nil
}

func (c *checkpointHandler) Handle(msgCtx MsgCtx) error {
	ctx := msgCtx.Context()

	last, err := c.GetLastSeq(ctx)
	if err != nil {
		return err
	}
	if msgCtx.Seq() <= last {
		msgCtx.Log().Debug("skip", slog.Uint64("last_seq", last), slog.String("middleware", "checkpoint"))
		return nil
	}

	handleErr := c.h.Handle(msgCtx)
	if handleErr != nil && !IsPermanent(handleErr) {
		return handleErr
	}
	if err := c.cp.Set(ctx, msgCtx.Seq()); err != nil {
		return err
	}
	c.last = msgCtx.Seq()
	return handleErr
}

var _ Handler = (*checkpointHandler)(nil)
