package projection

import (
	"context"
	"log/slog"

	"github.com/codewandler/iam-go/core/es"
)

// Signals observes the outcome of every event the synchronizer receives.
// EventNotHandled means the read entity was not at the version the event
// expects; nothing was changed and the event is safe to deliver again.
type Signals interface {
	EventHandled(ctx context.Context, env es.Envelope)
	EventNotHandled(ctx context.Context, env es.Envelope, expected, actual es.Version)
}

type nopSignals struct{}

func (nopSignals) EventHandled(context.Context, es.Envelope)                            {}
func (nopSignals) EventNotHandled(context.Context, es.Envelope, es.Version, es.Version) {}

func NopSignals() Signals { return nopSignals{} }

// LogSignals reports outcomes to a logger.
type LogSignals struct {
	Log *slog.Logger
}

func (s LogSignals) EventHandled(ctx context.Context, env es.Envelope) {
	s.Log.DebugContext(ctx, "event handled", envAttrs(env))
}

func (s LogSignals) EventNotHandled(ctx context.Context, env es.Envelope, expected, actual es.Version) {
	s.Log.WarnContext(ctx, "event not handled",
		envAttrs(env),
		expected.SlogAttrWithKey("expected_version"),
		actual.SlogAttrWithKey("actual_version"),
	)
}

func envAttrs(env es.Envelope) slog.Attr {
	return slog.Group("event",
		slog.String("type", env.Type),
		slog.String("aggregate_id", env.AggregateID),
		env.Version.SlogAttr(),
		slog.Uint64("seq", env.Seq),
	)
}

// MultiSignals fans out to every member.
type MultiSignals []Signals

func (m MultiSignals) EventHandled(ctx context.Context, env es.Envelope) {
	for _, s := range m {
		s.EventHandled(ctx, env)
	}
}

func (m MultiSignals) EventNotHandled(ctx context.Context, env es.Envelope, expected, actual es.Version) {
	for _, s := range m {
		s.EventNotHandled(ctx, env, expected, actual)
	}
}
