package es

import (
	"encoding/json"
	"fmt"
	"sync"
)

// EventRegistry maps event type names to constructors so we can decode persisted events.
type EventRegistry struct {
	mu   sync.RWMutex
	news map[string]func() Event
}

func NewRegistry() *EventRegistry {
	return &EventRegistry{news: map[string]func() Event{}}
}

func (r *EventRegistry) Register(eventType string, ctor func() Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.news[eventType] = ctor
}

func (r *EventRegistry) Decode(env Envelope) (Event, error) {
	r.mu.RLock()
	ctor, ok := r.news[env.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, env.Type)
	}
	ev := ctor()
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	return ev, nil
}

// Record decodes env and carries its metadata over.
func (r *EventRegistry) Record(env Envelope) (Record, error) {
	ev, err := r.Decode(env)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Type:       env.Type,
		Version:    env.Version,
		ActorID:    env.ActorID,
		OccurredAt: env.OccurredAt,
		Event:      ev,
	}, nil
}

type Registrar interface {
	Register(eventType string, ctor func() Event)
}

// Ctor returns a reflection-free constructor for an event of type T.
// Each call to the returned function constructs a fresh *T.
func Ctor[T any, PT interface {
	*T
	Event
}]() func() Event {
	return func() Event { return PT(new(T)) }
}

// RegisterEvents registers event constructors under the name each event reports.
func RegisterEvents(r Registrar, ctors ...func() Event) {
	for _, ctor := range ctors {
		r.Register(ctor().EventType(), ctor)
	}
}
