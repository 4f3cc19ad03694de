package es

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope wraps an event with metadata for persistence and routing.
// It is the unit of storage in the EventStore and the unit of delivery to consumers.
type Envelope struct {
	// ID is the unique identifier of this event envelope.
	ID string `json:"id"`
	// Seq is the global sequence number assigned by the store.
	Seq uint64 `json:"seq"`
	// Version is the per-aggregate stream version (1, 2, 3, ...) after this event.
	Version Version `json:"version"`
	// AggregateType identifies the type of aggregate this event belongs to.
	AggregateType string `json:"aggregate"`
	// AggregateID is the stream id of the aggregate instance.
	AggregateID string `json:"aggregate_id"`
	// Type is the event type name for deserialization routing.
	Type string `json:"type"`
	// ActorID identifies who raised the event; empty for system actions.
	ActorID string `json:"actor_id,omitempty"`
	// OccurredAt is when the event was raised, in UTC.
	OccurredAt time.Time `json:"occurred_at"`
	// Data contains the JSON-encoded event payload.
	Data json.RawMessage `json:"data"`
}

func (e Envelope) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("envelope id is empty")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("envelope occurred at is zero")
	}
	if e.AggregateID == "" {
		return fmt.Errorf("envelope aggregate id is empty")
	}
	if e.AggregateType == "" {
		return fmt.Errorf("envelope aggregate type is empty")
	}
	if e.Type == "" {
		return fmt.Errorf("envelope type is empty")
	}
	if e.Version < 1 {
		return fmt.Errorf("envelope version must be >= 1")
	}
	return nil
}

type Decoder interface {
	Record(e Envelope) (Record, error)
}

func newEnvelope(id, aggType, aggID string, r Record) (Envelope, error) {
	data, err := json.Marshal(r.Event)
	if err != nil {
		return Envelope{}, err
	}
	env := Envelope{
		ID:            id,
		Type:          r.Type,
		AggregateID:   aggID,
		AggregateType: aggType,
		Version:       r.Version,
		ActorID:       r.ActorID,
		OccurredAt:    r.OccurredAt,
		Data:          data,
	}
	return env, env.Validate()
}
