package es

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAggregateNotFound   = errors.New("aggregate not found")
	ErrAggregateDeleted    = errors.New("aggregate is deleted")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrUnknownEventType    = errors.New("unknown event type")
	ErrVersionGap          = errors.New("version gap")
)

// Event is a domain payload. EventType names the payload on the wire and in the registry.
type Event interface {
	EventType() string
}

// Deletion is embedded by events that soft-delete their aggregate.
type Deletion struct{}

func (Deletion) MarksDeletion() bool { return true }

type deletion interface{ MarksDeletion() bool }

// Record is a domain event together with the metadata the kernel assigns when it is raised.
type Record struct {
	Type       string
	Version    Version
	ActorID    string
	OccurredAt time.Time
	Event      Event
}

// Aggregate is the contract between event-sourced domain objects and the Repository.
//
// The lifecycle is:
//  1. construct empty, then either Raise a creation event or Load historical records
//  2. domain methods call Raise, which applies the record and stages it
//  3. the Repository appends staged records at ExpectedVersion and clears them
//
// Aggregates must embed BaseAggregate; the unexported base method enforces that.
type Aggregate interface {
	// GetAggType returns the aggregate type name used for stream identification.
	GetAggType() string
	GetID() string
	SetID(string)
	GetVersion() Version
	IsDeleted() bool

	// Register registers the aggregate's event constructors.
	Register(r Registrar)
	// Apply updates state from one record. It is the only place state may change.
	Apply(r Record) error

	Uncommitted() []Record
	ClearUncommitted()

	base() *BaseAggregate
}

// BaseAggregate is an embeddable helper that tracks identity, version, audit
// fields and staged records.
type BaseAggregate struct {
	id        string
	version   Version
	deleted   bool
	createdBy string
	createdOn time.Time
	updatedBy string
	updatedOn time.Time

	uncommitted []Record
}

func (b *BaseAggregate) base() *BaseAggregate { return b }

func (b *BaseAggregate) GetID() string        { return b.id }
func (b *BaseAggregate) SetID(id string)      { b.id = id }
func (b *BaseAggregate) GetVersion() Version  { return b.version }
func (b *BaseAggregate) IsDeleted() bool      { return b.deleted }
func (b *BaseAggregate) CreatedBy() string    { return b.createdBy }
func (b *BaseAggregate) CreatedOn() time.Time { return b.createdOn }
func (b *BaseAggregate) UpdatedBy() string    { return b.updatedBy }
func (b *BaseAggregate) UpdatedOn() time.Time { return b.updatedOn }
func (b *BaseAggregate) HasChanges() bool     { return len(b.uncommitted) > 0 }

// ExpectedVersion is the stream version the staged records were raised against.
func (b *BaseAggregate) ExpectedVersion() Version {
	return b.version - Version(len(b.uncommitted))
}

func (b *BaseAggregate) ClearUncommitted() { b.uncommitted = nil }
func (b *BaseAggregate) Uncommitted() []Record {
	out := make([]Record, len(b.uncommitted))
	copy(out, b.uncommitted)
	return out
}

func (b *BaseAggregate) track(r Record) {
	b.version = r.Version
	if r.Version == 1 {
		b.createdBy = r.ActorID
		b.createdOn = r.OccurredAt
	}
	b.updatedBy = r.ActorID
	b.updatedOn = r.OccurredAt
	if d, ok := r.Event.(deletion); ok && d.MarksDeletion() {
		b.deleted = true
	}
}

// === Helpers ===

// Raise applies e to a at the next version and stages it for saving.
// Deleted aggregates accept no further events.
func Raise(a Aggregate, actorID string, e Event) error {
	b := a.base()
	if b.deleted {
		return fmt.Errorf("%w: %s %s", ErrAggregateDeleted, a.GetAggType(), a.GetID())
	}
	if v, ok := e.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid event %s: %w", e.EventType(), err)
		}
	}

	r := Record{
		Type:       e.EventType(),
		Version:    b.version + 1,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Event:      e,
	}
	if err := apply(a, r); err != nil {
		return err
	}
	b.uncommitted = append(b.uncommitted, r)
	return nil
}

// Load replays historical records onto a without staging them.
func Load(a Aggregate, records ...Record) error {
	for _, r := range records {
		if expect := a.GetVersion() + 1; r.Version != expect {
			return fmt.Errorf("%w: %s %s expect version %d, got %d", ErrVersionGap, a.GetAggType(), a.GetID(), expect, r.Version)
		}
		if err := apply(a, r); err != nil {
			return err
		}
	}
	return nil
}

func apply(a Aggregate, r Record) error {
	if err := a.Apply(r); err != nil {
		return fmt.Errorf("apply %s to %s: %w", r.Type, a.GetAggType(), err)
	}
	a.base().track(r)
	return nil
}
