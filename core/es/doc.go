// Package es provides the event sourcing kernel the IAM aggregates are built on.
//
// # Aggregates
//
// An aggregate embeds [BaseAggregate] and changes state only inside its Apply
// method. Domain methods call [Raise], which applies a [Record] at the next
// version and stages it:
//
//	type Counter struct {
//	    es.BaseAggregate
//	    n int
//	}
//
//	func (c *Counter) Apply(r es.Record) error {
//	    switch r.Event.(type) {
//	    case *Incremented:
//	        c.n++
//	    default:
//	        return es.ErrUnknownEventType
//	    }
//	    return nil
//	}
//
//	func (c *Counter) Increment(actorID string) error {
//	    return es.Raise(c, actorID, &Incremented{})
//	}
//
// Events embedding [Deletion] soft-delete their aggregate; a deleted aggregate
// rejects further events with [ErrAggregateDeleted].
//
// # Storage
//
// [EventStore] appends envelopes per stream only at the expected version and
// delivers them to subscribers in commit order. [NewInMemoryStore] is the
// reference implementation; adapters/nats provides JetStream.
//
// # Repository
//
// [Repository] replays streams through an [EventRegistry] and saves staged
// records with optimistic concurrency. A stale save fails with
// [ErrConcurrencyConflict] and nothing is written:
//
//	repo := es.NewTypedRepository(es.NewRepository(log, store, registry), newCounter)
//	c, err := repo.GetByID(ctx, id)
//	c.Increment(actorID)
//	err = repo.Save(ctx, c)
//
// # Consumers
//
// [Consumer] subscribes to the store and dispatches decoded records to a
// [Handler]. [WithCheckpointStore] resumes a consumer after the last handled
// sequence.
package es
