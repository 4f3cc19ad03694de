package es

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// InMemoryStore is a simple, correct (optimistic) store for tests/dev.
// All subscriptions observe envelopes in global commit order.
type InMemoryStore struct {
	mu      sync.Mutex
	log     *slog.Logger
	seq     uint64
	all     []Envelope
	streams map[string]map[string][]Envelope // aggType -> aggID -> envelopes
	subs    map[string]*inMemorySubscription
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		log:     slog.Default().With(slog.String("store", "memory")),
		streams: map[string]map[string][]Envelope{},
		subs:    map[string]*inMemorySubscription{},
	}
}

func (s *InMemoryStore) Subscribe(ctx context.Context, opts ...SubscribeOption) (Subscription, error) {
	options := NewSubscribeOpts(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	subID := gonanoid.Must()
	sub := newInMemorySubscription(options.filters, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, subID)
	})

	if options.deliverPolicy == DeliverAllPolicy {
		for _, e := range s.all {
			if e.Seq < options.startSequence || !MatchFilters(e, sub.filters) {
				continue
			}
			sub.maxSeq = e.Seq
			sub.push(e)
		}
	}
	s.subs[subID] = sub
	go sub.run()

	context.AfterFunc(ctx, sub.Cancel)

	s.log.Debug(
		"subscribed",
		slog.String("policy", string(options.deliverPolicy)),
		slog.Uint64("start_seq", options.startSequence),
		slog.Uint64("max_seq", sub.maxSeq),
	)

	return sub, nil
}

func (s *InMemoryStore) Load(
	_ context.Context,
	aggType,
	aggID string,
	opts ...StoreLoadOption,
) ([]Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loadOpts := NewLoadOptions(opts...)

	out := make([]Envelope, 0)
	for _, e := range s.streams[aggType][aggID] {
		if e.Version < loadOpts.StartVersion {
			continue
		}
		out = append(out, e)
	}

	return out, nil
}

func (s *InMemoryStore) IDs(_ context.Context, aggType string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.streams[aggType]))
	for id := range s.streams[aggType] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *InMemoryStore) Append(
	_ context.Context,
	aggType string,
	aggID string,
	expectVersion Version,
	events []Envelope,
) (*StoreAppendResult, error) {
	if len(events) == 0 {
		return nil, ErrStoreNoEvents
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		curStream  = s.streams[aggType][aggID]
		curVersion Version
	)
	if len(curStream) > 0 {
		curVersion = curStream[len(curStream)-1].Version
	}
	if curVersion != expectVersion {
		return nil, fmt.Errorf(
			"%w: expected version %d, got %d (agg_type=%s agg_id=%s)",
			ErrConcurrencyConflict, expectVersion, curVersion, aggType, aggID,
		)
	}

	// validate everything before anything becomes visible
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if e.AggregateType != aggType || e.AggregateID != aggID {
			return nil, fmt.Errorf("envelope %s does not belong to %s/%s", e.ID, aggType, aggID)
		}
		if want := expectVersion + Version(i+1); e.Version != want {
			return nil, fmt.Errorf("%w: envelope %s has version %d, want %d", ErrVersionGap, e.ID, e.Version, want)
		}
	}

	appended := make([]Envelope, 0, len(events))
	for _, e := range events {
		s.seq++
		e.Seq = s.seq
		appended = append(appended, e)
	}

	if s.streams[aggType] == nil {
		s.streams[aggType] = map[string][]Envelope{}
	}
	s.streams[aggType][aggID] = append(curStream, appended...)
	s.all = append(s.all, appended...)

	s.log.Debug(
		"append",
		slog.Uint64("last_seq", s.seq),
		slog.Int("num_events", len(appended)),
	)

	for _, e := range appended {
		for _, sub := range s.subs {
			if MatchFilters(e, sub.filters) {
				sub.push(e)
			}
		}
	}

	return &StoreAppendResult{LastSeq: s.seq}, nil
}

// === Subscription ===

// inMemorySubscription buffers without bound so Append never blocks on a slow consumer.
type inMemorySubscription struct {
	filters []SubscribeFilter
	maxSeq  uint64

	mu     sync.Mutex
	queue  []Envelope
	notify chan struct{}
	ch     chan Envelope
	done   chan struct{}
	once   sync.Once
	remove func()
}

func newInMemorySubscription(filters []SubscribeFilter, remove func()) *inMemorySubscription {
	return &inMemorySubscription{
		filters: filters,
		notify:  make(chan struct{}, 1),
		ch:      make(chan Envelope),
		done:    make(chan struct{}),
		remove:  remove,
	}
}

func (i *inMemorySubscription) push(e Envelope) {
	i.mu.Lock()
	i.queue = append(i.queue, e)
	i.mu.Unlock()
	select {
	case i.notify <- struct{}{}:
	default:
	}
}

func (i *inMemorySubscription) run() {
	defer close(i.ch)
	for {
		i.mu.Lock()
		batch := i.queue
		i.queue = nil
		i.mu.Unlock()

		for _, e := range batch {
			select {
			case i.ch <- e:
			case <-i.done:
				return
			}
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-i.notify:
		case <-i.done:
			return
		}
	}
}

func (i *inMemorySubscription) Chan() <-chan Envelope { return i.ch }
func (i *inMemorySubscription) MaxSequence() uint64   { return i.maxSeq }
func (i *inMemorySubscription) Cancel() {
	i.once.Do(func() {
		close(i.done)
		i.remove()
	})
}

var _ EventStore = (*InMemoryStore)(nil)
