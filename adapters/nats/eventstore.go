package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/iam-go/core/es"
)

const (
	defaultSubjectPrefix = "iam.es"
	defaultStreamName    = "IAM_ES"
)

// RetentionPolicy defines how messages are retained in the stream.
type RetentionPolicy int

const (
	// RetentionLimits keeps messages until MaxMsgs, MaxBytes or MaxAge is reached.
	RetentionLimits RetentionPolicy = iota
	// RetentionInterest keeps messages only while consumers are interested.
	RetentionInterest
)

func (r RetentionPolicy) toJetStream() jetstream.RetentionPolicy {
	if r == RetentionInterest {
		return jetstream.InterestPolicy
	}
	return jetstream.LimitsPolicy
}

type EventStoreConfig struct {
	Connect       Connector    // defaults to ConnectDefault()
	Log           *slog.Logger // optional
	SubjectPrefix string       // defaults to "iam.es"
	StreamName    string       // defaults to "IAM_ES"
	Retention     RetentionPolicy
	Replicas      int

	// Zero means unlimited. Identity streams are usually kept forever.
	MaxAge   time.Duration
	MaxBytes int64
	MaxMsgs  int64
}

// EventStore keeps every aggregate stream as one subject
// <prefix>.<aggType>.<aggID> of a JetStream stream.
type EventStore struct {
	nc            *natsgo.Conn
	closeConn     closeFunc
	js            jetstream.JetStream
	stream        jetstream.Stream
	log           *slog.Logger
	subjectPrefix string
}

func NewEventStore(ctx context.Context, cfg EventStoreConfig) (*EventStore, error) {
	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}
	nc, closeConn, err := doConnect()
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		closeConn()
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	streamName := strings.ToUpper(cfg.StreamName)
	if streamName == "" {
		streamName = defaultStreamName
	}
	subjectPrefix := cfg.SubjectPrefix
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}
	unlimited := func(v int64) int64 {
		if v == 0 {
			return -1
		}
		return v
	}

	log = log.With(
		slog.String("store", "nats_js"),
		slog.String("stream", streamName),
		slog.String("subject_prefix", subjectPrefix),
	)

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ".>"},
		Retention: cfg.Retention.toJetStream(),
		Storage:   jetstream.FileStorage,
		Replicas:  max(cfg.Replicas, 1),
		MaxAge:    cfg.MaxAge,
		MaxBytes:  unlimited(cfg.MaxBytes),
		MaxMsgs:   unlimited(cfg.MaxMsgs),
	})
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", streamName, err)
	}
	log.Debug("ensured stream")

	return &EventStore{
		nc:            nc,
		closeConn:     closeConn,
		js:            js,
		stream:        stream,
		log:           log,
		subjectPrefix: subjectPrefix,
	}, nil
}

func (e *EventStore) Close() error {
	e.js.CleanupPublisher()
	e.closeConn()
	e.log.Debug("closed event store")
	return nil
}

func (e *EventStore) Subscribe(ctx context.Context, opts ...es.SubscribeOption) (es.Subscription, error) {
	options := es.NewSubscribeOpts(opts...)

	var filterSubjects []string
	for _, f := range options.Filters() {
		switch {
		case f.AggregateType != "" && f.AggregateID != "":
			filterSubjects = append(filterSubjects, e.subject(f.AggregateType, f.AggregateID))
		case f.AggregateType != "":
			filterSubjects = append(filterSubjects, e.subject(f.AggregateType, "*"))
		default:
			return nil, fmt.Errorf("invalid filter: %+v", f)
		}
	}
	if len(filterSubjects) == 0 {
		filterSubjects = []string{e.subject("*", "*")}
	}

	var maxSeq uint64
	for _, s := range filterSubjects {
		m, err := e.stream.GetLastMsgForSubject(ctx, s)
		if err != nil && !errors.Is(err, jetstream.ErrMsgNotFound) {
			return nil, fmt.Errorf("failed to get last message for subject %q: %w", s, err)
		} else if err == nil {
			maxSeq = max(maxSeq, m.Sequence)
		}
	}

	consumerCfg := jetstream.ConsumerConfig{
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		FilterSubjects:    filterSubjects,
		InactiveThreshold: 10 * time.Minute,
	}
	if options.DeliverPolicy() == es.DeliverAllPolicy {
		consumerCfg.DeliverPolicy = jetstream.DeliverAllPolicy
	}
	if options.StartSequence() > 0 {
		consumerCfg.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerCfg.OptStartSeq = options.StartSequence()
	}

	consumer, err := e.stream.CreateOrUpdateConsumer(ctx, consumerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer filter_subjects=%+v: %w", filterSubjects, err)
	}
	it, err := consumer.Messages()
	if err != nil {
		return nil, err
	}
	e.log.Debug("subscribed", slog.Any("filter_subjects", filterSubjects), slog.Uint64("max_sequence", maxSeq))

	var (
		ch       = make(chan es.Envelope, 64)
		stopOnce sync.Once
		stop     = func() { stopOnce.Do(it.Drain) }
	)
	context.AfterFunc(ctx, stop)

	go func() {
		defer func() {
			stop()
			close(ch)
			e.log.Debug("unsubscribed")
		}()
		for {
			msg, err := it.Next()
			if err != nil {
				if !errors.Is(err, jetstream.ErrMsgIteratorClosed) {
					e.log.Error("failed to read next message", slog.Any("error", err))
				}
				return
			}
			env, err := decodeMsg(msg)
			if err != nil {
				e.log.Error("failed to decode message", slog.Any("error", err))
				return
			}
			if err := msg.Ack(); err != nil {
				e.log.Error("failed to ack message", slog.Any("error", err))
				return
			}
			select {
			case ch <- *env:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &subscription{ch: ch, cancel: stop, maxSeq: maxSeq}, nil
}

func (e *EventStore) Load(ctx context.Context, aggType, aggID string, opts ...es.StoreLoadOption) (loaded []es.Envelope, err error) {
	if aggType == "" || aggID == "" {
		return nil, errors.New("aggregate type and id are required")
	}
	loadOpts := es.NewLoadOptions(opts...)

	startAt := time.Now()
	defer func() {
		if err == nil {
			e.log.Debug(
				"loaded",
				slog.Group("agg", slog.String("type", aggType), slog.String("id", aggID)),
				loadOpts.StartVersion.SlogAttrWithKey("start_version"),
				slog.Int("count", len(loaded)),
				slog.Duration("duration", time.Since(startAt)),
			)
		}
	}()

	last, err := e.last(ctx, aggType, aggID)
	if err != nil || last == nil {
		return nil, err
	}

	cfg := jetstream.OrderedConsumerConfig{
		DeliverPolicy:  jetstream.DeliverAllPolicy,
		FilterSubjects: []string{e.subject(aggType, aggID)},
	}
	cc, err := e.stream.OrderedConsumer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := cc.FetchNoWait(100)
		if err != nil {
			return nil, err
		}
		empty := true
		for msg := range batch.Messages() {
			empty = false
			env, err := decodeMsg(msg)
			if err != nil {
				return nil, fmt.Errorf("failed to decode message: %w", err)
			}
			if env.Version >= loadOpts.StartVersion {
				loaded = append(loaded, *env)
			}
			if env.Seq >= last.Seq {
				return loaded, nil
			}
		}
		if err := batch.Error(); err != nil {
			return nil, err
		}
		if empty {
			return loaded, nil
		}
	}
}

// Append publishes events one by one, each expecting the previous message of
// the subject. A concurrent writer makes the next publish fail with
// es.ErrConcurrencyConflict.
func (e *EventStore) Append(ctx context.Context, aggType, aggID string, expectedVersion es.Version, events []es.Envelope) (*es.StoreAppendResult, error) {
	if len(events) == 0 {
		return nil, es.ErrStoreNoEvents
	}
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		if ev.AggregateType != aggType || ev.AggregateID != aggID {
			return nil, fmt.Errorf("envelope %s does not belong to %s/%s", ev.ID, aggType, aggID)
		}
		if want := expectedVersion + es.Version(i+1); ev.Version != want {
			return nil, fmt.Errorf("%w: envelope %s has version %d, want %d", es.ErrVersionGap, ev.ID, ev.Version, want)
		}
	}

	last, err := e.last(ctx, aggType, aggID)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	var curVersion es.Version
	var lastSeq uint64
	if last != nil {
		curVersion, lastSeq = last.Version, last.Seq
	}
	if curVersion != expectedVersion {
		return nil, conflict(aggType, aggID, expectedVersion, curVersion)
	}

	subject := e.subject(aggType, aggID)
	for _, ev := range events {
		msg := natsgo.NewMsg(subject)
		msg.Header.Set("x-event-type", ev.Type)
		msg.Header.Set("x-aggregate-type", aggType)
		msg.Header.Set("x-aggregate-id", aggID)
		if msg.Data, err = json.Marshal(ev); err != nil {
			return nil, err
		}
		ack, err := e.js.PublishMsg(ctx, msg,
			jetstream.WithMsgID(ev.ID),
			jetstream.WithExpectLastSequencePerSubject(lastSeq),
		)
		if err != nil {
			var apiErr *jetstream.APIError
			if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
				return nil, conflict(aggType, aggID, ev.Version-1, 0)
			}
			return nil, fmt.Errorf("failed to append %s to %s: %w", ev.Type, subject, err)
		}
		lastSeq = ack.Sequence
	}
	return &es.StoreAppendResult{LastSeq: lastSeq}, nil
}

func conflict(aggType, aggID string, expected, actual es.Version) error {
	return fmt.Errorf(
		"%w: expected version %d, got %d (agg_type=%s agg_id=%s)",
		es.ErrConcurrencyConflict, expected, actual, aggType, aggID,
	)
}

// IDs lists the aggregate ids that have a subject in the stream.
func (e *EventStore) IDs(ctx context.Context, aggType string) ([]string, error) {
	info, err := e.stream.Info(ctx, jetstream.WithSubjectFilter(e.subject(aggType, "*")))
	if err != nil {
		return nil, err
	}
	prefix := e.subject(aggType, "")
	ids := make([]string, 0, len(info.State.Subjects))
	for subj := range info.State.Subjects {
		ids = append(ids, strings.TrimPrefix(subj, prefix))
	}
	slices.Sort(ids)
	return ids, nil
}

func (e *EventStore) last(ctx context.Context, aggType, aggID string) (*es.Envelope, error) {
	subject := e.subject(aggType, aggID)
	lm, err := e.stream.GetLastMsgForSubject(ctx, subject)
	if errors.Is(err, jetstream.ErrMsgNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	env := &es.Envelope{}
	if err := json.Unmarshal(lm.Data, env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal last message for subject %q: %w", subject, err)
	}
	env.Seq = lm.Sequence
	return env, nil
}

func decodeMsg(msg jetstream.Msg) (*es.Envelope, error) {
	md, err := msg.Metadata()
	if err != nil {
		return nil, err
	}
	env := &es.Envelope{}
	if err := json.Unmarshal(msg.Data(), env); err != nil {
		return nil, err
	}
	env.Seq = md.Sequence.Stream
	return env, nil
}

func (e *EventStore) subject(aggType, aggID string) string {
	return e.subjectPrefix + "." + aggType + "." + aggID
}

var _ es.EventStore = (*EventStore)(nil)

type subscription struct {
	ch     chan es.Envelope
	cancel func()
	maxSeq uint64
}

func (s *subscription) MaxSequence() uint64      { return s.maxSeq }
func (s *subscription) Cancel()                  { s.cancel() }
func (s *subscription) Chan() <-chan es.Envelope { return s.ch }

var _ es.Subscription = (*subscription)(nil)
