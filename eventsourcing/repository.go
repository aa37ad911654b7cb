package eventsourcing

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rieske/account-aggregator-go/account"
)

type repository struct {
	store      EventStore
	aggregator account.Aggregator
	clock      func() time.Time
}

// build creates the next event of a stream from its envelope.
type build func(env account.Envelope) account.Event

func newRepository(store EventStore, clock func() time.Time) repository {
	return repository{
		store:      store,
		aggregator: account.NewAggregator(account.WithStrictCreation()),
		clock:      clock,
	}
}

func (r repository) query(ctx context.Context, id string) (*account.Snapshot, error) {
	snapshot, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, account.NotFound
	}
	return snapshot, nil
}

func (r repository) load(ctx context.Context, id string) (*account.Snapshot, error) {
	timer := prometheus.NewTimer(foldDuration)
	defer timer.ObserveDuration()

	events, err := r.store.Events(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	return r.aggregator.Fold(events)
}

func (r repository) create(ctx context.Context, id string, b build) error {
	current, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	if current != nil {
		return account.AlreadyExists
	}
	return r.record(ctx, id, current, b)
}

func (r repository) transact(ctx context.Context, id string, b build) error {
	current, err := r.query(ctx, id)
	if err != nil {
		return err
	}
	return r.record(ctx, id, current, b)
}

// record validates the built event against the current state before the
// store sees it, so only events the aggregator accepts are ever persisted.
func (r repository) record(ctx context.Context, id string, current *account.Snapshot, b build) error {
	env := account.Envelope{
		EventID:   1,
		Timestamp: r.clock().UTC().Format(time.RFC3339),
		AccountID: id,
	}
	if current != nil {
		env.EventID = current.Revision + 1
	}
	event := b(env)

	if _, err := r.aggregator.Apply(current, event); err != nil {
		return err
	}
	if err := r.store.Append(ctx, []account.Event{event}); err != nil {
		return err
	}
	eventsRecorded.WithLabelValues(string(event.Type())).Inc()
	return nil
}
