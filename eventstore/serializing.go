package eventstore

import (
	"context"

	"github.com/rieske/account-aggregator-go/account"
)

type eventSerializer interface {
	SerializeEvent(e account.Event) (SerializedEvent, error)
	DeserializeEvent(se SerializedEvent) (account.Event, error)
}

type serializedEventStore interface {
	Events(ctx context.Context, accountID string, after int64) ([]SerializedEvent, error)
	Append(ctx context.Context, events []SerializedEvent) error
	TransactionExists(ctx context.Context, accountID, transactionID string) (bool, error)
}

type serializingEventStore struct {
	store      serializedEventStore
	serializer eventSerializer
}

func NewSerializingEventStore(store serializedEventStore, serializer eventSerializer) *serializingEventStore {
	return &serializingEventStore{store: store, serializer: serializer}
}

func (s serializingEventStore) Events(ctx context.Context, accountID string, after int64) ([]account.Event, error) {
	serializedEvents, err := s.store.Events(ctx, accountID, after)
	if err != nil {
		return nil, err
	}
	events := make([]account.Event, 0, len(serializedEvents))
	for _, serializedEvent := range serializedEvents {
		event, err := s.serializer.DeserializeEvent(serializedEvent)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (s serializingEventStore) Append(ctx context.Context, events []account.Event) error {
	serializedEvents := make([]SerializedEvent, 0, len(events))
	for _, event := range events {
		serializedEvent, err := s.serializer.SerializeEvent(event)
		if err != nil {
			return err
		}
		serializedEvents = append(serializedEvents, serializedEvent)
	}
	return s.store.Append(ctx, serializedEvents)
}

func (s serializingEventStore) TransactionExists(ctx context.Context, accountID, transactionID string) (bool, error) {
	return s.store.TransactionExists(ctx, accountID, transactionID)
}
