package eventstore_test

import (
	"context"
	"testing"

	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/eventstore"
	"github.com/stretchr/testify/assert"
)

func envelope(id string, eventID int64) account.Envelope {
	return account.Envelope{AccountID: id, EventID: eventID, Timestamp: "2024-10-02T10:30:00Z"}
}

func TestInMemoryStore_Events_Empty(t *testing.T) {
	store := eventstore.NewInMemoryStore()

	events, err := store.Events(context.Background(), "ACC123456", 0)

	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestInMemoryStore_EventsAfter(t *testing.T) {
	store := eventstore.NewInMemoryStore()
	created := account.AccountCreated{Envelope: envelope("ACC123456", 1), CustomerID: "CUST001", MaxBalance: 100, Currency: account.USD}
	deposit := account.Deposit{Envelope: envelope("ACC123456", 2), Amount: 10, TransactionID: "TX001", Currency: account.USD}
	assert.NoError(t, store.Append(context.Background(), []account.Event{created, deposit}))

	all, err := store.Events(context.Background(), "ACC123456", 0)
	assert.NoError(t, err)
	assert.Equal(t, []account.Event{created, deposit}, all)

	after, err := store.Events(context.Background(), "ACC123456", 1)
	assert.NoError(t, err)
	assert.Equal(t, []account.Event{deposit}, after)
}

func TestInMemoryStore_TransactionsAreRecordedPerAccount(t *testing.T) {
	store := eventstore.NewInMemoryStore()
	deposit := account.Deposit{Envelope: envelope("ACC123456", 1), Amount: 10, TransactionID: "TX001", Currency: account.USD}
	assert.NoError(t, store.Append(context.Background(), []account.Event{deposit}))

	exists, err := store.TransactionExists(context.Background(), "ACC123456", "TX001")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.TransactionExists(context.Background(), "ACC654321", "TX001")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestInMemoryStore_ConcurrentModificationOnTakenEventId(t *testing.T) {
	store := eventstore.NewInMemoryStore()
	first := account.Activate{Envelope: envelope("ACC123456", 1)}
	assert.NoError(t, store.Append(context.Background(), []account.Event{first}))

	err := store.Append(context.Background(), []account.Event{account.Deactivate{Envelope: envelope("ACC123456", 1), Reason: "late"}})

	assert.Equal(t, account.ConcurrentModification, err)
	events, _ := store.Events(context.Background(), "ACC123456", 0)
	assert.Equal(t, []account.Event{first}, events)
}

func TestInMemoryStore_ConcurrentModificationOnDuplicateTransaction(t *testing.T) {
	store := eventstore.NewInMemoryStore()
	assert.NoError(t, store.Append(context.Background(), []account.Event{
		account.Deposit{Envelope: envelope("ACC123456", 1), Amount: 10, TransactionID: "TX001", Currency: account.USD},
	}))

	err := store.Append(context.Background(), []account.Event{
		account.Withdrawal{Envelope: envelope("ACC123456", 2), Amount: 10, TransactionID: "TX001", Currency: account.USD},
	})

	assert.Equal(t, account.ConcurrentModification, err)
}

func TestInMemoryStore_AppendIsAtomic(t *testing.T) {
	store := eventstore.NewInMemoryStore()

	err := store.Append(context.Background(), []account.Event{
		account.Deposit{Envelope: envelope("ACC123456", 1), Amount: 10, TransactionID: "TX001", Currency: account.USD},
		account.Deposit{Envelope: envelope("ACC123456", 2), Amount: 10, TransactionID: "TX001", Currency: account.USD},
	})

	assert.Equal(t, account.ConcurrentModification, err)
	events, _ := store.Events(context.Background(), "ACC123456", 0)
	assert.Empty(t, events)
	exists, _ := store.TransactionExists(context.Background(), "ACC123456", "TX001")
	assert.False(t, exists)
}
