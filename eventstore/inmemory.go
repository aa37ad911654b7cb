package eventstore

import (
	"context"
	"sync"

	"github.com/rieske/account-aggregator-go/account"
)

type inmemoryStore struct {
	events       map[string][]account.Event
	transactions map[string]map[string]struct{}
	mutex        sync.RWMutex
}

func NewInMemoryStore() *inmemoryStore {
	return &inmemoryStore{
		events:       map[string][]account.Event{},
		transactions: map[string]map[string]struct{}{},
	}
}

func (es *inmemoryStore) Events(ctx context.Context, accountID string, after int64) ([]account.Event, error) {
	es.mutex.RLock()
	defer es.mutex.RUnlock()

	events := make([]account.Event, 0, len(es.events[accountID]))
	for _, e := range es.events[accountID] {
		if e.Base().EventID > after {
			events = append(events, e)
		}
	}
	return events, nil
}

func (es *inmemoryStore) TransactionExists(ctx context.Context, accountID, transactionID string) (bool, error) {
	es.mutex.RLock()
	defer es.mutex.RUnlock()

	_, exists := es.transactions[accountID][transactionID]
	return exists, nil
}

// the mutex here simulates what a persistence engine of choice should do - ensure consistency
// Events can only be written in sequence per account.
// One way to ensure this in RDB - primary key on (accountId, eventId)
// Event writes have to happen in a transaction - either all get written or none
func (es *inmemoryStore) Append(ctx context.Context, events []account.Event) error {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	if err := es.validateConsistency(events); err != nil {
		return err
	}

	for _, e := range events {
		id := e.Base().AccountID
		es.events[id] = append(es.events[id], e)
		if txID, ok := account.TransactionID(e); ok {
			if es.transactions[id] == nil {
				es.transactions[id] = map[string]struct{}{}
			}
			es.transactions[id][txID] = struct{}{}
		}
	}
	return nil
}

func (es *inmemoryStore) validateConsistency(events []account.Event) error {
	versions := map[string]int64{}
	pending := map[string]map[string]struct{}{}

	for _, e := range events {
		id := e.Base().AccountID
		currentVersion, seen := versions[id]
		if !seen {
			currentVersion = es.latestVersion(id)
		}
		if e.Base().EventID <= currentVersion {
			return account.ConcurrentModification
		}
		versions[id] = e.Base().EventID

		if txID, ok := account.TransactionID(e); ok {
			if _, exists := es.transactions[id][txID]; exists {
				return account.ConcurrentModification
			}
			if _, exists := pending[id][txID]; exists {
				return account.ConcurrentModification
			}
			if pending[id] == nil {
				pending[id] = map[string]struct{}{}
			}
			pending[id][txID] = struct{}{}
		}
	}
	return nil
}

func (es *inmemoryStore) latestVersion(accountID string) int64 {
	events := es.events[accountID]
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Base().EventID
}
