package eventsourcing

import (
	"context"

	"github.com/rieske/account-aggregator-go/account"
)

// EventStore persists account event streams. Append must be atomic and must
// fail with account.ConcurrentModification when an event id is already taken
// or a transaction id was already recorded for the account.
type EventStore interface {
	Events(ctx context.Context, accountID string, after int64) ([]account.Event, error)
	Append(ctx context.Context, events []account.Event) error
	TransactionExists(ctx context.Context, accountID, transactionID string) (bool, error)
}
