package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/eventstore"
	"github.com/rieske/account-aggregator-go/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

const schemaVersion = 2

type EventStore struct {
	db                    *sql.DB
	log                   logr.Logger
	selectEventsStmt      *sql.Stmt
	selectTransactionStmt *sql.Stmt
}

const (
	appendEventSql  = "INSERT INTO Event(accountId, eventId, transactionId, eventType, payload) VALUES($1, $2, $3, $4, $5)"
	selectEventsSql = "SELECT eventId, transactionId, eventType, payload FROM Event WHERE accountId = $1 AND eventId > $2 ORDER BY eventId ASC"

	insertTransactionSql = "INSERT INTO Transaction(accountId, transactionId) VALUES($1, $2)"
	selectTransactionSql = "SELECT accountId FROM Transaction WHERE accountId = $1 AND transactionId = $2"

	uniqueViolation = "23505"
)

func MigrateSchema(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "event_store", driver)
	if err != nil {
		return err
	}

	if err := m.Migrate(schemaVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func NewEventStore(db *sql.DB) (*EventStore, error) {
	selectEventsStmt, err := db.Prepare(selectEventsSql)
	if err != nil {
		return nil, err
	}
	selectTransactionStmt, err := db.Prepare(selectTransactionSql)
	if err != nil {
		return nil, err
	}
	return &EventStore{
		db:                    db,
		log:                   logger.Default().WithName("postgres"),
		selectEventsStmt:      selectEventsStmt,
		selectTransactionStmt: selectTransactionStmt,
	}, nil
}

func (es *EventStore) Events(ctx context.Context, accountID string, after int64) ([]eventstore.SerializedEvent, error) {
	var events []eventstore.SerializedEvent

	err := es.sqlSelect(
		ctx,
		es.selectEventsStmt,
		func(rows *sql.Rows) error {
			for rows.Next() {
				event := eventstore.SerializedEvent{AccountID: accountID}
				var transactionID sql.NullString
				if err := rows.Scan(&event.EventID, &transactionID, &event.EventType, &event.Payload); err != nil {
					return err
				}
				event.TransactionID = transactionID.String
				events = append(events, event)
			}
			return nil
		},
		accountID, after,
	)

	return events, err
}

func (es *EventStore) TransactionExists(ctx context.Context, accountID, transactionID string) (bool, error) {
	transactionExists := false

	err := es.sqlSelect(
		ctx,
		es.selectTransactionStmt,
		func(rows *sql.Rows) error {
			transactionExists = rows.Next()
			return nil
		},
		accountID, transactionID,
	)

	return transactionExists, err
}

// Append writes all events in one transaction. Primary keys on
// (accountId, eventId) and (accountId, transactionId) reject concurrent writers.
func (es *EventStore) Append(ctx context.Context, events []eventstore.SerializedEvent) error {
	if err := es.append(ctx, events); err != nil {
		return toConcurrentModification(err)
	}
	return nil
}

func (es *EventStore) Close() error {
	return errors.Join(es.selectEventsStmt.Close(), es.selectTransactionStmt.Close())
}

func (es *EventStore) append(ctx context.Context, events []eventstore.SerializedEvent) error {
	return es.withTransaction(ctx, func(tx *sql.Tx) error {
		if err := es.insertEvents(ctx, tx, events); err != nil {
			return err
		}
		return insertTransactions(ctx, tx, events)
	})
}

func (es *EventStore) withTransaction(ctx context.Context, doInTx func(tx *sql.Tx) error) error {
	tx, err := es.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := doInTx(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("error while rolling back tx %v, original error %w", rollbackErr, err)
		}
		return err
	}

	return tx.Commit()
}

func (es *EventStore) sqlSelect(
	ctx context.Context,
	stmt *sql.Stmt,
	rowExtractor func(rows *sql.Rows) error,
	args ...any,
) error {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return err
	}
	defer es.closeResource(rows)

	if err := rowExtractor(rows); err != nil {
		return err
	}
	return rows.Err()
}

func (es *EventStore) insertEvents(ctx context.Context, tx *sql.Tx, events []eventstore.SerializedEvent) error {
	insertEventsStmt, err := tx.PrepareContext(ctx, appendEventSql)
	if err != nil {
		return err
	}
	defer es.closeResource(insertEventsStmt)

	for _, event := range events {
		transactionID := sql.NullString{String: event.TransactionID, Valid: event.TransactionID != ""}
		if _, err := insertEventsStmt.ExecContext(ctx, event.AccountID, event.EventID, transactionID, event.EventType, event.Payload); err != nil {
			return err
		}
	}
	return nil
}

func insertTransactions(ctx context.Context, tx *sql.Tx, events []eventstore.SerializedEvent) error {
	for _, event := range events {
		if event.TransactionID == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, insertTransactionSql, event.AccountID, event.TransactionID); err != nil {
			return err
		}
	}
	return nil
}

func toConcurrentModification(err error) error {
	var e *pq.Error
	if errors.As(err, &e) && e.Code == uniqueViolation {
		return account.ConcurrentModification
	}
	return err
}

func (es *EventStore) closeResource(c io.Closer) {
	if err := c.Close(); err != nil {
		es.log.Error(err, "could not close resource")
	}
}
