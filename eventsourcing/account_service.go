package eventsourcing

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/logger"
)

const maxAttempts = 3

type AccountService struct {
	repo repository
	log  logr.Logger
}

type Option func(*options)

type options struct {
	clock func() time.Time
	log   logr.Logger
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func NewAccountService(store EventStore, opts ...Option) *AccountService {
	o := options{clock: time.Now, log: logger.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &AccountService{
		repo: newRepository(store, o.clock),
		log:  o.log.WithName("account-service"),
	}
}

func (s AccountService) OpenAccount(ctx context.Context, id, customerID string, initialBalance, maxBalance int64, currency account.Currency) error {
	if err := validateCurrency(currency); err != nil {
		return s.rejected("open", id, err)
	}
	return s.withRetry("open", id, func() error {
		return s.repo.create(ctx, id, func(env account.Envelope) account.Event {
			return account.AccountCreated{
				Envelope:       env,
				CustomerID:     customerID,
				InitialBalance: initialBalance,
				MaxBalance:     maxBalance,
				Currency:       currency,
			}
		})
	})
}

func (s AccountService) Deposit(ctx context.Context, id, txID string, amount int64, currency account.Currency) error {
	if err := validateTransaction(amount, currency); err != nil {
		return s.rejected("deposit", id, err)
	}
	return s.withRetry("deposit", id, func() error {
		return s.idempotent(ctx, id, txID, func(env account.Envelope) account.Event {
			return account.Deposit{Envelope: env, Amount: amount, TransactionID: txID, Currency: currency}
		})
	})
}

func (s AccountService) Withdraw(ctx context.Context, id, txID string, amount int64, currency account.Currency) error {
	if err := validateTransaction(amount, currency); err != nil {
		return s.rejected("withdraw", id, err)
	}
	return s.withRetry("withdraw", id, func() error {
		return s.idempotent(ctx, id, txID, func(env account.Envelope) account.Event {
			return account.Withdrawal{Envelope: env, Amount: amount, TransactionID: txID, Currency: currency}
		})
	})
}

func (s AccountService) Deactivate(ctx context.Context, id, reason string) error {
	return s.withRetry("deactivate", id, func() error {
		return s.repo.transact(ctx, id, func(env account.Envelope) account.Event {
			return account.Deactivate{Envelope: env, Reason: reason}
		})
	})
}

func (s AccountService) Activate(ctx context.Context, id string) error {
	return s.withRetry("activate", id, func() error {
		return s.repo.transact(ctx, id, func(env account.Envelope) account.Event {
			return account.Activate{Envelope: env}
		})
	})
}

func (s AccountService) CloseAccount(ctx context.Context, id, reason string) error {
	return s.withRetry("close", id, func() error {
		return s.repo.transact(ctx, id, func(env account.Envelope) account.Event {
			return account.Closure{Envelope: env, Reason: reason}
		})
	})
}

func (s AccountService) ChangeCurrency(ctx context.Context, id string, newBalance int64, newCurrency account.Currency) error {
	if err := validateCurrency(newCurrency); err != nil {
		return s.rejected("change-currency", id, err)
	}
	return s.withRetry("change-currency", id, func() error {
		return s.repo.transact(ctx, id, func(env account.Envelope) account.Event {
			return account.CurrencyChange{Envelope: env, NewBalance: newBalance, NewCurrency: newCurrency}
		})
	})
}

func (s AccountService) QueryAccount(ctx context.Context, id string) (*account.Snapshot, error) {
	return s.repo.query(ctx, id)
}

func (s AccountService) Events(ctx context.Context, id string) ([]account.Event, error) {
	events, err := s.repo.store.Events(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, account.NotFound
	}
	return events, nil
}

func (s AccountService) idempotent(ctx context.Context, id, txID string, b build) error {
	transactionExists, err := s.repo.store.TransactionExists(ctx, id, txID)
	if err != nil {
		return err
	}
	if transactionExists {
		return nil
	}
	return s.repo.transact(ctx, id, b)
}

func (s AccountService) withRetry(command, id string, fn func() error) error {
	var err error
	for try := 0; try < maxAttempts; try++ {
		err = fn()
		if !errors.Is(err, account.ConcurrentModification) {
			break
		}
	}
	if err != nil {
		return s.rejected(command, id, err)
	}
	return nil
}

func (s AccountService) rejected(command, id string, err error) error {
	log := s.log.WithValues("command", command, "accountId", id)
	if kind, ok := account.CodeOf(err); ok {
		commandsRejected.WithLabelValues(kind.Kind()).Inc()
		log.V(1).Info("command rejected", "code", kind.Code(), "reason", err.Error())
		return err
	}
	log.Error(err, "command failed")
	return err
}

func validateTransaction(amount int64, currency account.Currency) error {
	if amount <= 0 {
		return account.InvalidAmount
	}
	return validateCurrency(currency)
}

func validateCurrency(currency account.Currency) error {
	if !currency.Valid() {
		return account.UnsupportedCurrency
	}
	return nil
}
