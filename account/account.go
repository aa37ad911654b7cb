package account

import (
	"fmt"
	"math"
	"strings"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusClosed   Status = "closed"
)

type LogEntry struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Snapshot is the materialized state of one account.
type Snapshot struct {
	AccountID  string     `json:"accountId"`
	CustomerID string     `json:"customerId"`
	Balance    int64      `json:"balance"`
	Currency   Currency   `json:"currency"`
	MaxBalance int64      `json:"maxBalance"`
	Status     Status     `json:"status"`
	AccountLog []LogEntry `json:"accountLog"`
	Revision   int64      `json:"revision"`
}

// accountLog is append-only. with never touches the receiver's backing array,
// so a log held by a previous state stays intact.
type accountLog []LogEntry

func (l accountLog) with(e Event, message string) accountLog {
	next := make(accountLog, len(l), len(l)+1)
	copy(next, l)
	return append(next, LogEntry{
		Type:      strings.ToUpper(string(e.Type())),
		Message:   message,
		Timestamp: e.Base().Timestamp,
	})
}

type details struct {
	accountID  string
	customerID string
	balance    int64
	currency   Currency
	maxBalance int64
	log        accountLog
	revision   int64
}

func (d details) advance(e Event) details {
	d.revision = e.Base().EventID
	return d
}

func (d details) snapshot(status Status) Snapshot {
	log := make([]LogEntry, len(d.log))
	copy(log, d.log)
	return Snapshot{
		AccountID:  d.accountID,
		CustomerID: d.customerID,
		Balance:    d.balance,
		Currency:   d.currency,
		MaxBalance: d.maxBalance,
		Status:     status,
		AccountLog: log,
		Revision:   d.revision,
	}
}

// credit and debit reject a move whose sum does not fit in int64 with the
// bound it would have crossed.
func (d details) credit(e Event, amount int64) (details, error) {
	if amount > 0 && d.balance > math.MaxInt64-amount {
		return d, rejected(MaxBalanceExceeded, e)
	}
	if amount < 0 && d.balance < math.MinInt64-amount {
		return d, rejected(NegativeBalance, e)
	}
	return d.settle(e, d.balance+amount)
}

func (d details) debit(e Event, amount int64) (details, error) {
	if amount < 0 && d.balance > math.MaxInt64+amount {
		return d, rejected(MaxBalanceExceeded, e)
	}
	if amount > 0 && d.balance < math.MinInt64+amount {
		return d, rejected(NegativeBalance, e)
	}
	return d.settle(e, d.balance-amount)
}

func (d details) settle(e Event, balance int64) (details, error) {
	if balance > d.maxBalance {
		return d, rejected(MaxBalanceExceeded, e)
	}
	if balance < 0 {
		return d, rejected(NegativeBalance, e)
	}
	d.balance = balance
	return d.advance(e), nil
}

type state interface {
	revision() int64
	snapshot() Snapshot
}

// openAccount is implemented by every state that still accepts events.
type openAccount interface {
	state
	deposit(Deposit) (state, error)
	withdraw(Withdrawal) (state, error)
	deactivate(Deactivate) state
	activate(Activate) state
	close(Closure) state
	changeCurrency(CurrencyChange) state
}

func created(e AccountCreated) activeAccount {
	return activeAccount{details{
		accountID:  e.AccountID,
		customerID: e.CustomerID,
		balance:    e.InitialBalance,
		currency:   e.Currency,
		maxBalance: e.MaxBalance,
		log:        accountLog{},
		revision:   e.EventID,
	}}
}

type activeAccount struct{ details }

func (a activeAccount) revision() int64    { return a.details.revision }
func (a activeAccount) snapshot() Snapshot { return a.details.snapshot(StatusActive) }

func (a activeAccount) deposit(e Deposit) (state, error) {
	d, err := a.credit(e, e.Amount)
	if err != nil {
		return nil, err
	}
	return activeAccount{d}, nil
}

func (a activeAccount) withdraw(e Withdrawal) (state, error) {
	d, err := a.debit(e, e.Amount)
	if err != nil {
		return nil, err
	}
	return activeAccount{d}, nil
}

func (a activeAccount) deactivate(e Deactivate) state {
	return deactivated(a.details, e)
}

// activate on an active account only moves the revision.
func (a activeAccount) activate(e Activate) state {
	return activeAccount{a.advance(e)}
}

func (a activeAccount) close(e Closure) state {
	return closed(a.details, e)
}

func (a activeAccount) changeCurrency(e CurrencyChange) state {
	return activeAccount{currencyChanged(a.details, e)}
}

type disabledAccount struct{ details }

func (a disabledAccount) revision() int64    { return a.details.revision }
func (a disabledAccount) snapshot() Snapshot { return a.details.snapshot(StatusDisabled) }

func (a disabledAccount) deposit(e Deposit) (state, error) {
	return nil, rejected(Deactivated, e)
}

func (a disabledAccount) withdraw(e Withdrawal) (state, error) {
	return nil, rejected(Deactivated, e)
}

func (a disabledAccount) deactivate(e Deactivate) state {
	return deactivated(a.details, e)
}

func (a disabledAccount) activate(e Activate) state {
	d := a.advance(e)
	d.log = d.log.with(e, "Account reactivated")
	return activeAccount{d}
}

func (a disabledAccount) close(e Closure) state {
	return closed(a.details, e)
}

func (a disabledAccount) changeCurrency(e CurrencyChange) state {
	return disabledAccount{currencyChanged(a.details, e)}
}

// closedAccount is terminal and accepts no events.
type closedAccount struct{ details }

func (a closedAccount) revision() int64    { return a.details.revision }
func (a closedAccount) snapshot() Snapshot { return a.details.snapshot(StatusClosed) }

func deactivated(d details, e Deactivate) disabledAccount {
	d = d.advance(e)
	d.log = d.log.with(e, e.Reason)
	return disabledAccount{d}
}

func closed(d details, e Closure) closedAccount {
	d = d.advance(e)
	d.log = d.log.with(e, fmt.Sprintf("Reason: %s, Closing Balance: '%d'", e.Reason, d.balance))
	return closedAccount{d}
}

func currencyChanged(d details, e CurrencyChange) details {
	d = d.advance(e)
	d.log = d.log.with(e, fmt.Sprintf("Change currency from '%s' to '%s'", d.currency, e.NewCurrency))
	d.balance = e.NewBalance
	d.currency = e.NewCurrency
	return d
}

func restore(s Snapshot) (state, error) {
	log := make(accountLog, len(s.AccountLog))
	copy(log, s.AccountLog)
	d := details{
		accountID:  s.AccountID,
		customerID: s.CustomerID,
		balance:    s.Balance,
		currency:   s.Currency,
		maxBalance: s.MaxBalance,
		log:        log,
		revision:   s.Revision,
	}
	switch s.Status {
	case StatusActive:
		return activeAccount{d}, nil
	case StatusDisabled:
		return disabledAccount{d}, nil
	case StatusClosed:
		return closedAccount{d}, nil
	default:
		return nil, fmt.Errorf("unknown account status %q", s.Status)
	}
}
