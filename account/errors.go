package account

import (
	"errors"
	"fmt"
)

// Error is a stable error kind. Callers branch on it with errors.Is or CodeOf.
type Error string

func (e Error) Error() string {
	return fmt.Sprintf("%d ERROR_%s", e.Code(), string(e))
}

// Kind returns the bare kind name, e.g. "ACCOUNT_CLOSED".
func (e Error) Kind() string {
	return string(e)
}

// Code returns the numeric identifier of the kind, 0 if the kind is unknown.
func (e Error) Code() int {
	return codes[e]
}

const (
	EventNotSupported   Error = "EVENT_NOT_SUPPORTED"
	Uninstantiated      Error = "ACCOUNT_UNINSTANTIATED"
	AlreadyExists       Error = "ACCOUNT_ALREADY_EXISTS"
	MaxBalanceExceeded  Error = "BALANCE_SUCCEED_MAX_BALANCE"
	NegativeBalance     Error = "BALANCE_IN_NEGATIVE"
	Deactivated         Error = "TRANSACTION_REJECTED_ACCOUNT_DEACTIVATED"
	Closed              Error = "ACCOUNT_CLOSED"
	InvalidEventStream  Error = "INVALID_EVENT_STREAM"
	NotFound            Error = "ACCOUNT_NOT_FOUND"
	InvalidAmount       Error = "INVALID_AMOUNT"
	UnsupportedCurrency Error = "CURRENCY_NOT_SUPPORTED"

	ConcurrentModification Error = "CONCURRENT_MODIFICATION"
)

var codes = map[Error]int{
	Uninstantiated:         128,
	AlreadyExists:          127,
	EventNotSupported:      162,
	MaxBalanceExceeded:     281,
	NegativeBalance:        285,
	Deactivated:            344,
	Closed:                 502,
	InvalidEventStream:     511,
	NotFound:               404,
	ConcurrentModification: 409,
	UnsupportedCurrency:    415,
	InvalidAmount:          422,
}

// CodeOf extracts the error kind from err, however deeply it is wrapped.
func CodeOf(err error) (Error, bool) {
	var kind Error
	if errors.As(err, &kind) {
		return kind, true
	}
	return "", false
}

func rejected(kind Error, e Event) error {
	base := e.Base()
	return fmt.Errorf("%w: eventId=%d type=%s", kind, base.EventID, e.Type())
}
