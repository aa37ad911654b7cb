package serialization

import (
	"fmt"

	"github.com/rieske/account-aggregator-go/account"
)

// Stored event type aliases. Values are persisted and must never be reused.
const (
	AccountCreated = iota + 1
	Deposit
	Withdrawal
	Deactivate
	Activate
	Closure
	CurrencyChange
)

var aliases = map[account.Type]int{
	account.TypeAccountCreated: AccountCreated,
	account.TypeDeposit:        Deposit,
	account.TypeWithdrawal:     Withdrawal,
	account.TypeDeactivate:     Deactivate,
	account.TypeActivate:       Activate,
	account.TypeClosure:        Closure,
	account.TypeCurrencyChange: CurrencyChange,
}

func eventTypeAlias(e account.Event) (int, error) {
	if _, unknown := e.(account.UnknownEvent); unknown {
		return 0, fmt.Errorf("don't know how to alias %s", e.Type())
	}
	alias, ok := aliases[e.Type()]
	if !ok {
		return 0, fmt.Errorf("don't know how to alias %T", e)
	}
	return alias, nil
}

func eventType(alias int) (account.Type, error) {
	for t, a := range aliases {
		if a == alias {
			return t, nil
		}
	}
	return "", fmt.Errorf("don't know how to deserialize event with type alias %v", alias)
}

type unmarshalFunc func(data []byte, v any) error

func decodeAs[E account.Event](payload []byte, unmarshal unmarshalFunc) (account.Event, error) {
	var e E
	if err := unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}

func decode(t account.Type, payload []byte, unmarshal unmarshalFunc) (account.Event, error) {
	switch t {
	case account.TypeAccountCreated:
		return decodeAs[account.AccountCreated](payload, unmarshal)
	case account.TypeDeposit:
		return decodeAs[account.Deposit](payload, unmarshal)
	case account.TypeWithdrawal:
		return decodeAs[account.Withdrawal](payload, unmarshal)
	case account.TypeDeactivate:
		return decodeAs[account.Deactivate](payload, unmarshal)
	case account.TypeActivate:
		return decodeAs[account.Activate](payload, unmarshal)
	case account.TypeClosure:
		return decodeAs[account.Closure](payload, unmarshal)
	case account.TypeCurrencyChange:
		return decodeAs[account.CurrencyChange](payload, unmarshal)
	default:
		e := account.UnknownEvent{Tag: t}
		if err := unmarshal(payload, &e.Envelope); err != nil {
			return nil, err
		}
		return e, nil
	}
}
