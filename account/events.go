package account

// Type is the discriminating tag of an event.
type Type string

const (
	TypeAccountCreated Type = "account-created"
	TypeDeposit        Type = "deposit"
	TypeWithdrawal     Type = "withdrawal"
	TypeDeactivate     Type = "deactivate"
	TypeActivate       Type = "activate"
	TypeClosure        Type = "closure"
	TypeCurrencyChange Type = "currency-change"
)

// Envelope is carried by every event. EventID is the 1-based position of the
// event in its account stream.
type Envelope struct {
	EventID   int64  `json:"eventId"`
	Timestamp string `json:"timestamp"`
	AccountID string `json:"accountId"`
}

func (e Envelope) Base() Envelope {
	return e
}

type Event interface {
	Type() Type
	Base() Envelope
}

type AccountCreated struct {
	Envelope
	CustomerID     string   `json:"customerId"`
	InitialBalance int64    `json:"initialBalance"`
	MaxBalance     int64    `json:"maxBalance"`
	Currency       Currency `json:"currency"`
}

func (AccountCreated) Type() Type { return TypeAccountCreated }

type Deposit struct {
	Envelope
	Amount        int64    `json:"amount"`
	TransactionID string   `json:"transactionId"`
	Currency      Currency `json:"currency"`
}

func (Deposit) Type() Type { return TypeDeposit }

type Withdrawal struct {
	Envelope
	Amount        int64    `json:"amount"`
	TransactionID string   `json:"transactionId"`
	Currency      Currency `json:"currency"`
}

func (Withdrawal) Type() Type { return TypeWithdrawal }

type Deactivate struct {
	Envelope
	Reason string `json:"reason"`
}

func (Deactivate) Type() Type { return TypeDeactivate }

type Activate struct {
	Envelope
}

func (Activate) Type() Type { return TypeActivate }

type Closure struct {
	Envelope
	Reason string `json:"reason"`
}

func (Closure) Type() Type { return TypeClosure }

type CurrencyChange struct {
	Envelope
	NewBalance  int64    `json:"newBalance"`
	NewCurrency Currency `json:"newCurrency"`
}

func (CurrencyChange) Type() Type { return TypeCurrencyChange }

// UnknownEvent holds an event whose tag matches none of the known variants.
// Folding it fails with EventNotSupported.
type UnknownEvent struct {
	Envelope
	Tag Type `json:"-"`
}

func (e UnknownEvent) Type() Type { return e.Tag }

// TransactionID returns the transaction id of financial events.
func TransactionID(e Event) (string, bool) {
	switch e := e.(type) {
	case Deposit:
		return e.TransactionID, e.TransactionID != ""
	case Withdrawal:
		return e.TransactionID, e.TransactionID != ""
	}
	return "", false
}
