package account

// Aggregator folds the event stream of a single account into its snapshot.
// It is a pure function of its input and safe for concurrent use.
type Aggregator struct {
	strictCreation bool
}

type Option func(*Aggregator)

// WithStrictCreation rejects account-created events on a stream that already
// holds an account instead of re-initializing it.
func WithStrictCreation() Option {
	return func(a *Aggregator) {
		a.strictCreation = true
	}
}

func NewAggregator(opts ...Option) Aggregator {
	a := Aggregator{}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// Fold replays events with the default aggregator.
func Fold(events []Event) (*Snapshot, error) {
	return NewAggregator().Fold(events)
}

// Fold returns nil for an empty stream. Any rejected event aborts the whole
// fold and no snapshot is returned.
func (a Aggregator) Fold(events []Event) (*Snapshot, error) {
	return a.fold(nil, events)
}

// Apply continues a fold from a snapshot previously produced by this package.
// A nil snapshot stands for an account that does not exist yet. The given
// snapshot is never modified.
func (a Aggregator) Apply(current *Snapshot, events ...Event) (*Snapshot, error) {
	var s state
	if current != nil {
		restored, err := restore(*current)
		if err != nil {
			return nil, err
		}
		s = restored
	}
	return a.fold(s, events)
}

func (a Aggregator) fold(s state, events []Event) (*Snapshot, error) {
	for _, e := range events {
		next, err := a.apply(s, e)
		if err != nil {
			return nil, err
		}
		s = next
	}
	if s == nil {
		return nil, nil
	}
	snapshot := s.snapshot()
	return &snapshot, nil
}

func (a Aggregator) apply(s state, e Event) (state, error) {
	if s != nil {
		if _, closed := s.(closedAccount); closed {
			return nil, rejected(Closed, e)
		}
		if s.revision()+1 != e.Base().EventID {
			return nil, rejected(InvalidEventStream, e)
		}
	}

	if e, ok := e.(AccountCreated); ok {
		if s != nil && a.strictCreation {
			return nil, rejected(AlreadyExists, e)
		}
		return created(e), nil
	}

	if !supported(e) {
		return nil, rejected(EventNotSupported, e)
	}
	open, ok := s.(openAccount)
	if !ok {
		return nil, rejected(Uninstantiated, e)
	}

	switch e := e.(type) {
	case Deposit:
		return open.deposit(e)
	case Withdrawal:
		return open.withdraw(e)
	case Deactivate:
		return open.deactivate(e), nil
	case Activate:
		return open.activate(e), nil
	case Closure:
		return open.close(e), nil
	case CurrencyChange:
		return open.changeCurrency(e), nil
	default:
		return nil, rejected(EventNotSupported, e)
	}
}

func supported(e Event) bool {
	switch e.(type) {
	case AccountCreated, Deposit, Withdrawal, Deactivate, Activate, Closure, CurrencyChange:
		return true
	}
	return false
}
