package eventstore

// SerializedEvent is the storage representation of an account event.
type SerializedEvent struct {
	AccountID     string
	EventID       int64
	EventType     int
	TransactionID string
	Payload       []byte
}
