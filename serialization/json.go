package serialization

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/eventstore"
)

var ErrMissingType = errors.New("event type is missing")

// DecodeEvent decodes one event of the JSON wire format, discriminating on its
// "type" field. Tags that match no known variant yield an account.UnknownEvent.
func DecodeEvent(data []byte) (account.Event, error) {
	var tagged struct {
		Type *account.Type `json:"type"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, err
	}
	if tagged.Type == nil {
		return nil, ErrMissingType
	}
	return decode(*tagged.Type, data, json.Unmarshal)
}

// DecodeStream decodes a JSON array of events, keeping their order.
func DecodeStream(data []byte) ([]account.Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	events := make([]account.Event, 0, len(raw))
	for i, r := range raw {
		e, err := DecodeEvent(r)
		if err != nil {
			return nil, fmt.Errorf("event at index %d: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func EncodeEvent(e account.Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	fields["type"], err = json.Marshal(e.Type())
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func EncodeStream(events []account.Event) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(events))
	for _, e := range events {
		b, err := EncodeEvent(e)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

type jsonEventSerializer struct {
}

func NewJsonEventSerializer() *jsonEventSerializer {
	return &jsonEventSerializer{}
}

func (s jsonEventSerializer) SerializeEvent(e account.Event) (event eventstore.SerializedEvent, err error) {
	event = envelope(e)
	event.EventType, err = eventTypeAlias(e)
	if err != nil {
		return
	}
	event.Payload, err = json.Marshal(e)
	return
}

func (s jsonEventSerializer) DeserializeEvent(se eventstore.SerializedEvent) (account.Event, error) {
	t, err := eventType(se.EventType)
	if err != nil {
		return nil, err
	}
	return decode(t, se.Payload, json.Unmarshal)
}

func envelope(e account.Event) eventstore.SerializedEvent {
	base := e.Base()
	txID, _ := account.TransactionID(e)
	return eventstore.SerializedEvent{
		AccountID:     base.AccountID,
		EventID:       base.EventID,
		TransactionID: txID,
	}
}
