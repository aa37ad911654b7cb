package serialization

import (
	"bytes"

	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/eventstore"
	"github.com/vmihailenco/msgpack/v5"
)

// Payload field names follow the json tags so both serializers agree on the
// event shape.
const structTag = "json"

type msgpackEventSerializer struct {
}

func NewMsgpackEventSerializer() *msgpackEventSerializer {
	return &msgpackEventSerializer{}
}

func (s msgpackEventSerializer) SerializeEvent(e account.Event) (event eventstore.SerializedEvent, err error) {
	event = envelope(e)
	event.EventType, err = eventTypeAlias(e)
	if err != nil {
		return
	}
	event.Payload, err = marshalMsgpack(e)
	return
}

func (s msgpackEventSerializer) DeserializeEvent(se eventstore.SerializedEvent) (account.Event, error) {
	t, err := eventType(se.EventType)
	if err != nil {
		return nil, err
	}
	return decode(t, se.Payload, unmarshalMsgpack)
}

func marshalMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(structTag)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalMsgpack(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag(structTag)
	return dec.Decode(v)
}
