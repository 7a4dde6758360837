package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const EnvelopeVersion = "v1"

// Envelope is the wire wrapper used on the per-user change bus.
type Envelope struct {
	V       string          `json:"v"`
	Type    Kind            `json:"type"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

func Marshal(event Event, now time.Time) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil event", ErrMalformed)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.Kind(), err)
	}
	return json.Marshal(Envelope{
		V:       EnvelopeVersion,
		Type:    event.Kind(),
		TS:      now.UTC(),
		Payload: payload,
	})
}

func Unmarshal(data []byte) (Event, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if envelope.V != EnvelopeVersion {
		return nil, fmt.Errorf("%w: version %q", ErrUnsupported, envelope.V)
	}

	var (
		event Event
		err   error
	)
	switch envelope.Type {
	case KindMatchInserted:
		var e MatchInserted
		err = json.Unmarshal(envelope.Payload, &e)
		event = e
	case KindMatchUpdated:
		var e MatchUpdated
		err = json.Unmarshal(envelope.Payload, &e)
		event = e
	case KindMessageInserted:
		var e MessageInserted
		err = json.Unmarshal(envelope.Payload, &e)
		event = e
	case KindInviteInserted:
		var e InviteInserted
		err = json.Unmarshal(envelope.Payload, &e)
		event = e
	case KindInviteUpdated:
		var e InviteUpdated
		err = json.Unmarshal(envelope.Payload, &e)
		event = e
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnsupported, envelope.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformed, envelope.Type, err)
	}
	return event, nil
}
