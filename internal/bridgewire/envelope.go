package bridgewire

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates envelope shapes.
type Kind string

const (
	KindCall     Kind = "call"
	KindResponse Kind = "response"
	KindEvent    Kind = "event"
)

// Call asks the counterpart to invoke the method at Path.
type Call struct {
	ID   string            `json:"id"`
	Path string            `json:"path"`
	Args []json.RawMessage `json:"args"`
}

// Fault is the error half of a Response. Code is opaque and passed through as-is.
type Fault struct {
	Code    json.RawMessage `json:"code,omitempty"`
	Message string          `json:"message"`
}

// Response settles the Call with the same ID. Exactly one of Result and Error
// is set; a JSON null Result is a valid success.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Fault          `json:"error,omitempty"`
}

// Event is an unsolicited push from the counterpart.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is a parsed inbound message. Only the field matching Kind is set.
type Envelope struct {
	Kind     Kind
	Call     *Call
	Response *Response
	Event    *Event
}

// NewCall builds a Call, marshalling each argument to JSON.
func NewCall(id, path string, args ...any) (Call, error) {
	raw := make([]json.RawMessage, 0, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return Call{}, fmt.Errorf("arg %d: %w", i, err)
		}
		raw = append(raw, b)
	}
	return Call{ID: id, Path: path, Args: raw}, nil
}

// NewResult builds a success Response. A nil v is sent as JSON null.
func NewResult(id string, v any) (Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Response{}, err
	}
	return Response{ID: id, Result: b}, nil
}

// NewFault builds a failure Response.
func NewFault(id string, code any, message string) (Response, error) {
	var rawCode json.RawMessage
	if code != nil {
		b, err := json.Marshal(code)
		if err != nil {
			return Response{}, err
		}
		rawCode = b
	}
	return Response{ID: id, Error: &Fault{Code: rawCode, Message: message}}, nil
}

// Encode renders any envelope value as text.
func Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseEnvelope classifies and decodes envelope text. Presence of "path" marks
// a Call, "event" an Event, and "id" with exactly one of "result"/"error" a
// Response. Everything else is malformed.
func ParseEnvelope(text string) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Envelope{}, fmt.Errorf("%w: envelope: %v", ErrMalformed, err)
	}
	if fields == nil {
		return Envelope{}, fmt.Errorf("%w: envelope: not an object", ErrMalformed)
	}
	switch {
	case has(fields, "path"):
		var c Call
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return Envelope{}, fmt.Errorf("%w: call: %v", ErrMalformed, err)
		}
		if c.ID == "" || c.Path == "" {
			return Envelope{}, fmt.Errorf("%w: call: missing id or path", ErrMalformed)
		}
		return Envelope{Kind: KindCall, Call: &c}, nil
	case has(fields, "event"):
		var e Event
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return Envelope{}, fmt.Errorf("%w: event: %v", ErrMalformed, err)
		}
		if e.Event == "" {
			return Envelope{}, fmt.Errorf("%w: event: empty name", ErrMalformed)
		}
		return Envelope{Kind: KindEvent, Event: &e}, nil
	case has(fields, "id"):
		_, hasResult := fields["result"]
		hasError := has(fields, "error")
		if hasResult == hasError {
			return Envelope{}, fmt.Errorf("%w: response: need exactly one of result or error", ErrMalformed)
		}
		var r Response
		if err := json.Unmarshal([]byte(text), &r); err != nil {
			return Envelope{}, fmt.Errorf("%w: response: %v", ErrMalformed, err)
		}
		if r.ID == "" {
			return Envelope{}, fmt.Errorf("%w: response: empty id", ErrMalformed)
		}
		return Envelope{Kind: KindResponse, Response: &r}, nil
	default:
		return Envelope{}, fmt.Errorf("%w: envelope: unrecognized shape", ErrMalformed)
	}
}

// has reports whether key is present with a non-null value.
func has(fields map[string]json.RawMessage, key string) bool {
	v, ok := fields[key]
	return ok && !isNull(v)
}
