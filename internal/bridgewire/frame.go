package bridgewire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every parse failure in this package.
var ErrMalformed = errors.New("malformed message")

// Frame is the transport-level wrapper around every envelope. Message holds the
// envelope text verbatim when IsLarge is false, or its base64-encoded UTF-8 bytes
// when IsLarge is true.
type Frame struct {
	IsLarge bool   `json:"isLarge"`
	Message string `json:"message"`
}

// Marshal renders the frame as the text handed to the transport.
func (f Frame) Marshal() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseFrame decodes inbound transport text. Both fields are required and must
// have the right JSON type.
func ParseFrame(text string) (Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Frame{}, fmt.Errorf("%w: frame: %v", ErrMalformed, err)
	}
	var f Frame
	rawLarge, ok := fields["isLarge"]
	if !ok {
		return Frame{}, fmt.Errorf("%w: frame: missing isLarge", ErrMalformed)
	}
	if err := json.Unmarshal(rawLarge, &f.IsLarge); err != nil || isNull(rawLarge) {
		return Frame{}, fmt.Errorf("%w: frame: isLarge is not a boolean", ErrMalformed)
	}
	rawMsg, ok := fields["message"]
	if !ok {
		return Frame{}, fmt.Errorf("%w: frame: missing message", ErrMalformed)
	}
	if err := json.Unmarshal(rawMsg, &f.Message); err != nil || isNull(rawMsg) {
		return Frame{}, fmt.Errorf("%w: frame: message is not a string", ErrMalformed)
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
