// Package largemsg keeps oversized envelope text safe for size-limited string
// transports by carrying it as base64 of its UTF-8 bytes.
package largemsg

import (
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/gaspardpetit/webmap3d-bridge/internal/bridgewire"
)

// ErrCorrupt indicates a large message that is not valid base64 or does not
// decode to UTF-8 text.
var ErrCorrupt = errors.New("corrupt large message")

// EncodeIfLarge wraps text in a transport frame. Text whose UTF-8 length is
// strictly greater than limit is base64-encoded and marked large; anything else
// is passed through unchanged.
func EncodeIfLarge(text string, limit int) bridgewire.Frame {
	if len(text) > limit {
		return bridgewire.Frame{IsLarge: true, Message: base64.StdEncoding.EncodeToString([]byte(text))}
	}
	return bridgewire.Frame{Message: text}
}

// Decode reverses the large-message encoding.
func Decode(message string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(message)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: not utf-8", ErrCorrupt)
	}
	return string(b), nil
}

// Unwrap returns the envelope text carried by f.
func Unwrap(f bridgewire.Frame) (string, error) {
	if !f.IsLarge {
		return f.Message, nil
	}
	return Decode(f.Message)
}
