package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrClosed is wrapped in the TransportError that fails calls outstanding
	// at Close, and calls issued afterwards.
	ErrClosed = errors.New("bridge closed")
	// ErrNotReady fails calls issued before Init has completed.
	ErrNotReady = errors.New("bridge not ready")
	// ErrTimeout fails a call that outlived the configured call timeout.
	ErrTimeout = errors.New("call timed out")
	// ErrUnknownID reports a response whose id matches no outstanding call.
	// Duplicate and stale responses end up here too.
	ErrUnknownID = errors.New("response for unknown call id")
	// ErrUnexpectedCall reports a Call envelope sent by the engine; the host
	// exposes no methods.
	ErrUnexpectedCall = errors.New("unexpected call from engine")

	// ErrRemote matches any *RemoteError with errors.Is.
	ErrRemote = &RemoteError{}
)

// TransportError reports that a message could not be carried: the send
// primitive failed or the bridge was closed with the call outstanding.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports an inbound message that violated the protocol. These
// are absorbed by the bridge and only surface through logging and the error
// hook.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return "protocol: " + e.Reason
	}
	return fmt.Sprintf("protocol: %s: %v", e.Reason, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RemoteError is a failure reported by the engine for a specific call. Code
// is the raw JSON the engine sent, unmodified.
type RemoteError struct {
	Code    json.RawMessage
	Message string
}

func (e *RemoteError) Error() string {
	if len(e.Code) == 0 {
		return "remote: " + e.Message
	}
	return fmt.Sprintf("remote %s: %s", e.Code, e.Message)
}

// Is supports errors.Is by matching any *RemoteError target.
func (e *RemoteError) Is(target error) bool {
	_, ok := target.(*RemoteError)
	return ok
}

// EncodingError reports a payload that could not be encoded or decoded.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func closedError() error {
	return &TransportError{Op: "close", Err: ErrClosed}
}
