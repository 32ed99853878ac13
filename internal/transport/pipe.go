package transport

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoReceiver is returned by Send when the peer has not registered a
	// message handler.
	ErrNoReceiver = errors.New("pipe: peer has no receiver")
	// ErrPipeClosed is returned by Send after either end is closed.
	ErrPipeClosed = errors.New("pipe: closed")
)

// Endpoint is one end of an in-process transport. Send delivers synchronously:
// the peer's handler runs on the sender's goroutine and has returned by the
// time Send does.
type Endpoint struct {
	shared *pipeState
	peer   *Endpoint

	mu   sync.Mutex
	recv func(text string)
}

type pipeState struct {
	mu     sync.Mutex
	closed bool
}

// Pipe returns two connected endpoints.
func Pipe() (*Endpoint, *Endpoint) {
	s := &pipeState{}
	a := &Endpoint{shared: s}
	b := &Endpoint{shared: s}
	a.peer, b.peer = b, a
	return a, b
}

// OnMessage registers the handler for messages sent by the peer, replacing any
// previous one.
func (e *Endpoint) OnMessage(fn func(text string)) {
	e.mu.Lock()
	e.recv = fn
	e.mu.Unlock()
}

// Send delivers text to the peer's handler.
func (e *Endpoint) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.shared.mu.Lock()
	closed := e.shared.closed
	e.shared.mu.Unlock()
	if closed {
		return ErrPipeClosed
	}
	e.peer.mu.Lock()
	fn := e.peer.recv
	e.peer.mu.Unlock()
	if fn == nil {
		return ErrNoReceiver
	}
	fn(text)
	return nil
}

// Close closes both ends.
func (e *Endpoint) Close() error {
	e.shared.mu.Lock()
	e.shared.closed = true
	e.shared.mu.Unlock()
	return nil
}
