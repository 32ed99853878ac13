// Package bridge implements the host side of the call/response/event protocol
// spoken with an embedded rendering engine over a text-only transport.
//
// A Client is bound to exactly one engine surface. Calls are correlated by id,
// may be answered in any order, and each returned Handle settles exactly once:
// with the engine's result, with a *RemoteError, or with a transport, encoding,
// timeout or cancellation error. Events pushed by the engine are delivered
// synchronously to listeners in registration order.
//
// Inbound text is fed to HandleMessage by whatever owns the transport. Nothing
// that arrives there can fail the bridge: malformed, stale and unexpected
// messages are logged, counted and dropped.
package bridge

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gaspardpetit/webmap3d-bridge/internal/bridgewire"
	"github.com/gaspardpetit/webmap3d-bridge/internal/events"
	"github.com/gaspardpetit/webmap3d-bridge/internal/largemsg"
	"github.com/gaspardpetit/webmap3d-bridge/internal/metrics"
)

// State enumerates the bridge lifecycle.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sender is the outbound half of a transport adapter. Send must deliver
// messages in the order it is called.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

// Client is the host side of one bridge.
type Client struct {
	sender Sender
	opts   options
	log    zerolog.Logger
	events *events.Registry

	mu        sync.Mutex
	state     State
	next      uint64
	pending   map[string]*Handle
	handshake *handshake
}

type handshake struct {
	done chan struct{}
	err  error
}

type bootstrap struct {
	Version string `json:"version"`
	Nonce   string `json:"nonce"`
}

// New constructs a Client that writes through sender. The caller feeds inbound
// transport text to HandleMessage and must call Init before issuing calls.
func New(sender Sender, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		sender:  sender,
		opts:    o,
		log:     o.logger,
		events:  events.NewRegistry(),
		pending: map[string]*Handle{},
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of outstanding calls.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Init performs the bootstrap handshake and moves the bridge to Ready. It is
// safe to call repeatedly and concurrently: callers arriving while a handshake
// is in flight wait for it, callers arriving after Ready return nil at once.
// A failed handshake returns the bridge to Uninitialized so Init can be retried.
// Cancelling ctx of the caller that started the handshake fails it for all
// waiters.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateReady:
		c.mu.Unlock()
		return nil
	case StateClosed:
		c.mu.Unlock()
		return closedError()
	case StateInitializing:
		hs := c.handshake
		c.mu.Unlock()
		select {
		case <-hs.done:
			return hs.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	hs := &handshake{done: make(chan struct{})}
	c.handshake = hs
	c.state = StateInitializing
	c.mu.Unlock()

	h := c.issue(InitPath, []any{bootstrap{Version: c.opts.schemaVersion, Nonce: uuid.NewString()}}, true)
	_, err := h.Wait(ctx)

	c.mu.Lock()
	switch {
	case c.state == StateClosed:
		if err == nil {
			err = closedError()
		}
	case err == nil:
		c.state = StateReady
	default:
		c.state = StateUninitialized
	}
	hs.err = err
	c.handshake = nil
	c.mu.Unlock()
	close(hs.done)

	if err != nil {
		c.log.Warn().Err(err).Msg("bridge handshake failed")
		return err
	}
	c.log.Debug().Str("version", c.opts.schemaVersion).Msg("bridge ready")
	return nil
}

// Go issues a call to the remote method at path and returns its handle
// without waiting. Calls issued before Init completes fail with ErrNotReady;
// calls issued after Close fail with a TransportError wrapping ErrClosed.
func (c *Client) Go(path string, args ...any) *Handle {
	return c.issue(path, args, false)
}

// Call issues a call and waits for it. When result is non-nil the remote
// result is decoded into it.
func (c *Client) Call(ctx context.Context, path string, result any, args ...any) error {
	return c.Go(path, args...).Decode(ctx, result)
}

// Close fails every outstanding call with a TransportError wrapping ErrClosed
// and stops accepting calls and inbound messages. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	pending := c.pending
	c.pending = map[string]*Handle{}
	c.mu.Unlock()

	for _, h := range pending {
		h.settle(nil, closedError())
	}
	c.log.Debug().Int("failed", len(pending)).Msg("bridge closed")
	return nil
}

// AddListener registers l for event. See events.Registry.AddListener.
func (c *Client) AddListener(event string, l *events.Listener) bool {
	return c.events.AddListener(event, l)
}

// RemoveListener unregisters l from event. Unknown listeners are ignored.
func (c *Client) RemoveListener(event string, l *events.Listener) bool {
	return c.events.RemoveListener(event, l)
}

// Subscribe registers fn for event and returns a function that removes it.
func (c *Client) Subscribe(event string, fn func(data json.RawMessage)) func() {
	l := events.NewListener(fn)
	c.events.AddListener(event, l)
	return func() { c.events.RemoveListener(event, l) }
}

func (c *Client) issue(path string, args []any, bootstrap bool) *Handle {
	h := newHandle(c, path)
	call, err := bridgewire.NewCall("", path, args...)
	if err != nil {
		h.settle(nil, &EncodingError{Op: "marshal args", Err: err})
		return h
	}

	c.mu.Lock()
	switch {
	case c.state == StateClosed:
		c.mu.Unlock()
		h.settle(nil, closedError())
		return h
	case c.state != StateReady && !bootstrap:
		c.mu.Unlock()
		h.settle(nil, ErrNotReady)
		return h
	}
	c.next++
	h.ID = strconv.FormatUint(c.next, 10)
	c.pending[h.ID] = h
	h.registered = true
	if d := c.opts.callTimeout; d > 0 {
		id := h.ID
		h.timer = time.AfterFunc(d, func() { c.settle(id, nil, ErrTimeout) })
	}
	c.mu.Unlock()
	metrics.CallStarted()

	call.ID = h.ID
	text, large, err := c.encode(call)
	if err != nil {
		c.settle(h.ID, nil, &EncodingError{Op: "encode call", Err: err})
		return h
	}
	c.log.Trace().Str("id", h.ID).Str("path", path).Int("bytes", len(text)).Bool("large", large).Msg("call")
	metrics.RecordFrame("out", string(bridgewire.KindCall), large)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.sendTimeout)
	err = c.sender.Send(ctx, text)
	cancel()
	if err != nil {
		c.settle(h.ID, nil, &TransportError{Op: "send", Err: err})
	}
	return h
}

// encode renders an envelope as transport text, switching to the large
// encoding above the configured limit.
func (c *Client) encode(env any) (string, bool, error) {
	body, err := bridgewire.Encode(env)
	if err != nil {
		return "", false, err
	}
	frame := largemsg.EncodeIfLarge(body, c.opts.limit)
	text, err := frame.Marshal()
	return text, frame.IsLarge, err
}

// settle removes id from the pending map and settles its handle. It reports
// false when no call with that id is outstanding.
func (c *Client) settle(id string, result json.RawMessage, err error) bool {
	c.mu.Lock()
	h, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	h.settle(result, err)
	return true
}
