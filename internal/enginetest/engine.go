// Package enginetest provides a scriptable stand-in for the embedded engine.
// It speaks the engine side of the bridge protocol over any text transport.
package enginetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gaspardpetit/webmap3d-bridge/internal/bridgewire"
	"github.com/gaspardpetit/webmap3d-bridge/internal/largemsg"
)

// InitPath is the bootstrap call the engine acknowledges.
const InitPath = "bridge.init"

// HandlerFunc answers a call. A returned *Fault is sent as an error response
// with its code; any other error is sent with code "EngineError".
type HandlerFunc func(args []json.RawMessage) (any, error)

// Fault is an engine-side error with an explicit code.
type Fault struct {
	Code    any
	Message string
}

func (f *Fault) Error() string { return fmt.Sprintf("%v: %s", f.Code, f.Message) }

// Engine answers calls with registered handlers and holds calls without one
// until Respond or Fail is called.
type Engine struct {
	mu       sync.Mutex
	send     func(ctx context.Context, text string) error
	limit    int
	handlers map[string]HandlerFunc
	held     map[string]bridgewire.Call
	calls    []bridgewire.Call
	bad      []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLargeMessageLimit sets the threshold used for the engine's own frames.
func WithLargeMessageLimit(n int) Option {
	return func(e *Engine) { e.limit = n }
}

// New returns an Engine that acknowledges the bootstrap call.
func New(opts ...Option) *Engine {
	e := &Engine{
		limit:    64 * 1024,
		handlers: map[string]HandlerFunc{},
		held:     map[string]bridgewire.Call{},
	}
	e.handlers[InitPath] = func([]json.RawMessage) (any, error) {
		return map[string]string{"status": "ok"}, nil
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attach sets the function used to send text to the host.
func (e *Engine) Attach(send func(ctx context.Context, text string) error) {
	e.mu.Lock()
	e.send = send
	e.mu.Unlock()
}

// Handle registers fn for path. A nil fn removes the handler so calls to path
// are held.
func (e *Engine) Handle(path string, fn HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn == nil {
		delete(e.handlers, path)
		return
	}
	e.handlers[path] = fn
}

// Result is a convenience HandlerFunc that always returns v.
func Result(v any) HandlerFunc {
	return func([]json.RawMessage) (any, error) { return v, nil }
}

// Receive processes one message from the host. Text that is not a call is
// recorded and ignored.
func (e *Engine) Receive(text string) {
	frame, err := bridgewire.ParseFrame(text)
	if err != nil {
		e.reject(text)
		return
	}
	body, err := largemsg.Unwrap(frame)
	if err != nil {
		e.reject(text)
		return
	}
	env, err := bridgewire.ParseEnvelope(body)
	if err != nil || env.Kind != bridgewire.KindCall {
		e.reject(text)
		return
	}
	call := *env.Call

	e.mu.Lock()
	e.calls = append(e.calls, call)
	fn, ok := e.handlers[call.Path]
	if !ok {
		e.held[call.ID] = call
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	v, err := fn(call.Args)
	if err != nil {
		code := any("EngineError")
		if f, ok := err.(*Fault); ok {
			code = f.Code
			err = fmt.Errorf("%s", f.Message)
		}
		_ = e.Fail(call.ID, code, err.Error())
		return
	}
	_ = e.Respond(call.ID, v)
}

// Respond sends a success response for id and releases it if held.
func (e *Engine) Respond(id string, v any) error {
	r, err := bridgewire.NewResult(id, v)
	if err != nil {
		return err
	}
	e.release(id)
	return e.write(r)
}

// Fail sends an error response for id and releases it if held.
func (e *Engine) Fail(id string, code any, message string) error {
	r, err := bridgewire.NewFault(id, code, message)
	if err != nil {
		return err
	}
	e.release(id)
	return e.write(r)
}

// Emit pushes an event to the host.
func (e *Engine) Emit(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return e.write(bridgewire.Event{Event: event, Data: b})
}

// SendRaw writes text to the host unmodified.
func (e *Engine) SendRaw(text string) error {
	e.mu.Lock()
	send := e.send
	e.mu.Unlock()
	if send == nil {
		return fmt.Errorf("enginetest: not attached")
	}
	return send(context.Background(), text)
}

// Calls returns every call received so far, in arrival order.
func (e *Engine) Calls() []bridgewire.Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]bridgewire.Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// Held returns the calls waiting for Respond or Fail.
func (e *Engine) Held() map[string]bridgewire.Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]bridgewire.Call, len(e.held))
	for k, v := range e.held {
		out[k] = v
	}
	return out
}

// Rejected returns messages from the host that were not well-formed calls.
func (e *Engine) Rejected() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bad...)
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	delete(e.held, id)
	e.mu.Unlock()
}

func (e *Engine) reject(text string) {
	e.mu.Lock()
	e.bad = append(e.bad, text)
	e.mu.Unlock()
}

func (e *Engine) write(env any) error {
	body, err := bridgewire.Encode(env)
	if err != nil {
		return err
	}
	text, err := largemsg.EncodeIfLarge(body, e.limit).Marshal()
	if err != nil {
		return err
	}
	return e.SendRaw(text)
}
