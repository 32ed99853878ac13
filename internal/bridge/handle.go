package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gaspardpetit/webmap3d-bridge/internal/metrics"
)

// Handle is the pending result of one call. It settles exactly once.
type Handle struct {
	// ID is the correlation id sent on the wire. It is empty for calls that
	// failed before being issued.
	ID   string
	Path string

	c          *Client
	start      time.Time
	done       chan struct{}
	once       sync.Once
	result     json.RawMessage
	err        error
	timer      *time.Timer
	registered bool
}

func newHandle(c *Client, path string) *Handle {
	return &Handle{c: c, Path: path, start: time.Now(), done: make(chan struct{})}
}

// Done is closed once the handle has settled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the settled outcome. It must only be called after Done is
// closed.
func (h *Handle) Result() (json.RawMessage, error) { return h.result, h.err }

// Wait blocks until the handle settles or ctx is done. When ctx ends first the
// call is abandoned: it is removed from the pending set, settled with
// ctx.Err(), and any response that arrives later is dropped as stale.
func (h *Handle) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		if h.c != nil && h.ID != "" {
			h.c.settle(h.ID, nil, ctx.Err())
		}
		<-h.done
	}
	return h.result, h.err
}

// Decode waits for the handle and unmarshals the result into v. A nil v
// discards the result.
func (h *Handle) Decode(ctx context.Context, v any) error {
	raw, err := h.Wait(ctx)
	if err != nil || v == nil {
		return err
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &EncodingError{Op: "decode result of " + h.Path, Err: err}
	}
	return nil
}

func (h *Handle) settle(result json.RawMessage, err error) {
	h.once.Do(func() {
		if h.timer != nil {
			h.timer.Stop()
		}
		h.result = result
		h.err = err
		if h.registered {
			metrics.CallSettled()
			metrics.RecordCall(h.Path, outcome(err), time.Since(h.start))
		}
		close(h.done)
	})
}

func outcome(err error) string {
	var te *TransportError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRemote):
		return "remote_error"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "abandoned"
	case errors.As(err, &te):
		return "transport_error"
	default:
		return "error"
	}
}
