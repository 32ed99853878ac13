package bridge

import (
	"fmt"

	"github.com/gaspardpetit/webmap3d-bridge/internal/bridgewire"
	"github.com/gaspardpetit/webmap3d-bridge/internal/events"
	"github.com/gaspardpetit/webmap3d-bridge/internal/largemsg"
	"github.com/gaspardpetit/webmap3d-bridge/internal/metrics"
)

// HandleMessage processes one inbound transport message. It never returns an
// error: anything that cannot be processed is logged, counted, passed to the
// error hook and dropped. Event listeners run on the calling goroutine before
// HandleMessage returns.
func (c *Client) HandleMessage(text string) {
	if c.State() == StateClosed {
		metrics.RecordDropped("closed")
		return
	}
	frame, err := bridgewire.ParseFrame(text)
	if err != nil {
		c.drop("malformed", &ProtocolError{Reason: "frame", Err: err})
		return
	}
	body, err := largemsg.Unwrap(frame)
	if err != nil {
		c.drop("corrupt", &EncodingError{Op: "decode large message", Err: err})
		return
	}
	env, err := bridgewire.ParseEnvelope(body)
	if err != nil {
		c.drop("malformed", &ProtocolError{Reason: "envelope", Err: err})
		return
	}
	metrics.RecordFrame("in", string(env.Kind), frame.IsLarge)

	switch env.Kind {
	case bridgewire.KindResponse:
		c.resolve(env.Response)
	case bridgewire.KindEvent:
		c.dispatch(env.Event)
	case bridgewire.KindCall:
		c.drop("unexpected_call", &ProtocolError{Reason: "call " + env.Call.Path, Err: ErrUnexpectedCall})
	}
}

func (c *Client) resolve(r *bridgewire.Response) {
	var err error
	if r.Error != nil {
		err = &RemoteError{Code: r.Error.Code, Message: r.Error.Message}
	}
	if !c.settle(r.ID, r.Result, err) {
		c.drop("unknown_id", &ProtocolError{Reason: "response " + r.ID, Err: ErrUnknownID})
	}
}

func (c *Client) dispatch(e *bridgewire.Event) {
	metrics.RecordEvent(e.Event)
	n := c.events.Dispatch(e.Event, e.Data, func(_ *events.Listener, v any) {
		c.report("event listener panicked", &ProtocolError{Reason: "listener for " + e.Event, Err: fmt.Errorf("panic: %v", v)})
	})
	if n == 0 {
		c.log.Debug().Str("event", e.Event).Msg("event without listeners")
	}
}

func (c *Client) drop(reason string, err error) {
	metrics.RecordDropped(reason)
	c.report("inbound message dropped", err)
}

func (c *Client) report(msg string, err error) {
	c.log.Warn().Err(err).Msg(msg)
	if c.opts.errorHook != nil {
		c.opts.errorHook(err)
	}
}
