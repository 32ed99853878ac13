package enginetest

import (
	"context"

	"github.com/gaspardpetit/webmap3d-bridge/internal/transport"
)

// ServePipe binds the engine to one end of an in-process pipe.
func (e *Engine) ServePipe(end *transport.Endpoint) {
	e.Attach(end.Send)
	end.OnMessage(e.Receive)
}

// ServeWebSocket binds the engine to ws and processes messages until the
// connection ends.
func (e *Engine) ServeWebSocket(ctx context.Context, ws *transport.WebSocket) error {
	e.Attach(ws.Send)
	return ws.Run(ctx, e.Receive)
}
