// Package transport adapts concrete connections to the text-only send and
// deliver primitives the bridge is built on.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// DefaultReadLimit bounds a single inbound websocket message. Large engine
// payloads travel base64 encoded, so this sits well above the large-message
// threshold.
const DefaultReadLimit = 16 << 20

// WebSocket carries bridge text over a websocket connection. Only text
// messages are exchanged; binary messages are discarded.
type WebSocket struct {
	conn *websocket.Conn
	log  zerolog.Logger
	mu   sync.Mutex
}

// NewWebSocket wraps conn. A non-positive readLimit uses DefaultReadLimit.
func NewWebSocket(conn *websocket.Conn, readLimit int64, log zerolog.Logger) *WebSocket {
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}
	conn.SetReadLimit(readLimit)
	return &WebSocket{conn: conn, log: log}
}

// Send writes text as one websocket text message. Concurrent sends are
// serialized in call order.
func (w *WebSocket) Send(ctx context.Context, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Write(ctx, websocket.MessageText, []byte(text))
}

// Run reads messages and hands each text message to deliver on the calling
// goroutine until ctx ends or the connection closes. A normal closure by the
// peer returns nil.
func (w *WebSocket) Run(ctx context.Context, deliver func(text string)) error {
	for {
		typ, data, err := w.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			w.log.Warn().Int("bytes", len(data)).Msg("binary message ignored")
			continue
		}
		deliver(string(data))
	}
}

// KeepAlive pings the peer every interval until ctx ends. A failed ping
// closes the connection, which unblocks Run.
func (w *WebSocket) KeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, interval)
			err := w.conn.Ping(pctx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					w.log.Warn().Err(err).Msg("ping failed; closing")
					_ = w.conn.Close(websocket.StatusGoingAway, "ping timeout")
				}
				return
			}
		}
	}
}

// Close closes the connection with a normal closure.
func (w *WebSocket) Close(reason string) error {
	return w.conn.Close(websocket.StatusNormalClosure, reason)
}
