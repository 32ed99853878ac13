// Package session owns engine connections. A session is one connected
// rendering surface with its own bridge; it is created when the surface
// connects and torn down, failing its outstanding calls, when the connection
// ends. Nothing is shared between sessions.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/gaspardpetit/webmap3d-bridge/internal/bridge"
	"github.com/gaspardpetit/webmap3d-bridge/internal/engine"
	"github.com/gaspardpetit/webmap3d-bridge/internal/sessionstate"
	"github.com/gaspardpetit/webmap3d-bridge/internal/transport"
)

// Mode records which side opened the connection.
type Mode string

const (
	ModeAccept Mode = "accept"
	ModeDial   Mode = "dial"
)

// Session is one engine connection.
type Session struct {
	ID          string
	Mode        Mode
	Remote      string
	ConnectedAt time.Time

	// Bridge carries calls to the engine. Listeners registered on it run on
	// the connection's read goroutine and must not wait for call results;
	// use Bridge.Go or start a goroutine instead.
	Bridge *bridge.Client
	// Engine is the typed surface over Bridge.
	Engine *engine.Engine

	ws  *transport.WebSocket
	log zerolog.Logger
}

// Close ends the session's connection. Outstanding calls fail once the read
// loop notices.
func (s *Session) Close() error {
	return s.ws.Close("session closed")
}

// Snapshot returns the session's published view.
func (s *Session) Snapshot(host string) sessionstate.Snapshot {
	return sessionstate.Snapshot{
		ID:          s.ID,
		Host:        host,
		Mode:        string(s.Mode),
		State:       s.Bridge.State().String(),
		Pending:     s.Bridge.Pending(),
		Remote:      s.Remote,
		ConnectedAt: s.ConnectedAt,
		UpdatedAt:   time.Now().UTC(),
	}
}

// Call forwards a call to the engine after checking path against the schema.
// It returns the raw result.
func (s *Session) Call(ctx context.Context, path string, args ...any) (json.RawMessage, error) {
	if !engine.Known(path) {
		return nil, &UnknownPathError{Path: path}
	}
	return s.Bridge.Go(path, args...).Wait(ctx)
}

// UnknownPathError rejects a path outside the engine schema.
type UnknownPathError struct {
	Path string
}

func (e *UnknownPathError) Error() string {
	return "unknown engine path " + e.Path
}
