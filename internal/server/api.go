package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gaspardpetit/webmap3d-bridge/internal/bridge"
	"github.com/gaspardpetit/webmap3d-bridge/internal/engine"
	"github.com/gaspardpetit/webmap3d-bridge/internal/logx"
	"github.com/gaspardpetit/webmap3d-bridge/internal/session"
	"github.com/gaspardpetit/webmap3d-bridge/internal/sessionstate"
)

const maxCallBody = 16 << 20

// API implements the HTTP endpoints over a session manager.
type API struct {
	Sessions *session.Manager
	// CallTimeout bounds forwarded calls; zero leaves them bounded by the
	// request only.
	CallTimeout time.Duration
}

type apiError struct {
	Code    json.RawMessage `json:"code,omitempty"`
	Message string          `json:"message"`
}

type errorBody struct {
	Error apiError `json:"error"`
}

// CallRequest is the body of POST /api/sessions/{id}/call.
type CallRequest struct {
	Path string            `json:"path"`
	Args []json.RawMessage `json:"args"`
}

// CallResponse carries the engine's raw result.
type CallResponse struct {
	Result json.RawMessage `json:"result"`
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if sessionstate.IsDraining() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":   sessionstate.HostStatus(),
		"sessions": len(a.Sessions.List()),
	})
}

func (a *API) Schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version": engine.SchemaVersion,
		"paths":   engine.Paths(),
	})
}

// ListSessions returns every published session, including those held by
// other hosts sharing the store.
func (a *API) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := a.Sessions.Store().List(r.Context())
	if err != nil {
		logx.Log.Error().Err(err).Msg("list sessions")
		writeError(w, http.StatusInternalServerError, nil, "session store unavailable")
		return
	}
	if list == nil {
		list = []sessionstate.Snapshot{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok, err := a.Sessions.Store().Get(r.Context(), id)
	if err != nil {
		logx.Log.Error().Err(err).Str("session_id", id).Msg("get session")
		writeError(w, http.StatusInternalServerError, nil, "session store unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, nil, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// CallSession forwards one call to a session connected to this host.
func (a *API) CallSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := a.Sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, nil, "session not connected to this host")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, "bad request")
		return
	}
	var req CallRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, nil, "body must be {\"path\": string, \"args\": array}")
		return
	}
	args := make([]any, len(req.Args))
	for i, arg := range req.Args {
		args[i] = arg
	}

	ctx := r.Context()
	if a.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.CallTimeout)
		defer cancel()
	}
	start := time.Now()
	raw, err := s.Call(ctx, req.Path, args...)
	log := logx.Log.With().Str("session_id", id).Str("path", req.Path).Dur("elapsed", time.Since(start)).Logger()
	if err != nil {
		status, code := classify(err)
		log.Warn().Err(err).Int("status", status).Msg("forwarded call failed")
		writeError(w, status, code, err.Error())
		return
	}
	log.Info().Msg("forwarded call")
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, CallResponse{Result: raw})
}

// classify maps a call error to an HTTP status and, for engine errors, the
// engine's code.
func classify(err error) (int, json.RawMessage) {
	var remote *bridge.RemoteError
	var unknown *session.UnknownPathError
	var enc *bridge.EncodingError
	switch {
	case errors.As(err, &remote):
		return http.StatusBadGateway, remote.Code
	case errors.As(err, &unknown), errors.As(err, &enc):
		return http.StatusBadRequest, nil
	case errors.Is(err, bridge.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, nil
	case errors.Is(err, bridge.ErrClosed), errors.Is(err, bridge.ErrNotReady):
		return http.StatusServiceUnavailable, nil
	default:
		return http.StatusBadGateway, nil
	}
}

func writeError(w http.ResponseWriter, status int, code json.RawMessage, msg string) {
	writeJSON(w, status, errorBody{Error: apiError{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
