package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/gaspardpetit/webmap3d-bridge/internal/config"
	"github.com/gaspardpetit/webmap3d-bridge/internal/engine"
	"github.com/gaspardpetit/webmap3d-bridge/internal/enginetest"
	"github.com/gaspardpetit/webmap3d-bridge/internal/metrics"
	"github.com/gaspardpetit/webmap3d-bridge/internal/session"
	"github.com/gaspardpetit/webmap3d-bridge/internal/transport"
)

func testConfig() config.HostConfig {
	return config.HostConfig{
		WSPath:         "/api/engine/connect",
		AllowedOrigins: []string{"*"},
		CallTimeout:    time.Second,
	}
}

type host struct {
	ts *httptest.Server
	m  *session.Manager
}

func newHost(t *testing.T, cfg config.HostConfig) *host {
	t.Helper()
	m := session.NewManager(session.Options{CallTimeout: cfg.CallTimeout, AllowedOrigins: cfg.AllowedOrigins})
	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	ts := httptest.NewServer(New(cfg, m, reg))
	t.Cleanup(ts.Close)
	return &host{ts: ts, m: m}
}

// attach connects eng through the host's engine socket and waits for the
// session to become ready.
func (h *host) attach(t *testing.T, path string, eng *enginetest.Engine) *session.Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	url := "ws" + strings.TrimPrefix(h.ts.URL, "http") + path
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	go func() { _ = eng.ServeWebSocket(ctx, transport.NewWebSocket(conn, 0, zerolog.Nop())) }()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if list := h.m.List(); len(list) == 1 && list[0].Bridge.State().String() == "ready" {
			return list[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session not ready")
	return nil
}

func (h *host) do(t *testing.T, method, path, token, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, h.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func TestHealthz(t *testing.T) {
	h := newHost(t, testConfig())
	status, body := h.do(t, http.MethodGet, "/healthz", "", "")
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	var v struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Sessions != 0 {
		t.Fatalf("sessions %d", v.Sessions)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHost(t, testConfig())
	if status, _ := h.do(t, http.MethodGet, "/metrics", "", ""); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	cfg := testConfig()
	cfg.MetricsPort = 9090
	sep := newHost(t, cfg)
	if status, _ := sep.do(t, http.MethodGet, "/metrics", "", ""); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "secret"
	h := newHost(t, cfg)
	if status, _ := h.do(t, http.MethodGet, "/api/schema", "", ""); status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if status, _ := h.do(t, http.MethodGet, "/api/schema", "wrong", ""); status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	status, body := h.do(t, http.MethodGet, "/api/schema", "secret", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var v struct {
		Version string   `json:"version"`
		Paths   []string `json:"paths"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Version != engine.SchemaVersion || len(v.Paths) != len(engine.Paths()) {
		t.Fatalf("unexpected schema %+v", v)
	}
}

func TestSessionsAndCall(t *testing.T) {
	cfg := testConfig()
	h := newHost(t, cfg)
	eng := enginetest.New()
	eng.Handle(engine.PathSceneOpenMap, func(args []json.RawMessage) (any, error) {
		var uri string
		_ = json.Unmarshal(args[0], &uri)
		return uri == "maps/city.xml", nil
	})
	eng.Handle(engine.PathSceneRemoveEntity, func([]json.RawMessage) (any, error) {
		return nil, &enginetest.Fault{Code: 404, Message: "no such entity"}
	})
	s := h.attach(t, cfg.WSPath, eng)

	status, body := h.do(t, http.MethodGet, "/api/sessions", "", "")
	if status != http.StatusOK || !strings.Contains(string(body), s.ID) {
		t.Fatalf("list: %d %s", status, body)
	}
	if status, _ := h.do(t, http.MethodGet, "/api/sessions/"+s.ID, "", ""); status != http.StatusOK {
		t.Fatalf("get: %d", status)
	}
	if status, _ := h.do(t, http.MethodGet, "/api/sessions/nope", "", ""); status != http.StatusNotFound {
		t.Fatalf("get missing: %d", status)
	}

	call := "/api/sessions/" + s.ID + "/call"
	status, body = h.do(t, http.MethodPost, call, "", `{"path":"scene.openMap","args":["maps/city.xml"]}`)
	if status != http.StatusOK {
		t.Fatalf("call: %d %s", status, body)
	}
	if strings.TrimSpace(string(body)) != `{"result":true}` {
		t.Fatalf("call body %s", body)
	}

	status, body = h.do(t, http.MethodPost, call, "", `{"path":"scene.removeEntity","args":["layer","e1"]}`)
	if status != http.StatusBadGateway {
		t.Fatalf("remote error status %d", status)
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(eb.Error.Code) != "404" {
		t.Fatalf("code %s", eb.Error.Code)
	}

	if status, _ := h.do(t, http.MethodPost, call, "", `{"path":"scene.format"}`); status != http.StatusBadRequest {
		t.Fatalf("unknown path status %d", status)
	}
	if status, _ := h.do(t, http.MethodPost, call, "", `not json`); status != http.StatusBadRequest {
		t.Fatalf("bad body status %d", status)
	}
	if status, _ := h.do(t, http.MethodPost, "/api/sessions/nope/call", "", `{"path":"scene.close"}`); status != http.StatusNotFound {
		t.Fatalf("missing session status %d", status)
	}
}

func TestCallTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.CallTimeout = 50 * time.Millisecond
	h := newHost(t, cfg)
	// No handler: the engine never answers.
	s := h.attach(t, cfg.WSPath, enginetest.New())
	status, _ := h.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/call", "", `{"path":"animation.getDuration"}`)
	if status != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", status)
	}
}
