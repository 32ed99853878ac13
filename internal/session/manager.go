package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gaspardpetit/webmap3d-bridge/internal/bridge"
	"github.com/gaspardpetit/webmap3d-bridge/internal/engine"
	"github.com/gaspardpetit/webmap3d-bridge/internal/logx"
	"github.com/gaspardpetit/webmap3d-bridge/internal/metrics"
	"github.com/gaspardpetit/webmap3d-bridge/internal/reconnect"
	"github.com/gaspardpetit/webmap3d-bridge/internal/sessionstate"
	"github.com/gaspardpetit/webmap3d-bridge/internal/transport"
)

// Options configures a Manager.
type Options struct {
	HostID            string
	LargeMessageLimit int
	ReadLimit         int64
	CallTimeout       time.Duration
	InitTimeout       time.Duration
	PingInterval      time.Duration
	PublishInterval   time.Duration
	// AllowedOrigins lists the page origins allowed to open engine sockets.
	// "*" accepts any origin.
	AllowedOrigins []string
	// DialHeader is sent when dialing an engine.
	DialHeader http.Header
	Store      sessionstate.Store
	// OnReady runs in its own goroutine once a session's handshake succeeds.
	// ctx is cancelled when the session ends.
	OnReady func(ctx context.Context, s *Session)
}

// Manager tracks live sessions.
type Manager struct {
	opts Options
	log  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewManager returns a Manager. A nil Store publishes to memory.
func NewManager(opts Options) *Manager {
	if opts.Store == nil {
		opts.Store = sessionstate.NewMemoryStore()
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 30 * time.Second
	}
	if opts.PublishInterval <= 0 {
		opts.PublishInterval = 5 * time.Second
	}
	if opts.HostID == "" {
		opts.HostID = uuid.NewString()
	}
	return &Manager{opts: opts, log: logx.Component("session"), sessions: map[string]*Session{}}
}

// Store returns the snapshot store sessions are published to.
func (m *Manager) Store() sessionstate.Store { return m.opts.Store }

// Get returns the live session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns live sessions ordered by connection time.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// Handler accepts engine pages connecting over WebSocket.
func (m *Manager) Handler() http.HandlerFunc {
	accept := acceptOptions(m.opts.AllowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionstate.IsDraining() {
			http.Error(w, "draining", http.StatusServiceUnavailable)
			return
		}
		c, err := websocket.Accept(w, r, accept)
		if err != nil {
			m.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("engine websocket rejected")
			return
		}
		if err := m.serve(r.Context(), c, ModeAccept, r.RemoteAddr); err != nil {
			m.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("engine session ended")
		}
	}
}

// Dial connects to the engine at rawURL and serves the session until the
// connection ends or ctx is cancelled.
func (m *Manager) Dial(ctx context.Context, rawURL string) error {
	var opts *websocket.DialOptions
	if m.opts.DialHeader != nil {
		opts = &websocket.DialOptions{HTTPHeader: m.opts.DialHeader}
	}
	dctx, cancel := context.WithTimeout(ctx, m.opts.InitTimeout)
	c, _, err := websocket.Dial(dctx, rawURL, opts)
	cancel()
	if err != nil {
		return err
	}
	return m.serve(ctx, c, ModeDial, rawURL)
}

var errDisconnected = errors.New("engine disconnected")

// DialLoop dials rawURL and, when redial is set, dials again with backoff
// each time the connection fails or ends. It returns nil when ctx is
// cancelled.
func (m *Manager) DialLoop(ctx context.Context, rawURL string, redial bool) error {
	err := reconnect.Run(ctx, redial, func(ctx context.Context) error {
		if err := m.Dial(ctx, rawURL); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		return errDisconnected
	}, func(attempt int, delay time.Duration, err error) {
		m.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Str("url", rawURL).Msg("redialing engine")
	})
	if errors.Is(err, context.Canceled) || (errors.Is(err, errDisconnected) && !redial) {
		return nil
	}
	return err
}

// Shutdown refuses new connections, closes every session and waits for their
// cleanup or ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	sessionstate.StartDrain()
	for _, s := range m.List() {
		_ = s.Close()
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) serve(ctx context.Context, conn *websocket.Conn, mode Mode, remote string) error {
	m.wg.Add(1)
	defer m.wg.Done()

	id := uuid.NewString()
	base := logx.Log.With().Str("session_id", id).Str("mode", string(mode)).Logger()
	log := base.With().Str("component", "session").Logger()
	ws := transport.NewWebSocket(conn, m.opts.ReadLimit, log)
	s := &Session{
		ID:          id,
		Mode:        mode,
		Remote:      remote,
		ConnectedAt: time.Now().UTC(),
		ws:          ws,
		log:         log,
	}
	s.Bridge = bridge.New(ws,
		bridge.WithLogger(base.With().Str("component", "bridge").Logger()),
		bridge.WithLargeMessageLimit(m.opts.LargeMessageLimit),
		bridge.WithCallTimeout(m.opts.CallTimeout),
		bridge.WithSchemaVersion(engine.SchemaVersion),
	)
	s.Engine = engine.New(s.Bridge)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.add(s)
	defer m.remove(s)

	readErr := make(chan error, 1)
	go func() { readErr <- ws.Run(ctx, s.Bridge.HandleMessage) }()
	go ws.KeepAlive(ctx, m.opts.PingInterval)

	ictx, icancel := context.WithTimeout(ctx, m.opts.InitTimeout)
	err := s.Bridge.Init(ictx)
	icancel()
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "handshake failed")
		_ = s.Bridge.Close()
		<-readErr
		return err
	}
	log.Info().Str("remote", remote).Msg("engine session ready")
	m.publish(s)
	if m.opts.OnReady != nil {
		go m.opts.OnReady(ctx, s)
	}

	ticker := time.NewTicker(m.opts.PublishInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-readErr:
			_ = s.Bridge.Close()
			if ctx.Err() != nil {
				err = nil
			}
			if err != nil {
				_ = conn.Close(websocket.StatusInternalError, "read failed")
			}
			log.Info().Err(err).Msg("engine session closed")
			return err
		case <-ticker.C:
			m.publish(s)
		}
	}
}

func (m *Manager) add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SessionOpened()
	if n == 1 {
		sessionstate.SetHostStatus("ready")
	}
	m.publish(s)
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SessionClosed()
	if n == 0 && !sessionstate.IsDraining() {
		sessionstate.SetHostStatus("not_ready")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.opts.Store.Delete(ctx, s.ID); err != nil {
		m.log.Warn().Err(err).Str("session_id", s.ID).Msg("unpublish session")
	}
}

func (m *Manager) publish(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.opts.Store.Put(ctx, s.Snapshot(m.opts.HostID)); err != nil {
		m.log.Warn().Err(err).Str("session_id", s.ID).Msg("publish session")
	}
}

// acceptOptions turns page origins into the host patterns the websocket
// library checks the Origin header against.
func acceptOptions(origins []string) *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, o := range origins {
		if o == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			opts.OriginPatterns = append(opts.OriginPatterns, u.Host)
			continue
		}
		opts.OriginPatterns = append(opts.OriginPatterns, strings.TrimSuffix(o, "/"))
	}
	return opts
}
