package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gaspardpetit/webmap3d-bridge/internal/config"
	"github.com/gaspardpetit/webmap3d-bridge/internal/engine"
	"github.com/gaspardpetit/webmap3d-bridge/internal/logx"
	"github.com/gaspardpetit/webmap3d-bridge/internal/metrics"
	"github.com/gaspardpetit/webmap3d-bridge/internal/secret"
	"github.com/gaspardpetit/webmap3d-bridge/internal/server"
	"github.com/gaspardpetit/webmap3d-bridge/internal/session"
	"github.com/gaspardpetit/webmap3d-bridge/internal/sessionstate"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	var cfg config.HostConfig
	cfg.BindFlags()
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "webmap3d-host version=%s sha=%s date=%s\n\n", version, buildSHA, buildDate)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Printf("webmap3d-host version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}
	// Precedence: defaults < env < file < args. Parsing again after the file
	// lets explicit flags win over it.
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
		flag.Parse()
	}
	logx.Configure(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logx.Log.Fatal().Err(err).Msg("invalid configuration")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)
	metrics.SetBuildInfo(version, buildSHA, buildDate)

	hostID := uuid.NewString()
	store := sessionstate.NewMemoryStore()
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rs, err := sessionstate.NewRedisStore(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			logx.Log.Fatal().Err(err).Str("addr", secret.MaskURL(cfg.RedisAddr)).Msg("connect redis")
		}
		defer func() { _ = rs.Close() }()
		store = rs
		logx.Log.Info().Str("addr", secret.MaskURL(cfg.RedisAddr)).Msg("using redis session store")
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := rs.Purge(ctx, hostID); err != nil {
				logx.Log.Warn().Err(err).Msg("purge sessions")
			}
		}()
	}

	var dialHeader http.Header
	if cfg.EngineURL != "" && cfg.APIKey != "" {
		dialHeader = http.Header{}
		dialHeader.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	mgr := session.NewManager(session.Options{
		HostID:            hostID,
		LargeMessageLimit: cfg.LargeMessageLimit,
		ReadLimit:         cfg.ReadLimit,
		CallTimeout:       cfg.CallTimeout,
		InitTimeout:       cfg.InitTimeout,
		PingInterval:      cfg.PingInterval,
		AllowedOrigins:    cfg.AllowedOrigins,
		DialHeader:        dialHeader,
		Store:             store,
		OnReady:           announce,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(cfg, mgr, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	var metricsSrv *http.Server
	if cfg.MetricsPort != 0 {
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           server.MetricsHandler(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EngineURL != "" {
		go func() {
			logx.Log.Info().Str("url", secret.MaskURL(cfg.EngineURL)).Bool("reconnect", cfg.Reconnect).Msg("dialing engine")
			if err := mgr.DialLoop(ctx, cfg.EngineURL, cfg.Reconnect); err != nil {
				logx.Log.Error().Err(err).Msg("engine connection ended")
			}
		}()
	}

	if metricsSrv != nil {
		go func() {
			logx.Log.Info().Int("port", cfg.MetricsPort).Msg("metrics server starting")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.Log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		logx.Log.Info().Msg("draining")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mgr.Shutdown(sctx); err != nil {
			logx.Log.Warn().Err(err).Msg("sessions did not close in time")
		}
		if err := srv.Shutdown(sctx); err != nil {
			logx.Log.Error().Err(err).Msg("server shutdown")
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(sctx)
		}
	}()

	if cfg.APIKey != "" {
		logx.Log.Info().Msg("API key auth enabled")
	}
	logx.Log.Info().Int("port", cfg.Port).Str("ws_path", cfg.WSPath).Str("host_id", hostID).Msg("host starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Log.Fatal().Err(err).Msg("server error")
	}
	<-drained
}

// announce logs where a newly ready engine's camera sits and traces its
// touch events.
func announce(ctx context.Context, s *session.Session) {
	log := logx.Component("session").With().Str("session_id", s.ID).Logger()
	s.Engine.OnTouch(func(ev engine.TouchEvent) {
		log.Debug().Str("type", ev.EventType).Float64("x", ev.X).Float64("y", ev.Y).Msg("touch")
	})
	pos, err := s.Engine.Scene.Camera.GetPosition(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("read camera position")
		return
	}
	log.Info().
		Float64("longitude", pos.Longitude).
		Float64("latitude", pos.Latitude).
		Float64("altitude", pos.Altitude).
		Msg("engine camera")
}
