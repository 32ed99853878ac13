package bridge

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gaspardpetit/webmap3d-bridge/internal/logx"
)

const (
	// DefaultLargeMessageLimit is the envelope size, in bytes, above which
	// frames switch to the large-message encoding.
	DefaultLargeMessageLimit = 64 * 1024
	// DefaultSendTimeout bounds a single call to the transport's Send.
	DefaultSendTimeout = 5 * time.Second
	// InitPath is the bootstrap method the engine acknowledges in Init.
	InitPath = "bridge.init"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	limit         int
	logger        zerolog.Logger
	errorHook     func(error)
	callTimeout   time.Duration
	sendTimeout   time.Duration
	schemaVersion string
}

func defaultOptions() options {
	return options{
		limit:         DefaultLargeMessageLimit,
		logger:        logx.Component("bridge"),
		sendTimeout:   DefaultSendTimeout,
		schemaVersion: "v1",
	}
}

// WithLargeMessageLimit sets the byte threshold for the large-message
// encoding. Non-positive values keep the default.
func WithLargeMessageLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithLogger sets the logger used for absorbed errors and tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithErrorHook receives every error the bridge absorbs on the inbound path.
// The hook runs on the delivering goroutine and must not block.
func WithErrorHook(fn func(error)) Option {
	return func(o *options) { o.errorHook = fn }
}

// WithCallTimeout fails calls with ErrTimeout when no response arrives within
// d. Zero, the default, waits until the response or Close.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

// WithSendTimeout bounds each call to the transport's Send.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithSchemaVersion sets the version announced in the bootstrap call.
func WithSchemaVersion(v string) Option {
	return func(o *options) { o.schemaVersion = v }
}
