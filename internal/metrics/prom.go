package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "webmap3d_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"component": "host"},
		},
		[]string{"date", "sha", "version"},
	)

	calls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmap3d_calls_total",
			Help: "Remote calls settled, by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webmap3d_call_duration_seconds",
			Help:    "Time from issuing a remote call to its settlement",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	pendingCalls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webmap3d_pending_calls",
			Help: "Remote calls awaiting a response",
		},
	)

	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmap3d_frames_total",
			Help: "Transport frames by direction and envelope kind",
		},
		[]string{"direction", "kind"},
	)

	largeFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmap3d_large_frames_total",
			Help: "Frames carried with the large-message encoding",
		},
		[]string{"direction"},
	)

	droppedFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmap3d_dropped_frames_total",
			Help: "Inbound frames discarded, by reason",
		},
		[]string{"reason"},
	)

	eventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmap3d_events_total",
			Help: "Engine events received, by name",
		},
		[]string{"event"},
	)

	sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webmap3d_sessions",
			Help: "Connected rendering surfaces",
		},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, calls, callDuration, pendingCalls, frames, largeFrames, droppedFrames, eventsDelivered, sessions)
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// RecordCall counts a settled call and observes how long it was outstanding.
func RecordCall(path, outcome string, d time.Duration) {
	calls.WithLabelValues(path, outcome).Inc()
	callDuration.WithLabelValues(path).Observe(d.Seconds())
}

// CallStarted and CallSettled track the pending-call gauge.
func CallStarted() { pendingCalls.Inc() }

func CallSettled() { pendingCalls.Dec() }

// RecordFrame counts a frame sent ("out") or received ("in").
func RecordFrame(direction, kind string, large bool) {
	frames.WithLabelValues(direction, kind).Inc()
	if large {
		largeFrames.WithLabelValues(direction).Inc()
	}
}

// RecordDropped counts an inbound frame that was discarded.
func RecordDropped(reason string) {
	droppedFrames.WithLabelValues(reason).Inc()
}

// RecordEvent counts an engine event.
func RecordEvent(name string) {
	eventsDelivered.WithLabelValues(name).Inc()
}

// SessionOpened and SessionClosed track connected surfaces.
func SessionOpened() { sessions.Inc() }

func SessionClosed() { sessions.Dec() }
