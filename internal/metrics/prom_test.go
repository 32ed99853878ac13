package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	SetBuildInfo("1.0.0", "abc", "2024-01-01")
	RecordCall("scene.open", "success", 100*time.Millisecond)
	RecordFrame("out", "call", true)
	RecordFrame("in", "response", false)
	RecordDropped("malformed")
	RecordEvent("touch_event")

	before := testutil.ToFloat64(pendingCalls)
	CallStarted()
	CallStarted()
	CallSettled()
	if v := testutil.ToFloat64(pendingCalls) - before; v != 1 {
		t.Fatalf("pending delta: %v", v)
	}

	if v := testutil.ToFloat64(calls.WithLabelValues("scene.open", "success")); v != 1 {
		t.Fatalf("calls: %v", v)
	}
	if v := testutil.ToFloat64(frames.WithLabelValues("out", "call")); v != 1 {
		t.Fatalf("frames out: %v", v)
	}
	if v := testutil.ToFloat64(largeFrames.WithLabelValues("out")); v != 1 {
		t.Fatalf("large frames: %v", v)
	}
	if v := testutil.ToFloat64(largeFrames.WithLabelValues("in")); v != 0 {
		t.Fatalf("large frames in: %v", v)
	}
	if v := testutil.ToFloat64(droppedFrames.WithLabelValues("malformed")); v != 1 {
		t.Fatalf("dropped: %v", v)
	}
	if v := testutil.ToFloat64(eventsDelivered.WithLabelValues("touch_event")); v != 1 {
		t.Fatalf("events: %v", v)
	}
	if v := testutil.ToFloat64(buildInfo.WithLabelValues("2024-01-01", "abc", "1.0.0")); v != 1 {
		t.Fatalf("build info: %v", v)
	}

	SessionOpened()
	if v := testutil.ToFloat64(sessions); v < 1 {
		t.Fatalf("sessions: %v", v)
	}
	SessionClosed()
}
