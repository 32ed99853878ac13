package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gaspardpetit/webmap3d-bridge/internal/bridge"
	"github.com/gaspardpetit/webmap3d-bridge/internal/bridgewire"
	"github.com/gaspardpetit/webmap3d-bridge/internal/enginetest"
	"github.com/gaspardpetit/webmap3d-bridge/internal/events"
	"github.com/gaspardpetit/webmap3d-bridge/internal/transport"
)

type hookLog struct {
	mu   sync.Mutex
	errs []error
}

func (h *hookLog) add(err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func (h *hookLog) all() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

type pair struct {
	client *bridge.Client
	engine *enginetest.Engine
	host   *transport.Endpoint
	hook   *hookLog
}

func newPair(t *testing.T, opts ...bridge.Option) *pair {
	t.Helper()
	host, remote := transport.Pipe()
	eng := enginetest.New()
	eng.ServePipe(remote)
	hook := &hookLog{}
	opts = append([]bridge.Option{bridge.WithErrorHook(hook.add)}, opts...)
	c := bridge.New(host, opts...)
	host.OnMessage(c.HandleMessage)
	t.Cleanup(func() { _ = c.Close() })
	return &pair{client: c, engine: eng, host: host, hook: hook}
}

func newReady(t *testing.T, opts ...bridge.Option) *pair {
	t.Helper()
	p := newPair(t, opts...)
	if err := p.client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return p
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}

func settled(h *bridge.Handle) bool {
	select {
	case <-h.Done():
		return true
	default:
		return false
	}
}

func TestInitMovesToReady(t *testing.T) {
	p := newPair(t)
	if s := p.client.State(); s != bridge.StateUninitialized {
		t.Fatalf("state %v", s)
	}
	if err := p.client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if s := p.client.State(); s != bridge.StateReady {
		t.Fatalf("state %v", s)
	}
	if err := p.client.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
	calls := p.engine.Calls()
	if len(calls) != 1 || calls[0].Path != bridge.InitPath {
		t.Fatalf("calls %+v", calls)
	}
	var boot struct {
		Version string `json:"version"`
		Nonce   string `json:"nonce"`
	}
	if err := json.Unmarshal(calls[0].Args[0], &boot); err != nil {
		t.Fatalf("bootstrap args: %v", err)
	}
	if boot.Version != "v1" || boot.Nonce == "" {
		t.Fatalf("bootstrap %+v", boot)
	}
}

func TestCallBeforeInitFails(t *testing.T) {
	p := newPair(t)
	_, err := p.client.Go("scene.getMap").Wait(context.Background())
	if !errors.Is(err, bridge.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if n := len(p.engine.Calls()); n != 0 {
		t.Fatalf("engine saw %d calls", n)
	}
}

func TestConcurrentInitSharesHandshake(t *testing.T) {
	p := newPair(t)
	p.engine.Handle(bridge.InitPath, nil)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- p.client.Init(context.Background()) }()
	}
	waitFor(t, func() bool { return len(p.engine.Held()) == 1 })
	for id := range p.engine.Held() {
		if err := p.engine.Respond(id, nil); err != nil {
			t.Fatalf("respond: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("init: %v", err)
		}
	}
	if n := len(p.engine.Calls()); n != 1 {
		t.Fatalf("expected one handshake, got %d", n)
	}
}

func TestFailedHandshakeCanBeRetried(t *testing.T) {
	p := newPair(t)
	p.engine.Handle(bridge.InitPath, func([]json.RawMessage) (any, error) {
		return nil, &enginetest.Fault{Code: "NotLoaded", Message: "engine still loading"}
	})
	err := p.client.Init(context.Background())
	var re *bridge.RemoteError
	if !errors.As(err, &re) || re.Message != "engine still loading" {
		t.Fatalf("expected remote error, got %v", err)
	}
	if s := p.client.State(); s != bridge.StateUninitialized {
		t.Fatalf("state %v", s)
	}
	p.engine.Handle(bridge.InitPath, enginetest.Result(nil))
	if err := p.client.Init(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestOutOfOrderResponses(t *testing.T) {
	p := newReady(t)
	a := p.client.Go("scene.getMap")
	b := p.client.Go("camera.getPosition")
	if a.ID == b.ID {
		t.Fatalf("ids collide: %s", a.ID)
	}
	if err := p.engine.Respond(b.ID, "B"); err != nil {
		t.Fatal(err)
	}
	if settled(a) || !settled(b) {
		t.Fatal("only b should be settled")
	}
	if err := p.engine.Respond(a.ID, "A"); err != nil {
		t.Fatal(err)
	}
	var ra, rb string
	if err := a.Decode(context.Background(), &ra); err != nil {
		t.Fatal(err)
	}
	if err := b.Decode(context.Background(), &rb); err != nil {
		t.Fatal(err)
	}
	if ra != "A" || rb != "B" {
		t.Fatalf("got %q %q", ra, rb)
	}
	if n := p.client.Pending(); n != 0 {
		t.Fatalf("pending %d", n)
	}
}

func TestRemoteErrorCodePassThrough(t *testing.T) {
	p := newReady(t)
	for _, code := range []any{42, "LayerNotFound", map[string]int{"n": 1}} {
		h := p.client.Go("scene.removeImageLayer", "roads")
		if err := p.engine.Fail(h.ID, code, "no such layer"); err != nil {
			t.Fatal(err)
		}
		_, err := h.Wait(context.Background())
		if !errors.Is(err, bridge.ErrRemote) {
			t.Fatalf("expected remote error, got %v", err)
		}
		var re *bridge.RemoteError
		errors.As(err, &re)
		want, _ := json.Marshal(code)
		if string(re.Code) != string(want) || re.Message != "no such layer" {
			t.Fatalf("code %s message %q", re.Code, re.Message)
		}
	}
}

func TestCloseFailsOutstandingCalls(t *testing.T) {
	p := newReady(t)
	a := p.client.Go("scene.getMap")
	b := p.client.Go("animation.play")
	if err := p.client.Close(); err != nil {
		t.Fatal(err)
	}
	for _, h := range []*bridge.Handle{a, b} {
		_, err := h.Wait(context.Background())
		var te *bridge.TransportError
		if !errors.As(err, &te) || !errors.Is(err, bridge.ErrClosed) {
			t.Fatalf("expected closed transport error, got %v", err)
		}
	}
	if p.client.Pending() != 0 {
		t.Fatalf("pending %d", p.client.Pending())
	}
	if _, err := p.client.Go("scene.getMap").Wait(context.Background()); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("call after close: %v", err)
	}
	if err := p.client.Init(context.Background()); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("init after close: %v", err)
	}
	// late response is dropped without panicking
	_ = p.engine.Respond(a.ID, "late")
	if _, err := a.Result(); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("result changed after close: %v", err)
	}
}

func TestDuplicateAndUnknownResponses(t *testing.T) {
	p := newReady(t)
	h := p.client.Go("scene.getAction")
	_ = p.engine.Respond(h.ID, 1)
	_ = p.engine.Respond(h.ID, 2)
	_ = p.engine.Respond("9999", 3)

	var got int
	if err := h.Decode(context.Background(), &got); err != nil || got != 1 {
		t.Fatalf("got %d, %v", got, err)
	}
	errs := p.hook.all()
	if len(errs) != 2 {
		t.Fatalf("expected 2 absorbed errors, got %v", errs)
	}
	for _, err := range errs {
		if !errors.Is(err, bridge.ErrUnknownID) {
			t.Fatalf("expected ErrUnknownID, got %v", err)
		}
	}
}

func TestMalformedInboundIsAbsorbed(t *testing.T) {
	p := newReady(t)
	mustFrame := func(f bridgewire.Frame) string {
		s, err := f.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	inputs := []string{
		"not json",
		`{"isLarge":"no","message":"x"}`,
		`{"message":"x"}`,
		mustFrame(bridgewire.Frame{Message: `{"foo":1}`}),
		mustFrame(bridgewire.Frame{IsLarge: true, Message: "!!!not base64"}),
		mustFrame(bridgewire.Frame{Message: `{"id":"1","path":"host.reload","args":[]}`}),
	}
	for _, in := range inputs {
		if err := p.engine.SendRaw(in); err != nil {
			t.Fatalf("send %q: %v", in, err)
		}
	}
	errs := p.hook.all()
	if len(errs) != len(inputs) {
		t.Fatalf("expected %d absorbed errors, got %d: %v", len(inputs), len(errs), errs)
	}
	var pe *bridge.ProtocolError
	var ee *bridge.EncodingError
	for i, err := range errs {
		switch i {
		case 4:
			if !errors.As(err, &ee) {
				t.Fatalf("input %d: expected encoding error, got %v", i, err)
			}
		case 5:
			if !errors.Is(err, bridge.ErrUnexpectedCall) {
				t.Fatalf("input %d: expected unexpected call, got %v", i, err)
			}
		default:
			if !errors.As(err, &pe) {
				t.Fatalf("input %d: expected protocol error, got %v", i, err)
			}
		}
	}
	if p.client.State() != bridge.StateReady {
		t.Fatalf("state %v", p.client.State())
	}
	p.engine.Handle("camera.getPosition", enginetest.Result(map[string]float64{"longitude": 1}))
	if err := p.client.Call(context.Background(), "camera.getPosition", nil); err != nil {
		t.Fatalf("call after garbage: %v", err)
	}
}

func TestLargeFramesBothDirections(t *testing.T) {
	host, remote := transport.Pipe()
	eng := enginetest.New(enginetest.WithLargeMessageLimit(64))
	eng.ServePipe(remote)

	var mu sync.Mutex
	var outbound []string
	capture := bridge.SenderFunc(func(ctx context.Context, text string) error {
		mu.Lock()
		outbound = append(outbound, text)
		mu.Unlock()
		return host.Send(ctx, text)
	})
	c := bridge.New(capture, bridge.WithLargeMessageLimit(64))
	host.OnMessage(c.HandleMessage)
	defer func() { _ = c.Close() }()
	if err := c.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	big := strings.Repeat("地", 100)
	eng.Handle("scene.openMap", func(args []json.RawMessage) (any, error) {
		var s string
		if err := json.Unmarshal(args[0], &s); err != nil {
			return nil, err
		}
		return s + s, nil
	})
	var got string
	if err := c.Call(context.Background(), "scene.openMap", &got, big); err != nil {
		t.Fatal(err)
	}
	if got != big+big {
		t.Fatalf("round trip mismatch: %d runes", len([]rune(got)))
	}
	mu.Lock()
	last := outbound[len(outbound)-1]
	mu.Unlock()
	f, err := bridgewire.ParseFrame(last)
	if err != nil || !f.IsLarge {
		t.Fatalf("expected large outbound frame: %+v %v", f, err)
	}
}

func TestEventListeners(t *testing.T) {
	p := newReady(t)
	var order []string
	first := events.NewListener(func(data json.RawMessage) { order = append(order, "first:"+string(data)) })
	second := events.NewListener(func(json.RawMessage) { order = append(order, "second") })
	if !p.client.AddListener("touch_event", first) {
		t.Fatal("first add rejected")
	}
	if p.client.AddListener("touch_event", first) {
		t.Fatal("duplicate add accepted")
	}
	p.client.AddListener("touch_event", second)

	_ = p.engine.Emit("touch_event", map[string]int{"x": 1})
	_ = p.engine.Emit("selected_primitive", "ignored")
	p.client.RemoveListener("touch_event", first)
	p.client.RemoveListener("touch_event", first)
	_ = p.engine.Emit("touch_event", nil)

	want := []string{`first:{"x":1}`, "second", "second"}
	if strings.Join(order, "|") != strings.Join(want, "|") {
		t.Fatalf("order %v", order)
	}
	if errs := p.hook.all(); len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	p := newReady(t)
	n := 0
	stop := p.client.Subscribe("touch_event", func(json.RawMessage) { n++ })
	_ = p.engine.Emit("touch_event", 1)
	stop()
	_ = p.engine.Emit("touch_event", 2)
	if n != 1 {
		t.Fatalf("delivered %d", n)
	}
}

func TestListenerPanicIsContained(t *testing.T) {
	p := newReady(t)
	ran := false
	p.client.Subscribe("touch_event", func(json.RawMessage) { panic("bad listener") })
	p.client.Subscribe("touch_event", func(json.RawMessage) { ran = true })
	_ = p.engine.Emit("touch_event", 1)
	if !ran {
		t.Fatal("second listener skipped")
	}
	errs := p.hook.all()
	var pe *bridge.ProtocolError
	if len(errs) != 1 || !errors.As(errs[0], &pe) || !strings.Contains(pe.Error(), "bad listener") {
		t.Fatalf("errors %v", errs)
	}
}

func TestListenerMayIssueCalls(t *testing.T) {
	p := newReady(t)
	p.engine.Handle("scene.getAction", enginetest.Result("PAN"))
	var inner *bridge.Handle
	p.client.Subscribe("selected_primitive", func(json.RawMessage) {
		inner = p.client.Go("scene.getAction")
	})
	_ = p.engine.Emit("selected_primitive", map[string]string{"id": "p1"})
	if inner == nil || !settled(inner) {
		t.Fatal("re-entrant call did not complete")
	}
	var action string
	if err := inner.Decode(context.Background(), &action); err != nil || action != "PAN" {
		t.Fatalf("got %q %v", action, err)
	}
}

func TestCallTimeout(t *testing.T) {
	p := newReady(t, bridge.WithCallTimeout(20*time.Millisecond))
	h := p.client.Go("scene.saveMap")
	_, err := h.Wait(context.Background())
	if !errors.Is(err, bridge.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	_ = p.engine.Respond(h.ID, true)
	if errs := p.hook.all(); len(errs) != 1 || !errors.Is(errs[0], bridge.ErrUnknownID) {
		t.Fatalf("late response: %v", errs)
	}
}

func TestWaitAbandonsOnContext(t *testing.T) {
	p := newReady(t)
	h := p.client.Go("scene.saveMap")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := h.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if p.client.Pending() != 0 {
		t.Fatalf("pending %d", p.client.Pending())
	}
}

func TestSendFailureFailsCall(t *testing.T) {
	p := newReady(t)
	_ = p.host.Close()
	_, err := p.client.Go("scene.getMap").Wait(context.Background())
	var te *bridge.TransportError
	if !errors.As(err, &te) || te.Op != "send" || !errors.Is(err, transport.ErrPipeClosed) {
		t.Fatalf("expected send transport error, got %v", err)
	}
	if p.client.Pending() != 0 {
		t.Fatalf("pending %d", p.client.Pending())
	}
}

func TestEncodingErrors(t *testing.T) {
	p := newReady(t)
	_, err := p.client.Go("scene.addEntity", func() {}).Wait(context.Background())
	var ee *bridge.EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected encoding error for args, got %v", err)
	}
	p.engine.Handle("scene.getAction", enginetest.Result("PAN"))
	var n int
	if err := p.client.Call(context.Background(), "scene.getAction", &n); !errors.As(err, &ee) {
		t.Fatalf("expected encoding error for result, got %v", err)
	}
}

func TestEverySettlesOnceUnderRace(t *testing.T) {
	p := newReady(t)
	const n = 50
	handles := make([]*bridge.Handle, n)
	for i := range handles {
		handles[i] = p.client.Go("scene.getMap")
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, h := range handles {
			_ = p.engine.Respond(h.ID, "ok")
		}
	}()
	go func() {
		defer wg.Done()
		_ = p.client.Close()
	}()
	wg.Wait()
	for _, h := range handles {
		raw, err := h.Wait(context.Background())
		switch {
		case err == nil && string(raw) == `"ok"`:
		case errors.Is(err, bridge.ErrClosed):
		default:
			t.Fatalf("unexpected outcome %s %v", raw, err)
		}
	}
	if p.client.Pending() != 0 {
		t.Fatalf("pending %d", p.client.Pending())
	}
}
