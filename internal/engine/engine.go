// Package engine is the typed surface of a v1 map engine. Every method is a
// remote call: it blocks until the engine answers or ctx ends, and returns the
// bridge's error unchanged so callers can match *bridge.RemoteError and the
// transport sentinels.
package engine

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/gaspardpetit/webmap3d-bridge/internal/logx"
)

// Caller is the part of a bridge the surface needs. *bridge.Client
// implements it.
type Caller interface {
	Call(ctx context.Context, path string, result any, args ...any) error
	Subscribe(event string, fn func(data json.RawMessage)) func()
}

// Engine groups the remote capabilities of one engine instance.
type Engine struct {
	Scene     *Scene
	Animation *Animation

	c   Caller
	log zerolog.Logger
}

// New returns the surface bound to c.
func New(c Caller) *Engine {
	log := logx.Component("engine")
	s := &Scene{c: c, log: log}
	s.Camera = &Camera{c: c}
	s.TrackingLayer = &TrackingLayer{c: c}
	s.PrimitiveLayers = &PrimitiveLayers{c: c}
	return &Engine{Scene: s, Animation: &Animation{c: c}, c: c, log: log}
}

// Animation controls scene animations.
type Animation struct{ c Caller }

func (a *Animation) Play(ctx context.Context) error {
	return a.c.Call(ctx, PathAnimationPlay, nil)
}

func (a *Animation) Pause(ctx context.Context) error {
	return a.c.Call(ctx, PathAnimationPause, nil)
}

func (a *Animation) Stop(ctx context.Context) error {
	return a.c.Call(ctx, PathAnimationStop, nil)
}

// GetDuration returns the length of the loaded animation in seconds.
func (a *Animation) GetDuration(ctx context.Context) (float64, error) {
	var d float64
	err := a.c.Call(ctx, PathAnimationGetDuration, &d)
	return d, err
}

// Camera moves the scene camera.
type Camera struct{ c Caller }

func (c *Camera) FlyTo(ctx context.Context, pos CameraPosition) error {
	return c.c.Call(ctx, PathCameraFlyTo, nil, pos)
}

func (c *Camera) GetPosition(ctx context.Context) (CameraPosition, error) {
	var pos CameraPosition
	err := c.c.Call(ctx, PathCameraGetPosition, &pos)
	return pos, err
}
