package engine

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Scene covers map documents, layers, entities and interaction modes.
type Scene struct {
	Camera          *Camera
	TrackingLayer   *TrackingLayer
	PrimitiveLayers *PrimitiveLayers

	c   Caller
	log zerolog.Logger
}

// Open loads a map document previously returned by GetMap. An empty doc
// opens the engine's default scene.
func (s *Scene) Open(ctx context.Context, doc json.RawMessage) error {
	if len(doc) == 0 {
		return s.c.Call(ctx, PathSceneOpen, nil)
	}
	return s.c.Call(ctx, PathSceneOpen, nil, doc)
}

// Close releases the scene.
func (s *Scene) Close(ctx context.Context) error {
	return s.c.Call(ctx, PathSceneClose, nil)
}

// OpenMap loads a map saved on the device and reports whether it opened.
func (s *Scene) OpenMap(ctx context.Context, uri string) (bool, error) {
	var ok bool
	err := s.c.Call(ctx, PathSceneOpenMap, &ok, uri)
	return ok, err
}

// GetMap returns the current scene as a map document.
func (s *Scene) GetMap(ctx context.Context) (json.RawMessage, error) {
	var doc json.RawMessage
	err := s.c.Call(ctx, PathSceneGetMap, &doc)
	return doc, err
}

// SaveMap saves the scene under name and returns where it was written.
func (s *Scene) SaveMap(ctx context.Context, name string) (string, error) {
	var where string
	err := s.c.Call(ctx, PathSceneSaveMap, &where, name)
	return where, err
}

func (s *Scene) AddImageLayer(ctx context.Context, name string, opts ImageLayerOptions) error {
	s.log.Debug().Str("name", name).Object("options", opts).Msg("add image layer")
	return s.c.Call(ctx, PathSceneAddImageLayer, nil, name, opts)
}

// RemoveImageLayer removes the imagery layer at index, as listed by
// GetImageLayers.
func (s *Scene) RemoveImageLayer(ctx context.Context, index int) error {
	return s.c.Call(ctx, PathSceneRemoveImageLayer, nil, index)
}

func (s *Scene) GetImageLayers(ctx context.Context) ([]LayerInfo, error) {
	var layers []LayerInfo
	err := s.c.Call(ctx, PathSceneGetImageLayers, &layers)
	return layers, err
}

// ViewEntireImageLayer flies the camera over the layer at index, taking
// duration seconds.
func (s *Scene) ViewEntireImageLayer(ctx context.Context, index int, duration float64) error {
	return s.c.Call(ctx, PathSceneViewEntireImageLayer, nil, index, duration)
}

func (s *Scene) OpenTerrainLayer(ctx context.Context, name string, opts TerrainLayerOptions) error {
	s.log.Debug().Str("name", name).Object("options", opts).Msg("open terrain layer")
	return s.c.Call(ctx, PathSceneOpenTerrainLayer, nil, name, opts)
}

// CloseTerrainLayer removes the open terrain; only one is open at a time.
func (s *Scene) CloseTerrainLayer(ctx context.Context) error {
	return s.c.Call(ctx, PathSceneCloseTerrainLayer, nil)
}

// AddS3MTilesLayer loads an S3M tile set from a scene service URL.
func (s *Scene) AddS3MTilesLayer(ctx context.Context, name, url string) error {
	return s.c.Call(ctx, PathSceneAddS3MTilesLayer, nil, name, url)
}

func (s *Scene) GetS3MLayers(ctx context.Context) ([]LayerInfo, error) {
	var layers []LayerInfo
	err := s.c.Call(ctx, PathSceneGetS3MLayers, &layers)
	return layers, err
}

// SetTilesLayerBottomAltitude sets the base altitude of an S3M layer in metres.
func (s *Scene) SetTilesLayerBottomAltitude(ctx context.Context, name string, altitude float64) error {
	return s.c.Call(ctx, PathSceneSetTilesLayerBottomAltitude, nil, name, altitude)
}

func (s *Scene) SetAction(ctx context.Context, action SceneAction) error {
	return s.c.Call(ctx, PathSceneSetAction, nil, action)
}

func (s *Scene) GetAction(ctx context.Context) (SceneAction, error) {
	var a SceneAction
	err := s.c.Call(ctx, PathSceneGetAction, &a)
	return a, err
}

// EnableSceneTouch turns the engine's own gesture handling on or off. Touches
// are still reported as touch_event while it is off and the action is TOUCH.
func (s *Scene) EnableSceneTouch(ctx context.Context, enable bool) error {
	return s.c.Call(ctx, PathSceneEnableSceneTouch, nil, enable)
}

// SetRequestRenderMode makes the engine render only when the scene changes.
func (s *Scene) SetRequestRenderMode(ctx context.Context, enable bool) error {
	return s.c.Call(ctx, PathSceneSetRequestRenderMode, nil, enable)
}

func (s *Scene) SetResourceBase(ctx context.Context, url string) error {
	return s.c.Call(ctx, PathSceneSetResourceBase, nil, url)
}

func (s *Scene) SetAppResourceBase(ctx context.Context, url string) error {
	return s.c.Call(ctx, PathSceneSetAppResourceBase, nil, url)
}

func (s *Scene) AddEntitiesLayer(ctx context.Context, name string) error {
	return s.c.Call(ctx, PathSceneAddEntitiesLayer, nil, name)
}

// AddEntity adds e to layer and returns the new entity's id.
func (s *Scene) AddEntity(ctx context.Context, layer string, e Entity) (string, error) {
	var id string
	err := s.c.Call(ctx, PathSceneAddEntity, &id, layer, e)
	return id, err
}

func (s *Scene) RemoveEntity(ctx context.Context, layer, id string) (bool, error) {
	var ok bool
	err := s.c.Call(ctx, PathSceneRemoveEntity, &ok, layer, id)
	return ok, err
}

// UpdateEntityModify replaces the style of an existing entity.
func (s *Scene) UpdateEntityModify(ctx context.Context, layer, id string, e Entity) error {
	return s.c.Call(ctx, PathSceneUpdateEntityModify, nil, layer, id, e)
}

// BeginTranslation lets the user drag the object id of layer. The scene
// action should be TRANSLATION.
func (s *Scene) BeginTranslation(ctx context.Context, layer, id string, target TranslationTarget) error {
	return s.c.Call(ctx, PathSceneBeginTranslation, nil, layer, id, target)
}

// EndTranslation stops dragging. When commit is false the object returns to
// where it started.
func (s *Scene) EndTranslation(ctx context.Context, commit bool) error {
	return s.c.Call(ctx, PathSceneEndTranslation, nil, commit)
}

// PickPosition converts a screen point to a geographic position. It returns
// nil when nothing is under the point. includeModels also hits S3M tiles.
func (s *Scene) PickPosition(ctx context.Context, p ScreenPoint, includeModels bool) (*Vector3, error) {
	var v *Vector3
	err := s.c.Call(ctx, PathScenePickPosition, &v, p, includeModels)
	return v, err
}
