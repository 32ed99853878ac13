package engine

import "sort"

// SchemaVersion is announced in the bootstrap call and must match the
// engine's build.
const SchemaVersion = "v1"

// Remote paths understood by a v1 engine. Names follow the engine's own
// namespace, including its spelling.
const (
	PathSceneOpen                        = "scene.open"
	PathSceneClose                       = "scene.close"
	PathSceneOpenMap                     = "scene.openMap"
	PathSceneGetMap                      = "scene.getMap"
	PathSceneSaveMap                     = "scene.saveMap"
	PathSceneAddImageLayer               = "scene.addImagelayer"
	PathSceneRemoveImageLayer            = "scene.removeImageLayer"
	PathSceneGetImageLayers              = "scene.getImageLayers"
	PathSceneViewEntireImageLayer        = "scene.viewEntireImageLayer"
	PathSceneOpenTerrainLayer            = "scene.openTerrainLayer"
	PathSceneCloseTerrainLayer           = "scene.closeTerrainLayer"
	PathSceneAddS3MTilesLayer            = "scene.addS3MTilesLayer"
	PathSceneGetS3MLayers                = "scene.getS3MLayers"
	PathSceneSetTilesLayerBottomAltitude = "scene.setTilesLayerBottomAltitude"
	PathSceneSetAction                   = "scene.setAction"
	PathSceneGetAction                   = "scene.getAction"
	PathSceneEnableSceneTouch            = "scene.enableSceneTouch"
	PathSceneSetRequestRenderMode        = "scene.setRequestRenderMode"
	PathSceneSetResourceBase             = "scene.setResourceBase"
	PathSceneSetAppResourceBase          = "scene.setAppResourceBase"
	PathSceneAddEntitiesLayer            = "scene.addEntitiesLayer"
	PathSceneAddEntity                   = "scene.addEntity"
	PathSceneRemoveEntity                = "scene.removeEntity"
	PathSceneUpdateEntityModify          = "scene.updateEntityModify"
	PathSceneBeginTranslation            = "scene.beginTranslation"
	PathSceneEndTranslation              = "scene.endTranslation"
	PathScenePickPosition                = "scene.pickPosition"

	PathCameraFlyTo       = "scene.camera.flyTo"
	PathCameraGetPosition = "scene.camera.getPosition"

	PathTrackingEditPolyline       = "scene.trackingLayer.editPolyline"
	PathTrackingEditPolygon        = "scene.trackingLayer.editPolygon"
	PathTrackingEditSpline         = "scene.trackingLayer.editSpline"
	PathTrackingEditCircle         = "scene.trackingLayer.editCircle"
	PathTrackingEditAddVertex      = "scene.trackingLayer.editAddVertex"
	PathTrackingEditMoveVertex     = "scene.trackingLayer.editMoveVertex"
	PathTrackingEditRemoveVertex   = "scene.trackingLayer.editRemoveVertex"
	PathTrackingEditPickSegment    = "scene.trackingLayer.editPickSegment"
	PathTrackingCurrentEditVertex  = "scene.trackingLayer.currentEditVertex"
	PathTrackingTestEditAddVertex  = "scene.trackingLayer.testEditAddVertex"
	PathTrackingTestEditMoveVertex = "scene.trackingLayer.testEditMoveVertex"
	PathTrackingSetEditVertexIndex = "scene.trackingLayer.setEditVertexIndex"
	PathTrackingEditEnd            = "scene.trackingLayer.editEnd"
	PathTrackingEndEditTest        = "scene.trackingLayer.endEditTest"
	PathTrackingRemoveAll          = "scene.trackingLayer.removeAll"

	PathPrimitivesAddPrimitiveLayer                = "scene.primitiveLayers.addPrimitiveLayer"
	PathPrimitivesLayerAddPrimitive                = "scene.primitiveLayers.layerAddPrimitive"
	PathPrimitivesLayerModifyPrimitive             = "scene.primitiveLayers.layerModifyPrimitive"
	PathPrimitivesLayerRemovePrimitive             = "scene.primitiveLayers.layerRemovePrimitive"
	PathPrimitivesGetPrimitive                     = "scene.primitiveLayers.getPrimitive"
	PathPrimitivesAddPrimitivesFromGeojson         = "scene.primitiveLayers.addPrimitivesFromGeojson"
	PathPrimitivesAddPrimitivesFromKml             = "scene.primitiveLayers.addPrimitivesFromKml"
	PathPrimitivesAddLayerPrimitivePropertyInfo    = "scene.primitiveLayers.addLayerPrimitivePropertyInfo"
	PathPrimitivesRemoveLayerPrimitivePropertyInfo = "scene.primitiveLayers.removeLayerPrimitivePropertyInfo"

	PathAnimationPlay        = "animation.play"
	PathAnimationPause       = "animation.pause"
	PathAnimationStop        = "animation.stop"
	PathAnimationGetDuration = "animation.getDuration"
)

// Events pushed by the engine.
const (
	EventSelectedPrimitive = "selected_primitive"
	EventTouch             = "touch_event"
)

var schema = map[string]struct{}{}

func init() {
	for _, p := range []string{
		PathSceneOpen, PathSceneClose, PathSceneOpenMap, PathSceneGetMap, PathSceneSaveMap,
		PathSceneAddImageLayer, PathSceneRemoveImageLayer, PathSceneGetImageLayers,
		PathSceneViewEntireImageLayer, PathSceneOpenTerrainLayer, PathSceneCloseTerrainLayer,
		PathSceneAddS3MTilesLayer, PathSceneGetS3MLayers, PathSceneSetTilesLayerBottomAltitude,
		PathSceneSetAction, PathSceneGetAction, PathSceneEnableSceneTouch,
		PathSceneSetRequestRenderMode, PathSceneSetResourceBase, PathSceneSetAppResourceBase,
		PathSceneAddEntitiesLayer, PathSceneAddEntity, PathSceneRemoveEntity,
		PathSceneUpdateEntityModify, PathSceneBeginTranslation, PathSceneEndTranslation,
		PathScenePickPosition,
		PathCameraFlyTo, PathCameraGetPosition,
		PathTrackingEditPolyline, PathTrackingEditPolygon, PathTrackingEditSpline,
		PathTrackingEditCircle, PathTrackingEditAddVertex, PathTrackingEditMoveVertex,
		PathTrackingEditRemoveVertex, PathTrackingEditPickSegment, PathTrackingCurrentEditVertex,
		PathTrackingTestEditAddVertex, PathTrackingTestEditMoveVertex,
		PathTrackingSetEditVertexIndex, PathTrackingEditEnd, PathTrackingEndEditTest,
		PathTrackingRemoveAll,
		PathPrimitivesAddPrimitiveLayer, PathPrimitivesLayerAddPrimitive,
		PathPrimitivesLayerModifyPrimitive, PathPrimitivesLayerRemovePrimitive,
		PathPrimitivesGetPrimitive, PathPrimitivesAddPrimitivesFromGeojson,
		PathPrimitivesAddPrimitivesFromKml, PathPrimitivesAddLayerPrimitivePropertyInfo,
		PathPrimitivesRemoveLayerPrimitivePropertyInfo,
		PathAnimationPlay, PathAnimationPause, PathAnimationStop, PathAnimationGetDuration,
	} {
		schema[p] = struct{}{}
	}
}

// Known reports whether path is part of the v1 schema.
func Known(path string) bool {
	_, ok := schema[path]
	return ok
}

// Paths returns every v1 path in sorted order.
func Paths() []string {
	out := make([]string, 0, len(schema))
	for p := range schema {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
