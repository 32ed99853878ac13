package engine

import (
	"context"
	"encoding/json"
)

// PrimitiveLayers manages layers of lightweight primitives with attributes.
type PrimitiveLayers struct{ c Caller }

// AddPrimitiveLayer creates a layer drawing primitives with style. props
// declares the layer's attribute columns and may be nil.
func (p *PrimitiveLayers) AddPrimitiveLayer(ctx context.Context, name string, style Style, props []PropertyInfo) (bool, error) {
	var ok bool
	var err error
	if props == nil {
		err = p.c.Call(ctx, PathPrimitivesAddPrimitiveLayer, &ok, name, style)
	} else {
		err = p.c.Call(ctx, PathPrimitivesAddPrimitiveLayer, &ok, name, style, props)
	}
	return ok, err
}

// LayerAddPrimitive adds prim to layer and returns its id.
func (p *PrimitiveLayers) LayerAddPrimitive(ctx context.Context, layer string, prim Primitive) (string, error) {
	var id string
	err := p.c.Call(ctx, PathPrimitivesLayerAddPrimitive, &id, layer, prim)
	return id, err
}

// LayerModifyPrimitive updates the primitive identified by prim.ID with the
// fields set in prim.
func (p *PrimitiveLayers) LayerModifyPrimitive(ctx context.Context, layer string, prim Primitive) (bool, error) {
	var ok bool
	err := p.c.Call(ctx, PathPrimitivesLayerModifyPrimitive, &ok, layer, prim)
	return ok, err
}

func (p *PrimitiveLayers) LayerRemovePrimitive(ctx context.Context, layer, id string) (bool, error) {
	var ok bool
	err := p.c.Call(ctx, PathPrimitivesLayerRemovePrimitive, &ok, layer, id)
	return ok, err
}

// GetPrimitive returns the primitive, or nil when the layer has no such id.
func (p *PrimitiveLayers) GetPrimitive(ctx context.Context, layer, id string) (*Primitive, error) {
	var prim *Primitive
	err := p.c.Call(ctx, PathPrimitivesGetPrimitive, &prim, layer, id)
	return prim, err
}

// AddPrimitivesFromGeojson imports a GeoJSON document into layer. The result
// is whatever the engine reports for the import.
func (p *PrimitiveLayers) AddPrimitivesFromGeojson(ctx context.Context, layer, geojson string) (json.RawMessage, error) {
	var res json.RawMessage
	err := p.c.Call(ctx, PathPrimitivesAddPrimitivesFromGeojson, &res, layer, geojson)
	return res, err
}

// AddPrimitivesFromKml imports a KML document into layer.
func (p *PrimitiveLayers) AddPrimitivesFromKml(ctx context.Context, layer, kml string) (json.RawMessage, error) {
	var res json.RawMessage
	err := p.c.Call(ctx, PathPrimitivesAddPrimitivesFromKml, &res, layer, kml)
	return res, err
}

func (p *PrimitiveLayers) AddLayerPrimitivePropertyInfo(ctx context.Context, layer string, info PropertyInfo) (bool, error) {
	var ok bool
	err := p.c.Call(ctx, PathPrimitivesAddLayerPrimitivePropertyInfo, &ok, layer, info)
	return ok, err
}

func (p *PrimitiveLayers) RemoveLayerPrimitivePropertyInfo(ctx context.Context, layer, property string) (bool, error) {
	var ok bool
	err := p.c.Call(ctx, PathPrimitivesRemoveLayerPrimitivePropertyInfo, &ok, layer, property)
	return ok, err
}
