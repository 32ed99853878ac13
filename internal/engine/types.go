package engine

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gaspardpetit/webmap3d-bridge/internal/secret"
)

// SceneAction selects how the scene reacts to touch input.
type SceneAction string

const (
	SceneActionNone        SceneAction = "NONE"
	SceneActionPan         SceneAction = "PAN"
	SceneActionSelect      SceneAction = "SELECT"
	SceneActionTouch       SceneAction = "TOUCH"
	SceneActionTranslation SceneAction = "TRANSLATION"
)

// ProviderType identifies an imagery provider.
type ProviderType string

const (
	ProviderSuperMap   ProviderType = "SUPERMAP"
	ProviderTianditu   ProviderType = "TIANDITU"
	ProviderBing       ProviderType = "BING"
	ProviderChangGuang ProviderType = "CHANGGUANG"
	ProviderSCT        ProviderType = "SCT"
	ProviderURLTile    ProviderType = "URL_TEMPLATE"
)

// TiandituMapsStyle selects a Tianditu service.
type TiandituMapsStyle string

const (
	TiandituImgC TiandituMapsStyle = "IMG_C"
	TiandituVecC TiandituMapsStyle = "VEC_C"
	TiandituTerC TiandituMapsStyle = "TER_C"
	TiandituCiaC TiandituMapsStyle = "CIA_C"
	TiandituCvaC TiandituMapsStyle = "CVA_C"
)

// BingMapsStyle selects a Bing imagery set.
type BingMapsStyle string

const (
	BingAerial           BingMapsStyle = "AERIAL"
	BingAerialWithLabels BingMapsStyle = "AERIAL_WITH_LABELS"
	BingRoad             BingMapsStyle = "ROAD"
)

// TilingSchemeType selects the tiling scheme of an imagery layer.
type TilingSchemeType string

const (
	TilingGeographic  TilingSchemeType = "GeographicTilingScheme"
	TilingWebMercator TilingSchemeType = "WebMercatorTilingScheme"
	TilingGCJ02       TilingSchemeType = "GCJ02TilingScheme"
)

// PrimitiveType is the kind of primitive a layer holds.
type PrimitiveType string

const (
	PrimitiveSolidPoint   PrimitiveType = "SolidPoint"
	PrimitiveBillboard    PrimitiveType = "Billboard"
	PrimitiveLabel        PrimitiveType = "Label"
	PrimitiveTerrainLabel PrimitiveType = "TerrainLabel"
	PrimitiveSolidLine    PrimitiveType = "SolidLine"
	PrimitiveSolidRegion  PrimitiveType = "SolidRegion"
)

// ClassificationType controls what a clamped primitive drapes over.
type ClassificationType string

const (
	ClassifyTerrain  ClassificationType = "TERRAIN"
	ClassifyS3MTiles ClassificationType = "S3M_TILE"
	ClassifyBoth     ClassificationType = "BOTH"
)

// HeightReference positions a primitive relative to the terrain.
type HeightReference string

const (
	HeightNone             HeightReference = "NONE"
	HeightClampToGround    HeightReference = "CLAMP_TO_GROUND"
	HeightRelativeToGround HeightReference = "RELATIVE_TO_GROUND"
)

// LineType is the stroke of a line primitive or entity.
type LineType string

const (
	LineSolid   LineType = "solid"
	LineDashed  LineType = "dashed"
	LineArrow   LineType = "arrow"
	LineContour LineType = "contour"
)

// FillType is the fill pattern of a region.
type FillType string

const (
	FillSolid    FillType = "solid"
	FillGridding FillType = "gridding"
	FillStripe   FillType = "stripe"
)

// VerticalOrigin anchors a label or billboard vertically.
type VerticalOrigin string

const (
	VerticalCenter   VerticalOrigin = "center"
	VerticalBottom   VerticalOrigin = "bottom"
	VerticalBaseline VerticalOrigin = "baseline"
	VerticalTop      VerticalOrigin = "top"
)

// HorizontalOrigin anchors a label or billboard horizontally.
type HorizontalOrigin string

const (
	HorizontalCenter HorizontalOrigin = "center"
	HorizontalLeft   HorizontalOrigin = "left"
	HorizontalRight  HorizontalOrigin = "right"
)

// LabelStyle selects how label text is drawn.
type LabelStyle string

const (
	LabelFill           LabelStyle = "FILL"
	LabelOutline        LabelStyle = "OUTLINE"
	LabelFillAndOutline LabelStyle = "FILL_AND_OUTLINE"
)

// TranslationTarget names what BeginTranslation moves.
type TranslationTarget string

const (
	TranslatePrimitive TranslationTarget = "primitive"
	TranslateEntity    TranslationTarget = "entity"
)

// Vector3 is a position in degrees and metres: X longitude, Y latitude, Z height.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ScreenPoint is a position on the rendering surface in pixels.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CameraPosition describes a camera pose.
type CameraPosition struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Altitude  float64 `json:"altitude"`
	Heading   float64 `json:"heading"`
	Pitch     float64 `json:"pitch"`
	Roll      float64 `json:"roll"`
}

// Positions is a vertex list. The engine accepts and returns both a flat
// [x, y, z, x, y, z, ...] array and an array of {x, y, z} objects; it is
// always sent flat.
type Positions []Vector3

func (p Positions) MarshalJSON() ([]byte, error) {
	flat := make([]float64, 0, len(p)*3)
	for _, v := range p {
		flat = append(flat, v.X, v.Y, v.Z)
	}
	return json.Marshal(flat)
}

func (p *Positions) UnmarshalJSON(b []byte) error {
	var flat []float64
	if err := json.Unmarshal(b, &flat); err == nil {
		if len(flat)%3 != 0 {
			return fmt.Errorf("positions: %d values is not a multiple of 3", len(flat))
		}
		out := make(Positions, 0, len(flat)/3)
		for i := 0; i < len(flat); i += 3 {
			out = append(out, Vector3{X: flat[i], Y: flat[i+1], Z: flat[i+2]})
		}
		*p = out
		return nil
	}
	var vs []Vector3
	if err := json.Unmarshal(b, &vs); err != nil {
		return fmt.Errorf("positions: %w", err)
	}
	*p = vs
	return nil
}

// ImageLayerOptions configures an imagery layer.
type ImageLayerOptions struct {
	Type         ProviderType   `json:"type"`
	URL          string         `json:"url,omitempty"`
	MapStyle     string         `json:"mapStyle,omitempty"`
	Token        string         `json:"token,omitempty"`
	Key          string         `json:"key,omitempty"`
	MaximumLevel int            `json:"maximumLevel,omitempty"`
	TilingScheme *TilingScheme  `json:"tilingScheme,omitempty"`
	Extra        map[string]any `json:"-"`
}

// TilingScheme wraps a TilingSchemeType as the engine expects it.
type TilingScheme struct {
	Type TilingSchemeType `json:"type"`
}

// MarshalJSON merges Extra into the encoded options. Named fields win.
func (o ImageLayerOptions) MarshalJSON() ([]byte, error) {
	type plain ImageLayerOptions
	b, err := json.Marshal(plain(o))
	if err != nil || len(o.Extra) == 0 {
		return b, err
	}
	merged := map[string]any{}
	for k, v := range o.Extra {
		merged[k] = v
	}
	var named map[string]any
	if err := json.Unmarshal(b, &named); err != nil {
		return nil, err
	}
	for k, v := range named {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// MarshalZerologObject logs the options with credentials masked.
func (o ImageLayerOptions) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", string(o.Type))
	if o.URL != "" {
		e.Str("url", secret.MaskURL(o.URL))
	}
	if o.MapStyle != "" {
		e.Str("map_style", o.MapStyle)
	}
	if o.Token != "" {
		e.Str("token", secret.Mask(o.Token))
	}
	if o.Key != "" {
		e.Str("key", secret.Mask(o.Key))
	}
	if o.MaximumLevel > 0 {
		e.Int("maximum_level", o.MaximumLevel)
	}
}

// TerrainLayerOptions configures a terrain layer.
type TerrainLayerOptions struct {
	Type  ProviderType `json:"type"`
	URL   string       `json:"url,omitempty"`
	Token string       `json:"token,omitempty"`
	// IsSct marks STK-compatible terrain services.
	IsSct bool `json:"isSct,omitempty"`
}

// MarshalZerologObject logs the options with credentials masked.
func (o TerrainLayerOptions) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", string(o.Type)).Str("url", secret.MaskURL(o.URL))
	if o.Token != "" {
		e.Str("token", secret.Mask(o.Token))
	}
}

// LayerInfo describes a loaded layer.
type LayerInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Visible *bool  `json:"visible,omitempty"`
}

// Style is the free-form style object of a primitive layer or entity. The
// engine defines many optional keys per primitive type.
type Style map[string]any

// NewStyle returns a Style for primitives of type t.
func NewStyle(t PrimitiveType) Style {
	return Style{"type": t}
}

// Style keys with enumerated values.
const (
	StyleLineType         = "lineType"
	StyleFillType         = "fillType"
	StyleVerticalOrigin   = "verticalOrigin"
	StyleHorizontalOrigin = "horizontalOrigin"
	StyleLabelStyle       = "style"
)

func (s Style) WithLineType(t LineType) Style {
	s[StyleLineType] = t
	return s
}

func (s Style) WithFillType(t FillType) Style {
	s[StyleFillType] = t
	return s
}

// WithOrigin sets where a label or billboard is anchored.
func (s Style) WithOrigin(v VerticalOrigin, h HorizontalOrigin) Style {
	s[StyleVerticalOrigin] = v
	s[StyleHorizontalOrigin] = h
	return s
}

func (s Style) WithLabelStyle(l LabelStyle) Style {
	s[StyleLabelStyle] = l
	return s
}

// Entity is the free-form description of an entity added to an entities
// layer.
type Entity map[string]any

// PropertyInfo declares an attribute column of a primitive layer.
type PropertyInfo struct {
	PropertyName string `json:"propertyName"`
	ValueType    string `json:"valueType"`
	// DefaultValue keeps the engine's wire spelling.
	DefaultValue any `json:"defualtValue"`
}

// Hierarchy is the outline of a region primitive.
type Hierarchy struct {
	Positions Positions `json:"positions"`
}

// Primitive is one object of a primitive layer.
type Primitive struct {
	ID         string         `json:"id,omitempty"`
	Type       PrimitiveType  `json:"type,omitempty"`
	Position   *Vector3       `json:"position,omitempty"`
	Positions  Positions      `json:"positions,omitempty"`
	Hierarchy  *Hierarchy     `json:"hierarchy,omitempty"`
	Text       string         `json:"text,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Segment is the result of picking an edge of the shape being edited.
type Segment struct {
	Position     Vector3 `json:"position"`
	SegmentIndex int     `json:"segmetIndex"`
}

// SelectedPrimitive is one entry of a selected_primitive event.
type SelectedPrimitive struct {
	LayerName   string `json:"layerName"`
	PrimitiveID string `json:"primitiveId"`
}

// TouchEvent is the payload of a touch_event event.
type TouchEvent struct {
	EventType string  `json:"eventType"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Touch event types.
const (
	TouchBegin = "touchBegin"
	TouchMove  = "touchMove"
	TouchEnd   = "touchEnd"
)
