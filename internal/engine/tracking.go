package engine

import "context"

// TrackingLayer drives interactive shape editing. Only one shape is edited at
// a time; vertex indexes refer to that shape.
type TrackingLayer struct{ c Caller }

// EditPolyline starts a new line. Vertices are added with EditAddVertex.
func (t *TrackingLayer) EditPolyline(ctx context.Context, cls ClassificationType) error {
	return t.c.Call(ctx, PathTrackingEditPolyline, nil, cls)
}

func (t *TrackingLayer) EditPolygon(ctx context.Context, cls ClassificationType) error {
	return t.c.Call(ctx, PathTrackingEditPolygon, nil, cls)
}

// EditSpline starts a smoothed line of the given order, interpolating
// segments points between vertices.
func (t *TrackingLayer) EditSpline(ctx context.Context, cls ClassificationType, order, segments int) error {
	return t.c.Call(ctx, PathTrackingEditSpline, nil, cls, order, segments)
}

// EditCircle starts a circle; the first vertex is the center and the second
// sets the radius.
func (t *TrackingLayer) EditCircle(ctx context.Context, cls ClassificationType, fill bool) error {
	return t.c.Call(ctx, PathTrackingEditCircle, nil, cls, fill)
}

// EditAddVertex inserts p before index.
func (t *TrackingLayer) EditAddVertex(ctx context.Context, p Vector3, index int) error {
	return t.c.Call(ctx, PathTrackingEditAddVertex, nil, p, index)
}

// EditMoveVertex moves the vertex at index to p. A negative index moves the
// vertex selected with SetEditVertexIndex.
func (t *TrackingLayer) EditMoveVertex(ctx context.Context, p Vector3, index int) error {
	if index < 0 {
		return t.c.Call(ctx, PathTrackingEditMoveVertex, nil, p)
	}
	return t.c.Call(ctx, PathTrackingEditMoveVertex, nil, p, index)
}

func (t *TrackingLayer) EditRemoveVertex(ctx context.Context, index int) error {
	return t.c.Call(ctx, PathTrackingEditRemoveVertex, nil, index)
}

// EditPickSegment returns the edge of the edited shape under p, or nil.
func (t *TrackingLayer) EditPickSegment(ctx context.Context, p ScreenPoint) (*Segment, error) {
	var seg *Segment
	err := t.c.Call(ctx, PathTrackingEditPickSegment, &seg, p)
	return seg, err
}

// CurrentEditVertex returns the vertices of the edited shape.
func (t *TrackingLayer) CurrentEditVertex(ctx context.Context) (Positions, error) {
	var ps Positions
	err := t.c.Call(ctx, PathTrackingCurrentEditVertex, &ps)
	return ps, err
}

// TestEditAddVertex previews inserting p without committing it.
func (t *TrackingLayer) TestEditAddVertex(ctx context.Context, p Vector3) error {
	return t.c.Call(ctx, PathTrackingTestEditAddVertex, nil, p)
}

// TestEditMoveVertex previews moving the selected vertex to p.
func (t *TrackingLayer) TestEditMoveVertex(ctx context.Context, p Vector3) error {
	return t.c.Call(ctx, PathTrackingTestEditMoveVertex, nil, p)
}

// SetEditVertexIndex selects a vertex. -1 clears the selection.
func (t *TrackingLayer) SetEditVertexIndex(ctx context.Context, index int) error {
	return t.c.Call(ctx, PathTrackingSetEditVertexIndex, nil, index)
}

// EditEnd finishes editing and returns the final vertices.
func (t *TrackingLayer) EditEnd(ctx context.Context) (Positions, error) {
	var ps Positions
	err := t.c.Call(ctx, PathTrackingEditEnd, &ps)
	return ps, err
}

func (t *TrackingLayer) EndEditTest(ctx context.Context) error {
	return t.c.Call(ctx, PathTrackingEndEditTest, nil)
}

func (t *TrackingLayer) RemoveAll(ctx context.Context) error {
	return t.c.Call(ctx, PathTrackingRemoveAll, nil)
}
