// Package datasource holds the persistence side of the editor: the Adapter
// contract the store consumes and the concrete backends behind it.
package datasource

import (
	"context"

	"geoedit/internal/geom"
)

// Viewport is the region the store asks an adapter to fill.
type Viewport struct {
	BBox geom.BBox
	// Zoom is the current level of detail; adapters may ignore it.
	Zoom float64
}

// Adapter loads geometries for a viewport and persists single-element writes.
// Implementations must be safe for concurrent use: loads run in the
// background while saves run on the foreground.
type Adapter interface {
	LoadElements(ctx context.Context, vp Viewport) ([]*geom.Geometry, error)
	InsertElement(ctx context.Context, g *geom.Geometry) (int64, error)
	UpdateElement(ctx context.Context, id int64, g *geom.Geometry) error
	DeleteElement(ctx context.Context, id int64) error
}

// Extenter is implemented by adapters that can report the extent of the whole
// dataset, used to frame the initial view.
type Extenter interface {
	Extent(ctx context.Context) (geom.BBox, bool, error)
}
