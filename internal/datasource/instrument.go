package datasource

import (
	"context"
	"time"

	"geoedit/internal/geom"
	"geoedit/internal/metrics"
)

// Instrumented records call counts, errors and latency per operation.
type Instrumented struct {
	next Adapter
}

func NewInstrumented(next Adapter) *Instrumented { return &Instrumented{next: next} }

func observe(op string, begin time.Time, err error) {
	metrics.AdapterRequestsTotal.WithLabelValues(op).Inc()
	if err != nil {
		metrics.AdapterErrorsTotal.WithLabelValues(op).Inc()
	}
	metrics.AdapterDurationMs.WithLabelValues(op).Observe(float64(time.Since(begin).Milliseconds()))
}

func (i *Instrumented) LoadElements(ctx context.Context, vp Viewport) ([]*geom.Geometry, error) {
	begin := time.Now()
	out, err := i.next.LoadElements(ctx, vp)
	observe("load", begin, err)
	return out, err
}

func (i *Instrumented) InsertElement(ctx context.Context, g *geom.Geometry) (int64, error) {
	begin := time.Now()
	id, err := i.next.InsertElement(ctx, g)
	observe("insert", begin, err)
	return id, err
}

func (i *Instrumented) UpdateElement(ctx context.Context, id int64, g *geom.Geometry) error {
	begin := time.Now()
	err := i.next.UpdateElement(ctx, id, g)
	observe("update", begin, err)
	return err
}

func (i *Instrumented) DeleteElement(ctx context.Context, id int64) error {
	begin := time.Now()
	err := i.next.DeleteElement(ctx, id)
	observe("delete", begin, err)
	return err
}

func (i *Instrumented) Extent(ctx context.Context) (geom.BBox, bool, error) {
	if e, ok := i.next.(Extenter); ok {
		return e.Extent(ctx)
	}
	return geom.BBox{}, false, nil
}
