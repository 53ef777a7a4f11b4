package datasource

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"geoedit/internal/geom"
	"geoedit/internal/logger"
)

// File is a GeoJSON FeatureCollection on disk. Reads are served from an
// in-memory index; every write rewrites the whole file through a temp file
// and a rename so a crash never leaves a truncated document.
type File struct {
	path string
	mem  *Memory

	// wmu orders file rewrites.
	wmu sync.Mutex
}

// OpenFile loads path, creating an empty collection if it does not exist.
// Features without a numeric id are assigned one and the file is rewritten.
func OpenFile(path string) (*File, error) {
	var seed []*geom.Geometry
	rewrite := false
	gs, err := geom.LoadGeo(path)
	switch {
	case err == nil:
		seed = gs
		for _, g := range gs {
			if g.ID < 0 {
				rewrite = true
			}
		}
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, geom.ErrNoGeometries):
		rewrite = true
	default:
		return nil, err
	}
	f := &File{path: path, mem: NewMemory(seed...)}
	if rewrite {
		if err := f.flush(); err != nil {
			return nil, err
		}
	}
	logger.L().Info("geojson_open", "path", path, "elements", f.mem.Len())
	return f, nil
}

// Path is the backing file.
func (f *File) Path() string { return f.path }

func (f *File) LoadElements(ctx context.Context, vp Viewport) ([]*geom.Geometry, error) {
	return f.mem.LoadElements(ctx, vp)
}

func (f *File) InsertElement(ctx context.Context, g *geom.Geometry) (int64, error) {
	id, err := f.mem.InsertElement(ctx, g)
	if err != nil {
		return 0, err
	}
	return id, f.flush()
}

func (f *File) UpdateElement(ctx context.Context, id int64, g *geom.Geometry) error {
	if err := f.mem.UpdateElement(ctx, id, g); err != nil {
		return err
	}
	return f.flush()
}

func (f *File) DeleteElement(ctx context.Context, id int64) error {
	if err := f.mem.DeleteElement(ctx, id); err != nil {
		return err
	}
	return f.flush()
}

func (f *File) Extent(ctx context.Context) (geom.BBox, bool, error) {
	return f.mem.Extent(ctx)
}

func (f *File) flush() error {
	f.wmu.Lock()
	defer f.wmu.Unlock()
	data, err := geom.EncodeGeo(f.mem.All())
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".geoedit-*.geojson")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
